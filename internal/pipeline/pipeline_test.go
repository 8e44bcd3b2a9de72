package pipeline

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"gopkg.in/yaml.v3"

	"github.com/Veraticus/accidentes/internal/common"
	"github.com/Veraticus/accidentes/internal/export"
	"github.com/Veraticus/accidentes/internal/model"
	"github.com/Veraticus/accidentes/internal/service"
	"github.com/Veraticus/accidentes/internal/sheets"
	"github.com/Veraticus/accidentes/internal/testutil"
	"github.com/Veraticus/accidentes/internal/testutil/accidents"
)

type fakeFetcher struct {
	err     error
	onFetch func()
	records []model.RawAccident
	calls   int
}

func (f *fakeFetcher) FetchAccidents(context.Context) ([]model.RawAccident, error) {
	f.calls++
	if f.onFetch != nil {
		f.onFetch()
	}
	return f.records, f.err
}

func testConfig(t *testing.T) Config {
	t.Helper()
	dir := t.TempDir()
	return Config{
		SourceURL:    "https://example.test/resource.json",
		CSVPath:      filepath.Join(dir, export.DefaultFlatFile),
		WorkbookPath: filepath.Join(dir, export.DefaultWorkbook),
	}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRun_WritesCoreOutputs(t *testing.T) {
	fetcher := &fakeFetcher{records: accidents.NewBuilder(t).WithSample().Build()}
	config := testConfig(t)

	summary, err := New(fetcher, config, discardLogger()).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, fetcher.calls)
	assert.NotEmpty(t, summary.RunID)
	assert.Equal(t, config.SourceURL, summary.SourceURL)
	assert.Equal(t, 4, summary.RawRecords)
	assert.Equal(t, 4, summary.Accidents)
	assert.Equal(t, 5, summary.Details)
	assert.Equal(t, 3, summary.Communes)
	assert.Equal(t, map[string]int{"moto": 3, "automovil": 2, "peaton": 1, "bus": 1}, summary.AffectedByType)
	assert.Equal(t, map[string]string{
		"csv":  config.CSVPath,
		"xlsx": config.WorkbookPath,
	}, summary.Outputs)
	assert.False(t, summary.FinishedAt.Before(summary.StartedAt))

	f, err := os.Open(config.CSVPath)
	require.NoError(t, err)
	defer f.Close()
	header, rows, err := export.ReadFlatFile(f)
	require.NoError(t, err)
	assert.Equal(t, model.FlatColumns, header)
	require.Len(t, rows, 4)
	assert.Equal(t, "2021-01-10 13:15:30", rows[0][1])
	assert.Equal(t, "C25", rows[1][19])
	assert.Equal(t, "FLORIDABLANCA", rows[2][20])

	wb, err := excelize.OpenFile(config.WorkbookPath)
	require.NoError(t, err)
	defer wb.Close()
	assert.Equal(t, []string{
		model.TableAccidents, model.TableAffectedParties, model.TableDetails, model.TableCommunes,
	}, wb.GetSheetList())

	details, err := wb.GetRows(model.TableDetails)
	require.NoError(t, err)
	assert.Len(t, details, 6)
}

func TestRun_OptionalOutputs(t *testing.T) {
	fetcher := &fakeFetcher{records: accidents.NewBuilder(t).WithSample().Build()}
	config := testConfig(t)
	dir := filepath.Dir(config.CSVPath)
	config.ChartPath = filepath.Join(dir, "charts", "comunas.png")
	config.ReportPath = filepath.Join(dir, "report.yaml")

	store := testutil.SetupTestDB(t)
	publisher := sheets.NewMockWriter()

	summary, err := New(fetcher, config, discardLogger()).
		WithStore(store).
		WithPublisher(publisher).
		Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 4, testutil.MustCount(t, store, model.TableAccidents))
	assert.Equal(t, 12, testutil.MustCount(t, store, model.TableAffectedParties))
	assert.Equal(t, 5, testutil.MustCount(t, store, model.TableDetails))
	assert.Equal(t, 3, testutil.MustCount(t, store, model.TableCommunes))

	require.Equal(t, 1, publisher.PublishCallCnt)
	require.Len(t, publisher.LastTables, 4)
	assert.Equal(t, model.TableCommunes, publisher.LastTables[3].Name)

	png, err := os.ReadFile(config.ChartPath)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(png, []byte("\x89PNG")))

	data, err := os.ReadFile(config.ReportPath)
	require.NoError(t, err)
	var report export.Report
	require.NoError(t, yaml.Unmarshal(data, &report))
	assert.Equal(t, summary.RunID, report.RunID)
	assert.Equal(t, 5, report.Rows.Details)
	assert.Equal(t, config.ReportPath, report.Outputs["report"])
	assert.Equal(t, ":memory:", report.Outputs["sqlite"])
	assert.Equal(t, "published", report.Outputs["sheets"])
}

func TestRun_Failures(t *testing.T) {
	tests := []struct {
		wantErr  error
		fetchErr error
		name     string
		records  []model.RawAccident
	}{
		{
			name:     "fetch error",
			fetchErr: common.ErrSourceUnavailable,
			wantErr:  common.ErrSourceUnavailable,
		},
		{
			name:    "empty dataset",
			records: []model.RawAccident{},
			wantErr: common.ErrEmptyDataset,
		},
		{
			name:    "malformed time",
			records: []model.RawAccident{func() model.RawAccident { r := accidents.Default("9"); r.Hora = "25:00:00 x. m."; return r }()},
			wantErr: common.ErrMalformedTime,
		},
		{
			name:    "malformed commune",
			records: []model.RawAccident{func() model.RawAccident { r := accidents.Default("9"); r.NombreComuna = "XY"; return r }()},
			wantErr: common.ErrMalformedCommune,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := testConfig(t)
			fetcher := &fakeFetcher{records: tt.records, err: tt.fetchErr}

			_, err := New(fetcher, config, discardLogger()).Run(context.Background())
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)

			// Nothing is written before normalization succeeds.
			assert.NoFileExists(t, config.CSVPath)
			assert.NoFileExists(t, config.WorkbookPath)
		})
	}
}

func TestRun_PublishFailure(t *testing.T) {
	fetcher := &fakeFetcher{records: accidents.NewBuilder(t).WithSample().Build()}
	config := testConfig(t)
	publisher := sheets.NewMockWriter()
	boom := errors.New("quota exceeded")
	publisher.PublishFunc = func(context.Context, []model.Table) error { return boom }

	summary, err := New(fetcher, config, discardLogger()).WithPublisher(publisher).Run(context.Background())
	require.ErrorIs(t, err, boom)

	// Local outputs written before the failing stage stay in place.
	assert.FileExists(t, config.CSVPath)
	assert.FileExists(t, config.WorkbookPath)
	assert.NotContains(t, summary.Outputs, "sheets")
}

func TestRun_DatabaseAlreadyPopulated(t *testing.T) {
	store := testutil.SetupTestDB(t)

	for i, want := range []error{nil, common.ErrDuplicateEntry} {
		fetcher := &fakeFetcher{records: accidents.NewBuilder(t).WithSample().Build()}
		_, err := New(fetcher, testConfig(t), discardLogger()).WithStore(store).Run(context.Background())
		if want == nil {
			require.NoError(t, err, "run %d", i)
			continue
		}
		assert.ErrorIs(t, err, want, "run %d", i)
	}

	assert.Equal(t, 4, testutil.MustCount(t, store, model.TableAccidents))
}

func TestRun_RepeatedAccidentIDs(t *testing.T) {
	raw := accidents.NewBuilder(t).
		WithAccident(accidents.ID("5"), accidents.Count("moto", 1)).
		WithAccident(accidents.ID("5"), accidents.Count("peaton", 1)).
		Build()
	store := testutil.SetupTestDB(t)

	summary, err := New(&fakeFetcher{records: raw}, testConfig(t), discardLogger()).
		WithStore(store).
		Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, summary.Accidents)
	assert.Equal(t, 2, testutil.MustCount(t, store, model.TableAccidents))
	assert.Equal(t, 2, testutil.MustCount(t, store, model.TableDetails))
}

func TestRun_CanceledAfterFetch(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	fetcher := &fakeFetcher{
		records: accidents.NewBuilder(t).WithSample().Build(),
		onFetch: cancel,
	}
	config := testConfig(t)
	publisher := sheets.NewMockWriter()

	_, err := New(fetcher, config, discardLogger()).WithPublisher(publisher).Run(ctx)
	require.ErrorIs(t, err, context.Canceled)

	assert.NoFileExists(t, config.CSVPath)
	assert.NoFileExists(t, config.WorkbookPath)
	assert.Zero(t, publisher.PublishCallCnt)
}

func TestRun_CanceledBeforeOptionalOutputs(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	config := testConfig(t)
	config.ReportPath = filepath.Join(filepath.Dir(config.CSVPath), "report.yaml")
	publisher := sheets.NewMockWriter()
	store := &cancelingStore{TableStore: testutil.SetupTestDB(t), cancel: cancel}

	_, err := New(&fakeFetcher{records: accidents.NewBuilder(t).WithSample().Build()}, config, discardLogger()).
		WithStore(store).
		WithPublisher(publisher).
		Run(ctx)
	require.ErrorIs(t, err, context.Canceled)

	assert.FileExists(t, config.CSVPath)
	assert.FileExists(t, config.WorkbookPath)
	assert.Zero(t, publisher.PublishCallCnt)
	assert.NoFileExists(t, config.ReportPath)
}

// cancelingStore cancels the run once its tables are saved.
type cancelingStore struct {
	service.TableStore
	cancel context.CancelFunc
}

func (s *cancelingStore) SaveTables(ctx context.Context, tables []model.Table) error {
	err := s.TableStore.SaveTables(ctx, tables)
	s.cancel()
	return err
}

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()
	assert.Equal(t, "datos_modificados.csv", config.CSVPath)
	assert.Equal(t, "tablas.xlsx", config.WorkbookPath)
	assert.Empty(t, config.ChartPath)
	assert.Empty(t, config.ReportPath)
}
