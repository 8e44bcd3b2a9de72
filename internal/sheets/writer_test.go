package sheets

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"github.com/Veraticus/accidentes/internal/model"
)

// fakeSheetsAPI serves the subset of the Sheets v4 REST API the writer uses.
type fakeSheetsAPI struct {
	spreadsheet *sheets.Spreadsheet
	written     map[string][][]any
	cleared     []string
	updates     []*sheets.BatchUpdateSpreadsheetRequest
	created     int
	mu          sync.Mutex
}

func newFakeSheetsAPI(existing ...string) *fakeSheetsAPI {
	f := &fakeSheetsAPI{written: make(map[string][][]any)}
	if len(existing) > 0 {
		f.spreadsheet = &sheets.Spreadsheet{
			SpreadsheetId:  "sheet-1",
			SpreadsheetUrl: "https://docs.google.com/spreadsheets/d/sheet-1",
		}
		for _, title := range existing {
			f.addTab(title)
		}
	}
	return f
}

func (f *fakeSheetsAPI) addTab(title string) {
	f.spreadsheet.Sheets = append(f.spreadsheet.Sheets, &sheets.Sheet{
		Properties: &sheets.SheetProperties{
			Title:   title,
			SheetId: int64(len(f.spreadsheet.Sheets) + 100),
		},
	})
}

func (f *fakeSheetsAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	path := r.URL.Path
	switch {
	case r.Method == http.MethodPost && path == "/v4/spreadsheets":
		var req sheets.Spreadsheet
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		f.created++
		f.spreadsheet = &sheets.Spreadsheet{
			SpreadsheetId:  "new-sheet",
			SpreadsheetUrl: "https://docs.google.com/spreadsheets/d/new-sheet",
			Properties:     req.Properties,
		}
		for _, sh := range req.Sheets {
			f.addTab(sh.Properties.Title)
		}
		writeJSON(w, f.spreadsheet)

	case r.Method == http.MethodGet && strings.HasPrefix(path, "/v4/spreadsheets/"):
		if f.spreadsheet == nil || !strings.HasSuffix(path, f.spreadsheet.SpreadsheetId) {
			http.Error(w, `{"error":{"code":404,"message":"not found"}}`, http.StatusNotFound)
			return
		}
		writeJSON(w, f.spreadsheet)

	case r.Method == http.MethodPost && strings.HasSuffix(path, ":batchUpdate") && !strings.Contains(path, "/values"):
		var req sheets.BatchUpdateSpreadsheetRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		f.updates = append(f.updates, &req)
		for _, rq := range req.Requests {
			if rq.AddSheet != nil {
				f.addTab(rq.AddSheet.Properties.Title)
			}
		}
		writeJSON(w, &sheets.BatchUpdateSpreadsheetResponse{SpreadsheetId: f.spreadsheet.SpreadsheetId})

	case r.Method == http.MethodPost && strings.HasSuffix(path, "/values:batchClear"):
		var req sheets.BatchClearValuesRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		f.cleared = append(f.cleared, req.Ranges...)
		writeJSON(w, &sheets.BatchClearValuesResponse{ClearedRanges: req.Ranges})

	case r.Method == http.MethodPut && strings.Contains(path, "/values/"):
		var vr sheets.ValueRange
		if err := json.NewDecoder(r.Body).Decode(&vr); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		tab := strings.Trim(strings.SplitN(vr.Range, "!", 2)[0], "'")
		f.written[tab] = append(f.written[tab], vr.Values...)
		writeJSON(w, &sheets.UpdateValuesResponse{UpdatedRows: int64(len(vr.Values))})

	default:
		body, _ := io.ReadAll(r.Body)
		http.Error(w, "unexpected request "+r.Method+" "+path+" "+string(body), http.StatusNotImplemented)
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func newTestWriter(t *testing.T, api *fakeSheetsAPI, config Config) *Writer {
	t.Helper()

	srv := httptest.NewServer(api)
	t.Cleanup(srv.Close)

	svc, err := sheets.NewService(context.Background(),
		option.WithHTTPClient(srv.Client()),
		option.WithEndpoint(srv.URL+"/"))
	require.NoError(t, err)

	return NewWriterWithService(config, svc, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func testConfig() Config {
	config := DefaultConfig()
	config.ServiceAccountPath = "/unused/key.json"
	config.RetryAttempts = 1
	config.RetryDelay = 0
	return config
}

func testTables() []model.Table {
	fecha := time.Date(2021, 1, 10, 13, 15, 30, 0, time.UTC)
	return []model.Table{
		{
			Name:   model.TableAccidents,
			Header: []string{"id_accidente", "fecha"},
			Rows:   [][]any{{1, fecha}, {2, fecha.Add(time.Hour)}},
		},
		{
			Name:   model.TableCommunes,
			Header: model.CommuneColumns,
			Rows:   [][]any{{"C05", "SUAREZ"}},
		},
	}
}

func TestWriter_PublishCreatesSpreadsheet(t *testing.T) {
	api := newFakeSheetsAPI()
	w := newTestWriter(t, api, testConfig())

	err := w.Publish(context.Background(), testTables())
	require.NoError(t, err)

	assert.Equal(t, 1, api.created)
	assert.Equal(t, "new-sheet", w.config.SpreadsheetID)
	assert.ElementsMatch(t, []string{"'accidentes'", "'comunas'"}, api.cleared)

	accidents := api.written[model.TableAccidents]
	require.Len(t, accidents, 3)
	assert.Equal(t, []any{"id_accidente", "fecha"}, accidents[0])
	assert.Equal(t, []any{float64(1), "2021-01-10 13:15:30"}, accidents[1])
	assert.Equal(t, []any{float64(2), "2021-01-10 14:15:30"}, accidents[2])

	assert.Equal(t, [][]any{{"id_comuna", "nombrecomuna"}, {"C05", "SUAREZ"}}, api.written[model.TableCommunes])

	// Formatting covers both tabs.
	require.Len(t, api.updates, 1)
	assert.Len(t, api.updates[0].Requests, 4)
}

func TestWriter_PublishAddsMissingTabs(t *testing.T) {
	api := newFakeSheetsAPI(model.TableAccidents)
	config := testConfig()
	config.SpreadsheetID = "sheet-1"
	config.EnableFormatting = false
	w := newTestWriter(t, api, config)

	err := w.Publish(context.Background(), testTables())
	require.NoError(t, err)

	assert.Zero(t, api.created)
	require.Len(t, api.updates, 1)
	require.Len(t, api.updates[0].Requests, 1)
	assert.Equal(t, model.TableCommunes, api.updates[0].Requests[0].AddSheet.Properties.Title)
	assert.Len(t, api.spreadsheet.Sheets, 2)
	assert.Len(t, api.written[model.TableCommunes], 2)
}

func TestWriter_PublishBatchesRows(t *testing.T) {
	api := newFakeSheetsAPI(model.TableAccidents, model.TableCommunes)
	config := testConfig()
	config.SpreadsheetID = "sheet-1"
	config.EnableFormatting = false
	config.BatchSize = 1
	w := newTestWriter(t, api, config)

	require.NoError(t, w.Publish(context.Background(), testTables()))

	// Header plus two rows, one request each, reassembled in order.
	accidents := api.written[model.TableAccidents]
	require.Len(t, accidents, 3)
	assert.Equal(t, "id_accidente", accidents[0][0])
	assert.Equal(t, float64(2), accidents[2][0])
}

func TestWriter_PublishUnknownSpreadsheet(t *testing.T) {
	api := newFakeSheetsAPI(model.TableAccidents)
	config := testConfig()
	config.SpreadsheetID = "missing"
	w := newTestWriter(t, api, config)

	err := w.Publish(context.Background(), testTables())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to get spreadsheet")
	assert.Empty(t, api.written)
}

func TestTableValues(t *testing.T) {
	table := model.Table{
		Name:   model.TableDetails,
		Header: model.DetailColumns,
		Rows: [][]any{
			{7, "AF9", 2},
			{time.Date(2021, 3, 4, 0, 5, 0, 0, time.UTC), nil, "x"},
		},
	}

	values := tableValues(table)

	require.Len(t, values, 3)
	assert.Equal(t, []any{"id_accidente", "id_afectado", "cantidad_afectados"}, values[0])
	assert.Equal(t, []any{7, "AF9", 2}, values[1])
	assert.Equal(t, []any{"2021-03-04 00:05:00", nil, "x"}, values[2])
}

func TestMissingTabsAndSheetIDs(t *testing.T) {
	s := &sheets.Spreadsheet{Sheets: []*sheets.Sheet{
		{Properties: &sheets.SheetProperties{Title: "accidentes", SheetId: 3}},
		{Properties: &sheets.SheetProperties{Title: "otra", SheetId: 9}},
	}}
	tabs := []string{"accidentes", "comunas"}

	assert.Equal(t, []string{"comunas"}, missingTabs(s, tabs))
	assert.Equal(t, []int64{3}, sheetIDs(s, tabs))
}

func TestMockWriter(t *testing.T) {
	mock := NewMockWriter()
	tables := testTables()

	require.NoError(t, mock.Publish(context.Background(), tables))

	boom := errors.New("boom")
	mock.PublishFunc = func(context.Context, []model.Table) error { return boom }
	assert.ErrorIs(t, mock.Publish(context.Background(), tables), boom)

	assert.Equal(t, 2, mock.PublishCallCnt)
	assert.Equal(t, tables, mock.LastTables)
	require.Len(t, mock.PublishCalls, 2)
	assert.NoError(t, mock.PublishCalls[0].Error)
	assert.ErrorIs(t, mock.PublishCalls[1].Error, boom)

	mock.Reset()
	assert.Zero(t, mock.PublishCallCnt)
	assert.Empty(t, mock.PublishCalls)
}
