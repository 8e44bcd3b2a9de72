// Package pipeline runs the fetch, normalize, reshape and export stages in order.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/Veraticus/accidentes/internal/chart"
	"github.com/Veraticus/accidentes/internal/common"
	"github.com/Veraticus/accidentes/internal/export"
	"github.com/Veraticus/accidentes/internal/model"
	"github.com/Veraticus/accidentes/internal/service"
	"github.com/Veraticus/accidentes/internal/transform"
)

// Config names the outputs of a run. Empty optional paths skip that output.
type Config struct {
	SourceURL    string
	CSVPath      string
	WorkbookPath string
	ChartPath    string
	ReportPath   string
}

// DefaultConfig returns the outputs written by a plain run.
func DefaultConfig() Config {
	return Config{
		CSVPath:      export.DefaultFlatFile,
		WorkbookPath: export.DefaultWorkbook,
	}
}

// Pipeline orchestrates one batch run.
type Pipeline struct {
	fetcher   service.Fetcher
	store     service.TableStore
	publisher service.TablePublisher
	logger    *slog.Logger
	now       func() time.Time
	config    Config
}

// New creates a pipeline reading from fetcher.
func New(fetcher service.Fetcher, config Config, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		fetcher: fetcher,
		config:  config,
		logger:  logger,
		now:     time.Now,
	}
}

// WithStore also persists the tables to store.
func (p *Pipeline) WithStore(store service.TableStore) *Pipeline {
	p.store = store
	return p
}

// WithPublisher also publishes the tables through publisher.
func (p *Pipeline) WithPublisher(publisher service.TablePublisher) *Pipeline {
	p.publisher = publisher
	return p
}

// Run executes every stage and returns the run summary. The first failing stage
// ends the run; outputs written before it are left in place.
func (p *Pipeline) Run(ctx context.Context) (service.RunSummary, error) {
	summary := service.RunSummary{
		RunID:     uuid.NewString(),
		SourceURL: p.config.SourceURL,
		StartedAt: p.now(),
		Outputs:   make(map[string]string),
	}
	logger := p.logger.With("run_id", summary.RunID)

	logger.Info("fetching accidents", "source", p.config.SourceURL)
	raw, err := p.fetcher.FetchAccidents(ctx)
	if err != nil {
		return summary, fmt.Errorf("failed to fetch accidents: %w", err)
	}
	if len(raw) == 0 {
		return summary, common.ErrEmptyDataset
	}
	summary.RawRecords = len(raw)

	accidents, err := transform.Normalize(raw)
	if err != nil {
		return summary, err
	}
	logger.Info("normalized accidents", "count", len(accidents))

	if err := canceled(ctx, "flat file"); err != nil {
		return summary, err
	}
	if err := export.WriteFlatFileTo(p.config.CSVPath, accidents); err != nil {
		return summary, exportError(p.config.CSVPath, err)
	}
	summary.Outputs["csv"] = p.config.CSVPath
	logger.Info("wrote flat file", "path", p.config.CSVPath)

	tables := transform.Reshape(accidents)
	list := tables.List()
	summary.Accidents = len(tables.Accidents)
	summary.Details = len(tables.Details)
	summary.Communes = len(tables.Communes)
	summary.AffectedByType = transform.AffectedTotals(tables.Details)
	logger.Info("reshaped tables",
		"accidentes", summary.Accidents,
		"detalle_accidentes", summary.Details,
		"comunas", summary.Communes)

	if err := canceled(ctx, "workbook"); err != nil {
		return summary, err
	}
	if err := export.WriteWorkbook(p.config.WorkbookPath, list); err != nil {
		return summary, exportError(p.config.WorkbookPath, err)
	}
	summary.Outputs["xlsx"] = p.config.WorkbookPath
	logger.Info("wrote workbook", "path", p.config.WorkbookPath)

	if err := p.writeOptional(ctx, logger, tables, list, &summary); err != nil {
		return summary, err
	}

	summary.FinishedAt = p.now()

	if p.config.ReportPath != "" {
		if err := canceled(ctx, "report"); err != nil {
			return summary, err
		}
		summary.Outputs["report"] = p.config.ReportPath
		if err := export.WriteReport(p.config.ReportPath, summary); err != nil {
			delete(summary.Outputs, "report")
			return summary, exportError(p.config.ReportPath, err)
		}
		logger.Info("wrote report", "path", p.config.ReportPath)
	}

	logger.Info("run complete", "duration", summary.Duration())
	return summary, nil
}

func (p *Pipeline) writeOptional(ctx context.Context, logger *slog.Logger, tables model.Tables, list []model.Table, summary *service.RunSummary) error {
	if p.store != nil {
		if err := canceled(ctx, "database"); err != nil {
			return err
		}
		if err := p.store.Migrate(ctx); err != nil {
			return fmt.Errorf("failed to migrate database: %w", err)
		}
		if err := p.store.SaveTables(ctx, list); err != nil {
			return fmt.Errorf("failed to save tables: %w", err)
		}
		summary.Outputs["sqlite"] = storePath(p.store)
		logger.Info("saved tables to database")
	}

	if p.config.ChartPath != "" {
		if err := canceled(ctx, "chart"); err != nil {
			return err
		}
		if err := chart.RenderCommuneChart(p.config.ChartPath, tables.Accidents, tables.Communes); err != nil {
			return exportError(p.config.ChartPath, err)
		}
		summary.Outputs["chart"] = p.config.ChartPath
		logger.Info("rendered commune chart", "path", p.config.ChartPath)
	}

	if p.publisher != nil {
		if err := canceled(ctx, "sheets"); err != nil {
			return err
		}
		if err := p.publisher.Publish(ctx, list); err != nil {
			return fmt.Errorf("failed to publish tables: %w", err)
		}
		summary.Outputs["sheets"] = "published"
		logger.Info("published tables")
	}

	return nil
}

func storePath(store service.TableStore) string {
	if s, ok := store.(interface{ Path() string }); ok {
		return s.Path()
	}
	return "stored"
}

// canceled reports a canceled run before the named output stage starts.
func canceled(ctx context.Context, stage string) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("run canceled before %s: %w", stage, err)
	}
	return nil
}

func exportError(path string, err error) error {
	return fmt.Errorf("%w: %s: %w", common.ErrExportFailed, path, err)
}
