package main

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Veraticus/accidentes/internal/cli"
	"github.com/Veraticus/accidentes/internal/common"
	"github.com/Veraticus/accidentes/internal/config"
	"github.com/Veraticus/accidentes/internal/datos"
	"github.com/Veraticus/accidentes/internal/export"
	"github.com/Veraticus/accidentes/internal/pipeline"
	"github.com/Veraticus/accidentes/internal/sheets"
	"github.com/Veraticus/accidentes/internal/storage"
)

// runFlagKeys maps each run flag to its configuration key.
var runFlagKeys = map[string]string{
	"source-url": "source.url",
	"timeout":    "source.timeout",
	"retries":    "source.retries",
	"page-size":  "source.page_size",
	"progress":   "source.progress",
	"csv":        "output.csv",
	"xlsx":       "output.xlsx",
	"sqlite":     "output.sqlite",
	"chart":      "output.chart",
	"report":     "output.report",
	"sheets":     "output.sheets",
}

func runCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Download, normalize and export the accident dataset",
		Long: `Download the accident dataset, normalize it, and write:

  datos_modificados.csv   the normalized flat table (UTF-8 with BOM)
  tablas.xlsx             sheets accidentes, afectados, detalle_accidentes, comunas

Optional outputs: a SQLite database (--sqlite), a per-commune chart (--chart),
a YAML run report (--report) and a Google Sheets copy (--sheets).`,
		PreRunE: bindRunFlags,
		RunE:    runPipeline,
	}

	addRunFlags(cmd)

	return cmd
}

func addRunFlags(cmd *cobra.Command) {
	defaults := datos.DefaultConfig()

	cmd.Flags().String("source-url", defaults.URL, "dataset JSON endpoint")
	cmd.Flags().Duration("timeout", 0, "download timeout (0 for none)")
	cmd.Flags().Int("retries", 0, "extra download attempts on transient failures")
	cmd.Flags().Int("page-size", 0, "download in pages of this many records (0 for a single request)")
	cmd.Flags().Bool("progress", false, "show download progress on stderr")
	cmd.Flags().String("csv", export.DefaultFlatFile, "normalized flat file path")
	cmd.Flags().String("xlsx", export.DefaultWorkbook, "workbook path")
	cmd.Flags().String("sqlite", "", "also write the tables to this SQLite database")
	cmd.Flags().String("chart", "", "also render accidents per commune to this image")
	cmd.Flags().String("report", "", "also write a YAML run report to this path")
	cmd.Flags().Bool("sheets", false, "also publish the tables to Google Sheets")
}

// bindRunFlags binds the invoked command's run flags so that only flags set on
// the command line override the config file and environment.
func bindRunFlags(cmd *cobra.Command, _ []string) error {
	for flag, key := range runFlagKeys {
		if err := viper.BindPFlag(key, cmd.Flags().Lookup(flag)); err != nil {
			return fmt.Errorf("failed to bind --%s: %w", flag, err)
		}
	}
	return nil
}

func runPipeline(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(nil)
	if err != nil {
		return common.NewUserError("invalid configuration", err)
	}

	logger := slog.Default()

	client, err := datos.NewClient(cfg.Datos(), logger)
	if err != nil {
		return common.NewUserError("invalid source configuration", err)
	}

	p := pipeline.New(client, pipeline.Config{
		SourceURL:    cfg.Source.URL,
		CSVPath:      cfg.Output.CSV,
		WorkbookPath: cfg.Output.XLSX,
		ChartPath:    cfg.Output.Chart,
		ReportPath:   cfg.Output.Report,
	}, logger)

	if cfg.Output.SQLite != "" {
		store, storeErr := storage.NewSQLiteStorage(cfg.Output.SQLite)
		if storeErr != nil {
			return fmt.Errorf("failed to open database: %w", storeErr)
		}
		defer func() { _ = store.Close() }()
		p.WithStore(store)
	}

	if cfg.Output.Sheets {
		sheetsConfig, sheetsErr := config.LoadSheetsConfig(nil)
		if sheetsErr != nil {
			return common.NewUserError("Google Sheets is not configured", sheetsErr)
		}
		writer, sheetsErr := sheets.NewWriter(cmd.Context(), *sheetsConfig, logger)
		if sheetsErr != nil {
			return fmt.Errorf("failed to create sheets writer: %w", sheetsErr)
		}
		p.WithPublisher(writer)
	}

	handler := cli.NewInterruptHandler(cmd.ErrOrStderr())
	ctx := handler.HandleInterrupts(cmd.Context(), []string{
		cfg.Output.CSV, cfg.Output.XLSX, cfg.Output.SQLite, cfg.Output.Chart, cfg.Output.Report,
	})

	summary, err := p.Run(ctx)
	if err != nil {
		return explainRunError(err)
	}

	fmt.Fprintln(cmd.OutOrStdout(), cli.RenderSummary(summary))
	return nil
}

// explainRunError attaches a user-facing message to the failures a user can act on.
func explainRunError(err error) error {
	var recordErr *common.RecordError
	switch {
	case errors.As(err, &recordErr):
		return common.NewUserError(fmt.Sprintf("record %s has an unexpected %s value", recordErr.RecordID, recordErr.Field), err)
	case errors.Is(err, common.ErrSourceUnavailable):
		return common.NewUserError("could not download the dataset; check --source-url or retry later", err)
	case errors.Is(err, common.ErrMalformedPayload):
		return common.NewUserError("the source did not return a JSON array of records", err)
	case errors.Is(err, common.ErrEmptyDataset):
		return common.NewUserError("the source returned no records", err)
	case errors.Is(err, common.ErrDuplicateEntry):
		return common.NewUserError("the database already holds accidents; choose a new --sqlite path", err)
	default:
		return err
	}
}
