package sheets

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"github.com/Veraticus/accidentes/internal/common"
	"github.com/Veraticus/accidentes/internal/model"
	"github.com/Veraticus/accidentes/internal/service"
)

// Writer implements service.TablePublisher for Google Sheets, one tab per table.
type Writer struct {
	service *sheets.Service
	logger  *slog.Logger
	config  Config
}

// NewWriter creates a new Google Sheets publisher.
func NewWriter(ctx context.Context, config Config, logger *slog.Logger) (*Writer, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	srv, err := createSheetsService(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheets service: %w", err)
	}

	return NewWriterWithService(config, srv, logger), nil
}

// NewWriterWithService creates a publisher around an existing Sheets service.
func NewWriterWithService(config Config, srv *sheets.Service, logger *slog.Logger) *Writer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Writer{
		config:  config,
		service: srv,
		logger:  logger,
	}
}

// Publish replaces the contents of one tab per table.
func (w *Writer) Publish(ctx context.Context, tables []model.Table) error {
	names := make([]string, len(tables))
	for i, t := range tables {
		names[i] = t.Name
	}

	w.logger.Info("publishing tables to google sheets", "tables", len(tables))

	retryOpts := service.RetryOptions{
		MaxAttempts:  w.config.RetryAttempts,
		InitialDelay: w.config.RetryDelay,
		MaxDelay:     30 * time.Second,
		Multiplier:   2.0,
	}

	var spreadsheet *sheets.Spreadsheet
	err := common.WithRetry(ctx, func() error {
		var getErr error
		spreadsheet, getErr = w.getOrCreateSpreadsheet(ctx, names)
		return getErr
	}, retryOpts)
	if err != nil {
		return fmt.Errorf("failed to get spreadsheet: %w", err)
	}
	spreadsheetID := spreadsheet.SpreadsheetId

	if clearErr := w.clearTabs(ctx, spreadsheetID, names); clearErr != nil {
		return fmt.Errorf("failed to clear tabs: %w", clearErr)
	}

	for _, table := range tables {
		values := tableValues(table)
		err = common.WithRetry(ctx, func() error {
			return w.writeData(ctx, spreadsheetID, table.Name, values)
		}, retryOpts)
		if err != nil {
			return fmt.Errorf("failed to write %s: %w", table.Name, err)
		}
	}

	if w.config.EnableFormatting {
		err = common.WithRetry(ctx, func() error {
			return w.applyFormatting(ctx, spreadsheetID, sheetIDs(spreadsheet, names))
		}, retryOpts)
		if err != nil {
			// Formatting is cosmetic; the data is already written.
			w.logger.Warn("failed to apply formatting", "error", err)
		}
	}

	w.logger.Info("published tables",
		"spreadsheet_id", spreadsheetID,
		"url", spreadsheet.SpreadsheetUrl)

	return nil
}

// createSheetsService creates a Google Sheets API service.
func createSheetsService(ctx context.Context, config Config) (*sheets.Service, error) {
	var tokenSource oauth2.TokenSource

	if config.ServiceAccountPath != "" {
		jsonKey, err := os.ReadFile(config.ServiceAccountPath)
		if err != nil {
			return nil, fmt.Errorf("unable to read service account key file: %w", err)
		}

		jwtConfig, err := google.JWTConfigFromJSON(jsonKey, sheets.SpreadsheetsScope)
		if err != nil {
			return nil, fmt.Errorf("unable to parse service account key: %w", err)
		}

		tokenSource = jwtConfig.TokenSource(ctx)
	} else {
		client := &oauth2.Config{
			ClientID:     config.ClientID,
			ClientSecret: config.ClientSecret,
			Endpoint:     google.Endpoint,
			Scopes:       []string{sheets.SpreadsheetsScope},
		}

		token := &oauth2.Token{
			RefreshToken: config.RefreshToken,
			TokenType:    "Bearer",
		}

		tokenSource = client.TokenSource(ctx, token)
	}

	httpClient := oauth2.NewClient(ctx, tokenSource)
	srv, err := sheets.NewService(ctx, option.WithHTTPClient(httpClient))
	if err != nil {
		return nil, fmt.Errorf("unable to create sheets service: %w", err)
	}

	return srv, nil
}

// getOrCreateSpreadsheet returns the configured spreadsheet with every tab present,
// creating the spreadsheet when no id is configured.
func (w *Writer) getOrCreateSpreadsheet(ctx context.Context, tabs []string) (*sheets.Spreadsheet, error) {
	if w.config.SpreadsheetID == "" {
		spreadsheet := &sheets.Spreadsheet{
			Properties: &sheets.SpreadsheetProperties{
				Title:    w.config.SpreadsheetName,
				TimeZone: w.config.TimeZone,
			},
		}
		for _, tab := range tabs {
			spreadsheet.Sheets = append(spreadsheet.Sheets, &sheets.Sheet{
				Properties: &sheets.SheetProperties{Title: tab},
			})
		}

		created, err := w.service.Spreadsheets.Create(spreadsheet).Context(ctx).Do()
		if err != nil {
			return nil, fmt.Errorf("unable to create spreadsheet: %w", err)
		}

		w.logger.Info("created new spreadsheet",
			"id", created.SpreadsheetId,
			"url", created.SpreadsheetUrl)

		// Pin the id so a retried publish reuses this spreadsheet.
		w.config.SpreadsheetID = created.SpreadsheetId
		return created, nil
	}

	existing, err := w.service.Spreadsheets.Get(w.config.SpreadsheetID).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("unable to access spreadsheet %s: %w", w.config.SpreadsheetID, err)
	}

	missing := missingTabs(existing, tabs)
	if len(missing) == 0 {
		return existing, nil
	}

	requests := make([]*sheets.Request, 0, len(missing))
	for _, tab := range missing {
		requests = append(requests, &sheets.Request{
			AddSheet: &sheets.AddSheetRequest{
				Properties: &sheets.SheetProperties{Title: tab},
			},
		})
	}

	_, err = w.service.Spreadsheets.BatchUpdate(w.config.SpreadsheetID, &sheets.BatchUpdateSpreadsheetRequest{
		Requests:                     requests,
		IncludeSpreadsheetInResponse: true,
	}).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("unable to add tabs %v: %w", missing, err)
	}

	w.logger.Debug("added missing tabs", "tabs", missing)

	return w.service.Spreadsheets.Get(w.config.SpreadsheetID).Context(ctx).Do()
}

// clearTabs clears all data from the given tabs.
func (w *Writer) clearTabs(ctx context.Context, spreadsheetID string, tabs []string) error {
	ranges := make([]string, len(tabs))
	for i, tab := range tabs {
		ranges[i] = quoteTab(tab)
	}
	_, err := w.service.Spreadsheets.Values.BatchClear(spreadsheetID, &sheets.BatchClearValuesRequest{
		Ranges: ranges,
	}).Context(ctx).Do()
	return err
}

// writeData writes the values of one tab in batches to stay under API limits.
func (w *Writer) writeData(ctx context.Context, spreadsheetID, tab string, values [][]any) error {
	for i := 0; i < len(values); i += w.config.BatchSize {
		end := min(i+w.config.BatchSize, len(values))
		batch := values[i:end]

		valueRange := &sheets.ValueRange{
			Range:  fmt.Sprintf("%s!A%d", quoteTab(tab), i+1),
			Values: batch,
		}

		_, err := w.service.Spreadsheets.Values.Update(spreadsheetID, valueRange.Range, valueRange).
			ValueInputOption("USER_ENTERED").
			Context(ctx).
			Do()
		if err != nil {
			return fmt.Errorf("failed to write batch starting at row %d: %w", i+1, err)
		}

		w.logger.Debug("wrote batch", "tab", tab, "start_row", i+1, "rows", len(batch))
	}

	return nil
}

// applyFormatting bolds and freezes the header row of every tab.
func (w *Writer) applyFormatting(ctx context.Context, spreadsheetID string, ids []int64) error {
	requests := make([]*sheets.Request, 0, 2*len(ids))
	for _, id := range ids {
		requests = append(requests,
			&sheets.Request{
				RepeatCell: &sheets.RepeatCellRequest{
					Range: &sheets.GridRange{
						SheetId:       id,
						StartRowIndex: 0,
						EndRowIndex:   1,
					},
					Cell: &sheets.CellData{
						UserEnteredFormat: &sheets.CellFormat{
							TextFormat: &sheets.TextFormat{Bold: true},
						},
					},
					Fields: "userEnteredFormat.textFormat",
				},
			},
			&sheets.Request{
				UpdateSheetProperties: &sheets.UpdateSheetPropertiesRequest{
					Properties: &sheets.SheetProperties{
						SheetId: id,
						GridProperties: &sheets.GridProperties{
							FrozenRowCount: 1,
						},
					},
					Fields: "gridProperties.frozenRowCount",
				},
			},
		)
	}
	if len(requests) == 0 {
		return nil
	}

	_, err := w.service.Spreadsheets.BatchUpdate(spreadsheetID, &sheets.BatchUpdateSpreadsheetRequest{
		Requests: requests,
	}).Context(ctx).Do()
	return err
}

// tableValues renders a table as header plus rows of sheet cell values.
func tableValues(table model.Table) [][]any {
	values := make([][]any, 0, len(table.Rows)+1)

	header := make([]any, len(table.Header))
	for i, h := range table.Header {
		header[i] = h
	}
	values = append(values, header)

	for _, row := range table.Rows {
		cells := make([]any, len(row))
		for i, v := range row {
			if _, ok := v.(time.Time); ok {
				cells[i] = model.FormatCell(v)
				continue
			}
			cells[i] = v
		}
		values = append(values, cells)
	}
	return values
}

func missingTabs(s *sheets.Spreadsheet, tabs []string) []string {
	present := make(map[string]bool, len(s.Sheets))
	for _, sh := range s.Sheets {
		if sh.Properties != nil {
			present[sh.Properties.Title] = true
		}
	}

	var missing []string
	for _, tab := range tabs {
		if !present[tab] {
			missing = append(missing, tab)
		}
	}
	return missing
}

func sheetIDs(s *sheets.Spreadsheet, tabs []string) []int64 {
	byTitle := make(map[string]int64, len(s.Sheets))
	for _, sh := range s.Sheets {
		if sh.Properties != nil {
			byTitle[sh.Properties.Title] = sh.Properties.SheetId
		}
	}

	ids := make([]int64, 0, len(tabs))
	for _, tab := range tabs {
		if id, ok := byTitle[tab]; ok {
			ids = append(ids, id)
		}
	}
	return ids
}

func quoteTab(tab string) string {
	return "'" + tab + "'"
}
