package google

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"bizledger/internal/log"
	"bizledger/internal/sheets"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

// Grid size for newly created tabs. Sheets grows the grid on append.
const (
	defaultRows = 1000
	defaultCols = 10
)

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	logger        *log.Logger

	mu       sync.Mutex
	sheetIDs map[string]int64 // tab title -> sheetId, needed for row deletion
}

// Ensure interface conformance
var (
	_ sheets.TableStore    = (*Client)(nil)
	_ sheets.TableReplacer = (*Client)(nil)
)

// Options configures a Client. Exactly one credential source is needed.
type Options struct {
	SpreadsheetID      string
	ServiceAccountJSON string
	ServiceAccountFile string
	// Logger defaults to the process logger.
	Logger *log.Logger
}

func New(ctx context.Context, opts Options) (*Client, error) {
	if opts.SpreadsheetID == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}
	logger := sheetsLogger(opts.Logger)
	creds, err := loadCredentials(ctx, logger, opts)
	if err != nil {
		return nil, err
	}
	svc, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(creds),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	logger.InfoContext(ctx, "Google Sheets service created", "spreadsheet_id", opts.SpreadsheetID)
	return NewWithService(svc, opts.SpreadsheetID, logger), nil
}

// NewWithService wraps an existing service, e.g. one pointed at a test endpoint.
// A nil logger falls back to the process logger.
func NewWithService(svc *gsheet.Service, spreadsheetID string, logger *log.Logger) *Client {
	return &Client{svc: svc, spreadsheetID: spreadsheetID, logger: sheetsLogger(logger), sheetIDs: map[string]int64{}}
}

func sheetsLogger(l *log.Logger) *log.Logger {
	if l == nil {
		return log.Default(log.ComponentSheets)
	}
	return l.WithComponent(log.ComponentSheets)
}

func loadCredentials(ctx context.Context, logger *log.Logger, opts Options) ([]byte, error) {
	file := opts.ServiceAccountFile
	if opts.ServiceAccountJSON == "" && file == "" {
		file = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}
	switch {
	case opts.ServiceAccountJSON != "":
		logger.InfoContext(ctx, "Using inline service account credentials")
		return []byte(opts.ServiceAccountJSON), nil
	case file != "":
		logger.InfoContext(ctx, "Reading service account credentials", log.FieldPath, file)
		b, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		return b, nil
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}
}

func (c *Client) ready() error {
	if c.svc == nil {
		return errors.New("sheets service not initialized")
	}
	return nil
}

// ReadAll returns the tab's values exactly as the API reports them: trailing
// empty cells are trimmed by Sheets, so rows come back ragged.
func (c *Client) ReadAll(ctx context.Context, table string) ([][]string, error) {
	if err := c.ready(); err != nil {
		return nil, err
	}
	rng := quoteSheet(table)
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", rng, err)
	}
	out := make([][]string, len(resp.Values))
	for i, row := range resp.Values {
		out[i] = toStrings(row)
	}
	return out, nil
}

func (c *Client) AppendRow(ctx context.Context, table string, row []string) error {
	if err := c.ready(); err != nil {
		return err
	}
	rng := quoteSheet(table) + "!A1"
	vr := &gsheet.ValueRange{Values: [][]any{toCells(row)}}
	_, err := c.svc.Spreadsheets.Values.Append(c.spreadsheetID, rng, vr).
		ValueInputOption("RAW").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("append to %s: %w", table, err)
	}
	return nil
}

func (c *Client) UpdateCell(ctx context.Context, table string, row, col int, value string) error {
	return c.UpdateRange(ctx, table, row, col, []string{value})
}

func (c *Client) UpdateRange(ctx context.Context, table string, row, fromCol int, values []string) error {
	if err := c.ready(); err != nil {
		return err
	}
	if row < 1 {
		return fmt.Errorf("update %s row %d: %w", table, row, sheets.ErrRowOutOfRange)
	}
	if fromCol < 1 || len(values) == 0 {
		return fmt.Errorf("update %s col %d: %w", table, fromCol, sheets.ErrColumnOutOfRange)
	}
	rng := a1Range(table, row, fromCol, fromCol+len(values)-1)
	vr := &gsheet.ValueRange{Values: [][]any{toCells(values)}}
	_, err := c.svc.Spreadsheets.Values.Update(c.spreadsheetID, rng, vr).
		ValueInputOption("RAW").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("update %s: %w", rng, err)
	}
	return nil
}

func (c *Client) DeleteRow(ctx context.Context, table string, row int) error {
	if err := c.ready(); err != nil {
		return err
	}
	if row < 1 {
		return fmt.Errorf("delete %s row %d: %w", table, row, sheets.ErrRowOutOfRange)
	}
	sheetID, err := c.sheetID(ctx, table)
	if err != nil {
		return err
	}
	req := &gsheet.BatchUpdateSpreadsheetRequest{Requests: []*gsheet.Request{{
		DeleteDimension: &gsheet.DeleteDimensionRequest{
			Range: &gsheet.DimensionRange{
				SheetId:         sheetID,
				Dimension:       "ROWS",
				StartIndex:      int64(row - 1),
				EndIndex:        int64(row),
				ForceSendFields: []string{"SheetId", "StartIndex"},
			},
		},
	}}}
	if _, err := c.svc.Spreadsheets.BatchUpdate(c.spreadsheetID, req).Context(ctx).Do(); err != nil {
		return fmt.Errorf("delete %s row %d: %w", table, row, err)
	}
	return nil
}

// EnsureTable adds the tab and writes its header when the tab is missing.
func (c *Client) EnsureTable(ctx context.Context, table string, header []string) (bool, error) {
	if err := c.ready(); err != nil {
		return false, err
	}
	if _, err := c.sheetID(ctx, table); err == nil {
		return false, nil
	} else if !errors.Is(err, sheets.ErrNoSuchTable) {
		return false, err
	}

	req := &gsheet.BatchUpdateSpreadsheetRequest{Requests: []*gsheet.Request{{
		AddSheet: &gsheet.AddSheetRequest{Properties: &gsheet.SheetProperties{
			Title: table,
			GridProperties: &gsheet.GridProperties{
				RowCount:    defaultRows,
				ColumnCount: int64(max(defaultCols, len(header))),
			},
		}},
	}}}
	resp, err := c.svc.Spreadsheets.BatchUpdate(c.spreadsheetID, req).Context(ctx).Do()
	if err != nil {
		return false, fmt.Errorf("add sheet %s: %w", table, err)
	}
	if len(resp.Replies) > 0 && resp.Replies[0].AddSheet != nil && resp.Replies[0].AddSheet.Properties != nil {
		c.mu.Lock()
		c.sheetIDs[table] = resp.Replies[0].AddSheet.Properties.SheetId
		c.mu.Unlock()
	}
	if err := c.UpdateRange(ctx, table, 1, 1, header); err != nil {
		return true, fmt.Errorf("write header for %s: %w", table, err)
	}
	c.logger.InfoContext(ctx, "Created sheet", log.FieldTable, table, "columns", len(header))
	return true, nil
}

// ReplaceTable clears the tab and writes rows from A1.
func (c *Client) ReplaceTable(ctx context.Context, table string, rows [][]string) error {
	if err := c.ready(); err != nil {
		return err
	}
	rng := quoteSheet(table)
	if _, err := c.svc.Spreadsheets.Values.Clear(c.spreadsheetID, rng, &gsheet.ClearValuesRequest{}).Context(ctx).Do(); err != nil {
		return fmt.Errorf("clear %s: %w", rng, err)
	}
	if len(rows) == 0 {
		return nil
	}
	values := make([][]any, len(rows))
	for i, r := range rows {
		values[i] = toCells(r)
	}
	_, err := c.svc.Spreadsheets.Values.Update(c.spreadsheetID, rng+"!A1", &gsheet.ValueRange{Values: values}).
		ValueInputOption("RAW").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("write %s: %w", rng, err)
	}
	return nil
}

func (c *Client) sheetID(ctx context.Context, table string) (int64, error) {
	c.mu.Lock()
	id, ok := c.sheetIDs[table]
	c.mu.Unlock()
	if ok {
		return id, nil
	}

	ss, err := c.svc.Spreadsheets.Get(c.spreadsheetID).Fields("sheets.properties").Context(ctx).Do()
	if err != nil {
		return 0, fmt.Errorf("get spreadsheet %s: %w", c.spreadsheetID, err)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, sh := range ss.Sheets {
		if sh.Properties == nil {
			continue
		}
		c.sheetIDs[sh.Properties.Title] = sh.Properties.SheetId
	}
	if id, ok := c.sheetIDs[table]; ok {
		return id, nil
	}
	return 0, fmt.Errorf("sheet %s: %w", table, sheets.ErrNoSuchTable)
}
