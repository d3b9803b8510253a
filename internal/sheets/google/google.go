package google

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"bilancio/internal/core"
	applog "bilancio/internal/log"
	ports "bilancio/internal/sheets"
)

// Options names the spreadsheet and the base titles of the per-year tabs.
type Options struct {
	SpreadsheetID string
	// Base names without year, e.g. "Budget"; the year is prefixed.
	BudgetSheet  string
	ActualsSheet string
	Logger       *applog.Logger
}

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	budgetBase    string
	actualsBase   string
	logger        *applog.Logger

	// titles seen in the spreadsheet, so each tab is created at most once
	mu    sync.Mutex
	known map[string]bool
	// one writer at a time: row numbers are read then written
	writeMu sync.Mutex
}

// Ensure interface conformance
var _ ports.RowWriter = (*Client)(nil)

// New creates a Sheets client authenticated with a service account.
// Credentials come from GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE
// or GOOGLE_APPLICATION_CREDENTIALS.
func New(ctx context.Context, opts Options) (*Client, error) {
	svc, err := newSheetsService(ctx, opts.Logger)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}
	return NewWithService(svc, opts)
}

// NewWithService wraps an existing service, e.g. one pointed at a test server.
func NewWithService(svc *gsheet.Service, opts Options) (*Client, error) {
	if strings.TrimSpace(opts.SpreadsheetID) == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}
	if strings.TrimSpace(opts.BudgetSheet) == "" {
		opts.BudgetSheet = "Budget"
	}
	if strings.TrimSpace(opts.ActualsSheet) == "" {
		opts.ActualsSheet = "Actuals"
	}
	if opts.Logger == nil {
		opts.Logger = applog.Discard()
	}
	return &Client{
		svc:           svc,
		spreadsheetID: strings.TrimSpace(opts.SpreadsheetID),
		budgetBase:    opts.BudgetSheet,
		actualsBase:   opts.ActualsSheet,
		logger:        opts.Logger.WithComponent(applog.ComponentSheets),
		known:         map[string]bool{},
	}, nil
}

// newSheetsService initializes a Sheets Service using Service Account credentials.
func newSheetsService(ctx context.Context, logger *applog.Logger) (*gsheet.Service, error) {
	if logger == nil {
		logger = applog.Discard()
	}
	serviceAccountJSON := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON"))
	serviceAccountFile := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_FILE"))

	// Also check the standard Google Cloud environment variable
	if serviceAccountJSON == "" && serviceAccountFile == "" {
		serviceAccountFile = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	var credentialsJSON []byte
	var err error

	switch {
	case serviceAccountJSON != "":
		logger.InfoContext(ctx, "Using inline JSON credentials")
		credentialsJSON = []byte(serviceAccountJSON)
	case serviceAccountFile != "":
		logger.InfoContext(ctx, "Reading credentials from file", "path", serviceAccountFile)
		credentialsJSON, err = os.ReadFile(serviceAccountFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}

	service, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return service, nil
}

// SheetTitle returns the tab mirroring kind for year, e.g. "2024 Budget".
func (c *Client) SheetTitle(year int, kind core.ValueKind) string {
	if kind == core.Actual {
		return yearPrefixedName(c.actualsBase, year)
	}
	return yearPrefixedName(c.budgetBase, year)
}

// UpsertRows overwrites the rows of the given components in the year's tab,
// appending components that are not there yet. The tab and its header are
// created on first use.
func (c *Client) UpsertRows(ctx context.Context, year int, kind core.ValueKind, rows []ports.ComponentRow) error {
	if c.svc == nil {
		return errors.New("sheets service not initialized")
	}
	if err := kind.Validate(); err != nil {
		return err
	}
	if len(rows) == 0 {
		return nil
	}
	title := c.SheetTitle(year, kind)

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if err := c.ensureSheet(ctx, title); err != nil {
		return err
	}

	rng := a1Range(title, "A:A")
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("read %s: %w", rng, err)
	}

	writes := planRowWrites(resp.Values, rows)
	data := make([]*gsheet.ValueRange, 0, len(writes))
	for _, w := range writes {
		data = append(data, &gsheet.ValueRange{
			Range:  rowRange(title, w.number),
			Values: [][]any{w.cells},
		})
	}
	req := &gsheet.BatchUpdateValuesRequest{ValueInputOption: "RAW", Data: data}
	if _, err := c.svc.Spreadsheets.Values.BatchUpdate(c.spreadsheetID, req).Context(ctx).Do(); err != nil {
		return fmt.Errorf("update rows in sheet %s: %w", title, err)
	}

	c.logger.DebugContext(ctx, "Mirrored component rows",
		"sheet", title,
		"rows", len(rows),
		applog.FieldYear, year,
		applog.FieldKind, string(kind))
	return nil
}

// ensureSheet adds a tab named title unless the spreadsheet already has it.
func (c *Client) ensureSheet(ctx context.Context, title string) error {
	c.mu.Lock()
	ok := c.known[title]
	c.mu.Unlock()
	if ok {
		return nil
	}

	ss, err := c.svc.Spreadsheets.Get(c.spreadsheetID).Fields("sheets.properties.title").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("read spreadsheet %s: %w", c.spreadsheetID, err)
	}
	found := false
	c.mu.Lock()
	for _, sh := range ss.Sheets {
		if sh.Properties == nil {
			continue
		}
		c.known[sh.Properties.Title] = true
		if sh.Properties.Title == title {
			found = true
		}
	}
	c.mu.Unlock()
	if found {
		return nil
	}

	req := &gsheet.BatchUpdateSpreadsheetRequest{
		Requests: []*gsheet.Request{{
			AddSheet: &gsheet.AddSheetRequest{Properties: &gsheet.SheetProperties{Title: title}},
		}},
	}
	if _, err := c.svc.Spreadsheets.BatchUpdate(c.spreadsheetID, req).Context(ctx).Do(); err != nil {
		return fmt.Errorf("add sheet %s: %w", title, err)
	}
	c.logger.InfoContext(ctx, "Created sheet", "sheet", title)

	c.mu.Lock()
	c.known[title] = true
	c.mu.Unlock()
	return nil
}

func toStrings(in []any) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = strings.TrimSpace(fmt.Sprint(v))
	}
	return out
}

// yearPrefixedName returns "<year> <base>" unless base already starts with a 4-digit year.
func yearPrefixedName(base string, year int) string {
	base = strings.TrimSpace(base)
	if base == "" {
		return base
	}
	if len(base) >= 5 {
		if y, err := strconv.Atoi(base[0:4]); err == nil && base[4] == ' ' && y > 1900 && y < 3000 {
			return base
		}
	}
	return fmt.Sprintf("%d %s", year, base)
}
