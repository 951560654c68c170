// Package sheets reads the course catalog from and appends leads to a Google spreadsheet.
package sheets

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"regexp"
	"strings"
	"sync"
	"time"

	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	gsheets "google.golang.org/api/sheets/v4"

	"github.com/Proton-105/course-intake-bot/internal/catalog"
	apperrors "github.com/Proton-105/course-intake-bot/internal/errors"
	"github.com/Proton-105/course-intake-bot/internal/lead"
)

const apiName = "google_sheets"

var spreadsheetURLPattern = regexp.MustCompile(`/spreadsheets/d/([a-zA-Z0-9_-]+)`)

// Config locates the spreadsheet and its worksheets.
type Config struct {
	CredentialsFile string
	// URL is a spreadsheet link or a bare spreadsheet id.
	URL string
	// Titles win over indexes when set.
	CatalogSheet      string
	CatalogSheetIndex int
	LeadsSheet        string
	LeadsSheetIndex   int
	Timeout           time.Duration
	Columns           catalog.Columns
}

// Client is a catalog.Source and a lead.Sink backed by one spreadsheet.
type Client struct {
	svc           *gsheets.Service
	spreadsheetID string
	cfg           Config
	log           *slog.Logger

	mu     sync.Mutex
	titles []string
}

var (
	_ catalog.Source = (*Client)(nil)
	_ lead.Sink      = (*Client)(nil)
)

// SpreadsheetID extracts the id from a spreadsheet URL or returns a bare id unchanged.
func SpreadsheetID(urlOrID string) (string, error) {
	value := strings.TrimSpace(urlOrID)
	if value == "" {
		return "", errors.New("spreadsheet url is empty")
	}

	if match := spreadsheetURLPattern.FindStringSubmatch(value); match != nil {
		return match[1], nil
	}

	if strings.ContainsAny(value, "/?#") {
		return "", fmt.Errorf("cannot find spreadsheet id in %q", value)
	}

	return value, nil
}

// New creates a Client. Without extra options the service account credentials file is used.
func New(ctx context.Context, cfg Config, log *slog.Logger, opts ...option.ClientOption) (*Client, error) {
	if log == nil {
		log = slog.Default()
	}

	id, err := SpreadsheetID(cfg.URL)
	if err != nil {
		return nil, err
	}

	if cfg.Columns == (catalog.Columns{}) {
		cfg.Columns = catalog.DefaultColumns()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}

	if len(opts) == 0 {
		opts = []option.ClientOption{
			option.WithCredentialsFile(cfg.CredentialsFile),
			option.WithScopes(gsheets.SpreadsheetsScope),
		}
	}

	svc, err := gsheets.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}

	return &Client{
		svc:           svc,
		spreadsheetID: id,
		cfg:           cfg,
		log:           log.With(slog.String("spreadsheet_id", id)),
	}, nil
}

// Name implements lead.Sink.
func (c *Client) Name() string {
	return "sheets"
}

// Rows reads the catalog worksheet as header-addressed records.
func (c *Client) Rows(ctx context.Context) ([]catalog.Row, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	title, err := c.sheetTitle(ctx, c.cfg.CatalogSheet, c.cfg.CatalogSheetIndex)
	if err != nil {
		return nil, err
	}

	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, quoteTitle(title)).
		MajorDimension("ROWS").
		Context(ctx).
		Do()
	if err != nil {
		return nil, wrapAPIError(err)
	}

	table := make([][]string, len(resp.Values))
	for i, record := range resp.Values {
		table[i] = make([]string, len(record))
		for j, value := range record {
			table[i][j] = fmt.Sprint(value)
		}
	}

	rows, err := catalog.RowsFromTable(table, c.cfg.Columns)
	if err != nil {
		return nil, err
	}

	c.log.InfoContext(ctx, "catalog worksheet read", slog.String("sheet", title), slog.Int("rows", len(rows)))
	return rows, nil
}

// Append adds l as a new row of the leads worksheet.
func (c *Client) Append(ctx context.Context, l lead.Lead) error {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	title, err := c.sheetTitle(ctx, c.cfg.LeadsSheet, c.cfg.LeadsSheetIndex)
	if err != nil {
		return err
	}

	values := &gsheets.ValueRange{
		Values: [][]interface{}{{l.FIO, l.Phone, l.Direction}},
	}

	_, err = c.svc.Spreadsheets.Values.Append(c.spreadsheetID, quoteTitle(title), values).
		ValueInputOption("RAW").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
	if err != nil {
		return wrapAPIError(err)
	}

	return nil
}

// HealthCheck verifies that the spreadsheet is reachable with the configured credentials.
func (c *Client) HealthCheck(ctx context.Context) error {
	_, err := c.svc.Spreadsheets.Get(c.spreadsheetID).Fields("spreadsheetId").Context(ctx).Do()
	if err != nil {
		return wrapAPIError(err)
	}
	return nil
}

func (c *Client) sheetTitle(ctx context.Context, title string, index int) (string, error) {
	if title != "" {
		return title, nil
	}

	titles, err := c.sheetTitles(ctx)
	if err != nil {
		return "", err
	}

	if index < 0 || index >= len(titles) {
		appErr := apperrors.NewExternalAPIError(apiName, fmt.Errorf("worksheet index %d out of range, spreadsheet has %d", index, len(titles)))
		appErr.Retryable = false
		return "", appErr
	}

	return titles[index], nil
}

func (c *Client) sheetTitles(ctx context.Context) ([]string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.titles != nil {
		return c.titles, nil
	}

	resp, err := c.svc.Spreadsheets.Get(c.spreadsheetID).Fields("sheets.properties").Context(ctx).Do()
	if err != nil {
		return nil, wrapAPIError(err)
	}

	titles := make([]string, 0, len(resp.Sheets))
	for _, sheet := range resp.Sheets {
		if sheet.Properties == nil {
			continue
		}
		titles = append(titles, sheet.Properties.Title)
	}

	c.titles = titles
	return titles, nil
}

func quoteTitle(title string) string {
	return "'" + strings.ReplaceAll(title, "'", "''") + "'"
}

// wrapAPIError marks throttling and server errors as retryable.
func wrapAPIError(err error) error {
	appErr := apperrors.NewExternalAPIError(apiName, err)

	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		appErr.Retryable = apiErr.Code == http.StatusTooManyRequests || apiErr.Code >= http.StatusInternalServerError
	}

	return appErr
}
