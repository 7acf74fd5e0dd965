// Package google exports month overviews to a Google Sheets
// spreadsheet, one sheet per year with one row per month.
package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"monbudget/internal/core"
	ports "monbudget/internal/sheets"
)

// overviewColumns is the header row written once per year sheet. Each
// month occupies the row at month index + 2 (row 1 is the header,
// January is row 2).
var overviewColumns = []any{
	"Month", "Initial", "Remaining", "Incomes", "Expenses", "Transactions", "Savings",
}

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	// Base name without year, e.g. "Overview"; sheets are named "<year> <base>".
	sheetBase string
}

var (
	_ ports.OverviewWriter = (*Client)(nil)
	_ ports.OverviewReader = (*Client)(nil)
)

// Options configures the Sheets client. Exactly one of CredentialsJSON
// or CredentialsFile must be set.
type Options struct {
	SpreadsheetID   string
	SheetBase       string
	CredentialsJSON string
	CredentialsFile string
}

func NewClient(ctx context.Context, opts Options) (*Client, error) {
	if strings.TrimSpace(opts.SpreadsheetID) == "" {
		return nil, errors.New("missing spreadsheet ID")
	}
	base := strings.TrimSpace(opts.SheetBase)
	if base == "" {
		base = "Overview"
	}

	svc, err := newSheetsService(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}

	return &Client{
		svc:           svc,
		spreadsheetID: opts.SpreadsheetID,
		sheetBase:     base,
	}, nil
}

func newSheetsService(ctx context.Context, opts Options) (*gsheet.Service, error) {
	var credentialsJSON []byte
	var err error

	switch {
	case strings.TrimSpace(opts.CredentialsJSON) != "":
		credentialsJSON = []byte(opts.CredentialsJSON)
	case strings.TrimSpace(opts.CredentialsFile) != "":
		credentialsJSON, err = os.ReadFile(opts.CredentialsFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
	default:
		return nil, errors.New("missing service account credentials")
	}

	return gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope))
}

// WriteMonthOverview upserts the row for the overview's month in the
// year sheet, writing the header first when the sheet is still empty.
func (c *Client) WriteMonthOverview(ctx context.Context, ov core.MonthOverview) error {
	if c.svc == nil {
		return errors.New("sheets service not initialized")
	}
	sheetName := c.yearSheetName(ov.Key.Year)

	headerRange := fmt.Sprintf("%s!A1:G1", sheetName)
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, headerRange).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("read %s: %w", headerRange, err)
	}
	if len(resp.Values) == 0 {
		vr := &gsheet.ValueRange{Values: [][]any{overviewColumns}}
		_, err = c.svc.Spreadsheets.Values.Update(c.spreadsheetID, headerRange, vr).
			ValueInputOption("USER_ENTERED").Context(ctx).Do()
		if err != nil {
			return fmt.Errorf("write header in %s: %w", sheetName, err)
		}
	}

	row := rowForMonth(ov.Key.Month)
	dataRange := fmt.Sprintf("%s!A%d:G%d", sheetName, row, row)
	vr := &gsheet.ValueRange{Values: [][]any{{
		monthLabel(ov.Key.Month),
		centsToEuros(ov.InitialBalance),
		centsToEuros(ov.RemainingBalance),
		centsToEuros(ov.TotalIncomes),
		centsToEuros(ov.TotalExpenses),
		centsToEuros(ov.TotalTransactions),
		centsToEuros(ov.MonthlySavings),
	}}}
	_, err = c.svc.Spreadsheets.Values.Update(c.spreadsheetID, dataRange, vr).
		ValueInputOption("USER_ENTERED").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("write %s: %w", dataRange, err)
	}

	slog.DebugContext(ctx, "Exported month overview",
		"sheet", sheetName,
		"month", ov.Key.String(),
		"remaining_cents", ov.RemainingBalance.Cents)
	return nil
}

// ReadMonthOverview reads back the row for the given month.
func (c *Client) ReadMonthOverview(ctx context.Context, key core.MonthKey) (core.MonthOverview, error) {
	if c.svc == nil {
		return core.MonthOverview{}, errors.New("sheets service not initialized")
	}
	sheetName := c.yearSheetName(key.Year)
	row := rowForMonth(key.Month)
	rng := fmt.Sprintf("%s!A%d:G%d", sheetName, row, row)
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return core.MonthOverview{}, fmt.Errorf("read %s: %w", rng, err)
	}
	if len(resp.Values) == 0 || len(resp.Values[0]) < 7 {
		return core.MonthOverview{}, core.ErrNotFound
	}
	cols := resp.Values[0]

	ov := core.MonthOverview{Key: key}
	fields := []*core.Money{
		&ov.InitialBalance,
		&ov.RemainingBalance,
		&ov.TotalIncomes,
		&ov.TotalExpenses,
		&ov.TotalTransactions,
		&ov.MonthlySavings,
	}
	for i, field := range fields {
		cents, ok := parseEurosToCents(fmt.Sprint(cols[i+1]))
		if !ok {
			return core.MonthOverview{}, fmt.Errorf("malformed amount in %s column %d", rng, i+2)
		}
		field.Cents = cents
	}
	return ov, nil
}

func (c *Client) yearSheetName(year int) string {
	return fmt.Sprintf("%d %s", year, c.sheetBase)
}

// rowForMonth maps a zero-based month to its sheet row; row 1 holds the
// header.
func rowForMonth(month int) int {
	return month + 2
}

func monthLabel(month int) string {
	names := []string{
		"January", "February", "March", "April", "May", "June",
		"July", "August", "September", "October", "November", "December",
	}
	if month < 0 || month >= len(names) {
		return strconv.Itoa(month + 1)
	}
	return names[month]
}

func centsToEuros(m core.Money) float64 {
	return float64(m.Cents) / 100.0
}

func parseEurosToCents(s string) (int64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	s = strings.ReplaceAll(s, ",", ".")
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	if f < 0 {
		return int64(f*100.0 - 0.5), true
	}
	return int64(f*100.0 + 0.5), true
}
