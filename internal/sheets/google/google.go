// Package google mirrors payments into a Google Sheets tab.
package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"feeledger/internal/core"
	ports "feeledger/internal/sheets"
)

const defaultSheetName = "Payments"

// Column layout of the mirror tab, A..G.
var header = []any{"Payment ID", "Payment date", "Student ID", "Student", "Months", "Amount", "Remarks"}

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheetName     string
}

var _ ports.PaymentMirror = (*Client)(nil)

// Options configure a Client. CredentialsJSON wins over CredentialsFile;
// when both are empty GOOGLE_APPLICATION_CREDENTIALS is read.
type Options struct {
	SpreadsheetID   string
	SheetName       string
	CredentialsJSON string
	CredentialsFile string
}

// New builds a Sheets client authenticated with a service account.
func New(ctx context.Context, opts Options) (*Client, error) {
	id := strings.TrimSpace(opts.SpreadsheetID)
	if id == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}
	name := strings.TrimSpace(opts.SheetName)
	if name == "" {
		name = defaultSheetName
	}

	creds, err := loadCredentials(ctx, opts)
	if err != nil {
		return nil, err
	}
	svc, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(creds),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}

	slog.InfoContext(ctx, "Google Sheets service created", "sheet", name)
	return &Client{svc: svc, spreadsheetID: id, sheetName: name}, nil
}

func loadCredentials(ctx context.Context, opts Options) ([]byte, error) {
	inline := strings.TrimSpace(opts.CredentialsJSON)
	file := strings.TrimSpace(opts.CredentialsFile)
	if inline == "" && file == "" {
		file = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}
	switch {
	case inline != "":
		slog.InfoContext(ctx, "Using inline service account credentials")
		return []byte(inline), nil
	case file != "":
		b, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		slog.InfoContext(ctx, "Read service account credentials", "path", file, "size", len(b))
		return b, nil
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}
}

// AppendPayment implements ports.PaymentAppender.
func (c *Client) AppendPayment(ctx context.Context, row ports.PaymentRow) (string, error) {
	if c.svc == nil {
		return "", errors.New("sheets service not initialized")
	}
	ids, err := c.readIDs(ctx)
	if err != nil {
		return "", err
	}
	if len(ids) == 0 {
		if err := c.writeHeader(ctx); err != nil {
			return "", err
		}
		ids = []string{fmt.Sprint(header[0])}
	}
	if i := findRow(ids, row.PaymentID); i >= 0 {
		slog.InfoContext(ctx, "Payment already mirrored", "payment_id", row.PaymentID, "row", i+1)
		return fmt.Sprintf("%s!A%d:G%d", c.sheetName, i+1, i+1), nil
	}

	next := len(ids) + 1
	rng := fmt.Sprintf("%s!A%d:G%d", c.sheetName, next, next)
	vr := &gsheet.ValueRange{Values: [][]any{rowValues(row)}}
	if _, err := c.svc.Spreadsheets.Values.Update(c.spreadsheetID, rng, vr).
		ValueInputOption("USER_ENTERED").Context(ctx).Do(); err != nil {
		return "", fmt.Errorf("failed to write row in sheet %s: %w", c.sheetName, err)
	}
	return rng, nil
}

// RemovePayment implements ports.PaymentRemover.
func (c *Client) RemovePayment(ctx context.Context, paymentID string) error {
	if c.svc == nil {
		return errors.New("sheets service not initialized")
	}
	ids, err := c.readIDs(ctx)
	if err != nil {
		return err
	}
	i := findRow(ids, paymentID)
	if i < 0 {
		slog.InfoContext(ctx, "Payment not present in sheet", "payment_id", paymentID)
		return nil
	}
	sheetID, err := c.sheetID(ctx)
	if err != nil {
		return err
	}
	req := &gsheet.BatchUpdateSpreadsheetRequest{Requests: []*gsheet.Request{{
		DeleteDimension: &gsheet.DeleteDimensionRequest{Range: &gsheet.DimensionRange{
			SheetId:    sheetID,
			Dimension:  "ROWS",
			StartIndex: int64(i),
			EndIndex:   int64(i + 1),
		}},
	}}}
	if _, err := c.svc.Spreadsheets.BatchUpdate(c.spreadsheetID, req).Context(ctx).Do(); err != nil {
		return fmt.Errorf("delete row %d in sheet %s: %w", i+1, c.sheetName, err)
	}
	return nil
}

// PaymentIDs implements ports.PaymentLister. The header row and blank rows
// are skipped.
func (c *Client) PaymentIDs(ctx context.Context) ([]string, error) {
	if c.svc == nil {
		return nil, errors.New("sheets service not initialized")
	}
	ids, err := c.readIDs(ctx)
	if err != nil {
		return nil, err
	}
	return mirroredIDs(ids), nil
}

func mirroredIDs(column []string) []string {
	out := []string{}
	for i, id := range column {
		if i == 0 && id == fmt.Sprint(header[0]) {
			continue
		}
		if id != "" {
			out = append(out, id)
		}
	}
	return out
}

func (c *Client) readIDs(ctx context.Context) ([]string, error) {
	rng := fmt.Sprintf("%s!A:A", c.sheetName)
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read payment ids from %s: %w", c.sheetName, err)
	}
	ids := make([]string, len(resp.Values))
	for i, r := range resp.Values {
		if len(r) > 0 {
			ids[i] = strings.TrimSpace(fmt.Sprint(r[0]))
		}
	}
	return ids, nil
}

func (c *Client) writeHeader(ctx context.Context) error {
	rng := fmt.Sprintf("%s!A1:G1", c.sheetName)
	vr := &gsheet.ValueRange{Values: [][]any{header}}
	if _, err := c.svc.Spreadsheets.Values.Update(c.spreadsheetID, rng, vr).
		ValueInputOption("RAW").Context(ctx).Do(); err != nil {
		return fmt.Errorf("write header in sheet %s: %w", c.sheetName, err)
	}
	return nil
}

func (c *Client) sheetID(ctx context.Context) (int64, error) {
	ss, err := c.svc.Spreadsheets.Get(c.spreadsheetID).Fields("sheets.properties").Context(ctx).Do()
	if err != nil {
		return 0, fmt.Errorf("get spreadsheet: %w", err)
	}
	for _, s := range ss.Sheets {
		if s.Properties != nil && s.Properties.Title == c.sheetName {
			return s.Properties.SheetId, nil
		}
	}
	return 0, fmt.Errorf("sheet %q not found", c.sheetName)
}

func rowValues(r ports.PaymentRow) []any {
	months := make([]string, len(r.Months))
	for i, m := range r.Months {
		months[i] = m.ShortLabel()
	}
	name := r.StudentName
	if name == "" {
		name = core.UnknownStudentName
	}
	return []any{
		r.PaymentID,
		r.PaymentDate.Format("2006-01-02"),
		r.StudentID,
		name,
		strings.Join(months, ", "),
		r.Amount.Decimal(),
		r.Remarks,
	}
}

// findRow returns the zero-based row index holding id, or -1.
func findRow(ids []string, id string) int {
	id = strings.TrimSpace(id)
	if id == "" {
		return -1
	}
	for i, v := range ids {
		if v == id {
			return i
		}
	}
	return -1
}
