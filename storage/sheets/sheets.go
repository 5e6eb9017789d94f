// Package sheets provides a Google Sheets implementation of the sheetsync.Table interface.
// The table is one worksheet of a spreadsheet, opened by id or by title.
package sheets

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"github.com/mihaimyh/sheetsync/pkg/sheetsync"
)

// Value input options, as the Sheets API names them
const (
	InputRaw         = "RAW"
	InputUserEntered = "USER_ENTERED"
)

const spreadsheetMimeType = "application/vnd.google-apps.spreadsheet"

// Storage implements sheetsync.Table on a single worksheet
type Storage struct {
	values        *sheets.SpreadsheetsValuesService
	spreadsheetID string
	sheetTitle    string
	appendInput   string
	updateInput   string
}

// Config holds Google Sheets storage configuration
type Config struct {
	// SpreadsheetID opens the spreadsheet by key. Takes precedence over SpreadsheetTitle.
	SpreadsheetID string

	// SpreadsheetTitle is resolved to an id through the Drive API when SpreadsheetID is empty
	SpreadsheetTitle string

	// SheetTitle selects the worksheet (default: the first sheet)
	SheetTitle string

	// CredentialsFile is a service account key file.
	// Empty uses Application Default Credentials.
	CredentialsFile string

	// AppendInputOption controls how appended rows are parsed (default: RAW)
	AppendInputOption string

	// UpdateInputOption controls how overwritten cells are parsed (default: USER_ENTERED)
	UpdateInputOption string

	// ClientOptions are passed to both API clients after the credentials
	ClientOptions []option.ClientOption
}

// New authenticates, resolves the spreadsheet and worksheet, and returns the table
func New(ctx context.Context, config Config) (*Storage, error) {
	opts := []option.ClientOption{
		option.WithScopes(sheets.SpreadsheetsScope, drive.DriveMetadataReadonlyScope),
	}
	if config.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(config.CredentialsFile))
	}
	opts = append(opts, config.ClientOptions...)

	sheetsService, err := sheets.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheets client: %w", err)
	}

	var driveService *drive.Service
	if config.SpreadsheetID == "" {
		driveService, err = drive.NewService(ctx, opts...)
		if err != nil {
			return nil, fmt.Errorf("failed to create drive client: %w", err)
		}
	}

	return NewWithServices(ctx, sheetsService, driveService, config)
}

// NewWithServices builds the table from existing API clients.
// driveService may be nil when config.SpreadsheetID is set.
func NewWithServices(
	ctx context.Context, sheetsService *sheets.Service, driveService *drive.Service, config Config,
) (*Storage, error) {
	if sheetsService == nil {
		return nil, fmt.Errorf("sheets service is required")
	}

	spreadsheetID := config.SpreadsheetID
	if spreadsheetID == "" {
		if config.SpreadsheetTitle == "" {
			return nil, fmt.Errorf("spreadsheet id or title is required")
		}
		if driveService == nil {
			return nil, fmt.Errorf("drive service is required to open a spreadsheet by title")
		}
		id, err := findSpreadsheet(ctx, driveService, config.SpreadsheetTitle)
		if err != nil {
			return nil, err
		}
		spreadsheetID = id
	}

	sheetTitle := config.SheetTitle
	if sheetTitle == "" {
		title, err := firstSheetTitle(ctx, sheetsService, spreadsheetID)
		if err != nil {
			return nil, err
		}
		sheetTitle = title
	}

	if config.AppendInputOption == "" {
		config.AppendInputOption = InputRaw
	}
	if config.UpdateInputOption == "" {
		config.UpdateInputOption = InputUserEntered
	}

	return &Storage{
		values:        sheetsService.Spreadsheets.Values,
		spreadsheetID: spreadsheetID,
		sheetTitle:    sheetTitle,
		appendInput:   config.AppendInputOption,
		updateInput:   config.UpdateInputOption,
	}, nil
}

// SpreadsheetID returns the resolved spreadsheet id
func (s *Storage) SpreadsheetID() string {
	return s.spreadsheetID
}

// SheetTitle returns the worksheet title
func (s *Storage) SheetTitle() string {
	return s.sheetTitle
}

// Find implements sheetsync.Table by reading the whole column
func (s *Storage) Find(ctx context.Context, column int, value string) (int, bool, error) {
	if column < 1 {
		return 0, false, fmt.Errorf("%w: column %d", sheetsync.ErrCellOutOfRange, column)
	}

	col := ColumnName(column)
	resp, err := s.values.Get(s.spreadsheetID, s.a1(col+":"+col)).
		MajorDimension("COLUMNS").
		Context(ctx).
		Do()
	if err != nil {
		return 0, false, fmt.Errorf("failed to read column %s: %w", col, err)
	}
	if len(resp.Values) == 0 {
		return 0, false, nil
	}

	for i, cell := range resp.Values[0] {
		if sheetsync.MatchesID(cellString(cell), value) {
			return i + 1, true, nil
		}
	}
	return 0, false, nil
}

// ReadCell implements sheetsync.Table
func (s *Storage) ReadCell(ctx context.Context, row, column int) (string, error) {
	if row < 1 || column < 1 {
		return "", fmt.Errorf("%w: row %d column %d", sheetsync.ErrCellOutOfRange, row, column)
	}

	resp, err := s.values.Get(s.spreadsheetID, s.a1(CellName(row, column))).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", CellName(row, column), err)
	}
	if len(resp.Values) == 0 || len(resp.Values[0]) == 0 {
		return "", nil
	}
	return cellString(resp.Values[0][0]), nil
}

// WriteCell implements sheetsync.Table
func (s *Storage) WriteCell(ctx context.Context, row, column int, value string) error {
	if row < 1 || column < 1 {
		return fmt.Errorf("%w: row %d column %d", sheetsync.ErrCellOutOfRange, row, column)
	}

	cell := CellName(row, column)
	_, err := s.values.Update(s.spreadsheetID, s.a1(cell), &sheets.ValueRange{
		Values: [][]interface{}{{value}},
	}).ValueInputOption(s.updateInput).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("failed to write %s: %w", cell, err)
	}
	return nil
}

// AppendRow implements sheetsync.Table
func (s *Storage) AppendRow(ctx context.Context, values []string) error {
	row := make([]interface{}, len(values))
	for i, v := range values {
		row[i] = v
	}

	_, err := s.values.Append(s.spreadsheetID, s.a1("A1"), &sheets.ValueRange{
		Values: [][]interface{}{row},
	}).ValueInputOption(s.appendInput).InsertDataOption("INSERT_ROWS").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("failed to append row: %w", err)
	}
	return nil
}

// a1 prefixes a range with the quoted worksheet title
func (s *Storage) a1(rng string) string {
	return "'" + strings.ReplaceAll(s.sheetTitle, "'", "''") + "'!" + rng
}

func findSpreadsheet(ctx context.Context, driveService *drive.Service, title string) (string, error) {
	q := fmt.Sprintf("name = '%s' and mimeType = '%s' and trashed = false", escapeQuery(title), spreadsheetMimeType)
	resp, err := driveService.Files.List().
		Q(q).
		Fields("files(id, name)").
		PageSize(1).
		SupportsAllDrives(true).
		IncludeItemsFromAllDrives(true).
		Context(ctx).
		Do()
	if err != nil {
		return "", fmt.Errorf("failed to look up spreadsheet %q: %w", title, err)
	}
	if len(resp.Files) == 0 {
		return "", fmt.Errorf("spreadsheet %q not found or not shared with the service account", title)
	}
	return resp.Files[0].Id, nil
}

func firstSheetTitle(ctx context.Context, sheetsService *sheets.Service, spreadsheetID string) (string, error) {
	resp, err := sheetsService.Spreadsheets.Get(spreadsheetID).Fields("sheets.properties").Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("failed to open spreadsheet %s: %w", spreadsheetID, err)
	}
	if len(resp.Sheets) == 0 || resp.Sheets[0].Properties == nil {
		return "", fmt.Errorf("spreadsheet %s has no worksheets", spreadsheetID)
	}
	return resp.Sheets[0].Properties.Title, nil
}

// escapeQuery escapes a string literal for a Drive search query
func escapeQuery(s string) string {
	return strings.NewReplacer(`\`, `\\`, `'`, `\'`).Replace(s)
}

func cellString(v interface{}) string {
	if v == nil {
		return ""
	}
	if str, ok := v.(string); ok {
		return str
	}
	return fmt.Sprint(v)
}

// ColumnName converts a 1-based column number to its letter name (1 → A, 27 → AA)
func ColumnName(column int) string {
	var name []byte
	for column > 0 {
		column--
		name = append([]byte{byte('A' + column%26)}, name...)
		column /= 26
	}
	return string(name)
}

// CellName returns the A1 name of a cell, e.g. CellName(3, 5) == "E3"
func CellName(row, column int) string {
	return fmt.Sprintf("%s%d", ColumnName(column), row)
}
