package sheet

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/xuri/excelize/v2"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	gsheets "google.golang.org/api/sheets/v4"
)

// valueInputOption stores values as given. Comments starting with "=" or
// looking like dates must not be parsed into formulas or serial numbers.
const valueInputOption = "RAW"

// GoogleSheets is a Store backed by one Google spreadsheet.
// It implements BatchWriter (values.batchUpdate is atomic per request),
// RowReader and Appender.
type GoogleSheets struct {
	values        *gsheets.SpreadsheetsValuesService
	spreadsheetID string
}

// NewGoogleSheets authenticates with a service-account credentials file.
func NewGoogleSheets(ctx context.Context, spreadsheetID, credentialsFile string, opts ...option.ClientOption) (*GoogleSheets, error) {
	if spreadsheetID == "" {
		return nil, errors.New("spreadsheet ID is required")
	}
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	opts = append(opts, option.WithScopes(gsheets.SpreadsheetsScope))

	srv, err := gsheets.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return &GoogleSheets{values: srv.Spreadsheets.Values, spreadsheetID: spreadsheetID}, nil
}

// ReadRows implements Store.
func (g *GoogleSheets) ReadRows(ctx context.Context, worksheet string) ([][]string, error) {
	resp, err := g.values.Get(g.spreadsheetID, quoteSheet(worksheet)).
		ValueRenderOption("FORMATTED_VALUE").
		Context(ctx).
		Do()
	if err != nil {
		return nil, translateAPIError(worksheet, err)
	}
	return toStrings(resp.Values), nil
}

// ReadRow implements RowReader.
func (g *GoogleSheets) ReadRow(ctx context.Context, worksheet string, row int) ([]string, error) {
	if row < 1 {
		return nil, fmt.Errorf("%w: row=%d", ErrOutOfBounds, row)
	}
	rng := fmt.Sprintf("%s!%d:%d", quoteSheet(worksheet), row, row)
	resp, err := g.values.Get(g.spreadsheetID, rng).
		ValueRenderOption("FORMATTED_VALUE").
		Context(ctx).
		Do()
	if err != nil {
		return nil, translateAPIError(worksheet, err)
	}
	rows := toStrings(resp.Values)
	if len(rows) == 0 {
		return []string{}, nil
	}
	return rows[0], nil
}

// SetCell implements Store.
func (g *GoogleSheets) SetCell(ctx context.Context, worksheet string, row, col int, value interface{}) error {
	rng, err := RangeRef(worksheet, row, col)
	if err != nil {
		return err
	}
	vr := &gsheets.ValueRange{Range: rng, Values: [][]interface{}{{value}}}
	_, err = g.values.Update(g.spreadsheetID, rng, vr).
		ValueInputOption(valueInputOption).
		Context(ctx).
		Do()
	if err != nil {
		return translateAPIError(worksheet, err)
	}
	return nil
}

// SetCells implements BatchWriter.
func (g *GoogleSheets) SetCells(ctx context.Context, worksheet string, cells []CellWrite) error {
	data := make([]*gsheets.ValueRange, 0, len(cells))
	for _, c := range cells {
		rng, err := RangeRef(worksheet, c.Row, c.Col)
		if err != nil {
			return err
		}
		data = append(data, &gsheets.ValueRange{Range: rng, Values: [][]interface{}{{c.Value}}})
	}
	req := &gsheets.BatchUpdateValuesRequest{
		ValueInputOption: valueInputOption,
		Data:             data,
	}
	if _, err := g.values.BatchUpdate(g.spreadsheetID, req).Context(ctx).Do(); err != nil {
		return translateAPIError(worksheet, err)
	}
	return nil
}

// AppendRow implements Appender. New rows are inserted below the sheet's
// table so existing rows never move.
func (g *GoogleSheets) AppendRow(ctx context.Context, worksheet string, values []interface{}) (int, error) {
	vr := &gsheets.ValueRange{Values: [][]interface{}{values}}
	resp, err := g.values.Append(g.spreadsheetID, quoteSheet(worksheet), vr).
		ValueInputOption(valueInputOption).
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
	if err != nil {
		return 0, translateAPIError(worksheet, err)
	}
	if resp.Updates == nil {
		return 0, errors.New("sheets api: append returned no update range")
	}
	return rangeRow(resp.Updates.UpdatedRange)
}

// rangeRow returns the first row of an A1 range such as 'Sheet1'!A7:H7.
func rangeRow(rng string) (int, error) {
	cell := rng[strings.LastIndex(rng, "!")+1:]
	if i := strings.Index(cell, ":"); i >= 0 {
		cell = cell[:i]
	}
	_, row, err := excelize.CellNameToCoordinates(strings.ReplaceAll(cell, "$", ""))
	if err != nil {
		return 0, fmt.Errorf("parse range %q: %w", rng, err)
	}
	return row, nil
}

func quoteSheet(worksheet string) string {
	return "'" + strings.ReplaceAll(worksheet, "'", "''") + "'"
}

func toStrings(values [][]interface{}) [][]string {
	rows := make([][]string, len(values))
	for i, r := range values {
		row := make([]string, len(r))
		for j, v := range r {
			if v != nil {
				row[j] = fmt.Sprint(v)
			}
		}
		rows[i] = row
	}
	return rows
}

func translateAPIError(worksheet string, err error) error {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) && apiErr.Code == http.StatusBadRequest &&
		strings.Contains(apiErr.Message, "Unable to parse range") {
		return fmt.Errorf("%w: %s", ErrWorksheetNotFound, worksheet)
	}
	return fmt.Errorf("sheets api: %w", err)
}
