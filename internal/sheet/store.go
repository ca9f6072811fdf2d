// Package sheet adapts external tabular stores (Google Sheets, XLSX workbooks,
// in-memory tables) to the row/cell primitives the gradebook needs.
//
// Rows and columns are 1-indexed. Row 1 is the header row.
package sheet

import (
	"context"
	"errors"
	"fmt"

	"github.com/xuri/excelize/v2"
)

var (
	// ErrWorksheetNotFound is returned when the named worksheet does not exist.
	ErrWorksheetNotFound = errors.New("worksheet not found")
	// ErrOutOfBounds is returned for a row or column below 1.
	ErrOutOfBounds = errors.New("cell reference out of bounds")
)

// Store is the minimal contract every backend satisfies: a bulk read and a point write.
type Store interface {
	// ReadRows returns the header row followed by every data row, as display strings.
	ReadRows(ctx context.Context, worksheet string) ([][]string, error)
	// SetCell writes a single value at (row, col).
	SetCell(ctx context.Context, worksheet string, row, col int, value interface{}) error
}

// CellWrite is one entry of a batch write.
type CellWrite struct {
	Row   int
	Col   int
	Value interface{}
}

// BatchWriter is implemented by stores that can apply several cells atomically.
type BatchWriter interface {
	SetCells(ctx context.Context, worksheet string, cells []CellWrite) error
}

// RowReader is implemented by stores that can re-read a single row cheaply.
type RowReader interface {
	ReadRow(ctx context.Context, worksheet string, row int) ([]string, error)
}

// Appender is implemented by stores that can add a row below the last used row.
type Appender interface {
	// AppendRow writes values as a new row and returns its 1-based row number.
	AppendRow(ctx context.Context, worksheet string, values []interface{}) (int, error)
}

// CellRef returns the A1 reference for (row, col), e.g. (2, 3) -> "C2".
func CellRef(row, col int) (string, error) {
	if row < 1 || col < 1 {
		return "", fmt.Errorf("%w: row=%d col=%d", ErrOutOfBounds, row, col)
	}
	return excelize.CoordinatesToCellName(col, row)
}

// RangeRef returns a worksheet-qualified A1 reference such as 'Sheet1'!C2.
func RangeRef(worksheet string, row, col int) (string, error) {
	cell, err := CellRef(row, col)
	if err != nil {
		return "", err
	}
	return quoteSheet(worksheet) + "!" + cell, nil
}
