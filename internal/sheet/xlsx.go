package sheet

import (
	"context"
	"fmt"
	"sync"

	"github.com/xuri/excelize/v2"
)

// XLSX is a Store backed by a workbook on disk. Each operation opens the file
// so edits made outside the process are picked up on the next read.
type XLSX struct {
	mu   sync.Mutex
	path string
}

// NewXLSX verifies the workbook can be opened and returns a store for it.
func NewXLSX(path string) (*XLSX, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open workbook %s: %w", path, err)
	}
	_ = f.Close()
	return &XLSX{path: path}, nil
}

// Path returns the workbook location.
func (x *XLSX) Path() string {
	return x.path
}

// ReadRows implements Store.
func (x *XLSX) ReadRows(ctx context.Context, worksheet string) ([][]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	x.mu.Lock()
	defer x.mu.Unlock()

	var rows [][]string
	err := x.withFile(func(f *excelize.File) error {
		if err := requireWorksheet(f, worksheet); err != nil {
			return err
		}
		var err error
		rows, err = f.GetRows(worksheet)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", worksheet, err)
	}
	return rows, nil
}

// ReadRow implements RowReader.
func (x *XLSX) ReadRow(ctx context.Context, worksheet string, row int) ([]string, error) {
	if row < 1 {
		return nil, fmt.Errorf("%w: row=%d", ErrOutOfBounds, row)
	}
	rows, err := x.ReadRows(ctx, worksheet)
	if err != nil {
		return nil, err
	}
	if row > len(rows) {
		return []string{}, nil
	}
	return rows[row-1], nil
}

// SetCell implements Store. The workbook is saved after the write.
func (x *XLSX) SetCell(ctx context.Context, worksheet string, row, col int, value interface{}) error {
	return x.SetCells(ctx, worksheet, []CellWrite{{Row: row, Col: col, Value: value}})
}

// SetCells implements BatchWriter. The workbook is saved once, only if every
// cell was accepted.
func (x *XLSX) SetCells(ctx context.Context, worksheet string, cells []CellWrite) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	x.mu.Lock()
	defer x.mu.Unlock()

	return x.withFile(func(f *excelize.File) error {
		if err := requireWorksheet(f, worksheet); err != nil {
			return err
		}
		for _, c := range cells {
			ref, err := CellRef(c.Row, c.Col)
			if err != nil {
				return err
			}
			if err := f.SetCellValue(worksheet, ref, c.Value); err != nil {
				return fmt.Errorf("set %s!%s: %w", worksheet, ref, err)
			}
		}
		if err := f.Save(); err != nil {
			return fmt.Errorf("save workbook: %w", err)
		}
		return nil
	})
}

// AppendRow implements Appender.
func (x *XLSX) AppendRow(ctx context.Context, worksheet string, values []interface{}) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	x.mu.Lock()
	defer x.mu.Unlock()

	var row int
	err := x.withFile(func(f *excelize.File) error {
		if err := requireWorksheet(f, worksheet); err != nil {
			return err
		}
		rows, err := f.GetRows(worksheet)
		if err != nil {
			return err
		}
		row = len(rows) + 1
		ref, err := CellRef(row, 1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(worksheet, ref, &values); err != nil {
			return fmt.Errorf("append %s row %d: %w", worksheet, row, err)
		}
		if err := f.Save(); err != nil {
			return fmt.Errorf("save workbook: %w", err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return row, nil
}

func (x *XLSX) withFile(fn func(f *excelize.File) error) error {
	f, err := excelize.OpenFile(x.path)
	if err != nil {
		return fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()
	return fn(f)
}

func requireWorksheet(f *excelize.File, worksheet string) error {
	idx, err := f.GetSheetIndex(worksheet)
	if err != nil || idx < 0 {
		return fmt.Errorf("%w: %s", ErrWorksheetNotFound, worksheet)
	}
	return nil
}

// WriteWorkbook creates (or overwrites) an xlsx file with the given worksheets.
// Used by the seeding command and tests.
func WriteWorkbook(path string, sheets map[string][][]interface{}, order []string) error {
	f := excelize.NewFile()
	defer f.Close()

	for i, name := range order {
		if i == 0 {
			if name != "Sheet1" {
				if err := f.SetSheetName("Sheet1", name); err != nil {
					return err
				}
			}
		} else if _, err := f.NewSheet(name); err != nil {
			return err
		}
		for r, row := range sheets[name] {
			ref, err := CellRef(r+1, 1)
			if err != nil {
				return err
			}
			if err := f.SetSheetRow(name, ref, &row); err != nil {
				return fmt.Errorf("write %s row %d: %w", name, r+1, err)
			}
		}
	}
	return f.SaveAs(path)
}
