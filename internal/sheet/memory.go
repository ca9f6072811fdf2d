package sheet

import (
	"context"
	"fmt"
	"sync"
)

// WriteLog is one applied write, kept by Memory for inspection.
type WriteLog struct {
	Worksheet string
	Row       int
	Col       int
	Value     string
	Batch     bool
}

// Memory is an in-process Store. It implements BatchWriter, RowReader and Appender.
type Memory struct {
	mu     sync.Mutex
	sheets map[string][][]string
	writes []WriteLog
	// FailWrite, when set, is consulted before every cell write; a non-nil
	// result aborts that write.
	FailWrite func(worksheet string, row, col int) error
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{sheets: make(map[string][][]string)}
}

// Load replaces a worksheet's content. rows[0] is the header.
func (m *Memory) Load(worksheet string, rows [][]string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sheets[worksheet] = cloneRows(rows)
}

// Writes returns every write applied so far.
func (m *Memory) Writes() []WriteLog {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]WriteLog, len(m.writes))
	copy(out, m.writes)
	return out
}

// ReadRows implements Store.
func (m *Memory) ReadRows(ctx context.Context, worksheet string) ([][]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	rows, ok := m.sheets[worksheet]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrWorksheetNotFound, worksheet)
	}
	return cloneRows(rows), nil
}

// ReadRow implements RowReader. Rows past the end read as empty.
func (m *Memory) ReadRow(ctx context.Context, worksheet string, row int) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if row < 1 {
		return nil, fmt.Errorf("%w: row=%d", ErrOutOfBounds, row)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	rows, ok := m.sheets[worksheet]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrWorksheetNotFound, worksheet)
	}
	if row > len(rows) {
		return []string{}, nil
	}
	return append([]string(nil), rows[row-1]...), nil
}

// SetCell implements Store.
func (m *Memory) SetCell(ctx context.Context, worksheet string, row, col int, value interface{}) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.check(worksheet, row, col); err != nil {
		return err
	}
	m.apply(worksheet, row, col, value, false)
	return nil
}

// SetCells implements BatchWriter: either every cell is applied or none is.
func (m *Memory) SetCells(ctx context.Context, worksheet string, cells []CellWrite) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range cells {
		if err := m.check(worksheet, c.Row, c.Col); err != nil {
			return err
		}
	}
	for _, c := range cells {
		m.apply(worksheet, c.Row, c.Col, c.Value, true)
	}
	return nil
}

// AppendRow implements Appender. The row lands below the last stored row.
func (m *Memory) AppendRow(ctx context.Context, worksheet string, values []interface{}) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	row := len(m.sheets[worksheet]) + 1
	for i := range values {
		if err := m.check(worksheet, row, i+1); err != nil {
			return 0, err
		}
	}
	for i, v := range values {
		m.apply(worksheet, row, i+1, v, true)
	}
	return row, nil
}

func (m *Memory) check(worksheet string, row, col int) error {
	if _, ok := m.sheets[worksheet]; !ok {
		return fmt.Errorf("%w: %s", ErrWorksheetNotFound, worksheet)
	}
	if row < 1 || col < 1 {
		return fmt.Errorf("%w: row=%d col=%d", ErrOutOfBounds, row, col)
	}
	if m.FailWrite != nil {
		return m.FailWrite(worksheet, row, col)
	}
	return nil
}

func (m *Memory) apply(worksheet string, row, col int, value interface{}, batch bool) {
	rows := m.sheets[worksheet]
	for len(rows) < row {
		rows = append(rows, []string{})
	}
	for len(rows[row-1]) < col {
		rows[row-1] = append(rows[row-1], "")
	}
	s := fmt.Sprint(value)
	rows[row-1][col-1] = s
	m.sheets[worksheet] = rows
	m.writes = append(m.writes, WriteLog{Worksheet: worksheet, Row: row, Col: col, Value: s, Batch: batch})
}

func cloneRows(rows [][]string) [][]string {
	out := make([][]string, len(rows))
	for i, r := range rows {
		out[i] = append([]string(nil), r...)
	}
	return out
}
