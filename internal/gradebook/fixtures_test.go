package gradebook

import (
	"context"
	"io"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/chhs/grades-backend/internal/sheet"
)

const worksheet = "Sheet1"

var header = []string{"NAME", "Subject", "Assessment Type", "Assessment Period", "Teacher", "Grade", "Conduct Code", "Comments"}

func gradeRows(rows ...[]string) [][]string {
	return append([][]string{header}, rows...)
}

func newStore(t *testing.T, rows [][]string) *sheet.Memory {
	t.Helper()
	m := sheet.NewMemory()
	m.Load(worksheet, rows)
	return m
}

func loadSnapshot(t *testing.T, store sheet.Store) *Snapshot {
	t.Helper()
	rows, err := store.ReadRows(context.Background(), worksheet)
	require.NoError(t, err)
	snap, err := LoadGrades(worksheet, rows)
	require.NoError(t, err)
	return snap
}

func quietLogger() zerolog.Logger {
	return zerolog.New(io.Discard)
}

// pointOnly hides the Memory store's batch and row-reader capabilities.
type pointOnly struct {
	sheet.Store
}
