package database

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/chhs/grades-backend/internal/config"
	"github.com/chhs/grades-backend/internal/sheet"
)

// NewSheetStore opens the tabular store selected by SHEET_BACKEND and checks
// that the grades worksheet is readable. The memory backend is filled with the
// demo workbook.
func NewSheetStore(ctx context.Context, cfg *config.Config, log zerolog.Logger) (sheet.Store, error) {
	var (
		store sheet.Store
		err   error
	)

	switch cfg.SheetBackend {
	case config.SheetBackendGoogle:
		if cfg.SpreadsheetID == "" {
			return nil, fmt.Errorf("SPREADSHEET_ID is required for the %s backend", cfg.SheetBackend)
		}
		store, err = sheet.NewGoogleSheets(ctx, cfg.SpreadsheetID, cfg.GoogleCredentials)
	case config.SheetBackendXLSX:
		store, err = sheet.NewXLSX(cfg.XLSXPath)
	case config.SheetBackendMemory:
		mem := sheet.NewMemory()
		for ws, rows := range sheet.DemoWorkbook(cfg.GradesWorksheet, cfg.TeachersWorksheet, 1) {
			mem.Load(ws, rows)
		}
		store = mem
	default:
		return nil, fmt.Errorf("unknown sheet backend %q", cfg.SheetBackend)
	}
	if err != nil {
		return nil, fmt.Errorf("open %s sheet store: %w", cfg.SheetBackend, err)
	}

	if _, err := store.ReadRows(ctx, cfg.GradesWorksheet); err != nil {
		return nil, fmt.Errorf("read worksheet %q: %w", cfg.GradesWorksheet, err)
	}

	log.Info().
		Str("backend", cfg.SheetBackend).
		Str("worksheet", cfg.GradesWorksheet).
		Msg("Sheet store ready")

	return store, nil
}
