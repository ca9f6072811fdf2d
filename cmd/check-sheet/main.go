package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/chhs/grades-backend/internal/config"
	"github.com/chhs/grades-backend/internal/database"
	"github.com/chhs/grades-backend/internal/gradebook"
	"github.com/chhs/grades-backend/internal/logger"
)

func main() {
	cfg := config.Load()
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	store, err := database.NewSheetStore(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open sheet store")
	}

	fmt.Printf("=== Checking %s backend ===\n\n", cfg.SheetBackend)
	ok := true

	rows, err := store.ReadRows(ctx, cfg.GradesWorksheet)
	if err != nil {
		log.Fatal().Err(err).Str("worksheet", cfg.GradesWorksheet).Msg("Failed to read grades")
	}
	snap, err := gradebook.LoadGrades(cfg.GradesWorksheet, rows)
	if err != nil {
		ok = false
		report(err)
	} else {
		printColumns(cfg.GradesWorksheet, gradebook.GradeSchema, snap.Header)
		checkDuplicates(snap)
		fmt.Printf("%d grade records\n\n", snap.Len())
	}

	rows, err = store.ReadRows(ctx, cfg.TeachersWorksheet)
	if err != nil {
		log.Fatal().Err(err).Str("worksheet", cfg.TeachersWorksheet).Msg("Failed to read teacher roster")
	}
	roster, err := gradebook.LoadTeachers(cfg.TeachersWorksheet, rows)
	if err != nil {
		ok = false
		report(err)
	} else {
		printColumns(cfg.TeachersWorksheet, gradebook.TeacherSchema, rows[0])
		fmt.Printf("%d teachers\n", len(roster.Teachers))
	}

	if !ok {
		os.Exit(1)
	}
}

func report(err error) {
	var serr *gradebook.SchemaError
	if errors.As(err, &serr) {
		fmt.Printf("Worksheet %q is missing: %v\n\n", serr.Worksheet, serr.Missing)
		return
	}
	fmt.Printf("Error: %v\n\n", err)
}

func printColumns(worksheet string, schema gradebook.Schema, header []string) {
	fmt.Printf("Worksheet %q\n", worksheet)
	for _, col := range schema.Describe(header) {
		found := "missing"
		if col.Position > 0 {
			found = fmt.Sprintf("column %d (%q)", col.Position, col.FoundAs)
		}
		fmt.Printf("  %-18s %s\n", col.Header, found)
	}
}

// checkDuplicates lists full identity keys shared by more than one row. Such
// rows can never be updated because every lookup for them is ambiguous.
func checkDuplicates(snap *gradebook.Snapshot) {
	seen := make(map[int]bool)
	for i, rec := range snap.Records {
		if seen[i] {
			continue
		}
		_, err := gradebook.Locate(snap.Records, gradebook.IdentityKey(rec))
		var amb *gradebook.AmbiguousError
		if !errors.As(err, &amb) {
			continue
		}
		for _, m := range amb.Matches {
			seen[m] = true
		}
		fmt.Printf("  duplicate rows %v: %s / %s / %s / %s\n",
			amb.SheetRows, rec.StudentName, rec.Subject, rec.AssessmentType, rec.Term)
	}
}
