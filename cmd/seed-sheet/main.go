package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/chhs/grades-backend/internal/config"
	"github.com/chhs/grades-backend/internal/logger"
	"github.com/chhs/grades-backend/internal/sheet"
)

func main() {
	cfg := config.Load()
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)

	var (
		path  string
		seed  int64
		force bool
	)
	flag.StringVar(&path, "out", cfg.XLSXPath, "Workbook to write")
	flag.Int64Var(&seed, "seed", 1, "Random seed for demo grades")
	flag.BoolVar(&force, "force", false, "Overwrite an existing workbook")
	flag.Parse()

	if _, err := os.Stat(path); err == nil && !force {
		fmt.Printf("%s already exists; pass -force to overwrite\n", path)
		os.Exit(1)
	}

	fmt.Println("=== Seeding Demo Grades Workbook ===")

	book := sheet.DemoWorkbook(cfg.GradesWorksheet, cfg.TeachersWorksheet, seed)
	cells := make(map[string][][]interface{}, len(book))
	for ws, rows := range book {
		cells[ws] = sheet.ToCells(rows)
	}

	order := []string{cfg.GradesWorksheet, cfg.TeachersWorksheet}
	if err := sheet.WriteWorkbook(path, cells, order); err != nil {
		log.Fatal().Err(err).Str("path", path).Msg("Failed to write workbook")
	}

	fmt.Printf("\nSeed completed! Wrote %d grade rows and %d teachers to %s\n",
		len(book[cfg.GradesWorksheet])-1, len(book[cfg.TeachersWorksheet])-1, path)
}
