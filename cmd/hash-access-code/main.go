package main

import (
	"fmt"
	"os"
	"syscall"

	"golang.org/x/term"

	"github.com/chhs/grades-backend/internal/config"
	"github.com/chhs/grades-backend/internal/logger"
	"github.com/chhs/grades-backend/internal/service"
)

func main() {
	// ─── Load Configuration ────────────────────────────────────────────
	cfg := config.Load()

	// ─── Initialize Logger ─────────────────────────────────────────────
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)

	// ─── CLI Input ─────────────────────────────────────────────────────
	fmt.Println("=== Admin Access Code ===")

	fmt.Print("Enter access code: ")
	first, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Println()
	if err != nil {
		fmt.Println("Error reading access code")
		os.Exit(1)
	}
	if len(first) < 8 {
		fmt.Println("Error: access code must be at least 8 characters")
		os.Exit(1)
	}

	fmt.Print("Repeat access code: ")
	second, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Println()
	if err != nil {
		fmt.Println("Error reading access code")
		os.Exit(1)
	}
	if string(first) != string(second) {
		fmt.Println("Error: access codes do not match")
		os.Exit(1)
	}

	// ─── Logic ─────────────────────────────────────────────────────────
	hash, err := service.HashAccessCode(string(first), cfg.BcryptCost)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to hash access code")
	}

	fmt.Println("\nAdd this line to your .env:")
	fmt.Printf("ADMIN_ACCESS_CODE_HASH='%s'\n", hash)
}
