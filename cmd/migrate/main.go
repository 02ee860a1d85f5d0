package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"descriptai/internal/infra"
	"descriptai/internal/migrations"
)

func main() {
	_ = godotenv.Load()

	printFlag := flag.Bool("print", false, "print the embedded schema and exit")
	flag.Parse()

	if *printFlag {
		fmt.Print(migrations.Schema())
		return
	}

	logger := infra.NewLogger(os.Getenv("APP_ENV")).With().Str("cmd", "migrate").Logger()
	dbURL := strings.TrimSpace(os.Getenv("DATABASE_URL"))
	if dbURL == "" {
		logger.Fatal().Msg("DATABASE_URL is required")
	}

	db, err := migrations.Open(dbURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to open database")
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	applied, err := migrations.Apply(ctx, db)
	if err != nil {
		logger.Fatal().Err(err).Msg("migration failed")
	}
	if applied {
		logger.Info().Str("version", migrations.Version).Msg("schema applied")
		return
	}
	logger.Info().Str("version", migrations.Version).Msg("schema already up to date")
}
