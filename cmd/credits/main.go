package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"descriptai/internal/adapter/repo"
	"descriptai/internal/bulk"
	"descriptai/internal/domain"
	"descriptai/internal/infra"
)

func main() {
	_ = godotenv.Load()

	var (
		idFlag      string
		planFlag    string
		creditsFlag int
		showFlag    bool
	)
	flag.StringVar(&idFlag, "id", "", "user ID to update")
	flag.StringVar(&planFlag, "plan", "pro", "plan to assign (free, pro)")
	flag.IntVar(&creditsFlag, "credits", -1, "credit balance to set (negative keeps the current balance)")
	flag.BoolVar(&showFlag, "show", false, "print the current balance without changing anything")
	flag.Parse()

	userID := strings.TrimSpace(idFlag)
	if userID == "" {
		exitWithError(errors.New("-id is required"))
	}

	dbURL := strings.TrimSpace(os.Getenv("DATABASE_URL"))
	if dbURL == "" {
		exitWithError(errors.New("DATABASE_URL is required"))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		exitWithError(fmt.Errorf("failed to connect database: %w", err))
	}
	defer pool.Close()

	logger := infra.NewLogger("cli").With().Str("cmd", "credits").Logger()
	svc := bulk.NewCredits(repo.NewCreditRepository(infra.NewSQLRunner(pool, logger)))

	if showFlag {
		profile, err := svc.Balance(ctx, userID)
		if err != nil {
			exitWithError(fmt.Errorf("failed to load profile: %w", err))
		}
		printProfile(profile)
		return
	}

	var override *int
	if creditsFlag >= 0 {
		override = &creditsFlag
	}
	plan := domain.UserPlan(strings.TrimSpace(strings.ToLower(planFlag)))
	profile, err := svc.SetPlan(ctx, userID, plan, override)
	if err != nil {
		exitWithError(fmt.Errorf("failed to update plan: %w", err))
	}
	fmt.Printf("User %s updated\n", profile.ID)
	printProfile(profile)
}

func printProfile(p *domain.Profile) {
	fmt.Printf("plan_type=%s\ncredits_remaining=%d\n", p.Plan, p.CreditsRemaining)
}

func exitWithError(err error) {
	fmt.Fprintln(os.Stderr, err)
	os.Exit(1)
}
