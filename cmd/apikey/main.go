// Command apikey stores Groq and Gemini API keys in integration_tokens so the
// API can start without them in its environment.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"descriptai/internal/infra"
	"descriptai/internal/infra/credentials"
)

var envKeys = map[string]string{
	credentials.ProviderGroq:   "GROQ_API_KEY",
	credentials.ProviderGemini: "GEMINI_API_KEY",
}

func main() {
	_ = godotenv.Load()
	if err := run(os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, "apikey:", err)
		os.Exit(1)
	}
}

func run(args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("apikey", flag.ContinueOnError)
	var (
		keyFlag      = fs.String("key", "", "API key for the selected provider (falls back to GROQ_API_KEY / GEMINI_API_KEY)")
		providerFlag = fs.String("provider", credentials.ProviderGroq, "provider to configure (groq or gemini)")
		listFlag     = fs.Bool("list", false, "list providers with a stored key and exit")
	)
	if err := fs.Parse(args); err != nil {
		return err
	}

	provider := strings.ToLower(strings.TrimSpace(*providerFlag))
	key := strings.TrimSpace(*keyFlag)
	if !*listFlag {
		if !credentials.Supported(provider) {
			return fmt.Errorf("unsupported provider %q", *providerFlag)
		}
		if key == "" {
			key = strings.TrimSpace(os.Getenv(envKeys[provider]))
		}
		if key == "" {
			return fmt.Errorf("%s key is required via -key or %s", provider, envKeys[provider])
		}
	}

	dbURL := strings.TrimSpace(os.Getenv("DATABASE_URL"))
	if dbURL == "" {
		return errors.New("DATABASE_URL is required")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer pool.Close()

	logger := infra.NewLogger("cli").With().Str("cmd", "apikey").Logger()
	store := credentials.NewStore(infra.NewSQLRunner(pool, logger))

	if *listFlag {
		entries, err := store.List(ctx)
		if err != nil {
			return fmt.Errorf("list keys: %w", err)
		}
		return printEntries(stdout, entries)
	}

	if err := store.SetToken(ctx, provider, key); err != nil {
		return fmt.Errorf("store %s key: %w", provider, err)
	}
	fmt.Fprintf(stdout, "%s key stored (%s)\n", provider, credentials.Fingerprint(key))
	return nil
}

func printEntries(w io.Writer, entries []credentials.Entry) error {
	if len(entries) == 0 {
		_, err := fmt.Fprintln(w, "no provider keys stored")
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "PROVIDER\tKEY\tUPDATED")
	for _, e := range entries {
		fp := e.Fingerprint
		if fp == "" {
			fp = "-"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\n", e.Provider, fp, e.UpdatedAt.UTC().Format(time.RFC3339))
	}
	return tw.Flush()
}
