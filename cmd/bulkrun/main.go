// Command bulkrun uploads a CSV of products or a directory of product images
// and drives the job one item at a time. SIGINT cancels after the in-flight
// item; SIGUSR1 toggles pause.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"descriptai/internal/apiclient"
	"descriptai/internal/domain"
	"descriptai/internal/driver"
	"descriptai/internal/infra"
	"descriptai/internal/itemsource"
	"descriptai/internal/notify"
)

type options struct {
	apiURL    string
	token     string
	csvPath   string
	imageDir  string
	voiceID   string
	locale    string
	out       string
	maxItems  int
	maxImages int
	maxBytes  int64
	template  bool
}

func main() {
	_ = godotenv.Load()

	opts := parseFlags()
	if opts.template {
		fmt.Print(itemsource.TemplateCSV)
		return
	}
	if err := opts.validate(); err != nil {
		exitWithError(err)
	}

	logger := infra.NewLogger(getEnv("APP_ENV", "development")).With().Str("cmd", "bulkrun").Logger()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM)
	defer stop()

	client, err := apiclient.New(apiclient.Options{BaseURL: opts.apiURL, Token: opts.token, Locale: opts.locale})
	if err != nil {
		exitWithError(err)
	}

	job, items, err := upload(ctx, client, opts)
	if err != nil {
		exitWithError(err)
	}
	logger.Info().Str("job_id", job.ID).Str("kind", string(job.Kind)).Int("items", len(items)).Msg("job created")

	ctrl := &driver.Control{}
	signals := make(chan os.Signal, 2)
	signal.Notify(signals, os.Interrupt, syscall.SIGUSR1)
	defer signal.Stop(signals)
	go func() {
		for sig := range signals {
			if sig == syscall.SIGUSR1 {
				if ctrl.Toggle() {
					logger.Info().Msg("pause requested")
				} else {
					logger.Info().Msg("resume requested")
				}
				continue
			}
			logger.Warn().Msg("cancel requested, finishing in-flight item")
			ctrl.Cancel()
		}
	}()

	events := notify.New()
	unsubscribe := events.Subscribe(logEvent(logger))
	defer unsubscribe()

	d := driver.New(driver.Deps{API: client, Notifier: events, Logger: logger})
	sum := d.Run(ctx, job, items, ctrl)

	fmt.Printf("job %s %s: %d/%d processed, %d failed\n", sum.JobID, sum.Status, sum.Processed, sum.Total, sum.Failed)
	if sum.ErrorMessage != nil {
		fmt.Println(*sum.ErrorMessage)
	}

	balanceCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	if credits, err := client.Credits(balanceCtx); err == nil {
		fmt.Printf("credits remaining: %d (%s)\n", credits.CreditsRemaining, credits.PlanType)
	}
	cancel()

	if opts.out != "" {
		if err := writeResults(opts.out, sum, time.Now()); err != nil {
			exitWithError(fmt.Errorf("write results: %w", err))
		}
		fmt.Printf("results written to %s\n", opts.out)
	}
	if sum.Status != domain.JobStatusCompleted {
		os.Exit(2)
	}
}

func parseFlags() options {
	var opts options
	flag.StringVar(&opts.apiURL, "api", getEnv("DESCRIPTAI_API_URL", "http://localhost:8080"), "API base URL")
	flag.StringVar(&opts.token, "token", os.Getenv("DESCRIPTAI_TOKEN"), "bearer token")
	flag.StringVar(&opts.csvPath, "csv", "", "CSV file with one product per row")
	flag.StringVar(&opts.imageDir, "images", "", "directory of product images")
	flag.StringVar(&opts.voiceID, "voice", "", "brand voice id")
	flag.StringVar(&opts.locale, "locale", "", "output language (en, id)")
	flag.StringVar(&opts.out, "out", "", "write results to a .csv or .zip file")
	flag.IntVar(&opts.maxItems, "max-items", 100, "maximum products per CSV upload")
	flag.IntVar(&opts.maxImages, "max-images", 5, "maximum images per upload")
	flag.Int64Var(&opts.maxBytes, "max-image-bytes", 10<<20, "maximum size of one image")
	flag.BoolVar(&opts.template, "template", false, "print a CSV template and exit")
	flag.Parse()
	return opts
}

func (o options) validate() error {
	if strings.TrimSpace(o.token) == "" {
		return errors.New("a token is required via -token or DESCRIPTAI_TOKEN")
	}
	if (o.csvPath == "") == (o.imageDir == "") {
		return errors.New("exactly one of -csv or -images is required")
	}
	return nil
}

func upload(ctx context.Context, client *apiclient.Client, opts options) (driver.Job, []driver.Item, error) {
	if opts.imageDir != "" {
		images, err := itemsource.LoadImages(opts.imageDir, opts.maxImages, opts.maxBytes)
		if err != nil {
			return driver.Job{}, nil, err
		}
		created, err := client.UploadImages(ctx, len(images), opts.voiceID)
		if err != nil {
			return driver.Job{}, nil, fmt.Errorf("upload images: %w", err)
		}
		return driver.Job{ID: created.ID, Kind: domain.JobKindImage}, driver.ImageItems(images), nil
	}

	f, err := os.Open(opts.csvPath)
	if err != nil {
		return driver.Job{}, nil, err
	}
	defer f.Close()
	products, err := itemsource.LoadCSV(f, opts.maxItems)
	if err != nil {
		return driver.Job{}, nil, err
	}
	created, err := client.UploadItems(ctx, products, opts.voiceID)
	if err != nil {
		return driver.Job{}, nil, fmt.Errorf("upload items: %w", err)
	}
	return driver.Job{ID: created.ID, Kind: domain.JobKindText}, driver.TextItems(products), nil
}

func logEvent(logger infra.Logger) notify.Handler {
	return func(e notify.Event) {
		var ev = logger.Info()
		switch e.Level {
		case notify.LevelWarning:
			ev = logger.Warn()
		case notify.LevelError:
			ev = logger.Error()
		}
		ev = ev.Str("event", string(e.Type)).Str("job_id", e.JobID)
		if e.Type != driver.EventState && e.Type != driver.EventFinalizeFailed {
			ev = ev.Int("index", e.Index)
		}
		for k, v := range e.Fields {
			ev = ev.Interface(k, v)
		}
		ev.Msg(e.Message)
	}
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func exitWithError(err error) {
	fmt.Fprintln(os.Stderr, err)
	os.Exit(1)
}
