package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"descriptai/internal/adapter/repo"
	"descriptai/internal/bulk"
	"descriptai/internal/http/handlers"
	httpapi "descriptai/internal/http/httpapi"
	"descriptai/internal/infra"
	"descriptai/internal/infra/credentials"
	"descriptai/internal/infra/geoip"
	"descriptai/internal/metrics"
	"descriptai/internal/middleware"
	"descriptai/internal/providers/textgen"
	"descriptai/internal/providers/vision"
	"descriptai/internal/storage"
)

func main() {
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv)

	ctx := context.Background()
	dbpool, err := infra.NewDBPool(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect database")
	}
	defer dbpool.Close()

	m := metrics.New()
	runner := infra.NewSQLRunner(dbpool, logger)
	runner.Observe = m.ObserveSQL
	jobs := repo.NewJobRepository(runner)
	artifacts := repo.NewArtifactRepository(runner)
	creditRepo := repo.NewCreditRepository(runner)
	voices := repo.NewBrandVoiceRepository(runner)
	keys := credentials.NewStore(runner)

	groqKey, err := keys.Resolve(ctx, credentials.ProviderGroq, cfg.GroqAPIKey)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to resolve groq api key")
	}
	text, err := textgen.New(textgen.Options{
		APIKey:  groqKey,
		Model:   cfg.GroqModel,
		BaseURL: cfg.GroqBaseURL,
		OnWarning: func(reason, detail string) {
			logger.Warn().Str("reason", reason).Str("detail", detail).Msg("textgen model")
		},
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to init text generation")
	}

	var analyzer bulk.ImageAnalyzer
	geminiKey, err := keys.Resolve(ctx, credentials.ProviderGemini, cfg.GeminiAPIKey)
	if err != nil {
		logger.Warn().Err(err).Msg("failed to resolve gemini api key")
	}
	if geminiKey != "" {
		vc, err := vision.New(vision.Options{APIKey: geminiKey, Model: cfg.GeminiModel, BaseURL: cfg.GeminiBaseURL})
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to init image analysis")
		}
		analyzer = vc
	} else {
		logger.Warn().Msg("no gemini api key, image chunks will fail")
	}

	images, err := openObjectStore(ctx, cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to init storage")
	}

	app := &handlers.App{
		Config: cfg,
		Logger: logger,
		Gate: bulk.NewUploadGate(bulk.GateDeps{
			Jobs:    jobs,
			Credits: creditRepo,
			Voices:  voices,
			Limits:  bulk.Limits{MaxTextItems: cfg.MaxTextItems, MaxImageItems: cfg.MaxImageItems},
			Metrics: m,
			Logger:  logger,
		}),
		Chunks: bulk.NewChunkProcessor(bulk.ProcessorDeps{
			Jobs:          jobs,
			Artifacts:     artifacts,
			Credits:       creditRepo,
			Voices:        voices,
			Text:          text,
			Vision:        analyzer,
			Images:        images,
			MaxImageBytes: cfg.MaxImageBytes,
			Metrics:       m,
			Logger:        logger,
		}),
		Status:  bulk.NewStatusSync(jobs, artifacts, m, logger),
		Credits: bulk.NewCredits(creditRepo),
		Voices:  bulk.NewVoices(voices),
		Metrics: m,
		Ping:    dbpool.Ping,
		Started: time.Now(),
	}

	rdb, err := infra.NewRedisClient(ctx, cfg.RedisURL)
	if err != nil {
		logger.Warn().Err(err).Msg("redis unavailable, using in-process rate limits")
	}
	if rdb != nil {
		defer rdb.Close()
		app.ChunkLimiter = middleware.NewRedisLimiter(rdb, cfg.ChunkRatePerMin, time.Minute, "rl:chunk:")
		app.ImageLimiter = middleware.NewRedisLimiter(rdb, cfg.ImageRatePerMin, time.Minute, "rl:image:")
		app.CachePing = func(ctx context.Context) error { return rdb.Ping(ctx).Err() }
	} else {
		app.ChunkLimiter = middleware.NewMemoryLimiter(cfg.ChunkRatePerMin, time.Minute)
		app.ImageLimiter = middleware.NewMemoryLimiter(cfg.ImageRatePerMin, time.Minute)
	}

	countries, err := geoip.Open(cfg.GeoIPDBPath)
	if err != nil {
		logger.Warn().Err(err).Msg("geoip disabled")
	}
	if countries != nil {
		defer countries.Close()
		app.CountryLookup = countries.CountryCode
	}

	router := httpapi.NewRouter(app)
	server := infra.NewHTTPServer(cfg, router)

	go func() {
		logger.Info().Msgf("API listening on :%s", cfg.Port)
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPIdleTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("failed to shutdown server")
	}
	logger.Info().Msg("server stopped")
}

func openObjectStore(ctx context.Context, cfg *infra.Config, logger infra.Logger) (storage.ObjectStore, error) {
	if cfg.StorageDriver == "s3" {
		return storage.NewS3Store(ctx, storage.S3Options{
			Bucket:          cfg.S3Bucket,
			Region:          cfg.S3Region,
			Endpoint:        cfg.S3Endpoint,
			AccessKeyID:     cfg.S3AccessKeyID,
			SecretAccessKey: cfg.S3SecretKey,
		})
	}
	fs, err := storage.NewFileStore(cfg.StoragePath)
	if err != nil {
		return nil, err
	}
	logger.Info().Str("root", fs.Root()).Msg("storing source images on local disk")
	return fs, nil
}
