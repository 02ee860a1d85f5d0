package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"descriptai/internal/http/handlers"
	"descriptai/internal/middleware"
)

func NewRouter(app *handlers.App) http.Handler {
	r := chi.NewRouter()

	perMinute := 240
	var origins []string
	secret, issuer := "", ""
	if app.Config != nil {
		if app.Config.RateLimitPerMin > 0 {
			perMinute = app.Config.RateLimitPerMin
		}
		origins = app.Config.CORSOrigins
		secret, issuer = app.Config.JWTSecret, app.Config.JWTIssuer
	}

	r.Use(
		middleware.RequestID,
		chimw.RealIP,
		chimw.Recoverer,
		middleware.Logger(app.Logger),
		middleware.CORS(origins),
		middleware.I18N("en", app.CountryLookup),
	)

	r.Get("/v1/healthz", app.Health)
	r.Get("/v1/openapi.json", app.OpenAPIJSON)
	r.Get("/v1/docs", app.OpenAPIDocs)
	r.Method(http.MethodGet, "/metrics", app.MetricsHandler())

	r.Group(func(r chi.Router) {
		r.Use(middleware.RateLimit(middleware.NewMemoryLimiter(perMinute, time.Minute), middleware.ByClientIP, onLimited(app, "ip")))
		r.Use(middleware.AuthJWT(secret, issuer))

		r.Get("/v1/user/credits", app.UserCredits)

		r.Route("/v1/voices", func(r chi.Router) {
			r.Get("/", app.ListVoices)
			r.Post("/", app.CreateVoice)
			r.Get("/{voiceId}", app.GetVoice)
			r.Put("/{voiceId}", app.UpdateVoice)
			r.Delete("/{voiceId}", app.DeleteVoice)
		})

		r.Route("/v1/bulk", func(r chi.Router) {
			r.Post("/upload", app.Upload)
			r.Post("/upload-images", app.UploadImages)
			r.Post("/process", app.LegacyProcess)
			r.With(chunkLimit(app, app.ChunkLimiter, "chunk")).Post("/process-chunk", app.ProcessChunk)
			r.With(chunkLimit(app, app.ImageLimiter, "image_chunk")).Post("/process-image-chunk", app.ProcessImageChunk)
			r.Get("/status/{jobId}", app.JobStatus)
			r.Patch("/status/{jobId}", app.UpdateJobStatus)
			r.Get("/jobs/{jobId}/descriptions", app.JobDescriptions)
		})
	})

	return r
}

func chunkLimit(app *handlers.App, limiter middleware.Limiter, scope string) func(http.Handler) http.Handler {
	if limiter == nil {
		return func(next http.Handler) http.Handler { return next }
	}
	return middleware.RateLimit(limiter, middleware.ByUser(scope), onLimited(app, scope))
}

func onLimited(app *handlers.App, scope string) func(*http.Request) {
	return func(*http.Request) { app.Metrics.RateLimited(scope) }
}
