package middleware

import (
	"context"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

type accessLogKey struct{}

// accessLog collects fields set by inner middleware, such as the
// authenticated user, so the outer access log line can include them.
type accessLog struct {
	userID string
	jobID  string
}

type responseWriter struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	n, err := rw.ResponseWriter.Write(b)
	rw.bytes += n
	return n, err
}

func (rw *responseWriter) Unwrap() http.ResponseWriter { return rw.ResponseWriter }

// Logger writes one access log line per request. Chunk calls that hit the
// rate limiter log at warn so throttled drivers show up without noise.
func Logger(l zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			fields := &accessLog{}
			rw := &responseWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rw, r.WithContext(context.WithValue(r.Context(), accessLogKey{}, fields)))

			var evt *zerolog.Event
			switch {
			case rw.status >= 500:
				evt = l.Error()
			case rw.status == http.StatusTooManyRequests:
				evt = l.Warn()
			case r.URL.Path == "/v1/healthz" || r.URL.Path == "/metrics":
				evt = l.Debug()
			default:
				evt = l.Info()
			}
			if fields.userID != "" {
				evt = evt.Str("user_id", fields.userID)
			}
			if fields.jobID != "" {
				evt = evt.Str("job_id", fields.jobID)
			}
			evt.
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", rw.status).
				Int("bytes", rw.bytes).
				Str("remote_ip", ClientIP(r)).
				Dur("took", time.Since(start)).
				Str("request_id", RequestIDFromContext(r.Context())).
				Msg("request")
		})
	}
}

// AnnotateUser records the user on the access log line of the request.
func AnnotateUser(ctx context.Context, userID string) {
	if f, ok := ctx.Value(accessLogKey{}).(*accessLog); ok {
		f.userID = userID
	}
}

// AnnotateJob records the job on the access log line of the request.
func AnnotateJob(ctx context.Context, jobID string) {
	if f, ok := ctx.Value(accessLogKey{}).(*accessLog); ok {
		f.jobID = jobID
	}
}
