package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"messagely/internal/platform/metrics"

	chiMiddleware "github.com/go-chi/chi/v5/middleware"
)

const requestUserCtxKey contextKey = "requestUser"

// requestUser is filled in by Authenticator further down the chain so the
// access log can name the caller.
type requestUser struct {
	username string
}

func noteRequestUser(ctx context.Context, username string) {
	if ru, ok := ctx.Value(requestUserCtxKey).(*requestUser); ok {
		ru.username = username
	}
}

// NewLoggingMiddleware logs one structured line per request and counts it.
func NewLoggingMiddleware(logger *slog.Logger, rec metrics.Recorder) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			ru := &requestUser{}

			next.ServeHTTP(ww, r.WithContext(context.WithValue(r.Context(), requestUserCtxKey, ru)))

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			rec.RecordHTTPRequest(r.Method, status)

			args := []any{
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", status),
				slog.Float64("duration_ms", float64(time.Since(start).Nanoseconds())/float64(time.Millisecond)),
				slog.String("request_id", chiMiddleware.GetReqID(r.Context())),
			}
			if ru.username != "" {
				args = append(args, slog.String("username", ru.username))
			}

			level := slog.LevelInfo
			if status >= 500 {
				level = slog.LevelError
			} else if status >= 400 {
				level = slog.LevelWarn
			}
			logger.Log(r.Context(), level, "http_request", args...)
		})
	}
}
