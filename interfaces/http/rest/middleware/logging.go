package middleware

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// requestAuth is a slot the logger plants on the request context so
// the inner auth middleware can report who the request belonged to.
// The logger runs outside the auth group and never sees the context
// the auth middleware derives.
type requestAuth struct {
	uid string
}

type requestAuthKey struct{}

func markAuthenticatedUser(ctx context.Context, uid string) {
	if ra, ok := ctx.Value(requestAuthKey{}).(*requestAuth); ok {
		ra.uid = uid
	}
}

// Logger creates a logging middleware
func Logger(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			ra := &requestAuth{}
			r = r.WithContext(context.WithValue(r.Context(), requestAuthKey{}, ra))

			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			fields := []zap.Field{
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Int("bytes", ww.BytesWritten()),
				zap.Duration("duration", time.Since(start)),
				zap.String("requestID", middleware.GetReqID(r.Context())),
				zap.String("remoteAddr", r.RemoteAddr),
			}
			if ra.uid != "" {
				fields = append(fields, zap.String("uid", ra.uid))
			}
			logger.Info("HTTP Request", fields...)
		})
	}
}
