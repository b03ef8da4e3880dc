package httputil

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/medstock/medstock-backend/pkg/errors"
	"github.com/medstock/medstock-backend/pkg/logger"
	"github.com/medstock/medstock-backend/pkg/messaging"
)

type contextKey string

const (
	RequestIDKey  contextKey = "request_id"
	AdminEmailKey contextKey = "admin_email"
	loggerKey     contextKey = "logger"
)

// RequestID middleware adds a request ID to each request and reuses it as
// the correlation id of any event published while serving it.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = uuid.New().String()
		}

		ctx := context.WithValue(r.Context(), RequestIDKey, requestID)
		ctx = messaging.WithCorrelationID(ctx, requestID)
		w.Header().Set("X-Request-ID", requestID)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// Logger middleware logs HTTP requests and makes a request scoped logger
// available through LoggerFromContext.
func Logger(log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			reqLog := log.WithRequestID(GetRequestID(r.Context()))
			ctx := context.WithValue(r.Context(), loggerKey, reqLog)

			wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

			next.ServeHTTP(wrapped, r.WithContext(ctx))

			reqLog.Info().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", wrapped.statusCode).
				Dur("duration", time.Since(start)).
				Str("admin", GetAdminEmail(ctx)).
				Str("remote_addr", r.RemoteAddr).
				Msg("HTTP request")
		})
	}
}

// Recoverer middleware recovers from panics
func Recoverer(log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					log.Error().
						Interface("panic", err).
						Str("request_id", GetRequestID(r.Context())).
						Str("path", r.URL.Path).
						Msg("panic recovered")

					JSON(w, http.StatusInternalServerError, nil)
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}

// TokenVerifier validates a bearer token and returns the admin it was issued to.
type TokenVerifier interface {
	VerifyToken(token string) (string, error)
}

// Authenticate rejects requests without a valid "Authorization: Bearer" token.
func Authenticate(verifier TokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			token, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || token == "" {
				Error(w, r, errors.Unauthorized("missing bearer token"))
				return
			}

			email, err := verifier.VerifyToken(token)
			if err != nil {
				Error(w, r, err)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithAdmin(r.Context(), email)))
		})
	}
}

type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// GetRequestID retrieves the request ID from context
func GetRequestID(ctx context.Context) string {
	if id, ok := ctx.Value(RequestIDKey).(string); ok {
		return id
	}
	return ""
}

// WithAdmin stores the authenticated admin's email on the context
func WithAdmin(ctx context.Context, email string) context.Context {
	return context.WithValue(ctx, AdminEmailKey, email)
}

// GetAdminEmail retrieves the authenticated admin's email from context
func GetAdminEmail(ctx context.Context) string {
	if email, ok := ctx.Value(AdminEmailKey).(string); ok {
		return email
	}
	return ""
}

// LoggerFromContext returns the request scoped logger, or a no-op logger.
func LoggerFromContext(ctx context.Context) *logger.Logger {
	if log, ok := ctx.Value(loggerKey).(*logger.Logger); ok {
		return log
	}
	return logger.Nop()
}
