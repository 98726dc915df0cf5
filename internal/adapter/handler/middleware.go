package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/rl1809/shopcore/internal/core/domain"
)

const (
	HeaderUsername    = "X-Username"
	HeaderIdempotency = "Idempotency-Key"
)

// HeaderRequestID carries the id chi's RequestID middleware assigns.
var HeaderRequestID = middleware.RequestIDHeader

type ctxKey string

const ctxActor ctxKey = "actor"

// echoRequestID returns the request id to the client.
func echoRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(HeaderRequestID, middleware.GetReqID(r.Context()))
		next.ServeHTTP(w, r)
	})
}

func GetRequestID(ctx context.Context) string {
	return middleware.GetReqID(ctx)
}

// zapLogFormatter plugs zap into chi's RequestLogger so access lines and
// recovered panics go through the service logger.
type zapLogFormatter struct {
	logger *zap.Logger
}

func (f *zapLogFormatter) NewLogEntry(r *http.Request) middleware.LogEntry {
	return &zapLogEntry{logger: f.logger.With(
		zap.String("request_id", middleware.GetReqID(r.Context())),
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
	)}
}

type zapLogEntry struct {
	logger *zap.Logger
}

func (e *zapLogEntry) Write(status, bytes int, _ http.Header, elapsed time.Duration, _ interface{}) {
	e.logger.Info("request",
		zap.Int("status", status),
		zap.Int("bytes", bytes),
		zap.Duration("elapsed", elapsed))
}

func (e *zapLogEntry) Panic(v interface{}, stack []byte) {
	e.logger.Error("panic",
		zap.Any("panic", v),
		zap.ByteString("stack", stack))
}

// middlewares is the stack every route runs behind.
func (h *HTTPHandler) middlewares() []func(http.Handler) http.Handler {
	return []func(http.Handler) http.Handler{
		middleware.RequestID,
		echoRequestID,
		middleware.RequestLogger(&zapLogFormatter{logger: h.logger}),
		middleware.Recoverer,
	}
}

// requireActor resolves the calling customer from the X-Username header.
func (h *HTTPHandler) requireActor(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		username := strings.TrimSpace(r.Header.Get(HeaderUsername))
		if username == "" {
			writeMessage(w, r, http.StatusUnauthorized, "missing required header: "+HeaderUsername)
			return
		}

		actor, err := h.customers.FindByUsername(username)
		if errors.Is(err, domain.ErrNotFound) {
			writeMessage(w, r, http.StatusUnauthorized, "unknown user")
			return
		}
		if err != nil {
			h.writeError(w, r, err)
			return
		}

		ctx := context.WithValue(r.Context(), ctxActor, actor)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (h *HTTPHandler) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !actorFrom(r.Context()).IsAdmin() {
			h.writeError(w, r, domain.ErrForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func actorFrom(ctx context.Context) domain.Customer {
	actor, _ := ctx.Value(ctxActor).(domain.Customer)
	return actor
}
