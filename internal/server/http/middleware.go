package http

import (
	"context"
	"net/http"
	"time"

	"github.com/dmitrijs2005/labandina/internal/common"
	"github.com/dmitrijs2005/labandina/internal/server/auth"
	"github.com/dmitrijs2005/labandina/internal/server/metrics"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

type ctxKey string

const ctxKeyRequestID ctxKey = "request_id"

const requestIDHeader = "X-Request-Id"

func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := r.Header.Get(requestIDHeader)
		if reqID == "" {
			reqID = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, reqID)
		ctx := context.WithValue(r.Context(), ctxKeyRequestID, reqID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func requestIDFromContext(ctx context.Context) string {
	if s, ok := ctx.Value(ctxKeyRequestID).(string); ok {
		return s
	}
	return ""
}

func (h *Handler) recoverMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				h.logger.Error(r.Context(), "panic recovered",
					"request_id", requestIDFromContext(r.Context()),
					"method", r.Method,
					"path", r.URL.Path,
					"panic", rec,
				)
				writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
	bytes      int
}

func (r *statusRecorder) WriteHeader(statusCode int) {
	if r.statusCode == 0 {
		r.statusCode = statusCode
	}
	r.ResponseWriter.WriteHeader(statusCode)
}

func (r *statusRecorder) Write(payload []byte) (int, error) {
	if r.statusCode == 0 {
		r.statusCode = http.StatusOK
	}
	n, err := r.ResponseWriter.Write(payload)
	r.bytes += n
	return n, err
}

// loggingMiddleware writes one access log line per request and feeds the
// HTTP metrics, labelled with the matched route pattern.
func (h *Handler) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := &statusRecorder{ResponseWriter: w}
		next.ServeHTTP(recorder, r)

		statusCode := recorder.statusCode
		if statusCode == 0 {
			statusCode = http.StatusOK
		}
		elapsed := time.Since(start)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		h.metrics.ObserveHTTP(route, r.Method, statusCode, elapsed)

		fields := []any{
			"method", r.Method,
			"path", r.URL.Path,
			"route", route,
			"status_code", statusCode,
			"bytes", recorder.bytes,
			"duration_ms", elapsed.Milliseconds(),
			"request_id", requestIDFromContext(r.Context()),
		}
		if id, ok := auth.IdentityFromContext(r.Context()); ok {
			fields = append(fields, "user_id", id)
		}
		switch {
		case statusCode >= 500:
			h.logger.Error(r.Context(), "http request completed", fields...)
		case statusCode >= 400:
			h.logger.Warn(r.Context(), "http request completed", fields...)
		default:
			h.logger.Info(r.Context(), "http request completed", fields...)
		}
	})
}

// authMiddleware admits requests carrying a valid, unrevoked bearer token and
// stores its claims in the request context.
func (h *Handler) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		raw, ok, err := auth.BearerToken(r.Header.Get(common.AuthorizationHeaderName))
		if !ok {
			h.rejectCredential(w, r, common.ErrUnauthenticated)
			return
		}
		if err != nil {
			h.rejectCredential(w, r, err)
			return
		}

		claims, err := h.authority.Claims(raw)
		if err != nil {
			h.rejectCredential(w, r, err)
			return
		}

		if h.revocations != nil && claims.ID != "" {
			revoked, err := h.revocations.IsRevoked(ctx, claims.ID)
			if err != nil {
				writeMappedError(ctx, h.logger, w, "revocation_check", err)
				return
			}
			if revoked {
				h.rejectCredential(w, r, common.ErrTokenRevoked)
				return
			}
		}

		next.ServeHTTP(w, r.WithContext(auth.WithClaims(ctx, claims)))
	})
}

// rejectCredential answers 401. The failure kind is logged and counted but
// never told to the client.
func (h *Handler) rejectCredential(w http.ResponseWriter, r *http.Request, err error) {
	reason := metrics.FailureReason(err)
	h.metrics.AuthFailure(reason)
	h.logger.Warn(r.Context(), "authentication failed",
		"reason", reason,
		"error", err.Error(),
		"path", r.URL.Path,
		"request_id", requestIDFromContext(r.Context()),
	)

	if reason == metrics.ReasonMissing {
		w.Header().Set("WWW-Authenticate", `Bearer`)
		writeError(w, http.StatusUnauthorized, "UNAUTHENTICATED", "authentication required")
		return
	}
	w.Header().Set("WWW-Authenticate", `Bearer error="invalid_token"`)
	writeError(w, http.StatusUnauthorized, "AUTHENTICATION_FAILED", "could not validate credentials")
}

// identity returns the caller of an authenticated route. The auth middleware
// guarantees presence; a missing identity means a routing mistake.
func identity(r *http.Request) string {
	id, _ := auth.IdentityFromContext(r.Context())
	return id
}
