package http

import (
	"context"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/sagarc03/boxgate/ratelimit"
)

// TokenParam is the query parameter carrying the access token.
const TokenParam = "t"

// Authorizer decides whether a request token is valid.
type Authorizer interface {
	Authorize(token string) bool
}

type ctxKey int

const clientKey ctxKey = iota

// ClientFromContext returns the client identity set by ClientMiddleware.
func ClientFromContext(ctx context.Context) string {
	if c, ok := ctx.Value(clientKey).(string); ok {
		return c
	}
	return ratelimit.UnknownClient
}

// ClientMiddleware resolves the client identity once per request. Proxy
// headers are honoured only when trustProxy is set.
func ClientMiddleware(trustProxy bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := context.WithValue(r.Context(), clientKey, ratelimit.ClientIP(r, trustProxy))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// redactedURI returns the request URI with the token value masked.
func redactedURI(r *http.Request) string {
	q := r.URL.Query()
	if !q.Has(TokenParam) {
		return r.URL.RequestURI()
	}
	q.Set(TokenParam, "REDACTED")
	u := *r.URL
	u.RawQuery = q.Encode()
	return u.RequestURI()
}

// RequestLogger logs one line per request. The token is never logged.
func RequestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		level := slog.LevelInfo
		if status >= http.StatusInternalServerError {
			level = slog.LevelError
		}

		slog.Log(r.Context(), level, "request",
			"method", r.Method,
			"path", redactedURI(r),
			"status", status,
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start),
			"client", ClientFromContext(r.Context()),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

// Preflight answers every OPTIONS request with 204 so that preflights are
// never counted against a client's rate limit.
func Preflight(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeTooMany(w http.ResponseWriter, code string, d ratelimit.Decision) {
	secs := int64(math.Ceil(d.RetryAfter.Seconds()))
	w.Header().Set("Retry-After", strconv.FormatInt(max(secs, 1), 10))
	WriteError(w, http.StatusTooManyRequests, code)
}

// RateLimitMiddleware counts every request in the client's global window and
// rejects with 429 rate_limited once the limit is exceeded. A nil limiter
// disables the check.
func RateLimitMiddleware(limiter *ratelimit.Limiter, now func() time.Time, metrics *Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if limiter == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			d, err := limiter.AllowRequest(r.Context(), ClientFromContext(r.Context()), now())
			if err != nil {
				HandleError(w, r, err)
				return
			}
			if !d.Allowed {
				metrics.rejected(CodeRateLimited)
				writeTooMany(w, CodeRateLimited, d)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// AuthMiddleware checks the token query parameter. A client that is locked
// out is rejected before its token is looked at. Each failed attempt is
// counted in the unauthorized window; the attempt that trips it already
// receives too_many_unauthorized.
func AuthMiddleware(auth Authorizer, limiter *ratelimit.Limiter, now func() time.Time, metrics *Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			client := ClientFromContext(r.Context())

			if limiter != nil {
				d, err := limiter.LockedOut(r.Context(), client, now())
				if err != nil {
					HandleError(w, r, err)
					return
				}
				if !d.Allowed {
					metrics.rejected(CodeTooManyUnauthorized)
					writeTooMany(w, CodeTooManyUnauthorized, d)
					return
				}
			}

			if auth != nil && auth.Authorize(r.URL.Query().Get(TokenParam)) {
				next.ServeHTTP(w, r)
				return
			}

			if limiter != nil {
				d, err := limiter.RecordUnauthorized(r.Context(), client, now())
				if err != nil {
					HandleError(w, r, err)
					return
				}
				if !d.Allowed {
					metrics.rejected(CodeTooManyUnauthorized)
					writeTooMany(w, CodeTooManyUnauthorized, d)
					return
				}
			}

			slog.DebugContext(r.Context(), "unauthorized request", "client", client, "path", r.URL.Path)
			WriteError(w, http.StatusUnauthorized, CodeUnauthorized)
		})
	}
}
