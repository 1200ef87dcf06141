package http

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"strconv"

	"github.com/go-chi/httplog/v2"
	"github.com/go-chi/render"
	"github.com/vadimbarashkov/shortlink/pkg/ratelimit"
)

type peerAddrKey struct{}

// rememberPeer stores the socket address before RealIP rewrites RemoteAddr
// from forwarding headers.
func rememberPeer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := context.WithValue(r.Context(), peerAddrKey{}, r.RemoteAddr)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

type rateLimiter interface {
	Allow(ctx context.Context, key string) (ratelimit.Result, error)
}

// limitByIP rejects clients that exceed the limiter's budget. Clients are keyed
// by socket address unless trustProxy is set. Requests pass through when the
// limiter itself fails.
func limitByIP(limiter rateLimiter, trustProxy bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			res, err := limiter.Allow(r.Context(), clientIP(r, trustProxy))
			if err != nil {
				httplog.LogEntrySetField(r.Context(), "rate_limit_err", slog.AnyValue(err))
				next.ServeHTTP(w, r)
				return
			}

			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))

			if !res.Allowed {
				w.Header().Set("Retry-After", strconv.Itoa(int(res.ResetIn.Seconds())+1))
				render.Status(r, http.StatusTooManyRequests)
				render.JSON(w, r, tooManyRequestsResponse)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func clientIP(r *http.Request, trustProxy bool) string {
	addr := r.RemoteAddr
	if !trustProxy {
		if peer, ok := r.Context().Value(peerAddrKey{}).(string); ok {
			addr = peer
		}
	}

	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return addr
	}
	return host
}
