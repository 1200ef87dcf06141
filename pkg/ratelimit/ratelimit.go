// Package ratelimit implements a fixed-window request limiter backed by Redis.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "ratelimit:"

// INCR and PEXPIRE run atomically: a window key always expires.
var allowScript = redis.NewScript(`
local count = redis.call('INCR', KEYS[1])
if count == 1 then
	redis.call('PEXPIRE', KEYS[1], ARGV[1])
end
local ttl = redis.call('PTTL', KEYS[1])
return {count, ttl}
`)

// Result describes the outcome of a single Allow call.
type Result struct {
	Allowed   bool
	Remaining int
	ResetIn   time.Duration
}

type Limiter struct {
	client      *redis.Client
	maxRequests int
	window      time.Duration
}

func New(client *redis.Client, maxRequests int, window time.Duration) *Limiter {
	return &Limiter{
		client:      client,
		maxRequests: maxRequests,
		window:      window,
	}
}

// Allow counts one request for key in the current window.
func (l *Limiter) Allow(ctx context.Context, key string) (Result, error) {
	const op = "ratelimit.Limiter.Allow"

	vals, err := allowScript.Run(ctx, l.client, []string{keyPrefix + key}, l.window.Milliseconds()).Int64Slice()
	if err != nil {
		return Result{}, fmt.Errorf("%s: failed to run limiter script: %w", op, err)
	}

	count, ttl := vals[0], vals[1]
	if ttl < 0 {
		ttl = l.window.Milliseconds()
	}

	remaining := l.maxRequests - int(count)
	if remaining < 0 {
		remaining = 0
	}

	return Result{
		Allowed:   count <= int64(l.maxRequests),
		Remaining: remaining,
		ResetIn:   time.Duration(ttl) * time.Millisecond,
	}, nil
}
