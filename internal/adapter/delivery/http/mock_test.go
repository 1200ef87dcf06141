package http

import (
	"context"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/vadimbarashkov/shortlink/internal/entity"
	"github.com/vadimbarashkov/shortlink/pkg/ratelimit"
)

type urlUseCaseMock struct {
	mock.Mock
}

func (m *urlUseCaseMock) ShortenURL(ctx context.Context, originalURL string) (*entity.URL, error) {
	args := m.Called(ctx, originalURL)
	url, _ := args.Get(0).(*entity.URL)
	return url, args.Error(1)
}

func (m *urlUseCaseMock) ResolveShortCode(ctx context.Context, shortCode string) (*entity.URL, error) {
	args := m.Called(ctx, shortCode)
	url, _ := args.Get(0).(*entity.URL)
	return url, args.Error(1)
}

func (m *urlUseCaseMock) GetURLStats(ctx context.Context, shortCode string) (*entity.URL, error) {
	args := m.Called(ctx, shortCode)
	url, _ := args.Get(0).(*entity.URL)
	return url, args.Error(1)
}

type rateLimiterMock struct {
	mock.Mock
}

func (m *rateLimiterMock) Allow(ctx context.Context, key string) (ratelimit.Result, error) {
	args := m.Called(ctx, key)
	return args.Get(0).(ratelimit.Result), args.Error(1)
}

// perKeyLimiter allows max requests per key and remembers every key it saw.
type perKeyLimiter struct {
	mu     sync.Mutex
	max    int
	counts map[string]int
}

func newPerKeyLimiter(max int) *perKeyLimiter {
	return &perKeyLimiter{max: max, counts: make(map[string]int)}
}

func (l *perKeyLimiter) Allow(_ context.Context, key string) (ratelimit.Result, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.counts[key]++
	remaining := l.max - l.counts[key]
	if remaining < 0 {
		remaining = 0
	}

	return ratelimit.Result{
		Allowed:   l.counts[key] <= l.max,
		Remaining: remaining,
		ResetIn:   time.Minute,
	}, nil
}

func (l *perKeyLimiter) keys() map[string]int {
	l.mu.Lock()
	defer l.mu.Unlock()

	keys := make(map[string]int, len(l.counts))
	for k, v := range l.counts {
		keys[k] = v
	}
	return keys
}
