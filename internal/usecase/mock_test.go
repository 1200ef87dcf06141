package usecase

import (
	"context"
	"sync"

	"github.com/stretchr/testify/mock"
	"github.com/vadimbarashkov/shortlink/internal/entity"
)

type urlRepositoryMock struct {
	mock.Mock
}

func (m *urlRepositoryMock) Save(ctx context.Context, url *entity.URL) (*entity.URL, error) {
	args := m.Called(ctx, url)
	saved, _ := args.Get(0).(*entity.URL)
	return saved, args.Error(1)
}

func (m *urlRepositoryMock) RetrieveByShortCode(ctx context.Context, shortCode string) (*entity.URL, error) {
	args := m.Called(ctx, shortCode)
	url, _ := args.Get(0).(*entity.URL)
	return url, args.Error(1)
}

func (m *urlRepositoryMock) IncrementVisits(ctx context.Context, shortCode string) error {
	args := m.Called(ctx, shortCode)
	return args.Error(0)
}

// sequenceGenerator hands out codes in order and repeats the last one.
type sequenceGenerator struct {
	mu    sync.Mutex
	codes []string
	err   error
}

func (g *sequenceGenerator) Generate() (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.err != nil {
		return "", g.err
	}

	code := g.codes[0]
	if len(g.codes) > 1 {
		g.codes = g.codes[1:]
	}
	return code, nil
}

type visitRecorderMock struct {
	mock.Mock
}

func (m *visitRecorderMock) Record(shortCode string) {
	m.Called(shortCode)
}

// blockingRepository waits for the caller's deadline on every call.
type blockingRepository struct{}

func (blockingRepository) Save(ctx context.Context, _ *entity.URL) (*entity.URL, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func (blockingRepository) RetrieveByShortCode(ctx context.Context, _ string) (*entity.URL, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func (blockingRepository) IncrementVisits(ctx context.Context, _ string) error {
	<-ctx.Done()
	return ctx.Err()
}
