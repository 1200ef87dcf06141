package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/vadimbarashkov/shortlink/internal/entity"
)

// ErrMaxRetriesExceeded is returned when every allocation attempt hit an existing short code.
var ErrMaxRetriesExceeded = errors.New("maximum retries exceeded for generating short code")

const (
	defaultMaxAttempts  = 5
	defaultStoreTimeout = 3 * time.Second
)

// URLRepository is the mapping store used by the use cases.
type URLRepository interface {
	// Save inserts url only if no record with the same short code exists.
	// It returns entity.ErrShortCodeExists when the code is taken.
	Save(ctx context.Context, url *entity.URL) (*entity.URL, error)
	// RetrieveByShortCode returns the record for shortCode or entity.ErrURLNotFound.
	RetrieveByShortCode(ctx context.Context, shortCode string) (*entity.URL, error)
	// IncrementVisits atomically adds one visit or returns entity.ErrURLNotFound.
	IncrementVisits(ctx context.Context, shortCode string) error
}

type codeGenerator interface {
	Generate() (string, error)
}

type visitRecorder interface {
	Record(shortCode string)
}

type URLUseCase struct {
	urlRepo      URLRepository
	generator    codeGenerator
	visits       visitRecorder
	logger       *slog.Logger
	maxAttempts  int
	storeTimeout time.Duration
	now          func() time.Time
}

type Option func(*URLUseCase)

func WithMaxAttempts(n int) Option {
	return func(uc *URLUseCase) {
		if n > 0 {
			uc.maxAttempts = n
		}
	}
}

func WithStoreTimeout(d time.Duration) Option {
	return func(uc *URLUseCase) {
		if d > 0 {
			uc.storeTimeout = d
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(uc *URLUseCase) {
		if logger != nil {
			uc.logger = logger
		}
	}
}

func New(urlRepo URLRepository, generator codeGenerator, visits visitRecorder, opts ...Option) *URLUseCase {
	uc := &URLUseCase{
		urlRepo:      urlRepo,
		generator:    generator,
		visits:       visits,
		logger:       slog.Default(),
		maxAttempts:  defaultMaxAttempts,
		storeTimeout: defaultStoreTimeout,
		now:          time.Now,
	}

	for _, opt := range opts {
		opt(uc)
	}

	return uc
}

// ShortenURL validates originalURL and stores it under a freshly allocated short code.
// Uniqueness is guaranteed by the repository's conditional insert; a taken code
// is discarded and a new one is drawn, up to the configured number of attempts.
func (uc *URLUseCase) ShortenURL(ctx context.Context, originalURL string) (*entity.URL, error) {
	const op = "usecase.URLUseCase.ShortenURL"

	if originalURL == "" || !entity.IsValidURL(originalURL) {
		return nil, fmt.Errorf("%s: %w", op, entity.ErrInvalidURL)
	}

	for attempt := 1; attempt <= uc.maxAttempts; attempt++ {
		shortCode, err := uc.generator.Generate()
		if err != nil {
			return nil, fmt.Errorf("%s: failed to generate short code: %w", op, err)
		}

		url, err := uc.save(ctx, &entity.URL{
			ShortCode:   shortCode,
			OriginalURL: originalURL,
			CreatedAt:   uc.now().UTC(),
		})
		if err != nil {
			if errors.Is(err, entity.ErrShortCodeExists) {
				uc.logger.Warn("short code collision",
					slog.String("op", op),
					slog.String("short_code", shortCode),
					slog.Int("attempt", attempt),
				)
				continue
			}

			return nil, fmt.Errorf("%s: failed to shorten url: %w: %w", op, entity.ErrStorage, err)
		}

		return url, nil
	}

	uc.logger.Error("short code allocation exhausted",
		slog.String("op", op),
		slog.Int("attempts", uc.maxAttempts),
	)

	return nil, fmt.Errorf("%s: %w", op, ErrMaxRetriesExceeded)
}

func (uc *URLUseCase) save(ctx context.Context, url *entity.URL) (*entity.URL, error) {
	ctx, cancel := context.WithTimeout(ctx, uc.storeTimeout)
	defer cancel()

	return uc.urlRepo.Save(ctx, url)
}

// ResolveShortCode returns the URL stored under shortCode and records a visit.
// The visit is handed to the visit recorder, so the caller does not wait on
// the counter update before redirecting.
func (uc *URLUseCase) ResolveShortCode(ctx context.Context, shortCode string) (*entity.URL, error) {
	const op = "usecase.URLUseCase.ResolveShortCode"

	url, err := uc.retrieve(ctx, shortCode)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to resolve short code: %w", op, err)
	}

	uc.visits.Record(url.ShortCode)

	return url, nil
}

// GetURLStats returns the URL stored under shortCode without counting a visit.
func (uc *URLUseCase) GetURLStats(ctx context.Context, shortCode string) (*entity.URL, error) {
	const op = "usecase.URLUseCase.GetURLStats"

	url, err := uc.retrieve(ctx, shortCode)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to get url stats: %w", op, err)
	}

	return url, nil
}

func (uc *URLUseCase) retrieve(ctx context.Context, shortCode string) (*entity.URL, error) {
	if shortCode == "" {
		return nil, entity.ErrURLNotFound
	}

	ctx, cancel := context.WithTimeout(ctx, uc.storeTimeout)
	defer cancel()

	url, err := uc.urlRepo.RetrieveByShortCode(ctx, shortCode)
	if err != nil {
		if errors.Is(err, entity.ErrURLNotFound) {
			return nil, err
		}

		return nil, fmt.Errorf("%w: %w", entity.ErrStorage, err)
	}

	return url, nil
}
