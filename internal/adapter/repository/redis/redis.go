// Package redis implements the URL repository on Redis hashes.
//
// Each URL lives in the hash "url:<short_code>". Conditional inserts and visit
// increments run as Lua scripts, which Redis executes atomically.
package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/vadimbarashkov/shortlink/internal/entity"
)

const keyPrefix = "url:"

const (
	fieldOriginalURL = "original_url"
	fieldVisits      = "visits"
	fieldCreatedAt   = "created_at"
)

var saveScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 1 then
	return 0
end
redis.call('HSET', KEYS[1], 'original_url', ARGV[1], 'visits', 0, 'created_at', ARGV[2])
return 1
`)

var incrementScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 0 then
	return -1
end
return redis.call('HINCRBY', KEYS[1], 'visits', 1)
`)

func key(shortCode string) string {
	return keyPrefix + shortCode
}

type URLRepository struct {
	client *redis.Client
}

func NewURLRepository(client *redis.Client) *URLRepository {
	return &URLRepository{client: client}
}

func (r *URLRepository) Save(ctx context.Context, url *entity.URL) (*entity.URL, error) {
	const op = "adapter.repository.redis.URLRepository.Save"

	created, err := saveScript.Run(ctx, r.client,
		[]string{key(url.ShortCode)},
		url.OriginalURL, url.CreatedAt.UnixNano(),
	).Int()
	if err != nil {
		return nil, fmt.Errorf("%s: failed to run save script: %w", op, err)
	}

	if created == 0 {
		return nil, fmt.Errorf("%s: %w", op, entity.ErrShortCodeExists)
	}

	return &entity.URL{
		ShortCode:   url.ShortCode,
		OriginalURL: url.OriginalURL,
		CreatedAt:   time.Unix(0, url.CreatedAt.UnixNano()).UTC(),
	}, nil
}

func (r *URLRepository) RetrieveByShortCode(ctx context.Context, shortCode string) (*entity.URL, error) {
	const op = "adapter.repository.redis.URLRepository.RetrieveByShortCode"

	fields, err := r.client.HGetAll(ctx, key(shortCode)).Result()
	if err != nil {
		return nil, fmt.Errorf("%s: failed to get hash: %w", op, err)
	}

	if len(fields) == 0 {
		return nil, fmt.Errorf("%s: %w", op, entity.ErrURLNotFound)
	}

	url, err := fromHash(shortCode, fields)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return url, nil
}

func (r *URLRepository) IncrementVisits(ctx context.Context, shortCode string) error {
	const op = "adapter.repository.redis.URLRepository.IncrementVisits"

	visits, err := incrementScript.Run(ctx, r.client, []string{key(shortCode)}).Int64()
	if err != nil {
		return fmt.Errorf("%s: failed to run increment script: %w", op, err)
	}

	if visits < 0 {
		return fmt.Errorf("%s: %w", op, entity.ErrURLNotFound)
	}

	return nil
}

var errCorruptedRecord = errors.New("corrupted url record")

func fromHash(shortCode string, fields map[string]string) (*entity.URL, error) {
	visits, err := strconv.ParseInt(fields[fieldVisits], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: visits: %w", errCorruptedRecord, err)
	}

	createdAt, err := strconv.ParseInt(fields[fieldCreatedAt], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: created_at: %w", errCorruptedRecord, err)
	}

	return &entity.URL{
		ShortCode:   shortCode,
		OriginalURL: fields[fieldOriginalURL],
		URLStats: entity.URLStats{
			Visits: visits,
		},
		CreatedAt: time.Unix(0, createdAt).UTC(),
	}, nil
}
