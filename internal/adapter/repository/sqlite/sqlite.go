// Package sqlite implements the URL repository on an embedded SQLite database through GORM.
package sqlite

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/vadimbarashkov/shortlink/internal/entity"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	gormlogger "gorm.io/gorm/logger"
)

type urlModel struct {
	ID          uint      `gorm:"primaryKey"`
	ShortCode   string    `gorm:"size:16;not null;uniqueIndex"`
	OriginalURL string    `gorm:"not null"`
	Visits      int64     `gorm:"not null;default:0"`
	CreatedAt   time.Time `gorm:"not null"`
}

func (urlModel) TableName() string {
	return "urls"
}

func (m *urlModel) toEntity() *entity.URL {
	return &entity.URL{
		ShortCode:   m.ShortCode,
		OriginalURL: m.OriginalURL,
		URLStats: entity.URLStats{
			Visits: m.Visits,
		},
		CreatedAt: m.CreatedAt,
	}
}

// Open opens the database at path and migrates the urls table.
// SQLite allows a single writer, so the pool is limited to one connection;
// this also keeps ":memory:" databases alive for the lifetime of the pool.
func Open(path string) (*gorm.DB, error) {
	const op = "adapter.repository.sqlite.Open"

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("%s: failed to open database: %w", op, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("%s: failed to get connection pool: %w", op, err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(&urlModel{}); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("%s: failed to migrate urls table: %w", op, err)
	}

	return db, nil
}

type URLRepository struct {
	db *gorm.DB
}

func NewURLRepository(db *gorm.DB) *URLRepository {
	return &URLRepository{db: db}
}

func (r *URLRepository) Save(ctx context.Context, url *entity.URL) (*entity.URL, error) {
	const op = "adapter.repository.sqlite.URLRepository.Save"

	m := urlModel{
		ShortCode:   url.ShortCode,
		OriginalURL: url.OriginalURL,
		CreatedAt:   url.CreatedAt,
	}

	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "short_code"}},
			DoNothing: true,
		}).
		Create(&m)
	if res.Error != nil {
		return nil, fmt.Errorf("%s: failed to insert into urls table: %w", op, res.Error)
	}

	if res.RowsAffected == 0 {
		return nil, fmt.Errorf("%s: %w", op, entity.ErrShortCodeExists)
	}

	return m.toEntity(), nil
}

func (r *URLRepository) RetrieveByShortCode(ctx context.Context, shortCode string) (*entity.URL, error) {
	const op = "adapter.repository.sqlite.URLRepository.RetrieveByShortCode"

	var m urlModel

	if err := r.db.WithContext(ctx).Where("short_code = ?", shortCode).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%s: %w", op, entity.ErrURLNotFound)
		}

		return nil, fmt.Errorf("%s: failed to get row from urls table: %w", op, err)
	}

	return m.toEntity(), nil
}

func (r *URLRepository) IncrementVisits(ctx context.Context, shortCode string) error {
	const op = "adapter.repository.sqlite.URLRepository.IncrementVisits"

	res := r.db.WithContext(ctx).
		Model(&urlModel{}).
		Where("short_code = ?", shortCode).
		UpdateColumn("visits", gorm.Expr("visits + ?", 1))
	if res.Error != nil {
		return fmt.Errorf("%s: failed to update urls table row: %w", op, res.Error)
	}

	if res.RowsAffected != 1 {
		return fmt.Errorf("%s: %w", op, entity.ErrURLNotFound)
	}

	return nil
}
