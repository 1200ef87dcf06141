package usecase

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
	"github.com/vadimbarashkov/shortlink/internal/entity"
)

type URLUseCaseTestSuite struct {
	suite.Suite
	errUnknown    error
	urlRepoMock   *urlRepositoryMock
	visitsMock    *visitRecorderMock
	generator     *sequenceGenerator
	uc            *URLUseCase
	fixedNow      time.Time
	discardLogger *slog.Logger
}

func (suite *URLUseCaseTestSuite) SetupSuite() {
	suite.errUnknown = errors.New("unknown error")
	suite.fixedNow = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	suite.discardLogger = slog.New(slog.NewTextHandler(io.Discard, nil))
}

func (suite *URLUseCaseTestSuite) SetupSubTest() {
	suite.urlRepoMock = new(urlRepositoryMock)
	suite.visitsMock = new(visitRecorderMock)
	suite.generator = &sequenceGenerator{codes: []string{"aaaaaaaa", "bbbbbbbb", "cccccccc"}}

	suite.uc = New(suite.urlRepoMock, suite.generator, suite.visitsMock,
		WithMaxAttempts(3),
		WithLogger(suite.discardLogger),
	)
	suite.uc.now = func() time.Time { return suite.fixedNow }
}

func (suite *URLUseCaseTestSuite) TearDownSubTest() {
	suite.urlRepoMock.AssertExpectations(suite.T())
	suite.visitsMock.AssertExpectations(suite.T())
}

func (suite *URLUseCaseTestSuite) TestShortenURL() {
	suite.Run("invalid url", func() {
		for _, raw := range []string{"", "not a url", "ftp://example.com", "javascript:alert(1)", "/relative/path"} {
			url, err := suite.uc.ShortenURL(context.Background(), raw)

			suite.ErrorIs(err, entity.ErrInvalidURL, raw)
			suite.Nil(url)
		}

		suite.urlRepoMock.AssertNotCalled(suite.T(), "Save", mock.Anything, mock.Anything)
	})

	suite.Run("short code generation error", func() {
		suite.generator.err = suite.errUnknown

		url, err := suite.uc.ShortenURL(context.Background(), "https://example.com")

		suite.ErrorIs(err, suite.errUnknown)
		suite.Nil(url)
	})

	suite.Run("maximum retries error", func() {
		suite.urlRepoMock.
			On("Save", mock.Anything, mock.Anything).
			Times(3).
			Return(nil, entity.ErrShortCodeExists)

		url, err := suite.uc.ShortenURL(context.Background(), "https://example.com")

		suite.ErrorIs(err, ErrMaxRetriesExceeded)
		suite.Nil(url)
	})

	suite.Run("unknown error", func() {
		suite.urlRepoMock.
			On("Save", mock.Anything, mock.Anything).
			Once().
			Return(nil, suite.errUnknown)

		url, err := suite.uc.ShortenURL(context.Background(), "https://example.com")

		suite.ErrorIs(err, entity.ErrStorage)
		suite.ErrorIs(err, suite.errUnknown)
		suite.Nil(url)
	})

	suite.Run("retries past collision", func() {
		suite.urlRepoMock.
			On("Save", mock.Anything, mock.MatchedBy(func(u *entity.URL) bool { return u.ShortCode == "aaaaaaaa" })).
			Once().
			Return(nil, entity.ErrShortCodeExists)
		suite.urlRepoMock.
			On("Save", mock.Anything, mock.MatchedBy(func(u *entity.URL) bool { return u.ShortCode == "bbbbbbbb" })).
			Once().
			Return(&entity.URL{ShortCode: "bbbbbbbb", OriginalURL: "https://example.com"}, nil)

		url, err := suite.uc.ShortenURL(context.Background(), "https://example.com")

		suite.NoError(err)
		suite.Equal("bbbbbbbb", url.ShortCode)
	})

	suite.Run("success", func() {
		want := &entity.URL{
			ShortCode:   "aaaaaaaa",
			OriginalURL: "https://example.com/page",
			CreatedAt:   suite.fixedNow,
		}

		suite.urlRepoMock.
			On("Save", mock.Anything, want).
			Once().
			Return(want, nil)

		url, err := suite.uc.ShortenURL(context.Background(), "https://example.com/page")

		suite.NoError(err)
		suite.Equal(want, url)
	})
}

func (suite *URLUseCaseTestSuite) TestResolveShortCode() {
	suite.Run("empty short code", func() {
		url, err := suite.uc.ResolveShortCode(context.Background(), "")

		suite.ErrorIs(err, entity.ErrURLNotFound)
		suite.Nil(url)
	})

	suite.Run("url not found", func() {
		suite.urlRepoMock.
			On("RetrieveByShortCode", mock.Anything, "deadbeef").
			Once().
			Return(nil, entity.ErrURLNotFound)

		url, err := suite.uc.ResolveShortCode(context.Background(), "deadbeef")

		suite.ErrorIs(err, entity.ErrURLNotFound)
		suite.NotErrorIs(err, entity.ErrStorage)
		suite.Nil(url)
	})

	suite.Run("unknown error", func() {
		suite.urlRepoMock.
			On("RetrieveByShortCode", mock.Anything, "deadbeef").
			Once().
			Return(nil, suite.errUnknown)

		url, err := suite.uc.ResolveShortCode(context.Background(), "deadbeef")

		suite.ErrorIs(err, entity.ErrStorage)
		suite.ErrorIs(err, suite.errUnknown)
		suite.Nil(url)
	})

	suite.Run("success", func() {
		want := &entity.URL{ShortCode: "deadbeef", OriginalURL: "https://example.com"}

		suite.urlRepoMock.
			On("RetrieveByShortCode", mock.Anything, "deadbeef").
			Once().
			Return(want, nil)
		suite.visitsMock.
			On("Record", "deadbeef").
			Once()

		url, err := suite.uc.ResolveShortCode(context.Background(), "deadbeef")

		suite.NoError(err)
		suite.Equal(want, url)
	})
}

func (suite *URLUseCaseTestSuite) TestGetURLStats() {
	suite.Run("url not found", func() {
		suite.urlRepoMock.
			On("RetrieveByShortCode", mock.Anything, "deadbeef").
			Once().
			Return(nil, entity.ErrURLNotFound)

		url, err := suite.uc.GetURLStats(context.Background(), "deadbeef")

		suite.ErrorIs(err, entity.ErrURLNotFound)
		suite.Nil(url)
	})

	suite.Run("success does not count a visit", func() {
		want := &entity.URL{
			ShortCode:   "deadbeef",
			OriginalURL: "https://example.com",
			URLStats:    entity.URLStats{Visits: 3},
		}

		suite.urlRepoMock.
			On("RetrieveByShortCode", mock.Anything, "deadbeef").
			Once().
			Return(want, nil)

		url, err := suite.uc.GetURLStats(context.Background(), "deadbeef")

		suite.NoError(err)
		suite.Equal(int64(3), url.Visits)
		suite.visitsMock.AssertNotCalled(suite.T(), "Record", mock.Anything)
	})
}

func (suite *URLUseCaseTestSuite) TestStoreTimeout() {
	newUseCase := func() *URLUseCase {
		return New(blockingRepository{}, suite.generator, suite.visitsMock,
			WithStoreTimeout(10*time.Millisecond),
			WithLogger(suite.discardLogger),
		)
	}

	suite.Run("shorten", func() {
		start := time.Now()
		url, err := newUseCase().ShortenURL(context.Background(), "https://example.com")

		suite.Less(time.Since(start), time.Second)
		suite.ErrorIs(err, entity.ErrStorage)
		suite.ErrorIs(err, context.DeadlineExceeded)
		suite.Nil(url)
	})

	suite.Run("resolve", func() {
		start := time.Now()
		url, err := newUseCase().ResolveShortCode(context.Background(), "aaaaaaaa")

		suite.Less(time.Since(start), time.Second)
		suite.ErrorIs(err, entity.ErrStorage)
		suite.ErrorIs(err, context.DeadlineExceeded)
		suite.Nil(url)
		suite.visitsMock.AssertNotCalled(suite.T(), "Record", mock.Anything)
	})
}

func TestURLUseCase(t *testing.T) {
	suite.Run(t, new(URLUseCaseTestSuite))
}
