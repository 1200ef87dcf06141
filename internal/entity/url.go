// Package entity defines the entities and errors used in the application.
// It includes the URL struct, which represents a shortened URL, along with its
// associated metadata, and the error kinds shared by every layer.
package entity

import (
	"errors"
	"time"
)

var (
	// ErrInvalidURL is returned when the submitted URL is empty or is not an absolute http(s) URL.
	ErrInvalidURL = errors.New("invalid url")
	// ErrShortCodeExists is returned when attempting to create a URL with a short code that already exists.
	ErrShortCodeExists = errors.New("short code exists")
	// ErrURLNotFound is returned when a URL with the specified short code cannot be found.
	ErrURLNotFound = errors.New("url not found")
	// ErrStorage is returned when the storage layer is unavailable or fails.
	ErrStorage = errors.New("storage failure")
)

// URL represents a shortened URL.
type URL struct {
	ShortCode   string    // ShortCode is the generated code used to shorten the original URL.
	OriginalURL string    // OriginalURL is the full URL that the short code resolves to.
	URLStats              // URLStats contains statistics about the URL.
	CreatedAt   time.Time // CreatedAt is the timestamp when the URL was created.
}

// URLStats contains statistics related to a shortened URL.
type URLStats struct {
	Visits int64 // Visits is the number of times the shortened URL has been resolved.
}
