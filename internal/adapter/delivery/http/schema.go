package http

import (
	"time"

	"github.com/vadimbarashkov/shortlink/internal/entity"
)

// shortenRequest is the body of a request to shorten a URL.
type shortenRequest struct {
	URL string `json:"url" validate:"required"`
}

type shortenResponse struct {
	ShortURL    string `json:"shortUrl"`
	OriginalURL string `json:"originalUrl"`
	ShortCode   string `json:"shortCode"`
}

func toShortenResponse(baseURL string, url *entity.URL) shortenResponse {
	return shortenResponse{
		ShortURL:    baseURL + "/" + url.ShortCode,
		OriginalURL: url.OriginalURL,
		ShortCode:   url.ShortCode,
	}
}

type urlStatsResponse struct {
	ShortCode   string    `json:"shortCode"`
	OriginalURL string    `json:"originalUrl"`
	Visits      int64     `json:"visits"`
	CreatedAt   time.Time `json:"createdAt"`
}

func toURLStatsResponse(url *entity.URL) urlStatsResponse {
	return urlStatsResponse{
		ShortCode:   url.ShortCode,
		OriginalURL: url.OriginalURL,
		Visits:      url.Visits,
		CreatedAt:   url.CreatedAt,
	}
}

type errorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// Predefined error responses for common scenarios.
var (
	urlRequiredResponse = errorResponse{
		Error: "URL is required",
	}

	invalidRequestBodyResponse = errorResponse{
		Error: "Invalid request body",
	}

	invalidURLResponse = errorResponse{
		Error:   "Invalid URL provided",
		Details: "URL must start with http:// or https:// and be properly formatted",
	}

	shortenFailedResponse = errorResponse{
		Error:   "Server error",
		Details: "Failed to create short URL, please try again later",
	}

	urlNotFoundResponse = errorResponse{
		Error: "URL not found",
	}

	routeNotFoundResponse = errorResponse{
		Error: "Not found",
	}

	serverErrorResponse = errorResponse{
		Error: "Server error",
	}

	tooManyRequestsResponse = errorResponse{
		Error: "Too many requests",
	}
)
