package ports

import "context"

// Fetched is the outcome of a remote fetch.
type Fetched struct {
	StatusCode int
	Body       []byte
	// FromCache is true when the body was served from the persisted cache after a 304.
	FromCache bool
}

// Fetcher retrieves remote resources.
//
//go:generate mockgen -source=fetcher.go -destination=mocks/mock_fetcher.go -package=mocks
type Fetcher interface {
	// Fetch performs a GET for url. Server errors (5xx) are returned as errors,
	// client errors (4xx) are returned to the caller for inspection.
	Fetch(ctx context.Context, url string) (*Fetched, error)
}
