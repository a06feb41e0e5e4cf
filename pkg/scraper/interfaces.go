package scraper

import (
	"context"

	"tagstats/pkg/instagram"
)

// PageFetcher is the fetching surface the orchestrator drives. Implemented
// by instagram.Client; tests substitute mocks.
type PageFetcher interface {
	// BaseURL returns the base URL records should link against
	BaseURL() string
	// FetchTagPage fetches and decodes a hashtag's landing page
	FetchTagPage(ctx context.Context, tag string) (*instagram.TagPage, error)
	// FetchMorePosts fetches the next page of latest posts for a hashtag
	FetchMorePosts(ctx context.Context, tag, cursor string) (*instagram.TagPage, error)
}
