package collector

import (
	"context"

	errs "tagstats/pkg/errors"
	"tagstats/pkg/instagram"
	"tagstats/pkg/logger"
)

// Fetcher is the slice of the page fetcher the collector drives
type Fetcher interface {
	FetchMorePosts(ctx context.Context, tag, cursor string) (*instagram.TagPage, error)
}

// Result is the terminal outcome of collecting one hashtag's post sample.
// Err is set when collection failed; posts gathered before the failure are
// retained either way.
type Result struct {
	Posts []instagram.Post
	// Pages is the number of pagination fetches issued
	Pages int
	// Exhausted is true when collection stopped cleanly: sample reached,
	// cursor chain ended, or the page ceiling was hit
	Exhausted bool
	Err       error
}

// cursor is the pagination state for one hashtag job. The token is untrusted
// remote input; the fetch counter bounds how much work it can drive.
type cursor struct {
	token   string
	fetches int
}

// Collector paginates through a hashtag's latest posts until a target sample
// size or exhaustion.
type Collector struct {
	fetcher  Fetcher
	maxPages int
	logger   logger.Logger
}

// New creates a post collector. maxPages is the hard ceiling on pagination
// fetches per job.
func New(fetcher Fetcher, maxPages int, log logger.Logger) *Collector {
	if log == nil {
		log = logger.GetLogger()
	}
	return &Collector{fetcher: fetcher, maxPages: maxPages, logger: log}
}

// Collect gathers up to sampleSize latest posts for the tag, starting from
// the already-fetched landing page and following its cursor. Posts are
// deduplicated by id across all pages of the job.
func (c *Collector) Collect(ctx context.Context, tag string, landing *instagram.TagPage, sampleSize int) Result {
	seen := make(map[string]struct{})
	var posts []instagram.Post
	appendNew := func(batch []instagram.Post) int {
		added := 0
		for _, post := range batch {
			if _, dup := seen[post.ID]; dup {
				continue
			}
			seen[post.ID] = struct{}{}
			posts = append(posts, post)
			added++
		}
		return added
	}

	appendNew(landing.LatestPosts)
	cur := cursor{token: landing.EndCursor}
	hasNext := landing.HasNextPage && landing.EndCursor != ""

	for len(posts) < sampleSize && hasNext {
		if cur.fetches >= c.maxPages {
			c.logger.WarnWithFields("page ceiling reached", map[string]interface{}{
				"tag":       tag,
				"max_pages": c.maxPages,
				"collected": len(posts),
			})
			break
		}
		if err := ctx.Err(); err != nil {
			return Result{
				Posts: truncate(posts, sampleSize),
				Pages: cur.fetches,
				Err:   errs.Newf(errs.KindCancelled, "collection abandoned: %v", err),
			}
		}

		page, err := c.fetcher.FetchMorePosts(ctx, tag, cur.token)
		cur.fetches++
		if err != nil {
			c.logger.WarnWithFields("pagination fetch failed, keeping partial sample", map[string]interface{}{
				"tag":       tag,
				"pages":     cur.fetches,
				"collected": len(posts),
				"error":     err.Error(),
			})
			return Result{Posts: truncate(posts, sampleSize), Pages: cur.fetches, Err: err}
		}

		added := appendNew(page.LatestPosts)
		c.logger.DebugWithFields("pagination page collected", map[string]interface{}{
			"tag":       tag,
			"page":      cur.fetches,
			"new_posts": added,
		})

		hasNext = page.HasNextPage && page.EndCursor != ""
		cur.token = page.EndCursor
	}

	return Result{Posts: truncate(posts, sampleSize), Pages: cur.fetches, Exhausted: true}
}

func truncate(posts []instagram.Post, limit int) []instagram.Post {
	if limit >= 0 && len(posts) > limit {
		return posts[:limit]
	}
	return posts
}
