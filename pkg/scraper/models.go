package scraper

import (
	"math"

	"tagstats/pkg/instagram"
	"tagstats/pkg/relations"
)

// assumedTagLifetimeDays is the heuristic window used to estimate posts per
// day from a total count alone.
const assumedTagLifetimeDays = 5 * 365

// Job is one unit of work: a single requested hashtag plus its per-job
// limits. Immutable after creation.
type Job struct {
	// Tag is the normalized hashtag name: lowercase, no leading '#'
	Tag          string
	SampleSize   int
	RelatedDepth int
}

// NewJob normalizes a raw hashtag name into a Job
func NewJob(raw string, sampleSize, relatedDepth int) Job {
	return Job{
		Tag:          instagram.NormalizeTag(raw),
		SampleSize:   sampleSize,
		RelatedDepth: relatedDepth,
	}
}

// Record is the assembled analytics for one hashtag. PostsCount and
// PostsPerDay are nil when the page did not reveal a count; they are never
// silently zero. Immutable once the job completes.
type Record struct {
	Name        string   `json:"name"`
	PostsCount  *int64   `json:"postsCount"`
	Posts       string   `json:"posts"`
	URL         string   `json:"url"`
	PostsPerDay *float64 `json:"postsPerDay"`

	relations.Tiers

	TopPosts    []instagram.Post `json:"topPosts"`
	LatestPosts []instagram.Post `json:"latestPosts"`
}

// setPostsCount fills the count-derived fields of the record
func (r *Record) setPostsCount(count int64) {
	perDay := math.Round(float64(count)/assumedTagLifetimeDays*100) / 100
	r.PostsCount = &count
	r.Posts = relations.FormatMagnitude(count)
	r.PostsPerDay = &perDay
}

// OutcomeKind distinguishes how a job ended
type OutcomeKind string

const (
	// OutcomeSuccess means a complete record was assembled
	OutcomeSuccess OutcomeKind = "success"
	// OutcomePartial means a usable but incomplete record was assembled
	OutcomePartial OutcomeKind = "partial_success"
	// OutcomeFailure means no usable record could be assembled
	OutcomeFailure OutcomeKind = "failure"
)

// Outcome is the per-job result handed to the exporter. The output of a run
// always contains one Outcome per input hashtag, in input order.
type Outcome struct {
	Job      Job
	Kind     OutcomeKind
	Record   *Record
	Warnings []string
	Err      error
}
