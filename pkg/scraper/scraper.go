package scraper

import (
	"context"
	"fmt"
	"sync"

	"tagstats/pkg/collector"
	"tagstats/pkg/config"
	errs "tagstats/pkg/errors"
	"tagstats/pkg/instagram"
	"tagstats/pkg/logger"
	"tagstats/pkg/proxy"
	"tagstats/pkg/ratelimit"
	"tagstats/pkg/relations"
)

// Scraper orchestrates one batch run: fan-out of hashtag jobs onto a bounded
// worker pool, fan-in of outcomes in input order.
type Scraper struct {
	fetcher   PageFetcher
	collector *collector.Collector
	governor  *ratelimit.Governor
	cfg       *config.Config
	logger    logger.Logger
}

// New creates a Scraper wired against the real Instagram client
func New(cfg *config.Config, log logger.Logger) (*Scraper, error) {
	if log == nil {
		log = logger.GetLogger()
	}

	pool, err := proxy.NewPool(cfg.Proxy.URLs)
	if err != nil {
		return nil, fmt.Errorf("failed to build proxy pool: %w", err)
	}

	governor := ratelimit.NewGovernor(&cfg.RateLimit)
	client := instagram.NewClient(cfg, governor, pool, log)

	return &Scraper{
		fetcher:   client,
		collector: collector.New(client, cfg.Scrape.MaxPages, log),
		governor:  governor,
		cfg:       cfg,
		logger:    log,
	}, nil
}

// NewWithFetcher creates a Scraper against a custom fetcher. Used by tests.
func NewWithFetcher(cfg *config.Config, fetcher PageFetcher, log logger.Logger) *Scraper {
	if log == nil {
		log = logger.GetLogger()
	}
	return &Scraper{
		fetcher:   fetcher,
		collector: collector.New(fetcher, cfg.Scrape.MaxPages, log),
		governor:  ratelimit.NewGovernor(&cfg.RateLimit),
		cfg:       cfg,
		logger:    log,
	}
}

// Run processes the requested hashtags with at most the configured
// concurrency. The returned slice has exactly one outcome per input tag, in
// input order, regardless of completion order. A job's failure never affects
// its siblings; cancellation marks the remaining jobs Failure with partial
// records retained.
func (s *Scraper) Run(ctx context.Context, tags []string) []Outcome {
	s.governor.Reset()

	jobs := make([]Job, len(tags))
	for i, tag := range tags {
		jobs[i] = NewJob(tag, s.cfg.Scrape.SampleSize, s.cfg.Scrape.RelatedDepth)
	}

	concurrency := s.cfg.Scrape.Concurrency
	if concurrency > len(jobs) {
		concurrency = len(jobs)
	}
	if concurrency < 1 {
		concurrency = 1
	}

	s.logger.InfoWithFields("starting scrape run", map[string]interface{}{
		"jobs":        len(jobs),
		"concurrency": concurrency,
	})

	type indexedJob struct {
		idx int
		job Job
	}

	jobCh := make(chan indexedJob)
	outcomes := make([]Outcome, len(jobs))

	var wg sync.WaitGroup
	for w := 0; w < concurrency; w++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			for ij := range jobCh {
				// Workers write to disjoint indexes, so result order always
				// matches input order without further coordination.
				outcomes[ij.idx] = s.runJob(ctx, ij.job)
			}
		}(w)
	}

	for i, job := range jobs {
		jobCh <- indexedJob{idx: i, job: job}
	}
	close(jobCh)
	wg.Wait()

	s.logger.InfoWithFields("scrape run finished", map[string]interface{}{
		"jobs": len(jobs),
	})

	return outcomes
}

// runJob drives one hashtag end to end: landing page fetch, relation
// classification, post collection, record assembly.
func (s *Scraper) runJob(ctx context.Context, job Job) Outcome {
	log := s.logger.WithField("tag", job.Tag)

	if !instagram.IsValidTag(job.Tag) {
		return Outcome{
			Job:  job,
			Kind: OutcomeFailure,
			Err:  errs.Newf(errs.KindNotFound, "invalid hashtag name %q", job.Tag),
		}
	}
	if err := ctx.Err(); err != nil {
		return Outcome{
			Job:  job,
			Kind: OutcomeFailure,
			Err:  errs.Newf(errs.KindCancelled, "job abandoned: %v", err),
		}
	}

	landing, err := s.fetcher.FetchTagPage(ctx, job.Tag)
	if err != nil {
		log.WarnWithFields("job failed", map[string]interface{}{
			"kind":  string(errs.KindOf(err)),
			"error": err.Error(),
		})
		return Outcome{Job: job, Kind: OutcomeFailure, Err: err}
	}

	var warnings []string
	record := s.buildRecord(job, landing, &warnings)

	collected := s.collector.Collect(ctx, job.Tag, landing, job.SampleSize)
	record.LatestPosts = collected.Posts

	if collected.Err != nil {
		if errs.KindOf(collected.Err) == errs.KindCancelled {
			return Outcome{
				Job:    job,
				Kind:   OutcomeFailure,
				Record: record,
				Err:    collected.Err,
			}
		}
		warnings = append(warnings,
			fmt.Sprintf("post collection stopped early: %v", collected.Err))
	} else if len(collected.Posts) < job.SampleSize {
		warnings = append(warnings,
			fmt.Sprintf("post sample smaller than requested (%d/%d)",
				len(collected.Posts), job.SampleSize))
	}

	kind := OutcomeSuccess
	if len(warnings) > 0 {
		kind = OutcomePartial
	}

	log.InfoWithFields("job finished", map[string]interface{}{
		"outcome":  string(kind),
		"posts":    len(record.LatestPosts),
		"warnings": len(warnings),
	})

	return Outcome{Job: job, Kind: kind, Record: record, Warnings: warnings}
}

// buildRecord assembles the record parts available from the landing page
func (s *Scraper) buildRecord(job Job, landing *instagram.TagPage, warnings *[]string) *Record {
	name := landing.Name
	if name == "" {
		name = job.Tag
	}

	record := &Record{
		Name:     name,
		URL:      instagram.GetTagPageURL(s.fetcher.BaseURL(), job.Tag),
		TopPosts: landing.TopPosts,
	}

	if landing.PostsCount != nil {
		record.setPostsCount(*landing.PostsCount)
	} else {
		*warnings = append(*warnings, "page did not reveal a posts count")
	}

	candidates := landing.Related
	if job.RelatedDepth > 0 && len(candidates) > job.RelatedDepth {
		candidates = candidates[:job.RelatedDepth]
	}
	pool := make([]relations.Candidate, 0, len(candidates))
	for _, entry := range candidates {
		pool = append(pool, relations.Candidate{Name: entry.Name, Magnitude: entry.Magnitude})
	}
	record.Tiers = relations.Classify(job.Tag, pool)

	if len(record.Frequent)+len(record.Average)+len(record.Rare) == 0 {
		*warnings = append(*warnings, "page revealed no related hashtags")
	}

	return record
}
