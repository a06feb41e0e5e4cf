// Package scraper contains the job orchestrator: it fans a list of hashtag
// jobs out onto a bounded worker pool, drives fetch, decode, classification
// and post collection for each job, and fans the outcomes back in preserving
// input order. One job's failure never aborts its siblings.
package scraper
