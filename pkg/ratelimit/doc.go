// Package ratelimit provides the process-wide request governor shared by all
// concurrent hashtag jobs.
//
// The governor layers two mechanisms:
//
//   - A hard requests-per-minute ceiling, enforced with golang.org/x/time/rate.
//     No combination of workers can exceed it.
//   - An adaptive inter-request delay. Every request outcome is reported back:
//     Throttled and Blocked outcomes multiply the delay by the configured
//     backoff factor (bounded by a maximum), sustained Success decays it
//     toward the configured floor.
//
// Workers call Acquire before each network attempt and ReportOutcome after.
// The governor is the only mutable state shared across workers; its lifecycle
// is scoped to one run and Reset restores it between runs.
package ratelimit
