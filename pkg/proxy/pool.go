package proxy

import (
	"fmt"
	"net/url"
	"sync/atomic"
)

// Pool is a read-shared set of outbound proxies assigned round-robin. The
// only mutable state is the atomic cursor, so callers never lock.
type Pool struct {
	proxies []*url.URL
	cursor  atomic.Uint64
}

// NewPool parses the given proxy URLs into a pool. An empty list is valid and
// yields a pool that always selects the direct connection.
func NewPool(rawURLs []string) (*Pool, error) {
	p := &Pool{}
	for _, raw := range rawURLs {
		u, err := url.Parse(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid proxy url %q: %w", raw, err)
		}
		if u.Scheme == "" || u.Host == "" {
			return nil, fmt.Errorf("invalid proxy url %q: missing scheme or host", raw)
		}
		p.proxies = append(p.proxies, u)
	}
	return p, nil
}

// Next returns the next proxy in round-robin order, or nil when the pool is
// empty (direct connection).
func (p *Pool) Next() *url.URL {
	if len(p.proxies) == 0 {
		return nil
	}
	n := p.cursor.Add(1) - 1
	return p.proxies[n%uint64(len(p.proxies))]
}

// Len returns the number of proxies in the pool.
func (p *Pool) Len() int {
	return len(p.proxies)
}
