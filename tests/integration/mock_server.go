package integration

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
)

// MockInstagramServer simulates the Instagram web frontend: hashtag landing
// pages with embedded JSON and the GraphQL pagination endpoint. Tags are
// registered programmatically; unknown tags return 404.
type MockInstagramServer struct {
	server       *httptest.Server
	requestCount int32

	mu       sync.RWMutex
	tags     map[string]*mockTag
	failures []int // status codes served before real responses, shared across endpoints
}

// mockTag is one registered hashtag fixture. Page 0 is embedded in the
// landing page; later pages are served through the GraphQL endpoint with
// cursors of the form "cursor-<n>".
type mockTag struct {
	name    string
	count   int64
	related map[string]int64
	pages   [][]mockPost
}

type mockPost struct {
	ID        string
	Shortcode string
	Caption   string
	IsVideo   bool
}

// NewMockInstagramServer starts a mock server with no registered tags
func NewMockInstagramServer() *MockInstagramServer {
	m := &MockInstagramServer{
		tags: make(map[string]*mockTag),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/explore/tags/", m.handleTagPage)
	mux.HandleFunc("/graphql/query/", m.handleGraphQL)

	m.server = httptest.NewServer(mux)
	return m
}

func (m *MockInstagramServer) URL() string { return m.server.URL }

func (m *MockInstagramServer) Close() { m.server.Close() }

func (m *MockInstagramServer) RequestCount() int {
	return int(atomic.LoadInt32(&m.requestCount))
}

// AddTag registers a hashtag fixture. postsPerPage controls how the posts
// are split across pagination pages.
func (m *MockInstagramServer) AddTag(name string, count int64, related map[string]int64, posts []mockPost, postsPerPage int) {
	if postsPerPage <= 0 {
		postsPerPage = len(posts)
	}

	var pages [][]mockPost
	for start := 0; start < len(posts); start += postsPerPage {
		end := start + postsPerPage
		if end > len(posts) {
			end = len(posts)
		}
		pages = append(pages, posts[start:end])
	}
	if len(pages) == 0 {
		pages = [][]mockPost{nil}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.tags[name] = &mockTag{name: name, count: count, related: related, pages: pages}
}

// FailNext queues status codes to serve before any real response. Each
// queued code consumes one request.
func (m *MockInstagramServer) FailNext(statusCodes ...int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures = append(m.failures, statusCodes...)
}

func (m *MockInstagramServer) popFailure() (int, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.failures) == 0 {
		return 0, false
	}
	code := m.failures[0]
	m.failures = m.failures[1:]
	return code, true
}

func (m *MockInstagramServer) handleTagPage(w http.ResponseWriter, r *http.Request) {
	atomic.AddInt32(&m.requestCount, 1)

	if code, ok := m.popFailure(); ok {
		m.sendError(w, code)
		return
	}

	tagName := strings.Trim(strings.TrimPrefix(r.URL.Path, "/explore/tags/"), "/")

	m.mu.RLock()
	tag, ok := m.tags[tagName]
	m.mu.RUnlock()
	if !ok {
		m.sendError(w, http.StatusNotFound)
		return
	}

	sharedData := map[string]interface{}{
		"entry_data": map[string]interface{}{
			"TagPage": []interface{}{
				map[string]interface{}{
					"graphql": map[string]interface{}{
						"hashtag": tag.node(0, true),
					},
				},
			},
		},
	}
	payload, _ := json.Marshal(sharedData)

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprintf(w, `<!DOCTYPE html><html><head><title>#%s</title></head><body>
<script type="text/javascript">window._sharedData = %s;</script>
</body></html>`, tag.name, payload)
}

func (m *MockInstagramServer) handleGraphQL(w http.ResponseWriter, r *http.Request) {
	atomic.AddInt32(&m.requestCount, 1)

	if code, ok := m.popFailure(); ok {
		m.sendError(w, code)
		return
	}

	var variables struct {
		TagName string `json:"tag_name"`
		First   int    `json:"first"`
		After   string `json:"after"`
	}
	if err := json.Unmarshal([]byte(r.URL.Query().Get("variables")), &variables); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	m.mu.RLock()
	tag, ok := m.tags[variables.TagName]
	m.mu.RUnlock()
	if !ok {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"data":   map[string]interface{}{"hashtag": nil},
			"status": "ok",
		})
		return
	}

	// "cursor-<n>" addresses page n
	pageIdx := 0
	if variables.After != "" {
		fmt.Sscanf(variables.After, "cursor-%d", &pageIdx)
	}
	if pageIdx < 0 || pageIdx >= len(tag.pages) {
		pageIdx = len(tag.pages) - 1
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"data":   map[string]interface{}{"hashtag": tag.node(pageIdx, false)},
		"status": "ok",
	})
}

func (m *MockInstagramServer) sendError(w http.ResponseWriter, code int) {
	w.Header().Set("Content-Type", "application/json")
	if code == http.StatusTooManyRequests {
		w.Header().Set("Retry-After", "60")
	}
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"message": http.StatusText(code),
		"status":  "fail",
	})
}

// node renders the hashtag node for one pagination page. Top posts and
// related tags only appear on the landing page, matching the real layout.
func (t *mockTag) node(pageIdx int, landing bool) map[string]interface{} {
	posts := t.pages[pageIdx]

	var edges []interface{}
	for _, p := range posts {
		typename := "GraphImage"
		if p.IsVideo {
			typename = "GraphVideo"
		}
		edges = append(edges, map[string]interface{}{
			"node": map[string]interface{}{
				"id":          p.ID,
				"__typename":  typename,
				"shortcode":   p.Shortcode,
				"display_url": "https://cdn.example.com/" + p.ID + ".jpg",
				"is_video":    p.IsVideo,
				"edge_media_to_caption": map[string]interface{}{
					"edges": []interface{}{
						map[string]interface{}{
							"node": map[string]interface{}{"text": p.Caption},
						},
					},
				},
			},
		})
	}

	node := map[string]interface{}{
		"name": t.name,
		"edge_hashtag_to_media": map[string]interface{}{
			"count": t.count,
			"page_info": map[string]interface{}{
				"has_next_page": pageIdx+1 < len(t.pages),
				"end_cursor":    fmt.Sprintf("cursor-%d", pageIdx+1),
			},
			"edges": edges,
		},
	}

	if landing {
		var relatedEdges []interface{}
		for name, count := range t.related {
			relatedEdges = append(relatedEdges, map[string]interface{}{
				"node": map[string]interface{}{
					"name":        name,
					"media_count": count,
				},
			})
		}
		node["edge_hashtag_to_related_tags"] = map[string]interface{}{
			"edges": relatedEdges,
		}
		if len(posts) > 0 {
			node["edge_hashtag_to_top_posts"] = map[string]interface{}{
				"edges": edges[:1],
			}
		}
	}

	return node
}
