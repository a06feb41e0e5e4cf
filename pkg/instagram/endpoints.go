package instagram

import (
	"fmt"
	"net/url"
	"strings"
)

const (
	// BaseURL is the default base URL for Instagram
	BaseURL = "https://www.instagram.com"

	// TagQueryHash is the GraphQL query hash for hashtag page pagination
	TagQueryHash = "9b498c08113f1e09617a1703c22b2f32"

	// DefaultPageSize is the number of posts requested per pagination call
	DefaultPageSize = 12
)

// NormalizeTag canonicalizes a requested hashtag name: whitespace and leading
// '#' characters are stripped and the result is lowercased. The operation is
// idempotent.
func NormalizeTag(raw string) string {
	tag := strings.TrimSpace(raw)
	tag = strings.TrimLeft(tag, "#")
	tag = strings.TrimSpace(tag)
	return strings.ToLower(tag)
}

// IsValidTag checks whether a normalized tag name can be requested at all
func IsValidTag(tag string) bool {
	if tag == "" || len(tag) > 150 {
		return false
	}
	return !strings.ContainsAny(tag, "# \t\n/?&")
}

// GetTagPageURL constructs the URL of a hashtag's landing page
func GetTagPageURL(baseURL, tag string) string {
	return fmt.Sprintf("%s/explore/tags/%s/", strings.TrimRight(baseURL, "/"), url.PathEscape(tag))
}

// GetTagMediaURL constructs the GraphQL URL for the next page of a hashtag's
// latest posts
func GetTagMediaURL(baseURL, tag, after string, first int) string {
	if first <= 0 {
		first = DefaultPageSize
	}

	variables := fmt.Sprintf(`{"tag_name":%q,"first":%d,"after":%q}`, tag, first, after)

	params := url.Values{}
	params.Set("query_hash", TagQueryHash)
	params.Set("variables", variables)

	return fmt.Sprintf("%s/graphql/query/?%s", strings.TrimRight(baseURL, "/"), params.Encode())
}

// GetPostURL constructs the canonical URL for a post
func GetPostURL(baseURL, shortcode string) string {
	if shortcode == "" {
		return ""
	}
	return fmt.Sprintf("%s/p/%s/", strings.TrimRight(baseURL, "/"), shortcode)
}
