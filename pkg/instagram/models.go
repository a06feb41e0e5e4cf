package instagram

import "strings"

// MediaType identifies the kind of media a post carries
type MediaType string

const (
	MediaPhoto    MediaType = "photo"
	MediaVideo    MediaType = "video"
	MediaCarousel MediaType = "carousel"
)

// Post is one decoded post from a hashtag page. Immutable once decoded.
type Post struct {
	ID        string    `json:"id"`
	Type      MediaType `json:"type"`
	Shortcode string    `json:"shortCode"`
	Caption   string    `json:"caption"`
	Hashtags  []string  `json:"hashtags"`
	Mentions  []string  `json:"mentions"`
	URL       string    `json:"url"`
}

// RelatedEntry is one raw related-hashtag entry: the neighbor's name and the
// magnitude text the page attached to it (e.g. "1.96 G").
type RelatedEntry struct {
	Name      string `json:"name"`
	Magnitude string `json:"magnitude"`
}

// TagPage is the decoded form of one hashtag page or pagination response.
// Fields the page did not reveal are explicitly absent: PostsCount is nil
// when the page carried no count, and an empty EndCursor with HasNextPage
// false means pagination is exhausted.
type TagPage struct {
	Name        string
	PostsCount  *int64
	TopPosts    []Post
	LatestPosts []Post
	EndCursor   string
	HasNextPage bool
	Related     []RelatedEntry
}

// ExtractCaptionTokens pulls embedded hashtags and mentions out of a caption
func ExtractCaptionTokens(caption string) (hashtags, mentions []string) {
	for _, word := range strings.Fields(caption) {
		switch {
		case strings.HasPrefix(word, "#") && len(word) > 1:
			if tag := strings.Trim(word, "#,.!?"); tag != "" {
				hashtags = append(hashtags, tag)
			}
		case strings.HasPrefix(word, "@") && len(word) > 1:
			if mention := strings.Trim(word, "@,.!?"); mention != "" {
				mentions = append(mentions, mention)
			}
		}
	}
	return hashtags, mentions
}
