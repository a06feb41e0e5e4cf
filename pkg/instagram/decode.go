package instagram

import (
	"bytes"
	"encoding/json"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	errs "tagstats/pkg/errors"
	"tagstats/pkg/relations"
)

// The page embeds its JSON payload in one of several script patterns,
// depending on layout generation.
var (
	reSharedData     = regexp.MustCompile(`(?s)window\._sharedData\s*=\s*(\{.*?\});</script>`)
	reAdditionalData = regexp.MustCompile(`(?s)window\.__additionalDataLoaded\('.*?',\s*(\{.*?\})\);`)
)

// tagPayload mirrors the layouts the hashtag node has been observed under.
type tagPayload struct {
	EntryData *struct {
		TagPage []struct {
			Graphql *graphqlWrap `json:"graphql"`
		} `json:"TagPage"`
	} `json:"entry_data"`
	Graphql *graphqlWrap `json:"graphql"`
	Data    *struct {
		Hashtag *tagNode `json:"hashtag"`
	} `json:"data"`
	Status  string `json:"status"`
	Message string `json:"message"`
}

type graphqlWrap struct {
	Hashtag *tagNode `json:"hashtag"`
}

type tagNode struct {
	Name           string             `json:"name"`
	EdgeToMedia    *mediaConnection   `json:"edge_hashtag_to_media"`
	EdgeToTopPosts *mediaConnection   `json:"edge_hashtag_to_top_posts"`
	EdgeToRelated  *relatedConnection `json:"edge_hashtag_to_related_tags"`
}

type mediaConnection struct {
	Count    *int64     `json:"count"`
	PageInfo *pageInfo  `json:"page_info"`
	Edges    []mediaEdge `json:"edges"`
}

type pageInfo struct {
	HasNextPage bool   `json:"has_next_page"`
	EndCursor   string `json:"end_cursor"`
}

type mediaEdge struct {
	Node mediaNode `json:"node"`
}

type mediaNode struct {
	ID          string `json:"id"`
	Typename    string `json:"__typename"`
	Shortcode   string `json:"shortcode"`
	DisplayURL  string `json:"display_url"`
	IsVideo     bool   `json:"is_video"`
	CaptionEdge struct {
		Edges []struct {
			Node struct {
				Text string `json:"text"`
			} `json:"node"`
		} `json:"edges"`
	} `json:"edge_media_to_caption"`
}

type relatedConnection struct {
	Edges []struct {
		Node relatedNode `json:"node"`
	} `json:"edges"`
}

type relatedNode struct {
	Name string `json:"name"`
	// media_count arrives either as a plain number or as pre-formatted
	// magnitude text, depending on layout
	MediaCount  json.RawMessage `json:"media_count"`
	EdgeToMedia *struct {
		Count *int64 `json:"count"`
	} `json:"edge_hashtag_to_media"`
}

// DecodeTagPage turns raw response bytes for a hashtag page (either a JSON
// API response or an HTML page with embedded JSON) into a TagPage. A payload
// that explicitly says the tag does not exist yields a KindNotFound error;
// anything unrecognizable yields KindDecode.
func DecodeTagPage(baseURL string, data []byte) (*TagPage, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, errs.New(errs.KindDecode, "empty payload")
	}

	var payload tagPayload
	if trimmed[0] == '{' {
		if err := json.Unmarshal(trimmed, &payload); err != nil {
			return nil, errs.Newf(errs.KindDecode, "malformed JSON payload: %v", err)
		}
	} else {
		extracted, ok := extractEmbeddedJSON(trimmed)
		if !ok {
			return nil, errs.New(errs.KindDecode, "no recognizable JSON payload in page")
		}
		if err := json.Unmarshal(extracted, &payload); err != nil {
			return nil, errs.Newf(errs.KindDecode, "malformed embedded payload: %v", err)
		}
	}

	node, err := payload.hashtagNode()
	if err != nil {
		return nil, err
	}
	return node.toTagPage(baseURL), nil
}

// extractEmbeddedJSON pulls the JSON payload out of an HTML page, trying the
// known script patterns in order of likelihood.
func extractEmbeddedJSON(html []byte) ([]byte, bool) {
	if m := reSharedData.FindSubmatch(html); m != nil {
		return m[1], true
	}
	if m := reAdditionalData.FindSubmatch(html); m != nil {
		return m[1], true
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		return nil, false
	}
	var found []byte
	doc.Find(`script[type="application/ld+json"]`).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		text := strings.TrimSpace(s.Text())
		if strings.HasPrefix(text, "{") && json.Valid([]byte(text)) {
			found = []byte(text)
			return false
		}
		return true
	})
	return found, found != nil
}

// hashtagNode locates the hashtag node inside the payload, whichever layout
// nests it.
func (p *tagPayload) hashtagNode() (*tagNode, error) {
	if p.Data != nil {
		if p.Data.Hashtag == nil {
			return nil, errs.New(errs.KindNotFound, "hashtag does not exist")
		}
		return p.Data.Hashtag, nil
	}
	if p.Status == "fail" || strings.Contains(strings.ToLower(p.Message), "not found") {
		return nil, errs.New(errs.KindNotFound, "hashtag does not exist")
	}
	if p.EntryData != nil && len(p.EntryData.TagPage) > 0 && p.EntryData.TagPage[0].Graphql != nil {
		if node := p.EntryData.TagPage[0].Graphql.Hashtag; node != nil {
			return node, nil
		}
	}
	if p.Graphql != nil && p.Graphql.Hashtag != nil {
		return p.Graphql.Hashtag, nil
	}
	return nil, errs.New(errs.KindDecode, "no hashtag node in payload")
}

func (n *tagNode) toTagPage(baseURL string) *TagPage {
	page := &TagPage{Name: n.Name}

	if n.EdgeToMedia != nil {
		if n.EdgeToMedia.Count != nil {
			count := *n.EdgeToMedia.Count
			page.PostsCount = &count
		}
		if n.EdgeToMedia.PageInfo != nil {
			page.HasNextPage = n.EdgeToMedia.PageInfo.HasNextPage
			page.EndCursor = n.EdgeToMedia.PageInfo.EndCursor
		}
		page.LatestPosts = decodePosts(baseURL, n.EdgeToMedia.Edges)
	}

	if n.EdgeToTopPosts != nil {
		page.TopPosts = decodePosts(baseURL, n.EdgeToTopPosts.Edges)
	}

	if n.EdgeToRelated != nil {
		for _, edge := range n.EdgeToRelated.Edges {
			if edge.Node.Name == "" {
				continue
			}
			magnitude, ok := edge.Node.magnitudeText()
			if !ok {
				continue
			}
			page.Related = append(page.Related, RelatedEntry{
				Name:      edge.Node.Name,
				Magnitude: magnitude,
			})
		}
	}

	return page
}

func decodePosts(baseURL string, edges []mediaEdge) []Post {
	var posts []Post
	for _, edge := range edges {
		node := edge.Node
		if node.ID == "" {
			continue
		}

		caption := ""
		if len(node.CaptionEdge.Edges) > 0 {
			caption = node.CaptionEdge.Edges[0].Node.Text
		}
		hashtags, mentions := ExtractCaptionTokens(caption)

		postURL := GetPostURL(baseURL, node.Shortcode)
		if postURL == "" {
			postURL = node.DisplayURL
		}

		posts = append(posts, Post{
			ID:        node.ID,
			Type:      node.mediaType(),
			Shortcode: node.Shortcode,
			Caption:   caption,
			Hashtags:  hashtags,
			Mentions:  mentions,
			URL:       postURL,
		})
	}
	return posts
}

func (n *mediaNode) mediaType() MediaType {
	switch n.Typename {
	case "GraphVideo":
		return MediaVideo
	case "GraphSidecar":
		return MediaCarousel
	case "GraphImage":
		return MediaPhoto
	}
	if n.IsVideo {
		return MediaVideo
	}
	return MediaPhoto
}

// magnitudeText normalizes the related tag's count into magnitude text,
// whichever form the page delivered it in.
func (n *relatedNode) magnitudeText() (string, bool) {
	if n.EdgeToMedia != nil && n.EdgeToMedia.Count != nil {
		return relations.FormatMagnitude(*n.EdgeToMedia.Count), true
	}
	if len(n.MediaCount) == 0 {
		return "", false
	}
	var asString string
	if err := json.Unmarshal(n.MediaCount, &asString); err == nil {
		return asString, asString != ""
	}
	var asNumber int64
	if err := json.Unmarshal(n.MediaCount, &asNumber); err == nil {
		return relations.FormatMagnitude(asNumber), true
	}
	var asFloat float64
	if err := json.Unmarshal(n.MediaCount, &asFloat); err == nil {
		return relations.FormatMagnitude(int64(asFloat)), true
	}
	return "", false
}
