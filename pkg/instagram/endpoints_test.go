package instagram

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeTag(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"love", "love"},
		{"#love", "love"},
		{"##love", "love"},
		{"  #Love  ", "love"},
		{"TRAVEL", "travel"},
		{"# travel", "travel"},
		{"", ""},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, NormalizeTag(tt.input), "input %q", tt.input)
	}
}

func TestNormalizeTagIdempotent(t *testing.T) {
	inputs := []string{"#Love", "  TRAVEL ", "photo_of_the_day", "##x"}
	for _, input := range inputs {
		once := NormalizeTag(input)
		assert.Equal(t, once, NormalizeTag(once), "input %q", input)
	}
}

func TestIsValidTag(t *testing.T) {
	assert.True(t, IsValidTag("love"))
	assert.True(t, IsValidTag("photo_of_the_day"))
	assert.False(t, IsValidTag(""))
	assert.False(t, IsValidTag("#love"))
	assert.False(t, IsValidTag("two words"))
	assert.False(t, IsValidTag("a/b"))
}

func TestGetTagPageURL(t *testing.T) {
	assert.Equal(t,
		"https://www.instagram.com/explore/tags/love/",
		GetTagPageURL("https://www.instagram.com", "love"))
	assert.Equal(t,
		"https://www.instagram.com/explore/tags/love/",
		GetTagPageURL("https://www.instagram.com/", "love"))
}

func TestGetTagMediaURL(t *testing.T) {
	u := GetTagMediaURL("https://www.instagram.com", "love", "cursor123", 12)
	assert.Contains(t, u, "/graphql/query/")
	assert.Contains(t, u, "query_hash="+TagQueryHash)
	assert.Contains(t, u, "cursor123")

	// Non-positive page size falls back to the default
	u = GetTagMediaURL("https://www.instagram.com", "love", "", 0)
	assert.Contains(t, u, "%22first%22%3A12")
}

func TestGetPostURL(t *testing.T) {
	assert.Equal(t, "https://www.instagram.com/p/ABC123/",
		GetPostURL("https://www.instagram.com", "ABC123"))
	assert.Equal(t, "", GetPostURL("https://www.instagram.com", ""))
}
