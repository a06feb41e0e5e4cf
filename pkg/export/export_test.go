package export

import (
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tagstats/pkg/logger"
	"tagstats/pkg/relations"
	"tagstats/pkg/scraper"
)

func sampleOutcomes() []scraper.Outcome {
	count := int64(2_150_000_000)
	perDay := 1178082.19
	record := &scraper.Record{
		Name:        "love",
		Posts:       "2.15 G",
		URL:         "https://www.instagram.com/explore/tags/love/",
		PostsCount:  &count,
		PostsPerDay: &perDay,
		Tiers: relations.Tiers{
			Frequent: []relations.Entry{
				{Hash: "#instagood", Info: "1.96 G"},
			},
			Rare: []relations.Entry{
				{Hash: "#obscuretag", Info: "12 K"},
			},
		},
	}

	smallCount := int64(42_000)
	small := &scraper.Record{
		Name:       "tinytag",
		Posts:      "42 K",
		URL:        "https://www.instagram.com/explore/tags/tinytag/",
		PostsCount: &smallCount,
	}

	return []scraper.Outcome{
		{Job: scraper.Job{Tag: "love"}, Kind: scraper.OutcomeSuccess, Record: record},
		{Job: scraper.Job{Tag: "gone"}, Kind: scraper.OutcomeFailure, Record: nil},
		{Job: scraper.Job{Tag: "tinytag"}, Kind: scraper.OutcomePartial, Record: small},
	}
}

func TestNewCreatesOutputDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "out")

	_, err := New(dir, logger.NewTestLogger())
	require.NoError(t, err)

	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestWriteJSONSkipsRecordlessOutcomesAndKeepsOrder(t *testing.T) {
	dir := t.TempDir()
	exporter, err := New(dir, logger.NewTestLogger())
	require.NoError(t, err)

	path, err := exporter.WriteJSON(sampleOutcomes())
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "hashtags.json"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var records []map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &records))
	require.Len(t, records, 2)
	assert.Equal(t, "love", records[0]["name"])
	assert.Equal(t, "tinytag", records[1]["name"])
	assert.Equal(t, "2.15 G", records[0]["posts"])

	frequent, ok := records[0]["frequent"].([]interface{})
	require.True(t, ok)
	require.Len(t, frequent, 1)
	entry := frequent[0].(map[string]interface{})
	assert.Equal(t, "#instagood", entry["hash"])
	assert.Equal(t, "1.96 G", entry["info"])
}

func TestWriteJSONNilCountStaysNull(t *testing.T) {
	exporter, err := New(t.TempDir(), logger.NewTestLogger())
	require.NoError(t, err)

	outcomes := []scraper.Outcome{
		{
			Job:    scraper.Job{Tag: "quiet"},
			Kind:   scraper.OutcomePartial,
			Record: &scraper.Record{Name: "quiet"},
		},
	}

	path, err := exporter.WriteJSON(outcomes)
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var records []map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &records))
	require.Len(t, records, 1)
	assert.Nil(t, records[0]["postsCount"])
	assert.Nil(t, records[0]["postsPerDay"])
}

func TestWriteCSVFlattensNestedFields(t *testing.T) {
	exporter, err := New(t.TempDir(), logger.NewTestLogger())
	require.NoError(t, err)

	path, err := exporter.WriteCSV(sampleOutcomes())
	require.NoError(t, err)

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3) // header + two records

	assert.Equal(t, csvHeader, rows[0])
	assert.Equal(t, "love", rows[1][0])
	assert.Equal(t, "2150000000", rows[1][1])
	assert.Equal(t, "1178082.19", rows[1][4])
	assert.Contains(t, rows[1][5], `"hash":"#instagood"`)

	// Record without a per-day estimate leaves the cell empty
	assert.Equal(t, "tinytag", rows[2][0])
	assert.Equal(t, "", rows[2][4])
}

func TestWriteHTMLRendersChart(t *testing.T) {
	exporter, err := New(t.TempDir(), logger.NewTestLogger())
	require.NoError(t, err)

	path, err := exporter.WriteHTML(sampleOutcomes())
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	html := string(data)
	assert.Contains(t, html, "#love")
	assert.Contains(t, html, "#tinytag")
	assert.Contains(t, html, "Hashtag Reach")
}

func TestExportDispatchesAllFormats(t *testing.T) {
	dir := t.TempDir()
	log := logger.NewTestLogger()
	exporter, err := New(dir, log)
	require.NoError(t, err)

	err = exporter.Export(sampleOutcomes(), []string{"json", "CSV", " html "})
	require.NoError(t, err)

	for _, name := range []string{"hashtags.json", "hashtags.csv", "hashtags.html"} {
		_, err := os.Stat(filepath.Join(dir, name))
		assert.NoError(t, err, name)
	}
	assert.True(t, log.HasMessage("INFO", "Wrote output file"))
}

func TestExportRejectsUnknownFormat(t *testing.T) {
	exporter, err := New(t.TempDir(), logger.NewTestLogger())
	require.NoError(t, err)

	err = exporter.Export(sampleOutcomes(), []string{"json", "xlsx"})
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "unknown output format"))
}
