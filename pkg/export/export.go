package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"tagstats/pkg/logger"
	"tagstats/pkg/scraper"
)

// Exporter writes finished run outcomes to disk in one or more formats.
// It never reorders or mutates the outcomes it is given.
type Exporter struct {
	outputDir string
	log       logger.Logger
}

// New creates an exporter rooted at outputDir, creating the directory if needed
func New(outputDir string, log logger.Logger) (*Exporter, error) {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}
	return &Exporter{outputDir: outputDir, log: log}, nil
}

// Export dispatches the outcomes to every requested format. Unknown format
// names are an error; nothing is written for them.
func (e *Exporter) Export(outcomes []scraper.Outcome, formats []string) error {
	for _, format := range formats {
		var (
			path string
			err  error
		)
		switch strings.ToLower(strings.TrimSpace(format)) {
		case "json":
			path, err = e.WriteJSON(outcomes)
		case "csv":
			path, err = e.WriteCSV(outcomes)
		case "html":
			path, err = e.WriteHTML(outcomes)
		default:
			return fmt.Errorf("unknown output format: %q", format)
		}
		if err != nil {
			return fmt.Errorf("failed to write %s output: %w", format, err)
		}
		e.log.InfoWithFields("Wrote output file", map[string]interface{}{
			"format": format,
			"path":   path,
		})
	}
	return nil
}

// WriteJSON writes the assembled records as an indented JSON array. Jobs
// that produced no record are skipped; the array keeps input order for the
// rest.
func (e *Exporter) WriteJSON(outcomes []scraper.Outcome) (string, error) {
	records := make([]*scraper.Record, 0, len(outcomes))
	for _, outcome := range outcomes {
		if outcome.Record != nil {
			records = append(records, outcome.Record)
		}
	}

	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal records: %w", err)
	}

	path := filepath.Join(e.outputDir, "hashtags.json")
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write file: %w", err)
	}
	return path, nil
}

// csvHeader fixes the column order for CSV output. Nested fields are
// JSON-encoded into their cell.
var csvHeader = []string{
	"name", "postsCount", "posts", "url", "postsPerDay",
	"frequent", "average", "rare",
	"relatedFrequent", "relatedAverage", "relatedRare",
	"topPosts", "latestPosts",
}

// WriteCSV writes one row per assembled record, flattening nested fields
// into JSON-encoded cells
func (e *Exporter) WriteCSV(outcomes []scraper.Outcome) (string, error) {
	path := filepath.Join(e.outputDir, "hashtags.csv")
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create file: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(csvHeader); err != nil {
		return "", fmt.Errorf("failed to write header: %w", err)
	}

	for _, outcome := range outcomes {
		record := outcome.Record
		if record == nil {
			continue
		}

		row := []string{
			record.Name,
			formatCount(record.PostsCount),
			record.Posts,
			record.URL,
			formatPerDay(record.PostsPerDay),
			encodeCell(record.Frequent),
			encodeCell(record.Average),
			encodeCell(record.Rare),
			encodeCell(record.RelatedFrequent),
			encodeCell(record.RelatedAverage),
			encodeCell(record.RelatedRare),
			encodeCell(record.TopPosts),
			encodeCell(record.LatestPosts),
		}
		if err := w.Write(row); err != nil {
			return "", fmt.Errorf("failed to write row: %w", err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return "", fmt.Errorf("failed to flush writer: %w", err)
	}
	return path, nil
}

// WriteHTML renders a bar chart of posts counts per hashtag. Records
// without a revealed count chart as zero-height bars so the axis still
// names every hashtag.
func (e *Exporter) WriteHTML(outcomes []scraper.Outcome) (string, error) {
	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{
			Title:    "Hashtag Reach",
			Subtitle: "Total posts per requested hashtag",
		}),
	)

	var names []string
	var values []opts.BarData
	for _, outcome := range outcomes {
		record := outcome.Record
		if record == nil {
			continue
		}
		names = append(names, "#"+record.Name)
		if record.PostsCount != nil {
			values = append(values, opts.BarData{Value: *record.PostsCount})
		} else {
			values = append(values, opts.BarData{Value: 0})
		}
	}
	bar.SetXAxis(names).AddSeries("Posts", values)

	path := filepath.Join(e.outputDir, "hashtags.html")
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create file: %w", err)
	}
	defer f.Close()

	if err := bar.Render(f); err != nil {
		return "", fmt.Errorf("failed to render chart: %w", err)
	}
	return path, nil
}

func formatCount(count *int64) string {
	if count == nil {
		return ""
	}
	return strconv.FormatInt(*count, 10)
}

func formatPerDay(perDay *float64) string {
	if perDay == nil {
		return ""
	}
	return strconv.FormatFloat(*perDay, 'f', 2, 64)
}

// encodeCell JSON-encodes a nested field into a single CSV cell
func encodeCell(v interface{}) string {
	data, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(data)
}
