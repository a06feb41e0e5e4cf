package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"tagstats/pkg/config"
	"tagstats/pkg/export"
	"tagstats/pkg/instagram"
	"tagstats/pkg/logger"
	"tagstats/pkg/scraper"
)

var (
	// Scrape command flags
	outputDir    string
	formats      []string
	inputFile    string
	concurrent   int
	rateLimit    int
	sampleSize   int
	relatedDepth int
	maxAttempts  int
	maxPages     int
)

// scrapeCmd represents the scrape command
var scrapeCmd = &cobra.Command{
	Use:   "scrape [hashtags...]",
	Short: "Collect analytics for one or more hashtags",
	Long: `Collect analytics for the given hashtags and write them to the output
directory in the requested formats.

Hashtags can be passed as arguments (with or without a leading '#') or read
from a file with one hashtag per line via --input-file. Blank lines and lines
starting with '//' are skipped. Duplicates are collapsed; the output keeps
the order hashtags were first seen.`,
	Example: `  # Collect analytics for two hashtags
  tagstats scrape love photography

  # Read hashtags from a file and write JSON plus an HTML chart
  tagstats scrape --input-file tags.txt --formats json,html

  # Slow down for a sensitive proxy pool
  tagstats scrape love --rate-limit 10 --concurrent 1`,
	Args: cobra.ArbitraryArgs,
	RunE: runScrape,
}

func init() {
	rootCmd.AddCommand(scrapeCmd)

	scrapeCmd.Flags().StringVarP(&outputDir, "output", "o", "", "output directory for result files")
	scrapeCmd.Flags().StringSliceVar(&formats, "formats", nil, "output formats (json, csv, html)")
	scrapeCmd.Flags().StringVarP(&inputFile, "input-file", "i", "", "file with one hashtag per line")
	scrapeCmd.Flags().IntVar(&concurrent, "concurrent", 0, "number of hashtags scraped concurrently")
	scrapeCmd.Flags().IntVar(&rateLimit, "rate-limit", 0, "requests per minute")
	scrapeCmd.Flags().IntVar(&sampleSize, "sample-size", 0, "number of recent posts to sample per hashtag")
	scrapeCmd.Flags().IntVar(&relatedDepth, "related-depth", 0, "maximum related hashtags considered per hashtag")
	scrapeCmd.Flags().IntVar(&maxAttempts, "max-attempts", 0, "maximum fetch attempts per request")
	scrapeCmd.Flags().IntVar(&maxPages, "max-pages", 0, "maximum pagination requests per hashtag")
}

func runScrape(cmd *cobra.Command, args []string) error {
	tags, err := gatherTags(args)
	if err != nil {
		return err
	}
	if len(tags) == 0 {
		return fmt.Errorf("no hashtags given: pass them as arguments or via --input-file")
	}

	cfg, err := config.Load(configFile, flagOverrides(cmd))
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	log, err := logger.New(&cfg.Logging)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	logger.SetLogger(log)

	log.InfoWithFields("tagstats starting", map[string]interface{}{
		"version":  version,
		"hashtags": len(tags),
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	s, err := scraper.New(cfg, log)
	if err != nil {
		return fmt.Errorf("failed to initialize scraper: %w", err)
	}

	outcomes := s.Run(ctx, tags)

	exporter, err := export.New(cfg.Output.Directory, log)
	if err != nil {
		return err
	}
	if err := exporter.Export(outcomes, cfg.Output.Formats); err != nil {
		return err
	}

	var succeeded, partial, failed int
	for _, outcome := range outcomes {
		switch outcome.Kind {
		case scraper.OutcomeSuccess:
			succeeded++
		case scraper.OutcomePartial:
			partial++
		default:
			failed++
		}
	}
	log.InfoWithFields("Run finished", map[string]interface{}{
		"succeeded": succeeded,
		"partial":   partial,
		"failed":    failed,
	})

	if succeeded == 0 && partial == 0 {
		return fmt.Errorf("all %d hashtag jobs failed", failed)
	}
	return nil
}

// gatherTags merges argument and file hashtags, normalizing each and
// collapsing duplicates while keeping first-seen order
func gatherTags(args []string) ([]string, error) {
	raw := append([]string(nil), args...)

	if inputFile != "" {
		fromFile, err := readTagFile(inputFile)
		if err != nil {
			return nil, err
		}
		raw = append(raw, fromFile...)
	}

	seen := make(map[string]bool)
	var tags []string
	for _, r := range raw {
		tag := instagram.NormalizeTag(r)
		if tag == "" || seen[tag] {
			continue
		}
		seen[tag] = true
		tags = append(tags, tag)
	}
	return tags, nil
}

// readTagFile reads one hashtag per line. '#' cannot mark comments here
// because hashtags are routinely written with their leading '#', so
// comments use '//' instead.
func readTagFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open input file: %w", err)
	}
	defer f.Close()

	var tags []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "//") {
			continue
		}
		tags = append(tags, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read input file: %w", err)
	}
	return tags, nil
}

// flagOverrides builds the config override map from flags the user actually set
func flagOverrides(cmd *cobra.Command) map[string]interface{} {
	flags := make(map[string]interface{})
	if cmd.Flags().Changed("output") {
		flags["output-dir"] = outputDir
	}
	if cmd.Flags().Changed("formats") {
		flags["formats"] = formats
	}
	if cmd.Flags().Changed("concurrent") {
		flags["concurrency"] = concurrent
	}
	if cmd.Flags().Changed("rate-limit") {
		flags["requests-per-minute"] = rateLimit
	}
	if cmd.Flags().Changed("sample-size") {
		flags["sample-size"] = sampleSize
	}
	if cmd.Flags().Changed("related-depth") {
		flags["related-depth"] = relatedDepth
	}
	if cmd.Flags().Changed("max-attempts") {
		flags["max-attempts"] = maxAttempts
	}
	if cmd.Flags().Changed("max-pages") {
		flags["max-pages"] = maxPages
	}
	if logLevel != "" {
		flags["log-level"] = logLevel
	}
	return flags
}
