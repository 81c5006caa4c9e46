package main

import (
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/linkatlas/linkatlas/internal/config"
	"github.com/linkatlas/linkatlas/pkg/analyzer"
	"github.com/linkatlas/linkatlas/pkg/crawler"
	"github.com/linkatlas/linkatlas/pkg/reporter"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

var rootCmd = &cobra.Command{
	Use:   "linkatlas [URL]",
	Short: "LinkAtlas - website link-graph crawler and analyzer",
	Long: `LinkAtlas crawls a website breadth-first from a seed URL, builds the
directed link graph, and reports PageRank scores, orphaned pages, hub
pages and authority pages over the result.`,
	Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
	Args:    cobra.ExactArgs(1),
	RunE:    run,
}

func init() {
	flags := rootCmd.Flags()
	flags.Int("max-depth", 3, "Maximum crawling depth (seed is depth 1)")
	flags.Bool("restrict-domain", true, "Restrict crawling to the seed's domain")
	flags.String("save-path", "", "Directory to cache crawled pages (empty disables caching)")
	flags.Int("threads", 10, "Number of concurrent crawl workers")
	flags.Float64("rate-limit", 0.1, "Minimum delay between requests to the same domain, in seconds")
	flags.String("format", "text", "Report format (text, markdown, json)")
	flags.String("output", "", "File to write the report to (default stdout)")
	flags.String("config", "", "Config file path")
	flags.BoolP("verbose", "v", false, "Enable verbose output and the full link-structure dump")
}

func run(cmd *cobra.Command, args []string) error {
	configPath, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Flags set on the command line override config file and env values.
	if cmd.Flags().Changed("max-depth") {
		cfg.Crawler.MaxDepth, _ = cmd.Flags().GetInt("max-depth")
	}
	if cmd.Flags().Changed("restrict-domain") {
		cfg.Crawler.RestrictDomain, _ = cmd.Flags().GetBool("restrict-domain")
	}
	if cmd.Flags().Changed("save-path") {
		cfg.Crawler.SavePath, _ = cmd.Flags().GetString("save-path")
	}
	if cmd.Flags().Changed("threads") {
		cfg.Crawler.MaxWorkers, _ = cmd.Flags().GetInt("threads")
	}
	if cmd.Flags().Changed("rate-limit") {
		cfg.Crawler.RateLimit, _ = cmd.Flags().GetFloat64("rate-limit")
	}
	if cmd.Flags().Changed("format") {
		cfg.Output.Format, _ = cmd.Flags().GetString("format")
	}
	if cmd.Flags().Changed("output") {
		cfg.Output.Path, _ = cmd.Flags().GetString("output")
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	verbose, _ := cmd.Flags().GetBool("verbose")
	logger := newLogger(cfg.Logging.Level, verbose)

	seed := args[0]
	printBanner(seed, cfg)

	c, err := crawler.New(seed, crawler.Options{
		MaxDepth:       cfg.Crawler.MaxDepth,
		MaxWorkers:     cfg.Crawler.MaxWorkers,
		RateLimit:      cfg.Crawler.RateLimitDuration(),
		RestrictDomain: cfg.Crawler.RestrictDomain,
		SavePath:       cfg.Crawler.SavePath,
		UserAgent:      cfg.Crawler.UserAgent,
		FetchTimeout:   cfg.Crawler.Timeout,
	}, logger)
	if err != nil {
		return fmt.Errorf("failed to create crawler: %w", err)
	}

	result, err := c.Crawl(cmd.Context())
	if err != nil {
		return fmt.Errorf("crawl failed: %w", err)
	}

	r := reporter.New()
	if verbose {
		fmt.Println(r.RenderStructure(result))
	}

	report := analyzer.BuildReport(result)
	rendered, err := r.Render(report, cfg.Output.Format)
	if err != nil {
		return fmt.Errorf("report rendering failed: %w", err)
	}

	if cfg.Output.Path != "" {
		if err := os.WriteFile(cfg.Output.Path, []byte(rendered), 0o644); err != nil {
			return fmt.Errorf("failed to write report: %w", err)
		}
		fmt.Printf("Report saved to %s\n", cfg.Output.Path)
	} else {
		fmt.Println(rendered)
	}

	return nil
}

func newLogger(level string, verbose bool) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	if verbose {
		lvl = zerolog.DebugLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}).
		Level(lvl).
		With().Timestamp().Logger()
}

func printBanner(seed string, cfg *config.Config) {
	fmt.Println("Starting crawler with:")
	fmt.Printf("  URL:                %s\n", seed)
	fmt.Printf("  Max depth:          %d\n", cfg.Crawler.MaxDepth)
	fmt.Printf("  Restrict to domain: %t\n", cfg.Crawler.RestrictDomain)
	fmt.Printf("  Threads:            %d\n", cfg.Crawler.MaxWorkers)
	fmt.Printf("  Rate limit:         %.2fs\n", cfg.Crawler.RateLimit)
	if cfg.Crawler.SavePath != "" {
		fmt.Printf("  Saving pages to:    %s\n", cfg.Crawler.SavePath)
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
