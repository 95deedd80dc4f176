package commands

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/allendavis-developer/cg-request/internal/browser"
	"github.com/allendavis-developer/cg-request/internal/logger"
	"github.com/allendavis-developer/cg-request/internal/output"
	"github.com/allendavis-developer/cg-request/pkg/pricer"
)

var scrapeCmd = &cobra.Command{
	Use:   "scrape",
	Short: "Extract listings from results pages",
	Long: `Scrape marketplace results pages and extract their listings.

The URL must belong to a supported site. No search or question
dialogue is run; the pages are loaded and extracted as they are.

Examples:
  # Single page
  cg-request scrape -u "https://uk.webuy.com/search?stext=ps5"

  # Several pages at once
  cg-request scrape -u "https://uk.webuy.com/search?stext=ps5" \
      -u "https://uk.webuy.com/search?stext=xbox+series+x" --format jsonl`,
	RunE: runScrapeCmd,
}

func init() {
	rootCmd.AddCommand(scrapeCmd)

	flags := scrapeCmd.Flags()
	flags.StringSliceP("url", "u", nil, "URL(s) to scrape (can be repeated)")
	flags.StringP("output", "o", "", "output file (default: stdout)")
	flags.String("format", "json", "output format: json, jsonl, yaml")
	flags.Duration("timeout", 60*time.Second, "overall timeout")
	flags.String("sites", "", "also load site configs from a YAML file")

	_ = scrapeCmd.MarkFlagRequired("url")
}

func runScrapeCmd(cmd *cobra.Command, args []string) error {
	logger.Init(logger.Options{
		Debug: viper.GetBool("debug"),
		Quiet: viper.GetBool("quiet"),
	})

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	urls, _ := cmd.Flags().GetStringSlice("url")
	timeout, _ := cmd.Flags().GetDuration("timeout")

	// Scraping never consults the model, so no provider is configured.
	p := pricer.New(pricer.Options{
		Browser: browser.DefaultConfig(),
	})
	defer func() { _ = p.Close() }()

	if err := loadExtraSites(cmd, p); err != nil {
		logError("%v", err)
		return err
	}

	scrapeCtx, cancelScrape := context.WithTimeout(ctx, timeout)
	defer cancelScrape()

	logInfo("Scraping %d page(s)...", len(urls))
	pages := p.ScrapeMultiple(scrapeCtx, urls)

	for _, page := range pages {
		if page.Error != "" {
			logError("%s: %s", page.URL, page.Error)
		} else {
			logInfo("%s: %d products", page.URL, len(page.Products))
		}
	}

	return writePages(cmd, pages)
}

func writePages(cmd *cobra.Command, pages []pricer.ScrapePage) error {
	formatName, _ := cmd.Flags().GetString("format")
	format, err := output.ParseFormat(formatName)
	if err != nil {
		return err
	}

	dest := os.Stdout
	if path, _ := cmd.Flags().GetString("output"); path != "" {
		f, err := os.Create(path)
		if err != nil {
			return err
		}
		defer func() { _ = f.Close() }()
		dest = f
	}

	w, err := output.NewWriter(dest, format)
	if err != nil {
		return err
	}
	for _, page := range pages {
		if err := w.Write(page); err != nil {
			return err
		}
	}
	return w.Flush()
}
