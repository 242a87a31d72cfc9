package commands

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/spf13/cobra"

	"github.com/WessleyAI/subreddit-scraper/engine/archive"
	"github.com/WessleyAI/subreddit-scraper/engine/domain"
	"github.com/WessleyAI/subreddit-scraper/engine/reddit"
	"github.com/WessleyAI/subreddit-scraper/engine/render"
	"github.com/WessleyAI/subreddit-scraper/engine/scraper"
	"github.com/WessleyAI/subreddit-scraper/pkg/config"
	"github.com/WessleyAI/subreddit-scraper/pkg/natsutil"
)

type scrapeFlags struct {
	subreddit      string
	sort           string
	timeFilter     string
	limit          int
	keywords       string
	out            string
	text           string
	writeText      bool
	natsURL        string
	subject        string
	countSemantics string
	onError        string
	expandLimit    int
	quiet          bool
}

func newScrapeCmd() *cobra.Command {
	var f scrapeFlags
	cmd := &cobra.Command{
		Use:   "scrape [subreddit]",
		Short: "Scrapes a subreddit listing with full comment trees into a JSON archive.",
		Example: `  scraper-reddit scrape golang --sort top --time week --limit 50
  scraper-reddit scrape -s AskHistorians --keywords "rome, byzantium" --text`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				if f.subreddit != "" && f.subreddit != args[0] {
					return fmt.Errorf("subreddit given twice: %q and %q", f.subreddit, args[0])
				}
				f.subreddit = args[0]
			}
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			applyScrapeFlags(cmd, &f, cfg)
			return runScrape(cmd, f, cfg)
		},
	}

	fl := cmd.Flags()
	fl.StringVarP(&f.subreddit, "subreddit", "s", "", "subreddit to scrape, with or without r/")
	fl.StringVar(&f.sort, "sort", domain.SortNew, "listing order: new, hot, top or controversial")
	fl.StringVarP(&f.timeFilter, "time", "t", domain.TimeAll, "time window for top and controversial: all, day, week, month or year")
	fl.IntVarP(&f.limit, "limit", "n", 10, "submissions to read (capped at 1000)")
	fl.StringVarP(&f.keywords, "keywords", "k", "", "keywords to filter on, comma or newline separated")
	fl.StringVarP(&f.out, "out", "o", "", "archive path (default <subreddit>_<sort>_output.json)")
	fl.BoolVar(&f.writeText, "text", false, "also write a text report")
	fl.StringVar(&f.text, "text-out", "", "text report path (default <subreddit>_<sort>_cleaned.txt, implies --text)")
	fl.StringVar(&f.natsURL, "nats", "", "NATS URL to publish accepted posts to (default $NATS_URL when --subject is set)")
	fl.StringVar(&f.subject, "subject", "", "NATS subject (default $NATS_SUBJECT or reddit.posts)")
	fl.StringVar(&f.countSemantics, "count-semantics", "", "what --limit counts: raw or matched (default from config)")
	fl.StringVar(&f.onError, "on-error", "", "submission failure policy: abort or continue (default from config)")
	fl.IntVar(&f.expandLimit, "expand-limit", 0, "comment placeholders to resolve per submission, 0 for all (default from config)")
	fl.BoolVarP(&f.quiet, "quiet", "q", false, "hide the progress bar")
	return cmd
}

// applyScrapeFlags lets explicitly set flags override configuration.
func applyScrapeFlags(cmd *cobra.Command, f *scrapeFlags, cfg *config.Config) {
	fl := cmd.Flags()
	if fl.Changed("count-semantics") {
		cfg.CountSemantics = f.countSemantics
	}
	if fl.Changed("on-error") {
		cfg.OnError = f.onError
	}
	if fl.Changed("expand-limit") {
		cfg.ExpandLimit = f.expandLimit
	}
	if fl.Changed("subject") {
		cfg.NATSSubject = f.subject
		if f.natsURL == "" {
			f.natsURL = cfg.NATSURL
		}
	}
	if f.text != "" {
		f.writeText = true
	}
}

func runScrape(cmd *cobra.Command, f scrapeFlags, cfg *config.Config) error {
	ctx := cmd.Context()
	logger := slog.Default()

	if f.limit > domain.MaxLimit {
		logger.Warn("limit capped", "requested", f.limit, "limit", domain.MaxLimit)
		f.limit = domain.MaxLimit
	}
	req := domain.Request{
		Subreddit:  f.subreddit,
		Sort:       f.sort,
		TimeFilter: f.timeFilter,
		Limit:      f.limit,
		Keywords:   domain.ParseKeywords(f.keywords),
	}.Normalize()
	if err := domain.ValidateRequest(req); err != nil {
		return err
	}

	opts, err := scraper.OptionsFrom(cfg, logger)
	if err != nil {
		return err
	}
	client, err := reddit.New(ctx, reddit.ConfigFrom(cfg), reddit.WithLogger(logger))
	if err != nil {
		return err
	}

	var nc *nats.Conn
	if f.natsURL != "" {
		nc, err = nats.Connect(f.natsURL, nats.Name("scraper-reddit"))
		if err != nil {
			return fmt.Errorf("nats connect: %w", err)
		}
		defer nc.Close()
		logger.Info("publishing to NATS", "subject", cfg.NATSSubject)
	}

	var onProgress scraper.ProgressFunc
	var bar *progressBar
	if !f.quiet {
		bar = newProgressBar(cmd.ErrOrStderr(), "r/"+req.Subreddit, req.Limit)
		onProgress = bar.update
	}

	start := time.Now()
	posts, err := scraper.New(client, opts).Scrape(ctx, req, onProgress)
	elapsed := time.Since(start)
	if bar != nil {
		bar.stop(err == nil)
	}
	var partial *scraper.PartialError
	if errors.As(err, &partial) {
		for _, failure := range partial.Failed {
			logger.Warn("submission failed", "id", failure.ID, "err", failure.Err)
		}
	} else if err != nil {
		return err
	}

	out := f.out
	if out == "" {
		out = archive.OutputName(req.Subreddit, req.Sort)
	}
	if err := archive.SaveFile(out, posts); err != nil {
		return err
	}
	written := []string{out}

	if f.writeText {
		textOut := f.text
		if textOut == "" {
			textOut = archive.ReportName(req.Subreddit, req.Sort)
		}
		if err := os.WriteFile(textOut, []byte(render.Render(posts)), 0o644); err != nil {
			return fmt.Errorf("write report: %w", err)
		}
		written = append(written, textOut)
	}

	if nc != nil {
		for _, p := range posts {
			if err := natsutil.Publish(ctx, nc, cfg.NATSSubject, p, natsutil.WithMsgID(p.ID), natsutil.WithHeader("Subreddit", req.Subreddit)); err != nil {
				return fmt.Errorf("nats publish %s: %w", p.ID, err)
			}
		}
		if err := nc.Flush(); err != nil {
			return fmt.Errorf("nats flush: %w", err)
		}
	}

	printSummary(cmd.OutOrStdout(), "r/"+req.Subreddit+" ("+req.Sort+")", archive.Summarize(posts), elapsed, written...)
	if partial != nil {
		logger.Warn("archive written without failed submissions", "failed", len(partial.Failed))
	}
	return nil
}
