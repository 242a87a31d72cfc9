// Package scraper turns a subreddit listing into normalized, keyword
// filtered posts with their full comment trees.
package scraper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"

	"github.com/WessleyAI/subreddit-scraper/engine/domain"
	"github.com/WessleyAI/subreddit-scraper/engine/reddit"
	"github.com/WessleyAI/subreddit-scraper/pkg/config"
	"github.com/WessleyAI/subreddit-scraper/pkg/fn"
)

const instrumentation = "engine/scraper"

// CountSemantics selects what a request's limit counts.
type CountSemantics string

const (
	// CountRaw caps the submissions read from the listing. Fewer posts may
	// be returned once keywords filter some out.
	CountRaw CountSemantics = "raw"
	// CountMatched keeps reading until limit posts pass the keyword filter
	// or the listing runs out.
	CountMatched CountSemantics = "matched"
)

// ErrorPolicy selects what happens when a single submission fails.
type ErrorPolicy string

const (
	// OnErrorAbort fails the whole scrape on the first submission error.
	OnErrorAbort ErrorPolicy = "abort"
	// OnErrorContinue skips failing submissions and reports them in a
	// *PartialError next to the accepted posts.
	OnErrorContinue ErrorPolicy = "continue"
)

// ErrUnknownOption is returned when parsing an unknown option value.
var ErrUnknownOption = errors.New("unknown option")

// ParseCountSemantics parses "raw" or "matched". Empty input yields CountRaw.
func ParseCountSemantics(s string) (CountSemantics, error) {
	switch v := CountSemantics(strings.ToLower(strings.TrimSpace(s))); v {
	case "", CountRaw:
		return CountRaw, nil
	case CountMatched:
		return v, nil
	default:
		return "", fmt.Errorf("count semantics %q: %w", s, ErrUnknownOption)
	}
}

// ParseErrorPolicy parses "abort" or "continue". Empty input yields OnErrorAbort.
func ParseErrorPolicy(s string) (ErrorPolicy, error) {
	switch v := ErrorPolicy(strings.ToLower(strings.TrimSpace(s))); v {
	case "", OnErrorAbort:
		return OnErrorAbort, nil
	case OnErrorContinue:
		return v, nil
	default:
		return "", fmt.Errorf("error policy %q: %w", s, ErrUnknownOption)
	}
}

// API is the subset of the Reddit client a scrape needs.
type API interface {
	Submissions(ctx context.Context, subreddit string, opts reddit.ListingOptions, each func(*reddit.Submission) error) error
	Comments(ctx context.Context, submissionID string, expandLimit int) (*reddit.CommentForest, error)
}

// Options tunes a Scraper. The zero value reads raw counts, aborts on the
// first error and expands every comment placeholder.
type Options struct {
	// ExpandLimit bounds the continuation placeholders resolved per
	// submission. Zero means unlimited.
	ExpandLimit    int
	CountSemantics CountSemantics
	OnError        ErrorPolicy
	Logger         *slog.Logger
}

// ProgressFunc receives progress after every submission. It runs on the
// scraping goroutine.
type ProgressFunc func(done, total int)

// SubmissionError is the failure of a single submission.
type SubmissionError struct {
	ID  string
	Err error
}

func (e *SubmissionError) Error() string {
	return fmt.Sprintf("submission %s: %v", e.ID, e.Err)
}

func (e *SubmissionError) Unwrap() error { return e.Err }

// PartialError reports the submissions skipped under OnErrorContinue. The
// posts returned with it are complete for every other submission.
type PartialError struct {
	Failed []SubmissionError
}

func (e *PartialError) Error() string {
	ids := fn.Map(e.Failed, func(f SubmissionError) string { return f.ID })
	return fmt.Sprintf("%d submission(s) failed: %s", len(e.Failed), strings.Join(ids, ", "))
}

func (e *PartialError) Unwrap() []error {
	errs := make([]error, len(e.Failed))
	for i := range e.Failed {
		errs[i] = &e.Failed[i]
	}
	return errs
}

// Scraper runs scrapes sequentially against an API. A Scraper may be reused
// but not shared between concurrent scrapes.
type Scraper struct {
	api         API
	opts        Options
	logger      *slog.Logger
	tracer      trace.Tracer
	submissions metric.Int64Counter
	comments    metric.Int64Counter
}

// New creates a Scraper.
func New(api API, opts Options) *Scraper {
	if opts.CountSemantics == "" {
		opts.CountSemantics = CountRaw
	}
	if opts.OnError == "" {
		opts.OnError = OnErrorAbort
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	meter := otel.Meter(instrumentation)
	submissions, err := meter.Int64Counter("scraper.submissions",
		metric.WithDescription("Submissions processed, by outcome"))
	if err != nil {
		submissions = noop.Int64Counter{}
	}
	comments, err := meter.Int64Counter("scraper.comments",
		metric.WithDescription("Comments flattened into accepted posts"))
	if err != nil {
		comments = noop.Int64Counter{}
	}

	return &Scraper{
		api:         api,
		opts:        opts,
		logger:      logger,
		tracer:      otel.Tracer(instrumentation),
		submissions: submissions,
		comments:    comments,
	}
}

// Scrape reads the listing a request names and returns the accepted posts in
// listing order. The request is normalized and validated first; invalid
// requests fail with a *domain.ValidationError. Under OnErrorContinue the
// error may be a *PartialError returned together with the posts.
func (s *Scraper) Scrape(ctx context.Context, req domain.Request, progress ProgressFunc) ([]domain.Post, error) {
	req = req.Normalize()
	if err := domain.ValidateRequest(req); err != nil {
		return nil, err
	}
	if progress == nil {
		progress = func(int, int) {}
	}

	runID := uuid.NewString()
	ctx, span := s.tracer.Start(ctx, "scraper.Scrape", trace.WithAttributes(
		attribute.String("scrape.run_id", runID),
		attribute.String("reddit.subreddit", req.Subreddit),
		attribute.String("reddit.sort", req.Sort),
		attribute.Int("scrape.limit", req.Limit),
	))
	defer span.End()

	logger := s.logger.With("run_id", runID, "subreddit", req.Subreddit, "sort", req.Sort)
	logger.Info("scrape started", "limit", req.Limit, "keywords", len(req.Keywords),
		"count_semantics", s.opts.CountSemantics, "on_error", s.opts.OnError)
	start := time.Now()

	listing := reddit.ListingOptions{Sort: req.Sort, Limit: req.Limit}
	if s.opts.CountSemantics == CountMatched {
		listing.Limit = reddit.MaxListing
	}
	if req.UsesTimeFilter() {
		listing.Time = req.TimeFilter
	}

	posts := []domain.Post{}
	var failed []SubmissionError
	processed := 0

	err := s.api.Submissions(ctx, req.Subreddit, listing, func(sub *reddit.Submission) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		post, ok, err := s.process(ctx, sub, req.Keywords)
		processed++
		switch {
		case err != nil:
			s.record(ctx, "failed")
			if ctx.Err() != nil || s.opts.OnError == OnErrorAbort {
				return &SubmissionError{ID: sub.ID, Err: err}
			}
			logger.Warn("submission skipped", "id", sub.ID, "err", err)
			failed = append(failed, SubmissionError{ID: sub.ID, Err: err})
		case ok:
			s.record(ctx, "accepted")
			s.comments.Add(ctx, int64(len(post.Comments)))
			posts = append(posts, post)
			logger.Debug("submission accepted", "id", sub.ID, "comments", len(post.Comments))
		default:
			s.record(ctx, "filtered")
			logger.Debug("submission filtered", "id", sub.ID)
		}

		if s.opts.CountSemantics == CountMatched {
			progress(len(posts), req.Limit)
			if len(posts) >= req.Limit {
				return reddit.ErrStop
			}
			return nil
		}
		progress(processed, req.Limit)
		return nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		logger.Error("scrape failed", "processed", processed, "err", err)
		return nil, fmt.Errorf("scrape r/%s: %w", req.Subreddit, err)
	}

	span.SetAttributes(
		attribute.Int("scrape.processed", processed),
		attribute.Int("scrape.accepted", len(posts)),
		attribute.Int("scrape.failed", len(failed)),
	)
	logger.Info("scrape complete", "processed", processed, "accepted", len(posts),
		"failed", len(failed), "elapsed", time.Since(start))

	if len(failed) > 0 {
		return posts, &PartialError{Failed: failed}
	}
	return posts, nil
}

// process expands, flattens, normalizes and filters one submission.
func (s *Scraper) process(ctx context.Context, sub *reddit.Submission, keywords []string) (domain.Post, bool, error) {
	ctx, span := s.tracer.Start(ctx, "scraper.submission",
		trace.WithAttributes(attribute.String("reddit.submission_id", sub.ID)))
	defer span.End()

	forest, err := s.api.Comments(ctx, sub.ID, s.opts.ExpandLimit)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return domain.Post{}, false, err
	}
	post, err := NormalizePost(sub, FlattenComments(forest))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return domain.Post{}, false, err
	}
	ok := MatchKeywords(post, keywords)
	span.SetAttributes(attribute.Bool("scrape.matched", ok), attribute.Int("reddit.comments", len(post.Comments)))
	return post, ok, nil
}

func (s *Scraper) record(ctx context.Context, outcome string) {
	s.submissions.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}

// OptionsFrom maps application settings onto scraper Options.
func OptionsFrom(c *config.Config, logger *slog.Logger) (Options, error) {
	count, err := ParseCountSemantics(c.CountSemantics)
	if err != nil {
		return Options{}, err
	}
	policy, err := ParseErrorPolicy(c.OnError)
	if err != nil {
		return Options{}, err
	}
	return Options{
		ExpandLimit:    c.ExpandLimit,
		CountSemantics: count,
		OnError:        policy,
		Logger:         logger,
	}, nil
}
