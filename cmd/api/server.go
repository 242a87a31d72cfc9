package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"path"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/WessleyAI/subreddit-scraper/engine/archive"
	"github.com/WessleyAI/subreddit-scraper/engine/domain"
	"github.com/WessleyAI/subreddit-scraper/engine/render"
	"github.com/WessleyAI/subreddit-scraper/engine/scraper"
	"github.com/WessleyAI/subreddit-scraper/pkg/fn"
	"github.com/WessleyAI/subreddit-scraper/pkg/mid"
)

const (
	defaultLimit    = 10
	maxArchiveBytes = 64 << 20

	headerPosts    = "X-Scrape-Posts"
	headerComments = "X-Scrape-Comments"
	headerAverage  = "X-Scrape-Average-Score"
	headerElapsed  = "X-Scrape-Elapsed"
	headerFailed   = "X-Scrape-Failed"
)

var exposedHeaders = []string{
	"Content-Disposition", mid.RequestIDHeader,
	headerPosts, headerComments, headerAverage, headerElapsed, headerFailed,
}

// Scraper is the scrape pipeline the server drives.
type Scraper interface {
	Scrape(ctx context.Context, req domain.Request, progress scraper.ProgressFunc) ([]domain.Post, error)
}

type server struct {
	scraper Scraper
	logger  *slog.Logger
	// mu serializes scrapes; the reddit client is not safe for concurrent use.
	mu sync.Mutex
}

func newServer(s Scraper, logger *slog.Logger) *server {
	return &server{scraper: s, logger: logger}
}

func (s *server) routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/health", handleHealth)
	mux.HandleFunc("POST /api/scrape", s.handleScrape)
	mux.Handle("POST /api/clean", mid.MaxBytes(maxArchiveBytes)(http.HandlerFunc(s.handleClean)))
	return mux
}

// --- Handlers ---

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

// ScrapeRequest is the JSON body for POST /api/scrape. Keywords may be given
// as a list or as free text split on commas or line breaks.
type ScrapeRequest struct {
	Subreddit    string   `json:"subreddit"`
	Sort         string   `json:"sort"`
	TimeFilter   string   `json:"time_filter"`
	Limit        *int     `json:"limit"`
	Keywords     []string `json:"keywords"`
	KeywordsText string   `json:"keywords_text"`
}

func (r ScrapeRequest) toRequest() domain.Request {
	limit := defaultLimit
	if r.Limit != nil {
		limit = *r.Limit
	}
	keywords := r.Keywords
	if r.KeywordsText != "" {
		keywords = append(keywords, domain.ParseKeywords(r.KeywordsText)...)
	}
	return domain.Request{
		Subreddit:  r.Subreddit,
		Sort:       r.Sort,
		TimeFilter: r.TimeFilter,
		Limit:      limit,
		Keywords:   keywords,
	}.Normalize()
}

func (s *server) handleScrape(w http.ResponseWriter, r *http.Request) {
	var body ScrapeRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	req := body.toRequest()
	if err := domain.ValidateRequest(req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	s.mu.Lock()
	start := time.Now()
	posts, err := s.scraper.Scrape(r.Context(), req, nil)
	elapsed := time.Since(start)
	s.mu.Unlock()

	var ve *domain.ValidationError
	var partial *scraper.PartialError
	switch {
	case errors.As(err, &ve):
		writeError(w, http.StatusBadRequest, err.Error())
		return
	case errors.As(err, &partial):
		ids := fn.Map(partial.Failed, func(f scraper.SubmissionError) string { return f.ID })
		w.Header().Set(headerFailed, strings.Join(ids, ","))
		s.logger.Warn("scrape finished with failures", "subreddit", req.Subreddit, "failed", len(ids),
			"request_id", mid.RequestIDFrom(r.Context()))
	case err != nil:
		s.logger.Error("scrape failed", "subreddit", req.Subreddit, "err", err,
			"request_id", mid.RequestIDFrom(r.Context()))
		writeError(w, http.StatusBadGateway, "scrape failed: "+err.Error())
		return
	}

	setSummaryHeaders(w, archive.Summarize(posts))
	w.Header().Set(headerElapsed, strconv.FormatFloat(elapsed.Seconds(), 'f', 2, 64))

	if r.URL.Query().Get("format") == "text" {
		writeReport(w, archive.ReportName(req.Subreddit, req.Sort), posts)
		return
	}
	var buf bytes.Buffer
	if err := archive.WritePosts(&buf, posts); err != nil {
		writeError(w, http.StatusInternalServerError, "encode posts")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", attachment(archive.OutputName(req.Subreddit, req.Sort)))
	w.Write(buf.Bytes())
}

func (s *server) handleClean(w http.ResponseWriter, r *http.Request) {
	posts, err := archive.ReadPosts(r.Body)
	if err == nil {
		err = archive.RequirePosts(posts)
	}
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "archive too large")
			return
		}
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	name := "posts_cleaned.txt"
	if input := r.URL.Query().Get("filename"); input != "" {
		name = archive.CleanedName(path.Base(input))
	}
	setSummaryHeaders(w, archive.Summarize(posts))
	writeReport(w, name, posts)
}

func setSummaryHeaders(w http.ResponseWriter, sum archive.Summary) {
	w.Header().Set(headerPosts, strconv.Itoa(sum.Posts))
	w.Header().Set(headerComments, strconv.Itoa(sum.Comments))
	w.Header().Set(headerAverage, strconv.FormatFloat(sum.AverageScore, 'f', 2, 64))
}

func writeReport(w http.ResponseWriter, filename string, posts []domain.Post) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Content-Disposition", attachment(filename))
	render.Write(w, posts)
}

func attachment(filename string) string {
	return fmt.Sprintf("attachment; filename=%q", filename)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
