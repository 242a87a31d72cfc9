package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/WessleyAI/subreddit-scraper/engine/archive"
	"github.com/WessleyAI/subreddit-scraper/engine/domain"
	"github.com/WessleyAI/subreddit-scraper/engine/render"
	"github.com/WessleyAI/subreddit-scraper/engine/scraper"
)

type fakeScraper struct {
	posts []domain.Post
	err   error
	got   domain.Request
	calls int
}

func (f *fakeScraper) Scrape(_ context.Context, req domain.Request, _ scraper.ProgressFunc) ([]domain.Post, error) {
	f.calls++
	f.got = req
	return f.posts, f.err
}

func testHandler(s Scraper) http.Handler {
	return newHandler(s, "*", slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func samplePosts() []domain.Post {
	return []domain.Post{{
		ID: "p1", Title: "T", Author: domain.StringPtr("bob"), Score: 5, NumComments: 1,
		CreatedUTC: 1672628645, CreatedISO: "2023-01-02T03:04:05Z", Selftext: "hello",
		URL: "https://reddit.com/p1",
		Comments: []domain.Comment{{ID: "c1", ParentID: "t3_p1", Body: "hi\nthere", Author: domain.StringPtr("amy"), Score: 2}},
	}}
}

func do(h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(method, target, strings.NewReader(body)))
	return rec
}

func TestHealthEndpoint(t *testing.T) {
	rec := do(testHandler(&fakeScraper{}), "GET", "/api/health", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var resp map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp["status"] != "ok" {
		t.Fatalf("expected status ok, got %s", resp["status"])
	}
	if rec.Header().Get("X-Request-ID") == "" {
		t.Error("missing request id header")
	}
}

func TestScrapeEndpoint_JSON(t *testing.T) {
	fake := &fakeScraper{posts: samplePosts()}
	rec := do(testHandler(fake), "POST", "/api/scrape", `{"subreddit":"r/golang","sort":"top","time_filter":"week","keywords_text":"go, rust"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	want := domain.Request{Subreddit: "golang", Sort: "top", TimeFilter: "week", Limit: 10, Keywords: []string{"go", "rust"}}
	if diff := cmp.Diff(want, fake.got); diff != "" {
		t.Errorf("request mismatch (-want +got):\n%s", diff)
	}

	var expected bytes.Buffer
	archive.WritePosts(&expected, samplePosts())
	if rec.Body.String() != expected.String() {
		t.Errorf("body mismatch:\n%s", rec.Body.String())
	}
	h := rec.Header()
	if h.Get("Content-Disposition") != `attachment; filename="golang_top_output.json"` {
		t.Errorf("Content-Disposition = %q", h.Get("Content-Disposition"))
	}
	if h.Get("X-Scrape-Posts") != "1" || h.Get("X-Scrape-Comments") != "1" || h.Get("X-Scrape-Average-Score") != "5.00" {
		t.Errorf("summary headers = %v", h)
	}
	if h.Get("X-Scrape-Elapsed") == "" {
		t.Error("missing elapsed header")
	}
}

func TestScrapeEndpoint_Text(t *testing.T) {
	fake := &fakeScraper{posts: samplePosts()}
	rec := do(testHandler(fake), "POST", "/api/scrape?format=text", `{"subreddit":"golang","limit":3}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "text/plain; charset=utf-8" {
		t.Errorf("Content-Type = %q", ct)
	}
	if rec.Body.String() != render.Render(samplePosts()) {
		t.Errorf("unexpected report:\n%s", rec.Body.String())
	}
	if fake.got.Limit != 3 || fake.got.Sort != "new" {
		t.Errorf("unexpected request %+v", fake.got)
	}
	if cd := rec.Header().Get("Content-Disposition"); cd != `attachment; filename="golang_new_cleaned.txt"` {
		t.Errorf("Content-Disposition = %q", cd)
	}
}

func TestScrapeEndpoint_BadRequests(t *testing.T) {
	cases := map[string]string{
		"invalid json":    `not json`,
		"no subreddit":    `{"limit":5}`,
		"zero limit":      `{"subreddit":"golang","limit":0}`,
		"limit too large": `{"subreddit":"golang","limit":5000}`,
		"bad time filter": `{"subreddit":"golang","time_filter":"decade"}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			fake := &fakeScraper{}
			rec := do(testHandler(fake), "POST", "/api/scrape", body)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d", rec.Code)
			}
			if fake.calls != 0 {
				t.Error("scraper must not run for invalid requests")
			}
			var resp map[string]string
			if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil || resp["error"] == "" {
				t.Errorf("expected JSON error body, got %q", rec.Body.String())
			}
		})
	}
}

func TestScrapeEndpoint_UpstreamFailure(t *testing.T) {
	fake := &fakeScraper{err: errors.New("reddit: GET /r/golang/new: http 503")}
	rec := do(testHandler(fake), "POST", "/api/scrape", `{"subreddit":"golang"}`)
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "http 503") {
		t.Errorf("error should carry the cause: %s", rec.Body.String())
	}
}

func TestScrapeEndpoint_PartialFailure(t *testing.T) {
	fake := &fakeScraper{
		posts: samplePosts(),
		err:   &scraper.PartialError{Failed: []scraper.SubmissionError{{ID: "p2", Err: errors.New("x")}, {ID: "p3", Err: errors.New("y")}}},
	}
	rec := do(testHandler(fake), "POST", "/api/scrape", `{"subreddit":"golang"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if got := rec.Header().Get("X-Scrape-Failed"); got != "p2,p3" {
		t.Errorf("X-Scrape-Failed = %q", got)
	}
}

func TestCleanEndpoint(t *testing.T) {
	src := `[{"title":"T","author":"bob","score":5,"num_comments":1,"created_iso":"2023-01-02T03:04:05Z","selftext":"hello","comments":[{"author":"amy","score":2,"body":"hi\nthere"}]}]`
	rec := do(testHandler(&fakeScraper{}), "POST", "/api/clean?filename=golang_new_output.json", src)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), "Comment by amy (Score: 2):\n  hi\n  there\n") {
		t.Errorf("unexpected report:\n%s", rec.Body.String())
	}
	if cd := rec.Header().Get("Content-Disposition"); cd != `attachment; filename="golang_new_output_cleaned.txt"` {
		t.Errorf("Content-Disposition = %q", cd)
	}
	if rec.Header().Get("X-Scrape-Posts") != "1" {
		t.Errorf("missing summary headers: %v", rec.Header())
	}
}

func TestCleanEndpoint_EmptyArray(t *testing.T) {
	for _, body := range []string{`[]`, " [ ] \n"} {
		rec := do(testHandler(&fakeScraper{}), "POST", "/api/clean", body)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("%q: expected 400, got %d", body, rec.Code)
		}
		var resp map[string]string
		if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil || !strings.Contains(resp["error"], "no posts") {
			t.Errorf("%q: expected no posts error, got %q", body, rec.Body.String())
		}
		if rec.Header().Get("Content-Disposition") != "" {
			t.Errorf("%q: no report should be attached", body)
		}
	}
}

func TestCleanEndpoint_Invalid(t *testing.T) {
	for _, body := range []string{``, `{"a":1}`, `[{"title":5}]`} {
		rec := do(testHandler(&fakeScraper{}), "POST", "/api/clean", body)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("%q: expected 400, got %d", body, rec.Code)
		}
	}
}

func TestCORSPreflight(t *testing.T) {
	rec := do(testHandler(&fakeScraper{}), "OPTIONS", "/api/scrape", "")
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
	if !strings.Contains(rec.Header().Get("Access-Control-Expose-Headers"), "X-Scrape-Posts") {
		t.Errorf("expose headers = %q", rec.Header().Get("Access-Control-Expose-Headers"))
	}
}
