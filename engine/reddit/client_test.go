package reddit

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/WessleyAI/subreddit-scraper/pkg/config"
	"github.com/WessleyAI/subreddit-scraper/pkg/fn"
)

func newTestClient(t *testing.T, h http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c, err := New(context.Background(), Config{
		ClientID:     "id",
		ClientSecret: "secret",
		UserAgent:    "test-agent/1.0",
		BaseURL:      srv.URL,
		Retry:        fn.RetryOpts{MaxAttempts: 3, InitialWait: time.Millisecond},
	}, WithHTTPClient(srv.Client()))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

func listingOf(after string, children ...map[string]any) map[string]any {
	return map[string]any{
		"kind": "Listing",
		"data": map[string]any{"after": after, "children": children},
	}
}

func submissionThing(id, title string) map[string]any {
	return map[string]any{
		"kind": "t3",
		"data": map[string]any{
			"id": id, "name": "t3_" + id, "title": title, "author": "poster",
			"selftext": "", "url": "https://example.com/" + id, "score": 1,
			"num_comments": 0, "created_utc": 1700000000.0,
		},
	}
}

func TestNew_MissingCredentials(t *testing.T) {
	cases := []Config{
		{ClientSecret: "s", UserAgent: "ua"},
		{ClientID: "id", UserAgent: "ua"},
		{ClientID: "id", ClientSecret: "s"},
	}
	for _, cfg := range cases {
		if _, err := New(context.Background(), cfg); !errors.Is(err, ErrMissingCredentials) {
			t.Errorf("config %+v: expected ErrMissingCredentials, got %v", cfg, err)
		}
	}
}

func TestNew_UsesClientCredentialsToken(t *testing.T) {
	tokenSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		if !ok || user != "id" || pass != "secret" {
			t.Errorf("token request auth = %q/%q (ok=%v)", user, pass, ok)
		}
		if ua := r.Header.Get("User-Agent"); ua != "test-agent/1.0" {
			t.Errorf("token request User-Agent = %q", ua)
		}
		r.ParseForm()
		if gt := r.PostForm.Get("grant_type"); gt != "client_credentials" {
			t.Errorf("grant_type = %q", gt)
		}
		writeJSON(w, map[string]any{"access_token": "tok", "token_type": "bearer", "expires_in": 3600})
	}))
	defer tokenSrv.Close()

	apiSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer tok" {
			t.Errorf("Authorization = %q", got)
		}
		if ua := r.Header.Get("User-Agent"); ua != "test-agent/1.0" {
			t.Errorf("User-Agent = %q", ua)
		}
		writeJSON(w, listingOf("", submissionThing("a", "A")))
	}))
	defer apiSrv.Close()

	c, err := New(context.Background(), Config{
		ClientID: "id", ClientSecret: "secret", UserAgent: "test-agent/1.0",
		BaseURL: apiSrv.URL, TokenURL: tokenSrv.URL,
	})
	if err != nil {
		t.Fatal(err)
	}
	var n int
	err = c.Submissions(context.Background(), "golang", ListingOptions{Sort: "new", Limit: 5}, func(*Submission) error {
		n++
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("expected 1 submission, got %d", n)
	}
}

func TestGet_RetriesTransientStatus(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		writeJSON(w, listingOf("", submissionThing("a", "A")))
	}))

	var got []string
	err := c.Submissions(context.Background(), "golang", ListingOptions{Limit: 5}, func(s *Submission) error {
		got = append(got, s.ID)
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if calls.Load() != 2 {
		t.Errorf("expected 2 calls, got %d", calls.Load())
	}
	if len(got) != 1 || got[0] != "a" {
		t.Errorf("unexpected submissions %v", got)
	}
}

func TestGet_DoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))

	err := c.Submissions(context.Background(), "nope", ListingOptions{Limit: 5}, func(*Submission) error { return nil })
	var se *StatusError
	if !errors.As(err, &se) || se.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 StatusError, got %v", err)
	}
	if se.Temporary() {
		t.Error("404 must not be temporary")
	}
	if calls.Load() != 1 {
		t.Errorf("expected 1 call, got %d", calls.Load())
	}
}

func TestGet_SendsRawJSON(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("raw_json") != "1" {
			t.Errorf("missing raw_json=1 in %s", r.URL.RawQuery)
		}
		if !strings.HasPrefix(r.Header.Get("User-Agent"), "test-agent") {
			t.Errorf("unexpected User-Agent %q", r.Header.Get("User-Agent"))
		}
		writeJSON(w, listingOf(""))
	}))
	if err := c.Submissions(context.Background(), "golang", ListingOptions{Limit: 1}, func(*Submission) error { return nil }); err != nil {
		t.Fatal(err)
	}
}

func TestStatusError_Message(t *testing.T) {
	err := &StatusError{StatusCode: 429, Path: "/r/golang/new"}
	if got := err.Error(); got != "reddit: GET /r/golang/new: http 429" {
		t.Errorf("got %q", got)
	}
	if !err.Temporary() {
		t.Error("429 should be temporary")
	}
	if !(&StatusError{StatusCode: 502}).Temporary() {
		t.Error("502 should be temporary")
	}
}

func TestConfigFrom(t *testing.T) {
	cfg := config.Defaults()
	cfg.ClientID, cfg.ClientSecret, cfg.UserAgent = "id", "secret", "ua"
	cfg.RateLimit, cfg.RateBurst, cfg.TimeoutSeconds = 2, 4, 10
	got := ConfigFrom(&cfg)
	if got.BaseURL != DefaultBaseURL || got.TokenURL != DefaultTokenURL {
		t.Errorf("unexpected endpoints %q %q", got.BaseURL, got.TokenURL)
	}
	if got.RequestsPerSecond != 2 || got.Burst != 4 || got.Timeout != 10*time.Second {
		t.Errorf("unexpected pacing %+v", got)
	}
	if got.ClientID != "id" || got.Retry.MaxAttempts != fn.DefaultRetry.MaxAttempts {
		t.Errorf("unexpected config %+v", got)
	}
}
