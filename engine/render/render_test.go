package render

import (
	"bytes"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/WessleyAI/subreddit-scraper/engine/archive"
	"github.com/WessleyAI/subreddit-scraper/engine/domain"
)

func decode(t *testing.T, s string) []domain.Post {
	t.Helper()
	posts, err := archive.ReadPosts(strings.NewReader(s))
	if err != nil {
		t.Fatalf("ReadPosts: %v", err)
	}
	return posts
}

func TestRender_Scenario(t *testing.T) {
	posts := decode(t, `[{"title":"T","author":"bob","score":5,"num_comments":1,"created_iso":"2023-01-02T03:04:05Z","selftext":"hello","comments":[{"author":"amy","score":2,"body":"hi\nthere"}]}]`)
	want := "============================================================\n" +
		"POST TITLE: T\n" +
		"Author: bob | Score: 5 | Comments: 1 | Date: 2023-01-02\n" +
		"------------------------------------------------------------\n" +
		"\n" +
		"hello\n" +
		"\n" +
		"--- COMMENTS ---\n" +
		"\n" +
		"Comment by amy (Score: 2):\n" +
		"  hi\n" +
		"  there\n" +
		"\n" +
		"\n\n"
	if diff := cmp.Diff(want, Render(posts)); diff != "" {
		t.Errorf("report mismatch (-want +got):\n%s", diff)
	}
}

func TestRender_EmptyInput(t *testing.T) {
	if got := Render(decode(t, `[]`)); got != "" {
		t.Errorf("expected empty output, got %q", got)
	}
	if got := Render(nil); got != "" {
		t.Errorf("expected empty output, got %q", got)
	}
}

func TestRender_Defaults(t *testing.T) {
	got := Render(decode(t, `[{}]`))
	want := "============================================================\n" +
		"POST TITLE: No Title\n" +
		"Author: N/A | Score: 0 | Comments: 0 | Date: N/A\n" +
		"------------------------------------------------------------\n" +
		"\n" +
		"\n\n"
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("report mismatch (-want +got):\n%s", diff)
	}
}

func TestRender_OmitsEmptySections(t *testing.T) {
	got := Render([]domain.Post{{Title: "only", Selftext: "", Comments: []domain.Comment{}}})
	if strings.Contains(got, "--- COMMENTS ---") {
		t.Error("comments header must be omitted without comments")
	}
	if strings.Contains(got, "------------------------------------------------------------\n\n\n\n\n") {
		t.Error("unexpected blank selftext section")
	}

	got = Render([]domain.Post{{Title: "t", Comments: []domain.Comment{{Body: "b"}}}})
	if !strings.Contains(got, "------------------------------------------------------------\n\n--- COMMENTS ---\n\n") {
		t.Errorf("comments header should follow the header rule directly, got %q", got)
	}
	if !strings.Contains(got, "Comment by N/A (Score: 0):\n  b\n\n") {
		t.Errorf("null comment author should render N/A, got %q", got)
	}
}

func TestRender_MultiLineBody(t *testing.T) {
	got := Render([]domain.Post{{Title: "t", Comments: []domain.Comment{{Author: domain.StringPtr("a"), Body: "one\n\ntwo\n"}}}})
	if !strings.Contains(got, "  one\n  \n  two\n  \n\n") {
		t.Errorf("every body line should be indented, got %q", got)
	}
}

func TestRender_MultiplePostsInOrder(t *testing.T) {
	got := Render([]domain.Post{{Title: "first"}, {Title: "second"}})
	if strings.Count(got, "============================================================\n") != 2 {
		t.Errorf("expected two blocks, got %q", got)
	}
	if strings.Index(got, "first") > strings.Index(got, "second") {
		t.Error("posts out of order")
	}
}

func TestRender_Deterministic(t *testing.T) {
	posts := decode(t, `[{"title":"T","author":"bob","score":-1,"created_iso":"2023-01-02T03:04:05.123456Z","comments":[{"author":"amy","body":"x"}]}]`)
	first := Render(posts)
	for i := 0; i < 3; i++ {
		if got := Render(posts); got != first {
			t.Fatalf("render is not deterministic:\n%q\n%q", first, got)
		}
	}
	if !strings.Contains(first, "Score: -1") {
		t.Errorf("negative score lost: %q", first)
	}
}

func TestRender_ArchiveRoundTripKeepsReport(t *testing.T) {
	posts := decode(t, `[{"id":"p","title":"<T> & co","author":null,"score":5,"num_comments":1,"created_utc":1672628645,"created_iso":"2023-01-02T03:04:05Z","selftext":"héllo","url":"https://x.test/?a=1&b=2","comments":[{"id":"c","parent_id":"t3_p","body":"hi","author":"amy","score":2}]}]`)
	var buf bytes.Buffer
	if err := archive.WritePosts(&buf, posts); err != nil {
		t.Fatal(err)
	}
	again, err := archive.ReadPosts(&buf)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(Render(posts), Render(again)); diff != "" {
		t.Errorf("report changed across round trip (-want +got):\n%s", diff)
	}
}

func TestWrite(t *testing.T) {
	var buf bytes.Buffer
	if err := Write(&buf, []domain.Post{{Title: "t"}}); err != nil {
		t.Fatal(err)
	}
	if buf.String() != Render([]domain.Post{{Title: "t"}}) {
		t.Error("Write and Render disagree")
	}
}

func TestDate(t *testing.T) {
	cases := map[string]string{
		"":                            "N/A",
		"2023-01-02T03:04:05Z":        "2023-01-02",
		"2023-01-02T03:04:05.123456Z": "2023-01-02",
		"2023-01-02T03:04:05":         "2023-01-02",
		"2023-01-02T23:30:00-05:00":   "2023-01-02",
		"2023-01-02T23:30:00+05:30":   "2023-01-02",
		"2023-01-02 03:04:05":         "2023-01-02",
		"2023-01-02T03:04":            "2023-01-02",
		"2023-01-02":                  "2023-01-02",
		"yesterday":                   "N/A",
		"2023-13-02T03:04:05Z":        "N/A",
		"1672628645":                  "N/A",
	}
	for in, want := range cases {
		if got := Date(in); got != want {
			t.Errorf("Date(%q) = %q, want %q", in, got, want)
		}
	}
}
