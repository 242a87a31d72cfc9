// Package render turns archived posts into a plain-text report.
package render

import (
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/WessleyAI/subreddit-scraper/engine/domain"
)

const (
	postRule     = "============================================================"
	headerRule   = "------------------------------------------------------------"
	noTitle      = "No Title"
	notAvailable = "N/A"
)

// dateLayouts are the ISO-8601 forms accepted for created_iso, tried in order.
var dateLayouts = []string{
	"2006-01-02T15:04:05.999999999Z07:00",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04Z07:00",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04Z07:00",
	"2006-01-02 15:04",
	"2006-01-02",
}

// Render returns the report for posts. Empty input renders as "".
func Render(posts []domain.Post) string {
	var b strings.Builder
	for _, p := range posts {
		writePost(&b, p)
	}
	return b.String()
}

// Write renders posts to w.
func Write(w io.Writer, posts []domain.Post) error {
	_, err := io.WriteString(w, Render(posts))
	return err
}

func writePost(b *strings.Builder, p domain.Post) {
	title := p.Title
	if title == "" {
		title = noTitle
	}
	b.WriteString(postRule + "\n")
	b.WriteString("POST TITLE: " + title + "\n")
	b.WriteString("Author: " + author(p.Author) +
		" | Score: " + strconv.Itoa(p.Score) +
		" | Comments: " + strconv.Itoa(p.NumComments) +
		" | Date: " + Date(p.CreatedISO) + "\n")
	b.WriteString(headerRule + "\n\n")

	if p.Selftext != "" {
		b.WriteString(p.Selftext + "\n\n")
	}
	if len(p.Comments) > 0 {
		b.WriteString("--- COMMENTS ---\n\n")
		for _, c := range p.Comments {
			b.WriteString("Comment by " + author(c.Author) + " (Score: " + strconv.Itoa(c.Score) + "):\n")
			b.WriteString("  " + strings.ReplaceAll(c.Body, "\n", "\n  ") + "\n\n")
		}
	}
	b.WriteString("\n\n")
}

func author(a *string) string {
	if a == nil || *a == "" {
		return notAvailable
	}
	return *a
}

// Date formats an ISO-8601 timestamp as YYYY-MM-DD in its own offset.
// Values without an offset are taken as UTC. Anything unparseable yields
// "N/A".
func Date(iso string) string {
	if iso == "" {
		return notAvailable
	}
	s := strings.ReplaceAll(iso, "Z", "+00:00")
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format("2006-01-02")
		}
	}
	return notAvailable
}
