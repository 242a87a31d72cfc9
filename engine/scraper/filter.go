package scraper

import (
	"strings"

	"github.com/WessleyAI/subreddit-scraper/engine/domain"
)

// SearchText is the lower-cased text keywords are matched against: title,
// selftext and the comment bodies, separated by single spaces.
func SearchText(p domain.Post) string {
	bodies := make([]string, len(p.Comments))
	for i, c := range p.Comments {
		bodies[i] = c.Body
	}
	return strings.ToLower(p.Title + " " + p.Selftext + " " + strings.Join(bodies, " "))
}

// MatchKeywords reports whether any keyword occurs in the post, ignoring
// case. An empty keyword list matches every post.
func MatchKeywords(p domain.Post, keywords []string) bool {
	if len(keywords) == 0 {
		return true
	}
	text := SearchText(p)
	for _, kw := range keywords {
		if strings.Contains(text, strings.ToLower(kw)) {
			return true
		}
	}
	return false
}
