package scraper

import (
	"fmt"
	"math"

	"github.com/WessleyAI/subreddit-scraper/engine/domain"
	"github.com/WessleyAI/subreddit-scraper/engine/reddit"
)

// NormalizePost builds the archived record of a submission. It fails when
// the submission has no id or no title.
func NormalizePost(s *reddit.Submission, comments []domain.Comment) (domain.Post, error) {
	if s == nil || s.ID == "" {
		return domain.Post{}, fmt.Errorf("normalize: %w: id", domain.ErrMissingField)
	}
	if s.Title == "" {
		return domain.Post{}, fmt.Errorf("normalize %s: %w: title", s.ID, domain.ErrMissingField)
	}
	if comments == nil {
		comments = []domain.Comment{}
	}
	return domain.Post{
		ID:          s.ID,
		Title:       s.Title,
		Author:      authorOf(s.Author),
		Score:       s.Score,
		NumComments: s.NumComments,
		CreatedUTC:  int64(math.Floor(s.CreatedUTC)),
		CreatedISO:  domain.FormatCreatedISO(s.CreatedUTC),
		Selftext:    s.SelfText,
		URL:         s.URL,
		Comments:    comments,
	}, nil
}
