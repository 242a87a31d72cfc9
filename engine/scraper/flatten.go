package scraper

import (
	"github.com/WessleyAI/subreddit-scraper/engine/domain"
	"github.com/WessleyAI/subreddit-scraper/engine/reddit"
)

const deletedAuthor = "[deleted]"

// FlattenComments lists every comment of a fully expanded forest in
// breadth-first order. Continuation placeholders are skipped.
func FlattenComments(forest *reddit.CommentForest) []domain.Comment {
	out := []domain.Comment{}
	if forest == nil {
		return out
	}
	for _, c := range forest.List() {
		if c.IsMore() {
			continue
		}
		out = append(out, domain.Comment{
			ID:       c.ID,
			ParentID: c.ParentID,
			Body:     c.Body,
			Author:   authorOf(c.Author),
			Score:    c.Score,
		})
	}
	return out
}

// authorOf maps removed accounts to nil.
func authorOf(name string) *string {
	if name == "" || name == deletedAuthor {
		return nil
	}
	return &name
}
