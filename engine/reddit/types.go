package reddit

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Reddit JSON API response types

const (
	kindComment    = "t1"
	kindSubmission = "t3"
	kindListing    = "Listing"
	kindMore       = "more"
)

type thing struct {
	Kind string          `json:"kind"`
	Data json.RawMessage `json:"data"`
}

type listing struct {
	Kind string `json:"kind"`
	Data struct {
		After    string  `json:"after"`
		Children []thing `json:"children"`
	} `json:"data"`
}

type submissionData struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Subreddit   string  `json:"subreddit"`
	Title       string  `json:"title"`
	Author      string  `json:"author"`
	SelfText    string  `json:"selftext"`
	URL         string  `json:"url"`
	Permalink   string  `json:"permalink"`
	Score       int     `json:"score"`
	NumComments int     `json:"num_comments"`
	CreatedUTC  float64 `json:"created_utc"`
}

type commentData struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	ParentID string `json:"parent_id"`
	LinkID   string `json:"link_id"`
	Author   string `json:"author"`
	Body     string `json:"body"`
	Score    int    `json:"score"`
	Depth    int    `json:"depth"`
	// Replies is either an empty string or a Listing.
	Replies json.RawMessage `json:"replies"`
}

type moreData struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	ParentID string   `json:"parent_id"`
	Count    int      `json:"count"`
	Depth    int      `json:"depth"`
	Children []string `json:"children"`
}

type moreChildrenResponse struct {
	JSON struct {
		Errors [][]string `json:"errors"`
		Data   struct {
			Things []thing `json:"things"`
		} `json:"data"`
	} `json:"json"`
}

// Submission is a link or self post as returned by a subreddit listing.
type Submission struct {
	ID          string
	Name        string
	Subreddit   string
	Title       string
	Author      string
	SelfText    string
	URL         string
	Permalink   string
	Score       int
	NumComments int
	CreatedUTC  float64
}

// Comment is a node of a comment tree. A node with a non-nil More is a
// continuation placeholder standing in for comments that were not included
// in the response.
type Comment struct {
	ID       string
	Name     string
	ParentID string
	Author   string
	Body     string
	Score    int
	Depth    int
	Replies  []*Comment
	More     *More

	expanded  bool
	expansion []*Comment
}

// More describes a continuation placeholder.
type More struct {
	ParentID string
	Count    int
	Children []string
}

// IsMore reports whether c is a continuation placeholder.
func (c *Comment) IsMore() bool { return c.More != nil }

// continueThread reports whether the placeholder is a "continue this
// thread" link, which carries no child ids and must be fetched by parent.
func (c *Comment) continueThread() bool {
	return c.More != nil && (c.ID == "_" || len(c.More.Children) == 0)
}

func (d submissionData) submission() *Submission {
	return &Submission{
		ID:          d.ID,
		Name:        d.Name,
		Subreddit:   d.Subreddit,
		Title:       d.Title,
		Author:      d.Author,
		SelfText:    d.SelfText,
		URL:         d.URL,
		Permalink:   d.Permalink,
		Score:       d.Score,
		NumComments: d.NumComments,
		CreatedUTC:  d.CreatedUTC,
	}
}

// parseThings converts listing children into comment nodes. Unknown kinds
// are skipped.
func parseThings(things []thing) ([]*Comment, error) {
	out := make([]*Comment, 0, len(things))
	for _, t := range things {
		c, err := parseThing(t)
		if err != nil {
			return nil, err
		}
		if c != nil {
			out = append(out, c)
		}
	}
	return out, nil
}

func parseThing(t thing) (*Comment, error) {
	switch t.Kind {
	case kindComment:
		var d commentData
		if err := json.Unmarshal(t.Data, &d); err != nil {
			return nil, fmt.Errorf("decode comment: %w", err)
		}
		replies, err := parseReplies(d.Replies)
		if err != nil {
			return nil, fmt.Errorf("comment %s: %w", d.ID, err)
		}
		return &Comment{
			ID:       d.ID,
			Name:     d.Name,
			ParentID: d.ParentID,
			Author:   d.Author,
			Body:     d.Body,
			Score:    d.Score,
			Depth:    d.Depth,
			Replies:  replies,
		}, nil
	case kindMore:
		var d moreData
		if err := json.Unmarshal(t.Data, &d); err != nil {
			return nil, fmt.Errorf("decode more: %w", err)
		}
		return &Comment{
			ID:       d.ID,
			Name:     d.Name,
			ParentID: d.ParentID,
			Depth:    d.Depth,
			More:     &More{ParentID: d.ParentID, Count: d.Count, Children: d.Children},
		}, nil
	default:
		return nil, nil
	}
}

func parseReplies(raw json.RawMessage) ([]*Comment, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte(`""`)) || bytes.Equal(raw, []byte("null")) {
		return nil, nil
	}
	var l listing
	if err := json.Unmarshal(raw, &l); err != nil {
		return nil, fmt.Errorf("decode replies: %w", err)
	}
	return parseThings(l.Data.Children)
}
