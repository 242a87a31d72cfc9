package reddit

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/WessleyAI/subreddit-scraper/pkg/fn"
)

// moreChildrenBatch is the most ids /api/morechildren accepts per call.
const moreChildrenBatch = 100

// CommentForest is the comment tree of one submission.
type CommentForest struct {
	LinkID   string
	Comments []*Comment
}

// NewForest builds a forest from top-level comments.
func NewForest(linkID string, top ...*Comment) *CommentForest {
	return &CommentForest{LinkID: linkID, Comments: top}
}

// List returns every node breadth-first: top-level comments in order, then
// their replies in queue order.
func (f *CommentForest) List() []*Comment {
	var out []*Comment
	queue := append([]*Comment(nil), f.Comments...)
	for len(queue) > 0 {
		c := queue[0]
		queue = queue[1:]
		out = append(out, c)
		queue = append(queue, c.Replies...)
	}
	return out
}

// placeholders returns the unexpanded continuation nodes in breadth-first
// order.
func (f *CommentForest) placeholders() []*Comment {
	var out []*Comment
	for _, c := range f.List() {
		if c.IsMore() && !c.expanded {
			out = append(out, c)
		}
	}
	return out
}

// splice replaces expanded placeholders with the comments they resolved to.
// When drop is set, placeholders that were not expanded are removed.
func splice(nodes []*Comment, drop bool) []*Comment {
	out := make([]*Comment, 0, len(nodes))
	for _, c := range nodes {
		switch {
		case c.IsMore() && c.expanded:
			out = append(out, splice(c.expansion, drop)...)
		case c.IsMore() && drop:
		default:
			c.Replies = splice(c.Replies, drop)
			out = append(out, c)
		}
	}
	return out
}

// Comments fetches the comment tree of a submission and resolves every
// continuation placeholder. expandLimit bounds the number of placeholders
// resolved; zero means no bound. Placeholders left over once the bound is
// reached are dropped, so the returned forest never contains any.
func (c *Client) Comments(ctx context.Context, submissionID string, expandLimit int) (*CommentForest, error) {
	id := strings.TrimPrefix(submissionID, "t3_")
	top, err := c.commentPage(ctx, fmt.Sprintf("/comments/%s", url.PathEscape(id)))
	if err != nil {
		return nil, fmt.Errorf("comments %s: %w", id, err)
	}
	forest := NewForest("t3_"+id, top...)

	expanded := 0
	for {
		pending := forest.placeholders()
		if len(pending) == 0 {
			break
		}
		for _, m := range pending {
			if expandLimit > 0 && expanded >= expandLimit {
				forest.Comments = splice(forest.Comments, true)
				return forest, nil
			}
			repl, err := c.expand(ctx, forest.LinkID, m)
			if err != nil {
				return nil, fmt.Errorf("comments %s: expand %s: %w", id, m.Name, err)
			}
			m.expanded, m.expansion = true, repl
			expanded++
		}
		forest.Comments = splice(forest.Comments, false)
	}
	return forest, nil
}

// commentPage fetches a comment page, which is a two element array of the
// submission listing and the comment listing.
func (c *Client) commentPage(ctx context.Context, path string) ([]*Comment, error) {
	params := url.Values{}
	params.Set("limit", "500")
	pages, err := getJSON[[]listing](ctx, c, path, params)
	if err != nil {
		return nil, err
	}
	if len(pages) < 2 {
		return nil, nil
	}
	return parseThings(pages[1].Data.Children)
}

func (c *Client) expand(ctx context.Context, linkID string, m *Comment) ([]*Comment, error) {
	if m.continueThread() {
		return c.continueThread(ctx, linkID, m)
	}
	return c.moreChildren(ctx, linkID, m)
}

// continueThread loads the thread rooted at the placeholder's parent and
// returns that parent's replies.
func (c *Client) continueThread(ctx context.Context, linkID string, m *Comment) ([]*Comment, error) {
	if !strings.HasPrefix(m.More.ParentID, "t1_") {
		// An empty placeholder directly under the submission has nothing behind it.
		return nil, nil
	}
	parent := strings.TrimPrefix(m.More.ParentID, "t1_")
	path := fmt.Sprintf("/comments/%s/_/%s", url.PathEscape(strings.TrimPrefix(linkID, "t3_")), url.PathEscape(parent))
	nodes, err := c.commentPage(ctx, path)
	if err != nil {
		return nil, err
	}
	for _, n := range nodes {
		if n.ID == parent {
			return n.Replies, nil
		}
	}
	return nil, nil
}

// moreChildren resolves a placeholder through /api/morechildren. The
// endpoint returns a flat list; things are nested under the fetched comment
// their parent_id names, and the rest take the placeholder's position.
func (c *Client) moreChildren(ctx context.Context, linkID string, m *Comment) ([]*Comment, error) {
	var top []*Comment
	byName := map[string]*Comment{}
	for _, batch := range fn.Chunk(m.More.Children, moreChildrenBatch) {
		params := url.Values{}
		params.Set("api_type", "json")
		params.Set("link_id", linkID)
		params.Set("children", strings.Join(batch, ","))
		resp, err := getJSON[moreChildrenResponse](ctx, c, "/api/morechildren", params)
		if err != nil {
			return nil, err
		}
		if errs := resp.JSON.Errors; len(errs) > 0 {
			return nil, fmt.Errorf("reddit: morechildren: %v", errs)
		}
		nodes, err := parseThings(resp.JSON.Data.Things)
		if err != nil {
			return nil, err
		}
		for _, n := range nodes {
			if p, ok := byName[n.ParentID]; ok {
				p.Replies = append(p.Replies, n)
			} else {
				top = append(top, n)
			}
			if !n.IsMore() {
				byName[commentName(n)] = n
			}
		}
	}
	return top, nil
}

func commentName(c *Comment) string {
	if c.Name != "" {
		return c.Name
	}
	return "t1_" + c.ID
}
