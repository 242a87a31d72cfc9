package reddit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
)

const (
	pageSize = 100
	// MaxListing is how deep Reddit lets a listing be paginated.
	MaxListing = 1000
)

// ErrStop may be returned from a Submissions callback to end iteration early
// without an error.
var ErrStop = errors.New("reddit: stop iteration")

// ListingOptions selects a subreddit listing.
type ListingOptions struct {
	Sort string
	// Time is sent only for "top" and "controversial".
	Time string
	// Limit caps the submissions yielded. Zero or less means MaxListing.
	Limit int
}

// Submissions walks a subreddit listing page by page and calls each for
// every submission in listing order.
func (c *Client) Submissions(ctx context.Context, subreddit string, opts ListingOptions, each func(*Submission) error) error {
	limit := opts.Limit
	if limit <= 0 || limit > MaxListing {
		limit = MaxListing
	}
	sort := opts.Sort
	if sort == "" {
		sort = "new"
	}
	path := fmt.Sprintf("/r/%s/%s", url.PathEscape(subreddit), sort)

	yielded := 0
	after := ""
	for yielded < limit {
		params := url.Values{}
		params.Set("limit", strconv.Itoa(min(pageSize, limit-yielded)))
		if after != "" {
			params.Set("after", after)
			params.Set("count", strconv.Itoa(yielded))
		}
		if opts.Time != "" && (sort == "top" || sort == "controversial") {
			params.Set("t", opts.Time)
		}

		page, err := getJSON[listing](ctx, c, path, params)
		if err != nil {
			return fmt.Errorf("r/%s listing: %w", subreddit, err)
		}

		for _, child := range page.Data.Children {
			if child.Kind != kindSubmission {
				continue
			}
			var d submissionData
			if err := json.Unmarshal(child.Data, &d); err != nil {
				return fmt.Errorf("r/%s listing: decode submission: %w", subreddit, err)
			}
			if err := each(d.submission()); err != nil {
				if errors.Is(err, ErrStop) {
					return nil
				}
				return err
			}
			yielded++
			if yielded >= limit {
				return nil
			}
		}

		if page.Data.After == "" || len(page.Data.Children) == 0 {
			return nil
		}
		after = page.Data.After
	}
	return nil
}
