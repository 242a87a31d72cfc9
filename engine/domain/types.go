// Package domain defines the records the scrape pipeline produces and the
// request that drives it. It is the validation gate for scrape requests.
package domain

// Listing sort orders accepted in a Request.
const (
	SortNew           = "new"
	SortHot           = "hot"
	SortTop           = "top"
	SortControversial = "controversial"
)

// Time windows for top and controversial listings.
const (
	TimeAll   = "all"
	TimeDay   = "day"
	TimeWeek  = "week"
	TimeMonth = "month"
	TimeYear  = "year"
)

// MaxLimit is the ceiling on submissions per request. Reddit listings stop
// paginating around 1000 items.
const MaxLimit = 1000

// Comment is one flattened comment of a post. Author is nil when the account
// was deleted or removed.
type Comment struct {
	ID       string  `json:"id"`
	ParentID string  `json:"parent_id"`
	Body     string  `json:"body"`
	Author   *string `json:"author"`
	Score    int     `json:"score"`
}

// Post is the normalized record of one submission and its comments. This is
// the unit persisted in JSON archives, so field order and names are part of
// the file format.
type Post struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Author      *string   `json:"author"`
	Score       int       `json:"score"`
	NumComments int       `json:"num_comments"`
	CreatedUTC  int64     `json:"created_utc"`
	CreatedISO  string    `json:"created_iso"`
	Selftext    string    `json:"selftext"`
	URL         string    `json:"url"`
	Comments    []Comment `json:"comments"`
}

// Request describes one scrape. Use Normalize before Validate.
type Request struct {
	Subreddit  string   `json:"subreddit" validate:"required,max=50,excludesall=/ "`
	Sort       string   `json:"sort"`
	TimeFilter string   `json:"time_filter" validate:"oneof=all day week month year"`
	Limit      int      `json:"limit" validate:"min=1,max=1000"`
	Keywords   []string `json:"keywords,omitempty" validate:"dive,required"`
}

// UsesTimeFilter reports whether the request's sort order takes a time window.
func (r Request) UsesTimeFilter() bool {
	return r.Sort == SortTop || r.Sort == SortControversial
}

// StringPtr returns a pointer to s.
func StringPtr(s string) *string { return &s }
