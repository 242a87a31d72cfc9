package domain

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/WessleyAI/subreddit-scraper/pkg/fn"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// fieldErrors maps struct fields to the sentinel reported for them.
var fieldErrors = map[string]error{
	"Subreddit":  ErrInvalidSubreddit,
	"Limit":      ErrInvalidLimit,
	"TimeFilter": ErrInvalidTimeFilter,
	"Keywords":   ErrInvalidKeyword,
}

// Normalize returns a copy of r with free-form input cleaned up: the subreddit
// loses surrounding space and any "r/" prefix, sort and time window are
// lower-cased with unknown sorts falling back to "new", and keywords are
// trimmed with empty entries dropped.
func (r Request) Normalize() Request {
	out := r
	sub := strings.TrimSpace(r.Subreddit)
	sub = strings.TrimPrefix(sub, "/")
	if len(sub) >= 2 && strings.EqualFold(sub[:2], "r/") {
		sub = sub[2:]
	}
	out.Subreddit = strings.TrimSuffix(sub, "/")

	switch s := strings.ToLower(strings.TrimSpace(r.Sort)); s {
	case SortNew, SortHot, SortTop, SortControversial:
		out.Sort = s
	default:
		out.Sort = SortNew
	}

	out.TimeFilter = strings.ToLower(strings.TrimSpace(r.TimeFilter))
	if out.TimeFilter == "" {
		out.TimeFilter = TimeAll
	}

	out.Keywords = CleanKeywords(r.Keywords)
	return out
}

// ValidateRequest checks a normalized Request.
func ValidateRequest(r Request) error {
	err := validate.Struct(r)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	fe := verrs[0]
	field := fe.StructField()
	if i := strings.IndexByte(field, '['); i >= 0 {
		field = field[:i]
	}
	sentinel, ok := fieldErrors[field]
	if !ok {
		sentinel = ErrInvalidRequest
	}
	return NewValidationError(strings.ToLower(fe.Field()), fmt.Sprint(fe.Value()), sentinel)
}

// CleanKeywords trims each keyword and drops empty ones. It returns nil when
// nothing is left, which disables keyword filtering.
func CleanKeywords(keywords []string) []string {
	return fn.FilterMap(keywords, func(kw string) (string, bool) {
		kw = strings.TrimSpace(kw)
		return kw, kw != ""
	})
}

// ParseKeywords splits free-form keyword input. Input containing a comma is
// split on commas, otherwise on line breaks.
func ParseKeywords(input string) []string {
	if strings.TrimSpace(input) == "" {
		return nil
	}
	sep := "\n"
	if strings.Contains(input, ",") {
		sep = ","
	}
	return CleanKeywords(strings.Split(input, sep))
}
