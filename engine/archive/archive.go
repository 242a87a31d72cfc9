// Package archive reads and writes the JSON archive of scraped posts: a bare
// JSON array of post records.
package archive

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/WessleyAI/subreddit-scraper/engine/domain"
	"github.com/WessleyAI/subreddit-scraper/pkg/fn"
)

var (
	// ErrNotArray is returned when the archive's top-level value is not a
	// JSON array.
	ErrNotArray = errors.New("archive: expected a JSON array of posts")
	// ErrEmptyArchive is returned for input with no JSON value at all.
	ErrEmptyArchive = errors.New("archive: empty input")
	// ErrNoPosts is returned by RequirePosts for an archive that decoded to
	// an empty array.
	ErrNoPosts = errors.New("archive: no posts")
)

// WritePosts encodes posts as an indented JSON array. HTML characters are
// left unescaped and a nil comment list is written as [].
func WritePosts(w io.Writer, posts []domain.Post) error {
	out := make([]domain.Post, len(posts))
	for i, p := range posts {
		if p.Comments == nil {
			p.Comments = []domain.Comment{}
		}
		out[i] = p
	}
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		return fmt.Errorf("archive: encode: %w", err)
	}
	return nil
}

// ReadPosts decodes an archive. A well-formed empty array yields no posts
// and no error.
func ReadPosts(r io.Reader) ([]domain.Post, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("archive: read: %w", err)
	}
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, ErrEmptyArchive
	}
	if data[0] != '[' {
		return nil, ErrNotArray
	}
	posts := []domain.Post{}
	if err := json.Unmarshal(data, &posts); err != nil {
		return nil, fmt.Errorf("archive: decode: %w", err)
	}
	return posts, nil
}

// RequirePosts rejects an archive with no posts. Reports are only rendered
// from archives that hold at least one post.
func RequirePosts(posts []domain.Post) error {
	if len(posts) == 0 {
		return ErrNoPosts
	}
	return nil
}

// SaveFile writes posts to path.
func SaveFile(path string, posts []domain.Post) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("archive: %w", err)
	}
	if err := WritePosts(f, posts); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// LoadFile reads the archive at path.
func LoadFile(path string) ([]domain.Post, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("archive: %w", err)
	}
	defer f.Close()
	return ReadPosts(f)
}

// Summary holds headline numbers for a set of posts.
type Summary struct {
	Posts        int
	Comments     int
	AverageScore float64
}

// Summarize counts posts and flattened comments and averages post scores.
func Summarize(posts []domain.Post) Summary {
	s := Summary{
		Posts:    len(posts),
		Comments: fn.Reduce(posts, 0, func(n int, p domain.Post) int { return n + len(p.Comments) }),
	}
	if len(posts) > 0 {
		total := fn.Reduce(posts, 0, func(n int, p domain.Post) int { return n + p.Score })
		s.AverageScore = float64(total) / float64(len(posts))
	}
	return s
}

// OutputName is the default archive file name for a scrape.
func OutputName(subreddit, sort string) string {
	return subreddit + "_" + sort + "_output.json"
}

// ReportName is the default text report name for a scrape.
func ReportName(subreddit, sort string) string {
	return subreddit + "_" + sort + "_cleaned.txt"
}

// CleanedName derives a report path from an archive path by replacing
// ".json" with "_cleaned.txt". Paths without ".json" get the suffix appended.
func CleanedName(input string) string {
	out := strings.ReplaceAll(input, ".json", "_cleaned.txt")
	if out == input {
		out = input + "_cleaned.txt"
	}
	return out
}
