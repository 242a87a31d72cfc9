package commands

import (
	"fmt"
	"io"
	"time"

	"github.com/jedib0t/go-pretty/v6/progress"
	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/WessleyAI/subreddit-scraper/engine/archive"
)

func newTable(w io.Writer) table.Writer {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.SetOutputMirror(w)
	return t
}

// printSummary renders headline numbers for a set of posts. Elapsed is
// omitted when zero.
func printSummary(w io.Writer, title string, s archive.Summary, elapsed time.Duration, files ...string) {
	t := newTable(w)
	t.SetTitle(title)
	t.AppendRow(table.Row{"Posts", s.Posts})
	t.AppendRow(table.Row{"Comments", s.Comments})
	t.AppendRow(table.Row{"Average score", fmt.Sprintf("%.1f", s.AverageScore)})
	if elapsed > 0 {
		t.AppendRow(table.Row{"Elapsed", elapsed.Round(10 * time.Millisecond).String()})
	}
	for _, f := range files {
		t.AppendRow(table.Row{"Written", f})
	}
	t.Render()
}

// progressBar shows scrape progress on w until stop is called.
type progressBar struct {
	pw      progress.Writer
	tracker *progress.Tracker
}

func newProgressBar(w io.Writer, message string, total int) *progressBar {
	pw := progress.NewWriter()
	pw.SetOutputWriter(w)
	pw.SetAutoStop(false)
	pw.SetTrackerLength(30)
	pw.SetUpdateFrequency(100 * time.Millisecond)
	pw.SetStyle(progress.StyleDefault)
	pw.Style().Visibility.ETA = true
	pw.Style().Visibility.Percentage = true

	tracker := &progress.Tracker{Message: message, Total: int64(total), Units: progress.UnitsDefault}
	pw.AppendTracker(tracker)
	go pw.Render()
	return &progressBar{pw: pw, tracker: tracker}
}

func (p *progressBar) update(done, total int) {
	p.tracker.UpdateTotal(int64(total))
	p.tracker.SetValue(int64(done))
}

func (p *progressBar) stop(ok bool) {
	if ok {
		p.tracker.MarkAsDone()
	} else {
		p.tracker.MarkAsErrored()
	}
	p.pw.Stop()
	for p.pw.IsRenderInProgress() {
		time.Sleep(10 * time.Millisecond)
	}
}
