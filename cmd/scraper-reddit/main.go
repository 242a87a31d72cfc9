// Command scraper-reddit scrapes a subreddit's posts and full comment trees
// into a JSON archive and turns archives into plain-text reports.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/WessleyAI/subreddit-scraper/cmd/scraper-reddit/commands"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := commands.ExecuteContext(ctx)
	stop()
	os.Exit(code)
}
