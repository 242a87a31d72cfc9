package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/nats-io/nats.go"
	"github.com/spf13/cobra"

	"github.com/WessleyAI/subreddit-scraper/engine/domain"
	"github.com/WessleyAI/subreddit-scraper/engine/render"
	"github.com/WessleyAI/subreddit-scraper/pkg/natsutil"
)

func newListenCmd() *cobra.Command {
	var natsURL, subject string
	cmd := &cobra.Command{
		Use:   "listen",
		Short: "Prints posts published by scrape --nats as a text report until interrupted.",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			nc, err := nats.Connect(natsURL, nats.Name("scraper-reddit-listen"))
			if err != nil {
				return fmt.Errorf("nats connect: %w", err)
			}
			defer nc.Close()

			posts := make(chan domain.Post, 16)
			sub, err := natsutil.Subscribe(nc, subject, enqueue(ctx, posts))
			if err != nil {
				return fmt.Errorf("subscribe %s: %w", subject, err)
			}
			defer sub.Unsubscribe()
			slog.Info("listening", "subject", subject)

			return drain(ctx, posts, cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVar(&natsURL, "nats", envOr("NATS_URL", nats.DefaultURL), "NATS URL")
	cmd.Flags().StringVar(&subject, "subject", envOr("NATS_SUBJECT", "reddit.posts"), "NATS subject")
	return cmd
}

// enqueue hands decoded posts to the render loop. Once ctx is done posts are
// dropped so the subscription's dispatch goroutine never blocks.
func enqueue(ctx context.Context, posts chan<- domain.Post) func(context.Context, domain.Post) {
	return func(_ context.Context, p domain.Post) {
		select {
		case posts <- p:
		case <-ctx.Done():
		}
	}
}

// drain renders posts as report blocks until ctx is done.
func drain(ctx context.Context, posts <-chan domain.Post, w io.Writer) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case p := <-posts:
			if err := render.Write(w, []domain.Post{p}); err != nil {
				return err
			}
		}
	}
}
