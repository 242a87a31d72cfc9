package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/WessleyAI/subreddit-scraper/engine/archive"
	"github.com/WessleyAI/subreddit-scraper/engine/render"
)

func newCleanCmd() *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "clean <archive.json>",
		Short: "Renders a JSON archive as a plain-text report.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			input := args[0]
			posts, err := archive.LoadFile(input)
			if err != nil {
				return fmt.Errorf("read %s: %w", input, err)
			}
			if err := archive.RequirePosts(posts); err != nil {
				return fmt.Errorf("read %s: %w", input, err)
			}
			if out == "" {
				out = archive.CleanedName(input)
			}
			if err := os.WriteFile(out, []byte(render.Render(posts)), 0o644); err != nil {
				return fmt.Errorf("write report: %w", err)
			}
			printSummary(cmd.OutOrStdout(), input, archive.Summarize(posts), 0, out)
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "report path (default <input>_cleaned.txt)")
	return cmd
}
