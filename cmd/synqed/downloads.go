package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ytget/synqed/internal/bridge"
	"github.com/ytget/synqed/internal/download"
	"github.com/ytget/synqed/internal/model"
)

// withQueue runs fn against a server-mode queue over the engine and waits
// for every enqueue to reach the engine before returning
func withQueue(cmd *cobra.Command, fn func(ctx context.Context, q *download.Queue) error) error {
	return withClient(cmd, func(ctx context.Context, c *bridge.HTTPClient) error {
		q := download.NewQueue(c, download.Options{Mode: download.ModeServer, Logger: log.Logger})

		runCtx, stop := context.WithCancel(ctx)
		done := make(chan error, 1)
		go func() { done <- q.Run(runCtx) }()
		defer func() {
			stop()
			<-done
		}()

		if err := q.Wait(ctx); err != nil {
			return err
		}
		if err := fn(ctx, q); err != nil {
			return err
		}
		return q.Wait(ctx)
	})
}

func printAdded(w io.Writer, added []model.Metadata, skipped int) {
	for _, md := range added {
		fmt.Fprintf(w, "queued  %s  %s\n", md.ID, md.DisplayTitle())
	}
	if skipped > 0 {
		fmt.Fprintf(w, "skipped %d already queued or in the library\n", skipped)
	}
}

var addCmd = &cobra.Command{
	Use:   "add URL...",
	Short: "Queue tracks or playlists",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withQueue(cmd, func(ctx context.Context, q *download.Queue) error {
			for _, link := range args {
				res := q.QueueURL(ctx, link)
				if res.Err != nil {
					return fmt.Errorf("%s: %w", link, res.Err)
				}
				printAdded(cmd.OutOrStdout(), res.Added, res.Skipped)
			}
			return nil
		})
	},
}

var importOnEngine bool

var importCmd = &cobra.Command{
	Use:   "import FILE",
	Short: "Queue every link listed in a text file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := args[0]
		return withQueue(cmd, func(ctx context.Context, q *download.Queue) error {
			var res download.ImportResult
			if importOnEngine {
				r, err := q.ImportFile(ctx, path)
				if err != nil {
					return err
				}
				res = r
			} else {
				content, err := os.ReadFile(path)
				if err != nil {
					return err
				}
				for _, link := range download.ImportLines(string(content)) {
					r := q.QueueURL(ctx, link)
					res.Added = append(res.Added, r.Added...)
					res.Skipped += r.Skipped
					if r.Err != nil {
						res.Failed++
						res.Errors = append(res.Errors, fmt.Errorf("%s: %w", link, r.Err))
					}
				}
			}

			out := cmd.OutOrStdout()
			printAdded(out, res.Added, res.Skipped)
			for _, err := range res.Errors {
				fmt.Fprintf(cmd.ErrOrStderr(), "failed  %v\n", err)
			}
			fmt.Fprintf(out, "%d added, %d skipped, %d failed\n", len(res.Added), res.Skipped, res.Failed)
			return nil
		})
	},
}

var listCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "Show the download queue and history",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withClient(cmd, func(ctx context.Context, c *bridge.HTTPClient) error {
			jobs, err := c.GetDownloads(ctx)
			if err != nil {
				return err
			}
			active, queued, history := download.Partition(jobs)

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tSTATUS\tPROGRESS\tTITLE\tDETAIL")
			for _, group := range [][]model.DownloadJob{active, queued, history} {
				for _, j := range group {
					fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", j.ID, j.Status, j.ProgressString(), j.Title, j.DetailedStatus)
				}
			}
			return w.Flush()
		})
	},
}

var cancelCmd = &cobra.Command{
	Use:   "cancel ID",
	Short: "Stop a running download",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withClient(cmd, func(ctx context.Context, c *bridge.HTTPClient) error {
			return c.CancelDownload(ctx, args[0])
		})
	},
}

var removeCmd = &cobra.Command{
	Use:     "remove ID",
	Aliases: []string{"rm"},
	Short:   "Drop a job from the queue or history, stopping it if needed",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withClient(cmd, func(ctx context.Context, c *bridge.HTTPClient) error {
			return c.RemoveDownload(ctx, args[0])
		})
	},
}

var clearCmd = &cobra.Command{
	Use:       "clear history|queue",
	Short:     "Drop finished jobs or jobs still waiting",
	Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	ValidArgs: []string{"history", "queue"},
	RunE: func(cmd *cobra.Command, args []string) error {
		return withClient(cmd, func(ctx context.Context, c *bridge.HTTPClient) error {
			if args[0] == "history" {
				return c.ClearHistory(ctx)
			}
			return c.ClearQueue(ctx)
		})
	},
}

func init() {
	importCmd.Flags().BoolVar(&importOnEngine, "on-engine", false, "let the engine read FILE from its own disk")
	rootCmd.AddCommand(addCmd, importCmd, listCmd, cancelCmd, removeCmd, clearCmd)
}
