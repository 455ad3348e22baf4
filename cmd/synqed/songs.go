package main

import (
	"context"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ytget/synqed/internal/bridge"
	"github.com/ytget/synqed/internal/model"
)

var songsCmd = &cobra.Command{
	Use:   "songs [QUERY]",
	Short: "List the library, or search it",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withClient(cmd, func(ctx context.Context, c *bridge.HTTPClient) error {
			var (
				songs []model.Song
				err   error
			)
			if query := strings.Join(args, " "); query != "" {
				songs, err = c.SearchSongs(ctx, query)
			} else {
				songs, err = c.GetSongs(ctx)
			}
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tARTIST\tTITLE\tDURATION\tFILE")
			for _, s := range songs {
				duration := model.Metadata{Duration: s.Duration}.DurationString()
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", s.ID, s.Artist, s.Title, duration, s.Filename)
			}
			return w.Flush()
		})
	},
}

var songsRmCmd = &cobra.Command{
	Use:   "rm ID...",
	Short: "Delete songs, their files and covers",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withClient(cmd, func(ctx context.Context, c *bridge.HTTPClient) error {
			for _, id := range args {
				if err := c.RemoveSong(ctx, id); err != nil {
					return fmt.Errorf("%s: %w", id, err)
				}
				fmt.Fprintln(cmd.OutOrStdout(), "removed", id)
			}
			return nil
		})
	},
}

func init() {
	songsCmd.AddCommand(songsRmCmd)
	rootCmd.AddCommand(songsCmd)
}
