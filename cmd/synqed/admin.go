package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/ytget/synqed/internal/bridge"
	"github.com/ytget/synqed/internal/model"
)

const setupDrain = 2 * time.Second

var setupCmd = &cobra.Command{
	Use:   "setup PATH",
	Short: "Create a music library at PATH and check the tools",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withClient(cmd, func(ctx context.Context, c *bridge.HTTPClient) error {
			events, err := c.Subscribe(ctx)
			if err != nil {
				return err
			}
			printed := make(chan struct{})
			go func() {
				defer close(printed)
				for ev := range events {
					if ev.Name != bridge.EventSetupProgress {
						continue
					}
					var p model.SetupProgress
					if err := ev.Decode(&p); err == nil {
						fmt.Fprintf(cmd.OutOrStdout(), "[%3.0f%%] %s\n", p.Progress, p.Status)
					}
					if p.Progress >= 100 {
						return
					}
				}
			}()

			if err := c.InitializeSetup(ctx, args[0]); err != nil {
				return err
			}
			// setup has finished; give the stream a moment to deliver the last steps
			select {
			case <-printed:
			case <-time.After(setupDrain):
			case <-ctx.Done():
			}
			return printConfig(ctx, cmd, c)
		})
	},
}

var (
	setLibrary    string
	setAutoUpdate bool
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or change the library config",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withClient(cmd, func(ctx context.Context, c *bridge.HTTPClient) error {
			flags := cmd.Flags()
			if flags.Changed("library") || flags.Changed("auto-update") {
				current, err := c.GetConfig(ctx)
				if err != nil {
					return err
				}
				next := model.Config{}
				if current != nil {
					next = *current
				}
				if flags.Changed("library") {
					next.LibraryPath = setLibrary
				}
				if flags.Changed("auto-update") {
					next.AutoUpdate = setAutoUpdate
				}
				if err := c.UpdateConfig(ctx, next); err != nil {
					return err
				}
			}
			return printConfig(ctx, cmd, c)
		})
	},
}

func printConfig(ctx context.Context, cmd *cobra.Command, c *bridge.HTTPClient) error {
	current, err := c.GetConfig(ctx)
	if err != nil {
		return err
	}
	if current == nil {
		fmt.Fprintln(cmd.OutOrStdout(), "not set up; run 'synqed setup PATH'")
		return nil
	}
	out, err := json.MarshalIndent(current, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(out))
	return nil
}

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check that yt-dlp and ffmpeg are usable by the engine",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withClient(cmd, func(ctx context.Context, c *bridge.HTTPClient) error {
			ok, err := c.CheckHealth(ctx)
			if err != nil {
				return err
			}
			if !ok {
				return errors.New("yt-dlp or ffmpeg is missing")
			}
			fmt.Fprintln(cmd.OutOrStdout(), "ok")
			return nil
		})
	},
}

var resetConfirmed bool

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Forget the library and all settings",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if !resetConfirmed {
			return errors.New("refusing to reset without --yes")
		}
		return withClient(cmd, func(ctx context.Context, c *bridge.HTTPClient) error {
			return c.FactoryReset(ctx)
		})
	},
}

var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Print engine events until interrupted",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		c := bridge.NewHTTPClient(engineURL(), log.Logger)
		defer c.Close()

		events, err := c.Subscribe(ctx)
		if err != nil {
			return err
		}
		for ev := range events {
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", ev.Name, ev.Payload)
		}
		return nil
	},
}

func init() {
	configCmd.Flags().StringVar(&setLibrary, "library", "", "move the library to this folder")
	configCmd.Flags().BoolVar(&setAutoUpdate, "auto-update", false, "keep yt-dlp up to date")
	resetCmd.Flags().BoolVarP(&resetConfirmed, "yes", "y", false, "confirm the reset")
	rootCmd.AddCommand(setupCmd, configCmd, healthCmd, resetCmd, eventsCmd)
}
