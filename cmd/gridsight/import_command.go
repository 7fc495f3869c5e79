package main

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
)

func newImportCommand(ctx *commandContext) *cobra.Command {
	var wait bool

	cmd := &cobra.Command{
		Use:   "import <screenshot>",
		Short: "Start importing a build screenshot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			client, err := newAPIClient(cfg)
			if err != nil {
				return err
			}

			imagePath, err := filepath.Abs(args[0])
			if err != nil {
				return fmt.Errorf("resolve screenshot path: %w", err)
			}

			view, err := client.startImport(cmd.Context(), imagePath)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "session %s started (%s)\n", view.ID, view.State)

			if !wait {
				return nil
			}
			final, err := waitForSession(cmd.Context(), client, view.ID)
			if err != nil {
				return err
			}
			printSession(cmd.OutOrStdout(), final)
			return nil
		},
	}

	cmd.Flags().BoolVarP(&wait, "wait", "w", false, "Poll until the session settles")
	return cmd
}

// waitForSession polls until the session is terminal or waiting on
// operator input.
func waitForSession(ctx context.Context, client *apiClient, id string) (sessionView, error) {
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()
	for {
		view, err := client.session(ctx, id)
		if err != nil {
			return sessionView{}, err
		}
		switch view.State {
		case "complete", "error", "awaiting_manual_crop", "reviewing":
			return view, nil
		}
		select {
		case <-ctx.Done():
			return sessionView{}, ctx.Err()
		case <-ticker.C:
		}
	}
}
