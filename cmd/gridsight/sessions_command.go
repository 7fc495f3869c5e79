package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newSessionsCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "Inspect and steer import sessions",
		RunE: func(cmd *cobra.Command, args []string) error {
			return listSessions(ctx, cmd)
		},
	}

	cmd.AddCommand(newSessionsShowCommand(ctx))
	cmd.AddCommand(newSessionsCropCommand(ctx))
	cmd.AddCommand(newSessionsReviewCommand(ctx))
	cmd.AddCommand(newSessionsCancelCommand(ctx))
	return cmd
}

func listSessions(ctx *commandContext, cmd *cobra.Command) error {
	client, err := sessionClient(ctx)
	if err != nil {
		return err
	}
	views, err := client.sessions(cmd.Context())
	if err != nil {
		return err
	}
	if len(views) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "no sessions recorded")
		return nil
	}

	rows := make([][]string, 0, len(views))
	for _, view := range views {
		errMsg := view.ErrorMsg
		if len(errMsg) > 40 {
			errMsg = errMsg[:37] + "..."
		}
		rows = append(rows, []string{view.ID, view.State, view.SourcePath, errMsg})
	}
	fmt.Fprintln(cmd.OutOrStdout(), renderTable(
		[]string{"Session", "State", "Source", "Error"},
		rows,
		nil,
	))
	return nil
}

func newSessionsShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <session-id>",
		Short: "Show one session's stages and transitions",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := sessionClient(ctx)
			if err != nil {
				return err
			}
			view, err := client.session(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			printSession(cmd.OutOrStdout(), view)
			return nil
		},
	}
}

func newSessionsCropCommand(ctx *commandContext) *cobra.Command {
	var x, y, width, height, rows, cols int

	cmd := &cobra.Command{
		Use:   "crop <session-id>",
		Short: "Supply manual crop bounds to a waiting session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := sessionClient(ctx)
			if err != nil {
				return err
			}
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if rows <= 0 {
				rows = cfg.Grid.Rows
			}
			if cols <= 0 {
				cols = cfg.Grid.Cols
			}
			payload := map[string]any{
				"version": 1,
				"bounds": map[string]any{
					"x":      x,
					"y":      y,
					"width":  width,
					"height": height,
				},
				"rows": rows,
				"cols": cols,
			}
			if err := client.submitCrop(cmd.Context(), args[0], payload); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "crop accepted")
			return nil
		},
	}

	cmd.Flags().IntVar(&x, "x", 0, "Crop origin x")
	cmd.Flags().IntVar(&y, "y", 0, "Crop origin y")
	cmd.Flags().IntVar(&width, "width", 0, "Crop width")
	cmd.Flags().IntVar(&height, "height", 0, "Crop height")
	cmd.Flags().IntVar(&rows, "rows", 0, "Grid rows (defaults to config)")
	cmd.Flags().IntVar(&cols, "cols", 0, "Grid columns (defaults to config)")
	_ = cmd.MarkFlagRequired("width")
	_ = cmd.MarkFlagRequired("height")
	return cmd
}

func newSessionsReviewCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "review <session-id>",
		Short: "Accept a session's recognition result",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := sessionClient(ctx)
			if err != nil {
				return err
			}
			if err := client.approveReview(cmd.Context(), args[0], nil); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "review accepted")
			return nil
		},
	}
}

func newSessionsCancelCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "cancel <session-id>",
		Short: "Cancel an in-flight session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := sessionClient(ctx)
			if err != nil {
				return err
			}
			if err := client.cancel(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "cancellation requested")
			return nil
		},
	}
}

func sessionClient(ctx *commandContext) (*apiClient, error) {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return nil, err
	}
	return newAPIClient(cfg)
}
