package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show daemon status",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := sessionClient(ctx)
			if err != nil {
				return err
			}
			status, err := client.status(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "running:      %v (pid %d)\n", status.Running, status.PID)
			fmt.Fprintf(out, "workers:      %d\n", status.Workers)
			fmt.Fprintf(out, "queue depth:  %d\n", status.QueueDepth)
			fmt.Fprintf(out, "journal:      %s\n", status.JournalPath)
			if status.Session != nil {
				fmt.Fprintf(out, "session:      %s (%s)\n", status.Session.ID, status.Session.State)
			} else {
				fmt.Fprintln(out, "session:      none")
			}
			return nil
		},
	}
}
