package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the offline queue depth",
	RunE: func(cmd *cobra.Command, args []string) error {
		mgr, _, err := newManager()
		if err != nil {
			return err
		}
		defer mgr.Close()

		depth, err := mgr.Alerts().PendingCount(context.Background())
		if err != nil {
			return err
		}

		fmt.Printf("pending emergencies: %d\n", depth)
		return nil
	},
}
