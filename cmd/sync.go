package main

import (
	"context"
	"encoding/json"
	"os"

	"github.com/spf13/cobra"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Run one reconciliation sweep of the offline queue",
	RunE: func(cmd *cobra.Command, args []string) error {
		mgr, _, err := newManager()
		if err != nil {
			return err
		}
		defer mgr.Close()

		result, err := mgr.Reconciler().Reconcile(context.Background())
		if err != nil {
			return err
		}

		return json.NewEncoder(os.Stdout).Encode(result)
	},
}
