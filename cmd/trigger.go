package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	triggerSeverity string
	triggerIssue    string
	triggerMedia    string
)

var triggerCmd = &cobra.Command{
	Use:   "trigger",
	Short: "Trigger a manual SOS emergency",
	RunE: func(cmd *cobra.Command, args []string) error {
		mgr, _, err := newManager()
		if err != nil {
			return err
		}
		defer mgr.Close()

		outcome, err := mgr.Alerts().TriggerEmergency(context.Background(), triggerSeverity, triggerIssue, triggerMedia)
		if err != nil {
			return err
		}

		return json.NewEncoder(os.Stdout).Encode(outcome)
	},
}

func init() {
	triggerCmd.Flags().StringVar(&triggerSeverity, "severity", "HIGH", "severity (LOW, MEDIUM, HIGH, CRITICAL)")
	triggerCmd.Flags().StringVar(&triggerIssue, "issue", "", "description of the emergency")
	triggerCmd.Flags().StringVar(&triggerMedia, "media", "", "optional path to a photo or video attachment")
	if err := triggerCmd.MarkFlagRequired("issue"); err != nil {
		fmt.Fprintln(os.Stderr, err)
	}
}
