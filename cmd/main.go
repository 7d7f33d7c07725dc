package main

import (
	"context"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "slackscheduler",
	Short: "Send and schedule Slack messages across connected workspaces",
	Long: `slackscheduler connects Slack workspaces through OAuth, stores their
tokens encrypted, and delivers scheduled messages when they fall due.`,
	SilenceUsage: true,
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(serveCmd, sweepCmd, migrateCmd)
}
