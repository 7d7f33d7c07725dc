package main

import (
	"os/signal"
	"syscall"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Deliver every scheduled message that is due, then exit",
	Long: `sweep runs a single delivery pass. It is meant to be invoked by an external
scheduler. Individual message failures are logged and retried on the next run;
the command only fails when the pass itself cannot run.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(true)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		a, err := newApp(ctx, cfg)
		if err != nil {
			return err
		}
		defer a.close()

		report, err := a.sweeper.Run(ctx)
		if err != nil {
			return err
		}
		if report.Errors != nil {
			log.WithError(report.Errors).Warn("Some messages could not be delivered")
		}
		return nil
	},
}
