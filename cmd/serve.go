package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"SlackScheduler/api"
	"SlackScheduler/internal/slack"
	"SlackScheduler/scheduler"
	"SlackScheduler/utils"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.ngrok.com/ngrok"
	ngrokconfig "golang.ngrok.com/ngrok/config"
)

const shutdownTimeout = 15 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP server",
	Long: `serve runs the HTTP API. With CRON_SCHEDULE set it also runs the delivery
sweep in process; otherwise an external scheduler should call /api/cron or
run "slackscheduler sweep".`,
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

		listener, baseURL, err := listen(ctx, cfg.Host, cfg.Port, cfg.NgrokEnabled)
		if err != nil {
			return err
		}
		if baseURL == "" {
			baseURL = cfg.BaseURL
		}

		deps := api.Deps{
			Sessions:     a.users,
			Credentials:  a.credentials,
			Messages:     a.messages,
			Resolver:     a.resolver,
			Slack:        a.slack,
			Installer:    slack.NewInstaller(cfg.SlackClientID, cfg.SlackClientSecret, cfg.SlackAuthorizeURL, cfg.SlackAPIURL, baseURL),
			Sweeper:      a.sweeper,
			BaseURL:      baseURL,
			CronSecret:   cfg.CronSecret,
			SecureCookie: cfg.IsProduction(),
		}
		if a.redis != nil {
			deps.States = utils.NewRedisStateStore(a.redis, oauthStateTTL)
		}

		if cfg.CronSchedule != "" {
			sched, err := scheduler.New(cfg.CronSchedule, a.sweeper)
			if err != nil {
				return err
			}
			sched.Start()
			defer sched.Stop()
		}

		server := &http.Server{
			Handler:           api.SetupRouter(api.NewHandler(deps)),
			ReadHeaderTimeout: 10 * time.Second,
		}

		errCh := make(chan error, 1)
		go func() {
			log.WithField("base_url", baseURL).Infof("Server running on %s", listener.Addr())
			errCh <- server.Serve(listener)
		}()

		select {
		case err := <-errCh:
			if !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("server failed: %w", err)
			}
			return nil
		case <-ctx.Done():
		}

		log.Info("Shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		return nil
	},
}

// listen opens a local TCP listener, or an ngrok tunnel whose public URL is
// returned as the base URL for OAuth redirects.
func listen(ctx context.Context, host string, port int, useNgrok bool) (net.Listener, string, error) {
	if useNgrok {
		tun, err := ngrok.Listen(ctx, ngrokconfig.HTTPEndpoint(), ngrok.WithAuthtokenFromEnv())
		if err != nil {
			return nil, "", fmt.Errorf("failed to open ngrok tunnel: %w", err)
		}
		log.WithField("url", tun.URL()).Info("ngrok tunnel established")
		return tun, tun.URL(), nil
	}

	ln, err := net.Listen("tcp", net.JoinHostPort(host, fmt.Sprint(port)))
	if err != nil {
		return nil, "", fmt.Errorf("failed to listen: %w", err)
	}
	return ln, "", nil
}
