package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

func SetupRouter(h *Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Get("/health", h.HandleHealthCheck)
	r.Get(successPath, h.HandleSuccess)

	r.Route("/api", func(r chi.Router) {
		r.Get("/auth/slack", h.HandleSlackInstall)
		r.Get("/auth/slack/callback", h.HandleSlackOAuthCallback)

		r.Get("/cron", h.HandleCron)
		r.Post("/cron", h.HandleCron)

		r.Route("/slack", func(r chi.Router) {
			r.Use(h.RequireSession)

			r.Get("/workspaces", h.HandleListWorkspaces)
			r.Delete("/workspaces", h.HandleRemoveWorkspace)
			r.Get("/team", h.HandleTeam)
			r.Get("/channels", h.HandleListChannels)
			r.Get("/test-connection", h.HandleTestConnection)
			r.Post("/send-message", h.HandleSendMessage)
			r.Post("/schedule-message", h.HandleScheduleMessage)
			r.Get("/scheduled-messages", h.HandleListScheduledMessages)
			r.Delete("/scheduled-messages", h.HandleCancelScheduledMessage)
		})
	})

	return r
}
