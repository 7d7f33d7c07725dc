package api

import (
	"context"
	"crypto/subtle"
	"net/http"
	"strings"

	log "github.com/sirupsen/logrus"
)

// HandleCron runs one delivery sweep for an external trigger. When a cron
// secret is configured the caller must send it as a bearer token.
func (h *Handler) HandleCron(w http.ResponseWriter, r *http.Request) {
	if h.CronSecret != "" {
		token, found := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !found || subtle.ConstantTimeCompare([]byte(token), []byte(h.CronSecret)) != 1 {
			writeError(w, http.StatusUnauthorized, "Unauthorized", "")
			return
		}
	}

	// A disconnecting caller must not cut a sweep off between send and mark.
	report, err := h.Sweeper.Run(context.WithoutCancel(r.Context()))
	resp := cronResponse{
		Success:      err == nil,
		Due:          report.Due,
		Sent:         report.Sent,
		Failed:       report.Failed,
		Skipped:      report.Skipped,
		DeadLettered: report.DeadLettered,
	}
	if err != nil {
		log.WithError(err).Error("Cron job failed")
		resp.Error = "Cron job failed"
		writeJSON(w, http.StatusInternalServerError, resp)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}
