package api

import (
	"errors"
	"net/http"

	"SlackScheduler/internal/slack"

	log "github.com/sirupsen/logrus"
)

func (h *Handler) HandleListWorkspaces(w http.ResponseWriter, r *http.Request) {
	user := userFrom(r.Context())

	creds, err := h.Credentials.ListByUser(r.Context(), user.UserID)
	if err != nil {
		log.WithError(err).WithField("user_id", user.UserID).Error("Failed to list workspaces")
		writeError(w, http.StatusInternalServerError, "An error occurred while fetching workspaces", "")
		return
	}

	workspaces := make([]workspace, 0, len(creds))
	for _, cred := range creds {
		workspaces = append(workspaces, workspace{
			ID:        cred.ID,
			TeamID:    cred.TeamID,
			TeamName:  teamNameOr(cred.TeamName, "Unknown Workspace"),
			CreatedAt: cred.CreatedAt,
			UpdatedAt: cred.UpdatedAt,
		})
	}
	writeJSON(w, http.StatusOK, workspaces)
}

func (h *Handler) HandleRemoveWorkspace(w http.ResponseWriter, r *http.Request) {
	user := userFrom(r.Context())

	var req removeWorkspaceRequest
	if !h.decode(w, r, &req) {
		return
	}

	removed, err := h.Credentials.Delete(r.Context(), req.TeamID, user.UserID)
	if err != nil {
		log.WithError(err).WithField("team_id", req.TeamID).Error("Failed to remove workspace")
		writeError(w, http.StatusInternalServerError, "An error occurred while removing the workspace", "")
		return
	}
	if !removed {
		writeError(w, http.StatusNotFound, "Workspace not found", "")
		return
	}

	log.WithFields(log.Fields{"team_id": req.TeamID, "user_id": user.UserID}).Info("Workspace removed")
	writeJSON(w, http.StatusOK, successResponse{Success: true, Message: "Workspace removed successfully"})
}

// HandleTeam returns the first workspace the user connected.
func (h *Handler) HandleTeam(w http.ResponseWriter, r *http.Request) {
	user := userFrom(r.Context())

	creds, err := h.Credentials.ListByUser(r.Context(), user.UserID)
	if err != nil {
		log.WithError(err).WithField("user_id", user.UserID).Error("Failed to load team")
		writeError(w, http.StatusInternalServerError, "An error occurred while fetching team information", "")
		return
	}
	if len(creds) == 0 {
		writeError(w, http.StatusUnauthorized, "No authenticated team found", "")
		return
	}

	writeJSON(w, http.StatusOK, teamResponse{
		TeamID:   creds[0].TeamID,
		TeamName: teamNameOr(creds[0].TeamName, "Unknown Team"),
	})
}

func (h *Handler) HandleListChannels(w http.ResponseWriter, r *http.Request) {
	token, teamID, ok := h.tokenForRequest(w, r)
	if !ok {
		return
	}

	channels, err := h.Slack.ListConversations(r.Context(), token, channelTypes, channelListLimit)
	if err != nil {
		log.WithError(err).WithField("team_id", teamID).Error("Failed to fetch channels")
		writeError(w, http.StatusInternalServerError, "Failed to fetch channels", slackErrorCode(err))
		return
	}
	if channels == nil {
		channels = []slack.Channel{}
	}
	writeJSON(w, http.StatusOK, channels)
}

func (h *Handler) HandleTestConnection(w http.ResponseWriter, r *http.Request) {
	token, teamID, ok := h.tokenForRequest(w, r)
	if !ok {
		return
	}

	auth, err := h.Slack.AuthTest(r.Context(), token)
	if err != nil {
		log.WithError(err).WithField("team_id", teamID).Warn("Connection test failed")
		writeError(w, http.StatusInternalServerError, "Connection test failed", slackErrorCode(err))
		return
	}

	channels, err := h.Slack.ListConversations(r.Context(), token, channelTypes, connectionTestLimit)
	if err != nil {
		log.WithError(err).WithField("team_id", teamID).Warn("Connection test failed")
		writeError(w, http.StatusInternalServerError, "Connection test failed", slackErrorCode(err))
		return
	}

	total := len(channels)
	if len(channels) > connectionTestShown {
		channels = channels[:connectionTestShown]
	}
	if channels == nil {
		channels = []slack.Channel{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":       true,
		"auth":          auth,
		"channels":      channels,
		"totalChannels": total,
	})
}

// tokenForRequest reads ?teamId= and resolves the caller's token for it,
// writing the error response itself when that is not possible.
func (h *Handler) tokenForRequest(w http.ResponseWriter, r *http.Request) (string, string, bool) {
	teamID := r.URL.Query().Get("teamId")
	if teamID == "" {
		writeError(w, http.StatusBadRequest, "No teamId provided", "")
		return "", "", false
	}

	user := userFrom(r.Context())
	token, err := h.Resolver.Resolve(r.Context(), teamID, user.UserID)
	if err != nil {
		log.WithError(err).WithFields(log.Fields{"team_id": teamID, "user_id": user.UserID}).
			Warn("Could not retrieve access token")
		writeError(w, http.StatusUnauthorized, "Could not retrieve access token", "")
		return "", "", false
	}
	return token, teamID, true
}

func slackErrorCode(err error) string {
	var apiErr *slack.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code
	}
	return ""
}

func teamNameOr(name, fallback string) string {
	if name == "" {
		return fallback
	}
	return name
}
