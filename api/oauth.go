package api

import (
	"errors"
	"net/http"
	"time"

	"SlackScheduler/db"
	"SlackScheduler/internal/slack"
	"SlackScheduler/utils"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

func (h *Handler) HandleSlackInstall(w http.ResponseWriter, r *http.Request) {
	state := uuid.NewString()

	if h.States != nil {
		data := utils.OAuthState{CreatedAt: h.Now().UTC()}
		if cookie, err := r.Cookie(sessionCookieName); err == nil {
			data.SessionID = cookie.Value
		}
		if err := h.States.SaveState(r.Context(), state, data); err != nil {
			log.WithError(err).Error("Failed to store OAuth state")
			writeError(w, http.StatusInternalServerError, "Failed to start Slack installation", "")
			return
		}
	}

	redirect := h.Installer.InstallURL(state)
	log.WithField("redirect_uri", h.Installer.RedirectURL()).Info("Redirecting to Slack OAuth")
	http.Redirect(w, r, redirect, http.StatusFound)
}

func (h *Handler) HandleSlackOAuthCallback(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	query := r.URL.Query()

	if slackErr := query.Get("error"); slackErr != "" {
		log.WithField("error", slackErr).Warn("Slack installation was not approved")
		writeError(w, http.StatusBadRequest, "Slack OAuth failed", slackErr)
		return
	}

	code := query.Get("code")
	if code == "" {
		writeError(w, http.StatusBadRequest, "No authorization code provided", "")
		return
	}

	var stateSession string
	if h.States != nil {
		state, err := h.States.ConsumeState(ctx, query.Get("state"))
		if err != nil {
			log.WithError(err).Error("Failed to load OAuth state")
			writeError(w, http.StatusInternalServerError, "An error occurred", "")
			return
		}
		if state == nil {
			writeError(w, http.StatusBadRequest, "Invalid or expired OAuth state", "")
			return
		}
		stateSession = state.SessionID
	}

	oauthResp, err := h.Slack.ExchangeCode(ctx, code, h.Installer.RedirectURL())
	if err != nil {
		log.WithError(err).Error("OAuth token exchange failed")
		var apiErr *slack.APIError
		if errors.As(err, &apiErr) {
			writeError(w, http.StatusBadRequest, "Slack OAuth failed", apiErr.Code)
			return
		}
		writeError(w, http.StatusBadGateway, "Slack OAuth failed", "")
		return
	}
	if oauthResp.Team.ID == "" || oauthResp.AccessToken == "" {
		log.WithField("team_id", oauthResp.Team.ID).Error("Slack OAuth response is missing team or access token")
		writeError(w, http.StatusBadRequest, "Invalid response from Slack", "Missing essential OAuth fields (team or access_token)")
		return
	}

	user, err := h.sessionUser(r, stateSession)
	if err != nil {
		log.WithError(err).Error("Failed to create user session")
		writeError(w, http.StatusInternalServerError, "Failed to create user session", "")
		return
	}

	now := h.Now().UTC()
	cred := db.Credential{
		TeamID:       oauthResp.Team.ID,
		UserID:       user.UserID,
		TeamName:     oauthResp.Team.Name,
		AccessToken:  oauthResp.AccessToken,
		RefreshToken: oauthResp.RefreshToken,
		TokenType:    oauthResp.TokenType,
		Scope:        oauthResp.Scope,
		AuthedUserID: oauthResp.AuthedUser.ID,
		ExpiresAt:    now.Add(db.DefaultCredentialLifetime),
	}
	if oauthResp.ExpiresIn > 0 {
		cred.ExpiresAt = now.Add(time.Duration(oauthResp.ExpiresIn) * time.Second)
	}
	if cred.TokenType == "" {
		cred.TokenType = "bot"
	}

	if err := h.Credentials.Upsert(ctx, cred); err != nil {
		log.WithError(err).WithField("team_id", cred.TeamID).Error("Failed to save credential")
		writeError(w, http.StatusInternalServerError, "Failed to save workspace credentials", "")
		return
	}

	log.WithFields(log.Fields{
		"team_id":   cred.TeamID,
		"team_name": cred.TeamName,
		"user_id":   user.UserID,
	}).Info("Slack OAuth installation successful")

	h.setSessionCookie(w, user.SessionID)
	http.Redirect(w, r, h.BaseURL+successPath, http.StatusFound)
}

// sessionUser returns the user behind the request's session cookie, then the
// session remembered in the OAuth state, and creates a new one otherwise.
func (h *Handler) sessionUser(r *http.Request, stateSession string) (*db.User, error) {
	candidates := make([]string, 0, 2)
	if cookie, err := r.Cookie(sessionCookieName); err == nil && cookie.Value != "" {
		candidates = append(candidates, cookie.Value)
	}
	if stateSession != "" {
		candidates = append(candidates, stateSession)
	}

	for _, sessionID := range candidates {
		user, err := h.Sessions.UserBySession(r.Context(), sessionID)
		if err == nil {
			return user, nil
		}
		if !errors.Is(err, db.ErrNotFound) {
			return nil, err
		}
	}
	return h.Sessions.CreateSession(r.Context())
}
