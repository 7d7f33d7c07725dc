package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"
	"time"

	"SlackScheduler/db"

	"github.com/go-playground/validator/v10"
	log "github.com/sirupsen/logrus"
)

type Deps struct {
	Sessions    SessionService
	Credentials CredentialService
	Messages    MessageService
	Resolver    TokenResolver
	Slack       SlackService
	Installer   Installer
	// States is optional; without it the OAuth state is not verified.
	States  StateStore
	Sweeper SweepRunner

	BaseURL      string
	CronSecret   string
	SecureCookie bool
	Now          Clock
}

// Handler serves the HTTP API.
type Handler struct {
	Deps
	validate *validator.Validate
}

func NewHandler(deps Deps) *Handler {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	validate := validator.New(validator.WithRequiredStructEnabled())
	validate.RegisterTagNameFunc(func(field reflect.StructField) string {
		name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return &Handler{Deps: deps, validate: validate}
}

func (h *Handler) HandleHealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// HandleSuccess is where Slack installs land.
func (h *Handler) HandleSuccess(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("✅ Slack workspace connected. You can now schedule messages."))
}

type userKey struct{}

// RequireSession resolves the sessionId cookie to a user or answers 401.
func (h *Handler) RequireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(sessionCookieName)
		if err != nil || cookie.Value == "" {
			writeError(w, http.StatusUnauthorized, "No session found", "")
			return
		}

		user, err := h.Sessions.UserBySession(r.Context(), cookie.Value)
		if errors.Is(err, db.ErrNotFound) {
			writeError(w, http.StatusUnauthorized, "Invalid session", "")
			return
		}
		if err != nil {
			log.WithError(err).Error("Failed to load session")
			writeError(w, http.StatusInternalServerError, "An error occurred", "")
			return
		}

		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), userKey{}, user)))
	})
}

func userFrom(ctx context.Context) *db.User {
	user, _ := ctx.Value(userKey{}).(*db.User)
	return user
}

func (h *Handler) setSessionCookie(w http.ResponseWriter, sessionID string) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    sessionID,
		Path:     "/",
		MaxAge:   int(sessionCookieMaxAge.Seconds()),
		HttpOnly: true,
		Secure:   h.SecureCookie,
		SameSite: http.SameSiteLaxMode,
	})
}

// decode reads a JSON body into dst and runs struct validation on it.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	body := http.MaxBytesReader(w, r.Body, maxRequestBodyBytes)
	if err := json.NewDecoder(body).Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "Invalid request body", err.Error())
		return false
	}
	if err := h.validate.Struct(dst); err != nil {
		writeError(w, http.StatusBadRequest, "Missing or invalid fields", validationDetails(err))
		return false
	}
	return true
}

func validationDetails(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	details := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		details = append(details, fmt.Sprintf("%s failed %s", fe.Field(), fe.Tag()))
	}
	return strings.Join(details, "; ")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.WithError(err).Warn("Failed to write response")
	}
}

func writeError(w http.ResponseWriter, status int, message, details string) {
	writeJSON(w, status, errorResponse{Error: message, Details: details})
}
