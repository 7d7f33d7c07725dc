package api

import (
	"context"
	"time"

	"SlackScheduler/db"
	"SlackScheduler/internal/slack"
	"SlackScheduler/scheduler"
	"SlackScheduler/utils"
)

// The handlers only see these narrow views of the stores and clients.

type SessionService interface {
	CreateSession(ctx context.Context) (*db.User, error)
	UserBySession(ctx context.Context, sessionID string) (*db.User, error)
}

type CredentialService interface {
	Upsert(ctx context.Context, cred db.Credential) error
	Delete(ctx context.Context, teamID, userID string) (bool, error)
	ListByUser(ctx context.Context, userID string) ([]db.Credential, error)
}

type MessageService interface {
	Create(ctx context.Context, msg *db.ScheduledMessage) error
	ListForUserTeam(ctx context.Context, userID, teamID string) ([]db.ScheduledMessage, error)
	DeleteUnsent(ctx context.Context, id uint, userID string) (bool, error)
}

type TokenResolver interface {
	Resolve(ctx context.Context, teamID, userID string) (string, error)
}

type SlackService interface {
	PostMessage(ctx context.Context, token, channel, text string) (string, error)
	ListConversations(ctx context.Context, token, types string, limit int) ([]slack.Channel, error)
	AuthTest(ctx context.Context, token string) (*slack.AuthTestResponse, error)
	ExchangeCode(ctx context.Context, code, redirectURI string) (*slack.OAuthResponse, error)
}

type Installer interface {
	InstallURL(state string) string
	RedirectURL() string
}

// StateStore remembers OAuth states between the install redirect and the callback.
type StateStore interface {
	SaveState(ctx context.Context, state string, data utils.OAuthState) error
	ConsumeState(ctx context.Context, state string) (*utils.OAuthState, error)
}

type SweepRunner interface {
	Run(ctx context.Context) (scheduler.Report, error)
}

type Clock func() time.Time
