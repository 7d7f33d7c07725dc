package credential

import (
	"context"
	"errors"
	"fmt"
	"time"

	"SlackScheduler/db"
	"SlackScheduler/internal/slack"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"
)

const (
	// RefreshMargin is how long before expiry a token is already treated as stale.
	RefreshMargin = 5 * time.Minute
	// DefaultRefreshedLifetime applies when the refresh response omits expires_in.
	DefaultRefreshedLifetime = time.Hour
)

var (
	ErrCredentialMissing = errors.New("no credential for team and user")
	ErrNoRefreshToken    = errors.New("credential expired and has no refresh token")
	ErrRefreshFailed     = errors.New("credential refresh failed")
)

type Store interface {
	Get(ctx context.Context, teamID, userID string) (*db.Credential, error)
	UpdateTokens(ctx context.Context, teamID, userID, accessToken, refreshToken string, expiresAt time.Time) error
	DeleteIfUnchanged(ctx context.Context, teamID, userID string, updatedAt time.Time) (bool, error)
}

type Refresher interface {
	RefreshToken(ctx context.Context, refreshToken string) (*slack.OAuthResponse, error)
}

// Resolver hands out access tokens that are valid for at least RefreshMargin,
// refreshing and persisting them when needed. One Resolver is shared by the
// sweep and the HTTP handlers; refreshes of the same credential are collapsed.
type Resolver struct {
	store     Store
	refresher Refresher
	now       func() time.Time
	margin    time.Duration
	inflight  singleflight.Group
}

func NewResolver(store Store, refresher Refresher) *Resolver {
	return &Resolver{
		store:     store,
		refresher: refresher,
		now:       time.Now,
		margin:    RefreshMargin,
	}
}

// WithClock replaces the time source.
func (r *Resolver) WithClock(now func() time.Time) *Resolver {
	r.now = now
	return r
}

// Resolve returns a usable access token for (teamID, userID). A single refresh
// is attempted when the stored token is inside the margin; if that refresh
// fails the credential is deleted so the user has to reinstall.
func (r *Resolver) Resolve(ctx context.Context, teamID, userID string) (string, error) {
	cred, err := r.load(ctx, teamID, userID)
	if err != nil {
		return "", err
	}
	if r.fresh(cred) {
		return cred.AccessToken, nil
	}

	token, err, _ := r.inflight.Do(teamID+"/"+userID, func() (any, error) {
		return r.refresh(ctx, teamID, userID)
	})
	if err != nil {
		return "", err
	}
	return token.(string), nil
}

func (r *Resolver) load(ctx context.Context, teamID, userID string) (*db.Credential, error) {
	cred, err := r.store.Get(ctx, teamID, userID)
	if errors.Is(err, db.ErrNotFound) {
		return nil, ErrCredentialMissing
	}
	if err != nil {
		return nil, fmt.Errorf("Resolve: %w", err)
	}
	return cred, nil
}

func (r *Resolver) fresh(cred *db.Credential) bool {
	return r.now().Before(cred.ExpiresAt.Add(-r.margin))
}

// refresh runs at most once at a time per credential. It reloads the record
// first, since an earlier flight may already have rotated it.
func (r *Resolver) refresh(ctx context.Context, teamID, userID string) (string, error) {
	cred, err := r.load(ctx, teamID, userID)
	if err != nil {
		return "", err
	}
	if r.fresh(cred) {
		return cred.AccessToken, nil
	}
	if cred.RefreshToken == "" {
		return "", ErrNoRefreshToken
	}

	logger := log.WithFields(log.Fields{"team_id": teamID, "user_id": userID})

	now := r.now()
	resp, err := r.refresher.RefreshToken(ctx, cred.RefreshToken)
	if err == nil && resp.AccessToken == "" {
		err = errors.New("refresh response carries no access token")
	}
	if err != nil {
		logger.WithError(err).Warn("Token refresh failed, removing credential")
		removed, delErr := r.store.DeleteIfUnchanged(ctx, teamID, userID, cred.UpdatedAt)
		if delErr != nil {
			return "", fmt.Errorf("%w: %v (delete failed: %v)", ErrRefreshFailed, err, delErr)
		}
		if !removed {
			// Rotated elsewhere while this refresh was in flight.
			if current, loadErr := r.load(ctx, teamID, userID); loadErr == nil && r.fresh(current) {
				logger.Info("Credential was refreshed concurrently, keeping it")
				return current.AccessToken, nil
			}
		}
		return "", fmt.Errorf("%w: %v", ErrRefreshFailed, err)
	}

	refreshToken := resp.RefreshToken
	if refreshToken == "" {
		refreshToken = cred.RefreshToken
	}
	lifetime := DefaultRefreshedLifetime
	if resp.ExpiresIn > 0 {
		lifetime = time.Duration(resp.ExpiresIn) * time.Second
	}
	expiresAt := now.Add(lifetime)

	if err := r.store.UpdateTokens(ctx, teamID, userID, resp.AccessToken, refreshToken, expiresAt); err != nil {
		return "", fmt.Errorf("Resolve: failed to persist refreshed token: %w", err)
	}

	logger.WithField("expires_at", expiresAt.UTC().Format(time.RFC3339)).Info("Refreshed access token")
	return resp.AccessToken, nil
}
