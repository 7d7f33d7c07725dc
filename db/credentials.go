package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"SlackScheduler/utils"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CredentialStore persists Credentials keyed by (team_id, user_id). Tokens are
// sealed with the cipher on the way in and opened on the way out.
type CredentialStore struct {
	db     *gorm.DB
	cipher *utils.Cipher
}

func NewCredentialStore(db *gorm.DB, cipher *utils.Cipher) *CredentialStore {
	return &CredentialStore{db: db, cipher: cipher}
}

// Get returns the decrypted credential, or ErrNotFound.
func (s *CredentialStore) Get(ctx context.Context, teamID, userID string) (*Credential, error) {
	var cred Credential
	err := s.db.WithContext(ctx).Where("team_id = ? AND user_id = ?", teamID, userID).First(&cred).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("GetCredential: failed to load credential for team %s: %w", teamID, err)
	}

	if cred.AccessToken, err = s.cipher.Decrypt(cred.AccessToken); err != nil {
		return nil, fmt.Errorf("GetCredential: access token for team %s: %w", teamID, err)
	}
	if cred.RefreshToken, err = s.cipher.Decrypt(cred.RefreshToken); err != nil {
		return nil, fmt.Errorf("GetCredential: refresh token for team %s: %w", teamID, err)
	}
	return &cred, nil
}

// Upsert creates the credential or overwrites the tokens and metadata of the
// existing (team, user) record. CreatedAt of an existing record is kept.
func (s *CredentialStore) Upsert(ctx context.Context, cred Credential) error {
	now := time.Now().UTC()
	cred.CreatedAt = now
	cred.UpdatedAt = now
	if cred.ExpiresAt.IsZero() {
		cred.ExpiresAt = now.Add(DefaultCredentialLifetime)
	}
	cred.ExpiresAt = cred.ExpiresAt.UTC()

	var err error
	if cred.AccessToken, err = s.cipher.Encrypt(cred.AccessToken); err != nil {
		return fmt.Errorf("UpsertCredential: %w", err)
	}
	if cred.RefreshToken, err = s.cipher.Encrypt(cred.RefreshToken); err != nil {
		return fmt.Errorf("UpsertCredential: %w", err)
	}

	err = s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "team_id"}, {Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"team_name", "access_token", "refresh_token", "expires_at",
			"token_type", "scope", "authed_user_id", "updated_at",
		}),
	}).Create(&cred).Error
	if err != nil {
		return fmt.Errorf("UpsertCredential: failed to save credential for team %s: %w", cred.TeamID, err)
	}
	return nil
}

// UpdateTokens replaces the token pair and expiry after a refresh.
func (s *CredentialStore) UpdateTokens(ctx context.Context, teamID, userID, accessToken, refreshToken string, expiresAt time.Time) error {
	sealedAccess, err := s.cipher.Encrypt(accessToken)
	if err != nil {
		return fmt.Errorf("UpdateTokens: %w", err)
	}
	sealedRefresh, err := s.cipher.Encrypt(refreshToken)
	if err != nil {
		return fmt.Errorf("UpdateTokens: %w", err)
	}

	result := s.db.WithContext(ctx).Model(&Credential{}).
		Where("team_id = ? AND user_id = ?", teamID, userID).
		Updates(map[string]any{
			"access_token":  sealedAccess,
			"refresh_token": sealedRefresh,
			"expires_at":    expiresAt.UTC(),
			"updated_at":    time.Now().UTC(),
		})
	if result.Error != nil {
		return fmt.Errorf("UpdateTokens: failed to update credential for team %s: %w", teamID, result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes the credential and reports whether one existed.
func (s *CredentialStore) Delete(ctx context.Context, teamID, userID string) (bool, error) {
	result := s.db.WithContext(ctx).Where("team_id = ? AND user_id = ?", teamID, userID).Delete(&Credential{})
	if result.Error != nil {
		return false, fmt.Errorf("DeleteCredential: failed to delete credential for team %s: %w", teamID, result.Error)
	}
	return result.RowsAffected > 0, nil
}

// DeleteIfUnchanged removes the credential only while it still carries the
// updatedAt the caller read, so a token pair rotated in the meantime survives.
func (s *CredentialStore) DeleteIfUnchanged(ctx context.Context, teamID, userID string, updatedAt time.Time) (bool, error) {
	result := s.db.WithContext(ctx).
		Where("team_id = ? AND user_id = ? AND updated_at = ?", teamID, userID, updatedAt.UTC()).
		Delete(&Credential{})
	if result.Error != nil {
		return false, fmt.Errorf("DeleteCredential: failed to invalidate credential for team %s: %w", teamID, result.Error)
	}
	return result.RowsAffected > 0, nil
}

// ListByUser returns the user's workspaces with the token fields cleared.
func (s *CredentialStore) ListByUser(ctx context.Context, userID string) ([]Credential, error) {
	var creds []Credential
	if err := s.db.WithContext(ctx).Where("user_id = ?", userID).Order("created_at ASC").Find(&creds).Error; err != nil {
		return nil, fmt.Errorf("ListCredentials: failed to list workspaces for user %s: %w", userID, err)
	}
	for i := range creds {
		creds[i].AccessToken = ""
		creds[i].RefreshToken = ""
	}
	return creds, nil
}
