package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type UserStore struct {
	db *gorm.DB
}

func NewUserStore(db *gorm.DB) *UserStore {
	return &UserStore{db: db}
}

// CreateSession registers a fresh anonymous user bound to a new session id.
func (s *UserStore) CreateSession(ctx context.Context) (*User, error) {
	now := time.Now().UTC()
	user := User{
		UserID:     "user_" + uuid.NewString(),
		SessionID:  uuid.NewString(),
		CreatedAt:  now,
		LastActive: now,
	}
	if err := s.db.WithContext(ctx).Create(&user).Error; err != nil {
		return nil, fmt.Errorf("CreateSession: %w", err)
	}
	return &user, nil
}

// UserBySession resolves a session id and touches the user's last activity.
func (s *UserStore) UserBySession(ctx context.Context, sessionID string) (*User, error) {
	var user User
	err := s.db.WithContext(ctx).Where("session_id = ?", sessionID).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("UserBySession: %w", err)
	}

	user.LastActive = time.Now().UTC()
	if err := s.db.WithContext(ctx).Model(&User{}).Where("id = ?", user.ID).
		UpdateColumn("last_active", user.LastActive).Error; err != nil {
		return nil, fmt.Errorf("UserBySession: failed to touch last activity: %w", err)
	}
	return &user, nil
}
