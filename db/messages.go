package db

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
)

// MessageStore persists ScheduledMessages. Every state transition the sweep
// makes is a conditional update scoped to a single row.
type MessageStore struct {
	db *gorm.DB
}

func NewMessageStore(db *gorm.DB) *MessageStore {
	return &MessageStore{db: db}
}

func (s *MessageStore) Create(ctx context.Context, msg *ScheduledMessage) error {
	msg.SendAt = msg.SendAt.UTC()
	msg.Sent = false
	if err := s.db.WithContext(ctx).Create(msg).Error; err != nil {
		return fmt.Errorf("CreateScheduledMessage: failed to save message for team %s, user %s: %w", msg.TeamID, msg.UserID, err)
	}
	return nil
}

// ListDue returns unsent, live messages whose SendAt has passed and that no
// other sweep currently holds a claim on. limit <= 0 means no limit.
func (s *MessageStore) ListDue(ctx context.Context, now time.Time, limit int) ([]ScheduledMessage, error) {
	now = now.UTC()
	query := s.db.WithContext(ctx).
		Where("sent = ? AND dead_lettered = ? AND send_at <= ?", false, false, now).
		Where("claimed_until IS NULL OR claimed_until <= ?", now).
		Order("send_at ASC, id ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}

	var messages []ScheduledMessage
	if err := query.Find(&messages).Error; err != nil {
		return nil, fmt.Errorf("ListDue: failed to query due messages: %w", err)
	}
	return messages, nil
}

// Claim takes a lease on an unsent message. It returns false when the message
// was sent, dead-lettered, deleted, or is already claimed by someone else.
func (s *MessageStore) Claim(ctx context.Context, id uint, now time.Time, lease time.Duration) (bool, error) {
	now = now.UTC()
	result := s.db.WithContext(ctx).Model(&ScheduledMessage{}).
		Where("id = ? AND sent = ? AND dead_lettered = ?", id, false, false).
		Where("claimed_until IS NULL OR claimed_until <= ?", now).
		UpdateColumn("claimed_until", now.Add(lease))
	if result.Error != nil {
		return false, fmt.Errorf("Claim: failed to claim message %d: %w", id, result.Error)
	}
	return result.RowsAffected == 1, nil
}

// MarkSent flips sent to true. The update only applies while sent is false,
// so a message can be marked exactly once; otherwise ErrAlreadySent.
func (s *MessageStore) MarkSent(ctx context.Context, id uint, now time.Time) error {
	now = now.UTC()
	result := s.db.WithContext(ctx).Model(&ScheduledMessage{}).
		Where("id = ? AND sent = ?", id, false).
		Updates(map[string]any{
			"sent":          true,
			"sent_at":       now,
			"claimed_until": nil,
			"last_error":    "",
			"updated_at":    now,
		})
	if result.Error != nil {
		return fmt.Errorf("MarkSent: failed to mark message %d as sent: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrAlreadySent
	}
	return nil
}

// Release drops the claim after a failed delivery and records why. When
// countAttempt is set the attempt counter grows, and once it reaches
// maxAttempts (> 0) the message is dead-lettered. It reports whether that happened.
func (s *MessageStore) Release(ctx context.Context, id uint, now time.Time, reason string, countAttempt bool, maxAttempts int) (bool, error) {
	now = now.UTC()
	updates := map[string]any{
		"claimed_until": nil,
		"last_error":    reason,
		"updated_at":    now,
	}
	if countAttempt {
		updates["attempts"] = gorm.Expr("attempts + ?", 1)
	}

	result := s.db.WithContext(ctx).Model(&ScheduledMessage{}).
		Where("id = ? AND sent = ?", id, false).
		Updates(updates)
	if result.Error != nil {
		return false, fmt.Errorf("Release: failed to release message %d: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return false, ErrNotFound
	}
	if !countAttempt || maxAttempts <= 0 {
		return false, nil
	}

	result = s.db.WithContext(ctx).Model(&ScheduledMessage{}).
		Where("id = ? AND sent = ? AND dead_lettered = ? AND attempts >= ?", id, false, false, maxAttempts).
		UpdateColumn("dead_lettered", true)
	if result.Error != nil {
		return false, fmt.Errorf("Release: failed to dead-letter message %d: %w", id, result.Error)
	}
	return result.RowsAffected == 1, nil
}

// ListForUserTeam returns the user's messages for one workspace, soonest first.
func (s *MessageStore) ListForUserTeam(ctx context.Context, userID, teamID string) ([]ScheduledMessage, error) {
	var messages []ScheduledMessage
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND team_id = ?", userID, teamID).
		Order("send_at ASC, id ASC").
		Find(&messages).Error
	if err != nil {
		return nil, fmt.Errorf("ListForUserTeam: failed to list messages for team %s: %w", teamID, err)
	}
	return messages, nil
}

// DeleteUnsent cancels a message owned by userID that has not been sent yet.
func (s *MessageStore) DeleteUnsent(ctx context.Context, id uint, userID string) (bool, error) {
	result := s.db.WithContext(ctx).
		Where("id = ? AND user_id = ? AND sent = ?", id, userID, false).
		Delete(&ScheduledMessage{})
	if result.Error != nil {
		return false, fmt.Errorf("DeleteUnsent: failed to delete message %d: %w", id, result.Error)
	}
	return result.RowsAffected > 0, nil
}
