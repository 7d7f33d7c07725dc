package db

import "time"

// DefaultCredentialLifetime applies when Slack does not report expires_in at install time.
const DefaultCredentialLifetime = 24 * time.Hour

type User struct {
	ID         uint      `gorm:"primaryKey" json:"-"`
	UserID     string    `gorm:"uniqueIndex;not null" json:"userId"`
	SessionID  string    `gorm:"uniqueIndex;not null" json:"-"`
	CreatedAt  time.Time `json:"createdAt"`
	LastActive time.Time `json:"lastActive"`
}

// Credential is the OAuth token pair one user holds for one Slack workspace.
type Credential struct {
	ID           uint      `gorm:"primaryKey" json:"-"`
	TeamID       string    `gorm:"uniqueIndex:idx_credential_team_user;not null" json:"teamId"`
	UserID       string    `gorm:"uniqueIndex:idx_credential_team_user;index;not null" json:"userId"`
	TeamName     string    `json:"teamName"`
	AccessToken  string    `gorm:"not null" json:"-"`
	RefreshToken string    `json:"-"`
	ExpiresAt    time.Time `gorm:"not null" json:"expiresAt"`
	TokenType    string    `json:"tokenType"`
	Scope        string    `json:"scope"`
	AuthedUserID string    `json:"authedUserId"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

func (Credential) TableName() string {
	return "slack_tokens"
}

// ScheduledMessage is a text payload waiting for its SendAt instant.
type ScheduledMessage struct {
	ID           uint       `gorm:"primaryKey" json:"id"`
	UserID       string     `gorm:"index:idx_scheduled_owner;not null" json:"userId"`
	TeamID       string     `gorm:"index:idx_scheduled_owner;not null" json:"teamId"`
	ChannelID    string     `gorm:"not null" json:"channelId"`
	Message      string     `gorm:"not null" json:"message"`
	SendAt       time.Time  `gorm:"index:idx_scheduled_due;not null" json:"sendAt"`
	Sent         bool       `gorm:"index:idx_scheduled_due;not null;default:false" json:"sent"`
	SentAt       *time.Time `json:"sentAt,omitempty"`
	Attempts     int        `gorm:"not null;default:0" json:"attempts"`
	LastError    string     `json:"lastError,omitempty"`
	DeadLettered bool       `gorm:"not null;default:false" json:"deadLettered"`
	ClaimedUntil *time.Time `json:"-"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`
}

func (ScheduledMessage) TableName() string {
	return "scheduled_messages"
}
