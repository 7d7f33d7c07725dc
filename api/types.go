package api

import "time"

type errorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

type successResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

type sendMessageRequest struct {
	TeamID    string `json:"teamId" validate:"required"`
	ChannelID string `json:"channelId" validate:"required"`
	Message   string `json:"message" validate:"required,max=40000"`
}

type sendMessageResponse struct {
	successResponse
	Timestamp string `json:"timestamp"`
}

type scheduleMessageRequest struct {
	TeamID    string    `json:"teamId" validate:"required"`
	ChannelID string    `json:"channelId" validate:"required"`
	Message   string    `json:"message" validate:"required,max=40000"`
	SendAt    time.Time `json:"sendAt" validate:"required"`
}

type scheduleMessageResponse struct {
	successResponse
	ID uint `json:"id"`
}

type cancelMessageRequest struct {
	ID string `json:"id" validate:"required,numeric"`
}

type removeWorkspaceRequest struct {
	TeamID string `json:"teamId" validate:"required"`
}

type workspace struct {
	ID        uint      `json:"id"`
	TeamID    string    `json:"teamId"`
	TeamName  string    `json:"teamName"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type teamResponse struct {
	TeamID   string `json:"teamId"`
	TeamName string `json:"teamName"`
}

type cronResponse struct {
	Success      bool   `json:"success"`
	Due          int    `json:"due"`
	Sent         int    `json:"sent"`
	Failed       int    `json:"failed"`
	Skipped      int    `json:"skipped"`
	DeadLettered int    `json:"deadLettered"`
	Error        string `json:"error,omitempty"`
}
