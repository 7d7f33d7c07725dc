package api

import (
	"net/http"
	"strconv"

	"SlackScheduler/db"

	log "github.com/sirupsen/logrus"
)

func (h *Handler) HandleSendMessage(w http.ResponseWriter, r *http.Request) {
	user := userFrom(r.Context())

	var req sendMessageRequest
	if !h.decode(w, r, &req) {
		return
	}

	logger := log.WithFields(log.Fields{"team_id": req.TeamID, "user_id": user.UserID, "channel_id": req.ChannelID})

	token, err := h.Resolver.Resolve(r.Context(), req.TeamID, user.UserID)
	if err != nil {
		logger.WithError(err).Warn("Could not retrieve access token")
		writeError(w, http.StatusUnauthorized, "Could not retrieve access token", "")
		return
	}

	ts, err := h.Slack.PostMessage(r.Context(), token, req.ChannelID, req.Message)
	if err != nil {
		logger.WithError(err).Error("Failed to send message")
		writeError(w, http.StatusInternalServerError, "Failed to send message", slackErrorCode(err))
		return
	}

	logger.Info("Message sent")
	writeJSON(w, http.StatusOK, sendMessageResponse{
		successResponse: successResponse{Success: true, Message: "Message sent successfully"},
		Timestamp:       ts,
	})
}

func (h *Handler) HandleScheduleMessage(w http.ResponseWriter, r *http.Request) {
	user := userFrom(r.Context())

	var req scheduleMessageRequest
	if !h.decode(w, r, &req) {
		return
	}
	if !req.SendAt.After(h.Now()) {
		writeError(w, http.StatusBadRequest, "Cannot schedule messages in the past. Please select a future date and time.", "")
		return
	}

	logger := log.WithFields(log.Fields{"team_id": req.TeamID, "user_id": user.UserID, "channel_id": req.ChannelID})

	if _, err := h.Resolver.Resolve(r.Context(), req.TeamID, user.UserID); err != nil {
		logger.WithError(err).Warn("Refusing to schedule without a credential")
		writeError(w, http.StatusUnauthorized, "Unauthorized", "")
		return
	}

	msg := &db.ScheduledMessage{
		UserID:    user.UserID,
		TeamID:    req.TeamID,
		ChannelID: req.ChannelID,
		Message:   req.Message,
		SendAt:    req.SendAt,
	}
	if err := h.Messages.Create(r.Context(), msg); err != nil {
		logger.WithError(err).Error("Failed to schedule message")
		writeError(w, http.StatusInternalServerError, "An error occurred while scheduling the message", "")
		return
	}

	logger.WithFields(log.Fields{"message_id": msg.ID, "send_at": msg.SendAt}).Info("Message scheduled")
	writeJSON(w, http.StatusOK, scheduleMessageResponse{
		successResponse: successResponse{Success: true, Message: "Message scheduled successfully"},
		ID:              msg.ID,
	})
}

func (h *Handler) HandleListScheduledMessages(w http.ResponseWriter, r *http.Request) {
	user := userFrom(r.Context())

	teamID := r.URL.Query().Get("teamId")
	if teamID == "" {
		writeError(w, http.StatusBadRequest, "No teamId provided", "")
		return
	}

	messages, err := h.Messages.ListForUserTeam(r.Context(), user.UserID, teamID)
	if err != nil {
		log.WithError(err).WithField("team_id", teamID).Error("Failed to list scheduled messages")
		writeError(w, http.StatusInternalServerError, "An error occurred while fetching scheduled messages", "")
		return
	}
	if messages == nil {
		messages = []db.ScheduledMessage{}
	}
	writeJSON(w, http.StatusOK, messages)
}

func (h *Handler) HandleCancelScheduledMessage(w http.ResponseWriter, r *http.Request) {
	user := userFrom(r.Context())

	var req cancelMessageRequest
	if !h.decode(w, r, &req) {
		return
	}
	id, err := strconv.ParseUint(req.ID, 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "No valid message ID provided", "")
		return
	}

	deleted, err := h.Messages.DeleteUnsent(r.Context(), uint(id), user.UserID)
	if err != nil {
		log.WithError(err).WithField("message_id", id).Error("Failed to cancel scheduled message")
		writeError(w, http.StatusInternalServerError, "An error occurred while cancelling the message", "")
		return
	}
	if !deleted {
		writeError(w, http.StatusNotFound, "Message not found", "")
		return
	}

	log.WithFields(log.Fields{"message_id": id, "user_id": user.UserID}).Info("Scheduled message cancelled")
	writeJSON(w, http.StatusOK, successResponse{Success: true, Message: "Scheduled message cancelled successfully"})
}
