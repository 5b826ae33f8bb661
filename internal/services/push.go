package services

import (
	"context"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"github.com/google/uuid"
	"google.golang.org/api/option"

	"github.com/arnold/milestones-api/internal/database"
	"github.com/arnold/milestones-api/internal/logger"
	"github.com/arnold/milestones-api/internal/models"
)

// PushService handles sending push notifications via Firebase Cloud Messaging
type PushService struct {
	client *messaging.Client
}

// Global push service instance
var Push *PushService

// InitPush initializes the Firebase push notification service.
// Returns nil gracefully if no service account is configured (dev mode).
func InitPush(ctx context.Context, serviceAccountPath string) error {
	Push = &PushService{}
	if serviceAccountPath == "" {
		logger.Info("fcm: no service account configured, push disabled")
		return nil
	}

	app, err := firebase.NewApp(ctx, nil, option.WithCredentialsFile(serviceAccountPath))
	if err != nil {
		logger.Warn("fcm: failed to initialize firebase app", "err", err)
		return nil
	}

	client, err := app.Messaging(ctx)
	if err != nil {
		logger.Warn("fcm: failed to get messaging client", "err", err)
		return nil
	}

	Push.client = client
	logger.Info("fcm: push notifications enabled")
	return nil
}

// Enabled reports whether messages will actually be sent.
func (p *PushService) Enabled() bool {
	return p != nil && p.client != nil
}

// SendToUser sends a push notification to every registered device of a user.
// No-op if push is not configured or the user has no device tokens.
func (p *PushService) SendToUser(ctx context.Context, userID uuid.UUID, title, body string, data map[string]string) {
	if !p.Enabled() {
		return
	}

	var tokens []string
	if err := database.DB.Model(&models.DeviceToken{}).Where("user_id = ?", userID).Pluck("token", &tokens).Error; err != nil {
		logger.Warn("fcm: failed to load device tokens", "user", userID, "err", err)
		return
	}
	if len(tokens) == 0 {
		return
	}

	resp, err := p.client.SendEachForMulticast(ctx, &messaging.MulticastMessage{
		Tokens: tokens,
		Notification: &messaging.Notification{
			Title: title,
			Body:  body,
		},
		Data: data,
	})
	if err != nil {
		logger.Warn("fcm: send failed", "user", userID, "err", err)
		return
	}

	// Drop tokens FCM no longer recognises.
	for i, r := range resp.Responses {
		if r.Error != nil && messaging.IsUnregistered(r.Error) {
			database.DB.Where("token = ?", tokens[i]).Delete(&models.DeviceToken{})
		}
	}
	if resp.FailureCount > 0 {
		logger.Debug("fcm: partial delivery", "user", userID, "failed", resp.FailureCount)
	}
}
