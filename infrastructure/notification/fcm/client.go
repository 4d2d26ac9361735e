package fcm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"knkt-backend/application/ports"
)

const sendTimeout = 10 * time.Second

// Sender implements ports.NotificationSender against the FCM v1 API.
// Devices without a registered token and every delivery failure are
// reported as not-delivered, never as errors.
type Sender struct {
	projectID  string
	tokens     *tokenSource
	profiles   ports.ProfileRepository
	httpClient *http.Client
	logger     *zap.Logger
}

func NewSender(projectID, clientEmail, privateKeyPEM string, profiles ports.ProfileRepository, logger *zap.Logger) (*Sender, error) {
	httpClient := &http.Client{Timeout: sendTimeout}
	tokens, err := newTokenSource(clientEmail, privateKeyPEM, httpClient)
	if err != nil {
		return nil, err
	}
	return &Sender{
		projectID:  projectID,
		tokens:     tokens,
		profiles:   profiles,
		httpClient: httpClient,
		logger:     logger,
	}, nil
}

type fcmMessage struct {
	Message struct {
		Token        string            `json:"token"`
		Notification map[string]string `json:"notification"`
		Data         map[string]string `json:"data,omitempty"`
		Android      struct {
			Priority string `json:"priority"`
		} `json:"android"`
		APNS struct {
			Headers map[string]string `json:"headers"`
		} `json:"apns"`
	} `json:"message"`
}

// NotifyUser looks up the user's device token and sends one push.
func (s *Sender) NotifyUser(ctx context.Context, uid, title, body string, data map[string]string) bool {
	p, err := s.profiles.GetByUID(ctx, uid)
	if err != nil {
		s.logger.Warn("Device token lookup failed",
			zap.String("uid", uid), zap.Error(err))
		return false
	}
	if p == nil || p.DeviceToken == "" {
		s.logger.Debug("No device token registered", zap.String("uid", uid))
		return false
	}

	accessToken, err := s.tokens.Token(ctx)
	if err != nil {
		s.logger.Warn("FCM token acquisition failed", zap.Error(err))
		return false
	}

	var msg fcmMessage
	msg.Message.Token = p.DeviceToken
	msg.Message.Notification = map[string]string{
		"title": title,
		"body":  body,
	}
	msg.Message.Data = data
	msg.Message.Android.Priority = "high"
	msg.Message.APNS.Headers = map[string]string{"apns-priority": "10"}

	payload, err := json.Marshal(msg)
	if err != nil {
		s.logger.Error("Failed to marshal FCM message", zap.Error(err))
		return false
	}

	endpoint := fmt.Sprintf("https://fcm.googleapis.com/v1/projects/%s/messages:send", s.projectID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		s.logger.Error("Failed to build FCM request", zap.Error(err))
		return false
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		s.logger.Warn("FCM send failed",
			zap.String("uid", uid), zap.Error(err))
		return false
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		s.logger.Warn("FCM send rejected",
			zap.String("uid", uid),
			zap.Int("status", resp.StatusCode),
			zap.ByteString("response", detail))
		return false
	}

	s.logger.Debug("Push notification delivered", zap.String("uid", uid))
	return true
}
