package notification

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"os"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"google.golang.org/api/option"

	"gritfulAPI/internal/logger"
)

var ErrNoFCMCredentials = errors.New("no firebase credentials configured")

// PushProvider delivers a notification to a user's devices.
type PushProvider interface {
	SendPush(ctx context.Context, tokens []DeviceToken, title, body string, data map[string]any) error
}

type FCMService struct {
	client *messaging.Client
	log    *logger.Logger
}

// NewFCMService prefers base64 encoded service account JSON and falls back
// to a credentials file on disk.
func NewFCMService(ctx context.Context, encodedCreds, credentialsFile string, log *logger.Logger) (*FCMService, error) {
	var opt option.ClientOption
	switch {
	case encodedCreds != "":
		decoded, err := base64.StdEncoding.DecodeString(encodedCreds)
		if err != nil {
			return nil, fmt.Errorf("decode FCM_SERVICE_ACCOUNT_JSON: %w", err)
		}
		opt = option.WithCredentialsJSON(decoded)
		log.Info("FCM: initializing from FCM_SERVICE_ACCOUNT_JSON")
	case credentialsFile != "":
		if _, err := os.Stat(credentialsFile); err != nil {
			return nil, fmt.Errorf("firebase credentials file %s: %w", credentialsFile, err)
		}
		opt = option.WithCredentialsFile(credentialsFile)
		log.Info("FCM: initializing from file", "path", credentialsFile)
	default:
		return nil, ErrNoFCMCredentials
	}

	app, err := firebase.NewApp(ctx, nil, opt)
	if err != nil {
		return nil, fmt.Errorf("error initializing firebase app: %w", err)
	}
	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("error getting messaging client: %w", err)
	}
	return &FCMService{client: client, log: log.With("provider", "fcm")}, nil
}

func (s *FCMService) SendPush(ctx context.Context, tokens []DeviceToken, title, body string, data map[string]any) error {
	if len(tokens) == 0 {
		return nil
	}
	stringData := StringData(data)

	sent, failed := 0, 0
	for _, t := range tokens {
		msg := &messaging.Message{
			Token:        t.Token,
			Notification: &messaging.Notification{Title: title, Body: body},
			Data:         stringData,
		}
		switch t.Platform {
		case "ios":
			msg.APNS = &messaging.APNSConfig{Payload: &messaging.APNSPayload{Aps: &messaging.Aps{Sound: "default"}}}
		case "web":
			msg.Webpush = &messaging.WebpushConfig{Notification: &messaging.WebpushNotification{Title: title, Body: body}}
		default:
			msg.Android = &messaging.AndroidConfig{
				Priority:     "high",
				Notification: &messaging.AndroidNotification{Sound: "default"},
			}
		}

		if _, err := s.client.Send(ctx, msg); err != nil {
			s.log.Warn("FCM: send failed", "platform", t.Platform, "error", err)
			failed++
			continue
		}
		sent++
	}

	s.log.Debug("FCM: push finished", "sent", sent, "failed", failed)
	if sent == 0 && failed > 0 {
		return fmt.Errorf("all %d push notifications failed", failed)
	}
	return nil
}

// StringData flattens a payload into the string map FCM requires.
func StringData(data map[string]any) map[string]string {
	out := make(map[string]string, len(data))
	for k, v := range data {
		out[k] = fmt.Sprintf("%v", v)
	}
	return out
}

// LogPushProvider records pushes in the log when FCM is not configured.
type LogPushProvider struct {
	Log *logger.Logger
}

func (p *LogPushProvider) SendPush(ctx context.Context, tokens []DeviceToken, title, body string, data map[string]any) error {
	p.Log.Info("Push: would send", "devices", len(tokens), "title", title, "body", body)
	return nil
}
