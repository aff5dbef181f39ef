package handlers

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"gritfulAPI/internal/logger"
	"gritfulAPI/internal/user"
	"gritfulAPI/services"
)

const (
	maxWebhookBody      = int64(1 << 20)
	webhookTolerance    = 5 * time.Minute
	webhookSecretPrefix = "whsec_"
)

var (
	errMissingSignature = errors.New("missing webhook signature headers")
	errStaleTimestamp   = errors.New("webhook timestamp outside tolerance")
	errBadSignature     = errors.New("no matching webhook signature")
)

type WebhookHandler struct {
	userService *services.UserService
	secret      string
	log         *logger.Logger
	now         func() time.Time
}

// NewWebhookHandler verifies Clerk (svix) signatures with secret. An empty
// secret skips verification.
func NewWebhookHandler(userService *services.UserService, secret string, log *logger.Logger) *WebhookHandler {
	return &WebhookHandler{
		userService: userService,
		secret:      secret,
		log:         log,
		now:         time.Now,
	}
}

func (h *WebhookHandler) HandleClerkWebhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBody))
	if err != nil {
		http.Error(w, "Error reading body", http.StatusBadRequest)
		return
	}

	if h.secret == "" {
		h.log.Warn("CLERK_WEBHOOK_SECRET not set, skipping signature verification")
	} else if err := verifySvixSignature(h.secret, r.Header, body, h.now()); err != nil {
		h.log.Warn("Invalid webhook signature", "error", err)
		http.Error(w, "Invalid signature", http.StatusUnauthorized)
		return
	}

	var event user.ClerkWebhookEvent
	if err := json.Unmarshal(body, &event); err != nil {
		http.Error(w, "Error parsing webhook", http.StatusBadRequest)
		return
	}

	h.log.Info("Received webhook event", "type", event.Type)

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	switch event.Type {
	case "user.created":
		err = h.handleUserCreated(ctx, event.Data)
	case "user.updated":
		err = h.handleUserUpdated(ctx, event.Data)
	case "user.deleted":
		err = h.handleUserDeleted(ctx, event.Data)
	default:
		h.log.Debug("Unhandled webhook event type", "type", event.Type)
	}
	if err != nil {
		h.log.Error("Error processing webhook", "type", event.Type, "error", err)
		http.Error(w, "Error processing webhook", http.StatusInternalServerError)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (h *WebhookHandler) handleUserCreated(ctx context.Context, data json.RawMessage) error {
	var userData user.ClerkUserData
	if err := json.Unmarshal(data, &userData); err != nil {
		return fmt.Errorf("failed to unmarshal user data: %w", err)
	}

	email, verified := userData.PrimaryEmail()
	u, err := h.userService.CreateUser(ctx, &user.CreateUserRequest{
		ClerkID:   userData.ID,
		Email:     email,
		Username:  userData.DisplayUsername(),
		FirstName: userData.FirstName,
		LastName:  userData.LastName,
		ImageURL:  userData.Image(),
	})
	if err != nil {
		return fmt.Errorf("failed to create user in database: %w", err)
	}

	if verified {
		if err := h.userService.UpdateEmailVerification(ctx, userData.ID, true); err != nil {
			return fmt.Errorf("failed to mark email verified: %w", err)
		}
	}

	h.log.Info("Created user from webhook", "user_id", u.ID, "clerk_id", u.ClerkID)
	return nil
}

func (h *WebhookHandler) handleUserUpdated(ctx context.Context, data json.RawMessage) error {
	var userData user.ClerkUserData
	if err := json.Unmarshal(data, &userData); err != nil {
		return fmt.Errorf("failed to unmarshal user data: %w", err)
	}

	_, err := h.userService.UpdateProfileByClerkID(ctx, userData.ID, &user.UpdateProfileRequest{
		Username:  userData.DisplayUsername(),
		FirstName: userData.FirstName,
		LastName:  userData.LastName,
		ImageURL:  userData.Image(),
	})
	if err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}

	_, verified := userData.PrimaryEmail()
	return h.userService.UpdateEmailVerification(ctx, userData.ID, verified)
}

func (h *WebhookHandler) handleUserDeleted(ctx context.Context, data json.RawMessage) error {
	var userData struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(data, &userData); err != nil {
		return fmt.Errorf("failed to unmarshal user data: %w", err)
	}

	err := h.userService.DeleteUserByClerkID(ctx, userData.ID)
	if err != nil && !errors.Is(err, services.ErrUserNotFound) {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	return nil
}

// verifySvixSignature checks the "v1,<base64>" signatures svix sends over
// "<id>.<timestamp>.<body>".
func verifySvixSignature(secret string, header http.Header, body []byte, now time.Time) error {
	msgID := header.Get("svix-id")
	timestamp := header.Get("svix-timestamp")
	signatures := header.Get("svix-signature")
	if msgID == "" || timestamp == "" || signatures == "" {
		return errMissingSignature
	}

	ts, err := strconv.ParseInt(timestamp, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid svix-timestamp: %w", err)
	}
	sent := time.Unix(ts, 0)
	if now.Sub(sent) > webhookTolerance || sent.Sub(now) > webhookTolerance {
		return errStaleTimestamp
	}

	key, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(secret, webhookSecretPrefix))
	if err != nil {
		return fmt.Errorf("invalid webhook secret: %w", err)
	}

	expected := signSvix(key, msgID, timestamp, body)
	for _, sig := range strings.Fields(signatures) {
		version, value, ok := strings.Cut(sig, ",")
		if !ok || version != "v1" {
			continue
		}
		if hmac.Equal([]byte(value), []byte(expected)) {
			return nil
		}
	}
	return errBadSignature
}

func signSvix(key []byte, msgID, timestamp string, body []byte) string {
	mac := hmac.New(sha256.New, key)
	mac.Write([]byte(msgID + "." + timestamp + "."))
	mac.Write(body)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}
