package notification

import "github.com/google/uuid"

type CreateNotificationRequest struct {
	UserID uuid.UUID        `json:"user_id" validate:"required"`
	Type   NotificationType `json:"type" validate:"required"`
	Title  string           `json:"title" validate:"required,max=200"`
	Body   string           `json:"body" validate:"max=2000"`
	Data   map[string]any   `json:"data"`
	// Email additionally queues the notification as an email.
	Email bool `json:"-"`
}

type RegisterDeviceRequest struct {
	Token    string `json:"token" validate:"required"`
	Platform string `json:"platform" validate:"required,oneof=ios android web"`
}

type NotificationListResponse struct {
	Notifications []*Notification `json:"notifications"`
	UnreadCount   int             `json:"unread_count"`
	TotalCount    int             `json:"total_count"`
	Page          int             `json:"page"`
	PageSize      int             `json:"page_size"`
}
