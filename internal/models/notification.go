package models

type NotificationType string

const (
	NotificationTypeEvent        NotificationType = "event"
	NotificationTypeMessage      NotificationType = "message"
	NotificationTypeNotification NotificationType = "notification"
)

// Notification is the payload handed to the notification publisher after a
// command has been committed.
type Notification struct {
	SenderID         string           `json:"sender_id"`
	RecipientIDs     []string         `json:"recipient_ids"`
	Title            string           `json:"title"`
	Content          string           `json:"content"`
	Type             NotificationType `json:"type"`
	RedirectEndpoint string           `json:"redirect_endpoint"`
	Status           string           `json:"status"`
	IsPublished      bool             `json:"is_published"`
}
