package entity

import "time"

type NotificationKind string

const (
	NotificationAdminAlert           NotificationKind = "admin_alert"
	NotificationOrderConfirmation    NotificationKind = "order_confirmation"
	NotificationShippingConfirmation NotificationKind = "shipping_confirmation"
	NotificationStatusUpdate         NotificationKind = "status_update"
)

// Notification is handed to the dispatcher. Rendering and delivery happen
// downstream.
type Notification struct {
	Kind    NotificationKind       `json:"kind"`
	Order   *Order                 `json:"order"`
	Payload map[string]interface{} `json:"payload,omitempty"`
	SentAt  time.Time              `json:"sent_at"`
}
