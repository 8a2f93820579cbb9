package ports

import (
	"context"
	"time"
)

// NotificationKind names the artifact carried by a Notification.
type NotificationKind string

const (
	KindWorkSession NotificationKind = "work_session"
	KindInsights    NotificationKind = "insights"
)

// Notification is an opaque computed artifact handed to a sink.
type Notification struct {
	Kind    NotificationKind `json:"kind"`
	At      time.Time        `json:"at"`
	Payload any              `json:"payload"`
}

// Notifier receives computed artifacts. Delivery is fire-and-forget.
type Notifier interface {
	Notify(ctx context.Context, n Notification)
}
