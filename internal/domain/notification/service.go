package notification

import (
	"context"
)

// Service defines the notification service interface
type Service interface {
	// Queue notification (async processing via background workers)
	QueueNotification(ctx context.Context, req CreateNotificationRequest) error
	QueueBulkNotification(ctx context.Context, reqs []CreateNotificationRequest) error

	// Send stores the notification before returning, for callers that need
	// to know it was delivered.
	Send(ctx context.Context, req CreateNotificationRequest) error

	GetNotifications(ctx context.Context, userID string, page, pageSize int, unreadOnly bool) (*NotificationListResponse, error)
	GetUnreadCount(ctx context.Context, userID string) (int, error)
	MarkAsRead(ctx context.Context, userID string, req MarkAsReadRequest) error
	MarkAllAsRead(ctx context.Context, userID string) error

	// SSE subscription
	Subscribe(ctx context.Context, userID string) (<-chan SSEEvent, func())

	// Lifecycle
	Stop()
}
