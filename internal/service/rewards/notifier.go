package rewards

import (
	"context"

	"github.com/aimd54/campus-rewards/internal/models"
	"github.com/aimd54/campus-rewards/internal/repository"
)

// Notifier hands a message to the notification dispatcher.
type Notifier interface {
	Notify(ctx context.Context, userID uint, title, message string) error
}

// StoreNotifier queues notifications in the notifications table for external delivery.
type StoreNotifier struct {
	users *repository.UserRepository
}

// NewStoreNotifier creates a notifier backed by the notifications table.
func NewStoreNotifier(users *repository.UserRepository) *StoreNotifier {
	return &StoreNotifier{users: users}
}

// Notify stores one notification.
func (n *StoreNotifier) Notify(ctx context.Context, userID uint, title, message string) error {
	return n.users.Notify(ctx, &models.Notification{UserID: userID, Title: title, Message: message})
}
