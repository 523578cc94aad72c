package services

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/placelist/backend/internal/apperror"
	"github.com/placelist/backend/internal/events"
	"github.com/placelist/backend/internal/models"
	"github.com/placelist/backend/pkg/logger"
	"gorm.io/gorm"
)

type NotificationService struct {
	DB       *gorm.DB
	Producer events.Publisher
}

func NewNotificationService(db *gorm.DB, producer events.Publisher) *NotificationService {
	return &NotificationService{DB: db, Producer: producer}
}

// Notify inserts a notification row and publishes a matching event. Row
// insertion is at-least-once from the caller's perspective; event delivery is
// best effort and never fails the triggering operation.
func (n *NotificationService) Notify(ctx context.Context, recipientID uuid.UUID, kind models.NotificationType, title, message string) error {
	notification := models.Notification{
		RecipientID: recipientID,
		Type:        kind,
		Title:       title,
		Message:     message,
	}

	if err := n.DB.WithContext(ctx).Create(&notification).Error; err != nil {
		return apperror.Storage("notification insert", err)
	}

	if n.Producer != nil {
		payload, err := json.Marshal(map[string]string{
			"notification_id": notification.ID.String(),
			"recipient_id":    recipientID.String(),
			"type":            string(kind),
			"title":           title,
		})
		if err == nil {
			go func() {
				if err := n.Producer.Publish([]byte(recipientID.String()), payload); err != nil {
					logger.Warn("notification_event_dropped", map[string]interface{}{
						"notification_id": notification.ID.String(),
					})
				}
			}()
		}
	}

	return nil
}
