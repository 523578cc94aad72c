package models

import "github.com/google/uuid"

type NotificationType string

const (
	NotificationTypeFollow       NotificationType = "follow"
	NotificationTypeCollaborator NotificationType = "collaborator_added"
)

type Notification struct {
	BaseModel
	RecipientID uuid.UUID        `json:"recipientID" gorm:"type:uuid;not null;index"`
	Type        NotificationType `json:"type" gorm:"type:varchar(30);not null"`
	Title       string           `json:"title" gorm:"type:varchar(255);not null"`
	Message     string           `json:"message" gorm:"type:text;not null;default:''"`
	IsRead      bool             `json:"isRead" gorm:"not null;default:false;index"`

	Recipient User `json:"-" gorm:"foreignKey:RecipientID;references:ID"`
}

func (Notification) TableName() string {
	return "notifications"
}
