package models

import "github.com/google/uuid"

type ListPrivacy string

const (
	ListPrivacyPrivate ListPrivacy = "private"
	ListPrivacyPublic  ListPrivacy = "public"
)

type List struct {
	BaseModel
	Name        string      `json:"name" gorm:"type:varchar(255);not null"`
	Description *string     `json:"description,omitempty" gorm:"type:text"`
	Privacy     ListPrivacy `json:"privacy" gorm:"type:varchar(20);not null;default:'private';index"`
	OwnerID     uuid.UUID   `json:"ownerID" gorm:"type:uuid;not null;index"`

	Owner         User               `json:"owner,omitempty" gorm:"foreignKey:OwnerID;references:ID"`
	Places        []Place            `json:"-" gorm:"foreignKey:ListID;constraint:OnDelete:CASCADE"`
	Collaborators []ListCollaborator `json:"-" gorm:"foreignKey:ListID;constraint:OnDelete:CASCADE"`
}

func (List) TableName() string {
	return "lists"
}

func (l *List) IsPublic() bool {
	return l.Privacy == ListPrivacyPublic
}

type ListCollaborator struct {
	BaseModel
	ListID uuid.UUID `json:"listID" gorm:"type:uuid;not null;index;uniqueIndex:idx_list_collaborator"`
	UserID uuid.UUID `json:"userID" gorm:"type:uuid;not null;index;uniqueIndex:idx_list_collaborator"`
	List   List      `json:"list,omitempty" gorm:"foreignKey:ListID;references:ID"`
	User   User      `json:"user,omitempty" gorm:"foreignKey:UserID;references:ID"`
}

func (ListCollaborator) TableName() string {
	return "list_collaborators"
}
