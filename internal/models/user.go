package models

type User struct {
	BaseModel
	Email       string  `json:"email" gorm:"type:varchar(255);uniqueIndex;not null"`
	ExternalUID *string `json:"-" gorm:"type:varchar(255);uniqueIndex"`
	Username    *string `json:"username,omitempty" gorm:"type:varchar(50);uniqueIndex"`
	DisplayName string  `json:"displayName" gorm:"type:varchar(100);not null;default:''"`
	AvatarURL   *string `json:"avatarURL,omitempty" gorm:"type:text"`

	Lists         []List             `json:"-" gorm:"foreignKey:OwnerID"`
	Collaborating []ListCollaborator `json:"-" gorm:"foreignKey:UserID"`
}

// NeedsUsername reports whether the user still has to pick a username,
// a distinct onboarding step after first sign-in.
func (u *User) NeedsUsername() bool {
	return u.Username == nil
}
