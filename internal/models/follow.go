package models

import "github.com/google/uuid"

// Follow is a directed edge: follower -> followed. At most one edge per
// ordered pair; a user never follows themselves (enforced in code and by a
// database check constraint).
type Follow struct {
	BaseModel
	FollowerID uuid.UUID `json:"followerID" gorm:"type:uuid;not null;index;uniqueIndex:idx_follower_followed"`
	FollowedID uuid.UUID `json:"followedID" gorm:"type:uuid;not null;index;uniqueIndex:idx_follower_followed"`
	Follower   User      `json:"follower,omitempty" gorm:"foreignKey:FollowerID;references:ID"`
	Followed   User      `json:"followed,omitempty" gorm:"foreignKey:FollowedID;references:ID"`
}

func (Follow) TableName() string {
	return "follows"
}
