package models

import "github.com/google/uuid"

type VisitStatus string

const (
	VisitStatusWantToGo VisitStatus = "want_to_go"
	VisitStatusVisited  VisitStatus = "visited"
	VisitStatusFavorite VisitStatus = "favorite"
)

type Place struct {
	BaseModel
	ListID          uuid.UUID   `json:"listID" gorm:"type:uuid;not null;index;uniqueIndex:idx_list_external_place"`
	ExternalPlaceID string      `json:"externalPlaceID" gorm:"type:varchar(255);not null;uniqueIndex:idx_list_external_place"`
	Name            string      `json:"name" gorm:"type:varchar(255);not null"`
	Address         string      `json:"address" gorm:"type:text;not null;default:''"`
	Latitude        float64     `json:"latitude" gorm:"not null;default:0"`
	Longitude       float64     `json:"longitude" gorm:"not null;default:0"`
	Rating          *int        `json:"rating,omitempty"`
	Notes           *string     `json:"notes,omitempty" gorm:"type:text"`
	VisitStatus     VisitStatus `json:"visitStatus" gorm:"type:varchar(20);not null;default:'want_to_go'"`

	List List `json:"-" gorm:"foreignKey:ListID;references:ID"`
}

func (Place) TableName() string {
	return "places"
}
