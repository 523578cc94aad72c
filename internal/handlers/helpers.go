package handlers

import (
	"strings"

	"github.com/google/uuid"
	"github.com/placelist/backend/internal/models"
)

func parseUUID(value string) (uuid.UUID, error) {
	return uuid.Parse(strings.TrimSpace(value))
}

func isValidPrivacy(value string) bool {
	switch models.ListPrivacy(strings.ToLower(strings.TrimSpace(value))) {
	case models.ListPrivacyPrivate, models.ListPrivacyPublic:
		return true
	default:
		return false
	}
}
