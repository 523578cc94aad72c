package handlers

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/placelist/backend/internal/middleware"
	"github.com/placelist/backend/internal/models"
	"github.com/placelist/backend/internal/storage"
	"github.com/placelist/backend/pkg/logger"
	"github.com/placelist/backend/pkg/utils"
	"gorm.io/gorm"
)

type AuthHandler struct {
	DB      *gorm.DB
	Avatars *storage.AvatarStore
}

func NewAuthHandler(db *gorm.DB, avatars *storage.AvatarStore) *AuthHandler {
	return &AuthHandler{DB: db, Avatars: avatars}
}

// Session reports the resolved identity for the presented credential. The
// resolver in the auth middleware has already created the user on first sight.
func (h *AuthHandler) Session(c *fiber.Ctx) error {
	user := middleware.GetCurrentUser(c)
	if user == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	return utils.Success(c, fiber.StatusOK, fiber.Map{
		"user":          user,
		"needsUsername": middleware.NeedsUsername(c),
	})
}

func (h *AuthHandler) Me(c *fiber.Ctx) error {
	user := middleware.GetCurrentUser(c)
	if user == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	return utils.Success(c, fiber.StatusOK, user)
}

type updateMeRequest struct {
	Username    *string `json:"username"`
	DisplayName *string `json:"displayName"`
	AvatarURL   *string `json:"avatarURL"`
}

func (h *AuthHandler) UpdateMe(c *fiber.Ctx) error {
	user := middleware.GetCurrentUser(c)
	if user == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	var req updateMeRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid request body")
	}

	updates := map[string]interface{}{}
	if req.Username != nil {
		username := strings.ToLower(strings.TrimSpace(*req.Username))
		if len(username) < 3 || len(username) > 50 {
			return utils.Error(c, fiber.StatusBadRequest, "username must be between 3 and 50 characters")
		}

		// A username is claimed once and kept; resubmitting the current one
		// is a no-op.
		if user.Username != nil {
			if *user.Username != username {
				return utils.Error(c, fiber.StatusConflict, "username cannot be changed")
			}
		} else {
			var count int64
			if err := h.DB.Model(&models.User{}).
				Where("LOWER(username) = ? AND id != ?", username, user.ID).
				Count(&count).Error; err != nil {
				return utils.Error(c, fiber.StatusInternalServerError, "failed checking username")
			}
			if count > 0 {
				return utils.Error(c, fiber.StatusConflict, "username already taken")
			}
			updates["username"] = username
		}
	}
	if req.DisplayName != nil {
		value := strings.TrimSpace(*req.DisplayName)
		if value == "" {
			return utils.Error(c, fiber.StatusBadRequest, "displayName cannot be empty")
		}
		updates["display_name"] = value
	}
	if req.AvatarURL != nil {
		trimmed := strings.TrimSpace(*req.AvatarURL)
		if trimmed == "" {
			updates["avatar_url"] = nil
		} else {
			updates["avatar_url"] = trimmed
		}
	}

	if len(updates) == 0 {
		return utils.Success(c, fiber.StatusOK, user)
	}

	result := h.DB.Model(&models.User{}).Where("id = ?", user.ID).Updates(updates)
	if result.Error != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed updating profile")
	}

	var updated models.User
	if err := h.DB.First(&updated, "id = ?", user.ID).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed fetching updated profile")
	}

	logger.InfoWithUser(user.ID.String(), "profile_updated", map[string]interface{}{
		"fields": len(updates),
	})

	return utils.Success(c, fiber.StatusOK, updated)
}

func (h *AuthHandler) UploadAvatar(c *fiber.Ctx) error {
	user := middleware.GetCurrentUser(c)
	if user == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	if h.Avatars == nil {
		return utils.Error(c, fiber.StatusServiceUnavailable, "avatar storage not configured")
	}

	fileHeader, err := c.FormFile("avatar")
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "avatar file is required")
	}

	contentType := fileHeader.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "image/") {
		return utils.Error(c, fiber.StatusBadRequest, "avatar must be an image")
	}

	file, err := fileHeader.Open()
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "failed reading avatar file")
	}
	defer file.Close()

	objectName := fmt.Sprintf("%s/%s%s", user.ID, uuid.New(), filepath.Ext(fileHeader.Filename))
	url, err := h.Avatars.Upload(c.Context(), objectName, file, fileHeader.Size, contentType)
	if err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed storing avatar")
	}

	if err := h.DB.Model(&models.User{}).Where("id = ?", user.ID).Update("avatar_url", url).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed saving avatar url")
	}

	return utils.Success(c, fiber.StatusOK, fiber.Map{"avatarURL": url})
}
