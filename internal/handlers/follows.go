package handlers

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/placelist/backend/internal/middleware"
	"github.com/placelist/backend/internal/models"
	"github.com/placelist/backend/internal/services"
	"github.com/placelist/backend/pkg/logger"
	"github.com/placelist/backend/pkg/utils"
	"gorm.io/gorm"
)

type FollowsHandler struct {
	DB     *gorm.DB
	Notify *services.NotificationService
}

func NewFollowsHandler(db *gorm.DB, notify *services.NotificationService) *FollowsHandler {
	return &FollowsHandler{DB: db, Notify: notify}
}

// Follow is idempotent: following an already-followed user succeeds and
// reports the existing relationship instead of erroring.
func (h *FollowsHandler) Follow(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	targetID, err := parseUUID(c.Params("id"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid user id")
	}

	if targetID == currentUser.ID {
		return utils.Error(c, fiber.StatusBadRequest, "cannot follow yourself")
	}

	var target models.User
	if err := h.DB.First(&target, "id = ?", targetID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return utils.Error(c, fiber.StatusNotFound, "user not found")
		}
		return utils.Error(c, fiber.StatusInternalServerError, "failed loading user")
	}

	var existing int64
	if err := h.DB.Model(&models.Follow{}).
		Where("follower_id = ? AND followed_id = ?", currentUser.ID, targetID).
		Count(&existing).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed checking follow state")
	}
	if existing > 0 {
		return utils.Success(c, fiber.StatusOK, fiber.Map{
			"following":        true,
			"alreadyFollowing": true,
		})
	}

	edge := models.Follow{FollowerID: currentUser.ID, FollowedID: targetID}
	if err := h.DB.Create(&edge).Error; err != nil {
		if isDuplicateError(err) {
			// Lost a race against an identical request; the end state matches.
			return utils.Success(c, fiber.StatusOK, fiber.Map{
				"following":        true,
				"alreadyFollowing": true,
			})
		}
		return utils.Error(c, fiber.StatusInternalServerError, "failed creating follow")
	}

	if err := h.Notify.Notify(c.Context(), targetID, models.NotificationTypeFollow,
		"New follower",
		fmt.Sprintf("%s started following you", currentUser.DisplayName)); err != nil {
		logger.Error("follow_notify_failed", err, map[string]interface{}{
			"follower_id": currentUser.ID.String(),
			"followed_id": targetID.String(),
		})
	}

	logger.InfoWithUser(currentUser.ID.String(), "user_followed", map[string]interface{}{
		"followed_id": targetID.String(),
	})

	return utils.Success(c, fiber.StatusOK, fiber.Map{
		"following":        true,
		"alreadyFollowing": false,
	})
}

// Unfollow of a user who was never followed succeeds with wasFollowing=false;
// a nonexistent target is still a 404.
func (h *FollowsHandler) Unfollow(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	targetID, err := parseUUID(c.Params("id"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid user id")
	}

	var target models.User
	if err := h.DB.First(&target, "id = ?", targetID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return utils.Error(c, fiber.StatusNotFound, "user not found")
		}
		return utils.Error(c, fiber.StatusInternalServerError, "failed loading user")
	}

	result := h.DB.Delete(&models.Follow{}, "follower_id = ? AND followed_id = ?", currentUser.ID, targetID)
	if result.Error != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed removing follow")
	}

	return utils.Success(c, fiber.StatusOK, fiber.Map{
		"following":    false,
		"wasFollowing": result.RowsAffected > 0,
	})
}

func (h *FollowsHandler) Followers(c *fiber.Ctx) error {
	userID, err := parseUUID(c.Params("id"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid user id")
	}

	p := utils.ParsePagination(c)
	query := h.DB.Model(&models.User{}).
		Joins("JOIN follows ON follows.follower_id = users.id").
		Where("follows.followed_id = ?", userID).
		Order("follows.created_at DESC")

	var followers []models.User
	total, err := utils.FindPage(query, p, &followers)
	if err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed listing followers")
	}
	if followers == nil {
		followers = []models.User{}
	}

	return utils.Paginated(c, followers, p.Page, p.Limit, total)
}

func (h *FollowsHandler) Following(c *fiber.Ctx) error {
	userID, err := parseUUID(c.Params("id"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid user id")
	}

	p := utils.ParsePagination(c)
	query := h.DB.Model(&models.User{}).
		Joins("JOIN follows ON follows.followed_id = users.id").
		Where("follows.follower_id = ?", userID).
		Order("follows.created_at DESC")

	var following []models.User
	total, err := utils.FindPage(query, p, &following)
	if err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed listing following")
	}
	if following == nil {
		following = []models.User{}
	}

	return utils.Paginated(c, following, p.Page, p.Limit, total)
}
