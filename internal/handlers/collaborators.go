package handlers

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/placelist/backend/internal/middleware"
	"github.com/placelist/backend/internal/models"
	"github.com/placelist/backend/internal/services"
	"github.com/placelist/backend/pkg/logger"
	"github.com/placelist/backend/pkg/utils"
	"gorm.io/gorm"
)

type CollaboratorsHandler struct {
	DB     *gorm.DB
	Access *services.AccessService
	Notify *services.NotificationService
}

func NewCollaboratorsHandler(db *gorm.DB, access *services.AccessService, notify *services.NotificationService) *CollaboratorsHandler {
	return &CollaboratorsHandler{DB: db, Access: access, Notify: notify}
}

type addCollaboratorRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// Add invites a collaborator by email. An email with no account yet gets a
// placeholder user row; it is linked to a provider identity on that person's
// first login.
func (h *CollaboratorsHandler) Add(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	listID, err := parseUUID(c.Params("id"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid list id")
	}

	list, err := h.Access.RequireOwnership(c.Context(), listID, currentUser.ID)
	if err != nil {
		return utils.Fail(c, err)
	}

	var req addCollaboratorRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid request body")
	}
	req.Email = services.NormalizeEmail(req.Email)
	if err := validateStruct(req); err != nil {
		return utils.Fail(c, err)
	}

	var collaborator models.User
	err = h.DB.First(&collaborator, "email = ?", req.Email).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		collaborator = models.User{Email: req.Email}
		if err := h.DB.Create(&collaborator).Error; err != nil {
			return utils.Error(c, fiber.StatusInternalServerError, "failed creating placeholder user")
		}
		logger.InfoWithUser(currentUser.ID.String(), "placeholder_user_created", map[string]interface{}{
			"list_id": listID.String(),
		})
	} else if err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed looking up collaborator")
	}

	// The owner is never stored as a collaborator row.
	if collaborator.ID == currentUser.ID {
		return utils.Error(c, fiber.StatusBadRequest, "owner cannot be added as a collaborator")
	}

	var existing int64
	if err := h.DB.Model(&models.ListCollaborator{}).
		Where("list_id = ? AND user_id = ?", listID, collaborator.ID).
		Count(&existing).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed checking collaborator")
	}
	if existing > 0 {
		return utils.Error(c, fiber.StatusConflict, "collaborator already exists")
	}

	edge := models.ListCollaborator{ListID: listID, UserID: collaborator.ID}
	if err := h.DB.Create(&edge).Error; err != nil {
		if isDuplicateError(err) {
			return utils.Error(c, fiber.StatusConflict, "collaborator already exists")
		}
		return utils.Error(c, fiber.StatusInternalServerError, "failed adding collaborator")
	}

	if err := h.Notify.Notify(c.Context(), collaborator.ID, models.NotificationTypeCollaborator,
		"Added to a list",
		fmt.Sprintf("%s added you to %q", currentUser.DisplayName, list.Name)); err != nil {
		logger.Error("collaborator_notify_failed", err, map[string]interface{}{
			"list_id":      listID.String(),
			"recipient_id": collaborator.ID.String(),
		})
	}

	logger.InfoWithUser(currentUser.ID.String(), "collaborator_added", map[string]interface{}{
		"list_id":         listID.String(),
		"collaborator_id": collaborator.ID.String(),
	})

	return utils.Success(c, fiber.StatusCreated, fiber.Map{
		"listID": listID,
		"user":   collaborator,
	})
}

func (h *CollaboratorsHandler) List(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	listID, err := parseUUID(c.Params("id"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid list id")
	}

	if _, err := h.Access.RequireAccess(c.Context(), listID, currentUser.ID); err != nil {
		return utils.Fail(c, err)
	}

	p := utils.ParsePagination(c)
	query := h.DB.Model(&models.ListCollaborator{}).
		Where("list_id = ?", listID).
		Preload("User").
		Order("created_at ASC")

	var collaborators []models.ListCollaborator
	total, err := utils.FindPage(query, p, &collaborators)
	if err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed listing collaborators")
	}
	if collaborators == nil {
		collaborators = []models.ListCollaborator{}
	}

	return utils.Paginated(c, collaborators, p.Page, p.Limit, total)
}

func (h *CollaboratorsHandler) Remove(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	listID, err := parseUUID(c.Params("id"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid list id")
	}
	userID, err := parseUUID(c.Params("userId"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid user id")
	}

	if _, err := h.Access.RequireOwnership(c.Context(), listID, currentUser.ID); err != nil {
		return utils.Fail(c, err)
	}

	result := h.DB.Delete(&models.ListCollaborator{}, "list_id = ? AND user_id = ?", listID, userID)
	if result.Error != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed removing collaborator")
	}
	if result.RowsAffected == 0 {
		return utils.Error(c, fiber.StatusNotFound, "collaborator not found")
	}

	logger.InfoWithUser(currentUser.ID.String(), "collaborator_removed", map[string]interface{}{
		"list_id":         listID.String(),
		"collaborator_id": userID.String(),
	})

	return utils.Success(c, fiber.StatusOK, fiber.Map{"message": "collaborator removed"})
}

func isDuplicateError(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "duplicate key") || strings.Contains(msg, "UNIQUE constraint")
}
