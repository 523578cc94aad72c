package handlers

import (
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/placelist/backend/internal/apperror"
	"github.com/placelist/backend/internal/middleware"
	"github.com/placelist/backend/internal/models"
	"github.com/placelist/backend/internal/services"
	"github.com/placelist/backend/pkg/logger"
	"github.com/placelist/backend/pkg/utils"
	"gorm.io/gorm"
)

type ListsHandler struct {
	DB     *gorm.DB
	Access *services.AccessService
}

func NewListsHandler(db *gorm.DB, access *services.AccessService) *ListsHandler {
	return &ListsHandler{DB: db, Access: access}
}

type listDetail struct {
	models.List
	Collaborators []string `json:"collaborators"`
}

func (h *ListsHandler) collaboratorEmails(list *models.List) ([]string, error) {
	emails := []string{}
	err := h.DB.
		Table("list_collaborators").
		Joins("JOIN users ON users.id = list_collaborators.user_id").
		Where("list_collaborators.list_id = ?", list.ID).
		Order("users.email").
		Pluck("users.email", &emails).Error
	return emails, err
}

type createListRequest struct {
	Name        string  `json:"name"`
	Description *string `json:"description"`
	Privacy     *string `json:"privacy"`
}

func (h *ListsHandler) Create(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	var req createListRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid request body")
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		return utils.Error(c, fiber.StatusBadRequest, "name is required")
	}

	privacy := models.ListPrivacyPrivate
	if req.Privacy != nil {
		if !isValidPrivacy(*req.Privacy) {
			return utils.Error(c, fiber.StatusBadRequest, "invalid privacy value")
		}
		privacy = models.ListPrivacy(strings.ToLower(strings.TrimSpace(*req.Privacy)))
	}

	list := models.List{
		Name:        name,
		Description: req.Description,
		Privacy:     privacy,
		OwnerID:     currentUser.ID,
	}
	if err := h.DB.Create(&list).Error; err != nil {
		logger.Error("list_create_failed", err, map[string]interface{}{
			"owner_id": currentUser.ID.String(),
		})
		return utils.Error(c, fiber.StatusInternalServerError, "failed creating list")
	}

	logger.InfoWithUser(currentUser.ID.String(), "list_created", map[string]interface{}{
		"list_id": list.ID.String(),
		"privacy": string(privacy),
	})

	return utils.Success(c, fiber.StatusCreated, listDetail{List: list, Collaborators: []string{}})
}

func (h *ListsHandler) Mine(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	p := utils.ParsePagination(c)
	query := h.DB.Model(&models.List{}).
		Where("owner_id = ?", currentUser.ID).
		Order("created_at DESC")

	var lists []models.List
	total, err := utils.FindPage(query, p, &lists)
	if err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed listing lists")
	}
	if lists == nil {
		lists = []models.List{}
	}

	return utils.Paginated(c, lists, p.Page, p.Limit, total)
}

// Shared lists everything the caller collaborates on but does not own.
func (h *ListsHandler) Shared(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	p := utils.ParsePagination(c)

	collaborating := h.DB.
		Table("list_collaborators").
		Select("list_id").
		Where("user_id = ?", currentUser.ID)

	query := h.DB.Model(&models.List{}).
		Where("id IN (?)", collaborating).
		Where("owner_id != ?", currentUser.ID).
		Order("created_at DESC")

	var lists []models.List
	total, err := utils.FindPage(query, p, &lists)
	if err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed listing shared lists")
	}
	if lists == nil {
		lists = []models.List{}
	}

	return utils.Paginated(c, lists, p.Page, p.Limit, total)
}

func (h *ListsHandler) Public(c *fiber.Ctx) error {
	p := utils.ParsePagination(c)
	query := h.DB.Model(&models.List{}).
		Where("privacy = ?", models.ListPrivacyPublic).
		Order("created_at DESC")

	var lists []models.List
	total, err := utils.FindPage(query, p, &lists)
	if err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed listing public lists")
	}
	if lists == nil {
		lists = []models.List{}
	}

	return utils.Paginated(c, lists, p.Page, p.Limit, total)
}

func (h *ListsHandler) Recent(c *fiber.Ctx) error {
	p := utils.ParsePagination(c)
	since := time.Now().AddDate(0, 0, -30)

	query := h.DB.Model(&models.List{}).
		Where("privacy = ?", models.ListPrivacyPublic).
		Where("created_at > ?", since).
		Order("created_at DESC")

	var lists []models.List
	total, err := utils.FindPage(query, p, &lists)
	if err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed listing recent lists")
	}
	if lists == nil {
		lists = []models.List{}
	}

	return utils.Paginated(c, lists, p.Page, p.Limit, total)
}

// Search matches a case-insensitive substring against names and descriptions
// of lists visible to the caller: public lists, plus their own when signed in.
func (h *ListsHandler) Search(c *fiber.Ctx) error {
	p := utils.ParsePagination(c)
	search := strings.TrimSpace(c.Query("q"))

	query := h.DB.Model(&models.List{})
	if currentUser := middleware.GetCurrentUser(c); currentUser != nil {
		query = query.Where("privacy = ? OR owner_id = ?", models.ListPrivacyPublic, currentUser.ID)
	} else {
		query = query.Where("privacy = ?", models.ListPrivacyPublic)
	}

	if search != "" {
		searchValue := "%" + strings.ToLower(search) + "%"
		query = query.Where("LOWER(name) LIKE ? OR LOWER(description) LIKE ?", searchValue, searchValue)
	}

	var lists []models.List
	total, err := utils.FindPage(query.Order("created_at DESC"), p, &lists)
	if err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed searching lists")
	}
	if lists == nil {
		lists = []models.List{}
	}

	return utils.Paginated(c, lists, p.Page, p.Limit, total)
}

func (h *ListsHandler) Get(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	listID, err := parseUUID(c.Params("id"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid list id")
	}

	list, err := h.Access.RequireAccess(c.Context(), listID, currentUser.ID)
	if err != nil {
		// Public lists stay readable for non-collaborators.
		if errors.Is(err, apperror.ErrAccessDenied) {
			viewerID := currentUser.ID
			visible, verr := h.Access.VisibleTo(c.Context(), listID, &viewerID)
			if verr == nil && visible {
				var public models.List
				if ferr := h.DB.First(&public, "id = ?", listID).Error; ferr == nil {
					list = &public
				}
			}
		}
		if list == nil {
			return utils.Fail(c, err)
		}
	}

	emails, err := h.collaboratorEmails(list)
	if err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed loading collaborators")
	}

	return utils.Success(c, fiber.StatusOK, listDetail{List: *list, Collaborators: emails})
}

type updateListRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	Privacy     *string `json:"privacy"`
}

func (h *ListsHandler) Update(c *fiber.Ctx) error {
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

	var req updateListRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid request body")
	}

	updates := map[string]interface{}{}
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return utils.Error(c, fiber.StatusBadRequest, "name cannot be empty")
		}
		updates["name"] = name
	}
	if req.Description != nil {
		trimmed := strings.TrimSpace(*req.Description)
		if trimmed == "" {
			updates["description"] = nil
		} else {
			updates["description"] = trimmed
		}
	}
	if req.Privacy != nil {
		if !isValidPrivacy(*req.Privacy) {
			return utils.Error(c, fiber.StatusBadRequest, "invalid privacy value")
		}
		updates["privacy"] = models.ListPrivacy(strings.ToLower(strings.TrimSpace(*req.Privacy)))
	}

	// An empty update is a no-op, not an error.
	if len(updates) == 0 {
		return utils.Success(c, fiber.StatusOK, *list)
	}

	result := h.DB.Model(&models.List{}).Where("id = ?", listID).Updates(updates)
	if result.Error != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed updating list")
	}
	if result.RowsAffected == 0 {
		// The row vanished between the ownership check and the write.
		logger.Error("list_update_inconsistency", gorm.ErrRecordNotFound, map[string]interface{}{
			"list_id": listID.String(),
			"user_id": currentUser.ID.String(),
		})
		return utils.Error(c, fiber.StatusInternalServerError, "internal server error")
	}

	var updated models.List
	if err := h.DB.First(&updated, "id = ?", listID).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed fetching updated list")
	}

	logger.InfoWithUser(currentUser.ID.String(), "list_updated", map[string]interface{}{
		"list_id": listID.String(),
		"fields":  len(updates),
	})

	return utils.Success(c, fiber.StatusOK, updated)
}

func (h *ListsHandler) Delete(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	listID, err := parseUUID(c.Params("id"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid list id")
	}

	if _, err := h.Access.RequireOwnership(c.Context(), listID, currentUser.ID); err != nil {
		return utils.Fail(c, err)
	}

	err = h.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&models.Place{}, "list_id = ?", listID).Error; err != nil {
			return err
		}
		if err := tx.Delete(&models.ListCollaborator{}, "list_id = ?", listID).Error; err != nil {
			return err
		}
		return tx.Delete(&models.List{}, "id = ?", listID).Error
	})
	if err != nil {
		logger.Error("list_delete_failed", err, map[string]interface{}{
			"list_id": listID.String(),
			"user_id": currentUser.ID.String(),
		})
		return utils.Error(c, fiber.StatusInternalServerError, "failed deleting list")
	}

	logger.InfoWithUser(currentUser.ID.String(), "list_deleted", map[string]interface{}{
		"list_id": listID.String(),
	})

	return utils.Success(c, fiber.StatusOK, fiber.Map{"message": "list deleted"})
}
