package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/placelist/backend/internal/middleware"
	"github.com/placelist/backend/internal/models"
	"github.com/placelist/backend/internal/services"
	"github.com/placelist/backend/pkg/logger"
	"github.com/placelist/backend/pkg/utils"
	"gorm.io/gorm"
)

type PlacesHandler struct {
	DB     *gorm.DB
	Access *services.AccessService
}

func NewPlacesHandler(db *gorm.DB, access *services.AccessService) *PlacesHandler {
	return &PlacesHandler{DB: db, Access: access}
}

type addPlaceRequest struct {
	ExternalPlaceID string   `json:"externalPlaceID" validate:"required"`
	Name            string   `json:"name" validate:"required"`
	Address         string   `json:"address"`
	Latitude        float64  `json:"latitude" validate:"gte=-90,lte=90"`
	Longitude       float64  `json:"longitude" validate:"gte=-180,lte=180"`
	Rating          *int     `json:"rating" validate:"omitempty,gte=1,lte=5"`
	Notes           *string  `json:"notes"`
	VisitStatus     *string  `json:"visitStatus" validate:"omitempty,oneof=want_to_go visited favorite"`
}

func (h *PlacesHandler) Add(c *fiber.Ctx) error {
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

	var req addPlaceRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid request body")
	}
	req.ExternalPlaceID = strings.TrimSpace(req.ExternalPlaceID)
	req.Name = strings.TrimSpace(req.Name)
	if err := validateStruct(req); err != nil {
		return utils.Fail(c, err)
	}

	var existing int64
	if err := h.DB.Model(&models.Place{}).
		Where("list_id = ? AND external_place_id = ?", listID, req.ExternalPlaceID).
		Count(&existing).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed checking place")
	}
	if existing > 0 {
		return utils.Error(c, fiber.StatusConflict, "place already exists in this list")
	}

	place := models.Place{
		ListID:          listID,
		ExternalPlaceID: req.ExternalPlaceID,
		Name:            req.Name,
		Address:         strings.TrimSpace(req.Address),
		Latitude:        req.Latitude,
		Longitude:       req.Longitude,
		Rating:          req.Rating,
		Notes:           req.Notes,
	}
	if req.VisitStatus != nil {
		place.VisitStatus = models.VisitStatus(*req.VisitStatus)
	} else {
		place.VisitStatus = models.VisitStatusWantToGo
	}

	if err := h.DB.Create(&place).Error; err != nil {
		if isDuplicateError(err) {
			return utils.Error(c, fiber.StatusConflict, "place already exists in this list")
		}
		logger.Error("place_create_failed", err, map[string]interface{}{
			"list_id": listID.String(),
			"user_id": currentUser.ID.String(),
		})
		return utils.Error(c, fiber.StatusInternalServerError, "failed adding place")
	}

	logger.InfoWithUser(currentUser.ID.String(), "place_added", map[string]interface{}{
		"list_id":  listID.String(),
		"place_id": place.ID.String(),
	})

	return utils.Success(c, fiber.StatusCreated, place)
}

func (h *PlacesHandler) List(c *fiber.Ctx) error {
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
	query := h.DB.Model(&models.Place{}).
		Where("list_id = ?", listID).
		Order("created_at DESC")

	var places []models.Place
	total, err := utils.FindPage(query, p, &places)
	if err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed listing places")
	}
	if places == nil {
		places = []models.Place{}
	}

	return utils.Paginated(c, places, p.Page, p.Limit, total)
}

type updatePlaceRequest struct {
	Name        *string  `json:"name"`
	Address     *string  `json:"address"`
	Latitude    *float64 `json:"latitude" validate:"omitempty,gte=-90,lte=90"`
	Longitude   *float64 `json:"longitude" validate:"omitempty,gte=-180,lte=180"`
	Rating      *int     `json:"rating" validate:"omitempty,gte=1,lte=5"`
	Notes       *string  `json:"notes"`
	VisitStatus *string  `json:"visitStatus" validate:"omitempty,oneof=want_to_go visited favorite"`
}

// Update merges the supplied fields into the place. The place must belong to
// the list in the path: an id that exists under another list reads the same
// as a nonexistent one.
func (h *PlacesHandler) Update(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	listID, err := parseUUID(c.Params("id"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid list id")
	}
	placeID, err := parseUUID(c.Params("placeId"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid place id")
	}

	if _, err := h.Access.RequireAccess(c.Context(), listID, currentUser.ID); err != nil {
		return utils.Fail(c, err)
	}

	var place models.Place
	if err := h.DB.First(&place, "id = ? AND list_id = ?", placeID, listID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return utils.Error(c, fiber.StatusNotFound, "place not found in this list")
		}
		return utils.Error(c, fiber.StatusInternalServerError, "failed loading place")
	}

	var req updatePlaceRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid request body")
	}
	if err := validateStruct(req); err != nil {
		return utils.Fail(c, err)
	}

	updates := map[string]interface{}{}
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return utils.Error(c, fiber.StatusBadRequest, "name cannot be empty")
		}
		updates["name"] = name
	}
	if req.Address != nil {
		updates["address"] = strings.TrimSpace(*req.Address)
	}
	if req.Latitude != nil {
		updates["latitude"] = *req.Latitude
	}
	if req.Longitude != nil {
		updates["longitude"] = *req.Longitude
	}
	if req.Rating != nil {
		updates["rating"] = *req.Rating
	}
	if req.Notes != nil {
		trimmed := strings.TrimSpace(*req.Notes)
		if trimmed == "" {
			updates["notes"] = nil
		} else {
			updates["notes"] = trimmed
		}
	}
	if req.VisitStatus != nil {
		updates["visit_status"] = *req.VisitStatus
	}

	if len(updates) == 0 {
		return utils.Success(c, fiber.StatusOK, place)
	}

	result := h.DB.Model(&models.Place{}).
		Where("id = ? AND list_id = ?", placeID, listID).
		Updates(updates)
	if result.Error != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed updating place")
	}
	if result.RowsAffected == 0 {
		logger.Error("place_update_inconsistency", gorm.ErrRecordNotFound, map[string]interface{}{
			"list_id":  listID.String(),
			"place_id": placeID.String(),
			"user_id":  currentUser.ID.String(),
		})
		return utils.Error(c, fiber.StatusInternalServerError, "internal server error")
	}

	var updated models.Place
	if err := h.DB.First(&updated, "id = ?", placeID).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed fetching updated place")
	}

	return utils.Success(c, fiber.StatusOK, updated)
}

func (h *PlacesHandler) Delete(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	listID, err := parseUUID(c.Params("id"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid list id")
	}
	placeID, err := parseUUID(c.Params("placeId"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid place id")
	}

	if _, err := h.Access.RequireAccess(c.Context(), listID, currentUser.ID); err != nil {
		return utils.Fail(c, err)
	}

	result := h.DB.Delete(&models.Place{}, "id = ? AND list_id = ?", placeID, listID)
	if result.Error != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed deleting place")
	}
	if result.RowsAffected == 0 {
		return utils.Error(c, fiber.StatusNotFound, "place not found in this list")
	}

	logger.InfoWithUser(currentUser.ID.String(), "place_deleted", map[string]interface{}{
		"list_id":  listID.String(),
		"place_id": placeID.String(),
	})

	return utils.Success(c, fiber.StatusOK, fiber.Map{"message": "place deleted"})
}
