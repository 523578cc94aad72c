package services

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/placelist/backend/internal/apperror"
	"github.com/placelist/backend/internal/models"
	"gorm.io/gorm"
)

type AccessService struct {
	DB *gorm.DB
}

func NewAccessService(db *gorm.DB) *AccessService {
	return &AccessService{DB: db}
}

// RequireOwnership fails with ErrNotFound when no such list exists and with
// ErrAccessDenied when the list exists but userID is not its owner. The
// existence lookup only runs once the owner-scoped fetch comes back empty, so
// the common granted path costs a single query.
func (a *AccessService) RequireOwnership(ctx context.Context, listID, userID uuid.UUID) (*models.List, error) {
	var list models.List
	err := a.DB.WithContext(ctx).
		First(&list, "id = ? AND owner_id = ?", listID, userID).Error
	if err == nil {
		return &list, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperror.Storage("list ownership check", err)
	}

	return nil, a.classifyDenial(ctx, listID)
}

// RequireAccess succeeds for the owner or any collaborator of the list.
func (a *AccessService) RequireAccess(ctx context.Context, listID, userID uuid.UUID) (*models.List, error) {
	collaborating := a.DB.
		Table("list_collaborators").
		Select("list_id").
		Where("user_id = ?", userID)

	var list models.List
	err := a.DB.WithContext(ctx).
		Where("id = ?", listID).
		Where("owner_id = ? OR id IN (?)", userID, collaborating).
		First(&list).Error
	if err == nil {
		return &list, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperror.Storage("list access check", err)
	}

	return nil, a.classifyDenial(ctx, listID)
}

// VisibleTo reports whether the list may appear on read paths that never hard
// fail (discovery, search): public lists for everyone, private lists for the
// owner only. A nil viewer is anonymous.
func (a *AccessService) VisibleTo(ctx context.Context, listID uuid.UUID, viewerID *uuid.UUID) (bool, error) {
	query := a.DB.WithContext(ctx).Model(&models.List{}).Where("id = ?", listID)
	if viewerID == nil {
		query = query.Where("privacy = ?", models.ListPrivacyPublic)
	} else {
		query = query.Where("privacy = ? OR owner_id = ?", models.ListPrivacyPublic, *viewerID)
	}

	var count int64
	if err := query.Count(&count).Error; err != nil {
		return false, apperror.Storage("list visibility check", err)
	}

	return count > 0, nil
}

// classifyDenial distinguishes "no such list" from "exists but not yours" so
// handlers never collapse 404 and 403 into one answer.
func (a *AccessService) classifyDenial(ctx context.Context, listID uuid.UUID) error {
	var count int64
	err := a.DB.WithContext(ctx).
		Model(&models.List{}).
		Where("id = ?", listID).
		Count(&count).Error
	if err != nil {
		return apperror.Storage("list existence check", err)
	}
	if count == 0 {
		return apperror.NotFound("list")
	}

	return apperror.AccessDenied("insufficient permissions")
}
