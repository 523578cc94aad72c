package services

import (
	"context"
	"errors"
	"strings"

	"github.com/placelist/backend/internal/apperror"
	"github.com/placelist/backend/internal/models"
	"github.com/placelist/backend/pkg/logger"
	"gorm.io/gorm"
)

// IdentityAssertion is the verified identity handed over by the external
// provider. ExternalUID and Email are mandatory; the provider is trusted to
// supply both, so a missing field indicates an upstream verification bug.
type IdentityAssertion struct {
	ExternalUID string
	Email       string
	DisplayName string
	AvatarURL   string
}

type IdentityService struct {
	DB *gorm.DB
}

func NewIdentityService(db *gorm.DB) *IdentityService {
	return &IdentityService{DB: db}
}

// NormalizeEmail is the canonical mailbox form used everywhere an email is
// stored or looked up. Providers and invite payloads disagree on casing; the
// users table only ever sees this form.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ResolveOrCreateUser maps an identity assertion to the local user row,
// creating one on first sight. Resolution order: by provider UID, then by
// email (relinking a drifted or never-set UID), then creation. A
// unique-constraint race with a concurrent request is retried once by
// re-running the lookup.
func (s *IdentityService) ResolveOrCreateUser(ctx context.Context, assertion IdentityAssertion) (*models.User, bool, error) {
	assertion.ExternalUID = strings.TrimSpace(assertion.ExternalUID)
	assertion.Email = NormalizeEmail(assertion.Email)
	if assertion.ExternalUID == "" || assertion.Email == "" {
		return nil, false, apperror.New(apperror.ErrInvalidIdentityAssertion, "identity assertion is missing external uid or email")
	}

	user, needsUsername, err := s.resolveOnce(ctx, assertion)
	if errors.Is(err, apperror.ErrIdentityReconcileConflict) {
		logger.Warn("identity_reconciliation_conflict", map[string]interface{}{
			"email": assertion.Email,
		})
		user, needsUsername, err = s.resolveOnce(ctx, assertion)
		if errors.Is(err, apperror.ErrIdentityReconcileConflict) {
			return nil, false, apperror.Storage("identity resolution", err)
		}
	}
	if err != nil {
		return nil, false, err
	}

	return user, needsUsername, nil
}

func (s *IdentityService) resolveOnce(ctx context.Context, assertion IdentityAssertion) (*models.User, bool, error) {
	var resolved models.User
	needsUsername := false

	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var user models.User
		err := tx.First(&user, "external_uid = ?", assertion.ExternalUID).Error
		if err == nil {
			resolved = user
			needsUsername = user.NeedsUsername()
			return nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return apperror.Storage("user lookup by external uid", err)
		}

		err = tx.First(&user, "email = ?", assertion.Email).Error
		if err == nil {
			if user.ExternalUID == nil || *user.ExternalUID != assertion.ExternalUID {
				// Provider UID rotated, or a placeholder account created by a
				// collaborator invite sees its first login.
				result := tx.Model(&models.User{}).
					Where("id = ?", user.ID).
					Update("external_uid", assertion.ExternalUID)
				if result.Error != nil {
					if isUniqueViolation(result.Error) {
						return apperror.New(apperror.ErrIdentityReconcileConflict, "external uid already linked")
					}
					return apperror.Storage("external uid relink", result.Error)
				}
				uid := assertion.ExternalUID
				user.ExternalUID = &uid
			}
			resolved = user
			needsUsername = user.NeedsUsername()
			return nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return apperror.Storage("user lookup by email", err)
		}

		uid := assertion.ExternalUID
		user = models.User{
			Email:       assertion.Email,
			ExternalUID: &uid,
			DisplayName: assertion.DisplayName,
		}
		if assertion.AvatarURL != "" {
			avatar := assertion.AvatarURL
			user.AvatarURL = &avatar
		}
		if err := tx.Create(&user).Error; err != nil {
			if isUniqueViolation(err) {
				return apperror.New(apperror.ErrIdentityReconcileConflict, "concurrent user creation")
			}
			return apperror.Storage("user creation", err)
		}

		resolved = user
		needsUsername = true
		return nil
	})
	if err != nil {
		return nil, false, err
	}

	return &resolved, needsUsername, nil
}

func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "duplicate key") || strings.Contains(msg, "UNIQUE constraint")
}
