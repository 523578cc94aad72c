package services

import (
	"context"
	"errors"
	"testing"

	"github.com/placelist/backend/internal/apperror"
	"github.com/placelist/backend/internal/models"
)

func TestResolveOrCreateUser(t *testing.T) {
	ctx := context.Background()

	t.Run("creates user on first sight", func(t *testing.T) {
		db := setupTestDB(t)
		svc := NewIdentityService(db)

		user, needsUsername, err := svc.ResolveOrCreateUser(ctx, IdentityAssertion{
			ExternalUID: "uid-1",
			Email:       "new@example.com",
			DisplayName: "New User",
			AvatarURL:   "https://cdn.example.com/p.png",
		})
		if err != nil {
			t.Fatalf("resolve failed: %v", err)
		}
		if !needsUsername {
			t.Fatal("expected needsUsername=true for a newly created user")
		}
		if user.Email != "new@example.com" {
			t.Fatalf("unexpected email %q", user.Email)
		}
		if user.ExternalUID == nil || *user.ExternalUID != "uid-1" {
			t.Fatalf("expected external uid to be stored, got %v", user.ExternalUID)
		}
		if user.AvatarURL == nil || *user.AvatarURL != "https://cdn.example.com/p.png" {
			t.Fatalf("expected avatar url to be stored, got %v", user.AvatarURL)
		}
	})

	t.Run("is idempotent for the same assertion", func(t *testing.T) {
		db := setupTestDB(t)
		svc := NewIdentityService(db)

		assertion := IdentityAssertion{ExternalUID: "uid-2", Email: "repeat@example.com"}
		first, _, err := svc.ResolveOrCreateUser(ctx, assertion)
		if err != nil {
			t.Fatalf("first resolve failed: %v", err)
		}
		second, _, err := svc.ResolveOrCreateUser(ctx, assertion)
		if err != nil {
			t.Fatalf("second resolve failed: %v", err)
		}
		if first.ID != second.ID {
			t.Fatalf("expected same user id, got %s and %s", first.ID, second.ID)
		}

		var count int64
		db.Model(&models.User{}).Count(&count)
		if count != 1 {
			t.Fatalf("expected exactly one user row, got %d", count)
		}
	})

	t.Run("needsUsername false once username is set", func(t *testing.T) {
		db := setupTestDB(t)
		svc := NewIdentityService(db)

		assertion := IdentityAssertion{ExternalUID: "uid-3", Email: "named@example.com"}
		user, _, err := svc.ResolveOrCreateUser(ctx, assertion)
		if err != nil {
			t.Fatalf("resolve failed: %v", err)
		}

		if err := db.Model(&models.User{}).Where("id = ?", user.ID).Update("username", "picked").Error; err != nil {
			t.Fatalf("failed setting username: %v", err)
		}

		_, needsUsername, err := svc.ResolveOrCreateUser(ctx, assertion)
		if err != nil {
			t.Fatalf("resolve failed: %v", err)
		}
		if needsUsername {
			t.Fatal("expected needsUsername=false once username is set")
		}
	})

	t.Run("relinks drifted external uid by email", func(t *testing.T) {
		db := setupTestDB(t)
		svc := NewIdentityService(db)

		oldUID := "uid-old"
		existing := createUser(t, db, "drift@example.com", &oldUID, nil)

		user, _, err := svc.ResolveOrCreateUser(ctx, IdentityAssertion{
			ExternalUID: "uid-new",
			Email:       "drift@example.com",
		})
		if err != nil {
			t.Fatalf("resolve failed: %v", err)
		}
		if user.ID != existing.ID {
			t.Fatalf("expected existing user %s, got %s", existing.ID, user.ID)
		}

		var stored models.User
		if err := db.First(&stored, "id = ?", existing.ID).Error; err != nil {
			t.Fatalf("failed reloading user: %v", err)
		}
		if stored.ExternalUID == nil || *stored.ExternalUID != "uid-new" {
			t.Fatalf("expected stored uid to be rotated to uid-new, got %v", stored.ExternalUID)
		}
	})

	t.Run("links placeholder user created by invite", func(t *testing.T) {
		db := setupTestDB(t)
		svc := NewIdentityService(db)

		placeholder := createUser(t, db, "invited@example.com", nil, nil)

		user, needsUsername, err := svc.ResolveOrCreateUser(ctx, IdentityAssertion{
			ExternalUID: "uid-invited",
			Email:       "invited@example.com",
		})
		if err != nil {
			t.Fatalf("resolve failed: %v", err)
		}
		if user.ID != placeholder.ID {
			t.Fatalf("expected placeholder user %s, got %s", placeholder.ID, user.ID)
		}
		if !needsUsername {
			t.Fatal("expected needsUsername=true for a placeholder without username")
		}
		if user.ExternalUID == nil || *user.ExternalUID != "uid-invited" {
			t.Fatalf("expected placeholder to be linked, got %v", user.ExternalUID)
		}
	})

	t.Run("links placeholder despite mixed-case provider email", func(t *testing.T) {
		db := setupTestDB(t)
		svc := NewIdentityService(db)

		placeholder := createUser(t, db, "friend@example.com", nil, nil)

		user, _, err := svc.ResolveOrCreateUser(ctx, IdentityAssertion{
			ExternalUID: "uid-friend",
			Email:       "  Friend@Example.Com ",
		})
		if err != nil {
			t.Fatalf("resolve failed: %v", err)
		}
		if user.ID != placeholder.ID {
			t.Fatalf("expected placeholder user %s, got %s", placeholder.ID, user.ID)
		}

		var rows int64
		db.Model(&models.User{}).Where("LOWER(email) = ?", "friend@example.com").Count(&rows)
		if rows != 1 {
			t.Fatalf("expected a single user row for the mailbox, got %d", rows)
		}
	})

	t.Run("stores a normalized email on first sight", func(t *testing.T) {
		db := setupTestDB(t)
		svc := NewIdentityService(db)

		user, _, err := svc.ResolveOrCreateUser(ctx, IdentityAssertion{
			ExternalUID: "uid-shouty",
			Email:       "SHOUTY@Example.Com",
		})
		if err != nil {
			t.Fatalf("resolve failed: %v", err)
		}
		if user.Email != "shouty@example.com" {
			t.Fatalf("expected lowercased email, got %q", user.Email)
		}
	})

	t.Run("rejects assertion with missing fields", func(t *testing.T) {
		db := setupTestDB(t)
		svc := NewIdentityService(db)

		for _, assertion := range []IdentityAssertion{
			{ExternalUID: "", Email: "x@example.com"},
			{ExternalUID: "uid-x", Email: ""},
			{ExternalUID: " ", Email: " "},
		} {
			_, _, err := svc.ResolveOrCreateUser(ctx, assertion)
			if !errors.Is(err, apperror.ErrInvalidIdentityAssertion) {
				t.Fatalf("expected ErrInvalidIdentityAssertion for %+v, got %v", assertion, err)
			}
		}
	})

	t.Run("recovers from a lost creation race", func(t *testing.T) {
		db := setupTestDB(t)
		svc := NewIdentityService(db)

		// Simulate the competing request having committed first: the row
		// exists when our creation attempt hits the unique index, and the
		// retry lookup must find it.
		uid := "uid-race"
		winner := createUser(t, db, "race@example.com", &uid, nil)

		user, _, err := svc.ResolveOrCreateUser(ctx, IdentityAssertion{
			ExternalUID: "uid-race",
			Email:       "race@example.com",
		})
		if err != nil {
			t.Fatalf("resolve failed: %v", err)
		}
		if user.ID != winner.ID {
			t.Fatalf("expected winner row %s, got %s", winner.ID, user.ID)
		}
	})
}
