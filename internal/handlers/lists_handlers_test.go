package handlers

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/placelist/backend/internal/models"
)

func TestListsEndpoints(t *testing.T) {
	env := setupTestEnv(t)
	owner, ownerToken := createTestUser(t, env.db, "lists-owner@test.com")
	other, otherToken := createTestUser(t, env.db, "lists-other@test.com")
	_ = other

	t.Run("POST /api/lists creates a private list with empty collaborators", func(t *testing.T) {
		resp := performJSONRequest(t, env.app, http.MethodPost, "/api/lists/", map[string]any{
			"name": "Groceries",
		}, authHeaders(ownerToken))
		body := decodeJSONMap(t, resp)
		assertStatus(t, resp, http.StatusCreated)

		data := dataMap(t, body)
		if data["name"] != "Groceries" {
			t.Fatalf("expected name Groceries, got %v", data["name"])
		}
		if data["privacy"] != "private" {
			t.Fatalf("expected default privacy private, got %v", data["privacy"])
		}
		if data["ownerID"] != owner.ID.String() {
			t.Fatalf("expected owner %s, got %v", owner.ID, data["ownerID"])
		}
		collaborators, ok := data["collaborators"].([]any)
		if !ok || len(collaborators) != 0 {
			t.Fatalf("expected empty collaborators, got %v", data["collaborators"])
		}
	})

	t.Run("POST /api/lists rejects missing name", func(t *testing.T) {
		resp := performJSONRequest(t, env.app, http.MethodPost, "/api/lists/", map[string]any{
			"name": "   ",
		}, authHeaders(ownerToken))
		body := decodeJSONMap(t, resp)
		assertStatus(t, resp, http.StatusBadRequest)
		assertEnvelopeError(t, body, "name is required")
	})

	t.Run("GET /api/lists/:id distinguishes 404 from 403", func(t *testing.T) {
		list := models.List{Name: "Private", Privacy: models.ListPrivacyPrivate, OwnerID: owner.ID}
		if err := env.db.Create(&list).Error; err != nil {
			t.Fatalf("failed creating list: %v", err)
		}

		resp := performJSONRequest(t, env.app, http.MethodGet, "/api/lists/"+uuid.NewString(), nil, authHeaders(otherToken))
		assertStatus(t, resp, http.StatusNotFound)

		resp = performJSONRequest(t, env.app, http.MethodGet, "/api/lists/"+list.ID.String(), nil, authHeaders(otherToken))
		assertStatus(t, resp, http.StatusForbidden)
	})

	t.Run("GET /api/lists/:id public list readable by non-collaborator", func(t *testing.T) {
		list := models.List{Name: "Open", Privacy: models.ListPrivacyPublic, OwnerID: owner.ID}
		if err := env.db.Create(&list).Error; err != nil {
			t.Fatalf("failed creating list: %v", err)
		}

		resp := performJSONRequest(t, env.app, http.MethodGet, "/api/lists/"+list.ID.String(), nil, authHeaders(otherToken))
		body := decodeJSONMap(t, resp)
		assertStatus(t, resp, http.StatusOK)
		if dataMap(t, body)["name"] != "Open" {
			t.Fatalf("unexpected list payload: %+v", body)
		}
	})

	t.Run("PUT /api/lists/:id owner renames, collaborator cannot", func(t *testing.T) {
		list := models.List{Name: "Rename Me", Privacy: models.ListPrivacyPrivate, OwnerID: owner.ID}
		if err := env.db.Create(&list).Error; err != nil {
			t.Fatalf("failed creating list: %v", err)
		}
		edge := models.ListCollaborator{ListID: list.ID, UserID: other.ID}
		if err := env.db.Create(&edge).Error; err != nil {
			t.Fatalf("failed creating collaborator edge: %v", err)
		}

		resp := performJSONRequest(t, env.app, http.MethodPut, "/api/lists/"+list.ID.String(), map[string]any{
			"name": "Weekly Groceries",
		}, authHeaders(otherToken))
		assertStatus(t, resp, http.StatusForbidden)

		resp = performJSONRequest(t, env.app, http.MethodPut, "/api/lists/"+list.ID.String(), map[string]any{
			"name": "Weekly Groceries",
		}, authHeaders(ownerToken))
		body := decodeJSONMap(t, resp)
		assertStatus(t, resp, http.StatusOK)
		if dataMap(t, body)["name"] != "Weekly Groceries" {
			t.Fatalf("expected renamed list, got %+v", body)
		}
	})

	t.Run("PUT /api/lists/:id with no fields returns current state", func(t *testing.T) {
		list := models.List{Name: "Unchanged", Privacy: models.ListPrivacyPrivate, OwnerID: owner.ID}
		if err := env.db.Create(&list).Error; err != nil {
			t.Fatalf("failed creating list: %v", err)
		}

		resp := performJSONRequest(t, env.app, http.MethodPut, "/api/lists/"+list.ID.String(), map[string]any{}, authHeaders(ownerToken))
		body := decodeJSONMap(t, resp)
		assertStatus(t, resp, http.StatusOK)
		if dataMap(t, body)["name"] != "Unchanged" {
			t.Fatalf("expected unchanged list, got %+v", body)
		}
	})

	t.Run("PUT /api/lists/:id rejects invalid privacy", func(t *testing.T) {
		list := models.List{Name: "Privacy", Privacy: models.ListPrivacyPrivate, OwnerID: owner.ID}
		if err := env.db.Create(&list).Error; err != nil {
			t.Fatalf("failed creating list: %v", err)
		}

		resp := performJSONRequest(t, env.app, http.MethodPut, "/api/lists/"+list.ID.String(), map[string]any{
			"privacy": "archived",
		}, authHeaders(ownerToken))
		body := decodeJSONMap(t, resp)
		assertStatus(t, resp, http.StatusBadRequest)
		assertEnvelopeError(t, body, "invalid privacy value")
	})

	t.Run("DELETE /api/lists/:id cascades places and collaborators", func(t *testing.T) {
		list := models.List{Name: "Doomed", Privacy: models.ListPrivacyPrivate, OwnerID: owner.ID}
		if err := env.db.Create(&list).Error; err != nil {
			t.Fatalf("failed creating list: %v", err)
		}
		place := models.Place{ListID: list.ID, ExternalPlaceID: "ext-doomed", Name: "Cafe", VisitStatus: models.VisitStatusWantToGo}
		if err := env.db.Create(&place).Error; err != nil {
			t.Fatalf("failed creating place: %v", err)
		}
		edge := models.ListCollaborator{ListID: list.ID, UserID: other.ID}
		if err := env.db.Create(&edge).Error; err != nil {
			t.Fatalf("failed creating collaborator edge: %v", err)
		}

		resp := performJSONRequest(t, env.app, http.MethodDelete, "/api/lists/"+list.ID.String(), nil, authHeaders(ownerToken))
		assertStatus(t, resp, http.StatusOK)

		var places, edges, lists int64
		env.db.Model(&models.Place{}).Where("list_id = ?", list.ID).Count(&places)
		env.db.Model(&models.ListCollaborator{}).Where("list_id = ?", list.ID).Count(&edges)
		env.db.Model(&models.List{}).Where("id = ?", list.ID).Count(&lists)
		if places != 0 || edges != 0 || lists != 0 {
			t.Fatalf("expected full cascade, got places=%d edges=%d lists=%d", places, edges, lists)
		}
	})

	t.Run("DELETE /api/lists/:id non-owner forbidden", func(t *testing.T) {
		list := models.List{Name: "Keep", Privacy: models.ListPrivacyPrivate, OwnerID: owner.ID}
		if err := env.db.Create(&list).Error; err != nil {
			t.Fatalf("failed creating list: %v", err)
		}

		resp := performJSONRequest(t, env.app, http.MethodDelete, "/api/lists/"+list.ID.String(), nil, authHeaders(otherToken))
		assertStatus(t, resp, http.StatusForbidden)
	})
}

func TestListCollaborationScenario(t *testing.T) {
	env := setupTestEnv(t)
	userA, tokenA := createTestUser(t, env.db, "scenario-a@test.com")
	userB, tokenB := createTestUser(t, env.db, "scenario-b@test.com")
	_ = userA

	resp := performJSONRequest(t, env.app, http.MethodPost, "/api/lists/", map[string]any{
		"name": "Groceries",
	}, authHeaders(tokenA))
	body := decodeJSONMap(t, resp)
	assertStatus(t, resp, http.StatusCreated)
	listID, _ := dataMap(t, body)["id"].(string)

	// B cannot see the private list yet.
	resp = performJSONRequest(t, env.app, http.MethodGet, "/api/lists/"+listID, nil, authHeaders(tokenB))
	assertStatus(t, resp, http.StatusForbidden)

	// A invites B by email.
	resp = performJSONRequest(t, env.app, http.MethodPost, "/api/lists/"+listID+"/collaborators", map[string]any{
		"email": userB.Email,
	}, authHeaders(tokenA))
	assertStatus(t, resp, http.StatusCreated)

	// B now sees the list, with their email in collaborators.
	resp = performJSONRequest(t, env.app, http.MethodGet, "/api/lists/"+listID, nil, authHeaders(tokenB))
	body = decodeJSONMap(t, resp)
	assertStatus(t, resp, http.StatusOK)
	collaborators, _ := dataMap(t, body)["collaborators"].([]any)
	found := false
	for _, email := range collaborators {
		if email == userB.Email {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected %s in collaborators, got %v", userB.Email, collaborators)
	}

	// B still cannot rename it.
	resp = performJSONRequest(t, env.app, http.MethodPut, "/api/lists/"+listID, map[string]any{
		"name": "B's List",
	}, authHeaders(tokenB))
	assertStatus(t, resp, http.StatusForbidden)

	// A renames it.
	resp = performJSONRequest(t, env.app, http.MethodPut, "/api/lists/"+listID, map[string]any{
		"name": "Weekly Groceries",
	}, authHeaders(tokenA))
	body = decodeJSONMap(t, resp)
	assertStatus(t, resp, http.StatusOK)
	if dataMap(t, body)["name"] != "Weekly Groceries" {
		t.Fatalf("expected renamed list, got %+v", body)
	}
}

func TestPublicListsPagination(t *testing.T) {
	env := setupTestEnv(t)
	owner, _ := createTestUser(t, env.db, "pagination-owner@test.com")

	for i := 0; i < 3; i++ {
		list := models.List{
			Name:    fmt.Sprintf("Public %d", i),
			Privacy: models.ListPrivacyPublic,
			OwnerID: owner.ID,
		}
		if err := env.db.Create(&list).Error; err != nil {
			t.Fatalf("failed creating list: %v", err)
		}
	}

	seen := map[string]bool{}

	resp := performJSONRequest(t, env.app, http.MethodGet, "/api/lists/public?page=1&limit=2", nil, nil)
	body := decodeJSONMap(t, resp)
	assertStatus(t, resp, http.StatusOK)

	items := dataList(t, body)
	if len(items) != 2 {
		t.Fatalf("expected 2 items on page 1, got %d", len(items))
	}
	pagination, _ := body["pagination"].(map[string]any)
	if total, _ := pagination["total"].(float64); total != 3 {
		t.Fatalf("expected total=3, got %v", pagination["total"])
	}
	if totalPages, _ := pagination["totalPages"].(float64); totalPages != 2 {
		t.Fatalf("expected totalPages=2, got %v", pagination["totalPages"])
	}
	for _, item := range items {
		entry, _ := item.(map[string]any)
		seen[entry["id"].(string)] = true
	}

	resp = performJSONRequest(t, env.app, http.MethodGet, "/api/lists/public?page=2&limit=2", nil, nil)
	body = decodeJSONMap(t, resp)
	assertStatus(t, resp, http.StatusOK)

	items = dataList(t, body)
	if len(items) != 1 {
		t.Fatalf("expected 1 item on page 2, got %d", len(items))
	}
	for _, item := range items {
		entry, _ := item.(map[string]any)
		id, _ := entry["id"].(string)
		if seen[id] {
			t.Fatalf("list %s appeared on both pages", id)
		}
		seen[id] = true
	}

	if len(seen) != 3 {
		t.Fatalf("expected 3 distinct lists across pages, got %d", len(seen))
	}

	// Past the end: no error, empty page.
	resp = performJSONRequest(t, env.app, http.MethodGet, "/api/lists/public?page=5&limit=2", nil, nil)
	body = decodeJSONMap(t, resp)
	assertStatus(t, resp, http.StatusOK)
	if items := dataList(t, body); len(items) != 0 {
		t.Fatalf("expected empty page past the end, got %d items", len(items))
	}
}

func TestListSearchAndDiscovery(t *testing.T) {
	env := setupTestEnv(t)
	owner, ownerToken := createTestUser(t, env.db, "search-owner@test.com")

	public := models.List{Name: "Tokyo Ramen Spots", Privacy: models.ListPrivacyPublic, OwnerID: owner.ID}
	private := models.List{Name: "Secret Ramen", Privacy: models.ListPrivacyPrivate, OwnerID: owner.ID}
	if err := env.db.Create(&public).Error; err != nil {
		t.Fatalf("failed creating list: %v", err)
	}
	if err := env.db.Create(&private).Error; err != nil {
		t.Fatalf("failed creating list: %v", err)
	}

	t.Run("anonymous search only matches public lists", func(t *testing.T) {
		resp := performJSONRequest(t, env.app, http.MethodGet, "/api/lists/search?q=ramen", nil, nil)
		body := decodeJSONMap(t, resp)
		assertStatus(t, resp, http.StatusOK)
		items := dataList(t, body)
		if len(items) != 1 {
			t.Fatalf("expected 1 match for anonymous search, got %d", len(items))
		}
	})

	t.Run("owner search includes own private lists", func(t *testing.T) {
		resp := performJSONRequest(t, env.app, http.MethodGet, "/api/lists/search?q=RAMEN", nil, authHeaders(ownerToken))
		body := decodeJSONMap(t, resp)
		assertStatus(t, resp, http.StatusOK)
		items := dataList(t, body)
		if len(items) != 2 {
			t.Fatalf("expected 2 matches for owner search, got %d", len(items))
		}
	})

	t.Run("GET /api/lists returns only own lists", func(t *testing.T) {
		resp := performJSONRequest(t, env.app, http.MethodGet, "/api/lists/", nil, authHeaders(ownerToken))
		body := decodeJSONMap(t, resp)
		assertStatus(t, resp, http.StatusOK)
		items := dataList(t, body)
		if len(items) != 2 {
			t.Fatalf("expected 2 own lists, got %d", len(items))
		}
	})
}
