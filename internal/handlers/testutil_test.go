package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/placelist/backend/internal/config"
	"github.com/placelist/backend/internal/database"
	"github.com/placelist/backend/internal/middleware"
	"github.com/placelist/backend/internal/models"
	"github.com/placelist/backend/internal/services"
	"github.com/placelist/backend/pkg/identoken"
	"github.com/placelist/backend/pkg/logger"
	"gorm.io/gorm"
)

type testEnv struct {
	app *fiber.App
	db  *gorm.DB
}

var testSetupOnce sync.Once

func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()

	testSetupOnce.Do(func() {
		logger.Init()
		identoken.Configure("test-secret")
	})

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed opening in-memory sqlite database: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed getting sql.DB from gorm: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	t.Cleanup(func() {
		_ = sqlDB.Close()
	})

	if err := database.Migrate(db); err != nil {
		t.Fatalf("failed migrating models: %v", err)
	}

	cfg := &config.Config{
		Server: config.ServerConfig{
			FrontendURL: "http://localhost:3000",
		},
	}

	identityService := services.NewIdentityService(db)
	accessService := services.NewAccessService(db)
	oauthService := services.NewOAuthProviderService(cfg)
	notifyService := services.NewNotificationService(db, nil)

	authHandler := NewAuthHandler(db, nil)
	ssoHandler := NewSSOHandler(cfg, oauthService, identityService)
	listsHandler := NewListsHandler(db, accessService)
	placesHandler := NewPlacesHandler(db, accessService)
	collaboratorsHandler := NewCollaboratorsHandler(db, accessService, notifyService)
	followsHandler := NewFollowsHandler(db, notifyService)
	usersHandler := NewUsersHandler(db)
	notificationsHandler := NewNotificationsHandler(db)

	authMiddleware := middleware.NewAuthMiddleware(identityService)

	app := fiber.New(fiber.Config{BodyLimit: 10 * 1024 * 1024})
	app.Use(recover.New(recover.Config{EnableStackTrace: true}))
	app.Use(middleware.CORS())
	app.Use(middleware.RequestLogger())

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"status": "ok"})
	})

	api := app.Group("/api")

	ssoRoutes := api.Group("/auth/sso")
	ssoRoutes.Get("/providers", ssoHandler.ListProviders)
	ssoRoutes.Get("/oauth/:provider", ssoHandler.GetLoginRedirect)
	ssoRoutes.Get("/oauth/:provider/callback", ssoHandler.HandleOAuthCallback)

	authRoutes := api.Group("/auth", authMiddleware.RequireAuth)
	authRoutes.Post("/session", authHandler.Session)
	authRoutes.Get("/me", authHandler.Me)
	authRoutes.Put("/me", authHandler.UpdateMe)
	authRoutes.Post("/me/avatar", authHandler.UploadAvatar)

	discoveryRoutes := api.Group("/lists", authMiddleware.OptionalAuth)
	discoveryRoutes.Get("/public", listsHandler.Public)
	discoveryRoutes.Get("/recent", listsHandler.Recent)
	discoveryRoutes.Get("/search", listsHandler.Search)

	listRoutes := api.Group("/lists", authMiddleware.RequireAuth)
	listRoutes.Post("/", listsHandler.Create)
	listRoutes.Get("/", listsHandler.Mine)
	listRoutes.Get("/shared", listsHandler.Shared)
	listRoutes.Get("/:id", listsHandler.Get)
	listRoutes.Put("/:id", listsHandler.Update)
	listRoutes.Delete("/:id", listsHandler.Delete)
	listRoutes.Post("/:id/collaborators", collaboratorsHandler.Add)
	listRoutes.Get("/:id/collaborators", collaboratorsHandler.List)
	listRoutes.Delete("/:id/collaborators/:userId", collaboratorsHandler.Remove)
	listRoutes.Post("/:id/places", placesHandler.Add)
	listRoutes.Get("/:id/places", placesHandler.List)
	listRoutes.Put("/:id/places/:placeId", placesHandler.Update)
	listRoutes.Delete("/:id/places/:placeId", placesHandler.Delete)

	userRoutes := api.Group("/users", authMiddleware.RequireAuth)
	userRoutes.Get("/search", usersHandler.Search)
	userRoutes.Get("/:id", usersHandler.Get)
	userRoutes.Post("/:id/follow", followsHandler.Follow)
	userRoutes.Delete("/:id/follow", followsHandler.Unfollow)
	userRoutes.Get("/:id/followers", followsHandler.Followers)
	userRoutes.Get("/:id/following", followsHandler.Following)

	notificationRoutes := api.Group("/notifications", authMiddleware.RequireAuth)
	notificationRoutes.Get("/", notificationsHandler.List)
	notificationRoutes.Put("/:id/read", notificationsHandler.MarkRead)
	notificationRoutes.Delete("/:id", notificationsHandler.Delete)

	return &testEnv{app: app, db: db}
}

var testUserSeq int

// createTestUser inserts a fully onboarded user (username set, provider UID
// linked) and returns it together with a signed bearer token.
func createTestUser(t *testing.T, db *gorm.DB, email string) (*models.User, string) {
	t.Helper()

	testUserSeq++
	uid := fmt.Sprintf("ext-uid-%s-%d", email, testUserSeq)
	username := fmt.Sprintf("user%d%d", time.Now().UnixNano()%1_000_000, testUserSeq)

	user := &models.User{
		Email:       email,
		ExternalUID: &uid,
		Username:    &username,
		DisplayName: "Test User",
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("failed creating test user: %v", err)
	}

	token, err := identoken.Sign(uid, email, user.DisplayName, "", time.Hour)
	if err != nil {
		t.Fatalf("failed signing identity token: %v", err)
	}

	return user, token
}

func authHeaders(token string) map[string]string {
	return map[string]string{"Authorization": "Bearer " + token}
}

func performRequest(t *testing.T, app *fiber.App, method, path string, body io.Reader, headers map[string]string) *http.Response {
	t.Helper()

	req := httptest.NewRequest(method, path, body)
	for key, value := range headers {
		req.Header.Set(key, value)
	}

	resp, err := app.Test(req, int((10 * time.Second).Milliseconds()))
	if err != nil {
		t.Fatalf("request %s %s failed: %v", method, path, err)
	}

	return resp
}

func performJSONRequest(t *testing.T, app *fiber.App, method, path string, payload any, headers map[string]string) *http.Response {
	t.Helper()

	var body io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("failed to marshal payload: %v", err)
		}
		body = bytes.NewReader(encoded)
	}

	requestHeaders := map[string]string{}
	for key, value := range headers {
		requestHeaders[key] = value
	}
	if payload != nil {
		requestHeaders["Content-Type"] = "application/json"
	}

	return performRequest(t, app, method, path, body, requestHeaders)
}

func decodeJSONMap(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("failed reading response body: %v", err)
	}

	var payload map[string]any
	if err := json.Unmarshal(raw, &payload); err != nil {
		t.Fatalf("failed decoding JSON response: %v body=%q", err, string(raw))
	}

	return payload
}

func assertStatus(t *testing.T, resp *http.Response, expected int) {
	t.Helper()
	if resp.StatusCode != expected {
		t.Fatalf("expected status %d, got %d", expected, resp.StatusCode)
	}
}

func assertEnvelopeError(t *testing.T, body map[string]any, expected string) {
	t.Helper()
	if success, _ := body["success"].(bool); success {
		t.Fatalf("expected success=false, got %+v", body)
	}
	if got, _ := body["error"].(string); got != expected {
		t.Fatalf("expected error %q, got %q", expected, got)
	}
}

func dataMap(t *testing.T, body map[string]any) map[string]any {
	t.Helper()
	data, ok := body["data"].(map[string]any)
	if !ok {
		t.Fatalf("expected data object, got %+v", body["data"])
	}
	return data
}

func dataList(t *testing.T, body map[string]any) []any {
	t.Helper()
	data, ok := body["data"].([]any)
	if !ok {
		t.Fatalf("expected data array, got %+v", body["data"])
	}
	return data
}
