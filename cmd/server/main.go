package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/placelist/backend/internal/config"
	"github.com/placelist/backend/internal/database"
	"github.com/placelist/backend/internal/events"
	"github.com/placelist/backend/internal/handlers"
	"github.com/placelist/backend/internal/middleware"
	"github.com/placelist/backend/internal/services"
	"github.com/placelist/backend/internal/storage"
	"github.com/placelist/backend/pkg/identoken"
	"github.com/placelist/backend/pkg/logger"
)

func main() {
	logger.Init()

	cfg := config.Load()
	identoken.Configure(cfg.Auth.JWTSecret)

	db, err := database.Connect(cfg.DB)
	if err != nil {
		log.Fatalf("database connection failed: %v", err)
	}

	avatarStore, err := storage.NewAvatarStore(cfg.MinIO)
	if err != nil {
		log.Fatalf("minio initialization failed: %v", err)
	}
	if err := avatarStore.EnsureBucket(context.Background()); err != nil {
		log.Fatalf("failed ensuring avatar bucket: %v", err)
	}

	var producer *events.Producer
	if cfg.Kafka.Broker != "" {
		producer = events.NewProducer(cfg.Kafka.Broker, cfg.Kafka.Topic)
		defer producer.Close()
	}

	identityService := services.NewIdentityService(db)
	accessService := services.NewAccessService(db)
	oauthService := services.NewOAuthProviderService(cfg)
	notifyService := services.NewNotificationService(db, producer)

	authHandler := handlers.NewAuthHandler(db, avatarStore)
	ssoHandler := handlers.NewSSOHandler(cfg, oauthService, identityService)
	listsHandler := handlers.NewListsHandler(db, accessService)
	placesHandler := handlers.NewPlacesHandler(db, accessService)
	collaboratorsHandler := handlers.NewCollaboratorsHandler(db, accessService, notifyService)
	followsHandler := handlers.NewFollowsHandler(db, notifyService)
	usersHandler := handlers.NewUsersHandler(db)
	notificationsHandler := handlers.NewNotificationsHandler(db)

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

	listenAddr := fmt.Sprintf(":%s", cfg.Server.Port)

	logger.Info("server_starting", map[string]interface{}{
		"port":    cfg.Server.Port,
		"address": listenAddr,
	})

	errCh := make(chan error, 1)
	go func() {
		errCh <- app.Listen(listenAddr)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		log.Printf("shutting down server due to signal: %s", sig)
		shutdownDone := make(chan struct{})
		go func() {
			_ = app.Shutdown()
			close(shutdownDone)
		}()
		select {
		case <-shutdownDone:
		case <-time.After(10 * time.Second):
			log.Print("forced shutdown timeout reached")
		}
	case err := <-errCh:
		if err != nil {
			log.Fatalf("server error: %v", err)
		}
	}
}
