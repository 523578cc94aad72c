package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/placelist/backend/internal/models"
	"github.com/placelist/backend/internal/services"
	"github.com/placelist/backend/pkg/identoken"
	"github.com/placelist/backend/pkg/logger"
	"github.com/placelist/backend/pkg/utils"
)

const (
	currentUserKey   = "currentUser"
	needsUsernameKey = "needsUsername"
)

type AuthMiddleware struct {
	Identity *services.IdentityService
}

func NewAuthMiddleware(identity *services.IdentityService) *AuthMiddleware {
	return &AuthMiddleware{Identity: identity}
}

func CORS() fiber.Handler {
	return cors.New(cors.Config{
		AllowOrigins: "http://localhost:3000,http://127.0.0.1:3000",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET,POST,PUT,PATCH,DELETE,OPTIONS",
	})
}

// RequireAuth verifies the bearer token and resolves it to the local
// user. Resolution runs on every request so a drifted provider UID heals on
// any authenticated call, not just on the session endpoint.
func (a *AuthMiddleware) RequireAuth(c *fiber.Ctx) error {
	tokenString, ok := bearerToken(c)
	if !ok {
		logger.Warn("auth_missing_bearer", map[string]interface{}{
			"ip":   c.IP(),
			"path": c.Path(),
		})
		return utils.Error(c, fiber.StatusUnauthorized, "missing or malformed authorization header")
	}

	claims, err := identoken.Verify(tokenString)
	if err != nil {
		logger.Warn("auth_token_rejected", map[string]interface{}{
			"ip":    c.IP(),
			"path":  c.Path(),
			"error": err.Error(),
		})
		return utils.Error(c, fiber.StatusUnauthorized, "invalid or expired token")
	}

	user, needsUsername, err := a.Identity.ResolveOrCreateUser(c.Context(), services.IdentityAssertion{
		ExternalUID: claims.Subject,
		Email:       claims.Email,
		DisplayName: claims.Name,
		AvatarURL:   claims.Picture,
	})
	if err != nil {
		return utils.Fail(c, err)
	}

	c.Locals(currentUserKey, user)
	c.Locals(needsUsernameKey, needsUsername)
	return c.Next()
}

// OptionalAuth resolves an identity when a valid credential is present and
// proceeds anonymously otherwise. Used by discovery and search reads.
func (a *AuthMiddleware) OptionalAuth(c *fiber.Ctx) error {
	tokenString, ok := bearerToken(c)
	if !ok {
		return c.Next()
	}

	claims, err := identoken.Verify(tokenString)
	if err != nil {
		return c.Next()
	}

	user, needsUsername, err := a.Identity.ResolveOrCreateUser(c.Context(), services.IdentityAssertion{
		ExternalUID: claims.Subject,
		Email:       claims.Email,
		DisplayName: claims.Name,
		AvatarURL:   claims.Picture,
	})
	if err != nil {
		return c.Next()
	}

	c.Locals(currentUserKey, user)
	c.Locals(needsUsernameKey, needsUsername)
	return c.Next()
}

func bearerToken(c *fiber.Ctx) (string, bool) {
	authHeader := c.Get("Authorization")
	if authHeader == "" {
		return "", false
	}
	tokenString := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer"))
	if tokenString == authHeader || tokenString == "" {
		return "", false
	}
	return tokenString, true
}

func GetCurrentUser(c *fiber.Ctx) *models.User {
	value := c.Locals(currentUserKey)
	if value == nil {
		return nil
	}
	user, ok := value.(*models.User)
	if !ok {
		return nil
	}
	return user
}

func NeedsUsername(c *fiber.Ctx) bool {
	value, ok := c.Locals(needsUsernameKey).(bool)
	return ok && value
}
