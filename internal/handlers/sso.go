package handlers

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/url"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/placelist/backend/internal/config"
	"github.com/placelist/backend/internal/services"
	"github.com/placelist/backend/pkg/identoken"
	"github.com/placelist/backend/pkg/logger"
	"github.com/placelist/backend/pkg/utils"
)

const sessionTokenTTL = 24 * time.Hour

type SSOHandler struct {
	Cfg      *config.Config
	OAuth    *services.OAuthProviderService
	Identity *services.IdentityService
}

func NewSSOHandler(cfg *config.Config, oauth *services.OAuthProviderService, identity *services.IdentityService) *SSOHandler {
	return &SSOHandler{Cfg: cfg, OAuth: oauth, Identity: identity}
}

func (h *SSOHandler) ListProviders(c *fiber.Ctx) error {
	providers := []fiber.Map{}

	if h.Cfg.SSO.Google.Enabled {
		providers = append(providers, fiber.Map{
			"name":        "google",
			"displayName": "Google",
			"type":        "oauth",
		})
	}

	if h.Cfg.SSO.OIDC.Enabled {
		providers = append(providers, fiber.Map{
			"name":        "oidc",
			"displayName": "OpenID Connect",
			"type":        "oidc",
		})
	}

	return utils.Success(c, fiber.StatusOK, providers)
}

func (h *SSOHandler) GetLoginRedirect(c *fiber.Ctx) error {
	provider := c.Params("provider")

	authCodeURL, err := h.getAuthorizationURL(c.Context(), provider)
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, err.Error())
	}

	return utils.Success(c, fiber.StatusOK, fiber.Map{
		"url": authCodeURL,
	})
}

func (h *SSOHandler) getAuthorizationURL(ctx context.Context, provider string) (string, error) {
	oauthCfg, providerName, err := h.OAuth.GetOAuthConfig(provider)
	if err != nil {
		return "", err
	}

	state, err := h.OAuth.GenerateState(providerName)
	if err != nil {
		return "", err
	}

	stateJSON, _ := json.Marshal(state)
	stateEncoded := base64.URLEncoding.EncodeToString(stateJSON)

	return oauthCfg.AuthCodeURL(stateEncoded), nil
}

// HandleOAuthCallback finishes the web sign-in: exchange the code, resolve
// the identity, then hand the frontend a bearer token minted with the app's
// own secret. The provider's id_token never leaves the backend; it is signed
// with the provider's keys and our middleware cannot verify it.
func (h *SSOHandler) HandleOAuthCallback(c *fiber.Ctx) error {
	provider := c.Params("provider")
	code := c.Query("code")

	frontendURL := h.Cfg.Server.FrontendURL

	if code == "" {
		return c.Redirect(frontendURL + "/login?error=" + url.QueryEscape("authorization code is required"))
	}

	token, err := h.OAuth.ExchangeCode(c.Context(), provider, code)
	if err != nil {
		return c.Redirect(frontendURL + "/login?error=" + url.QueryEscape(err.Error()))
	}

	assertion, err := h.OAuth.GetUserInfo(c.Context(), provider, token)
	if err != nil {
		return c.Redirect(frontendURL + "/login?error=" + url.QueryEscape(err.Error()))
	}

	user, needsUsername, err := h.Identity.ResolveOrCreateUser(c.Context(), *assertion)
	if err != nil {
		return c.Redirect(frontendURL + "/login?error=" + url.QueryEscape("sign-in failed"))
	}

	sessionToken, err := sessionTokenFor(assertion)
	if err != nil {
		logger.Error("session_token_sign_failed", err, map[string]interface{}{
			"user_id":  user.ID.String(),
			"provider": provider,
		})
		return c.Redirect(frontendURL + "/login?error=" + url.QueryEscape("sign-in failed"))
	}

	logger.Info("sso_login_success", map[string]interface{}{
		"user_id":  user.ID.String(),
		"provider": provider,
	})

	return c.Redirect(frontendURL + "/auth/callback?token=" + url.QueryEscape(sessionToken) +
		"&needsUsername=" + strconv.FormatBool(needsUsername))
}

// sessionTokenFor mints the bearer credential handed to the frontend after a
// completed OAuth exchange. RequireAuth verifies exactly this token shape.
func sessionTokenFor(assertion *services.IdentityAssertion) (string, error) {
	return identoken.Sign(assertion.ExternalUID, assertion.Email, assertion.DisplayName,
		assertion.AvatarURL, sessionTokenTTL)
}
