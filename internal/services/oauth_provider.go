package services

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/placelist/backend/internal/config"
	"github.com/placelist/backend/pkg/logger"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

type OAuthProviderService struct {
	Cfg *config.Config
}

func NewOAuthProviderService(cfg *config.Config) *OAuthProviderService {
	return &OAuthProviderService{Cfg: cfg}
}

type OAuthState struct {
	Provider  string
	Nonce     string
	ExpiresAt time.Time
}

func (s *OAuthProviderService) GetOAuthConfig(provider string) (*oauth2.Config, string, error) {
	switch strings.ToLower(provider) {
	case "google":
		if !s.Cfg.SSO.Google.Enabled {
			return nil, "", errors.New("google oauth is not enabled")
		}
		return &oauth2.Config{
			ClientID:     s.Cfg.SSO.Google.ClientID,
			ClientSecret: s.Cfg.SSO.Google.ClientSecret,
			RedirectURL:  s.Cfg.SSO.Google.RedirectURL,
			Scopes:       strings.Split(s.Cfg.SSO.Google.Scopes, ","),
			Endpoint:     google.Endpoint,
		}, "google", nil

	case "oidc":
		if !s.Cfg.SSO.OIDC.Enabled {
			return nil, "", errors.New("oidc is not enabled")
		}
		endpoint := oauth2.Endpoint{
			AuthURL:  s.Cfg.SSO.OIDC.IssuerURL + "/authorize",
			TokenURL: s.Cfg.SSO.OIDC.IssuerURL + "/token",
		}
		return &oauth2.Config{
			ClientID:     s.Cfg.SSO.OIDC.ClientID,
			ClientSecret: s.Cfg.SSO.OIDC.ClientSecret,
			RedirectURL:  s.Cfg.SSO.OIDC.RedirectURL,
			Scopes:       strings.Split(s.Cfg.SSO.OIDC.Scopes, ","),
			Endpoint:     endpoint,
		}, "oidc", nil

	default:
		return nil, "", errors.New("unknown oauth provider: " + provider)
	}
}

func (s *OAuthProviderService) GenerateState(provider string) (*OAuthState, error) {
	nonceBytes := make([]byte, 32)
	if _, err := rand.Read(nonceBytes); err != nil {
		return nil, err
	}
	nonce := base64.URLEncoding.EncodeToString(nonceBytes)

	state := &OAuthState{
		Provider:  provider,
		Nonce:     nonce,
		ExpiresAt: time.Now().Add(10 * time.Minute),
	}

	return state, nil
}

// ExchangeCode trades the authorization code for the provider's tokens. They
// stay server-side; the userinfo fetch turns them into an identity assertion.
func (s *OAuthProviderService) ExchangeCode(ctx context.Context, provider string, code string) (*oauth2.Token, error) {
	oauthCfg, _, err := s.GetOAuthConfig(provider)
	if err != nil {
		return nil, err
	}

	token, err := oauthCfg.Exchange(ctx, code)
	if err != nil {
		logger.Warn("oauth_exchange_failed", map[string]interface{}{
			"provider": provider,
			"error":    err.Error(),
		})
		return nil, errors.New("failed to exchange code for token")
	}

	return token, nil
}

func (s *OAuthProviderService) GetUserInfo(ctx context.Context, provider string, token *oauth2.Token) (*IdentityAssertion, error) {
	switch strings.ToLower(provider) {
	case "google":
		return s.getGoogleUserInfo(ctx, token)
	case "oidc":
		return s.getOIDCUserInfo(ctx, token)
	default:
		return nil, errors.New("unknown provider: " + provider)
	}
}

func (s *OAuthProviderService) getGoogleUserInfo(ctx context.Context, token *oauth2.Token) (*IdentityAssertion, error) {
	oauthCfg, _, err := s.GetOAuthConfig("google")
	if err != nil {
		return nil, err
	}
	client := oauthCfg.Client(ctx, token)

	resp, err := client.Get("https://www.googleapis.com/oauth2/v2/userinfo")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("google api returned status %d: %s", resp.StatusCode, string(body))
	}

	var data struct {
		ID      string `json:"id"`
		Email   string `json:"email"`
		Name    string `json:"name"`
		Picture string `json:"picture"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return nil, err
	}

	return &IdentityAssertion{
		ExternalUID: data.ID,
		Email:       data.Email,
		DisplayName: data.Name,
		AvatarURL:   data.Picture,
	}, nil
}

func (s *OAuthProviderService) getOIDCUserInfo(ctx context.Context, token *oauth2.Token) (*IdentityAssertion, error) {
	oauthCfg, _, err := s.GetOAuthConfig("oidc")
	if err != nil {
		return nil, err
	}
	client := oauthCfg.Client(ctx, token)

	resp, err := client.Get(s.Cfg.SSO.OIDC.IssuerURL + "/userinfo")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("oidc userinfo returned status %d: %s", resp.StatusCode, string(body))
	}

	var data struct {
		Sub     string `json:"sub"`
		Email   string `json:"email"`
		Name    string `json:"name"`
		Picture string `json:"picture"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return nil, err
	}

	return &IdentityAssertion{
		ExternalUID: data.Sub,
		Email:       data.Email,
		DisplayName: data.Name,
		AvatarURL:   data.Picture,
	}, nil
}
