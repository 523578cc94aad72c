package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	DB     DBConfig
	MinIO  MinIOConfig
	Auth   AuthConfig
	Server ServerConfig
	SSO    SSOConfig
	Kafka  KafkaConfig
}

type DBConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	SSLMode  string
}

type MinIOConfig struct {
	Endpoint       string
	PublicEndpoint string
	AccessKey      string
	SecretKey      string
	Bucket         string
	UseSSL         bool
}

type AuthConfig struct {
	// Shared secret for signing and verifying the app's bearer tokens.
	JWTSecret string
}

type ServerConfig struct {
	Port        string
	FrontendURL string
}

type SSOConfig struct {
	Google OAuthProviderConfig
	OIDC   OIDCProviderConfig
}

type OAuthProviderConfig struct {
	Enabled      bool
	ClientID     string
	ClientSecret string
	RedirectURL  string
	Scopes       string
}

type OIDCProviderConfig struct {
	Enabled      bool
	IssuerURL    string
	ClientID     string
	ClientSecret string
	RedirectURL  string
	Scopes       string
}

type KafkaConfig struct {
	Broker string
	Topic  string
}

func Load() *Config {
	// Local development reads .env; deployed environments set real env vars.
	_ = godotenv.Load()

	return &Config{
		DB: DBConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "placelist"),
			Password: getEnv("DB_PASSWORD", "placelist_secret"),
			Name:     getEnv("DB_NAME", "placelist"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		MinIO: MinIOConfig{
			Endpoint:       getEnv("MINIO_ENDPOINT", "localhost:9000"),
			PublicEndpoint: getEnv("MINIO_PUBLIC_ENDPOINT", getEnv("MINIO_ENDPOINT", "localhost:9000")),
			AccessKey:      getEnv("MINIO_ACCESS_KEY", "placelist"),
			SecretKey:      getEnv("MINIO_SECRET_KEY", "placelist_secret"),
			Bucket:         getEnv("MINIO_BUCKET", "avatars"),
			UseSSL:         getEnvAsBool("MINIO_USE_SSL", false),
		},
		Auth: AuthConfig{
			JWTSecret: getEnv("AUTH_JWT_SECRET", "change-me-in-production"),
		},
		Server: ServerConfig{
			Port:        getEnv("SERVER_PORT", "8080"),
			FrontendURL: getEnv("FRONTEND_URL", "http://localhost:3000"),
		},
		SSO: SSOConfig{
			Google: OAuthProviderConfig{
				Enabled:      getEnvAsBool("SSO_GOOGLE_ENABLED", false),
				ClientID:     getEnv("SSO_GOOGLE_CLIENT_ID", ""),
				ClientSecret: getEnv("SSO_GOOGLE_CLIENT_SECRET", ""),
				RedirectURL:  getEnv("SSO_GOOGLE_REDIRECT_URL", ""),
				Scopes:       getEnv("SSO_GOOGLE_SCOPES", "openid,email,profile"),
			},
			OIDC: OIDCProviderConfig{
				Enabled:      getEnvAsBool("SSO_OIDC_ENABLED", false),
				IssuerURL:    getEnv("SSO_OIDC_ISSUER_URL", ""),
				ClientID:     getEnv("SSO_OIDC_CLIENT_ID", ""),
				ClientSecret: getEnv("SSO_OIDC_CLIENT_SECRET", ""),
				RedirectURL:  getEnv("SSO_OIDC_REDIRECT_URL", ""),
				Scopes:       getEnv("SSO_OIDC_SCOPES", "openid,email,profile"),
			},
		},
		Kafka: KafkaConfig{
			Broker: getEnv("KAFKA_BROKER", ""),
			Topic:  getEnv("KAFKA_TOPIC", "notification.events"),
		},
	}
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvAsBool(key string, fallback bool) bool {
	if value, ok := os.LookupEnv(key); ok {
		parsed, err := strconv.ParseBool(value)
		if err == nil {
			return parsed
		}
	}
	return fallback
}
