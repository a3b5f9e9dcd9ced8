package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	AppName string
	Env     string
	Host    string
	Port    int

	MongoURL string
	MongoDB  string
	RedisURL string

	JWTSecret          string
	AccessTokenMinutes int
	FernetKey          string
	LegacyFernetKeys   []string

	GeminiAPIKey string
	GeminiModel  string

	GoogleClientID     string
	GoogleClientSecret string
	OAuthRedirectURL   string
	FrontendURL        string

	CORSOrigins     []string
	AdminOpenAccess bool
	Debug           bool
}

func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("no .env file found, relying on environment variables")
	}

	cfg := &Config{
		AppName: getEnv("APP_NAME", "Kairos Wellness API"),
		Env:     getEnv("APP_ENV", "development"),
		Host:    getEnv("HTTP_HOST", "0.0.0.0"),
		Port:    getEnvAsInt("HTTP_PORT", 8000),

		MongoURL: getEnv("MONGODB_URL", "mongodb://localhost:27017"),
		MongoDB:  getEnv("MONGODB_DB", "mental_wellness"),
		RedisURL: getEnv("REDIS_URL", ""),

		JWTSecret:          os.Getenv("SECRET_KEY"),
		AccessTokenMinutes: getEnvAsInt("ACCESS_TOKEN_EXPIRE_MINUTES", 60*24*30),
		FernetKey:          os.Getenv("FERNET_KEY"),

		GeminiAPIKey: os.Getenv("GEMINI_API_KEY"),
		GeminiModel:  getEnv("GEMINI_MODEL", "gemini-1.5-flash-latest"),

		GoogleClientID:     os.Getenv("GOOGLE_CLIENT_ID"),
		GoogleClientSecret: os.Getenv("GOOGLE_CLIENT_SECRET"),
		OAuthRedirectURL:   getEnv("OAUTH_REDIRECT_URL", "http://localhost:8000/api/auth/google/auth"),
		FrontendURL:        getEnv("FRONTEND_URL", "http://localhost:3000"),

		AdminOpenAccess: getEnvAsBool("ADMIN_OPEN_ACCESS", true),
		Debug:           getEnvAsBool("DEBUG", true),
	}

	if legacy := getEnv("LEGACY_FERNET_KEYS", ""); legacy != "" {
		for _, k := range strings.Split(legacy, ",") {
			if k = strings.TrimSpace(k); k != "" {
				cfg.LegacyFernetKeys = append(cfg.LegacyFernetKeys, k)
			}
		}
	}

	cors := getEnv("CORS_ORIGINS", "")
	if cors != "" {
		parts := strings.Split(cors, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		cfg.CORSOrigins = parts
	} else {
		cfg.CORSOrigins = []string{"http://localhost:3000", "http://localhost:5173"}
	}

	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("SECRET_KEY is required")
	}
	if cfg.FernetKey == "" {
		return nil, fmt.Errorf("FERNET_KEY is required")
	}

	return cfg, nil
}

func (c *Config) HTTPAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvAsInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func getEnvAsBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}
