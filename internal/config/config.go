package config

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// UploadMode selects how a product image travels: inside the backend POST or
// via the external image host first.
const (
	UploadModeJSON      = "json"      // no binary, image field is a URL or absent
	UploadModeMultipart = "multipart" // binary forwarded to the backend
	UploadModeImageHost = "imagehost" // binary to the image host, URL to the backend
)

type Config struct {
	Port               string
	BackendURL         string
	BackendTimeout     time.Duration
	WorkerRegisterPath string
	CSRFKey            []byte
	SessionKey         []byte
	CookieDomain       string
	CookieSecure       bool
	ImageHostURL       string
	CloudName          string
	UploadPreset       string
	UploadMode         string
	SearchDebounce     time.Duration
}

func LoadConfig() (*Config, error) {
	// .env is a development convenience; absence is not an error.
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		slog.Debug("No .env file loaded", "error", err)
	}

	cfg := &Config{
		Port:               getEnv("PORT", "8585"),
		BackendURL:         os.Getenv("BACKEND_URL"),
		WorkerRegisterPath: getEnv("WORKER_REGISTER_PATH", "/worker-register"),
		CookieDomain:       getEnv("COOKIE_DOMAIN", ""),
		CookieSecure:       getEnv("COOKIE_SECURE", "false") == "true",
		ImageHostURL:       getEnv("IMAGE_HOST_URL", "https://api.cloudinary.com/v1_1"),
		CloudName:          getEnv("CLOUD_NAME", ""),
		UploadPreset:       getEnv("UPLOAD_PRESET", ""),
		UploadMode:         getEnv("UPLOAD_MODE", UploadModeJSON),
	}

	if cfg.BackendURL == "" {
		return nil, fmt.Errorf("BACKEND_URL environment variable is required")
	}

	switch cfg.UploadMode {
	case UploadModeJSON, UploadModeMultipart:
	case UploadModeImageHost:
		if cfg.CloudName == "" || cfg.UploadPreset == "" {
			return nil, fmt.Errorf("UPLOAD_MODE=imagehost requires CLOUD_NAME and UPLOAD_PRESET")
		}
	default:
		return nil, fmt.Errorf("invalid UPLOAD_MODE %q: must be json, multipart or imagehost", cfg.UploadMode)
	}

	timeoutSec, err := strconv.Atoi(getEnv("BACKEND_TIMEOUT_SECONDS", "15"))
	if err != nil || timeoutSec < 1 {
		slog.Warn("Invalid BACKEND_TIMEOUT_SECONDS, falling back to 15")
		timeoutSec = 15
	}
	cfg.BackendTimeout = time.Duration(timeoutSec) * time.Second

	debounceMS, err := strconv.Atoi(getEnv("SEARCH_DEBOUNCE_MS", "400"))
	if err != nil || debounceMS < 0 {
		slog.Warn("Invalid SEARCH_DEBOUNCE_MS, falling back to 400")
		debounceMS = 400
	}
	cfg.SearchDebounce = time.Duration(debounceMS) * time.Millisecond

	// CSRF Key (critical for security)
	cfg.CSRFKey = loadKey("CSRF_KEY")
	cfg.SessionKey = loadKey("SESSION_KEY")

	// Make sure port is valid
	if _, err := strconv.Atoi(cfg.Port); err != nil {
		slog.Error("Invalid PORT environment variable. Falling back to default.", "PORT", os.Getenv("PORT"))
		cfg.Port = "8585"
	}

	return cfg, nil
}

// loadKey decodes a base64 key from the environment, generating a random one
// (with a loud warning) when missing or too short.
func loadKey(name string) []byte {
	raw := os.Getenv(name)
	if raw == "" {
		slog.Warn(name + " environment variable not set. Generating a random key for development. This key will change on each restart. PLEASE SET " + name + " IN PRODUCTION!")
		return generateRandomBytes(32)
	}
	decoded, err := base64.StdEncoding.DecodeString(raw)
	if err != nil || len(decoded) < 32 {
		slog.Warn(name + " is invalid or too short (min 32 bytes recommended). Generating a random key for development. PLEASE SET A SECURE " + name + " IN PRODUCTION!")
		return generateRandomBytes(32)
	}
	return decoded
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

// generateRandomBytes generates a random byte slice of specified length
// Uses crypto/rand for secure random numbers.
func generateRandomBytes(n int) []byte {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil { // Use crypto/rand
		slog.Error("Failed to read random bytes", "error", err)
		// Fallback to a less secure random string if crypto/rand fails
		// This fallback is only for panic prevention, not for production use
		fallbackKey := "fallback-insecure-key-" + strconv.FormatInt(time.Now().UnixNano(), 10)
		if len(fallbackKey) < n {
			paddedKey := make([]byte, n)
			copy(paddedKey, fallbackKey)
			return paddedKey
		}
		return []byte(fallbackKey)[:n]
	}
	return b
}
