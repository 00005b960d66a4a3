package config

import (
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

const (
	BackendCommand = "command"
	BackendHTTP    = "http"
)

type Config struct {
	Host string `validate:"required"`
	Port string `validate:"required,numeric"`

	// Filesystem layout, relative to the working directory
	StaticDir     string `validate:"required"`
	UploadDir     string `validate:"required"`
	DetectProject string `validate:"required"`
	DetectName    string `validate:"required"`
	ModelPath     string `validate:"required"`

	DetectorBackend string `validate:"oneof=command http"`
	DetectorCommand string `validate:"required_if=DetectorBackend command"`
	InferenceURL    string `validate:"required_if=DetectorBackend http"`

	RequestTimeout     time.Duration
	DetectionTimeout   time.Duration
	MaxRequestBodySize int64 `validate:"gt=0"`

	// Optional upload archive; empty account disables it
	AzureAccountName string
	AzureAccountKey  string `validate:"required_with=AzureAccountName"`
	AzureContainer   string `validate:"required_with=AzureAccountName"`
}

func (c *Config) ServerAddress() string {
	host := strings.TrimSpace(c.Host)
	port := strings.TrimSpace(c.Port)
	return net.JoinHostPort(host, port)
}

// OutputDir is the reused directory the detector saves its annotated image into.
func (c *Config) OutputDir() string {
	return filepath.Join(c.DetectProject, c.DetectName)
}

// Load reads .env (if present), the environment and the command line, in
// increasing order of precedence. Only --port is exposed as a flag.
func Load(args []string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	cfg := &Config{
		Host:               getEnvOrDefault("HOST", "0.0.0.0"),
		Port:               getEnvOrDefault("PORT", "5000"),
		StaticDir:          getEnvOrDefault("STATIC_DIR", "static"),
		UploadDir:          getEnvOrDefault("UPLOAD_DIR", filepath.Join("static", "uploads")),
		DetectProject:      getEnvOrDefault("DETECT_DIR", filepath.Join("runs", "detect")),
		DetectName:         getEnvOrDefault("DETECT_NAME", "latest_detect"),
		ModelPath:          getEnvOrDefault("MODEL_PATH", "best.pt"),
		DetectorBackend:    getEnvOrDefault("DETECTOR_BACKEND", BackendCommand),
		DetectorCommand:    getEnvOrDefault("DETECTOR_COMMAND", "yolo"),
		InferenceURL:       os.Getenv("INFERENCE_URL"),
		RequestTimeout:     parseDurationOrDefault("REQUEST_TIMEOUT", 5*time.Minute),
		DetectionTimeout:   parseDurationOrDefault("DETECTION_TIMEOUT", 3*time.Minute),
		MaxRequestBodySize: parseIntOrDefault("MAX_REQUEST_BODY_SIZE", 16*1024*1024), // 16MB
		AzureAccountName:   os.Getenv("AZURE_STORAGE_ACCOUNT"),
		AzureAccountKey:    os.Getenv("AZURE_STORAGE_KEY"),
		AzureContainer:     os.Getenv("AZURE_STORAGE_CONTAINER"),
	}

	defaultPort, err := strconv.Atoi(strings.TrimSpace(cfg.Port))
	if err != nil {
		return nil, fmt.Errorf("invalid PORT: %q", cfg.Port)
	}

	flags := flag.NewFlagSet("detection-viewer", flag.ContinueOnError)
	port := flags.Int("port", defaultPort, "port number")
	if err := flags.Parse(args); err != nil {
		return nil, err
	}
	cfg.Port = strconv.Itoa(*port)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

var validate = validator.New()

func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	if c.InferenceURL != "" {
		u, err := url.Parse(c.InferenceURL)
		if err != nil || u.Host == "" {
			return fmt.Errorf("invalid INFERENCE_URL: %q", c.InferenceURL)
		}
	}

	p, err := strconv.Atoi(strings.TrimSpace(c.Port))
	if err != nil || p < 1 || p > 65535 {
		return fmt.Errorf("invalid PORT: %q", c.Port)
	}
	if c.RequestTimeout <= 0 || c.DetectionTimeout <= 0 {
		return fmt.Errorf("timeouts must be > 0 (got request=%s, detection=%s)",
			c.RequestTimeout, c.DetectionTimeout)
	}
	return nil
}

// EnsureDirs creates the upload and detection roots, as the server expects
// both to exist before the first request.
func (c *Config) EnsureDirs() error {
	for _, dir := range []string{c.UploadDir, c.DetectProject} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create %s: %w", dir, err)
		}
	}
	return nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func parseDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(strings.TrimSpace(value)); err == nil && duration > 0 {
			return duration
		}
	}
	return defaultValue
}

func parseIntOrDefault(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}
