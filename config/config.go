package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"

	PhotoBackendLocal = "local"
	PhotoBackendGCS   = "gcs"
)

type Config struct {
	Env             string
	Port            int
	ShutdownTimeout time.Duration

	Mongo   MongoConfig
	Photos  PhotoConfig
	Cleanup CleanupConfig
	CORS    CORSConfig
	Log     LogConfig
}

type MongoConfig struct {
	URI        string
	Database   string
	Collection string
	Timeout    time.Duration
}

// PhotoConfig selects where uploaded photos live and how they are addressed.
type PhotoConfig struct {
	Backend         string
	UploadDir       string
	PublicBaseURL   string
	MaxBytes        int64
	GCSBucket       string
	GCSPrefix       string
	CredentialsFile string
}

// CleanupConfig drives the orphaned photo sweep. An empty Schedule disables it.
type CleanupConfig struct {
	Schedule string
	Grace    time.Duration
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}

	return fromViper(v), nil
}

func fromViper(v *viper.Viper) *Config {
	cfg := &Config{
		Env:             v.GetString("ENV"),
		Port:            v.GetInt("PORT"),
		ShutdownTimeout: parseDuration(v.GetString("SHUTDOWN_TIMEOUT"), 10*time.Second),
	}

	cfg.Mongo = MongoConfig{
		URI:        v.GetString("MONGODB_URI"),
		Database:   v.GetString("MONGODB_DATABASE"),
		Collection: v.GetString("MONGODB_COLLECTION"),
		Timeout:    parseDuration(v.GetString("MONGODB_TIMEOUT"), 10*time.Second),
	}

	maxBytes := v.GetInt64("MAX_PHOTO_BYTES")
	if maxBytes <= 0 {
		maxBytes = 5 * 1024 * 1024
	}
	cfg.Photos = PhotoConfig{
		Backend:         strings.ToLower(strings.TrimSpace(v.GetString("PHOTO_BACKEND"))),
		UploadDir:       v.GetString("UPLOAD_DIR"),
		PublicBaseURL:   strings.TrimRight(v.GetString("PUBLIC_BASE_URL"), "/"),
		MaxBytes:        maxBytes,
		GCSBucket:       v.GetString("GCS_BUCKET"),
		GCSPrefix:       strings.Trim(v.GetString("GCS_PREFIX"), "/"),
		CredentialsFile: v.GetString("GOOGLE_APPLICATION_CREDENTIALS"),
	}

	cfg.Cleanup = CleanupConfig{
		Schedule: strings.TrimSpace(v.GetString("PHOTO_CLEANUP_SCHEDULE")),
		Grace:    parseDuration(v.GetString("PHOTO_CLEANUP_GRACE"), time.Hour),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	return cfg
}

// Validate reports settings that would only fail later at startup.
func (c *Config) Validate() error {
	if c.Mongo.URI == "" {
		return errors.New("MONGODB_URI is required")
	}
	switch c.Photos.Backend {
	case PhotoBackendLocal:
		if c.Photos.UploadDir == "" {
			return errors.New("UPLOAD_DIR is required for the local photo backend")
		}
	case PhotoBackendGCS:
		if c.Photos.GCSBucket == "" {
			return errors.New("GCS_BUCKET is required for the gcs photo backend")
		}
	default:
		return fmt.Errorf("unknown PHOTO_BACKEND %q", c.Photos.Backend)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("SHUTDOWN_TIMEOUT", "10s")

	v.SetDefault("MONGODB_URI", "mongodb://localhost:27017")
	v.SetDefault("MONGODB_DATABASE", "lab_reports")
	v.SetDefault("MONGODB_COLLECTION", "equipments")
	v.SetDefault("MONGODB_TIMEOUT", "10s")

	v.SetDefault("PHOTO_BACKEND", PhotoBackendLocal)
	v.SetDefault("UPLOAD_DIR", "./uploads")
	v.SetDefault("PUBLIC_BASE_URL", "")
	v.SetDefault("MAX_PHOTO_BYTES", 5*1024*1024)
	v.SetDefault("GCS_BUCKET", "")
	v.SetDefault("GCS_PREFIX", "equipment_photos")
	v.SetDefault("GOOGLE_APPLICATION_CREDENTIALS", "")

	v.SetDefault("PHOTO_CLEANUP_SCHEDULE", "")
	v.SetDefault("PHOTO_CLEANUP_GRACE", "1h")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}
