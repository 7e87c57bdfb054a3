package config

import (
	"os"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Preset describes the bounding box a rendition must fit within.
type Preset struct {
	Width  int
	Height int
}

type Config struct {
	// Server
	Port string
	Env  string

	// Database
	DBDriver   string // "postgres" or "sqlite"
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string
	SQLitePath string

	// Redis
	RedisHost     string
	RedisPort     string
	RedisPassword string
	RedisDB       int

	// Storage
	StorageType     string // "local" or "s3"
	StorageBasePath string

	// S3
	S3Endpoint        string
	S3Region          string
	S3AccessKeyID     string
	S3SecretAccessKey string
	S3Bucket          string
	S3UsePathStyle    bool

	// Ingestion
	MaxUploadBytes   int64
	Presets          map[string]Preset
	RenditionQuality int
	IngestStrict     bool

	// Perceptual hashing
	PhashSize             int
	PhashHammingThreshold int

	// Purge
	PurgeConfirmToken string

	// Rate limiting
	RateLimitRequests int
	RateLimitDuration time.Duration
	UploadsPerDay     int

	// CORS
	AllowedOrigins []string
}

func New() *Config {
	return &Config{
		// Server
		Port: getEnv("PORT", "8080"),
		Env:  getEnv("ENV", "development"),

		// Database
		DBDriver:   getEnv("DB_DRIVER", "postgres"),
		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBUser:     getEnv("DB_USER", "catalogix"),
		DBPassword: getEnv("DB_PASSWORD", "password"),
		DBName:     getEnv("DB_NAME", "catalogix_db"),
		DBSSLMode:  getEnv("DB_SSL_MODE", "disable"),
		SQLitePath: getEnv("SQLITE_PATH", "./catalog_images.db"),

		// Redis
		RedisHost:     getEnv("REDIS_HOST", "localhost"),
		RedisPort:     getEnv("REDIS_PORT", "6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvAsInt("REDIS_DB", 0),

		// Storage
		StorageType:     getEnv("STORAGE_TYPE", "local"),
		StorageBasePath: getEnv("STORAGE_BASE_PATH", "./storage"),

		// S3
		S3Endpoint:        getEnv("S3_ENDPOINT", ""),
		S3Region:          getEnv("S3_REGION", "us-east-1"),
		S3AccessKeyID:     getEnv("S3_ACCESS_KEY_ID", ""),
		S3SecretAccessKey: getEnv("S3_SECRET_ACCESS_KEY", ""),
		S3Bucket:          getEnv("S3_BUCKET", "catalogix-renditions"),
		S3UsePathStyle:    getEnv("S3_USE_PATH_STYLE", "true") == "true",

		// Ingestion
		MaxUploadBytes: getEnvAsInt64("MAX_UPLOAD_BYTES", 10*1024*1024),
		Presets: getEnvAsPresets("PRESETS", map[string]Preset{
			"thumb": {Width: 200, Height: 200},
			"card":  {Width: 600, Height: 400},
			"zoom":  {Width: 1600, Height: 1600},
		}),
		RenditionQuality: getEnvAsInt("RENDITION_QUALITY", 85),
		IngestStrict:     getEnv("INGEST_STRICT", "false") == "true",

		// Perceptual hashing
		PhashSize:             getEnvAsInt("PHASH_SIZE", 8),
		PhashHammingThreshold: getEnvAsInt("PHASH_HAMMING_THRESHOLD", 5),

		// Purge
		PurgeConfirmToken: getEnv("PURGE_CONFIRM_TOKEN", "DELETE_CONFIRMED"),

		// Rate limiting
		RateLimitRequests: getEnvAsInt("RATE_LIMIT_REQUESTS", 100),
		RateLimitDuration: getEnvAsDuration("RATE_LIMIT_DURATION", "1m"),
		UploadsPerDay:     getEnvAsInt("UPLOADS_PER_DAY", 1000),

		// CORS
		AllowedOrigins: getEnvAsSlice("ALLOWED_ORIGINS", []string{"http://localhost:3000"}),
	}
}

// PresetNames returns the configured preset names in sorted order so that
// rendition creation is deterministic across runs.
func (c *Config) PresetNames() []string {
	names := make([]string, 0, len(c.Presets))
	for name := range c.Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsInt64(key string, defaultValue int64) int64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseInt(valueStr, 10, 64); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key, defaultValue string) time.Duration {
	valueStr := getEnv(key, defaultValue)
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	value, _ := time.ParseDuration(defaultValue)
	return value
}

func getEnvAsSlice(key string, defaultValue []string) []string {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	parts := strings.Split(valueStr, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}

// getEnvAsPresets parses a preset table of the form
// "thumb:200x200,card:600x400,zoom:1600x1600". Malformed entries are skipped;
// an empty result falls back to the default table.
func getEnvAsPresets(key string, defaultValue map[string]Preset) map[string]Preset {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	presets := make(map[string]Preset)
	for _, entry := range strings.Split(valueStr, ",") {
		name, box, ok := strings.Cut(strings.TrimSpace(entry), ":")
		if !ok {
			continue
		}
		w, h, ok := strings.Cut(box, "x")
		if !ok {
			continue
		}
		width, errW := strconv.Atoi(w)
		height, errH := strconv.Atoi(h)
		if errW != nil || errH != nil || width <= 0 || height <= 0 {
			continue
		}
		presets[strings.TrimSpace(name)] = Preset{Width: width, Height: height}
	}
	if len(presets) == 0 {
		return defaultValue
	}
	return presets
}
