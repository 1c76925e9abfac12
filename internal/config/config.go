package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	DriverMongo  = "mongo"
	DriverSQLite = "sqlite"
)

type Config struct {
	Addr        string
	Database    DatabaseConfig
	Storage     StorageConfig
	CORSOrigins []string
	RateLimits  RateLimits
	LogLevel    string
	LogFormat   string
}

type DatabaseConfig struct {
	Driver         string
	MongoURI       string
	MongoDatabase  string
	ConnectTimeout time.Duration
	SQLitePath     string
}

type StorageConfig struct {
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	Bucket          string
	Endpoint        string
	UsePathStyle    bool
	PublicBaseURL   string
	MaxUploadBytes  int64
	PresignTTL      time.Duration
}

type RateLimits struct {
	StoryPerMinute   int
	CommentPerMinute int
	UploadPerMinute  int
}

// Load reads configuration from the environment. Values in a .env file in
// the working directory fill in variables that are not already set.
func Load() Config {
	_ = godotenv.Load()
	return FromEnv()
}

// FromEnv is Load without the .env file.
func FromEnv() Config {
	addr := envString("STORYSHELF_ADDR", "")
	if addr == "" {
		if port := os.Getenv("PORT"); port != "" {
			addr = ":" + port
		} else {
			addr = ":8080"
		}
	}
	return Config{
		Addr: addr,
		Database: DatabaseConfig{
			Driver:         strings.ToLower(envString("STORYSHELF_DB_DRIVER", DriverMongo)),
			MongoURI:       envString("MONGODB_URI", ""),
			MongoDatabase:  envString("MONGODB_DATABASE", "storyshelf"),
			ConnectTimeout: envDuration("STORYSHELF_DB_CONNECT_TIMEOUT", 10*time.Second),
			SQLitePath:     envString("STORYSHELF_SQLITE_PATH", "storyshelf.db"),
		},
		Storage: StorageConfig{
			Region:          envString("AWS_REGION", "us-east-1"),
			AccessKeyID:     envString("AWS_ACCESS_KEY_ID", ""),
			SecretAccessKey: envString("AWS_SECRET_ACCESS_KEY", ""),
			Bucket:          envString("AWS_S3_BUCKET", ""),
			Endpoint:        envString("STORYSHELF_S3_ENDPOINT", ""),
			UsePathStyle:    envBool("STORYSHELF_S3_PATH_STYLE", false),
			PublicBaseURL:   envString("STORYSHELF_S3_PUBLIC_URL", ""),
			MaxUploadBytes:  int64(envInt("STORYSHELF_MAX_UPLOAD_BYTES", 5<<20)),
			PresignTTL:      envDuration("STORYSHELF_PRESIGN_TTL", 5*time.Minute),
		},
		CORSOrigins: envList("STORYSHELF_CORS_ORIGINS", []string{"*"}),
		RateLimits: RateLimits{
			StoryPerMinute:   envInt("STORYSHELF_RL_STORY_PER_MIN", 10),
			CommentPerMinute: envInt("STORYSHELF_RL_COMMENT_PER_MIN", 30),
			UploadPerMinute:  envInt("STORYSHELF_RL_UPLOAD_PER_MIN", 20),
		},
		LogLevel:  envString("STORYSHELF_LOG_LEVEL", "info"),
		LogFormat: envString("STORYSHELF_LOG_FORMAT", "text"),
	}
}

// Validate reports every setting the server cannot start without.
func (c Config) Validate() error {
	var errs []error
	switch c.Database.Driver {
	case DriverMongo:
		if c.Database.MongoURI == "" {
			errs = append(errs, errors.New("MONGODB_URI is required for the mongo driver"))
		}
	case DriverSQLite:
		if c.Database.SQLitePath == "" {
			errs = append(errs, errors.New("STORYSHELF_SQLITE_PATH is required for the sqlite driver"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown database driver %q", c.Database.Driver))
	}
	if c.Storage.Bucket == "" {
		errs = append(errs, errors.New("AWS_S3_BUCKET is required"))
	}
	if c.Storage.MaxUploadBytes <= 0 {
		errs = append(errs, errors.New("STORYSHELF_MAX_UPLOAD_BYTES must be positive"))
	}
	return errors.Join(errs...)
}

func envString(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func envBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}

func envDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func envList(key string, def []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return def
	}
	return out
}
