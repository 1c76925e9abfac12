package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/joho/godotenv"
)

func TestFromEnvDefaults(t *testing.T) {
	for _, key := range []string{"STORYSHELF_ADDR", "PORT", "STORYSHELF_DB_DRIVER", "AWS_REGION", "STORYSHELF_CORS_ORIGINS", "STORYSHELF_MAX_UPLOAD_BYTES"} {
		t.Setenv(key, "")
	}
	cfg := FromEnv()
	if cfg.Addr != ":8080" {
		t.Fatalf("expected :8080, got %q", cfg.Addr)
	}
	if cfg.Database.Driver != DriverMongo || cfg.Database.MongoDatabase != "storyshelf" {
		t.Fatalf("unexpected database defaults %+v", cfg.Database)
	}
	if cfg.Database.ConnectTimeout != 10*time.Second {
		t.Fatalf("unexpected connect timeout %v", cfg.Database.ConnectTimeout)
	}
	if cfg.Storage.Region != "us-east-1" || cfg.Storage.MaxUploadBytes != 5<<20 || cfg.Storage.PresignTTL != 5*time.Minute {
		t.Fatalf("unexpected storage defaults %+v", cfg.Storage)
	}
	if len(cfg.CORSOrigins) != 1 || cfg.CORSOrigins[0] != "*" {
		t.Fatalf("unexpected cors origins %v", cfg.CORSOrigins)
	}
	if cfg.RateLimits != (RateLimits{StoryPerMinute: 10, CommentPerMinute: 30, UploadPerMinute: 20}) {
		t.Fatalf("unexpected rate limits %+v", cfg.RateLimits)
	}
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("STORYSHELF_ADDR", "")
	t.Setenv("PORT", "9090")
	t.Setenv("STORYSHELF_DB_DRIVER", "SQLite")
	t.Setenv("STORYSHELF_S3_PATH_STYLE", "true")
	t.Setenv("STORYSHELF_CORS_ORIGINS", "https://a.example, https://b.example,")
	t.Setenv("STORYSHELF_PRESIGN_TTL", "90s")
	t.Setenv("STORYSHELF_RL_UPLOAD_PER_MIN", "0")
	t.Setenv("STORYSHELF_MAX_UPLOAD_BYTES", "not-a-number")

	cfg := FromEnv()
	if cfg.Addr != ":9090" {
		t.Fatalf("expected PORT fallback, got %q", cfg.Addr)
	}
	if cfg.Database.Driver != DriverSQLite {
		t.Fatalf("expected sqlite driver, got %q", cfg.Database.Driver)
	}
	if !cfg.Storage.UsePathStyle || cfg.Storage.PresignTTL != 90*time.Second {
		t.Fatalf("unexpected storage %+v", cfg.Storage)
	}
	if len(cfg.CORSOrigins) != 2 || cfg.CORSOrigins[1] != "https://b.example" {
		t.Fatalf("unexpected cors origins %v", cfg.CORSOrigins)
	}
	if cfg.RateLimits.UploadPerMinute != 0 {
		t.Fatalf("expected upload limit disabled")
	}
	if cfg.Storage.MaxUploadBytes != 5<<20 {
		t.Fatalf("malformed values fall back to the default, got %d", cfg.Storage.MaxUploadBytes)
	}
}

func TestValidate(t *testing.T) {
	cfg := Config{
		Database: DatabaseConfig{Driver: DriverMongo},
		Storage:  StorageConfig{MaxUploadBytes: 1},
	}
	err := cfg.Validate()
	if err == nil {
		t.Fatalf("expected validation error")
	}
	for _, want := range []string{"MONGODB_URI", "AWS_S3_BUCKET"} {
		if !strings.Contains(err.Error(), want) {
			t.Fatalf("expected %s in %q", want, err)
		}
	}

	cfg.Database = DatabaseConfig{Driver: "postgres"}
	cfg.Storage.Bucket = "covers"
	if err := cfg.Validate(); err == nil || !strings.Contains(err.Error(), `unknown database driver "postgres"`) {
		t.Fatalf("expected unknown driver error, got %v", err)
	}

	cfg.Database = DatabaseConfig{Driver: DriverSQLite, SQLitePath: "x.db"}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected valid config, got %v", err)
	}
}

func TestDotEnvDoesNotOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	if err := os.WriteFile(path, []byte("AWS_S3_BUCKET=from-file\nMONGODB_DATABASE=from-file\n"), 0o600); err != nil {
		t.Fatalf("write env file: %v", err)
	}
	t.Setenv("AWS_S3_BUCKET", "from-env")
	t.Setenv("MONGODB_DATABASE", "")
	os.Unsetenv("MONGODB_DATABASE")

	if err := godotenv.Load(path); err != nil {
		t.Fatalf("load env file: %v", err)
	}
	cfg := FromEnv()
	if cfg.Storage.Bucket != "from-env" {
		t.Fatalf("environment must win over .env, got %q", cfg.Storage.Bucket)
	}
	if cfg.Database.MongoDatabase != "from-file" {
		t.Fatalf("expected value from .env, got %q", cfg.Database.MongoDatabase)
	}
}
