package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return dir
}

func TestLoadConfigDefaults(t *testing.T) {
	dir := writeConfig(t, `
server:
  mode: debug
jwt:
  secret: short
storage:
  type: minio
`)

	cfg, err := LoadConfig(dir)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server.Port != "8080" || cfg.Database.Driver != "memory" {
		t.Fatalf("defaults not applied: %+v %+v", cfg.Server, cfg.Database)
	}
	if cfg.JWT.ExpireTime != 24*time.Hour {
		t.Fatalf("expire time = %v", cfg.JWT.ExpireTime)
	}
	if cfg.Quiz.ListCacheTTL() != 30*time.Second || cfg.Quiz.PracticeMaxQuestions != 50 || cfg.Quiz.PracticeDefaultQuestions != 5 {
		t.Fatalf("quiz defaults not applied: %+v", cfg.Quiz)
	}
	if cfg.Dir != dir {
		t.Fatalf("Dir = %q", cfg.Dir)
	}
}

func TestLoadConfigFileAndEnv(t *testing.T) {
	dir := writeConfig(t, `
server:
  port: "9090"
database:
  driver: postgres
  port: 5432
auth:
  trust_headers: true
storage:
  type: oss
quiz:
  list_cache_seconds: 0
`)
	t.Setenv("DATABASE_HOST", "db.internal")
	t.Setenv("LEARNHUB_QUIZ_PRACTICE_MAX_QUESTIONS", "7")

	cfg, err := LoadConfig(dir)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server.Port != "9090" || cfg.Database.Driver != "postgres" || cfg.Database.Port != 5432 {
		t.Fatalf("file values not read: %+v", cfg)
	}
	if cfg.Database.Host != "db.internal" {
		t.Fatalf("env override not applied, host = %q", cfg.Database.Host)
	}
	if cfg.Quiz.PracticeMaxQuestions != 7 {
		t.Fatalf("prefixed env override not applied: %d", cfg.Quiz.PracticeMaxQuestions)
	}
	if !cfg.Auth.TrustHeaders || cfg.Quiz.ListCacheTTL() != 0 {
		t.Fatalf("unexpected auth/quiz: %+v %+v", cfg.Auth, cfg.Quiz)
	}
}

func TestLoadConfigRejectsWeakSecretInRelease(t *testing.T) {
	dir := writeConfig(t, `
server:
  mode: release
jwt:
  secret: too-short
`)
	if _, err := LoadConfig(dir); err == nil {
		t.Fatal("release mode should require a 32 character secret")
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	if _, err := LoadConfig(t.TempDir()); err == nil {
		t.Fatal("missing config.yaml should fail")
	}
}
