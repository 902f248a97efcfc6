package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, dir, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, FileName), []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"LOCSYNC_SOURCE_FILE", "LOCSYNC_SOURCE_DIR", "LOCSYNC_OUTPUT_DIR",
		"LOCSYNC_SOURCE_LANGUAGE", "LOCSYNC_LANGUAGES", "LOCSYNC_PROVIDER",
		"LOCSYNC_BASE_URL", "LOCSYNC_MODEL", "LOCSYNC_PROXY",
		"LOCSYNC_TIMEOUT_SECONDS", "LOCSYNC_CACHE_BACKEND", "LOCSYNC_REDIS_URL",
	} {
		t.Setenv(key, "")
	}
}

func TestLoad_FromFile(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, "locales", "en"), 0755); err != nil {
		t.Fatal(err)
	}
	writeConfig(t, dir, `
source_dir: locales/en
output_dir: locales
languages: [de, fr]
exclude:
  keys: [version]
  paths: ["legal.**"]
`)

	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}

	if cfg.SourceDir != filepath.Join(dir, "locales", "en") {
		t.Errorf("SourceDir = %q", cfg.SourceDir)
	}
	if cfg.OutputDir != filepath.Join(dir, "locales") {
		t.Errorf("OutputDir = %q", cfg.OutputDir)
	}
	if cfg.SourceLanguage != "en" {
		t.Errorf("SourceLanguage = %q, want default en", cfg.SourceLanguage)
	}
	if len(cfg.Languages) != 2 || cfg.Languages[0] != "de" {
		t.Errorf("Languages = %v", cfg.Languages)
	}
	if len(cfg.Exclude.Keys) != 1 || cfg.Exclude.Keys[0] != "version" {
		t.Errorf("Exclude.Keys = %v", cfg.Exclude.Keys)
	}
	if cfg.Git.Branch != "locsync/translations" {
		t.Errorf("Git.Branch default = %q", cfg.Git.Branch)
	}
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	writeConfig(t, dir, `
source_file: en.json
languages: [de]
provider: endpoint
`)
	if err := os.WriteFile(filepath.Join(dir, "en.json"), []byte("{}"), 0644); err != nil {
		t.Fatal(err)
	}

	t.Setenv("LOCSYNC_LANGUAGES", "ja, ko")
	t.Setenv("LOCSYNC_PROVIDER", "openai")
	t.Setenv("LOCSYNC_MODEL", "gpt-4o")

	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}

	if len(cfg.Languages) != 2 || cfg.Languages[0] != "ja" || cfg.Languages[1] != "ko" {
		t.Errorf("Languages = %v, want [ja ko]", cfg.Languages)
	}
	if cfg.Provider != "openai" {
		t.Errorf("Provider = %q", cfg.Provider)
	}
	if cfg.Model != "gpt-4o" {
		t.Errorf("Model = %q", cfg.Model)
	}
}

func TestLoad_MissingFileUsesEnvOnly(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()

	t.Setenv("LOCSYNC_SOURCE_DIR", dir)
	t.Setenv("LOCSYNC_LANGUAGES", "de")

	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if cfg.SourceDir != dir {
		t.Errorf("SourceDir = %q", cfg.SourceDir)
	}
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		return &Config{
			SourceDir:      "/tmp/locales",
			SourceLanguage: "en",
			Languages:      []string{"de"},
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid", func(c *Config) {}, false},
		{"no source", func(c *Config) { c.SourceDir = "" }, true},
		{"both sources", func(c *Config) { c.SourceFile = "/tmp/en.json" }, true},
		{"no languages", func(c *Config) { c.Languages = nil }, true},
		{"bad language code", func(c *Config) { c.Languages = []string{"german"} }, true},
		{"bad source language", func(c *Config) { c.SourceLanguage = "english" }, true},
		{"unknown provider", func(c *Config) { c.Provider = "deepl" }, true},
		{"redis without url", func(c *Config) { c.Cache.Backend = "redis" }, true},
		{"redis with url", func(c *Config) {
			c.Cache.Backend = "redis"
			c.Cache.RedisURL = "redis://localhost:6379"
		}, false},
		{"pr without git", func(c *Config) {
			c.PR.Open = true
			c.PR.Repo = "owner/repo"
		}, true},
		{"pr complete", func(c *Config) {
			c.PR.Open = true
			c.PR.Repo = "owner/repo"
			c.Git.Commit = true
			c.Git.Push = true
		}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidate_UnsupportedSourceFile(t *testing.T) {
	cfg := &Config{
		SourceFile:     "/tmp/en.po",
		SourceLanguage: "en",
		Languages:      []string{"de"},
	}
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for unsupported extension")
	}
}
