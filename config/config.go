// Package config loads and validates the .locsync.yaml project file,
// overlaid with LOCSYNC_* environment variables so CI jobs can inject
// settings without editing the file.
//
// Example .locsync.yaml:
//
//	source_dir: locales/en
//	output_dir: locales
//	source_language: en
//	languages: [de, fr, ja]
//	exclude:
//	  keys: [version]
//	  paths: ["legal.**"]
//	provider: endpoint
//	base_url: https://translate.example.com/v1/translate
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/locsync/locsync/langmeta"
	"github.com/locsync/locsync/localefile"
)

// FileName is the default project config file name.
const FileName = ".locsync.yaml"

// ---------------------------------------------------------------------------
// YAML schema
// ---------------------------------------------------------------------------

// Config is the resolved run configuration.
type Config struct {
	// SourceFile is a single source locale file. Mutually exclusive
	// with SourceDir.
	SourceFile string `yaml:"source_file,omitempty"`
	// SourceDir is a directory scanned (non-recursively) for source
	// locale files. Mutually exclusive with SourceFile.
	SourceDir string `yaml:"source_dir,omitempty"`
	// OutputDir is the root for per-language output subdirectories in
	// directory mode (default: SourceDir's parent).
	OutputDir string `yaml:"output_dir,omitempty"`

	// SourceLanguage is the language the source files are written in
	// (default "en").
	SourceLanguage string `yaml:"source_language,omitempty"`
	// Languages are the target language codes. Always explicit; never
	// inferred from the directory layout.
	Languages []string `yaml:"languages"`

	// Full disables incremental diffing; every run retranslates whole
	// files.
	Full bool `yaml:"full,omitempty"`

	// Exclude names keys that pass through untranslated.
	Exclude Exclude `yaml:"exclude,omitempty"`

	// Provider selects the translation backend: "endpoint" (default)
	// or "openai".
	Provider string `yaml:"provider,omitempty"`
	// BaseURL is the translation service URL.
	BaseURL string `yaml:"base_url,omitempty"`
	// Model is the model identifier (openai provider).
	Model string `yaml:"model,omitempty"`
	// Proxy is an optional HTTP/HTTPS proxy URL.
	Proxy string `yaml:"proxy,omitempty"`
	// TimeoutSeconds bounds each translation call (default 120).
	TimeoutSeconds int `yaml:"timeout_seconds,omitempty"`

	// Cache configures the optional translation cache.
	Cache CacheConfig `yaml:"cache,omitempty"`

	// Git configures committing the translated files.
	Git GitConfig `yaml:"git,omitempty"`
	// PR configures opening a GitHub pull request after pushing.
	PR PRConfig `yaml:"pr,omitempty"`
}

// Exclude mirrors translate.Exclusions in YAML form.
type Exclude struct {
	// Keys match the final path segment exactly.
	Keys []string `yaml:"keys,omitempty"`
	// Paths are glob patterns over dot-paths ("nav.*", "legal.**").
	Paths []string `yaml:"paths,omitempty"`
}

// CacheConfig selects and parameterizes the translation cache.
type CacheConfig struct {
	// Backend: "" (disabled), "memory", or "redis".
	Backend string `yaml:"backend,omitempty"`
	// RedisURL is the redis connection URL (redis backend).
	RedisURL string `yaml:"redis_url,omitempty"`
	// TTLHours is the cache entry lifetime (0 = no expiry).
	TTLHours int `yaml:"ttl_hours,omitempty"`
}

// GitConfig controls the commit/push step after a successful run.
type GitConfig struct {
	// Commit enables committing changed files.
	Commit bool `yaml:"commit,omitempty"`
	// Branch is the branch to commit on (default "locsync/translations").
	Branch string `yaml:"branch,omitempty"`
	// Remote is the push remote (default "origin").
	Remote string `yaml:"remote,omitempty"`
	// Message is the commit message (default "Update translations").
	Message string `yaml:"message,omitempty"`
	// Push enables pushing the branch after committing.
	Push bool `yaml:"push,omitempty"`
}

// PRConfig controls opening a pull request after pushing.
type PRConfig struct {
	// Open enables PR creation. Requires Git.Commit and Git.Push.
	Open bool `yaml:"open,omitempty"`
	// Repo is the "owner/name" GitHub repository.
	Repo string `yaml:"repo,omitempty"`
	// Base is the PR base branch (default "main").
	Base string `yaml:"base,omitempty"`
	// Title is the PR title (default "Update translations").
	Title string `yaml:"title,omitempty"`
	// BaseURL overrides the GitHub API URL (GitHub Enterprise).
	BaseURL string `yaml:"api_base_url,omitempty"`
}

// ---------------------------------------------------------------------------
// Loading
// ---------------------------------------------------------------------------

// Load reads .locsync.yaml from rootDir (missing file yields a zero
// config), overlays LOCSYNC_* environment variables, applies defaults
// and validates. Relative source/output paths are resolved against
// rootDir.
func Load(rootDir string) (*Config, error) {
	cfg := &Config{}

	path := filepath.Join(rootDir, FileName)
	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("reading %s: %w", path, err)
		}
	} else if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	cfg.applyEnv()
	cfg.applyDefaults()
	cfg.resolvePaths(rootDir)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv overlays LOCSYNC_* variables onto the file config. Env wins
// over the file; flags (applied by the CLI after Load) win over both.
func (c *Config) applyEnv() {
	if v := os.Getenv("LOCSYNC_SOURCE_FILE"); v != "" {
		c.SourceFile = v
	}
	if v := os.Getenv("LOCSYNC_SOURCE_DIR"); v != "" {
		c.SourceDir = v
	}
	if v := os.Getenv("LOCSYNC_OUTPUT_DIR"); v != "" {
		c.OutputDir = v
	}
	if v := os.Getenv("LOCSYNC_SOURCE_LANGUAGE"); v != "" {
		c.SourceLanguage = v
	}
	if v := os.Getenv("LOCSYNC_LANGUAGES"); v != "" {
		c.Languages = splitList(v)
	}
	if v := os.Getenv("LOCSYNC_PROVIDER"); v != "" {
		c.Provider = v
	}
	if v := os.Getenv("LOCSYNC_BASE_URL"); v != "" {
		c.BaseURL = v
	}
	if v := os.Getenv("LOCSYNC_MODEL"); v != "" {
		c.Model = v
	}
	if v := os.Getenv("LOCSYNC_PROXY"); v != "" {
		c.Proxy = v
	}
	if v := os.Getenv("LOCSYNC_TIMEOUT_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.TimeoutSeconds = n
		}
	}
	if v := os.Getenv("LOCSYNC_CACHE_BACKEND"); v != "" {
		c.Cache.Backend = v
	}
	if v := os.Getenv("LOCSYNC_REDIS_URL"); v != "" {
		c.Cache.RedisURL = v
	}
}

func (c *Config) applyDefaults() {
	if c.SourceLanguage == "" {
		c.SourceLanguage = "en"
	}
	if c.Git.Branch == "" {
		c.Git.Branch = "locsync/translations"
	}
	if c.Git.Remote == "" {
		c.Git.Remote = "origin"
	}
	if c.Git.Message == "" {
		c.Git.Message = "Update translations"
	}
	if c.PR.Base == "" {
		c.PR.Base = "main"
	}
	if c.PR.Title == "" {
		c.PR.Title = c.Git.Message
	}
}

func (c *Config) resolvePaths(rootDir string) {
	resolve := func(p string) string {
		if p == "" || filepath.IsAbs(p) {
			return p
		}
		return filepath.Join(rootDir, p)
	}
	c.SourceFile = resolve(c.SourceFile)
	c.SourceDir = resolve(c.SourceDir)
	c.OutputDir = resolve(c.OutputDir)
}

// Timeout returns the configured per-call timeout.
func (c *Config) Timeout() time.Duration {
	if c.TimeoutSeconds > 0 {
		return time.Duration(c.TimeoutSeconds) * time.Second
	}
	return 0
}

// ---------------------------------------------------------------------------
// Validation
// ---------------------------------------------------------------------------

// Validate checks the mutually-exclusive source inputs, the language
// list and the provider selection.
func (c *Config) Validate() error {
	switch {
	case c.SourceFile == "" && c.SourceDir == "":
		return fmt.Errorf("no source configured: set source_file or source_dir")
	case c.SourceFile != "" && c.SourceDir != "":
		return fmt.Errorf("source_file and source_dir are mutually exclusive")
	}

	if c.SourceFile != "" && !localefile.Supported(c.SourceFile) {
		return fmt.Errorf("unsupported source file %s (supported: %s)",
			c.SourceFile, strings.Join(localefile.SupportedExtensions, ", "))
	}

	if len(c.Languages) == 0 {
		return fmt.Errorf("no target languages configured")
	}
	for _, lang := range c.Languages {
		if !langmeta.Valid(lang) {
			return fmt.Errorf("invalid target language code %q", lang)
		}
	}
	if !langmeta.Valid(c.SourceLanguage) {
		return fmt.Errorf("invalid source language code %q", c.SourceLanguage)
	}

	switch c.Provider {
	case "", "endpoint", "openai":
	default:
		return fmt.Errorf("unknown provider %q (valid: endpoint, openai)", c.Provider)
	}

	switch c.Cache.Backend {
	case "", "memory", "redis":
	default:
		return fmt.Errorf("unknown cache backend %q (valid: memory, redis)", c.Cache.Backend)
	}
	if c.Cache.Backend == "redis" && c.Cache.RedisURL == "" {
		return fmt.Errorf("cache backend redis requires redis_url")
	}

	if c.PR.Open {
		if !c.Git.Commit || !c.Git.Push {
			return fmt.Errorf("pr.open requires git.commit and git.push")
		}
		if c.PR.Repo == "" {
			return fmt.Errorf("pr.open requires pr.repo (owner/name)")
		}
	}

	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
