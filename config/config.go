// Package config loads runtime settings from the environment (with .env
// support) and group definitions from a groups.yaml file.
package config

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	loctool "github.com/astrateam-net/confluence-localization-toolkit"
)

// Config holds all runtime settings.
type Config struct {
	// Translation providers
	TranslationService string // "deepl", "google", "openai", "mock" or "" for auto
	DeepLAPIKey        string
	GoogleAPIKey       string
	OpenAIAPIKey       string
	OpenAIModel        string

	// Locales
	SourceLocale string
	TargetLocale string

	// Confluence
	ConfluenceURL         string
	ConfluenceBearerToken string

	// Storage
	DatabasePath string
	BatchSize    int

	// Client-side pacing, provider requests per minute
	RequestsPerMinute int

	// Cache
	RedisURL string
	CacheTTL time.Duration

	// Logging
	LogLevel  string // "debug", "info", "warn", "error"
	LogFormat string // "text" or "json"
}

// Load reads configuration from the environment. A .env file in the
// working directory is merged in first when present; real environment
// variables win.
func Load() (*Config, error) {
	// .env is optional; containers and CI provide the variables directly.
	_ = godotenv.Load()

	cfg := &Config{
		TranslationService:    strings.ToLower(os.Getenv("TRANSLATION_SERVICE")),
		DeepLAPIKey:           os.Getenv("DEEPL_API_KEY"),
		GoogleAPIKey:          os.Getenv("GOOGLE_API_KEY"),
		OpenAIAPIKey:          os.Getenv("OPENAI_API_KEY"),
		OpenAIModel:           os.Getenv("OPENAI_MODEL"),
		SourceLocale:          envOr("SOURCE_LANGUAGE", loctool.DefaultSourceLocale),
		TargetLocale:          envOr("TARGET_LANGUAGE", loctool.DefaultTargetLocale),
		ConfluenceURL:         os.Getenv("CONFLUENCE_URL"),
		ConfluenceBearerToken: os.Getenv("CONFLUENCE_BEARER_TOKEN"),
		DatabasePath:          envOr("TRANSLATION_DB", "db/translations.db"),
		RedisURL:              os.Getenv("REDIS_URL"),
		LogLevel:              envOr("LOG_LEVEL", "info"),
		LogFormat:             envOr("LOG_FORMAT", "text"),
	}

	cfg.TargetLocale = loctool.NormalizeLocale(cfg.TargetLocale)

	batchSize := envOr("TRANSLATION_BATCH_SIZE", "")
	if batchSize != "" {
		n, err := strconv.Atoi(batchSize)
		if err != nil || n <= 0 {
			return nil, fmt.Errorf("config: TRANSLATION_BATCH_SIZE must be a positive integer, got %q", batchSize)
		}
		cfg.BatchSize = n
	}

	rpm := envOr("TRANSLATION_RPM", "")
	if rpm != "" {
		n, err := strconv.Atoi(rpm)
		if err != nil || n <= 0 {
			return nil, fmt.Errorf("config: TRANSLATION_RPM must be a positive integer, got %q", rpm)
		}
		cfg.RequestsPerMinute = n
	}

	ttl := envOr("CACHE_TTL", "")
	if ttl != "" {
		d, err := time.ParseDuration(ttl)
		if err != nil {
			return nil, fmt.Errorf("config: CACHE_TTL must be a duration like 24h, got %q", ttl)
		}
		cfg.CacheTTL = d
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.TranslationService {
	case "", "deepl", "google", "openai", "mock":
	default:
		return fmt.Errorf("config: unknown TRANSLATION_SERVICE %q", c.TranslationService)
	}

	if !loctool.ValidLocale(c.TargetLocale) {
		return fmt.Errorf("config: invalid TARGET_LANGUAGE %q", c.TargetLocale)
	}

	switch c.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("config: LOG_FORMAT must be text or json, got %q", c.LogFormat)
	}

	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// Group is one entry in groups.yaml.
type Group struct {
	// Name is a human-readable label for the registry.
	Name string `yaml:"name"`
	// Description is stored in the registry (optional).
	Description string `yaml:"description,omitempty"`
	// Plugins lists the Confluence plugin keys fetched into this group.
	Plugins []string `yaml:"plugins"`
}

// GroupsFile is the top-level groups.yaml structure.
type GroupsFile struct {
	Groups map[string]Group `yaml:"groups"`
}

// LoadGroups reads group definitions from a YAML file.
func LoadGroups(path string) (*GroupsFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	var gf GroupsFile
	if err := yaml.Unmarshal(data, &gf); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}

	for key, group := range gf.Groups {
		if len(group.Plugins) == 0 {
			return nil, fmt.Errorf("config: group %q declares no plugins", key)
		}
	}
	return &gf, nil
}

// GroupKeys returns the group keys in sorted order.
func (f *GroupsFile) GroupKeys() []string {
	keys := make([]string, 0, len(f.Groups))
	for key := range f.Groups {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
