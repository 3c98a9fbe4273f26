package config

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/caarlos0/env/v10"
	"gopkg.in/yaml.v3"
)

const (
	DefaultConfigPath = "/etc/tenant-settings"
	ConfigFileName    = "settings.yml"
)

// Source names reported by Attributes.
const (
	SourceDefault     = "default"
	SourceFile        = "file"
	SourceEnvironment = "environment"
)

//go:generate go run github.com/dmarkham/enumer -type CacheBackend -trimprefix CacheBackend -transform lower -yaml -text -output cache_backend.gen.go

// CacheBackend selects where resolved settings are cached.
type CacheBackend int

const (
	CacheBackendNone CacheBackend = iota
	CacheBackendMemory
	CacheBackendRedis
)

// SettingsConfig holds the service configuration. Data keys are not part of
// it: they are read from SETTINGS_DATA_KEY and SETTINGS_PREVIOUS_DATA_KEYS
// only, never from a file.
type SettingsConfig struct {
	// DatabaseURL is a postgres:// or sqlite:// URL
	DatabaseURL string `yaml:"database_url" env:"DATABASE_URL"`

	// CacheBackend is one of none, memory or redis
	CacheBackend CacheBackend `yaml:"cache_backend" env:"SETTINGS_CACHE_BACKEND"`

	// CacheTTL is the lifetime of cached results in seconds; 0 keeps them
	// until invalidated
	CacheTTL int `yaml:"cache_ttl" env:"SETTINGS_CACHE_TTL"`

	RedisAddr string `yaml:"redis_addr" env:"SETTINGS_REDIS_ADDR"`

	// TenantHeader is the request header carrying the tenant id
	TenantHeader string `yaml:"tenant_header" env:"SETTINGS_TENANT_HEADER"`

	// TenantBaseDomain enables subdomain tenant resolution
	// (school-a.<base domain>) when set
	TenantBaseDomain string `yaml:"tenant_base_domain" env:"SETTINGS_TENANT_BASE_DOMAIN"`

	// StrictKeys rejects settings keys missing from the registry
	StrictKeys bool `yaml:"strict_keys" env:"SETTINGS_STRICT_KEYS"`

	AuditEnabled bool `yaml:"audit_enabled" env:"SETTINGS_AUDIT_ENABLED"`

	// LogLevel is one of debug, info, warn, error
	LogLevel string `yaml:"log_level" env:"SETTINGS_LOG_LEVEL"`

	// RateLimit is the per-tenant request rate in requests per second;
	// 0 disables limiting
	RateLimit float64 `yaml:"rate_limit" env:"SETTINGS_RATE_LIMIT"`
	RateBurst int     `yaml:"rate_burst" env:"SETTINGS_RATE_BURST"`

	// DefaultsFile is applied as global defaults by `defaults apply`
	DefaultsFile string `yaml:"defaults_file" env:"SETTINGS_DEFAULTS_FILE"`

	// TokenIssuer and TokenAudience are required of gateway tokens when
	// SETTINGS_TOKEN_KEY is set
	TokenIssuer   string `yaml:"token_issuer" env:"SETTINGS_TOKEN_ISSUER"`
	TokenAudience string `yaml:"token_audience" env:"SETTINGS_TOKEN_AUDIENCE"`

	// sources tracks where each value came from
	sources map[string]string

	// configFilePath is the path to the config file
	configFilePath string
}

// Attribute represents a configuration attribute with its value and source
type Attribute struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Source string `json:"source"`
}

// Global singleton config
var (
	globalConfig *SettingsConfig
	configMu     sync.RWMutex
)

// Get returns the global configuration, loading it if necessary
func Get() *SettingsConfig {
	configMu.RLock()
	if globalConfig != nil {
		configMu.RUnlock()
		return globalConfig
	}
	configMu.RUnlock()

	configMu.Lock()
	defer configMu.Unlock()

	if globalConfig == nil {
		cfg, err := Load()
		if err != nil {
			globalConfig = newDefault()
		} else {
			globalConfig = cfg
		}
	}
	return globalConfig
}

// Reload reloads the configuration from file and environment
func Reload() error {
	cfg, err := Load()
	if err != nil {
		return err
	}

	configMu.Lock()
	globalConfig = cfg
	configMu.Unlock()
	return nil
}

func newDefault() *SettingsConfig {
	c := &SettingsConfig{
		CacheBackend: CacheBackendNone,
		CacheTTL:     300,
		RedisAddr:    "localhost:6379",
		TenantHeader: "X-Tenant-ID",
		AuditEnabled: true,
		LogLevel:     "info",
		RateBurst:    20,
		sources:      make(map[string]string),
	}
	for _, name := range attributeNames() {
		c.sources[name] = SourceDefault
	}
	return c
}

// envAttributes maps environment variables to attribute names.
var envAttributes = map[string]string{
	"DATABASE_URL":                "database_url",
	"SETTINGS_CACHE_BACKEND":      "cache_backend",
	"SETTINGS_CACHE_TTL":          "cache_ttl",
	"SETTINGS_REDIS_ADDR":         "redis_addr",
	"SETTINGS_TENANT_HEADER":      "tenant_header",
	"SETTINGS_TENANT_BASE_DOMAIN": "tenant_base_domain",
	"SETTINGS_STRICT_KEYS":        "strict_keys",
	"SETTINGS_AUDIT_ENABLED":      "audit_enabled",
	"SETTINGS_LOG_LEVEL":          "log_level",
	"SETTINGS_RATE_LIMIT":         "rate_limit",
	"SETTINGS_RATE_BURST":         "rate_burst",
	"SETTINGS_DEFAULTS_FILE":      "defaults_file",
	"SETTINGS_TOKEN_ISSUER":       "token_issuer",
	"SETTINGS_TOKEN_AUDIENCE":     "token_audience",
}

func attributeNames() []string {
	return []string{
		"database_url", "cache_backend", "cache_ttl", "redis_addr",
		"tenant_header", "tenant_base_domain", "strict_keys",
		"audit_enabled", "log_level", "rate_limit", "rate_burst",
		"defaults_file", "token_issuer", "token_audience",
	}
}

// Load reads defaults, then the config file, then the environment. Later
// sources win.
func Load() (*SettingsConfig, error) {
	configPath := os.Getenv("SETTINGS_CONFIG_PATH")
	if configPath == "" {
		configPath = DefaultConfigPath
	}
	return LoadFrom(filepath.Join(configPath, ConfigFileName))
}

// LoadFrom is Load with an explicit config file path. A missing file is
// not an error.
func LoadFrom(path string) (*SettingsConfig, error) {
	config := newDefault()
	config.configFilePath = path

	if data, err := os.ReadFile(path); err == nil {
		if err := config.applyFile(data); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	err := env.ParseWithOptions(config, env.Options{
		OnSet: func(tag string, value interface{}, isDefault bool) {
			if s, ok := value.(string); ok && s == "" {
				return
			}
			if name, ok := envAttributes[tag]; ok && !isDefault {
				config.sources[name] = SourceEnvironment
			}
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}

	return config, nil
}

// applyFile decodes data over c. Only keys present in the file change, so
// a file can turn a default-true flag off.
func (c *SettingsConfig) applyFile(data []byte) error {
	var present map[string]any
	if err := yaml.Unmarshal(data, &present); err != nil {
		return err
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return err
	}
	for name := range present {
		if _, ok := c.sources[name]; ok {
			c.sources[name] = SourceFile
		}
	}
	return nil
}

// ConfigFilePath returns the path to the config file
func (c *SettingsConfig) ConfigFilePath() string {
	return c.configFilePath
}

// Source returns the source of a configuration attribute
func (c *SettingsConfig) Source(name string) string {
	if c.sources == nil {
		return SourceDefault
	}
	if s, ok := c.sources[name]; ok {
		return s
	}
	return SourceDefault
}

// CacheTTLDuration returns the cache TTL as a duration
func (c *SettingsConfig) CacheTTLDuration() time.Duration {
	return time.Duration(c.CacheTTL) * time.Second
}

// SlogLevel maps LogLevel to a slog level, defaulting to info.
func (c *SettingsConfig) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Validate validates the configuration
func (c *SettingsConfig) Validate() error {
	if !c.CacheBackend.IsACacheBackend() {
		return fmt.Errorf("invalid cache_backend: %s (want one of %s)", c.CacheBackend, strings.Join(CacheBackendStrings(), ", "))
	}
	if c.CacheBackend == CacheBackendRedis && c.RedisAddr == "" {
		return fmt.Errorf("redis_addr is required when cache_backend is redis")
	}
	if c.CacheTTL < 0 {
		return fmt.Errorf("cache_ttl must not be negative")
	}
	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("invalid log_level: %s", c.LogLevel)
	}
	if strings.TrimSpace(c.TenantHeader) == "" {
		return fmt.Errorf("tenant_header must not be empty")
	}
	if c.RateLimit < 0 || c.RateBurst < 0 {
		return fmt.Errorf("rate_limit and rate_burst must not be negative")
	}
	if c.RateLimit > 0 && c.RateBurst == 0 {
		return fmt.Errorf("rate_burst must be positive when rate_limit is set")
	}
	return nil
}

// redactURL hides the password of a database URL.
func redactURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.User == nil {
		return raw
	}
	return u.Redacted()
}

// Attributes returns all configuration attributes with their values and sources
func (c *SettingsConfig) Attributes() []Attribute {
	return []Attribute{
		{Name: "database_url", Value: redactURL(c.DatabaseURL), Source: c.Source("database_url")},
		{Name: "cache_backend", Value: c.CacheBackend.String(), Source: c.Source("cache_backend")},
		{Name: "cache_ttl", Value: strconv.Itoa(c.CacheTTL), Source: c.Source("cache_ttl")},
		{Name: "redis_addr", Value: c.RedisAddr, Source: c.Source("redis_addr")},
		{Name: "tenant_header", Value: c.TenantHeader, Source: c.Source("tenant_header")},
		{Name: "tenant_base_domain", Value: c.TenantBaseDomain, Source: c.Source("tenant_base_domain")},
		{Name: "strict_keys", Value: strconv.FormatBool(c.StrictKeys), Source: c.Source("strict_keys")},
		{Name: "audit_enabled", Value: strconv.FormatBool(c.AuditEnabled), Source: c.Source("audit_enabled")},
		{Name: "log_level", Value: c.LogLevel, Source: c.Source("log_level")},
		{Name: "rate_limit", Value: strconv.FormatFloat(c.RateLimit, 'f', -1, 64), Source: c.Source("rate_limit")},
		{Name: "rate_burst", Value: strconv.Itoa(c.RateBurst), Source: c.Source("rate_burst")},
		{Name: "defaults_file", Value: c.DefaultsFile, Source: c.Source("defaults_file")},
		{Name: "token_issuer", Value: c.TokenIssuer, Source: c.Source("token_issuer")},
		{Name: "token_audience", Value: c.TokenAudience, Source: c.Source("token_audience")},
	}
}

// FormatText returns a text representation of the configuration
func (c *SettingsConfig) FormatText() string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Config file: %s\n\n", c.configFilePath))
	sb.WriteString(fmt.Sprintf("%-22s %-40s %s\n", "NAME", "VALUE", "SOURCE"))
	sb.WriteString(fmt.Sprintf("%-22s %-40s %s\n", "----", "-----", "------"))

	for _, attr := range c.Attributes() {
		value := attr.Value
		if value == "" {
			value = "(not set)"
		}
		sb.WriteString(fmt.Sprintf("%-22s %-40s %s\n", attr.Name, value, attr.Source))
	}
	return sb.String()
}

// FormatJSON returns a JSON representation of the configuration
func (c *SettingsConfig) FormatJSON() (string, error) {
	result := map[string]interface{}{
		"config_file": c.configFilePath,
		"attributes":  c.Attributes(),
	}
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// SplitList splits a comma-separated value, dropping empty items.
func SplitList(s string) []string {
	parts := strings.Split(s, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			result = append(result, p)
		}
	}
	return result
}
