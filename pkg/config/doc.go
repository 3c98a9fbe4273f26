// Package config provides configuration management for the settings service.
//
// # Configuration Sources
//
// Values are resolved in order, later sources winning:
//
//   - Built-in defaults
//   - $SETTINGS_CONFIG_PATH/settings.yml (default /etc/tenant-settings/settings.yml)
//   - Environment variables
//
// `settingsctl configuration show` prints every attribute with its source.
//
// # Key Configuration Options
//
//   - DATABASE_URL: postgres:// or sqlite:// connection URL
//   - SETTINGS_CACHE_BACKEND: none, memory or redis
//   - SETTINGS_TENANT_HEADER: header carrying the tenant id
//   - SETTINGS_LOG_LEVEL: logging verbosity
//   - SETTINGS_DATA_KEY: encryption key (environment only, never in the file)
package config
