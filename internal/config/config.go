// Package config resolves runtime configuration from the environment.
//
// The job manifest describes WHAT to migrate; this package resolves the
// secrets and process-level settings that never belong in a manifest:
// catalog API credentials, log level, and fetch timeouts. Values come
// from environment variables, with a .env file loaded first for local
// development.
package config

import (
	"fmt"
	"net/url"
	"time"
)

// Config is the resolved runtime configuration.
type Config struct {
	// Cloudinary holds source catalog credentials.
	Cloudinary CloudinaryConfig `mapstructure:"cloudinary"`

	// Logging configures the CLI logger.
	Logging LoggingConfig `mapstructure:"logging"`

	// Fetch configures content downloads.
	Fetch FetchConfig `mapstructure:"fetch"`
}

// CloudinaryConfig holds source catalog credentials.
//
// Credentials resolve from CLOUDINARY_URL (the DSN form the vendor's
// own tooling uses) or from the split ASSETFERRY_CLOUDINARY_* variables.
// Split variables win over the DSN when both are present.
type CloudinaryConfig struct {
	// URL is the DSN form: cloudinary://<api_key>:<api_secret>@<cloud_name>
	URL string `mapstructure:"url"`

	// CloudName is the catalog account.
	CloudName string `mapstructure:"cloud_name"`

	// APIKey and APISecret authenticate Admin API calls.
	APIKey    string `mapstructure:"api_key"`
	APISecret string `mapstructure:"api_secret"`
}

// LoggingConfig configures the CLI logger.
type LoggingConfig struct {
	// Level is the minimum log level (debug|info|warn|error).
	Level string `mapstructure:"level"`
}

// FetchConfig configures content downloads.
type FetchConfig struct {
	// Timeout bounds each asset download.
	Timeout time.Duration `mapstructure:"timeout"`
}

// HasCredentials reports whether a complete credential set was resolved.
func (c *CloudinaryConfig) HasCredentials() bool {
	return c.CloudName != "" && c.APIKey != "" && c.APISecret != ""
}

// parseCloudinaryURL splits a cloudinary:// DSN into its credential parts.
func parseCloudinaryURL(dsn string) (cloudName, apiKey, apiSecret string, err error) {
	u, err := url.Parse(dsn)
	if err != nil {
		return "", "", "", fmt.Errorf("invalid CLOUDINARY_URL: %w", err)
	}
	if u.Scheme != "cloudinary" {
		return "", "", "", fmt.Errorf("invalid CLOUDINARY_URL: scheme must be cloudinary, got %q", u.Scheme)
	}
	if u.Host == "" {
		return "", "", "", fmt.Errorf("invalid CLOUDINARY_URL: missing cloud name")
	}
	if u.User == nil {
		return "", "", "", fmt.Errorf("invalid CLOUDINARY_URL: missing credentials")
	}

	apiKey = u.User.Username()
	apiSecret, _ = u.User.Password()
	if apiKey == "" || apiSecret == "" {
		return "", "", "", fmt.Errorf("invalid CLOUDINARY_URL: missing API key or secret")
	}

	return u.Host, apiKey, apiSecret, nil
}
