package config

import (
	"context"
	"fmt"
	"strings"

	mapstructure "github.com/go-viper/mapstructure/v2"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix is the prefix for all assetferry environment variables.
const EnvPrefix = "ASSETFERRY"

// Load resolves runtime configuration from the environment.
//
// A .env file in the working directory is loaded first (missing is
// fine), then environment variables, then any explicit overrides.
// Overrides are nested maps keyed the same way as the mapstructure
// tags, and later overrides win.
func Load(ctx context.Context, overrides ...map[string]any) (*Config, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// Best effort: local development convenience only.
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// AutomaticEnv resolves keys on access, not during Unmarshal, so
	// every key we decode needs an explicit binding.
	bindings := map[string][]string{
		"cloudinary.url":        {"ASSETFERRY_CLOUDINARY_URL", "CLOUDINARY_URL"},
		"cloudinary.cloud_name": {"ASSETFERRY_CLOUDINARY_CLOUD_NAME"},
		"cloudinary.api_key":    {"ASSETFERRY_CLOUDINARY_API_KEY"},
		"cloudinary.api_secret": {"ASSETFERRY_CLOUDINARY_API_SECRET"},
		"logging.level":         {"ASSETFERRY_LOG_LEVEL"},
		"fetch.timeout":         {"ASSETFERRY_FETCH_TIMEOUT"},
	}
	for key, envs := range bindings {
		if err := v.BindEnv(append([]string{key}, envs...)...); err != nil {
			return nil, fmt.Errorf("failed to bind %s: %w", key, err)
		}
	}

	for _, o := range overrides {
		if err := v.MergeConfigMap(o); err != nil {
			return nil, fmt.Errorf("failed to merge overrides: %w", err)
		}
	}

	var cfg Config
	err := v.Unmarshal(&cfg, viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	)))
	if err != nil {
		return nil, fmt.Errorf("failed to decode configuration: %w", err)
	}

	if err := resolveCredentials(&cfg.Cloudinary); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// setDefaults registers default values on the viper instance.
func setDefaults(v *viper.Viper) {
	v.SetDefault("logging.level", "info")
	v.SetDefault("fetch.timeout", "30s")
}

// resolveCredentials fills credential fields from the DSN form. Split
// variables already present are never overwritten.
func resolveCredentials(c *CloudinaryConfig) error {
	if c.URL == "" {
		return nil
	}

	cloudName, apiKey, apiSecret, err := parseCloudinaryURL(c.URL)
	if err != nil {
		return err
	}

	if c.CloudName == "" {
		c.CloudName = cloudName
	}
	if c.APIKey == "" {
		c.APIKey = apiKey
	}
	if c.APISecret == "" {
		c.APISecret = apiSecret
	}
	return nil
}
