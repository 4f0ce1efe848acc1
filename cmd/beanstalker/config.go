package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/spf13/viper"

	coreprovider "github.com/artpar/beanstalker/internal/core/provider"
	"github.com/artpar/beanstalker/internal/core/retention"
	"github.com/artpar/beanstalker/internal/shell/deployer"
	"github.com/artpar/beanstalker/internal/shell/platform"
)

// ErrUnknownDeployment is returned for a --deployment name missing from the config.
var ErrUnknownDeployment = errors.New("unknown deployment")

// =============================================================================
// Config Types
// =============================================================================

// Config holds all application configuration.
type Config struct {
	Log         LogConfig                   `mapstructure:"log"`
	AWS         AWSConfig                   `mapstructure:"aws"`
	Storage     StorageConfig               `mapstructure:"storage"`
	Cleanup     CleanupConfig               `mapstructure:"cleanup"`
	Metrics     MetricsConfig               `mapstructure:"metrics"`
	Deployments map[string]DeploymentConfig `mapstructure:"deployments"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// AWSConfig holds the account-wide connection settings.
type AWSConfig struct {
	Region            string `mapstructure:"region"`
	Profile           string `mapstructure:"profile"`
	S3Endpoint        string `mapstructure:"s3_endpoint"`
	BeanstalkEndpoint string `mapstructure:"beanstalk_endpoint"`
	AccessKeyID       string `mapstructure:"access_key_id"`
	SecretAccessKey   string `mapstructure:"secret_access_key"`
	SessionToken      string `mapstructure:"session_token"`
	RoleARN           string `mapstructure:"role_arn"`
	Account           string `mapstructure:"account"`
	Role              string `mapstructure:"role"`
	SessionName       string `mapstructure:"session_name"`
}

// StorageConfig holds artifact storage configuration.
type StorageConfig struct {
	// Bucket overrides the platform-provided storage bucket.
	Bucket string `mapstructure:"bucket"`
}

// CleanupConfig holds retention sweep configuration.
type CleanupConfig struct {
	Keep              int     `mapstructure:"keep"`
	Concurrency       int     `mapstructure:"concurrency"`
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
}

// MetricsConfig holds Pushgateway configuration. Pushing is off when
// PushgatewayURL is empty.
type MetricsConfig struct {
	PushgatewayURL string `mapstructure:"pushgateway_url"`
	Job            string `mapstructure:"job"`
}

// DeploymentConfig is a named deployment target. Empty connection fields
// fall back to the aws section.
type DeploymentConfig struct {
	Application       string `mapstructure:"application"`
	Environment       string `mapstructure:"environment"`
	Template          string `mapstructure:"template"`
	Artifact          string `mapstructure:"artifact"`
	Region            string `mapstructure:"region"`
	Account           string `mapstructure:"account"`
	Role              string `mapstructure:"role"`
	RoleARN           string `mapstructure:"role_arn"`
	S3Endpoint        string `mapstructure:"s3_endpoint"`
	BeanstalkEndpoint string `mapstructure:"beanstalk_endpoint"`
}

// =============================================================================
// Config Loading
// =============================================================================

// LoadConfig loads configuration from file and environment.
func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("aws.region", "")
	v.SetDefault("aws.profile", "")
	v.SetDefault("aws.s3_endpoint", "")
	v.SetDefault("aws.beanstalk_endpoint", "")
	v.SetDefault("aws.access_key_id", "")
	v.SetDefault("aws.secret_access_key", "")
	v.SetDefault("aws.session_token", "")
	v.SetDefault("aws.role_arn", "")
	v.SetDefault("aws.account", "")
	v.SetDefault("aws.role", "")
	v.SetDefault("aws.session_name", platform.DefaultSessionName)
	v.SetDefault("storage.bucket", "")
	v.SetDefault("cleanup.keep", retention.DefaultKeep)
	v.SetDefault("cleanup.concurrency", 1)
	v.SetDefault("cleanup.requests_per_second", 0)
	v.SetDefault("metrics.pushgateway_url", "")
	v.SetDefault("metrics.job", "beanstalker")

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			// Only a file that exists but does not parse is an error.
			if _, ok := err.(viper.ConfigParseError); ok {
				return nil, fmt.Errorf("failed to parse config file: %w", err)
			}
		}
	}

	v.SetEnvPrefix("BEANSTALKER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

// Deployment returns the named deployment. An empty name yields an empty
// deployment, so every value comes from flags and the aws section.
func (c *Config) Deployment(name string) (DeploymentConfig, error) {
	if name == "" {
		return DeploymentConfig{}, nil
	}
	d, ok := c.Deployments[name]
	if !ok {
		return DeploymentConfig{}, fmt.Errorf("%w: %q", ErrUnknownDeployment, name)
	}
	return d, nil
}

// PlatformSettings merges a deployment's connection settings over the aws section.
func (c *Config) PlatformSettings(d DeploymentConfig) platform.Settings {
	base := coreprovider.CredentialSettings{
		Profile:         c.AWS.Profile,
		AccessKeyID:     c.AWS.AccessKeyID,
		SecretAccessKey: c.AWS.SecretAccessKey,
		SessionToken:    c.AWS.SessionToken,
		RoleARN:         c.AWS.RoleARN,
		Account:         c.AWS.Account,
		Role:            c.AWS.Role,
		SessionName:     c.AWS.SessionName,
	}
	override := coreprovider.CredentialSettings{
		RoleARN: d.RoleARN,
		Account: d.Account,
		Role:    d.Role,
	}

	return platform.Settings{
		Region:            coreprovider.Coalesce(d.Region, c.AWS.Region),
		S3Endpoint:        coreprovider.Coalesce(d.S3Endpoint, c.AWS.S3Endpoint),
		BeanstalkEndpoint: coreprovider.Coalesce(d.BeanstalkEndpoint, c.AWS.BeanstalkEndpoint),
		Bucket:            c.Storage.Bucket,
		Credentials:       coreprovider.Merge(base, override),
	}
}

// SweepConfig returns the cleanup settings for the deployer.
func (c *Config) SweepConfig() deployer.SweepConfig {
	return deployer.SweepConfig{
		Keep:              c.Cleanup.Keep,
		Concurrency:       c.Cleanup.Concurrency,
		RequestsPerSecond: c.Cleanup.RequestsPerSecond,
	}
}

// =============================================================================
// Logger Setup
// =============================================================================

// SetupLogger creates a logger with the configured level and format.
// Logs go to w so that command output on stdout stays machine-readable.
func SetupLogger(cfg *Config, w io.Writer) *slog.Logger {
	var level slog.Level
	switch strings.ToLower(cfg.Log.Level) {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn", "warning":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level: level,
	}

	var handler slog.Handler
	if strings.ToLower(cfg.Log.Format) == "json" {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}

	return slog.New(handler)
}
