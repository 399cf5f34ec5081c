// Package config resolves nc-bridge's runtime configuration from
// environment variables and an optional config file via viper, binds it
// onto a typed Config struct, and validates the combination of keys
// needed to pick an authentication mode.
package config

import (
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/stacklok/nc-bridge/internal/bridgeerrors"
)

// Config is the fully-resolved, validated runtime configuration.
type Config struct {
	NextcloudHost string `mapstructure:"nextcloud_host"`

	NextcloudUsername string `mapstructure:"nextcloud_username"`
	NextcloudPassword string `mapstructure:"nextcloud_password"`

	OIDCDiscoveryURL    string `mapstructure:"oidc_discovery_url"`
	OIDCClientID        string `mapstructure:"oidc_client_id"`
	OIDCClientSecret    string `mapstructure:"oidc_client_secret"`
	OIDCTokenType       string `mapstructure:"oidc_token_type"`
	OIDCJWKSURI         string `mapstructure:"oidc_jwks_uri"`
	PublicIssuerURL     string `mapstructure:"public_issuer_url"`

	MCPServerURL        string `mapstructure:"mcp_server_url"`
	NextcloudResourceURI string `mapstructure:"nextcloud_resource_uri"`

	TokenEncryptionKey string `mapstructure:"token_encryption_key"`
	TokenStorageDB     string `mapstructure:"token_storage_db"`

	EnableOfflineAccess bool `mapstructure:"enable_offline_access"`
	EnableTokenExchange bool `mapstructure:"enable_token_exchange"`

	VectorSyncEnabled          bool `mapstructure:"vector_sync_enabled"`
	VectorSyncQueueMaxSize     int  `mapstructure:"vector_sync_queue_max_size"`
	VectorSyncProcessorWorkers int  `mapstructure:"vector_sync_processor_workers"`

	AllowedMCPClients []string `mapstructure:"allowed_mcp_clients"`
	EnableDCR         bool     `mapstructure:"enable_dcr"`

	MultiUserBasicEnabled bool `mapstructure:"multi_user_basic_enabled"`

	MetricsEnabled       bool   `mapstructure:"metrics_enabled"`
	MetricsPort          int    `mapstructure:"metrics_port"`
	OTelExporterEndpoint string `mapstructure:"otel_exporter_otlp_endpoint"`
	OTelServiceName      string `mapstructure:"otel_service_name"`
	OTelSamplerArg       float64 `mapstructure:"otel_traces_sampler_arg"`

	ListenAddress string `mapstructure:"listen_address"`

	MaxTokenExchangeCacheTTL time.Duration `mapstructure:"max_token_exchange_cache_ttl"`
}

// setDefaults fills in operational defaults; anything not listed here is
// left at viper's zero value.
func setDefaults(v *viper.Viper) {
	v.SetDefault("oidc_token_type", "Bearer")
	v.SetDefault("token_storage_db", "nc-bridge.db")
	v.SetDefault("vector_sync_queue_max_size", 100)
	v.SetDefault("vector_sync_processor_workers", 4)
	v.SetDefault("metrics_enabled", true)
	v.SetDefault("metrics_port", 9090)
	v.SetDefault("otel_service_name", "nc-bridge")
	v.SetDefault("otel_traces_sampler_arg", 1.0)
	v.SetDefault("listen_address", ":8080")
	v.SetDefault("max_token_exchange_cache_ttl", 5*time.Minute)
}

// Load reads configuration from the environment (prefix NC_BRIDGE) and,
// if configPath is non-empty, from a YAML/TOML file, then binds and
// validates it. Returns a bridgeerrors.ConfigError on any fatal problem.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("NC_BRIDGE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	t := reflect.TypeOf(Config{})
	for i := 0; i < t.NumField(); i++ {
		if tag := t.Field(i).Tag.Get("mapstructure"); tag != "" {
			_ = v.BindEnv(tag)
		}
	}

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, bridgeerrors.NewConfigError(fmt.Sprintf("reading config file %s", configPath), err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, bridgeerrors.NewConfigError("unmarshalling configuration", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate enforces the startup-fatal invariants: a resolvable upstream
// host and at least one viable credential path (static Basic pair, or an
// OIDC resource server configuration).
func (c *Config) Validate() error {
	if c.NextcloudHost == "" {
		return bridgeerrors.NewConfigError("nextcloud_host is required", nil)
	}

	if c.TokenEncryptionKey == "" {
		return bridgeerrors.NewConfigError("token_encryption_key is required", nil)
	}

	if c.MCPServerURL == "" {
		return bridgeerrors.NewConfigError("mcp_server_url is required", nil)
	}

	if c.hasSingleUserBasic() {
		return nil
	}

	// MultiUserBasic or OAuthResourceServer both eventually need an OIDC
	// discovery endpoint or explicit static credentials — full resolution
	// happens in internal/oidcclient; here we only check the document is
	// at least specified one way or another when no fixed Basic pair is set.
	if c.OIDCDiscoveryURL == "" && c.NextcloudHost == "" {
		return bridgeerrors.NewConfigError("no resolvable OIDC discovery URL or nextcloud_host", nil)
	}
	return nil
}

func (c *Config) hasSingleUserBasic() bool {
	return c.NextcloudUsername != "" && c.NextcloudPassword != ""
}

// HasStaticOIDCCredentials reports whether static client_id/client_secret
// were configured, skipping dynamic client registration.
func (c *Config) HasStaticOIDCCredentials() bool {
	return c.OIDCClientID != "" && c.OIDCClientSecret != ""
}
