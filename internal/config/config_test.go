package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stacklok/nc-bridge/internal/bridgeerrors"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("NC_BRIDGE_NEXTCLOUD_HOST", "https://cloud.example.com")
	t.Setenv("NC_BRIDGE_TOKEN_ENCRYPTION_KEY", "dGVzdC1rZXktMzItYnl0ZXMtbG9uZy1mb3IteGNoYWNoYQ==")
	t.Setenv("NC_BRIDGE_MCP_SERVER_URL", "https://bridge.example.com")
}

func TestLoad_MissingHost(t *testing.T) {
	_, err := Load("")
	require.Error(t, err)
	assert.True(t, bridgeerrors.IsConfig(err))
}

func TestLoad_SingleUserBasicFromEnv(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("NC_BRIDGE_NEXTCLOUD_USERNAME", "alice")
	t.Setenv("NC_BRIDGE_NEXTCLOUD_PASSWORD", "s3cret")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "alice", cfg.NextcloudUsername)
	assert.True(t, cfg.hasSingleUserBasic())
	assert.Equal(t, "Bearer", cfg.OIDCTokenType)
	assert.Equal(t, 9090, cfg.MetricsPort)
}

func TestLoad_FromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := "nextcloud_host: https://cloud.example.com\n" +
		"token_encryption_key: dGVzdA==\n" +
		"mcp_server_url: https://bridge.example.com\n" +
		"oidc_discovery_url: https://cloud.example.com/.well-known/openid-configuration\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "https://cloud.example.com", cfg.NextcloudHost)
}

func TestValidate_RequiresEncryptionKey(t *testing.T) {
	cfg := &Config{NextcloudHost: "https://cloud.example.com", MCPServerURL: "https://bridge.example.com"}
	err := cfg.Validate()
	require.Error(t, err)
	assert.True(t, bridgeerrors.IsConfig(err))
}

func TestHasStaticOIDCCredentials(t *testing.T) {
	cfg := &Config{}
	assert.False(t, cfg.HasStaticOIDCCredentials())
	cfg.OIDCClientID = "abc"
	cfg.OIDCClientSecret = "def"
	assert.True(t, cfg.HasStaticOIDCCredentials())
}
