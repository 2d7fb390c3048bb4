package config

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/storedir/store-directory/internal/secrets"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "Store Directory", cfg.App.Name)
	assert.Equal(t, 8080, cfg.App.Port)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, "./stores.db", cfg.Database.Path)
	assert.True(t, cfg.Database.AutoMigrate)
	assert.False(t, cfg.Database.IsPostgres())
	assert.Equal(t, "local", cfg.Storage.Mode)
	assert.Equal(t, 60*time.Second, cfg.Export.TimeoutDuration())
	assert.False(t, cfg.Export.RunOnStartup)
	assert.Equal(t, 60*time.Second, cfg.Server.RequestTimeoutDuration())
	assert.Contains(t, cfg.RateLimit.WhitelistPaths, "/health")
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	t.Setenv("APP_PORT", "9090")
	t.Setenv("DATABASE_DRIVER", "postgres")
	t.Setenv("DATABASE_HOST", "db.internal")
	t.Setenv("ADMIN_API_KEY", "secret-key")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.App.Port)
	assert.True(t, cfg.Database.IsPostgres())
	assert.Equal(t, "secret-key", cfg.Auth.APIKey)
	assert.Contains(t, cfg.Database.ConnectionString(), "host=db.internal")
}

type fakeSecrets map[string]string

func (f fakeSecrets) GetSecretOrEnv(_ context.Context, secretName, _ string) (string, error) {
	if v, ok := f[secretName]; ok {
		return v, nil
	}
	return "", errors.New("not found")
}

func TestApplySecrets(t *testing.T) {
	cfg := &Config{}
	cfg.Database.Password = "keep-me"

	applySecrets(context.Background(), cfg, fakeSecrets{
		"STORES-DB-HOST":            "pg.example.net",
		"admin-api-key":             "vault-key",
		"storage-connection-string": "DefaultEndpointsProtocol=https",
	})

	assert.Equal(t, "pg.example.net", cfg.Database.Host)
	assert.Equal(t, "keep-me", cfg.Database.Password)
	assert.Equal(t, "vault-key", cfg.Auth.APIKey)
	assert.Equal(t, "DefaultEndpointsProtocol=https", cfg.Storage.CloudConnectionString)
}

func TestResolveSecretSource(t *testing.T) {
	tests := []struct {
		name       string
		source     string
		env        string
		vaultName  string
		forceVault bool
		want       secrets.SecretSource
		wantErr    bool
	}{
		{name: "auto in development", source: "auto", env: "development", want: secrets.SourceEnvironment},
		{name: "auto in production", source: "auto", env: "production", vaultName: "kv-stores", want: secrets.SourceVault},
		{name: "auto in production without vault name", source: "auto", env: "production", wantErr: true},
		{name: "explicit environment in production", source: "environment", env: "production", want: secrets.SourceEnvironment},
		{name: "explicit vault in development", source: "Vault", env: "development", vaultName: "kv-stores", want: secrets.SourceVault},
		{name: "forced vault", source: "environment", env: "development", vaultName: "kv-stores", forceVault: true, want: secrets.SourceVault},
		{name: "unknown source", source: "s3", env: "development", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{}
			cfg.Secrets.Source = tt.source
			cfg.Secrets.KeyVaultName = tt.vaultName
			cfg.App.Environment = tt.env

			got, err := resolveSecretSource(cfg, tt.forceVault)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
