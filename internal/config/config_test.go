package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() Config {
	return Config{
		DBDriver:         "sqlite",
		JWTAccessSecret:  "access",
		JWTRefreshSecret: "refresh",
		AccessTokenTTL:   15 * time.Minute,
		RefreshTokenTTL:  7 * 24 * time.Hour,
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "missing access secret", mutate: func(c *Config) { c.JWTAccessSecret = "" }, wantErr: "required"},
		{name: "same secrets", mutate: func(c *Config) { c.JWTRefreshSecret = c.JWTAccessSecret }, wantErr: "must differ"},
		{name: "bad driver", mutate: func(c *Config) { c.DBDriver = "oracle" }, wantErr: "unsupported DB_DRIVER"},
		{name: "refresh shorter than access", mutate: func(c *Config) { c.RefreshTokenTTL = time.Minute }, wantErr: "must be longer"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoad_FromEnvironment(t *testing.T) {
	t.Setenv("JWT_ACCESS_SECRET", "a-secret")
	t.Setenv("JWT_REFRESH_SECRET", "r-secret")
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("ACCESS_TOKEN_TTL", "10m")
	t.Setenv("ALLOWED_ORIGINS", "https://noel.example, http://localhost:3000 ,")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 10*time.Minute, cfg.AccessTokenTTL)
	assert.Equal(t, 168*time.Hour, cfg.RefreshTokenTTL)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, []string{"https://noel.example", "http://localhost:3000"}, cfg.Origins())
	assert.False(t, cfg.MailEnabled())
}
