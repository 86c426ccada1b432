package config

import (
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
)

func validConfig() *Config {
	return &Config{
		Port:            "8080",
		Env:             "development",
		DBDriver:        "sqlite",
		SessionSecret:   "secure-secret-at-least-32-chars-long",
		SessionTTLHours: 24,
		PageSize:        6,
		BlobBackend:     "disk",
		UploadDir:       "uploads",
		UploadMaxSizeMB: 5,
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name        string
		mutate      func(c *Config)
		expectError bool
	}{
		{"Valid development config", func(c *Config) {}, false},
		{"Missing port", func(c *Config) { c.Port = "" }, true},
		{"Zero page size", func(c *Config) { c.PageSize = 0 }, true},
		{"Unknown driver", func(c *Config) { c.DBDriver = "mysql" }, true},
		{"Unknown blob backend", func(c *Config) { c.BlobBackend = "ftp" }, true},
		{"S3 without bucket", func(c *Config) { c.BlobBackend = "s3"; c.S3Endpoint = "http://minio:9000" }, true},
		{"S3 with bucket and endpoint", func(c *Config) {
			c.BlobBackend = "s3"
			c.S3Endpoint = "http://minio:9000"
			c.S3Bucket = "subjects"
		}, false},
		{"Production with default secret", func(c *Config) {
			c.Env = "production"
			c.SessionSecret = defaultSessionSecret
		}, true},
		{"Production with short secret", func(c *Config) {
			c.Env = "production"
			c.SessionSecret = "short"
		}, true},
		{"Production sqlite with strong secret", func(c *Config) {
			c.Env = "production"
		}, false},
		{"Production postgres with ssl disabled", func(c *Config) {
			c.Env = "prod"
			c.DBDriver = "postgres"
			c.DBPassword = "secure-password"
			c.DBSSLMode = "disable"
		}, true},
		{"Production postgres with ssl required", func(c *Config) {
			c.Env = "prod"
			c.DBDriver = "postgres"
			c.DBPassword = "secure-password"
			c.DBSSLMode = "require"
		}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := validConfig()
			tt.mutate(c)

			err := c.Validate()
			if tt.expectError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestLoadConfig_DefaultsAndNormalization(t *testing.T) {
	defer viper.Reset()

	t.Setenv("APP_ENV", "test")
	t.Setenv("DB_DRIVER", "  SQLite  ")
	t.Setenv("PAGE_SIZE", "6")

	c, err := LoadConfig()
	assert.NoError(t, err)
	assert.Equal(t, "sqlite", c.DBDriver)
	assert.Equal(t, "test", c.Env)
	assert.Equal(t, 6, c.PageSize)
	assert.Equal(t, "disk", c.BlobBackend)
	assert.False(t, c.IsProduction())
}
