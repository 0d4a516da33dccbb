package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigFromFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "config.yml")
	require.NoError(t, os.WriteFile(file, []byte(`
server:
  port: 9090
database:
  name: bp_test
jwt:
  secret: file-secret
workflow:
  recent_contact_days: 7
smtp:
  alert_recipients:
    - nurse@example.com
`), 0o600))

	t.Setenv("CONFIG_FILE", file)
	t.Setenv("JWT_SECRET", "env-secret")
	t.Setenv("DATABASE_HOST", "db.internal")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "bp_test", cfg.Database.Name)
	assert.Equal(t, "db.internal", cfg.Database.Host)
	assert.Equal(t, "env-secret", cfg.JWT.Secret)
	assert.Equal(t, 7*24*time.Hour, cfg.Workflow.RecentContact())
	assert.Equal(t, []string{"nurse@example.com"}, cfg.SMTP.AlertRecipients)

	// defaults
	assert.Equal(t, "bp.events", cfg.Redis.Channel)
	assert.Equal(t, 12, cfg.JWT.ExpiryHours)
	assert.Equal(t, 5*time.Second, cfg.Outbox.PollInterval)
	assert.True(t, cfg.Workflow.AutoFollowUp)
}

func TestValidate(t *testing.T) {
	cfg := &Config{
		Database: DatabaseConfig{Name: "bp"},
		JWT:      JWTConfig{Secret: "s", ExpiryHours: 1},
	}
	assert.NoError(t, cfg.Validate())

	cfg.JWT.Secret = ""
	assert.EqualError(t, cfg.Validate(), "jwt.secret is required")

	cfg.JWT.Secret = "s"
	cfg.Database.Name = ""
	assert.EqualError(t, cfg.Validate(), "database.name is required")
}

func TestDatabaseURLs(t *testing.T) {
	db := DatabaseConfig{Host: "h", Port: 5432, User: "u", Password: "p", Name: "n", SSLMode: "disable"}
	assert.Equal(t, "host=h port=5432 user=u password=p dbname=n sslmode=disable", db.DSN())
	assert.Equal(t, "postgres://u:p@h:5432/n?sslmode=disable", db.URL())
}
