package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const secret = "0123456789abcdef0123456789abcdef"

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_AppliesDefaults(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 8080
storage:
  backend: memory
jwt:
  secret: `+secret+`
rental:
  timezone: Asia/Bangkok
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "memory", cfg.Storage.Backend)
	assert.Equal(t, 3, cfg.Rental.ResolutionAttempts)
	assert.Equal(t, 24, cfg.Rental.ReservationGraceHours)
	assert.Equal(t, "rental.events", cfg.RabbitMQ.Queue)
	assert.Equal(t, "0 */15 * * * *", cfg.Scheduler.ExpireStaleReservations)
	assert.Equal(t, "Asia/Bangkok", cfg.Location().String())
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, ":8080", cfg.GetServerAddress())
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("DB_HOST", "db.internal")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("RABBITMQ_URL", "amqp://guest:guest@mq:5672/")
	t.Setenv("STORAGE_SEED_FILE", "/etc/motorent/fleet.yaml")

	path := writeConfig(t, `
server:
  port: 8080
database:
  host: localhost
  port: 5432
  user: motorent
  database: motorent
jwt:
  secret: `+secret+`
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "postgres", cfg.Storage.Backend)
	assert.Equal(t, "postgres://motorent:@db.internal:5432/motorent?sslmode=disable", cfg.GetDatabaseConnectionString())
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "amqp://guest:guest@mq:5672/", cfg.RabbitMQ.URL)
	assert.Equal(t, "/etc/motorent/fleet.yaml", cfg.Storage.SeedFile)
}

func TestValidate_Errors(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
		want string
	}{
		{"port", Config{}, "invalid server port"},
		{"database", Config{Server: ServerConfig{Port: 1}}, "database host is required"},
		{"backend", Config{Server: ServerConfig{Port: 1}, Storage: StorageConfig{Backend: "sqlite"}}, "unknown storage backend"},
		{"secret", Config{Server: ServerConfig{Port: 1}, Storage: StorageConfig{Backend: "memory"}, JWT: JWTConfig{Secret: "short"}}, "at least 32"},
		{"timezone", Config{
			Server:  ServerConfig{Port: 1},
			Storage: StorageConfig{Backend: "memory"},
			JWT:     JWTConfig{Secret: secret},
			Rental:  RentalConfig{Timezone: "Mars/Olympus"},
		}, "invalid rental timezone"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestGetSecurityLevel(t *testing.T) {
	assert.Equal(t, SecurityPublic, GetSecurityLevel("Health"))
	assert.Equal(t, SecurityStaff, GetSecurityLevel("CheckOut"))
	assert.Equal(t, SecurityManager, GetSecurityLevel("DeleteRental"))
	assert.Equal(t, SecurityManager, GetSecurityLevel("Unknown"))
}
