package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"motorent-backend/internal/config"
	"motorent-backend/internal/queue"
	"motorent-backend/internal/repository/memory"
)

func TestBuild_MemoryBackend(t *testing.T) {
	cfg := &config.Config{
		Server:  config.ServerConfig{Port: 8080},
		Storage: config.StorageConfig{Backend: "memory"},
		JWT:     config.JWTConfig{Secret: "0123456789abcdef0123456789abcdef"},
	}
	require.NoError(t, cfg.Validate())

	ctx := context.Background()
	a, err := Build(ctx, cfg)
	require.NoError(t, err)
	defer a.Close(ctx)

	assert.IsType(t, &memory.Store{}, a.Store)
	assert.IsType(t, queue.Noop{}, a.Events)
	require.NotNil(t, a.Engine)
	assert.NoError(t, a.Store.Ping(ctx))

	res := a.Engine.GetRental(ctx, 1)
	assert.False(t, res.Success)
	assert.Equal(t, "not_found", string(res.Kind))
}

func TestBuild_SeedsMemoryBackend(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fleet.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
vehicles:
  - id: 5
    home_shop_id: 1
    daily_rate: "300"
`), 0o600))

	cfg := &config.Config{
		Server:  config.ServerConfig{Port: 8080},
		Storage: config.StorageConfig{Backend: "memory", SeedFile: path},
		JWT:     config.JWTConfig{Secret: "0123456789abcdef0123456789abcdef"},
	}
	require.NoError(t, cfg.Validate())

	ctx := context.Background()
	a, err := Build(ctx, cfg)
	require.NoError(t, err)
	defer a.Close(ctx)

	v, ok := a.Store.(*memory.Store).Vehicle(5)
	require.True(t, ok)
	assert.Equal(t, int32(1), v.CurrentShopID)

	cfg.Storage.SeedFile = filepath.Join(t.TempDir(), "missing.yaml")
	_, err = Build(ctx, cfg)
	assert.Error(t, err)
}
