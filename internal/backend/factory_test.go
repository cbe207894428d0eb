package backend

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ledger/internal/config"
	"ledger/internal/core"
	"ledger/internal/log"
)

func TestFromAppConfig(t *testing.T) {
	_, err := FromAppConfig(nil)
	assert.Error(t, err)

	_, err = FromAppConfig(&config.Config{DataBackend: "sheets"})
	assert.EqualError(t, err, "invalid backend type in config: sheets (valid: sqlite, memory)")

	cfg, err := FromAppConfig(&config.Config{DataBackend: "sqlite", SQLiteDBPath: "x.db"})
	require.NoError(t, err)
	assert.Equal(t, SQLiteBackend, cfg.Type)
	assert.Equal(t, "x.db", cfg.SQLiteDBPath)
}

func TestConfigValidate(t *testing.T) {
	assert.NoError(t, Config{Type: MemoryBackend}.Validate())
	assert.Error(t, Config{Type: SQLiteBackend}.Validate())
	assert.EqualError(t, Config{Type: "postgres"}.Validate(), "invalid backend type: postgres (valid: sqlite, memory)")
	assert.True(t, MemoryBackend.IsValid())
	assert.False(t, BackendType("").IsValid())
}

func TestCreateBackend(t *testing.T) {
	ctx := context.Background()
	f := NewFactory(log.Discard())

	t.Run("memory", func(t *testing.T) {
		res, err := f.CreateBackend(ctx, Config{Type: MemoryBackend})
		require.NoError(t, err)
		assert.NoError(t, res.Ready(ctx))
		assert.NoError(t, res.Close())

		require.NoError(t, res.Store.InsertUser(ctx, core.User{ID: 1, Username: "ann", Password: "pw"}))
		_, ok, err := res.Store.FindUser(ctx, 1)
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("sqlite", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "ledger.db")
		res, err := f.CreateBackend(ctx, Config{Type: SQLiteBackend, SQLiteDBPath: path})
		require.NoError(t, err)
		assert.NoError(t, res.Ready(ctx))

		require.NoError(t, res.Store.InsertUser(ctx, core.User{ID: 1, Username: "ann", Password: "pw"}))
		id, ok, err := res.Store.MaxUserID(ctx)
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, int64(1), id)

		assert.NoError(t, res.Close())
	})

	t.Run("invalid", func(t *testing.T) {
		_, err := f.CreateBackend(ctx, Config{Type: "sheets"})
		assert.Error(t, err)
	})
}

func TestNilResultClose(t *testing.T) {
	var res *BackendResult
	assert.NoError(t, res.Close())
}
