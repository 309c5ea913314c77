package telemetry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/steveyegge/tracker/internal/config"
	"github.com/steveyegge/tracker/internal/storage"
	"github.com/steveyegge/tracker/internal/storage/sqlite"
)

func TestEnabledFollowsConfig(t *testing.T) {
	require.NoError(t, config.Initialize())
	t.Cleanup(func() { config.Set(config.KeyOtelEnabled, false) })

	assert.False(t, Enabled())

	// A config-file or env override flips the switch; no separate env
	// read happens here.
	config.Set(config.KeyOtelEnabled, true)
	assert.True(t, Enabled())
}

func TestInitDisabledInstallsNoops(t *testing.T) {
	require.NoError(t, config.Initialize())
	config.Set(config.KeyOtelEnabled, false)

	require.NoError(t, Init(context.Background(), "trackd", "test"))
	Shutdown(context.Background())
}

func TestWrapStorageIsPassThroughWhenDisabled(t *testing.T) {
	require.NoError(t, config.Initialize())
	config.Set(config.KeyOtelEnabled, false)

	store, err := sqlite.New(context.Background(), t.TempDir()+"/test.db")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	var wrapped storage.Storage = WrapStorage(store)
	assert.Same(t, storage.Storage(store), wrapped)
}
