package world

import (
	"testing"

	"github.com/argus-labs/entitycore/pkg/blockstore"
	"github.com/argus-labs/entitycore/pkg/testutils"
	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

//nolint:paralleltest // modifies the environment
func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := loadConfig()
	require.NoError(t, err)
	assert.Equal(t, 4096, cfg.BlockSize)
	assert.Equal(t, 16, cfg.BlocksPerSuperblock)
	assert.Equal(t, uint64(0), cfg.MaxReservedBytes)
	assert.Equal(t, blockstore.Compact, cfg.StorageMode)
	assert.Equal(t, 0, cfg.Workers)
}

//nolint:paralleltest // modifies the environment
func TestLoadConfig_FromEnv(t *testing.T) {
	t.Setenv("ENTITYCORE_STORAGE_MODE", "freelist")
	t.Setenv("ENTITYCORE_BLOCK_SIZE", "512")
	t.Setenv("ENTITYCORE_WORKERS", "3")

	m, err := NewManager[testutils.Health](Options{})
	require.NoError(t, err)
	t.Cleanup(m.Close)

	assert.Equal(t, blockstore.FreeList, m.pool.Store().Mode())
	assert.Equal(t, 512, m.Arena().BlockSize())
	assert.Equal(t, 3, m.workers)
}

//nolint:paralleltest // modifies the environment
func TestLoadConfig_OptionsOverrideEnv(t *testing.T) {
	t.Setenv("ENTITYCORE_STORAGE_MODE", "freelist")

	m, err := NewManager[testutils.Health](Options{StorageMode: blockstore.Compact})
	require.NoError(t, err)
	t.Cleanup(m.Close)

	assert.Equal(t, blockstore.Compact, m.pool.Store().Mode())
}

//nolint:paralleltest // modifies the environment
func TestLoadConfig_Invalid(t *testing.T) {
	testCases := []struct {
		name  string
		key   string
		value string
	}{
		{name: "unknown storage mode", key: "ENTITYCORE_STORAGE_MODE", value: "ring"},
		{name: "block size too small", key: "ENTITYCORE_BLOCK_SIZE", value: "8"},
		{name: "no blocks per superblock", key: "ENTITYCORE_BLOCKS_PER_SUPERBLOCK", value: "0"},
		{name: "negative workers", key: "ENTITYCORE_WORKERS", value: "-2"},
		{name: "not a number", key: "ENTITYCORE_WORKERS", value: "many"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Setenv(tc.key, tc.value)
			_, err := loadConfig()
			require.Error(t, err)

			_, err = NewManager[testutils.Health](Options{})
			require.Error(t, err)
		})
	}
}

func TestOptions_Validate(t *testing.T) {
	t.Parallel()

	opt := newDefaultOptions()
	require.NoError(t, opt.validate())

	opt.Name = ""
	assert.True(t, eris.Is(opt.validate(), ErrInvalidConfig))

	opt = newDefaultOptions()
	opt.StorageMode = blockstore.ModeUndefined
	assert.True(t, eris.Is(opt.validate(), ErrInvalidConfig))
}
