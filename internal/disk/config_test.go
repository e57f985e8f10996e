package disk

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deploymenttheory/go-blockfs/internal/types"
)

// isolate runs the test from an empty directory with an empty home so no real
// config file is picked up
func isolate(t *testing.T) {
	t.Helper()

	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() { _ = os.Chdir(wd) })
	t.Setenv("HOME", t.TempDir())
}

func TestLoadConfigDefaults(t *testing.T) {
	isolate(t)

	config, err := LoadConfig(viper.New(), "")
	require.NoError(t, err)
	assert.Equal(t, &Config{
		ContainerPath: "container.bin",
		BlockSize:     types.DefaultBlockSize,
		TotalBlocks:   types.DefaultTotalBlocks,
		LogLevel:      "info",
		LogFormat:     "text",
	}, config)
}

func TestLoadConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "blockfs-config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
container_path: /data/disk.bin
block_size: 4096
total_blocks: 256
log_format: json
`), 0o644))

	config, err := LoadConfig(viper.New(), path)
	require.NoError(t, err)
	assert.Equal(t, "/data/disk.bin", config.ContainerPath)
	assert.Equal(t, int32(4096), config.BlockSize)
	assert.Equal(t, int32(256), config.TotalBlocks)
	assert.Equal(t, "json", config.LogFormat)
	assert.Equal(t, "info", config.LogLevel)
}

func TestLoadConfigEnvironment(t *testing.T) {
	isolate(t)
	t.Setenv("BLOCKFS_BLOCK_SIZE", "512")

	config, err := LoadConfig(viper.New(), "")
	require.NoError(t, err)
	assert.Equal(t, int32(512), config.BlockSize)
}

func TestLoadConfigErrors(t *testing.T) {
	t.Run("explicit file missing", func(t *testing.T) {
		_, err := LoadConfig(viper.New(), filepath.Join(t.TempDir(), "absent.yaml"))
		assert.Error(t, err)
	})

	t.Run("invalid geometry", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "bad.yaml")
		require.NoError(t, os.WriteFile(path, []byte("block_size: 0\n"), 0o644))

		_, err := LoadConfig(viper.New(), path)
		assert.ErrorIs(t, err, types.ErrInvalidArgument)
	})
}
