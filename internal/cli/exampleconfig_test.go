package cli

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LeJamon/goAMMd/internal/config"
)

func TestExampleConfigCommand(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ammd.toml")

	require.NoError(t, exampleConfigCmd.RunE(exampleConfigCmd, []string{path}))

	loaded, err := config.LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "pebble", loaded.PoolStore.Backend)
}

func TestExampleConfigRefusesOverwrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ammd.toml")

	require.NoError(t, exampleConfigCmd.RunE(exampleConfigCmd, []string{path}))
	err := exampleConfigCmd.RunE(exampleConfigCmd, []string{path})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "refusing to overwrite")
}

func TestExampleConfigWritesGenesis(t *testing.T) {
	dir := t.TempDir()
	exampleGenesisPath = filepath.Join(dir, "genesis.json")
	t.Cleanup(func() { exampleGenesisPath = "" })

	require.NoError(t, exampleConfigCmd.RunE(exampleConfigCmd, []string{filepath.Join(dir, "ammd.toml")}))

	gen, err := config.LoadGenesis(exampleGenesisPath)
	require.NoError(t, err)
	assert.NotEmpty(t, gen.Accounts)
	assert.NotEmpty(t, gen.Pools)
}
