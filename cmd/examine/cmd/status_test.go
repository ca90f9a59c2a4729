package cmd

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// runCommand executes the root command with the given args against a
// store rooted in a fresh temp directory, returning its output.
func runCommand(t *testing.T, storePath string, args ...string) (string, error) {
	t.Helper()
	t.Setenv("EXAMINE_STORE_PATH", storePath)
	t.Setenv("EXAMINE_LOG_LEVEL", "error")

	rootCmd := NewRootCmd()
	buf := &bytes.Buffer{}
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return buf.String(), err
}

func TestStatusCmd_MissingStore(t *testing.T) {
	// Given: a store path that has never been written to
	storePath := filepath.Join(t.TempDir(), "index")

	// When: running status
	output, err := runCommand(t, storePath, "status")

	// Then: it reports a missing, unlocked, empty store
	require.NoError(t, err)
	assert.Contains(t, output, "exists:    false")
	assert.Contains(t, output, "locked:    false")
	assert.Contains(t, output, "documents: 0")
}

func TestStatusCmd_JSONOutput(t *testing.T) {
	// Given: a store path that has never been written to
	storePath := filepath.Join(t.TempDir(), "index")

	// When: running status --json
	output, err := runCommand(t, storePath, "status", "--json")

	// Then: the output is valid JSON with the expected fields
	require.NoError(t, err)

	var status storeStatus
	require.NoError(t, json.Unmarshal([]byte(output), &status))
	assert.Equal(t, storePath, status.Path)
	assert.False(t, status.Exists)
	assert.False(t, status.Locked)
	assert.Zero(t, status.Documents)
}

func TestCompactCmd_MissingStore(t *testing.T) {
	// Given: a store path that has never been written to
	storePath := filepath.Join(t.TempDir(), "index")

	// When: running compact
	_, err := runCommand(t, storePath, "compact")

	// Then: it refuses
	require.Error(t, err)
	assert.Contains(t, err.Error(), "does not exist")
}
