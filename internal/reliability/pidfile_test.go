package reliability

import (
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPIDFileWriteThenRemove(t *testing.T) {
	dir := t.TempDir()
	pf := NewPIDFile(dir, zerolog.Nop())

	require.NoError(t, pf.Write())

	data, err := os.ReadFile(filepath.Join(dir, "autotrader.pid"))
	require.NoError(t, err)
	pid, err := strconv.Atoi(string(data))
	require.NoError(t, err)
	assert.Equal(t, os.Getpid(), pid)

	require.NoError(t, pf.Remove())
	_, err = os.Stat(filepath.Join(dir, "autotrader.pid"))
	assert.True(t, os.IsNotExist(err))
}

func TestPIDFileRemoveWithoutWriteIsNotAnError(t *testing.T) {
	dir := t.TempDir()
	pf := NewPIDFile(dir, zerolog.Nop())
	assert.NoError(t, pf.Remove())
}
