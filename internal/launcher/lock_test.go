package launcher

import (
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAcquireWritesPID(t *testing.T) {
	path := filepath.Join(t.TempDir(), "runall.lock")

	lock, err := Acquire(path)
	require.NoError(t, err)
	defer lock.Release()

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, strconv.Itoa(os.Getpid()), string(raw))
}

func TestAcquireContended(t *testing.T) {
	path := filepath.Join(t.TempDir(), "runall.lock")

	lock, err := Acquire(path)
	require.NoError(t, err)
	defer lock.Release()

	_, err = Acquire(path)
	require.ErrorIs(t, err, ErrAlreadyRunning)
	// The diagnostic names the current holder.
	assert.Contains(t, err.Error(), strconv.Itoa(os.Getpid()))
}

func TestReleaseAllowsReacquire(t *testing.T) {
	path := filepath.Join(t.TempDir(), "runall.lock")

	lock, err := Acquire(path)
	require.NoError(t, err)
	require.NoError(t, lock.Release())

	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr), "release removes the lock file")

	again, err := Acquire(path)
	require.NoError(t, err)
	require.NoError(t, again.Release())
}

func TestReleaseIsNilSafe(t *testing.T) {
	var lock *Lock
	assert.NoError(t, lock.Release())

	assert.NoError(t, (&Lock{}).Release())
}
