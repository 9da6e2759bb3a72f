package index

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenMissingFileIsEmpty(t *testing.T) {
	idx, err := Open(filepath.Join(t.TempDir(), FileName))
	require.NoError(t, err)
	assert.Empty(t, idx.TaskIDs())
	assert.Equal(t, "", idx.Get("nope"))
}

func TestSaveAndReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", FileName)
	idx, err := Open(path)
	require.NoError(t, err)

	idx.Set("b", "evt-b")
	idx.Set("a", "evt-a")
	idx.Set("c", "evt-c")
	idx.Remove("c")
	require.NoError(t, idx.Save())

	again, err := Open(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, again.TaskIDs())
	assert.Equal(t, "evt-a", again.Get("a"))
}

func TestSaveSkipsCleanIndex(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	idx, err := Open(path)
	require.NoError(t, err)

	require.NoError(t, idx.Save())
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))

	idx.Set("a", "evt-a")
	require.NoError(t, idx.Save())
	_, err = os.Stat(path)
	assert.NoError(t, err)
}

func TestOpenCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0600))
	_, err := Open(path)
	assert.Error(t, err)
}
