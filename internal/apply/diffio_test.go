package apply

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteDiffFilesHandlesNilBefore(t *testing.T) {
	beforePath, afterPath, cleanup, err := writeDiffFiles("fake-ask", nil, map[string]interface{}{"spec": map[string]interface{}{"version": "1.6.0"}})
	require.NoError(t, err)
	defer cleanup()

	before, err := os.ReadFile(beforePath)
	require.NoError(t, err)
	assert.Empty(t, string(before))

	after, err := os.ReadFile(afterPath)
	require.NoError(t, err)
	assert.Contains(t, string(after), "1.6.0")
}

func TestWriteDiffFilesCleanupRemovesBoth(t *testing.T) {
	beforePath, afterPath, cleanup, err := writeDiffFiles("fake-ask",
		map[string]interface{}{"version": "1.5.0"},
		map[string]interface{}{"version": "1.6.0"})
	require.NoError(t, err)

	cleanup()
	_, err = os.Stat(beforePath)
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(afterPath)
	assert.True(t, os.IsNotExist(err))
}
