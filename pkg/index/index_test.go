package index

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIndexPersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state", FileName)

	idx, err := Open(path)
	require.NoError(t, err)
	assert.Empty(t, idx.Get("t1"))

	idx.Bind("cal-1")
	idx.Set("t2", "ev2")
	idx.Set("t1", "ev1")
	require.NoError(t, idx.Save())

	again, err := Open(path)
	require.NoError(t, err)
	assert.Equal(t, "cal-1", again.CalendarID())
	assert.Equal(t, "ev1", again.Get("t1"))
	assert.Equal(t, []string{"t1", "t2"}, again.TaskIDs())

	again.Remove("t1")
	again.Remove("missing")
	require.NoError(t, again.Save())

	last, err := Open(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"t2"}, last.TaskIDs())
}

func TestBindToAnotherCalendarDropsEvents(t *testing.T) {
	idx, err := Open(filepath.Join(t.TempDir(), FileName))
	require.NoError(t, err)

	idx.Bind("cal-1")
	idx.Set("t1", "ev1")
	idx.Bind("cal-1")
	assert.Equal(t, "ev1", idx.Get("t1"))

	idx.Bind("cal-2")
	assert.Empty(t, idx.TaskIDs())
	assert.Equal(t, "cal-2", idx.CalendarID())
}

func TestSaveSkipsCleanIndex(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	idx, err := Open(path)
	require.NoError(t, err)
	idx.Set("t1", "ev1")
	idx.Set("t1", "ev1")
	require.NoError(t, idx.Save())
	require.NoError(t, os.Remove(path))

	require.NoError(t, idx.Save())
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}

func TestOpenCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0600))
	_, err := Open(path)
	assert.Error(t, err)
}
