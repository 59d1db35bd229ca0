package assets

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newManager(t *testing.T, buffer int) (*Manager, string) {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "uploads")
	m, err := New(Config{RootDir: dir, WorkerCount: 2, BufferSize: buffer})
	require.NoError(t, err)
	t.Cleanup(m.Close)
	return m, dir
}

func TestManager_SaveAndRemove(t *testing.T) {
	m, dir := newManager(t, 4)

	rel, err := m.Save(context.Background(), "Photo.PNG", strings.NewReader("png-bytes"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(rel, "uploads/"))
	assert.True(t, strings.HasSuffix(rel, ".png"))
	assert.True(t, m.Tracked(rel))

	disk := filepath.Join(dir, filepath.Base(rel))
	data, err := os.ReadFile(disk)
	require.NoError(t, err)
	assert.Equal(t, "png-bytes", string(data))

	m.ScheduleRemoval(rel)
	assert.False(t, m.Tracked(rel))
	assert.Eventually(t, func() bool {
		_, err := os.Stat(disk)
		return os.IsNotExist(err)
	}, 2*time.Second, 10*time.Millisecond)
}

func TestManager_UniqueNames(t *testing.T) {
	m, _ := newManager(t, 4)
	a, err := m.Save(context.Background(), "a.txt", strings.NewReader("1"))
	require.NoError(t, err)
	b, err := m.Save(context.Background(), "a.txt", strings.NewReader("2"))
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestManager_AdoptRejectsEscapes(t *testing.T) {
	m, dir := newManager(t, 4)

	for _, p := range []string{"../secret", "uploads/../../etc/passwd", "other/file.png", "uploads/", "uploads/a/b.png"} {
		_, err := m.Adopt(p)
		assert.Error(t, err, p)
	}

	require.NoError(t, os.WriteFile(filepath.Join(dir, "known.bin"), []byte("x"), 0o644))
	rel, err := m.Adopt("/uploads/known.bin")
	require.NoError(t, err)
	assert.Equal(t, "uploads/known.bin", rel)
	assert.True(t, m.Tracked("uploads/known.bin"))

	m.Release(rel)
	assert.False(t, m.Tracked(rel))

	_, err = m.Adopt("uploads/missing.bin")
	assert.Error(t, err)
}

func TestManager_RemovalFailuresAreSwallowed(t *testing.T) {
	m, dir := newManager(t, 0)

	// A non-empty directory cannot be removed with os.Remove.
	sub := filepath.Join(dir, "stuck")
	require.NoError(t, os.MkdirAll(filepath.Join(sub, "inner"), 0o755))

	m.ScheduleRemoval("uploads/stuck")
	m.ScheduleRemoval("uploads/never-existed.png")
	m.ScheduleRemoval("../outside")
	m.Close()

	_, err := os.Stat(sub)
	assert.NoError(t, err)
}

func TestManager_ScheduleAfterClose(t *testing.T) {
	m, dir := newManager(t, 1)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "late.txt"), []byte("x"), 0o644))

	m.Close()
	m.ScheduleRemoval("uploads/late.txt")

	_, err := os.Stat(filepath.Join(dir, "late.txt"))
	assert.True(t, os.IsNotExist(err))
}

func TestManager_Files(t *testing.T) {
	m, dir := newManager(t, 1)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.txt"), []byte("x"), 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "nested"), 0o755))

	files, err := m.Files()
	require.NoError(t, err)
	assert.Len(t, files, 1)
	assert.Contains(t, files, "uploads/a.txt")
}
