package loader

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func waitDone(t *testing.T, b *Bundle) {
	t.Helper()
	select {
	case <-b.Done():
	case <-time.After(10 * time.Second):
		t.Fatal("preload never settled")
	}
}

func TestPreloadSettlesWithZeroSuccesses(t *testing.T) {
	b := Preload(t.TempDir())
	waitDone(t, b)

	loaded, failed := b.Counts()
	assert.Equal(t, 0, loaded)
	assert.Greater(t, failed, 0)
	assert.Empty(t, b.AvatarKeys())
	assert.Nil(t, b.Sound("correct"))
}

func TestPreloadCollectsPresentAssets(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "profile-pics"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "effects", "audio"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "effects", "narrator"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "profile-pics", "3.png"), []byte("png"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "effects", "audio", "typing.mp3"), []byte("mp3"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "effects", "narrator", "alloy1.mp3"), []byte("mp3"), 0o644))

	b := Preload(dir)
	waitDone(t, b)

	assert.Equal(t, []string{"profile-pics/3.png"}, b.AvatarKeys())
	assert.Equal(t, []byte("mp3"), b.Sound("typing"))
	assert.Len(t, b.NarratorClips("alloy"), 1)
	assert.Empty(t, b.NarratorClips("onyx"))
}
