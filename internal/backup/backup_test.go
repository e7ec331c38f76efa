package backup

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSaveAudioAndText(t *testing.T) {
	dir := t.TempDir()
	s := NewService(dir, true)
	s.now = func() time.Time {
		return time.Date(2024, 5, 1, 9, 30, 0, 0, time.UTC)
	}

	s.SaveAudio([]byte("wav-bytes"), 8, "guild-1")
	s.SaveText("answer text", 8, "guild-1")

	audio, err := os.ReadFile(filepath.Join(dir, "audio", "8", "guild-1_20240501_093000.wav"))
	require.NoError(t, err)
	assert.Equal(t, []byte("wav-bytes"), audio)

	text, err := os.ReadFile(filepath.Join(dir, "text", "8", "guild-1_20240501_093000.txt"))
	require.NoError(t, err)
	assert.Equal(t, "answer text", string(text))
}

func TestDisabledServiceWritesNothing(t *testing.T) {
	dir := t.TempDir()
	s := NewService(dir, false)

	s.SaveAudio([]byte("wav"), 1, "guild-1")
	s.SaveText("text", 1, "guild-1")

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestTogglesAreIndependent(t *testing.T) {
	dir := t.TempDir()
	s := NewService(dir, true)
	assert.True(t, s.AudioEnabled())
	assert.True(t, s.TextEnabled())

	// Turning audio off leaves transcript archiving on.
	assert.False(t, s.ToggleAudio())
	s.SaveAudio([]byte("wav"), 1, "guild-1")
	s.SaveText("text", 1, "guild-1")

	_, err := os.Stat(filepath.Join(dir, "audio"))
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(filepath.Join(dir, "text", "1"))
	assert.NoError(t, err)

	assert.True(t, s.ToggleAudio())
	assert.False(t, s.ToggleText())
	assert.True(t, s.AudioEnabled())
	assert.False(t, s.TextEnabled())
}
