package session

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JiaLong0209/discord-ai-assistant-bot/internal/synthesis"
	apperrors "github.com/JiaLong0209/discord-ai-assistant-bot/pkg/errors"
)

type stubConn struct {
	channelID string
}

func (c *stubConn) ChannelID() string { return c.channelID }

func newTestStore() *Store {
	return NewStore(synthesis.DefaultCatalog(), 1, "You are a helpful assistant.")
}

func TestGetOrCreateReturnsSameSession(t *testing.T) {
	st := newTestStore()

	a := st.GetOrCreate("guild-1")
	b := st.GetOrCreate("guild-1")
	assert.Same(t, a, b)

	other := st.GetOrCreate("guild-2")
	assert.NotSame(t, a, other)
}

func TestNewSessionStartsWithDefaults(t *testing.T) {
	st := newTestStore()

	snap := st.Snapshot("guild-1")
	assert.Equal(t, 1, snap.SpeakerID)
	assert.Equal(t, "You are a helpful assistant.", snap.SystemPrompt)
	assert.False(t, snap.Connected)
	assert.Empty(t, snap.ChannelID)
}

func TestSetSpeakerRejectsUnknownID(t *testing.T) {
	st := newTestStore()

	require.NoError(t, st.SetSpeaker("guild-1", 3))
	assert.Equal(t, 3, st.Snapshot("guild-1").SpeakerID)

	err := st.SetSpeaker("guild-1", 9999)
	assert.ErrorIs(t, err, apperrors.ErrInvalidSpeaker)

	// The prior selection survives a rejected change.
	assert.Equal(t, 3, st.Snapshot("guild-1").SpeakerID)
}

func TestResetSpeaker(t *testing.T) {
	st := newTestStore()

	require.NoError(t, st.SetSpeaker("guild-1", 8))
	assert.Equal(t, 1, st.ResetSpeaker("guild-1"))
	assert.Equal(t, 1, st.Snapshot("guild-1").SpeakerID)
}

func TestSystemPromptLifecycle(t *testing.T) {
	st := newTestStore()

	err := st.SetSystemPrompt("guild-1", "")
	assert.ErrorIs(t, err, apperrors.ErrInvalidPrompt)

	require.NoError(t, st.SetSystemPrompt("guild-1", "Answer like a pirate."))
	assert.Equal(t, "Answer like a pirate.", st.Snapshot("guild-1").SystemPrompt)

	st.ResetSystemPrompt("guild-1")
	assert.Equal(t, "You are a helpful assistant.", st.Snapshot("guild-1").SystemPrompt)
}

func TestSpeakerIsPerGuild(t *testing.T) {
	st := newTestStore()

	require.NoError(t, st.SetSpeaker("guild-1", 8))
	assert.Equal(t, 8, st.Snapshot("guild-1").SpeakerID)
	assert.Equal(t, 1, st.Snapshot("guild-2").SpeakerID)
}

func TestLookupDoesNotCreate(t *testing.T) {
	st := newTestStore()

	_, ok := st.Lookup("guild-1")
	assert.False(t, ok)
	assert.Empty(t, st.Guilds())

	require.NoError(t, st.SetSpeaker("guild-1", 8))
	snap, ok := st.Lookup("guild-1")
	require.True(t, ok)
	assert.Equal(t, "guild-1", snap.GuildID)
	assert.Equal(t, 8, snap.SpeakerID)
}

func TestConnectionTracking(t *testing.T) {
	st := newTestStore()

	conn := &stubConn{channelID: "chan-a"}
	st.SetConnection("guild-1", conn)

	snap := st.Snapshot("guild-1")
	assert.True(t, snap.Connected)
	assert.Equal(t, "chan-a", snap.ChannelID)

	// A stale clear for a different connection is ignored.
	st.ClearConnection("guild-1", &stubConn{channelID: "chan-old"})
	assert.True(t, st.Snapshot("guild-1").Connected)

	st.ClearConnection("guild-1", conn)
	assert.False(t, st.Snapshot("guild-1").Connected)
}

func TestClearConnectionNilClearsUnconditionally(t *testing.T) {
	st := newTestStore()

	st.SetConnection("guild-1", &stubConn{channelID: "chan-a"})
	st.ClearConnection("guild-1", nil)
	assert.False(t, st.Snapshot("guild-1").Connected)
}

func TestGuildsSortedByID(t *testing.T) {
	st := newTestStore()

	st.GetOrCreate("guild-b")
	st.GetOrCreate("guild-a")
	st.GetOrCreate("guild-c")

	snaps := st.Guilds()
	require.Len(t, snaps, 3)
	assert.Equal(t, "guild-a", snaps[0].GuildID)
	assert.Equal(t, "guild-b", snaps[1].GuildID)
	assert.Equal(t, "guild-c", snaps[2].GuildID)
}

func TestConcurrentAccess(t *testing.T) {
	st := newTestStore()

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			guildID := fmt.Sprintf("guild-%d", i%4)
			for j := 0; j < 50; j++ {
				_ = st.SetSpeaker(guildID, 3)
				_ = st.Snapshot(guildID)
				st.SetConnection(guildID, &stubConn{channelID: "chan"})
				st.ClearConnection(guildID, nil)
			}
		}(i)
	}
	wg.Wait()

	for i := 0; i < 4; i++ {
		assert.Equal(t, 3, st.Snapshot(fmt.Sprintf("guild-%d", i)).SpeakerID)
	}
}
