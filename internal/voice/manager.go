package voice

import (
	"context"
	"errors"
	"io"
	"sync"

	"go.uber.org/zap"

	"github.com/JiaLong0209/discord-ai-assistant-bot/internal/session"
	apperrors "github.com/JiaLong0209/discord-ai-assistant-bot/pkg/errors"
	"github.com/JiaLong0209/discord-ai-assistant-bot/pkg/logger"
)

// playbackQueueSize bounds how many playback requests may wait per guild.
const playbackQueueSize = 64

var errPlaybackInterrupted = errors.New("playback interrupted by disconnect")

// playbackItem is one queued playback request. done is buffered so the
// worker never blocks on an abandoned caller.
type playbackItem struct {
	ctx  context.Context
	wav  []byte
	gen  uint64
	done chan error
}

// guildVoice is the per-guild connection record. mu serializes join/exit and
// guards conn, gen and stop; the playback worker reads a consistent triple
// under the same lock. gen increments on every connect and teardown, so a
// request holding a stale generation can never play into a newer connection.
type guildVoice struct {
	guildID string

	mu   sync.Mutex
	conn Conn
	gen  uint64
	stop chan struct{} // closed on teardown to interrupt in-flight playback

	queue chan *playbackItem
}

// Manager owns the guild-to-connection mapping and serializes join, exit and
// playback per guild. Playback requests for one guild run strictly FIFO, one
// at a time; guilds never block each other.
type Manager struct {
	joiner   ChannelJoiner
	sessions *session.Store
	logger   *zap.Logger

	mu      sync.Mutex
	entries map[string]*guildVoice

	// playStream is swapped out in tests.
	playStream func(ctx context.Context, conn Conn, wav []byte, stop <-chan struct{}) error
}

// NewManager creates a voice connection manager. The session store is kept
// in sync so snapshots expose connection state.
func NewManager(joiner ChannelJoiner, sessions *session.Store) *Manager {
	return &Manager{
		joiner:     joiner,
		sessions:   sessions,
		logger:     logger.Get(),
		entries:    make(map[string]*guildVoice),
		playStream: playOpusStream,
	}
}

func (m *Manager) entry(guildID string) *guildVoice {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e, ok := m.entries[guildID]; ok {
		return e
	}
	e := &guildVoice{
		guildID: guildID,
		stop:    make(chan struct{}),
		queue:   make(chan *playbackItem, playbackQueueSize),
	}
	m.entries[guildID] = e
	go m.runPlayback(e)
	return e
}

// Join connects the guild to channelID. Joining the channel the guild is
// already connected to is a no-op; a connection to a different channel is
// torn down first (teardown errors are logged, not surfaced). Concurrent
// joins for one guild serialize on the entry lock.
func (m *Manager) Join(guildID, channelID string) error {
	e := m.entry(guildID)
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.conn != nil {
		if e.conn.ChannelID() == channelID {
			return nil
		}
		m.logger.Debug("Leaving old voice channel before join",
			zap.String("guild_id", guildID),
			zap.String("old_channel_id", e.conn.ChannelID()),
		)
		if err := e.conn.Disconnect(); err != nil {
			m.logger.Warn("Voice teardown before rejoin failed",
				zap.String("guild_id", guildID),
				zap.Error(err),
			)
		}
		m.teardownLocked(e)
	}

	conn, err := m.joiner.JoinVoiceChannel(guildID, channelID)
	if err != nil {
		m.logger.Error("Failed to join voice channel",
			zap.String("guild_id", guildID),
			zap.String("channel_id", channelID),
			zap.Error(err),
		)
		return classifyJoinError(err)
	}

	e.conn = conn
	e.gen++
	m.sessions.SetConnection(guildID, conn)

	m.logger.Info("Joined voice channel",
		zap.String("guild_id", guildID),
		zap.String("channel_id", channelID),
	)
	return nil
}

// Exit disconnects the guild's voice connection and clears stored state.
// An already-disconnected transport is treated as success; queued and
// in-flight playback is discarded and waiters are released.
func (m *Manager) Exit(guildID string) error {
	e := m.entry(guildID)
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.conn == nil {
		return apperrors.ErrNotInVoiceChannel
	}
	if err := e.conn.Disconnect(); err != nil {
		// Transport may already be gone (kicked, gateway drop). Exit still
		// succeeds; the stored state is what matters.
		m.logger.Warn("Voice disconnect reported an error",
			zap.String("guild_id", guildID),
			zap.Error(err),
		)
	}
	m.teardownLocked(e)

	m.logger.Info("Left voice channel", zap.String("guild_id", guildID))
	return nil
}

// ConnectionLost handles a platform-initiated disconnect: the stored
// connection is cleared and pending playback fails promptly, so later plays
// report not-connected instead of silently failing.
func (m *Manager) ConnectionLost(guildID string) {
	e := m.entry(guildID)
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.conn == nil {
		return
	}
	m.logger.Warn("Voice connection lost", zap.String("guild_id", guildID))
	m.teardownLocked(e)
}

// teardownLocked clears the connection, bumps the generation and interrupts
// any in-flight playback. Callers hold e.mu.
func (m *Manager) teardownLocked(e *guildVoice) {
	m.sessions.ClearConnection(e.guildID, e.conn)
	e.conn = nil
	e.gen++
	close(e.stop)
	e.stop = make(chan struct{})
}

// Generation returns the guild's current connection generation and whether a
// connection exists. Pipelines capture the generation at admission; a later
// Play with a stale generation is rejected rather than played into a
// connection the requester never saw.
func (m *Manager) Generation(guildID string) (uint64, bool) {
	e := m.entry(guildID)
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.gen, e.conn != nil
}

// Play enqueues WAV audio for playback on the guild's connection and blocks
// until the audio finished playing, the context expires, or the connection
// goes away. Requests play strictly in arrival order, one at a time per
// guild.
func (m *Manager) Play(ctx context.Context, guildID string, gen uint64, wav []byte) error {
	e := m.entry(guildID)

	e.mu.Lock()
	connected := e.conn != nil && e.gen == gen
	e.mu.Unlock()
	if !connected {
		return apperrors.ErrNotInVoiceChannel
	}

	item := &playbackItem{
		ctx:  ctx,
		wav:  wav,
		gen:  gen,
		done: make(chan error, 1),
	}

	select {
	case e.queue <- item:
	case <-ctx.Done():
		return apperrors.New(apperrors.KindPlaybackFailed, "playback not admitted in time", ctx.Err())
	}

	select {
	case err := <-item.done:
		return err
	case <-ctx.Done():
		return apperrors.New(apperrors.KindPlaybackFailed, "playback wait cancelled", ctx.Err())
	}
}

// runPlayback drains one guild's queue. Each item re-checks the connection
// at dequeue time: a teardown between enqueue and dequeue fails the item
// immediately instead of leaving its caller blocked.
func (m *Manager) runPlayback(e *guildVoice) {
	for item := range e.queue {
		if item.ctx.Err() != nil {
			item.done <- apperrors.New(apperrors.KindPlaybackFailed, "caller gave up before playback", item.ctx.Err())
			continue
		}

		e.mu.Lock()
		conn, gen, stop := e.conn, e.gen, e.stop
		e.mu.Unlock()

		if conn == nil || gen != item.gen {
			item.done <- apperrors.ErrNotInVoiceChannel
			continue
		}

		if err := m.playStream(item.ctx, conn, item.wav, stop); err != nil {
			m.logger.Warn("Playback failed",
				zap.String("guild_id", e.guildID),
				zap.Error(err),
			)
			item.done <- apperrors.New(apperrors.KindPlaybackFailed, "audio playback failed", err)
			continue
		}
		item.done <- nil
	}
}

// playOpusStream transcodes WAV to OGG Opus via ffmpeg and feeds the packets
// to the connection's send channel, 20ms per packet.
func playOpusStream(ctx context.Context, conn Conn, wav []byte, stop <-chan struct{}) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Teardown closes stop; cancelling the context kills the transcoder so a
	// read stalled on its stdout unblocks instead of waiting forever.
	go func() {
		select {
		case <-stop:
			cancel()
		case <-ctx.Done():
		}
	}()

	out, wait, err := startTranscode(ctx, wav)
	if err != nil {
		return err
	}
	defer out.Close()

	// The transcoder is reaped on every exit path, killed or not.
	reap := sync.OnceValue(wait)
	defer func() {
		cancel()
		_ = reap()
	}()

	_ = conn.Speaking(true)
	defer func() { _ = conn.Speaking(false) }()

	interrupted := func() bool {
		select {
		case <-stop:
			return true
		default:
			return false
		}
	}

	packets := newOggPacketReader(out)
	for {
		pkt, err := packets.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			if interrupted() {
				return errPlaybackInterrupted
			}
			return err
		}

		select {
		case conn.OpusSend() <- pkt:
		case <-stop:
			return errPlaybackInterrupted
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	if err := reap(); err != nil {
		if interrupted() {
			return errPlaybackInterrupted
		}
		return err
	}
	return nil
}
