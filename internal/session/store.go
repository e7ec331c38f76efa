package session

import (
	"sort"
	"sync"

	"github.com/JiaLong0209/discord-ai-assistant-bot/internal/synthesis"
	apperrors "github.com/JiaLong0209/discord-ai-assistant-bot/pkg/errors"
)

// Conn is the voice connection handle a session tracks. The concrete type
// lives in the voice package; the store only cares about identity and the
// channel it points at.
type Conn interface {
	ChannelID() string
}

// GuildSession is the per-guild mutable record: the live voice connection
// (if any), the selected speaker and the active system prompt. Sessions are
// created lazily and never destroyed; the connection field is cleared on
// exit or connection loss.
type GuildSession struct {
	mu           sync.Mutex
	guildID      string
	speakerID    int
	systemPrompt string
	conn         Conn
}

// GuildID returns the owning guild id.
func (s *GuildSession) GuildID() string {
	return s.guildID
}

// SpeakerID returns the currently selected speaker id.
func (s *GuildSession) SpeakerID() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.speakerID
}

// SystemPrompt returns the currently active system prompt.
func (s *GuildSession) SystemPrompt() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.systemPrompt
}

// Connection returns the stored voice connection handle, or nil.
func (s *GuildSession) Connection() Conn {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn
}

// Snapshot is a consistent read of the request-relevant session state, taken
// once at request admission. A later prompt or speaker change never affects
// a request that already snapshotted.
type Snapshot struct {
	GuildID      string
	SpeakerID    int
	SystemPrompt string
	Connected    bool
	ChannelID    string
}

// Store maps guild ids to sessions. The map itself is guarded by an RWMutex;
// each session carries its own lock, so mutations on one guild never
// serialize unrelated guilds.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*GuildSession

	catalog        *synthesis.Catalog
	defaultSpeaker int
	defaultPrompt  string
}

// NewStore creates a session store with the given defaults. New sessions
// start with defaultSpeaker and defaultPrompt.
func NewStore(catalog *synthesis.Catalog, defaultSpeaker int, defaultPrompt string) *Store {
	return &Store{
		sessions:       make(map[string]*GuildSession),
		catalog:        catalog,
		defaultSpeaker: defaultSpeaker,
		defaultPrompt:  defaultPrompt,
	}
}

// GetOrCreate returns the guild's session, creating it with defaults on
// first access. Repeated calls return the same record.
func (st *Store) GetOrCreate(guildID string) *GuildSession {
	st.mu.RLock()
	s, ok := st.sessions[guildID]
	st.mu.RUnlock()
	if ok {
		return s
	}

	st.mu.Lock()
	defer st.mu.Unlock()
	if s, ok := st.sessions[guildID]; ok {
		return s
	}
	s = &GuildSession{
		guildID:      guildID,
		speakerID:    st.defaultSpeaker,
		systemPrompt: st.defaultPrompt,
	}
	st.sessions[guildID] = s
	return s
}

// Snapshot atomically reads the state a request needs at admission.
func (st *Store) Snapshot(guildID string) Snapshot {
	return st.GetOrCreate(guildID).snapshot()
}

// Lookup returns the guild's snapshot without creating a session, so callers
// serving reads (the status API) cannot grow the map with arbitrary ids.
func (st *Store) Lookup(guildID string) (Snapshot, bool) {
	st.mu.RLock()
	s, ok := st.sessions[guildID]
	st.mu.RUnlock()
	if !ok {
		return Snapshot{}, false
	}
	return s.snapshot(), true
}

func (s *GuildSession) snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := Snapshot{
		GuildID:      s.guildID,
		SpeakerID:    s.speakerID,
		SystemPrompt: s.systemPrompt,
	}
	if s.conn != nil {
		snap.Connected = true
		snap.ChannelID = s.conn.ChannelID()
	}
	return snap
}

// SetSpeaker selects a new speaker for the guild. Ids outside the catalog
// are rejected and the prior value is left unchanged.
func (st *Store) SetSpeaker(guildID string, speakerID int) error {
	if !st.catalog.Contains(speakerID) {
		return apperrors.ErrInvalidSpeaker
	}
	s := st.GetOrCreate(guildID)
	s.mu.Lock()
	s.speakerID = speakerID
	s.mu.Unlock()
	return nil
}

// ResetSpeaker restores the configured default speaker.
func (st *Store) ResetSpeaker(guildID string) int {
	s := st.GetOrCreate(guildID)
	s.mu.Lock()
	s.speakerID = st.defaultSpeaker
	s.mu.Unlock()
	return st.defaultSpeaker
}

// SetSystemPrompt replaces the guild's system prompt. Empty prompts are
// rejected. The change is effective for the very next answer call; requests
// already admitted keep their snapshot.
func (st *Store) SetSystemPrompt(guildID, prompt string) error {
	if prompt == "" {
		return apperrors.ErrInvalidPrompt
	}
	s := st.GetOrCreate(guildID)
	s.mu.Lock()
	s.systemPrompt = prompt
	s.mu.Unlock()
	return nil
}

// ResetSystemPrompt restores the configured default prompt.
func (st *Store) ResetSystemPrompt(guildID string) {
	s := st.GetOrCreate(guildID)
	s.mu.Lock()
	s.systemPrompt = st.defaultPrompt
	s.mu.Unlock()
}

// SetConnection stores the guild's live voice connection. Used only by the
// voice connection manager.
func (st *Store) SetConnection(guildID string, conn Conn) {
	s := st.GetOrCreate(guildID)
	s.mu.Lock()
	s.conn = conn
	s.mu.Unlock()
}

// ClearConnection drops the stored connection if it still matches conn, so a
// late disconnect event for a torn-down connection cannot clobber a newer
// one. A nil conn clears unconditionally.
func (st *Store) ClearConnection(guildID string, conn Conn) {
	s := st.GetOrCreate(guildID)
	s.mu.Lock()
	if conn == nil || s.conn == conn {
		s.conn = nil
	}
	s.mu.Unlock()
}

// Guilds returns a snapshot per known guild, ordered by id, for the status
// API.
func (st *Store) Guilds() []Snapshot {
	st.mu.RLock()
	ids := make([]string, 0, len(st.sessions))
	for id := range st.sessions {
		ids = append(ids, id)
	}
	st.mu.RUnlock()

	sort.Strings(ids)
	out := make([]Snapshot, 0, len(ids))
	for _, id := range ids {
		out = append(out, st.Snapshot(id))
	}
	return out
}
