package history

import (
	"fmt"
	"sync"
	"time"
)

// Message is one line of guild conversation context.
type Message struct {
	Role    string // "user" or "assistant"
	Content string
}

// Manager keeps a per-guild rolling window of the last N exchanges. Lines
// are time-tagged so the model can reason about recency; the tags are
// stripped again before any answer reaches speech synthesis.
type Manager struct {
	mu      sync.Mutex
	limit   int
	history map[string][]Message
	now     func() time.Time
}

// NewManager creates a history manager keeping limit exchanges per guild.
func NewManager(limit int) *Manager {
	if limit < 1 {
		limit = 1
	}
	return &Manager{
		limit:   limit,
		history: make(map[string][]Message),
		now:     time.Now,
	}
}

func (m *Manager) timestamp() string {
	return m.now().Format("2006/01/02 15:04:05")
}

// AddUserMessage records a user line for the guild.
func (m *Manager) AddUserMessage(guildID, userName, content string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.history[guildID] = append(m.history[guildID], Message{
		Role:    "user",
		Content: fmt.Sprintf("[time: %s] %s: %s", m.timestamp(), userName, content),
	})
	m.trim(guildID)
}

// AddAssistantMessage records an assistant line for the guild.
func (m *Manager) AddAssistantMessage(guildID, content string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.history[guildID] = append(m.history[guildID], Message{
		Role:    "assistant",
		Content: fmt.Sprintf("[time: %s] %s", m.timestamp(), content),
	})
	m.trim(guildID)
}

// trim keeps at most limit exchanges (user+assistant pairs). Callers hold mu.
func (m *Manager) trim(guildID string) {
	max := m.limit * 2
	if h := m.history[guildID]; len(h) > max {
		m.history[guildID] = append([]Message(nil), h[len(h)-max:]...)
	}
}

// Latest returns a copy of the guild's current context window.
func (m *Manager) Latest(guildID string) []Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	h := m.history[guildID]
	max := m.limit * 2
	if len(h) > max {
		h = h[len(h)-max:]
	}
	return append([]Message(nil), h...)
}

// Clear drops the guild's history.
func (m *Manager) Clear(guildID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.history, guildID)
}

// SetLimit changes how many exchanges are kept per guild.
func (m *Manager) SetLimit(limit int) {
	if limit < 1 {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.limit = limit
}

// Limit returns the current per-guild exchange limit.
func (m *Manager) Limit() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.limit
}
