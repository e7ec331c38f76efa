package backup

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/JiaLong0209/discord-ai-assistant-bot/pkg/logger"
	"go.uber.org/zap"
)

// Service writes synthesized audio and transcripts to disk, grouped by
// speaker id. Audio and text archiving toggle independently at runtime;
// backup failures are logged and never fail the request that produced the
// audio.
type Service struct {
	baseDir string
	logger  *zap.Logger
	now     func() time.Time

	mu    sync.Mutex
	audio bool
	text  bool
}

// NewService creates a backup service rooted at baseDir. Both archive types
// start in the given state.
func NewService(baseDir string, enabled bool) *Service {
	return &Service{
		baseDir: baseDir,
		audio:   enabled,
		text:    enabled,
		logger:  logger.Get(),
		now:     time.Now,
	}
}

// AudioEnabled reports whether audio backups are currently written.
func (s *Service) AudioEnabled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.audio
}

// TextEnabled reports whether transcript backups are currently written.
func (s *Service) TextEnabled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.text
}

// ToggleAudio flips audio archiving and returns the new state.
func (s *Service) ToggleAudio() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.audio = !s.audio
	return s.audio
}

// ToggleText flips transcript archiving and returns the new state.
func (s *Service) ToggleText() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.text = !s.text
	return s.text
}

func (s *Service) timestamp() string {
	return s.now().Format("20060102_150405")
}

func (s *Service) write(kind, ext string, speakerID int, guildID string, data []byte) {
	dir := filepath.Join(s.baseDir, kind, strconv.Itoa(speakerID))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		s.logger.Warn("Failed to create backup directory", zap.String("dir", dir), zap.Error(err))
		return
	}
	path := filepath.Join(dir, fmt.Sprintf("%s_%s.%s", guildID, s.timestamp(), ext))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		s.logger.Warn("Failed to write backup", zap.String("path", path), zap.Error(err))
	}
}

// SaveAudio stores WAV bytes for a synthesized answer.
func (s *Service) SaveAudio(wav []byte, speakerID int, guildID string) {
	if !s.AudioEnabled() {
		return
	}
	s.write("audio", "wav", speakerID, guildID, wav)
}

// SaveText stores the transcript of a synthesized answer.
func (s *Service) SaveText(text string, speakerID int, guildID string) {
	if !s.TextEnabled() {
		return
	}
	s.write("text", "txt", speakerID, guildID, []byte(text))
}
