package errors

import (
	"errors"
	"fmt"
	"time"
)

// Kind categorizes a failure so callers can pick a distinct user-facing
// reaction (prompt to join a channel vs. report a service outage).
type Kind string

const (
	// KindInvalidSpeaker is returned when a speaker id is not in the catalog.
	KindInvalidSpeaker Kind = "invalid_speaker"
	// KindInvalidPrompt is returned when a system prompt fails validation.
	KindInvalidPrompt Kind = "invalid_prompt"
	// KindAnswer is returned when the remote LLM call fails or times out.
	KindAnswer Kind = "answer"
	// KindSynthesis is returned when the VOICEVOX call fails or times out.
	KindSynthesis Kind = "synthesis"
	// KindNotInVoiceChannel is returned when playback requires a voice
	// connection that does not exist (or no longer matches the request).
	KindNotInVoiceChannel Kind = "not_in_voice_channel"
	// KindPlaybackFailed is returned for transport failures during playback.
	KindPlaybackFailed Kind = "playback_failed"
	// KindPermissionDenied is returned when joining a channel is forbidden.
	KindPermissionDenied Kind = "permission_denied"
	// KindChannelUnavailable is returned when the target channel cannot be
	// resolved or connected to.
	KindChannelUnavailable Kind = "channel_unavailable"
	// KindAlreadyConnectedElsewhere is returned when a join races an existing
	// connection that could not be released.
	KindAlreadyConnectedElsewhere Kind = "already_connected_elsewhere"
	// KindConfig is returned for configuration validation failures.
	KindConfig Kind = "config"
)

// Error is the shared error type carrying a Kind and an optional cause.
type Error struct {
	Kind      Kind
	Message   string
	Timestamp time.Time
	Err       error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Kind, e.Message)
}

// Unwrap returns the wrapped cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error with the same Kind, so sentinels below work with
// errors.Is regardless of message or cause.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return e.Kind == t.Kind
}

// New creates an Error of the given kind.
func New(kind Kind, message string, err error) *Error {
	return &Error{
		Kind:      kind,
		Message:   message,
		Timestamp: time.Now(),
		Err:       err,
	}
}

// Sentinels for errors.Is checks.
var (
	ErrInvalidSpeaker            = New(KindInvalidSpeaker, "speaker id is not in the catalog", nil)
	ErrInvalidPrompt             = New(KindInvalidPrompt, "system prompt must not be empty", nil)
	ErrNotInVoiceChannel         = New(KindNotInVoiceChannel, "not connected to a voice channel", nil)
	ErrPlaybackFailed            = New(KindPlaybackFailed, "voice playback failed", nil)
	ErrPermissionDenied          = New(KindPermissionDenied, "missing permission to join the voice channel", nil)
	ErrChannelUnavailable        = New(KindChannelUnavailable, "voice channel is unavailable", nil)
	ErrAlreadyConnectedElsewhere = New(KindAlreadyConnectedElsewhere, "already connected to another voice channel", nil)
)

// NewAnswerError wraps a remote LLM failure.
func NewAnswerError(message string, err error) *Error {
	return New(KindAnswer, message, err)
}

// NewSynthesisError wraps a speech synthesis failure.
func NewSynthesisError(message string, err error) *Error {
	return New(KindSynthesis, message, err)
}

// KindOf extracts the Kind from err, or "" when err is not an *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}
