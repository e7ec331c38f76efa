package pipeline

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/JiaLong0209/discord-ai-assistant-bot/internal/backup"
	"github.com/JiaLong0209/discord-ai-assistant-bot/internal/history"
	"github.com/JiaLong0209/discord-ai-assistant-bot/internal/session"
	"github.com/JiaLong0209/discord-ai-assistant-bot/internal/utils"
	apperrors "github.com/JiaLong0209/discord-ai-assistant-bot/pkg/errors"
	"github.com/JiaLong0209/discord-ai-assistant-bot/pkg/logger"
)

// AnswerClient generates text for the pipeline and the relay operations.
type AnswerClient interface {
	GenerateAnswer(ctx context.Context, prompt, systemPrompt string) (string, error)
	DescribeImage(ctx context.Context, image []byte, mimeType, caption string) (string, error)
	FixGrammar(ctx context.Context, text string) (string, error)
}

// Synthesizer converts answer text into playable audio.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string, speakerID int) ([]byte, error)
}

// VoicePlayer is the playback entry point of the voice connection manager.
type VoicePlayer interface {
	Generation(guildID string) (uint64, bool)
	Play(ctx context.Context, guildID string, gen uint64, wav []byte) error
}

// Stage identifies how far a voice request got before terminating.
type Stage string

const (
	StageAdmitted     Stage = "admitted"
	StageAnswering    Stage = "answering"
	StageSynthesizing Stage = "synthesizing"
	StagePlaying      Stage = "playing"
	StageCompleted    Stage = "completed"
)

// Result reports the outcome of one request.
type Result struct {
	RequestID string
	Answer    string
	Stage     Stage
}

// Pipeline orchestrates answer generation, speech synthesis and playback
// against one guild's session. Each request snapshots the guild state once
// at admission and fails fast on the first stage error; no stage is retried.
type Pipeline struct {
	answers  AnswerClient
	synth    Synthesizer
	player   VoicePlayer
	sessions *session.Store
	history  *history.Manager
	backups  *backup.Service
	timeout  time.Duration
	logger   *zap.Logger
}

// New creates a pipeline. timeout bounds each external-service call.
func New(answers AnswerClient, synth Synthesizer, player VoicePlayer, sessions *session.Store, hist *history.Manager, backups *backup.Service, timeout time.Duration) *Pipeline {
	return &Pipeline{
		answers:  answers,
		synth:    synth,
		player:   player,
		sessions: sessions,
		history:  hist,
		backups:  backups,
		timeout:  timeout,
		logger:   logger.Get(),
	}
}

// buildPrompt prepends the guild's rolling history to the question so the
// model sees recent context.
func (p *Pipeline) buildPrompt(guildID, userName, question string) string {
	lines := make([]string, 0, 16)
	for _, msg := range p.history.Latest(guildID) {
		lines = append(lines, msg.Role+": "+msg.Content)
	}
	lines = append(lines, userName+": "+question)
	return strings.Join(lines, "\n")
}

func (p *Pipeline) record(guildID, userName, question, answer string) {
	p.history.AddUserMessage(guildID, userName, question)
	p.history.AddAssistantMessage(guildID, answer)
}

// Ask answers a question as text, with guild history as context.
func (p *Pipeline) Ask(ctx context.Context, guildID, userName, question string) (string, error) {
	snap := p.sessions.Snapshot(guildID)

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	answer, err := p.answers.GenerateAnswer(ctx, p.buildPrompt(guildID, userName, question), snap.SystemPrompt)
	if err != nil {
		return "", err
	}
	answer = utils.RemoveTimeTags(answer)
	p.record(guildID, userName, question, answer)
	return answer, nil
}

// ImageInfo relays an image description request.
func (p *Pipeline) ImageInfo(ctx context.Context, guildID string, image []byte, mimeType, caption string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()
	return p.answers.DescribeImage(ctx, image, mimeType, caption)
}

// FixGrammar relays a grammar-fix request.
func (p *Pipeline) FixGrammar(ctx context.Context, guildID, text string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()
	return p.answers.FixGrammar(ctx, text)
}

// Respond runs the full voice pipeline for a question: answer, synthesize,
// play. The session's speaker id, system prompt and connection generation
// are captured once at admission; a prompt change or reconnect after that
// point does not affect this request. The first failing stage terminates the
// request with that stage's error kind. A missing voice connection is
// reported, never silently joined.
func (p *Pipeline) Respond(ctx context.Context, guildID, userName, question string) (*Result, error) {
	requestID := uuid.NewString()
	result := &Result{RequestID: requestID, Stage: StageAdmitted}

	snap := p.sessions.Snapshot(guildID)
	gen, _ := p.player.Generation(guildID)

	log := p.logger.With(
		zap.String("request_id", requestID),
		zap.String("guild_id", guildID),
	)
	log.Info("Voice request admitted",
		zap.Int("speaker_id", snap.SpeakerID),
		zap.Bool("connected", snap.Connected),
	)

	// Answering
	result.Stage = StageAnswering
	answer, err := p.generate(ctx, guildID, userName, question, snap.SystemPrompt)
	if err != nil {
		log.Warn("Answer stage failed", zap.Error(err))
		return result, err
	}
	result.Answer = answer
	p.record(guildID, userName, question, answer)

	// Synthesizing
	result.Stage = StageSynthesizing
	speakable := utils.ExtractSpeakableText(answer)
	wav, err := p.synthesize(ctx, speakable, snap.SpeakerID)
	if err != nil {
		log.Warn("Synthesis stage failed", zap.Error(err))
		return result, err
	}

	p.backups.SaveAudio(wav, snap.SpeakerID, guildID)
	p.backups.SaveText(answer, snap.SpeakerID, guildID)

	// Playing
	result.Stage = StagePlaying
	if err := p.player.Play(ctx, guildID, gen, wav); err != nil {
		log.Warn("Playback stage failed", zap.Error(err))
		return result, err
	}

	result.Stage = StageCompleted
	log.Info("Voice request completed", zap.Int("answer_len", len(answer)))
	return result, nil
}

func (p *Pipeline) generate(ctx context.Context, guildID, userName, question, systemPrompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	answer, err := p.answers.GenerateAnswer(ctx, p.buildPrompt(guildID, userName, question), systemPrompt)
	if err != nil {
		if apperrors.KindOf(err) == apperrors.KindAnswer {
			return "", err
		}
		return "", apperrors.NewAnswerError("answer generation failed", err)
	}
	return utils.RemoveTimeTags(answer), nil
}

func (p *Pipeline) synthesize(ctx context.Context, text string, speakerID int) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	wav, err := p.synth.Synthesize(ctx, text, speakerID)
	if err != nil {
		if apperrors.KindOf(err) == apperrors.KindSynthesis {
			return nil, err
		}
		return nil, apperrors.NewSynthesisError("speech synthesis failed", err)
	}
	return wav, nil
}
