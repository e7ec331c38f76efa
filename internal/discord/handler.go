package discord

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"

	"github.com/JiaLong0209/discord-ai-assistant-bot/internal/answer"
	"github.com/JiaLong0209/discord-ai-assistant-bot/internal/backup"
	"github.com/JiaLong0209/discord-ai-assistant-bot/internal/history"
	"github.com/JiaLong0209/discord-ai-assistant-bot/internal/pipeline"
	"github.com/JiaLong0209/discord-ai-assistant-bot/internal/session"
	"github.com/JiaLong0209/discord-ai-assistant-bot/internal/synthesis"
	"github.com/JiaLong0209/discord-ai-assistant-bot/internal/voice"
	apperrors "github.com/JiaLong0209/discord-ai-assistant-bot/pkg/errors"
	"github.com/JiaLong0209/discord-ai-assistant-bot/pkg/logger"
)

// Handler dispatches slash command interactions to the pipeline and the
// session/voice components.
type Handler struct {
	pipeline *pipeline.Pipeline
	sessions *session.Store
	voice    *voice.Manager
	synth    *synthesis.Client
	answers  *answer.Client
	history  *history.Manager
	backups  *backup.Service
	http     *http.Client
	logger   *zap.Logger
}

// NewHandler creates the interaction handler.
func NewHandler(p *pipeline.Pipeline, sessions *session.Store, vm *voice.Manager, synth *synthesis.Client, answers *answer.Client, hist *history.Manager, backups *backup.Service) *Handler {
	return &Handler{
		pipeline: p,
		sessions: sessions,
		voice:    vm,
		synth:    synth,
		answers:  answers,
		history:  hist,
		backups:  backups,
		http:     &http.Client{Timeout: 30 * time.Second},
		logger:   logger.Get(),
	}
}

// HandleInteraction routes one slash command invocation.
func (h *Handler) HandleInteraction(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.Type != discordgo.InteractionApplicationCommand {
		return
	}

	data := i.ApplicationCommandData()
	h.logger.Info("Slash command received",
		zap.String("command", data.Name),
		zap.String("guild_id", i.GuildID),
	)

	switch data.Name {
	case "q", "ask":
		h.handleAsk(s, i)
	case "voice":
		h.handleVoice(s, i)
	case "imginfo":
		h.handleImageInfo(s, i)
	case "fix_grammar":
		h.handleFixGrammar(s, i)
	case "voice_channel_join":
		h.handleJoin(s, i)
	case "voice_channel_exit":
		h.handleExit(s, i)
	case "change_speaker":
		h.handleChangeSpeaker(s, i)
	case "reset_speaker":
		h.handleResetSpeaker(s, i)
	case "speakers":
		h.handleSpeakers(s, i)
	case "change_model":
		h.handleChangeModel(s, i)
	case "change_system_prompt":
		h.handleChangeSystemPrompt(s, i)
	case "reset_system_prompt":
		h.handleResetSystemPrompt(s, i)
	case "change_speed_scale":
		h.handleChangeKnob(s, i, "speed", synthesis.KnobSpeedScale, "Speaking speed scale")
	case "change_pitch_scale":
		h.handleChangeKnob(s, i, "pitch", synthesis.KnobPitchScale, "Pitch scale")
	case "change_intonation_scale":
		h.handleChangeKnob(s, i, "intonation", synthesis.KnobIntonationScale, "Intonation scale")
	case "change_volume_scale":
		h.handleChangeKnob(s, i, "volume", synthesis.KnobVolumeScale, "Volume scale")
	case "change_pause_length_scale":
		h.handleChangeKnob(s, i, "scale", synthesis.KnobPauseLengthScale, "Pause length scale")
	case "toggle_backup_audio":
		h.handleToggleBackupAudio(s, i)
	case "toggle_backup_text":
		h.handleToggleBackupText(s, i)
	case "show_voice_config":
		h.handleShowVoiceConfig(s, i)
	case "reset_voice_config":
		h.handleResetVoiceConfig(s, i)
	case "clear_history":
		h.handleClearHistory(s, i)
	case "set_history_length":
		h.handleSetHistoryLength(s, i)
	case "reset_all":
		h.handleResetAll(s, i)
	}
}

// userMessage maps error kinds onto distinct, user-actionable notices.
func userMessage(err error) string {
	switch apperrors.KindOf(err) {
	case apperrors.KindInvalidSpeaker:
		return "That speaker id is not in the catalog. Use /speakers to list valid ids."
	case apperrors.KindInvalidPrompt:
		return "The system prompt must not be empty."
	case apperrors.KindAnswer:
		return "The answer service is unavailable right now. Please try again later."
	case apperrors.KindSynthesis:
		return "The speech synthesis service is unavailable right now. Please try again later."
	case apperrors.KindNotInVoiceChannel:
		return "I'm not in a voice channel. Use /voice_channel_join first."
	case apperrors.KindPlaybackFailed:
		return "Playback failed. Try /voice_channel_join again, then retry."
	case apperrors.KindPermissionDenied:
		return "I don't have permission to join that voice channel."
	case apperrors.KindChannelUnavailable:
		return "I couldn't connect to that voice channel."
	case apperrors.KindAlreadyConnectedElsewhere:
		return "I'm already connected elsewhere and couldn't move. Try /voice_channel_exit first."
	default:
		return "Something went wrong. Please try again later."
	}
}

func (h *Handler) deferReply(s *discordgo.Session, i *discordgo.InteractionCreate) bool {
	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
	})
	if err != nil {
		h.logger.Warn("Failed to defer interaction", zap.Error(err))
		return false
	}
	return true
}

func (h *Handler) followUp(s *discordgo.Session, i *discordgo.InteractionCreate, content string) {
	_, err := s.FollowupMessageCreate(i.Interaction, true, &discordgo.WebhookParams{Content: content})
	if err != nil {
		h.logger.Warn("Failed to send followup", zap.Error(err))
	}
}

func options(i *discordgo.InteractionCreate) map[string]*discordgo.ApplicationCommandInteractionDataOption {
	data := i.ApplicationCommandData()
	out := make(map[string]*discordgo.ApplicationCommandInteractionDataOption, len(data.Options))
	for _, opt := range data.Options {
		out[opt.Name] = opt
	}
	return out
}

func callerName(i *discordgo.InteractionCreate) string {
	if i.Member != nil && i.Member.User != nil {
		if i.Member.Nick != "" {
			return i.Member.Nick
		}
		return i.Member.User.Username
	}
	if i.User != nil {
		return i.User.Username
	}
	return "user"
}

func (h *Handler) handleAsk(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if !h.deferReply(s, i) {
		return
	}
	text := options(i)["text"].StringValue()

	answer, err := h.pipeline.Ask(context.Background(), i.GuildID, callerName(i), text)
	if err != nil {
		h.followUp(s, i, userMessage(err))
		return
	}
	h.followUp(s, i, answer)
}

func (h *Handler) handleVoice(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if !h.deferReply(s, i) {
		return
	}
	text := options(i)["text"].StringValue()

	result, err := h.pipeline.Respond(context.Background(), i.GuildID, callerName(i), text)
	if err != nil {
		h.followUp(s, i, userMessage(err))
		return
	}
	h.followUp(s, i, result.Answer)
}

func (h *Handler) handleImageInfo(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if !h.deferReply(s, i) {
		return
	}
	opts := options(i)
	data := i.ApplicationCommandData()

	attachmentID, _ := opts["image"].Value.(string)
	attachment, ok := data.Resolved.Attachments[attachmentID]
	if !ok {
		h.followUp(s, i, "Please upload a valid image file.")
		return
	}
	if !strings.HasPrefix(attachment.ContentType, "image/") {
		h.followUp(s, i, "Please upload a valid image file.")
		return
	}

	caption := ""
	if opt, ok := opts["text"]; ok {
		caption = opt.StringValue()
	}

	image, err := h.download(attachment.URL)
	if err != nil {
		h.logger.Warn("Failed to download attachment", zap.Error(err))
		h.followUp(s, i, "I couldn't read that image.")
		return
	}

	answer, err := h.pipeline.ImageInfo(context.Background(), i.GuildID, image, attachment.ContentType, caption)
	if err != nil {
		h.followUp(s, i, userMessage(err))
		return
	}
	h.followUp(s, i, answer)
}

func (h *Handler) download(url string) ([]byte, error) {
	resp, err := h.http.Get(url)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("attachment fetch returned %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

func (h *Handler) handleFixGrammar(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if !h.deferReply(s, i) {
		return
	}
	text := options(i)["text"].StringValue()

	answer, err := h.pipeline.FixGrammar(context.Background(), i.GuildID, text)
	if err != nil {
		h.followUp(s, i, userMessage(err))
		return
	}
	h.followUp(s, i, answer)
}

func (h *Handler) handleJoin(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if !h.deferReply(s, i) {
		return
	}

	channelID := ""
	if opt, ok := options(i)["channel"]; ok {
		channelID, _ = opt.Value.(string)
	}
	if channelID == "" {
		// Fall back to the caller's current voice channel.
		userID := ""
		if i.Member != nil && i.Member.User != nil {
			userID = i.Member.User.ID
		}
		vs, err := s.State.VoiceState(i.GuildID, userID)
		if err != nil || vs == nil || vs.ChannelID == "" {
			h.followUp(s, i, "Join a voice channel first or specify one.")
			return
		}
		channelID = vs.ChannelID
	}

	if err := h.voice.Join(i.GuildID, channelID); err != nil {
		h.followUp(s, i, userMessage(err))
		return
	}
	h.followUp(s, i, fmt.Sprintf("Joined voice channel <#%s>.", channelID))
}

func (h *Handler) handleExit(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if !h.deferReply(s, i) {
		return
	}
	if err := h.voice.Exit(i.GuildID); err != nil {
		h.followUp(s, i, userMessage(err))
		return
	}
	h.followUp(s, i, "Disconnected from the voice channel.")
}

func (h *Handler) handleChangeSpeaker(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if !h.deferReply(s, i) {
		return
	}
	speakerID := int(options(i)["speaker_id"].IntValue())

	if err := h.sessions.SetSpeaker(i.GuildID, speakerID); err != nil {
		h.followUp(s, i, userMessage(err))
		return
	}
	speaker, _ := h.synth.Catalog().Lookup(speakerID)
	h.followUp(s, i, fmt.Sprintf("Speaker changed to %d (%s / %s).", speakerID, speaker.Character, speaker.Style))
}

func (h *Handler) handleResetSpeaker(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if !h.deferReply(s, i) {
		return
	}
	id := h.sessions.ResetSpeaker(i.GuildID)
	h.followUp(s, i, fmt.Sprintf("Speaker reset to default (%d).", id))
}

func (h *Handler) handleSpeakers(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if !h.deferReply(s, i) {
		return
	}
	var b strings.Builder
	b.WriteString("Available speakers:\n")
	for _, sp := range h.synth.Catalog().Speakers() {
		fmt.Fprintf(&b, "`%2d` %s（%s）\n", sp.ID, sp.Character, sp.Style)
	}
	h.followUp(s, i, b.String())
}

func (h *Handler) handleChangeModel(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if !h.deferReply(s, i) {
		return
	}
	model := options(i)["model"].StringValue()

	h.answers.SetModel(model)
	h.followUp(s, i, fmt.Sprintf("Answer model changed to `%s`.", model))
}

func (h *Handler) handleChangeSystemPrompt(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if !h.deferReply(s, i) {
		return
	}
	prompt := options(i)["prompt"].StringValue()

	if err := h.sessions.SetSystemPrompt(i.GuildID, prompt); err != nil {
		h.followUp(s, i, userMessage(err))
		return
	}
	h.followUp(s, i, fmt.Sprintf("System prompt updated.\n```%s```", prompt))
}

func (h *Handler) handleResetSystemPrompt(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if !h.deferReply(s, i) {
		return
	}
	h.sessions.ResetSystemPrompt(i.GuildID)
	h.followUp(s, i, "System prompt has been reset to the default.")
}

func (h *Handler) handleChangeKnob(s *discordgo.Session, i *discordgo.InteractionCreate, option, knob, label string) {
	if !h.deferReply(s, i) {
		return
	}
	value := options(i)[option].FloatValue()

	h.synth.Tuning().Set(knob, value)
	h.followUp(s, i, fmt.Sprintf("%s changed to %g.", label, value))
}

func (h *Handler) handleToggleBackupAudio(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if !h.deferReply(s, i) {
		return
	}
	if h.backups.ToggleAudio() {
		h.followUp(s, i, "Audio archiving is now on.")
		return
	}
	h.followUp(s, i, "Audio archiving is now off.")
}

func (h *Handler) handleToggleBackupText(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if !h.deferReply(s, i) {
		return
	}
	if h.backups.ToggleText() {
		h.followUp(s, i, "Transcript archiving is now on.")
		return
	}
	h.followUp(s, i, "Transcript archiving is now off.")
}

func (h *Handler) handleShowVoiceConfig(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if !h.deferReply(s, i) {
		return
	}
	snapshot := h.synth.Tuning().Snapshot()
	keys := make([]string, 0, len(snapshot))
	for k := range snapshot {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString("Current synthesis settings:\n```\n")
	for _, k := range keys {
		fmt.Fprintf(&b, "%s: %g\n", k, snapshot[k])
	}
	b.WriteString("```")
	h.followUp(s, i, b.String())
}

func (h *Handler) handleResetVoiceConfig(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if !h.deferReply(s, i) {
		return
	}
	h.synth.Tuning().Reset()
	h.followUp(s, i, "Synthesis settings have been reset to defaults.")
}

func (h *Handler) handleClearHistory(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if !h.deferReply(s, i) {
		return
	}
	h.history.Clear(i.GuildID)
	h.followUp(s, i, "Chat history has been cleared.")
}

func (h *Handler) handleSetHistoryLength(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if !h.deferReply(s, i) {
		return
	}
	length := int(options(i)["length"].IntValue())
	if length < 1 || length > 50 {
		h.followUp(s, i, "Please choose a value between 1 and 50.")
		return
	}
	h.history.SetLimit(length)
	h.followUp(s, i, fmt.Sprintf("History context length set to %d.", length))
}

func (h *Handler) handleResetAll(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if !h.deferReply(s, i) {
		return
	}
	h.sessions.ResetSpeaker(i.GuildID)
	h.sessions.ResetSystemPrompt(i.GuildID)
	h.synth.Tuning().Reset()
	h.history.Clear(i.GuildID)
	h.followUp(s, i, "Speaker, system prompt, synthesis settings, and chat history have been reset.")
}
