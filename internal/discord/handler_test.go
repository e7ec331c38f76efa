package discord

import (
	"errors"
	"testing"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/JiaLong0209/discord-ai-assistant-bot/pkg/errors"
)

func TestUserMessageDistinguishesKinds(t *testing.T) {
	kinds := []apperrors.Kind{
		apperrors.KindInvalidSpeaker,
		apperrors.KindInvalidPrompt,
		apperrors.KindAnswer,
		apperrors.KindSynthesis,
		apperrors.KindNotInVoiceChannel,
		apperrors.KindPlaybackFailed,
		apperrors.KindPermissionDenied,
		apperrors.KindChannelUnavailable,
		apperrors.KindAlreadyConnectedElsewhere,
	}

	seen := make(map[string]apperrors.Kind)
	for _, kind := range kinds {
		msg := userMessage(apperrors.New(kind, "internal detail", nil))
		require.NotEmpty(t, msg)

		prev, dup := seen[msg]
		assert.False(t, dup, "kinds %q and %q share the notice %q", prev, kind, msg)
		seen[msg] = kind

		// Internal error text never leaks into the user notice.
		assert.NotContains(t, msg, "internal detail")
	}
}

func TestUserMessageFallback(t *testing.T) {
	msg := userMessage(errors.New("database on fire"))
	assert.NotEmpty(t, msg)
	assert.NotContains(t, msg, "database")
}

func TestCommandsAreWellFormed(t *testing.T) {
	cmds := Commands()
	require.NotEmpty(t, cmds)

	names := make(map[string]bool)
	for _, cmd := range cmds {
		assert.False(t, names[cmd.Name], "duplicate command %q", cmd.Name)
		names[cmd.Name] = true
		assert.NotEmpty(t, cmd.Description, "command %q has no description", cmd.Name)

		for _, opt := range cmd.Options {
			assert.NotEmpty(t, opt.Description, "option %q of %q has no description", opt.Name, cmd.Name)
		}
	}

	for _, required := range []string{
		"q", "ask", "voice", "imginfo", "fix_grammar",
		"voice_channel_join", "voice_channel_exit",
		"change_speaker", "reset_speaker", "speakers", "change_model",
		"change_system_prompt", "reset_system_prompt",
		"change_speed_scale", "change_pitch_scale", "change_intonation_scale",
		"change_volume_scale", "change_pause_length_scale",
		"toggle_backup_audio", "toggle_backup_text",
		"clear_history", "set_history_length", "reset_all",
	} {
		assert.True(t, names[required], "command %q is missing", required)
	}
}

func TestCallerNamePrefersNick(t *testing.T) {
	i := &discordgo.InteractionCreate{Interaction: &discordgo.Interaction{
		Member: &discordgo.Member{
			Nick: "nickname",
			User: &discordgo.User{Username: "username"},
		},
	}}
	assert.Equal(t, "nickname", callerName(i))

	i.Member.Nick = ""
	assert.Equal(t, "username", callerName(i))

	i.Member = nil
	i.User = &discordgo.User{Username: "dm-user"}
	assert.Equal(t, "dm-user", callerName(i))

	i.User = nil
	assert.Equal(t, "user", callerName(i))
}

func TestOptionsByName(t *testing.T) {
	i := &discordgo.InteractionCreate{Interaction: &discordgo.Interaction{
		Type: discordgo.InteractionApplicationCommand,
		Data: discordgo.ApplicationCommandInteractionData{
			Name: "q",
			Options: []*discordgo.ApplicationCommandInteractionDataOption{
				{Name: "text", Type: discordgo.ApplicationCommandOptionString, Value: "hello"},
				{Name: "speed", Type: discordgo.ApplicationCommandOptionNumber, Value: 1.5},
			},
		},
	}}

	opts := options(i)
	require.Len(t, opts, 2)
	assert.Equal(t, "hello", opts["text"].StringValue())
	assert.Equal(t, 1.5, opts["speed"].FloatValue())
}
