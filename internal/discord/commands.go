package discord

import (
	"fmt"

	"github.com/bwmarrin/discordgo"
)

// Commands returns the slash command set the bot registers.
func Commands() []*discordgo.ApplicationCommand {
	return []*discordgo.ApplicationCommand{
		{
			Name:        "q",
			Description: "Ask any question and get an AI-generated answer.",
			Options: []*discordgo.ApplicationCommandOption{
				{Type: discordgo.ApplicationCommandOptionString, Name: "text", Description: "Your question", Required: true},
			},
		},
		{
			Name:        "ask",
			Description: "Ask any question (alias of /q).",
			Options: []*discordgo.ApplicationCommandOption{
				{Type: discordgo.ApplicationCommandOptionString, Name: "text", Description: "Your question", Required: true},
			},
		},
		{
			Name:        "voice",
			Description: "Ask a question and hear the answer in your voice channel.",
			Options: []*discordgo.ApplicationCommandOption{
				{Type: discordgo.ApplicationCommandOptionString, Name: "text", Description: "Your question", Required: true},
			},
		},
		{
			Name:        "imginfo",
			Description: "Upload an image and get an AI description.",
			Options: []*discordgo.ApplicationCommandOption{
				{Type: discordgo.ApplicationCommandOptionAttachment, Name: "image", Description: "Image to describe", Required: true},
				{Type: discordgo.ApplicationCommandOptionString, Name: "text", Description: "Optional caption or question", Required: false},
			},
		},
		{
			Name:        "fix_grammar",
			Description: "Fix grammar, spelling, and phrasing of your text.",
			Options: []*discordgo.ApplicationCommandOption{
				{Type: discordgo.ApplicationCommandOptionString, Name: "text", Description: "Text to correct", Required: true},
			},
		},
		{
			Name:        "voice_channel_join",
			Description: "Make the bot join your current voice channel or the specified one.",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:         discordgo.ApplicationCommandOptionChannel,
					Name:         "channel",
					Description:  "Voice channel to join",
					ChannelTypes: []discordgo.ChannelType{discordgo.ChannelTypeGuildVoice},
					Required:     false,
				},
			},
		},
		{
			Name:        "voice_channel_exit",
			Description: "Disconnect the bot from the current voice channel.",
		},
		{
			Name:        "change_speaker",
			Description: "Change the VOICEVOX speaker id for this server.",
			Options: []*discordgo.ApplicationCommandOption{
				{Type: discordgo.ApplicationCommandOptionInteger, Name: "speaker_id", Description: "Speaker id from /speakers", Required: true},
			},
		},
		{
			Name:        "reset_speaker",
			Description: "Reset the VOICEVOX speaker id to the default.",
		},
		{
			Name:        "speakers",
			Description: "List the available VOICEVOX speakers.",
		},
		{
			Name:        "change_model",
			Description: "Change the AI model used for answers.",
			Options: []*discordgo.ApplicationCommandOption{
				{Type: discordgo.ApplicationCommandOptionString, Name: "model", Description: "Model name", Required: true},
			},
		},
		{
			Name:        "change_system_prompt",
			Description: "Change the system prompt for this server's answers.",
			Options: []*discordgo.ApplicationCommandOption{
				{Type: discordgo.ApplicationCommandOptionString, Name: "prompt", Description: "New system prompt", Required: true},
			},
		},
		{
			Name:        "reset_system_prompt",
			Description: "Reset the system prompt to the default.",
		},
		{
			Name:        "change_speed_scale",
			Description: "Change the VOICEVOX speaking speed.",
			Options: []*discordgo.ApplicationCommandOption{
				{Type: discordgo.ApplicationCommandOptionNumber, Name: "speed", Description: "Speed scale (1.0 is normal)", Required: true},
			},
		},
		{
			Name:        "change_pitch_scale",
			Description: "Change the VOICEVOX voice pitch.",
			Options: []*discordgo.ApplicationCommandOption{
				{Type: discordgo.ApplicationCommandOptionNumber, Name: "pitch", Description: "Pitch scale (0 is normal)", Required: true},
			},
		},
		{
			Name:        "change_intonation_scale",
			Description: "Change the VOICEVOX intonation strength.",
			Options: []*discordgo.ApplicationCommandOption{
				{Type: discordgo.ApplicationCommandOptionNumber, Name: "intonation", Description: "Intonation scale (1.0 is normal)", Required: true},
			},
		},
		{
			Name:        "change_volume_scale",
			Description: "Change the VOICEVOX output volume.",
			Options: []*discordgo.ApplicationCommandOption{
				{Type: discordgo.ApplicationCommandOptionNumber, Name: "volume", Description: "Volume scale (1.0 is normal)", Required: true},
			},
		},
		{
			Name:        "change_pause_length_scale",
			Description: "Change the VOICEVOX pause length between phrases.",
			Options: []*discordgo.ApplicationCommandOption{
				{Type: discordgo.ApplicationCommandOptionNumber, Name: "scale", Description: "Pause length scale (1.0 is normal)", Required: true},
			},
		},
		{
			Name:        "toggle_backup_audio",
			Description: "Toggle archiving of synthesized audio files.",
		},
		{
			Name:        "toggle_backup_text",
			Description: "Toggle archiving of answer transcripts.",
		},
		{
			Name:        "show_voice_config",
			Description: "Show the current VOICEVOX synthesis settings.",
		},
		{
			Name:        "reset_voice_config",
			Description: "Reset the VOICEVOX synthesis settings to defaults.",
		},
		{
			Name:        "clear_history",
			Description: "Clear this server's chat history with the AI.",
		},
		{
			Name:        "set_history_length",
			Description: "Set how many previous exchanges are used for context.",
			Options: []*discordgo.ApplicationCommandOption{
				{Type: discordgo.ApplicationCommandOptionInteger, Name: "length", Description: "Exchanges to keep (1-50)", Required: true},
			},
		},
		{
			Name:        "reset_all",
			Description: "Reset speaker, system prompt, synthesis settings, and chat history.",
		},
	}
}

// RegisterCommands creates the slash commands, guild-scoped when guildID is
// set (instant propagation, used in development) and global otherwise.
func RegisterCommands(s *discordgo.Session, guildID string) error {
	for _, cmd := range Commands() {
		if _, err := s.ApplicationCommandCreate(s.State.User.ID, guildID, cmd); err != nil {
			return fmt.Errorf("register command %s: %w", cmd.Name, err)
		}
	}
	return nil
}
