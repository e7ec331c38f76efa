package discord

import (
	"context"
	"strings"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

// HandleMessage answers free-form messages that mention the bot. Slash
// commands stay the primary surface; this mirrors the mention-to-answer
// behavior so conversations can continue inline.
func (h *Handler) HandleMessage(s *discordgo.Session, m *discordgo.MessageCreate) {
	if m.Author.ID == s.State.User.ID || m.Author.Bot {
		return
	}
	if m.GuildID == "" {
		return
	}

	mentioned := false
	for _, mention := range m.Mentions {
		if mention.ID == s.State.User.ID {
			mentioned = true
			break
		}
	}
	if !mentioned {
		return
	}

	content := strings.TrimSpace(m.Content)
	content = strings.ReplaceAll(content, "<@"+s.State.User.ID+">", "")
	content = strings.ReplaceAll(content, "<@!"+s.State.User.ID+">", "")
	content = strings.TrimSpace(content)
	if content == "" {
		content = "(empty message)"
	}

	userName := m.Author.Username
	if m.Member != nil && m.Member.Nick != "" {
		userName = m.Member.Nick
	}

	h.logger.Info("Mention received",
		zap.String("guild_id", m.GuildID),
		zap.String("user_id", m.Author.ID),
	)

	answer, err := h.pipeline.Ask(context.Background(), m.GuildID, userName, content)
	if err != nil {
		answer = userMessage(err)
	}

	reply := "<@" + m.Author.ID + "> " + answer
	if _, err := s.ChannelMessageSend(m.ChannelID, reply); err != nil {
		h.logger.Warn("Failed to send reply", zap.Error(err))
	}
}
