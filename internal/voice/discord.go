package voice

import (
	"errors"
	"net/http"
	"strings"

	"github.com/bwmarrin/discordgo"

	apperrors "github.com/JiaLong0209/discord-ai-assistant-bot/pkg/errors"
)

// Conn is one live voice connection. The production implementation wraps
// *discordgo.VoiceConnection; tests use fakes.
type Conn interface {
	ChannelID() string
	Speaking(bool) error
	OpusSend() chan<- []byte
	Disconnect() error
}

// ChannelJoiner establishes voice connections. The production implementation
// wraps *discordgo.Session.
type ChannelJoiner interface {
	JoinVoiceChannel(guildID, channelID string) (Conn, error)
}

type discordConn struct {
	vc *discordgo.VoiceConnection
}

func (c *discordConn) ChannelID() string       { return c.vc.ChannelID }
func (c *discordConn) Speaking(b bool) error   { return c.vc.Speaking(b) }
func (c *discordConn) OpusSend() chan<- []byte { return c.vc.OpusSend }
func (c *discordConn) Disconnect() error       { return c.vc.Disconnect() }

type discordJoiner struct {
	session *discordgo.Session
}

// NewDiscordJoiner wraps a discordgo session as a ChannelJoiner.
func NewDiscordJoiner(session *discordgo.Session) ChannelJoiner {
	return &discordJoiner{session: session}
}

func (j *discordJoiner) JoinVoiceChannel(guildID, channelID string) (Conn, error) {
	vc, err := j.session.ChannelVoiceJoin(guildID, channelID, false, true)
	if err != nil {
		return nil, err
	}
	return &discordConn{vc: vc}, nil
}

// classifyJoinError maps transport errors from a join attempt onto the
// distinct join-time error kinds.
func classifyJoinError(err error) error {
	var restErr *discordgo.RESTError
	if errors.As(err, &restErr) {
		switch restErr.Response.StatusCode {
		case http.StatusForbidden, http.StatusUnauthorized:
			return apperrors.New(apperrors.KindPermissionDenied, "joining the voice channel was denied", err)
		case http.StatusNotFound:
			return apperrors.New(apperrors.KindChannelUnavailable, "voice channel not found", err)
		}
	}
	if strings.Contains(err.Error(), "already joined") {
		return apperrors.New(apperrors.KindAlreadyConnectedElsewhere, "voice connection already exists", err)
	}
	return apperrors.New(apperrors.KindChannelUnavailable, "could not establish voice connection", err)
}

// RegisterVoiceStateHandler subscribes the manager to gateway voice state
// updates so a platform-initiated disconnect (e.g. the bot being kicked from
// a channel) clears the guild's stored connection.
func RegisterVoiceStateHandler(session *discordgo.Session, m *Manager) {
	session.AddHandler(func(s *discordgo.Session, vs *discordgo.VoiceStateUpdate) {
		if s.State.User == nil || vs.UserID != s.State.User.ID {
			return
		}
		// ChannelID is empty when the bot left or was removed. Joins and
		// moves go through Manager.Join and need no handling here.
		if vs.ChannelID != "" {
			return
		}
		m.ConnectionLost(vs.GuildID)
	})
}
