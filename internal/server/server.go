package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/JiaLong0209/discord-ai-assistant-bot/internal/session"
)

// New builds the read-only status API router. It exposes health and the
// per-guild session state; all mutation happens through Discord commands.
func New(sessions *session.Store, log *zap.Logger, production bool) *gin.Engine {
	if production {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(requestLogger(log))
	router.Use(gin.Recovery())

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := router.Group("/api")
	{
		api.GET("/sessions", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"sessions": toViews(sessions.Guilds())})
		})

		api.GET("/sessions/:guild_id", func(c *gin.Context) {
			snap, ok := sessions.Lookup(c.Param("guild_id"))
			if !ok {
				c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
				return
			}
			c.JSON(http.StatusOK, toView(snap))
		})
	}

	return router
}

type sessionView struct {
	GuildID   string `json:"guild_id"`
	SpeakerID int    `json:"speaker_id"`
	Connected bool   `json:"connected"`
	ChannelID string `json:"channel_id,omitempty"`
}

func toView(s session.Snapshot) sessionView {
	return sessionView{
		GuildID:   s.GuildID,
		SpeakerID: s.SpeakerID,
		Connected: s.Connected,
		ChannelID: s.ChannelID,
	}
}

func toViews(snaps []session.Snapshot) []sessionView {
	out := make([]sessionView, 0, len(snaps))
	for _, s := range snaps {
		out = append(out, toView(s))
	}
	return out
}

// requestLogger logs each request with latency and status.
func requestLogger(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		log.Info("HTTP Request",
			zap.Int("status", c.Writer.Status()),
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.Duration("latency", time.Since(start)),
			zap.String("ip", c.ClientIP()),
		)
	}
}
