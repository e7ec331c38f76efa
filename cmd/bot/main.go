package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/JiaLong0209/discord-ai-assistant-bot/internal/answer"
	"github.com/JiaLong0209/discord-ai-assistant-bot/internal/backup"
	"github.com/JiaLong0209/discord-ai-assistant-bot/internal/discord"
	"github.com/JiaLong0209/discord-ai-assistant-bot/internal/history"
	"github.com/JiaLong0209/discord-ai-assistant-bot/internal/pipeline"
	"github.com/JiaLong0209/discord-ai-assistant-bot/internal/server"
	"github.com/JiaLong0209/discord-ai-assistant-bot/internal/session"
	"github.com/JiaLong0209/discord-ai-assistant-bot/internal/synthesis"
	"github.com/JiaLong0209/discord-ai-assistant-bot/internal/voice"
	"github.com/JiaLong0209/discord-ai-assistant-bot/pkg/config"
	"github.com/JiaLong0209/discord-ai-assistant-bot/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("Failed to load configuration: %v", err))
	}

	if err := logger.Init(cfg.Env); err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer logger.Sync()

	log := logger.Get()
	log.Info("Starting Discord AI assistant bot...")

	if cfg.DiscordBotToken == "" {
		log.Fatal("DISCORD_BOT_TOKEN is required")
	}

	// Leaf services
	catalog := synthesis.DefaultCatalog()
	if !catalog.Contains(cfg.DefaultSpeaker) {
		log.Fatal("VOICEVOX_SPEAKER is not a known speaker id", zap.Int("speaker_id", cfg.DefaultSpeaker))
	}
	synthClient := synthesis.NewClient(cfg.VoicevoxURL, catalog, synthesis.NewTuning())
	answerClient := answer.NewClient(cfg.LLMBaseURL, cfg.LLMAPIKey, cfg.LLMModel)

	// State and orchestration
	sessions := session.NewStore(catalog, cfg.DefaultSpeaker, cfg.SystemPrompt)
	hist := history.NewManager(cfg.HistoryLength)
	backups := backup.NewService(cfg.BackupDir, cfg.BackupEnabled)

	// Discord session
	dg, err := discordgo.New("Bot " + cfg.DiscordBotToken)
	if err != nil {
		log.Fatal("Failed to create Discord session", zap.Error(err))
	}

	voiceManager := voice.NewManager(voice.NewDiscordJoiner(dg), sessions)
	voice.RegisterVoiceStateHandler(dg, voiceManager)

	pipe := pipeline.New(answerClient, synthClient, voiceManager, sessions, hist, backups, cfg.RequestTimeout)
	handler := discord.NewHandler(pipe, sessions, voiceManager, synthClient, answerClient, hist, backups)

	dg.AddHandler(handler.HandleInteraction)
	dg.AddHandler(handler.HandleMessage)

	// Voice state intent is required for voice connections.
	dg.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMessages |
		discordgo.IntentsGuildVoiceStates |
		discordgo.IntentsMessageContent

	if err := dg.Open(); err != nil {
		log.Fatal("Failed to open Discord connection", zap.Error(err))
	}
	defer dg.Close()

	if err := discord.RegisterCommands(dg, cfg.GuildID); err != nil {
		log.Fatal("Failed to register slash commands", zap.Error(err))
	}
	log.Info("Slash commands registered", zap.String("guild_id", cfg.GuildID))

	// Status API
	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: server.New(sessions, log, cfg.IsProduction()),
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, os.Interrupt)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("Status API listening", zap.String("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	log.Info("Bot is running. Press CTRL-C to exit.")

	if err := g.Wait(); err != nil {
		log.Error("Shutdown with error", zap.Error(err))
	}
	log.Info("Shutting down")
}
