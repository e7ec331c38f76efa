package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
)

// DefaultSystemPrompt is used when neither SYSTEM_PROMPT nor
// SYSTEM_PROMPT_FILE is configured.
const DefaultSystemPrompt = "You are a helpful assistant."

// Config holds all application configuration.
type Config struct {
	// App
	Port string
	Env  string

	// Discord
	DiscordBotToken string
	GuildID         string // optional: register slash commands on one guild only

	// LLM
	LLMBaseURL string
	LLMAPIKey  string
	LLMModel   string

	// VOICEVOX
	VoicevoxURL     string
	DefaultSpeaker  int
	SystemPrompt    string
	RequestTimeout  time.Duration
	HistoryLength   int
	BackupDir       string
	BackupEnabled   bool
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	// A missing .env file is fine, the process environment still applies.
	_ = godotenv.Load()

	cfg := &Config{
		Port:            getEnv("PORT", "8080"),
		Env:             getEnv("ENV", "development"),
		DiscordBotToken: getEnv("DISCORD_BOT_TOKEN", ""),
		GuildID:         getEnv("GUILD_ID", ""),
		LLMBaseURL:      getEnv("LLM_BASE_URL", "http://localhost:4000"),
		LLMAPIKey:       getEnv("LLM_API_KEY", ""),
		LLMModel:        getEnv("LLM_MODEL", "gemini-2.0-flash"),
		VoicevoxURL:     getEnv("VOICEVOX_URL", "http://127.0.0.1:50021"),
		DefaultSpeaker:  getEnvInt("VOICEVOX_SPEAKER", 1),
		SystemPrompt:    loadSystemPrompt(),
		RequestTimeout:  getEnvDuration("REQUEST_TIMEOUT", 60*time.Second),
		HistoryLength:   getEnvInt("HISTORY_LENGTH", 10),
		BackupDir:       getEnv("BACKUP_DIR", "storage/backup"),
		BackupEnabled:   getEnv("BACKUP_ENABLED", "true") == "true",
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks that required configuration values are set.
func (c *Config) Validate() error {
	if c.LLMBaseURL == "" {
		return fmt.Errorf("LLM_BASE_URL is required")
	}
	if c.LLMModel == "" {
		return fmt.Errorf("LLM_MODEL is required")
	}
	if c.VoicevoxURL == "" {
		return fmt.Errorf("VOICEVOX_URL is required")
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("REQUEST_TIMEOUT must be positive")
	}
	// Discord token is optional for development (status API only).
	return nil
}

// IsProduction returns true if running in production mode.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// loadSystemPrompt prefers SYSTEM_PROMPT, then the contents of
// SYSTEM_PROMPT_FILE, then the built-in default.
func loadSystemPrompt() string {
	if prompt := os.Getenv("SYSTEM_PROMPT"); prompt != "" {
		return prompt
	}
	if path := os.Getenv("SYSTEM_PROMPT_FILE"); path != "" {
		if data, err := os.ReadFile(path); err == nil && len(data) > 0 {
			return string(data)
		}
	}
	return DefaultSystemPrompt
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		var result int
		if _, err := fmt.Sscanf(value, "%d", &result); err == nil {
			return result
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
