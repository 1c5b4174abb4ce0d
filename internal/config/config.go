package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config represents the full application configuration surface.
type Config struct {
	Server    ServerConfig
	WhatsApp  WhatsAppConfig
	RateLimit RateLimitConfig
	AI        AIConfig
	Redis     RedisConfig
	MongoDB   MongoDBConfig
	Janitor   JanitorConfig
}

// ServerConfig holds HTTP server related options.
type ServerConfig struct {
	Port string
}

// WhatsAppConfig contains credentials and options for the Meta WhatsApp Cloud API.
type WhatsAppConfig struct {
	Enabled        bool
	WebhookEnabled bool

	AccessToken string
	PhoneID     string
	VerifyToken string
	AppSecret   string
	BaseURL     string
	APIVersion  string

	VerifySignature bool

	Timeout       time.Duration
	RetryAttempts int

	LogIncoming bool
	LogOutgoing bool
}

// RateLimitConfig holds fixed-window throttling caps. Both scopes share the
// one-hour window; only the caps are tunable.
type RateLimitConfig struct {
	MaxMessagesPerHour int
	Window             time.Duration
}

// AIConfig selects the default response backend and configures each one.
type AIConfig struct {
	DefaultBackend string
	Deepseek       DeepseekConfig
	Ollama         OllamaConfig
}

// DeepseekConfig holds settings for the Deepseek chat-completions API.
type DeepseekConfig struct {
	APIKey    string
	APIURL    string
	Model     string
	MaxTokens int
}

// OllamaConfig holds settings for a local or remote Ollama instance.
type OllamaConfig struct {
	APIURL  string
	Model   string
	UseChat bool
}

// RedisConfig configures the optional Redis counter-store backend.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// MongoDBConfig configures the optional message-log repository.
type MongoDBConfig struct {
	URI    string
	DBName string
}

// JanitorConfig holds the cron schedule for counter-store cleanup.
type JanitorConfig struct {
	Schedule string
}

// Load reads environment variables (optionally from the provided file) and
// materializes a Config instance.
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("failed loading env file %s: %w", envFile, err)
			}
		}
	} else {
		// Ignore the returned error here; missing .env files are acceptable when
		// configuration comes from the environment directly.
		_ = godotenv.Load()
	}

	cfg := &Config{
		Server: ServerConfig{
			Port: getenvWithDefault("APP_PORT", "8080"),
		},
		WhatsApp: WhatsAppConfig{
			Enabled:         getenvBool("WHATSAPP_ENABLED", true),
			WebhookEnabled:  getenvBool("WHATSAPP_WEBHOOK_ENABLED", true),
			AccessToken:     os.Getenv("WHATSAPP_ACCESS_TOKEN"),
			PhoneID:         os.Getenv("WHATSAPP_PHONE_ID"),
			VerifyToken:     os.Getenv("WHATSAPP_VERIFY_TOKEN"),
			AppSecret:       os.Getenv("WHATSAPP_APP_SECRET"),
			BaseURL:         getenvWithDefault("WHATSAPP_GRAPH_API_URL", "https://graph.facebook.com"),
			APIVersion:      getenvWithDefault("WHATSAPP_API_VERSION", "v18.0"),
			VerifySignature: getenvBool("WHATSAPP_VERIFY_SIGNATURE", true),
			Timeout:         time.Duration(getenvInt("WHATSAPP_TIMEOUT", 30)) * time.Second,
			RetryAttempts:   getenvInt("WHATSAPP_RETRY_ATTEMPTS", 3),
			LogIncoming:     getenvBool("WHATSAPP_LOG_INCOMING", true),
			LogOutgoing:     getenvBool("WHATSAPP_LOG_OUTGOING", true),
		},
		RateLimit: RateLimitConfig{
			MaxMessagesPerHour: getenvInt("WHATSAPP_MAX_MESSAGES_PER_HOUR", 10),
			Window:             time.Hour,
		},
		AI: AIConfig{
			DefaultBackend: getenvWithDefault("DEFAULT_AI_BACKEND", "deepseek"),
			Deepseek: DeepseekConfig{
				APIKey:    os.Getenv("DEEPSEEK_API_KEY"),
				APIURL:    getenvWithDefault("DEEPSEEK_API_URL", "https://api.deepseek.com/chat/completions"),
				Model:     getenvWithDefault("DEEPSEEK_MODEL", "deepseek-chat"),
				MaxTokens: getenvInt("DEEPSEEK_MAX_TOKENS", 100),
			},
			Ollama: OllamaConfig{
				APIURL:  getenvWithDefault("OLLAMA_API_URL", "http://localhost:11434/api"),
				Model:   getenvWithDefault("OLLAMA_MODEL", "phi4-mini"),
				UseChat: getenvBool("OLLAMA_USE_CHAT", true),
			},
		},
		Redis: RedisConfig{
			Addr:     os.Getenv("REDIS_ADDR"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       getenvInt("REDIS_DB", 0),
		},
		MongoDB: MongoDBConfig{
			URI:    os.Getenv("MONGODB_URI"),
			DBName: getenvWithDefault("MONGODB_DB_NAME", "gateway"),
		},
		Janitor: JanitorConfig{
			Schedule: getenvWithDefault("JANITOR_SCHEDULE", "@every 10m"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate ensures that required configuration fields are populated.
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config is nil")
	}

	if c.Server.Port == "" {
		return errors.New("APP_PORT must be provided")
	}

	if c.WhatsApp.Enabled {
		switch {
		case c.WhatsApp.AccessToken == "":
			return errors.New("WHATSAPP_ACCESS_TOKEN must be provided")
		case c.WhatsApp.PhoneID == "":
			return errors.New("WHATSAPP_PHONE_ID must be provided")
		case c.WhatsApp.VerifyToken == "":
			return errors.New("WHATSAPP_VERIFY_TOKEN must be provided")
		}

		if c.WhatsApp.VerifySignature && c.WhatsApp.AppSecret == "" {
			return errors.New("WHATSAPP_APP_SECRET must be provided when signature verification is enabled")
		}
	}

	if c.WhatsApp.BaseURL == "" {
		return errors.New("WHATSAPP_GRAPH_API_URL must not be empty")
	}

	if c.WhatsApp.APIVersion == "" {
		return errors.New("WHATSAPP_API_VERSION must not be empty")
	}

	if c.WhatsApp.RetryAttempts < 1 {
		return errors.New("WHATSAPP_RETRY_ATTEMPTS must be at least 1")
	}

	if c.RateLimit.MaxMessagesPerHour < 1 {
		return errors.New("WHATSAPP_MAX_MESSAGES_PER_HOUR must be at least 1")
	}

	switch c.AI.DefaultBackend {
	case "deepseek", "ollama":
	default:
		return fmt.Errorf("DEFAULT_AI_BACKEND must be deepseek or ollama, got %q", c.AI.DefaultBackend)
	}

	return nil
}

func getenvWithDefault(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getenvBool(key string, fallback bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getenvInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}
