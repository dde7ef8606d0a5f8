package config

import (
	"context"
	"errors"
	"io/fs"
	"time"

	"github.com/joho/godotenv"
	"github.com/sethvargo/go-envconfig"
)

type Config struct {
	DiscordBotToken       string `env:"DISCORD_BOT_TOKEN"`
	DiscordApplicationID  string `env:"DISCORD_APPLICATION_ID"`
	DiscordGuildID        string `env:"DISCORD_GUILD_ID"`
	DiscordStaffRoleID    string `env:"DISCORD_STAFF_ROLE_ID"`
	DiscordTicketCategory string `env:"DISCORD_TICKET_CATEGORY,default=Tickets"`
	DiscordWelcomeChannel string `env:"DISCORD_WELCOME_CHANNEL,default=general"`

	DBDriver          string        `env:"DB_DRIVER,default=sqlite"`
	DBDSN             string        `env:"DB_DSN,default=fpsos_bot.db"`
	DBMaxIdleConns    int           `env:"DB_MAX_IDLE_CONNS,default=2"`
	DBMaxOpenConns    int           `env:"DB_MAX_OPEN_CONNS,default=1"`
	DBConnMaxLifetime time.Duration `env:"DB_CONN_MAX_LIFETIME,default=30m"`

	HTTPAddr             string        `env:"HTTP_ADDR,default=:8080"`
	GinMode              string        `env:"GIN_MODE,default=release"`
	ControlPlaneSecret   string        `env:"CONTROL_PLANE_SECRET"`
	WebhookRateLimit     float64       `env:"WEBHOOK_RATE_LIMIT,default=5"`
	WebhookRateBurst     int           `env:"WEBHOOK_RATE_BURST,default=10"`
	RateLimitRedisAddr   string        `env:"RATE_LIMIT_REDIS_ADDR"`
	RateLimitRedisWindow time.Duration `env:"RATE_LIMIT_REDIS_WINDOW,default=1m"`
	StatusStreamInterval time.Duration `env:"STATUS_STREAM_INTERVAL,default=5s"`

	FirecrawlAPIKey  string        `env:"FIRECRAWL_API_KEY"`
	FirecrawlBaseURL string        `env:"FIRECRAWL_BASE_URL,default=https://api.firecrawl.dev"`
	FirecrawlTimeout time.Duration `env:"FIRECRAWL_TIMEOUT,default=20s"`

	TelegramBotToken    string `env:"TELEGRAM_BOT_TOKEN"`
	TelegramStaffChatID int64  `env:"TELEGRAM_STAFF_CHAT_ID"`
	TelegramPollTimeout int    `env:"TELEGRAM_POLL_TIMEOUT,default=60"`

	BookingURL         string `env:"BOOKING_URL,default=https://fpsos.gg/book"`
	DiagnosticToolURL  string `env:"DIAGNOSTIC_TOOL_URL,default=https://fpsos.gg/FPSOS-CS2-Suite.ps1"`
	DiagnosticMaxBytes int64  `env:"DIAGNOSTIC_MAX_BYTES,default=1048576"`

	LogLevel  string `env:"LOG_LEVEL,default=info"`
	LogFormat string `env:"LOG_FORMAT,default=json"`
}

// Load reads an optional .env file from the working directory and then the
// process environment. Variables already set in the environment win.
func Load(ctx context.Context) (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, err
	}

	var cfg Config
	if err := envconfig.Process(ctx, &cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
