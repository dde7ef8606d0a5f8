package app

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/fpsos/fpsbot/internal/config"
	"github.com/fpsos/fpsbot/internal/delivery/discord"
	"github.com/fpsos/fpsbot/internal/delivery/httpapi"
	"github.com/fpsos/fpsbot/internal/delivery/telegram"
	"github.com/fpsos/fpsbot/internal/domain"
	"github.com/fpsos/fpsbot/internal/infra/db"
	"github.com/fpsos/fpsbot/internal/infra/firecrawl"
	"github.com/fpsos/fpsbot/internal/infra/log"
	"github.com/fpsos/fpsbot/internal/infra/metrics"
	"github.com/fpsos/fpsbot/internal/infra/ratelimit"
	"github.com/fpsos/fpsbot/internal/usecase"
	"github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const attachmentFetchTimeout = 30 * time.Second

type App struct {
	discord   *discord.Bot
	server    *httpapi.Server
	telegram  *telegram.Bot
	logger    *zap.Logger
	cleanupFn func() error
}

func New(ctx context.Context, cfg config.Config) (*App, error) {
	if cfg.DiscordBotToken == "" {
		return nil, errors.New("DISCORD_BOT_TOKEN is required")
	}

	logger, err := log.NewLogger(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return nil, err
	}

	dbConn, err := db.Open(cfg, logger)
	if err != nil {
		return nil, err
	}
	var res resources
	res.add(func() error {
		sqlDB, err := dbConn.DB()
		if err != nil {
			return err
		}
		return sqlDB.Close()
	})
	fail := func(err error) (*App, error) {
		if closeErr := res.close(); closeErr != nil {
			logger.Warn("failed to release resources", zap.Error(closeErr))
		}
		return nil, err
	}

	userRepo := db.NewUserRepository(dbConn)
	diagnosticRepo := db.NewDiagnosticRepository(dbConn)
	bookingRepo := db.NewBookingRepository(dbConn)
	ticketRepo := db.NewTicketRepository(dbConn)
	tagRepo := db.NewTagRepository(dbConn)

	limiter, closeLimiter, err := newLimiter(ctx, cfg)
	if err != nil {
		return fail(err)
	}
	if closeLimiter != nil {
		res.add(closeLimiter)
	}

	collector := metrics.NewCollector()

	var alerter usecase.StaffAlerter = telegram.NopAlerter{}
	var tgAPI *tgbotapi.BotAPI
	if cfg.TelegramBotToken != "" {
		tgAPI, err = telegram.NewAPI(cfg.TelegramBotToken)
		if err != nil {
			return fail(err)
		}
		if cfg.TelegramStaffChatID != 0 {
			alerter = telegram.NewAlerter(tgAPI, cfg.TelegramStaffChatID, logger)
		}
	}

	session, err := discord.NewSession(cfg.DiscordBotToken)
	if err != nil {
		return fail(err)
	}
	links := discord.Links{BookingURL: cfg.BookingURL, DiagnosticToolURL: cfg.DiagnosticToolURL}
	adapter := discord.NewAdapter(session, &http.Client{Timeout: attachmentFetchTimeout}, discord.AdapterConfig{
		GuildID:        cfg.DiscordGuildID,
		StaffRoleID:    cfg.DiscordStaffRoleID,
		TicketCategory: cfg.DiscordTicketCategory,
		WelcomeChannel: cfg.DiscordWelcomeChannel,
		Links:          links,
	}, logger)

	userUC := usecase.NewUserUsecase(userRepo, diagnosticRepo)
	diagnosticUC := usecase.NewDiagnosticUsecase(userRepo, diagnosticRepo, adapter, cfg.DiagnosticMaxBytes, logger)
	ticketUC := usecase.NewTicketUsecase(ticketRepo, userRepo, adapter, adapter, alerter, logger)
	bookingUC := usecase.NewBookingUsecase(bookingRepo, userRepo, diagnosticRepo, adapter, alerter, logger)
	tagUC := usecase.NewTagUsecase(tagRepo)
	statsUC := usecase.NewStatsUsecase(userRepo, diagnosticRepo, bookingRepo)

	var tgBot *telegram.Bot
	if tgAPI != nil {
		handlers := telegram.NewHandlers(statsUC, ticketUC, cfg.TelegramStaffChatID, logger)
		tgBot = telegram.NewBot(tgAPI, handlers, cfg.TelegramPollTimeout)
	}

	var searcher domain.Searcher
	if cfg.FirecrawlAPIKey != "" {
		searcher = firecrawl.NewClient(cfg.FirecrawlBaseURL, cfg.FirecrawlAPIKey, cfg.FirecrawlTimeout, logger)
	}
	researchUC := usecase.NewResearchUsecase(searcher)

	router := discord.NewRouter(diagnosticUC, ticketUC, tagUC, adapter, collector, links, logger)
	commands := discord.NewCommands(ticketUC, tagUC, userUC, statsUC, researchUC, session.HeartbeatLatency, collector, links, logger)
	bot := discord.NewBot(session, adapter, router, commands, userUC, collector, discord.BotConfig{
		ApplicationID: cfg.DiscordApplicationID,
		GuildID:       cfg.DiscordGuildID,
		StaffRoleID:   cfg.DiscordStaffRoleID,
	}, logger)

	handler := httpapi.NewHandler(bookingUC, bot, adapter, collector, cfg.StatusStreamInterval, logger)
	server := httpapi.NewServer(httpapi.ServerConfig{
		Addr:    cfg.HTTPAddr,
		GinMode: cfg.GinMode,
		Secret:  cfg.ControlPlaneSecret,
	}, handler, limiter, logger)

	return &App{discord: bot, server: server, telegram: tgBot, logger: logger, cleanupFn: res.close}, nil
}

// resources closes what New opened, newest first.
type resources struct {
	closers []func() error
}

func (r *resources) add(fn func() error) {
	r.closers = append(r.closers, fn)
}

func (r *resources) close() error {
	var errs []error
	for i := len(r.closers) - 1; i >= 0; i-- {
		errs = append(errs, r.closers[i]())
	}
	r.closers = nil
	return errors.Join(errs...)
}

// newLimiter picks the shared Redis window when an address is configured and
// the in-process token bucket otherwise.
func newLimiter(ctx context.Context, cfg config.Config) (ratelimit.Limiter, func() error, error) {
	if cfg.RateLimitRedisAddr == "" {
		limiter, err := ratelimit.NewMemoryLimiter(cfg.WebhookRateLimit, cfg.WebhookRateBurst)
		return limiter, nil, err
	}

	client := redis.NewClient(&redis.Options{Addr: cfg.RateLimitRedisAddr})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, nil, err
	}
	perWindow := int(cfg.WebhookRateLimit * cfg.RateLimitRedisWindow.Seconds())
	if perWindow < cfg.WebhookRateBurst {
		perWindow = cfg.WebhookRateBurst
	}
	limiter, err := ratelimit.NewRedisLimiter(client, "fpsbot:webhook", perWindow, cfg.RateLimitRedisWindow)
	if err != nil {
		_ = client.Close()
		return nil, nil, err
	}
	return limiter, client.Close, nil
}

func (a *App) Run(ctx context.Context) error {
	a.logger.Info("fpsbot service starting")

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return a.discord.Start(gctx) })
	g.Go(func() error { return a.server.Start(gctx) })
	if a.telegram != nil {
		g.Go(func() error { return a.telegram.Start(gctx) })
	}

	a.logger.Info("fpsbot service started")
	return g.Wait()
}

func (a *App) Shutdown() {
	a.logger.Info("fpsbot service shutting down")
	if a.cleanupFn != nil {
		if err := a.cleanupFn(); err != nil {
			a.logger.Warn("failed to release resources", zap.Error(err))
		}
	}
	_ = a.logger.Sync()
}
