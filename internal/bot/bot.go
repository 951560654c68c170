// Package bot connects the intake form to Telegram.
package bot

import (
	"fmt"
	"log/slog"

	telebot "gopkg.in/telebot.v3"

	"github.com/Proton-105/course-intake-bot/internal/bot/handlers"
	"github.com/Proton-105/course-intake-bot/internal/form"
	"github.com/Proton-105/course-intake-bot/internal/i18n"
	"github.com/Proton-105/course-intake-bot/internal/idempotency"
	"github.com/Proton-105/course-intake-bot/internal/middleware"
	"github.com/Proton-105/course-intake-bot/pkg/config"
)

// Deps are the collaborators of the bot transport.
type Deps struct {
	Conversation handlers.Conversation
	Translator   i18n.Translator
	Errors       form.ErrorReporter
	// Idempotency and RateLimit are optional.
	Idempotency idempotency.Manager
	RateLimit   *middleware.RateLimitMiddleware
}

// Bot wraps telebot.Bot with application dependencies required for handling updates.
type Bot struct {
	telebot *telebot.Bot
	router  *Router
	deps    Deps
	log     *slog.Logger
}

// New builds a telegram bot instance configured according to the application settings.
func New(cfg config.BotConfig, deps Deps, log *slog.Logger) (*Bot, error) {
	settings := telebot.Settings{
		Token: cfg.Token,
	}

	if cfg.Mode == "webhook" {
		settings.Poller = &telebot.Webhook{
			Listen:   cfg.Listen,
			Endpoint: &telebot.WebhookEndpoint{PublicURL: cfg.WebhookURL},
		}
	} else {
		settings.Poller = &telebot.LongPoller{
			Timeout: cfg.Timeout,
		}
	}

	return build(settings, deps, log)
}

func build(settings telebot.Settings, deps Deps, log *slog.Logger) (*Bot, error) {
	if deps.Conversation == nil {
		return nil, fmt.Errorf("bot: conversation is required")
	}
	if log == nil {
		log = slog.Default()
	}

	settings.OnError = func(err error, c telebot.Context) {
		log.Error("telebot error", slog.Any("error", err))
	}

	tb, err := telebot.NewBot(settings)
	if err != nil {
		return nil, fmt.Errorf("initialize telebot: %w", err)
	}

	b := &Bot{
		telebot: tb,
		router:  NewRouter(log),
		deps:    deps,
		log:     log,
	}

	b.setupRouter()

	if deps.RateLimit != nil {
		b.telebot.Use(deps.RateLimit.Handle)
	}

	b.telebot.Handle(telebot.OnText, b.router.Route)

	return b, nil
}

// Start registers the command menu and runs the telegram bot event loop.
func (b *Bot) Start() {
	if b.telebot == nil {
		return
	}

	if err := b.telebot.SetCommands(Commands(b.deps.Translator)); err != nil {
		b.log.Warn("failed to register bot commands", slog.Any("error", err))
	}

	b.telebot.Start()
}

// Stop gracefully stops the telegram bot.
func (b *Bot) Stop() {
	if b.telebot == nil {
		return
	}

	b.log.Info("stopping telegram bot...")
	b.telebot.Stop()
}

// Telebot exposes the underlying telebot.Bot instance for integrations such as health checks.
func (b *Bot) Telebot() *telebot.Bot {
	return b.telebot
}

func (b *Bot) setupRouter() {
	fallback := ""
	if b.deps.Translator != nil {
		fallback = b.deps.Translator.T("errors.internal")
	}

	b.router.Use(RecoveryMiddleware(b.log, b.deps.Errors, fallback))
	b.router.Use(middleware.Idempotency(b.deps.Idempotency, b.log))
	b.router.Use(ErrorHandlingMiddleware(b.deps.Errors, fallback))
	b.router.Use(LoggingMiddleware(b.log))
	b.router.Use(middleware.Metrics)

	conv := b.deps.Conversation
	help := handlers.NewHelpHandler(conv)

	b.router.RegisterCommand(CommandStart, handlers.NewStartHandler(conv, b.log))
	b.router.RegisterCommand(CommandCancel, handlers.NewCancelHandler(conv, b.log))
	b.router.RegisterCommand(CommandHelp, help)
	b.router.SetUnknownCommand(help)
	b.router.SetDefault(handlers.NewTextHandler(conv, b.log))
}
