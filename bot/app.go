// Package bot assembles the Persian business-coach assistant: the
// conversational dispatcher, its Postgres-backed stores, the LLM
// client, and the Telegram surface wired through the core runtime.
package bot

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	tele "gopkg.in/telebot.v4"

	"blucoach/coach"
	"blucoach/coach/convstate"
	"blucoach/coach/history"
	"blucoach/coach/llm"
	"blucoach/coach/profile"
	"blucoach/core/bootstrap"
	tg "blucoach/core/telegram"
	"blucoach/core/telegram/helpers"
	"blucoach/core/telegram/router"
)

// App holds the assembled application.
type App struct {
	cfg        *Config
	db         *sqlx.DB
	dispatcher *coach.Dispatcher
}

// NewApp bootstraps infrastructure and wires the coach domain.
func NewApp(cfg *Config) (*App, error) {
	res, err := bootstrap.Run(bootstrap.Options{
		Config:   cfg.CoreConfig(),
		Database: cfg.Database,
	})
	if err != nil {
		return nil, err
	}

	llmTimeout := time.Duration(cfg.LLM.TimeoutSeconds+10) * time.Second
	completer := llm.New(cfg.LLM, llm.Config{
		SystemPrompt:  systemPrompt,
		SummaryPrompt: summaryPrompt,
		VisionPrompt:  visionPrompt,
	}, tg.BuildHTTPClient(llmTimeout))

	dispatcher := coach.NewDispatcher(coach.DispatcherOptions{
		Store:     convstate.NewStore(cfg.Bot.DefaultTone),
		Sessions:  coach.NewSessionRegistry(history.NewStore(res.DB)),
		Completer: completer,
		Profiles:  profile.NewStore(res.DB),
	})

	return &App{cfg: cfg, db: res.DB, dispatcher: dispatcher}, nil
}

// TelegramRunOptions builds the registry, middleware chain, and routes
// for the core Telegram runtime.
func (a *App) TelegramRunOptions() (tg.RunOptions, error) {
	reg := tg.NewRegistry()
	a.registerCommands(reg)
	if err := a.registerCallbacks(reg); err != nil {
		return tg.RunOptions{}, err
	}
	reg.SetTextFallback(a.handleText)
	reg.SetMediaFallback(a.handleMedia)
	reg.SetCallbackNotFound(func(c tele.Context) error {
		return c.Respond(&tele.CallbackResponse{Text: unknownCbText})
	})

	routes := router.CommandRoutes(reg)
	routes = append(routes, router.TextRoutes(reg, router.TextOptions{})...)
	routes = append(routes, router.CallbackRoute(reg))

	onLimited := func(c tele.Context) error {
		return helpers.SendText(c, rateLimitText)
	}

	return tg.RunOptions{
		Config:      a.cfg.CoreConfig(),
		Registry:    reg,
		Middlewares: tg.DefaultMiddlewares(a.cfg.CoreConfig(), onLimited),
		Routes:      routes,
		OnStop: func(context.Context, tg.Runtime) error {
			return a.db.Close()
		},
	}, nil
}
