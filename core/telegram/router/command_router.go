package router

import (
	"log/slog"
	"time"

	"blucoach/core/logger"
	tg "blucoach/core/telegram"
	"blucoach/core/telegram/middleware"

	tele "gopkg.in/telebot.v4"
)

// CommandRoutes prepares a route per registered command, wrapped with
// the shared per-route middleware.
func CommandRoutes(reg *tg.Registry) []tg.Route {
	if reg == nil {
		return nil
	}

	routes := make([]tg.Route, 0, len(reg.Commands()))
	for name, def := range reg.Commands() {
		handlerName := normalizeHandlerName(name)
		h := def.Handler
		wrapped := func(inner tele.HandlerFunc, hn string) tele.HandlerFunc {
			return func(c tele.Context) error {
				return handleWithSummary(c, hn, time.Now(), func() error {
					return inner(c)
				})
			}
		}(h, handlerName)
		routes = append(routes, tg.Route{
			Endpoint: name,
			Handler:  middleware.RecoverMiddleware(middleware.LoggerMiddleware(wrapped)),
		})
	}

	logger.Info(logger.Background(), "tg", "wire.complete",
		slog.Int("commands", len(reg.Commands())),
		slog.Int("callbacks", len(reg.ListCallbacks())),
	)

	return routes
}
