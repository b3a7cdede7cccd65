package router

import (
	"log/slog"
	"time"

	tg "blucoach/core/telegram"
	"blucoach/core/telegram/callbacks"
	"blucoach/core/telegram/middleware"

	tele "gopkg.in/telebot.v4"
)

// CallbackRoute returns a single OnCallback handler that resolves taps
// through the registry by parsed key.
func CallbackRoute(reg *tg.Registry) tg.Route {
	handler := func(c tele.Context) error {
		start := time.Now()
		cb := c.Callback()
		if cb == nil {
			return nil
		}

		key, _ := callbacks.ParseCallbackData(cb)
		if cb.Unique != "" {
			key = cb.Unique
		}
		name := "callback." + normalizeHandlerName(key)
		extras := []slog.Attr{slog.String("cb_key", key)}

		// Ack first so the client spinner stops even if the handler
		// takes a completion round-trip.
		_ = c.Respond()

		cbHandler, ok := reg.GetCallback(key)
		if !ok || cbHandler == nil {
			fallback := reg.CallbackNotFound()
			extras = append(extras, slog.String("cause", "not_found"))
			return handleWithSummary(c, name, start, func() error {
				if fallback != nil {
					return fallback(c)
				}
				return nil
			}, extras...)
		}

		return handleWithSummary(c, name, start, func() error {
			return cbHandler(c)
		}, extras...)
	}

	return tg.Route{
		Endpoint: tele.OnCallback,
		Handler:  middleware.RecoverMiddleware(middleware.LoggerMiddleware(handler)),
	}
}
