package middleware

import (
	"fmt"
	"log/slog"
	"runtime/debug"

	"blucoach/core/logger"

	tele "gopkg.in/telebot.v4"
)

// RecoverMiddleware catches handler panics so one bad update cannot
// take the bot down.
func RecoverMiddleware(next tele.HandlerFunc) tele.HandlerFunc {
	return func(c tele.Context) error {
		defer func() {
			if r := recover(); r != nil {
				logger.Error(logger.Background(), "tg", "tg.panic",
					slog.String("err", fmt.Sprint(r)),
					slog.String("stack", string(debug.Stack())),
				)
			}
		}()
		return next(c)
	}
}
