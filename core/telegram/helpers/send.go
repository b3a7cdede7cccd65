package helpers

import (
	"errors"
	"log/slog"
	"strings"
	"sync/atomic"

	"blucoach/core/logger"
	"blucoach/core/telegram/sender"

	tele "gopkg.in/telebot.v4"
)

var globalDispatcher atomic.Pointer[sender.Dispatcher]

// SetDispatcher wires the asynchronous sender used by helper functions.
func SetDispatcher(d *sender.Dispatcher) {
	globalDispatcher.Store(d)
}

func currentDispatcher() *sender.Dispatcher {
	return globalDispatcher.Load()
}

func sendAsync(c tele.Context, action, endpoint string, run func() error) error {
	disp := currentDispatcher()
	if disp == nil {
		return run()
	}

	ctx := BuildContext(c)
	if err := disp.Enqueue(ctx, action, endpoint, run); err != nil {
		if errors.Is(err, sender.ErrQueueFull) || errors.Is(err, sender.ErrQueueClosed) {
			logger.Warn(ctx, "tg.sender", "queue.fallback",
				slog.String("action", action),
				slog.String("endpoint", endpoint),
				slog.String("err", err.Error()),
			)
			return run()
		}
		return err
	}
	return nil
}

// SendText sends raw text with no parse mode. Used for fallback
// delivery when rendered markdown is rejected by Telegram.
func SendText(c tele.Context, text string, opts ...*tele.SendOptions) error {
	var sendOpts *tele.SendOptions
	if len(opts) > 0 {
		sendOpts = opts[0]
	}
	return sendAsync(c, "send.text", "sendMessage", func() error {
		if sendOpts != nil {
			return c.Send(text, sendOpts)
		}
		return c.Send(text)
	})
}

// EditOrSendMDV2 edits the callback's message in place, or sends a new
// one when editing is impossible.
func EditOrSendMDV2(c tele.Context, text string, markup ...*tele.ReplyMarkup) error {
	var rm *tele.ReplyMarkup
	if len(markup) > 0 {
		rm = markup[0]
	}
	return c.EditOrSend(text, &tele.SendOptions{ParseMode: tele.ModeMarkdownV2, ReplyMarkup: rm})
}

// NotifyTyping shows the "typing..." chat action while a completion is
// in flight. Failures are ignored; the action is cosmetic.
func NotifyTyping(c tele.Context) {
	_ = c.Notify(tele.Typing)
}

// SendRendered delivers rendered MarkdownV2, falling back to plain
// text when Telegram rejects the entities. Rendering is best-effort
// and the reply must reach the user either way.
func SendRendered(c tele.Context, text string, reply bool) error {
	opts := &tele.SendOptions{ParseMode: tele.ModeMarkdownV2}
	deliver := func(o *tele.SendOptions) error {
		if reply {
			return c.Reply(text, o)
		}
		return c.Send(text, o)
	}
	action := "send.rendered"
	if reply {
		action = "reply.rendered"
	}
	return sendAsync(c, action, "sendMessage", func() error {
		err := deliver(opts)
		if err == nil || !isParseRejection(err) {
			return err
		}
		logger.Warn(BuildContext(c), "tg", "send.markdown_rejected",
			slog.String("err", err.Error()),
		)
		return deliver(&tele.SendOptions{})
	})
}

func isParseRejection(err error) bool {
	var apiErr *tele.Error
	if !errors.As(err, &apiErr) {
		return false
	}
	return apiErr.Code == 400 && strings.Contains(apiErr.Description, "can't parse entities")
}
