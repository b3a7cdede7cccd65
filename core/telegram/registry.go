package telegram

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"blucoach/core/logger"
	"blucoach/core/telegram/commands"

	tele "gopkg.in/telebot.v4"
)

// Registry holds the bot's commands, callback handlers, and fallbacks.
// Command registration happens once during bootstrap; callback lookup
// is concurrent because every incoming tap resolves through it.
type Registry struct {
	commands    map[string]commands.Command
	callbacks   map[string]tele.HandlerFunc
	callbacksMu sync.RWMutex

	callbackNotFound tele.HandlerFunc
	textFallback     tele.HandlerFunc
	mediaFallback    tele.HandlerFunc
}

// NewRegistry creates an empty Registry with a default unknown-callback
// responder.
func NewRegistry() *Registry {
	return &Registry{
		commands:  make(map[string]commands.Command),
		callbacks: make(map[string]tele.HandlerFunc),
		callbackNotFound: func(c tele.Context) error {
			return c.Respond(&tele.CallbackResponse{Text: "Unsupported action"})
		},
	}
}

// RegisterCommand adds a command. Invalid or duplicate registrations
// are logged and dropped rather than failing startup.
func (r *Registry) RegisterCommand(name string, cmd commands.Command) {
	ctx := logger.Background()
	if r == nil || name == "" || cmd.Handler == nil || cmd.Description == "" {
		logger.Warn(ctx, "registry", "register.command.skip",
			slog.String("name", name),
			slog.String("cause", "invalid"),
		)
		return
	}
	if name[0] != '/' {
		logger.Warn(ctx, "registry", "register.command.skip",
			slog.String("name", name),
			slog.String("cause", "no_slash_prefix"),
		)
		return
	}
	if _, exists := r.commands[name]; exists {
		logger.Warn(ctx, "registry", "register.command.duplicate",
			slog.String("name", name),
		)
		return
	}
	r.commands[name] = cmd
}

// Commands exposes the registered command table. Registration is
// bootstrap-only, so reads need no locking.
func (r *Registry) Commands() map[string]commands.Command {
	return r.commands
}

// ListCommands returns the commands for the Telegram menu, sorted by
// name. Hidden commands are skipped when visibleOnly is set.
func (r *Registry) ListCommands(visibleOnly bool) []tele.Command {
	var list []tele.Command
	for name, meta := range r.commands {
		if visibleOnly && meta.Hidden {
			continue
		}
		// setMyCommands wants bare names, no slash.
		list = append(list, tele.Command{Text: strings.TrimPrefix(name, "/"), Description: meta.Description})
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Text < list[j].Text })
	return list
}

// LookupCommand resolves a command by name or alias and returns the
// canonical key with its metadata.
func (r *Registry) LookupCommand(name string) (string, commands.Command, bool) {
	if !strings.HasPrefix(name, "/") {
		name = "/" + name
	}
	if cmd, ok := r.commands[name]; ok {
		return name, cmd, true
	}
	for key, cmd := range r.commands {
		for _, alias := range cmd.Aliases {
			if alias == name || "/"+alias == name {
				return key, cmd, true
			}
		}
	}
	return "", commands.Command{}, false
}

// RegisterCallback maps a callback key to its handler.
func (r *Registry) RegisterCallback(key string, handler tele.HandlerFunc) error {
	if r == nil || key == "" || handler == nil {
		return fmt.Errorf("invalid callback registration: %q", key)
	}
	r.callbacksMu.Lock()
	defer r.callbacksMu.Unlock()
	if _, exists := r.callbacks[key]; exists {
		return fmt.Errorf("callback already registered: %s", key)
	}
	r.callbacks[key] = handler
	return nil
}

// GetCallback returns the handler for key, if registered.
func (r *Registry) GetCallback(key string) (tele.HandlerFunc, bool) {
	r.callbacksMu.RLock()
	defer r.callbacksMu.RUnlock()
	h, ok := r.callbacks[key]
	return h, ok
}

// ListCallbacks returns sorted callback keys for diagnostics.
func (r *Registry) ListCallbacks() []string {
	r.callbacksMu.RLock()
	defer r.callbacksMu.RUnlock()
	keys := make([]string, 0, len(r.callbacks))
	for k := range r.callbacks {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// SetCallbackNotFound replaces the unknown-callback responder.
func (r *Registry) SetCallbackNotFound(h tele.HandlerFunc) {
	if h != nil {
		r.callbackNotFound = h
	}
}

// CallbackNotFound returns the unknown-callback responder.
func (r *Registry) CallbackNotFound() tele.HandlerFunc {
	return r.callbackNotFound
}

// SetTextFallback sets the handler for plain text that matched no
// command. The coach turn handler registers itself here.
func (r *Registry) SetTextFallback(h tele.HandlerFunc) {
	r.textFallback = h
}

// TextFallback returns the plain-text fallback handler.
func (r *Registry) TextFallback() tele.HandlerFunc {
	return r.textFallback
}

// SetMediaFallback sets the handler for photo and document updates.
func (r *Registry) SetMediaFallback(h tele.HandlerFunc) {
	r.mediaFallback = h
}

// MediaFallback returns the media fallback handler.
func (r *Registry) MediaFallback() tele.HandlerFunc {
	return r.mediaFallback
}

// InitBotCommands publishes the visible command menu to Telegram.
func InitBotCommands(bot *tele.Bot, reg *Registry) {
	if err := bot.SetCommands(reg.ListCommands(true)); err != nil {
		logger.Error(logger.Background(), "registry", "register.commands.set_failed",
			slog.String("err", err.Error()),
		)
	}
}
