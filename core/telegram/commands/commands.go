package commands

import (
	tele "gopkg.in/telebot.v4"
)

// Command binds a slash-command handler to its menu metadata.
type Command struct {
	Handler     tele.HandlerFunc
	Description string
	Hidden      bool
	Aliases     []string
}
