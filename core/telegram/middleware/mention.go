package middleware

import (
	"strings"

	tele "gopkg.in/telebot.v4"
)

// AddressedToBot reports whether a group message addresses the bot: a
// reply to one of its messages, an @-mention, or the trigger keyword
// anywhere in the text. The caller decides what to do with unaddressed
// messages; they are not dropped here because they still feed
// conversation history.
func AddressedToBot(c tele.Context, keyword string) bool {
	msg := c.Message()
	if msg == nil {
		return false
	}
	bot, ok := c.Bot().(*tele.Bot)
	if !ok || bot.Me == nil {
		return false
	}
	me := bot.Me
	if msg.ReplyTo != nil && msg.ReplyTo.Sender != nil && msg.ReplyTo.Sender.ID == me.ID {
		return true
	}
	text := msg.Text
	if text == "" {
		text = msg.Caption
	}
	if me.Username != "" && strings.Contains(text, "@"+me.Username) {
		return true
	}
	keyword = strings.TrimSpace(keyword)
	return keyword != "" && strings.Contains(text, keyword)
}

// IsGroup reports whether the update came from a group chat surface.
func IsGroup(c tele.Context) bool {
	chat := c.Chat()
	if chat == nil {
		return false
	}
	return chat.Type == tele.ChatGroup || chat.Type == tele.ChatSuperGroup
}

// StripMention removes the bot's @-mention from text so the model
// never sees the handle as part of the user's question.
func StripMention(c tele.Context, text string) string {
	bot, ok := c.Bot().(*tele.Bot)
	if !ok || bot.Me == nil || bot.Me.Username == "" {
		return strings.TrimSpace(text)
	}
	me := bot.Me
	return strings.TrimSpace(strings.ReplaceAll(text, "@"+me.Username, " "))
}
