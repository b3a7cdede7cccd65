package bot

import (
	"fmt"
	"strings"

	tele "gopkg.in/telebot.v4"

	"blucoach/coach"
	"blucoach/core/buildinfo"
	tg "blucoach/core/telegram"
	"blucoach/core/telegram/commands"
	"blucoach/core/telegram/format"
	"blucoach/core/telegram/helpers"
	"blucoach/core/telegram/keyboard"
)

func (a *App) registerCommands(reg *tg.Registry) {
	reg.RegisterCommand("/start", commands.Command{
		Handler:     a.cmdStart,
		Description: "شروع کار با بلو",
	})
	reg.RegisterCommand("/help", commands.Command{
		Handler:     a.cmdHelp,
		Description: "راهنمای دستورها",
		Aliases:     []string{"راهنما"},
	})
	reg.RegisterCommand("/new_chat", commands.Command{
		Handler:     a.cmdNewChat,
		Description: "شروع گفتگوی تازه",
	})
	reg.RegisterCommand("/history", commands.Command{
		Handler:     a.cmdHistory,
		Description: "تاریخچه‌ی گفتگوی جاری",
	})
	reg.RegisterCommand("/settings", commands.Command{
		Handler:     a.cmdSettings,
		Description: "لحن و اطلاعات کسب‌وکار",
	})
	reg.RegisterCommand("/options", commands.Command{
		Handler:     a.cmdOptions,
		Description: "میانبرهای کاربردی",
	})
	reg.RegisterCommand("/about", commands.Command{
		Handler:     a.cmdAbout,
		Description: "درباره‌ی بلو",
		Hidden:      true,
	})
}

func (a *App) cmdStart(c tele.Context) error {
	return helpers.SendText(c, welcomeText)
}

func (a *App) cmdHelp(c tele.Context) error {
	return helpers.SendText(c, helpText)
}

func (a *App) cmdAbout(c tele.Context) error {
	return helpers.SendText(c, fmt.Sprintf(aboutText, buildinfo.Version))
}

// cmdNewChat rotates the session and drops any leftover reply
// keyboard from an abandoned capture prompt.
func (a *App) cmdNewChat(c tele.Context) error {
	msg := a.dispatcher.StartNewSession(helpers.BuildContext(c), conversationID(c))
	return helpers.SendText(c, msg, &tele.SendOptions{ReplyMarkup: keyboard.RemoveKeyboard()})
}

// cmdHistory replays the current session. User lines are escaped for
// MarkdownV2; assistant lines are stored already rendered.
func (a *App) cmdHistory(c tele.Context) error {
	msgs := a.dispatcher.History(helpers.BuildContext(c), conversationID(c))
	if len(msgs) == 0 {
		return helpers.SendText(c, emptyHistory)
	}

	var b strings.Builder
	b.WriteString(format.Escape(historyHeader))
	for _, m := range msgs {
		b.WriteString("\n\n")
		switch m.Role {
		case coach.RoleAssistant:
			b.WriteString("🤖 ")
			b.WriteString(m.Content)
		default:
			b.WriteString("👤 ")
			b.WriteString(format.Escape(m.Content))
		}
	}
	return helpers.SendRendered(c, b.String(), false)
}

func (a *App) cmdSettings(c tele.Context) error {
	tone, _, profile := a.dispatcher.Snapshot(helpers.BuildContext(c), conversationID(c))
	if profile == "" {
		profile = noProfileText
	}
	markup := keyboard.InlineButtonsRows([]keyboard.InlineBtn{
		{Text: "🎨 تغییر لحن", Unique: cbToneMenu, Data: "open"},
		{Text: "🏪 اطلاعات کسب‌وکار", Unique: cbBizInfo, Data: "open"},
	})
	return helpers.SendText(c, fmt.Sprintf(settingsText, tone, profile), &tele.SendOptions{
		ReplyMarkup: markup,
	})
}

func (a *App) cmdOptions(c tele.Context) error {
	return helpers.SendText(c, optionsText, &tele.SendOptions{
		ReplyMarkup: keyboard.InlineButtons(quickLabels),
	})
}
