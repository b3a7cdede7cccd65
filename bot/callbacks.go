package bot

import (
	tele "gopkg.in/telebot.v4"

	"blucoach/coach"
	"blucoach/coach/convstate"
	tg "blucoach/core/telegram"
	"blucoach/core/telegram/callbacks"
	"blucoach/core/telegram/format"
	"blucoach/core/telegram/helpers"
	"blucoach/core/telegram/keyboard"
	"blucoach/core/telegram/middleware"
)

// Callback keys. The payload carries the concrete choice.
const (
	cbQuick      = "quick"
	cbToneMenu   = "tone_menu"
	cbToneSet    = "tone_set"
	cbToneCustom = "tone_custom"
	cbBizInfo    = "biz_info"
	cbBizReplace = "biz_replace"
	cbBizAppend  = "biz_append"
	cbCancel     = "flow_cancel"
)

func (a *App) registerCallbacks(reg *tg.Registry) error {
	handlers := map[string]tele.HandlerFunc{
		cbQuick:      a.handleQuickAction,
		cbToneMenu:   a.handleToneMenu,
		cbToneSet:    a.handleToneSet,
		cbToneCustom: a.handleToneCustom,
		cbBizInfo:    a.handleBusinessInfo,
		cbBizReplace: a.handleBusinessMode(convstate.ModeReplace),
		cbBizAppend:  a.handleBusinessMode(convstate.ModeAppend),
		cbCancel:     a.handleCancel,
	}
	for key, h := range handlers {
		if err := reg.RegisterCallback(key, h); err != nil {
			return err
		}
	}
	return nil
}

// handleQuickAction runs a canned prompt as a regular conversational
// turn on the user's behalf.
func (a *App) handleQuickAction(c tele.Context) error {
	choice, ok := callbacks.PayloadChoice(c, "daily_tasks", "story_idea", "chat_report")
	if !ok {
		return helpers.SendText(c, unknownCbText)
	}

	helpers.NotifyTyping(c)
	reply, err := a.dispatcher.Handle(helpers.BuildContext(c), coach.Turn{
		ConversationID: conversationID(c),
		SenderName:     senderName(c),
		Text:           quickPrompts[choice],
		Group:          middleware.IsGroup(c),
		Addressed:      true,
	})
	if sendErr := a.deliver(c, reply, false); sendErr != nil {
		return sendErr
	}
	return err
}

// captureMarkup decorates a capture prompt. Groups get a forced reply
// so the answer comes back addressed to the bot; private chats get a
// cancel button instead.
func captureMarkup(c tele.Context) *tele.ReplyMarkup {
	if middleware.IsGroup(c) {
		return keyboard.ForceReply()
	}
	return keyboard.SingleCancelMarkup(cbCancel)
}

// handleToneMenu replaces the originating menu message in place, so
// tapping through settings does not pile up messages.
func (a *App) handleToneMenu(c tele.Context) error {
	buttons := make([]keyboard.InlineBtn, 0, len(tonePresets)+1)
	for _, tone := range tonePresets {
		buttons = append(buttons, keyboard.InlineBtn{Text: tone, Unique: cbToneSet, Data: tone})
	}
	buttons = append(buttons, keyboard.InlineBtn{Text: "✍️ لحن دلخواه", Unique: cbToneCustom, Data: "open"})

	markup := keyboard.InlineButtonsNPerRow(buttons, 2)
	cancel := keyboard.CancelButton(markup, cbCancel)
	markup.InlineKeyboard = append(markup.InlineKeyboard, []tele.InlineButton{*cancel.Inline()})
	return helpers.EditOrSendMDV2(c, format.Escape(toneMenuText), markup)
}

func (a *App) handleToneSet(c tele.Context) error {
	tone, ok := callbacks.PayloadChoice(c, tonePresets...)
	if !ok {
		return helpers.SendText(c, unknownCbText)
	}
	msg, _ := a.dispatcher.SetTonePreset(helpers.BuildContext(c), conversationID(c), tone)
	return helpers.SendText(c, msg)
}

func (a *App) handleToneCustom(c tele.Context) error {
	msg := a.dispatcher.RequestToneChange(helpers.BuildContext(c), conversationID(c))
	return helpers.SendText(c, msg, &tele.SendOptions{ReplyMarkup: captureMarkup(c)})
}

func (a *App) handleBusinessInfo(c tele.Context) error {
	ctx := helpers.BuildContext(c)
	msg, hasProfile := a.dispatcher.RequestBusinessInfo(ctx, conversationID(c))
	if !hasProfile {
		// Capture armed directly; msg is the info prompt.
		return helpers.SendText(c, msg, &tele.SendOptions{ReplyMarkup: captureMarkup(c)})
	}
	markup := keyboard.InlineButtonsRows(
		[]keyboard.InlineBtn{
			{Text: "♻️ جایگزینی", Unique: cbBizReplace, Data: "choose"},
			{Text: "➕ افزودن", Unique: cbBizAppend, Data: "choose"},
		},
	)
	cancel := keyboard.CancelButton(markup, cbCancel)
	markup.InlineKeyboard = append(markup.InlineKeyboard, []tele.InlineButton{*cancel.Inline()})
	return helpers.SendText(c, msg, &tele.SendOptions{ReplyMarkup: markup})
}

func (a *App) handleBusinessMode(mode convstate.BusinessMode) tele.HandlerFunc {
	return func(c tele.Context) error {
		msg := a.dispatcher.ChooseBusinessMode(helpers.BuildContext(c), conversationID(c), mode)
		return helpers.SendText(c, msg, &tele.SendOptions{ReplyMarkup: captureMarkup(c)})
	}
}

func (a *App) handleCancel(c tele.Context) error {
	if !callbacks.IsCancel(c) {
		return helpers.SendText(c, unknownCbText)
	}
	msg := a.dispatcher.CancelPending(helpers.BuildContext(c), conversationID(c))
	return helpers.SendText(c, msg)
}
