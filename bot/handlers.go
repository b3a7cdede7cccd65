package bot

import (
	"encoding/base64"
	"io"
	"strconv"
	"strings"

	tele "gopkg.in/telebot.v4"

	"blucoach/coach"
	"blucoach/core/telegram/helpers"
	"blucoach/core/telegram/middleware"
)

// maxDocBytes caps downloaded document size; profile notes are short.
const maxDocBytes = 256 << 10

// maxPhotoBytes caps downloaded photo size before it is inlined into
// the vision request as a data URL.
const maxPhotoBytes = 4 << 20

func conversationID(c tele.Context) string {
	chat := c.Chat()
	if chat == nil {
		return ""
	}
	return strconv.FormatInt(chat.ID, 10)
}

func senderName(c tele.Context) string {
	s := c.Sender()
	if s == nil {
		return ""
	}
	if s.Username != "" {
		return s.Username
	}
	return strings.TrimSpace(s.FirstName + " " + s.LastName)
}

// deliver sends a dispatcher reply: rendered markdown goes through the
// MarkdownV2 path with plain fallback, state texts go out as-is.
func (a *App) deliver(c tele.Context, reply coach.Reply, asReply bool) error {
	if reply.Text == "" {
		return nil
	}
	if reply.Rendered {
		return helpers.SendRendered(c, reply.Text, asReply)
	}
	return helpers.SendText(c, reply.Text)
}

// handleText is the registry text fallback: every non-command message
// becomes a coach turn.
func (a *App) handleText(c tele.Context) error {
	group := middleware.IsGroup(c)
	addressed := !group || middleware.AddressedToBot(c, a.cfg.Bot.TriggerKeyword)
	text := middleware.StripMention(c, c.Text())
	if text == "" {
		return nil
	}

	turn := coach.Turn{
		ConversationID: conversationID(c),
		SenderName:     senderName(c),
		Text:           text,
		Group:          group,
		Addressed:      addressed,
	}
	if addressed {
		helpers.NotifyTyping(c)
	}

	reply, err := a.dispatcher.Handle(helpers.BuildContext(c), turn)
	if sendErr := a.deliver(c, reply, group); sendErr != nil {
		return sendErr
	}
	return err
}

// handleMedia covers photos and documents. A plain text file can
// satisfy an armed business-info capture; a photo becomes an
// image-analysis turn; anything else is politely refused.
func (a *App) handleMedia(c tele.Context) error {
	group := middleware.IsGroup(c)
	if group && !middleware.AddressedToBot(c, a.cfg.Bot.TriggerKeyword) {
		// No reply, but the group keeps a record that media was shared.
		a.dispatcher.RecordGroupMedia(helpers.BuildContext(c), conversationID(c), senderName(c), mediaKind(c.Message()))
		return nil
	}

	if photo := c.Message().Photo; photo != nil {
		return a.handlePhoto(c, photo, group)
	}

	doc := c.Message().Document
	if doc == nil {
		return helpers.SendText(c, a.dispatcher.Texts().MediaUnsupported)
	}
	if doc.FileSize > maxDocBytes {
		return helpers.SendText(c, docTooBigText)
	}
	if !isTextDocument(doc) {
		return helpers.SendText(c, docNotTextText)
	}

	content, ok, err := a.readDocument(c, doc)
	if err != nil || !ok {
		return err
	}

	reply, handled, err := a.dispatcher.ResolveDocument(helpers.BuildContext(c), conversationID(c), content)
	if !handled {
		return helpers.SendText(c, a.dispatcher.Texts().MediaUnsupported)
	}
	if sendErr := helpers.SendText(c, reply); sendErr != nil {
		return sendErr
	}
	return err
}

// handlePhoto downloads the photo and runs an image-analysis turn
// through the coach, caption included.
func (a *App) handlePhoto(c tele.Context, photo *tele.Photo, group bool) error {
	if photo.FileSize > maxPhotoBytes {
		return helpers.SendText(c, photoTooBigText)
	}

	dataURL, err := a.readPhoto(c, photo)
	if err != nil || dataURL == "" {
		return err
	}

	helpers.NotifyTyping(c)
	reply, err := a.dispatcher.HandleImage(helpers.BuildContext(c), coach.ImageTurn{
		ConversationID: conversationID(c),
		SenderName:     senderName(c),
		Caption:        c.Message().Caption,
		ImageURL:       dataURL,
	})
	if sendErr := a.deliver(c, reply, group); sendErr != nil {
		return sendErr
	}
	return err
}

// readPhoto downloads the photo body and inlines it as a base64 data
// URL. An empty URL means the file turned out larger than declared and
// the user was already told.
func (a *App) readPhoto(c tele.Context, photo *tele.Photo) (string, error) {
	rc, err := c.Bot().File(&photo.File)
	if err != nil {
		return "", err
	}
	defer rc.Close()

	data, err := io.ReadAll(io.LimitReader(rc, maxPhotoBytes+1))
	if err != nil {
		return "", err
	}
	if len(data) > maxPhotoBytes {
		return "", helpers.SendText(c, photoTooBigText)
	}
	return "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(data), nil
}

// mediaKind names the attachment for history placeholders.
func mediaKind(msg *tele.Message) string {
	switch {
	case msg == nil:
		return "file"
	case msg.Photo != nil:
		return "photo"
	case msg.Video != nil:
		return "video"
	case msg.Document != nil:
		return "document"
	case msg.Voice != nil || msg.Audio != nil:
		return "audio"
	default:
		return "file"
	}
}

func isTextDocument(doc *tele.Document) bool {
	if strings.HasPrefix(doc.MIME, "text/") {
		return true
	}
	name := strings.ToLower(doc.FileName)
	return strings.HasSuffix(name, ".txt") || strings.HasSuffix(name, ".md")
}

// readDocument downloads the file body. ok is false when the file
// turned out larger than declared; the user is told and the update is
// done.
func (a *App) readDocument(c tele.Context, doc *tele.Document) (string, bool, error) {
	rc, err := c.Bot().File(&doc.File)
	if err != nil {
		return "", false, err
	}
	defer rc.Close()

	data, err := io.ReadAll(io.LimitReader(rc, maxDocBytes+1))
	if err != nil {
		return "", false, err
	}
	if len(data) > maxDocBytes {
		return "", false, helpers.SendText(c, docTooBigText)
	}
	return string(data), true, nil
}
