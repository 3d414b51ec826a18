package handler

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"librarian/internal/domain"
	"librarian/internal/service"

	"go.uber.org/zap"
	tele "gopkg.in/telebot.v3"
)

const turnTimeout = 60 * time.Second

// TelegramMessenger sends, edits and deletes messages through telebot
type TelegramMessenger struct {
	bot *tele.Bot
}

// NewTelegramMessenger creates a messenger bound to bot
func NewTelegramMessenger(bot *tele.Bot) *TelegramMessenger {
	return &TelegramMessenger{bot: bot}
}

func (m *TelegramMessenger) Send(_ context.Context, chatID int64, msg domain.Outgoing) (domain.MessageRef, error) {
	opts := &tele.SendOptions{ParseMode: tele.ModeHTML, ReplyMarkup: buildMarkup(msg)}

	var what interface{} = msg.Text
	switch {
	case msg.Document != nil:
		what = &tele.Document{
			File:     tele.FromReader(bytes.NewReader(msg.Document.Data)),
			FileName: msg.Document.Name,
			Caption:  msg.Text,
		}
	case len(msg.Photo) > 0:
		what = &tele.Photo{
			File:    tele.FromReader(bytes.NewReader(msg.Photo)),
			Caption: msg.Text,
		}
	}

	sent, err := m.bot.Send(tele.ChatID(chatID), what, opts)
	if err != nil {
		return domain.MessageRef{}, fmt.Errorf("send to chat %d: %w", chatID, err)
	}
	return domain.MessageRef{ChatID: sent.Chat.ID, MessageID: sent.ID}, nil
}

func (m *TelegramMessenger) Edit(_ context.Context, ref domain.MessageRef, text string) error {
	_, err := m.bot.Edit(storedMessage(ref), text, tele.ModeHTML)
	if err != nil && strings.Contains(err.Error(), "message is not modified") {
		return nil
	}
	return err
}

// Restore puts a message's text and inline keyboard back after an edit
func (m *TelegramMessenger) Restore(_ context.Context, ref domain.MessageRef, msg domain.Outgoing) error {
	opts := &tele.SendOptions{
		ParseMode:   tele.ModeHTML,
		ReplyMarkup: buildMarkup(domain.Outgoing{Inline: msg.Inline}),
	}
	_, err := m.bot.Edit(storedMessage(ref), msg.Text, opts)
	if err != nil && strings.Contains(err.Error(), "message is not modified") {
		return nil
	}
	return err
}

func (m *TelegramMessenger) Delete(_ context.Context, ref domain.MessageRef) error {
	return m.bot.Delete(storedMessage(ref))
}

func (m *TelegramMessenger) Answer(_ context.Context, callbackID, text string, alert bool) error {
	return m.bot.Respond(&tele.Callback{ID: callbackID}, &tele.CallbackResponse{
		Text:      text,
		ShowAlert: alert,
	})
}

func (m *TelegramMessenger) Download(_ context.Context, fileID string) ([]byte, error) {
	rc, err := m.bot.File(&tele.File{FileID: fileID})
	if err != nil {
		return nil, fmt.Errorf("fetch file %s: %w", fileID, err)
	}
	defer rc.Close()

	data, err := io.ReadAll(io.LimitReader(rc, service.MaxBackupSize+1))
	if err != nil {
		return nil, fmt.Errorf("read file %s: %w", fileID, err)
	}
	return data, nil
}

func storedMessage(ref domain.MessageRef) tele.StoredMessage {
	return tele.StoredMessage{
		MessageID: strconv.Itoa(ref.MessageID),
		ChatID:    ref.ChatID,
	}
}

// buildMarkup renders typed buttons into telebot keyboards
func buildMarkup(msg domain.Outgoing) *tele.ReplyMarkup {
	switch {
	case len(msg.Inline) > 0:
		markup := &tele.ReplyMarkup{}
		rows := make([]tele.Row, 0, len(msg.Inline))
		for _, buttons := range msg.Inline {
			row := make(tele.Row, 0, len(buttons))
			for _, b := range buttons {
				row = append(row, markup.Data(b.Text, b.Action.Unique(), b.Action.Payload()))
			}
			rows = append(rows, row)
		}
		markup.Inline(rows...)
		return markup
	case len(msg.Reply) > 0:
		markup := &tele.ReplyMarkup{ResizeKeyboard: true}
		rows := make([]tele.Row, 0, len(msg.Reply))
		for _, labels := range msg.Reply {
			row := make(tele.Row, 0, len(labels))
			for _, label := range labels {
				row = append(row, markup.Text(label))
			}
			rows = append(rows, row)
		}
		markup.Reply(rows...)
		return markup
	case msg.RemoveKeyboard:
		return &tele.ReplyMarkup{RemoveKeyboard: true}
	default:
		return nil
	}
}

// eventFromContext converts a telebot update into a router event
func eventFromContext(c tele.Context) Event {
	sender := c.Sender()
	ev := Event{
		User: domain.BotUser{
			UserID:    sender.ID,
			Username:  sender.Username,
			FirstName: sender.FirstName,
			LastName:  sender.LastName,
			LastSeen:  time.Now(),
		},
		ChatID: sender.ID,
	}
	if chat := c.Chat(); chat != nil {
		ev.ChatID = chat.ID
	}

	if cb := c.Callback(); cb != nil {
		ev.Callback = &Callback{ID: cb.ID, Data: cb.Data}
		if cb.Message != nil {
			ev.Message = messageRef(cb.Message)
			ev.MessageText = cb.Message.Text
		}
		return ev
	}

	if msg := c.Message(); msg != nil {
		ev.Message = messageRef(msg)
		ev.Text = msg.Text
		if doc := msg.Document; doc != nil {
			ev.Document = &Document{
				FileID: doc.FileID,
				Name:   doc.FileName,
				Size:   int64(doc.FileSize),
			}
		}
	}
	return ev
}

func messageRef(msg *tele.Message) domain.MessageRef {
	ref := domain.MessageRef{MessageID: msg.ID}
	if msg.Chat != nil {
		ref.ChatID = msg.Chat.ID
	}
	return ref
}

// RegisterHandlers registers all bot handlers
func (h *Handler) RegisterHandlers(bot *tele.Bot) {
	// Commands
	bot.Handle("/start", h.onUpdate)
	bot.Handle("/menu", h.onUpdate)
	bot.Handle("/cancel", h.onUpdate)
	bot.Handle("/admin", h.onUpdate)

	// Text messages and uploads
	bot.Handle(tele.OnText, h.onUpdate)
	bot.Handle(tele.OnDocument, h.onUpdate)

	// Callback queries carry the raw "\f<unique>|<payload>" data here
	bot.Handle(tele.OnCallback, h.onUpdate)
}

func (h *Handler) onUpdate(c tele.Context) error {
	if c.Sender() == nil {
		h.logger.Warn("Update without sender")
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), turnTimeout)
	defer cancel()

	h.Handle(ctx, eventFromContext(c))
	return nil
}

var _ Messenger = (*TelegramMessenger)(nil)

// OnError logs errors telebot could not hand to a handler
func OnError(logger *zap.Logger) func(error, tele.Context) {
	return func(err error, c tele.Context) {
		fields := []zap.Field{zap.Error(err)}
		if c != nil && c.Sender() != nil {
			fields = append(fields, zap.Int64("user_id", c.Sender().ID))
		}
		logger.Error("Bot error", fields...)
	}
}
