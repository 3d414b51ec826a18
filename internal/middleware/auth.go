package middleware

import (
	"go.uber.org/zap"
	tele "gopkg.in/telebot.v3"
)

// PrivateOnly drops updates that do not come from a person in a private chat
func PrivateOnly(logger *zap.Logger) tele.MiddlewareFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			sender := c.Sender()
			if sender == nil || sender.IsBot {
				return nil
			}

			if chat := c.Chat(); chat != nil && chat.Type != tele.ChatPrivate {
				logger.Debug("Ignoring update outside private chat",
					zap.Int64("user_id", sender.ID),
					zap.Int64("chat_id", chat.ID),
					zap.String("chat_type", string(chat.Type)),
				)
				return nil
			}

			return next(c)
		}
	}
}
