package handlers

import (
	"log/slog"

	telebot "gopkg.in/telebot.v3"
)

// NewTextHandler feeds plain messages into the sender's session.
func NewTextHandler(conv Conversation, log *slog.Logger) Handler {
	if log == nil {
		log = slog.Default()
	}

	return func(c telebot.Context) error {
		sender := c.Sender()
		if sender == nil {
			log.Debug("ignoring update without sender")
			return nil
		}

		reply, err := conv.Handle(Context(c), sender.ID, c.Text())
		if err != nil {
			return err
		}
		return send(c, reply)
	}
}
