package handlers

import (
	"log/slog"

	telebot "gopkg.in/telebot.v3"
)

// NewStartHandler (re)starts the intake form for the sender.
func NewStartHandler(conv Conversation, log *slog.Logger) Handler {
	if log == nil {
		log = slog.Default()
	}

	return func(c telebot.Context) error {
		sender := c.Sender()
		if sender == nil {
			log.Warn("start handler invoked without sender")
			return nil
		}

		reply, err := conv.Start(Context(c), sender.ID)
		if err != nil {
			return err
		}
		return send(c, reply)
	}
}

// NewCancelHandler drops the sender's session and clears the keyboard.
func NewCancelHandler(conv Conversation, log *slog.Logger) Handler {
	if log == nil {
		log = slog.Default()
	}

	return func(c telebot.Context) error {
		sender := c.Sender()
		if sender == nil {
			log.Warn("cancel handler invoked without sender context")
			return nil
		}

		reply, err := conv.Cancel(Context(c), sender.ID)
		if err != nil {
			log.Error("failed to cancel session", slog.Int64("user_id", sender.ID), slog.Any("error", err))
			return err
		}
		return send(c, reply)
	}
}

// NewHelpHandler explains how to use the bot.
func NewHelpHandler(conv Conversation) Handler {
	return func(c telebot.Context) error {
		return send(c, conv.Help())
	}
}
