package handlers

import (
	telebot "gopkg.in/telebot.v3"

	"github.com/Proton-105/course-intake-bot/internal/bot/keyboard"
	"github.com/Proton-105/course-intake-bot/internal/form"
)

// send renders reply with its keyboard. A reply without text sends nothing.
func send(c telebot.Context, reply form.Reply) error {
	if reply.Text == "" {
		return nil
	}

	switch {
	case len(reply.Options) > 0:
		return c.Send(reply.Text, keyboard.Options(reply.Options))
	case reply.RemoveKeyboard:
		return c.Send(reply.Text, keyboard.Remove())
	default:
		return c.Send(reply.Text)
	}
}
