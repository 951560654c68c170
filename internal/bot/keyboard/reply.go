// Package keyboard renders reply keyboards for the intake prompts.
package keyboard

import (
	telebot "gopkg.in/telebot.v3"
)

// Options builds a reply keyboard with one label per row.
func Options(labels []string) *telebot.ReplyMarkup {
	markup := &telebot.ReplyMarkup{
		ResizeKeyboard:  true,
		OneTimeKeyboard: false,
	}

	rows := make([]telebot.Row, 0, len(labels))
	for _, label := range labels {
		if label == "" {
			continue
		}
		rows = append(rows, markup.Row(markup.Text(label)))
	}

	markup.Reply(rows...)
	return markup
}

// Remove hides any keyboard shown earlier.
func Remove() *telebot.ReplyMarkup {
	return &telebot.ReplyMarkup{RemoveKeyboard: true}
}
