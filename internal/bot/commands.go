package bot

import (
	"strings"

	telebot "gopkg.in/telebot.v3"

	"github.com/Proton-105/course-intake-bot/internal/i18n"
)

// Command constants for Telegram bot commands.
const (
	CommandStart  = "/start"
	CommandCancel = "/cancel"
	CommandHelp   = "/help"
)

// Commands lists the bot menu entries with localized descriptions.
func Commands(t i18n.Translator) []telebot.Command {
	describe := func(key string) string {
		if t == nil {
			return key
		}
		return t.T(key)
	}

	return []telebot.Command{
		{Text: strings.TrimPrefix(CommandStart, "/"), Description: describe("commands.start")},
		{Text: strings.TrimPrefix(CommandCancel, "/"), Description: describe("commands.cancel")},
		{Text: strings.TrimPrefix(CommandHelp, "/"), Description: describe("commands.help")},
	}
}

// commandName extracts "/cmd" from "/cmd@bot args". ok is false for plain text.
func commandName(text string) (string, bool) {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "/") {
		return "", false
	}

	name, _, _ := strings.Cut(strings.Fields(text)[0], "@")
	return strings.ToLower(name), true
}
