package telegram

import "gopkg.in/telebot.v3"

// Client sends text to a Telegram chat. It keeps the chat channel adapter
// and the operator handlers independent of the bot library.
type Client interface {
	SendMessage(chatID int64, text string, options *telebot.SendOptions) error
}
