// internal/infra/telegram/client.go
package telegram

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"gopkg.in/telebot.v3"
)

// TelebotAdapter implements the Client interface using the gopkg.in/telebot.v3 library.
type TelebotAdapter struct {
	bot *telebot.Bot
}

func NewTelebotAdapter(b *telebot.Bot) *TelebotAdapter {
	return &TelebotAdapter{bot: b}
}

// SendMessage sends a text message to a private chat or a group.
func (tba *TelebotAdapter) SendMessage(chatID int64, text string, options *telebot.SendOptions) error {
	if options == nil {
		options = &telebot.SendOptions{}
	}
	_, err := tba.bot.Send(telebot.ChatID(chatID), text, options)
	return err
}

// NewBot creates a long-polling bot whose handler errors go to the logger.
func NewBot(token string, logger *logrus.Entry) (*telebot.Bot, error) {
	pref := telebot.Settings{
		Token:  token,
		Poller: &telebot.LongPoller{Timeout: 10 * time.Second},
		OnError: func(err error, c telebot.Context) {
			l := logger.WithError(err)
			if c != nil && c.Sender() != nil && c.Chat() != nil {
				l = l.WithFields(logrus.Fields{"sender_id": c.Sender().ID, "chat_id": c.Chat().ID, "text": c.Text()})
			}
			l.Error("Telegram handler error")
		},
	}
	b, err := telebot.NewBot(pref)
	if err != nil {
		return nil, fmt.Errorf("could not create Telegram bot: %w", err)
	}
	return b, nil
}
