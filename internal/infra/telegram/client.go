// internal/infra/telegram/client.go
package telegram

import (
	"fmt"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
	"gopkg.in/telebot.v3"
)

const longPollTimeout = 10 * time.Second

// ChatRecipient addresses a chat by id or @username.
type ChatRecipient string

func (c ChatRecipient) Recipient() string { return string(c) }

// BotOptions configure NewBot.
type BotOptions struct {
	Token   string
	APIURL  string
	Timeout time.Duration
	// Poll attaches a long poller so command handlers receive updates.
	Poll bool
	// Synchronous runs handlers on the goroutine that processes the update.
	Synchronous bool
	Logger      *logrus.Entry
}

// NewBot creates a telebot instance. The token is verified with getMe.
func NewBot(opts BotOptions) (*telebot.Bot, error) {
	logger := opts.Logger
	if logger == nil {
		logger = logrus.NewEntry(logrus.StandardLogger())
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	pref := telebot.Settings{
		Token:       opts.Token,
		URL:         opts.APIURL,
		Client:      &http.Client{Timeout: timeout},
		Synchronous: opts.Synchronous,
		OnError: func(err error, c telebot.Context) { // Global error handler
			entry := logger.WithError(err)
			if c != nil && c.Chat() != nil {
				entry = entry.WithField("chat_id", c.Chat().ID)
			}
			entry.Error("Telegram bot error")
		},
	}
	if opts.Poll {
		pref.Poller = &telebot.LongPoller{Timeout: longPollTimeout}
		// getUpdates holds the connection open for the poll timeout.
		pref.Client = &http.Client{Timeout: timeout + longPollTimeout}
	}

	bot, err := telebot.NewBot(pref)
	if err != nil {
		return nil, fmt.Errorf("create telegram bot: %w", err)
	}
	return bot, nil
}

// TelebotAdapter implements the Client interface using the gopkg.in/telebot.v3 library.
type TelebotAdapter struct {
	bot    *telebot.Bot
	logger *logrus.Entry
}

func NewTelebotAdapter(b *telebot.Bot, logger *logrus.Entry) *TelebotAdapter {
	if logger == nil {
		logger = logrus.NewEntry(logrus.StandardLogger())
	}
	return &TelebotAdapter{bot: b, logger: logger}
}

// Bot returns the underlying bot for handler registration.
func (tba *TelebotAdapter) Bot() *telebot.Bot {
	return tba.bot
}

// SendMessage sends a text message to the specified chat.
func (tba *TelebotAdapter) SendMessage(chatID string, text string, options *telebot.SendOptions) error {
	if options == nil {
		options = &telebot.SendOptions{}
	}

	logCtx := tba.logger.WithField("chat_id", chatID)
	logCtx.WithFields(logrus.Fields{
		"parse_mode": options.ParseMode,
		"text":       text,
	}).Debug("Sending Telegram message")

	msg, err := tba.bot.Send(ChatRecipient(chatID), text, options)
	if err != nil {
		return fmt.Errorf("send telegram message: %w", err)
	}
	if msg != nil {
		logCtx.WithField("message_id", msg.ID).Debug("Telegram accepted message")
	}
	return nil
}
