// internal/infra/telegram/bot_commands_handler.go
package telegram

import (
	"fmt"
	"html"
	"strconv"
	"strings"

	"airdc_upload_monitor/internal/app"

	"github.com/dustin/go-humanize"
	"github.com/sirupsen/logrus"
	"gopkg.in/telebot.v3"
)

// UploadStatusProvider exposes the uploads currently tracked by the monitor.
type UploadStatusProvider interface {
	ActiveUploads() []app.ActiveUpload
}

// RegisterBotCommands wires /start, /help and /status. Commands coming from any
// chat other than chatID are ignored.
func RegisterBotCommands(
	b *telebot.Bot,
	status UploadStatusProvider,
	chatID string,
	baseLogger *logrus.Entry,
) {
	cmdLogger := baseLogger.WithField("handler_group", "commands")

	guard := func(command string, next func(c telebot.Context, logCtx *logrus.Entry) error) telebot.HandlerFunc {
		return func(c telebot.Context) error {
			logCtx := cmdLogger.WithField("command", command)
			if c.Chat() != nil {
				logCtx = logCtx.WithField("chat_id", c.Chat().ID)
			}
			if !isMonitoredChat(c.Chat(), chatID) {
				logCtx.Warn("Ignoring command from foreign chat")
				return nil
			}
			logCtx.Info("Processing command")
			return next(c, logCtx)
		}
	}

	b.Handle("/start", guard("/start", func(c telebot.Context, _ *logrus.Entry) error {
		return c.Send("¡Hola! Te avisaré aquí cada vez que AirDC++ empiece una nueva subida. Usa /help para ver los comandos.")
	}))

	b.Handle("/help", guard("/help", func(c telebot.Context, _ *logrus.Entry) error {
		var helpText strings.Builder
		helpText.WriteString("Comandos disponibles:\n\n")
		helpText.WriteString("/status - Mostrar las subidas activas.\n")
		helpText.WriteString("/help - Mostrar este mensaje.")
		return c.Send(helpText.String())
	}))

	b.Handle("/status", guard("/status", func(c telebot.Context, logCtx *logrus.Entry) error {
		uploads := status.ActiveUploads()
		logCtx.WithField("active_uploads", len(uploads)).Debug("Reporting status")
		return c.Send(FormatStatus(uploads), &telebot.SendOptions{ParseMode: telebot.ModeHTML})
	}))
}

// FormatStatus renders the /status reply.
func FormatStatus(uploads []app.ActiveUpload) string {
	if len(uploads) == 0 {
		return "📭 No hay subidas activas."
	}
	var b strings.Builder
	fmt.Fprintf(&b, "🔼 <b>Subidas activas (%s)</b>\n", humanize.Comma(int64(len(uploads))))
	for _, u := range uploads {
		state := u.Status
		if state == "" {
			state = "desconocido"
		}
		fmt.Fprintf(&b, "\n📁 %s (%s)", html.EscapeString(u.Name), html.EscapeString(state))
	}
	return b.String()
}

// isMonitoredChat matches a numeric chat id or an @username against chat.
func isMonitoredChat(chat *telebot.Chat, chatID string) bool {
	if chat == nil {
		return false
	}
	chatID = strings.TrimSpace(chatID)
	if strconv.FormatInt(chat.ID, 10) == chatID {
		return true
	}
	return chat.Username != "" && strings.EqualFold("@"+chat.Username, chatID)
}
