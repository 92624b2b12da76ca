package telegram

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"airdc_upload_monitor/internal/app"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/telebot.v3"
)

type staticStatus []app.ActiveUpload

func (s staticStatus) ActiveUploads() []app.ActiveUpload { return s }

func newCommandBot(t *testing.T, api *fakeBotAPI, status UploadStatusProvider) *telebot.Bot {
	t.Helper()
	server := httptest.NewServer(api.handler(t))
	t.Cleanup(server.Close)

	bot, err := NewBot(BotOptions{Token: testToken, APIURL: server.URL, Timeout: time.Second, Synchronous: true})
	require.NoError(t, err)
	RegisterBotCommands(bot, status, "-100200300", logrus.NewEntry(logrus.New()))
	return bot
}

func commandUpdate(chatID int64, text string) telebot.Update {
	return telebot.Update{Message: &telebot.Message{
		Text:   text,
		Chat:   &telebot.Chat{ID: chatID, Type: telebot.ChatSuperGroup},
		Sender: &telebot.User{ID: 77, Username: "operator"},
	}}
}

func TestRegisterBotCommands_IgnoresForeignChat(t *testing.T) {
	api := &fakeBotAPI{}
	bot := newCommandBot(t, api, staticStatus{{Key: "1_a", Name: "a.iso", Status: "running"}})

	for _, cmd := range []string{"/start", "/help", "/status"} {
		bot.ProcessUpdate(commandUpdate(42, cmd))
	}

	assert.Empty(t, api.sent)
}

func TestRegisterBotCommands_StatusRepliesToConfiguredChat(t *testing.T) {
	api := &fakeBotAPI{}
	uploads := staticStatus{{Key: "1_a", Name: "a.iso", Status: "running"}}
	bot := newCommandBot(t, api, uploads)

	bot.ProcessUpdate(commandUpdate(-100200300, "/status"))

	require.Len(t, api.sent, 1)
	assert.Equal(t, "-100200300", api.sent[0]["chat_id"])
	assert.Equal(t, FormatStatus(uploads), api.sent[0]["text"])
	assert.Equal(t, "HTML", api.sent[0]["parse_mode"])

	bot.ProcessUpdate(commandUpdate(-100200300, "/help"))
	require.Len(t, api.sent, 2)
	assert.True(t, strings.HasPrefix(api.sent[1]["text"], "Comandos disponibles:"))
}

func TestFormatStatus(t *testing.T) {
	assert.Equal(t, "📭 No hay subidas activas.", FormatStatus(nil))

	got := FormatStatus([]app.ActiveUpload{
		{Key: "1_a", Name: "a<b>.iso", Status: "running"},
		{Key: "2_c", Name: "c.mkv"},
	})
	assert.Equal(t, "🔼 <b>Subidas activas (2)</b>\n\n📁 a&lt;b&gt;.iso (running)\n📁 c.mkv (desconocido)", got)

	many := make([]app.ActiveUpload, 1200)
	assert.True(t, strings.HasPrefix(FormatStatus(many), "🔼 <b>Subidas activas (1,200)</b>\n"))
}

func TestIsMonitoredChat(t *testing.T) {
	assert.True(t, isMonitoredChat(&telebot.Chat{ID: -100200300}, "-100200300"))
	assert.True(t, isMonitoredChat(&telebot.Chat{ID: 5, Username: "Uploads"}, "@uploads"))
	assert.False(t, isMonitoredChat(&telebot.Chat{ID: 42}, "-100200300"))
	assert.False(t, isMonitoredChat(nil, "42"))
}
