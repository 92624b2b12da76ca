package telegram

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/telebot.v3"
)

const testToken = "123:abc"

// fakeBotAPI emulates the subset of the Bot API used by the adapter.
type fakeBotAPI struct {
	mu       sync.Mutex
	sent     []map[string]string
	failSend bool
}

func (f *fakeBotAPI) handler(t *testing.T) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/bot" + testToken + "/getMe":
			_, _ = w.Write([]byte(`{"ok":true,"result":{"id":1,"is_bot":true,"first_name":"monitor","username":"monitor_bot"}}`))
		case "/bot" + testToken + "/sendMessage":
			var params map[string]string
			require.NoError(t, json.NewDecoder(r.Body).Decode(&params))
			f.mu.Lock()
			f.sent = append(f.sent, params)
			fail := f.failSend
			f.mu.Unlock()
			if fail {
				w.WriteHeader(http.StatusBadRequest)
				_, _ = w.Write([]byte(`{"ok":false,"error_code":400,"description":"Bad Request: chat not found"}`))
				return
			}
			_, _ = w.Write([]byte(`{"ok":true,"result":{"message_id":7,"date":0,"chat":{"id":-100200300,"type":"supergroup"},"text":"ok"}}`))
		default:
			http.NotFound(w, r)
		}
	}
}

func newTestAdapter(t *testing.T, api *fakeBotAPI) *TelebotAdapter {
	t.Helper()
	server := httptest.NewServer(api.handler(t))
	t.Cleanup(server.Close)

	bot, err := NewBot(BotOptions{Token: testToken, APIURL: server.URL, Timeout: time.Second})
	require.NoError(t, err)
	return NewTelebotAdapter(bot, nil)
}

func TestTelebotAdapter_SendMessage(t *testing.T) {
	api := &fakeBotAPI{}
	adapter := newTestAdapter(t, api)

	err := adapter.SendMessage("-100200300", "<b>hello</b>", &telebot.SendOptions{ParseMode: telebot.ModeHTML})
	require.NoError(t, err)

	require.Len(t, api.sent, 1)
	assert.Equal(t, "-100200300", api.sent[0]["chat_id"])
	assert.Equal(t, "<b>hello</b>", api.sent[0]["text"])
	assert.Equal(t, "HTML", api.sent[0]["parse_mode"])
}

func TestTelebotAdapter_SendMessageError(t *testing.T) {
	api := &fakeBotAPI{failSend: true}
	adapter := newTestAdapter(t, api)

	err := adapter.SendMessage("@missing", "hello", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "send telegram message")
}

func TestChatRecipient(t *testing.T) {
	assert.Equal(t, "@uploads", ChatRecipient("@uploads").Recipient())
}
