package airdc

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	address := strings.TrimPrefix(server.URL, "http://")
	client, err := NewClient("http", address, "admin", "secret", time.Second, nil)
	require.NoError(t, err)
	return client
}

func TestListTransfers_SendsAuthAndDecodes(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/transfers", r.URL.Path)
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		user, pass, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "admin", user)
		assert.Equal(t, "secret", pass)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"id": 1, "name": "file.bin", "download": false, "status": {"id": "running", "str": "Running"}}]`))
	})

	transfers, err := client.ListTransfers(context.Background())
	require.NoError(t, err)
	require.Len(t, transfers, 1)
	assert.Equal(t, "file.bin", transfers[0].Name)
	assert.True(t, transfers[0].IsUpload())
}

func TestListTransfers_NonListBodyIsEmpty(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"message": "unexpected"}`))
	})

	transfers, err := client.ListTransfers(context.Background())
	require.NoError(t, err)
	assert.Empty(t, transfers)
}

func TestListTransfers_HTTPErrorStatus(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
	})

	_, err := client.ListTransfers(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "returned status 401")
}

func TestListTransfers_MalformedJSON(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[{"id": 1,`))
	})

	_, err := client.ListTransfers(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode response")
}

func TestNewClient_RejectsEmptyAddress(t *testing.T) {
	_, err := NewClient("http", " ", "u", "p", 0, nil)
	assert.Error(t, err)
}
