package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeTelegram is a minimal Bot API double backed by httptest.
type fakeTelegram struct {
	mu       sync.Mutex
	messages []string
	captions []string
	updates  []Update
	offsets  []int64
	server   *httptest.Server
}

func newFakeTelegram(t *testing.T) *fakeTelegram {
	t.Helper()
	f := &fakeTelegram{}
	mux := http.NewServeMux()
	mux.HandleFunc("/bottest-token/sendMessage", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		f.mu.Lock()
		f.messages = append(f.messages, r.FormValue("text"))
		f.mu.Unlock()
		fmt.Fprint(w, `{"ok": true, "result": {}}`)
	})
	mux.HandleFunc("/bottest-token/sendDocument", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(1<<20))
		f.mu.Lock()
		f.captions = append(f.captions, r.FormValue("caption"))
		f.mu.Unlock()
		fmt.Fprint(w, `{"ok": true, "result": {}}`)
	})
	mux.HandleFunc("/bottest-token/getUpdates", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		f.mu.Lock()
		var offset int64
		fmt.Sscanf(r.FormValue("offset"), "%d", &offset)
		f.offsets = append(f.offsets, offset)
		var pending []Update
		for _, u := range f.updates {
			if u.UpdateID >= offset {
				pending = append(pending, u)
			}
		}
		f.mu.Unlock()
		body, _ := json.Marshal(pending)
		fmt.Fprintf(w, `{"ok": true, "result": %s}`, body)
	})
	f.server = httptest.NewServer(mux)
	t.Cleanup(f.server.Close)
	return f
}

func (f *fakeTelegram) client() *Client {
	return NewClientWithAPIURL("test-token", "-1001234", f.server.URL)
}

func (f *fakeTelegram) addUpdate(id int64, text string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updates = append(f.updates, Update{
		UpdateID: id,
		Message:  &Message{MessageID: id, Text: text},
	})
}

func TestClient_SendMessage(t *testing.T) {
	fake := newFakeTelegram(t)

	err := fake.client().SendMessage(context.Background(), "hello from clipforge")
	require.NoError(t, err)
	assert.Equal(t, []string{"hello from clipforge"}, fake.messages)
}

func TestClient_SendMessageAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, `{"ok": false, "description": "chat not found"}`)
	}))
	defer server.Close()

	client := NewClientWithAPIURL("test-token", "-1001234", server.URL)
	err := client.SendMessage(context.Background(), "hello")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "chat not found")
}

func TestClient_SendDocument(t *testing.T) {
	fake := newFakeTelegram(t)

	path := filepath.Join(t.TempDir(), "clip.mp4")
	require.NoError(t, os.WriteFile(path, []byte("fake video bytes"), 0o644))

	err := fake.client().SendDocument(context.Background(), path, "your clip is ready")
	require.NoError(t, err)
	assert.Equal(t, []string{"your clip is ready"}, fake.captions)
}

func TestClient_SendDocumentMissingFile(t *testing.T) {
	fake := newFakeTelegram(t)
	err := fake.client().SendDocument(context.Background(), "/does/not/exist.mp4", "")
	assert.Error(t, err)
}

func TestClient_GetUpdatesHonorsOffset(t *testing.T) {
	fake := newFakeTelegram(t)
	fake.addUpdate(10, "first")
	fake.addUpdate(11, "second")

	updates, err := fake.client().GetUpdates(context.Background(), 11)
	require.NoError(t, err)
	require.Len(t, updates, 1)
	assert.Equal(t, int64(11), updates[0].UpdateID)
	assert.Equal(t, "second", updates[0].Message.Text)
}
