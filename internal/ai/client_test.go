package ai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(h http.HandlerFunc) (*Client, *httptest.Server) {
	ts := httptest.NewServer(h)
	return New(ts.URL+"/", "test-key", "tts-dep", "chat-dep"), ts
}

func TestSpeechReturnsAudioBytes(t *testing.T) {
	c, ts := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-key", r.Header.Get("api-key"))
		assert.Contains(t, r.URL.Path, "/deployments/tts-dep/audio/speech")
		var body speechReq
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "magnanimous", body.Input)
		assert.Equal(t, "onyx", body.Voice)
		w.Header().Set("Content-Type", "audio/mpeg")
		_, _ = w.Write([]byte("mp3-bytes"))
	})
	defer ts.Close()

	out, err := c.Speech(context.Background(), "magnanimous", "onyx")
	require.NoError(t, err)
	assert.Equal(t, []byte("mp3-bytes"), out)
}

func TestSpeechErrorStatusSurfacesBody(t *testing.T) {
	c, ts := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota exceeded", http.StatusTooManyRequests)
	})
	defer ts.Close()

	_, err := c.Speech(context.Background(), "word", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "quota exceeded")
}

func TestDefineParsesCompletionContent(t *testing.T) {
	c, ts := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.URL.Path, "/deployments/chat-dep/chat/completions")
		content, _ := json.Marshal(WordInfo{Type: "Noun", Definition: "A small test word."})
		res := map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"role": "assistant", "content": string(content)}},
			},
		}
		_ = json.NewEncoder(w).Encode(res)
	})
	defer ts.Close()

	info, err := c.Define(context.Background(), "widget")
	require.NoError(t, err)
	assert.Equal(t, "Noun", info.Type)
	assert.Equal(t, "A small test word.", info.Definition)
}

func TestDefineRejectsEmptyWord(t *testing.T) {
	c := New("http://unused/", "k", "t", "c")
	_, err := c.Define(context.Background(), "")
	assert.Error(t, err)
}
