package qwen

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Tairs07/Media/pkg/llm"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestProvider(endpoint string) *QwenProvider {
	return NewQwenProvider(Config{APIKey: "test-key", Endpoint: endpoint})
}

func sseHandler(t *testing.T, frames []string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		assert.Equal(t, "enable", r.Header.Get("X-DashScope-SSE"))

		var req qwenRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "message", req.Parameters.ResultFormat)
		assert.True(t, req.Parameters.IncrementalOutput)

		w.Header().Set("Content-Type", "text/event-stream")
		flusher := w.(http.Flusher)
		for _, frame := range frames {
			fmt.Fprintf(w, "data: %s\n\n", frame)
			flusher.Flush()
		}
	}
}

func contentFrame(delta, finishReason string) string {
	frame := map[string]interface{}{
		"output": map[string]interface{}{
			"finish_reason": finishReason,
			"choices": []map[string]interface{}{
				{"message": map[string]string{"role": "assistant", "content": delta}},
			},
		},
	}
	data, _ := json.Marshal(frame)
	return string(data)
}

func drain(t *testing.T, stream llm.Stream) (string, error) {
	var full string
	for {
		delta, err := stream.Recv()
		if err != nil {
			return full, err
		}
		full += delta
	}
}

func TestStreamChatDeltas(t *testing.T) {
	srv := httptest.NewServer(sseHandler(t, []string{
		contentFrame("Hel", "null"),
		contentFrame("lo", "null"),
		contentFrame("!", "stop"),
		"[DONE]",
	}))
	defer srv.Close()

	provider := newTestProvider(srv.URL)
	stream, err := provider.StreamChat(context.Background(), "qwen-plus", []llm.Message{
		{Role: "user", Content: "hi"},
	})
	require.NoError(t, err)
	defer stream.Close()

	full, err := drain(t, stream)
	assert.Equal(t, io.EOF, err)
	assert.Equal(t, "Hello!", full)
}

func TestStreamChatFinishWithoutDelta(t *testing.T) {
	srv := httptest.NewServer(sseHandler(t, []string{
		contentFrame("done", "null"),
		contentFrame("", "stop"),
	}))
	defer srv.Close()

	provider := newTestProvider(srv.URL)
	stream, err := provider.StreamChat(context.Background(), "qwen-plus", nil)
	require.NoError(t, err)
	defer stream.Close()

	full, err := drain(t, stream)
	assert.Equal(t, io.EOF, err)
	assert.Equal(t, "done", full)
}

func TestStreamChatSkipsMalformedFrame(t *testing.T) {
	srv := httptest.NewServer(sseHandler(t, []string{
		contentFrame("a", "null"),
		"{not json",
		contentFrame("b", "stop"),
		"[DONE]",
	}))
	defer srv.Close()

	provider := newTestProvider(srv.URL)
	stream, err := provider.StreamChat(context.Background(), "qwen-plus", nil)
	require.NoError(t, err)
	defer stream.Close()

	full, err := drain(t, stream)
	assert.Equal(t, io.EOF, err)
	assert.Equal(t, "ab", full)
}

func TestStreamChatApiErrorFrame(t *testing.T) {
	srv := httptest.NewServer(sseHandler(t, []string{
		contentFrame("par", "null"),
		`{"code":"Throttling.RateQuota","message":"Requests throttled"}`,
	}))
	defer srv.Close()

	provider := newTestProvider(srv.URL)
	stream, err := provider.StreamChat(context.Background(), "qwen-plus", nil)
	require.NoError(t, err)
	defer stream.Close()

	full, err := drain(t, stream)
	require.Error(t, err)
	assert.NotEqual(t, io.EOF, err)
	assert.Contains(t, err.Error(), "Throttling.RateQuota")
	assert.Equal(t, "par", full)

	// A failed stream stays failed.
	_, err = stream.Recv()
	assert.Equal(t, io.EOF, err)
}

func TestStreamChatNon200(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"code":"InvalidApiKey"}`))
	}))
	defer srv.Close()

	provider := newTestProvider(srv.URL)
	_, err := provider.StreamChat(context.Background(), "qwen-plus", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 401")
	assert.Contains(t, err.Error(), "InvalidApiKey")
}

func TestStreamChatContextCancel(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprintf(w, "data: %s\n\n", contentFrame("first", "null"))
		w.(http.Flusher).Flush()
		<-release // hold the connection open
	}))
	defer srv.Close()
	defer close(release)

	ctx, cancel := context.WithCancel(context.Background())
	provider := newTestProvider(srv.URL)
	stream, err := provider.StreamChat(ctx, "qwen-plus", nil)
	require.NoError(t, err)
	defer stream.Close()

	delta, err := stream.Recv()
	require.NoError(t, err)
	assert.Equal(t, "first", delta)

	cancel()
	_, err = stream.Recv()
	require.Error(t, err)
	assert.NotEqual(t, io.EOF, err)
}

func TestStreamChatOutlivesHeaderTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		flusher := w.(http.Flusher)
		fmt.Fprintf(w, "data: %s\n\n", contentFrame("slow", "null"))
		flusher.Flush()
		time.Sleep(300 * time.Millisecond)
		fmt.Fprintf(w, "data: %s\n\n", contentFrame(" stream", "stop"))
		flusher.Flush()
	}))
	defer srv.Close()

	// The configured timeout only bounds connect and response headers; a
	// stream that keeps delivering past it must not be cut off.
	provider := NewQwenProvider(Config{APIKey: "test-key", Endpoint: srv.URL, Timeout: 100 * time.Millisecond})
	stream, err := provider.StreamChat(context.Background(), "qwen-plus", nil)
	require.NoError(t, err)
	defer stream.Close()

	full, err := drain(t, stream)
	assert.Equal(t, io.EOF, err)
	assert.Equal(t, "slow stream", full)
}

func TestAvailableModels(t *testing.T) {
	models := AvailableModels()
	require.NotEmpty(t, models)

	names := make(map[string]bool)
	for _, m := range models {
		names[m.Name] = true
		assert.NotEmpty(t, m.DisplayName)
		assert.Greater(t, m.MaxTokens, 0)
	}
	assert.True(t, names["qwen-plus"])
}
