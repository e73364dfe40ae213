package qwen

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/Tairs07/Media/pkg/llm"
)

const defaultEndpoint = "https://dashscope.aliyuncs.com/api/v1/services/aigc/text-generation/generation"

// Config carries everything the provider needs; nothing is read from the
// environment inside the client so tests can point it at a fake endpoint.
type Config struct {
	APIKey      string
	Endpoint    string
	Timeout     time.Duration
	Temperature float64
	TopP        float64
}

type QwenProvider struct {
	cfg    Config
	client *http.Client
}

// Ensure QwenProvider implements StreamProvider
var _ llm.StreamProvider = &QwenProvider{}

func NewQwenProvider(cfg Config) *QwenProvider {
	if cfg.Endpoint == "" {
		cfg.Endpoint = defaultEndpoint
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 60 * time.Second
	}
	if cfg.Temperature == 0 {
		cfg.Temperature = 0.7
	}
	if cfg.TopP == 0 {
		cfg.TopP = 0.8
	}
	return &QwenProvider{
		cfg: cfg,
		// Timeout bounds the connect and header phase only. A whole-client
		// Timeout would also cap the body read and cut long streams; once
		// headers arrive, stream lifetime is governed by the request context.
		client: &http.Client{
			Transport: &http.Transport{
				DialContext:           (&net.Dialer{Timeout: cfg.Timeout}).DialContext,
				ResponseHeaderTimeout: cfg.Timeout,
			},
		},
	}
}

// --- Request/Response structs (Internal to this package) ---

type qwenRequest struct {
	Model      string         `json:"model"`
	Input      qwenInput      `json:"input"`
	Parameters qwenParameters `json:"parameters"`
}

type qwenInput struct {
	Messages []qwenMessage `json:"messages"`
}

type qwenMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type qwenParameters struct {
	ResultFormat      string  `json:"result_format"`
	IncrementalOutput bool    `json:"incremental_output"`
	Temperature       float64 `json:"temperature,omitempty"`
	TopP              float64 `json:"top_p,omitempty"`
	MaxTokens         int     `json:"max_tokens,omitempty"`
}

type qwenFrame struct {
	Code    string `json:"code,omitempty"`
	Message string `json:"message,omitempty"`
	Output  struct {
		FinishReason string `json:"finish_reason,omitempty"`
		Choices      []struct {
			Message qwenMessage `json:"message"`
		} `json:"choices"`
	} `json:"output"`
}

// --- Interface Implementation ---

// StreamChat opens one SSE call against the DashScope text-generation API.
// With incremental_output enabled the provider sends true deltas, so each
// frame's content is yielded verbatim without diffing.
func (q *QwenProvider) StreamChat(ctx context.Context, model string, history []llm.Message, opts ...llm.Option) (llm.Stream, error) {
	options := &llm.Options{
		Temperature: q.cfg.Temperature,
		TopP:        q.cfg.TopP,
	}
	for _, opt := range opts {
		opt(options)
	}

	messages := make([]qwenMessage, len(history))
	for i, msg := range history {
		messages[i] = qwenMessage{
			Role:    msg.Role,
			Content: msg.Content,
		}
	}

	reqPayload := qwenRequest{
		Model: model,
		Input: qwenInput{Messages: messages},
		Parameters: qwenParameters{
			ResultFormat:      "message",
			IncrementalOutput: true,
			Temperature:       options.Temperature,
			TopP:              options.TopP,
			MaxTokens:         options.MaxTokens,
		},
	}

	payloadBytes, err := json.Marshal(reqPayload)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", q.cfg.Endpoint, bytes.NewBuffer(payloadBytes))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+q.cfg.APIKey)
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("X-DashScope-SSE", "enable")

	resp, err := q.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("qwen request failed: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		return nil, fmt.Errorf("qwen error: status %d, body: %s", resp.StatusCode, string(bodyBytes))
	}

	scanner := bufio.NewScanner(resp.Body)
	// Frames can carry long deltas; the default 64KB line limit is too tight.
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	return &qwenStream{
		body:    resp.Body,
		scanner: scanner,
	}, nil
}

// qwenStream reads "data: <json>" frames lazily; one Recv per frame.
type qwenStream struct {
	body    io.ReadCloser
	scanner *bufio.Scanner
	done    bool
}

func (s *qwenStream) Recv() (string, error) {
	if s.done {
		return "", io.EOF
	}

	for s.scanner.Scan() {
		line := strings.TrimSpace(s.scanner.Text())
		if !strings.HasPrefix(line, "data:") {
			continue
		}
		payload := strings.TrimSpace(strings.TrimPrefix(line, "data:"))

		if payload == "[DONE]" {
			s.done = true
			return "", io.EOF
		}

		var frame qwenFrame
		if err := json.Unmarshal([]byte(payload), &frame); err != nil {
			// A single malformed frame is a transient glitch; skip it
			// instead of aborting the whole stream.
			log.Printf("[WARN] qwen: failed to parse SSE frame: %v", err)
			continue
		}

		if frame.Code != "" {
			s.done = true
			return "", fmt.Errorf("qwen api error: %s - %s", frame.Code, frame.Message)
		}

		var delta string
		if len(frame.Output.Choices) > 0 {
			delta = frame.Output.Choices[0].Message.Content
		}

		finished := frame.Output.FinishReason == "stop" || frame.Output.FinishReason == "length"
		if delta != "" {
			if finished {
				// Deliver the last delta now; the next Recv ends the stream.
				s.done = true
			}
			return delta, nil
		}
		if finished {
			s.done = true
			return "", io.EOF
		}
		// Empty keep-alive frame; keep reading.
	}

	if err := s.scanner.Err(); err != nil {
		return "", err
	}
	s.done = true
	return "", io.EOF
}

func (s *qwenStream) Close() error {
	return s.body.Close()
}

// AvailableModels returns the static catalog exposed to clients.
func AvailableModels() []llm.ModelInfo {
	return []llm.ModelInfo{
		{Name: "qwen-turbo", DisplayName: "Qwen Turbo", MaxTokens: 8000},
		{Name: "qwen-plus", DisplayName: "Qwen Plus", MaxTokens: 32000},
		{Name: "qwen-max", DisplayName: "Qwen Max", MaxTokens: 8000},
	}
}
