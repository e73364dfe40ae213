package llm

import (
	"context"
)

// Message represents a chat message in a provider-agnostic format
type Message struct {
	Role    string // "user", "assistant", "system"
	Content string
}

// Option allows for optional parameters like Temperature, TopP, etc.
type Option func(*Options)

type Options struct {
	Temperature float64
	TopP        float64
	MaxTokens   int
}

func WithTemperature(temp float64) Option {
	return func(o *Options) {
		o.Temperature = temp
	}
}

func WithTopP(topP float64) Option {
	return func(o *Options) {
		o.TopP = topP
	}
}

// Stream is a pull-based sequence of text deltas from one generation.
// Recv returns io.EOF on natural completion; any other error aborts the
// stream. A Stream is finite and not restartable.
type Stream interface {
	Recv() (string, error)
	Close() error
}

// StreamProvider defines the contract for a streaming LLM backend.
type StreamProvider interface {
	// StreamChat opens one streaming completion call. Cancelling ctx stops
	// the underlying network read promptly.
	StreamChat(ctx context.Context, model string, history []Message, options ...Option) (Stream, error)
}

// ModelInfo describes one selectable model of a provider's catalog.
type ModelInfo struct {
	Name        string
	DisplayName string
	MaxTokens   int
}
