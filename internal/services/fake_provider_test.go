package services

import (
	"context"
	"sync"

	"gemini-proxy/internal/gentypes"
	"gemini-proxy/internal/provider"
)

// fakeProvider records calls and returns canned results.
type fakeProvider struct {
	mu          sync.Mutex
	text        string
	images      []gentypes.InlinePayload
	err         error
	calls       int
	lastPrompt  string
	lastInline  *gentypes.InlinePayload
	lastHistory []gentypes.ChatMessage
	chunks      []string
}

func (f *fakeProvider) record(prompt string, inline *gentypes.InlinePayload, history []gentypes.ChatMessage) (*provider.Completion, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.lastPrompt = prompt
	f.lastInline = inline
	f.lastHistory = append([]gentypes.ChatMessage(nil), history...)
	if f.err != nil {
		return nil, f.err
	}
	return &provider.Completion{Text: f.text, Inline: f.images}, nil
}

func (f *fakeProvider) GenerateContent(_ context.Context, prompt string, inline *gentypes.InlinePayload) (*provider.Completion, error) {
	return f.record(prompt, inline, nil)
}

func (f *fakeProvider) GenerateImage(_ context.Context, prompt string) (*provider.Completion, error) {
	return f.record(prompt, nil, nil)
}

func (f *fakeProvider) Chat(_ context.Context, history []gentypes.ChatMessage, prompt string) (*provider.Completion, error) {
	return f.record(prompt, nil, history)
}

func (f *fakeProvider) ChatStream(_ context.Context, history []gentypes.ChatMessage, prompt string, onChunk provider.ChunkFunc) (*provider.Completion, error) {
	c, err := f.record(prompt, nil, history)
	if err != nil {
		return nil, err
	}
	for _, chunk := range f.chunks {
		if err := onChunk(chunk); err != nil {
			return nil, err
		}
	}
	return c, nil
}

func (f *fakeProvider) Close() error { return nil }

func (f *fakeProvider) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}
