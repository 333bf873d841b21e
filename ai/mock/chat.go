package mock

import (
	"context"
	"fmt"
	"hash/fnv"
)

// MockChatModel is a test double for ai.ChatModel.
type MockChatModel struct {
	// GenerateFunc is called by Generate if set.
	// If nil, returns a deterministic canned answer derived from the prompt.
	GenerateFunc func(ctx context.Context, prompt string) (string, error)

	callCount int
}

// NewMockChatModel creates a mock chat model with default deterministic behavior.
func NewMockChatModel() *MockChatModel {
	return &MockChatModel{}
}

// Generate returns a canned answer keyed by the prompt hash, so identical
// prompts yield identical answers.
func (m *MockChatModel) Generate(ctx context.Context, prompt string) (string, error) {
	m.callCount++

	if m.GenerateFunc != nil {
		return m.GenerateFunc(ctx, prompt)
	}

	h := fnv.New32a()
	h.Write([]byte(prompt))
	return fmt.Sprintf("mock answer %08x", h.Sum32()), nil
}

// CallCount returns the number of times Generate was called.
func (m *MockChatModel) CallCount() int {
	return m.callCount
}
