package mock

import "context"

// MockTranscriber is a test double for ai.Transcriber.
type MockTranscriber struct {
	// TranscribeFunc is called by Transcribe if set.
	// If nil, returns Transcript.
	TranscribeFunc func(ctx context.Context, audio []byte) (string, error)

	// Transcript is the default transcription returned for any audio payload.
	Transcript string

	callCount int
}

// NewMockTranscriber creates a mock transcriber returning the given transcript.
func NewMockTranscriber(transcript string) *MockTranscriber {
	return &MockTranscriber{Transcript: transcript}
}

// Transcribe returns the configured transcript.
func (m *MockTranscriber) Transcribe(ctx context.Context, audio []byte) (string, error) {
	m.callCount++

	if m.TranscribeFunc != nil {
		return m.TranscribeFunc(ctx, audio)
	}
	return m.Transcript, nil
}

// CallCount returns the number of times Transcribe was called.
func (m *MockTranscriber) CallCount() int {
	return m.callCount
}
