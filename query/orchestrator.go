// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package query

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/poiesic/recall/ai"
	"github.com/poiesic/recall/core"
	"github.com/poiesic/recall/prompt"
	"github.com/poiesic/recall/retrieval"
)

// Request is a query submission. Exactly one of Text and Audio must be set;
// audio requires a transcriber on the orchestrator. SessionId is optional:
// when set, the session's history is included in the prompt and the exchange
// is appended to it afterwards.
type Request struct {
	Text      string
	Audio     []byte
	ScopeId   string
	SessionId string
	Signals   *prompt.Signals
}

// Answer is the result of a query: the model's answer text plus the chunks
// that grounded it, in ranked order.
type Answer struct {
	Text      string
	Retrieved []*core.ScoredChunk
}

// Orchestrator drives a query end to end: optional transcription, retrieval,
// prompt assembly, chat model call and session bookkeeping. Unlike ingestion,
// failures surface synchronously to the caller as taxonomy errors.
type Orchestrator struct {
	retriever   *retrieval.Engine
	assembler   *prompt.Assembler
	chat        ai.ChatModel
	transcriber ai.Transcriber
	sessions    *SessionMemory
	topN        int
	callTimeout time.Duration
	logger      *slog.Logger
}

// Option configures an Orchestrator.
type Option func(*Orchestrator) error

// WithTranscriber enables audio queries through the given transcription
// capability. Without one, audio requests are rejected.
func WithTranscriber(transcriber ai.Transcriber) Option {
	return func(o *Orchestrator) error {
		o.transcriber = transcriber
		return nil
	}
}

// WithSessionMemory sets a shared session store.
// Default is a fresh in-memory store.
func WithSessionMemory(sessions *SessionMemory) Option {
	return func(o *Orchestrator) error {
		if sessions != nil {
			o.sessions = sessions
		}
		return nil
	}
}

// WithTopN sets how many chunks are retrieved per query.
// Default is 3.
func WithTopN(n int) Option {
	return func(o *Orchestrator) error {
		if n < 1 {
			return fmt.Errorf("%w: top-n must be positive", core.ErrValidation)
		}
		o.topN = n
		return nil
	}
}

// WithCallTimeout sets the per-call timeout for transcription and chat model
// calls. Default is 60s.
func WithCallTimeout(timeout time.Duration) Option {
	return func(o *Orchestrator) error {
		if timeout <= 0 {
			return fmt.Errorf("%w: call timeout must be positive", core.ErrValidation)
		}
		o.callTimeout = timeout
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) error {
		if logger == nil {
			logger = slog.Default()
		}
		o.logger = logger
		return nil
	}
}

// NewOrchestrator creates a query orchestrator.
func NewOrchestrator(
	retriever *retrieval.Engine,
	assembler *prompt.Assembler,
	chat ai.ChatModel,
	opts ...Option,
) (*Orchestrator, error) {
	if retriever == nil {
		return nil, ErrRetrieverRequired
	}
	if assembler == nil {
		return nil, ErrAssemblerRequired
	}
	if chat == nil {
		return nil, ErrChatModelRequired
	}

	o := &Orchestrator{
		retriever:   retriever,
		assembler:   assembler,
		chat:        chat,
		sessions:    NewSessionMemory(),
		topN:        3,
		callTimeout: 60 * time.Second,
		logger:      slog.Default().With("component", "query"),
	}
	for _, opt := range opts {
		if err := opt(o); err != nil {
			return nil, err
		}
	}
	return o, nil
}

// Sessions exposes the orchestrator's session store.
func (o *Orchestrator) Sessions() *SessionMemory {
	return o.sessions
}

// Answer resolves a query to an answer grounded in the scope's documents.
// Audio input is transcribed first; the resulting text is embedded, the
// scope's best-matching chunks are retrieved, a prompt is assembled with the
// session history and signals, and the chat model is invoked under a timeout.
// On success the exchange is appended to the session, if one was named.
func (o *Orchestrator) Answer(ctx context.Context, req *Request) (*Answer, error) {
	if req == nil || req.ScopeId == "" {
		return nil, fmt.Errorf("%w: scope id required", core.ErrValidation)
	}

	text, err := o.resolveText(ctx, req)
	if err != nil {
		return nil, err
	}

	retrieved, err := o.retriever.Retrieve(ctx, req.ScopeId, text, o.topN)
	if err != nil {
		return nil, err
	}

	var history []core.Turn
	if req.SessionId != "" {
		history = o.sessions.History(req.SessionId)
	}

	assembled := o.assembler.Assemble(text, retrieved, history, req.Signals)

	chatCtx, cancel := context.WithTimeout(ctx, o.callTimeout)
	defer cancel()

	raw, err := o.chat.Generate(chatCtx, assembled)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: chat model: %v", core.ErrTimeout, err)
		}
		return nil, fmt.Errorf("chat model: %w", err)
	}
	answer := strings.TrimSpace(raw)

	if req.SessionId != "" {
		o.sessions.Append(req.SessionId, core.Turn{Speaker: core.SpeakerTypeHuman, Contents: text})
		o.sessions.Append(req.SessionId, core.Turn{Speaker: core.SpeakerTypeAI, Contents: answer})
	}

	o.logger.Debug("answered query", "scopeID", req.ScopeId, "sessionID", req.SessionId, "retrieved", len(retrieved))
	return &Answer{Text: answer, Retrieved: retrieved}, nil
}

// resolveText returns the query text, transcribing audio when necessary.
func (o *Orchestrator) resolveText(ctx context.Context, req *Request) (string, error) {
	if req.Text != "" {
		return req.Text, nil
	}
	if len(req.Audio) == 0 {
		return "", fmt.Errorf("%w: query requires text or audio", core.ErrValidation)
	}
	if o.transcriber == nil {
		return "", fmt.Errorf("%w: audio queries require a transcriber", core.ErrValidation)
	}

	transcribeCtx, cancel := context.WithTimeout(ctx, o.callTimeout)
	defer cancel()

	text, err := o.transcriber.Transcribe(transcribeCtx, req.Audio)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return "", fmt.Errorf("%w: transcription: %v", core.ErrTimeout, err)
		}
		return "", fmt.Errorf("transcription: %w", err)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", fmt.Errorf("%w: transcription produced no text", core.ErrEmptyContent)
	}
	return text, nil
}
