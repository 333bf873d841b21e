package query

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/poiesic/recall/ai/mock"
	"github.com/poiesic/recall/core"
	"github.com/poiesic/recall/prompt"
	"github.com/poiesic/recall/retrieval"
	"github.com/poiesic/recall/storage"
	"github.com/poiesic/recall/storage/badger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testDim = 8

func setupTestOrchestrator(t *testing.T, chat *mock.MockChatModel, opts ...Option) (*Orchestrator, storage.DocumentRepository) {
	repo, backend, err := badger.NewMemoryRepository()
	require.NoError(t, err)
	t.Cleanup(func() {
		repo.Close()
		backend.Close()
	})

	embedder := mock.NewMockEmbedder(testDim)
	retriever, err := retrieval.NewEngine(repo, embedder, retrieval.WithEmbeddingDim(testDim))
	require.NoError(t, err)

	assembler, err := prompt.NewAssembler("Answer from context.")
	require.NoError(t, err)

	orchestrator, err := NewOrchestrator(retriever, assembler, chat, opts...)
	require.NoError(t, err)
	return orchestrator, repo
}

func storeDocument(t *testing.T, repo storage.DocumentRepository, scopeID, name string, texts ...string) {
	t.Helper()
	docID := core.DocumentID(scopeID, name)
	doc := &core.Document{Id: docID, ScopeId: scopeID, Name: name}
	for i, text := range texts {
		doc.Chunks = append(doc.Chunks, core.Chunk{
			Id:         core.ChunkID(docID, i),
			DocumentId: docID,
			Ordinal:    i,
			Text:       text,
			Vector:     mock.DeterministicVector(text, testDim),
		})
	}
	require.NoError(t, repo.PutDocument(context.Background(), doc))
}

func TestNewOrchestrator(t *testing.T) {
	t.Run("nil retriever", func(t *testing.T) {
		assembler, err := prompt.NewAssembler("")
		require.NoError(t, err)
		_, err = NewOrchestrator(nil, assembler, mock.NewMockChatModel())
		assert.Equal(t, ErrRetrieverRequired, err)
	})

	t.Run("nil assembler and chat", func(t *testing.T) {
		repo, backend, err := badger.NewMemoryRepository()
		require.NoError(t, err)
		defer func() { repo.Close(); backend.Close() }()

		retriever, err := retrieval.NewEngine(repo, mock.NewMockEmbedder(testDim))
		require.NoError(t, err)

		_, err = NewOrchestrator(retriever, nil, mock.NewMockChatModel())
		assert.Equal(t, ErrAssemblerRequired, err)

		assembler, err := prompt.NewAssembler("")
		require.NoError(t, err)
		_, err = NewOrchestrator(retriever, assembler, nil)
		assert.Equal(t, ErrChatModelRequired, err)
	})
}

func TestAnswerTextQuery(t *testing.T) {
	chat := mock.NewMockChatModel()
	var seenPrompt string
	chat.GenerateFunc = func(ctx context.Context, prompt string) (string, error) {
		seenPrompt = prompt
		return "  the answer  \n", nil
	}

	orchestrator, repo := setupTestOrchestrator(t, chat)
	storeDocument(t, repo, "agent-1", "notes.txt", "Foxes are quick.", "Dogs are lazy.")

	answer, err := orchestrator.Answer(context.Background(), &Request{
		Text:    "Foxes are quick.",
		ScopeId: "agent-1",
	})
	require.NoError(t, err)

	assert.Equal(t, "the answer", answer.Text, "raw model output is trimmed")
	require.NotEmpty(t, answer.Retrieved)
	assert.Equal(t, "Foxes are quick.", answer.Retrieved[0].Chunk.Text)

	// The prompt fed to the model carries the retrieved context and query.
	assert.Contains(t, seenPrompt, "Foxes are quick.")
	assert.Contains(t, seenPrompt, "Query:\nFoxes are quick.")
	assert.Equal(t, 1, chat.CallCount())
}

func TestAnswerEmptyScopeStillAnswers(t *testing.T) {
	chat := mock.NewMockChatModel()
	orchestrator, _ := setupTestOrchestrator(t, chat)

	answer, err := orchestrator.Answer(context.Background(), &Request{
		Text:    "anything",
		ScopeId: "empty-scope",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, answer.Text)
	assert.Empty(t, answer.Retrieved)
}

func TestAnswerValidation(t *testing.T) {
	chat := mock.NewMockChatModel()
	orchestrator, _ := setupTestOrchestrator(t, chat)
	ctx := context.Background()

	_, err := orchestrator.Answer(ctx, nil)
	assert.ErrorIs(t, err, core.ErrValidation)

	_, err = orchestrator.Answer(ctx, &Request{Text: "q"})
	assert.ErrorIs(t, err, core.ErrValidation)

	_, err = orchestrator.Answer(ctx, &Request{ScopeId: "agent-1"})
	assert.ErrorIs(t, err, core.ErrValidation)
}

func TestAnswerAudioWithoutTranscriber(t *testing.T) {
	chat := mock.NewMockChatModel()
	orchestrator, _ := setupTestOrchestrator(t, chat)

	_, err := orchestrator.Answer(context.Background(), &Request{
		Audio:   []byte{1, 2, 3},
		ScopeId: "agent-1",
	})
	assert.ErrorIs(t, err, core.ErrValidation)
}

func TestAnswerAudioQuery(t *testing.T) {
	chat := mock.NewMockChatModel()
	transcriber := mock.NewMockTranscriber("Foxes are quick.")
	orchestrator, repo := setupTestOrchestrator(t, chat, WithTranscriber(transcriber))
	storeDocument(t, repo, "agent-1", "notes.txt", "Foxes are quick.")

	answer, err := orchestrator.Answer(context.Background(), &Request{
		Audio:   []byte{1, 2, 3},
		ScopeId: "agent-1",
	})
	require.NoError(t, err)

	assert.Equal(t, 1, transcriber.CallCount())
	require.NotEmpty(t, answer.Retrieved)
	assert.Equal(t, "Foxes are quick.", answer.Retrieved[0].Chunk.Text)
}

func TestAnswerTranscriberFailure(t *testing.T) {
	chat := mock.NewMockChatModel()
	transcriber := mock.NewMockTranscriber("")
	transcriber.TranscribeFunc = func(ctx context.Context, audio []byte) (string, error) {
		return "", errors.New("transcription backend down")
	}
	orchestrator, _ := setupTestOrchestrator(t, chat, WithTranscriber(transcriber))

	_, err := orchestrator.Answer(context.Background(), &Request{
		Audio:   []byte{1, 2, 3},
		ScopeId: "agent-1",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "transcription")
}

func TestAnswerEmptyTranscript(t *testing.T) {
	chat := mock.NewMockChatModel()
	transcriber := mock.NewMockTranscriber("   ")
	orchestrator, _ := setupTestOrchestrator(t, chat, WithTranscriber(transcriber))

	_, err := orchestrator.Answer(context.Background(), &Request{
		Audio:   []byte{1, 2, 3},
		ScopeId: "agent-1",
	})
	assert.ErrorIs(t, err, core.ErrEmptyContent)
}

func TestAnswerChatFailure(t *testing.T) {
	chat := mock.NewMockChatModel()
	chat.GenerateFunc = func(ctx context.Context, prompt string) (string, error) {
		return "", errors.New("model unavailable")
	}
	orchestrator, _ := setupTestOrchestrator(t, chat)

	_, err := orchestrator.Answer(context.Background(), &Request{
		Text:    "q",
		ScopeId: "agent-1",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "chat model")
}

func TestAnswerChatTimeout(t *testing.T) {
	chat := mock.NewMockChatModel()
	chat.GenerateFunc = func(ctx context.Context, prompt string) (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	}
	orchestrator, _ := setupTestOrchestrator(t, chat, WithCallTimeout(20*time.Millisecond))

	_, err := orchestrator.Answer(context.Background(), &Request{
		Text:    "q",
		ScopeId: "agent-1",
	})
	assert.ErrorIs(t, err, core.ErrTimeout)
}

func TestAnswerSessionBookkeeping(t *testing.T) {
	chat := mock.NewMockChatModel()
	chat.GenerateFunc = func(ctx context.Context, prompt string) (string, error) {
		return "reply", nil
	}
	orchestrator, _ := setupTestOrchestrator(t, chat)

	_, err := orchestrator.Answer(context.Background(), &Request{
		Text:      "first question",
		ScopeId:   "agent-1",
		SessionId: "s1",
	})
	require.NoError(t, err)

	history := orchestrator.Sessions().History("s1")
	require.Len(t, history, 2)
	assert.Equal(t, core.SpeakerTypeHuman, history[0].Speaker)
	assert.Equal(t, "first question", history[0].Contents)
	assert.Equal(t, core.SpeakerTypeAI, history[1].Speaker)
	assert.Equal(t, "reply", history[1].Contents)

	// Without a session id, nothing is recorded.
	_, err = orchestrator.Answer(context.Background(), &Request{
		Text:    "anonymous question",
		ScopeId: "agent-1",
	})
	require.NoError(t, err)
	assert.Len(t, orchestrator.Sessions().History("s1"), 2)
}

func TestAnswerFailureNotRecordedInSession(t *testing.T) {
	chat := mock.NewMockChatModel()
	chat.GenerateFunc = func(ctx context.Context, prompt string) (string, error) {
		return "", errors.New("model unavailable")
	}
	orchestrator, _ := setupTestOrchestrator(t, chat)

	_, err := orchestrator.Answer(context.Background(), &Request{
		Text:      "question",
		ScopeId:   "agent-1",
		SessionId: "s1",
	})
	require.Error(t, err)
	assert.Empty(t, orchestrator.Sessions().History("s1"), "failed exchanges must not pollute the session")
}

func TestAnswerHistoryFlowsIntoPrompt(t *testing.T) {
	chat := mock.NewMockChatModel()
	var seenPrompt string
	chat.GenerateFunc = func(ctx context.Context, prompt string) (string, error) {
		seenPrompt = prompt
		return "reply", nil
	}
	orchestrator, _ := setupTestOrchestrator(t, chat)

	orchestrator.Sessions().Append("s1", core.Turn{Speaker: core.SpeakerTypeHuman, Contents: "earlier question"})
	orchestrator.Sessions().Append("s1", core.Turn{Speaker: core.SpeakerTypeAI, Contents: "earlier reply"})

	_, err := orchestrator.Answer(context.Background(), &Request{
		Text:      "follow-up",
		ScopeId:   "agent-1",
		SessionId: "s1",
	})
	require.NoError(t, err)

	assert.Contains(t, seenPrompt, "earlier question")
	assert.Contains(t, seenPrompt, "earlier reply")
}

func TestAnswerSignalsFlowIntoPrompt(t *testing.T) {
	chat := mock.NewMockChatModel()
	var seenPrompt string
	chat.GenerateFunc = func(ctx context.Context, prompt string) (string, error) {
		seenPrompt = prompt
		return "reply", nil
	}
	orchestrator, _ := setupTestOrchestrator(t, chat)

	_, err := orchestrator.Answer(context.Background(), &Request{
		Text:    "q",
		ScopeId: "agent-1",
		Signals: &prompt.Signals{Mode: "focused", Progress: "step 1"},
	})
	require.NoError(t, err)

	assert.Contains(t, seenPrompt, "mode=focused")
	assert.Contains(t, seenPrompt, "progress=step 1")
}
