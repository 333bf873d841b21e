package recall

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/poiesic/recall/ai"
	"github.com/poiesic/recall/ai/mock"
	"github.com/poiesic/recall/core"
	"github.com/poiesic/recall/ingestion"
	"github.com/poiesic/recall/query"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testDim = 8

func setupTestService(t *testing.T, opts ...ServiceOption) *Service {
	opts = append([]ServiceOption{
		WithInMemory(),
		WithProvider(mock.NewMockProvider(testDim)),
		WithAIConfig(ai.NewConfig(ai.WithEmbeddingDim(testDim))),
		WithRetry(2, time.Millisecond),
	}, opts...)

	service, err := NewService("", opts...)
	require.NoError(t, err)
	t.Cleanup(func() { service.Close() })
	return service
}

func ingestText(t *testing.T, service *Service, scope, name, content string) *core.IngestionTask {
	t.Helper()
	task, err := service.Submit(context.Background(), &ingestion.Upload{
		Filename: name,
		ScopeId:  scope,
		Data:     strings.NewReader(content),
	})
	require.NoError(t, err)

	var done *core.IngestionTask
	require.Eventually(t, func() bool {
		got, err := service.Task(task.Id)
		if err != nil {
			return false
		}
		done = got
		return done.Status.Terminal()
	}, 5*time.Second, 10*time.Millisecond)
	return done
}

func TestServiceEndToEnd(t *testing.T) {
	service := setupTestService(t)
	ctx := context.Background()

	done := ingestText(t, service, "agent-1", "facts.txt",
		"The capital of France is Paris. The Seine flows through it.")
	require.Equal(t, core.TaskComplete, done.Status, "message: %s", done.Message)
	require.NotZero(t, done.DocumentId)

	docs, err := service.Documents(ctx, "agent-1")
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "facts.txt", docs[0].Name)

	answer, err := service.Answer(ctx, &query.Request{
		Text:    "What is the capital of France?",
		ScopeId: "agent-1",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, answer.Text)
	require.NotEmpty(t, answer.Retrieved)
	assert.Contains(t, answer.Retrieved[0].Chunk.Text, "Paris")
}

func TestServiceFailedIngestion(t *testing.T) {
	service := setupTestService(t)

	done := ingestText(t, service, "agent-1", "binary.bin", "opaque bytes")
	assert.Equal(t, core.TaskFailed, done.Status)
	assert.Contains(t, done.Message, "unsupported")
	assert.Zero(t, done.DocumentId)

	// The poll record is stable after the terminal transition.
	again, err := service.Task(done.Id)
	require.NoError(t, err)
	assert.Equal(t, done, again)
}

func TestServiceScopeIsolation(t *testing.T) {
	service := setupTestService(t)
	ctx := context.Background()

	require.Equal(t, core.TaskComplete,
		ingestText(t, service, "agent-1", "a.txt", "alpha scope content").Status)
	require.Equal(t, core.TaskComplete,
		ingestText(t, service, "agent-2", "b.txt", "beta scope content").Status)

	answer, err := service.Answer(ctx, &query.Request{Text: "content", ScopeId: "agent-1"})
	require.NoError(t, err)
	for _, sc := range answer.Retrieved {
		assert.Equal(t, core.DocumentID("agent-1", "a.txt"), sc.Chunk.DocumentId)
	}
}

func TestServiceDeleteDocument(t *testing.T) {
	service := setupTestService(t)
	ctx := context.Background()

	done := ingestText(t, service, "agent-1", "a.txt", "some content")
	require.Equal(t, core.TaskComplete, done.Status)

	require.NoError(t, service.DeleteDocument(ctx, "agent-1", done.DocumentId))

	docs, err := service.Documents(ctx, "agent-1")
	require.NoError(t, err)
	assert.Empty(t, docs)
}

func TestServiceSessions(t *testing.T) {
	service := setupTestService(t)
	ctx := context.Background()

	_, err := service.Answer(ctx, &query.Request{
		Text:      "hello",
		ScopeId:   "agent-1",
		SessionId: "s1",
	})
	require.NoError(t, err)

	history := service.Sessions().History("s1")
	require.Len(t, history, 2)
	assert.Equal(t, "hello", history[0].Contents)

	service.Sessions().EndSession("s1")
	assert.Empty(t, service.Sessions().History("s1"))
}

func TestServiceAudioQuery(t *testing.T) {
	transcriber := mock.NewMockTranscriber("What is in the notes?")
	service := setupTestService(t, WithTranscriber(transcriber))

	require.Equal(t, core.TaskComplete,
		ingestText(t, service, "agent-1", "notes.txt", "The notes mention a meeting on Friday.").Status)

	answer, err := service.Answer(context.Background(), &query.Request{
		Audio:   []byte{1, 2, 3},
		ScopeId: "agent-1",
	})
	require.NoError(t, err)
	assert.Equal(t, 1, transcriber.CallCount())
	assert.NotEmpty(t, answer.Text)
}

func TestServiceConfigKnobs(t *testing.T) {
	service := setupTestService(t,
		WithChunking(50, 10),
		WithTopN(2),
		WithHistoryWindow(4, 1000),
		WithCallTimeout(10*time.Second),
		WithPoolSize(2),
		WithBaseInstruction("Answer tersely."),
	)
	ctx := context.Background()

	content := strings.Repeat("word word word word word word word word. ", 20)
	done := ingestText(t, service, "agent-1", "long.txt", content)
	require.Equal(t, core.TaskComplete, done.Status)

	doc, err := service.Repository().GetDocument(ctx, "agent-1", done.DocumentId)
	require.NoError(t, err)
	assert.Greater(t, len(doc.Chunks), 1, "small chunk size must split the text")

	answer, err := service.Answer(ctx, &query.Request{Text: "word", ScopeId: "agent-1"})
	require.NoError(t, err)
	assert.LessOrEqual(t, len(answer.Retrieved), 2)
}
