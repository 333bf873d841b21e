package query

import (
	"fmt"
	"sync"
	"testing"

	"github.com/poiesic/recall/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionMemoryAppendAndHistory(t *testing.T) {
	sessions := NewSessionMemory()

	sessions.Append("s1", core.Turn{Speaker: core.SpeakerTypeHuman, Contents: "hello"})
	sessions.Append("s1", core.Turn{Speaker: core.SpeakerTypeAI, Contents: "hi"})

	history := sessions.History("s1")
	require.Len(t, history, 2)
	assert.Equal(t, "hello", history[0].Contents)
	assert.Equal(t, "hi", history[1].Contents)
	assert.False(t, history[0].Timestamp.IsZero(), "turns are stamped on append")
}

func TestSessionMemoryIsolation(t *testing.T) {
	sessions := NewSessionMemory()

	sessions.Append("s1", core.Turn{Speaker: core.SpeakerTypeHuman, Contents: "one"})
	sessions.Append("s2", core.Turn{Speaker: core.SpeakerTypeHuman, Contents: "two"})

	assert.Len(t, sessions.History("s1"), 1)
	assert.Len(t, sessions.History("s2"), 1)
	assert.Empty(t, sessions.History("unknown"))
}

func TestSessionMemoryHistoryIsCopy(t *testing.T) {
	sessions := NewSessionMemory()
	sessions.Append("s1", core.Turn{Speaker: core.SpeakerTypeHuman, Contents: "original"})

	history := sessions.History("s1")
	history[0].Contents = "mutated"

	assert.Equal(t, "original", sessions.History("s1")[0].Contents)
}

func TestSessionMemoryEndSession(t *testing.T) {
	sessions := NewSessionMemory()
	sessions.Append("s1", core.Turn{Speaker: core.SpeakerTypeHuman, Contents: "hello"})

	sessions.EndSession("s1")
	assert.Empty(t, sessions.History("s1"))

	// Ending an unknown session is a no-op.
	sessions.EndSession("never-existed")
}

func TestSessionMemoryEmptySessionID(t *testing.T) {
	sessions := NewSessionMemory()
	sessions.Append("", core.Turn{Speaker: core.SpeakerTypeHuman, Contents: "dropped"})
	assert.Empty(t, sessions.History(""))
}

func TestSessionMemoryConcurrent(t *testing.T) {
	sessions := NewSessionMemory()

	const writers = 8
	const perWriter = 50
	var wg sync.WaitGroup
	wg.Add(writers)
	for w := 0; w < writers; w++ {
		go func(w int) {
			defer wg.Done()
			session := fmt.Sprintf("s%d", w%2)
			for i := 0; i < perWriter; i++ {
				sessions.Append(session, core.Turn{Speaker: core.SpeakerTypeHuman, Contents: "x"})
				sessions.History(session)
			}
		}(w)
	}
	wg.Wait()

	total := len(sessions.History("s0")) + len(sessions.History("s1"))
	assert.Equal(t, writers*perWriter, total)
}
