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


package prompt

import (
	"fmt"
	"strings"

	"github.com/poiesic/recall/core"
)

// Signals carries auxiliary context rendered into the prompt alongside the
// query. Empty fields are omitted from the rendering.
type Signals struct {
	UserName string
	Mode     string
	Progress string
	Actions  []string
}

func (s *Signals) empty() bool {
	return s == nil || (s.UserName == "" && s.Mode == "" && s.Progress == "" && len(s.Actions) == 0)
}

// render serializes the signals in a fixed field order so identical inputs
// always produce identical bytes.
func (s *Signals) render(b *strings.Builder) {
	if s.UserName != "" {
		fmt.Fprintf(b, "user=%s\n", s.UserName)
	}
	if s.Mode != "" {
		fmt.Fprintf(b, "mode=%s\n", s.Mode)
	}
	if s.Progress != "" {
		fmt.Fprintf(b, "progress=%s\n", s.Progress)
	}
	if len(s.Actions) > 0 {
		fmt.Fprintf(b, "actions=%s\n", strings.Join(s.Actions, ","))
	}
}

// Assembler builds chat prompts from retrieved context, session history and
// auxiliary signals. Assembly is a pure function of the assembler's
// configuration and the call's inputs: identical inputs produce byte-identical
// prompts.
type Assembler struct {
	baseInstruction string
	historyWindow   int
	historyBudget   int
}

// Option configures an Assembler.
type Option func(*Assembler) error

// WithHistoryWindow sets the maximum number of recent turns included in the
// prompt. Default is 10.
func WithHistoryWindow(k int) Option {
	return func(a *Assembler) error {
		if k < 0 {
			return fmt.Errorf("%w: history window must be non-negative", core.ErrValidation)
		}
		a.historyWindow = k
		return nil
	}
}

// WithHistoryBudget sets the rune budget for the rendered history tail.
// Oldest turns are dropped first when the tail exceeds the budget.
// Default is 4000.
func WithHistoryBudget(runes int) Option {
	return func(a *Assembler) error {
		if runes < 0 {
			return fmt.Errorf("%w: history budget must be non-negative", core.ErrValidation)
		}
		a.historyBudget = runes
		return nil
	}
}

// NewAssembler creates a prompt assembler with the given base system
// instruction.
func NewAssembler(baseInstruction string, opts ...Option) (*Assembler, error) {
	a := &Assembler{
		baseInstruction: baseInstruction,
		historyWindow:   10,
		historyBudget:   4000,
	}
	for _, opt := range opts {
		if err := opt(a); err != nil {
			return nil, err
		}
	}
	return a, nil
}

// Assemble concatenates, in order: the base instruction, the retrieved chunks
// as numbered context excerpts in ranked order, a bounded tail of the session
// history, the auxiliary signals and the user query. Sections with no content
// are omitted entirely.
func (a *Assembler) Assemble(query string, results []*core.ScoredChunk, history []core.Turn, signals *Signals) string {
	var b strings.Builder

	if a.baseInstruction != "" {
		b.WriteString(a.baseInstruction)
		b.WriteString("\n\n")
	}

	if len(results) > 0 {
		b.WriteString("Context excerpts:\n")
		for i, sc := range results {
			fmt.Fprintf(&b, "[%d] (score %.4f) %s\n", i+1, sc.Score, sc.Chunk.Text)
		}
		b.WriteString("\n")
	}

	if tail := a.historyTail(history); len(tail) > 0 {
		b.WriteString("Conversation so far:\n")
		for _, turn := range tail {
			fmt.Fprintf(&b, "%s: %s\n", turn.Speaker, turn.Contents)
		}
		b.WriteString("\n")
	}

	if !signals.empty() {
		b.WriteString("Signals:\n")
		signals.render(&b)
		b.WriteString("\n")
	}

	b.WriteString("Query:\n")
	b.WriteString(query)

	return b.String()
}

// historyTail keeps the most recent historyWindow turns, then drops the
// oldest remaining turns while the tail's total rune count exceeds
// historyBudget.
func (a *Assembler) historyTail(history []core.Turn) []core.Turn {
	if a.historyWindow == 0 || len(history) == 0 {
		return nil
	}

	tail := history
	if len(tail) > a.historyWindow {
		tail = tail[len(tail)-a.historyWindow:]
	}

	total := 0
	for _, turn := range tail {
		total += len([]rune(turn.Contents))
	}
	for len(tail) > 0 && total > a.historyBudget {
		total -= len([]rune(tail[0].Contents))
		tail = tail[1:]
	}
	return tail
}
