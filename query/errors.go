package query

import "errors"

var (
	// ErrRetrieverRequired is returned when a retrieval engine is not provided.
	ErrRetrieverRequired = errors.New("retrieval engine required")

	// ErrAssemblerRequired is returned when a prompt assembler is not provided.
	ErrAssemblerRequired = errors.New("prompt assembler required")

	// ErrChatModelRequired is returned when a chat model is not provided.
	ErrChatModelRequired = errors.New("chat model required")
)
