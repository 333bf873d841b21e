// Package prompt assembles chat prompts from retrieved context, session
// history and auxiliary signals. Assembly is deterministic: identical inputs
// produce byte-identical prompts, so the assembler can be verified with
// golden values.
package prompt
