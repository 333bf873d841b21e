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


package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/poiesic/recall"
	"github.com/poiesic/recall/ai"
	"github.com/poiesic/recall/core"
	"github.com/poiesic/recall/ingestion"
	"github.com/poiesic/recall/query"
	"github.com/urfave/cli/v2"
)

func main() {
	app := &cli.App{
		Name:  "recall",
		Usage: "Retrieval-augmented document memory for agents",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
			},
		},
		Before: setupLogger,
		Commands: []*cli.Command{
			{
				Name:      "ingest",
				Usage:     "Ingest documents into a scope and wait for the outcome",
				ArgsUsage: "FILE [FILE...]",
				Action:    ingestCommand,
				Flags: append(serviceFlags(),
					&cli.DurationFlag{
						Name:  "poll-interval",
						Usage: "Interval between task status polls",
						Value: 250 * time.Millisecond,
					},
				),
			},
			{
				Name:      "query",
				Usage:     "Answer a question from a scope's documents",
				ArgsUsage: "QUESTION",
				Action:    queryCommand,
				Flags: append(serviceFlags(),
					&cli.StringFlag{
						Name:  "session",
						Usage: "Session id for conversation history",
					},
					&cli.BoolFlag{
						Name:  "show-context",
						Usage: "Print the retrieved chunks with their scores",
					},
				),
			},
			{
				Name:   "list",
				Usage:  "List the documents stored in a scope",
				Action: listCommand,
				Flags:  serviceFlags(),
			},
			{
				Name:      "delete",
				Usage:     "Delete a document from a scope",
				ArgsUsage: "DOCUMENT_ID",
				Action:    deleteCommand,
				Flags:     serviceFlags(),
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

// serviceFlags are the flags shared by every command that opens the service.
func serviceFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:     "db",
			Aliases:  []string{"d"},
			Usage:    "Path to BadgerDB database directory",
			Required: true,
		},
		&cli.StringFlag{
			Name:     "scope",
			Aliases:  []string{"s"},
			Usage:    "Scope (agent) id",
			Required: true,
		},
		&cli.StringFlag{
			Name:  "host",
			Usage: "OpenAI-compatible service host URL for embeddings and chat",
			Value: "http://localhost:11434/v1",
		},
		&cli.StringFlag{
			Name:  "embedding-model",
			Usage: "Embedding model name",
			Value: "embeddinggemma",
		},
		&cli.StringFlag{
			Name:  "chat-model",
			Usage: "Chat model name",
			Value: "qwen2.5:3b",
		},
		&cli.IntFlag{
			Name:  "embedding-dim",
			Usage: "Embedding dimensionality of the deployment",
			Value: 768,
		},
		&cli.IntFlag{
			Name:  "chunk-size",
			Usage: "Chunk size in runes",
			Value: 1000,
		},
		&cli.IntFlag{
			Name:  "chunk-overlap",
			Usage: "Chunk overlap in runes",
			Value: 100,
		},
		&cli.IntFlag{
			Name:  "top-n",
			Usage: "Number of chunks retrieved per query",
			Value: 3,
		},
		&cli.IntFlag{
			Name:  "history-window",
			Usage: "Maximum recent turns included in prompts",
			Value: 10,
		},
		&cli.IntFlag{
			Name:  "history-budget",
			Usage: "Rune budget for prompt history",
			Value: 4000,
		},
		&cli.DurationFlag{
			Name:  "call-timeout",
			Usage: "Per-call timeout for embedding, store and chat calls",
			Value: 60 * time.Second,
		},
		&cli.IntFlag{
			Name:  "max-retries",
			Usage: "Maximum retry attempts for transient failures",
			Value: 3,
		},
		&cli.DurationFlag{
			Name:  "retry-delay",
			Usage: "Base delay for exponential backoff",
			Value: 500 * time.Millisecond,
		},
		&cli.IntFlag{
			Name:  "pool-size",
			Usage: "Ingestion worker pool size (0 = half the CPUs)",
		},
	}
}

func openService(c *cli.Context) (*recall.Service, error) {
	aiConfig := ai.NewConfig(
		ai.WithHost(c.String("host")),
		ai.WithEmbeddingModel(c.String("embedding-model")),
		ai.WithChatModel(c.String("chat-model")),
		ai.WithEmbeddingDim(c.Int("embedding-dim")),
	)
	if err := aiConfig.Validate(); err != nil {
		return nil, fmt.Errorf("invalid AI configuration: %w", err)
	}

	opts := []recall.ServiceOption{
		recall.WithAIConfig(aiConfig),
		recall.WithChunking(c.Int("chunk-size"), c.Int("chunk-overlap")),
		recall.WithTopN(c.Int("top-n")),
		recall.WithHistoryWindow(c.Int("history-window"), c.Int("history-budget")),
		recall.WithCallTimeout(c.Duration("call-timeout")),
		recall.WithRetry(c.Int("max-retries"), c.Duration("retry-delay")),
	}
	if c.Int("pool-size") > 0 {
		opts = append(opts, recall.WithPoolSize(c.Int("pool-size")))
	}

	return recall.NewService(c.String("db"), opts...)
}

func ingestCommand(c *cli.Context) error {
	if c.NArg() == 0 {
		return fmt.Errorf("at least one file is required")
	}

	service, err := openService(c)
	if err != nil {
		return fmt.Errorf("failed to open service: %w", err)
	}
	defer service.Close()

	ctx := context.Background()
	scope := c.String("scope")

	taskIDs := make([]string, 0, c.NArg())
	for _, path := range c.Args().Slice() {
		file, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("failed to open %s: %w", path, err)
		}

		task, err := service.Submit(ctx, &ingestion.Upload{
			Filename: filepath.Base(path),
			ScopeId:  scope,
			Data:     file,
		})
		file.Close()
		if err != nil {
			return fmt.Errorf("failed to submit %s: %w", path, err)
		}

		fmt.Fprintf(os.Stderr, "queued %s as task %s\n", path, task.Id)
		taskIDs = append(taskIDs, task.Id)
	}

	// Poll until every task is terminal; the registry lives in this process.
	interval := c.Duration("poll-interval")
	failed := 0
	for _, taskID := range taskIDs {
		task, err := waitForTask(service, taskID, interval)
		if err != nil {
			return err
		}
		switch task.Status {
		case core.TaskComplete:
			fmt.Printf("%s\t%s\tdocument %016x\n", task.Filename, task.Status, uint64(task.DocumentId))
		default:
			failed++
			fmt.Printf("%s\t%s\t%s\n", task.Filename, task.Status, task.Message)
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d documents not ingested", failed, len(taskIDs))
	}
	return nil
}

func waitForTask(service *recall.Service, taskID string, interval time.Duration) (*core.IngestionTask, error) {
	for {
		task, err := service.Task(taskID)
		if err != nil {
			return nil, fmt.Errorf("failed to poll task %s: %w", taskID, err)
		}
		if task.Status.Terminal() {
			return task, nil
		}
		time.Sleep(interval)
	}
}

func queryCommand(c *cli.Context) error {
	if c.NArg() == 0 {
		return fmt.Errorf("a question is required")
	}

	service, err := openService(c)
	if err != nil {
		return fmt.Errorf("failed to open service: %w", err)
	}
	defer service.Close()

	answer, err := service.Answer(context.Background(), &query.Request{
		Text:      strings.Join(c.Args().Slice(), " "),
		ScopeId:   c.String("scope"),
		SessionId: c.String("session"),
	})
	if err != nil {
		return fmt.Errorf("query failed: %w", err)
	}

	if c.Bool("show-context") {
		for i, sc := range answer.Retrieved {
			fmt.Fprintf(os.Stderr, "[%d] score %.4f document %016x ordinal %d\n",
				i+1, sc.Score, uint64(sc.Chunk.DocumentId), sc.Chunk.Ordinal)
		}
		fmt.Fprintln(os.Stderr)
	}

	fmt.Println(answer.Text)
	return nil
}

func listCommand(c *cli.Context) error {
	service, err := openService(c)
	if err != nil {
		return fmt.Errorf("failed to open service: %w", err)
	}
	defer service.Close()

	docs, err := service.Documents(context.Background(), c.String("scope"))
	if err != nil {
		return fmt.Errorf("failed to list documents: %w", err)
	}

	for _, doc := range docs {
		fmt.Printf("%016x\t%s\t%d bytes\t%s\n",
			uint64(doc.Id), doc.Name, doc.SizeBytes, doc.InsertedAt.Format(time.RFC3339))
	}
	return nil
}

func deleteCommand(c *cli.Context) error {
	if c.NArg() != 1 {
		return fmt.Errorf("exactly one document id is required")
	}

	var id uint64
	if _, err := fmt.Sscanf(c.Args().First(), "%x", &id); err != nil {
		return fmt.Errorf("invalid document id %q: %w", c.Args().First(), err)
	}

	service, err := openService(c)
	if err != nil {
		return fmt.Errorf("failed to open service: %w", err)
	}
	defer service.Close()

	if err := service.DeleteDocument(context.Background(), c.String("scope"), core.ID(id)); err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}
	return nil
}

func setupLogger(c *cli.Context) error {
	// Get log level from flag and normalize to lowercase
	levelStr := strings.ToLower(c.String("log-level"))

	// Map string to slog.Level
	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", levelStr)
	}

	// Configure slog with the specified level
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	return nil
}
