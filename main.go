package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/devkaluri/rag-chat/api"
	"github.com/devkaluri/rag-chat/chat"
	"github.com/devkaluri/rag-chat/config"
	"github.com/devkaluri/rag-chat/database"
	"github.com/devkaluri/rag-chat/embeddings"
	"github.com/devkaluri/rag-chat/index"
	"github.com/devkaluri/rag-chat/ingest"
	"github.com/devkaluri/rag-chat/llm"
	"github.com/devkaluri/rag-chat/session"
)

func main() {
	logger := log.New(os.Stdout, "", log.LstdFlags)

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Fatalf("configuration: %v", err)
	}

	switch os.Args[1] {
	case "index":
		indexCmd(cfg, logger, os.Args[2:])
	case "serve":
		serveCmd(cfg, logger, os.Args[2:])
	case "ask":
		askCmd(cfg, logger, os.Args[2:])
	case "clear":
		clearCmd(cfg, logger, os.Args[2:])
	default:
		logger.Printf("unknown command: %s", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func indexCmd(cfg config.Config, logger *log.Logger, args []string) {
	flags := flag.NewFlagSet("index", flag.ExitOnError)
	dataDir := flags.String("dir", cfg.DataDir, "path to directory containing source documents")
	chunkSize := flags.Int("chunk-size", cfg.ChunkSize, "chunk size in characters")
	overlap := flags.Int("overlap", cfg.ChunkOverlap, "overlap between consecutive chunks in characters")
	if err := flags.Parse(args); err != nil {
		logger.Fatalf("parse index flags: %v", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	idx, cleanup, err := buildIndex(ctx, cfg, logger)
	if err != nil {
		logger.Fatalf("index setup: %v", err)
	}
	defer cleanup()

	embedder, err := buildEmbedder(cfg)
	if err != nil {
		logger.Fatalf("embedder setup: %v", err)
	}

	svc := ingest.NewService(embedder, idx, logger, *chunkSize, *overlap)
	logger.Printf("indexing documents from %s using %s/%s embeddings", *dataDir, strings.ToUpper(cfg.Embeddings.Provider), cfg.Embeddings.Model)

	count, err := svc.Rebuild(ctx, *dataDir)
	if err != nil {
		logger.Fatalf("indexing failed: %v", err)
	}
	logger.Printf("index rebuilt with %d chunks", count)
}

func serveCmd(cfg config.Config, logger *log.Logger, args []string) {
	flags := flag.NewFlagSet("serve", flag.ExitOnError)
	addr := flags.String("addr", cfg.HTTPAddr, "listen address for the HTTP server")
	if err := flags.Parse(args); err != nil {
		logger.Fatalf("parse serve flags: %v", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	idx, cleanup, err := buildIndex(ctx, cfg, logger)
	if err != nil {
		logger.Fatalf("index setup: %v", err)
	}
	defer cleanup()

	embedder, err := buildEmbedder(cfg)
	if err != nil {
		logger.Fatalf("embedder setup: %v", err)
	}

	llmClient, err := buildLLM(cfg)
	if err != nil {
		logger.Fatalf("llm setup: %v", err)
	}

	// The memory backend starts empty, so populate it from the data
	// directory before accepting traffic.
	if cfg.IndexBackend == config.BackendMemory {
		svc := ingest.NewService(embedder, idx, logger, cfg.ChunkSize, cfg.ChunkOverlap)
		if _, err := svc.Rebuild(ctx, cfg.DataDir); err != nil {
			logger.Fatalf("initial indexing failed: %v", err)
		}
	}

	svc := chat.NewService(
		chat.NewRetriever(embedder, idx, cfg.TopK),
		chat.NewAssembler(cfg.MaxPromptChars, cfg.HistoryLimit),
		llmClient,
		session.NewStore(cfg.HistoryLimit),
		logger,
		chat.Options{Reformulate: cfg.Reformulate},
	)

	server := &http.Server{
		Addr:              *addr,
		Handler:           api.New(svc, logger),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Printf("shutdown: %v", err)
		}
	}()

	logger.Printf("serving chat API on %s", *addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatalf("http server: %v", err)
	}
}

func askCmd(cfg config.Config, logger *log.Logger, args []string) {
	flags := flag.NewFlagSet("ask", flag.ExitOnError)
	question := flags.String("question", "", "question to ask")
	sessionID := flags.String("session", "cli", "session identifier for conversation history")
	if err := flags.Parse(args); err != nil {
		logger.Fatalf("parse ask flags: %v", err)
	}

	if strings.TrimSpace(*question) == "" {
		fmt.Print("Enter your question: ")
		scanner := bufio.NewScanner(os.Stdin)
		if scanner.Scan() {
			*question = scanner.Text()
		}
		if err := scanner.Err(); err != nil {
			logger.Fatalf("read question: %v", err)
		}
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	idx, cleanup, err := buildIndex(ctx, cfg, logger)
	if err != nil {
		logger.Fatalf("index setup: %v", err)
	}
	defer cleanup()

	embedder, err := buildEmbedder(cfg)
	if err != nil {
		logger.Fatalf("embedder setup: %v", err)
	}

	llmClient, err := buildLLM(cfg)
	if err != nil {
		logger.Fatalf("llm setup: %v", err)
	}

	svc := chat.NewService(
		chat.NewRetriever(embedder, idx, cfg.TopK),
		chat.NewAssembler(cfg.MaxPromptChars, cfg.HistoryLimit),
		llmClient,
		session.NewStore(cfg.HistoryLimit),
		logger,
		chat.Options{Reformulate: cfg.Reformulate},
	)

	res, err := svc.Ask(ctx, *question, *sessionID)
	if err != nil {
		logger.Fatalf("ask failed (%s): %v", res.FailedAt, err)
	}

	fmt.Println(res.Answer)
	if len(res.Sources) > 0 {
		fmt.Println()
		fmt.Println("Sources:")
		for i, source := range res.Sources {
			if source.Chunk.Page > 0 {
				fmt.Printf("%d. %s (page %d, score %.3f)\n", i+1, source.Chunk.Document, source.Chunk.Page, source.Score)
			} else {
				fmt.Printf("%d. %s (score %.3f)\n", i+1, source.Chunk.Document, source.Score)
			}
		}
	}
}

func clearCmd(cfg config.Config, logger *log.Logger, args []string) {
	flags := flag.NewFlagSet("clear", flag.ExitOnError)
	confirmed := flags.Bool("confirm", false, "skip confirmation prompt")
	if err := flags.Parse(args); err != nil {
		logger.Fatalf("parse clear flags: %v", err)
	}

	if !*confirmed {
		fmt.Print("This will permanently delete the vector index. Continue? [y/N]: ")
		scanner := bufio.NewScanner(os.Stdin)
		if !scanner.Scan() {
			if err := scanner.Err(); err != nil {
				logger.Fatalf("read confirmation: %v", err)
			}
			logger.Println("clear aborted")
			return
		}
		answer := strings.ToLower(strings.TrimSpace(scanner.Text()))
		if answer != "y" && answer != "yes" {
			logger.Println("clear aborted")
			return
		}
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	idx, cleanup, err := buildIndex(ctx, cfg, logger)
	if err != nil {
		logger.Fatalf("index setup: %v", err)
	}
	defer cleanup()

	if err := idx.Rebuild(ctx, nil); err != nil {
		logger.Fatalf("clear index: %v", err)
	}
	logger.Println("vector index cleared")
}

func buildIndex(ctx context.Context, cfg config.Config, logger *log.Logger) (index.Index, func(), error) {
	switch cfg.IndexBackend {
	case config.BackendPostgres:
		pool, err := database.NewPostgresPool(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, nil, fmt.Errorf("postgres connection: %w", err)
		}
		idx, err := index.NewPostgres(ctx, pool, cfg.Embeddings.Dimension, cfg.Embeddings.Model)
		if err != nil {
			pool.Close()
			return nil, nil, err
		}
		return idx, pool.Close, nil
	case config.BackendMemory:
		logger.Println("using in-memory index backend: contents are not persisted")
		idx, err := index.NewMemory(cfg.Embeddings.Dimension)
		if err != nil {
			return nil, nil, err
		}
		return idx, func() {}, nil
	default:
		return nil, nil, fmt.Errorf("unknown index backend: %s", cfg.IndexBackend)
	}
}

func buildEmbedder(cfg config.Config) (embeddings.Embedder, error) {
	embedder, err := embeddings.NewEmbedder(cfg)
	if err != nil {
		return nil, err
	}
	return embeddings.Resilient(embedder, cfg.MaxConcurrentCalls, cfg.CallTimeout, cfg.MaxAttempts), nil
}

func buildLLM(cfg config.Config) (llm.Client, error) {
	client, err := llm.NewClient(cfg)
	if err != nil {
		return nil, err
	}
	return llm.Resilient(client, cfg.MaxConcurrentCalls, cfg.CallTimeout, cfg.MaxAttempts), nil
}

func printUsage() {
	fmt.Println("Usage: rag-chat <command> [options]")
	fmt.Println("Commands:")
	fmt.Println("  index    Rebuild the vector index from a directory of documents (use --dir to override)")
	fmt.Println("  serve    Start the HTTP chat API and web UI")
	fmt.Println("  ask      Ask a single question from the command line")
	fmt.Println("  clear    Remove all indexed data")
}
