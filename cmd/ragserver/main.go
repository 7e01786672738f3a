// Command ragserver serves the PDF question-answering API: PDF upload,
// vector database builds, retrieval-augmented queries and chat sessions.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"

	"pdf-rag-chat/internal/chunker"
	"pdf-rag-chat/internal/config"
	"pdf-rag-chat/internal/embedding"
	"pdf-rag-chat/internal/extractor"
	"pdf-rag-chat/internal/llm"
	"pdf-rag-chat/internal/rag"
	"pdf-rag-chat/internal/server"
	"pdf-rag-chat/internal/session"
	"pdf-rag-chat/internal/vectorindex"
)

func main() {
	configPath := flag.String("config", "", "path to YAML config file (defaults apply when omitted)")
	flag.Parse()

	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Warnf("could not load .env: %v", err)
	}

	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	if err := run(cfg); err != nil {
		log.Fatalf("ragserver: %v", err)
	}
}

func run(cfg config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := os.MkdirAll(cfg.Server.DataDir, 0o755); err != nil {
		return fmt.Errorf("failed to create data dir: %w", err)
	}

	embedder, err := newEmbedder(cfg.Embedder)
	if err != nil {
		return err
	}
	index, err := newIndex(ctx, cfg.Index)
	if err != nil {
		return err
	}

	ch, err := chunker.New(cfg.Pipeline.ChunkSize, cfg.Pipeline.Overlap)
	if err != nil {
		return err
	}
	pipeline := rag.New(extractor.New(), ch, embedder, index, cfg.Pipeline.Concurrency)

	completer := llm.NewOpenAI(llm.OpenAIConfig{
		BaseURL: cfg.LLM.BaseURL,
		APIKey:  config.FromEnv(cfg.LLM.APIKeyEnv),
		Model:   cfg.LLM.Model,
		Timeout: cfg.LLM.Timeout,
	})

	mongoURI := config.FromEnv(cfg.Mongo.URIEnv)
	if mongoURI == "" {
		mongoURI = "mongodb://localhost:27017"
	}
	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	sessions, err := session.NewStore(connectCtx, mongoURI, cfg.Mongo.Database, cfg.Mongo.Collection)
	cancel()
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := sessions.Close(closeCtx); err != nil {
			log.Warnf("mongodb disconnect: %v", err)
		}
	}()

	srv := server.New(pipeline, completer, sessions, server.Config{
		DataDir:      cfg.Server.DataDir,
		TitleTimeout: cfg.LLM.TitleTimeout,
	})

	httpSrv := &http.Server{
		Addr:    cfg.Server.Addr,
		Handler: srv.Engine(),
	}

	errCh := make(chan error, 1)
	go func() {
		log.Infof("listening on %s (index backend: %s)", cfg.Server.Addr, cfg.Index.Type)
		if err := httpSrv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return httpSrv.Shutdown(shutdownCtx)
}

func newEmbedder(cfg config.EmbedderConfig) (embedding.Embedder, error) {
	switch cfg.Type {
	case "", "openai":
		return embedding.NewOpenAI(embedding.OpenAIConfig{
			BaseURL: cfg.BaseURL,
			APIKey:  config.FromEnv(cfg.APIKeyEnv),
			Model:   cfg.Model,
			Timeout: cfg.Timeout,
		}), nil
	case "ollama":
		return embedding.NewOllama(cfg.BaseURL, cfg.Model)
	default:
		return nil, fmt.Errorf("unknown embedder type %q", cfg.Type)
	}
}

func newIndex(ctx context.Context, cfg config.IndexConfig) (vectorindex.Index, error) {
	switch cfg.Type {
	case "", "memory":
		return vectorindex.NewMemory(), nil
	case "qdrant":
		return vectorindex.NewQdrant(vectorindex.QdrantConfig{
			URL:        cfg.Qdrant.BaseURL,
			APIKey:     config.FromEnv(cfg.Qdrant.APIKeyEnv),
			Collection: cfg.Qdrant.Collection,
		}), nil
	case "postgres":
		connStr := config.FromEnv(cfg.Postgres.URLEnv)
		if connStr == "" {
			return nil, fmt.Errorf("postgres index selected but %s is not set", cfg.Postgres.URLEnv)
		}
		return vectorindex.NewPostgres(ctx, connStr)
	default:
		return nil, fmt.Errorf("unknown index type %q", cfg.Type)
	}
}
