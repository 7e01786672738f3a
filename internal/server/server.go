// Package server exposes the document pipeline and chat sessions over HTTP.
package server

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"

	"pdf-rag-chat/internal/llm"
	"pdf-rag-chat/internal/models"
)

// Indexer builds the vector index from a PDF and retrieves ranked context.
type Indexer interface {
	BuildIndex(ctx context.Context, path string) (int, error)
	Retrieve(ctx context.Context, query string, topK int) (string, error)
}

// SessionStore persists chat sessions.
type SessionStore interface {
	FindBySessionID(ctx context.Context, sessionID string) (*models.ChatSession, error)
	Create(ctx context.Context, sessionID, model, title string, first models.MessagePair) error
	AppendTurn(ctx context.Context, sessionID string, pair models.MessagePair) error
	List(ctx context.Context) ([]models.ChatSummary, error)
	Get(ctx context.Context, id string) (*models.ChatSession, error)
	Save(ctx context.Context, sessionID string, history []models.MessagePair) error
	Delete(ctx context.Context, id string) error
}

// Server holds the HTTP handlers and their collaborators.
type Server struct {
	engine   *gin.Engine
	pipeline Indexer
	llm      llm.Completer
	sessions SessionStore

	dataDir      string
	titleTimeout time.Duration
}

// Config configures the HTTP server.
type Config struct {
	DataDir      string
	TitleTimeout time.Duration
}

// New builds the server and registers its routes.
func New(pipeline Indexer, completer llm.Completer, sessions SessionStore, cfg Config) *Server {
	if cfg.TitleTimeout == 0 {
		cfg.TitleTimeout = 30 * time.Second
	}

	s := &Server{
		engine:       gin.Default(),
		pipeline:     pipeline,
		llm:          completer,
		sessions:     sessions,
		dataDir:      cfg.DataDir,
		titleTimeout: cfg.TitleTimeout,
	}

	s.engine.POST("/upload-pdf", s.uploadPDF)
	s.engine.POST("/build-db", s.buildDB)
	s.engine.GET("/query", s.query)
	s.engine.POST("/chat", s.chat)
	s.engine.GET("/chat-history", s.chatHistory)
	s.engine.GET("/chat/:id", s.getChat)
	s.engine.POST("/save-chat", s.saveChat)
	s.engine.DELETE("/delete-chat/:id", s.deleteChat)

	return s
}

// Engine exposes the router, mainly for tests.
func (s *Server) Engine() *gin.Engine {
	return s.engine
}

// Run serves HTTP on the given address until the listener fails.
func (s *Server) Run(addr string) error {
	return s.engine.Run(addr)
}
