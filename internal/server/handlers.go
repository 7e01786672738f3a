package server

import (
	"context"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"pdf-rag-chat/internal/llm"
	"pdf-rag-chat/internal/models"
)

// noContextMarker stands in for retrieved context when no index has been
// built yet, so chat stays usable before the first document upload.
const noContextMarker = "(no context available)"

func (s *Server) uploadPDF(c *gin.Context) {
	file, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing file field"})
		return
	}
	name := filepath.Base(file.Filename)
	if !strings.EqualFold(filepath.Ext(name), ".pdf") {
		c.JSON(http.StatusBadRequest, gin.H{"error": "only PDF files are accepted"})
		return
	}

	dst := filepath.Join(s.dataDir, name)
	if err := c.SaveUploadedFile(file, dst); err != nil {
		log.Errorf("failed to store upload %s: %v", name, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to store file"})
		return
	}

	log.Infof("stored upload %s (%d bytes)", dst, file.Size)
	c.JSON(http.StatusOK, gin.H{"filename": name, "path": dst})
}

func (s *Server) buildDB(c *gin.Context) {
	filename := c.Query("filename")
	if filename == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "filename query parameter is required"})
		return
	}

	path := filepath.Join(s.dataDir, filepath.Base(filename))
	if _, err := os.Stat(path); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "file not found: " + filename})
		return
	}

	count, err := s.pipeline.BuildIndex(c.Request.Context(), path)
	switch {
	case errors.Is(err, models.ErrEmptyDocument):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "document contains no extractable text"})
		return
	case errors.Is(err, models.ErrEmbeddingFailed):
		c.JSON(http.StatusBadGateway, gin.H{"error": "embedding service unavailable"})
		return
	case err != nil:
		log.Errorf("index build failed for %s: %v", path, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to build index"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"chunks": count, "message": "vector database built successfully"})
}

func (s *Server) query(c *gin.Context) {
	q := c.Query("q")
	if q == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "q query parameter is required"})
		return
	}
	topK := 0
	if raw := c.Query("top_k"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "top_k must be a positive integer"})
			return
		}
		topK = n
	}

	ctx := c.Request.Context()
	contextStr, err := s.pipeline.Retrieve(ctx, q, topK)
	switch {
	case errors.Is(err, models.ErrNoIndexBuilt):
		c.JSON(http.StatusConflict, gin.H{"error": "no index built yet, upload a PDF and build the database first"})
		return
	case errors.Is(err, models.ErrEmbeddingFailed):
		c.JSON(http.StatusBadGateway, gin.H{"error": "embedding service unavailable"})
		return
	case err != nil:
		log.Errorf("retrieval failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "retrieval failed"})
		return
	}

	answer, err := s.llm.Complete(ctx, "", llm.BuildPrompt(contextStr, q))
	if err != nil {
		log.Errorf("answer generation failed: %v", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "answer generation failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"answer": answer, "context": contextStr})
}

type chatRequest struct {
	SessionID string `json:"session_id"`
	Query     string `json:"query"`
	Model     string `json:"model"`
}

func (s *Server) chat(c *gin.Context) {
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if req.SessionID == "" || req.Query == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "session_id and query are required"})
		return
	}

	ctx := c.Request.Context()
	contextStr, err := s.pipeline.Retrieve(ctx, req.Query, 0)
	switch {
	case errors.Is(err, models.ErrNoIndexBuilt):
		contextStr = noContextMarker
	case errors.Is(err, models.ErrEmbeddingFailed):
		c.JSON(http.StatusBadGateway, gin.H{"error": "embedding service unavailable"})
		return
	case err != nil:
		log.Errorf("retrieval failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "retrieval failed"})
		return
	}

	answer, err := s.llm.Complete(ctx, req.Model, llm.BuildPrompt(contextStr, req.Query))
	if err != nil {
		log.Errorf("answer generation failed: %v", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "answer generation failed"})
		return
	}

	pair := models.MessagePair{Question: req.Query, Answer: answer}
	if err := s.recordTurn(ctx, req, pair); err != nil {
		log.Errorf("failed to persist chat turn: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to persist chat turn"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"answer": answer, "session_id": req.SessionID})
}

// recordTurn appends the turn to an existing session, or creates the session
// with a generated title on the first turn.
func (s *Server) recordTurn(ctx context.Context, req chatRequest, pair models.MessagePair) error {
	_, err := s.sessions.FindBySessionID(ctx, req.SessionID)
	if errors.Is(err, models.ErrSessionNotFound) {
		return s.sessions.Create(ctx, req.SessionID, req.Model, s.generateTitle(ctx, req.Query), pair)
	}
	if err != nil {
		return err
	}
	return s.sessions.AppendTurn(ctx, req.SessionID, pair)
}

// generateTitle asks the LLM for a short session title. Title generation is
// best-effort: any failure falls back to "New Chat".
func (s *Server) generateTitle(ctx context.Context, question string) string {
	tctx, cancel := context.WithTimeout(ctx, s.titleTimeout)
	defer cancel()

	title, err := s.llm.Complete(tctx, "", llm.BuildTitlePrompt(question))
	if err != nil {
		log.Warnf("title generation failed, using fallback: %v", err)
		return "New Chat"
	}
	title = strings.Trim(strings.TrimSpace(title), `"`)
	if title == "" {
		return "New Chat"
	}
	return title
}

func (s *Server) chatHistory(c *gin.Context) {
	summaries, err := s.sessions.List(c.Request.Context())
	if err != nil {
		log.Errorf("failed to list sessions: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list sessions"})
		return
	}
	if summaries == nil {
		summaries = []models.ChatSummary{}
	}
	c.JSON(http.StatusOK, summaries)
}

func (s *Server) getChat(c *gin.Context) {
	session, err := s.sessions.Get(c.Request.Context(), c.Param("id"))
	if errors.Is(err, models.ErrSessionNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "chat not found"})
		return
	}
	if err != nil {
		log.Errorf("failed to load session: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load session"})
		return
	}
	c.JSON(http.StatusOK, session)
}

type saveChatRequest struct {
	SessionID string               `json:"session_id"`
	History   []models.MessagePair `json:"history"`
}

func (s *Server) saveChat(c *gin.Context) {
	var req saveChatRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.SessionID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "session_id and history are required"})
		return
	}
	if err := s.sessions.Save(c.Request.Context(), req.SessionID, req.History); err != nil {
		log.Errorf("failed to save session: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to save session"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "chat saved"})
}

func (s *Server) deleteChat(c *gin.Context) {
	err := s.sessions.Delete(c.Request.Context(), c.Param("id"))
	if errors.Is(err, models.ErrSessionNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "chat not found"})
		return
	}
	if err != nil {
		log.Errorf("failed to delete session: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete session"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "chat deleted"})
}
