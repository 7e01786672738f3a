package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"pdf-rag-chat/internal/models"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakePipeline struct {
	buildCount  int
	buildErr    error
	context     string
	retrieveErr error
	lastPath    string
	lastTopK    int
}

func (f *fakePipeline) BuildIndex(_ context.Context, path string) (int, error) {
	f.lastPath = path
	return f.buildCount, f.buildErr
}

func (f *fakePipeline) Retrieve(_ context.Context, _ string, topK int) (string, error) {
	f.lastTopK = topK
	return f.context, f.retrieveErr
}

type fakeCompleter struct {
	answers map[string]string // matched by prompt substring
	err     error
	prompts []string
}

func (f *fakeCompleter) Complete(_ context.Context, _, prompt string) (string, error) {
	f.prompts = append(f.prompts, prompt)
	if f.err != nil {
		return "", f.err
	}
	for sub, answer := range f.answers {
		if strings.Contains(prompt, sub) {
			return answer, nil
		}
	}
	return "answer", nil
}

type fakeStore struct {
	sessions map[string]*models.ChatSession
	byID     map[string]*models.ChatSession
	saved    map[string][]models.MessagePair
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		sessions: map[string]*models.ChatSession{},
		byID:     map[string]*models.ChatSession{},
		saved:    map[string][]models.MessagePair{},
	}
}

func (f *fakeStore) FindBySessionID(_ context.Context, sessionID string) (*models.ChatSession, error) {
	s, ok := f.sessions[sessionID]
	if !ok {
		return nil, models.ErrSessionNotFound
	}
	return s, nil
}

func (f *fakeStore) Create(_ context.Context, sessionID, model, title string, first models.MessagePair) error {
	s := &models.ChatSession{
		ID:        primitive.NewObjectID(),
		SessionID: sessionID,
		Model:     model,
		Title:     title,
		History:   []models.MessagePair{first},
	}
	f.sessions[sessionID] = s
	f.byID[s.ID.Hex()] = s
	return nil
}

func (f *fakeStore) AppendTurn(_ context.Context, sessionID string, pair models.MessagePair) error {
	s, ok := f.sessions[sessionID]
	if !ok {
		return models.ErrSessionNotFound
	}
	s.History = append(s.History, pair)
	return nil
}

func (f *fakeStore) List(_ context.Context) ([]models.ChatSummary, error) {
	var out []models.ChatSummary
	for _, s := range f.sessions {
		out = append(out, models.ChatSummary{ID: s.ID, Title: s.Title, CreatedAt: s.CreatedAt})
	}
	return out, nil
}

func (f *fakeStore) Get(_ context.Context, id string) (*models.ChatSession, error) {
	s, ok := f.byID[id]
	if !ok {
		return nil, models.ErrSessionNotFound
	}
	return s, nil
}

func (f *fakeStore) Save(_ context.Context, sessionID string, history []models.MessagePair) error {
	f.saved[sessionID] = history
	return nil
}

func (f *fakeStore) Delete(_ context.Context, id string) error {
	s, ok := f.byID[id]
	if !ok {
		return models.ErrSessionNotFound
	}
	delete(f.byID, id)
	delete(f.sessions, s.SessionID)
	return nil
}

func newTestServer(t *testing.T, p *fakePipeline, c *fakeCompleter, st *fakeStore) *Server {
	t.Helper()
	if p == nil {
		p = &fakePipeline{}
	}
	if c == nil {
		c = &fakeCompleter{}
	}
	if st == nil {
		st = newFakeStore()
	}
	return New(p, c, st, Config{DataDir: t.TempDir()})
}

func doJSON(t *testing.T, s *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.Engine().ServeHTTP(w, req)
	return w
}

func TestUploadPDF(t *testing.T) {
	s := newTestServer(t, nil, nil, nil)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", "doc.pdf")
	require.NoError(t, err)
	_, err = fw.Write([]byte("%PDF-1.4 fake"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/upload-pdf", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	s.Engine().ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Filename string `json:"filename"`
		Path     string `json:"path"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "doc.pdf", resp.Filename)

	data, err := os.ReadFile(resp.Path)
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.4 fake", string(data))
}

func TestUploadRejectsNonPDF(t *testing.T) {
	s := newTestServer(t, nil, nil, nil)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", "notes.txt")
	require.NoError(t, err)
	_, err = fw.Write([]byte("plain text"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/upload-pdf", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	s.Engine().ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestBuildDB(t *testing.T) {
	p := &fakePipeline{buildCount: 42}
	s := newTestServer(t, p, nil, nil)
	require.NoError(t, os.WriteFile(filepath.Join(s.dataDir, "doc.pdf"), []byte("x"), 0o644))

	w := doJSON(t, s, http.MethodPost, "/build-db?filename=doc.pdf", nil)

	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Chunks int `json:"chunks"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 42, resp.Chunks)
	assert.Equal(t, filepath.Join(s.dataDir, "doc.pdf"), p.lastPath)
}

func TestBuildDBMissingFile(t *testing.T) {
	s := newTestServer(t, nil, nil, nil)

	w := doJSON(t, s, http.MethodPost, "/build-db?filename=nope.pdf", nil)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestBuildDBErrorMapping(t *testing.T) {
	cases := []struct {
		err  error
		code int
	}{
		{models.ErrEmptyDocument, http.StatusUnprocessableEntity},
		{fmt.Errorf("chunk 3: %w", models.ErrEmbeddingFailed), http.StatusBadGateway},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		p := &fakePipeline{buildErr: tc.err}
		s := newTestServer(t, p, nil, nil)
		require.NoError(t, os.WriteFile(filepath.Join(s.dataDir, "doc.pdf"), []byte("x"), 0o644))

		w := doJSON(t, s, http.MethodPost, "/build-db?filename=doc.pdf", nil)
		assert.Equal(t, tc.code, w.Code, "error %v", tc.err)
	}
}

func TestQuery(t *testing.T) {
	p := &fakePipeline{context: "relevant chunk"}
	c := &fakeCompleter{answers: map[string]string{"relevant chunk": "the answer"}}
	s := newTestServer(t, p, c, nil)

	w := doJSON(t, s, http.MethodGet, "/query?q=hello&top_k=5", nil)

	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Answer  string `json:"answer"`
		Context string `json:"context"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "the answer", resp.Answer)
	assert.Equal(t, "relevant chunk", resp.Context)
	assert.Equal(t, 5, p.lastTopK)
}

func TestQueryNoIndex(t *testing.T) {
	p := &fakePipeline{retrieveErr: models.ErrNoIndexBuilt}
	s := newTestServer(t, p, nil, nil)

	w := doJSON(t, s, http.MethodGet, "/query?q=hello", nil)

	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestQueryMissingParam(t *testing.T) {
	s := newTestServer(t, nil, nil, nil)

	w := doJSON(t, s, http.MethodGet, "/query", nil)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestChatCreatesSessionWithTitle(t *testing.T) {
	p := &fakePipeline{context: "ctx"}
	c := &fakeCompleter{answers: map[string]string{
		"Generate a short and clear title": "Golf Rules Overview",
		"Question: what is par?":           "par is the expected score",
	}}
	st := newFakeStore()
	s := newTestServer(t, p, c, st)

	w := doJSON(t, s, http.MethodPost, "/chat", gin.H{
		"session_id": "sess-1",
		"query":      "what is par?",
		"model":      "qwen2:7b",
	})

	require.Equal(t, http.StatusOK, w.Code)
	sess := st.sessions["sess-1"]
	require.NotNil(t, sess)
	assert.Equal(t, "Golf Rules Overview", sess.Title)
	assert.Equal(t, "qwen2:7b", sess.Model)
	require.Len(t, sess.History, 1)
	assert.Equal(t, "what is par?", sess.History[0].Question)
	assert.Equal(t, "par is the expected score", sess.History[0].Answer)
}

func TestChatAppendsToExistingSession(t *testing.T) {
	st := newFakeStore()
	require.NoError(t, st.Create(context.Background(), "sess-1", "m", "Title",
		models.MessagePair{Question: "q1", Answer: "a1"}))
	s := newTestServer(t, &fakePipeline{context: "ctx"}, nil, st)

	w := doJSON(t, s, http.MethodPost, "/chat", gin.H{"session_id": "sess-1", "query": "q2"})

	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, st.sessions["sess-1"].History, 2)
	assert.Equal(t, "q2", st.sessions["sess-1"].History[1].Question)
}

func TestChatTitleFallback(t *testing.T) {
	// Retrieval finds no index and the title prompt yields an empty string.
	// The session must still be created under the fallback title.
	c := &fakeCompleter{answers: map[string]string{
		"Generate a short and clear title": "",
		"Question:":                        "answer without context",
	}}
	st := newFakeStore()
	p := &fakePipeline{retrieveErr: models.ErrNoIndexBuilt}
	s := newTestServer(t, p, c, st)

	w := doJSON(t, s, http.MethodPost, "/chat", gin.H{"session_id": "sess-1", "query": "hello"})

	require.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, st.sessions["sess-1"])
	assert.Equal(t, "New Chat", st.sessions["sess-1"].Title)
}

func TestChatAbsorbsMissingIndex(t *testing.T) {
	p := &fakePipeline{retrieveErr: models.ErrNoIndexBuilt}
	c := &fakeCompleter{}
	s := newTestServer(t, p, c, nil)

	w := doJSON(t, s, http.MethodPost, "/chat", gin.H{"session_id": "sess-1", "query": "hi"})

	require.Equal(t, http.StatusOK, w.Code)
	require.NotEmpty(t, c.prompts)
	assert.Contains(t, c.prompts[len(c.prompts)-1], noContextMarker)
}

func TestChatValidatesRequest(t *testing.T) {
	s := newTestServer(t, nil, nil, nil)

	w := doJSON(t, s, http.MethodPost, "/chat", gin.H{"query": "no session"})

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestChatHistoryAndGet(t *testing.T) {
	st := newFakeStore()
	require.NoError(t, st.Create(context.Background(), "sess-1", "m", "First Chat",
		models.MessagePair{Question: "q", Answer: "a"}))
	s := newTestServer(t, nil, nil, st)

	w := doJSON(t, s, http.MethodGet, "/chat-history", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var summaries []models.ChatSummary
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &summaries))
	require.Len(t, summaries, 1)
	assert.Equal(t, "First Chat", summaries[0].Title)

	w = doJSON(t, s, http.MethodGet, "/chat/"+summaries[0].ID.Hex(), nil)
	require.Equal(t, http.StatusOK, w.Code)
	var sess models.ChatSession
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &sess))
	assert.Equal(t, "sess-1", sess.SessionID)
	require.Len(t, sess.History, 1)
}

func TestChatHistoryEmpty(t *testing.T) {
	s := newTestServer(t, nil, nil, nil)

	w := doJSON(t, s, http.MethodGet, "/chat-history", nil)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "[]", strings.TrimSpace(w.Body.String()))
}

func TestGetChatNotFound(t *testing.T) {
	s := newTestServer(t, nil, nil, nil)

	w := doJSON(t, s, http.MethodGet, "/chat/"+primitive.NewObjectID().Hex(), nil)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSaveChat(t *testing.T) {
	st := newFakeStore()
	s := newTestServer(t, nil, nil, st)

	history := []models.MessagePair{{Question: "q", Answer: "a"}}
	w := doJSON(t, s, http.MethodPost, "/save-chat", gin.H{"session_id": "sess-1", "history": history})

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, history, st.saved["sess-1"])
}

func TestDeleteChat(t *testing.T) {
	st := newFakeStore()
	require.NoError(t, st.Create(context.Background(), "sess-1", "m", "T",
		models.MessagePair{Question: "q", Answer: "a"}))
	id := st.sessions["sess-1"].ID.Hex()
	s := newTestServer(t, nil, nil, st)

	w := doJSON(t, s, http.MethodDelete, "/delete-chat/"+id, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, st.sessions)

	w = doJSON(t, s, http.MethodDelete, "/delete-chat/"+id, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
