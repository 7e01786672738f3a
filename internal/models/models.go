package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Chunk is a contiguous window of a page's text, the unit of embedding and
// retrieval. Vector is filled in by the pipeline once the chunk is embedded.
type Chunk struct {
	Text   string    `json:"text"`
	Vector []float32 `json:"vector,omitempty"`
}

// Record is a chunk as stored in a vector index, with its assigned id.
type Record struct {
	ID     string    `json:"id"`
	Text   string    `json:"text"`
	Vector []float32 `json:"vector,omitempty"`
}

// SearchResult pairs a stored record with its cosine similarity to a query.
type SearchResult struct {
	Record Record  `json:"record"`
	Score  float64 `json:"score"`
}

// MessagePair is one chat turn: the user's question and the generated answer.
type MessagePair struct {
	Question string `json:"question" bson:"question"`
	Answer   string `json:"answer" bson:"answer"`
}

// ChatSession is a persisted conversation. Created on the first turn for a
// session id, mutated by appending turns, deleted explicitly by id.
type ChatSession struct {
	ID        primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	SessionID string             `json:"session_id" bson:"session_id"`
	Model     string             `json:"model" bson:"model"`
	Title     string             `json:"title" bson:"title"`
	History   []MessagePair      `json:"history" bson:"history"`
	CreatedAt time.Time          `json:"created_at" bson:"created_at"`
}

// ChatSummary is the listing view of a session.
type ChatSummary struct {
	ID        primitive.ObjectID `json:"id" bson:"_id"`
	Title     string             `json:"title" bson:"title"`
	CreatedAt time.Time          `json:"created_at" bson:"created_at"`
}
