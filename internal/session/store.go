// Package session persists chat sessions in MongoDB: one document per
// session id, holding the model, the generated title and the ordered
// question/answer history.
package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"pdf-rag-chat/internal/models"
)

// Store wraps the chat_history collection.
type Store struct {
	client *mongo.Client
	col    *mongo.Collection
}

// NewStore connects to MongoDB and verifies the connection.
func NewStore(ctx context.Context, uri, database, collection string) (*Store, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}
	return &Store{
		client: client,
		col:    client.Database(database).Collection(collection),
	}, nil
}

// FindBySessionID returns the session for a session id, or
// models.ErrSessionNotFound.
func (s *Store) FindBySessionID(ctx context.Context, sessionID string) (*models.ChatSession, error) {
	var session models.ChatSession
	err := s.col.FindOne(ctx, bson.M{"session_id": sessionID}).Decode(&session)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, models.ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find session: %w", err)
	}
	return &session, nil
}

// Create inserts a new session with its first turn. CreatedAt is stamped
// here.
func (s *Store) Create(ctx context.Context, sessionID, model, title string, first models.MessagePair) error {
	_, err := s.col.InsertOne(ctx, models.ChatSession{
		SessionID: sessionID,
		Model:     model,
		Title:     title,
		History:   []models.MessagePair{first},
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}
	return nil
}

// AppendTurn pushes a question/answer pair onto an existing session.
func (s *Store) AppendTurn(ctx context.Context, sessionID string, pair models.MessagePair) error {
	res, err := s.col.UpdateOne(ctx,
		bson.M{"session_id": sessionID},
		bson.M{"$push": bson.M{"history": pair}},
	)
	if err != nil {
		return fmt.Errorf("failed to append turn: %w", err)
	}
	if res.MatchedCount == 0 {
		return models.ErrSessionNotFound
	}
	return nil
}

// List returns id, title and creation time for every session, newest first.
func (s *Store) List(ctx context.Context) ([]models.ChatSummary, error) {
	opts := options.Find().
		SetProjection(bson.M{"_id": 1, "title": 1, "created_at": 1}).
		SetSort(bson.M{"created_at": -1})
	cur, err := s.col.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	defer cur.Close(ctx)

	var summaries []models.ChatSummary
	if err := cur.All(ctx, &summaries); err != nil {
		return nil, fmt.Errorf("failed to decode sessions: %w", err)
	}
	return summaries, nil
}

// Get returns the full session for a document id.
func (s *Store) Get(ctx context.Context, id string) (*models.ChatSession, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, models.ErrSessionNotFound
	}
	var session models.ChatSession
	err = s.col.FindOne(ctx, bson.M{"_id": oid}).Decode(&session)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, models.ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	return &session, nil
}

// Save replaces a session's history, creating the session if needed.
func (s *Store) Save(ctx context.Context, sessionID string, history []models.MessagePair) error {
	_, err := s.col.UpdateOne(ctx,
		bson.M{"session_id": sessionID},
		bson.M{"$set": bson.M{"history": history}},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

// Delete removes a session by document id.
func (s *Store) Delete(ctx context.Context, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return models.ErrSessionNotFound
	}
	res, err := s.col.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	if res.DeletedCount == 0 {
		return models.ErrSessionNotFound
	}
	return nil
}

// Close disconnects from MongoDB.
func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}
