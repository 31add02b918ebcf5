package gcp

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"

	"github.com/Lllllllleong/pdfworkbench/internal/models"
)

// NewFirestoreClient creates and returns a new Firestore client for the given project ID.
func NewFirestoreClient(ctx context.Context, projectID string) (*firestore.Client, error) {
	if projectID == "" {
		return nil, fmt.Errorf("projectID must be provided to create a firestore client")
	}

	client, err := firestore.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to create Firestore client: %w", err)
	}

	return client, nil
}

// DocumentStore keeps one record per processed upload in a Firestore collection.
type DocumentStore struct {
	client     *firestore.Client
	collection string
}

// NewDocumentStore returns a store over collection.
func NewDocumentStore(client *firestore.Client, collection string) *DocumentStore {
	return &DocumentStore{client: client, collection: collection}
}

// FindByHash returns the ID of a record with the given content hash, or "" if none exists.
func (s *DocumentStore) FindByHash(ctx context.Context, fileHash string) (string, error) {
	docs, err := s.client.Collection(s.collection).Where("fileHash", "==", fileHash).Limit(1).Documents(ctx).GetAll()
	if err != nil {
		return "", fmt.Errorf("failed to query for duplicates: %w", err)
	}
	if len(docs) > 0 {
		return docs[0].Ref.ID, nil
	}
	return "", nil
}

// Create adds a new record in the VALIDATING state and returns its ID.
func (s *DocumentStore) Create(ctx context.Context, doc models.Document) (string, error) {
	doc.Status = models.StatusValidating
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = time.Now()
	}
	ref, _, err := s.client.Collection(s.collection).Add(ctx, doc)
	if err != nil {
		return "", fmt.Errorf("failed to create document record: %w", err)
	}
	return ref.ID, nil
}

// Update applies field updates to the record with id. Keys are Firestore field paths.
func (s *DocumentStore) Update(ctx context.Context, id string, fields map[string]any) error {
	updates := make([]firestore.Update, 0, len(fields))
	for path, value := range fields {
		updates = append(updates, firestore.Update{Path: path, Value: value})
	}
	if _, err := s.client.Collection(s.collection).Doc(id).Update(ctx, updates); err != nil {
		return fmt.Errorf("failed to update document %s: %w", id, err)
	}
	return nil
}

// SetStatus records a status transition, with error details for failures.
func (s *DocumentStore) SetStatus(ctx context.Context, id, status, errDetails string) error {
	fields := map[string]any{"status": status}
	if errDetails != "" {
		fields["errorDetails"] = errDetails
	}
	return s.Update(ctx, id, fields)
}
