package blocklist

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const (
	firestoreCollection = "research_blocklist"
	firestoreDocID      = "blocked_domains"
)

// FirestoreStore persists the registry record as a single Firestore
// document, shared by every orchestrator process in the project.
type FirestoreStore struct {
	client *firestore.Client
}

// NewFirestoreStore creates a Firestore-backed store.
func NewFirestoreStore(client *firestore.Client) *FirestoreStore {
	return &FirestoreStore{client: client}
}

// Load reads the registry document. A missing document is an empty record.
func (s *FirestoreStore) Load(ctx context.Context) (Record, error) {
	snap, err := s.client.Collection(firestoreCollection).Doc(firestoreDocID).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return Record{Blocked: make(map[string]string)}, nil
		}
		return Record{}, fmt.Errorf("failed to load blocklist document: %w", err)
	}

	var rec Record
	if err := snap.DataTo(&rec); err != nil {
		return Record{}, fmt.Errorf("failed to decode blocklist document: %w", err)
	}
	if rec.Blocked == nil {
		rec.Blocked = make(map[string]string)
	}
	return rec, nil
}

// Save replaces the registry document with the full record.
func (s *FirestoreStore) Save(ctx context.Context, rec Record) error {
	_, err := s.client.Collection(firestoreCollection).Doc(firestoreDocID).Set(ctx, rec)
	if err != nil {
		return fmt.Errorf("failed to save blocklist document: %w", err)
	}
	return nil
}
