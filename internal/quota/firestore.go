package quota

import (
	"context"
	"errors"
	"fmt"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// FirestoreStore keeps subscription records in a Firestore collection,
// one document per user keyed by user id.
type FirestoreStore struct {
	client     *firestore.Client
	collection string
}

// FirestoreConfig holds Firestore connection settings.
type FirestoreConfig struct {
	ProjectID  string
	Database   string
	Collection string
}

// NewFirestoreStore connects to Firestore and returns a subscription
// store.
func NewFirestoreStore(ctx context.Context, cfg FirestoreConfig) (*FirestoreStore, error) {
	if cfg.ProjectID == "" {
		return nil, errors.New("project id required")
	}
	if cfg.Collection == "" {
		cfg.Collection = "subscriptions"
	}

	var client *firestore.Client
	var err error
	if cfg.Database != "" {
		client, err = firestore.NewClientWithDatabase(ctx, cfg.ProjectID, cfg.Database)
	} else {
		client, err = firestore.NewClient(ctx, cfg.ProjectID)
	}
	if err != nil {
		return nil, fmt.Errorf("connecting to firestore: %w", err)
	}

	return &FirestoreStore{
		client:     client,
		collection: cfg.Collection,
	}, nil
}

// GetByUser returns the subscription document for a user.
func (s *FirestoreStore) GetByUser(ctx context.Context, userID string) (*Subscription, bool, error) {
	snap, err := s.client.Collection(s.collection).Doc(userID).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("fetching subscription %s: %w", userID, err)
	}

	var sub Subscription
	if err := snap.DataTo(&sub); err != nil {
		return nil, false, fmt.Errorf("decoding subscription %s: %w", userID, err)
	}
	return &sub, true, nil
}

// IncrementUsage adds one to the user's usage counter and stamps the
// audit id of the last increment.
func (s *FirestoreStore) IncrementUsage(ctx context.Context, userID, auditID string) error {
	_, err := s.client.Collection(s.collection).Doc(userID).Update(ctx, []firestore.Update{
		{Path: "quota_used", Value: firestore.Increment(1)},
		{Path: "last_audit_id", Value: auditID},
	})
	if err != nil {
		return fmt.Errorf("incrementing usage for %s: %w", userID, err)
	}
	return nil
}

// Close releases the Firestore client.
func (s *FirestoreStore) Close() error {
	return s.client.Close()
}
