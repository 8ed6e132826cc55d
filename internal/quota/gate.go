package quota

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/memoryd/internal/logging"
)

var (
	// ErrForbidden indicates a missing or inactive subscription.
	ErrForbidden = errors.New("subscription forbidden")

	// ErrQuotaExceeded indicates the subscription's quota is used up.
	ErrQuotaExceeded = errors.New("quota exceeded")
)

// Subscription is one caller's quota record.
type Subscription struct {
	UserID     string `firestore:"user_id"`
	QuotaUsed  int64  `firestore:"quota_used"`
	QuotaLimit int64  `firestore:"quota_limit"`
	IsActive   bool   `firestore:"is_active"`
}

// SubscriptionStore reads and updates subscription records.
type SubscriptionStore interface {
	// GetByUser returns the subscription for a user. The second
	// return is false when no record exists.
	GetByUser(ctx context.Context, userID string) (*Subscription, bool, error)

	// IncrementUsage adds one to the user's quota usage. The audit id
	// identifies the increment in logs on both sides.
	IncrementUsage(ctx context.Context, userID, auditID string) error
}

// Gate enforces subscription state and quota before mutations.
type Gate struct {
	store  SubscriptionStore
	logger *logging.Logger
}

// NewGate creates a quota gate backed by the given store.
func NewGate(store SubscriptionStore, logger *logging.Logger) (*Gate, error) {
	if store == nil {
		return nil, errors.New("subscription store is required")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Gate{store: store, logger: logger}, nil
}

// Check verifies the user may perform a mutation. A missing or
// inactive subscription is forbidden; a used-up quota is rate-limited.
func (g *Gate) Check(ctx context.Context, userID string) error {
	if userID == "" {
		return fmt.Errorf("%w: user id required", ErrForbidden)
	}

	sub, found, err := g.store.GetByUser(ctx, userID)
	if err != nil {
		return fmt.Errorf("reading subscription for %s: %w", userID, err)
	}
	if !found {
		return fmt.Errorf("%w: no subscription for %s", ErrForbidden, userID)
	}
	if !sub.IsActive {
		return fmt.Errorf("%w: subscription for %s is inactive", ErrForbidden, userID)
	}
	if sub.QuotaUsed >= sub.QuotaLimit {
		return fmt.Errorf("%w: %d of %d used", ErrQuotaExceeded, sub.QuotaUsed, sub.QuotaLimit)
	}
	return nil
}

// RecordUsage increments the user's usage counter after a successful
// mutation. It is best-effort: failures are logged, never returned, so
// a created memory is never rolled back over accounting. The returned
// audit id identifies the attempt.
func (g *Gate) RecordUsage(ctx context.Context, userID string) string {
	auditID := uuid.NewString()

	if err := g.store.IncrementUsage(ctx, userID, auditID); err != nil {
		g.logger.Warn(ctx, "usage increment failed",
			zap.String("user_id", userID),
			zap.String("audit_id", auditID),
			zap.Error(err))
	}
	return auditID
}
