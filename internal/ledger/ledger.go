// Package ledger meters generation spend against per-user credit balances.
package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"nastia-backend/internal/metrics"
)

var (
	ErrUserNotFound        = errors.New("user not found")
	ErrInsufficientCredits = errors.New("insufficient credits")
)

// Operation costs in credits.
const (
	CostImage          = 5
	CostImageWithInput = 10
	CostVideo          = 20
)

// ImageCost returns the image generation cost. Editing an existing image
// costs double the text-only rate.
func ImageCost(hasInput bool) int {
	if hasInput {
		return CostImageWithInput
	}
	return CostImage
}

// Store is the account backend. ChargeCredits must be atomic: a single
// conditional decrement that fails when the balance is below cost, never a
// separate read and write.
type Store interface {
	ChargeCredits(ctx context.Context, userID string, cost int) (string, error)
	RefundCredits(ctx context.Context, userID string, amount int) error
}

type Ledger struct {
	store Store
}

func New(store Store) *Ledger {
	return &Ledger{store: store}
}

// AuthorizeAndCharge deducts cost from the user's balance and returns the
// plan tier observed by the deduction. Fails with ErrUserNotFound or
// ErrInsufficientCredits without changing the balance.
func (l *Ledger) AuthorizeAndCharge(ctx context.Context, userID string, cost int) (string, error) {
	if cost <= 0 {
		return "", fmt.Errorf("invalid cost %d", cost)
	}
	plan, err := l.store.ChargeCredits(ctx, userID, cost)
	if err != nil {
		return "", err
	}
	return plan, nil
}

// Refund returns credits charged for a generation that was never delivered.
// Best-effort: a failed refund is logged and counted but not surfaced, the
// original pipeline error is what the caller reports.
func (l *Ledger) Refund(ctx context.Context, userID string, amount int) {
	if err := l.store.RefundCredits(ctx, userID, amount); err != nil {
		metrics.RefundFailures.Inc()
		log.Error().Err(err).Str("user_id", userID).Int("amount", amount).Msg("credit refund failed")
	}
}
