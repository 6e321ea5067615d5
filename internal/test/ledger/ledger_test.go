package ledger_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"nastia-backend/internal/ledger"
)

type fakeStore struct {
	plan      string
	chargeErr error
	refundErr error

	chargedUser string
	chargedCost int
	refunded    int
}

func (f *fakeStore) ChargeCredits(_ context.Context, userID string, cost int) (string, error) {
	f.chargedUser = userID
	f.chargedCost = cost
	if f.chargeErr != nil {
		return "", f.chargeErr
	}
	return f.plan, nil
}

func (f *fakeStore) RefundCredits(_ context.Context, _ string, amount int) error {
	f.refunded += amount
	return f.refundErr
}

func TestAuthorizeAndCharge(t *testing.T) {
	store := &fakeStore{plan: "free"}
	l := ledger.New(store)

	plan, err := l.AuthorizeAndCharge(context.Background(), "user-1", 5)

	assert.NoError(t, err)
	assert.Equal(t, "free", plan)
	assert.Equal(t, "user-1", store.chargedUser)
	assert.Equal(t, 5, store.chargedCost)
}

func TestAuthorizeAndCharge_InsufficientCredits(t *testing.T) {
	store := &fakeStore{chargeErr: ledger.ErrInsufficientCredits}
	l := ledger.New(store)

	_, err := l.AuthorizeAndCharge(context.Background(), "user-1", 20)

	assert.ErrorIs(t, err, ledger.ErrInsufficientCredits)
}

func TestAuthorizeAndCharge_InvalidCost(t *testing.T) {
	store := &fakeStore{plan: "free"}
	l := ledger.New(store)

	_, err := l.AuthorizeAndCharge(context.Background(), "user-1", 0)

	assert.Error(t, err)
	assert.Empty(t, store.chargedUser)
}

func TestRefund(t *testing.T) {
	store := &fakeStore{}
	l := ledger.New(store)

	l.Refund(context.Background(), "user-1", 20)

	assert.Equal(t, 20, store.refunded)
}

func TestRefund_FailureSwallowed(t *testing.T) {
	store := &fakeStore{refundErr: assert.AnError}
	l := ledger.New(store)

	// Must not panic or propagate; the pipeline error is what matters.
	l.Refund(context.Background(), "user-1", 5)
}

func TestImageCost(t *testing.T) {
	assert.Equal(t, 5, ledger.ImageCost(false))
	assert.Equal(t, 10, ledger.ImageCost(true))
	assert.Equal(t, 20, ledger.CostVideo)
}
