package referral_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"nastia-backend/internal/models"
	"nastia-backend/internal/payments"
	"nastia-backend/internal/referral"
	"nastia-backend/internal/supabase"
)

type fakeProfiles struct {
	byID   map[string]*models.Profile
	byCode map[string]*models.Profile
}

func (f *fakeProfiles) GetProfile(userID string) (*models.Profile, error) {
	if p, ok := f.byID[userID]; ok {
		return p, nil
	}
	return nil, supabase.ErrProfileNotFound
}

func (f *fakeProfiles) FindProfileByReferralCode(code string) (*models.Profile, error) {
	if p, ok := f.byCode[code]; ok {
		return p, nil
	}
	return nil, supabase.ErrProfileNotFound
}

type fakeAccounts struct {
	claims    int
	claimErr  error
	checkouts []struct {
		UserID    string
		Credits   int
		Plan      string
		Recurring bool
	}
	credits map[string]int
}

func (f *fakeAccounts) ClaimReferral(_ context.Context, _, _, referrerID string, bonus int) error {
	if f.claimErr != nil {
		return f.claimErr
	}
	f.claims++
	if f.credits == nil {
		f.credits = map[string]int{}
	}
	f.credits[referrerID] += bonus
	return nil
}

func (f *fakeAccounts) ApplyCheckout(_ context.Context, userID string, credits int, plan string, recurring bool) error {
	f.checkouts = append(f.checkouts, struct {
		UserID    string
		Credits   int
		Plan      string
		Recurring bool
	}{userID, credits, plan, recurring})
	return nil
}

func (f *fakeAccounts) AddCredits(_ context.Context, userID string, amount int) error {
	if f.credits == nil {
		f.credits = map[string]int{}
	}
	f.credits[userID] += amount
	return nil
}

func referrerCode(code string) *string { return &code }

func newFixture() (*fakeProfiles, *fakeAccounts, *referral.Reconciler) {
	referrer := &models.Profile{ID: "referrer-1", ReferralCode: "CODE1", PlanTier: models.PlanFree}
	newUser := &models.Profile{ID: "user-1", ReferralCode: "CODE2", PlanTier: models.PlanFree}

	profiles := &fakeProfiles{
		byID:   map[string]*models.Profile{"referrer-1": referrer, "user-1": newUser},
		byCode: map[string]*models.Profile{"CODE1": referrer, "CODE2": newUser},
	}
	accounts := &fakeAccounts{}
	return profiles, accounts, referral.NewReconciler(profiles, accounts)
}

func TestTrackReferral_Success(t *testing.T) {
	_, accounts, r := newFixture()

	result := r.TrackReferral(context.Background(), "user-1", "CODE1")

	assert.Equal(t, referral.StatusSuccess, result.Status)
	assert.Equal(t, 1, accounts.claims)
	assert.Equal(t, referral.SignupBonus, accounts.credits["referrer-1"])
}

func TestTrackReferral_SecondClaimIgnored(t *testing.T) {
	profiles, accounts, r := newFixture()

	result := r.TrackReferral(context.Background(), "user-1", "CODE1")
	assert.Equal(t, referral.StatusSuccess, result.Status)

	// After the first claim the profile carries the referrer flags.
	profiles.byID["user-1"].ReferredBy = referrerCode("CODE1")
	profiles.byID["user-1"].SignupBonusGiven = true

	result = r.TrackReferral(context.Background(), "user-1", "CODE1")
	assert.Equal(t, referral.StatusIgnored, result.Status)
	assert.Equal(t, referral.SignupBonus, accounts.credits["referrer-1"], "no second bonus")
}

func TestTrackReferral_UnknownUser(t *testing.T) {
	_, _, r := newFixture()

	result := r.TrackReferral(context.Background(), "nobody", "CODE1")

	assert.Equal(t, referral.StatusNotFound, result.Status)
}

func TestTrackReferral_InvalidCode(t *testing.T) {
	_, accounts, r := newFixture()

	result := r.TrackReferral(context.Background(), "user-1", "BOGUS")

	assert.Equal(t, referral.StatusInvalidCode, result.Status)
	assert.Zero(t, accounts.claims)
}

func TestTrackReferral_SelfReferral(t *testing.T) {
	_, accounts, r := newFixture()

	result := r.TrackReferral(context.Background(), "user-1", "CODE2")

	assert.Equal(t, referral.StatusInvalidCode, result.Status)
	assert.Zero(t, accounts.claims)
}

func TestTrackReferral_RaceLostIgnored(t *testing.T) {
	_, accounts, r := newFixture()
	accounts.claimErr = supabase.ErrReferralClaimed

	result := r.TrackReferral(context.Background(), "user-1", "CODE1")

	assert.Equal(t, referral.StatusIgnored, result.Status)
}

func TestApplyCheckout_PlusTier(t *testing.T) {
	_, accounts, r := newFixture()

	err := r.ApplyCheckout(context.Background(), payments.CheckoutSession{
		ID:                "cs_1",
		ClientReferenceID: "user-1",
		AmountTotal:       6900,
		Mode:              "payment",
	})

	assert.NoError(t, err)
	assert.Len(t, accounts.checkouts, 1)
	assert.Equal(t, 500, accounts.checkouts[0].Credits)
	assert.Equal(t, models.PlanPlus, accounts.checkouts[0].Plan)
	assert.False(t, accounts.checkouts[0].Recurring)
}

func TestApplyCheckout_ProTier(t *testing.T) {
	_, accounts, r := newFixture()

	err := r.ApplyCheckout(context.Background(), payments.CheckoutSession{
		ID:                "cs_2",
		ClientReferenceID: "user-1",
		AmountTotal:       14900,
		Mode:              "subscription",
	})

	assert.NoError(t, err)
	assert.Len(t, accounts.checkouts, 1)
	assert.Equal(t, 1200, accounts.checkouts[0].Credits)
	assert.Equal(t, models.PlanPro, accounts.checkouts[0].Plan)
	assert.True(t, accounts.checkouts[0].Recurring)
}

// The same price maps to the same tier either way, but only a
// subscription-mode session marks it recurring.
func TestApplyCheckout_SubscriptionModeMarksRecurring(t *testing.T) {
	_, accounts, r := newFixture()

	oneOff := payments.CheckoutSession{ID: "cs_pay", ClientReferenceID: "user-1", AmountTotal: 6900, Mode: "payment"}
	subscription := payments.CheckoutSession{ID: "cs_sub", ClientReferenceID: "user-1", AmountTotal: 6900, Mode: "subscription"}

	assert.NoError(t, r.ApplyCheckout(context.Background(), oneOff))
	assert.NoError(t, r.ApplyCheckout(context.Background(), subscription))

	assert.Len(t, accounts.checkouts, 2)
	assert.Equal(t, models.PlanPlus, accounts.checkouts[0].Plan)
	assert.Equal(t, models.PlanPlus, accounts.checkouts[1].Plan)
	assert.False(t, accounts.checkouts[0].Recurring)
	assert.True(t, accounts.checkouts[1].Recurring)
}

func TestApplyCheckout_UnknownAmountSkipped(t *testing.T) {
	_, accounts, r := newFixture()

	err := r.ApplyCheckout(context.Background(), payments.CheckoutSession{
		ID:                "cs_3",
		ClientReferenceID: "user-1",
		AmountTotal:       123,
	})

	assert.NoError(t, err)
	assert.Empty(t, accounts.checkouts)
}

func TestApplyCheckout_ReferrerBonus(t *testing.T) {
	profiles, accounts, r := newFixture()
	profiles.byID["user-1"].ReferredBy = referrerCode("CODE1")

	err := r.ApplyCheckout(context.Background(), payments.CheckoutSession{
		ID:                "cs_4",
		ClientReferenceID: "user-1",
		AmountTotal:       6900,
	})

	assert.NoError(t, err)
	assert.Equal(t, referral.UpgradeBonus, accounts.credits["referrer-1"])
}

// There is no idempotency key on webhook events: replaying the same checkout
// applies the reward twice. Known gap, kept to match the processor contract.
func TestApplyCheckout_DuplicateEventDoubleApplies(t *testing.T) {
	_, accounts, r := newFixture()
	session := payments.CheckoutSession{
		ID:                "cs_5",
		ClientReferenceID: "user-1",
		AmountTotal:       6900,
	}

	assert.NoError(t, r.ApplyCheckout(context.Background(), session))
	assert.NoError(t, r.ApplyCheckout(context.Background(), session))

	assert.Len(t, accounts.checkouts, 2)
}
