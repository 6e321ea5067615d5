// Package referral applies referral bonuses and payment-driven plan and
// credit updates to user accounts.
package referral

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"nastia-backend/internal/metrics"
	"nastia-backend/internal/models"
	"nastia-backend/internal/payments"
	"nastia-backend/internal/supabase"
)

// Bonus amounts in credits.
const (
	SignupBonus  = 50  // to the referrer when a referred user claims the code
	UpgradeBonus = 100 // to the referrer when the referred user buys a plan
)

// Track-referral outcomes. Always reported as a status value, never as an
// error to the HTTP caller.
const (
	StatusSuccess     = "success"
	StatusIgnored     = "ignored"
	StatusInvalidCode = "invalid_code"
	StatusNotFound    = "not_found"
	StatusError       = "error"
)

// reward maps a checkout amount (minor currency units) to its credit top-up
// and plan tier.
type reward struct {
	Credits int
	Plan    string
}

var priceTable = map[int]reward{
	6900:  {Credits: 500, Plan: models.PlanPlus},
	14900: {Credits: 1200, Plan: models.PlanPro},
}

type ProfileReader interface {
	GetProfile(userID string) (*models.Profile, error)
	FindProfileByReferralCode(code string) (*models.Profile, error)
}

type AccountWriter interface {
	ClaimReferral(ctx context.Context, userID, referralCode, referrerID string, bonus int) error
	ApplyCheckout(ctx context.Context, userID string, credits int, plan string, recurring bool) error
	AddCredits(ctx context.Context, userID string, amount int) error
}

type Reconciler struct {
	profiles ProfileReader
	accounts AccountWriter
}

func NewReconciler(profiles ProfileReader, accounts AccountWriter) *Reconciler {
	return &Reconciler{profiles: profiles, accounts: accounts}
}

type Result struct {
	Status  string
	Message string
}

// TrackReferral claims a referral code for a user. One-shot: a user that
// already has a referrer or already received the signup bonus is ignored.
func (r *Reconciler) TrackReferral(ctx context.Context, userID, code string) Result {
	profile, err := r.profiles.GetProfile(userID)
	if errors.Is(err, supabase.ErrProfileNotFound) {
		return Result{Status: StatusNotFound, Message: "user not found"}
	}
	if err != nil {
		log.Error().Err(err).Str("user_id", userID).Msg("referral profile lookup failed")
		return Result{Status: StatusError, Message: "could not verify user"}
	}

	if profile.ReferredBy != nil || profile.SignupBonusGiven {
		return Result{Status: StatusIgnored, Message: "referral already claimed"}
	}

	referrer, err := r.profiles.FindProfileByReferralCode(code)
	if errors.Is(err, supabase.ErrProfileNotFound) {
		return Result{Status: StatusInvalidCode, Message: "unknown referral code"}
	}
	if err != nil {
		log.Error().Err(err).Str("code", code).Msg("referral code lookup failed")
		return Result{Status: StatusError, Message: "could not verify code"}
	}
	if referrer.ID == userID {
		return Result{Status: StatusInvalidCode, Message: "cannot refer yourself"}
	}

	err = r.accounts.ClaimReferral(ctx, userID, code, referrer.ID, SignupBonus)
	if errors.Is(err, supabase.ErrReferralClaimed) {
		return Result{Status: StatusIgnored, Message: "referral already claimed"}
	}
	if err != nil {
		log.Error().Err(err).Str("user_id", userID).Msg("referral claim failed")
		return Result{Status: StatusError, Message: "could not apply referral"}
	}

	return Result{Status: StatusSuccess}
}

// ApplyCheckout applies a completed checkout to the paying user: credit
// top-up plus plan upgrade per the price table, with the tier marked
// recurring for subscription-mode sessions, then the referrer upgrade
// bonus when the payer was referred. There is no idempotency key on events:
// a duplicate delivery double-applies (known gap, accepted).
func (r *Reconciler) ApplyCheckout(ctx context.Context, session payments.CheckoutSession) error {
	rw, ok := priceTable[session.AmountTotal]
	if !ok {
		log.Warn().Int("amount", session.AmountTotal).Str("session", session.ID).Msg("checkout amount has no reward mapping, skipping")
		return nil
	}

	userID := session.ClientReferenceID
	if userID == "" {
		return fmt.Errorf("checkout session %s has no client reference id", session.ID)
	}

	if err := r.accounts.ApplyCheckout(ctx, userID, rw.Credits, rw.Plan, session.Subscription()); err != nil {
		return fmt.Errorf("failed to apply checkout for user %s: %w", userID, err)
	}

	log.Info().
		Str("user_id", userID).
		Int("credits", rw.Credits).
		Str("plan", rw.Plan).
		Bool("subscription", session.Subscription()).
		Msg("checkout applied")

	r.payReferrerBonus(ctx, userID)
	return nil
}

// payReferrerBonus credits the payer's referrer after a plan upgrade.
// Best-effort: failure must not bounce the webhook.
func (r *Reconciler) payReferrerBonus(ctx context.Context, userID string) {
	profile, err := r.profiles.GetProfile(userID)
	if err != nil {
		metrics.ReferralBonusFailures.Inc()
		log.Error().Err(err).Str("user_id", userID).Msg("referrer bonus: payer lookup failed")
		return
	}
	if profile.ReferredBy == nil {
		return
	}

	referrer, err := r.profiles.FindProfileByReferralCode(*profile.ReferredBy)
	if err != nil {
		metrics.ReferralBonusFailures.Inc()
		log.Error().Err(err).Str("code", *profile.ReferredBy).Msg("referrer bonus: referrer lookup failed")
		return
	}

	if err := r.accounts.AddCredits(ctx, referrer.ID, UpgradeBonus); err != nil {
		metrics.ReferralBonusFailures.Inc()
		log.Error().Err(err).Str("referrer_id", referrer.ID).Msg("referrer bonus: credit failed")
	}
}
