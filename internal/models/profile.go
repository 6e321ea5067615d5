package models

import "time"

// Plan tiers. PlanCriacao is a legacy tier kept for accounts created before
// the plus/pro/agency lineup.
const (
	PlanFree    = "free"
	PlanPlus    = "plus"
	PlanPro     = "pro"
	PlanAgency  = "agency"
	PlanCriacao = "criação"
)

// PaidPlan reports whether the tier is exempt from watermarking.
func PaidPlan(plan string) bool {
	switch plan {
	case PlanPlus, PlanPro, PlanAgency, PlanCriacao:
		return true
	}
	return false
}

// Profile is a row in the profiles table. Rows are created by Supabase Auth
// triggers at signup; this service only mutates credits, plan_tier and the
// referral flags.
type Profile struct {
	ID               string    `json:"id"`
	Credits          int       `json:"credits"`
	PlanTier         string    `json:"plan_tier"`
	Recurring        bool      `json:"recurring"`
	ReferralCode     string    `json:"referral_code"`
	ReferredBy       *string   `json:"referred_by,omitempty"`
	SignupBonusGiven bool      `json:"signup_bonus_given"`
	CreatedAt        time.Time `json:"created_at"`
}
