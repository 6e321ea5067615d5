package supabase

import (
	"errors"
	"fmt"

	"github.com/supabase-community/supabase-go"

	"nastia-backend/internal/config"
	"nastia-backend/internal/models"
)

var (
	ErrProfileNotFound = errors.New("profile not found")
	ErrCouponRejected  = errors.New("coupon rejected")
)

// Client wraps the Supabase PostgREST API. Reads and the coupon RPC go
// through here; mutations that must be atomic use DatabaseClient instead.
type Client struct {
	sb *supabase.Client
}

func NewClient(cfg *config.Config) (*Client, error) {
	client, err := supabase.NewClient(cfg.SupabaseURL, cfg.SupabaseServiceKey, nil)
	if err != nil {
		return nil, err
	}
	return &Client{sb: client}, nil
}

func (c *Client) GetProfile(userID string) (*models.Profile, error) {
	var profiles []models.Profile
	_, err := c.sb.From("profiles").Select("*", "", false).Eq("id", userID).ExecuteTo(&profiles)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch profile: %w", err)
	}
	if len(profiles) == 0 {
		return nil, ErrProfileNotFound
	}
	return &profiles[0], nil
}

func (c *Client) FindProfileByReferralCode(code string) (*models.Profile, error) {
	var profiles []models.Profile
	_, err := c.sb.From("profiles").Select("*", "", false).Eq("referral_code", code).ExecuteTo(&profiles)
	if err != nil {
		return nil, fmt.Errorf("failed to look up referral code: %w", err)
	}
	if len(profiles) == 0 {
		return nil, ErrProfileNotFound
	}
	return &profiles[0], nil
}

// RedeemCoupon invokes the redeem_coupon database function. The supabase-go
// RPC surface cannot expose transport errors distinctly from results, so an
// empty result is treated as rejection. Compatibility shim: the function
// always returns a status payload on success.
func (c *Client) RedeemCoupon(userID, code string) error {
	result := c.sb.Rpc("redeem_coupon", "", map[string]interface{}{
		"user_id":    userID,
		"input_code": code,
	})
	if result == "" {
		return ErrCouponRejected
	}
	return nil
}
