package supabase

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	_ "github.com/lib/pq"

	"nastia-backend/internal/ledger"
)

var ErrReferralClaimed = errors.New("referral already claimed")

// DatabaseClient talks to Postgres directly for every mutation that must be
// atomic. PostgREST reads stay on Client.
type DatabaseClient struct {
	db *sql.DB
}

func NewDatabaseClient(connectionString string) (*DatabaseClient, error) {
	db, err := sql.Open("postgres", connectionString)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &DatabaseClient{db: db}, nil
}

// ChargeCredits deducts cost from the user's balance in a single conditional
// update, so concurrent requests can never drive the balance negative.
// Returns the plan tier observed by the update.
func (d *DatabaseClient) ChargeCredits(ctx context.Context, userID string, cost int) (string, error) {
	var plan string
	err := d.db.QueryRowContext(ctx, `
		UPDATE profiles
		SET credits = credits - $2
		WHERE id = $1 AND credits >= $2
		RETURNING plan_tier
	`, userID, cost).Scan(&plan)

	if errors.Is(err, sql.ErrNoRows) {
		var exists bool
		if err := d.db.QueryRowContext(ctx,
			`SELECT EXISTS (SELECT 1 FROM profiles WHERE id = $1)`, userID,
		).Scan(&exists); err != nil {
			return "", fmt.Errorf("failed to check profile: %w", err)
		}
		if !exists {
			return "", ledger.ErrUserNotFound
		}
		return "", ledger.ErrInsufficientCredits
	}
	if err != nil {
		return "", fmt.Errorf("failed to charge credits: %w", err)
	}

	return plan, nil
}

func (d *DatabaseClient) RefundCredits(ctx context.Context, userID string, amount int) error {
	return d.AddCredits(ctx, userID, amount)
}

func (d *DatabaseClient) AddCredits(ctx context.Context, userID string, amount int) error {
	res, err := d.db.ExecContext(ctx, `
		UPDATE profiles
		SET credits = credits + $2
		WHERE id = $1
	`, userID, amount)
	if err != nil {
		return fmt.Errorf("failed to add credits: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrProfileNotFound
	}
	return nil
}

func (d *DatabaseClient) InsertGeneration(ctx context.Context, userID, kind, url, prompt string) error {
	_, err := d.db.ExecContext(ctx, `
		INSERT INTO generations (id, user_id, type, url, prompt)
		VALUES ($1, $2, $3, $4, $5)
	`, uuid.New(), userID, kind, url, prompt)
	if err != nil {
		return fmt.Errorf("failed to insert generation: %w", err)
	}
	return nil
}

// ClaimReferral marks the referred user as claimed and credits the referrer,
// in one transaction. The claim is one-shot: a user with a referrer or a
// granted signup bonus cannot claim again.
func (d *DatabaseClient) ClaimReferral(ctx context.Context, userID, referralCode, referrerID string, bonus int) error {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		UPDATE profiles
		SET referred_by = $2, signup_bonus_given = true
		WHERE id = $1 AND referred_by IS NULL AND signup_bonus_given = false
	`, userID, referralCode)
	if err != nil {
		return fmt.Errorf("failed to claim referral: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrReferralClaimed
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE profiles
		SET credits = credits + $2
		WHERE id = $1
	`, referrerID, bonus); err != nil {
		return fmt.Errorf("failed to credit referrer: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit referral claim: %w", err)
	}
	return nil
}

// ApplyCheckout applies a paid checkout in one statement: credit top-up,
// plan change, and the recurring flag for subscription purchases.
func (d *DatabaseClient) ApplyCheckout(ctx context.Context, userID string, credits int, plan string, recurring bool) error {
	res, err := d.db.ExecContext(ctx, `
		UPDATE profiles
		SET credits = credits + $2, plan_tier = $3, recurring = $4
		WHERE id = $1
	`, userID, credits, plan, recurring)
	if err != nil {
		return fmt.Errorf("failed to apply checkout: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrProfileNotFound
	}
	return nil
}

func (d *DatabaseClient) Close() error {
	return d.db.Close()
}
