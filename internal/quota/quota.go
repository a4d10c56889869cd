// Package quota tracks per-user storage consumption and decides upload
// admission. All mutations are relative deltas applied in single SQL
// statements so concurrent uploads for the same user can never over-admit.
package quota

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// OverageCost is the fixed price (USD) to upload one file past the cap.
const OverageCost = 0.25

// ExceededError rejects an upload and carries the amount the client must pay
// before retrying it.
type ExceededError struct {
	Cost float64
}

func (e *ExceededError) Error() string {
	return fmt.Sprintf("storage quota exceeded, payment of $%.2f required", e.Cost)
}

// Ledger is the single source of truth for storage admission decisions.
type Ledger struct {
	db  *pgxpool.Pool
	cap int64
}

// NewLedger creates a Ledger enforcing the given per-user byte cap.
func NewLedger(db *pgxpool.Pool, capBytes int64) *Ledger {
	return &Ledger{db: db, cap: capBytes}
}

// Reservation records how an admission was granted so that a later Release
// undoes exactly what Reserve did: the bytes always, the prepaid credit only
// when one was spent.
type Reservation struct {
	UserID     string
	Size       int64
	UsedCredit bool
}

// Reserve admits size bytes for the user and commits them to storage_used in
// one conditional update. If the cap would be exceeded, a prepaid overage
// credit is consumed instead; with neither available it returns *ExceededError
// and mutates nothing.
func (l *Ledger) Reserve(ctx context.Context, userID string, size int64) (*Reservation, error) {
	tag, err := l.db.Exec(ctx,
		`UPDATE users SET storage_used = storage_used + $2, updated_at = NOW()
		 WHERE id = $1 AND storage_used + $2 <= $3`,
		userID, size, l.cap,
	)
	if err != nil {
		return nil, fmt.Errorf("reserve quota: %w", err)
	}
	if tag.RowsAffected() == 1 {
		return &Reservation{UserID: userID, Size: size}, nil
	}

	// Over cap: a confirmed payment grants exactly one admission.
	tag, err = l.db.Exec(ctx,
		`UPDATE users SET storage_used = storage_used + $2,
		                  overage_credits = overage_credits - 1,
		                  updated_at = NOW()
		 WHERE id = $1 AND overage_credits > 0`,
		userID, size,
	)
	if err != nil {
		return nil, fmt.Errorf("reserve quota via credit: %w", err)
	}
	if tag.RowsAffected() == 1 {
		return &Reservation{UserID: userID, Size: size, UsedCredit: true}, nil
	}

	return nil, &ExceededError{Cost: OverageCost}
}

// Release returns a failed reservation in a single statement. The bytes come
// back clamped at zero and, if the admission consumed a credit, the credit is
// restored too, so the client's payment survives a failed upload.
func (l *Ledger) Release(ctx context.Context, res *Reservation) error {
	var refund int64
	if res.UsedCredit {
		refund = 1
	}
	_, err := l.db.Exec(ctx,
		`UPDATE users SET storage_used = GREATEST(storage_used - $2, 0),
		                  overage_credits = overage_credits + $3,
		                  updated_at = NOW()
		 WHERE id = $1`,
		res.UserID, res.Size, refund,
	)
	if err != nil {
		return fmt.Errorf("release reservation: %w", err)
	}
	return nil
}

// Commit applies a relative delta to the user's storage_used, clamped so the
// result never goes negative. Positive on admission, negative on purge.
func (l *Ledger) Commit(ctx context.Context, userID string, delta int64) error {
	_, err := l.db.Exec(ctx,
		`UPDATE users SET storage_used = GREATEST(storage_used + $2, 0), updated_at = NOW()
		 WHERE id = $1`,
		userID, delta,
	)
	if err != nil {
		return fmt.Errorf("commit quota delta: %w", err)
	}
	return nil
}

// GrantCredit records one confirmed overage payment for the user.
func (l *Ledger) GrantCredit(ctx context.Context, userID string) error {
	_, err := l.db.Exec(ctx,
		`UPDATE users SET overage_credits = overage_credits + 1, updated_at = NOW()
		 WHERE id = $1`,
		userID,
	)
	if err != nil {
		return fmt.Errorf("grant overage credit: %w", err)
	}
	return nil
}
