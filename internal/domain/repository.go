package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// PositionRepository defines the interface for position data operations.
// Mutations of an active position are conditional updates keyed on the
// row version so the compounding sweep and a concurrent withdrawal can
// never interleave a lost update.
type PositionRepository interface {
	// Save creates a new position
	Save(ctx context.Context, position *Position) error

	// GetByID retrieves a position by ID
	GetByID(ctx context.Context, id uuid.UUID) (*Position, error)

	// GetByUserID retrieves all positions for a user, newest first
	GetByUserID(ctx context.Context, userID uuid.UUID) ([]*Position, error)

	// GetCompoundCandidates retrieves all active positions with
	// auto-compound enabled
	GetCompoundCandidates(ctx context.Context) ([]*Position, error)

	// ApplyCompound rolls a compounding outcome into the row. It fails
	// with ErrVersionConflict when the row changed since it was read.
	ApplyCompound(ctx context.Context, id uuid.UUID, version int64, outcome CompoundOutcome, now time.Time) error

	// Settle transitions an active position to withdrawn exactly once.
	// It fails with ErrAlreadySettled when the position is not active,
	// ErrNotFound when it does not belong to the user, and
	// ErrVersionConflict when the row changed since it was read.
	Settle(ctx context.Context, id, userID uuid.UUID, version int64, totalAmount float64, now time.Time) error

	// SetAutoCompound updates the auto-compound flag and frequency
	SetAutoCompound(ctx context.Context, id, userID uuid.UUID, enabled bool, frequency string) error

	// CountByUserID counts all positions ever opened by a user
	CountByUserID(ctx context.Context, userID uuid.UUID) (int64, error)
}

// StrategyRepository defines the interface for strategy reference data.
type StrategyRepository interface {
	// Create creates a new strategy
	Create(ctx context.Context, strategy *Strategy) error

	// GetByID retrieves a strategy by ID
	GetByID(ctx context.Context, id uuid.UUID) (*Strategy, error)

	// GetAll retrieves all strategies
	GetAll(ctx context.Context) ([]*Strategy, error)

	// GetActive retrieves strategies open for deposits
	GetActive(ctx context.Context) ([]*Strategy, error)

	// Update updates a strategy's terms
	Update(ctx context.Context, strategy *Strategy) error
}

// UserRepository defines the interface for user data operations.
type UserRepository interface {
	// Create creates a new user
	Create(ctx context.Context, user *User) error

	// GetByID retrieves a user by ID
	GetByID(ctx context.Context, id uuid.UUID) (*User, error)

	// GetByUsername retrieves a user by username
	GetByUsername(ctx context.Context, username string) (*User, error)

	// GetByWallet retrieves a user by linked wallet address
	GetByWallet(ctx context.Context, address string) (*User, error)

	// GetByReferralCode retrieves a user by referral code
	GetByReferralCode(ctx context.Context, code string) (*User, error)

	// LinkWallet records a verified wallet address for a user
	LinkWallet(ctx context.Context, userID uuid.UUID, address string) error
}

// PointsRepository defines the interface for the points ledger.
type PointsRepository interface {
	// Append inserts a ledger entry and bumps the user's total in the
	// same transaction
	Append(ctx context.Context, entry *PointsEntry) error

	// GetUserPoints retrieves a user's total, rank and recent history
	GetUserPoints(ctx context.Context, userID uuid.UUID, historyLimit int) (*UserPoints, error)

	// GetLeaderboard retrieves one page of the global ranking
	GetLeaderboard(ctx context.Context, page, limit int) (*LeaderboardPage, error)
}

// ActivityRepository defines the interface for the activity log.
type ActivityRepository interface {
	// Insert records one activity row
	Insert(ctx context.Context, activity *Activity) error

	// GetByUserID retrieves a user's recent activity, newest first
	GetByUserID(ctx context.Context, userID uuid.UUID, limit int) ([]*Activity, error)
}

// LockManager guards operations that must not run concurrently, such as
// the compounding sweep. Acquire returns an unlock function on success
// and ErrLockHeld when another holder owns the key.
type LockManager interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (func(), error)
}

// StatsRepository reads platform-wide aggregates for the admin surface.
type StatsRepository interface {
	// GetPlatformStats computes current platform totals
	GetPlatformStats(ctx context.Context) (*PlatformStats, error)
}

// NonceStore issues and consumes one-time login nonces for wallet
// signature verification. A nonce is valid for a short window and for a
// single use.
type NonceStore interface {
	// Issue creates and stores a nonce for the wallet address
	Issue(ctx context.Context, address string) (string, error)

	// Consume retrieves and deletes the nonce for the wallet address.
	// It returns ErrNotFound when no live nonce exists.
	Consume(ctx context.Context, address string) (string, error)
}

// LeaderboardCache caches leaderboard pages between writes.
type LeaderboardCache interface {
	Get(ctx context.Context, page, limit int) (*LeaderboardPage, error)
	Set(ctx context.Context, pageData *LeaderboardPage, ttl time.Duration) error
	Invalidate(ctx context.Context) error
}
