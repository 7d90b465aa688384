package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"nextvault/internal/domain"
)

// PositionRepositoryImpl implements the PositionRepository interface
type PositionRepositoryImpl struct {
	db *pgxpool.Pool
}

// NewPositionRepository creates a new PositionRepository
func NewPositionRepository(db *pgxpool.Pool) domain.PositionRepository {
	return &PositionRepositoryImpl{db: db}
}

const positionSelectCols = `id, user_id, strategy_id, principal, entry_price,
	current_value, points_earned, auto_compound, compound_frequency,
	min_lock_days, penalty_percent, status, tx_hash, version,
	created_at, last_compound_at, withdrawn_at, updated_at`

func scanPositionRow(row pgx.Row) (*domain.Position, error) {
	p := &domain.Position{}
	err := row.Scan(
		&p.ID, &p.UserID, &p.StrategyID, &p.Principal, &p.EntryPrice,
		&p.CurrentValue, &p.PointsEarned, &p.AutoCompound, &p.CompoundFrequency,
		&p.MinLockDays, &p.PenaltyPercent, &p.Status, &p.TxHash, &p.Version,
		&p.CreatedAt, &p.LastCompoundAt, &p.WithdrawnAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return p, nil
}

func scanPositionRows(rows pgx.Rows) ([]*domain.Position, error) {
	var positions []*domain.Position
	for rows.Next() {
		position, err := scanPositionRow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan position: %w", err)
		}
		positions = append(positions, position)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating positions: %w", err)
	}
	return positions, nil
}

// Save creates a new position
func (r *PositionRepositoryImpl) Save(ctx context.Context, position *domain.Position) error {
	query := `
		INSERT INTO user_defi_positions (
			id, user_id, strategy_id, principal, entry_price, current_value,
			points_earned, auto_compound, compound_frequency, min_lock_days,
			penalty_percent, status, tx_hash, version, created_at,
			last_compound_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17
		)
	`

	_, err := r.db.Exec(ctx, query,
		position.ID,
		position.UserID,
		position.StrategyID,
		position.Principal,
		position.EntryPrice,
		position.CurrentValue,
		position.PointsEarned,
		position.AutoCompound,
		position.CompoundFrequency,
		position.MinLockDays,
		position.PenaltyPercent,
		position.Status,
		position.TxHash,
		position.Version,
		position.CreatedAt,
		position.LastCompoundAt,
		position.UpdatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to save position: %w", err)
	}

	return nil
}

// GetByID retrieves a position by ID
func (r *PositionRepositoryImpl) GetByID(ctx context.Context, id uuid.UUID) (*domain.Position, error) {
	query := `SELECT ` + positionSelectCols + ` FROM user_defi_positions WHERE id = $1`

	position, err := scanPositionRow(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get position by ID: %w", err)
	}

	return position, nil
}

// GetByUserID retrieves all positions for a user, newest first
func (r *PositionRepositoryImpl) GetByUserID(ctx context.Context, userID uuid.UUID) ([]*domain.Position, error) {
	query := `SELECT ` + positionSelectCols + `
		FROM user_defi_positions
		WHERE user_id = $1
		ORDER BY created_at DESC`

	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query positions by user ID: %w", err)
	}
	defer rows.Close()

	return scanPositionRows(rows)
}

// GetCompoundCandidates retrieves all active positions with auto-compound enabled
func (r *PositionRepositoryImpl) GetCompoundCandidates(ctx context.Context) ([]*domain.Position, error) {
	query := `SELECT ` + positionSelectCols + `
		FROM user_defi_positions
		WHERE status = 'active' AND auto_compound = true
		ORDER BY created_at ASC`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query compound candidates: %w", err)
	}
	defer rows.Close()

	return scanPositionRows(rows)
}

// ApplyCompound rolls a compounding outcome into the row. The version
// check makes the read-compute-write sequence a single conditional
// update: a row changed by a concurrent withdrawal simply does not match.
func (r *PositionRepositoryImpl) ApplyCompound(ctx context.Context, id uuid.UUID, version int64, outcome domain.CompoundOutcome, now time.Time) error {
	query := `
		UPDATE user_defi_positions
		SET current_value = $1,
		    points_earned = points_earned + $2,
		    last_compound_at = $3,
		    updated_at = $3,
		    version = version + 1
		WHERE id = $4 AND status = 'active' AND version = $5
	`

	tag, err := r.db.Exec(ctx, query, outcome.NewValue, outcome.PointsEarned, now, id, version)
	if err != nil {
		return fmt.Errorf("failed to apply compound: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return domain.ErrVersionConflict
	}

	return nil
}

// Settle transitions an active position to withdrawn exactly once.
func (r *PositionRepositoryImpl) Settle(ctx context.Context, id, userID uuid.UUID, version int64, totalAmount float64, now time.Time) error {
	query := `
		UPDATE user_defi_positions
		SET status = 'withdrawn',
		    current_value = $1,
		    withdrawn_at = $2,
		    updated_at = $2,
		    version = version + 1
		WHERE id = $3 AND user_id = $4 AND status = 'active' AND version = $5
	`

	tag, err := r.db.Exec(ctx, query, totalAmount, now, id, userID, version)
	if err != nil {
		return fmt.Errorf("failed to settle position: %w", err)
	}

	if tag.RowsAffected() == 0 {
		// Distinguish a bad identifier, a stale retry, and a row the
		// sweep compounded after we read it.
		var status string
		err := r.db.QueryRow(ctx,
			`SELECT status FROM user_defi_positions WHERE id = $1 AND user_id = $2`,
			id, userID,
		).Scan(&status)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return domain.ErrNotFound
			}
			return fmt.Errorf("failed to check position status: %w", err)
		}
		if status != domain.PositionActive {
			return domain.ErrAlreadySettled
		}
		return domain.ErrVersionConflict
	}

	return nil
}

// SetAutoCompound updates the auto-compound flag and frequency
func (r *PositionRepositoryImpl) SetAutoCompound(ctx context.Context, id, userID uuid.UUID, enabled bool, frequency string) error {
	query := `
		UPDATE user_defi_positions
		SET auto_compound = $1,
		    compound_frequency = $2,
		    updated_at = now()
		WHERE id = $3 AND user_id = $4 AND status = 'active'
	`

	tag, err := r.db.Exec(ctx, query, enabled, frequency, id, userID)
	if err != nil {
		return fmt.Errorf("failed to update auto-compound: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}

	return nil
}

// CountByUserID counts all positions ever opened by a user
func (r *PositionRepositoryImpl) CountByUserID(ctx context.Context, userID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM user_defi_positions WHERE user_id = $1`,
		userID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count positions: %w", err)
	}

	return count, nil
}
