package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"nextvault/internal/domain"
)

// StrategyRepositoryImpl implements the StrategyRepository interface
type StrategyRepositoryImpl struct {
	db *pgxpool.Pool
}

// NewStrategyRepository creates a new StrategyRepository
func NewStrategyRepository(db *pgxpool.Pool) domain.StrategyRepository {
	return &StrategyRepositoryImpl{db: db}
}

const strategySelectCols = `id, name, protocol, description, base_apy,
	points_multiplier, min_lock_days, early_withdrawal_penalty, min_deposit,
	tvl, risk_level, is_active, created_at, updated_at`

func scanStrategyRow(row pgx.Row) (*domain.Strategy, error) {
	s := &domain.Strategy{}
	err := row.Scan(
		&s.ID, &s.Name, &s.Protocol, &s.Description, &s.BaseAPY,
		&s.PointsMultiplier, &s.MinLockDays, &s.PenaltyPercent, &s.MinDeposit,
		&s.TVL, &s.RiskLevel, &s.IsActive, &s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// Create creates a new strategy
func (r *StrategyRepositoryImpl) Create(ctx context.Context, strategy *domain.Strategy) error {
	query := `
		INSERT INTO defi_strategies (
			id, name, protocol, description, base_apy, points_multiplier,
			min_lock_days, early_withdrawal_penalty, min_deposit, tvl,
			risk_level, is_active, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14
		)
	`

	_, err := r.db.Exec(ctx, query,
		strategy.ID,
		strategy.Name,
		strategy.Protocol,
		strategy.Description,
		strategy.BaseAPY,
		strategy.PointsMultiplier,
		strategy.MinLockDays,
		strategy.PenaltyPercent,
		strategy.MinDeposit,
		strategy.TVL,
		strategy.RiskLevel,
		strategy.IsActive,
		strategy.CreatedAt,
		strategy.UpdatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to create strategy: %w", err)
	}

	return nil
}

// GetByID retrieves a strategy by ID
func (r *StrategyRepositoryImpl) GetByID(ctx context.Context, id uuid.UUID) (*domain.Strategy, error) {
	query := `SELECT ` + strategySelectCols + ` FROM defi_strategies WHERE id = $1`

	strategy, err := scanStrategyRow(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get strategy by ID: %w", err)
	}

	return strategy, nil
}

// GetAll retrieves all strategies
func (r *StrategyRepositoryImpl) GetAll(ctx context.Context) ([]*domain.Strategy, error) {
	return r.list(ctx, `SELECT `+strategySelectCols+` FROM defi_strategies ORDER BY base_apy DESC`)
}

// GetActive retrieves strategies open for deposits
func (r *StrategyRepositoryImpl) GetActive(ctx context.Context) ([]*domain.Strategy, error) {
	return r.list(ctx, `SELECT `+strategySelectCols+` FROM defi_strategies WHERE is_active = true ORDER BY base_apy DESC`)
}

func (r *StrategyRepositoryImpl) list(ctx context.Context, query string) ([]*domain.Strategy, error) {
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query strategies: %w", err)
	}
	defer rows.Close()

	var strategies []*domain.Strategy
	for rows.Next() {
		strategy, err := scanStrategyRow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan strategy: %w", err)
		}
		strategies = append(strategies, strategy)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating strategies: %w", err)
	}

	return strategies, nil
}

// Update updates a strategy's terms
func (r *StrategyRepositoryImpl) Update(ctx context.Context, strategy *domain.Strategy) error {
	query := `
		UPDATE defi_strategies
		SET name = $1,
		    protocol = $2,
		    description = $3,
		    base_apy = $4,
		    points_multiplier = $5,
		    min_lock_days = $6,
		    early_withdrawal_penalty = $7,
		    min_deposit = $8,
		    tvl = $9,
		    risk_level = $10,
		    is_active = $11,
		    updated_at = now()
		WHERE id = $12
	`

	tag, err := r.db.Exec(ctx, query,
		strategy.Name,
		strategy.Protocol,
		strategy.Description,
		strategy.BaseAPY,
		strategy.PointsMultiplier,
		strategy.MinLockDays,
		strategy.PenaltyPercent,
		strategy.MinDeposit,
		strategy.TVL,
		strategy.RiskLevel,
		strategy.IsActive,
		strategy.ID,
	)

	if err != nil {
		return fmt.Errorf("failed to update strategy: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}

	return nil
}
