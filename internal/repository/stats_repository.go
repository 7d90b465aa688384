package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"nextvault/internal/domain"
)

// StatsRepositoryImpl implements the StatsRepository interface
type StatsRepositoryImpl struct {
	db *pgxpool.Pool
}

// NewStatsRepository creates a new StatsRepository
func NewStatsRepository(db *pgxpool.Pool) domain.StatsRepository {
	return &StatsRepositoryImpl{db: db}
}

// GetPlatformStats computes current platform totals
func (r *StatsRepositoryImpl) GetPlatformStats(ctx context.Context) (*domain.PlatformStats, error) {
	stats := &domain.PlatformStats{}

	err := r.db.QueryRow(ctx, `
		SELECT
			(SELECT COUNT(*) FROM users),
			(SELECT COUNT(*) FROM user_defi_positions WHERE status = 'active'),
			(SELECT COALESCE(SUM(current_value), 0) FROM user_defi_positions WHERE status = 'active'),
			(SELECT COALESCE(SUM(principal), 0) FROM user_defi_positions WHERE status = 'active'),
			(SELECT COALESCE(SUM(total_points), 0) FROM users)
	`).Scan(
		&stats.TotalUsers,
		&stats.ActivePositions,
		&stats.TotalValue,
		&stats.TotalPrincipal,
		&stats.TotalPoints,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to compute platform stats: %w", err)
	}

	return stats, nil
}
