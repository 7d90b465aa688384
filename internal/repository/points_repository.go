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

// PointsRepositoryImpl implements the PointsRepository interface
type PointsRepositoryImpl struct {
	db *pgxpool.Pool
}

// NewPointsRepository creates a new PointsRepository
func NewPointsRepository(db *pgxpool.Pool) domain.PointsRepository {
	return &PointsRepositoryImpl{db: db}
}

// Append inserts a ledger entry and bumps the user's running total in
// the same transaction. The ledger is append-only; totals are never
// written directly by callers.
func (r *PointsRepositoryImpl) Append(ctx context.Context, entry *domain.PointsEntry) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin points transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		INSERT INTO points_history (id, user_id, points, multiplier, action_type, description, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`,
		entry.ID,
		entry.UserID,
		entry.Points,
		entry.Multiplier,
		entry.ActionType,
		entry.Description,
		entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert points entry: %w", err)
	}

	tag, err := tx.Exec(ctx, `
		UPDATE users
		SET total_points = total_points + $1,
		    updated_at = now()
		WHERE id = $2
	`, entry.Points, entry.UserID)
	if err != nil {
		return fmt.Errorf("failed to update user points total: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit points transaction: %w", err)
	}

	return nil
}

// GetUserPoints retrieves a user's total, rank and recent history
func (r *PointsRepositoryImpl) GetUserPoints(ctx context.Context, userID uuid.UUID, historyLimit int) (*domain.UserPoints, error) {
	result := &domain.UserPoints{UserID: userID}

	var rank int
	err := r.db.QueryRow(ctx, `
		SELECT total_points,
		       (SELECT COUNT(*) + 1 FROM users u2 WHERE u2.total_points > u1.total_points)
		FROM users u1
		WHERE id = $1
	`, userID).Scan(&result.TotalPoints, &rank)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get user points: %w", err)
	}
	if result.TotalPoints > 0 {
		result.Rank = &rank
	}

	rows, err := r.db.Query(ctx, `
		SELECT id, user_id, points, multiplier, action_type, description, created_at
		FROM points_history
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, userID, historyLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to query points history: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		entry := &domain.PointsEntry{}
		err := rows.Scan(
			&entry.ID,
			&entry.UserID,
			&entry.Points,
			&entry.Multiplier,
			&entry.ActionType,
			&entry.Description,
			&entry.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan points entry: %w", err)
		}
		result.History = append(result.History, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating points history: %w", err)
	}

	return result, nil
}

// GetLeaderboard retrieves one page of the global ranking
func (r *PointsRepositoryImpl) GetLeaderboard(ctx context.Context, page, limit int) (*domain.LeaderboardPage, error) {
	offset := (page - 1) * limit

	result := &domain.LeaderboardPage{Page: page, Limit: limit}

	err := r.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM users WHERE total_points > 0`,
	).Scan(&result.TotalUsers)
	if err != nil {
		return nil, fmt.Errorf("failed to count leaderboard users: %w", err)
	}

	rows, err := r.db.Query(ctx, `
		SELECT RANK() OVER (ORDER BY total_points DESC) AS rank,
		       id, username, wallet_address, total_points
		FROM users
		WHERE total_points > 0
		ORDER BY total_points DESC, created_at ASC
		LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query leaderboard: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		entry := &domain.LeaderboardEntry{}
		err := rows.Scan(
			&entry.Rank,
			&entry.UserID,
			&entry.Username,
			&entry.WalletAddress,
			&entry.TotalPoints,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan leaderboard entry: %w", err)
		}
		result.Entries = append(result.Entries, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating leaderboard: %w", err)
	}

	return result, nil
}
