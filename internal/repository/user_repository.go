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

// UserRepositoryImpl implements the UserRepository interface
type UserRepositoryImpl struct {
	db *pgxpool.Pool
}

// NewUserRepository creates a new UserRepository
func NewUserRepository(db *pgxpool.Pool) domain.UserRepository {
	return &UserRepositoryImpl{db: db}
}

const userSelectCols = `id, username, password_hash, wallet_address, role,
	referral_code, referred_by, total_points, created_at, updated_at`

func scanUserRow(row pgx.Row) (*domain.User, error) {
	u := &domain.User{}
	err := row.Scan(
		&u.ID, &u.Username, &u.PasswordHash, &u.WalletAddress, &u.Role,
		&u.ReferralCode, &u.ReferredBy, &u.TotalPoints, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return u, nil
}

// Create creates a new user
func (r *UserRepositoryImpl) Create(ctx context.Context, user *domain.User) error {
	query := `
		INSERT INTO users (
			id, username, password_hash, wallet_address, role,
			referral_code, referred_by, total_points, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10
		)
	`

	_, err := r.db.Exec(ctx, query,
		user.ID,
		user.Username,
		user.PasswordHash,
		user.WalletAddress,
		user.Role,
		user.ReferralCode,
		user.ReferredBy,
		user.TotalPoints,
		user.CreatedAt,
		user.UpdatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}

	return nil
}

// GetByID retrieves a user by ID
func (r *UserRepositoryImpl) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	return r.getOne(ctx, `SELECT `+userSelectCols+` FROM users WHERE id = $1`, id)
}

// GetByUsername retrieves a user by username
func (r *UserRepositoryImpl) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	return r.getOne(ctx, `SELECT `+userSelectCols+` FROM users WHERE username = $1`, username)
}

// GetByWallet retrieves a user by linked wallet address
func (r *UserRepositoryImpl) GetByWallet(ctx context.Context, address string) (*domain.User, error) {
	return r.getOne(ctx, `SELECT `+userSelectCols+` FROM users WHERE LOWER(wallet_address) = LOWER($1)`, address)
}

// GetByReferralCode retrieves a user by referral code
func (r *UserRepositoryImpl) GetByReferralCode(ctx context.Context, code string) (*domain.User, error) {
	return r.getOne(ctx, `SELECT `+userSelectCols+` FROM users WHERE referral_code = $1`, code)
}

func (r *UserRepositoryImpl) getOne(ctx context.Context, query string, arg any) (*domain.User, error) {
	user, err := scanUserRow(r.db.QueryRow(ctx, query, arg))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

// LinkWallet records a verified wallet address for a user
func (r *UserRepositoryImpl) LinkWallet(ctx context.Context, userID uuid.UUID, address string) error {
	query := `
		UPDATE users
		SET wallet_address = $1,
		    updated_at = now()
		WHERE id = $2
	`

	tag, err := r.db.Exec(ctx, query, address, userID)
	if err != nil {
		return fmt.Errorf("failed to link wallet: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}

	return nil
}
