package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"nextvault/internal/domain"
)

const (
	// SignupBonusPoints is credited once when a user registers.
	SignupBonusPoints = 100.0

	// ReferralBonusRate is applied to the first deposit amount and
	// credited to both the referrer and the referee.
	ReferralBonusRate = 0.05

	// leaderboardTTL bounds staleness of cached leaderboard pages.
	leaderboardTTL = 30 * time.Second

	// pointsHistoryLimit caps the history returned with a user's standing.
	pointsHistoryLimit = 30

	maxLeaderboardLimit = 100
)

// PointsService owns the points ledger and the leaderboard.
type PointsService struct {
	pointsRepo domain.PointsRepository
	userRepo   domain.UserRepository
	cache      domain.LeaderboardCache
}

// NewPointsService creates a new PointsService
func NewPointsService(
	pointsRepo domain.PointsRepository,
	userRepo domain.UserRepository,
	cache domain.LeaderboardCache,
) *PointsService {
	return &PointsService{
		pointsRepo: pointsRepo,
		userRepo:   userRepo,
		cache:      cache,
	}
}

// GetUserPoints returns a user's total, rank and recent ledger history.
func (s *PointsService) GetUserPoints(ctx context.Context, userID uuid.UUID) (*domain.UserPoints, error) {
	return s.pointsRepo.GetUserPoints(ctx, userID, pointsHistoryLimit)
}

// GetLeaderboard returns one page of the global ranking, served from the
// cache when a fresh copy exists.
func (s *PointsService) GetLeaderboard(ctx context.Context, page, limit int) (*domain.LeaderboardPage, error) {
	if page < 1 || limit < 1 || limit > maxLeaderboardLimit {
		return nil, fmt.Errorf("%w: page must be >= 1, limit must be between 1 and %d",
			domain.ErrInvalidInput, maxLeaderboardLimit)
	}

	cached, err := s.cache.Get(ctx, page, limit)
	if err == nil {
		return cached, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		log.Printf("WARNING: Leaderboard cache read failed: %v", err)
	}

	pageData, err := s.pointsRepo.GetLeaderboard(ctx, page, limit)
	if err != nil {
		return nil, err
	}

	if err := s.cache.Set(ctx, pageData, leaderboardTTL); err != nil {
		log.Printf("WARNING: Leaderboard cache write failed: %v", err)
	}

	return pageData, nil
}

// Award appends a ledger entry and drops cached leaderboard pages.
func (s *PointsService) Award(ctx context.Context, userID uuid.UUID, points, multiplier float64, action, description string) error {
	if points <= 0 {
		return fmt.Errorf("%w: points must be positive", domain.ErrInvalidInput)
	}

	entry := &domain.PointsEntry{
		ID:          uuid.New(),
		UserID:      userID,
		Points:      points,
		Multiplier:  multiplier,
		ActionType:  action,
		Description: description,
		CreatedAt:   time.Now(),
	}
	if err := s.pointsRepo.Append(ctx, entry); err != nil {
		return err
	}

	if err := s.cache.Invalidate(ctx); err != nil {
		log.Printf("WARNING: Failed to invalidate leaderboard cache: %v", err)
	}

	return nil
}

// AwardSignupBonus credits the one-time registration bonus.
func (s *PointsService) AwardSignupBonus(ctx context.Context, userID uuid.UUID) error {
	return s.Award(ctx, userID, SignupBonusPoints, 1, domain.ActionSignupBonus, "Welcome bonus")
}

// ProcessReferralBonus credits both sides of a referral after the
// referee's first deposit. Callers treat this as best-effort: its
// failure must never roll back the deposit that triggered it.
func (s *PointsService) ProcessReferralBonus(ctx context.Context, refereeID uuid.UUID, depositAmount float64) error {
	referee, err := s.userRepo.GetByID(ctx, refereeID)
	if err != nil {
		return err
	}
	if referee.ReferredBy == nil {
		return nil // nothing to do
	}

	bonus := depositAmount * ReferralBonusRate
	if bonus <= 0 {
		return nil
	}

	if err := s.Award(ctx, *referee.ReferredBy, bonus, 1, domain.ActionReferralBonus,
		fmt.Sprintf("Referral bonus: %s made their first deposit", referee.Username)); err != nil {
		return fmt.Errorf("failed to credit referrer: %w", err)
	}

	if err := s.Award(ctx, referee.ID, bonus, 1, domain.ActionReferralBonus,
		"Referral bonus: first deposit with a referral code"); err != nil {
		return fmt.Errorf("failed to credit referee: %w", err)
	}

	return nil
}
