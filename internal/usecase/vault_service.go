package usecase

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"nextvault/internal/domain"
	"nextvault/internal/service"
)

// VaultService handles deposits, withdrawal settlement and portfolio
// reads. The settlement arithmetic itself lives in the domain package;
// this layer owns validation, persistence ordering and the best-effort
// side effects.
type VaultService struct {
	positionRepo domain.PositionRepository
	strategyRepo domain.StrategyRepository
	userRepo     domain.UserRepository
	activityRepo domain.ActivityRepository
	points       *service.PointsService
	chain        domain.ChainReader
}

// NewVaultService creates a new VaultService. chain may be nil when no
// RPC endpoint is configured; portfolios then omit on-chain balances.
func NewVaultService(
	positionRepo domain.PositionRepository,
	strategyRepo domain.StrategyRepository,
	userRepo domain.UserRepository,
	activityRepo domain.ActivityRepository,
	points *service.PointsService,
	chain domain.ChainReader,
) *VaultService {
	return &VaultService{
		positionRepo: positionRepo,
		strategyRepo: strategyRepo,
		userRepo:     userRepo,
		activityRepo: activityRepo,
		points:       points,
		chain:        chain,
	}
}

// Deposit validates and creates a new position. The referral bonus and
// the activity record are fire-and-forget: their failure never rolls
// back the deposit.
func (s *VaultService) Deposit(ctx context.Context, userID, strategyID uuid.UUID, amount float64, txHash *string) (*domain.Position, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("%w: amount must be positive", domain.ErrInvalidInput)
	}

	strategy, err := s.strategyRepo.GetByID(ctx, strategyID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrStrategyInactive
		}
		return nil, err
	}
	if !strategy.IsActive {
		return nil, domain.ErrStrategyInactive
	}
	if amount < strategy.MinDeposit {
		return nil, fmt.Errorf("%w: minimum deposit for %s is %.2f",
			domain.ErrInvalidInput, strategy.Name, strategy.MinDeposit)
	}

	// First-deposit check drives the referral bonus below.
	existing, err := s.positionRepo.CountByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	firstDeposit := existing == 0

	now := time.Now()
	entryPrice := 1.0
	position := &domain.Position{
		ID:                uuid.New(),
		UserID:            userID,
		StrategyID:        strategy.ID,
		Principal:         amount,
		EntryPrice:        entryPrice,
		CurrentValue:      amount * entryPrice,
		PointsEarned:      0,
		AutoCompound:      true,
		CompoundFrequency: domain.FrequencyDaily,
		MinLockDays:       strategy.MinLockDays,
		PenaltyPercent:    strategy.PenaltyPercent,
		Status:            domain.PositionActive,
		TxHash:            txHash,
		Version:           1,
		CreatedAt:         now,
		LastCompoundAt:    now,
		UpdatedAt:         now,
	}

	if err := s.positionRepo.Save(ctx, position); err != nil {
		return nil, err
	}

	log.Printf("[OK] Deposit accepted: user=%s strategy=%s amount=%.2f position=%s",
		userID, strategy.Name, amount, position.ID)

	go s.afterDeposit(position, strategy, firstDeposit)

	return position, nil
}

// afterDeposit runs the best-effort side effects of an accepted deposit
// on a background context so a slow insert never blocks the response.
func (s *VaultService) afterDeposit(position *domain.Position, strategy *domain.Strategy, firstDeposit bool) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	s.logActivity(ctx, &domain.Activity{
		ID:           uuid.New(),
		UserID:       position.UserID,
		ActivityType: domain.ActivityDeposit,
		Description:  fmt.Sprintf("Deposited %.2f into %s", position.Principal, strategy.Name),
		Metadata: map[string]any{
			"position_id":   position.ID.String(),
			"strategy_id":   strategy.ID.String(),
			"strategy_name": strategy.Name,
			"amount":        position.Principal,
		},
		CreatedAt: time.Now(),
	})

	if firstDeposit {
		if err := s.points.ProcessReferralBonus(ctx, position.UserID, position.Principal); err != nil {
			log.Printf("WARNING: Referral bonus processing failed for user %s: %v", position.UserID, err)
		}
	}
}

// PreviewWithdrawal computes the settlement breakdown without mutating
// anything, so the user can see the penalty before confirming.
func (s *VaultService) PreviewWithdrawal(ctx context.Context, userID, positionID uuid.UUID) (*domain.WithdrawalQuote, error) {
	position, err := s.ownedActivePosition(ctx, userID, positionID)
	if err != nil {
		return nil, err
	}

	quote := domain.QuoteWithdrawal(position, time.Now())
	return &quote, nil
}

// Withdraw settles a position exactly once. If the compounding sweep
// updates the row between our read and the conditional update, the
// settlement is recomputed against the fresh row and retried once.
func (s *VaultService) Withdraw(ctx context.Context, userID, positionID uuid.UUID) (*domain.WithdrawalQuote, error) {
	for attempt := 0; attempt < 2; attempt++ {
		position, err := s.ownedActivePosition(ctx, userID, positionID)
		if err != nil {
			return nil, err
		}

		now := time.Now()
		quote := domain.QuoteWithdrawal(position, now)

		err = s.positionRepo.Settle(ctx, position.ID, userID, position.Version, quote.TotalAmount, now)
		if err != nil {
			if errors.Is(err, domain.ErrVersionConflict) {
				continue
			}
			return nil, err
		}

		log.Printf("[OK] Position settled: user=%s position=%s payout=%.2f penalty=%.2f",
			userID, position.ID, quote.TotalAmount, quote.PenaltyAmount)

		go s.afterWithdrawal(position, quote)

		return &quote, nil
	}

	return nil, domain.ErrVersionConflict
}

func (s *VaultService) afterWithdrawal(position *domain.Position, quote domain.WithdrawalQuote) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	s.logActivity(ctx, &domain.Activity{
		ID:           uuid.New(),
		UserID:       position.UserID,
		ActivityType: domain.ActivityWithdrawal,
		Description:  fmt.Sprintf("Withdrew from vault: $%.2f", quote.TotalAmount),
		Metadata: map[string]any{
			"position_id":     position.ID.String(),
			"principal":       quote.Principal,
			"yield_earned":    quote.YieldEarned,
			"penalty_amount":  quote.PenaltyAmount,
			"penalty_applied": quote.PenaltyApplied,
		},
		CreatedAt: time.Now(),
	})
}

// ownedActivePosition loads a position and enforces ownership and the
// active status. A foreign position is reported as not found rather than
// forbidden so position IDs cannot be probed.
func (s *VaultService) ownedActivePosition(ctx context.Context, userID, positionID uuid.UUID) (*domain.Position, error) {
	position, err := s.positionRepo.GetByID(ctx, positionID)
	if err != nil {
		return nil, err
	}
	if position.UserID != userID {
		return nil, domain.ErrNotFound
	}
	if !position.IsActive() {
		return nil, domain.ErrAlreadySettled
	}
	return position, nil
}

// GetPositions returns all of a user's positions, newest first.
func (s *VaultService) GetPositions(ctx context.Context, userID uuid.UUID) ([]*domain.Position, error) {
	return s.positionRepo.GetByUserID(ctx, userID)
}

// SetAutoCompound toggles scheduled compounding for a position.
func (s *VaultService) SetAutoCompound(ctx context.Context, userID, positionID uuid.UUID, enabled bool, frequency string) error {
	if !domain.ValidFrequency(frequency) {
		return fmt.Errorf("%w: unknown compound frequency %q", domain.ErrInvalidInput, frequency)
	}
	return s.positionRepo.SetAutoCompound(ctx, positionID, userID, enabled, frequency)
}

// GetPortfolio aggregates the user's positions and, when a wallet is
// linked and an RPC endpoint is configured, their on-chain balances.
func (s *VaultService) GetPortfolio(ctx context.Context, userID uuid.UUID) (*domain.Portfolio, error) {
	positions, err := s.positionRepo.GetByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}

	portfolio := &domain.Portfolio{Positions: positions}
	for _, position := range positions {
		if !position.IsActive() {
			continue
		}
		portfolio.TotalPrincipal += position.Principal
		portfolio.TotalValue += position.CurrentValue
		portfolio.TotalYield += position.YieldEarned()
		portfolio.TotalPoints += position.PointsEarned
		portfolio.ActivePositions++
	}

	if s.chain != nil {
		user, err := s.userRepo.GetByID(ctx, userID)
		if err != nil {
			return nil, err
		}
		if user.WalletAddress != nil {
			onchain, err := s.chain.GetOnChainBalances(ctx, *user.WalletAddress)
			if err != nil {
				// The DB-side portfolio is still useful without RPC.
				log.Printf("WARNING: On-chain balance read failed for %s: %v", *user.WalletAddress, err)
			} else {
				portfolio.OnChain = onchain
			}
		}
	}

	return portfolio, nil
}

// GetActivity returns a user's recent activity log.
func (s *VaultService) GetActivity(ctx context.Context, userID uuid.UUID, limit int) ([]*domain.Activity, error) {
	if limit < 1 || limit > 100 {
		limit = 50
	}
	return s.activityRepo.GetByUserID(ctx, userID, limit)
}

func (s *VaultService) logActivity(ctx context.Context, activity *domain.Activity) {
	if err := s.activityRepo.Insert(ctx, activity); err != nil {
		log.Printf("WARNING: Failed to log activity %s for user %s: %v",
			activity.ActivityType, activity.UserID, err)
	}
}
