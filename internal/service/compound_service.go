package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"nextvault/internal/domain"
)

const (
	// sweepLockKey guards against overlapping sweep invocations.
	sweepLockKey = "compound-sweep"
	sweepLockTTL = 10 * time.Minute

	// sweepWorkers bounds concurrent per-position updates.
	sweepWorkers = 8
)

// CompoundService runs the scheduled compounding sweep: it rolls accrued
// yield into every eligible position and credits the matching points.
// Each position is its own unit of work; one failure never aborts the
// sweep.
type CompoundService struct {
	positionRepo domain.PositionRepository
	strategyRepo domain.StrategyRepository
	pointsRepo   domain.PointsRepository
	activityRepo domain.ActivityRepository
	locks        domain.LockManager
	cache        domain.LeaderboardCache
}

// NewCompoundService creates a new CompoundService
func NewCompoundService(
	positionRepo domain.PositionRepository,
	strategyRepo domain.StrategyRepository,
	pointsRepo domain.PointsRepository,
	activityRepo domain.ActivityRepository,
	locks domain.LockManager,
	cache domain.LeaderboardCache,
) *CompoundService {
	return &CompoundService{
		positionRepo: positionRepo,
		strategyRepo: strategyRepo,
		pointsRepo:   pointsRepo,
		activityRepo: activityRepo,
		locks:        locks,
		cache:        cache,
	}
}

// RunSweep compounds all eligible auto-compound positions and returns a
// per-item tally. It returns domain.ErrLockHeld when another sweep is
// already running.
func (s *CompoundService) RunSweep(ctx context.Context) (*domain.SweepReport, error) {
	unlock, err := s.locks.Acquire(ctx, sweepLockKey, sweepLockTTL)
	if err != nil {
		return nil, err
	}
	defer unlock()

	report := &domain.SweepReport{StartedAt: time.Now()}

	positions, err := s.positionRepo.GetCompoundCandidates(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get compound candidates: %w", err)
	}

	if len(positions) == 0 {
		report.FinishedAt = time.Now()
		return report, nil
	}

	log.Printf("[SWEEP] Found %d auto-compound position(s)", len(positions))

	strategies, err := s.strategyRepo.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load strategies: %w", err)
	}
	strategyByID := make(map[uuid.UUID]*domain.Strategy, len(strategies))
	for _, strategy := range strategies {
		strategyByID[strategy.ID] = strategy
	}

	var mu sync.Mutex
	record := func(item domain.SweepItem) {
		mu.Lock()
		defer mu.Unlock()
		report.Items = append(report.Items, item)
		if item.Success {
			report.Compounded++
		} else if item.Error != "" {
			report.Failed++
		} else {
			report.Skipped++
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(sweepWorkers)

	for _, position := range positions {
		position := position
		g.Go(func() error {
			s.sweepOne(gctx, position, strategyByID, record)
			// Per-position failures are tallied, never propagated.
			return nil
		})
	}

	// Only a cancelled context can surface here.
	if err := g.Wait(); err != nil {
		return nil, err
	}

	report.Eligible = report.Compounded + report.Failed
	report.FinishedAt = time.Now()

	if report.Compounded > 0 {
		if err := s.cache.Invalidate(ctx); err != nil {
			log.Printf("WARNING: Failed to invalidate leaderboard cache: %v", err)
		}
	}

	log.Printf("[SWEEP] Complete: %d compounded, %d skipped, %d failed (took %s)",
		report.Compounded, report.Skipped, report.Failed,
		report.FinishedAt.Sub(report.StartedAt).Round(time.Millisecond))

	return report, nil
}

// sweepOne processes a single position. Eligibility misses are recorded
// as skips; a missing strategy or a persistence failure is recorded as a
// per-item failure.
func (s *CompoundService) sweepOne(
	ctx context.Context,
	position *domain.Position,
	strategyByID map[uuid.UUID]*domain.Strategy,
	record func(domain.SweepItem),
) {
	now := time.Now()

	strategy, ok := strategyByID[position.StrategyID]
	if !ok {
		log.Printf("ERROR: Position %s references missing strategy %s", position.ID, position.StrategyID)
		record(domain.SweepItem{
			PositionID: position.ID,
			Error:      "strategy not found",
		})
		return
	}

	outcome, due := domain.Compound(position, strategy, now)
	if !due {
		record(domain.SweepItem{PositionID: position.ID})
		return
	}

	err := s.positionRepo.ApplyCompound(ctx, position.ID, position.Version, outcome, now)
	if err != nil {
		// A version conflict means the position was withdrawn or already
		// compounded since we read it. That position is simply skipped.
		if errors.Is(err, domain.ErrVersionConflict) {
			record(domain.SweepItem{PositionID: position.ID})
			return
		}
		log.Printf("ERROR: Failed to compound position %s: %v", position.ID, err)
		record(domain.SweepItem{
			PositionID: position.ID,
			Error:      err.Error(),
		})
		return
	}

	// Points crediting and activity logging are best-effort once the
	// position row is committed.
	entry := &domain.PointsEntry{
		ID:          uuid.New(),
		UserID:      position.UserID,
		Points:      outcome.PointsEarned,
		Multiplier:  strategy.PointsMultiplier,
		ActionType:  domain.ActionAutoCompound,
		Description: "Auto-compound yield from vault",
		CreatedAt:   now,
	}
	if err := s.pointsRepo.Append(ctx, entry); err != nil {
		log.Printf("WARNING: Failed to credit compound points for user %s: %v", position.UserID, err)
	}

	activity := &domain.Activity{
		ID:           uuid.New(),
		UserID:       position.UserID,
		ActivityType: domain.ActivityAutoCompound,
		Description:  fmt.Sprintf("Auto-compounded vault position: +$%.2f", outcome.YieldEarned),
		Metadata: map[string]any{
			"position_id":   position.ID.String(),
			"yield_earned":  outcome.YieldEarned,
			"points_earned": outcome.PointsEarned,
			"new_value":     outcome.NewValue,
		},
		CreatedAt: now,
	}
	if err := s.activityRepo.Insert(ctx, activity); err != nil {
		log.Printf("WARNING: Failed to log compound activity for user %s: %v", position.UserID, err)
	}

	record(domain.SweepItem{
		PositionID:   position.ID,
		Success:      true,
		YieldEarned:  outcome.YieldEarned,
		PointsEarned: outcome.PointsEarned,
		NewValue:     outcome.NewValue,
	})
}
