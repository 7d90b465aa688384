package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nextvault/internal/domain"
)

type memPositionRepo struct {
	mu        sync.Mutex
	positions map[uuid.UUID]*domain.Position
}

func newMemPositionRepo(positions ...*domain.Position) *memPositionRepo {
	r := &memPositionRepo{positions: make(map[uuid.UUID]*domain.Position)}
	for _, p := range positions {
		cp := *p
		r.positions[p.ID] = &cp
	}
	return r
}

func (r *memPositionRepo) Save(_ context.Context, position *domain.Position) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *position
	r.positions[position.ID] = &cp
	return nil
}

func (r *memPositionRepo) GetByID(_ context.Context, id uuid.UUID) (*domain.Position, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	position, ok := r.positions[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *position
	return &cp, nil
}

func (r *memPositionRepo) GetByUserID(_ context.Context, userID uuid.UUID) ([]*domain.Position, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.Position
	for _, p := range r.positions {
		if p.UserID == userID {
			cp := *p
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *memPositionRepo) GetCompoundCandidates(_ context.Context) ([]*domain.Position, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.Position
	for _, p := range r.positions {
		if p.Status == domain.PositionActive && p.AutoCompound {
			cp := *p
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *memPositionRepo) ApplyCompound(_ context.Context, id uuid.UUID, version int64, outcome domain.CompoundOutcome, now time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	position, ok := r.positions[id]
	if !ok || position.Status != domain.PositionActive || position.Version != version {
		return domain.ErrVersionConflict
	}
	position.CurrentValue = outcome.NewValue
	position.PointsEarned += outcome.PointsEarned
	position.LastCompoundAt = now
	position.Version++
	return nil
}

func (r *memPositionRepo) Settle(_ context.Context, id, userID uuid.UUID, version int64, totalAmount float64, now time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	position, ok := r.positions[id]
	if !ok || position.UserID != userID {
		return domain.ErrNotFound
	}
	if position.Status != domain.PositionActive {
		return domain.ErrAlreadySettled
	}
	if position.Version != version {
		return domain.ErrVersionConflict
	}
	position.Status = domain.PositionWithdrawn
	position.CurrentValue = totalAmount
	position.WithdrawnAt = &now
	position.Version++
	return nil
}

func (r *memPositionRepo) SetAutoCompound(_ context.Context, id, userID uuid.UUID, enabled bool, frequency string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	position, ok := r.positions[id]
	if !ok || position.UserID != userID {
		return domain.ErrNotFound
	}
	position.AutoCompound = enabled
	position.CompoundFrequency = frequency
	return nil
}

func (r *memPositionRepo) CountByUserID(_ context.Context, userID uuid.UUID) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, p := range r.positions {
		if p.UserID == userID {
			n++
		}
	}
	return n, nil
}

type memStrategyRepo struct {
	strategies map[uuid.UUID]*domain.Strategy
}

func newMemStrategyRepo(strategies ...*domain.Strategy) *memStrategyRepo {
	r := &memStrategyRepo{strategies: make(map[uuid.UUID]*domain.Strategy)}
	for _, s := range strategies {
		r.strategies[s.ID] = s
	}
	return r
}

func (r *memStrategyRepo) Create(_ context.Context, strategy *domain.Strategy) error {
	r.strategies[strategy.ID] = strategy
	return nil
}

func (r *memStrategyRepo) GetByID(_ context.Context, id uuid.UUID) (*domain.Strategy, error) {
	strategy, ok := r.strategies[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return strategy, nil
}

func (r *memStrategyRepo) GetAll(_ context.Context) ([]*domain.Strategy, error) {
	var out []*domain.Strategy
	for _, s := range r.strategies {
		out = append(out, s)
	}
	return out, nil
}

func (r *memStrategyRepo) GetActive(_ context.Context) ([]*domain.Strategy, error) {
	var out []*domain.Strategy
	for _, s := range r.strategies {
		if s.IsActive {
			out = append(out, s)
		}
	}
	return out, nil
}

func (r *memStrategyRepo) Update(_ context.Context, strategy *domain.Strategy) error {
	r.strategies[strategy.ID] = strategy
	return nil
}

type memPointsRepo struct {
	mu      sync.Mutex
	entries []*domain.PointsEntry
}

func (r *memPointsRepo) Append(_ context.Context, entry *domain.PointsEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, entry)
	return nil
}

func (r *memPointsRepo) GetUserPoints(_ context.Context, userID uuid.UUID, historyLimit int) (*domain.UserPoints, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	up := &domain.UserPoints{UserID: userID}
	for _, e := range r.entries {
		if e.UserID == userID {
			up.TotalPoints += e.Points
			if len(up.History) < historyLimit {
				up.History = append(up.History, e)
			}
		}
	}
	return up, nil
}

func (r *memPointsRepo) GetLeaderboard(_ context.Context, page, limit int) (*domain.LeaderboardPage, error) {
	return &domain.LeaderboardPage{Page: page, Limit: limit}, nil
}

func (r *memPointsRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

type memActivityRepo struct {
	mu      sync.Mutex
	entries []*domain.Activity
}

func (r *memActivityRepo) Insert(_ context.Context, activity *domain.Activity) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, activity)
	return nil
}

func (r *memActivityRepo) GetByUserID(_ context.Context, userID uuid.UUID, limit int) ([]*domain.Activity, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.Activity
	for _, a := range r.entries {
		if a.UserID == userID {
			out = append(out, a)
		}
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// memLock hands out the lock to one holder at a time.
type memLock struct {
	mu   sync.Mutex
	held bool
}

func (l *memLock) Acquire(_ context.Context, _ string, _ time.Duration) (func(), error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held {
		return nil, domain.ErrLockHeld
	}
	l.held = true
	return func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		l.held = false
	}, nil
}

type memCache struct {
	mu            sync.Mutex
	invalidations int
}

func (c *memCache) Get(context.Context, int, int) (*domain.LeaderboardPage, error) {
	return nil, domain.ErrNotFound
}

func (c *memCache) Set(context.Context, *domain.LeaderboardPage, time.Duration) error { return nil }

func (c *memCache) Invalidate(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.invalidations++
	return nil
}

func sweepPosition(strategyID uuid.UUID, lastCompound time.Time) *domain.Position {
	return &domain.Position{
		ID:                uuid.New(),
		UserID:            uuid.New(),
		StrategyID:        strategyID,
		Principal:         1000,
		EntryPrice:        1.0,
		CurrentValue:      1000,
		AutoCompound:      true,
		CompoundFrequency: domain.FrequencyDaily,
		Status:            domain.PositionActive,
		Version:           1,
		CreatedAt:         lastCompound,
		LastCompoundAt:    lastCompound,
	}
}

func TestRunSweep_CompoundsDuePositions(t *testing.T) {
	strategy := &domain.Strategy{
		ID:               uuid.New(),
		Name:             "Boosted USDC Vault",
		BaseAPY:          8.5,
		PointsMultiplier: 2.0,
		IsActive:         true,
	}

	dayAgo := time.Now().Add(-25 * time.Hour)
	justNow := time.Now().Add(-time.Hour)

	due := sweepPosition(strategy.ID, dayAgo)
	notDue := sweepPosition(strategy.ID, justNow)

	posRepo := newMemPositionRepo(due, notDue)
	pointsRepo := &memPointsRepo{}
	activityRepo := &memActivityRepo{}
	cache := &memCache{}

	svc := NewCompoundService(posRepo, newMemStrategyRepo(strategy), pointsRepo, activityRepo, &memLock{}, cache)

	report, err := svc.RunSweep(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, report.Compounded)
	assert.Equal(t, 1, report.Skipped)
	assert.Equal(t, 0, report.Failed)
	assert.Len(t, report.Items, 2)

	updated, err := posRepo.GetByID(context.Background(), due.ID)
	require.NoError(t, err)
	assert.Greater(t, updated.CurrentValue, due.CurrentValue)
	assert.Greater(t, updated.PointsEarned, 0.0)
	assert.Equal(t, int64(2), updated.Version)

	untouched, err := posRepo.GetByID(context.Background(), notDue.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), untouched.Version)

	assert.Equal(t, 1, pointsRepo.count())
	assert.Equal(t, 1, cache.invalidations)
}

func TestRunSweep_MissingStrategyIsIsolatedFailure(t *testing.T) {
	strategy := &domain.Strategy{
		ID:               uuid.New(),
		Name:             "Stable Yield Vault",
		BaseAPY:          4.2,
		PointsMultiplier: 1.0,
		IsActive:         true,
	}

	dayAgo := time.Now().Add(-25 * time.Hour)
	healthy := sweepPosition(strategy.ID, dayAgo)
	orphaned := sweepPosition(uuid.New(), dayAgo)

	posRepo := newMemPositionRepo(healthy, orphaned)
	svc := NewCompoundService(posRepo, newMemStrategyRepo(strategy), &memPointsRepo{}, &memActivityRepo{}, &memLock{}, &memCache{})

	report, err := svc.RunSweep(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, report.Compounded)
	assert.Equal(t, 1, report.Failed)
	assert.Equal(t, 2, report.Eligible)

	var failedItem *domain.SweepItem
	for i := range report.Items {
		if report.Items[i].Error != "" {
			failedItem = &report.Items[i]
		}
	}
	require.NotNil(t, failedItem)
	assert.Equal(t, orphaned.ID, failedItem.PositionID)
}

// conflictingPositionRepo simulates a row that changed between the
// candidate read and the conditional update.
type conflictingPositionRepo struct {
	*memPositionRepo
}

func (r *conflictingPositionRepo) ApplyCompound(context.Context, uuid.UUID, int64, domain.CompoundOutcome, time.Time) error {
	return domain.ErrVersionConflict
}

func TestRunSweep_VersionConflictCountsAsSkip(t *testing.T) {
	strategy := &domain.Strategy{
		ID:               uuid.New(),
		Name:             "Boosted USDC Vault",
		BaseAPY:          8.5,
		PointsMultiplier: 2.0,
		IsActive:         true,
	}

	dayAgo := time.Now().Add(-25 * time.Hour)
	position := sweepPosition(strategy.ID, dayAgo)

	posRepo := &conflictingPositionRepo{newMemPositionRepo(position)}
	pointsRepo := &memPointsRepo{}
	cache := &memCache{}

	svc := NewCompoundService(posRepo, newMemStrategyRepo(strategy), pointsRepo, &memActivityRepo{}, &memLock{}, cache)

	report, err := svc.RunSweep(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 0, report.Compounded)
	assert.Equal(t, 1, report.Skipped)
	assert.Equal(t, 0, report.Failed)
	assert.Equal(t, 0, pointsRepo.count())
	assert.Equal(t, 0, cache.invalidations)
}

func TestRunSweep_LockHeld(t *testing.T) {
	lock := &memLock{}
	_, err := lock.Acquire(context.Background(), "compound-sweep", time.Minute)
	require.NoError(t, err)

	svc := NewCompoundService(newMemPositionRepo(), newMemStrategyRepo(), &memPointsRepo{}, &memActivityRepo{}, lock, &memCache{})

	_, err = svc.RunSweep(context.Background())
	assert.ErrorIs(t, err, domain.ErrLockHeld)
}

func TestRunSweep_ReleasesLock(t *testing.T) {
	lock := &memLock{}
	svc := NewCompoundService(newMemPositionRepo(), newMemStrategyRepo(), &memPointsRepo{}, &memActivityRepo{}, lock, &memCache{})

	_, err := svc.RunSweep(context.Background())
	require.NoError(t, err)

	// A second run must be able to take the lock again.
	_, err = svc.RunSweep(context.Background())
	require.NoError(t, err)
}

func TestRunSweep_EmptyCandidates(t *testing.T) {
	cache := &memCache{}
	svc := NewCompoundService(newMemPositionRepo(), newMemStrategyRepo(), &memPointsRepo{}, &memActivityRepo{}, &memLock{}, cache)

	report, err := svc.RunSweep(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 0, report.Eligible)
	assert.Empty(t, report.Items)
	assert.Equal(t, 0, cache.invalidations)
}
