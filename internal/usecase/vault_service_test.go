package usecase

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nextvault/internal/domain"
	"nextvault/internal/service"
)

// In-memory fakes. They implement the repository semantics the service
// relies on, including the version-conditional mutations.

type fakePositionRepo struct {
	mu        sync.Mutex
	positions map[uuid.UUID]*domain.Position

	// settleConflicts forces the next N Settle calls to report a
	// version conflict before applying anything.
	settleConflicts int
}

func newFakePositionRepo() *fakePositionRepo {
	return &fakePositionRepo{positions: make(map[uuid.UUID]*domain.Position)}
}

func (r *fakePositionRepo) Save(_ context.Context, position *domain.Position) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *position
	r.positions[position.ID] = &cp
	return nil
}

func (r *fakePositionRepo) GetByID(_ context.Context, id uuid.UUID) (*domain.Position, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	position, ok := r.positions[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *position
	return &cp, nil
}

func (r *fakePositionRepo) GetByUserID(_ context.Context, userID uuid.UUID) ([]*domain.Position, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.Position
	for _, position := range r.positions {
		if position.UserID == userID {
			cp := *position
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *fakePositionRepo) GetCompoundCandidates(_ context.Context) ([]*domain.Position, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.Position
	for _, position := range r.positions {
		if position.Status == domain.PositionActive && position.AutoCompound {
			cp := *position
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *fakePositionRepo) ApplyCompound(_ context.Context, id uuid.UUID, version int64, outcome domain.CompoundOutcome, now time.Time) error {
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
	position.UpdatedAt = now
	return nil
}

func (r *fakePositionRepo) Settle(_ context.Context, id, userID uuid.UUID, version int64, totalAmount float64, now time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.settleConflicts > 0 {
		r.settleConflicts--
		return domain.ErrVersionConflict
	}
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
	position.UpdatedAt = now
	return nil
}

func (r *fakePositionRepo) SetAutoCompound(_ context.Context, id, userID uuid.UUID, enabled bool, frequency string) error {
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

func (r *fakePositionRepo) CountByUserID(_ context.Context, userID uuid.UUID) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, position := range r.positions {
		if position.UserID == userID {
			n++
		}
	}
	return n, nil
}

type fakeStrategyRepo struct {
	mu         sync.Mutex
	strategies map[uuid.UUID]*domain.Strategy
}

func newFakeStrategyRepo(strategies ...*domain.Strategy) *fakeStrategyRepo {
	r := &fakeStrategyRepo{strategies: make(map[uuid.UUID]*domain.Strategy)}
	for _, s := range strategies {
		r.strategies[s.ID] = s
	}
	return r
}

func (r *fakeStrategyRepo) Create(_ context.Context, strategy *domain.Strategy) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.strategies[strategy.ID] = strategy
	return nil
}

func (r *fakeStrategyRepo) GetByID(_ context.Context, id uuid.UUID) (*domain.Strategy, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	strategy, ok := r.strategies[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return strategy, nil
}

func (r *fakeStrategyRepo) GetAll(_ context.Context) ([]*domain.Strategy, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.Strategy
	for _, s := range r.strategies {
		out = append(out, s)
	}
	return out, nil
}

func (r *fakeStrategyRepo) GetActive(_ context.Context) ([]*domain.Strategy, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.Strategy
	for _, s := range r.strategies {
		if s.IsActive {
			out = append(out, s)
		}
	}
	return out, nil
}

func (r *fakeStrategyRepo) Update(_ context.Context, strategy *domain.Strategy) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.strategies[strategy.ID]; !ok {
		return domain.ErrNotFound
	}
	r.strategies[strategy.ID] = strategy
	return nil
}

type fakeUserRepo struct {
	mu    sync.Mutex
	users map[uuid.UUID]*domain.User
}

func newFakeUserRepo(users ...*domain.User) *fakeUserRepo {
	r := &fakeUserRepo{users: make(map[uuid.UUID]*domain.User)}
	for _, u := range users {
		r.users[u.ID] = u
	}
	return r
}

func (r *fakeUserRepo) Create(_ context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.users[user.ID] = user
	return nil
}

func (r *fakeUserRepo) GetByID(_ context.Context, id uuid.UUID) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return user, nil
}

func (r *fakeUserRepo) GetByUsername(_ context.Context, username string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Username == username {
			return u, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *fakeUserRepo) GetByWallet(_ context.Context, address string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.WalletAddress != nil && strings.EqualFold(*u.WalletAddress, address) {
			return u, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *fakeUserRepo) GetByReferralCode(_ context.Context, code string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.ReferralCode == code {
			return u, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *fakeUserRepo) LinkWallet(_ context.Context, userID uuid.UUID, address string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[userID]
	if !ok {
		return domain.ErrNotFound
	}
	user.WalletAddress = &address
	return nil
}

type fakeActivityRepo struct {
	mu      sync.Mutex
	entries []*domain.Activity
}

func (r *fakeActivityRepo) Insert(_ context.Context, activity *domain.Activity) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, activity)
	return nil
}

func (r *fakeActivityRepo) GetByUserID(_ context.Context, userID uuid.UUID, limit int) ([]*domain.Activity, error) {
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

type fakePointsRepo struct {
	mu      sync.Mutex
	entries []*domain.PointsEntry
}

func (r *fakePointsRepo) Append(_ context.Context, entry *domain.PointsEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, entry)
	return nil
}

func (r *fakePointsRepo) GetUserPoints(_ context.Context, userID uuid.UUID, historyLimit int) (*domain.UserPoints, error) {
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

func (r *fakePointsRepo) GetLeaderboard(_ context.Context, page, limit int) (*domain.LeaderboardPage, error) {
	return &domain.LeaderboardPage{Page: page, Limit: limit}, nil
}

type noopCache struct{}

func (noopCache) Get(context.Context, int, int) (*domain.LeaderboardPage, error) {
	return nil, domain.ErrNotFound
}
func (noopCache) Set(context.Context, *domain.LeaderboardPage, time.Duration) error { return nil }
func (noopCache) Invalidate(context.Context) error                                  { return nil }

type vaultFixture struct {
	service  *VaultService
	posRepo  *fakePositionRepo
	userRepo *fakeUserRepo
	strategy *domain.Strategy
	user     *domain.User
}

func newVaultFixture(t *testing.T) *vaultFixture {
	t.Helper()

	strategy := &domain.Strategy{
		ID:               uuid.New(),
		Name:             "Boosted USDC Vault",
		BaseAPY:          8.5,
		PointsMultiplier: 2.0,
		MinLockDays:      7,
		PenaltyPercent:   0.10,
		MinDeposit:       100,
		IsActive:         true,
	}
	user := &domain.User{
		ID:           uuid.New(),
		Username:     "alice",
		Role:         domain.RoleUser,
		ReferralCode: "ALICE123",
	}

	posRepo := newFakePositionRepo()
	userRepo := newFakeUserRepo(user)
	points := service.NewPointsService(&fakePointsRepo{}, userRepo, noopCache{})

	return &vaultFixture{
		service:  NewVaultService(posRepo, newFakeStrategyRepo(strategy), userRepo, &fakeActivityRepo{}, points, nil),
		posRepo:  posRepo,
		userRepo: userRepo,
		strategy: strategy,
		user:     user,
	}
}

func TestDeposit_CreatesActivePosition(t *testing.T) {
	f := newVaultFixture(t)
	ctx := context.Background()

	position, err := f.service.Deposit(ctx, f.user.ID, f.strategy.ID, 1000, nil)
	require.NoError(t, err)

	assert.Equal(t, domain.PositionActive, position.Status)
	assert.Equal(t, 1000.0, position.Principal)
	assert.Equal(t, 1000.0, position.CurrentValue)
	assert.True(t, position.AutoCompound)
	assert.Equal(t, domain.FrequencyDaily, position.CompoundFrequency)
	assert.Equal(t, f.strategy.MinLockDays, position.MinLockDays)
	assert.Equal(t, f.strategy.PenaltyPercent, position.PenaltyPercent)
	assert.Equal(t, int64(1), position.Version)

	stored, err := f.posRepo.GetByID(ctx, position.ID)
	require.NoError(t, err)
	assert.Equal(t, position.ID, stored.ID)
}

func TestDeposit_RejectsInvalidAmounts(t *testing.T) {
	f := newVaultFixture(t)
	ctx := context.Background()

	_, err := f.service.Deposit(ctx, f.user.ID, f.strategy.ID, 0, nil)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = f.service.Deposit(ctx, f.user.ID, f.strategy.ID, -50, nil)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	// below the strategy minimum
	_, err = f.service.Deposit(ctx, f.user.ID, f.strategy.ID, 50, nil)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestDeposit_RejectsInactiveOrUnknownStrategy(t *testing.T) {
	f := newVaultFixture(t)
	ctx := context.Background()

	_, err := f.service.Deposit(ctx, f.user.ID, uuid.New(), 1000, nil)
	assert.ErrorIs(t, err, domain.ErrStrategyInactive)

	f.strategy.IsActive = false
	_, err = f.service.Deposit(ctx, f.user.ID, f.strategy.ID, 1000, nil)
	assert.ErrorIs(t, err, domain.ErrStrategyInactive)
}

func TestPreviewWithdrawal_DoesNotMutate(t *testing.T) {
	f := newVaultFixture(t)
	ctx := context.Background()

	position, err := f.service.Deposit(ctx, f.user.ID, f.strategy.ID, 1000, nil)
	require.NoError(t, err)

	quote, err := f.service.PreviewWithdrawal(ctx, f.user.ID, position.ID)
	require.NoError(t, err)
	assert.True(t, quote.PenaltyApplied)

	stored, err := f.posRepo.GetByID(ctx, position.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.PositionActive, stored.Status)
	assert.Equal(t, int64(1), stored.Version)

	again, err := f.service.PreviewWithdrawal(ctx, f.user.ID, position.ID)
	require.NoError(t, err)
	assert.Equal(t, quote.PenaltyAmount, again.PenaltyAmount)
}

func TestWithdraw_SettlesExactlyOnce(t *testing.T) {
	f := newVaultFixture(t)
	ctx := context.Background()

	position, err := f.service.Deposit(ctx, f.user.ID, f.strategy.ID, 1000, nil)
	require.NoError(t, err)

	quote, err := f.service.Withdraw(ctx, f.user.ID, position.ID)
	require.NoError(t, err)
	assert.True(t, quote.PenaltyApplied)
	assert.InDelta(t, 900.0, quote.TotalAmount, 1e-6)

	stored, err := f.posRepo.GetByID(ctx, position.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.PositionWithdrawn, stored.Status)
	require.NotNil(t, stored.WithdrawnAt)

	_, err = f.service.Withdraw(ctx, f.user.ID, position.ID)
	assert.ErrorIs(t, err, domain.ErrAlreadySettled)
}

func TestWithdraw_ForeignPositionLooksAbsent(t *testing.T) {
	f := newVaultFixture(t)
	ctx := context.Background()

	position, err := f.service.Deposit(ctx, f.user.ID, f.strategy.ID, 1000, nil)
	require.NoError(t, err)

	_, err = f.service.Withdraw(ctx, uuid.New(), position.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = f.service.PreviewWithdrawal(ctx, uuid.New(), position.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestWithdraw_RetriesOnceOnVersionConflict(t *testing.T) {
	f := newVaultFixture(t)
	ctx := context.Background()

	position, err := f.service.Deposit(ctx, f.user.ID, f.strategy.ID, 1000, nil)
	require.NoError(t, err)

	f.posRepo.settleConflicts = 1

	quote, err := f.service.Withdraw(ctx, f.user.ID, position.ID)
	require.NoError(t, err)
	assert.InDelta(t, 900.0, quote.TotalAmount, 1e-6)

	stored, err := f.posRepo.GetByID(ctx, position.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.PositionWithdrawn, stored.Status)
}

func TestWithdraw_GivesUpAfterRepeatedConflicts(t *testing.T) {
	f := newVaultFixture(t)
	ctx := context.Background()

	position, err := f.service.Deposit(ctx, f.user.ID, f.strategy.ID, 1000, nil)
	require.NoError(t, err)

	f.posRepo.settleConflicts = 2

	_, err = f.service.Withdraw(ctx, f.user.ID, position.ID)
	assert.ErrorIs(t, err, domain.ErrVersionConflict)

	stored, err := f.posRepo.GetByID(ctx, position.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.PositionActive, stored.Status)
}

func TestSetAutoCompound_RejectsUnknownFrequency(t *testing.T) {
	f := newVaultFixture(t)
	ctx := context.Background()

	position, err := f.service.Deposit(ctx, f.user.ID, f.strategy.ID, 1000, nil)
	require.NoError(t, err)

	err = f.service.SetAutoCompound(ctx, f.user.ID, position.ID, true, "hourly")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	err = f.service.SetAutoCompound(ctx, f.user.ID, position.ID, false, domain.FrequencyWeekly)
	require.NoError(t, err)

	stored, err := f.posRepo.GetByID(ctx, position.ID)
	require.NoError(t, err)
	assert.False(t, stored.AutoCompound)
	assert.Equal(t, domain.FrequencyWeekly, stored.CompoundFrequency)
}

func TestGetPortfolio_AggregatesActivePositions(t *testing.T) {
	f := newVaultFixture(t)
	ctx := context.Background()

	first, err := f.service.Deposit(ctx, f.user.ID, f.strategy.ID, 1000, nil)
	require.NoError(t, err)
	_, err = f.service.Deposit(ctx, f.user.ID, f.strategy.ID, 500, nil)
	require.NoError(t, err)

	// settle one so only the other counts toward the totals
	_, err = f.service.Withdraw(ctx, f.user.ID, first.ID)
	require.NoError(t, err)

	portfolio, err := f.service.GetPortfolio(ctx, f.user.ID)
	require.NoError(t, err)

	assert.Equal(t, 1, portfolio.ActivePositions)
	assert.InDelta(t, 500.0, portfolio.TotalPrincipal, 1e-9)
	assert.InDelta(t, 500.0, portfolio.TotalValue, 1e-9)
	assert.Len(t, portfolio.Positions, 2)
	assert.Nil(t, portfolio.OnChain)
}
