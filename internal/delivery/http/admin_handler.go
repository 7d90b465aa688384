package http

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"nextvault/internal/delivery/http/dto"
	"nextvault/internal/domain"
	"nextvault/internal/service"
)

// AdminHandler handles strategy management and operational actions
type AdminHandler struct {
	strategyRepo    domain.StrategyRepository
	statsRepo       domain.StatsRepository
	compoundService *service.CompoundService
}

// NewAdminHandler creates a new AdminHandler
func NewAdminHandler(
	strategyRepo domain.StrategyRepository,
	statsRepo domain.StatsRepository,
	compoundService *service.CompoundService,
) *AdminHandler {
	return &AdminHandler{
		strategyRepo:    strategyRepo,
		statsRepo:       statsRepo,
		compoundService: compoundService,
	}
}

// GetStrategies returns all strategies including inactive ones
// GET /api/admin/strategies
func (h *AdminHandler) GetStrategies(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	strategies, err := h.strategyRepo.GetAll(ctx)
	if err != nil {
		return InternalServerErrorResponse(c, "Failed to get strategies", err)
	}

	return SuccessResponse(c, strategies)
}

// CreateStrategy creates a new strategy
// POST /api/admin/strategies
func (h *AdminHandler) CreateStrategy(c echo.Context) error {
	var req dto.StrategyRequest
	if err := c.Bind(&req); err != nil {
		return BadRequestResponse(c, "Invalid request payload")
	}
	if req.Name == "" || req.BaseAPY < 0 || req.PointsMultiplier < 0 {
		return BadRequestResponse(c, "Name is required; APY and multiplier must be non-negative")
	}
	if req.RiskLevel == "" {
		req.RiskLevel = domain.RiskLow
	}

	now := time.Now()
	strategy := &domain.Strategy{
		ID:               uuid.New(),
		Name:             req.Name,
		Protocol:         req.Protocol,
		Description:      req.Description,
		BaseAPY:          req.BaseAPY,
		PointsMultiplier: req.PointsMultiplier,
		MinLockDays:      req.MinLockDays,
		PenaltyPercent:   req.PenaltyPercent,
		MinDeposit:       req.MinDeposit,
		RiskLevel:        req.RiskLevel,
		IsActive:         req.IsActive,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.strategyRepo.Create(ctx, strategy); err != nil {
		return InternalServerErrorResponse(c, "Failed to create strategy", err)
	}

	return CreatedResponse(c, strategy)
}

// UpdateStrategy updates a strategy's terms. Existing positions keep
// the lock terms snapshotted at deposit time.
// PUT /api/admin/strategies/:id
func (h *AdminHandler) UpdateStrategy(c echo.Context) error {
	strategyID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return BadRequestResponse(c, "Invalid strategy ID")
	}

	var req dto.StrategyRequest
	if err := c.Bind(&req); err != nil {
		return BadRequestResponse(c, "Invalid request payload")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	strategy, err := h.strategyRepo.GetByID(ctx, strategyID)
	if err != nil {
		return DomainErrorResponse(c, err)
	}

	strategy.Name = req.Name
	strategy.Protocol = req.Protocol
	strategy.Description = req.Description
	strategy.BaseAPY = req.BaseAPY
	strategy.PointsMultiplier = req.PointsMultiplier
	strategy.MinLockDays = req.MinLockDays
	strategy.PenaltyPercent = req.PenaltyPercent
	strategy.MinDeposit = req.MinDeposit
	strategy.RiskLevel = req.RiskLevel
	strategy.IsActive = req.IsActive

	if err := h.strategyRepo.Update(ctx, strategy); err != nil {
		return DomainErrorResponse(c, err)
	}

	return SuccessResponse(c, strategy)
}

// TriggerCompoundSweep runs the compounding sweep outside its schedule
// POST /api/admin/compound/trigger
func (h *AdminHandler) TriggerCompoundSweep(c echo.Context) error {
	log.Println("Manual compound sweep triggered via API")

	ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Minute)
	defer cancel()

	report, err := h.compoundService.RunSweep(ctx)
	if err != nil {
		if errors.Is(err, domain.ErrLockHeld) {
			return ConflictResponse(c, "A compound sweep is already running")
		}
		return InternalServerErrorResponse(c, "Compound sweep failed", err)
	}

	return SuccessMessageResponse(c, "Compound sweep completed", report)
}

// GetStats returns platform totals
// GET /api/admin/stats
func (h *AdminHandler) GetStats(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	stats, err := h.statsRepo.GetPlatformStats(ctx)
	if err != nil {
		return InternalServerErrorResponse(c, "Failed to get platform stats", err)
	}

	return SuccessResponse(c, stats)
}
