package http

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"nextvault/internal/delivery/http/dto"
	"nextvault/internal/domain"
	"nextvault/internal/middleware"
	"nextvault/internal/usecase"
)

// VaultHandler handles deposit and withdrawal requests
type VaultHandler struct {
	vaultService *usecase.VaultService
	strategyRepo domain.StrategyRepository
}

// NewVaultHandler creates a new VaultHandler
func NewVaultHandler(vaultService *usecase.VaultService, strategyRepo domain.StrategyRepository) *VaultHandler {
	return &VaultHandler{
		vaultService: vaultService,
		strategyRepo: strategyRepo,
	}
}

// GetStrategies returns strategies open for deposits
// GET /api/strategies
func (h *VaultHandler) GetStrategies(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	strategies, err := h.strategyRepo.GetActive(ctx)
	if err != nil {
		return InternalServerErrorResponse(c, "Failed to get strategies", err)
	}

	return SuccessResponse(c, strategies)
}

// Deposit creates a new position
// POST /api/vault/deposit
func (h *VaultHandler) Deposit(c echo.Context) error {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		return UnauthorizedResponse(c, "User not authenticated")
	}

	var req dto.DepositRequest
	if err := c.Bind(&req); err != nil {
		return BadRequestResponse(c, "Invalid request payload")
	}

	strategyID, err := uuid.Parse(req.StrategyID)
	if err != nil {
		return BadRequestResponse(c, "Invalid strategy ID")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	position, err := h.vaultService.Deposit(ctx, userID, strategyID, req.Amount, req.TxHash)
	if err != nil {
		return DomainErrorResponse(c, err)
	}

	return CreatedResponse(c, position)
}

// PreviewWithdrawal returns the settlement breakdown without mutating state
// GET /api/vault/positions/:id/preview
func (h *VaultHandler) PreviewWithdrawal(c echo.Context) error {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		return UnauthorizedResponse(c, "User not authenticated")
	}

	positionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return BadRequestResponse(c, "Invalid position ID")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	quote, err := h.vaultService.PreviewWithdrawal(ctx, userID, positionID)
	if err != nil {
		return DomainErrorResponse(c, err)
	}

	return SuccessResponse(c, quote)
}

// Withdraw settles a position
// POST /api/vault/positions/:id/withdraw
func (h *VaultHandler) Withdraw(c echo.Context) error {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		return UnauthorizedResponse(c, "User not authenticated")
	}

	positionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return BadRequestResponse(c, "Invalid position ID")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	quote, err := h.vaultService.Withdraw(ctx, userID, positionID)
	if err != nil {
		return DomainErrorResponse(c, err)
	}

	return SuccessMessageResponse(c, "Withdrawal settled", quote)
}

// SetAutoCompound toggles scheduled compounding for a position
// POST /api/vault/positions/:id/autocompound
func (h *VaultHandler) SetAutoCompound(c echo.Context) error {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		return UnauthorizedResponse(c, "User not authenticated")
	}

	positionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return BadRequestResponse(c, "Invalid position ID")
	}

	var req dto.AutoCompoundRequest
	if err := c.Bind(&req); err != nil {
		return BadRequestResponse(c, "Invalid request payload")
	}
	if req.Frequency == "" {
		req.Frequency = domain.FrequencyDaily
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.vaultService.SetAutoCompound(ctx, userID, positionID, req.Enabled, req.Frequency); err != nil {
		return DomainErrorResponse(c, err)
	}

	return SuccessMessageResponse(c, "Auto-compound settings updated", map[string]interface{}{
		"enabled":   req.Enabled,
		"frequency": req.Frequency,
	})
}
