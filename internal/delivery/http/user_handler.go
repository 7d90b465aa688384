package http

import (
	"context"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"nextvault/internal/domain"
	"nextvault/internal/middleware"
	"nextvault/internal/usecase"
)

// UserHandler handles user-related requests
type UserHandler struct {
	userRepo     domain.UserRepository
	vaultService *usecase.VaultService
}

// NewUserHandler creates a new UserHandler
func NewUserHandler(userRepo domain.UserRepository, vaultService *usecase.VaultService) *UserHandler {
	return &UserHandler{
		userRepo:     userRepo,
		vaultService: vaultService,
	}
}

// GetMe returns current user details
// GET /api/user/me
func (h *UserHandler) GetMe(c echo.Context) error {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		return UnauthorizedResponse(c, "User not authenticated")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	user, err := h.userRepo.GetByID(ctx, userID)
	if err != nil {
		return DomainErrorResponse(c, err)
	}

	return SuccessResponse(c, userOutput(user))
}

// GetPositions returns the user's positions, newest first
// GET /api/user/positions
func (h *UserHandler) GetPositions(c echo.Context) error {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		return UnauthorizedResponse(c, "User not authenticated")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	positions, err := h.vaultService.GetPositions(ctx, userID)
	if err != nil {
		return InternalServerErrorResponse(c, "Failed to get positions", err)
	}

	return SuccessResponse(c, positions)
}

// GetPortfolio returns aggregates plus on-chain balances when available
// GET /api/user/portfolio
func (h *UserHandler) GetPortfolio(c echo.Context) error {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		return UnauthorizedResponse(c, "User not authenticated")
	}

	// On-chain reads can be slow; give the portfolio a longer budget.
	ctx, cancel := context.WithTimeout(c.Request().Context(), 15*time.Second)
	defer cancel()

	portfolio, err := h.vaultService.GetPortfolio(ctx, userID)
	if err != nil {
		return InternalServerErrorResponse(c, "Failed to get portfolio", err)
	}

	return SuccessResponse(c, portfolio)
}

// GetActivity returns the user's recent activity log
// GET /api/user/activity
func (h *UserHandler) GetActivity(c echo.Context) error {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		return UnauthorizedResponse(c, "User not authenticated")
	}

	limit := 50
	if raw := c.QueryParam("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil {
			limit = parsed
		}
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	activities, err := h.vaultService.GetActivity(ctx, userID, limit)
	if err != nil {
		return InternalServerErrorResponse(c, "Failed to get activity", err)
	}

	return SuccessResponse(c, activities)
}
