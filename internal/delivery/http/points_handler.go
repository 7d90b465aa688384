package http

import (
	"context"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"nextvault/internal/middleware"
	"nextvault/internal/service"
)

// PointsHandler handles points and leaderboard requests
type PointsHandler struct {
	pointsService *service.PointsService
}

// NewPointsHandler creates a new PointsHandler
func NewPointsHandler(pointsService *service.PointsService) *PointsHandler {
	return &PointsHandler{pointsService: pointsService}
}

// GetMyPoints returns the caller's total, rank and recent history
// GET /api/points/me
func (h *PointsHandler) GetMyPoints(c echo.Context) error {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		return UnauthorizedResponse(c, "User not authenticated")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	points, err := h.pointsService.GetUserPoints(ctx, userID)
	if err != nil {
		return DomainErrorResponse(c, err)
	}

	return SuccessResponse(c, points)
}

// GetLeaderboard returns one page of the global ranking
// GET /api/points/leaderboard?page=1&limit=20
func (h *PointsHandler) GetLeaderboard(c echo.Context) error {
	page := 1
	limit := 20
	if raw := c.QueryParam("page"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil {
			page = parsed
		}
	}
	if raw := c.QueryParam("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil {
			limit = parsed
		}
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	leaderboard, err := h.pointsService.GetLeaderboard(ctx, page, limit)
	if err != nil {
		return DomainErrorResponse(c, err)
	}

	return SuccessResponse(c, leaderboard)
}
