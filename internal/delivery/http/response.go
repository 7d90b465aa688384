package http

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"nextvault/internal/domain"
)

// Response represents a standardized API response
type Response struct {
	Status  string      `json:"status"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
	Error   interface{} `json:"error,omitempty"`
}

// SuccessResponse sends a success response
func SuccessResponse(c echo.Context, data interface{}) error {
	return c.JSON(http.StatusOK, Response{
		Status: "success",
		Data:   data,
	})
}

// SuccessMessageResponse sends a success response with a message
func SuccessMessageResponse(c echo.Context, message string, data interface{}) error {
	return c.JSON(http.StatusOK, Response{
		Status:  "success",
		Message: message,
		Data:    data,
	})
}

// CreatedResponse sends a 201 Created response
func CreatedResponse(c echo.Context, data interface{}) error {
	return c.JSON(http.StatusCreated, Response{
		Status: "success",
		Data:   data,
	})
}

// ErrorResponse sends an error response
func ErrorResponse(c echo.Context, statusCode int, message string, err interface{}) error {
	return c.JSON(statusCode, Response{
		Status:  "error",
		Message: message,
		Error:   err,
	})
}

// BadRequestResponse sends a 400 Bad Request response
func BadRequestResponse(c echo.Context, message string) error {
	return ErrorResponse(c, http.StatusBadRequest, message, nil)
}

// UnauthorizedResponse sends a 401 Unauthorized response
func UnauthorizedResponse(c echo.Context, message string) error {
	return ErrorResponse(c, http.StatusUnauthorized, message, nil)
}

// NotFoundResponse sends a 404 Not Found response
func NotFoundResponse(c echo.Context, message string) error {
	return ErrorResponse(c, http.StatusNotFound, message, nil)
}

// ConflictResponse sends a 409 Conflict response
func ConflictResponse(c echo.Context, message string) error {
	return ErrorResponse(c, http.StatusConflict, message, nil)
}

// InternalServerErrorResponse sends a 500 Internal Server Error response
func InternalServerErrorResponse(c echo.Context, message string, err error) error {
	errMsg := ""
	if err != nil {
		errMsg = err.Error()
	}
	return ErrorResponse(c, http.StatusInternalServerError, message, errMsg)
}

// DomainErrorResponse maps a domain sentinel error to the matching HTTP
// status. AlreadySettled keeps its own message so clients can tell a
// stale retry from a bad identifier and skip pointless retries.
func DomainErrorResponse(c echo.Context, err error) error {
	switch {
	case errors.Is(err, domain.ErrAlreadySettled):
		return NotFoundResponse(c, domain.ErrAlreadySettled.Error())
	case errors.Is(err, domain.ErrNotFound):
		return NotFoundResponse(c, "Not found")
	case errors.Is(err, domain.ErrStrategyInactive):
		return BadRequestResponse(c, domain.ErrStrategyInactive.Error())
	case errors.Is(err, domain.ErrInvalidInput):
		return BadRequestResponse(c, err.Error())
	case errors.Is(err, domain.ErrVersionConflict):
		return ConflictResponse(c, "Position was modified concurrently, please retry")
	case errors.Is(err, domain.ErrUnauthorized):
		return UnauthorizedResponse(c, "Unauthorized")
	default:
		return InternalServerErrorResponse(c, "Internal server error", err)
	}
}
