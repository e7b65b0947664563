package handler

import (
	goerrors "errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"tally/internal/errors"
	"tally/internal/middleware"
	"tally/internal/service"
)

// CounterHandler handles the per-user counter endpoints.
type CounterHandler struct {
	counterService service.CounterService
}

// NewCounterHandler creates a new counter handler.
func NewCounterHandler(counterService service.CounterService) *CounterHandler {
	return &CounterHandler{counterService: counterService}
}

// CounterActionRequest selects the mutation to apply.
type CounterActionRequest struct {
	Action string `json:"action" validate:"required,oneof=increment decrement"`
}

// CounterResponse carries the counter value after the operation.
type CounterResponse struct {
	Value int64 `json:"value"`
}

// RateLimitedResponse is returned when the sliding window is full.
type RateLimitedResponse struct {
	Error      string `json:"error"`
	RetryAfter int    `json:"retryAfter"`
}

// Get godoc
// @Summary Read the current counter value
// @Tags counter
// @Produce json
// @Success 200 {object} CounterResponse
// @Failure 401 {object} errors.ErrorResponse
// @Failure 500 {object} errors.ErrorResponse
// @Router /counter [get]
func (h *CounterHandler) Get(c echo.Context) error {
	userID, ok := middleware.UserID(c)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, errors.ErrorResponse{
			Error: "not authenticated",
			Code:  "NO_SESSION",
		})
	}

	value, err := h.counterService.Get(c.Request().Context(), userID)
	if err != nil {
		he := errors.MapErrorToHTTP(err)
		return echo.NewHTTPError(he.StatusCode, he.ToErrorResponse())
	}
	return c.JSON(http.StatusOK, CounterResponse{Value: value})
}

// Apply godoc
// @Summary Increment or decrement the counter
// @Tags counter
// @Accept json
// @Produce json
// @Param request body CounterActionRequest true "Action"
// @Success 200 {object} CounterResponse
// @Failure 400 {object} errors.ErrorResponse
// @Failure 401 {object} errors.ErrorResponse
// @Failure 429 {object} RateLimitedResponse
// @Failure 500 {object} errors.ErrorResponse
// @Router /counter [post]
func (h *CounterHandler) Apply(c echo.Context) error {
	userID, ok := middleware.UserID(c)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, errors.ErrorResponse{
			Error: "not authenticated",
			Code:  "NO_SESSION",
		})
	}

	var req CounterActionRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	value, err := h.counterService.Apply(c.Request().Context(), userID, req.Action)
	if err != nil {
		var limited *errors.RateLimitError
		if goerrors.As(err, &limited) {
			c.Response().Header().Set("Retry-After", strconv.Itoa(limited.RetryAfter))
			return c.JSON(http.StatusTooManyRequests, RateLimitedResponse{
				Error:      "rate limit exceeded",
				RetryAfter: limited.RetryAfter,
			})
		}
		he := errors.MapErrorToHTTP(err)
		return echo.NewHTTPError(he.StatusCode, he.ToErrorResponse())
	}
	return c.JSON(http.StatusOK, CounterResponse{Value: value})
}
