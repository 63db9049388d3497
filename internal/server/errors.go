package server

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/rovshanmuradov/conviction-engine/internal/blockchain/solbc/transaction"
	"github.com/rovshanmuradov/conviction-engine/internal/dex"
	"github.com/rovshanmuradov/conviction-engine/internal/dex/dbc"
	"github.com/rovshanmuradov/conviction-engine/internal/launch"
	"github.com/rovshanmuradov/conviction-engine/internal/types"
)

// ErrorJSON returns an HTTP error handler that always answers with JSON.
func ErrorJSON() echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		var he *echo.HTTPError
		if errors.As(err, &he) {
			_ = c.JSON(he.Code, ErrorResponse{
				Error: http.StatusText(he.Code),
				Code:  he.Code,
			})
			return
		}

		_ = c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error: "internal server error",
			Code:  http.StatusInternalServerError,
		})
	}
}

// statusOf maps engine errors onto HTTP status codes.
func statusOf(err error) int {
	var stepTwo *launch.StepTwoError
	switch {
	case errors.Is(err, types.ErrInvalidParams):
		return http.StatusBadRequest
	case errors.Is(err, transaction.ErrInsufficientFunds):
		return http.StatusPaymentRequired
	case errors.Is(err, dbc.ErrPoolNotFound):
		// пул создан, но ещё не виден узлу; запрос можно повторить
		return http.StatusServiceUnavailable
	case errors.Is(err, dex.ErrNoRoute):
		return http.StatusNotFound
	case errors.As(err, &stepTwo):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}
