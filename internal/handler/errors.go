package handler

import (
	"errors"
	"log/slog"

	"github.com/gofiber/fiber/v3"
	"github.com/nulln0ne/portfolio-amm/internal/amm"
	"github.com/nulln0ne/portfolio-amm/internal/portfolio"
	"github.com/nulln0ne/portfolio-amm/internal/service"
	"github.com/nulln0ne/portfolio-amm/internal/state"
	"github.com/nulln0ne/portfolio-amm/internal/token"
)

// ErrInvalidQueryParameters indicates that the request query string could not
// be parsed into the expected structure.
var ErrInvalidQueryParameters = fiber.NewError(fiber.StatusBadRequest, "invalid query parameters")

// ErrInvalidBody indicates that the request body is not the expected JSON.
var ErrInvalidBody = fiber.NewError(fiber.StatusBadRequest, "invalid request body")

// ErrPathTooShort is returned when a swap path names fewer than two tokens.
var ErrPathTooShort = fiber.NewError(fiber.StatusBadRequest, "path must contain at least two tokens")

// ErrInvalidIndex is returned for a pair index that is not a number.
var ErrInvalidIndex = fiber.NewError(fiber.StatusBadRequest, "invalid index")

// ErrOperationFailedInternal signals a generic server-side failure.
var ErrOperationFailedInternal = fiber.NewError(fiber.StatusInternalServerError, "operation failed")

// NewAddressRequired returns a 400 Bad Request for a missing address field.
func NewAddressRequired(field string) error {
	return fiber.NewError(fiber.StatusBadRequest, field+" address is required")
}

// NewInvalidAddress returns a 400 Bad Request for an invalid address format.
func NewInvalidAddress(field string) error {
	return fiber.NewError(fiber.StatusBadRequest, "invalid "+field+" address")
}

func NewAmountRequired(field string) error {
	return fiber.NewError(fiber.StatusBadRequest, field+" is required")
}

// NewInvalidAmount is returned when an amount is not a base-10 integer.
func NewInvalidAmount(field string) error {
	return fiber.NewError(fiber.StatusBadRequest, "invalid "+field+" format")
}

func NewAmountNonPositive(field string) error {
	return fiber.NewError(fiber.StatusBadRequest, field+" must be greater than zero")
}

var (
	badRequest = []error{
		amm.ErrIdenticalAddresses,
		amm.ErrZeroAddress,
		amm.ErrInvalidPath,
		amm.ErrInsufficientLiquidity,
		amm.ErrInsufficientInputAmount,
		amm.ErrInsufficientOutputAmount,
		amm.ErrInsufficientLiquidityMinted,
		amm.ErrInsufficientLiquidityBurned,
		amm.ErrInvalidTo,
		amm.ErrK,
		amm.ErrOverflow,
		amm.ErrExpired,
		amm.ErrInsufficientAAmount,
		amm.ErrInsufficientBAmount,
		amm.ErrExcessiveInputAmount,
		portfolio.ErrLengthMismatch,
		portfolio.ErrEmptyAllocation,
		portfolio.ErrInvalidPercent,
		portfolio.ErrDuplicateToken,
		portfolio.ErrZeroToken,
		portfolio.ErrPercentSum,
		portfolio.ErrRebalanceRejected,
		portfolio.ErrZeroAmount,
		state.ErrInsufficientBalance,
		state.ErrInsufficientAllowance,
		state.ErrNegativeAmount,
		token.ErrZeroAmount,
		service.ErrSameToken,
	}
	forbidden = []error{
		amm.ErrForbidden,
		portfolio.ErrUnauthorized,
		portfolio.ErrNotExecutor,
		state.ErrNotMinter,
	}
	notFound = []error{
		amm.ErrPairNotFound,
		amm.ErrIndexOutOfRange,
		portfolio.ErrPortfolioNotFound,
		state.ErrUnknownToken,
		service.ErrNotTestToken,
	}
	conflict = []error{
		amm.ErrPairExists,
		amm.ErrLocked,
		portfolio.ErrPortfolioExists,
		portfolio.ErrPaused,
		portfolio.ErrNotPaused,
		portfolio.ErrNoAllocation,
		portfolio.ErrLocked,
	}
)

// mapServiceError converts an engine failure into an HTTP error. Anything
// unrecognized is logged and reported as a 500.
func mapServiceError(logger *slog.Logger, err error) error {
	for _, group := range []struct {
		status int
		errs   []error
	}{
		{fiber.StatusBadRequest, badRequest},
		{fiber.StatusForbidden, forbidden},
		{fiber.StatusNotFound, notFound},
		{fiber.StatusConflict, conflict},
	} {
		for _, target := range group.errs {
			if errors.Is(err, target) {
				return fiber.NewError(group.status, err.Error())
			}
		}
	}
	logger.Error("service operation failed", "err", err)
	return ErrOperationFailedInternal
}
