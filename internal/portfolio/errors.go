package portfolio

import "errors"

var (
	ErrLengthMismatch    = errors.New("tokens and percents differ in length")
	ErrEmptyAllocation   = errors.New("empty allocation")
	ErrInvalidPercent    = errors.New("percent must be between 1 and 100")
	ErrDuplicateToken    = errors.New("duplicate token in allocation")
	ErrZeroToken         = errors.New("zero token address in allocation")
	ErrPercentSum        = errors.New("percents must sum to 100")
	ErrInvalidSlippage   = errors.New("slippage must be between 0 and 10000 bps")
	ErrUnauthorized      = errors.New("caller is not the owner")
	ErrNotExecutor       = errors.New("caller is not an authorized executor")
	ErrPaused            = errors.New("portfolio is paused")
	ErrNotPaused         = errors.New("portfolio is not paused")
	ErrNoAllocation      = errors.New("portfolio has no allocation")
	ErrLocked            = errors.New("portfolio is locked")
	ErrPortfolioExists   = errors.New("portfolio exists")
	ErrPortfolioNotFound = errors.New("portfolio not found")
	ErrRebalanceRejected = errors.New("rebalance rejected")
	ErrZeroAmount        = errors.New("zero amount")
)

// ValidationError carries the human-readable reason a rebalance was
// refused.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return "rebalance rejected: " + e.Reason
}

func (e *ValidationError) Unwrap() error {
	return ErrRebalanceRejected
}
