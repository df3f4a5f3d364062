// Package handler defines HTTP request handlers and related utilities.
package handler

import (
	"log/slog"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gofiber/fiber/v3"
)

// BaseHandler provides common dependencies for HTTP handlers.
type BaseHandler struct {
	logger *slog.Logger
}

// bindBody decodes a JSON request body into req.
func (h *BaseHandler) bindBody(c fiber.Ctx, req any) error {
	if err := c.Bind().Body(req); err != nil {
		h.logger.Debug("failed to bind request body", "path", c.Path(), "err", err)
		return ErrInvalidBody
	}
	return nil
}

func parseAddress(field, s string) (common.Address, error) {
	if s == "" {
		return common.Address{}, NewAddressRequired(field)
	}
	if !common.IsHexAddress(s) {
		return common.Address{}, NewInvalidAddress(field)
	}
	return common.HexToAddress(s), nil
}

// parseOptionalAddress returns the zero address for an empty field.
func parseOptionalAddress(field, s string) (common.Address, error) {
	if s == "" {
		return common.Address{}, nil
	}
	return parseAddress(field, s)
}

func parseAmount(field, s string) (*big.Int, error) {
	if s == "" {
		return nil, NewAmountRequired(field)
	}
	amount, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil, NewInvalidAmount(field)
	}
	if amount.Sign() <= 0 {
		return nil, NewAmountNonPositive(field)
	}
	return amount, nil
}

// parseOptionalAmount accepts an empty field as zero, for minimums.
func parseOptionalAmount(field, s string) (*big.Int, error) {
	if s == "" {
		return new(big.Int), nil
	}
	amount, ok := new(big.Int).SetString(s, 10)
	if !ok || amount.Sign() < 0 {
		return nil, NewInvalidAmount(field)
	}
	return amount, nil
}

func parsePath(path []string) ([]common.Address, error) {
	if len(path) < 2 {
		return nil, ErrPathTooShort
	}
	out := make([]common.Address, len(path))
	for i, s := range path {
		addr, err := parseAddress("path", strings.TrimSpace(s))
		if err != nil {
			return nil, err
		}
		out[i] = addr
	}
	return out, nil
}

// splitPath reads a comma separated query path.
func splitPath(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, ",")
}

func amountStrings(amounts []*big.Int) []string {
	out := make([]string, len(amounts))
	for i, a := range amounts {
		out[i] = a.String()
	}
	return out
}
