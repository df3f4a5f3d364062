package handler

import (
	"log/slog"
	"math/big"
	"strconv"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gofiber/fiber/v3"
	"github.com/nulln0ne/portfolio-amm/internal/service"
)

type QuoteHandler struct {
	BaseHandler
	service *service.QuoteService
}

func NewQuoteHandler(logger *slog.Logger, svc *service.QuoteService) *QuoteHandler {
	return &QuoteHandler{
		BaseHandler: BaseHandler{
			logger: logger,
		},
		service: svc,
	}
}

type AmountsRequest struct {
	Amount string `query:"amount"`
	Path   string `query:"path"`
}

type AmountsResponse struct {
	Path    []common.Address `json:"path"`
	Amounts []string         `json:"amounts"`
}

type BalanceResponse struct {
	Token   common.Address `json:"token"`
	Holder  common.Address `json:"holder"`
	Balance string         `json:"balance"`
}

type PairResponse struct {
	Pair common.Address `json:"pair"`
}

type PairsResponse struct {
	Pairs []common.Address `json:"pairs"`
}

func (h *QuoteHandler) AmountsOut() fiber.Handler {
	return h.amounts(false)
}

func (h *QuoteHandler) AmountsIn() fiber.Handler {
	return h.amounts(true)
}

func (h *QuoteHandler) amounts(exactOut bool) fiber.Handler {
	return func(c fiber.Ctx) error {
		var req AmountsRequest
		if err := c.Bind().Query(&req); err != nil {
			h.logger.Debug("failed to bind query parameters", "err", err)
			return ErrInvalidQueryParameters
		}
		amount, err := parseAmount("amount", req.Amount)
		if err != nil {
			return err
		}
		path, err := parsePath(splitPath(req.Path))
		if err != nil {
			return err
		}

		var amounts []*big.Int
		if exactOut {
			amounts, err = h.service.AmountsIn(c.Context(), amount, path)
		} else {
			amounts, err = h.service.AmountsOut(c.Context(), amount, path)
		}
		if err != nil {
			return mapServiceError(h.logger, err)
		}

		h.logger.Debug("amounts computed", "exactOut", exactOut, "hops", len(path)-1, "in", amounts[0].String(), "out", amounts[len(amounts)-1].String())
		return c.JSON(AmountsResponse{Path: path, Amounts: amountStrings(amounts)})
	}
}

func (h *QuoteHandler) Factory() fiber.Handler {
	return func(c fiber.Ctx) error {
		info, err := h.service.Factory(c.Context())
		if err != nil {
			return mapServiceError(h.logger, err)
		}
		return c.JSON(info)
	}
}

// Pairs lists every pair, or the single pair at ?index=.
func (h *QuoteHandler) Pairs() fiber.Handler {
	return func(c fiber.Ctx) error {
		if raw := c.Query("index"); raw != "" {
			i, err := strconv.Atoi(raw)
			if err != nil {
				return ErrInvalidIndex
			}
			pair, err := h.service.PairAt(c.Context(), i)
			if err != nil {
				return mapServiceError(h.logger, err)
			}
			return c.JSON(PairResponse{Pair: pair})
		}
		pairs, err := h.service.AllPairs(c.Context())
		if err != nil {
			return mapServiceError(h.logger, err)
		}
		return c.JSON(PairsResponse{Pairs: pairs})
	}
}

// GetPair answers with the zero address when the tokens have no pair.
func (h *QuoteHandler) GetPair() fiber.Handler {
	return func(c fiber.Ctx) error {
		tokenA, err := parseAddress("tokenA", c.Params("tokenA"))
		if err != nil {
			return err
		}
		tokenB, err := parseAddress("tokenB", c.Params("tokenB"))
		if err != nil {
			return err
		}
		pair, err := h.service.GetPair(c.Context(), tokenA, tokenB)
		if err != nil {
			return mapServiceError(h.logger, err)
		}
		return c.JSON(PairResponse{Pair: pair})
	}
}

func (h *QuoteHandler) Reserves() fiber.Handler {
	return func(c fiber.Ctx) error {
		pair, err := parseAddress("pair", c.Params("pair"))
		if err != nil {
			return err
		}
		info, err := h.service.Pair(c.Context(), pair)
		if err != nil {
			return mapServiceError(h.logger, err)
		}
		return c.JSON(info)
	}
}

// Balance serves both LP balances (/pairs/:pair/balance/:holder) and token
// balances (/tokens/:token/balance/:holder).
func (h *QuoteHandler) Balance(tokenParam string) fiber.Handler {
	return func(c fiber.Ctx) error {
		tkn, err := parseAddress(tokenParam, c.Params(tokenParam))
		if err != nil {
			return err
		}
		holder, err := parseAddress("holder", c.Params("holder"))
		if err != nil {
			return err
		}
		bal, err := h.service.Balance(c.Context(), tkn, holder)
		if err != nil {
			return mapServiceError(h.logger, err)
		}
		return c.JSON(BalanceResponse{Token: tkn, Holder: holder, Balance: bal.String()})
	}
}

func (h *QuoteHandler) Addresses() fiber.Handler {
	return func(c fiber.Ctx) error {
		return c.JSON(h.service.Addresses())
	}
}
