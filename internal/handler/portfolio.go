package handler

import (
	"context"
	"log/slog"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gofiber/fiber/v3"
	"github.com/nulln0ne/portfolio-amm/internal/portfolio"
	"github.com/nulln0ne/portfolio-amm/internal/service"
)

type PortfolioHandler struct {
	BaseHandler
	service *service.PortfolioService
}

func NewPortfolioHandler(logger *slog.Logger, svc *service.PortfolioService) *PortfolioHandler {
	return &PortfolioHandler{
		BaseHandler: BaseHandler{
			logger: logger,
		},
		service: svc,
	}
}

type CallerRequest struct {
	From string `json:"from"`
}

type AllocationRequest struct {
	From     string   `json:"from"`
	Tokens   []string `json:"tokens"`
	Percents []int64  `json:"percents"`
}

type RebalanceRequest struct {
	From         string   `json:"from"`
	Executor     string   `json:"executor"`
	TokenIn      string   `json:"tokenIn"`
	TokenOut     string   `json:"tokenOut"`
	AmountIn     string   `json:"amountIn"`
	AmountOutMin string   `json:"amountOutMin"`
	Path         []string `json:"path"`
	Reason       string   `json:"reason"`
}

type ExecutorRequest struct {
	From     string `json:"from"`
	Executor string `json:"executor"`
	Allowed  bool   `json:"allowed"`
}

type PortfolioTokenRequest struct {
	From   string `json:"from"`
	Token  string `json:"token"`
	Amount string `json:"amount"`
	To     string `json:"to"`
}

type RebalanceResponse struct {
	AmountOut string           `json:"amountOut"`
	Receipt   *service.Receipt `json:"receipt"`
}

func (h *PortfolioHandler) Create() fiber.Handler {
	return func(c fiber.Ctx) error {
		var req CallerRequest
		if err := h.bindBody(c, &req); err != nil {
			return err
		}
		from, err := parseAddress("from", req.From)
		if err != nil {
			return err
		}
		res, err := h.service.Create(c.Context(), from)
		if err != nil {
			return mapServiceError(h.logger, err)
		}
		return c.Status(fiber.StatusCreated).JSON(res)
	}
}

func (h *PortfolioHandler) Get() fiber.Handler {
	return func(c fiber.Ctx) error {
		owner, err := parseAddress("owner", c.Params("owner"))
		if err != nil {
			return err
		}
		info, err := h.service.Get(c.Context(), owner)
		if err != nil {
			return mapServiceError(h.logger, err)
		}
		return c.JSON(info)
	}
}

func (h *PortfolioHandler) Estimate() fiber.Handler {
	return func(c fiber.Ctx) error {
		owner, err := parseAddress("owner", c.Params("owner"))
		if err != nil {
			return err
		}
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
		amounts, err := h.service.Estimate(c.Context(), owner, amount, path)
		if err != nil {
			return mapServiceError(h.logger, err)
		}
		return c.JSON(AmountsResponse{Path: path, Amounts: amountStrings(amounts)})
	}
}

func (h *PortfolioHandler) Balance() fiber.Handler {
	return func(c fiber.Ctx) error {
		owner, err := parseAddress("owner", c.Params("owner"))
		if err != nil {
			return err
		}
		tkn, err := parseAddress("token", c.Params("token"))
		if err != nil {
			return err
		}
		bal, err := h.service.Balance(c.Context(), owner, tkn)
		if err != nil {
			return mapServiceError(h.logger, err)
		}
		return c.JSON(BalanceResponse{Token: tkn, Holder: owner, Balance: bal.String()})
	}
}

func (h *PortfolioHandler) SetAllocation() fiber.Handler {
	return func(c fiber.Ctx) error {
		var req AllocationRequest
		if err := h.bindBody(c, &req); err != nil {
			return err
		}
		from, owner, err := h.caller(c, req.From)
		if err != nil {
			return err
		}
		tokens := make([]common.Address, len(req.Tokens))
		for i, s := range req.Tokens {
			if tokens[i], err = parseAddress("tokens", s); err != nil {
				return err
			}
		}
		receipt, err := h.service.SetAllocation(c.Context(), from, owner, tokens, req.Percents)
		if err != nil {
			return mapServiceError(h.logger, err)
		}
		return c.JSON(receipt)
	}
}

// Validate reports a refused rebalance in the body with a 200.
func (h *PortfolioHandler) Validate() fiber.Handler {
	return func(c fiber.Ctx) error {
		var req RebalanceRequest
		if err := h.bindBody(c, &req); err != nil {
			return err
		}
		owner, err := parseAddress("owner", c.Params("owner"))
		if err != nil {
			return err
		}
		r, err := parseRebalance(req)
		if err != nil {
			return err
		}
		v, err := h.service.Validate(c.Context(), owner, r)
		if err != nil {
			return mapServiceError(h.logger, err)
		}
		return c.JSON(v)
	}
}

func (h *PortfolioHandler) Rebalance() fiber.Handler {
	return func(c fiber.Ctx) error {
		var req RebalanceRequest
		if err := h.bindBody(c, &req); err != nil {
			return err
		}
		from, owner, err := h.caller(c, req.From)
		if err != nil {
			return err
		}
		executor, err := parseOptionalAddress("executor", req.Executor)
		if err != nil {
			return err
		}
		r, err := parseRebalance(req)
		if err != nil {
			return err
		}
		res, err := h.service.Rebalance(c.Context(), from, owner, executor, r, req.Reason)
		if err != nil {
			return mapServiceError(h.logger, err)
		}
		return c.JSON(RebalanceResponse{AmountOut: res.AmountOut.String(), Receipt: res.Receipt})
	}
}

func (h *PortfolioHandler) Pause() fiber.Handler {
	return h.ownerCall(h.service.Pause)
}

func (h *PortfolioHandler) Unpause() fiber.Handler {
	return h.ownerCall(h.service.Unpause)
}

func (h *PortfolioHandler) Executors() fiber.Handler {
	return func(c fiber.Ctx) error {
		var req ExecutorRequest
		if err := h.bindBody(c, &req); err != nil {
			return err
		}
		from, owner, err := h.caller(c, req.From)
		if err != nil {
			return err
		}
		executor, err := parseAddress("executor", req.Executor)
		if err != nil {
			return err
		}
		receipt, err := h.service.SetExecutor(c.Context(), from, owner, executor, req.Allowed)
		if err != nil {
			return mapServiceError(h.logger, err)
		}
		return c.JSON(receipt)
	}
}

func (h *PortfolioHandler) Withdraw() fiber.Handler {
	return func(c fiber.Ctx) error {
		var req PortfolioTokenRequest
		if err := h.bindBody(c, &req); err != nil {
			return err
		}
		from, owner, tkn, amount, err := h.tokenAmount(c, req)
		if err != nil {
			return err
		}
		to, err := parseOptionalAddress("to", req.To)
		if err != nil {
			return err
		}
		receipt, err := h.service.Withdraw(c.Context(), from, owner, tkn, amount, to)
		if err != nil {
			return mapServiceError(h.logger, err)
		}
		return c.JSON(receipt)
	}
}

// Deposit moves the caller's tokens into the portfolio.
func (h *PortfolioHandler) Deposit() fiber.Handler {
	return func(c fiber.Ctx) error {
		var req PortfolioTokenRequest
		if err := h.bindBody(c, &req); err != nil {
			return err
		}
		from, owner, tkn, amount, err := h.tokenAmount(c, req)
		if err != nil {
			return err
		}
		receipt, err := h.service.Deposit(c.Context(), from, owner, tkn, amount)
		if err != nil {
			return mapServiceError(h.logger, err)
		}
		return c.JSON(receipt)
	}
}

func (h *PortfolioHandler) ownerCall(fn func(ctx context.Context, from, owner common.Address) (*service.Receipt, error)) fiber.Handler {
	return func(c fiber.Ctx) error {
		var req CallerRequest
		if err := h.bindBody(c, &req); err != nil {
			return err
		}
		from, owner, err := h.caller(c, req.From)
		if err != nil {
			return err
		}
		receipt, err := fn(c.Context(), from, owner)
		if err != nil {
			return mapServiceError(h.logger, err)
		}
		return c.JSON(receipt)
	}
}

// caller parses the request's from field and the :owner route parameter.
func (h *PortfolioHandler) caller(c fiber.Ctx, rawFrom string) (from, owner common.Address, err error) {
	if from, err = parseAddress("from", rawFrom); err != nil {
		return
	}
	owner, err = parseAddress("owner", c.Params("owner"))
	return
}

func (h *PortfolioHandler) tokenAmount(c fiber.Ctx, req PortfolioTokenRequest) (from, owner, tkn common.Address, amount *big.Int, err error) {
	if from, owner, err = h.caller(c, req.From); err != nil {
		return
	}
	if tkn, err = parseAddress("token", req.Token); err != nil {
		return
	}
	amount, err = parseAmount("amount", req.Amount)
	return
}

func parseRebalance(req RebalanceRequest) (portfolio.Rebalance, error) {
	var (
		r   portfolio.Rebalance
		err error
	)
	if r.TokenIn, err = parseAddress("tokenIn", req.TokenIn); err != nil {
		return r, err
	}
	if r.TokenOut, err = parseAddress("tokenOut", req.TokenOut); err != nil {
		return r, err
	}
	if r.AmountIn, err = parseAmount("amountIn", req.AmountIn); err != nil {
		return r, err
	}
	if r.AmountOutMin, err = parseOptionalAmount("amountOutMin", req.AmountOutMin); err != nil {
		return r, err
	}
	if r.Path, err = parsePath(req.Path); err != nil {
		return r, err
	}
	return r, nil
}
