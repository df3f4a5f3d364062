package handler

import (
	"context"
	"errors"
	"log/slog"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gofiber/fiber/v3"
	"github.com/nulln0ne/portfolio-amm/internal/amm"
	"github.com/nulln0ne/portfolio-amm/internal/service"
)

// DexHandler submits exchange operations. The caller is the request's
// from field; the server trusts it.
type DexHandler struct {
	BaseHandler
	service *service.DexService
}

func NewDexHandler(logger *slog.Logger, svc *service.DexService) *DexHandler {
	return &DexHandler{
		BaseHandler: BaseHandler{
			logger: logger,
		},
		service: svc,
	}
}

type CreatePairRequest struct {
	From   string `json:"from"`
	TokenA string `json:"tokenA"`
	TokenB string `json:"tokenB"`
}

type AddLiquidityRequest struct {
	From           string `json:"from"`
	TokenA         string `json:"tokenA"`
	TokenB         string `json:"tokenB"`
	AmountADesired string `json:"amountADesired"`
	AmountBDesired string `json:"amountBDesired"`
	AmountAMin     string `json:"amountAMin"`
	AmountBMin     string `json:"amountBMin"`
	To             string `json:"to"`
	Deadline       uint64 `json:"deadline"`
}

// AddLiquidityNativeRequest pairs Token with Value of native currency.
type AddLiquidityNativeRequest struct {
	From               string `json:"from"`
	Token              string `json:"token"`
	Value              string `json:"value"`
	AmountTokenDesired string `json:"amountTokenDesired"`
	AmountTokenMin     string `json:"amountTokenMin"`
	AmountNativeMin    string `json:"amountNativeMin"`
	To                 string `json:"to"`
	Deadline           uint64 `json:"deadline"`
}

type RemoveLiquidityRequest struct {
	From       string `json:"from"`
	TokenA     string `json:"tokenA"`
	TokenB     string `json:"tokenB"`
	Liquidity  string `json:"liquidity"`
	AmountAMin string `json:"amountAMin"`
	AmountBMin string `json:"amountBMin"`
	To         string `json:"to"`
	Deadline   uint64 `json:"deadline"`
}

type RemoveLiquidityNativeRequest struct {
	From            string `json:"from"`
	Token           string `json:"token"`
	Liquidity       string `json:"liquidity"`
	AmountTokenMin  string `json:"amountTokenMin"`
	AmountNativeMin string `json:"amountNativeMin"`
	To              string `json:"to"`
	Deadline        uint64 `json:"deadline"`
}

// SwapRequest serves every swap route. AmountIn is exact for exact-in
// swaps and a ceiling for exact-out; AmountOut the other way round.
type SwapRequest struct {
	From      string   `json:"from"`
	AmountIn  string   `json:"amountIn"`
	AmountOut string   `json:"amountOut"`
	Value     string   `json:"value"`
	Path      []string `json:"path"`
	To        string   `json:"to"`
	Deadline  uint64   `json:"deadline"`
}

type TokenRequest struct {
	From    string `json:"from"`
	Token   string `json:"token"`
	Spender string `json:"spender"`
	To      string `json:"to"`
	Amount  string `json:"amount"`
}

type FeeToRequest struct {
	From        string `json:"from"`
	FeeTo       string `json:"feeTo"`
	FeeToSetter string `json:"feeToSetter"`
}

type LiquidityResponse struct {
	AmountA   string           `json:"amountA"`
	AmountB   string           `json:"amountB"`
	Liquidity string           `json:"liquidity,omitempty"`
	Receipt   *service.Receipt `json:"receipt"`
}

type SwapResponse struct {
	Amounts []string         `json:"amounts,omitempty"`
	Receipt *service.Receipt `json:"receipt"`
}

func liquidityResponse(res service.LiquidityResult) LiquidityResponse {
	out := LiquidityResponse{AmountA: res.AmountA.String(), AmountB: res.AmountB.String(), Receipt: res.Receipt}
	if res.Liquidity != nil {
		out.Liquidity = res.Liquidity.String()
	}
	return out
}

func (h *DexHandler) CreatePair() fiber.Handler {
	return func(c fiber.Ctx) error {
		var req CreatePairRequest
		if err := h.bindBody(c, &req); err != nil {
			return err
		}
		from, err := parseAddress("from", req.From)
		if err != nil {
			return err
		}
		tokenA, err := parseAddress("tokenA", req.TokenA)
		if err != nil {
			return err
		}
		tokenB, err := parseAddress("tokenB", req.TokenB)
		if err != nil {
			return err
		}
		res, err := h.service.CreatePair(c.Context(), from, tokenA, tokenB)
		if err != nil {
			return mapServiceError(h.logger, err)
		}
		return c.Status(fiber.StatusCreated).JSON(res)
	}
}

func (h *DexHandler) AddLiquidity() fiber.Handler {
	return func(c fiber.Ctx) error {
		var req AddLiquidityRequest
		if err := h.bindBody(c, &req); err != nil {
			return err
		}
		from, err := parseAddress("from", req.From)
		if err != nil {
			return err
		}
		p := amm.AddLiquidityParams{Deadline: req.Deadline}
		if p.TokenA, err = parseAddress("tokenA", req.TokenA); err != nil {
			return err
		}
		if p.TokenB, err = parseAddress("tokenB", req.TokenB); err != nil {
			return err
		}
		if p.AmountADesired, err = parseAmount("amountADesired", req.AmountADesired); err != nil {
			return err
		}
		if p.AmountBDesired, err = parseAmount("amountBDesired", req.AmountBDesired); err != nil {
			return err
		}
		if p.AmountAMin, err = parseOptionalAmount("amountAMin", req.AmountAMin); err != nil {
			return err
		}
		if p.AmountBMin, err = parseOptionalAmount("amountBMin", req.AmountBMin); err != nil {
			return err
		}
		if p.To, err = recipient(from, req.To); err != nil {
			return err
		}
		res, err := h.service.AddLiquidity(c.Context(), from, p)
		if err != nil {
			return mapServiceError(h.logger, err)
		}
		return c.JSON(liquidityResponse(res))
	}
}

func (h *DexHandler) AddLiquidityNative() fiber.Handler {
	return func(c fiber.Ctx) error {
		var req AddLiquidityNativeRequest
		if err := h.bindBody(c, &req); err != nil {
			return err
		}
		from, err := parseAddress("from", req.From)
		if err != nil {
			return err
		}
		value, err := parseAmount("value", req.Value)
		if err != nil {
			return err
		}
		p := amm.AddLiquidityNativeParams{Deadline: req.Deadline}
		if p.Token, err = parseAddress("token", req.Token); err != nil {
			return err
		}
		if p.AmountTokenDesired, err = parseAmount("amountTokenDesired", req.AmountTokenDesired); err != nil {
			return err
		}
		if p.AmountTokenMin, err = parseOptionalAmount("amountTokenMin", req.AmountTokenMin); err != nil {
			return err
		}
		if p.AmountNativeMin, err = parseOptionalAmount("amountNativeMin", req.AmountNativeMin); err != nil {
			return err
		}
		if p.To, err = recipient(from, req.To); err != nil {
			return err
		}
		res, err := h.service.AddLiquidityNative(c.Context(), from, value, p)
		if err != nil {
			return mapServiceError(h.logger, err)
		}
		return c.JSON(liquidityResponse(res))
	}
}

func (h *DexHandler) RemoveLiquidity() fiber.Handler {
	return func(c fiber.Ctx) error {
		var req RemoveLiquidityRequest
		if err := h.bindBody(c, &req); err != nil {
			return err
		}
		from, err := parseAddress("from", req.From)
		if err != nil {
			return err
		}
		p := amm.RemoveLiquidityParams{Deadline: req.Deadline}
		if p.TokenA, err = parseAddress("tokenA", req.TokenA); err != nil {
			return err
		}
		if p.TokenB, err = parseAddress("tokenB", req.TokenB); err != nil {
			return err
		}
		if p.Liquidity, err = parseAmount("liquidity", req.Liquidity); err != nil {
			return err
		}
		if p.AmountAMin, err = parseOptionalAmount("amountAMin", req.AmountAMin); err != nil {
			return err
		}
		if p.AmountBMin, err = parseOptionalAmount("amountBMin", req.AmountBMin); err != nil {
			return err
		}
		if p.To, err = recipient(from, req.To); err != nil {
			return err
		}
		res, err := h.service.RemoveLiquidity(c.Context(), from, p)
		if err != nil {
			return mapServiceError(h.logger, err)
		}
		return c.JSON(liquidityResponse(res))
	}
}

func (h *DexHandler) RemoveLiquidityNative() fiber.Handler {
	return func(c fiber.Ctx) error {
		var req RemoveLiquidityNativeRequest
		if err := h.bindBody(c, &req); err != nil {
			return err
		}
		from, err := parseAddress("from", req.From)
		if err != nil {
			return err
		}
		p := amm.RemoveLiquidityNativeParams{Deadline: req.Deadline}
		if p.Token, err = parseAddress("token", req.Token); err != nil {
			return err
		}
		if p.Liquidity, err = parseAmount("liquidity", req.Liquidity); err != nil {
			return err
		}
		if p.AmountTokenMin, err = parseOptionalAmount("amountTokenMin", req.AmountTokenMin); err != nil {
			return err
		}
		if p.AmountNativeMin, err = parseOptionalAmount("amountNativeMin", req.AmountNativeMin); err != nil {
			return err
		}
		if p.To, err = recipient(from, req.To); err != nil {
			return err
		}
		res, err := h.service.RemoveLiquidityNative(c.Context(), from, p)
		if err != nil {
			return mapServiceError(h.logger, err)
		}
		return c.JSON(liquidityResponse(res))
	}
}

// swapKind says which request amounts a swap route requires.
type swapKind struct {
	op        string
	needIn    bool
	needOut   bool
	needValue bool
}

var (
	swapExactIn          = swapKind{op: "exact-in", needIn: true}
	swapExactOut         = swapKind{op: "exact-out", needIn: true, needOut: true}
	swapExactNativeIn    = swapKind{op: "exact-native-in", needValue: true}
	swapExactInNativeOut = swapKind{op: "exact-in-native-out", needIn: true}
	swapSupportingFee    = swapKind{op: "supporting-fee", needIn: true}
)

func (h *DexHandler) SwapExactIn() fiber.Handler {
	return h.swap(swapExactIn, h.service.SwapExactIn)
}

func (h *DexHandler) SwapExactOut() fiber.Handler {
	return h.swap(swapExactOut, h.service.SwapExactOut)
}

func (h *DexHandler) SwapExactInNativeOut() fiber.Handler {
	return h.swap(swapExactInNativeOut, h.service.SwapExactInNativeOut)
}

func (h *DexHandler) SwapSupportingFee() fiber.Handler {
	return h.swap(swapSupportingFee, h.service.SwapSupportingFee)
}

func (h *DexHandler) SwapExactNativeIn() fiber.Handler {
	return h.swapWithValue(swapExactNativeIn, h.service.SwapExactNativeIn)
}

type swapCall func(c fiber.Ctx, from common.Address, p service.SwapParams, req SwapRequest) (service.SwapResult, error)

func (h *DexHandler) swap(kind swapKind, fn func(ctx context.Context, from common.Address, p service.SwapParams) (service.SwapResult, error)) fiber.Handler {
	return h.handleSwap(kind, func(c fiber.Ctx, from common.Address, p service.SwapParams, _ SwapRequest) (service.SwapResult, error) {
		return fn(c.Context(), from, p)
	})
}

func (h *DexHandler) swapWithValue(kind swapKind, fn func(ctx context.Context, from common.Address, value *big.Int, p service.SwapParams) (service.SwapResult, error)) fiber.Handler {
	return h.handleSwap(kind, func(c fiber.Ctx, from common.Address, p service.SwapParams, req SwapRequest) (service.SwapResult, error) {
		value, err := parseAmount("value", req.Value)
		if err != nil {
			return service.SwapResult{}, err
		}
		return fn(c.Context(), from, value, p)
	})
}

func (h *DexHandler) handleSwap(kind swapKind, call swapCall) fiber.Handler {
	return func(c fiber.Ctx) error {
		var req SwapRequest
		if err := h.bindBody(c, &req); err != nil {
			return err
		}
		from, err := parseAddress("from", req.From)
		if err != nil {
			return err
		}
		p := service.SwapParams{Deadline: req.Deadline}
		if p.Path, err = parsePath(req.Path); err != nil {
			return err
		}
		if p.To, err = recipient(from, req.To); err != nil {
			return err
		}
		if kind.needIn {
			p.AmountIn, err = parseAmount("amountIn", req.AmountIn)
		}
		if err != nil {
			return err
		}
		if kind.needOut {
			p.AmountOut, err = parseAmount("amountOut", req.AmountOut)
		} else {
			p.AmountOut, err = parseOptionalAmount("amountOut", req.AmountOut)
		}
		if err != nil {
			return err
		}
		if kind.needValue && req.Value == "" {
			return NewAmountRequired("value")
		}

		res, err := call(c, from, p, req)
		if err != nil {
			return h.fail(err)
		}
		h.logger.Debug("swap executed", "kind", kind.op, "from", from.Hex(), "hops", len(p.Path)-1, "seq", res.Receipt.Seq)
		return c.JSON(SwapResponse{Amounts: amountStrings(res.Amounts), Receipt: res.Receipt})
	}
}

func (h *DexHandler) Approve() fiber.Handler {
	return h.token(func(c fiber.Ctx, from, tkn common.Address, amount *big.Int, req TokenRequest) (*service.Receipt, error) {
		spender, err := parseAddress("spender", req.Spender)
		if err != nil {
			return nil, err
		}
		return h.service.Approve(c.Context(), from, tkn, spender, amount)
	})
}

func (h *DexHandler) Transfer() fiber.Handler {
	return h.token(func(c fiber.Ctx, from, tkn common.Address, amount *big.Int, req TokenRequest) (*service.Receipt, error) {
		to, err := parseAddress("to", req.To)
		if err != nil {
			return nil, err
		}
		return h.service.Transfer(c.Context(), from, tkn, to, amount)
	})
}

// Faucet mints test tokens to the request's to, or to from when to is
// empty.
func (h *DexHandler) Faucet() fiber.Handler {
	return h.token(func(c fiber.Ctx, from, tkn common.Address, amount *big.Int, req TokenRequest) (*service.Receipt, error) {
		to, err := recipient(from, req.To)
		if err != nil {
			return nil, err
		}
		return h.service.Faucet(c.Context(), tkn, to, amount)
	})
}

type tokenCall func(c fiber.Ctx, from, tkn common.Address, amount *big.Int, req TokenRequest) (*service.Receipt, error)

func (h *DexHandler) token(call tokenCall) fiber.Handler {
	return func(c fiber.Ctx) error {
		var req TokenRequest
		if err := h.bindBody(c, &req); err != nil {
			return err
		}
		from, err := parseAddress("from", req.From)
		if err != nil {
			return err
		}
		tkn, err := parseAddress("token", req.Token)
		if err != nil {
			return err
		}
		amount, err := parseAmount("amount", req.Amount)
		if err != nil {
			return err
		}
		receipt, err := call(c, from, tkn, amount, req)
		if err != nil {
			return h.fail(err)
		}
		return c.JSON(receipt)
	}
}

// Deposit wraps native currency into WMON.
func (h *DexHandler) Deposit() fiber.Handler {
	return h.wmon(h.service.Wrap)
}

func (h *DexHandler) Withdraw() fiber.Handler {
	return h.wmon(h.service.Unwrap)
}

func (h *DexHandler) wmon(fn func(ctx context.Context, from common.Address, amount *big.Int) (*service.Receipt, error)) fiber.Handler {
	return func(c fiber.Ctx) error {
		var req TokenRequest
		if err := h.bindBody(c, &req); err != nil {
			return err
		}
		from, err := parseAddress("from", req.From)
		if err != nil {
			return err
		}
		amount, err := parseAmount("amount", req.Amount)
		if err != nil {
			return err
		}
		receipt, err := fn(c.Context(), from, amount)
		if err != nil {
			return mapServiceError(h.logger, err)
		}
		return c.JSON(receipt)
	}
}

// SetFeeTo updates whichever of feeTo and feeToSetter the request names.
func (h *DexHandler) SetFeeTo() fiber.Handler {
	return func(c fiber.Ctx) error {
		var req FeeToRequest
		if err := h.bindBody(c, &req); err != nil {
			return err
		}
		from, err := parseAddress("from", req.From)
		if err != nil {
			return err
		}
		var receipts []*service.Receipt
		if req.FeeTo != "" {
			feeTo, err := parseAddress("feeTo", req.FeeTo)
			if err != nil {
				return err
			}
			r, err := h.service.SetFeeTo(c.Context(), from, feeTo)
			if err != nil {
				return mapServiceError(h.logger, err)
			}
			receipts = append(receipts, r)
		}
		if req.FeeToSetter != "" {
			setter, err := parseAddress("feeToSetter", req.FeeToSetter)
			if err != nil {
				return err
			}
			r, err := h.service.SetFeeToSetter(c.Context(), from, setter)
			if err != nil {
				return mapServiceError(h.logger, err)
			}
			receipts = append(receipts, r)
		}
		if len(receipts) == 0 {
			return NewAddressRequired("feeTo")
		}
		return c.JSON(receipts)
	}
}

// fail passes request errors through and maps engine errors.
func (h *DexHandler) fail(err error) error {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return err
	}
	return mapServiceError(h.logger, err)
}

// recipient defaults an empty to field to the caller.
func recipient(from common.Address, to string) (common.Address, error) {
	if to == "" {
		return from, nil
	}
	return parseAddress("to", to)
}
