package handler

import "github.com/gofiber/fiber/v3"

// Handlers groups the route handlers registered by Register.
type Handlers struct {
	Quote     *QuoteHandler
	Dex       *DexHandler
	Portfolio *PortfolioHandler
}

// Register mounts the HTTP surface on r.
func Register(r fiber.Router, h Handlers) {
	r.Get("/quote/amounts-out", h.Quote.AmountsOut())
	r.Get("/quote/amounts-in", h.Quote.AmountsIn())
	r.Get("/factory", h.Quote.Factory())
	r.Post("/factory/fee-to", h.Dex.SetFeeTo())
	r.Get("/addresses", h.Quote.Addresses())

	r.Get("/pairs", h.Quote.Pairs())
	r.Post("/pairs", h.Dex.CreatePair())
	// registered before the token lookup so "reserves" is not read as a token
	r.Get("/pairs/:pair/reserves", h.Quote.Reserves())
	r.Get("/pairs/:pair/balance/:holder", h.Quote.Balance("pair"))
	r.Get("/pairs/:tokenA/:tokenB", h.Quote.GetPair())

	r.Post("/liquidity/add", h.Dex.AddLiquidity())
	r.Post("/liquidity/add-native", h.Dex.AddLiquidityNative())
	r.Post("/liquidity/remove", h.Dex.RemoveLiquidity())
	r.Post("/liquidity/remove-native", h.Dex.RemoveLiquidityNative())

	r.Post("/swap/exact-in", h.Dex.SwapExactIn())
	r.Post("/swap/exact-out", h.Dex.SwapExactOut())
	r.Post("/swap/exact-native-in", h.Dex.SwapExactNativeIn())
	r.Post("/swap/exact-in-native-out", h.Dex.SwapExactInNativeOut())
	r.Post("/swap/supporting-fee", h.Dex.SwapSupportingFee())

	r.Get("/tokens/:token/balance/:holder", h.Quote.Balance("token"))
	r.Post("/tokens/approve", h.Dex.Approve())
	r.Post("/tokens/transfer", h.Dex.Transfer())
	r.Post("/tokens/faucet", h.Dex.Faucet())
	r.Post("/wmon/deposit", h.Dex.Deposit())
	r.Post("/wmon/withdraw", h.Dex.Withdraw())

	r.Post("/portfolios", h.Portfolio.Create())
	r.Get("/portfolios/:owner", h.Portfolio.Get())
	r.Get("/portfolios/:owner/estimate", h.Portfolio.Estimate())
	r.Get("/portfolios/:owner/balance/:token", h.Portfolio.Balance())
	r.Post("/portfolios/:owner/allocation", h.Portfolio.SetAllocation())
	r.Post("/portfolios/:owner/validate", h.Portfolio.Validate())
	r.Post("/portfolios/:owner/rebalance", h.Portfolio.Rebalance())
	r.Post("/portfolios/:owner/pause", h.Portfolio.Pause())
	r.Post("/portfolios/:owner/unpause", h.Portfolio.Unpause())
	r.Post("/portfolios/:owner/executors", h.Portfolio.Executors())
	r.Post("/portfolios/:owner/deposit", h.Portfolio.Deposit())
	r.Post("/portfolios/:owner/withdraw", h.Portfolio.Withdraw())
}
