package amm

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/nulln0ne/portfolio-amm/internal/state"
	"github.com/nulln0ne/portfolio-amm/internal/token"
	"github.com/nulln0ne/portfolio-amm/pkg/uniswapv2"
)

// Router is the user-facing entry point for liquidity and swaps. It holds no
// mutable state and always resolves pairs through its factory.
type Router struct {
	address common.Address
	factory *Factory
	wmon    *token.WrappedNative
}

func DeployRouter(tx *state.Tx, factory *Factory, wmon *token.WrappedNative) (*Router, error) {
	addr, err := tx.CreateAddress()
	if err != nil {
		return nil, err
	}
	return NewRouter(addr, factory, wmon), nil
}

func NewRouter(address common.Address, factory *Factory, wmon *token.WrappedNative) *Router {
	return &Router{address: address, factory: factory, wmon: wmon}
}

func (r *Router) Address() common.Address { return r.address }
func (r *Router) Factory() common.Address { return r.factory.Address() }
func (r *Router) WMON() common.Address    { return r.wmon.Address() }

// AddLiquidityParams are the arguments of AddLiquidity.
type AddLiquidityParams struct {
	TokenA         common.Address
	TokenB         common.Address
	AmountADesired *big.Int
	AmountBDesired *big.Int
	AmountAMin     *big.Int
	AmountBMin     *big.Int
	To             common.Address
	Deadline       uint64
}

// AddLiquidityNativeParams are the arguments of AddLiquidityNative. The
// desired native amount is the value attached to the call.
type AddLiquidityNativeParams struct {
	Token              common.Address
	AmountTokenDesired *big.Int
	AmountTokenMin     *big.Int
	AmountNativeMin    *big.Int
	To                 common.Address
	Deadline           uint64
}

type RemoveLiquidityParams struct {
	TokenA     common.Address
	TokenB     common.Address
	Liquidity  *big.Int
	AmountAMin *big.Int
	AmountBMin *big.Int
	To         common.Address
	Deadline   uint64
}

type RemoveLiquidityNativeParams struct {
	Token           common.Address
	Liquidity       *big.Int
	AmountTokenMin  *big.Int
	AmountNativeMin *big.Int
	To              common.Address
	Deadline        uint64
}

// Quote returns the amount of B worth amountA at the given reserves.
func (r *Router) Quote(amountA, reserveA, reserveB *big.Int) (*big.Int, error) {
	return uniswapv2.Quote(amountA, reserveA, reserveB)
}

func (r *Router) GetAmountOut(amountIn, reserveIn, reserveOut *big.Int) (*big.Int, error) {
	return uniswapv2.AmountOut(amountIn, reserveIn, reserveOut)
}

func (r *Router) GetAmountIn(amountOut, reserveIn, reserveOut *big.Int) (*big.Int, error) {
	return uniswapv2.AmountIn(amountOut, reserveIn, reserveOut)
}

// GetAmountsOut prices amountIn along path against the current reserves.
func (r *Router) GetAmountsOut(amountIn *big.Int, path []common.Address) ([]*big.Int, error) {
	return uniswapv2.GetAmountsOut(amountIn, path, r.factory.Reserves)
}

// GetAmountsIn returns the inputs needed along path to receive amountOut.
func (r *Router) GetAmountsIn(amountOut *big.Int, path []common.Address) ([]*big.Int, error) {
	return uniswapv2.GetAmountsIn(amountOut, path, r.factory.Reserves)
}

// AddLiquidity deposits both tokens at the pool's current ratio, creating the
// pair on first use, and mints LP tokens to p.To.
func (r *Router) AddLiquidity(tx *state.Tx, p AddLiquidityParams) (amountA, amountB, liquidity *big.Int, err error) {
	if err := ensure(tx, p.Deadline); err != nil {
		return nil, nil, nil, err
	}
	amountA, amountB, err = r.addLiquidity(tx, p.TokenA, p.TokenB, p.AmountADesired, p.AmountBDesired, p.AmountAMin, p.AmountBMin)
	if err != nil {
		return nil, nil, nil, err
	}
	pair, err := r.factory.PairOf(p.TokenA, p.TokenB)
	if err != nil {
		return nil, nil, nil, err
	}
	self := tx.From(r.address)
	if err := self.TransferFrom(p.TokenA, tx.Sender(), pair.Address(), amountA); err != nil {
		return nil, nil, nil, err
	}
	if err := self.TransferFrom(p.TokenB, tx.Sender(), pair.Address(), amountB); err != nil {
		return nil, nil, nil, err
	}
	liquidity, err = pair.Mint(self, p.To)
	if err != nil {
		return nil, nil, nil, err
	}
	return amountA, amountB, liquidity, nil
}

// AddLiquidityNative pairs a token with the native currency attached to the
// call, which is wrapped before it reaches the pool. Unused value stays with
// the caller.
func (r *Router) AddLiquidityNative(tx *state.Tx, p AddLiquidityNativeParams) (amountToken, amountNative, liquidity *big.Int, err error) {
	if err := ensure(tx, p.Deadline); err != nil {
		return nil, nil, nil, err
	}
	wmon := r.wmon.Address()
	amountToken, amountNative, err = r.addLiquidity(tx, p.Token, wmon, p.AmountTokenDesired, tx.Value(), p.AmountTokenMin, p.AmountNativeMin)
	if err != nil {
		return nil, nil, nil, err
	}
	pair, err := r.factory.PairOf(p.Token, wmon)
	if err != nil {
		return nil, nil, nil, err
	}
	self := tx.From(r.address)
	if err := self.TransferFrom(p.Token, tx.Sender(), pair.Address(), amountToken); err != nil {
		return nil, nil, nil, err
	}
	if err := r.wrapTo(tx, pair.Address(), amountNative); err != nil {
		return nil, nil, nil, err
	}
	liquidity, err = pair.Mint(self, p.To)
	if err != nil {
		return nil, nil, nil, err
	}
	return amountToken, amountNative, liquidity, nil
}

// RemoveLiquidity redeems p.Liquidity LP tokens of the sender.
func (r *Router) RemoveLiquidity(tx *state.Tx, p RemoveLiquidityParams) (amountA, amountB *big.Int, err error) {
	if err := ensure(tx, p.Deadline); err != nil {
		return nil, nil, err
	}
	return r.removeLiquidity(tx, p.TokenA, p.TokenB, p.Liquidity, p.AmountAMin, p.AmountBMin, p.To)
}

// RemoveLiquidityNative redeems LP tokens of a WMON pair and unwraps the
// WMON side before paying out.
func (r *Router) RemoveLiquidityNative(tx *state.Tx, p RemoveLiquidityNativeParams) (amountToken, amountNative *big.Int, err error) {
	if err := ensure(tx, p.Deadline); err != nil {
		return nil, nil, err
	}
	amountToken, amountNative, err = r.removeLiquidity(tx, p.Token, r.wmon.Address(), p.Liquidity, p.AmountTokenMin, p.AmountNativeMin, r.address)
	if err != nil {
		return nil, nil, err
	}
	if err := tx.From(r.address).Transfer(p.Token, p.To, amountToken); err != nil {
		return nil, nil, err
	}
	if err := r.unwrapTo(tx, p.To, amountNative); err != nil {
		return nil, nil, err
	}
	return amountToken, amountNative, nil
}

// SwapExactTokensForTokens sells exactly amountIn of path[0] for at least
// amountOutMin of the last token.
func (r *Router) SwapExactTokensForTokens(tx *state.Tx, amountIn, amountOutMin *big.Int, path []common.Address, to common.Address, deadline uint64) ([]*big.Int, error) {
	if err := ensure(tx, deadline); err != nil {
		return nil, err
	}
	amounts, err := r.GetAmountsOut(amountIn, path)
	if err != nil {
		return nil, err
	}
	if amounts[len(amounts)-1].Cmp(orZero(amountOutMin)) < 0 {
		return nil, ErrInsufficientOutputAmount
	}
	if err := r.pullInput(tx, path, amounts[0]); err != nil {
		return nil, err
	}
	if err := r.swap(tx, amounts, path, to); err != nil {
		return nil, err
	}
	return amounts, nil
}

// SwapTokensForExactTokens buys exactly amountOut of the last token for at
// most amountInMax of path[0].
func (r *Router) SwapTokensForExactTokens(tx *state.Tx, amountOut, amountInMax *big.Int, path []common.Address, to common.Address, deadline uint64) ([]*big.Int, error) {
	if err := ensure(tx, deadline); err != nil {
		return nil, err
	}
	amounts, err := r.GetAmountsIn(amountOut, path)
	if err != nil {
		return nil, err
	}
	if amountInMax == nil || amounts[0].Cmp(amountInMax) > 0 {
		return nil, ErrExcessiveInputAmount
	}
	if err := r.pullInput(tx, path, amounts[0]); err != nil {
		return nil, err
	}
	if err := r.swap(tx, amounts, path, to); err != nil {
		return nil, err
	}
	return amounts, nil
}

// SwapExactNativeForTokens sells the native value attached to the call.
func (r *Router) SwapExactNativeForTokens(tx *state.Tx, amountOutMin *big.Int, path []common.Address, to common.Address, deadline uint64) ([]*big.Int, error) {
	if err := ensure(tx, deadline); err != nil {
		return nil, err
	}
	if len(path) < 2 || path[0] != r.wmon.Address() {
		return nil, ErrInvalidPath
	}
	amounts, err := r.GetAmountsOut(tx.Value(), path)
	if err != nil {
		return nil, err
	}
	if amounts[len(amounts)-1].Cmp(orZero(amountOutMin)) < 0 {
		return nil, ErrInsufficientOutputAmount
	}
	pair, err := r.factory.PairOf(path[0], path[1])
	if err != nil {
		return nil, err
	}
	if err := r.wrapTo(tx, pair.Address(), amounts[0]); err != nil {
		return nil, err
	}
	if err := r.swap(tx, amounts, path, to); err != nil {
		return nil, err
	}
	return amounts, nil
}

// SwapTokensForExactNative buys exactly amountOut of native currency.
func (r *Router) SwapTokensForExactNative(tx *state.Tx, amountOut, amountInMax *big.Int, path []common.Address, to common.Address, deadline uint64) ([]*big.Int, error) {
	if err := ensure(tx, deadline); err != nil {
		return nil, err
	}
	if len(path) < 2 || path[len(path)-1] != r.wmon.Address() {
		return nil, ErrInvalidPath
	}
	amounts, err := r.GetAmountsIn(amountOut, path)
	if err != nil {
		return nil, err
	}
	if amountInMax == nil || amounts[0].Cmp(amountInMax) > 0 {
		return nil, ErrExcessiveInputAmount
	}
	if err := r.pullInput(tx, path, amounts[0]); err != nil {
		return nil, err
	}
	if err := r.swap(tx, amounts, path, r.address); err != nil {
		return nil, err
	}
	if err := r.unwrapTo(tx, to, amounts[len(amounts)-1]); err != nil {
		return nil, err
	}
	return amounts, nil
}

// SwapExactTokensForNative sells exactly amountIn of path[0] for native
// currency.
func (r *Router) SwapExactTokensForNative(tx *state.Tx, amountIn, amountOutMin *big.Int, path []common.Address, to common.Address, deadline uint64) ([]*big.Int, error) {
	if err := ensure(tx, deadline); err != nil {
		return nil, err
	}
	if len(path) < 2 || path[len(path)-1] != r.wmon.Address() {
		return nil, ErrInvalidPath
	}
	amounts, err := r.GetAmountsOut(amountIn, path)
	if err != nil {
		return nil, err
	}
	if amounts[len(amounts)-1].Cmp(orZero(amountOutMin)) < 0 {
		return nil, ErrInsufficientOutputAmount
	}
	if err := r.pullInput(tx, path, amounts[0]); err != nil {
		return nil, err
	}
	if err := r.swap(tx, amounts, path, r.address); err != nil {
		return nil, err
	}
	if err := r.unwrapTo(tx, to, amounts[len(amounts)-1]); err != nil {
		return nil, err
	}
	return amounts, nil
}

// SwapNativeForExactTokens buys exactly amountOut, spending at most the
// native value attached to the call.
func (r *Router) SwapNativeForExactTokens(tx *state.Tx, amountOut *big.Int, path []common.Address, to common.Address, deadline uint64) ([]*big.Int, error) {
	if err := ensure(tx, deadline); err != nil {
		return nil, err
	}
	if len(path) < 2 || path[0] != r.wmon.Address() {
		return nil, ErrInvalidPath
	}
	amounts, err := r.GetAmountsIn(amountOut, path)
	if err != nil {
		return nil, err
	}
	if amounts[0].Cmp(tx.Value()) > 0 {
		return nil, ErrExcessiveInputAmount
	}
	pair, err := r.factory.PairOf(path[0], path[1])
	if err != nil {
		return nil, err
	}
	if err := r.wrapTo(tx, pair.Address(), amounts[0]); err != nil {
		return nil, err
	}
	if err := r.swap(tx, amounts, path, to); err != nil {
		return nil, err
	}
	return amounts, nil
}

// SwapExactTokensForTokensSupportingFeeOnTransferTokens prices every hop from
// what the pair actually received, for tokens that deliver less than was
// sent. The output check is made on the recipient's balance.
func (r *Router) SwapExactTokensForTokensSupportingFeeOnTransferTokens(tx *state.Tx, amountIn, amountOutMin *big.Int, path []common.Address, to common.Address, deadline uint64) error {
	if err := ensure(tx, deadline); err != nil {
		return err
	}
	if len(path) < 2 {
		return ErrInvalidPath
	}
	if err := r.pullInput(tx, path, amountIn); err != nil {
		return err
	}
	last := path[len(path)-1]
	before := tx.BalanceOf(last, to)

	self := tx.From(r.address)
	for i := 0; i < len(path)-1; i++ {
		input, output := path[i], path[i+1]
		pair, err := r.factory.PairOf(input, output)
		if err != nil {
			return err
		}
		reserve0, reserve1, _ := pair.Reserves()
		reserveIn, reserveOut := reserve0, reserve1
		if input != pair.Token0() {
			reserveIn, reserveOut = reserve1, reserve0
		}
		received := new(big.Int).Sub(tx.BalanceOf(input, pair.Address()), reserveIn)
		amountOut, err := uniswapv2.AmountOut(received, reserveIn, reserveOut)
		if err != nil {
			return err
		}
		amount0Out, amount1Out := amountOut, new(big.Int)
		if input == pair.Token0() {
			amount0Out, amount1Out = amount1Out, amountOut
		}
		next, err := r.hopRecipient(path, i, to)
		if err != nil {
			return err
		}
		if err := pair.Swap(self, amount0Out, amount1Out, next, nil, nil); err != nil {
			return err
		}
	}

	gained := new(big.Int).Sub(tx.BalanceOf(last, to), before)
	if gained.Cmp(orZero(amountOutMin)) < 0 {
		return ErrInsufficientOutputAmount
	}
	return nil
}

func (r *Router) addLiquidity(tx *state.Tx, tokenA, tokenB common.Address, amountADesired, amountBDesired, amountAMin, amountBMin *big.Int) (amountA, amountB *big.Int, err error) {
	if amountADesired == nil || amountBDesired == nil || amountADesired.Sign() <= 0 || amountBDesired.Sign() <= 0 {
		return nil, nil, ErrInsufficientInputAmount
	}
	amountAMin, amountBMin = orZero(amountAMin), orZero(amountBMin)
	if r.factory.GetPair(tokenA, tokenB) == (common.Address{}) {
		if _, err := r.factory.CreatePair(tx.From(r.address), tokenA, tokenB); err != nil {
			return nil, nil, err
		}
	}
	reserveA, reserveB, err := r.factory.Reserves(tokenA, tokenB)
	if err != nil {
		return nil, nil, err
	}
	if reserveA.Sign() == 0 && reserveB.Sign() == 0 {
		return new(big.Int).Set(amountADesired), new(big.Int).Set(amountBDesired), nil
	}

	amountBOptimal, err := uniswapv2.Quote(amountADesired, reserveA, reserveB)
	if err != nil {
		return nil, nil, err
	}
	if amountBOptimal.Cmp(amountBDesired) <= 0 {
		if amountBOptimal.Cmp(amountBMin) < 0 {
			return nil, nil, ErrInsufficientBAmount
		}
		return new(big.Int).Set(amountADesired), amountBOptimal, nil
	}
	amountAOptimal, err := uniswapv2.Quote(amountBDesired, reserveB, reserveA)
	if err != nil {
		return nil, nil, err
	}
	if amountAOptimal.Cmp(amountADesired) > 0 || amountAOptimal.Cmp(amountAMin) < 0 {
		return nil, nil, ErrInsufficientAAmount
	}
	return amountAOptimal, new(big.Int).Set(amountBDesired), nil
}

func (r *Router) removeLiquidity(tx *state.Tx, tokenA, tokenB common.Address, liquidity, amountAMin, amountBMin *big.Int, to common.Address) (amountA, amountB *big.Int, err error) {
	pair, err := r.factory.PairOf(tokenA, tokenB)
	if err != nil {
		return nil, nil, err
	}
	self := tx.From(r.address)
	if err := self.TransferFrom(pair.Address(), tx.Sender(), pair.Address(), orZero(liquidity)); err != nil {
		return nil, nil, err
	}
	amount0, amount1, err := pair.Burn(self, to)
	if err != nil {
		return nil, nil, err
	}
	amountA, amountB = amount0, amount1
	if tokenA != pair.Token0() {
		amountA, amountB = amount1, amount0
	}
	if amountA.Cmp(orZero(amountAMin)) < 0 {
		return nil, nil, ErrInsufficientAAmount
	}
	if amountB.Cmp(orZero(amountBMin)) < 0 {
		return nil, nil, ErrInsufficientBAmount
	}
	return amountA, amountB, nil
}

// pullInput moves the sender's input into the first pair of path.
func (r *Router) pullInput(tx *state.Tx, path []common.Address, amount *big.Int) error {
	pair, err := r.factory.PairOf(path[0], path[1])
	if err != nil {
		return err
	}
	return tx.From(r.address).TransferFrom(path[0], tx.Sender(), pair.Address(), amount)
}

// swap runs the hop chain. Every pair pays straight into the next one; only
// the last pays to.
func (r *Router) swap(tx *state.Tx, amounts []*big.Int, path []common.Address, to common.Address) error {
	self := tx.From(r.address)
	for i := 0; i < len(path)-1; i++ {
		input, output := path[i], path[i+1]
		pair, err := r.factory.PairOf(input, output)
		if err != nil {
			return err
		}
		amountOut := amounts[i+1]
		amount0Out, amount1Out := new(big.Int), amountOut
		if output == pair.Token0() {
			amount0Out, amount1Out = amountOut, new(big.Int)
		}
		next, err := r.hopRecipient(path, i, to)
		if err != nil {
			return err
		}
		if err := pair.Swap(self, amount0Out, amount1Out, next, nil, nil); err != nil {
			return err
		}
	}
	return nil
}

func (r *Router) hopRecipient(path []common.Address, i int, to common.Address) (common.Address, error) {
	if i >= len(path)-2 {
		return to, nil
	}
	pair, err := r.factory.PairOf(path[i+1], path[i+2])
	if err != nil {
		return common.Address{}, err
	}
	return pair.Address(), nil
}

// wrapTo takes amount of the sender's native currency, wraps it and sends
// the WMON to dst.
func (r *Router) wrapTo(tx *state.Tx, dst common.Address, amount *big.Int) error {
	if amount.Cmp(tx.Value()) > 0 {
		return ErrExcessiveInputAmount
	}
	if err := tx.NativeTransfer(r.address, amount); err != nil {
		return err
	}
	self := tx.From(r.address)
	if err := r.wmon.Deposit(self, amount); err != nil {
		return err
	}
	return self.Transfer(r.wmon.Address(), dst, amount)
}

// unwrapTo burns the router's WMON and pays native currency to dst.
func (r *Router) unwrapTo(tx *state.Tx, dst common.Address, amount *big.Int) error {
	self := tx.From(r.address)
	if err := r.wmon.Withdraw(self, amount); err != nil {
		return err
	}
	return self.NativeTransfer(dst, amount)
}

func ensure(tx *state.Tx, deadline uint64) error {
	if tx.Timestamp() > deadline {
		return ErrExpired
	}
	return nil
}
