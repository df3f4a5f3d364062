package amm

import (
	"math/big"
	"sync/atomic"

	"github.com/ethereum/go-ethereum/common"
	"github.com/nulln0ne/portfolio-amm/internal/state"
	"github.com/nulln0ne/portfolio-amm/pkg/uniswapv2"
)

// MinimumLiquidity is locked at the zero address by the first mint.
const MinimumLiquidity = 1000

var (
	minimumLiquidity = big.NewInt(MinimumLiquidity)
	feeDenominator   = big.NewInt(uniswapv2.FeeDenominator)
	feeCharged       = big.NewInt(uniswapv2.FeeDenominator - uniswapv2.FeeNumerator)
	feeScale         = new(big.Int).Mul(feeDenominator, feeDenominator)
	five             = big.NewInt(5)
	maxUint256       = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1))
)

// FeeSource reports where the protocol fee is minted. The zero address turns
// the fee off.
type FeeSource interface {
	FeeTo() common.Address
}

// Callee receives the output of a flash swap before the pair verifies it
// was paid for. tx's sender is the pair.
type Callee interface {
	UniswapV2Call(tx *state.Tx, sender common.Address, amount0, amount1 *big.Int, data []byte) error
}

// Pair is the reserve pool of one token pair. Its LP token lives in the
// ledger under the pair's own address.
//
// A Pair must only be touched from inside state.Execute or state.View.
type Pair struct {
	address common.Address
	factory common.Address
	fees    FeeSource
	token0  common.Address
	token1  common.Address

	reserve0             *big.Int
	reserve1             *big.Int
	blockTimestampLast   uint32
	price0CumulativeLast *big.Int
	price1CumulativeLast *big.Int
	kLast                *big.Int

	locked atomic.Bool
}

type pairSnapshot struct {
	reserve0, reserve1    *big.Int
	blockTimestampLast    uint32
	price0, price1, kLast *big.Int
}

func newPair(address, factory common.Address, fees FeeSource, token0, token1 common.Address) *Pair {
	return &Pair{
		address:              address,
		factory:              factory,
		fees:                 fees,
		token0:               token0,
		token1:               token1,
		reserve0:             new(big.Int),
		reserve1:             new(big.Int),
		price0CumulativeLast: new(big.Int),
		price1CumulativeLast: new(big.Int),
		kLast:                new(big.Int),
	}
}

func (p *Pair) Address() common.Address { return p.address }
func (p *Pair) Factory() common.Address { return p.factory }
func (p *Pair) Token0() common.Address  { return p.token0 }
func (p *Pair) Token1() common.Address  { return p.token1 }

// Reserves returns copies of the pooled balances and the timestamp of their
// last update.
func (p *Pair) Reserves() (reserve0, reserve1 *big.Int, blockTimestampLast uint32) {
	return new(big.Int).Set(p.reserve0), new(big.Int).Set(p.reserve1), p.blockTimestampLast
}

func (p *Pair) Price0CumulativeLast() *big.Int { return new(big.Int).Set(p.price0CumulativeLast) }
func (p *Pair) Price1CumulativeLast() *big.Int { return new(big.Int).Set(p.price1CumulativeLast) }
func (p *Pair) KLast() *big.Int                { return new(big.Int).Set(p.kLast) }

func (p *Pair) TotalSupply(tx *state.Tx) *big.Int {
	return tx.TotalSupply(p.address)
}

func (p *Pair) BalanceOf(tx *state.Tx, holder common.Address) *big.Int {
	return tx.BalanceOf(p.address, holder)
}

// Mint issues LP tokens to to for whatever was transferred into the pair
// since the last reserve update.
func (p *Pair) Mint(tx *state.Tx, to common.Address) (*big.Int, error) {
	if err := p.lock(tx); err != nil {
		return nil, err
	}
	defer p.unlock()
	p.checkpoint(tx)

	reserve0, reserve1 := p.reserve0, p.reserve1
	balance0 := tx.BalanceOf(p.token0, p.address)
	balance1 := tx.BalanceOf(p.token1, p.address)
	amount0 := new(big.Int).Sub(balance0, reserve0)
	amount1 := new(big.Int).Sub(balance1, reserve1)
	if amount0.Sign() < 0 || amount1.Sign() < 0 {
		return nil, ErrInsufficientLiquidityMinted
	}

	self := tx.From(p.address)
	feeOn, err := p.mintFee(self, reserve0, reserve1)
	if err != nil {
		return nil, err
	}

	totalSupply := tx.TotalSupply(p.address)
	var liquidity *big.Int
	if totalSupply.Sign() == 0 {
		liquidity = new(big.Int).Mul(amount0, amount1)
		liquidity.Sqrt(liquidity)
		liquidity.Sub(liquidity, minimumLiquidity)
		if liquidity.Sign() <= 0 {
			return nil, ErrInsufficientLiquidityMinted
		}
		if err := self.Mint(p.address, common.Address{}, minimumLiquidity); err != nil {
			return nil, err
		}
	} else {
		if reserve0.Sign() == 0 || reserve1.Sign() == 0 {
			return nil, ErrInsufficientLiquidityMinted
		}
		liquidity = new(big.Int).Mul(amount0, totalSupply)
		liquidity.Div(liquidity, reserve0)
		liquidity1 := new(big.Int).Mul(amount1, totalSupply)
		liquidity1.Div(liquidity1, reserve1)
		if liquidity1.Cmp(liquidity) < 0 {
			liquidity = liquidity1
		}
	}
	if liquidity.Sign() <= 0 {
		return nil, ErrInsufficientLiquidityMinted
	}
	if err := self.Mint(p.address, to, liquidity); err != nil {
		return nil, err
	}

	if err := p.update(tx, balance0, balance1, reserve0, reserve1); err != nil {
		return nil, err
	}
	if feeOn {
		p.kLast = new(big.Int).Mul(p.reserve0, p.reserve1)
	}
	tx.Emit(p.address, Mint{Sender: tx.Sender(), Amount0: amount0, Amount1: amount1})
	return liquidity, nil
}

// Burn redeems the LP tokens held by the pair itself and pays the
// underlying tokens to to.
func (p *Pair) Burn(tx *state.Tx, to common.Address) (amount0, amount1 *big.Int, err error) {
	if err := p.lock(tx); err != nil {
		return nil, nil, err
	}
	defer p.unlock()
	p.checkpoint(tx)

	reserve0, reserve1 := p.reserve0, p.reserve1
	balance0 := tx.BalanceOf(p.token0, p.address)
	balance1 := tx.BalanceOf(p.token1, p.address)
	liquidity := tx.BalanceOf(p.address, p.address)

	self := tx.From(p.address)
	feeOn, err := p.mintFee(self, reserve0, reserve1)
	if err != nil {
		return nil, nil, err
	}

	totalSupply := tx.TotalSupply(p.address)
	if totalSupply.Sign() == 0 {
		return nil, nil, ErrInsufficientLiquidityBurned
	}
	amount0 = new(big.Int).Mul(liquidity, balance0)
	amount0.Div(amount0, totalSupply)
	amount1 = new(big.Int).Mul(liquidity, balance1)
	amount1.Div(amount1, totalSupply)
	if amount0.Sign() <= 0 || amount1.Sign() <= 0 {
		return nil, nil, ErrInsufficientLiquidityBurned
	}

	if err := self.Burn(p.address, p.address, liquidity); err != nil {
		return nil, nil, err
	}
	if err := self.Transfer(p.token0, to, amount0); err != nil {
		return nil, nil, err
	}
	if err := self.Transfer(p.token1, to, amount1); err != nil {
		return nil, nil, err
	}

	balance0 = tx.BalanceOf(p.token0, p.address)
	balance1 = tx.BalanceOf(p.token1, p.address)
	if err := p.update(tx, balance0, balance1, reserve0, reserve1); err != nil {
		return nil, nil, err
	}
	if feeOn {
		p.kLast = new(big.Int).Mul(p.reserve0, p.reserve1)
	}
	tx.Emit(p.address, Burn{Sender: tx.Sender(), Amount0: amount0, Amount1: amount1, To: to})
	return amount0, amount1, nil
}

// Swap pays out the requested amounts to to and then requires that the
// pair's balances, net of the 0.3% input fee, did not lower the reserve
// product. callee may be nil.
func (p *Pair) Swap(tx *state.Tx, amount0Out, amount1Out *big.Int, to common.Address, callee Callee, data []byte) error {
	amount0Out, amount1Out = orZero(amount0Out), orZero(amount1Out)
	if amount0Out.Sign() < 0 || amount1Out.Sign() < 0 {
		return ErrInsufficientOutputAmount
	}
	if amount0Out.Sign() == 0 && amount1Out.Sign() == 0 {
		return ErrInsufficientOutputAmount
	}
	if err := p.lock(tx); err != nil {
		return err
	}
	defer p.unlock()
	p.checkpoint(tx)

	reserve0, reserve1 := p.reserve0, p.reserve1
	if amount0Out.Cmp(reserve0) >= 0 || amount1Out.Cmp(reserve1) >= 0 {
		return ErrInsufficientLiquidity
	}
	if to == p.token0 || to == p.token1 {
		return ErrInvalidTo
	}

	self := tx.From(p.address)
	if amount0Out.Sign() > 0 {
		if err := self.Transfer(p.token0, to, amount0Out); err != nil {
			return err
		}
	}
	if amount1Out.Sign() > 0 {
		if err := self.Transfer(p.token1, to, amount1Out); err != nil {
			return err
		}
	}
	if callee != nil {
		if err := callee.UniswapV2Call(self, tx.Sender(), amount0Out, amount1Out, data); err != nil {
			return err
		}
	}

	balance0 := tx.BalanceOf(p.token0, p.address)
	balance1 := tx.BalanceOf(p.token1, p.address)
	amount0In := amountIn(balance0, reserve0, amount0Out)
	amount1In := amountIn(balance1, reserve1, amount1Out)
	if amount0In.Sign() == 0 && amount1In.Sign() == 0 {
		return ErrInsufficientInputAmount
	}

	adjusted0 := new(big.Int).Mul(balance0, feeDenominator)
	adjusted0.Sub(adjusted0, new(big.Int).Mul(amount0In, feeCharged))
	adjusted1 := new(big.Int).Mul(balance1, feeDenominator)
	adjusted1.Sub(adjusted1, new(big.Int).Mul(amount1In, feeCharged))

	k := new(big.Int).Mul(reserve0, reserve1)
	k.Mul(k, feeScale)
	if new(big.Int).Mul(adjusted0, adjusted1).Cmp(k) < 0 {
		return ErrK
	}

	if err := p.update(tx, balance0, balance1, reserve0, reserve1); err != nil {
		return err
	}
	tx.Emit(p.address, Swap{
		Sender:     tx.Sender(),
		Amount0In:  amount0In,
		Amount1In:  amount1In,
		Amount0Out: new(big.Int).Set(amount0Out),
		Amount1Out: new(big.Int).Set(amount1Out),
		To:         to,
	})
	return nil
}

// Skim sends any balance above the reserves to to.
func (p *Pair) Skim(tx *state.Tx, to common.Address) error {
	if err := p.lock(tx); err != nil {
		return err
	}
	defer p.unlock()

	self := tx.From(p.address)
	excess0 := new(big.Int).Sub(tx.BalanceOf(p.token0, p.address), p.reserve0)
	excess1 := new(big.Int).Sub(tx.BalanceOf(p.token1, p.address), p.reserve1)
	if excess0.Sign() > 0 {
		if err := self.Transfer(p.token0, to, excess0); err != nil {
			return err
		}
	}
	if excess1.Sign() > 0 {
		if err := self.Transfer(p.token1, to, excess1); err != nil {
			return err
		}
	}
	return nil
}

// Sync forces the reserves to match the balances.
func (p *Pair) Sync(tx *state.Tx) error {
	if err := p.lock(tx); err != nil {
		return err
	}
	defer p.unlock()
	p.checkpoint(tx)
	return p.update(tx, tx.BalanceOf(p.token0, p.address), tx.BalanceOf(p.token1, p.address), p.reserve0, p.reserve1)
}

// mintFee mints the protocol's share of the growth in sqrt(k) since the
// last liquidity event: one sixth of it.
func (p *Pair) mintFee(self *state.Tx, reserve0, reserve1 *big.Int) (bool, error) {
	var feeTo common.Address
	if p.fees != nil {
		feeTo = p.fees.FeeTo()
	}
	feeOn := feeTo != (common.Address{})
	if !feeOn {
		if p.kLast.Sign() != 0 {
			p.kLast = new(big.Int)
		}
		return false, nil
	}
	if p.kLast.Sign() == 0 {
		return true, nil
	}

	rootK := new(big.Int).Mul(reserve0, reserve1)
	rootK.Sqrt(rootK)
	rootKLast := new(big.Int).Sqrt(p.kLast)
	if rootK.Cmp(rootKLast) <= 0 {
		return true, nil
	}
	numerator := new(big.Int).Sub(rootK, rootKLast)
	numerator.Mul(numerator, self.TotalSupply(p.address))
	denominator := new(big.Int).Mul(rootK, five)
	denominator.Add(denominator, rootKLast)
	liquidity := numerator.Div(numerator, denominator)
	if liquidity.Sign() > 0 {
		if err := self.Mint(p.address, feeTo, liquidity); err != nil {
			return true, err
		}
	}
	return true, nil
}

// update stores new reserves and, on the first update of a block, advances
// the UQ112x112 price accumulators by the old price times the elapsed time.
func (p *Pair) update(tx *state.Tx, balance0, balance1, reserve0, reserve1 *big.Int) error {
	if balance0.BitLen() > 112 || balance1.BitLen() > 112 {
		return ErrOverflow
	}
	blockTimestamp := uint32(tx.Timestamp())
	timeElapsed := blockTimestamp - p.blockTimestampLast // wraps, like the uint32 it models
	if timeElapsed > 0 && reserve0.Sign() != 0 && reserve1.Sign() != 0 {
		p.price0CumulativeLast = accumulate(p.price0CumulativeLast, reserve1, reserve0, timeElapsed)
		p.price1CumulativeLast = accumulate(p.price1CumulativeLast, reserve0, reserve1, timeElapsed)
	}
	p.reserve0 = new(big.Int).Set(balance0)
	p.reserve1 = new(big.Int).Set(balance1)
	p.blockTimestampLast = blockTimestamp
	tx.Emit(p.address, Sync{Reserve0: new(big.Int).Set(balance0), Reserve1: new(big.Int).Set(balance1)})
	return nil
}

func accumulate(acc, numerator, denominator *big.Int, elapsed uint32) *big.Int {
	price := new(big.Int).Lsh(numerator, 112)
	price.Div(price, denominator)
	price.Mul(price, new(big.Int).SetUint64(uint64(elapsed)))
	price.Add(price, acc)
	return price.And(price, maxUint256)
}

func amountIn(balance, reserve, out *big.Int) *big.Int {
	floor := new(big.Int).Sub(reserve, out)
	if balance.Cmp(floor) > 0 {
		return floor.Sub(balance, floor)
	}
	return new(big.Int)
}

func orZero(v *big.Int) *big.Int {
	if v == nil {
		return new(big.Int)
	}
	return v
}

func (p *Pair) lock(tx *state.Tx) error {
	if err := tx.Writable(); err != nil {
		return err
	}
	if !p.locked.CompareAndSwap(false, true) {
		return ErrLocked
	}
	return nil
}

func (p *Pair) unlock() {
	p.locked.Store(false)
}

// checkpoint journals the pair's fields. They are only ever replaced, never
// mutated in place, so keeping the pointers is enough.
func (p *Pair) checkpoint(tx *state.Tx) {
	snap := pairSnapshot{
		reserve0:           p.reserve0,
		reserve1:           p.reserve1,
		blockTimestampLast: p.blockTimestampLast,
		price0:             p.price0CumulativeLast,
		price1:             p.price1CumulativeLast,
		kLast:              p.kLast,
	}
	tx.Record(func() {
		p.reserve0 = snap.reserve0
		p.reserve1 = snap.reserve1
		p.blockTimestampLast = snap.blockTimestampLast
		p.price0CumulativeLast = snap.price0
		p.price1CumulativeLast = snap.price1
		p.kLast = snap.kLast
	})
}
