// Package pricing implements the closed-form and on-fork spot price
// routines for V2 and V3 pools, denominated in WETH per unit of the
// non-WETH token (or its inverse, per the pool's own token ordering).
package pricing

import (
	"context"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"github.com/quaydex/backrun-engine/internal/eth"
)

var (
	v2PairABI abi.ABI
	v3PoolABI abi.ABI
)

func init() {
	var err error
	v2PairABI, err = abi.JSON(strings.NewReader(eth.UniswapV2PairABI))
	if err != nil {
		panic(err)
	}
	v3PoolABI, err = abi.JSON(strings.NewReader(eth.UniswapV3PoolABI))
	if err != nil {
		panic(err)
	}
}

// q96 is 2^96, used to recover the raw price out of sqrtPriceX96.
var q96 = new(big.Int).Lsh(big.NewInt(1), 96)

// PriceV2 returns reserve1 * 10^decimals / reserve0 — token1-per-token0,
// grounded on internal/arbitrage/math.go's CalculatePrice but kept in
// integer math per the spec's closed form (§4.E).
func PriceV2(reserve0, reserve1 *big.Int, decimals int) *big.Int {
	if reserve0.Sign() == 0 {
		return big.NewInt(0)
	}
	scale := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil)
	price := new(big.Int).Mul(reserve1, scale)
	return price.Div(price, reserve0)
}

// PriceV3 derives token1-per-token0 price from (sqrtPriceX96/2^96)^2 scaled
// by 10^decimals. liquidity is accepted for API symmetry with the spec but
// is not used by the closed form itself.
func PriceV3(liquidity, sqrtPriceX96 *big.Int, decimals int) *big.Int {
	_ = liquidity
	scale := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil)
	numerator := new(big.Int).Mul(sqrtPriceX96, sqrtPriceX96)
	numerator.Mul(numerator, scale)
	denominator := new(big.Int).Mul(q96, q96)
	return numerator.Div(numerator, denominator)
}

// GetAmountOutV2 is the standard 0.3%-fee constant-product output formula,
// grounded on internal/arbitrage/math.go::GetAmountOut. Shared with
// internal/probe so both the oracle and the probe's V2 leg agree on the
// same math the real pair contract enforces.
func GetAmountOutV2(amountIn, reserveIn, reserveOut *big.Int) *big.Int {
	if amountIn.Sign() <= 0 || reserveIn.Sign() <= 0 || reserveOut.Sign() <= 0 {
		return big.NewInt(0)
	}
	amountInWithFee := new(big.Int).Mul(amountIn, big.NewInt(997))
	numerator := new(big.Int).Mul(amountInWithFee, reserveOut)
	denominator := new(big.Int).Mul(reserveIn, big.NewInt(1000))
	denominator.Add(denominator, amountInWithFee)
	return numerator.Div(numerator, denominator)
}

// SimPriceV2 reads live reserves and token ordering off the given pool
// through the Chain View and returns its spot price in the orientation the
// caller already knows (token1-per-token0).
func SimPriceV2(ctx context.Context, view *eth.ChainView, pool common.Address, atBlock uint64) (*big.Int, error) {
	out, err := view.Call(ctx, pool, v2PairABI.Methods["getReserves"].ID, atBlock)
	if err != nil {
		return nil, err
	}
	values, err := v2PairABI.Methods["getReserves"].Outputs.Unpack(out)
	if err != nil {
		return nil, err
	}
	reserve0 := values[0].(*big.Int)
	reserve1 := values[1].(*big.Int)
	return PriceV2(reserve0, reserve1, 18), nil
}

// SimPriceV3 reads slot0 off the given pool through the Chain View and
// returns its spot price the same way.
func SimPriceV3(ctx context.Context, view *eth.ChainView, pool common.Address, atBlock uint64) (*big.Int, error) {
	out, err := view.Call(ctx, pool, v3PoolABI.Methods["slot0"].ID, atBlock)
	if err != nil {
		return nil, err
	}
	values, err := v3PoolABI.Methods["slot0"].Outputs.Unpack(out)
	if err != nil {
		return nil, err
	}
	sqrtPriceX96 := values[0].(*big.Int)
	return PriceV3(nil, sqrtPriceX96, 18), nil
}
