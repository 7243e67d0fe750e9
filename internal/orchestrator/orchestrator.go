// Package orchestrator implements the Orchestrator (§4.H): for every
// decoded trade, pick which of the two candidate pools to buy on and which
// to sell on, then hand that single (start, end) pair to the Search Driver.
//
// Grounded on original_source/simulator/src/sim/core.rs::
// find_optimal_backrun_amount_in_out's four-branch orientation table.
package orchestrator

import (
	"context"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/quaydex/backrun-engine/internal/arb"
	"github.com/quaydex/backrun-engine/internal/decode"
	"github.com/quaydex/backrun-engine/internal/engine/errs"
	"github.com/quaydex/backrun-engine/internal/eth"
	"github.com/quaydex/backrun-engine/internal/pricing"
	"github.com/quaydex/backrun-engine/internal/router"
	"github.com/quaydex/backrun-engine/internal/search"
)

// Result pairs one decoded trade with its search outcome — Best is nil
// when Err is set.
type Result struct {
	Trade decode.UserTradeParams
	Best  *search.Candidate
	Err   error
}

// Run fans every trade in trades out to its own goroutine: trades are
// independent searches over disjoint fork copies, so there's nothing to
// serialize here.
func Run(ctx context.Context, view *eth.ChainView, rtr *router.Router, info *eth.BlockInfo, userTx *types.Transaction, trades []decode.UserTradeParams, baseFee *big.Int) []Result {
	results := make([]Result, len(trades))
	var wg sync.WaitGroup
	for i, trade := range trades {
		wg.Add(1)
		go func(i int, trade decode.UserTradeParams) {
			defer wg.Done()
			results[i] = runOne(ctx, view, rtr, info, userTx, trade, baseFee)
		}(i, trade)
	}
	wg.Wait()
	return results
}

// amountInStart implements §4.G's "Initial range selection": the WETH value
// the user contributed, taken directly off the sent side when the user sold
// WETH, otherwise converted through the decoded post-trade price (a
// token1-per-token0 ratio, so it is divided by rather than multiplied when
// WETH is token0) — the
// price-converted form spec.md's Open Question #1 explicitly adopts over
// amount_in.max(amount0_sent, amount1_sent).
func amountInStart(trade decode.UserTradeParams) *big.Int {
	sent := trade.Amount0Sent
	if trade.Amount1Sent.Cmp(sent) > 0 {
		sent = trade.Amount1Sent
	}
	if trade.TokenIn == trade.Tokens.WETH {
		return new(big.Int).Set(sent)
	}
	if trade.Token0IsWETH {
		if trade.Price.Sign() == 0 {
			return big.NewInt(0)
		}
		converted := new(big.Int).Mul(sent, weiScale)
		return converted.Div(converted, trade.Price)
	}
	converted := new(big.Int).Mul(sent, trade.Price)
	return converted.Div(converted, weiScale)
}

var weiScale = new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil)

func runOne(ctx context.Context, view *eth.ChainView, rtr *router.Router, info *eth.BlockInfo, userTx *types.Transaction, trade decode.UserTradeParams, baseFee *big.Int) Result {
	if len(trade.ArbPools) == 0 {
		return Result{Trade: trade, Err: errs.PoolNotFound(trade.Pool)}
	}
	// "Last wins": the Decoder's arb_pools list holds the opposite family's
	// pools only, ordered by factory (then fee tier, for V3); the final entry is the counterpart the
	// Orchestrator actually trades against, per the spec's Open Question #2.
	otherPool := trade.ArbPools[len(trade.ArbPools)-1]
	otherFamily := trade.PoolVariant.Other()

	var altPrice *big.Int
	var err error
	if otherFamily == eth.FamilyV2 {
		altPrice, err = pricing.SimPriceV2(ctx, view, otherPool, info.Number)
	} else {
		altPrice, err = pricing.SimPriceV3(ctx, view, otherPool, info.Number)
	}
	if err != nil {
		return Result{Trade: trade, Err: err}
	}

	otherToken0, _, err := rtr.GetPairTokens(ctx, otherPool, info.Number)
	if err != nil {
		return Result{Trade: trade, Err: err}
	}

	startLeg, endLeg := orient(trade, otherPool, otherFamily, otherToken0, altPrice)

	maxAmountIn := amountInStart(trade)
	if maxAmountIn.Sign() <= 0 {
		return Result{Trade: trade, Err: errs.ErrNoOpportunity}
	}

	best, err := search.Search(ctx, search.Params{
		View:        view,
		Info:        info,
		UserTx:      userTx,
		StartLeg:    startLeg,
		ArbPools:    []arb.Leg{endLeg},
		WETH:        trade.Tokens.WETH,
		Token:       trade.Tokens.Token,
		BaseFee:     baseFee,
		MaxAmountIn: maxAmountIn,
	})
	return Result{Trade: trade, Best: best, Err: err}
}

// orient applies the spec's four-branch table: which pool to buy on
// depends on which side of the pair WETH sits on, and which of the two
// prices (the landed trade's own pool vs. the counterpart) is higher.
// otherFamily is always trade.PoolVariant.Other(), so whichever leg starts,
// the other already carries the opposite family — no override needed.
func orient(trade decode.UserTradeParams, otherPool common.Address, otherFamily eth.PoolFamily, otherToken0 common.Address, altPrice *big.Int) (start, end arb.Leg) {
	tradePool := arb.Leg{Pool: trade.Pool, Family: trade.PoolVariant, Token0: tradePoolToken0(trade)}
	otherLeg := arb.Leg{Pool: otherPool, Family: otherFamily, Token0: otherToken0}

	priceHigherOnTradePool := trade.Price.Cmp(altPrice) > 0

	if trade.Token0IsWETH {
		if priceHigherOnTradePool {
			return tradePool, otherLeg
		}
		return otherLeg, tradePool
	}

	// token1 is WETH: the two branches invert.
	if priceHigherOnTradePool {
		return otherLeg, tradePool
	}
	return tradePool, otherLeg
}

// tradePoolToken0 returns trade.Pool's own token0 — WETH when
// Token0IsWETH, the counterpart token otherwise.
func tradePoolToken0(trade decode.UserTradeParams) common.Address {
	if trade.Token0IsWETH {
		return trade.Tokens.WETH
	}
	return trade.Tokens.Token
}
