// Package arb implements the Arbitrage Simulator (§4.F): replay the user's
// transaction, then simulate a buy leg and a sell leg through a probe,
// returning the amount_in and the probe's ending WETH balance for one
// (amount_in, start_pool, end_pool) candidate.
//
// Grounded on original_source/simulator/src/sim/core.rs::sim_arb — same
// three-step sequence (commit user tx, buy at base_fee, sell at
// base_fee * 1.25) — but typed errors from internal/engine/errs replace the
// original's string-matched revert reasons.
package arb

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/quaydex/backrun-engine/internal/eth"
	"github.com/quaydex/backrun-engine/internal/fork"
	"github.com/quaydex/backrun-engine/internal/probe"
)

// sellGasPremiumNum/Den scale base_fee by 1.25 for the sell leg's gas
// price, matching core.rs's `base_fee + base_fee * 2500 / 10000`.
const (
	sellGasPremiumNum = 5
	sellGasPremiumDen = 4
)

// Leg names one side of the round trip: which pool, which AMM family, and
// that pool's own token0 (needed to orient a swap call correctly).
type Leg struct {
	Pool   common.Address
	Family eth.PoolFamily
	Token0 common.Address
}

// Params is one backrun candidate to simulate.
type Params struct {
	UserTx    *types.Transaction
	StartLeg  Leg
	EndLeg    Leg
	WETH      common.Address
	Token     common.Address
	AmountIn  *big.Int
	BaseFee   *big.Int
}

// Result is the simulator's verdict: how much WETH went in, and how much
// came back out at the end of the round trip.
type Result struct {
	AmountIn   *big.Int
	BalanceEnd *big.Int
}

// Simulate runs one candidate to completion on f. f is expected to be
// rooted at the block immediately preceding the user's transaction, so
// committing UserTx reproduces the exact state the backrun would land
// against.
func Simulate(f *fork.ChainFork, params Params) (*Result, error) {
	exec := fork.NewExecutor(f)
	if _, err := exec.Commit(params.UserTx); err != nil {
		return nil, err
	}

	p, err := probe.New(f, params.WETH)
	if err != nil {
		return nil, err
	}

	sellGasPrice := new(big.Int).Mul(params.BaseFee, big.NewInt(sellGasPremiumNum))
	sellGasPrice.Div(sellGasPrice, big.NewInt(sellGasPremiumDen))

	received, err := p.Swap(params.StartLeg.Family, params.StartLeg.Pool, params.WETH, params.Token, params.StartLeg.Token0, params.AmountIn, params.BaseFee)
	if err != nil {
		return nil, err
	}

	if _, err := p.Swap(params.EndLeg.Family, params.EndLeg.Pool, params.Token, params.WETH, params.EndLeg.Token0, received, sellGasPrice); err != nil {
		return nil, err
	}

	// balance_end is the probe's own post-swap WETH balance (§3/§4.F), not
	// the second leg's bare return value: the probe started at S, spent
	// AmountIn on the buy leg, and the sell leg's output landed in its
	// balance via swap()'s genuine ERC20 transfer.
	balanceEnd, err := p.BalanceOf(params.WETH)
	if err != nil {
		return nil, err
	}

	return &Result{AmountIn: params.AmountIn, BalanceEnd: balanceEnd}, nil
}
