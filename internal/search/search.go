// Package search implements the Search Driver (§4.G): a bracketed,
// iteratively-contracting search over amount_in that calls the Arbitrage
// Simulator at a fan-out of candidate points per round.
//
// Grounded on original_source/simulator/src/sim/core.rs::step_arb. Each
// simulated point gets its own fresh ChainFork (mirroring the original's
// per-task fork_evm call inside tokio::spawn), so the goroutine fan-out
// below is safe without sharing mutable EVM state across goroutines. Typed
// errors from internal/engine/errs replace the original's string-matched
// "no other pool found" / "swap reverted" checks.
package search

import (
	"context"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/quaydex/backrun-engine/internal/arb"
	"github.com/quaydex/backrun-engine/internal/engine/errs"
	"github.com/quaydex/backrun-engine/internal/eth"
	"github.com/quaydex/backrun-engine/internal/fork"
	"github.com/quaydex/backrun-engine/internal/probe"
)

const (
	// MaxDepth bounds the number of contraction rounds.
	MaxDepth = 4
	// StepIntervals is how many bands each round's [low, high] range splits into.
	StepIntervals = 15
)

// WMin is the smallest range width worth subdividing further — below it,
// the search has converged as far as it profitably can.
var WMin = new(big.Int).Mul(big.NewInt(500_000), big.NewInt(1_000_000_000))

// IMin is the cost floor, in wei, at the given base fee: once the best
// amount_in found is positive but below it, the search stops refining.
func IMin(baseFee *big.Int) *big.Int {
	return new(big.Int).Mul(big.NewInt(180_000), baseFee)
}

// Candidate is one round's (or the search's) best amount_in/profit pair.
// StartPool/EndPool/ArbVariant round out §3's BackrunResult/§6's JSON output
// (amount_in, balance_end, profit, start_pool, end_pool, arb_variant) — the
// Orchestrator already knows the start leg (it built it via orient()), so
// runRound carries it through rather than discarding it at the fork boundary.
type Candidate struct {
	AmountIn   *big.Int
	StartPool  common.Address
	EndPool    common.Address
	ArbVariant eth.PoolFamily
	Profit     *big.Int
	BalanceEnd *big.Int
}

// zero is the "no trade" floor every round's (amount_in*, balance_end*) is
// measured against, per §4.G step 2's state `(amount_in*, balance_end*)`
// seeded at `(0, 0)`. NoOpportunity is exactly the case where nothing ever
// beat this floor. Any landed point with balance_end above 0 does beat it,
// so a result whose balance_end is below S (profit clamped to 0) is still
// returned as the search's best rather than as NoOpportunity.
func zero() *Candidate {
	return &Candidate{AmountIn: big.NewInt(0), Profit: big.NewInt(0), BalanceEnd: big.NewInt(0)}
}

// clampProfit applies §3/§8 invariant 2: profit = max(0, balance_end − S),
// measured against the probe's constant starting balance S, never negative.
// Because S is constant across every candidate in a run, maximizing raw
// balance_end (what the contraction loop does internally) and maximizing
// profit are the same thing — clamping only needs to happen once, at the
// point a Candidate is reported.
func clampProfit(balanceEnd *big.Int) *big.Int {
	p := new(big.Int).Sub(balanceEnd, probe.StartingBalanceS)
	if p.Sign() < 0 {
		return big.NewInt(0)
	}
	return p
}

// Params is everything the search needs besides the amount_in range itself.
type Params struct {
	View        *eth.ChainView
	Info        *eth.BlockInfo
	UserTx      *types.Transaction
	StartLeg    arb.Leg
	ArbPools    []arb.Leg
	WETH        common.Address
	Token       common.Address
	BaseFee     *big.Int
	MaxAmountIn *big.Int
}

// Search runs step_arb's contraction loop to convergence and returns the
// best candidate found, or a typed error per §4.G's termination table.
func Search(ctx context.Context, p Params) (*Candidate, error) {
	if len(p.ArbPools) == 0 {
		return nil, errs.PoolNotFound(p.StartLeg.Pool)
	}

	low := big.NewInt(0)
	high := new(big.Int).Set(p.MaxAmountIn)
	best := zero()

	for depth := 0; ; depth++ {
		width := new(big.Int).Sub(high, low)
		if width.Cmp(WMin) < 0 {
			return terminate(best)
		}
		if depth > MaxDepth {
			return terminate(best)
		}
		// §4.G step 1's cost-floor prune compares the amount invested, not
		// the profit it would yield, against I_MIN — see
		// original_source/simulator/src/sim/core.rs:251-253.
		if best.AmountIn.Sign() > 0 && best.AmountIn.Cmp(IMin(p.BaseFee)) < 0 {
			return terminate(best)
		}

		band := new(big.Int).Div(width, big.NewInt(StepIntervals))
		if band.Sign() == 0 {
			band = big.NewInt(1)
		}

		roundBest, anyLanded, err := p.runRound(ctx, low, high, band)
		if err != nil {
			return nil, err
		}
		if !anyLanded {
			return nil, errs.ErrAllReverted
		}
		if roundBest.BalanceEnd.Cmp(best.BalanceEnd) > 0 {
			best = roundBest
		}

		newLow := new(big.Int).Sub(best.AmountIn, band)
		if newLow.Sign() < 0 {
			newLow = big.NewInt(0)
		}
		newHigh := new(big.Int).Add(best.AmountIn, band)
		if newHigh.Cmp(p.MaxAmountIn) > 0 {
			newHigh = new(big.Int).Set(p.MaxAmountIn)
		}
		low, high = newLow, newHigh
	}
}

// terminate resolves the contraction loop's exit per §4.G step 2/§8: a best
// whose balance_end* never rose above the zero floor never improved on "no
// trade", which is NoOpportunity rather than a (spurious, zero-amount) success.
// A best with balance_end* above 0 is returned whatever its profit.
func terminate(best *Candidate) (*Candidate, error) {
	if best.BalanceEnd.Sign() > 0 {
		return best, nil
	}
	return nil, errs.ErrNoOpportunity
}

type pointResult struct {
	cand *Candidate
	err  error
}

// runRound fans one band-by-pool grid out across goroutines, each on its
// own fresh fork, and joins on the best surviving candidate.
func (p Params) runRound(ctx context.Context, low, high, band *big.Int) (*Candidate, bool, error) {
	var amounts []*big.Int
	for i := 0; i <= StepIntervals; i++ {
		amt := new(big.Int).Add(low, new(big.Int).Mul(band, big.NewInt(int64(i))))
		if amt.Cmp(high) > 0 {
			amt = new(big.Int).Set(high)
		}
		amounts = append(amounts, amt)
	}

	results := make([]pointResult, 0, len(amounts)*len(p.ArbPools))
	var mu sync.Mutex
	var wg sync.WaitGroup

	for _, amountIn := range amounts {
		for _, endLeg := range p.ArbPools {
			wg.Add(1)
			go func(amountIn *big.Int, endLeg arb.Leg) {
				defer wg.Done()
				f, err := fork.New(ctx, p.View, p.Info, p.UserTx)
				if err != nil {
					mu.Lock()
					results = append(results, pointResult{err: err})
					mu.Unlock()
					return
				}
				res, err := arb.Simulate(f, arb.Params{
					UserTx:   p.UserTx,
					StartLeg: p.StartLeg,
					EndLeg:   endLeg,
					WETH:     p.WETH,
					Token:    p.Token,
					AmountIn: amountIn,
					BaseFee:  p.BaseFee,
				})
				mu.Lock()
				defer mu.Unlock()
				if err != nil {
					results = append(results, pointResult{err: err})
					return
				}
				results = append(results, pointResult{cand: &Candidate{
					AmountIn:   res.AmountIn,
					StartPool:  p.StartLeg.Pool,
					EndPool:    endLeg.Pool,
					ArbVariant: p.StartLeg.Family,
					Profit:     clampProfit(res.BalanceEnd),
					BalanceEnd: res.BalanceEnd,
				}})
			}(amountIn, endLeg)
		}
	}
	wg.Wait()

	best := zero()
	anyLanded := false
	for _, r := range results {
		if r.err != nil {
			continue
		}
		anyLanded = true
		if r.cand.BalanceEnd.Cmp(best.BalanceEnd) > 0 {
			best = r.cand
		}
	}
	return best, anyLanded, nil
}
