package search

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"

	"github.com/quaydex/backrun-engine/internal/arb"
	"github.com/quaydex/backrun-engine/internal/engine/errs"
)

// No counterpart leg at all must fail fast with PoolNotFound, without ever
// touching the fork/network-backed contraction loop.
func TestSearchNoArbPools(t *testing.T) {
	_, err := Search(context.Background(), Params{
		StartLeg:    arb.Leg{Pool: common.HexToAddress("0x1111111111111111111111111111111111111111")},
		ArbPools:    nil,
		MaxAmountIn: big.NewInt(1_000_000),
	})
	if err == nil || !errors.Is(err, errs.ErrPoolNotFound) {
		t.Fatalf("Search with no ArbPools = %v, want ErrPoolNotFound", err)
	}
}

// A MaxAmountIn of 0 collapses the initial [0, 0] range to width 0, which is
// below WMin on the very first iteration — the search must terminate with
// ErrNoOpportunity rather than attempt a round with a zero-width band.
func TestSearchZeroMaxAmountIn(t *testing.T) {
	_, err := Search(context.Background(), Params{
		StartLeg:    arb.Leg{Pool: common.HexToAddress("0x1111111111111111111111111111111111111111")},
		ArbPools:    []arb.Leg{{Pool: common.HexToAddress("0x2222222222222222222222222222222222222222")}},
		MaxAmountIn: big.NewInt(0),
	})
	if err == nil || !errors.Is(err, errs.ErrNoOpportunity) {
		t.Fatalf("Search with MaxAmountIn=0 = %v, want ErrNoOpportunity", err)
	}
}

func TestIMinScalesWithBaseFee(t *testing.T) {
	low := IMin(big.NewInt(10))
	high := IMin(big.NewInt(20))
	if high.Cmp(low) <= 0 {
		t.Errorf("IMin(20) = %s, must be greater than IMin(10) = %s", high, low)
	}
	want := new(big.Int).Mul(big.NewInt(180_000), big.NewInt(10))
	if low.Cmp(want) != 0 {
		t.Errorf("IMin(10) = %s, want %s", low, want)
	}
}
