package orchestrator

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"

	"github.com/quaydex/backrun-engine/internal/decode"
	"github.com/quaydex/backrun-engine/internal/eth"
)

var (
	weth  = common.HexToAddress("0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2")
	token = common.HexToAddress("0x1111111111111111111111111111111111111111")
	pool  = common.HexToAddress("0x2222222222222222222222222222222222222222")
	other = common.HexToAddress("0x3333333333333333333333333333333333333333")
)

func baseTrade() decode.UserTradeParams {
	return decode.UserTradeParams{
		PoolVariant: eth.FamilyV2,
		Pool:        pool,
		Tokens:      decode.TokenPair{WETH: weth, Token: token},
	}
}

// The four branches of §4.H's orientation table: which pool is bought on
// depends on (a) which side of trade.Pool WETH sits on and (b) whether
// trade.Pool's own price or the counterpart's is higher.
func TestOrientFourBranches(t *testing.T) {
	cases := []struct {
		name               string
		token0IsWETH       bool
		tradePrice, altPrice int64
		wantStartIsTradePool bool
	}{
		{"weth is token0, trade pool priced higher -> buy on trade pool", true, 200, 100, true},
		{"weth is token0, trade pool priced lower -> buy on other pool", true, 100, 200, false},
		{"weth is token1, trade pool priced higher -> buy on other pool", false, 200, 100, false},
		{"weth is token1, trade pool priced lower -> buy on trade pool", false, 100, 200, true},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			trade := baseTrade()
			trade.Token0IsWETH = c.token0IsWETH
			trade.Price = big.NewInt(c.tradePrice)
			altPrice := big.NewInt(c.altPrice)

			start, end := orient(trade, other, eth.FamilyV3, token, altPrice)

			startIsTradePool := start.Pool == pool
			if startIsTradePool != c.wantStartIsTradePool {
				t.Errorf("start pool = %s (trade=%s, other=%s), want startIsTradePool=%v",
					start.Pool.Hex(), pool.Hex(), other.Hex(), c.wantStartIsTradePool)
			}
			// start and end must always be the two distinct legs, never the same pool twice.
			if start.Pool == end.Pool {
				t.Errorf("start and end legs resolved to the same pool %s", start.Pool.Hex())
			}
		})
	}
}

func TestAmountInStartDirectWhenTokenInIsWETH(t *testing.T) {
	trade := baseTrade()
	trade.TokenIn = weth
	trade.Amount0Sent = big.NewInt(5)
	trade.Amount1Sent = big.NewInt(7) // larger of the two "sent" sides
	trade.Price = big.NewInt(0)       // must not matter on this branch

	got := amountInStart(trade)
	if got.Cmp(big.NewInt(7)) != 0 {
		t.Errorf("amountInStart = %s, want 7 (the sent amount itself, unconverted)", got)
	}
}

func TestAmountInStartConvertedWhenTokenInIsNotWETH(t *testing.T) {
	trade := baseTrade()
	trade.TokenIn = token
	trade.Amount0Sent = big.NewInt(0)
	trade.Amount1Sent = big.NewInt(2)
	// price = 3 WETH per token scaled by 1e18.
	trade.Price = new(big.Int).Mul(big.NewInt(3), weiScale)

	got := amountInStart(trade)
	want := big.NewInt(6) // 2 token * 3 WETH/token
	if got.Cmp(want) != 0 {
		t.Errorf("amountInStart = %s, want %s", got, want)
	}
}

func TestAmountInStartZeroWhenNothingSent(t *testing.T) {
	trade := baseTrade()
	trade.TokenIn = weth
	trade.Amount0Sent = big.NewInt(0)
	trade.Amount1Sent = big.NewInt(0)

	if got := amountInStart(trade); got.Sign() != 0 {
		t.Errorf("amountInStart = %s, want 0", got)
	}
}
