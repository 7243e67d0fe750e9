package pricing

import (
	"math/big"
	"testing"
)

func TestPriceV2(t *testing.T) {
	// 1000 WETH / 2,000,000 TOKEN reserves -> 2000 TOKEN per WETH, i.e.
	// token1-per-token0 = 2000 scaled by 10^18 when reserve0 is token0=WETH.
	reserve0 := big.NewInt(1000)
	reserve1 := big.NewInt(2_000_000)
	got := PriceV2(reserve0, reserve1, 18)
	want := new(big.Int).Mul(big.NewInt(2000), new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil))
	if got.Cmp(want) != 0 {
		t.Errorf("PriceV2 = %s, want %s", got, want)
	}
}

func TestPriceV2ZeroReserve(t *testing.T) {
	if got := PriceV2(big.NewInt(0), big.NewInt(100), 18); got.Sign() != 0 {
		t.Errorf("PriceV2 with zero reserve0 = %s, want 0", got)
	}
}

func TestPriceV3AtParity(t *testing.T) {
	// sqrtPriceX96 = 2^96 means price = 1 (token1-per-token0 == 1 scaled).
	got := PriceV3(nil, new(big.Int).Set(q96), 18)
	want := new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil)
	if got.Cmp(want) != 0 {
		t.Errorf("PriceV3 at parity = %s, want %s", got, want)
	}
}

func TestGetAmountOutV2(t *testing.T) {
	amountIn := big.NewInt(1_000_000)
	reserveIn := big.NewInt(100_000_000)
	reserveOut := big.NewInt(200_000_000)

	got := GetAmountOutV2(amountIn, reserveIn, reserveOut)
	if got.Sign() <= 0 {
		t.Fatalf("GetAmountOutV2 = %s, want positive", got)
	}
	// Output must always be strictly less than the naive (fee-free) constant
	// product output — the 0.3% fee has to bite.
	naive := new(big.Int).Div(new(big.Int).Mul(amountIn, reserveOut), new(big.Int).Add(reserveIn, amountIn))
	if got.Cmp(naive) >= 0 {
		t.Errorf("GetAmountOutV2 = %s, must be < fee-free output %s", got, naive)
	}
}

func TestGetAmountOutV2ZeroInputs(t *testing.T) {
	cases := []struct {
		name                           string
		amountIn, reserveIn, reserveOut *big.Int
	}{
		{"zero amountIn", big.NewInt(0), big.NewInt(100), big.NewInt(100)},
		{"zero reserveIn", big.NewInt(10), big.NewInt(0), big.NewInt(100)},
		{"zero reserveOut", big.NewInt(10), big.NewInt(100), big.NewInt(0)},
		{"negative amountIn", big.NewInt(-5), big.NewInt(100), big.NewInt(100)},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := GetAmountOutV2(c.amountIn, c.reserveIn, c.reserveOut); got.Sign() != 0 {
				t.Errorf("GetAmountOutV2(%s) = %s, want 0", c.name, got)
			}
		})
	}
}
