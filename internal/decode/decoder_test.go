package decode

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/quaydex/backrun-engine/internal/eth"
)

func leftPad32(b []byte) []byte {
	return common.LeftPadBytes(b, 32)
}

// v2SwapData lays out a Uniswap V2 Swap event's data section: amount0In,
// amount1In, amount0Out, amount1Out, each a 32-byte word, per §6.
func v2SwapData(amount0Out, amount1Out *big.Int) []byte {
	out := make([]byte, 0, 128)
	out = append(out, leftPad32(big.NewInt(0).Bytes())...) // amount0In
	out = append(out, leftPad32(big.NewInt(0).Bytes())...) // amount1In
	out = append(out, leftPad32(amount0Out.Bytes())...)
	out = append(out, leftPad32(amount1Out.Bytes())...)
	return out
}

func TestDecodeAmountsV2(t *testing.T) {
	pool := common.HexToAddress("0x1111111111111111111111111111111111111111")
	log := &types.Log{
		Address: pool,
		Topics:  []common.Hash{eth.TopicSwapV2},
		Data:    v2SwapData(big.NewInt(0), big.NewInt(42)),
	}
	amount0, amount1, price, ok := decodeAmounts(eth.FamilyV2, log, nil)
	if !ok {
		t.Fatal("decodeAmounts reported failure on a well-formed V2 log")
	}
	if amount0.Sign() != 0 {
		t.Errorf("amount0Sent = %s, want 0", amount0)
	}
	if amount1.Cmp(big.NewInt(42)) != 0 {
		t.Errorf("amount1Sent = %s, want 42", amount1)
	}
	// No matching Sync log supplied, so price falls back to 0.
	if price.Sign() != 0 {
		t.Errorf("price = %s, want 0 with no Sync log", price)
	}
}

func TestDecodeAmountsV2WithSyncLog(t *testing.T) {
	pool := common.HexToAddress("0x1111111111111111111111111111111111111111")
	swapLog := &types.Log{
		Address: pool,
		Topics:  []common.Hash{eth.TopicSwapV2},
		Data:    v2SwapData(big.NewInt(7), big.NewInt(0)),
	}
	syncData := append(leftPad32(big.NewInt(1000).Bytes()), leftPad32(big.NewInt(2_000_000).Bytes())...)
	syncLog := &types.Log{
		Address: pool,
		Topics:  []common.Hash{eth.TopicSyncV2},
		Data:    syncData,
	}
	_, _, price, ok := decodeAmounts(eth.FamilyV2, swapLog, []*types.Log{syncLog})
	if !ok {
		t.Fatal("decodeAmounts reported failure with a Sync log present")
	}
	want := new(big.Int).Mul(big.NewInt(2000), new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil))
	if price.Cmp(want) != 0 {
		t.Errorf("price = %s, want %s", price, want)
	}
}

func TestDecodeAmountsShortDataFails(t *testing.T) {
	log := &types.Log{Topics: []common.Hash{eth.TopicSwapV2}, Data: []byte{0x01, 0x02}}
	_, _, _, ok := decodeAmounts(eth.FamilyV2, log, nil)
	if ok {
		t.Error("decodeAmounts must fail on truncated log data, not panic or fabricate a value")
	}
}

// A V3 Swap log with both deltas negative (impossible on a real pool, but a
// good adversarial case) must sign-gate to (0, 0) and report failure rather
// than silently returning two zero amounts as if it were a real, tiny trade.
func TestDecodeAmountsV3BothNegativeGatesToFailure(t *testing.T) {
	neg1 := new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1)) // -1 in two's complement
	data := make([]byte, 0, 128)
	data = append(data, leftPad32(neg1.Bytes())...)
	data = append(data, leftPad32(neg1.Bytes())...)
	data = append(data, leftPad32(big.NewInt(0).Bytes())...) // sqrtPriceX96
	data = append(data, leftPad32(big.NewInt(0).Bytes())...) // liquidity
	log := &types.Log{Topics: []common.Hash{eth.TopicSwapV3}, Data: data}

	_, _, _, ok := decodeAmounts(eth.FamilyV3, log, nil)
	if ok {
		t.Error("decodeAmounts must report failure when sign-gating zeroes both sides")
	}
}

func TestSignExtendI256(t *testing.T) {
	if got := signExtendI256(big.NewInt(5)); got.Cmp(big.NewInt(5)) != 0 {
		t.Errorf("signExtendI256(5) = %s, want 5", got)
	}

	allOnes := new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1))
	if got := signExtendI256(allOnes); got.Cmp(big.NewInt(-1)) != 0 {
		t.Errorf("signExtendI256(all-ones) = %s, want -1", got)
	}
}

func TestGateNonNegative(t *testing.T) {
	if got := gateNonNegative(big.NewInt(-5)); got.Sign() != 0 {
		t.Errorf("gateNonNegative(-5) = %s, want 0", got)
	}
	if got := gateNonNegative(big.NewInt(5)); got.Cmp(big.NewInt(5)) != 0 {
		t.Errorf("gateNonNegative(5) = %s, want 5", got)
	}
}

func TestFindMatchingLog(t *testing.T) {
	pool := common.HexToAddress("0x1111111111111111111111111111111111111111")
	other := common.HexToAddress("0x2222222222222222222222222222222222222222")
	wantTopic := eth.TopicSwapV2
	logs := []*types.Log{
		{Address: other, Topics: []common.Hash{eth.TopicSyncV2}},
		{Address: pool, Topics: []common.Hash{wantTopic}},
	}
	hint := HintLog{Address: pool, Topics: []common.Hash{wantTopic}}
	got := findMatchingLog(logs, hint)
	if got == nil || got.Address != pool {
		t.Fatalf("findMatchingLog did not find the hinted log")
	}
}

func TestFindMatchingLogNoMatch(t *testing.T) {
	logs := []*types.Log{{Address: common.HexToAddress("0x2222222222222222222222222222222222222222"), Topics: []common.Hash{eth.TopicSyncV2}}}
	hint := HintLog{Address: common.HexToAddress("0x1111111111111111111111111111111111111111"), Topics: []common.Hash{eth.TopicSwapV2}}
	if findMatchingLog(logs, hint) != nil {
		t.Error("findMatchingLog must return nil when no log matches both address and topic")
	}
}

func TestDropZero(t *testing.T) {
	addrs := []common.Address{
		common.HexToAddress("0x1"),
		{},
		common.HexToAddress("0x2"),
	}
	got := dropZero(addrs)
	if len(got) != 2 {
		t.Fatalf("dropZero left %d entries, want 2", len(got))
	}
	for _, a := range got {
		if a == (common.Address{}) {
			t.Error("dropZero left a zero address in the result")
		}
	}
}
