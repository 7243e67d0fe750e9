package errs

import (
	"errors"
	"testing"

	"github.com/ethereum/go-ethereum/common"
)

func TestWrappersMatchSentinels(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want error
	}{
		{"NotLanded", NotLanded(common.HexToHash("0x1")), ErrNotLanded},
		{"PoolNotFound", PoolNotFound(common.HexToAddress("0x2")), ErrPoolNotFound},
		{"SwapReverted", SwapReverted([]byte{0xde, 0xad}, 21000), ErrSwapReverted},
		{"SwapHalted", SwapHalted("out of gas"), ErrSwapHalted},
		{"Transport", Transport(errors.New("dial tcp: timeout")), ErrTransport},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if !errors.Is(c.err, c.want) {
				t.Errorf("errors.Is(%v, %v) = false, want true", c.err, c.want)
			}
		})
	}
}

// A caller that only knows the sentinel should be able to tell two distinct
// wrapped errors of different kinds apart — the whole point of replacing
// string-contains checks with a closed enum (§7/§9).
func TestSentinelsAreDistinguishable(t *testing.T) {
	notLanded := NotLanded(common.HexToHash("0x1"))
	poolNotFound := PoolNotFound(common.HexToAddress("0x2"))

	if errors.Is(notLanded, ErrPoolNotFound) {
		t.Error("NotLanded must not match ErrPoolNotFound")
	}
	if errors.Is(poolNotFound, ErrNotLanded) {
		t.Error("PoolNotFound must not match ErrNotLanded")
	}
}
