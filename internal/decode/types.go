// Package decode implements the Trade Decoder (§4.C): it turns a landed
// user transaction plus an MEV-share-style event hint into zero or more
// structured trade descriptors.
package decode

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/quaydex/backrun-engine/internal/eth"
)

// HintLog is one partial log entry from an MEV-share event hint: address
// and topic[0] are meaningful, the remaining topic slots are zeroed out by
// the relay.
type HintLog struct {
	Address common.Address
	Topics  []common.Hash
}

// EventHistory is the MEV-share hint attached to a user transaction.
type EventHistory struct {
	Logs []HintLog
}

// TokenPair names the WETH side and the non-WETH side of a decoded trade.
type TokenPair struct {
	WETH  common.Address
	Token common.Address
}

// UserTradeParams is the Decoder's output — read-only once constructed.
type UserTradeParams struct {
	PoolVariant   eth.PoolFamily
	TokenIn       common.Address
	TokenOut      common.Address
	Pool          common.Address
	Amount0Sent   *big.Int
	Amount1Sent   *big.Int
	Price         *big.Int // post-trade token1-per-token0 price scaled by 1e18 (WETH per token only when WETH is token1), per §4.C
	Tokens        TokenPair
	Token0IsWETH  bool
	ArbPools      []common.Address
}
