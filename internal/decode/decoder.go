package decode

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/quaydex/backrun-engine/internal/eth"
	"github.com/quaydex/backrun-engine/internal/pricing"
	"github.com/quaydex/backrun-engine/internal/router"
)

// Decode turns tx + hint into zero or more UserTradeParams, per §4.C.
// atBlock is the pre-block state the hint's pool reads should resolve
// against — the block the tx landed in, minus one.
//
// Grounded on original_source/simulator/src/sim/core.rs::derive_trade_params
// (multi-log iteration, sign-gating, V2 Sync-log price fallback) and
// internal/backtest/actual.go::swapDirection's log-slicing style.
func Decode(ctx context.Context, view *eth.ChainView, rtr *router.Router, tx *types.Transaction, hint *EventHistory, atBlock uint64) ([]UserTradeParams, error) {
	receipt, err := view.GetReceipt(ctx, tx.Hash())
	if err != nil {
		return nil, err
	}

	var swapHints []HintLog
	for _, l := range hint.Logs {
		if len(l.Topics) == 0 {
			continue
		}
		if l.Topics[0] == eth.TopicSwapV3 || l.Topics[0] == eth.TopicSwapV2 {
			swapHints = append(swapHints, l)
		}
	}

	var out []UserTradeParams
	for _, hintLog := range swapHints {
		fullLog := findMatchingLog(receipt.Logs, hintLog)
		if fullLog == nil {
			continue // no match: skip this hint log, not the whole tx
		}

		family := eth.FamilyV2
		if hintLog.Topics[0] == eth.TopicSwapV3 {
			family = eth.FamilyV3
		}

		token0, token1, err := rtr.GetPairTokens(ctx, fullLog.Address, atBlock)
		if err != nil {
			continue
		}
		token0IsWETH := token0 == eth.WETHAddress

		amount0Sent, amount1Sent, price, ok := decodeAmounts(family, fullLog, receipt.Logs)
		if !ok {
			continue // sign-gating left both sides at zero: treat as a decode failure
		}

		swap0For1 := amount0Sent.Sign() > 0
		tokenIn, tokenOut := token1, token0
		if swap0For1 {
			tokenIn, tokenOut = token0, token1
		}

		arbPools, err := rtr.GetOtherPools(ctx, tokenIn, tokenOut, family, atBlock)
		if err != nil {
			continue
		}
		arbPools = dropZero(arbPools)

		weth, token := token1, token0
		if token0IsWETH {
			weth, token = token0, token1
		}

		out = append(out, UserTradeParams{
			PoolVariant:  family,
			TokenIn:      tokenIn,
			TokenOut:     tokenOut,
			Pool:         fullLog.Address,
			Amount0Sent:  amount0Sent,
			Amount1Sent:  amount1Sent,
			Price:        price,
			Tokens:       TokenPair{WETH: weth, Token: token},
			Token0IsWETH: token0IsWETH,
			ArbPools:     arbPools,
		})
	}

	return out, nil
}

func findMatchingLog(logs []*types.Log, hint HintLog) *types.Log {
	for _, l := range logs {
		if l.Address != hint.Address {
			continue
		}
		for _, t := range l.Topics {
			if t == hint.Topics[0] {
				return l
			}
		}
	}
	return nil
}

// decodeAmounts extracts (amount0_sent, amount1_sent, post-trade price) per
// the wire layout in §6. Returns ok=false when sign-gating zeroes both sides
// (an unexpected log, treated as a decode failure for that log).
func decodeAmounts(family eth.PoolFamily, swapLog *types.Log, receiptLogs []*types.Log) (amount0Sent, amount1Sent, price *big.Int, ok bool) {
	data := swapLog.Data

	if family == eth.FamilyV3 {
		if len(data) < 128 {
			return nil, nil, nil, false
		}
		amount0 := new(big.Int).SetBytes(data[0:32])
		amount1 := new(big.Int).SetBytes(data[32:64])
		amount0 = signExtendI256(amount0)
		amount1 = signExtendI256(amount1)
		sqrtPriceX96 := new(big.Int).SetBytes(data[64:96])
		liquidity := new(big.Int).SetBytes(data[96:128])

		amount0Sent = gateNonNegative(amount0)
		amount1Sent = gateNonNegative(amount1)
		if amount0Sent.Sign() == 0 && amount1Sent.Sign() == 0 {
			return nil, nil, nil, false
		}
		price = pricing.PriceV3(liquidity, sqrtPriceX96, 18)
		return amount0Sent, amount1Sent, price, true
	}

	if len(data) < 128 {
		return nil, nil, nil, false
	}
	amount0Out := new(big.Int).SetBytes(data[64:96])
	amount1Out := new(big.Int).SetBytes(data[96:128])

	amount0Sent = gateNonNegative(amount0Out)
	amount1Sent = gateNonNegative(amount1Out)
	if amount0Sent.Sign() == 0 && amount1Sent.Sign() == 0 {
		return nil, nil, nil, false
	}

	price = big.NewInt(0)
	if syncLog := findSyncLog(receiptLogs, swapLog.Address); syncLog != nil && len(syncLog.Data) >= 64 {
		reserve0 := new(big.Int).SetBytes(syncLog.Data[0:32])
		reserve1 := new(big.Int).SetBytes(syncLog.Data[32:64])
		price = pricing.PriceV2(reserve0, reserve1, 18)
	}
	return amount0Sent, amount1Sent, price, true
}

func findSyncLog(logs []*types.Log, pool common.Address) *types.Log {
	for _, l := range logs {
		if l.Address == pool && len(l.Topics) > 0 && l.Topics[0] == eth.TopicSyncV2 {
			return l
		}
	}
	return nil
}

// signExtendI256 reinterprets a 256-bit big-endian word as two's-complement
// signed, matching ethers' I256::from_raw in the original source.
func signExtendI256(raw *big.Int) *big.Int {
	if raw.Bit(255) == 0 {
		return raw
	}
	mod := new(big.Int).Lsh(big.NewInt(1), 256)
	return new(big.Int).Sub(raw, mod)
}

// gateNonNegative replaces a negative amount with 0 — "amount sent" is
// max(0, signed amount), per §9's sign-gating note.
func gateNonNegative(v *big.Int) *big.Int {
	if v.Sign() < 0 {
		return big.NewInt(0)
	}
	return new(big.Int).Set(v)
}

func dropZero(addrs []common.Address) []common.Address {
	out := addrs[:0]
	for _, a := range addrs {
		if a != (common.Address{}) {
			out = append(out, a)
		}
	}
	return out
}
