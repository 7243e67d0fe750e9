// Command backrun replays one landed transaction through the full
// backrun-search pipeline (C through H) and prints the best candidate found.
// Per the spec's scope note (§1), the CLI itself carries no decision logic
// of its own — it wires the core and prints what comes back, the way the
// teacher's cmd/scan and cmd/simulate did for the teacher's own detector and
// single-tx fork tool.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"

	"github.com/ethereum/go-ethereum/common"
	"github.com/joho/godotenv"

	"github.com/quaydex/backrun-engine/internal/decode"
	"github.com/quaydex/backrun-engine/internal/eth"
	"github.com/quaydex/backrun-engine/internal/orchestrator"
	"github.com/quaydex/backrun-engine/internal/router"
)

func main() {
	_ = godotenv.Load("../../.env")

	txHashFlag := flag.String("tx", "", "transaction hash to replay")
	flag.Parse()

	if *txHashFlag == "" {
		log.Fatal("usage: backrun --tx <hash>")
	}

	client, err := eth.NewClient()
	if err != nil {
		log.Fatalf("connect to RPC: %v", err)
	}
	view := eth.NewChainView(client, eth.NewReadCache())
	rtr := router.New(view)

	ctx := context.Background()
	txHash := common.HexToHash(*txHashFlag)

	tx, err := view.GetTransaction(ctx, txHash)
	if err != nil {
		log.Fatalf("fetch tx: %v", err)
	}
	receipt, err := view.GetReceipt(ctx, txHash)
	if err != nil {
		log.Fatalf("fetch receipt (tx landed?): %v", err)
	}
	if receipt.BlockNumber == nil {
		log.Fatal("receipt has no block number")
	}
	landedBlock := receipt.BlockNumber.Uint64()

	// A standalone replay has no MEV-share relay feed to hint it, so every
	// Swap log the receipt itself carries is treated as if the relay had
	// disclosed it — address and topic[0] are all the Decoder ever reads
	// off a hint anyway.
	hint := &decode.EventHistory{}
	for _, l := range receipt.Logs {
		if len(l.Topics) == 0 {
			continue
		}
		if l.Topics[0] == eth.TopicSwapV3 || l.Topics[0] == eth.TopicSwapV2 {
			hint.Logs = append(hint.Logs, decode.HintLog{Address: l.Address, Topics: []common.Hash{l.Topics[0]}})
		}
	}

	atBlock := landedBlock - 1
	trades, err := decode.Decode(ctx, view, rtr, tx, hint, atBlock)
	if err != nil {
		log.Fatalf("decode: %v", err)
	}
	if len(trades) == 0 {
		fmt.Println("no decodable swap hint in this transaction")
		return
	}

	info, err := view.GetBlockInfo(ctx, atBlock)
	if err != nil {
		log.Fatalf("fetch fork block info: %v", err)
	}

	fmt.Printf("replaying %s forked at block %d (%d decoded trade(s))\n\n", txHash.Hex(), atBlock, len(trades))

	results := orchestrator.Run(ctx, view, rtr, info, tx, trades, info.BaseFee)
	for i, r := range results {
		fmt.Printf("trade %d: pool=%s family=%v\n", i, r.Trade.Pool.Hex(), r.Trade.PoolVariant)
		if r.Err != nil {
			fmt.Printf("  no backrun: %v\n", r.Err)
			continue
		}
		fmt.Printf("  amount_in=%s balance_end=%s profit=%s start_pool=%s end_pool=%s arb_variant=%v\n",
			r.Best.AmountIn, r.Best.BalanceEnd, r.Best.Profit, r.Best.StartPool.Hex(), r.Best.EndPool.Hex(), r.Best.ArbVariant)
	}
}
