package backtest

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/quaydex/backrun-engine/internal/decode"
	"github.com/quaydex/backrun-engine/internal/eth"
	"github.com/quaydex/backrun-engine/internal/hintstore"
	"github.com/quaydex/backrun-engine/internal/orchestrator"
	"github.com/quaydex/backrun-engine/internal/router"
)

// Runner drives the Orchestrator (§4.H) over a stored block range and
// reports predicted-vs-actual precision/recall, the same shape as the
// teacher's price-spread detector backtest but over SimArbResult-producing
// searches instead of a single-shot reserve comparison.
type Runner struct {
	client *eth.Client
	view   *eth.ChainView
	rtr    *router.Router
	hints  *hintstore.Store
}

type pairDef struct {
	name      string
	tokenA    common.Address
	tokenADec int
	tokenB    common.Address
	tokenBDec int
}

var trackedPairs = []pairDef{
	{"WETH/USDC", eth.WETHAddress, eth.WETHDecimals, eth.USDCAddress, eth.USDCDecimals},
	{"WETH/USDT", eth.WETHAddress, eth.WETHDecimals, eth.USDTAddress, eth.USDTDecimals},
	{"WETH/DAI", eth.WETHAddress, eth.WETHDecimals, eth.DAIAddress, eth.DAIDecimals},
	{"WETH/WBTC", eth.WETHAddress, eth.WETHDecimals, eth.WBTCAddress, eth.WBTCDecimals},
}

func NewRunner(client *eth.Client, hintsDBPath string) (*Runner, error) {
	store, err := hintstore.Open(hintsDBPath)
	if err != nil {
		return nil, fmt.Errorf("open hint store: %w", err)
	}
	view := eth.NewChainView(client, eth.NewReadCache())
	return &Runner{
		client: client,
		view:   view,
		rtr:    router.New(view),
		hints:  store,
	}, nil
}

func (r *Runner) Close() error {
	return r.hints.Close()
}

// RunBacktest executes the Orchestrator over every block in
// [startBlock, endBlock], measuring predicted search results against
// FindActualArbitrages' ground truth (opposite-direction swaps on two pools
// of the same tracked pair inside one transaction).
func (r *Runner) RunBacktest(ctx context.Context, startBlock, endBlock uint64) (*BacktestReport, error) {
	report := &BacktestReport{
		StartBlock: startBlock,
		EndBlock:   endBlock,
		Results:    make([]*BlockResult, 0),
	}

	fmt.Printf("\nstarting backtest: blocks %d-%d\n", startBlock, endBlock)
	startTime := time.Now()

	for blockNum := startBlock; blockNum <= endBlock; blockNum++ {
		blockCtx, cancel := context.WithTimeout(ctx, 2*time.Minute)
		result, err := r.ProcessBlock(blockCtx, blockNum)
		cancel()
		if err != nil {
			fmt.Printf("\nblock %d error: %v\n", blockNum, err)
			continue
		}
		report.Results = append(report.Results, result)

		if blockNum%10 == 0 {
			elapsed := time.Since(startTime)
			fmt.Printf("processed %d/%d blocks (%.1f%%) - elapsed: %s\n",
				blockNum-startBlock+1,
				endBlock-startBlock+1,
				float64(blockNum-startBlock+1)/float64(endBlock-startBlock+1)*100,
				elapsed.Round(time.Second))
		}
	}

	report.CalculateMetrics()
	return report, nil
}

// ProcessBlock decodes and searches every transaction landing in blockNum
// that carries a stored event hint, forked at blockNum-1 per §6's input
// contract, and compares the result batch against ground truth.
func (r *Runner) ProcessBlock(ctx context.Context, blockNum uint64) (*BlockResult, error) {
	info, err := r.view.GetBlockInfo(ctx, blockNum-1)
	if err != nil {
		return nil, fmt.Errorf("fork state error at %d: %w", blockNum-1, err)
	}

	block, err := r.client.BlockByNumber(ctx, new(big.Int).SetUint64(blockNum))
	if err != nil {
		return nil, fmt.Errorf("fetch block %d: %w", blockNum, err)
	}

	var predicted []orchestrator.Result
	for _, tx := range block.Transactions() {
		hist, err := r.hints.GetHints(tx.Hash())
		if err != nil || hist == nil || len(hist.Logs) == 0 {
			continue
		}

		trades, err := decode.Decode(ctx, r.view, r.rtr, tx, hist, blockNum-1)
		if err != nil || len(trades) == 0 {
			continue
		}

		results := orchestrator.Run(ctx, r.view, r.rtr, info, tx, trades, info.BaseFee)
		predicted = append(predicted, results...)
	}

	actual, err := FindActualArbitrages(ctx, r.client, blockNum)
	if err != nil {
		return nil, fmt.Errorf("find actual arb error: %w", err)
	}

	return &BlockResult{
		BlockNumber: blockNum,
		Predicted:   predicted,
		Actual:      actual,
	}, nil
}
