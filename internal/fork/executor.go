package fork

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/core/vm"
	"github.com/ethereum/go-ethereum/params"

	"github.com/quaydex/backrun-engine/internal/engine/errs"
)

// blockGasLimit is a conservative ceiling for the gas pool the fork's
// simulated transactions run against — every mainnet block since the
// merge has stayed under this.
const blockGasLimit uint64 = 60_000_000

// Executor drives core.ApplyMessage against a ChainFork's stateDB. Split
// from the teacher's single ExecuteTransaction into a persisting Commit and
// a non-persisting Call, matching the Fork Sandbox contract in §4.B.
type Executor struct {
	fork   *ChainFork
	config *params.ChainConfig
}

func NewExecutor(f *ChainFork) *Executor {
	return &Executor{fork: f, config: params.MainnetChainConfig}
}

func (e *Executor) blockContext() vm.BlockContext {
	info := e.fork.BlockInfo()
	return vm.BlockContext{
		CanTransfer: core.CanTransfer,
		Transfer:    core.Transfer,
		GetHash:     func(n uint64) common.Hash { return common.Hash{} },
		Coinbase:    info.Coinbase,
		BlockNumber: new(big.Int).SetUint64(info.Number),
		Time:        info.Time,
		Difficulty:  big.NewInt(0),
		GasLimit:    blockGasLimit,
		BaseFee:     info.BaseFee,
	}
}

func (e *Executor) run(tx *types.Transaction, persist bool) (*ExecutionResult, error) {
	db := newStateDB(e.fork)
	snap := db.Snapshot()

	signer := types.LatestSignerForChainID(tx.ChainId())
	sender, err := types.Sender(signer, tx)
	if err != nil {
		return nil, fmt.Errorf("fork: recover sender: %w", err)
	}

	evm := vm.NewEVM(e.blockContext(), db, e.config, vm.Config{})
	evm.SetTxContext(vm.TxContext{Origin: sender, GasPrice: tx.GasPrice()})

	msg := &core.Message{
		To:         tx.To(),
		From:       sender,
		Nonce:      tx.Nonce(),
		Value:      tx.Value(),
		GasLimit:   tx.Gas(),
		GasPrice:   tx.GasPrice(),
		GasFeeCap:  tx.GasFeeCap(),
		GasTipCap:  tx.GasTipCap(),
		Data:       tx.Data(),
		AccessList: tx.AccessList(),
	}

	if _, err := core.IntrinsicGas(msg.Data, msg.AccessList, nil, msg.To == nil, true, true, true); err != nil {
		db.RevertToSnapshot(snap)
		return nil, fmt.Errorf("fork: intrinsic gas: %w", err)
	}

	gp := new(core.GasPool).AddGas(blockGasLimit)
	result, err := core.ApplyMessage(evm, msg, gp)
	if err != nil {
		db.RevertToSnapshot(snap)
		return &ExecutionResult{RevertReason: err.Error()}, errs.SwapReverted([]byte(err.Error()), 0)
	}

	execResult := &ExecutionResult{
		Success:    !result.Failed(),
		GasUsed:    result.UsedGas,
		ReturnData: result.ReturnData,
		Logs:       db.Logs(),
	}

	if result.Failed() {
		execResult.RevertReason = result.Err.Error()
		db.RevertToSnapshot(snap)
		return execResult, errs.SwapReverted(result.ReturnData, result.UsedGas)
	}

	if !persist {
		db.RevertToSnapshot(snap)
	}
	return execResult, nil
}

// Commit executes tx and persists any state it mutates.
func (e *Executor) Commit(tx *types.Transaction) (*ExecutionResult, error) {
	return e.run(tx, true)
}

// Call executes tx and discards any state it mutates.
func (e *Executor) Call(tx *types.Transaction) (*ExecutionResult, error) {
	return e.run(tx, false)
}
