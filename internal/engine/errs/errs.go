// Package errs defines the closed set of error kinds the backrun engine can
// return. Callers should compare with errors.Is/errors.As, never by
// inspecting error message text.
package errs

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

// Sentinel kinds, per the error design in the spec's error-handling section.
var (
	// ErrTransport signals a chain RPC failure. Retried once at the call
	// site before being propagated.
	ErrTransport = errors.New("transport error")

	// ErrNotLanded signals a missing receipt for a transaction hash.
	ErrNotLanded = errors.New("transaction not landed")

	// ErrPoolNotFound signals an empty counterpart-pool set for a trade.
	ErrPoolNotFound = errors.New("no counterpart pool found")

	// ErrSwapReverted signals a probe call that reverted.
	ErrSwapReverted = errors.New("swap reverted")

	// ErrSwapHalted signals an EVM halt (out-of-gas, invalid opcode).
	ErrSwapHalted = errors.New("swap halted")

	// ErrNoOpportunity signals a search that never improved on a
	// balance_end of 0.
	ErrNoOpportunity = errors.New("no arbitrage opportunity found")

	// ErrAllReverted signals every band in one search expansion reverted.
	ErrAllReverted = errors.New("all simulated bands reverted")

	// ErrSystemError signals a task panic or scheduler failure.
	ErrSystemError = errors.New("system error")
)

// NotLanded wraps ErrNotLanded with the transaction hash that failed to
// resolve to a receipt.
func NotLanded(hash common.Hash) error {
	return fmt.Errorf("tx %s: %w", hash, ErrNotLanded)
}

// PoolNotFound wraps ErrPoolNotFound with the pool address the trade needed
// a counterpart for.
func PoolNotFound(pool common.Address) error {
	return fmt.Errorf("pool %s: %w", pool, ErrPoolNotFound)
}

// SwapReverted wraps ErrSwapReverted with the raw revert output.
func SwapReverted(reason []byte, gasUsed uint64) error {
	return fmt.Errorf("gas used %d, output %x: %w", gasUsed, reason, ErrSwapReverted)
}

// SwapHalted wraps ErrSwapHalted with the halt reason.
func SwapHalted(reason string) error {
	return fmt.Errorf("%s: %w", reason, ErrSwapHalted)
}

// Transport wraps ErrTransport with the underlying RPC failure.
func Transport(err error) error {
	return fmt.Errorf("%w: %v", ErrTransport, err)
}
