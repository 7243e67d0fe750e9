package fork

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// ExecutionResult is what Commit/Call return for one transaction run on a
// fork. RevertReason is set only when Success is false.
type ExecutionResult struct {
	Success      bool
	GasUsed      uint64
	ReturnData   []byte
	Logs         []*types.Log
	RevertReason string
}

// stateCache holds the lazily-fetched and locally-mutated view of chain
// state for one fork. Populated on demand from the Chain View, mutated
// freely thereafter — a fork never writes back to the chain.
type stateCache struct {
	balances map[common.Address]*big.Int
	nonces   map[common.Address]uint64
	code     map[common.Address][]byte
	storage  map[common.Address]map[common.Hash]common.Hash
}

func newStateCache() *stateCache {
	return &stateCache{
		balances: make(map[common.Address]*big.Int),
		nonces:   make(map[common.Address]uint64),
		code:     make(map[common.Address][]byte),
		storage:  make(map[common.Address]map[common.Hash]common.Hash),
	}
}

func (c *stateCache) clone() *stateCache {
	clone := newStateCache()
	for addr, bal := range c.balances {
		clone.balances[addr] = new(big.Int).Set(bal)
	}
	for addr, nonce := range c.nonces {
		clone.nonces[addr] = nonce
	}
	for addr, code := range c.code {
		clone.code[addr] = code
	}
	for addr, slots := range c.storage {
		clone.storage[addr] = make(map[common.Hash]common.Hash, len(slots))
		for slot, val := range slots {
			clone.storage[addr][slot] = val
		}
	}
	return clone
}
