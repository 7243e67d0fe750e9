package fork

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/state"
	"github.com/ethereum/go-ethereum/core/stateless"
	"github.com/ethereum/go-ethereum/core/tracing"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/params"
	"github.com/ethereum/go-ethereum/trie/utils"
	"github.com/holiman/uint256"
)

// stateDB implements vm.StateDB over a ChainFork. Kept close to the
// teacher's ForkedStateDB — this is dense, mechanical EVM plumbing every
// forking simulator in the pack needs largely unchanged.
type stateDB struct {
	fork            *ChainFork
	logs            []*types.Log
	refund          uint64
	accessList      map[common.Address]map[common.Hash]bool
	accessListAddr  map[common.Address]bool
	originalStorage map[common.Address]map[common.Hash]common.Hash
}

func newStateDB(f *ChainFork) *stateDB {
	return &stateDB{
		fork:            f,
		logs:            make([]*types.Log, 0),
		accessList:      make(map[common.Address]map[common.Hash]bool),
		accessListAddr:  make(map[common.Address]bool),
		originalStorage: make(map[common.Address]map[common.Hash]common.Hash),
	}
}

func (s *stateDB) CreateAccount(addr common.Address) {
	s.fork.SetBalance(addr, big.NewInt(0))
	s.fork.SetNonce(addr, 0)
}

func (s *stateDB) CreateContract(addr common.Address) {
	s.CreateAccount(addr)
}

func (s *stateDB) GetBalance(addr common.Address) *uint256.Int {
	bal, err := s.fork.GetBalance(addr)
	if err != nil {
		return uint256.NewInt(0)
	}
	val, overflow := uint256.FromBig(bal)
	if overflow {
		return uint256.NewInt(0)
	}
	return val
}

func (s *stateDB) AddBalance(addr common.Address, amount *uint256.Int, reason tracing.BalanceChangeReason) uint256.Int {
	bal := s.GetBalance(addr)
	newBal := new(uint256.Int).Add(bal, amount)
	s.fork.SetBalance(addr, newBal.ToBig())
	return *bal
}

func (s *stateDB) SubBalance(addr common.Address, amount *uint256.Int, reason tracing.BalanceChangeReason) uint256.Int {
	bal := s.GetBalance(addr)
	newBal := new(uint256.Int).Sub(bal, amount)
	s.fork.SetBalance(addr, newBal.ToBig())
	return *bal
}

func (s *stateDB) GetNonce(addr common.Address) uint64 {
	nonce, err := s.fork.GetNonce(addr)
	if err != nil {
		return 0
	}
	return nonce
}

func (s *stateDB) SetNonce(addr common.Address, nonce uint64, reason tracing.NonceChangeReason) {
	s.fork.SetNonce(addr, nonce)
}

func (s *stateDB) GetCode(addr common.Address) []byte {
	code, err := s.fork.GetCode(addr)
	if err != nil {
		return nil
	}
	return code
}

func (s *stateDB) GetCodeSize(addr common.Address) int {
	return len(s.GetCode(addr))
}

func (s *stateDB) GetCodeHash(addr common.Address) common.Hash {
	code := s.GetCode(addr)
	if len(code) == 0 {
		if s.Exist(addr) {
			return crypto.Keccak256Hash(nil)
		}
		return common.Hash{}
	}
	return crypto.Keccak256Hash(code)
}

func (s *stateDB) SetCode(addr common.Address, code []byte, reason tracing.CodeChangeReason) []byte {
	oldCode := s.GetCode(addr)
	s.fork.SetCode(addr, code)
	return oldCode
}

func (s *stateDB) GetState(addr common.Address, hash common.Hash) common.Hash {
	val, err := s.fork.GetStorageAt(addr, hash)
	if err != nil {
		return common.Hash{}
	}
	return val
}

func (s *stateDB) SetState(addr common.Address, key, value common.Hash) common.Hash {
	oldVal := s.GetState(addr, key)
	s.fork.SetStorageAt(addr, key, value)
	return oldVal
}

func (s *stateDB) GetStateAndCommittedState(addr common.Address, hash common.Hash) (common.Hash, common.Hash) {
	current := s.GetState(addr, hash)

	if addrMap, ok := s.originalStorage[addr]; ok {
		if orig, ok := addrMap[hash]; ok {
			return current, orig
		}
	}
	if s.originalStorage[addr] == nil {
		s.originalStorage[addr] = make(map[common.Hash]common.Hash)
	}
	s.originalStorage[addr][hash] = current
	return current, current
}

func (s *stateDB) GetStorageRoot(addr common.Address) common.Hash {
	return common.Hash{}
}

func (s *stateDB) GetTransientState(addr common.Address, key common.Hash) common.Hash {
	return common.Hash{}
}

func (s *stateDB) SetTransientState(addr common.Address, key, value common.Hash) {}

func (s *stateDB) Exist(addr common.Address) bool {
	code := s.GetCode(addr)
	balance := s.GetBalance(addr)
	nonce := s.GetNonce(addr)
	return len(code) > 0 || balance.Sign() > 0 || nonce > 0
}

func (s *stateDB) Empty(addr common.Address) bool {
	return !s.Exist(addr)
}

func (s *stateDB) Snapshot() int {
	return s.fork.Snapshot()
}

func (s *stateDB) RevertToSnapshot(id int) {
	s.fork.RevertToSnapshot(id)
}

func (s *stateDB) AddLog(log *types.Log) {
	s.logs = append(s.logs, log)
}

func (s *stateDB) Logs() []*types.Log {
	return s.logs
}

func (s *stateDB) AddRefund(gas uint64) {
	s.refund += gas
}

func (s *stateDB) SubRefund(gas uint64) {
	if gas > s.refund {
		s.refund = 0
	} else {
		s.refund -= gas
	}
}

func (s *stateDB) GetRefund() uint64 {
	return s.refund
}

func (s *stateDB) AddPreimage(hash common.Hash, preimage []byte) {}

func (s *stateDB) SelfDestruct(addr common.Address) uint256.Int {
	bal := s.GetBalance(addr)
	s.fork.SetBalance(addr, big.NewInt(0))
	return *bal
}

func (s *stateDB) HasSelfDestructed(addr common.Address) bool {
	return false
}

func (s *stateDB) SelfDestruct6780(addr common.Address) (uint256.Int, bool) {
	return s.SelfDestruct(addr), true
}

func (s *stateDB) AddAddressToAccessList(addr common.Address) { s.accessListAddr[addr] = true }

func (s *stateDB) AddSlotToAccessList(addr common.Address, slot common.Hash) {
	s.accessListAddr[addr] = true
	if s.accessList[addr] == nil {
		s.accessList[addr] = make(map[common.Hash]bool)
	}
	s.accessList[addr][slot] = true
}

func (s *stateDB) AddressInAccessList(addr common.Address) bool {
	return s.accessListAddr[addr]
}

func (s *stateDB) SlotInAccessList(addr common.Address, slot common.Hash) (bool, bool) {
	addrOk := s.accessListAddr[addr]
	if !addrOk {
		return false, false
	}
	if s.accessList[addr] == nil {
		return true, false
	}
	return true, s.accessList[addr][slot]
}

func (s *stateDB) Prepare(rules params.Rules, sender, coinbase common.Address, dest *common.Address, precompiles []common.Address, txAccesses types.AccessList) {
	s.AddAddressToAccessList(sender)
	if dest != nil {
		s.AddAddressToAccessList(*dest)
	}
	s.AddAddressToAccessList(coinbase)
	for _, addr := range precompiles {
		s.AddAddressToAccessList(addr)
	}
	for _, el := range txAccesses {
		s.AddAddressToAccessList(el.Address)
		for _, key := range el.StorageKeys {
			s.AddSlotToAccessList(el.Address, key)
		}
	}
}

func (s *stateDB) PointCache() *utils.PointCache {
	return nil
}

func (s *stateDB) Witness() *stateless.Witness {
	return nil
}

func (s *stateDB) AccessEvents() *state.AccessEvents {
	return nil
}

func (s *stateDB) Finalise(deleteEmptyObjects bool) {}
