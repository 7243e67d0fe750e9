// Package probe implements the Fork Sandbox's swap-invocation technique
// (§4.B.2/§4.F's "probe"): a synthetic, freshly-generated EOA installed on
// the fork and predeposited with starting balance S of WETH, exactly as
// §4.B.2 describes, so "balance_end" is a real post-swap token balance
// read off the probe's own storage rather than a bare swap return value.
//
// Grounded on original_source/simulator/src/sim/braindance.rs's probe
// (a bytecode contract acting as the swap recipient) and
// internal/arbitrage/executor.go::SetupExecutorState's storage-slot
// injection, adapted to use a plain EOA: swap() never pulls tokenIn from
// msg.sender (V2 reads a pre/post balance delta on the pool itself; V3's
// callback is a CALL into the probe's codeless EOA, which the EVM treats
// as a no-op that always "succeeds" without paying anything). A router
// would first transfer(pool, amountIn) from its own holdings and then call
// swap(); the probe instead credits the pool's balanceOf(tokenIn) directly
// and debits the same amount off its own balanceOf(tokenIn), reproducing
// both sides of that transfer by storage write instead of by CALL. The
// pool's swap() then runs for real and, on the output side, genuinely
// executes the ERC20 transfer to the probe — so the probe's resulting
// balanceOf(tokenOut) is real EVM state, not something this package fabricates.
package probe

import (
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/params"

	"github.com/quaydex/backrun-engine/internal/eth"
	"github.com/quaydex/backrun-engine/internal/fork"
	"github.com/quaydex/backrun-engine/internal/pricing"
)

// Swap dispatches to SwapV2 or SwapV3 by family, so callers outside this
// package (the arbitrage simulator, chiefly) never need to branch on pool
// variant themselves.
func (p *Probe) Swap(family eth.PoolFamily, pool, tokenIn, tokenOut, token0 common.Address, amountIn, gasPrice *big.Int) (*big.Int, error) {
	if family == eth.FamilyV2 {
		return p.SwapV2(pool, tokenIn, tokenOut, token0, amountIn, gasPrice)
	}
	return p.SwapV3(pool, tokenIn, token0, amountIn, gasPrice)
}

var (
	v2PairABI abi.ABI
	v3PoolABI abi.ABI
)

func init() {
	var err error
	v2PairABI, err = abi.JSON(strings.NewReader(eth.UniswapV2PairABI))
	if err != nil {
		panic(err)
	}
	v3PoolABI, err = abi.JSON(strings.NewReader(eth.UniswapV3PoolABI))
	if err != nil {
		panic(err)
	}
}

// Uniswap V3's pool contract rejects a sqrtPriceLimitX96 equal to the
// boundary itself, so the probe nudges one wei inside MIN/MAX_SQRT_RATIO.
var (
	minSqrtRatioPlusOne = big.NewInt(4295128740)
	maxSqrtRatioMinusOne, _ = new(big.Int).SetString("1461446703485210103287273052203988822378723970341", 10)
)

const probeGasLimit = 3_000_000

// probeStartingBalance funds the probe's own ETH so it can pay gas for the
// legs it submits, mirroring braindance_starting_balance in the original.
var probeStartingBalance = new(big.Int).Mul(big.NewInt(1000), big.NewInt(params.Ether))

// StartingBalanceS is §4.B.2's predeposited WETH balance S (spec's own
// example value, 200 WETH) every probe is funded with before either swap
// leg runs. §8 invariant 2's profit = max(0, balance_end − S) is measured
// against this same constant, held fixed across every fork in a run per
// the Open Question #3 decision recorded in DESIGN.md.
var StartingBalanceS = new(big.Int).Mul(big.NewInt(200), big.NewInt(params.Ether))

// Probe is a disposable signer scoped to a single ChainFork.
type Probe struct {
	fork *fork.ChainFork
	exec *fork.Executor
	key  *ecdsa.PrivateKey
	addr common.Address
}

// New generates a fresh keypair (the teacher's own arbitrage/executor.go
// technique for a signable synthetic sender), funds it with enough ETH to
// pay gas on the fork it's attached to, and installs it with its starting
// WETH balance S per §4.B.2.
func New(f *fork.ChainFork, weth common.Address) (*Probe, error) {
	key, err := crypto.GenerateKey()
	if err != nil {
		return nil, fmt.Errorf("probe: generate key: %w", err)
	}
	addr := crypto.PubkeyToAddress(key.PublicKey)
	f.SetBalance(addr, new(big.Int).Set(probeStartingBalance))
	f.SetNonce(addr, 0)

	p := &Probe{
		fork: f,
		exec: fork.NewExecutor(f),
		key:  key,
		addr: addr,
	}
	p.FundToken(weth, StartingBalanceS)
	return p, nil
}

// Address returns the probe's recipient/sender address.
func (p *Probe) Address() common.Address { return p.addr }

// FundToken writes amount directly into token's balanceOf(p.Address())
// storage slot, skipping transfer/approve entirely — the same technique
// internal/arbitrage/executor.go uses to seed an executor's balance on a
// fresh fork. Used once per probe to install its starting balance S; the
// swap legs adjust the probe's balance incrementally afterward via
// debitOwnBalance/the real ERC20 transfer swap() itself performs.
func (p *Probe) FundToken(token common.Address, amount *big.Int) {
	slot := balanceMappingSlot(p.addr, eth.BalanceSlotOf(token))
	p.fork.SetStorageAt(token, slot, common.BigToHash(amount))
}

// BalanceOf reads the probe's real, current balanceOf(token) off fork
// storage. After a swap leg commits, this reflects genuine EVM-executed
// state — the pool's swap() call really does transfer(tokenOut) to the
// probe — so §3's balance_end is this read, not a value this package
// invents.
func (p *Probe) BalanceOf(token common.Address) (*big.Int, error) {
	slot := balanceMappingSlot(p.addr, eth.BalanceSlotOf(token))
	val, err := p.fork.GetStorageAt(token, slot)
	if err != nil {
		return nil, fmt.Errorf("probe: read own balance: %w", err)
	}
	return val.Big(), nil
}

// creditPoolBalance increases pool's own real balanceOf(token) by amountIn.
// Neither V2's swap() (which derives amountIn from a balance-before/after
// delta on the pool) nor V3's swap() (whose payment callback into the
// probe's codeless EOA is a silent no-op) ever pulls tokenIn from the
// caller — the pool must already be holding it when swap() runs.
func (p *Probe) creditPoolBalance(token, pool common.Address, amountIn *big.Int) error {
	slot := balanceMappingSlot(pool, eth.BalanceSlotOf(token))
	current, err := p.fork.GetStorageAt(token, slot)
	if err != nil {
		return fmt.Errorf("probe: read pool balance: %w", err)
	}
	newBalance := new(big.Int).Add(current.Big(), amountIn)
	p.fork.SetStorageAt(token, slot, common.BigToHash(newBalance))
	return nil
}

// debitOwnBalance lowers the probe's own balanceOf(token) by amount — the
// other half of the transfer a router would have issued before swap(),
// whose credit half creditPoolBalance simulates. Together they keep the
// probe's own balance an honest ledger: the credit side of a swap's output
// is the pool's genuine ERC20 transfer, executed for real.
func (p *Probe) debitOwnBalance(token common.Address, amount *big.Int) error {
	slot := balanceMappingSlot(p.addr, eth.BalanceSlotOf(token))
	current, err := p.fork.GetStorageAt(token, slot)
	if err != nil {
		return fmt.Errorf("probe: read own balance: %w", err)
	}
	newBalance := new(big.Int).Sub(current.Big(), amount)
	if newBalance.Sign() < 0 {
		newBalance = big.NewInt(0)
	}
	p.fork.SetStorageAt(token, slot, common.BigToHash(newBalance))
	return nil
}

// spendIntoPool debits amountIn off the probe's own balance of token and
// credits the same amount onto pool's balance, reproducing both sides of
// the transfer(pool, amountIn) a router would issue ahead of swap().
func (p *Probe) spendIntoPool(token, pool common.Address, amountIn *big.Int) error {
	if err := p.debitOwnBalance(token, amountIn); err != nil {
		return err
	}
	return p.creditPoolBalance(token, pool, amountIn)
}

func balanceMappingSlot(holder common.Address, mappingSlot int64) common.Hash {
	key := append(common.LeftPadBytes(holder.Bytes(), 32), common.LeftPadBytes(big.NewInt(mappingSlot).Bytes(), 32)...)
	return common.BytesToHash(crypto.Keccak256(key))
}

// buildTx reads the probe's current nonce straight from the fork rather
// than tracking it locally: Commit's nonce bump persists in fork state but
// Call's is rolled back with everything else, so the fork is the only
// source of truth that stays consistent across a mix of reads and writes.
func (p *Probe) buildTx(to common.Address, data []byte, gasPrice *big.Int) (*types.Transaction, error) {
	nonce, err := p.fork.GetNonce(p.addr)
	if err != nil {
		return nil, err
	}
	tx := types.NewTransaction(nonce, to, big.NewInt(0), probeGasLimit, gasPrice, data)
	signer := types.NewEIP155Signer(params.MainnetChainConfig.ChainID)
	signed, err := types.SignTx(tx, signer, p.key)
	if err != nil {
		return nil, fmt.Errorf("probe: sign tx: %w", err)
	}
	return signed, nil
}

// SwapV2 spends amountIn of tokenIn from the probe into the pool (standing
// in for the transfer-then-swap a router would perform), precomputes the
// exact output via the constant-product formula — the real pair contract
// takes desired output amounts and only checks the invariant afterward, it
// does not compute them for you — and commits pair.swap(amount0Out,
// amount1Out, probe, "").
func (p *Probe) SwapV2(pool, tokenIn, tokenOut, token0 common.Address, amountIn, gasPrice *big.Int) (*big.Int, error) {
	reserveIn, reserveOut, err := p.reservesV2(pool, tokenIn == token0)
	if err != nil {
		return nil, err
	}

	if err := p.spendIntoPool(tokenIn, pool, amountIn); err != nil {
		return nil, err
	}
	amountOut := pricing.GetAmountOutV2(amountIn, reserveIn, reserveOut)
	if amountOut.Sign() <= 0 {
		return big.NewInt(0), nil
	}

	// tokenIn == token0 means the output leg is token1, and vice versa.
	amount0Out, amount1Out := big.NewInt(0), big.NewInt(0)
	if tokenIn == token0 {
		amount1Out = amountOut
	} else {
		amount0Out = amountOut
	}

	data, err := v2PairABI.Pack("swap", amount0Out, amount1Out, p.addr, []byte{})
	if err != nil {
		return nil, fmt.Errorf("probe: pack v2 swap: %w", err)
	}
	tx, err := p.buildTx(pool, data, gasPrice)
	if err != nil {
		return nil, err
	}
	if _, err := p.exec.Commit(tx); err != nil {
		return nil, err
	}
	return amountOut, nil
}

// reservesV2 reads the pool's current (possibly already-forked) reserves
// by calling getReserves through the fork's own executor, so a second leg
// sees the first leg's effect on the pool.
func (p *Probe) reservesV2(pool common.Address, tokenInIsToken0 bool) (reserveIn, reserveOut *big.Int, err error) {
	data := v2PairABI.Methods["getReserves"].ID
	tx, err := p.buildTx(pool, data, big.NewInt(0))
	if err != nil {
		return nil, nil, err
	}
	result, err := p.exec.Call(tx)
	if err != nil {
		return nil, nil, err
	}
	values, err := v2PairABI.Methods["getReserves"].Outputs.Unpack(result.ReturnData)
	if err != nil {
		return nil, nil, fmt.Errorf("probe: unpack reserves: %w", err)
	}
	reserve0 := values[0].(*big.Int)
	reserve1 := values[1].(*big.Int)
	if tokenInIsToken0 {
		return reserve0, reserve1, nil
	}
	return reserve1, reserve0, nil
}

// SwapV3 spends amountIn of tokenIn from the probe into the pool and
// commits pool.swap(probe, zeroForOne, amountIn, priceLimit, ""). The pool
// calls back into the probe's address to pull payment for tokenIn; since
// the probe has no deployed code, that CALL is a silent no-op, and the
// pool's post-callback balance check only passes because the pool's
// balance was already credited directly beforehand.
func (p *Probe) SwapV3(pool, tokenIn, token0 common.Address, amountIn, gasPrice *big.Int) (*big.Int, error) {
	zeroForOne := tokenIn == token0
	if err := p.spendIntoPool(tokenIn, pool, amountIn); err != nil {
		return nil, err
	}

	priceLimit := maxSqrtRatioMinusOne
	if zeroForOne {
		priceLimit = minSqrtRatioPlusOne
	}

	data, err := v3PoolABI.Pack("swap", p.addr, zeroForOne, amountIn, priceLimit, []byte{})
	if err != nil {
		return nil, fmt.Errorf("probe: pack v3 swap: %w", err)
	}
	tx, err := p.buildTx(pool, data, gasPrice)
	if err != nil {
		return nil, err
	}
	result, err := p.exec.Commit(tx)
	if err != nil {
		return nil, err
	}
	values, err := v3PoolABI.Methods["swap"].Outputs.Unpack(result.ReturnData)
	if err != nil {
		return nil, fmt.Errorf("probe: unpack v3 swap result: %w", err)
	}
	amount0 := values[0].(*big.Int)
	amount1 := values[1].(*big.Int)
	amountOut := amount0
	if zeroForOne {
		amountOut = amount1
	}
	if amountOut.Sign() < 0 {
		amountOut = new(big.Int).Neg(amountOut)
	}
	return amountOut, nil
}
