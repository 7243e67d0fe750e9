// Package router enumerates candidate counterpart pools for a token pair,
// grounded on internal/arbitrage/pools.go's CREATE2 derivation and sorted-
// token convention, extended with a V3 factory fee-tier lookup.
package router

import (
	"bytes"
	"context"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/quaydex/backrun-engine/internal/eth"
)

var (
	v2PairABI    abi.ABI
	v2FactoryABI abi.ABI
	v3FactoryABI abi.ABI
)

func init() {
	var err error
	v2PairABI, err = abi.JSON(strings.NewReader(eth.UniswapV2PairABI))
	if err != nil {
		panic(err)
	}
	v2FactoryABI, err = abi.JSON(strings.NewReader(eth.UniswapV2FactoryABI))
	if err != nil {
		panic(err)
	}
	v3FactoryABI, err = abi.JSON(strings.NewReader(eth.UniswapV3FactoryABI))
	if err != nil {
		panic(err)
	}
}

// Router is the Pool Router (§4.D): it never simulates a swap, it only
// resolves pool/token addresses via Chain View reads and CREATE2 math.
type Router struct {
	view *eth.ChainView
}

func New(view *eth.ChainView) *Router {
	return &Router{view: view}
}

// GetPairTokens reads token0()/token1() off a live pool.
func (r *Router) GetPairTokens(ctx context.Context, pool common.Address, atBlock uint64) (token0, token1 common.Address, err error) {
	out0, err := r.view.Call(ctx, pool, v2PairABI.Methods["token0"].ID, atBlock)
	if err != nil {
		return common.Address{}, common.Address{}, err
	}
	vals0, err := v2PairABI.Methods["token0"].Outputs.Unpack(out0)
	if err != nil {
		return common.Address{}, common.Address{}, err
	}
	out1, err := r.view.Call(ctx, pool, v2PairABI.Methods["token1"].ID, atBlock)
	if err != nil {
		return common.Address{}, common.Address{}, err
	}
	vals1, err := v2PairABI.Methods["token1"].Outputs.Unpack(out1)
	if err != nil {
		return common.Address{}, common.Address{}, err
	}
	return vals0[0].(common.Address), vals1[0].(common.Address), nil
}

// sortTokens returns tokens in ascending address order — V2 pairs always
// store the lower address as token0.
func sortTokens(tokenA, tokenB common.Address) (common.Address, common.Address) {
	if bytes.Compare(tokenA.Bytes(), tokenB.Bytes()) < 0 {
		return tokenA, tokenB
	}
	return tokenB, tokenA
}

// ComputePairAddressV2 derives a V2 pair's address with zero RPC calls.
func ComputePairAddressV2(dex eth.DEXConfig, token0, token1 common.Address) common.Address {
	salt := crypto.Keccak256Hash(append(token0.Bytes(), token1.Bytes()...))
	data := append([]byte{0xff}, dex.Factory.Bytes()...)
	data = append(data, salt.Bytes()...)
	data = append(data, dex.InitCodeHash[:]...)
	return common.BytesToAddress(crypto.Keccak256(data)[12:])
}

// getPoolV3 resolves a V3 pool for one fee tier via the factory's
// getPool(token0, token1, fee) view.
func (r *Router) getPoolV3(ctx context.Context, factory, token0, token1 common.Address, fee uint32, atBlock uint64) (common.Address, error) {
	data, err := v3FactoryABI.Pack("getPool", token0, token1, big.NewInt(int64(fee)))
	if err != nil {
		return common.Address{}, err
	}
	out, err := r.view.Call(ctx, factory, data, atBlock)
	if err != nil {
		return common.Address{}, err
	}
	vals, err := v3FactoryABI.Methods["getPool"].Outputs.Unpack(out)
	if err != nil {
		return common.Address{}, err
	}
	return vals[0].(common.Address), nil
}

// hasLiveV2Pair reports whether an address has a non-empty V2 pair: we derive the
// candidate address with CREATE2 and confirm it by reading token0() — an
// empty account reverts or returns nothing, signalling "doesn't exist".
func (r *Router) hasLiveV2Pair(ctx context.Context, pair common.Address, atBlock uint64) bool {
	out, err := r.view.Call(ctx, pair, v2PairABI.Methods["token0"].ID, atBlock)
	if err != nil || len(out) == 0 {
		return false
	}
	return true
}

// GetOtherPools enumerates candidate counterpart pools for (tokenA, tokenB)
// on every known factory of the opposite family, per §4.D. Only that one
// family is searched, and order is stable: for a V2 counterpart, one pair
// per factory in eth.KnownV2DEXes order; for a V3 counterpart, factories ×
// fee tiers in eth.KnownV3DEXes order. Zero addresses and non-existent
// pools are dropped. The caller (Orchestrator) treats the last element as
// primary — "last wins" per the spec's Open Question #2.
func (r *Router) GetOtherPools(ctx context.Context, tokenA, tokenB common.Address, sourceFamily eth.PoolFamily, atBlock uint64) ([]common.Address, error) {
	token0, token1 := sortTokens(tokenA, tokenB)
	var out []common.Address

	switch sourceFamily.Other() {
	case eth.FamilyV2:
		for _, dex := range eth.KnownV2DEXes {
			pair := ComputePairAddressV2(dex, token0, token1)
			if pair == (common.Address{}) {
				continue
			}
			if r.hasLiveV2Pair(ctx, pair, atBlock) {
				out = append(out, pair)
			}
		}
	case eth.FamilyV3:
		for _, dex := range eth.KnownV3DEXes {
			for _, fee := range dex.FeeTiers {
				pool, err := r.getPoolV3(ctx, dex.Factory, token0, token1, fee, atBlock)
				if err != nil {
					continue
				}
				if pool == (common.Address{}) {
					continue
				}
				out = append(out, pool)
			}
		}
	}
	return out, nil
}
