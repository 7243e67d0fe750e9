package eth

import (
	"context"
	"errors"
	"math/big"

	ethereum "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/quaydex/backrun-engine/internal/engine/errs"
)

// BlockInfo is the immutable per-block environment the Fork Sandbox builds
// its EVM context from.
type BlockInfo struct {
	Number   uint64
	BaseFee  *big.Int
	Time     uint64
	Coinbase common.Address
}

// ChainView is the read-only query surface every other component depends on.
// It never mutates chain state; it wraps Client with retry-once transport
// semantics and the typed errors the rest of the engine switches on.
type ChainView struct {
	client *Client
	cache  *ReadCache
}

func NewChainView(client *Client, cache *ReadCache) *ChainView {
	return &ChainView{client: client, cache: cache}
}

// GetBlockInfo fetches the header for a block and adapts it into a
// BlockInfo. Retries once on transport failure before wrapping.
func (v *ChainView) GetBlockInfo(ctx context.Context, number uint64) (*BlockInfo, error) {
	if info, ok := v.cache.getBlockInfo(number); ok {
		return info, nil
	}

	header, err := v.client.HeaderByNumber(ctx, new(big.Int).SetUint64(number))
	if err != nil {
		header, err = v.client.HeaderByNumber(ctx, new(big.Int).SetUint64(number))
		if err != nil {
			return nil, errs.Transport(err)
		}
	}

	baseFee := header.BaseFee
	if baseFee == nil {
		baseFee = big.NewInt(0)
	}
	info := &BlockInfo{
		Number:   header.Number.Uint64(),
		BaseFee:  new(big.Int).Set(baseFee),
		Time:     header.Time,
		Coinbase: header.Coinbase,
	}
	v.cache.putBlockInfo(number, info)
	return info, nil
}

// GetTransaction fetches a transaction by hash.
func (v *ChainView) GetTransaction(ctx context.Context, hash common.Hash) (*types.Transaction, error) {
	tx, err := v.client.TransactionByHash(ctx, hash)
	if err != nil {
		tx, err = v.client.TransactionByHash(ctx, hash)
		if err != nil {
			return nil, errs.Transport(err)
		}
	}
	return tx, nil
}

// GetReceipt fetches the receipt for a transaction hash, surfacing
// NotLanded when the node has no receipt for it and Transport when the
// lookup fails twice for any other reason.
func (v *ChainView) GetReceipt(ctx context.Context, hash common.Hash) (*types.Receipt, error) {
	if r, ok := v.cache.getReceipt(hash); ok {
		return r, nil
	}

	receipt, err := v.client.TransactionReceipt(ctx, hash)
	if err != nil && !errors.Is(err, ethereum.NotFound) {
		receipt, err = v.client.TransactionReceipt(ctx, hash)
	}
	if errors.Is(err, ethereum.NotFound) {
		return nil, errs.NotLanded(hash)
	}
	if err != nil {
		return nil, errs.Transport(err)
	}
	if receipt == nil {
		return nil, errs.NotLanded(hash)
	}
	v.cache.putReceipt(hash, receipt)
	return receipt, nil
}

// GetBalance, GetNonce and GetCode are not part of the spec's tested query
// surface (chain RPC transport is an external collaborator), but the Fork
// Sandbox needs them to materialize account state lazily, so they live here
// alongside the other retried reads rather than duplicating retry logic
// in internal/fork.
func (v *ChainView) GetBalance(ctx context.Context, addr common.Address, atBlock uint64) (*big.Int, error) {
	bal, err := v.client.BalanceAt(ctx, addr, new(big.Int).SetUint64(atBlock))
	if err != nil {
		bal, err = v.client.BalanceAt(ctx, addr, new(big.Int).SetUint64(atBlock))
		if err != nil {
			return nil, errs.Transport(err)
		}
	}
	return bal, nil
}

func (v *ChainView) GetNonce(ctx context.Context, addr common.Address, atBlock uint64) (uint64, error) {
	nonce, err := v.client.NonceAt(ctx, addr, new(big.Int).SetUint64(atBlock))
	if err != nil {
		nonce, err = v.client.NonceAt(ctx, addr, new(big.Int).SetUint64(atBlock))
		if err != nil {
			return 0, errs.Transport(err)
		}
	}
	return nonce, nil
}

func (v *ChainView) GetCode(ctx context.Context, addr common.Address, atBlock uint64) ([]byte, error) {
	code, err := v.client.CodeAt(ctx, addr, new(big.Int).SetUint64(atBlock))
	if err != nil {
		code, err = v.client.CodeAt(ctx, addr, new(big.Int).SetUint64(atBlock))
		if err != nil {
			return nil, errs.Transport(err)
		}
	}
	return code, nil
}

// GetStorage reads one storage slot at a fixed block.
func (v *ChainView) GetStorage(ctx context.Context, addr common.Address, slot common.Hash, atBlock uint64) (common.Hash, error) {
	raw, err := v.client.StorageAt(ctx, addr, slot, new(big.Int).SetUint64(atBlock))
	if err != nil {
		raw, err = v.client.StorageAt(ctx, addr, slot, new(big.Int).SetUint64(atBlock))
		if err != nil {
			return common.Hash{}, errs.Transport(err)
		}
	}
	return common.BytesToHash(raw), nil
}

// Call executes a read-only contract call against historical state.
func (v *ChainView) Call(ctx context.Context, to common.Address, data []byte, atBlock uint64) ([]byte, error) {
	msg := ethereum.CallMsg{To: &to, Data: data}
	out, err := v.client.CallContract(ctx, msg, new(big.Int).SetUint64(atBlock))
	if err != nil {
		out, err = v.client.CallContract(ctx, msg, new(big.Int).SetUint64(atBlock))
		if err != nil {
			return nil, errs.Transport(err)
		}
	}
	return out, nil
}

// GetBlockReceipts fetches every receipt landed in a block.
func (v *ChainView) GetBlockReceipts(ctx context.Context, number uint64) ([]*types.Receipt, error) {
	receipts, err := v.client.GetBlockReceipts(ctx, number)
	if err != nil {
		receipts, err = v.client.GetBlockReceipts(ctx, number)
		if err != nil {
			return nil, errs.Transport(err)
		}
	}
	return receipts, nil
}

// GetBlock fetches a full block, transactions included — the Fork Sandbox
// needs the actual transaction set (not just receipts) to replay everything
// that landed ahead of the user's transaction before committing it.
func (v *ChainView) GetBlock(ctx context.Context, number uint64) (*types.Block, error) {
	block, err := v.client.BlockByNumber(ctx, new(big.Int).SetUint64(number))
	if err != nil {
		block, err = v.client.BlockByNumber(ctx, new(big.Int).SetUint64(number))
		if err != nil {
			return nil, errs.Transport(err)
		}
	}
	return block, nil
}
