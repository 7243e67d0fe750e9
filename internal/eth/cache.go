package eth

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	lru "github.com/hashicorp/golang-lru/v2"
)

const (
	defaultBlockInfoCacheSize = 256
	defaultReceiptCacheSize   = 4096
)

// ReadCache sits in front of ChainView's RPC calls. Block headers and
// receipts for a given historical block never change, so a small bounded LRU
// saves a round trip every time GetBlockInfo or GetReceipt is asked for the
// same block/tx again (the CLI and the Decoder both fetch the user tx's
// receipt). Only those two reads are cached; the account, storage, block and
// block-receipt reads a fork makes go to the node every time. lru.Cache is
// already safe for concurrent use.
type ReadCache struct {
	blocks   *lru.Cache[uint64, *BlockInfo]
	receipts *lru.Cache[common.Hash, *types.Receipt]
}

func NewReadCache() *ReadCache {
	blocks, err := lru.New[uint64, *BlockInfo](defaultBlockInfoCacheSize)
	if err != nil {
		panic(err) // only errors on a non-positive size, which is a constant above
	}
	receipts, err := lru.New[common.Hash, *types.Receipt](defaultReceiptCacheSize)
	if err != nil {
		panic(err)
	}
	return &ReadCache{blocks: blocks, receipts: receipts}
}

func (c *ReadCache) getBlockInfo(number uint64) (*BlockInfo, bool) {
	return c.blocks.Get(number)
}

func (c *ReadCache) putBlockInfo(number uint64, info *BlockInfo) {
	c.blocks.Add(number, info)
}

func (c *ReadCache) getReceipt(hash common.Hash) (*types.Receipt, bool) {
	return c.receipts.Get(hash)
}

func (c *ReadCache) putReceipt(hash common.Hash, receipt *types.Receipt) {
	c.receipts.Add(hash, receipt)
}
