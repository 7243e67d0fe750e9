package eth

import (
	"github.com/ethereum/go-ethereum/common"
)

// Token addresses — Ethereum mainnet.
var (
	WETHAddress = common.HexToAddress("0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2")
	USDCAddress = common.HexToAddress("0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48")
	USDTAddress = common.HexToAddress("0xdAC17F958D2ee523a2206206994597C13D831ec7")
	DAIAddress  = common.HexToAddress("0x6B175474E89094C44Da98b954EedeAC495271d0F")
	WBTCAddress = common.HexToAddress("0x2260FAC5E5542a773Aa44fBCfeDf7C193bc2C599")
)

const (
	WETHDecimals = 18
	USDCDecimals = 6
	USDTDecimals = 6
	DAIDecimals  = 18
	WBTCDecimals = 8
)

// TokenInfo bundles address + decimals for easy lookup. BalanceSlot is the
// storage slot index of the token's balanceOf mapping in its own contract
// storage — used by the probe to fund a synthetic holder without going
// through approve/transfer, grounded on internal/arbitrage/executor.go's
// SetupExecutorState slot derivation.
type TokenInfo struct {
	Address     common.Address
	Decimals    int
	Symbol      string
	BalanceSlot int64
}

// KnownTokens — lookup by symbol string.
var KnownTokens = map[string]TokenInfo{
	"WETH": {WETHAddress, WETHDecimals, "WETH", 3},
	"USDC": {USDCAddress, USDCDecimals, "USDC", 9},
	"USDT": {USDTAddress, USDTDecimals, "USDT", 2},
	"DAI":  {DAIAddress, DAIDecimals, "DAI", 2},
	"WBTC": {WBTCAddress, WBTCDecimals, "WBTC", 0},
}

// BalanceSlotOf returns the balanceOf mapping slot for a known token
// address, defaulting to slot 0 (correct for most minimal ERC20s) when the
// token isn't one of the tracked ones.
func BalanceSlotOf(addr common.Address) int64 {
	for _, t := range KnownTokens {
		if t.Address == addr {
			return t.BalanceSlot
		}
	}
	return 0
}

// Event topic[0] hashes used by the Trade Decoder to classify a log.
var (
	TopicSwapV3 = common.HexToHash("0xc42079f94a6350d7e6235f29174924f928cc2ac818eb64fed8004e115fbcca67")
	TopicSwapV2 = common.HexToHash("0xd78ad95fa46c994b6551d0da85fc275fe613ce37657fb8d5e3d130840159d822")
	TopicSyncV2 = common.HexToHash("0x1c411e9a96e071241c2f21f7726b17ae89e3cab4c78be50e062b03a9fffbbad1")
)

// DEXConfig — factory + init code hash is all you need to derive ANY V2 pair
// address via CREATE2.
type DEXConfig struct {
	Name         string
	Factory      common.Address
	InitCodeHash [32]byte
}

// KnownV2DEXes — all tracked Uniswap-V2-style forks on Ethereum mainnet.
var KnownV2DEXes = []DEXConfig{
	{
		Name:         "uniswap-v2",
		Factory:      common.HexToAddress("0x5C69bEe701ef814a2B6a3EDD4B1652CB9cc5aA6f"),
		InitCodeHash: hexToBytes32("96e8ac4277198ff8b6f785478aa9a39f403cb768dd02cbee326c3e7da348845f"),
	},
	{
		Name:         "sushiswap",
		Factory:      common.HexToAddress("0xC0AEe478e3658e2610c5F7A4A2E1777cE9e4f2Ac"),
		InitCodeHash: hexToBytes32("e18a34eb0e04b04f7a0ac29a6e80748dca96319b42c54d679cb821dca90c6303"),
	},
	{
		Name:         "shibaswap",
		Factory:      common.HexToAddress("0x115934131916C8b277DD010Ee02de363c09d037c"),
		InitCodeHash: hexToBytes32("65d1a3b1e46c6e4f1be1ad5f99ef14dc488ae0549dc97db9b30afe2241ce1c7a"),
	},
}

// V3FactoryConfig names a Uniswap-V3-style factory and the fee tiers worth
// probing for a given pair.
type V3FactoryConfig struct {
	Name     string
	Factory  common.Address
	FeeTiers []uint32
}

// KnownV3DEXes — all tracked Uniswap-V3-style factories on Ethereum mainnet.
var KnownV3DEXes = []V3FactoryConfig{
	{
		Name:     "uniswap-v3",
		Factory:  common.HexToAddress("0x1F98431c8aD98523631AE4a59f267346ea31F984"),
		FeeTiers: []uint32{100, 500, 3000, 10000},
	},
}

func hexToBytes32(s string) [32]byte {
	var b [32]byte
	copy(b[:], common.FromHex(s))
	return b
}

// UniswapV2PairABI exposes getReserves, token0, token1.
const UniswapV2PairABI = `[
	{
		"constant": true,
		"inputs": [],
		"name": "getReserves",
		"outputs": [
			{"internalType": "uint112", "name": "reserve0", "type": "uint112"},
			{"internalType": "uint112", "name": "reserve1", "type": "uint112"},
			{"internalType": "uint32",  "name": "blockTimestampLast", "type": "uint32"}
		],
		"payable": false,
		"stateMutability": "view",
		"type": "function"
	},
	{
		"constant": true,
		"inputs": [],
		"name": "token0",
		"outputs": [{"internalType": "address", "name": "", "type": "address"}],
		"stateMutability": "view",
		"type": "function"
	},
	{
		"constant": true,
		"inputs": [],
		"name": "token1",
		"outputs": [{"internalType": "address", "name": "", "type": "address"}],
		"stateMutability": "view",
		"type": "function"
	},
	{
		"constant": false,
		"inputs": [
			{"internalType": "uint256", "name": "amount0Out", "type": "uint256"},
			{"internalType": "uint256", "name": "amount1Out", "type": "uint256"},
			{"internalType": "address", "name": "to", "type": "address"},
			{"internalType": "bytes", "name": "data", "type": "bytes"}
		],
		"name": "swap",
		"outputs": [],
		"stateMutability": "nonpayable",
		"type": "function"
	}
]`

// UniswapV3PoolABI exposes slot0, liquidity, token0, token1.
const UniswapV3PoolABI = `[
	{
		"inputs": [],
		"name": "slot0",
		"outputs": [
			{"internalType": "uint160", "name": "sqrtPriceX96", "type": "uint160"},
			{"internalType": "int24", "name": "tick", "type": "int24"},
			{"internalType": "uint16", "name": "observationIndex", "type": "uint16"},
			{"internalType": "uint16", "name": "observationCardinality", "type": "uint16"},
			{"internalType": "uint16", "name": "observationCardinalityNext", "type": "uint16"},
			{"internalType": "uint8", "name": "feeProtocol", "type": "uint8"},
			{"internalType": "bool", "name": "unlocked", "type": "bool"}
		],
		"stateMutability": "view",
		"type": "function"
	},
	{
		"inputs": [],
		"name": "liquidity",
		"outputs": [{"internalType": "uint128", "name": "", "type": "uint128"}],
		"stateMutability": "view",
		"type": "function"
	},
	{
		"inputs": [],
		"name": "token0",
		"outputs": [{"internalType": "address", "name": "", "type": "address"}],
		"stateMutability": "view",
		"type": "function"
	},
	{
		"inputs": [],
		"name": "token1",
		"outputs": [{"internalType": "address", "name": "", "type": "address"}],
		"stateMutability": "view",
		"type": "function"
	},
	{
		"inputs": [
			{"internalType": "address", "name": "recipient", "type": "address"},
			{"internalType": "bool", "name": "zeroForOne", "type": "bool"},
			{"internalType": "int256", "name": "amountSpecified", "type": "int256"},
			{"internalType": "uint160", "name": "sqrtPriceLimitX96", "type": "uint160"},
			{"internalType": "bytes", "name": "data", "type": "bytes"}
		],
		"name": "swap",
		"outputs": [
			{"internalType": "int256", "name": "amount0", "type": "int256"},
			{"internalType": "int256", "name": "amount1", "type": "int256"}
		],
		"stateMutability": "nonpayable",
		"type": "function"
	}
]`

// UniswapV2FactoryABI exposes getPair.
const UniswapV2FactoryABI = `[
	{
		"constant": true,
		"inputs": [
			{"internalType": "address", "name": "tokenA", "type": "address"},
			{"internalType": "address", "name": "tokenB", "type": "address"}
		],
		"name": "getPair",
		"outputs": [{"internalType": "address", "name": "pair", "type": "address"}],
		"stateMutability": "view",
		"type": "function"
	}
]`

// UniswapV3FactoryABI exposes getPool.
const UniswapV3FactoryABI = `[
	{
		"inputs": [
			{"internalType": "address", "name": "tokenA", "type": "address"},
			{"internalType": "address", "name": "tokenB", "type": "address"},
			{"internalType": "uint24", "name": "fee", "type": "uint24"}
		],
		"name": "getPool",
		"outputs": [{"internalType": "address", "name": "pool", "type": "address"}],
		"stateMutability": "view",
		"type": "function"
	}
]`
