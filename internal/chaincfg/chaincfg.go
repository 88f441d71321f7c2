package chaincfg

import "strings"

// Token describes an ERC-20 contract deployed on a specific chain.
type Token struct {
	Symbol   string
	Address  string
	Decimals int
}

// Chain is a static description of a supported network. The RPC endpoint
// itself lives in app config; everything here is fixed per chain.
type Chain struct {
	Name           string
	ChainID        int64
	NativeSymbol   string
	NativeDecimals int
	Tokens         map[string]Token
}

// NativeDecimals is the base-unit precision of every supported native asset.
const NativeDecimals = 18

var chains = map[string]Chain{
	"ethereum": {
		Name:           "ethereum",
		ChainID:        1,
		NativeSymbol:   "ETH",
		NativeDecimals: NativeDecimals,
		Tokens: map[string]Token{
			"USDC": {Symbol: "USDC", Address: "0xa0b86991c6218b36c1d19d4a2e9eb0ce3606eb48", Decimals: 6},
			"USDT": {Symbol: "USDT", Address: "0xdac17f958d2ee523a2206206994597c13d831ec7", Decimals: 6},
			"DAI":  {Symbol: "DAI", Address: "0x6b175474e89094c44da98b954eedeac495271d0f", Decimals: 18},
			"WETH": {Symbol: "WETH", Address: "0xc02aaa39b223fe8d0a0e5c4f27ead9083c756cc2", Decimals: 18},
		},
	},
	"base": {
		Name:           "base",
		ChainID:        8453,
		NativeSymbol:   "ETH",
		NativeDecimals: NativeDecimals,
		Tokens: map[string]Token{
			"USDC": {Symbol: "USDC", Address: "0x833589fcd6edb6e08f4c7c32d4f71b54bda02913", Decimals: 6},
			"DAI":  {Symbol: "DAI", Address: "0x50c5725949a6f0c72e6c4a641f24049a917db0cb", Decimals: 18},
			"WETH": {Symbol: "WETH", Address: "0x4200000000000000000000000000000000000006", Decimals: 18},
		},
	},
	"polygon": {
		Name:           "polygon",
		ChainID:        137,
		NativeSymbol:   "POL",
		NativeDecimals: NativeDecimals,
		Tokens: map[string]Token{
			"USDC": {Symbol: "USDC", Address: "0x3c499c542cef5e3811e1192ce70d8cc03d5c3359", Decimals: 6},
			"USDT": {Symbol: "USDT", Address: "0xc2132d05d31c914a87c6611c10748aeb04b58e8f", Decimals: 6},
		},
	},
}

// Get returns the static config for a chain name.
func Get(chain string) (Chain, bool) {
	c, ok := chains[strings.ToLower(chain)]
	return c, ok
}

// IsSupported reports whether a chain name is in the static table.
func IsSupported(chain string) bool {
	_, ok := chains[strings.ToLower(chain)]
	return ok
}

// TokenBySymbol resolves a human token symbol on a chain to its contract.
func TokenBySymbol(chain, symbol string) (Token, bool) {
	c, ok := Get(chain)
	if !ok {
		return Token{}, false
	}
	t, ok := c.Tokens[strings.ToUpper(symbol)]
	return t, ok
}

// TokenByAddress resolves a contract address back to its token config,
// matching case-insensitively.
func TokenByAddress(chain, address string) (Token, bool) {
	c, ok := Get(chain)
	if !ok {
		return Token{}, false
	}
	for _, t := range c.Tokens {
		if strings.EqualFold(t.Address, address) {
			return t, true
		}
	}
	return Token{}, false
}

// AllTokenAddresses returns every configured token contract on a chain.
func AllTokenAddresses(chain string) []string {
	c, ok := Get(chain)
	if !ok {
		return nil
	}
	addrs := make([]string, 0, len(c.Tokens))
	for _, t := range c.Tokens {
		addrs = append(addrs, t.Address)
	}
	return addrs
}
