package chaincfg

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGet(t *testing.T) {
	c, ok := Get("ethereum")
	assert.True(t, ok)
	assert.Equal(t, int64(1), c.ChainID)
	assert.Equal(t, 18, c.NativeDecimals)

	c, ok = Get("Ethereum")
	assert.True(t, ok, "chain lookup should be case-insensitive")
	assert.Equal(t, "ethereum", c.Name)

	_, ok = Get("solana")
	assert.False(t, ok)
}

func TestTokenBySymbol(t *testing.T) {
	tok, ok := TokenBySymbol("ethereum", "usdc")
	assert.True(t, ok, "symbol lookup should be case-insensitive")
	assert.Equal(t, 6, tok.Decimals)
	assert.Equal(t, "0xa0b86991c6218b36c1d19d4a2e9eb0ce3606eb48", tok.Address)

	_, ok = TokenBySymbol("ethereum", "DOGE")
	assert.False(t, ok)

	_, ok = TokenBySymbol("solana", "USDC")
	assert.False(t, ok)
}

func TestTokenByAddress(t *testing.T) {
	tok, ok := TokenByAddress("base", "0x833589FCD6EDB6E08F4C7C32D4F71B54BDA02913")
	assert.True(t, ok, "address lookup should ignore case")
	assert.Equal(t, "USDC", tok.Symbol)

	_, ok = TokenByAddress("base", "0x0000000000000000000000000000000000000000")
	assert.False(t, ok)
}

func TestAllTokenAddresses(t *testing.T) {
	addrs := AllTokenAddresses("polygon")
	assert.Len(t, addrs, 2)

	assert.Nil(t, AllTokenAddresses("unknown"))
}
