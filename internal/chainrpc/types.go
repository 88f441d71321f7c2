package chainrpc

import "math/big"

type TransferKind string

const (
	TransferKindNative TransferKind = "native"
	TransferKindToken  TransferKind = "token"
)

// Transfer is one decoded on-chain transfer, native or token. Decoding
// happens once at the client boundary so nothing downstream inspects raw
// logs or transactions.
type Transfer struct {
	Kind          TransferKind
	TxHash        string
	From          string
	To            string
	Amount        *big.Int
	TokenContract string // empty for native transfers
	BlockNumber   uint64
}

// RangeFilter restricts a range query to the watched address and token set.
type RangeFilter struct {
	// Addresses are normalized 0x-prefixed watched addresses, matched in
	// both sender and recipient positions.
	Addresses []string
	// TokenContracts are the token contracts to watch for Transfer events;
	// empty means native transfers only.
	TokenContracts []string
}

// RangeResult carries the decoded transfers of one scan cycle plus the
// cursor the next cycle should resume from.
type RangeResult struct {
	Transfers []Transfer
	NextBlock uint64
}
