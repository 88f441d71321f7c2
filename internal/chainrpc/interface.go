package chainrpc

import "context"

type IChainClient interface {
	// Height returns the chain's current block height.
	Height(ctx context.Context) (uint64, error)

	// QueryRange scans [fromBlock, head] (bounded per call) for transfers
	// touching the filter's watched set and returns them decoded together
	// with the next cursor position.
	QueryRange(ctx context.Context, fromBlock uint64, filter RangeFilter) (*RangeResult, error)

	Close()
}
