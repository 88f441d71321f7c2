package settlement

import (
	"context"
	"math/big"
)

// ITransferExecutor performs the actual fund movement: sweeping collected
// value to the vault and paying out the destination leg. Implementations
// wrap wallet infrastructure that is outside this core.
type ITransferExecutor interface {
	// Sweep moves the collected balance at a user's collection address to
	// the vault, deploying the collection wallet first when needed.
	Sweep(ctx context.Context, chain, userID, currency, fromAddress, vaultAddress string) (txHash string, networkFee string, err error)

	// Payout sends the destination-leg amount from the vault to the
	// recipient address on the destination chain.
	Payout(ctx context.Context, chain, currency, destinationAddress, amount string) (txHash string, networkFee string, err error)

	// VerifyBalance checks that the address holds at least the expected
	// base-unit amount of the given asset.
	VerifyBalance(ctx context.Context, chain, address, currency string, expected *big.Int) (ok bool, actual *big.Int, err error)
}

// SweepJob is the payload handed to the sweep queue once a crypto leg is
// confirmed.
type SweepJob struct {
	OrderID        string
	UserID         string
	FromAddress    string
	Amount         string
	SourceChain    string
	SourceCurrency string
}

// ISweepEnqueuer accepts sweep jobs for durable background processing.
type ISweepEnqueuer interface {
	Enqueue(job SweepJob) (uint, error)
}

// IConfirmer finalizes an order whose inbound leg has been confirmed.
type IConfirmer interface {
	Confirm(ctx context.Context, orderID string) error
}
