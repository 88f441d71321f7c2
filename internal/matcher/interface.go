package matcher

import (
	"context"

	"github.com/Chuksremi15/wiseramp-backend/internal/chainrpc"
	"github.com/shopspring/decimal"
)

// WatchReleaser is the slice of the watch registry the engine needs to
// release a stale or satisfied address.
type WatchReleaser interface {
	RemoveIfNoActiveOrders(address, chain string) bool
}

// IConfirmer runs the settlement follow-up once a leg is confirmed.
type IConfirmer interface {
	Confirm(ctx context.Context, orderID string) error
}

type IEngine interface {
	HandleTransfer(ctx context.Context, chain string, transfer chainrpc.Transfer)
	MatchFiat(ctx context.Context, email string, amount decimal.Decimal) error
}
