package matcher

import (
	"context"
	"math/big"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/Chuksremi15/wiseramp-backend/internal/chaincfg"
	"github.com/Chuksremi15/wiseramp-backend/internal/chainrpc"
	"github.com/Chuksremi15/wiseramp-backend/internal/model"
	"github.com/Chuksremi15/wiseramp-backend/internal/store"
	"github.com/Chuksremi15/wiseramp-backend/internal/utils/logger"
)

// Engine maps observed on-chain transfers (and fiat payment confirmations)
// onto exactly one pending order and advances that order's leg status.
type Engine struct {
	db        *gorm.DB
	store     *store.Store
	releaser  WatchReleaser
	confirmer IConfirmer
	logger    *logger.Logger

	wg sync.WaitGroup
}

func New(db *gorm.DB, s *store.Store, releaser WatchReleaser, confirmer IConfirmer, logger *logger.Logger) *Engine {
	return &Engine{
		db:        db,
		store:     s,
		releaser:  releaser,
		confirmer: confirmer,
		logger:    logger,
	}
}

// Wait blocks until all dispatched confirmations have finished.
func (e *Engine) Wait() {
	e.wg.Wait()
}

// HandleTransfer is the scanner's sink. Only inbound transfers can settle an
// order; transfers sent from a watched address are ignored here.
func (e *Engine) HandleTransfer(ctx context.Context, chain string, transfer chainrpc.Transfer) {
	if transfer.Amount == nil || transfer.Amount.Sign() <= 0 {
		return
	}

	if err := e.matchDeposit(ctx, chain, transfer); err != nil {
		e.logger.Error("[HandleTransfer][matchDeposit]", map[string]string{
			"chain":  chain,
			"txHash": transfer.TxHash,
			"error":  err.Error(),
		})
	}
}

func (e *Engine) matchDeposit(ctx context.Context, chain string, transfer chainrpc.Transfer) error {
	recipient := strings.ToLower(transfer.To)

	candidates, err := e.store.Order.FindPendingForDeposit(e.db, chain, recipient, time.Now())
	if err != nil {
		return err
	}

	// Keep only orders whose source currency corresponds to the asset
	// actually transferred.
	decimals, currencyOK := e.transferCurrency(chain, transfer)
	if !currencyOK {
		return nil
	}
	candidates = e.filterByCurrency(chain, candidates, transfer)

	if len(candidates) == 0 {
		// Possibly a stale watch; release it if nothing is pending.
		e.releaser.RemoveIfNoActiveOrders(recipient, chain)
		return nil
	}

	selected, ok := e.selectOrder(candidates, transfer.Amount, decimals)
	if !ok {
		return nil
	}

	overall, fiatStatus := deriveOnCryptoConfirmed(selected.Kind)
	won, err := e.store.Order.ConfirmCrypto(e.db, selected.ID, transfer.TxHash, overall, fiatStatus)
	if err != nil {
		e.releaser.RemoveIfNoActiveOrders(recipient, chain)
		return err
	}
	if !won {
		// Another path already claimed this order; delivering the same
		// transfer twice must not re-trigger settlement.
		e.logger.Info("[matchDeposit] order already confirmed, skipping", map[string]string{
			"orderId": selected.OrderID,
			"txHash":  transfer.TxHash,
		})
		e.releaser.RemoveIfNoActiveOrders(recipient, chain)
		return nil
	}

	e.logger.Info("[matchDeposit] crypto leg confirmed", map[string]string{
		"orderId": selected.OrderID,
		"chain":   chain,
		"txHash":  transfer.TxHash,
		"amount":  transfer.Amount.String(),
	})

	e.dispatchConfirm(selected.OrderID)
	e.releaser.RemoveIfNoActiveOrders(recipient, chain)
	return nil
}

// transferCurrency resolves the decimal precision of the transferred asset.
// Unknown token contracts are skipped entirely.
func (e *Engine) transferCurrency(chain string, transfer chainrpc.Transfer) (int, bool) {
	if transfer.Kind == chainrpc.TransferKindNative {
		return chaincfg.NativeDecimals, true
	}
	token, ok := chaincfg.TokenByAddress(chain, transfer.TokenContract)
	if !ok {
		return 0, false
	}
	return token.Decimals, true
}

func (e *Engine) filterByCurrency(chain string, orders []model.Order, transfer chainrpc.Transfer) []model.Order {
	var symbol string
	if transfer.Kind == chainrpc.TransferKindNative {
		if c, ok := chaincfg.Get(chain); ok {
			symbol = c.NativeSymbol
		}
	} else if token, ok := chaincfg.TokenByAddress(chain, transfer.TokenContract); ok {
		symbol = token.Symbol
	}

	filtered := orders[:0]
	for _, o := range orders {
		if strings.EqualFold(o.SourceCurrency, symbol) {
			filtered = append(filtered, o)
		}
	}
	return filtered
}

// selectOrder picks the order a received amount settles. Orders whose
// required amount is covered are preferred, largest requirement first, so an
// exact match beats a smaller order that the amount also covers. When no
// requirement is met the oldest order wins; that FIFO fallback can
// misattribute under ambiguous amounts and is accepted as a known limit.
func (e *Engine) selectOrder(candidates []model.Order, received *big.Int, decimals int) (model.Order, bool) {
	type requirement struct {
		order    model.Order
		required *big.Int
	}

	reqs := make([]requirement, 0, len(candidates))
	for _, o := range candidates {
		amt, err := model.NewWeb3BigIntFromDecimal(o.SourceAmount, decimals)
		if err != nil {
			e.logger.Error("[selectOrder] unparseable order amount", map[string]string{
				"orderId": o.OrderID,
				"amount":  o.SourceAmount,
			})
			continue
		}
		required, _ := amt.BigInt()
		reqs = append(reqs, requirement{order: o, required: required})
	}
	if len(reqs) == 0 {
		return model.Order{}, false
	}

	sorted := make([]requirement, len(reqs))
	copy(sorted, reqs)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].required.Cmp(sorted[j].required) > 0
	})
	for _, r := range sorted {
		if r.required.Cmp(received) <= 0 {
			return r.order, true
		}
	}

	// No requirement satisfied: fall back to the oldest candidate, which
	// reqs preserves since candidates arrive creation-time ascending.
	return reqs[0].order, true
}

// MatchFiat is the fiat-gateway entry point: advance the fiat leg of the
// oldest pending order for this payer whose amount matches.
func (e *Engine) MatchFiat(ctx context.Context, email string, amount decimal.Decimal) error {
	candidates, err := e.store.Order.FindPendingFiatByEmail(e.db, email, time.Now())
	if err != nil {
		return err
	}
	if len(candidates) == 0 {
		return nil
	}

	selected := candidates[0]
	for _, o := range candidates {
		declared, err := decimal.NewFromString(o.SourceAmount)
		if err != nil {
			continue
		}
		if declared.LessThanOrEqual(amount) {
			selected = o
			break
		}
	}

	won, err := e.store.Order.ConfirmFiat(e.db, selected.ID, model.OrderStatusProcessing)
	if err != nil {
		return err
	}
	if !won {
		return nil
	}

	e.logger.Info("[MatchFiat] fiat leg confirmed", map[string]string{
		"orderId": selected.OrderID,
		"amount":  amount.String(),
	})

	e.dispatchConfirm(selected.OrderID)
	return nil
}

// dispatchConfirm hands the confirmed order to the settlement service on its
// own goroutine. A confirmation failure does not roll back the match; it is
// surfaced through the order's status fields.
func (e *Engine) dispatchConfirm(orderID string) {
	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		if err := e.confirmer.Confirm(context.Background(), orderID); err != nil {
			e.logger.Error("[dispatchConfirm] settlement confirmation failed", map[string]string{
				"orderId": orderID,
				"error":   err.Error(),
			})
		}
	}()
}

func deriveOnCryptoConfirmed(kind model.OrderKind) (overall, fiatStatus model.OrderStatus) {
	switch kind {
	case model.OrderKindCryptoToFiat:
		return model.OrderStatusProcessingPayout, model.OrderStatusFiatPending
	default:
		return model.OrderStatusProcessing, ""
	}
}

var _ IEngine = (*Engine)(nil)
