package settlement

import (
	"context"
	"strings"
	"time"

	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/Chuksremi15/wiseramp-backend/internal/chaincfg"
	"github.com/Chuksremi15/wiseramp-backend/internal/model"
	"github.com/Chuksremi15/wiseramp-backend/internal/store"
	"github.com/Chuksremi15/wiseramp-backend/internal/utils/logger"
)

var (
	ErrBalanceVerificationFailed = errors.New("source balance below declared amount")
	ErrDestinationTransferFailed = errors.New("destination leg transfer failed")
)

// Confirmer orchestrates what happens after a leg is confirmed: balance
// re-verification, sweep enqueue, destination payout, final transition.
type Confirmer struct {
	db           *gorm.DB
	store        *store.Store
	executor     ITransferExecutor
	sweeps       ISweepEnqueuer
	vaultAddress string
	logger       *logger.Logger
}

func New(db *gorm.DB, s *store.Store, executor ITransferExecutor, sweeps ISweepEnqueuer, vaultAddress string, logger *logger.Logger) *Confirmer {
	return &Confirmer{
		db:           db,
		store:        s,
		executor:     executor,
		sweeps:       sweeps,
		vaultAddress: vaultAddress,
		logger:       logger,
	}
}

func (c *Confirmer) Confirm(ctx context.Context, orderID string) error {
	order, err := c.store.Order.GetByOrderID(c.db, orderID)
	if err != nil {
		return errors.Wrap(err, "failed to load order")
	}

	if order.CryptoSourced() {
		if err := c.verifySourceBalance(ctx, order); err != nil {
			return err
		}
		c.enqueueSweep(order)
	}

	if err := c.executeDestination(ctx, order); err != nil {
		return err
	}

	return nil
}

// verifySourceBalance re-checks the collected funds are still in place; the
// matched transfer could have been spent or reorged away since the scan.
// Failure is fatal and never retried.
func (c *Confirmer) verifySourceBalance(ctx context.Context, order *model.Order) error {
	chain := *order.SourceChain
	decimals := chaincfg.NativeDecimals
	if cfg, ok := chaincfg.Get(chain); ok && !strings.EqualFold(order.SourceCurrency, cfg.NativeSymbol) {
		if token, ok := chaincfg.TokenBySymbol(chain, order.SourceCurrency); ok {
			decimals = token.Decimals
		}
	}

	expected, err := model.NewWeb3BigIntFromDecimal(order.SourceAmount, decimals)
	if err != nil {
		return errors.Wrap(err, "unparseable source amount")
	}
	expectedInt, _ := expected.BigInt()

	ok, actual, err := c.executor.VerifyBalance(ctx, chain, order.SourceAddress, order.SourceCurrency, expectedInt)
	if err == nil && ok {
		return nil
	}

	fields := map[string]string{
		"orderId": order.OrderID,
		"chain":   chain,
		"address": order.SourceAddress,
	}
	if err != nil {
		fields["error"] = err.Error()
	} else if actual != nil {
		fields["actual"] = actual.String()
		fields["expected"] = expectedInt.String()
	}
	c.logger.Error("[Confirm][VerifyBalance] balance verification failed", fields)

	if markErr := c.store.Order.MarkFailed(c.db, order.ID, model.OrderStatusFailed, model.OrderStatusBalanceVerificationFailed); markErr != nil {
		c.logger.Error("[Confirm][MarkFailed]", map[string]string{
			"orderId": order.OrderID,
			"error":   markErr.Error(),
		})
	}
	return ErrBalanceVerificationFailed
}

// enqueueSweep hands the collected funds to the sweep queue. Sweeping to the
// vault and paying the destination leg are independent concerns, so an
// enqueue failure is logged but never blocks the payout.
func (c *Confirmer) enqueueSweep(order *model.Order) {
	_, err := c.sweeps.Enqueue(SweepJob{
		OrderID:        order.OrderID,
		UserID:         order.UserID,
		FromAddress:    order.SourceAddress,
		Amount:         order.SourceAmount,
		SourceChain:    *order.SourceChain,
		SourceCurrency: order.SourceCurrency,
	})
	if err != nil {
		c.logger.Error("[Confirm][EnqueueSweep]", map[string]string{
			"orderId": order.OrderID,
			"error":   err.Error(),
		})
	}
}

func (c *Confirmer) executeDestination(ctx context.Context, order *model.Order) error {
	if order.DestinationChain == nil || *order.DestinationChain == "" {
		if order.Kind == model.OrderKindCryptoToFiat {
			// The fiat payout leg is driven by the fiat gateway; this
			// order stays in processing_payout until its webhook lands.
			return nil
		}
		return c.failDestination(order, "missing destination chain")
	}

	chain := *order.DestinationChain
	if !chaincfg.IsSupported(chain) {
		return c.failDestination(order, "unsupported destination chain "+chain)
	}
	if order.DestinationAddress == "" {
		return c.failDestination(order, "missing destination address")
	}

	decimals := chaincfg.NativeDecimals
	if cfg, ok := chaincfg.Get(chain); ok && !strings.EqualFold(order.DestinationCurrency, cfg.NativeSymbol) {
		token, ok := chaincfg.TokenBySymbol(chain, order.DestinationCurrency)
		if !ok {
			return c.failDestination(order, "unsupported destination currency "+order.DestinationCurrency)
		}
		decimals = token.Decimals
	}
	amount, err := model.NewWeb3BigIntFromDecimal(order.DestinationAmount, decimals)
	if err != nil {
		return c.failDestination(order, "unparseable destination amount "+order.DestinationAmount)
	}
	amountInt, _ := amount.BigInt()

	txHash, _, err := c.executor.Payout(ctx, chain, order.DestinationCurrency, order.DestinationAddress, amountInt.String())
	if err != nil {
		return c.failDestination(order, err.Error())
	}

	if err := c.store.Order.MarkCompleted(c.db, order.ID, txHash, time.Now()); err != nil {
		return errors.Wrap(err, "failed to finalize order")
	}
	if err := c.store.Order.SetInternalTransferStatus(c.db, order.OrderID, model.OrderStatusCompleted, nil); err != nil {
		c.logger.Error("[Confirm][SetInternalTransferStatus]", map[string]string{
			"orderId": order.OrderID,
			"error":   err.Error(),
		})
	}

	c.logger.Info("[Confirm] order completed", map[string]string{
		"orderId": order.OrderID,
		"txHash":  txHash,
	})
	return nil
}

func (c *Confirmer) failDestination(order *model.Order, reason string) error {
	c.logger.Error("[Confirm][Destination] destination transfer failed", map[string]string{
		"orderId": order.OrderID,
		"reason":  reason,
	})
	if err := c.store.Order.MarkFailed(c.db, order.ID, model.OrderStatusTokenFromVaultFailed, ""); err != nil {
		c.logger.Error("[Confirm][MarkFailed]", map[string]string{
			"orderId": order.OrderID,
			"error":   err.Error(),
		})
	}
	return ErrDestinationTransferFailed
}

var _ IConfirmer = (*Confirmer)(nil)
