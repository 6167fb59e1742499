package payment

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/rl1809/basket-checkout/internal/core/domain"
	"github.com/rl1809/basket-checkout/internal/port"
)

const defaultChargeTimeout = 5 * time.Second

// Dispatcher hands checkout receipts to a payment gateway from a fixed pool of
// workers. Settle never blocks: when the queue is full the receipt is dropped
// and logged.
type Dispatcher struct {
	gateway port.PaymentGateway
	logger  zerolog.Logger
	timeout time.Duration

	queue  chan domain.CheckoutReceipt
	wg     sync.WaitGroup
	mu     sync.RWMutex
	closed bool
}

type DispatcherConfig struct {
	Workers       int
	QueueSize     int
	ChargeTimeout time.Duration
}

func NewDispatcher(gateway port.PaymentGateway, cfg DispatcherConfig, logger zerolog.Logger) *Dispatcher {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.ChargeTimeout <= 0 {
		cfg.ChargeTimeout = defaultChargeTimeout
	}
	d := &Dispatcher{
		gateway: gateway,
		logger:  logger,
		timeout: cfg.ChargeTimeout,
		queue:   make(chan domain.CheckoutReceipt, max(cfg.QueueSize, 0)),
	}
	for i := 0; i < cfg.Workers; i++ {
		d.wg.Add(1)
		go func(id int) {
			defer d.wg.Done()
			d.workerLoop(id)
		}(i)
	}
	d.logger.Info().Int("workers", cfg.Workers).Int("queue_size", cap(d.queue)).Msg("settlement dispatcher started")
	return d
}

func (d *Dispatcher) Settle(ctx context.Context, receipt domain.CheckoutReceipt) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		d.logger.Warn().Int64("basket_id", receipt.BasketID).Msg("settlement dispatcher closed, receipt dropped")
		return
	}
	select {
	case d.queue <- receipt:
	default:
		d.logger.Warn().Int64("basket_id", receipt.BasketID).Msg("settlement queue full, receipt dropped")
	}
}

func (d *Dispatcher) workerLoop(id int) {
	for receipt := range d.queue {
		ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
		if err := d.gateway.Charge(ctx, receipt); err != nil {
			d.logger.Error().Err(err).
				Int("worker", id).
				Int64("basket_id", receipt.BasketID).
				Float64("total_cost", receipt.TotalCost).
				Msg("settlement failed")
		} else {
			d.logger.Debug().Int("worker", id).Int64("basket_id", receipt.BasketID).Msg("settled")
		}
		cancel()
	}
}

// Close stops accepting receipts and waits for the queued ones to drain.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	close(d.queue)
	d.mu.Unlock()

	d.wg.Wait()
	d.logger.Info().Msg("settlement dispatcher stopped")
}

var _ port.SettlementHook = (*Dispatcher)(nil)
