package service

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/rs/zerolog"

	"github.com/rl1809/basket-checkout/internal/core/domain"
	"github.com/rl1809/basket-checkout/internal/port"
)

type CheckoutService struct {
	store      port.TxStore
	locker     port.CheckoutLocker
	settlement port.SettlementHook
	policy     domain.CostPolicy
	logger     zerolog.Logger
	now        func() time.Time
}

type CheckoutOption func(*CheckoutService)

func WithCostPolicy(p domain.CostPolicy) CheckoutOption {
	return func(s *CheckoutService) { s.policy = p }
}

func WithSettlement(h port.SettlementHook) CheckoutOption {
	return func(s *CheckoutService) { s.settlement = h }
}

func WithLogger(l zerolog.Logger) CheckoutOption {
	return func(s *CheckoutService) { s.logger = l }
}

func WithClock(now func() time.Time) CheckoutOption {
	return func(s *CheckoutService) { s.now = now }
}

func NewCheckoutService(store port.TxStore, locker port.CheckoutLocker, opts ...CheckoutOption) *CheckoutService {
	s := &CheckoutService{
		store:      store,
		locker:     locker,
		settlement: noopSettlement{},
		policy:     domain.DefaultCostPolicy,
		logger:     zerolog.Nop(),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Checkout validates and finalizes a basket. At most one call per basket ever
// succeeds; any failure leaves the basket and every item untouched.
func (s *CheckoutService) Checkout(ctx context.Context, basketID int64) (*domain.CheckoutReceipt, error) {
	if basketID <= 0 {
		return nil, domain.InvalidInput(domain.MsgIDNotProvided)
	}

	unlock, err := s.locker.Lock(ctx, basketID)
	if err != nil {
		return nil, fmt.Errorf("acquire checkout lock: %w", err)
	}
	defer unlock()

	run := &checkoutRun{basketID: basketID, state: domain.CheckoutPending, logger: s.logger}

	var receipt *domain.CheckoutReceipt
	err = s.store.WithinTx(ctx, func(ctx context.Context, tx port.Store) error {
		r, err := s.checkoutTx(ctx, tx, run)
		receipt = r
		return err
	})
	if err != nil {
		run.abort(err)
		return nil, err
	}
	run.advance(domain.CheckoutCheckedOut)

	s.logger.Info().
		Int64("basket_id", basketID).
		Float64("total_cost", receipt.TotalCost).
		Int("lines", len(receipt.Lines)).
		Msg("basket checked out")

	s.settlement.Settle(ctx, *receipt)
	return receipt, nil
}

func (s *CheckoutService) checkoutTx(ctx context.Context, tx port.Store, run *checkoutRun) (*domain.CheckoutReceipt, error) {
	basket, err := tx.Baskets().GetBasketForUpdate(ctx, run.basketID)
	if err != nil {
		return nil, err
	}
	if basket.CheckedOut {
		return nil, domain.AlreadyCheckedOut(basket.ID)
	}

	run.advance(domain.CheckoutValidating)
	info, err := NewCheckoutValidator(tx.BasketContents(), tx.Items(), s.policy).Validate(ctx, basket.ID)
	if err != nil {
		return nil, err
	}

	run.advance(domain.CheckoutFinalizing)
	// Item rows are locked in ascending id order, so checkouts sharing items
	// queue on the same row first instead of deadlocking.
	byID := slices.SortedFunc(slices.Values(info.Contents.Lines()), func(a, b domain.LineItem) int {
		return cmp.Compare(a.ItemID, b.ItemID)
	})
	names := make(map[int64]string, len(byID))
	for _, line := range byID {
		// the decrement re-checks against stock as it is now, not the
		// snapshot read during validation
		item, err := tx.Items().DecreaseStock(ctx, line.ItemID, line.Quantity)
		if err != nil {
			return nil, fmt.Errorf("decrease stock of item %d: %w", line.ItemID, err)
		}
		names[item.ID] = item.Name
	}

	lines := make([]domain.ReceiptLine, 0, info.Contents.Len())
	for _, line := range info.Contents.Lines() {
		lines = append(lines, domain.ReceiptLine{
			ItemID:    line.ItemID,
			Name:      names[line.ItemID],
			UnitPrice: info.Items[line.ItemID].Price,
			Quantity:  line.Quantity,
		})
	}

	basket.CheckedOut = true
	if err := tx.Baskets().SaveBasket(ctx, *basket); err != nil {
		return nil, fmt.Errorf("save basket: %w", err)
	}

	return &domain.CheckoutReceipt{
		BasketID:     basket.ID,
		UserID:       basket.UserID,
		Lines:        lines,
		TotalCost:    info.TotalCost,
		CheckedOutAt: s.now().UTC(),
	}, nil
}

type checkoutRun struct {
	basketID int64
	state    domain.CheckoutState
	logger   zerolog.Logger
}

func (r *checkoutRun) advance(to domain.CheckoutState) {
	if !domain.CanTransition(r.state, to) {
		// programming error, the flow above is linear
		panic(fmt.Sprintf("checkout: illegal transition %s -> %s", r.state, to))
	}
	r.logger.Debug().
		Int64("basket_id", r.basketID).
		Str("from", string(r.state)).
		Str("state", string(to)).
		Msg("checkout transition")
	r.state = to
}

func (r *checkoutRun) abort(err error) {
	from := r.state
	r.advance(domain.CheckoutAborted)

	kind := domain.KindOf(err)
	ev := r.logger.Warn()
	if kind == domain.KindInternal {
		ev = r.logger.Error()
	}
	ev.Err(err).
		Int64("basket_id", r.basketID).
		Str("kind", string(kind)).
		Str("aborted_in", string(from)).
		Msg("checkout aborted")
}

type noopSettlement struct{}

func (noopSettlement) Settle(context.Context, domain.CheckoutReceipt) {}
