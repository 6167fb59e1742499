package port

import (
	"context"

	"github.com/rl1809/basket-checkout/internal/core/domain"
)

// SettlementHook is notified after a checkout is committed. It must not block
// the caller and its outcome never affects the recorded checkout.
type SettlementHook interface {
	Settle(ctx context.Context, receipt domain.CheckoutReceipt)
}

// PaymentGateway charges a committed checkout.
type PaymentGateway interface {
	Charge(ctx context.Context, receipt domain.CheckoutReceipt) error
}
