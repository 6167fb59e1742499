package port

import "context"

type CheckoutLocker interface {
	// Lock blocks until the caller holds the checkout lock for basketID or ctx
	// is done. The returned func releases the lock.
	Lock(ctx context.Context, basketID int64) (unlock func(), err error)
}
