package handler

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/rl1809/basket-checkout/internal/core/domain"
)

// CheckoutClient calls the checkout service and turns failures back into
// domain errors, so callers can use errors.Is on both sides of the wire.
type CheckoutClient struct {
	cc grpc.ClientConnInterface
}

func NewCheckoutClient(cc grpc.ClientConnInterface) *CheckoutClient {
	return &CheckoutClient{cc: cc}
}

func (c *CheckoutClient) Checkout(ctx context.Context, basketID int64) (*domain.CheckoutReceipt, error) {
	var trailer metadata.MD
	out := new(CheckoutResponse)
	err := c.cc.Invoke(ctx, checkoutFullMethod, &CheckoutRequest{BasketID: basketID}, out,
		grpc.CallContentSubtype(jsonCodecName),
		grpc.Trailer(&trailer),
	)
	if err != nil {
		return nil, fromStatus(err, trailer)
	}
	return out.Receipt, nil
}

func fromStatus(err error, trailer metadata.MD) error {
	st, ok := status.FromError(err)
	if !ok {
		return err
	}
	kinds := trailer.Get(errorKindTrailer)
	if len(kinds) == 0 || domain.Kind(kinds[0]) == domain.KindInternal {
		return err
	}
	return &domain.Error{Kind: domain.Kind(kinds[0]), Message: st.Message()}
}

var _ Checkouter = (*CheckoutClient)(nil)
