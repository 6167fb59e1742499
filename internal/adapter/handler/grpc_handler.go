package handler

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/rl1809/basket-checkout/internal/core/domain"
)

const (
	checkoutServiceName = "checkout.v1.CheckoutService"
	checkoutFullMethod  = "/" + checkoutServiceName + "/Checkout"

	// errorKindTrailer carries the domain error kind next to the status, since
	// several kinds share FailedPrecondition.
	errorKindTrailer = "x-error-kind"
)

type CheckoutRequest struct {
	BasketID int64 `json:"basket_id"`
}

type CheckoutResponse struct {
	Receipt *domain.CheckoutReceipt `json:"receipt"`
}

type CheckoutServer interface {
	Checkout(ctx context.Context, req *CheckoutRequest) (*CheckoutResponse, error)
}

var CheckoutServiceDesc = grpc.ServiceDesc{
	ServiceName: checkoutServiceName,
	HandlerType: (*CheckoutServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Checkout", Handler: checkoutHandler},
	},
	Streams: []grpc.StreamDesc{},
}

func RegisterCheckoutServer(s grpc.ServiceRegistrar, srv CheckoutServer) {
	s.RegisterService(&CheckoutServiceDesc, srv)
}

func checkoutHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(CheckoutRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(CheckoutServer).Checkout(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: checkoutFullMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(CheckoutServer).Checkout(ctx, req.(*CheckoutRequest))
	}
	return interceptor(ctx, in, info, handler)
}

type GRPCHandler struct {
	checkout Checkouter
}

func NewGRPCHandler(checkout Checkouter) *GRPCHandler {
	return &GRPCHandler{checkout: checkout}
}

func (h *GRPCHandler) Checkout(ctx context.Context, req *CheckoutRequest) (*CheckoutResponse, error) {
	receipt, err := h.checkout.Checkout(ctx, req.BasketID)
	if err != nil {
		kind := domain.KindOf(err)
		grpc.SetTrailer(ctx, metadata.Pairs(errorKindTrailer, string(kind)))
		return nil, status.Error(grpcCode(kind), domain.MessageOf(err))
	}
	return &CheckoutResponse{Receipt: receipt}, nil
}

func grpcCode(kind domain.Kind) codes.Code {
	switch kind {
	case domain.KindNotFound:
		return codes.NotFound
	case domain.KindAlreadyCheckedOut, domain.KindInsufficientQuantity, domain.KindCostTooLow, domain.KindCostTooHigh:
		return codes.FailedPrecondition
	case domain.KindInvalidInput:
		return codes.InvalidArgument
	default:
		return codes.Internal
	}
}

// UnaryLogger logs every unary call with its resulting status code.
func UnaryLogger(logger zerolog.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		start := time.Now()
		resp, err := handler(ctx, req)

		code := status.Code(err)
		ev := logger.Info()
		if code == codes.Internal || code == codes.Unknown {
			ev = logger.Error().Err(err)
		}
		ev.Str("method", info.FullMethod).
			Str("code", code.String()).
			Dur("duration", time.Since(start)).
			Msg("rpc completed")
		return resp, err
	}
}

var _ CheckoutServer = (*GRPCHandler)(nil)
