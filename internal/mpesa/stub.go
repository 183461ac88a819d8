package mpesa

import (
	"context"
	"fmt"
	"sync/atomic"
)

// Stub is an in-process Gateway for development and tests. It hands out
// deterministic checkout ids and can be told to fail.
type Stub struct {
	Fail bool // when set, RequestPayment fails synchronously
	seq  atomic.Int64
}

func (s *Stub) RequestPayment(_ context.Context, req PaymentRequest) (PaymentResponse, error) {
	if s.Fail {
		return PaymentResponse{}, fmt.Errorf("%w: stub gateway set to fail", ErrPaymentInitiation)
	}
	n := s.seq.Add(1)
	return PaymentResponse{
		MerchantRequestID:   fmt.Sprintf("stub-merchant-%d", n),
		CheckoutRequestID:   fmt.Sprintf("ws_CO_stub%d", n),
		ResponseCode:        "0",
		ResponseDescription: "Success. Request accepted for processing",
		CustomerMessage:     "Check your phone for M-Pesa prompt",
	}, nil
}
