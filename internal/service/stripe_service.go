package service

import (
	"fmt"

	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/refund"
)

// StripeService is the boundary to the external payment processor. The
// engine only issues refunds here; collecting payment is the payment
// service's job, which hands back the payment_ref stored on the
// reservation.
type StripeService struct{}

func NewStripeService() *StripeService {
	return &StripeService{}
}

// Refund refunds the payment intent behind an approved, refund-eligible
// cancellation.
func (s *StripeService) Refund(paymentRef string) error {
	if paymentRef == "" {
		return fmt.Errorf("no payment reference to refund")
	}
	params := &stripe.RefundParams{
		PaymentIntent: stripe.String(paymentRef),
	}
	_, err := refund.New(params)
	return err
}
