package services

import (
	"context"

	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/checkout/session"

	"github.com/cleanpath/cleanpath-api/models"
)

// PaymentGateway opens hosted checkout sessions for unpaid transactions
type PaymentGateway interface {
	Checkout(ctx context.Context, tx *models.Transaction) (sessionID string, url string, err error)
}

// StripeGateway is a PaymentGateway backed by Stripe Checkout
type StripeGateway struct {
	Currency   string
	SuccessURL string
	CancelURL  string
}

// NewStripeGateway configures the stripe client key and returns a gateway
func NewStripeGateway(secretKey, currency, successURL, cancelURL string) *StripeGateway {
	stripe.Key = secretKey
	return &StripeGateway{
		Currency:   currency,
		SuccessURL: successURL,
		CancelURL:  cancelURL,
	}
}

// Checkout creates a one line payment session for tx
func (g *StripeGateway) Checkout(ctx context.Context, tx *models.Transaction) (string, string, error) {
	params := &stripe.CheckoutSessionParams{
		Mode:              stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL:        stripe.String(g.SuccessURL),
		CancelURL:         stripe.String(g.CancelURL),
		ClientReferenceID: stripe.String(tx.ID.Hex()),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency: stripe.String(g.Currency),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name: stripe.String(tx.Description),
					},
					UnitAmount: stripe.Int64(minorUnits(tx.Amount)),
				},
				Quantity: stripe.Int64(1),
			},
		},
	}
	params.Context = ctx
	params.AddMetadata("transactionId", tx.ID.Hex())
	params.AddMetadata("userId", tx.UserID.Hex())

	s, err := session.New(params)
	if err != nil {
		return "", "", err
	}
	return s.ID, s.URL, nil
}
