package checkout

import (
	"context"
	"net/http"
	"time"

	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/checkout/session"
)

// StripeCreator creates hosted checkout sessions through the Stripe API.
// The backend gets an HTTP client with a hard timeout so a stalled
// processor call cannot wedge a checkout attempt.
type StripeCreator struct {
	secretKey func() string
	backend   stripe.Backend
}

func NewStripeCreator(secretKey func() string) *StripeCreator {
	backend := stripe.GetBackendWithConfig(stripe.APIBackend, &stripe.BackendConfig{
		HTTPClient: &http.Client{Timeout: 20 * time.Second},
	})

	return &StripeCreator{
		secretKey: secretKey,
		backend:   backend,
	}
}

func (c *StripeCreator) CreateSession(ctx context.Context, spec Session) (string, error) {
	params := &stripe.CheckoutSessionParams{
		Mode:       stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL: stripe.String(spec.SuccessURL),
		CancelURL:  stripe.String(spec.CancelURL),
		ShippingAddressCollection: &stripe.CheckoutSessionShippingAddressCollectionParams{
			AllowedCountries: stripe.StringSlice(spec.AllowedCountries),
		},
	}
	params.Context = ctx

	for _, line := range spec.LineItems {
		params.LineItems = append(params.LineItems, &stripe.CheckoutSessionLineItemParams{
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency:   stripe.String(spec.Currency),
				UnitAmount: stripe.Int64(line.UnitAmount),
				ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
					Name:   stripe.String(line.Name),
					Images: stripe.StringSlice([]string{line.ImageURL}),
				},
			},
			Quantity: stripe.Int64(line.Quantity),
		})
	}

	client := session.Client{B: c.backend, Key: c.secretKey()}
	s, err := client.New(params)
	if err != nil {
		return "", err
	}
	return s.URL, nil
}
