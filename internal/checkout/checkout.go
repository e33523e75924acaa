package checkout

import (
	"context"
	"strings"

	"github.com/mellosd/storefront/internal/models"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// Error classes surfaced by CreateSession. The handler maps each to one
// HTTP status; processor failures stay opaque to the caller.
var (
	ErrNoSecretKey   = errors.New("STRIPE_SECRET_KEY not configured")
	ErrNoItems       = errors.New("No items provided")
	ErrSessionFailed = errors.New("Failed to create checkout session")

	ErrItemTitle    = errors.New("item title is required")
	ErrItemPrice    = errors.New("item price is invalid")
	ErrItemQuantity = errors.New("item quantity must be at least 1")
)

const (
	currency       = "usd"
	allowedCountry = "US"
)

// LineItem is one priced, quantified unit submitted to the processor.
// UnitAmount is in minor currency units (cents).
type LineItem struct {
	Name       string
	ImageURL   string
	UnitAmount int64
	Quantity   int64
}

// Session describes a one-shot payment-mode checkout to be created at the
// processor.
type Session struct {
	LineItems        []LineItem
	Currency         string
	AllowedCountries []string
	SuccessURL       string
	CancelURL        string
}

// SessionCreator is the payment-processor port. It returns the URL of the
// hosted checkout page.
type SessionCreator interface {
	CreateSession(ctx context.Context, session Session) (string, error)
}

type Log interface {
	Info(string, ...zap.Field)
	Error(string, ...zap.Field)
}

// Service validates cart snapshots and turns them into processor sessions.
// It keeps no state between calls; retries create independent sessions.
type Service struct {
	secretKey func() string
	creator   SessionCreator
	log       Log
}

func NewService(secretKey func() string, creator SessionCreator, log Log) *Service {
	return &Service{
		secretKey: secretKey,
		creator:   creator,
		log:       log,
	}
}

// CreateSession validates items, builds line items and asks the processor
// for a hosted checkout URL. Validation short-circuits before any
// processor call; processor errors are logged here and replaced with
// ErrSessionFailed so billing internals never reach the caller.
func (s *Service) CreateSession(ctx context.Context, origin string, items []models.CheckoutItem) (string, error) {
	if s.secretKey() == "" {
		return "", ErrNoSecretKey
	}
	if len(items) == 0 {
		return "", ErrNoItems
	}

	lines, err := BuildLineItems(items)
	if err != nil {
		return "", err
	}

	session := Session{
		LineItems:        lines,
		Currency:         currency,
		AllowedCountries: []string{allowedCountry},
		SuccessURL:       origin + "/?success=true",
		CancelURL:        origin + "/",
	}

	url, err := s.creator.CreateSession(ctx, session)
	if err != nil {
		s.log.Error("checkout session creation failed", zap.Error(err))
		return "", ErrSessionFailed
	}
	return url, nil
}

// BuildLineItems converts submitted items to minor-unit line items. Each
// unit amount is round(price * 100), guarding against floating-point drift
// from the decimal string.
func BuildLineItems(items []models.CheckoutItem) ([]LineItem, error) {
	lines := make([]LineItem, 0, len(items))
	for i, item := range items {
		if strings.TrimSpace(item.Title) == "" {
			return nil, errors.Wrapf(ErrItemTitle, "item %d", i)
		}
		if item.Quantity < 1 {
			return nil, errors.Wrapf(ErrItemQuantity, "item %d", i)
		}
		cents, err := models.PriceCents(item.Price)
		if err != nil {
			return nil, errors.Wrapf(ErrItemPrice, "item %d", i)
		}
		lines = append(lines, LineItem{
			Name:       item.Title,
			ImageURL:   item.ImageURL,
			UnitAmount: cents,
			Quantity:   item.Quantity,
		})
	}
	return lines, nil
}
