// Package payment adapts the card processor behind a small interface so the
// booking coordinator can create and inspect payment intents.
package payment

import "context"

// StatusSucceeded is the only intent status that allows a booking to be confirmed.
const StatusSucceeded = "succeeded"

// StatusCanceled is terminal; a canceled intent can never be paid.
const StatusCanceled = "canceled"

// Metadata keys attached to every intent created by the service.
const (
	MetaPackageID    = "package_id"
	MetaBuyerEmail   = "buyer_email"
	MetaSeatCount    = "seat_count"
	MetaDiscountCode = "discount_code"
)

type PaymentIntent struct {
	ID           string
	ClientSecret string
	Status       string
	AmountCents  int64
	Currency     string
	Metadata     map[string]string
}

type CreateIntentRequest struct {
	AmountCents int64
	Currency    string
	Metadata    map[string]string
}

type Gateway interface {
	CreateIntent(ctx context.Context, req CreateIntentRequest) (*PaymentIntent, error)
	RetrieveIntent(ctx context.Context, id string) (*PaymentIntent, error)
	// CancelIntent fails for intents that already succeeded.
	CancelIntent(ctx context.Context, id string) (*PaymentIntent, error)
}
