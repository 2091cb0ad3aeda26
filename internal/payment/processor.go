package payment

import "context"

// LineItem is one priced row on the hosted checkout page. UnitAmount is in minor units.
type LineItem struct {
	Name        string
	Description string
	UnitAmount  int64
	Quantity    int64
}

type CheckoutRequest struct {
	Currency        string
	CustomerEmail   string
	ClientReference string
	LineItems       []LineItem
	Metadata        map[string]string
}

// Amount 所有明細加總
func (r CheckoutRequest) Amount() int64 {
	var total int64
	for _, item := range r.LineItems {
		total += item.UnitAmount * item.Quantity
	}
	return total
}

type CheckoutSession struct {
	ID  string
	URL string
}

// CompletedPayment is a verified, paid checkout extracted from a webhook.
type CompletedPayment struct {
	PaymentRef  string
	SessionID   string
	AmountTotal int64
	Metadata    map[string]string
}

// Processor is the external payment processor. Webhooks are delivered at least once.
type Processor interface {
	CreateCheckout(ctx context.Context, req CheckoutRequest) (*CheckoutSession, error)
	// Refund returns the processor's refund id. The same idempotency key never refunds twice.
	Refund(ctx context.Context, paymentRef string, idempotencyKey string) (string, error)
	// ParseWebhook verifies the signature and returns nil, nil for events the core does not act on.
	ParseWebhook(payload []byte, signature string) (*CompletedPayment, error)
}
