package payment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"gigfinder-ticketing/config"
	apperrors "gigfinder-ticketing/pkg/app_errors"
	"gigfinder-ticketing/pkg/logger"

	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/checkout/session"
	"github.com/stripe/stripe-go/v82/refund"
	"github.com/stripe/stripe-go/v82/webhook"
	"go.uber.org/zap"
)

type StripeProcessor struct {
	webhookSecret string
	successURL    string
	cancelURL     string

	// 測試時替換成假的 Stripe API
	newSession  func(params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error)
	newRefund   func(params *stripe.RefundParams) (*stripe.Refund, error)
	listRefunds func(ctx context.Context, paymentRef string) ([]*stripe.Refund, error)
}

func NewStripeProcessor(cfg config.StripeConfig) *StripeProcessor {
	if cfg.SecretKey != "" {
		stripe.Key = cfg.SecretKey
	}
	return &StripeProcessor{
		webhookSecret: cfg.WebhookSecret,
		successURL:    cfg.SuccessURL,
		cancelURL:     cfg.CancelURL,
		newSession:    session.New,
		newRefund:     refund.New,
		listRefunds:   listPaymentRefunds,
	}
}

func listPaymentRefunds(ctx context.Context, paymentRef string) ([]*stripe.Refund, error) {
	params := &stripe.RefundListParams{PaymentIntent: stripe.String(paymentRef)}
	params.Context = ctx
	var out []*stripe.Refund
	iter := refund.List(params)
	for iter.Next() {
		out = append(out, iter.Refund())
	}
	if err := iter.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (p *StripeProcessor) CreateCheckout(ctx context.Context, req CheckoutRequest) (*CheckoutSession, error) {
	lineItems := make([]*stripe.CheckoutSessionLineItemParams, 0, len(req.LineItems))
	for _, item := range req.LineItems {
		productData := &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
			Name: stripe.String(item.Name),
		}
		if item.Description != "" {
			productData.Description = stripe.String(item.Description)
		}
		lineItems = append(lineItems, &stripe.CheckoutSessionLineItemParams{
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency:    stripe.String(req.Currency),
				ProductData: productData,
				UnitAmount:  stripe.Int64(item.UnitAmount),
			},
			Quantity: stripe.Int64(item.Quantity),
		})
	}

	params := &stripe.CheckoutSessionParams{
		Mode:       stripe.String(string(stripe.CheckoutSessionModePayment)),
		LineItems:  lineItems,
		SuccessURL: stripe.String(p.successURL),
		CancelURL:  stripe.String(p.cancelURL),
		Metadata:   req.Metadata,
	}
	params.Context = ctx
	if req.CustomerEmail != "" {
		params.CustomerEmail = stripe.String(req.CustomerEmail)
	}
	if req.ClientReference != "" {
		params.ClientReferenceID = stripe.String(req.ClientReference)
	}

	sess, err := p.newSession(params)
	if err != nil {
		return nil, fmt.Errorf("create checkout session: %w", err)
	}
	return &CheckoutSession{ID: sess.ID, URL: sess.URL}, nil
}

// Refund returns the refund already standing against the payment when there is one.
// Each failed or canceled attempt moves the idempotency key on, since Stripe replays a
// key's first response for 24 hours. A 5xx answer under a key that created nothing is
// still replayed for that window.
func (p *StripeProcessor) Refund(ctx context.Context, paymentRef string, idempotencyKey string) (string, error) {
	existing, err := p.listRefunds(ctx, paymentRef)
	if err != nil {
		return "", fmt.Errorf("list refunds: %w", err)
	}
	dead := 0
	for _, r := range existing {
		switch r.Status {
		case stripe.RefundStatusSucceeded, stripe.RefundStatusPending, stripe.RefundStatusRequiresAction:
			logger.WithComponent("payment").Info("payment already refunded",
				zap.String("payment_ref", paymentRef), zap.String("refund_id", r.ID))
			return r.ID, nil
		case stripe.RefundStatusFailed, stripe.RefundStatusCanceled:
			dead++
		}
	}
	if dead > 0 {
		idempotencyKey = fmt.Sprintf("%s-retry-%d", idempotencyKey, dead)
	}

	params := &stripe.RefundParams{
		PaymentIntent: stripe.String(paymentRef),
	}
	params.Context = ctx
	params.SetIdempotencyKey(idempotencyKey)

	r, err := p.newRefund(params)
	if err != nil {
		return "", fmt.Errorf("create refund: %w", err)
	}
	if r.Status == stripe.RefundStatusFailed || r.Status == stripe.RefundStatusCanceled {
		return "", fmt.Errorf("refund %s ended in status %s", r.ID, r.Status)
	}
	return r.ID, nil
}

func (p *StripeProcessor) ParseWebhook(payload []byte, signature string) (*CompletedPayment, error) {
	event, err := webhook.ConstructEventWithOptions(payload, signature, p.webhookSecret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		logger.WithComponent("payment").Warn("webhook signature rejected", zap.Error(err))
		return nil, apperrors.ErrInvalidSignature
	}

	if event.Type != stripe.EventTypeCheckoutSessionCompleted {
		logger.WithComponent("payment").Debug("ignoring webhook event", zap.String("type", string(event.Type)))
		return nil, nil
	}

	var sess stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &sess); err != nil {
		return nil, fmt.Errorf("decode checkout session: %w", err)
	}

	if sess.PaymentStatus != stripe.CheckoutSessionPaymentStatusPaid {
		logger.WithComponent("payment").Info("checkout completed without payment, ignoring",
			zap.String("session_id", sess.ID), zap.String("payment_status", string(sess.PaymentStatus)))
		return nil, nil
	}

	ref := sess.ID
	if sess.PaymentIntent != nil && sess.PaymentIntent.ID != "" {
		ref = sess.PaymentIntent.ID
	}
	if ref == "" {
		return nil, errors.New("checkout session carries no payment reference")
	}

	return &CompletedPayment{
		PaymentRef:  ref,
		SessionID:   sess.ID,
		AmountTotal: sess.AmountTotal,
		Metadata:    sess.Metadata,
	}, nil
}
