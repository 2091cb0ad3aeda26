package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"gigfinder-ticketing/config"
	"gigfinder-ticketing/internal/model"
	"gigfinder-ticketing/internal/payment"
	"gigfinder-ticketing/internal/repository"
	apperrors "gigfinder-ticketing/pkg/app_errors"
	"gigfinder-ticketing/pkg/logger"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// checkout metadata keys, echoed back by the processor on the completed webhook
const (
	metaEventID       = "event_id"
	metaQuantity      = "quantity"
	metaCustomerName  = "customer_name"
	metaCustomerEmail = "customer_email"
	metaAddOnAmount   = "add_on_amount"
)

type ReconciliationService interface {
	StartCheckout(ctx context.Context, req model.CheckoutRequest) (*model.CheckoutResult, error)
	// HandleWebhook returns nil, nil for deliveries that need no booking.
	HandleWebhook(ctx context.Context, payload []byte, signature string) (*model.BookingResult, error)
}

// ReconciliationServiceImpl holds no state between calls; replays are absorbed by the booking table.
type ReconciliationServiceImpl struct {
	events    repository.EventRepository
	bookings  BookingService
	processor payment.Processor
	cfg       config.BookingConfig
}

func NewReconciliationService(
	events repository.EventRepository,
	bookings BookingService,
	processor payment.Processor,
	cfg config.BookingConfig,
) ReconciliationService {
	return &ReconciliationServiceImpl{
		events:    events,
		bookings:  bookings,
		processor: processor,
		cfg:       cfg,
	}
}

func (s *ReconciliationServiceImpl) StartCheckout(ctx context.Context, req model.CheckoutRequest) (result *model.CheckoutResult, err error) {
	ctx, span := tracer.Start(ctx, "ReconciliationService.StartCheckout", trace.WithAttributes(attribute.Int("event_id", req.EventID)))
	defer func() { endSpan(span, err) }()

	if err := validateCustomer(req.EventID, req.CustomerName, req.CustomerEmail); err != nil {
		return nil, err
	}
	quantity := clampQuantity(req.Quantity, s.cfg.MaxQuantity)

	event, err := s.events.FindByID(ctx, req.EventID)
	if err != nil {
		return nil, err
	}

	// 免費活動不經過金流
	if event.IsFree() {
		booked, err := s.bookings.CreateBooking(ctx, model.CreateBookingRequest{
			EventID:       event.ID,
			CustomerName:  req.CustomerName,
			CustomerEmail: req.CustomerEmail,
			Quantity:      quantity,
		})
		if err != nil {
			return nil, err
		}
		return &model.CheckoutResult{Amount: 0, Currency: s.cfg.Currency, Booking: booked.Booking}, nil
	}

	// 只是提示，真正的容量檢查在 webhook 建單時
	if remaining := event.Remaining(s.cfg.DefaultCapacity); quantity > remaining {
		return nil, &apperrors.CapacityExceededError{Remaining: remaining}
	}

	addOn := s.cfg.BookingFee

	checkout := payment.CheckoutRequest{
		Currency:        s.cfg.Currency,
		CustomerEmail:   strings.TrimSpace(req.CustomerEmail),
		ClientReference: strconv.Itoa(event.ID),
		LineItems: []payment.LineItem{{
			Name:       event.Name,
			UnitAmount: event.UnitPrice(),
			Quantity:   int64(quantity),
		}},
		Metadata: map[string]string{
			metaEventID:       strconv.Itoa(event.ID),
			metaQuantity:      strconv.Itoa(quantity),
			metaCustomerName:  strings.TrimSpace(req.CustomerName),
			metaCustomerEmail: strings.TrimSpace(req.CustomerEmail),
			metaAddOnAmount:   strconv.FormatInt(addOn, 10),
		},
	}
	if addOn > 0 {
		checkout.LineItems = append(checkout.LineItems, payment.LineItem{Name: "Booking fee", UnitAmount: addOn, Quantity: 1})
	}

	session, err := s.processor.CreateCheckout(ctx, checkout)
	if err != nil {
		return nil, fmt.Errorf("start checkout for event %d: %w", event.ID, err)
	}

	logger.WithComponent("checkout").Info("checkout started",
		zap.Int("event_id", event.ID), zap.Int("quantity", quantity), zap.String("session_id", session.ID))

	return &model.CheckoutResult{
		SessionID:   session.ID,
		RedirectURL: session.URL,
		Amount:      checkout.Amount(),
		Currency:    s.cfg.Currency,
	}, nil
}

func (s *ReconciliationServiceImpl) HandleWebhook(ctx context.Context, payload []byte, signature string) (result *model.BookingResult, err error) {
	ctx, span := tracer.Start(ctx, "ReconciliationService.HandleWebhook")
	defer func() { endSpan(span, err) }()

	paid, err := s.processor.ParseWebhook(payload, signature)
	if err != nil {
		return nil, err
	}
	if paid == nil {
		return nil, nil
	}
	span.SetAttributes(attribute.String("payment_ref", paid.PaymentRef))

	if _, ok := paid.Metadata[metaEventID]; !ok {
		// 不是本系統發起的結帳
		logger.WithComponent("webhook").Warn("paid checkout without ticket metadata ignored",
			zap.String("payment_ref", paid.PaymentRef))
		return nil, nil
	}

	req, err := bookingRequestFromMetadata(paid)
	if err != nil {
		_, err = s.refundUnfulfillable(ctx, paid, err)
		return nil, err
	}
	req.RecordUnfulfilled = true

	result, err = s.bookings.CreateBooking(ctx, req)
	if err != nil {
		// 錢已收但這筆付款永遠無法出票：退款給買家，不讓處理器無限重送
		if errors.Is(err, apperrors.ErrValidation) || errors.Is(err, apperrors.ErrEventNotFound) {
			_, err = s.refundUnfulfillable(ctx, paid, err)
			return nil, err
		}
		return nil, err
	}

	// 賣完時訂單已記為退款，這裡把錢退回去；失敗就讓處理器重送
	if booking := result.Booking; booking.IsRefunded() && booking.RefundRef == nil {
		refundRef, err := s.refundUnfulfillable(ctx, paid, apperrors.ErrCapacityExceeded)
		if err != nil {
			return nil, err
		}
		if err := s.bookings.SettleUnfulfilled(ctx, booking.ID, refundRef); err != nil {
			return nil, err
		}
		return nil, nil
	}
	return result, nil
}

func bookingRequestFromMetadata(paid *payment.CompletedPayment) (model.CreateBookingRequest, error) {
	md := paid.Metadata
	eventID, err := strconv.Atoi(md[metaEventID])
	if err != nil {
		return model.CreateBookingRequest{}, apperrors.NewValidationError(metaEventID, "is missing or malformed")
	}
	quantity, err := strconv.Atoi(md[metaQuantity])
	if err != nil {
		return model.CreateBookingRequest{}, apperrors.NewValidationError(metaQuantity, "is missing or malformed")
	}
	var addOn int64
	if raw := md[metaAddOnAmount]; raw != "" {
		if addOn, err = strconv.ParseInt(raw, 10, 64); err != nil {
			return model.CreateBookingRequest{}, apperrors.NewValidationError(metaAddOnAmount, "is malformed")
		}
	}

	ref := paid.PaymentRef
	return model.CreateBookingRequest{
		EventID:            eventID,
		CustomerName:       md[metaCustomerName],
		CustomerEmail:      md[metaCustomerEmail],
		Quantity:           quantity,
		ExternalPaymentRef: &ref,
		AddOnAmount:        addOn,
	}, nil
}
