package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gigfinder-ticketing/config"
	"gigfinder-ticketing/internal/database"
	"gigfinder-ticketing/internal/inventory"
	"gigfinder-ticketing/internal/model"
	"gigfinder-ticketing/internal/payment"
	"gigfinder-ticketing/internal/queue"
	"gigfinder-ticketing/internal/repository"
	apperrors "gigfinder-ticketing/pkg/app_errors"
	"gigfinder-ticketing/pkg/logger"

	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type RefundService interface {
	// Refund 全額退款，不支援部分退款
	Refund(ctx context.Context, bookingID int, identity *model.Identity) (*model.RefundResult, error)
}

type RefundServiceImpl struct {
	tx        database.Transactor
	events    repository.EventRepository
	bookings  repository.BookingRepository
	ledger    inventory.Ledger
	processor payment.Processor
	queue     queue.NotificationQueue
	cfg       config.BookingConfig
	now       func() time.Time
}

func NewRefundService(
	tx database.Transactor,
	events repository.EventRepository,
	bookings repository.BookingRepository,
	ledger inventory.Ledger,
	processor payment.Processor,
	notificationQueue queue.NotificationQueue,
	cfg config.BookingConfig,
) RefundService {
	return &RefundServiceImpl{
		tx:        tx,
		events:    events,
		bookings:  bookings,
		ledger:    ledger,
		processor: processor,
		queue:     notificationQueue,
		cfg:       cfg,
		now:       time.Now,
	}
}

func refundIdempotencyKey(bookingID int) string {
	return fmt.Sprintf("refund-booking-%d", bookingID)
}

// Refund moves money first and local state second, so a crash in between leaves
// a paid-back booking still marked confirmed rather than the reverse.
func (s *RefundServiceImpl) Refund(ctx context.Context, bookingID int, identity *model.Identity) (result *model.RefundResult, err error) {
	ctx, span := tracer.Start(ctx, "RefundService.Refund", trace.WithAttributes(attribute.Int("booking_id", bookingID)))
	defer func() { endSpan(span, err) }()

	booking, err := s.bookings.FindByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	event, err := s.events.FindByID(ctx, booking.EventID)
	if err != nil {
		return nil, err
	}
	if !identity.CanManage(event) {
		return nil, apperrors.ErrForbidden
	}
	if booking.IsRefunded() {
		return nil, apperrors.ErrAlreadyRefunded
	}
	if !booking.IsPaid() {
		return nil, apperrors.ErrNothingToRefund
	}

	log := logger.WithComponent("refund").With(zap.Int("booking_id", booking.ID), zap.Int("event_id", booking.EventID))

	// 1. 先退錢；失敗就什麼都不改，讓呼叫端重試
	refundRef, err := s.processor.Refund(ctx, *booking.ExternalPaymentRef, refundIdempotencyKey(booking.ID))
	if err != nil {
		log.Warn("processor refund failed, booking unchanged", zap.Error(err))
		return nil, fmt.Errorf("refund booking %d: %w", booking.ID, err)
	}

	// 2. 訂單狀態與庫存在同一個交易內回復
	refundedAt := s.now().UTC()
	var refunded *model.Booking
	err = s.tx.WithinTx(ctx, func(tx pgx.Tx) error {
		locked, err := s.bookings.FindByIDForUpdate(ctx, tx, booking.ID)
		if err != nil {
			return err
		}
		if locked.IsRefunded() {
			return apperrors.ErrAlreadyRefunded
		}
		if !locked.Status.CanTransitionTo(model.BookingStatusRefunded) {
			return fmt.Errorf("booking %d in status %s cannot be refunded", locked.ID, locked.Status)
		}
		if err := s.bookings.MarkRefunded(ctx, tx, locked.ID, refundRef, refundedAt); err != nil {
			return err
		}
		if err := s.ledger.Release(ctx, tx, locked.EventID, locked.Quantity); err != nil {
			return err
		}
		locked.Status = model.BookingStatusRefunded
		locked.RefundRef = &refundRef
		locked.RefundedAt = &refundedAt
		refunded = locked
		return nil
	})
	if err != nil {
		if !errors.Is(err, apperrors.ErrAlreadyRefunded) {
			log.Error("money refunded but booking not updated, needs operator attention",
				zap.String("refund_ref", refundRef), zap.Error(err))
		}
		return nil, err
	}

	s.ledger.Forget(ctx, refunded.EventID)
	publishNotification(ctx, s.queue, model.NotificationBookingRefunded, refunded.ID)
	log.Info("booking refunded", zap.Int64("amount", refunded.PricePaid), zap.Int("quantity", refunded.Quantity))

	return &model.RefundResult{
		BookingID:  refunded.ID,
		Status:     string(refunded.Status),
		Amount:     refunded.PricePaid,
		Currency:   s.cfg.Currency,
		Quantity:   refunded.Quantity,
		RefundedAt: refunded.RefundedAt,
	}, nil
}
