package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gigfinder-ticketing/internal/model"
	"gigfinder-ticketing/internal/notification"
	"gigfinder-ticketing/internal/queue"
	"gigfinder-ticketing/internal/repository"
	apperrors "gigfinder-ticketing/pkg/app_errors"
	"gigfinder-ticketing/pkg/logger"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const sendTimeout = 30 * time.Second

// errPermanent marks jobs that will never succeed and should not be retried.
var errPermanent = errors.New("permanent notification failure")

type NotificationWorker interface {
	// Run 阻塞直到 ctx 結束
	Run(ctx context.Context) error
}

type NotificationWorkerImpl struct {
	queue       queue.NotificationQueue
	bookings    repository.BookingRepository
	events      repository.EventRepository
	composer    *notification.Composer
	sender      notification.Sender
	concurrency int
}

func NewNotificationWorker(
	q queue.NotificationQueue,
	bookings repository.BookingRepository,
	events repository.EventRepository,
	composer *notification.Composer,
	sender notification.Sender,
	concurrency int,
) NotificationWorker {
	if concurrency < 1 {
		concurrency = 1
	}
	return &NotificationWorkerImpl{
		queue:       q,
		bookings:    bookings,
		events:      events,
		composer:    composer,
		sender:      sender,
		concurrency: concurrency,
	}
}

func (w *NotificationWorkerImpl) Run(ctx context.Context) error {
	msgs, err := w.queue.SubscribeNotifications(ctx)
	if err != nil {
		return fmt.Errorf("subscribe notifications: %w", err)
	}

	g, ctx := errgroup.WithContext(ctx)
	for i := 0; i < w.concurrency; i++ {
		g.Go(func() error {
			for msg := range msgs {
				w.handle(ctx, msg)
			}
			return nil
		})
	}
	return g.Wait()
}

func (w *NotificationWorkerImpl) handle(ctx context.Context, msg queue.Delivery) {
	log := logger.WithComponent("worker").With(
		zap.String("kind", string(msg.Data.Kind)),
		zap.Int("booking_id", msg.Data.BookingID),
	)

	err := w.Process(ctx, msg.Data)
	switch {
	case err == nil:
		msg.Ack()
	case errors.Is(err, errPermanent):
		log.Error("notification dropped", zap.Error(err))
		msg.Nack(false)
	default:
		// 郵件服務暫時不可用，交給隊列重試
		log.Warn("notification failed, will retry", zap.Error(err))
		msg.Nack(true)
	}
}

// Process sends the email for one job, always from the booking's current state.
func (w *NotificationWorkerImpl) Process(ctx context.Context, job *model.NotificationJob) error {
	booking, err := w.bookings.FindByID(ctx, job.BookingID)
	if err != nil {
		if errors.Is(err, apperrors.ErrBookingNotFound) {
			return fmt.Errorf("%w: booking %d not found", errPermanent, job.BookingID)
		}
		return err
	}
	event, err := w.events.FindByID(ctx, booking.EventID)
	if err != nil {
		if errors.Is(err, apperrors.ErrEventNotFound) {
			return fmt.Errorf("%w: event %d not found", errPermanent, booking.EventID)
		}
		return err
	}

	var msg notification.Message
	switch job.Kind {
	case model.NotificationBookingConfirmed:
		if booking.IsRefunded() {
			logger.WithComponent("worker").Info("booking refunded before confirmation was sent, skipping",
				zap.Int("booking_id", booking.ID))
			return nil
		}
		msg, err = w.composer.Confirmation(booking, event)
	case model.NotificationBookingRefunded:
		msg, err = w.composer.Refund(booking, event)
	default:
		return fmt.Errorf("%w: unknown kind %q", errPermanent, job.Kind)
	}
	if err != nil {
		return fmt.Errorf("%w: %v", errPermanent, err)
	}

	sendCtx, cancel := context.WithTimeout(ctx, sendTimeout)
	defer cancel()
	if err := w.sender.Send(sendCtx, msg); err != nil {
		return err
	}

	logger.WithComponent("worker").Info("notification sent",
		zap.String("kind", string(job.Kind)), zap.Int("booking_id", booking.ID))
	return nil
}
