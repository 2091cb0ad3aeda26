package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"gigfinder-ticketing/internal/credential"
	"gigfinder-ticketing/internal/model"
	"gigfinder-ticketing/internal/notification"
	"gigfinder-ticketing/internal/queue"
	repoMocks "gigfinder-ticketing/internal/repository/mocks"
	apperrors "gigfinder-ticketing/pkg/app_errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type senderMock struct {
	mock.Mock
}

func (m *senderMock) Send(ctx context.Context, msg notification.Message) error {
	return m.Called(ctx, msg).Error(0)
}

func newTestWorker(bookings *repoMocks.BookingRepositoryMock, events *repoMocks.EventRepositoryMock, sender notification.Sender, q queue.NotificationQueue) *NotificationWorkerImpl {
	composer := notification.NewComposer(credential.NewIssuer(credential.DefaultNamespace), "gbp")
	return NewNotificationWorker(q, bookings, events, composer, sender, 2).(*NotificationWorkerImpl)
}

func confirmedBooking() *model.Booking {
	token := "GF-TICKET:42-7"
	return &model.Booking{ID: 42, EventID: 7, CustomerName: "Ada", CustomerEmail: "ada@example.com",
		Quantity: 2, Status: model.BookingStatusConfirmed, PricePaid: 2500, Credential: &token}
}

func TestNotificationWorker_Process(t *testing.T) {
	ctx := context.Background()
	event := &model.Event{ID: 7, Name: "Basement Show"}

	t.Run("ConfirmationSent", func(t *testing.T) {
		bookings, events, sender := repoMocks.NewBookingRepositoryMock(), repoMocks.NewEventRepositoryMock(), &senderMock{}
		w := newTestWorker(bookings, events, sender, nil)

		bookings.On("FindByID", ctx, 42).Return(confirmedBooking(), nil).Once()
		events.On("FindByID", ctx, 7).Return(event, nil).Once()
		sender.On("Send", mock.Anything, mock.MatchedBy(func(msg notification.Message) bool {
			return msg.To == "ada@example.com" && len(msg.Attachments) == 1 && msg.Attachments[0].Inline
		})).Return(nil).Once()

		err := w.Process(ctx, &model.NotificationJob{Kind: model.NotificationBookingConfirmed, BookingID: 42})

		require.NoError(t, err)
		sender.AssertExpectations(t)
	})

	t.Run("RefundSent", func(t *testing.T) {
		bookings, events, sender := repoMocks.NewBookingRepositoryMock(), repoMocks.NewEventRepositoryMock(), &senderMock{}
		w := newTestWorker(bookings, events, sender, nil)

		refunded := confirmedBooking()
		refunded.Status = model.BookingStatusRefunded
		bookings.On("FindByID", ctx, 42).Return(refunded, nil).Once()
		events.On("FindByID", ctx, 7).Return(event, nil).Once()
		sender.On("Send", mock.Anything, mock.MatchedBy(func(msg notification.Message) bool {
			return msg.Subject == "Refund for Basement Show"
		})).Return(nil).Once()

		require.NoError(t, w.Process(ctx, &model.NotificationJob{Kind: model.NotificationBookingRefunded, BookingID: 42}))
		sender.AssertExpectations(t)
	})

	t.Run("ConfirmationSkippedAfterRefund", func(t *testing.T) {
		bookings, events, sender := repoMocks.NewBookingRepositoryMock(), repoMocks.NewEventRepositoryMock(), &senderMock{}
		w := newTestWorker(bookings, events, sender, nil)

		refunded := confirmedBooking()
		refunded.Status = model.BookingStatusRefunded
		bookings.On("FindByID", ctx, 42).Return(refunded, nil).Once()
		events.On("FindByID", ctx, 7).Return(event, nil).Once()

		require.NoError(t, w.Process(ctx, &model.NotificationJob{Kind: model.NotificationBookingConfirmed, BookingID: 42}))
		sender.AssertNotCalled(t, "Send", mock.Anything, mock.Anything)
	})

	t.Run("MissingBookingIsPermanent", func(t *testing.T) {
		bookings, events, sender := repoMocks.NewBookingRepositoryMock(), repoMocks.NewEventRepositoryMock(), &senderMock{}
		w := newTestWorker(bookings, events, sender, nil)

		bookings.On("FindByID", ctx, 99).Return(nil, apperrors.ErrBookingNotFound).Once()

		err := w.Process(ctx, &model.NotificationJob{Kind: model.NotificationBookingConfirmed, BookingID: 99})
		assert.ErrorIs(t, err, errPermanent)
	})

	t.Run("SendFailureIsRetryable", func(t *testing.T) {
		bookings, events, sender := repoMocks.NewBookingRepositoryMock(), repoMocks.NewEventRepositoryMock(), &senderMock{}
		w := newTestWorker(bookings, events, sender, nil)

		bookings.On("FindByID", ctx, 42).Return(confirmedBooking(), nil).Once()
		events.On("FindByID", ctx, 7).Return(event, nil).Once()
		sender.On("Send", mock.Anything, mock.Anything).Return(errors.New("smtp: 421 try later")).Once()

		err := w.Process(ctx, &model.NotificationJob{Kind: model.NotificationBookingConfirmed, BookingID: 42})
		require.Error(t, err)
		assert.NotErrorIs(t, err, errPermanent)
	})
}

func TestNotificationWorker_Run(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	q := queue.NewMemoryNotificationQueue(10)
	bookings, events := repoMocks.NewBookingRepositoryMock(), repoMocks.NewEventRepositoryMock()
	sent := make(chan notification.Message, 1)
	sender := &senderMock{}
	sender.On("Send", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		sent <- args.Get(1).(notification.Message)
	}).Return(nil)

	bookings.On("FindByID", mock.Anything, 42).Return(confirmedBooking(), nil)
	events.On("FindByID", mock.Anything, 7).Return(&model.Event{ID: 7, Name: "Basement Show"}, nil)

	w := newTestWorker(bookings, events, sender, q)
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	require.NoError(t, q.PublishNotification(ctx, &model.NotificationJob{Kind: model.NotificationBookingConfirmed, BookingID: 42}))

	select {
	case msg := <-sent:
		assert.Equal(t, "ada@example.com", msg.To)
	case <-ctx.Done():
		t.Fatal("worker did not send the notification in time")
	}

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("worker did not stop after cancel")
	}
}
