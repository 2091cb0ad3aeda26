package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"gigfinder-ticketing/config"
	"gigfinder-ticketing/internal/credential"
	"gigfinder-ticketing/internal/database"
	"gigfinder-ticketing/internal/inventory"
	"gigfinder-ticketing/internal/model"
	"gigfinder-ticketing/internal/queue"
	"gigfinder-ticketing/internal/repository"
	apperrors "gigfinder-ticketing/pkg/app_errors"
	"gigfinder-ticketing/pkg/logger"

	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type BookingService interface {
	// 所有訂單都經過這裡建立
	CreateBooking(ctx context.Context, req model.CreateBookingRequest) (*model.BookingResult, error)
	// 免費活動或主辦方的 guest list
	BookDirect(ctx context.Context, eventID int, req model.DirectBookingRequest, identity *model.Identity) (*model.BookingResult, error)
	GetBooking(ctx context.Context, id int, access model.BookingAccess) (*model.Booking, error)
	ListEventBookings(ctx context.Context, eventID int, identity *model.Identity) ([]*model.Booking, error)
	TicketImage(ctx context.Context, id int, access model.BookingAccess) ([]byte, error)
	Availability(ctx context.Context, eventID int) (*model.AvailabilityResponse, error)
	// SettleUnfulfilled attaches the processor refund to a booking stored by RecordUnfulfilled.
	SettleUnfulfilled(ctx context.Context, bookingID int, refundRef string) error
}

type BookingServiceImpl struct {
	tx       database.Transactor
	events   repository.EventRepository
	bookings repository.BookingRepository
	ledger   inventory.Ledger
	issuer   *credential.Issuer
	queue    queue.NotificationQueue
	cfg      config.BookingConfig
}

func NewBookingService(
	tx database.Transactor,
	events repository.EventRepository,
	bookings repository.BookingRepository,
	ledger inventory.Ledger,
	issuer *credential.Issuer,
	notificationQueue queue.NotificationQueue,
	cfg config.BookingConfig,
) BookingService {
	return &BookingServiceImpl{
		tx:       tx,
		events:   events,
		bookings: bookings,
		ledger:   ledger,
		issuer:   issuer,
		queue:    notificationQueue,
		cfg:      cfg,
	}
}

func (s *BookingServiceImpl) CreateBooking(ctx context.Context, req model.CreateBookingRequest) (result *model.BookingResult, err error) {
	ctx, span := tracer.Start(ctx, "BookingService.CreateBooking", trace.WithAttributes(
		attribute.Int("event_id", req.EventID),
		attribute.Bool("paid", req.ExternalPaymentRef != nil),
	))
	defer func() { endSpan(span, err) }()

	if err := validateCustomer(req.EventID, req.CustomerName, req.CustomerEmail); err != nil {
		return nil, err
	}
	if req.AddOnAmount < 0 {
		return nil, apperrors.NewValidationError("add_on_amount", "must not be negative")
	}
	if req.ExternalPaymentRef != nil && *req.ExternalPaymentRef == "" {
		req.ExternalPaymentRef = nil
	}
	quantity := clampQuantity(req.Quantity, s.cfg.MaxQuantity)

	err = s.tx.WithinTx(ctx, func(tx pgx.Tx) error {
		// 1. 先鎖活動，同一場活動的訂單在這裡排隊
		event, err := s.ledger.Lock(ctx, tx, req.EventID)
		if err != nil {
			return err
		}

		// 2. 同一筆付款只會有一張訂單
		if req.ExternalPaymentRef != nil {
			existing, err := s.bookings.FindByPaymentRef(ctx, tx, *req.ExternalPaymentRef)
			if err == nil {
				result = &model.BookingResult{Booking: existing, Created: false}
				return nil
			}
			if !errors.Is(err, apperrors.ErrBookingNotFound) {
				return err
			}
		}

		pricePaid := event.UnitPrice()*int64(quantity) + req.AddOnAmount
		if req.Complimentary {
			pricePaid = 0
		}

		// 3. 扣庫存
		if _, err := s.ledger.Reserve(ctx, tx, event.ID, quantity); err != nil {
			if !errors.Is(err, apperrors.ErrCapacityExceeded) || !req.RecordUnfulfilled || req.ExternalPaymentRef == nil {
				return err
			}
			// 已付款但賣完：記一筆已退款訂單佔住這個付款編號，不動庫存
			refundedAt := time.Now().UTC()
			booking, err := s.bookings.Create(ctx, tx, &model.Booking{
				EventID:            event.ID,
				CustomerName:       strings.TrimSpace(req.CustomerName),
				CustomerEmail:      strings.TrimSpace(req.CustomerEmail),
				Quantity:           quantity,
				Status:             model.BookingStatusRefunded,
				ExternalPaymentRef: req.ExternalPaymentRef,
				PricePaid:          pricePaid,
				RefundedAt:         &refundedAt,
			})
			if err != nil {
				return err
			}
			result = &model.BookingResult{Booking: booking, Created: false}
			return nil
		}

		// 4. 寫入訂單
		booking, err := s.bookings.Create(ctx, tx, &model.Booking{
			EventID:            event.ID,
			CustomerName:       strings.TrimSpace(req.CustomerName),
			CustomerEmail:      strings.TrimSpace(req.CustomerEmail),
			Quantity:           quantity,
			Status:             model.BookingStatusConfirmed,
			ExternalPaymentRef: req.ExternalPaymentRef,
			PricePaid:          pricePaid,
		})
		if err != nil {
			return err
		}

		// 5. 憑證需要訂單 ID，同一個交易內補上
		token := s.issuer.Issue(booking.ID, event.ID)
		if err := s.bookings.SetCredential(ctx, tx, booking.ID, token); err != nil {
			return err
		}
		booking.Credential = &token

		result = &model.BookingResult{Booking: booking, Created: true}
		return nil
	})

	if errors.Is(err, apperrors.ErrDuplicatePaymentRef) && req.ExternalPaymentRef != nil {
		// 並發重送時由唯一索引擋下，回傳已存在的那張
		return s.findByPaymentRef(ctx, *req.ExternalPaymentRef)
	}
	if err != nil {
		return nil, err
	}

	if result.Created {
		s.ledger.Forget(ctx, result.Booking.EventID)
		publishNotification(ctx, s.queue, model.NotificationBookingConfirmed, result.Booking.ID)
		logger.WithComponent("booking").Info("booking created",
			zap.Int("booking_id", result.Booking.ID),
			zap.Int("event_id", result.Booking.EventID),
			zap.Int("quantity", result.Booking.Quantity),
			zap.Int64("price_paid", result.Booking.PricePaid),
		)
	} else if result.Booking.IsRefunded() && result.Booking.RefundRef == nil {
		logger.WithComponent("booking").Warn("paid request no longer fits, stored as refunded",
			zap.Int("booking_id", result.Booking.ID),
			zap.Int("event_id", result.Booking.EventID),
			zap.Int("quantity", result.Booking.Quantity))
	} else {
		logger.WithComponent("booking").Info("payment already booked, returning existing booking",
			zap.Int("booking_id", result.Booking.ID))
	}
	return result, nil
}

func (s *BookingServiceImpl) SettleUnfulfilled(ctx context.Context, bookingID int, refundRef string) error {
	err := s.tx.WithinTx(ctx, func(tx pgx.Tx) error {
		return s.bookings.SetRefundRef(ctx, tx, bookingID, refundRef)
	})
	if errors.Is(err, apperrors.ErrAlreadyRefunded) {
		// 另一次投遞已經結算過
		return nil
	}
	if err != nil {
		return err
	}
	publishNotification(ctx, s.queue, model.NotificationBookingRefunded, bookingID)
	return nil
}

func (s *BookingServiceImpl) findByPaymentRef(ctx context.Context, ref string) (*model.BookingResult, error) {
	var existing *model.Booking
	err := s.tx.WithinTx(ctx, func(tx pgx.Tx) error {
		var err error
		existing, err = s.bookings.FindByPaymentRef(ctx, tx, ref)
		return err
	})
	if err != nil {
		return nil, err
	}
	logger.WithComponent("booking").Info("concurrent delivery lost the insert race, returning existing booking",
		zap.Int("booking_id", existing.ID))
	return &model.BookingResult{Booking: existing, Created: false}, nil
}

func (s *BookingServiceImpl) BookDirect(ctx context.Context, eventID int, req model.DirectBookingRequest, identity *model.Identity) (*model.BookingResult, error) {
	if err := validateCustomer(eventID, req.CustomerName, req.CustomerEmail); err != nil {
		return nil, err
	}

	event, err := s.events.FindByID(ctx, eventID)
	if err != nil {
		return nil, err
	}

	complimentary := false
	if !event.IsFree() {
		if !identity.CanManage(event) {
			return nil, apperrors.ErrPaymentRequired
		}
		complimentary = true
	}

	return s.CreateBooking(ctx, model.CreateBookingRequest{
		EventID:       eventID,
		CustomerName:  req.CustomerName,
		CustomerEmail: req.CustomerEmail,
		Quantity:      req.Quantity,
		Complimentary: complimentary,
	})
}

// GetBooking answers not found when the caller may not see the booking.
func (s *BookingServiceImpl) GetBooking(ctx context.Context, id int, access model.BookingAccess) (*model.Booking, error) {
	booking, err := s.bookings.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if access.Email != "" && strings.EqualFold(strings.TrimSpace(access.Email), booking.CustomerEmail) {
		return booking, nil
	}
	if access.Identity != nil {
		event, err := s.events.FindByID(ctx, booking.EventID)
		if err != nil {
			return nil, err
		}
		if access.Identity.CanManage(event) {
			return booking, nil
		}
	}
	return nil, apperrors.ErrBookingNotFound
}

func (s *BookingServiceImpl) ListEventBookings(ctx context.Context, eventID int, identity *model.Identity) ([]*model.Booking, error) {
	event, err := s.events.FindByID(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if !identity.CanManage(event) {
		return nil, apperrors.ErrForbidden
	}
	return s.bookings.ListByEventID(ctx, eventID)
}

func (s *BookingServiceImpl) TicketImage(ctx context.Context, id int, access model.BookingAccess) ([]byte, error) {
	booking, err := s.GetBooking(ctx, id, access)
	if err != nil {
		return nil, err
	}
	if booking.IsRefunded() {
		return nil, apperrors.ErrAlreadyRefunded
	}
	if booking.Credential == nil {
		return nil, apperrors.ErrBookingNotFound
	}
	return s.issuer.Render(*booking.Credential)
}

func (s *BookingServiceImpl) Availability(ctx context.Context, eventID int) (*model.AvailabilityResponse, error) {
	return s.ledger.Availability(ctx, eventID)
}
