package service

import (
	"context"
	"errors"
	"time"

	"gigfinder-ticketing/internal/credential"
	"gigfinder-ticketing/internal/database"
	"gigfinder-ticketing/internal/model"
	"gigfinder-ticketing/internal/repository"
	apperrors "gigfinder-ticketing/pkg/app_errors"
	"gigfinder-ticketing/pkg/logger"

	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

type RedemptionService interface {
	// Validate 回傳的 ScanResult 在 accepted/duplicate/invalid 三種情況都有值
	Validate(ctx context.Context, req model.ScanRequest) (*model.ScanResult, error)
}

type RedemptionServiceImpl struct {
	tx       database.Transactor
	bookings repository.BookingRepository
	issuer   *credential.Issuer
	now      func() time.Time
}

func NewRedemptionService(tx database.Transactor, bookings repository.BookingRepository, issuer *credential.Issuer) RedemptionService {
	return &RedemptionServiceImpl{
		tx:       tx,
		bookings: bookings,
		issuer:   issuer,
		now:      time.Now,
	}
}

func (s *RedemptionServiceImpl) Validate(ctx context.Context, req model.ScanRequest) (result *model.ScanResult, err error) {
	ctx, span := tracer.Start(ctx, "RedemptionService.Validate")
	defer func() { endSpan(span, err) }()

	bookingID, eventID, err := s.issuer.Parse(req.Token)
	if err != nil {
		return invalidScan(err), err
	}
	span.SetAttributes(attribute.Int("booking_id", bookingID), attribute.Int("event_id", eventID))

	var booking *model.Booking
	err = s.tx.WithinTx(ctx, func(tx pgx.Tx) error {
		var err error
		booking, err = s.bookings.FindByIDForUpdate(ctx, tx, bookingID)
		if err != nil {
			if errors.Is(err, apperrors.ErrBookingNotFound) {
				return apperrors.NewInvalidCredential("unknown ticket")
			}
			return err
		}

		if booking.EventID != eventID {
			// 格式正確但訂單與活動對不上：可能是偽造的票
			logger.WithComponent("redemption").Error("credential does not match booking",
				zap.Int("booking_id", bookingID),
				zap.Int("token_event_id", eventID),
				zap.Int("booking_event_id", booking.EventID),
			)
			return apperrors.NewInvalidCredential("ticket does not match event")
		}
		if req.EventID != nil && *req.EventID != booking.EventID {
			return apperrors.NewInvalidCredential("ticket is for a different event")
		}
		if booking.IsRefunded() {
			return apperrors.NewInvalidCredential("ticket was refunded")
		}
		if booking.IsRedeemed() {
			return &apperrors.DuplicateScanError{RedeemedAt: *booking.RedeemedAt}
		}

		now := s.now().UTC()
		if err := s.bookings.MarkRedeemed(ctx, tx, booking.ID, now); err != nil {
			return err
		}
		booking.RedeemedAt = &now
		return nil
	})

	var dup *apperrors.DuplicateScanError
	switch {
	case err == nil:
		logger.WithComponent("redemption").Info("ticket accepted", zap.Int("booking_id", booking.ID), zap.Int("event_id", booking.EventID))
		return &model.ScanResult{
			Outcome:      model.ScanAccepted,
			BookingID:    booking.ID,
			CustomerName: booking.CustomerName,
			Quantity:     booking.Quantity,
			RedeemedAt:   booking.RedeemedAt,
		}, nil
	case errors.As(err, &dup):
		logger.WithComponent("redemption").Warn("duplicate scan", zap.Int("booking_id", bookingID), zap.Time("redeemed_at", dup.RedeemedAt))
		redeemedAt := dup.RedeemedAt
		return &model.ScanResult{
			Outcome:      model.ScanDuplicate,
			BookingID:    booking.ID,
			CustomerName: booking.CustomerName,
			Quantity:     booking.Quantity,
			RedeemedAt:   &redeemedAt,
			Reason:       "already scanned",
		}, err
	case errors.Is(err, apperrors.ErrInvalidCredential):
		return invalidScan(err), err
	}
	return nil, err
}

func invalidScan(err error) *model.ScanResult {
	reason := "invalid ticket"
	var invalid *apperrors.InvalidCredentialError
	if errors.As(err, &invalid) {
		reason = invalid.Reason
	}
	return &model.ScanResult{Outcome: model.ScanInvalid, Reason: reason}
}
