package service

import (
	"context"
	"strings"
	"time"

	"gigfinder-ticketing/internal/model"
	"gigfinder-ticketing/internal/queue"
	apperrors "gigfinder-ticketing/pkg/app_errors"
	"gigfinder-ticketing/pkg/logger"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const publishTimeout = 2 * time.Second

var tracer = otel.Tracer("gigfinder-ticketing/internal/service")

// endSpan records err on the span before ending it.
func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

// clampQuantity 超出範圍的數量直接修正，不回傳錯誤
func clampQuantity(quantity, max int) int {
	if quantity < 1 {
		return 1
	}
	if max > 0 && quantity > max {
		return max
	}
	return quantity
}

func validateCustomer(eventID int, name, email string) error {
	if eventID <= 0 {
		return apperrors.NewValidationError("event_id", "is required")
	}
	if strings.TrimSpace(name) == "" {
		return apperrors.NewValidationError("customer_name", "is required")
	}
	if strings.TrimSpace(email) == "" {
		return apperrors.NewValidationError("customer_email", "is required")
	}
	return nil
}

// publishNotification runs after commit. Its failure is logged and never reaches the caller.
func publishNotification(ctx context.Context, q queue.NotificationQueue, kind model.NotificationKind, bookingID int) {
	if q == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()

	if err := q.PublishNotification(ctx, &model.NotificationJob{Kind: kind, BookingID: bookingID}); err != nil {
		logger.WithComponent("notification").Error("failed to queue notification",
			zap.String("kind", string(kind)), zap.Int("booking_id", bookingID), zap.Error(err))
	}
}
