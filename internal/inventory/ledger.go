package inventory

import (
	"context"
	"errors"
	"time"

	"gigfinder-ticketing/config"
	"gigfinder-ticketing/internal/cache"
	"gigfinder-ticketing/internal/model"
	"gigfinder-ticketing/internal/repository"
	apperrors "gigfinder-ticketing/pkg/app_errors"
	"gigfinder-ticketing/pkg/logger"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

const availabilityTTL = 30 * time.Second

// Ledger owns the only writes to an event's sold counter. Reserve and Release must run inside a transaction.
type Ledger interface {
	// Lock 鎖定活動資料列直到交易結束
	Lock(ctx context.Context, tx pgx.Tx, eventID int) (*model.Event, error)
	Reserve(ctx context.Context, tx pgx.Tx, eventID int, quantity int) (*model.Event, error)
	Release(ctx context.Context, tx pgx.Tx, eventID int, quantity int) error
	Availability(ctx context.Context, eventID int) (*model.AvailabilityResponse, error)
	// Forget drops the cached availability after a committed change.
	Forget(ctx context.Context, eventID int)
}

type LedgerImpl struct {
	events repository.EventRepository
	cache  cache.AvailabilityCache
	cfg    config.BookingConfig
}

// NewLedger builds a ledger. availabilityCache may be nil.
func NewLedger(events repository.EventRepository, availabilityCache cache.AvailabilityCache, cfg config.BookingConfig) Ledger {
	return &LedgerImpl{
		events: events,
		cache:  availabilityCache,
		cfg:    cfg,
	}
}

func (l *LedgerImpl) Lock(ctx context.Context, tx pgx.Tx, eventID int) (*model.Event, error) {
	return l.events.FindByIDForUpdate(ctx, tx, eventID)
}

func (l *LedgerImpl) Reserve(ctx context.Context, tx pgx.Tx, eventID int, quantity int) (*model.Event, error) {
	event, err := l.events.FindByIDForUpdate(ctx, tx, eventID)
	if err != nil {
		return nil, err
	}

	remaining := event.Remaining(l.cfg.DefaultCapacity)
	if quantity > remaining {
		return nil, &apperrors.CapacityExceededError{Remaining: remaining}
	}

	capacity := event.EffectiveCapacity(l.cfg.DefaultCapacity)
	if err := l.events.IncrementSold(ctx, tx, eventID, quantity, capacity); err != nil {
		if errors.Is(err, apperrors.ErrCapacityExceeded) {
			// 行鎖下不應發生；代表有人繞過 ledger 直接改了 tickets_sold
			logger.WithComponent("inventory").Error("guarded increment rejected under row lock",
				zap.Int("event_id", eventID), zap.Int("quantity", quantity), zap.Int("remaining", remaining))
			return nil, &apperrors.CapacityExceededError{Remaining: 0}
		}
		return nil, err
	}

	event.TicketsSold += quantity
	return event, nil
}

func (l *LedgerImpl) Release(ctx context.Context, tx pgx.Tx, eventID int, quantity int) error {
	return l.events.DecrementSold(ctx, tx, eventID, quantity)
}

func (l *LedgerImpl) Availability(ctx context.Context, eventID int) (*model.AvailabilityResponse, error) {
	if l.cache != nil {
		cached, ok, err := l.cache.Get(ctx, eventID)
		if err != nil {
			logger.WithComponent("inventory").Warn("availability cache read failed", zap.Int("event_id", eventID), zap.Error(err))
		} else if ok {
			return cached, nil
		}
	}

	event, err := l.events.FindByID(ctx, eventID)
	if err != nil {
		return nil, err
	}

	availability := model.NewAvailability(event.ID, event.EffectiveCapacity(l.cfg.DefaultCapacity), event.TicketsSold, event.UnitPrice(), l.cfg.Currency)

	if l.cache != nil {
		if err := l.cache.Set(ctx, availability, availabilityTTL); err != nil {
			logger.WithComponent("inventory").Warn("availability cache write failed", zap.Int("event_id", eventID), zap.Error(err))
		}
	}
	return availability, nil
}

func (l *LedgerImpl) Forget(ctx context.Context, eventID int) {
	if l.cache == nil {
		return
	}
	if err := l.cache.Invalidate(ctx, eventID); err != nil {
		logger.WithComponent("inventory").Warn("availability cache invalidate failed", zap.Int("event_id", eventID), zap.Error(err))
	}
}
