package repository

import (
	"context"
	"fmt"

	"gigfinder-ticketing/internal/model"
	apperrors "gigfinder-ticketing/pkg/app_errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type EventRepository interface {
	Create(ctx context.Context, event *model.Event) (*model.Event, error)
	FindByID(ctx context.Context, id int) (*model.Event, error)

	// Transaction methods
	FindByIDForUpdate(ctx context.Context, tx pgx.Tx, id int) (*model.Event, error)
	IncrementSold(ctx context.Context, tx pgx.Tx, id int, quantity int, capacity int) error
	DecrementSold(ctx context.Context, tx pgx.Tx, id int, quantity int) error
}

type EventRepositoryImpl struct {
	pool *pgxpool.Pool
}

func NewEventRepository(pool *pgxpool.Pool) EventRepository {
	return &EventRepositoryImpl{
		pool: pool,
	}
}

const eventColumns = `id, name, owner_id, venue_ref, starts_at, capacity, tickets_sold, ticket_price, created_at, updated_at`

func scanEvent(row pgx.Row) (*model.Event, error) {
	var event model.Event
	err := row.Scan(
		&event.ID,
		&event.Name,
		&event.OwnerID,
		&event.VenueRef,
		&event.StartsAt,
		&event.Capacity,
		&event.TicketsSold,
		&event.TicketPrice,
		&event.CreatedAt,
		&event.UpdatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, apperrors.ErrEventNotFound
		}
		return nil, err
	}
	return &event, nil
}

// Create 只給測試與種子資料用；活動本身由目錄服務管理
func (r *EventRepositoryImpl) Create(ctx context.Context, event *model.Event) (*model.Event, error) {
	query := `
		INSERT INTO events (name, owner_id, venue_ref, starts_at, capacity, tickets_sold, ticket_price)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING ` + eventColumns

	created, err := scanEvent(r.pool.QueryRow(ctx, query,
		event.Name, event.OwnerID, event.VenueRef, event.StartsAt,
		event.Capacity, event.TicketsSold, event.TicketPrice,
	))
	if err != nil {
		return nil, fmt.Errorf("failed to create event: %w", err)
	}
	return created, nil
}

func (r *EventRepositoryImpl) FindByID(ctx context.Context, id int) (*model.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events WHERE id = $1`
	return scanEvent(r.pool.QueryRow(ctx, query, id))
}

// FindByIDForUpdate locks the event row until tx ends. Every change to tickets_sold goes through this lock.
func (r *EventRepositoryImpl) FindByIDForUpdate(ctx context.Context, tx pgx.Tx, id int) (*model.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events WHERE id = $1 FOR UPDATE`
	return scanEvent(tx.QueryRow(ctx, query, id))
}

// IncrementSold 條件更新：超賣時不更新任何資料列
func (r *EventRepositoryImpl) IncrementSold(ctx context.Context, tx pgx.Tx, id int, quantity int, capacity int) error {
	query := `
		UPDATE events
		SET tickets_sold = tickets_sold + $2, updated_at = NOW()
		WHERE id = $1 AND tickets_sold + $2 <= $3
	`
	result, err := tx.Exec(ctx, query, id, quantity, capacity)
	if err != nil {
		return fmt.Errorf("failed to increment tickets sold: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperrors.ErrCapacityExceeded
	}
	return nil
}

// DecrementSold never takes tickets_sold below zero.
func (r *EventRepositoryImpl) DecrementSold(ctx context.Context, tx pgx.Tx, id int, quantity int) error {
	query := `
		UPDATE events
		SET tickets_sold = GREATEST(tickets_sold - $2, 0), updated_at = NOW()
		WHERE id = $1
	`
	result, err := tx.Exec(ctx, query, id, quantity)
	if err != nil {
		return fmt.Errorf("failed to decrement tickets sold: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperrors.ErrEventNotFound
	}
	return nil
}
