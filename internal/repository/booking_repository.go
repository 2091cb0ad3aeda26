package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gigfinder-ticketing/internal/model"
	apperrors "gigfinder-ticketing/pkg/app_errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const uniqueViolation = "23505"

type BookingRepository interface {
	FindByID(ctx context.Context, id int) (*model.Booking, error)
	ListByEventID(ctx context.Context, eventID int) ([]*model.Booking, error)

	// Transaction methods
	Create(ctx context.Context, tx pgx.Tx, booking *model.Booking) (*model.Booking, error)
	FindByIDForUpdate(ctx context.Context, tx pgx.Tx, id int) (*model.Booking, error)
	FindByPaymentRef(ctx context.Context, tx pgx.Tx, ref string) (*model.Booking, error)
	SetCredential(ctx context.Context, tx pgx.Tx, id int, credential string) error
	MarkRefunded(ctx context.Context, tx pgx.Tx, id int, refundRef string, at time.Time) error
	SetRefundRef(ctx context.Context, tx pgx.Tx, id int, refundRef string) error
	MarkRedeemed(ctx context.Context, tx pgx.Tx, id int, at time.Time) error
}

type BookingRepositoryImpl struct {
	pool *pgxpool.Pool
}

func NewBookingRepository(pool *pgxpool.Pool) BookingRepository {
	return &BookingRepositoryImpl{
		pool: pool,
	}
}

const bookingColumns = `id, event_id, customer_name, customer_email, quantity, status,
	external_payment_ref, price_paid, credential, refund_ref, created_at, refunded_at, redeemed_at`

func scanBooking(row pgx.Row) (*model.Booking, error) {
	var booking model.Booking
	err := row.Scan(
		&booking.ID,
		&booking.EventID,
		&booking.CustomerName,
		&booking.CustomerEmail,
		&booking.Quantity,
		&booking.Status,
		&booking.ExternalPaymentRef,
		&booking.PricePaid,
		&booking.Credential,
		&booking.RefundRef,
		&booking.CreatedAt,
		&booking.RefundedAt,
		&booking.RedeemedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, apperrors.ErrBookingNotFound
		}
		return nil, err
	}
	return &booking, nil
}

func (r *BookingRepositoryImpl) Create(ctx context.Context, tx pgx.Tx, booking *model.Booking) (*model.Booking, error) {
	query := `
		INSERT INTO bookings (
			event_id, customer_name, customer_email, quantity, status,
			external_payment_ref, price_paid, refunded_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING ` + bookingColumns

	created, err := scanBooking(tx.QueryRow(ctx, query,
		booking.EventID, booking.CustomerName, booking.CustomerEmail, booking.Quantity,
		booking.Status, booking.ExternalPaymentRef, booking.PricePaid, booking.RefundedAt,
	))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return nil, apperrors.ErrDuplicatePaymentRef
		}
		return nil, fmt.Errorf("failed to create booking: %w", err)
	}
	return created, nil
}

func (r *BookingRepositoryImpl) FindByID(ctx context.Context, id int) (*model.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE id = $1`
	return scanBooking(r.pool.QueryRow(ctx, query, id))
}

func (r *BookingRepositoryImpl) FindByIDForUpdate(ctx context.Context, tx pgx.Tx, id int) (*model.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE id = $1 FOR UPDATE`
	return scanBooking(tx.QueryRow(ctx, query, id))
}

func (r *BookingRepositoryImpl) FindByPaymentRef(ctx context.Context, tx pgx.Tx, ref string) (*model.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE external_payment_ref = $1`
	return scanBooking(tx.QueryRow(ctx, query, ref))
}

func (r *BookingRepositoryImpl) ListByEventID(ctx context.Context, eventID int) ([]*model.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE event_id = $1 ORDER BY created_at ASC, id ASC`

	rows, err := r.pool.Query(ctx, query, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	bookings := make([]*model.Booking, 0)
	for rows.Next() {
		booking, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		bookings = append(bookings, booking)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}
	return bookings, nil
}

func (r *BookingRepositoryImpl) SetCredential(ctx context.Context, tx pgx.Tx, id int, credential string) error {
	query := `UPDATE bookings SET credential = $2 WHERE id = $1`
	return r.execOne(ctx, tx, query, id, credential)
}

// MarkRefunded 只會把 confirmed 的訂單轉成 refunded
func (r *BookingRepositoryImpl) MarkRefunded(ctx context.Context, tx pgx.Tx, id int, refundRef string, at time.Time) error {
	query := `
		UPDATE bookings
		SET status = $2, refund_ref = $3, refunded_at = $4
		WHERE id = $1 AND status = $5
	`
	result, err := tx.Exec(ctx, query, id, model.BookingStatusRefunded, refundRef, at, model.BookingStatusConfirmed)
	if err != nil {
		return fmt.Errorf("failed to mark booking refunded: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperrors.ErrAlreadyRefunded
	}
	return nil
}

// SetRefundRef records the processor refund of a booking that was stored already refunded.
// A second call reports ErrAlreadyRefunded.
func (r *BookingRepositoryImpl) SetRefundRef(ctx context.Context, tx pgx.Tx, id int, refundRef string) error {
	query := `UPDATE bookings SET refund_ref = $2 WHERE id = $1 AND status = $3 AND refund_ref IS NULL`
	result, err := tx.Exec(ctx, query, id, refundRef, model.BookingStatusRefunded)
	if err != nil {
		return fmt.Errorf("failed to set refund ref: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperrors.ErrAlreadyRefunded
	}
	return nil
}

// MarkRedeemed sets redeemed_at once; a second call reports a duplicate scan.
func (r *BookingRepositoryImpl) MarkRedeemed(ctx context.Context, tx pgx.Tx, id int, at time.Time) error {
	query := `UPDATE bookings SET redeemed_at = $2 WHERE id = $1 AND redeemed_at IS NULL`
	result, err := tx.Exec(ctx, query, id, at)
	if err != nil {
		return fmt.Errorf("failed to mark booking redeemed: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperrors.ErrDuplicateScan
	}
	return nil
}

func (r *BookingRepositoryImpl) execOne(ctx context.Context, tx pgx.Tx, query string, args ...any) error {
	result, err := tx.Exec(ctx, query, args...)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return apperrors.ErrBookingNotFound
	}
	return nil
}
