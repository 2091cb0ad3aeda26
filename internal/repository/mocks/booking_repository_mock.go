package mocks

import (
	"context"
	"time"

	"gigfinder-ticketing/internal/model"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/mock"
)

type BookingRepositoryMock struct {
	mock.Mock
}

func NewBookingRepositoryMock() *BookingRepositoryMock {
	return &BookingRepositoryMock{}
}

func (m *BookingRepositoryMock) FindByID(ctx context.Context, id int) (*model.Booking, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Booking), args.Error(1)
}

func (m *BookingRepositoryMock) ListByEventID(ctx context.Context, eventID int) ([]*model.Booking, error) {
	args := m.Called(ctx, eventID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.Booking), args.Error(1)
}

func (m *BookingRepositoryMock) Create(ctx context.Context, tx pgx.Tx, booking *model.Booking) (*model.Booking, error) {
	args := m.Called(ctx, tx, booking)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Booking), args.Error(1)
}

func (m *BookingRepositoryMock) FindByIDForUpdate(ctx context.Context, tx pgx.Tx, id int) (*model.Booking, error) {
	args := m.Called(ctx, tx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Booking), args.Error(1)
}

func (m *BookingRepositoryMock) FindByPaymentRef(ctx context.Context, tx pgx.Tx, ref string) (*model.Booking, error) {
	args := m.Called(ctx, tx, ref)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Booking), args.Error(1)
}

func (m *BookingRepositoryMock) SetCredential(ctx context.Context, tx pgx.Tx, id int, credential string) error {
	args := m.Called(ctx, tx, id, credential)
	return args.Error(0)
}

func (m *BookingRepositoryMock) MarkRefunded(ctx context.Context, tx pgx.Tx, id int, refundRef string, at time.Time) error {
	args := m.Called(ctx, tx, id, refundRef, at)
	return args.Error(0)
}

func (m *BookingRepositoryMock) SetRefundRef(ctx context.Context, tx pgx.Tx, id int, refundRef string) error {
	args := m.Called(ctx, tx, id, refundRef)
	return args.Error(0)
}

func (m *BookingRepositoryMock) MarkRedeemed(ctx context.Context, tx pgx.Tx, id int, at time.Time) error {
	args := m.Called(ctx, tx, id, at)
	return args.Error(0)
}
