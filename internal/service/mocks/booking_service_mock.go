package mocks

import (
	"context"

	"gigfinder-ticketing/internal/model"

	"github.com/stretchr/testify/mock"
)

type BookingServiceMock struct {
	mock.Mock
}

func NewBookingServiceMock() *BookingServiceMock {
	return &BookingServiceMock{}
}

func (m *BookingServiceMock) CreateBooking(ctx context.Context, req model.CreateBookingRequest) (*model.BookingResult, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.BookingResult), args.Error(1)
}

func (m *BookingServiceMock) BookDirect(ctx context.Context, eventID int, req model.DirectBookingRequest, identity *model.Identity) (*model.BookingResult, error) {
	args := m.Called(ctx, eventID, req, identity)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.BookingResult), args.Error(1)
}

func (m *BookingServiceMock) GetBooking(ctx context.Context, id int, access model.BookingAccess) (*model.Booking, error) {
	args := m.Called(ctx, id, access)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Booking), args.Error(1)
}

func (m *BookingServiceMock) ListEventBookings(ctx context.Context, eventID int, identity *model.Identity) ([]*model.Booking, error) {
	args := m.Called(ctx, eventID, identity)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.Booking), args.Error(1)
}

func (m *BookingServiceMock) TicketImage(ctx context.Context, id int, access model.BookingAccess) ([]byte, error) {
	args := m.Called(ctx, id, access)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

func (m *BookingServiceMock) Availability(ctx context.Context, eventID int) (*model.AvailabilityResponse, error) {
	args := m.Called(ctx, eventID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.AvailabilityResponse), args.Error(1)
}

func (m *BookingServiceMock) SettleUnfulfilled(ctx context.Context, bookingID int, refundRef string) error {
	args := m.Called(ctx, bookingID, refundRef)
	return args.Error(0)
}
