package mocks

import (
	"context"
	"time"

	"gigfinder-ticketing/internal/model"

	"github.com/stretchr/testify/mock"
)

type AvailabilityCacheMock struct {
	mock.Mock
}

func NewAvailabilityCacheMock() *AvailabilityCacheMock {
	return &AvailabilityCacheMock{}
}

func (m *AvailabilityCacheMock) Get(ctx context.Context, eventID int) (*model.AvailabilityResponse, bool, error) {
	args := m.Called(ctx, eventID)
	if args.Get(0) == nil {
		return nil, args.Bool(1), args.Error(2)
	}
	return args.Get(0).(*model.AvailabilityResponse), args.Bool(1), args.Error(2)
}

func (m *AvailabilityCacheMock) Set(ctx context.Context, availability *model.AvailabilityResponse, ttl time.Duration) error {
	args := m.Called(ctx, availability, ttl)
	return args.Error(0)
}

func (m *AvailabilityCacheMock) Invalidate(ctx context.Context, eventID int) error {
	args := m.Called(ctx, eventID)
	return args.Error(0)
}
