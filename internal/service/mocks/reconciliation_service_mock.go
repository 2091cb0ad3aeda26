package mocks

import (
	"context"

	"gigfinder-ticketing/internal/model"

	"github.com/stretchr/testify/mock"
)

type ReconciliationServiceMock struct {
	mock.Mock
}

func NewReconciliationServiceMock() *ReconciliationServiceMock {
	return &ReconciliationServiceMock{}
}

func (m *ReconciliationServiceMock) StartCheckout(ctx context.Context, req model.CheckoutRequest) (*model.CheckoutResult, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.CheckoutResult), args.Error(1)
}

func (m *ReconciliationServiceMock) HandleWebhook(ctx context.Context, payload []byte, signature string) (*model.BookingResult, error) {
	args := m.Called(ctx, payload, signature)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.BookingResult), args.Error(1)
}
