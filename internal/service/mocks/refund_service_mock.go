package mocks

import (
	"context"

	"gigfinder-ticketing/internal/model"

	"github.com/stretchr/testify/mock"
)

type RefundServiceMock struct {
	mock.Mock
}

func NewRefundServiceMock() *RefundServiceMock {
	return &RefundServiceMock{}
}

func (m *RefundServiceMock) Refund(ctx context.Context, bookingID int, identity *model.Identity) (*model.RefundResult, error) {
	args := m.Called(ctx, bookingID, identity)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.RefundResult), args.Error(1)
}
