package mocks

import (
	"context"

	"gigfinder-ticketing/internal/model"

	"github.com/stretchr/testify/mock"
)

type RedemptionServiceMock struct {
	mock.Mock
}

func NewRedemptionServiceMock() *RedemptionServiceMock {
	return &RedemptionServiceMock{}
}

func (m *RedemptionServiceMock) Validate(ctx context.Context, req model.ScanRequest) (*model.ScanResult, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.ScanResult), args.Error(1)
}
