package mocks

import (
	"context"

	"examia/internal/auth"
	"examia/internal/model"
	"github.com/stretchr/testify/mock"
)

type MockAssetService struct {
	mock.Mock
}

func (m *MockAssetService) Upload(ctx context.Context, req model.UploadRequest, c auth.Capability) (*model.ImageAsset, error) {
	args := m.Called(ctx, req, c)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.ImageAsset), args.Error(1)
}
