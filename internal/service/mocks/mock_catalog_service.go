package mocks

import (
	"context"

	"examia/internal/auth"
	"examia/internal/model"
	"github.com/stretchr/testify/mock"
)

type MockCatalogService struct {
	mock.Mock
}

func (m *MockCatalogService) Query(ctx context.Context, f model.Filter) ([]model.Question, error) {
	args := m.Called(ctx, f)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Question), args.Error(1)
}

func (m *MockCatalogService) Insert(ctx context.Context, q model.Question, c auth.Capability) (string, error) {
	args := m.Called(ctx, q, c)
	return args.String(0), args.Error(1)
}

func (m *MockCatalogService) Delete(ctx context.Context, id string, c auth.Capability) error {
	args := m.Called(ctx, id, c)
	return args.Error(0)
}
