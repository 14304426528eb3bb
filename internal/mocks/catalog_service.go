// Package mocks holds testify mocks of the domain collaborators.
package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/zatekoja/provider-browser/internal/domain/entities"
)

// MockCatalogService is a mock of providers.CatalogService
type MockCatalogService struct {
	mock.Mock
}

// NewMockCatalogService creates a mock that asserts its expectations on cleanup
func NewMockCatalogService(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockCatalogService {
	m := &MockCatalogService{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *MockCatalogService) Search(ctx context.Context, descriptor entities.QueryDescriptor) (*entities.ResultPage, error) {
	args := m.Called(ctx, descriptor)
	page, _ := args.Get(0).(*entities.ResultPage)
	return page, args.Error(1)
}

func (m *MockCatalogService) GetFavorites(ctx context.Context, sessionToken string) ([]string, error) {
	args := m.Called(ctx, sessionToken)
	ids, _ := args.Get(0).([]string)
	return ids, args.Error(1)
}

func (m *MockCatalogService) ToggleFavorite(ctx context.Context, sessionToken, providerID string) (*entities.ToggleResult, error) {
	args := m.Called(ctx, sessionToken, providerID)
	result, _ := args.Get(0).(*entities.ToggleResult)
	return result, args.Error(1)
}

func (m *MockCatalogService) GetProvider(ctx context.Context, providerID string) (*entities.ProviderDetail, error) {
	args := m.Called(ctx, providerID)
	detail, _ := args.Get(0).(*entities.ProviderDetail)
	return detail, args.Error(1)
}
