package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/zatekoja/provider-browser/internal/domain/entities"
)

// MockAuthContext is a mock of providers.AuthContext
type MockAuthContext struct {
	mock.Mock
}

func (m *MockAuthContext) IsAuthenticated() bool {
	return m.Called().Bool(0)
}

func (m *MockAuthContext) CurrentUserID() string {
	return m.Called().String(0)
}

func (m *MockAuthContext) SessionToken() string {
	return m.Called().String(0)
}

func (m *MockAuthContext) PromptLogin(action string) {
	m.Called(action)
}

// SignedIn returns an auth context for user with token, tolerating any number
// of calls.
func SignedIn(user, token string) *MockAuthContext {
	m := &MockAuthContext{}
	m.On("IsAuthenticated").Return(true).Maybe()
	m.On("CurrentUserID").Return(user).Maybe()
	m.On("SessionToken").Return(token).Maybe()
	return m
}

// SignedOut returns an auth context with no user. PromptLogin must be expected
// by the caller when the test triggers it.
func SignedOut() *MockAuthContext {
	m := &MockAuthContext{}
	m.On("IsAuthenticated").Return(false).Maybe()
	m.On("CurrentUserID").Return("").Maybe()
	m.On("SessionToken").Return("").Maybe()
	return m
}

// MockDetailPresenter is a mock of providers.DetailPresenter
type MockDetailPresenter struct {
	mock.Mock
}

func (m *MockDetailPresenter) Present(ctx context.Context, providerID string) {
	m.Called(ctx, providerID)
}

// StaticDirection is a fixed providers.DirectionProvider
type StaticDirection entities.TextDirection

func (d StaticDirection) TextDirection() entities.TextDirection {
	return entities.TextDirection(d)
}
