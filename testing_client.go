package wsession

import (
	"context"

	"github.com/stretchr/testify/mock"
)

// MockClient is a testify mock of Client for code that consumes sessions.
type MockClient struct {
	mock.Mock

	// TapConnect runs before Connect records its call.
	TapConnect func()
}

var _ Client = (*MockClient)(nil)

func (m *MockClient) Connect(ctx context.Context) error {
	if m.TapConnect != nil {
		m.TapConnect()
	}
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockClient) Disconnect() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockClient) Close() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockClient) Send(ctx context.Context, p Payload) error {
	args := m.Called(ctx, p)
	return args.Error(0)
}

func (m *MockClient) ListenStream(ctx context.Context) <-chan Event {
	args := m.Called(ctx)
	if c, ok := args.Get(0).(chan Event); ok {
		return c
	}
	return args.Get(0).(<-chan Event)
}
