package mocks

import (
	"context"

	"github.com/cleitonmarx/symbiont-llm-engine/internal/domain"
	"github.com/stretchr/testify/mock"
)

// MockLLMClient is a mock implementation of the LLMClient interface.
type MockLLMClient struct {
	mock.Mock
}

// NewMockLLMClient creates a new MockLLMClient bound to the test lifecycle.
func NewMockLLMClient(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockLLMClient {
	m := &MockLLMClient{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

// Chat implements LLMClient.
func (m *MockLLMClient) Chat(ctx context.Context, req domain.ChatRequest) (domain.ChatResponse, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(domain.ChatResponse), args.Error(1)
}

// ChatWithTools implements LLMClient.
func (m *MockLLMClient) ChatWithTools(ctx context.Context, req domain.ChatWithToolsRequest) (domain.ChatWithToolsResponse, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(domain.ChatWithToolsResponse), args.Error(1)
}

// Stream implements LLMClient.
func (m *MockLLMClient) Stream(ctx context.Context, req domain.ChatRequest) (<-chan domain.StreamChunk, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(<-chan domain.StreamChunk), args.Error(1)
}

// StreamWithTools implements LLMClient.
func (m *MockLLMClient) StreamWithTools(ctx context.Context, req domain.ChatWithToolsRequest) (<-chan domain.StreamChunk, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(<-chan domain.StreamChunk), args.Error(1)
}

// Info implements LLMClient.
func (m *MockLLMClient) Info() domain.ProviderInfo {
	args := m.Called()
	return args.Get(0).(domain.ProviderInfo)
}

// EXPECT returns an expecter for setting up call expectations.
func (m *MockLLMClient) EXPECT() *MockLLMClientExpecter {
	return &MockLLMClientExpecter{mock: &m.Mock}
}

// MockLLMClientExpecter records expectations on a MockLLMClient.
type MockLLMClientExpecter struct {
	mock *mock.Mock
}

func (e *MockLLMClientExpecter) Chat(ctx any, req any) *mock.Call {
	return e.mock.On("Chat", ctx, req)
}

func (e *MockLLMClientExpecter) ChatWithTools(ctx any, req any) *mock.Call {
	return e.mock.On("ChatWithTools", ctx, req)
}

func (e *MockLLMClientExpecter) Stream(ctx any, req any) *mock.Call {
	return e.mock.On("Stream", ctx, req)
}

func (e *MockLLMClientExpecter) StreamWithTools(ctx any, req any) *mock.Call {
	return e.mock.On("StreamWithTools", ctx, req)
}

func (e *MockLLMClientExpecter) Info() *mock.Call {
	return e.mock.On("Info")
}

var _ domain.LLMClient = (*MockLLMClient)(nil)
