package mocks

import (
	"context"

	"github.com/cleitonmarx/symbiont-llm-engine/internal/domain"
	"github.com/stretchr/testify/mock"
)

// MockToolExecutor is a mock implementation of the ToolExecutor interface.
type MockToolExecutor struct {
	mock.Mock
}

// NewMockToolExecutor creates a new MockToolExecutor bound to the test lifecycle.
func NewMockToolExecutor(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockToolExecutor {
	m := &MockToolExecutor{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

// Execute implements ToolExecutor.
func (m *MockToolExecutor) Execute(ctx context.Context, call domain.ToolCall, execCtx domain.ToolExecutionContext) (domain.ToolExecutionResult, error) {
	args := m.Called(ctx, call, execCtx)
	if rf, ok := args.Get(0).(func(context.Context, domain.ToolCall, domain.ToolExecutionContext) (domain.ToolExecutionResult, error)); ok {
		return rf(ctx, call, execCtx)
	}
	return args.Get(0).(domain.ToolExecutionResult), args.Error(1)
}

// RequiresConfirmation implements ToolExecutor.
func (m *MockToolExecutor) RequiresConfirmation(toolName string) bool {
	args := m.Called(toolName)
	return args.Bool(0)
}

// EXPECT returns an expecter for setting up call expectations.
func (m *MockToolExecutor) EXPECT() *MockToolExecutorExpecter {
	return &MockToolExecutorExpecter{mock: &m.Mock}
}

// MockToolExecutorExpecter records expectations on a MockToolExecutor.
type MockToolExecutorExpecter struct {
	mock *mock.Mock
}

func (e *MockToolExecutorExpecter) Execute(ctx any, call any, execCtx any) *MockToolExecutor_Execute_Call {
	return &MockToolExecutor_Execute_Call{Call: e.mock.On("Execute", ctx, call, execCtx)}
}

// MockToolExecutor_Execute_Call wraps a *mock.Call for the Execute method.
type MockToolExecutor_Execute_Call struct {
	*mock.Call
}

// RunAndReturn sets a function to compute the return values of Execute.
func (c *MockToolExecutor_Execute_Call) RunAndReturn(run func(context.Context, domain.ToolCall, domain.ToolExecutionContext) (domain.ToolExecutionResult, error)) *MockToolExecutor_Execute_Call {
	c.Call.Return(run)
	return c
}

func (e *MockToolExecutorExpecter) RequiresConfirmation(toolName any) *mock.Call {
	return e.mock.On("RequiresConfirmation", toolName)
}

var _ domain.ToolExecutor = (*MockToolExecutor)(nil)
