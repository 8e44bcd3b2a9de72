package sheets

import (
	"context"
	"sync"

	"github.com/Veraticus/accidentes/internal/model"
)

// MockWriter is a mock implementation of service.TablePublisher for testing.
type MockWriter struct {
	PublishFunc    func(ctx context.Context, tables []model.Table) error
	LastTables     []model.Table
	PublishCalls   []PublishCall
	PublishCallCnt int
	mu             sync.Mutex
}

// PublishCall represents a single call to Publish.
type PublishCall struct {
	Error  error
	Tables []model.Table
}

// NewMockWriter creates a new mock writer.
func NewMockWriter() *MockWriter {
	return &MockWriter{
		PublishCalls: make([]PublishCall, 0),
	}
}

// Publish implements the service.TablePublisher interface.
func (m *MockWriter) Publish(ctx context.Context, tables []model.Table) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.PublishCallCnt++
	m.LastTables = tables

	var err error
	if m.PublishFunc != nil {
		err = m.PublishFunc(ctx, tables)
	}

	m.PublishCalls = append(m.PublishCalls, PublishCall{
		Tables: tables,
		Error:  err,
	})

	return err
}

// Reset clears all recorded calls.
func (m *MockWriter) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.PublishCallCnt = 0
	m.LastTables = nil
	m.PublishCalls = make([]PublishCall, 0)
}
