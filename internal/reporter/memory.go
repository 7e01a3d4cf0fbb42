package reporter

import (
	"sync"

	"github.com/simaofelgueirasJM/flipper/internal/model"
)

// Memory keeps every record in memory, in arrival order.
type Memory struct {
	mu        sync.RWMutex
	requests  []model.RequestInfo
	responses []model.ResponseInfo
}

// NewMemory returns an empty in-memory reporter.
func NewMemory() *Memory {
	return &Memory{}
}

var _ Reporter = (*Memory)(nil)

func (m *Memory) ReportRequest(req model.RequestInfo) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests = append(m.requests, req)
}

func (m *Memory) ReportResponse(resp model.ResponseInfo) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses = append(m.responses, resp)
}

// Requests returns a copy of the recorded requests.
func (m *Memory) Requests() []model.RequestInfo {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]model.RequestInfo(nil), m.requests...)
}

// Responses returns a copy of the recorded responses.
func (m *Memory) Responses() []model.ResponseInfo {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]model.ResponseInfo(nil), m.responses...)
}

// Transaction pairs the request with the given id and its response.
func (m *Memory) Transaction(id string) (model.Transaction, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var tx model.Transaction
	found := false
	for _, r := range m.requests {
		if r.RequestID == id {
			tx.Request = r
			found = true
			break
		}
	}
	if !found {
		return model.Transaction{}, false
	}
	for i := range m.responses {
		if m.responses[i].RequestID == id {
			resp := m.responses[i]
			tx.Response = &resp
			break
		}
	}
	return tx, true
}

// Reset forgets everything recorded so far.
func (m *Memory) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests = nil
	m.responses = nil
}
