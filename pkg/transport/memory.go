package transport

import (
	"context"
	"sync"

	"codexmonitor/pkg/models"
)

// Memory is an in-memory Transport used by tests and demos. All fields are
// safe for concurrent use; error fields, when set, are returned by the
// corresponding call to exercise failure paths.
type Memory struct {
	mu        sync.Mutex
	snapshots map[string][]byte
	results   map[string]*models.CommandResult
	submitted [][]byte
	writer    *models.WriterInfo

	FetchErr   error
	SubmitErr  error
	ResultErr  error
	fetchCount map[string]int
}

// NewMemory returns an empty in-memory transport with no writer online.
func NewMemory() *Memory {
	return &Memory{
		snapshots:  map[string][]byte{},
		results:    map[string]*models.CommandResult{},
		fetchCount: map[string]int{},
	}
}

// SetWriter marks a runner as discoverable.
func (m *Memory) SetWriter(w *models.WriterInfo) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.writer = w
}

// SetSnapshot publishes raw envelope bytes for a scope.
func (m *Memory) SetSnapshot(scopeKey string, raw []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snapshots[scopeKey] = raw
}

// SetResult publishes a command result.
func (m *Memory) SetResult(commandID string, res *models.CommandResult) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.results[commandID] = res
}

// Submitted returns the payloads submitted so far.
func (m *Memory) Submitted() [][]byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([][]byte(nil), m.submitted...)
}

// FetchCount reports how many snapshot fetches a scope has seen.
func (m *Memory) FetchCount(scopeKey string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.fetchCount[scopeKey]
}

func (m *Memory) FetchSnapshot(_ context.Context, _, scopeKey string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fetchCount[scopeKey]++
	if m.FetchErr != nil {
		return nil, m.FetchErr
	}
	return m.snapshots[scopeKey], nil
}

func (m *Memory) SubmitCommand(_ context.Context, _ string, payload []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.SubmitErr != nil {
		return m.SubmitErr
	}
	m.submitted = append(m.submitted, append([]byte(nil), payload...))
	return nil
}

func (m *Memory) FetchCommandResult(_ context.Context, _, commandID string) (*models.CommandResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ResultErr != nil {
		return nil, m.ResultErr
	}
	return m.results[commandID], nil
}

func (m *Memory) DiscoverWriter(_ context.Context) (*models.WriterInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.writer, nil
}
