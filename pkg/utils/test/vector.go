package testutils

import (
	"context"
	"sync"

	"github.com/papercomputeco/docqa/pkg/vector"
)

// MockVectorDriver is a test vector driver that records upserts and returns
// canned search results.
type MockVectorDriver struct {
	mu sync.Mutex

	// Records accumulates every upserted record.
	Records []vector.Record

	// Results is returned, bounded by k, by Search.
	Results []vector.Result

	// Err, when set, is returned by every call.
	Err error

	// FailTimes makes the first N calls return Err, after which calls
	// succeed. Zero means Err is returned every time.
	FailTimes int

	// Searches records the k of every Search call.
	Searches []int

	calls int
}

func NewMockVectorDriver() *MockVectorDriver {
	return &MockVectorDriver{
		Records: make([]vector.Record, 0),
		Results: make([]vector.Result, 0),
	}
}

func (m *MockVectorDriver) fail() error {
	m.calls++
	if m.Err == nil {
		return nil
	}
	if m.FailTimes > 0 && m.calls > m.FailTimes {
		return nil
	}
	return m.Err
}

func (m *MockVectorDriver) EnsureCollection(_ context.Context, _ string, _ uint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.fail()
}

func (m *MockVectorDriver) Upsert(_ context.Context, _ string, records []vector.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail(); err != nil {
		return err
	}
	m.Records = append(m.Records, records...)
	return nil
}

func (m *MockVectorDriver) Search(_ context.Context, _ string, _ []float32, k int) ([]vector.Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Searches = append(m.Searches, k)
	if err := m.fail(); err != nil {
		return nil, err
	}
	if len(m.Results) < k {
		return m.Results, nil
	}
	return m.Results[:k], nil
}

func (m *MockVectorDriver) Count(_ context.Context, _ string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail(); err != nil {
		return 0, err
	}
	return len(m.Records), nil
}

func (m *MockVectorDriver) IDs(_ context.Context, _ string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail(); err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(m.Records))
	for _, r := range m.Records {
		ids = append(ids, r.ID)
	}
	return ids, nil
}

func (m *MockVectorDriver) Delete(_ context.Context, _ string, ids []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail(); err != nil {
		return err
	}
	drop := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		drop[id] = struct{}{}
	}
	kept := m.Records[:0]
	for _, r := range m.Records {
		if _, ok := drop[r.ID]; !ok {
			kept = append(kept, r)
		}
	}
	m.Records = kept
	return nil
}

func (m *MockVectorDriver) Close() error {
	return nil
}

var _ vector.Driver = (*MockVectorDriver)(nil)
