package llm

import (
	"context"
	"sync"
)

// Mock is a scripted Oracle for tests. Responses are consumed in order; when
// the script runs out the last entry repeats. Err, when set, is returned for
// every call to exercise conservative-fallback paths.
type Mock struct {
	mu        sync.Mutex
	Responses []string
	Err       error
	Calls     []Request
}

var _ Oracle = (*Mock)(nil)

func (m *Mock) Generate(_ context.Context, req Request) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls = append(m.Calls, req)
	if m.Err != nil {
		return "", m.Err
	}
	if len(m.Responses) == 0 {
		return "", nil
	}
	resp := m.Responses[0]
	if len(m.Responses) > 1 {
		m.Responses = m.Responses[1:]
	}
	return resp, nil
}

func (m *Mock) GenerateJSON(ctx context.Context, req Request) (map[string]any, error) {
	text, err := m.Generate(ctx, req)
	if err != nil {
		return nil, err
	}
	return RecoverJSON(text), nil
}

// CallCount reports how many times the oracle was invoked.
func (m *Mock) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Calls)
}
