package mock

import (
	"context"
	"encoding/json"
	"strings"
	"sync"

	"github.com/poiesic/docembed/ai"
)

// MockGenerator is a test double for ai.TextGenerator.
type MockGenerator struct {
	// GenerateFunc is called by Generate if set.
	// If nil, the default returns one insight per sentence of the prompt (up to 3)
	// formatted as a JSON array.
	GenerateFunc func(ctx context.Context, system, prompt string) (string, error)

	mu        sync.Mutex
	callCount int
	prompts   []string
}

var _ ai.TextGenerator = (*MockGenerator)(nil)

// NewMockGenerator creates a mock generator with default behavior.
func NewMockGenerator() *MockGenerator {
	return &MockGenerator{}
}

// Generate returns a canned completion for prompt.
func (m *MockGenerator) Generate(ctx context.Context, system, prompt string) (string, error) {
	m.mu.Lock()
	m.callCount++
	m.prompts = append(m.prompts, prompt)
	fn := m.GenerateFunc
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, system, prompt)
	}

	type item struct {
		Insight    string  `json:"insight"`
		Confidence float64 `json:"confidence"`
	}
	items := []item{}
	confidence := 0.9
	for _, sentence := range strings.FieldsFunc(prompt, func(r rune) bool { return r == '.' || r == '\n' }) {
		sentence = strings.TrimSpace(sentence)
		if len(sentence) < 12 {
			continue
		}
		items = append(items, item{Insight: sentence, Confidence: confidence})
		confidence -= 0.1
		if len(items) == 3 {
			break
		}
	}
	data, err := json.Marshal(items)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// CallCount returns the number of times Generate was called.
func (m *MockGenerator) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.callCount
}

// Prompts returns the user prompts Generate received, in call order.
func (m *MockGenerator) Prompts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.prompts...)
}

// Reset clears the call count, recorded prompts and custom functions.
func (m *MockGenerator) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.callCount = 0
	m.prompts = nil
	m.GenerateFunc = nil
}
