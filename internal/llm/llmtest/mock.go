// Package llmtest provides a function-field Provider for tests
package llmtest

import (
	"context"
	"sync"

	"github.com/Conceptual-Machines/songsmith-api/internal/llm"
	"github.com/Conceptual-Machines/songsmith-api/internal/models"
)

// MockProvider is a test implementation of the llm.Provider interface.
// Nil funcs succeed with empty responses.
type MockProvider struct {
	ProviderName      string
	ProbeFunc         func(ctx context.Context, credential string, capability models.Capability) error
	GenerateTextFunc  func(ctx context.Context, credential string, request *llm.TextRequest) (*llm.TextResponse, error)
	GenerateImageFunc func(ctx context.Context, credential string, request *llm.ImageRequest) (*llm.ImageResponse, error)
	AnalyzeAudioFunc  func(ctx context.Context, credential string, request *llm.AudioRequest) (*llm.TextResponse, error)

	mu        sync.Mutex
	calls     int
	forgotten []string
}

var (
	_ llm.Provider        = (*MockProvider)(nil)
	_ llm.CredentialCache = (*MockProvider)(nil)
)

func (m *MockProvider) Name() string {
	if m.ProviderName == "" {
		return "mock"
	}
	return m.ProviderName
}

func (m *MockProvider) ProbeCapability(ctx context.Context, credential string, capability models.Capability) error {
	m.count()
	if m.ProbeFunc != nil {
		return m.ProbeFunc(ctx, credential, capability)
	}
	return nil
}

func (m *MockProvider) GenerateText(ctx context.Context, credential string, request *llm.TextRequest) (*llm.TextResponse, error) {
	m.count()
	if m.GenerateTextFunc != nil {
		return m.GenerateTextFunc(ctx, credential, request)
	}
	return &llm.TextResponse{Model: "mock-text"}, nil
}

func (m *MockProvider) GenerateImage(ctx context.Context, credential string, request *llm.ImageRequest) (*llm.ImageResponse, error) {
	m.count()
	if m.GenerateImageFunc != nil {
		return m.GenerateImageFunc(ctx, credential, request)
	}
	return &llm.ImageResponse{Model: "mock-image"}, nil
}

func (m *MockProvider) AnalyzeAudio(ctx context.Context, credential string, request *llm.AudioRequest) (*llm.TextResponse, error) {
	m.count()
	if m.AnalyzeAudioFunc != nil {
		return m.AnalyzeAudioFunc(ctx, credential, request)
	}
	return &llm.TextResponse{Model: "mock-audio"}, nil
}

// Calls returns how many backend calls were made
func (m *MockProvider) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Forget records the dropped credential
func (m *MockProvider) Forget(credential string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.forgotten = append(m.forgotten, credential)
}

// Forgotten returns the credentials passed to Forget, in order
func (m *MockProvider) Forgotten() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.forgotten...)
}

func (m *MockProvider) count() {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()
}

// Text returns a GenerateTextFunc that always answers with text
func Text(text string) func(context.Context, string, *llm.TextRequest) (*llm.TextResponse, error) {
	return func(context.Context, string, *llm.TextRequest) (*llm.TextResponse, error) {
		return &llm.TextResponse{Text: text, Model: "mock-text"}, nil
	}
}
