package llm

import (
	"context"
	"fmt"

	"github.com/vistachat/vistachat/internal/model"
)

// MockClient answers without calling a model. For local mode.
type MockClient struct {
	name string
}

// NewMockClient returns a MockClient reporting name as its model.
func NewMockClient(name string) *MockClient {
	if name == "" {
		name = "mock"
	}
	return &MockClient{name: name}
}

// Name returns the configured model name.
func (m *MockClient) Name() string {
	return m.name
}

// Generate echoes the prompt.
func (m *MockClient) Generate(_ context.Context, prompt model.Prompt) (string, error) {
	if prompt.HasImage() {
		return fmt.Sprintf("You said %q and sent a %s image of %d bytes.", prompt.Text, prompt.MIMEType, len(prompt.Image)), nil
	}
	return fmt.Sprintf("You said %q.", prompt.Text), nil
}
