package llm

import "context"

// Role identifies the author of a history turn
type Role string

const (
	RoleUser  Role = "user"
	RoleModel Role = "model"
)

// Turn is one prior message replayed to the model
type Turn struct {
	Role Role
	Text string
}

// Image is an inline photo attached to the current prompt
type Image struct {
	MIMEType string
	// Data is the base64-encoded image body
	Data string
}

// Request contains the prompt, prior conversation and optional image
type Request struct {
	Prompt  string
	History []Turn
	Image   *Image
}

// Response contains LLM generation result
type Response struct {
	Text       string
	Model      string
	TokensUsed int
	LatencyMs  int64
}

// Provider defines the interface for LLM providers
type Provider interface {
	// Name returns the provider identifier
	Name() string

	// AvailableModels returns list of supported models
	AvailableModels() []string

	// DefaultModel returns the default model
	DefaultModel() string

	// IsConfigured checks if provider has valid credentials
	IsConfigured() bool

	// Generate produces the assistant reply for req
	Generate(ctx context.Context, req Request, model string) (*Response, error)
}
