package transcriber

import (
	"context"
	"fmt"
)

// RemoteFile is the service-side reference to an uploaded payload. It stays
// valid until Delete is called with it.
type RemoteFile struct {
	Name     string
	URI      string
	MIMEType string
}

// Service is the remote transcription backend: upload once, infer on the
// uploaded handle, then delete it.
type Service interface {
	Upload(ctx context.Context, data []byte, mimeType string) (RemoteFile, error)
	Infer(ctx context.Context, file RemoteFile, prompt string) (string, error)
	Delete(ctx context.Context, file RemoteFile) error
}

type Config struct {
	Provider string
	APIKey   string
	Model    string
}

const (
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"
	ProviderGroq   = "groq"
)

func DefaultConfig() Config {
	return Config{
		Provider: ProviderGemini,
		Model:    "gemini-2.0-flash",
	}
}

// NewService builds the backend for config.Provider.
func NewService(ctx context.Context, config Config) (Service, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("%s API key required", config.Provider)
	}

	switch config.Provider {
	case ProviderGemini:
		return NewGeminiService(ctx, config)
	case ProviderOpenAI:
		return NewOpenAIService(config, ""), nil
	case ProviderGroq:
		return NewOpenAIService(config, groqBaseURL), nil
	default:
		return nil, fmt.Errorf("unsupported provider: %s", config.Provider)
	}
}
