package transcriber

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"mime"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/sashabaranov/go-openai"
)

const (
	groqBaseURL      = "https://api.groq.com/openai/v1"
	groqDefaultModel = "whisper-large-v3"
)

var errUnknownFile = errors.New("unknown file handle")

// OpenAIService talks to OpenAI-compatible transcription endpoints. They take
// audio inline with the request, so Upload stages the payload locally under
// a generated handle and Delete drops it.
type OpenAIService struct {
	client *openai.Client
	model  string

	mu     sync.Mutex
	staged map[string][]byte
}

func NewOpenAIService(config Config, baseURL string) *OpenAIService {
	clientConfig := openai.DefaultConfig(config.APIKey)
	if baseURL != "" {
		clientConfig.BaseURL = baseURL
	}
	model := config.Model
	if model == "" || model == DefaultConfig().Model {
		model = openai.Whisper1
		if baseURL == groqBaseURL {
			model = groqDefaultModel
		}
	}
	return &OpenAIService{
		client: openai.NewClientWithConfig(clientConfig),
		model:  model,
		staged: make(map[string][]byte),
	}
}

func (s *OpenAIService) Upload(ctx context.Context, data []byte, mimeType string) (RemoteFile, error) {
	if len(data) == 0 {
		return RemoteFile{}, &UploadError{Err: errors.New("empty payload")}
	}
	if err := ctx.Err(); err != nil {
		return RemoteFile{}, &UploadError{Err: err}
	}

	name := "staged/" + uuid.NewString()
	s.mu.Lock()
	s.staged[name] = data
	s.mu.Unlock()

	return RemoteFile{Name: name, MIMEType: mimeType}, nil
}

func (s *OpenAIService) Infer(ctx context.Context, file RemoteFile, prompt string) (string, error) {
	s.mu.Lock()
	data, ok := s.staged[file.Name]
	s.mu.Unlock()
	if !ok {
		return "", &InferenceError{Err: fmt.Errorf("%w: %s", errUnknownFile, file.Name)}
	}

	req := openai.AudioRequest{
		Model:    s.model,
		Reader:   bytes.NewReader(data),
		FilePath: "audio" + extensionFor(file.MIMEType),
		Prompt:   prompt,
	}

	start := time.Now()
	resp, err := s.client.CreateTranscription(ctx, req)
	if err != nil {
		log.Debug().Err(err).Dur("took", time.Since(start)).Msg("OpenAI: API call failed")
		return "", &InferenceError{Err: err}
	}

	log.Debug().Str("model", s.model).Dur("took", time.Since(start)).Int("chars", len(resp.Text)).Msg("OpenAI: transcribed audio")
	return resp.Text, nil
}

func (s *OpenAIService) Delete(ctx context.Context, file RemoteFile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.staged[file.Name]; !ok {
		return &DeleteError{Name: file.Name, Err: errUnknownFile}
	}
	delete(s.staged, file.Name)
	return nil
}

// Staged reports how many payloads are waiting for Delete.
func (s *OpenAIService) Staged() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.staged)
}

func extensionFor(mimeType string) string {
	switch mimeType {
	case "audio/flac":
		return ".flac"
	case "audio/wav", "audio/x-wav":
		return ".wav"
	case "audio/mp3", "audio/mpeg":
		return ".mp3"
	}
	if exts, err := mime.ExtensionsByType(mimeType); err == nil && len(exts) > 0 {
		return exts[0]
	}
	return "." + mimeSubtype(mimeType)
}

func mimeSubtype(mimeType string) string {
	for i := len(mimeType) - 1; i >= 0; i-- {
		if mimeType[i] == '/' {
			return mimeType[i+1:]
		}
	}
	return "wav"
}
