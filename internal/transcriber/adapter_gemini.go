package transcriber

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"google.golang.org/genai"
)

// filePollInterval is how often an uploaded file still in PROCESSING state
// is re-checked before inference.
const filePollInterval = 500 * time.Millisecond

// GeminiService uses the Gemini Files API: the audio is uploaded, referenced
// by URI in a generateContent request, then deleted.
type GeminiService struct {
	client *genai.Client
	model  string
}

func NewGeminiService(ctx context.Context, config Config) (*GeminiService, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  config.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	model := config.Model
	if model == "" {
		model = DefaultConfig().Model
	}
	return &GeminiService{client: client, model: model}, nil
}

func (s *GeminiService) Upload(ctx context.Context, data []byte, mimeType string) (RemoteFile, error) {
	start := time.Now()
	file, err := s.client.Files.Upload(ctx, bytes.NewReader(data), &genai.UploadFileConfig{
		MIMEType: mimeType,
	})
	if err != nil {
		return RemoteFile{}, &UploadError{Err: err}
	}

	if err := s.waitActive(ctx, file); err != nil {
		// The file exists remotely but is unusable; the caller never sees
		// its handle, so it is removed here.
		s.discard(ctx, file.Name)
		return RemoteFile{}, &UploadError{Err: err}
	}

	log.Debug().Str("file", file.Name).Int("bytes", len(data)).Dur("took", time.Since(start)).Msg("Gemini: uploaded audio")
	return toRemote(file), nil
}

func (s *GeminiService) Infer(ctx context.Context, file RemoteFile, prompt string) (string, error) {
	parts := []*genai.Part{
		genai.NewPartFromURI(file.URI, file.MIMEType),
		genai.NewPartFromText(prompt),
	}
	contents := []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}

	start := time.Now()
	resp, err := s.client.Models.GenerateContent(ctx, s.model, contents, nil)
	if err != nil {
		return "", &InferenceError{Err: err}
	}

	text := resp.Text()
	log.Debug().Str("model", s.model).Dur("took", time.Since(start)).Int("chars", len(text)).Msg("Gemini: generated transcript")
	return text, nil
}

func (s *GeminiService) Delete(ctx context.Context, file RemoteFile) error {
	if _, err := s.client.Files.Delete(ctx, file.Name, nil); err != nil {
		return &DeleteError{Name: file.Name, Err: err}
	}
	return nil
}

func (s *GeminiService) waitActive(ctx context.Context, file *genai.File) error {
	for file.State == genai.FileStateProcessing {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(filePollInterval):
		}
		next, err := s.client.Files.Get(ctx, file.Name, nil)
		if err != nil {
			return fmt.Errorf("poll file state: %w", err)
		}
		*file = *next
	}
	if file.State == genai.FileStateFailed {
		return errors.New("file processing failed")
	}
	return nil
}

func (s *GeminiService) discard(ctx context.Context, name string) {
	if _, err := s.client.Files.Delete(context.WithoutCancel(ctx), name, nil); err != nil {
		log.Warn().Err(err).Str("file", name).Msg("Gemini: failed to delete unusable upload")
	}
}

func toRemote(f *genai.File) RemoteFile {
	return RemoteFile{Name: f.Name, URI: f.URI, MIMEType: f.MIMEType}
}
