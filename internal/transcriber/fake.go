package transcriber

import (
	"context"
	"fmt"
	"sync"
)

// FakeService is an in-memory Service for tests. It hands out sequential
// handles and records every call.
type FakeService struct {
	Text      string
	UploadErr error
	InferErr  error
	DeleteErr error

	mu       sync.Mutex
	uploads  []RemoteFile
	infers   []RemoteFile
	prompts  []string
	deletes  []RemoteFile
	payloads [][]byte
	calls    []string
}

func NewFakeService(text string) *FakeService {
	return &FakeService{Text: text}
}

func (f *FakeService) Upload(ctx context.Context, data []byte, mimeType string) (RemoteFile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "upload")
	if f.UploadErr != nil {
		return RemoteFile{}, &UploadError{Err: f.UploadErr}
	}
	file := RemoteFile{
		Name:     fmt.Sprintf("files/fake-%d", len(f.uploads)+1),
		URI:      fmt.Sprintf("https://fake.invalid/files/fake-%d", len(f.uploads)+1),
		MIMEType: mimeType,
	}
	f.uploads = append(f.uploads, file)
	f.payloads = append(f.payloads, data)
	return file, nil
}

func (f *FakeService) Infer(ctx context.Context, file RemoteFile, prompt string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "infer")
	f.infers = append(f.infers, file)
	f.prompts = append(f.prompts, prompt)
	if f.InferErr != nil {
		return "", &InferenceError{Err: f.InferErr}
	}
	return f.Text, nil
}

func (f *FakeService) Delete(ctx context.Context, file RemoteFile) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "delete")
	f.deletes = append(f.deletes, file)
	if f.DeleteErr != nil {
		return &DeleteError{Name: file.Name, Err: f.DeleteErr}
	}
	return nil
}

func (f *FakeService) Uploads() []RemoteFile { return f.snapshot(&f.uploads) }
func (f *FakeService) Infers() []RemoteFile  { return f.snapshot(&f.infers) }
func (f *FakeService) Deletes() []RemoteFile { return f.snapshot(&f.deletes) }

func (f *FakeService) Prompts() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.prompts...)
}

func (f *FakeService) Payloads() [][]byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([][]byte(nil), f.payloads...)
}

// Calls returns the operation names in call order.
func (f *FakeService) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *FakeService) snapshot(src *[]RemoteFile) []RemoteFile {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]RemoteFile(nil), (*src)...)
}
