package transcriber

import (
	"errors"
	"fmt"
	"strings"
)

// UploadError wraps a failed upload. No remote file exists afterwards.
type UploadError struct {
	Err error
}

func (e *UploadError) Error() string {
	if e == nil || e.Err == nil {
		return "upload failed"
	}
	return fmt.Sprintf("upload failed: %v", e.Err)
}

func (e *UploadError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// InferenceError wraps a failed transcription request on an uploaded file.
type InferenceError struct {
	Err error
}

func (e *InferenceError) Error() string {
	if e == nil || e.Err == nil {
		return "transcription request failed"
	}
	return fmt.Sprintf("transcription request failed: %v", e.Err)
}

func (e *InferenceError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// DeleteError wraps a failed cleanup of an uploaded file.
type DeleteError struct {
	Name string
	Err  error
}

func (e *DeleteError) Error() string {
	if e == nil || e.Err == nil {
		return "delete failed"
	}
	return fmt.Sprintf("delete %s failed: %v", e.Name, e.Err)
}

func (e *DeleteError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// credentialMarkers are substrings the supported services put in their
// invalid-key responses.
var credentialMarkers = []string{
	"api key not valid",
	"api_key_invalid",
	"incorrect api key",
	"invalid_api_key",
	"invalid api key",
}

// IsCredentialError reports whether an upload or inference failure was
// caused by a rejected API key.
func IsCredentialError(err error) bool {
	var upload *UploadError
	var infer *InferenceError
	if !errors.As(err, &upload) && !errors.As(err, &infer) {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, marker := range credentialMarkers {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}
