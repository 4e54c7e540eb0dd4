package encoder

import (
	"fmt"
	"path/filepath"
	"strings"
)

const BitsPerSample = 16

const (
	FormatFLAC = "flac"
	FormatWAV  = "wav"
)

// Audio is a finished audio payload ready to be saved or uploaded.
type Audio struct {
	Data     []byte
	MIMEType string
	Ext      string // without the leading dot
}

// PCMFormat describes raw interleaved s16le input.
type PCMFormat struct {
	SampleRate int
	Channels   int
}

func (f PCMFormat) frameBytes() int { return f.Channels * BitsPerSample / 8 }

// SupportedExtensions lists the audio file types accepted for transcription.
var SupportedExtensions = []string{"wav", "mp3", "aiff", "aac", "ogg", "flac", "webm", "m4a"}

// Assemble joins captured chunks into one encoded payload.
func Assemble(chunks [][]byte, format string, pcm PCMFormat) (Audio, error) {
	if pcm.SampleRate <= 0 || pcm.Channels <= 0 || pcm.Channels > 2 {
		return Audio{}, fmt.Errorf("unsupported pcm format: %d Hz, %d channels", pcm.SampleRate, pcm.Channels)
	}

	size := 0
	for _, c := range chunks {
		size += len(c)
	}
	raw := make([]byte, 0, size)
	for _, c := range chunks {
		raw = append(raw, c...)
	}
	// Drop a trailing partial frame.
	raw = raw[:len(raw)-len(raw)%pcm.frameBytes()]
	if len(raw) == 0 {
		return Audio{}, ErrNoAudio
	}

	switch format {
	case FormatFLAC, "":
		data, err := EncodeFLAC(raw, pcm)
		if err != nil {
			return Audio{}, err
		}
		return Audio{Data: data, MIMEType: "audio/flac", Ext: FormatFLAC}, nil
	case FormatWAV:
		return Audio{Data: EncodeWAV(raw, pcm), MIMEType: "audio/wav", Ext: FormatWAV}, nil
	default:
		return Audio{}, fmt.Errorf("unsupported encoding: %s", format)
	}
}

// FromFile wraps the bytes of an external audio file, deriving the MIME type
// from its extension.
func FromFile(name string, data []byte) (Audio, error) {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(name)), ".")
	if !IsSupported(ext) {
		return Audio{}, fmt.Errorf("invalid file type: .%s", ext)
	}
	return Audio{Data: data, MIMEType: "audio/" + ext, Ext: ext}, nil
}

func IsSupported(ext string) bool {
	ext = strings.TrimPrefix(strings.ToLower(ext), ".")
	for _, e := range SupportedExtensions {
		if e == ext {
			return true
		}
	}
	return false
}
