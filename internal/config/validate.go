package config

import (
	"fmt"
	"strings"
)

var (
	validProviders   = map[string]bool{"gemini": true, "openai": true, "groq": true}
	validEncodings   = map[string]bool{"flac": true, "wav": true}
	validOutputModes = map[string]bool{"auto": true, "insert": true, "file": true}
	validBackends    = map[string]bool{"clipboard": true, "wtype": true, "ydotool": true}
	validNotifyTypes = map[string]bool{"desktop": true, "log": true, "none": true}
)

// Validate returns the first invalid field. A missing API key is not an
// error here: the daemon starts without a service and reports it on use.
func (c *Config) Validate() error {
	if !validProviders[c.Transcription.Provider] {
		return fmt.Errorf("invalid transcription.provider: %q (must be gemini, openai or groq)", c.Transcription.Provider)
	}
	if c.Transcription.Model == "" {
		return fmt.Errorf("invalid transcription.model: empty")
	}
	if c.Transcription.CustomPrompt && strings.TrimSpace(c.Transcription.Prompt) == "" {
		return fmt.Errorf("invalid transcription.prompt: empty while custom_prompt is enabled")
	}
	if !c.Transcription.CustomPrompt && c.Transcription.Language == "" {
		return fmt.Errorf("invalid transcription.language: empty")
	}

	if c.Recording.SampleRate <= 0 {
		return fmt.Errorf("invalid recording.sample_rate: %d", c.Recording.SampleRate)
	}
	if c.Recording.Channels < 1 || c.Recording.Channels > 2 {
		return fmt.Errorf("invalid recording.channels: %d (must be 1 or 2)", c.Recording.Channels)
	}
	if c.Recording.BufferSize <= 0 {
		return fmt.Errorf("invalid recording.buffer_size: %d", c.Recording.BufferSize)
	}
	if c.Recording.ChannelBufferSize <= 0 {
		return fmt.Errorf("invalid recording.channel_buffer_size: %d", c.Recording.ChannelBufferSize)
	}
	if !validEncodings[c.Recording.Encoding] {
		return fmt.Errorf("invalid recording.encoding: %q (must be flac or wav)", c.Recording.Encoding)
	}
	if c.Recording.SaveAudioFile && c.Recording.SaveLocation == "" {
		return fmt.Errorf("invalid recording.save_location: empty while save_audio_file is enabled")
	}

	if !validOutputModes[c.Output.Mode] {
		return fmt.Errorf("invalid output.mode: %q (must be auto, insert or file)", c.Output.Mode)
	}
	if c.Output.Mode != "file" {
		if len(c.Output.Backends) == 0 {
			return fmt.Errorf("invalid output.backends: empty")
		}
		for _, b := range c.Output.Backends {
			if !validBackends[b] {
				return fmt.Errorf("invalid output.backends entry: %q (must be clipboard, wtype or ydotool)", b)
			}
		}
		if c.Output.Timeout <= 0 {
			return fmt.Errorf("invalid output.timeout: %v", c.Output.Timeout)
		}
	}
	if c.Output.Mode != "insert" && c.Output.TranscriptLocation == "" {
		return fmt.Errorf("invalid output.transcript_location: empty")
	}

	if c.Notifications.Enabled && !validNotifyTypes[c.Notifications.Type] {
		return fmt.Errorf("invalid notifications.type: %q (must be desktop, log, or none)", c.Notifications.Type)
	}

	return nil
}
