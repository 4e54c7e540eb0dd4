package config

import (
	"os"

	"github.com/leonardotrapani/voxscribe/internal/capture"
	"github.com/leonardotrapani/voxscribe/internal/encoder"
	"github.com/leonardotrapani/voxscribe/internal/language"
	"github.com/leonardotrapani/voxscribe/internal/recorder"
	"github.com/leonardotrapani/voxscribe/internal/router"
	"github.com/leonardotrapani/voxscribe/internal/stats"
	"github.com/leonardotrapani/voxscribe/internal/transcriber"
)

var apiKeyEnv = map[string]string{
	"gemini": "GEMINI_API_KEY",
	"openai": "OPENAI_API_KEY",
	"groq":   "GROQ_API_KEY",
}

func (c *Config) ToTranscriberConfig() transcriber.Config {
	return transcriber.Config{
		Provider: c.Transcription.Provider,
		APIKey:   c.APIKey(),
		Model:    c.Transcription.Model,
	}
}

// APIKey returns transcription.api_key, falling back to the provider's
// environment variable.
func (c *Config) APIKey() string {
	if c.Transcription.APIKey != "" {
		return c.Transcription.APIKey
	}
	if env, ok := apiKeyEnv[c.Transcription.Provider]; ok {
		return os.Getenv(env)
	}
	return ""
}

// Prompt is the instruction sent with every inference request. A language
// given as an ISO code is spelled out.
func (c *Config) Prompt() string {
	if c.Transcription.CustomPrompt {
		return c.Transcription.Prompt
	}
	return defaultPromptPrefix + language.Label(c.Transcription.Language)
}

func (c *Config) ToCaptureConfig() capture.Config {
	return capture.Config{
		SampleRate:        c.Recording.SampleRate,
		Channels:          c.Recording.Channels,
		BufferSize:        c.Recording.BufferSize,
		Device:            c.Recording.Device,
		ChannelBufferSize: c.Recording.ChannelBufferSize,
	}
}

func (c *Config) ToRecorderConfig() recorder.Config {
	return recorder.Config{
		Encoding: c.Recording.Encoding,
		PCM: encoder.PCMFormat{
			SampleRate: c.Recording.SampleRate,
			Channels:   c.Recording.Channels,
		},
		SaveAudio: c.Recording.SaveAudioFile,
		SaveDir:   ExpandPath(c.Recording.SaveLocation),
	}
}

// ToRouterConfig links recordings into transcripts only when the recording
// is actually kept on disk.
func (c *Config) ToRouterConfig() router.Config {
	return router.Config{
		Mode:          c.Output.Mode,
		Backends:      append([]string(nil), c.Output.Backends...),
		TranscriptDir: ExpandPath(c.Output.TranscriptLocation),
		EmbedAudio:    c.Output.EmbedAudioFile && c.Recording.SaveAudioFile,
		Timeout:       c.Output.Timeout,
	}
}

func (c *Config) StatsPath() (string, error) {
	if c.Statistics.Path != "" {
		return ExpandPath(c.Statistics.Path), nil
	}
	return stats.DefaultPath()
}
