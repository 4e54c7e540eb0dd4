package config

import "time"

type Config struct {
	Transcription TranscriptionConfig `toml:"transcription"`
	Recording     RecordingConfig     `toml:"recording"`
	Output        OutputConfig        `toml:"output"`
	Statistics    StatisticsConfig    `toml:"statistics"`
	Notifications NotificationsConfig `toml:"notifications"`
	Status        StatusConfig        `toml:"status"`
}

type TranscriptionConfig struct {
	Provider     string `toml:"provider"`
	APIKey       string `toml:"api_key"`
	Model        string `toml:"model"`
	Language     string `toml:"language"`
	CustomPrompt bool   `toml:"custom_prompt"`
	Prompt       string `toml:"prompt"`
}

type RecordingConfig struct {
	SampleRate        int    `toml:"sample_rate"`
	Channels          int    `toml:"channels"`
	Device            string `toml:"device"`
	BufferSize        int    `toml:"buffer_size"`
	ChannelBufferSize int    `toml:"channel_buffer_size"`
	Encoding          string `toml:"encoding"` // "flac" or "wav"
	SaveAudioFile     bool   `toml:"save_audio_file"`
	SaveLocation      string `toml:"save_location"`
}

type OutputConfig struct {
	Mode               string        `toml:"mode"` // "auto", "insert", "file"
	Backends           []string      `toml:"backends"`
	Timeout            time.Duration `toml:"timeout"`
	TranscriptLocation string        `toml:"transcript_location"`
	EmbedAudioFile     bool          `toml:"embed_audio_file"`
}

type StatisticsConfig struct {
	Enabled bool   `toml:"enabled"`
	Path    string `toml:"path"` // empty = $XDG_DATA_HOME/voxscribe/stats.json
}

type NotificationsConfig struct {
	Enabled bool   `toml:"enabled"`
	Type    string `toml:"type"` // "desktop", "log", "none"
}

type StatusConfig struct {
	Show bool   `toml:"show"`
	File string `toml:"file"`
}
