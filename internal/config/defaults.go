package config

import "time"

const defaultPromptPrefix = "Transcribe the audio to markdown, removing filler words. Language: "

func DefaultConfig() *Config {
	return &Config{
		Transcription: TranscriptionConfig{
			Provider: "gemini",
			Model:    "gemini-2.0-flash",
			Language: "english",
		},
		Recording: RecordingConfig{
			SampleRate:        16000,
			Channels:          1,
			Device:            "",
			BufferSize:        8192,
			ChannelBufferSize: 30,
			Encoding:          "flac",
			SaveAudioFile:     true,
			SaveLocation:      "~/voxscribe/recordings",
		},
		Output: OutputConfig{
			Mode:               "auto",
			Backends:           []string{"clipboard"},
			Timeout:            3 * time.Second,
			TranscriptLocation: "~/voxscribe/transcripts",
			EmbedAudioFile:     true,
		},
		Statistics: StatisticsConfig{
			Enabled: true,
		},
		Notifications: NotificationsConfig{
			Enabled: true,
			Type:    "desktop",
		},
		Status: StatusConfig{
			Show: true,
		},
	}
}

const defaultConfigContent = `# Voxscribe Configuration
# This file is automatically generated with defaults.
# Edit values as needed - changes are applied immediately without daemon restart.

# Remote Transcription Service
[transcription]
  provider = "gemini"           # "gemini", "openai" or "groq"
  api_key = ""                  # or set GEMINI_API_KEY / OPENAI_API_KEY / GROQ_API_KEY
  model = "gemini-2.0-flash"    # model name for the selected provider
  language = "english"          # used by the default prompt
  custom_prompt = false         # true = send prompt below verbatim
  prompt = ""

# Audio Recording
[recording]
  sample_rate = 16000           # Hz (16000 recommended for speech)
  channels = 1                  # 1 = mono, 2 = stereo
  device = ""                   # PipeWire target (empty = default microphone)
  buffer_size = 8192            # bytes read from pw-record per chunk
  channel_buffer_size = 30      # chunks buffered between capture and controller
  encoding = "flac"             # payload encoding ("flac" or "wav")
  save_audio_file = true        # keep recordings on disk
  save_location = "~/voxscribe/recordings"

# Transcript Delivery
[output]
  mode = "auto"                 # "auto" (insert, fall back to file), "insert", "file"
  backends = ["clipboard"]      # tried in order: "clipboard", "wtype", "ydotool"
  timeout = "3s"                # per backend
  transcript_location = "~/voxscribe/transcripts"
  embed_audio_file = true       # prefix transcript with ![[recording]] when audio is saved

# Usage Statistics
[statistics]
  enabled = true
  path = ""                     # empty = ~/.local/share/voxscribe/stats.json

# Notifications
[notifications]
  enabled = true
  type = "desktop"              # "desktop", "log", "none"

# Status Line
[status]
  show = true                   # render status and timer on the daemon's terminal
  file = ""                     # also mirror the status line to this file (for bars)
`
