package tui

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/huh"

	"github.com/leonardotrapani/voxscribe/internal/config"
	lang "github.com/leonardotrapani/voxscribe/internal/language"
	"github.com/leonardotrapani/voxscribe/internal/transcriber"
)

var defaultModels = map[string]string{
	"gemini": transcriber.DefaultConfig().Model,
	"openai": "whisper-1",
	"groq":   "whisper-large-v3",
}

func editTranscription(cfg *config.Config) error {
	provider := cfg.Transcription.Provider
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Transcription Service").
				Description("Where recordings are sent for transcription").
				Options(
					huh.NewOption(providerDisplayNames["gemini"], "gemini"),
					huh.NewOption(providerDisplayNames["openai"], "openai"),
					huh.NewOption(providerDisplayNames["groq"], "groq"),
				).
				Value(&provider),
		),
	).WithTheme(getTheme())
	if err := form.Run(); err != nil {
		return err
	}

	model := cfg.Transcription.Model
	if provider != cfg.Transcription.Provider {
		model = defaultModels[provider]
	}
	apiKey := cfg.Transcription.APIKey
	language := lang.Label(cfg.Transcription.Language)
	customPrompt := cfg.Transcription.CustomPrompt

	form = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("API Key").
				Description(fmt.Sprintf("Current: %s. Leave empty to use the environment variable.", maskAPIKey(apiKey))).
				EchoMode(huh.EchoModePassword).
				Value(&apiKey),
			huh.NewInput().
				Title("Model").
				Value(&model).
				Validate(notEmpty("model")),
			huh.NewSelect[string]().
				Title("Language").
				Description("Used by the default prompt").
				Options(languageOptions(language)...).
				Height(8).
				Value(&language),
			huh.NewConfirm().
				Title("Use a custom prompt?").
				Description("Sent verbatim instead of the default transcription prompt").
				Value(&customPrompt),
		),
	).WithTheme(getTheme())
	if err := form.Run(); err != nil {
		return err
	}

	prompt := cfg.Transcription.Prompt
	if customPrompt {
		form = huh.NewForm(
			huh.NewGroup(
				huh.NewText().
					Title("Prompt").
					Value(&prompt).
					Validate(notEmpty("prompt")),
			),
		).WithTheme(getTheme())
		if err := form.Run(); err != nil {
			return err
		}
	}

	cfg.Transcription.Provider = provider
	cfg.Transcription.APIKey = strings.TrimSpace(apiKey)
	cfg.Transcription.Model = strings.TrimSpace(model)
	cfg.Transcription.Language = strings.TrimSpace(language)
	cfg.Transcription.CustomPrompt = customPrompt
	cfg.Transcription.Prompt = prompt
	return nil
}

func editRecording(cfg *config.Config) error {
	encoding := cfg.Recording.Encoding
	sampleRate := strconv.Itoa(cfg.Recording.SampleRate)
	device := cfg.Recording.Device
	save := cfg.Recording.SaveAudioFile
	location := cfg.Recording.SaveLocation

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Audio Format").
				Options(
					huh.NewOption("FLAC (smaller uploads)", "flac"),
					huh.NewOption("WAV", "wav"),
				).
				Value(&encoding),
			huh.NewInput().
				Title("Sample Rate").
				Description("Hz, 16000 is enough for speech").
				Value(&sampleRate).
				Validate(positiveInt),
			huh.NewInput().
				Title("Capture Device").
				Description("PipeWire target, empty for the default source").
				Value(&device),
			huh.NewConfirm().
				Title("Keep recordings on disk?").
				Value(&save),
			huh.NewInput().
				Title("Recordings Folder").
				Value(&location),
		),
	).WithTheme(getTheme())
	if err := form.Run(); err != nil {
		return err
	}

	rate, _ := strconv.Atoi(strings.TrimSpace(sampleRate))
	cfg.Recording.Encoding = encoding
	cfg.Recording.SampleRate = rate
	cfg.Recording.Device = strings.TrimSpace(device)
	cfg.Recording.SaveAudioFile = save
	cfg.Recording.SaveLocation = strings.TrimSpace(location)
	return nil
}

func editOutput(cfg *config.Config) error {
	mode := cfg.Output.Mode
	backends := append([]string(nil), cfg.Output.Backends...)
	timeout := cfg.Output.Timeout.String()
	location := cfg.Output.TranscriptLocation
	embed := cfg.Output.EmbedAudioFile

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Output Mode").
				Options(
					huh.NewOption("Insert, fall back to a transcript file", "auto"),
					huh.NewOption("Insert only", "insert"),
					huh.NewOption("Transcript file only", "file"),
				).
				Value(&mode),
			huh.NewMultiSelect[string]().
				Title("Insertion Backends").
				Description("Tried in order until one succeeds").
				Options(
					huh.NewOption("Clipboard", "clipboard"),
					huh.NewOption("wtype (Wayland typing)", "wtype"),
					huh.NewOption("ydotool (needs ydotoold)", "ydotool"),
				).
				Value(&backends),
			huh.NewInput().
				Title("Insertion Timeout").
				Value(&timeout).
				Validate(validDuration),
			huh.NewInput().
				Title("Transcripts Folder").
				Value(&location),
			huh.NewConfirm().
				Title("Embed the recording in the transcript?").
				Description("Adds ![[recording]] above the text when recordings are kept").
				Value(&embed),
		),
	).WithTheme(getTheme())
	if err := form.Run(); err != nil {
		return err
	}

	d, _ := time.ParseDuration(strings.TrimSpace(timeout))
	cfg.Output.Mode = mode
	cfg.Output.Backends = backends
	cfg.Output.Timeout = d
	cfg.Output.TranscriptLocation = strings.TrimSpace(location)
	cfg.Output.EmbedAudioFile = embed
	return nil
}

func editStatistics(cfg *config.Config) error {
	enabled := cfg.Statistics.Enabled
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title("Track usage statistics?").
				Description("Recordings, transcriptions and word counts, stored locally").
				Value(&enabled),
		),
	).WithTheme(getTheme())
	if err := form.Run(); err != nil {
		return err
	}
	cfg.Statistics.Enabled = enabled
	return nil
}

func editNotifications(cfg *config.Config) error {
	enabled := cfg.Notifications.Enabled
	kind := cfg.Notifications.Type
	if kind == "" {
		kind = "desktop"
	}

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title("Enable notifications?").
				Value(&enabled),
			huh.NewSelect[string]().
				Title("Notification Type").
				Options(
					huh.NewOption("Desktop notifications (notify-send)", "desktop"),
					huh.NewOption("Log to console only", "log"),
					huh.NewOption("None (silent)", "none"),
				).
				Value(&kind),
		),
	).WithTheme(getTheme())
	if err := form.Run(); err != nil {
		return err
	}
	cfg.Notifications.Enabled = enabled
	cfg.Notifications.Type = kind
	return nil
}

// languageOptions lists the known languages by lower-case name, keeping
// a custom current value selectable.
func languageOptions(current string) []huh.Option[string] {
	var options []huh.Option[string]
	known := false
	for _, l := range lang.List() {
		value := strings.ToLower(l.Name)
		known = known || value == current
		label := l.Name
		if l.NativeName != "" && l.NativeName != l.Name {
			label += " (" + l.NativeName + ")"
		}
		options = append(options, huh.NewOption(label, value))
	}
	if !known && current != "" {
		options = append([]huh.Option[string]{huh.NewOption(current, current)}, options...)
	}
	return options
}

func notEmpty(field string) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("%s is required", field)
		}
		return nil
	}
}

func positiveInt(s string) error {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n <= 0 {
		return fmt.Errorf("must be a positive number")
	}
	return nil
}

func validDuration(s string) error {
	d, err := time.ParseDuration(strings.TrimSpace(s))
	if err != nil || d <= 0 {
		return fmt.Errorf("must be a duration such as 3s")
	}
	return nil
}
