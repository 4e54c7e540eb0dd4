// Package tui holds the interactive terminal screens: the configuration
// menu and the statistics view.
package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/huh"

	"github.com/leonardotrapani/voxscribe/internal/config"
)

// ConfigureResult holds the configuration result from the TUI
type ConfigureResult struct {
	Config    *config.Config
	Cancelled bool
}

type ConfigSection string

const (
	SectionTranscription ConfigSection = "transcription"
	SectionRecording     ConfigSection = "recording"
	SectionOutput        ConfigSection = "output"
	SectionStatistics    ConfigSection = "statistics"
	SectionNotifications ConfigSection = "notifications"
	SectionSaveExit      ConfigSection = "save_exit"
	SectionDiscardExit   ConfigSection = "discard_exit"
)

var providerDisplayNames = map[string]string{
	"gemini": "Google Gemini",
	"openai": "OpenAI Whisper",
	"groq":   "Groq Whisper",
}

// Run edits cfg in place through a section menu until the user saves or
// discards. A fresh install starts with the transcription section.
func Run(cfg *config.Config) (*ConfigureResult, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}

	if !hasUserChanges(cfg) {
		clearScreen()
		fmt.Println(Logo())
		fmt.Println()
		if err := editTranscription(cfg); err != nil {
			return &ConfigureResult{Cancelled: true}, nil
		}
	}

	for {
		clearScreen()
		fmt.Println(Logo())
		fmt.Println()

		section, err := selectSection(cfg)
		if err != nil {
			return &ConfigureResult{Cancelled: true}, nil
		}

		switch section {
		case SectionSaveExit:
			if err := cfg.Validate(); err != nil {
				fmt.Println(StyleError.Render("Configuration invalid: " + err.Error()))
				if !confirm("Return to the menu?", "Back", "Discard") {
					return &ConfigureResult{Cancelled: true}, nil
				}
				continue
			}
			if showSummary(cfg) {
				return &ConfigureResult{Config: cfg}, nil
			}
		case SectionDiscardExit:
			return &ConfigureResult{Cancelled: true}, nil
		case SectionTranscription:
			_ = editTranscription(cfg)
		case SectionRecording:
			_ = editRecording(cfg)
		case SectionOutput:
			_ = editOutput(cfg)
		case SectionStatistics:
			_ = editStatistics(cfg)
		case SectionNotifications:
			_ = editNotifications(cfg)
		}
	}
}

// hasUserChanges reports whether the config has been set up before.
func hasUserChanges(cfg *config.Config) bool {
	return cfg.Transcription.APIKey != "" || cfg.Transcription.Provider != config.DefaultConfig().Transcription.Provider
}

func selectSection(cfg *config.Config) (ConfigSection, error) {
	options := []huh.Option[ConfigSection]{
		huh.NewOption(fmt.Sprintf("Transcription (%s)", providerDisplayName(cfg.Transcription.Provider)), SectionTranscription),
		huh.NewOption(fmt.Sprintf("Recording (%s)", cfg.Recording.Encoding), SectionRecording),
		huh.NewOption(fmt.Sprintf("Output (%s)", cfg.Output.Mode), SectionOutput),
		huh.NewOption(fmt.Sprintf("Statistics (%s)", onOff(cfg.Statistics.Enabled)), SectionStatistics),
		huh.NewOption(fmt.Sprintf("Notifications (%s)", onOff(cfg.Notifications.Enabled)), SectionNotifications),
		huh.NewOption("Save & Exit", SectionSaveExit),
		huh.NewOption("Discard & Exit", SectionDiscardExit),
	}

	var selected ConfigSection
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[ConfigSection]().
				Title("Configuration Menu").
				Description("↑/↓ navigate • enter select • esc cancel").
				Options(options...).
				Value(&selected),
		),
	).WithTheme(getTheme())

	if err := form.Run(); err != nil {
		return "", err
	}
	return selected, nil
}

func showSummary(cfg *config.Config) bool {
	fmt.Println()
	fmt.Println(StyleHeader.Render("Configuration Summary"))
	for _, line := range summaryLines(cfg) {
		fmt.Println("  " + line)
	}
	fmt.Println()
	return confirm("Save this configuration?", "Save", "Cancel")
}

func summaryLines(cfg *config.Config) []string {
	label := func(s string) string { return StyleLabel.Render(s) }

	lines := []string{
		fmt.Sprintf("%s %s (%s)", label("Transcription:"), providerDisplayName(cfg.Transcription.Provider), cfg.Transcription.Model),
		fmt.Sprintf("%s %s", label("API key:"), maskAPIKey(cfg.Transcription.APIKey)),
	}
	if cfg.Transcription.CustomPrompt {
		lines = append(lines, fmt.Sprintf("%s custom", label("Prompt:")))
	} else {
		lines = append(lines, fmt.Sprintf("%s %s", label("Language:"), cfg.Transcription.Language))
	}

	rec := fmt.Sprintf("%s %s, %d Hz", label("Recording:"), cfg.Recording.Encoding, cfg.Recording.SampleRate)
	if cfg.Recording.SaveAudioFile {
		rec += ", saved to " + cfg.Recording.SaveLocation
	}
	lines = append(lines, rec)

	out := fmt.Sprintf("%s %s", label("Output:"), cfg.Output.Mode)
	if cfg.Output.Mode != "file" {
		out += " via " + strings.Join(cfg.Output.Backends, " -> ")
	}
	if cfg.Output.Mode != "insert" {
		out += ", transcripts in " + cfg.Output.TranscriptLocation
	}
	lines = append(lines, out)

	lines = append(lines,
		fmt.Sprintf("%s %s", label("Statistics:"), onOff(cfg.Statistics.Enabled)),
		fmt.Sprintf("%s %s", label("Notifications:"), onOff(cfg.Notifications.Enabled)),
	)
	return lines
}

func confirm(title, yes, no string) bool {
	var ok bool
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title(title).
				Affirmative(yes).
				Negative(no).
				Value(&ok),
		),
	).WithTheme(getTheme())
	if err := form.Run(); err != nil {
		return false
	}
	return ok
}

// Confirm asks a yes/no question and reports false when the user aborts.
func Confirm(title string) bool {
	return confirm(title, "Yes", "No")
}

func providerDisplayName(name string) string {
	if display, ok := providerDisplayNames[name]; ok {
		return display
	}
	return name
}

func maskAPIKey(key string) string {
	switch {
	case key == "":
		return "(not set)"
	case len(key) <= 8:
		return strings.Repeat("*", len(key))
	default:
		return key[:4] + strings.Repeat("*", 4) + key[len(key)-4:]
	}
}

func onOff(b bool) string {
	if b {
		return "enabled"
	}
	return "disabled"
}
