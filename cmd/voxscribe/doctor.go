package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/leonardotrapani/voxscribe/internal/bus"
	"github.com/leonardotrapani/voxscribe/internal/config"
	"github.com/leonardotrapani/voxscribe/internal/deps"
	"github.com/leonardotrapani/voxscribe/internal/tui"
)

func doctorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check the configuration and external tools",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDoctor()
		},
	}
}

func runDoctor() error {
	path, err := config.GetConfigPath()
	if err != nil {
		return err
	}
	cfg, err := config.Load(path)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	ok := true
	report := func(good bool, msg string) {
		if good {
			fmt.Println(tui.StyleSuccess.Render("  ok   ") + msg)
			return
		}
		fmt.Println(tui.StyleError.Render("  FAIL ") + msg)
	}

	fmt.Println(tui.StyleHeader.Render("Configuration"))
	if err := cfg.Validate(); err != nil {
		ok = false
		report(false, err.Error())
	} else {
		report(true, path)
	}
	if cfg.APIKey() == "" {
		ok = false
		report(false, "no API key for "+cfg.Transcription.Provider)
	} else {
		report(true, "API key for "+cfg.Transcription.Provider)
	}

	fmt.Println()
	fmt.Println(tui.StyleHeader.Render("External tools"))
	var backends []string
	if cfg.Output.Mode != "file" {
		backends = cfg.Output.Backends
	}
	desktop := cfg.Notifications.Enabled && cfg.Notifications.Type == "desktop"
	results := deps.CheckAll(deps.Needed(backends, desktop))
	for _, r := range results {
		switch {
		case r.Installed:
			detail := r.Path
			if r.Version != "" {
				detail += " (" + r.Version + ")"
			}
			report(true, fmt.Sprintf("%s: %s", r.Name, detail))
		case r.Required:
			report(false, fmt.Sprintf("%s not found, needed for %s", r.Name, r.Purpose))
		default:
			fmt.Println(tui.StyleWarning.Render("  warn ") + fmt.Sprintf("%s not found, %s unavailable", r.Name, r.Purpose))
		}
	}
	if len(deps.Missing(results)) > 0 {
		ok = false
	}

	fmt.Println()
	fmt.Println(tui.StyleHeader.Render("Daemon"))
	if resp, err := request(bus.CmdStatus, ""); err == nil {
		report(true, resp)
	} else {
		fmt.Println(tui.StyleMuted.Render("  not running, start it with: voxscribe serve"))
	}

	if !ok {
		return fmt.Errorf("problems found")
	}
	return nil
}
