package main

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/leonardotrapani/voxscribe/internal/bus"
	"github.com/leonardotrapani/voxscribe/internal/config"
	"github.com/leonardotrapani/voxscribe/internal/stats"
	"github.com/leonardotrapani/voxscribe/internal/tui"
)

func statsCmd() *cobra.Command {
	var reset, yes bool

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show usage statistics",
		Long: `Show recording and transcription statistics. The running daemon is asked
first; without one the statistics file is read directly.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if reset {
				if !yes && !tui.Confirm("Reset all statistics?") {
					fmt.Println("Statistics unchanged.")
					return nil
				}
				return runStatsReset()
			}
			return runStats()
		},
	}

	cmd.Flags().BoolVar(&reset, "reset", false, "reset all counters to zero")
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "do not ask for confirmation")
	return cmd
}

func runStats() error {
	if resp, err := request(bus.CmdStats, ""); err == nil {
		if strings.HasPrefix(resp, "ERR") {
			return errors.New(strings.TrimPrefix(resp, "ERR "))
		}
		record, err := parseStats(resp)
		if err != nil {
			return err
		}
		fmt.Println(tui.StatsTable(record, "daemon"))
		return nil
	}

	tracker, err := localTracker()
	if err != nil {
		return err
	}
	if err := tracker.Load(); err != nil {
		return err
	}
	fmt.Println(tui.StatsTable(tracker.Snapshot(), tracker.Path()))
	return nil
}

func runStatsReset() error {
	if _, err := request(bus.CmdVersion, ""); err == nil {
		return send(bus.CmdResetStats, "")
	}

	tracker, err := localTracker()
	if err != nil {
		return err
	}
	if err := tracker.Reset(); err != nil {
		return err
	}
	fmt.Println("OK reset")
	return nil
}

func localTracker() (*stats.Tracker, error) {
	path, err := config.GetConfigPath()
	if err != nil {
		return nil, err
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if !cfg.Statistics.Enabled {
		return nil, errors.New("statistics are disabled in the configuration")
	}
	statsPath, err := cfg.StatsPath()
	if err != nil {
		return nil, err
	}
	return stats.NewTracker(statsPath), nil
}

// parseStats reads a "STATS key=value ..." reply.
func parseStats(resp string) (stats.Record, error) {
	var r stats.Record
	fields := strings.Fields(resp)
	if len(fields) == 0 || fields[0] != "STATS" {
		return r, fmt.Errorf("unexpected stats reply: %q", resp)
	}

	for _, field := range fields[1:] {
		key, value, ok := strings.Cut(field, "=")
		if !ok {
			return r, fmt.Errorf("malformed stats field: %q", field)
		}
		var err error
		switch key {
		case "timesRecorded":
			r.TimesRecorded, err = strconv.Atoi(value)
		case "secondsRecorded":
			r.SecondsRecorded, err = strconv.ParseFloat(value, 64)
		case "filesTranscribed":
			r.FilesTranscribed, err = strconv.Atoi(value)
		case "secondsTranscribed":
			r.SecondsTranscribed, err = strconv.ParseFloat(value, 64)
		case "wordsReceived":
			r.WordsReceived, err = strconv.Atoi(value)
		}
		if err != nil {
			return r, fmt.Errorf("stats field %s: %w", key, err)
		}
	}
	return r, nil
}
