package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/leonardotrapani/voxscribe/internal/bus"
	"github.com/leonardotrapani/voxscribe/internal/config"
	"github.com/leonardotrapani/voxscribe/internal/daemon"
	"github.com/leonardotrapani/voxscribe/internal/tui"
)

const requestTimeout = 5 * time.Second

var debug bool

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "voxscribe",
	Short: "Record speech and turn it into markdown notes",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		setupLogging(debug)
	},
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
	rootCmd.AddCommand(
		serveCmd(),
		simpleCmd("toggle", "Start or stop recording", bus.CmdToggle),
		simpleCmd("pause", "Pause or resume the current recording", bus.CmdPause),
		simpleCmd("cancel", "Discard the current recording", bus.CmdCancel),
		simpleCmd("status", "Show the recording status and elapsed time", bus.CmdStatus),
		simpleCmd("version", "Get protocol version", bus.CmdVersion),
		simpleCmd("stop", "Stop the daemon", bus.CmdQuit),
		transcribeCmd(),
		statsCmd(),
		configureCmd(),
		doctorCmd(),
	)
}

func setupLogging(debug bool) {
	level := zerolog.InfoLevel
	if debug {
		level = zerolog.DebugLevel
	}
	zerolog.SetGlobalLevel(level)
	log.Logger = zerolog.New(zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: "15:04:05",
	}).With().Timestamp().Logger()
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := config.GetConfigPath()
			if err != nil {
				return err
			}
			manager, err := config.NewManager(path)
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			d, err := daemon.New(manager, daemon.Options{HandleSignals: true})
			if err != nil {
				return fmt.Errorf("failed to create daemon: %w", err)
			}
			return d.Run()
		},
	}
}

func simpleCmd(use, short string, cmdByte byte) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return send(cmdByte, "")
		},
	}
}

func transcribeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "transcribe <audio-file>",
		Short: "Transcribe an existing audio file",
		Long: `Send an existing audio file (wav, mp3, aiff, aac, ogg, flac, webm, m4a)
through the running daemon. The transcript is delivered like a recording's.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := filepath.Abs(args[0])
			if err != nil {
				return err
			}
			return send(bus.CmdTranscribe, path)
		},
	}
}

// send delivers one command to the daemon and prints its reply. An ERR reply
// is returned as an error.
func send(cmd byte, arg string) error {
	resp, err := request(cmd, arg)
	if err != nil {
		return err
	}
	fmt.Println(resp)
	if strings.HasPrefix(resp, "ERR") {
		return errors.New(strings.TrimPrefix(resp, "ERR "))
	}
	return nil
}

func request(cmd byte, arg string) (string, error) {
	sock, err := bus.SockPath()
	if err != nil {
		return "", err
	}
	resp, err := bus.SendCommand(sock, cmd, arg, requestTimeout)
	if err != nil {
		return "", fmt.Errorf("daemon not reachable (is `voxscribe serve` running?): %w", err)
	}
	return resp, nil
}

func configureCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "configure",
		Short: "Interactive configuration setup",
		Long: `Interactive configuration for voxscribe.
This will guide you through setting up:
- The transcription service and API key
- Recording format and storage
- Transcript output and insertion backends
- Statistics and notifications`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigure()
		},
	}
}

func runConfigure() error {
	path, err := config.GetConfigPath()
	if err != nil {
		return err
	}
	cfg, err := config.Load(path)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	result, err := tui.Run(cfg)
	if err != nil {
		return fmt.Errorf("configuration wizard error: %w", err)
	}
	if result.Cancelled {
		fmt.Println("Configuration cancelled.")
		return nil
	}

	if err := config.Save(path, result.Config); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}

	fmt.Println()
	fmt.Println(tui.StyleSuccess.Render("Configuration saved to " + path))
	if _, err := request(bus.CmdVersion, ""); err == nil {
		fmt.Println("The running daemon picks up the changes automatically.")
	} else {
		fmt.Println("Start the daemon with: voxscribe serve")
	}
	return nil
}
