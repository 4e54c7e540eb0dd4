package router

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/atotto/clipboard"
)

// Backend inserts text into the user's session.
type Backend interface {
	Name() string
	Available() error
	Insert(ctx context.Context, text string, timeout time.Duration) error
	// Done is the notification shown after a successful insert.
	Done() string
}

type clipboardBackend struct {
	write       func(string) error
	unsupported func() bool
}

func NewClipboardBackend() Backend {
	return &clipboardBackend{
		write:       clipboard.WriteAll,
		unsupported: func() bool { return clipboard.Unsupported },
	}
}

func (c *clipboardBackend) Name() string { return "clipboard" }
func (c *clipboardBackend) Done() string { return "Transcript copied to clipboard" }

func (c *clipboardBackend) Available() error {
	if c.unsupported() {
		return fmt.Errorf("no clipboard utility found (install wl-clipboard, xclip or xsel)")
	}
	return nil
}

func (c *clipboardBackend) Insert(ctx context.Context, text string, timeout time.Duration) error {
	if err := c.write(text); err != nil {
		return fmt.Errorf("copy to clipboard: %w", err)
	}
	return nil
}

type wtypeBackend struct{}

func NewWtypeBackend() Backend { return wtypeBackend{} }

func (wtypeBackend) Name() string { return "wtype" }
func (wtypeBackend) Done() string { return "Transcript typed" }

func (wtypeBackend) Available() error {
	if _, err := exec.LookPath("wtype"); err != nil {
		return fmt.Errorf("wtype not found: %w (install wtype package)", err)
	}
	return nil
}

func (wtypeBackend) Insert(ctx context.Context, text string, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := exec.CommandContext(ctx, "wtype", "--", text).Run(); err != nil {
		return fmt.Errorf("wtype failed: %w", err)
	}
	return nil
}

type ydotoolBackend struct{}

func NewYdotoolBackend() Backend { return ydotoolBackend{} }

func (ydotoolBackend) Name() string { return "ydotool" }
func (ydotoolBackend) Done() string { return "Transcript typed" }

func (y ydotoolBackend) Available() error {
	if _, err := exec.LookPath("ydotool"); err != nil {
		return fmt.Errorf("ydotool not found: %w (install ydotool package)", err)
	}
	if _, err := exec.LookPath("ydotoold"); err != nil {
		return nil
	}

	socketPath := ydotoolSocket()
	if socketPath == "" {
		return fmt.Errorf("ydotoold socket not found - ensure ydotoold is running")
	}
	// ydotoold v1.0.4+ listens on a datagram socket; older versions use stream.
	conn, err := net.Dial("unixgram", socketPath)
	if err != nil {
		conn, err = net.DialTimeout("unix", socketPath, 500*time.Millisecond)
	}
	if err != nil {
		return fmt.Errorf("ydotoold not responding at %s: %w", socketPath, err)
	}
	return conn.Close()
}

func (ydotoolBackend) Insert(ctx context.Context, text string, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := exec.CommandContext(ctx, "ydotool", "type", "--", text).Run(); err != nil {
		return fmt.Errorf("ydotool failed: %w", err)
	}
	return nil
}

func ydotoolSocket() string {
	if sock := os.Getenv("YDOTOOL_SOCKET"); sock != "" {
		if _, err := os.Stat(sock); err == nil {
			return sock
		}
	}

	paths := []string{
		fmt.Sprintf("/run/user/%d/.ydotool_socket", os.Getuid()),
		"/tmp/.ydotool_socket",
	}
	if xdg := os.Getenv("XDG_RUNTIME_DIR"); xdg != "" {
		paths = append([]string{filepath.Join(xdg, ".ydotool_socket")}, paths...)
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}
