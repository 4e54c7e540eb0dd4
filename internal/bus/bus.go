// Package bus is the control channel between the CLI and the daemon: a unix
// socket carrying one command line per connection, and a PID file guarding
// against a second daemon.
package bus

import (
	"bufio"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"
)

const (
	SockName = "control.sock"
	PidName  = "voxscribe.pid"
	ProtoVer = "1.0"
)

// Command bytes. The rest of the request line is the argument.
const (
	CmdToggle     byte = 't'
	CmdPause      byte = 'p'
	CmdCancel     byte = 'c'
	CmdStatus     byte = 's'
	CmdTranscribe byte = 'f'
	CmdStats      byte = 'x'
	CmdResetStats byte = 'r'
	CmdVersion    byte = 'v'
	CmdQuit       byte = 'q'
)

// Dir returns ~/.cache/voxscribe, honouring XDG_CACHE_HOME.
func Dir() (string, error) {
	dir, err := os.UserCacheDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "voxscribe"), nil
}

func SockPath() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, SockName), nil
}

func PidPath() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, PidName), nil
}

// Listen opens the control socket at path, replacing a stale one.
func Listen(path string) (net.Listener, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, err
	}
	_ = os.Remove(path)
	return net.Listen("unix", path)
}

// Request is one parsed command line.
type Request struct {
	Cmd byte
	Arg string
}

// ReadRequest reads a single command line from r.
func ReadRequest(r *bufio.Reader) (Request, error) {
	line, err := r.ReadString('\n')
	if err != nil && line == "" {
		return Request{}, err
	}
	line = strings.TrimRight(line, "\r\n")
	if line == "" {
		return Request{}, errors.New("empty request")
	}
	return Request{Cmd: line[0], Arg: strings.TrimSpace(line[1:])}, nil
}

// SendCommand sends cmd with an optional argument and returns the single
// response line without its newline. timeout bounds the whole exchange;
// zero means no deadline.
func SendCommand(path string, cmd byte, arg string, timeout time.Duration) (string, error) {
	c, err := net.Dial("unix", path)
	if err != nil {
		return "", fmt.Errorf("connect to daemon: %w", err)
	}
	defer c.Close()

	if timeout > 0 {
		if err := c.SetDeadline(time.Now().Add(timeout)); err != nil {
			return "", err
		}
	}

	line := string(cmd)
	if arg != "" {
		line += " " + arg
	}
	if _, err := c.Write([]byte(line + "\n")); err != nil {
		return "", err
	}

	resp, err := bufio.NewReader(c).ReadString('\n')
	if err != nil && resp == "" {
		return "", err
	}
	return strings.TrimRight(resp, "\n"), nil
}

// PidFile records the running daemon's PID.
type PidFile struct {
	path string
}

func NewPidFile(path string) *PidFile {
	return &PidFile{path: path}
}

func (p *PidFile) Path() string { return p.path }

// CheckExisting fails when the PID file names a live process. Stale or
// malformed files are removed.
func (p *PidFile) CheckExisting() error {
	pidData, err := os.ReadFile(p.path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}

	pid, err := strconv.Atoi(strings.TrimSpace(string(pidData)))
	if err != nil || pid <= 0 || !processAlive(pid) {
		return p.Remove()
	}
	return fmt.Errorf("daemon already running with PID %d", pid)
}

func processAlive(pid int) bool {
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	err = proc.Signal(syscall.Signal(0))
	return err == nil || errors.Is(err, syscall.EPERM)
}

func (p *PidFile) Create() error {
	if err := os.MkdirAll(filepath.Dir(p.path), 0o700); err != nil {
		return err
	}
	return os.WriteFile(p.path, []byte(strconv.Itoa(os.Getpid())), 0o600)
}

func (p *PidFile) Remove() error {
	err := os.Remove(p.path)
	if os.IsNotExist(err) {
		return nil
	}
	return err
}
