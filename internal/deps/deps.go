// Package deps reports which external programs voxscribe shells out to are
// installed.
package deps

import (
	"os/exec"
	"strings"
)

// Status represents the installation status of a dependency
type Status struct {
	Installed bool
	Path      string
	Version   string
}

// Tool is an external program and what it is needed for.
type Tool struct {
	Name        string
	Purpose     string
	VersionArgs []string
	Required    bool
}

// Result pairs a tool with its status.
type Result struct {
	Tool
	Status
}

var (
	pwRecord   = Tool{Name: "pw-record", Purpose: "microphone capture", VersionArgs: []string{"--version"}, Required: true}
	wtype      = Tool{Name: "wtype", Purpose: "typing into the focused window"}
	ydotool    = Tool{Name: "ydotool", Purpose: "typing via uinput", VersionArgs: []string{"--version"}}
	notifySend = Tool{Name: "notify-send", Purpose: "desktop notifications", VersionArgs: []string{"--version"}}
)

// Needed lists the tools the given settings make use of. The clipboard
// backend needs none of them: it is handled in-process.
func Needed(backends []string, desktopNotifications bool) []Tool {
	tools := []Tool{pwRecord}
	for _, b := range backends {
		switch b {
		case "wtype":
			t := wtype
			t.Required = true
			tools = append(tools, t)
		case "ydotool":
			t := ydotool
			t.Required = true
			tools = append(tools, t)
		}
	}
	if desktopNotifications {
		tools = append(tools, notifySend)
	}
	return tools
}

// Check looks up name on PATH and asks it for a version when versionArgs
// is set. The version is the first line of its output.
func Check(name string, versionArgs ...string) Status {
	path, err := exec.LookPath(name)
	if err != nil {
		return Status{Installed: false}
	}

	status := Status{
		Installed: true,
		Path:      path,
	}
	if len(versionArgs) == 0 {
		return status
	}

	output, err := exec.Command(path, versionArgs...).Output()
	if err == nil {
		line, _, _ := strings.Cut(string(output), "\n")
		status.Version = strings.TrimSpace(line)
	}
	return status
}

func CheckAll(tools []Tool) []Result {
	results := make([]Result, 0, len(tools))
	for _, t := range tools {
		results = append(results, Result{Tool: t, Status: Check(t.Name, t.VersionArgs...)})
	}
	return results
}

// Missing returns the required tools that are not installed.
func Missing(results []Result) []Result {
	var missing []Result
	for _, r := range results {
		if r.Required && !r.Installed {
			missing = append(missing, r)
		}
	}
	return missing
}
