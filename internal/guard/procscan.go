package guard

import (
	"bytes"
	"os/exec"
	"runtime"
	"strings"
)

// ggTokens are the executable-name fragments that identify a live Engine
// process, with and without the .exe suffix Windows binaries carry.
var ggTokens = []string{
	"SteelSeriesGG",
	"SteelSeriesEngine",
	"SteelSeriesEngine3",
	"SteelSeriesGG.exe",
	"SteelSeriesEngine.exe",
	"SteelSeriesEngine3.exe",
}

// processLister enumerates the executable names of every live process.
// Swappable in tests so the safety guard's decision logic can be exercised
// without depending on what happens to be running on the test machine.
type processLister interface {
	ListProcessNames() ([]string, error)
}

// osProcessLister shells out to the platform's process listing tool: no
// parsing library, just the command's own stable output format. No third-party process
// enumeration package appears anywhere in the reference corpus, so this
// stays on exec.Command + the OS tool rather than invent a dependency.
type osProcessLister struct{}

func (osProcessLister) ListProcessNames() ([]string, error) {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "windows":
		cmd = exec.Command("tasklist", "/fo", "csv", "/nh")
	case "darwin", "linux":
		cmd = exec.Command("ps", "-A", "-o", "comm=")
	default:
		cmd = exec.Command("ps", "-A", "-o", "comm=")
	}

	var out bytes.Buffer
	cmd.Stdout = &out
	if err := cmd.Run(); err != nil {
		return nil, err
	}

	lines := strings.Split(out.String(), "\n")
	names := make([]string, 0, len(lines))
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		// tasklist's CSV form quotes the first field: "name.exe","pid",...
		line = strings.Trim(strings.SplitN(line, ",", 2)[0], "\"")
		names = append(names, line)
	}
	return names, nil
}

// ggProcessRunning reports whether any name in names contains one of the
// known Engine executable tokens. Matching is a coarse substring test by
// design — see the process-detection fragility note in SPEC_FULL.md.
func ggProcessRunning(names []string) bool {
	for _, name := range names {
		for _, token := range ggTokens {
			if strings.Contains(name, token) {
				return true
			}
		}
	}
	return false
}
