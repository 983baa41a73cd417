package claude

import (
	"bytes"
	"errors"
	"os"
	"os/exec"
	"strconv"
	"strings"
)

const (
	processPattern = "claude"
	// selfPattern identifies this tool's own processes, which must never
	// trip the guard even though their command lines contain "claude".
	selfPattern = "claude-use-bar"
)

// PgrepDetector finds running Claude Code processes via pgrep.
type PgrepDetector struct{}

// Processes returns the pids of running Claude Code processes. A pgrep
// exit status of 1 means no matches and is not an error. This tool's own
// processes are excluded from the result.
func (PgrepDetector) Processes() ([]int, error) {
	cmd := exec.Command("pgrep", "-fl", processPattern)
	var out bytes.Buffer
	cmd.Stdout = &out

	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && exitErr.ExitCode() == 1 {
			return nil, nil
		}
		return nil, err
	}

	return parseMatches(out.String(), os.Getpid(), os.Getppid()), nil
}

// parseMatches reads `pgrep -fl` output (one "pid command line" row per
// match) and drops this tool's own pids and any claude-use-bar command
// line. The guard watches for Claude Code, not for the tool running it.
func parseMatches(out string, selfPID, parentPID int) []int {
	var pids []int
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		pidField, cmdline, _ := strings.Cut(line, " ")
		pid, err := strconv.Atoi(pidField)
		if err != nil {
			continue
		}
		if pid == selfPID || pid == parentPID {
			continue
		}
		if strings.Contains(cmdline, selfPattern) {
			continue
		}
		pids = append(pids, pid)
	}
	return pids
}

// IsRunning reports whether any Claude Code process is running. Detection
// failures are treated as not running; the switch guard can be bypassed
// with force anyway.
func (d PgrepDetector) IsRunning() bool {
	pids, err := d.Processes()
	return err == nil && len(pids) > 0
}
