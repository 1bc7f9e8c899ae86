package daemon

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	ps "github.com/mitchellh/go-ps"
)

// PidPath returns the pidfile that guards the daemon on socketPath.
func PidPath(socketPath string) string {
	return socketPath + ".pid"
}

// claimPidfile writes our pid to path unless another live process already
// holds it. A pidfile naming a dead process is taken over.
func claimPidfile(path string) error {
	if data, err := os.ReadFile(path); err == nil {
		if pid, err := strconv.Atoi(strings.TrimSpace(string(data))); err == nil && pid > 0 && pid != os.Getpid() {
			proc, err := ps.FindProcess(pid)
			if err == nil && proc != nil {
				return fmt.Errorf("daemon already running with pid %d (%s)", pid, proc.Executable())
			}
		}
	}
	if err := os.WriteFile(path, []byte(strconv.Itoa(os.Getpid())), 0o644); err != nil {
		return fmt.Errorf("write pidfile: %w", err)
	}
	return nil
}

// releasePidfile removes path if it still names this process.
func releasePidfile(path string) {
	data, err := os.ReadFile(path)
	if err != nil {
		return
	}
	if strings.TrimSpace(string(data)) == strconv.Itoa(os.Getpid()) {
		_ = os.Remove(path)
	}
}
