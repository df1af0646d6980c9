package camerasrc

import (
	"context"
	"os"
	"os/exec"
	"regexp"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
)

// KillDeviceHolders terminates any process already holding devicePath, so a
// crashed previous run's FFmpeg process never blocks a fresh negotiation
// from opening the device. Adapted from the teacher's
// internal/helpers/kill_device_holders.go, which ran this before every
// capture start for the same reason; here it is invoked once before
// NegotiateFormat and again inside the CameraDisconnected recovery path.
//
// Strategy: find holders via `lsof -t`, falling back to `fuser -v`; exclude
// our own PID; SIGTERM, wait a grace period, then SIGKILL survivors;
// escalate to `sudo fuser -k` on a permission error.
func KillDeviceHolders(log *logrus.Logger, devicePath string, enabled bool) bool {
	return killDeviceHoldersWithGrace(log, devicePath, enabled, 400*time.Millisecond)
}

func killDeviceHoldersWithGrace(log *logrus.Logger, devicePath string, enabled bool, grace time.Duration) bool {
	if !enabled {
		return false
	}

	pids := pidsFromLsof(devicePath)
	if len(pids) == 0 {
		pids = pidsFromFuser(devicePath)
	}

	delete(pids, os.Getpid())
	if len(pids) == 0 {
		return false
	}

	log.WithField("device", devicePath).WithField("pids", sortedKeys(pids)).
		Warn("killing processes holding camera device")

	for pid := range pids {
		if err := syscall.Kill(pid, syscall.SIGTERM); err != nil {
			if isPermissionError(err) {
				runCleanupCmd("sudo", "fuser", "-k", devicePath)
				break
			}
			log.WithError(err).WithField("pid", pid).Warn("failed to SIGTERM device holder")
		}
	}

	time.Sleep(grace)

	for pid := range pids {
		if !isPIDAlive(pid) {
			continue
		}
		if err := syscall.Kill(pid, syscall.SIGKILL); err != nil {
			if isPermissionError(err) {
				runCleanupCmd("sudo", "fuser", "-k", devicePath)
			} else {
				log.WithError(err).WithField("pid", pid).Warn("failed to SIGKILL device holder")
			}
		}
	}

	return true
}

func pidsFromLsof(devicePath string) map[int]struct{} {
	out := runCleanupCmd("lsof", "-t", devicePath)
	pids := make(map[int]struct{})
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		if pid, err := strconv.Atoi(line); err == nil && pid > 0 {
			pids[pid] = struct{}{}
		}
	}
	return pids
}

var digitRegexp = regexp.MustCompile(`\b(\d+)\b`)

func pidsFromFuser(devicePath string) map[int]struct{} {
	out := runCleanupCmd("fuser", "-v", devicePath)
	pids := make(map[int]struct{})
	for _, match := range digitRegexp.FindAllString(out, -1) {
		if pid, err := strconv.Atoi(match); err == nil && pid > 0 {
			pids[pid] = struct{}{}
		}
	}
	return pids
}

func isPIDAlive(pid int) bool {
	return syscall.Kill(pid, 0) == nil
}

func runCleanupCmd(name string, args ...string) string {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Env = os.Environ()
	out, err := cmd.Output()
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(out))
}

func isPermissionError(err error) bool {
	return err == syscall.EPERM || err == syscall.EACCES
}

func sortedKeys(m map[int]struct{}) []int {
	keys := make([]int, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	for i := 1; i < len(keys); i++ {
		j := i
		for j > 0 && keys[j-1] > keys[j] {
			keys[j-1], keys[j] = keys[j], keys[j-1]
			j--
		}
	}
	return keys
}
