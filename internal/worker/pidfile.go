package worker

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"syscall"
	"time"
)

// PIDFileName is the file a running pool writes under the data directory.
// Line one is the supervising PID, line two the worker count.
const PIDFileName = "worker.pid"

func PIDFilePath(dataDir string) string {
	return filepath.Join(dataDir, PIDFileName)
}

func writePIDFile(path string, count int) error {
	contents := fmt.Sprintf("%d\n%d\n", os.Getpid(), count)
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		return fmt.Errorf("failed to write PID file: %w", err)
	}
	return nil
}

func removePIDFile(path string, logger *slog.Logger) {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		logger.Warn("failed to remove PID file", slog.Any("error", err))
	}
}

func readPIDFile(path string) (pid, count int, err error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, 0, err
	}
	count = 1
	if n, _ := fmt.Sscanf(string(data), "%d\n%d", &pid, &count); n < 1 {
		return 0, 0, fmt.Errorf("invalid PID file format")
	}
	return pid, count, nil
}

// ActiveWorkers reports the worker count recorded by a pool running in
// another process, or zero when none is alive. A stale PID file (process
// gone) counts as no workers.
func ActiveWorkers(dataDir string) int {
	pid, count, err := readPIDFile(PIDFilePath(dataDir))
	if err != nil {
		return 0
	}
	if !processAlive(pid) {
		return 0
	}
	return count
}

// SignalStop asks the pool process recorded in the PID file to shut down
// and waits briefly for it to exit. Returns false when no pool is running.
func SignalStop(dataDir string) (bool, error) {
	path := PIDFilePath(dataDir)
	pid, _, err := readPIDFile(path)
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to read PID file: %w", err)
	}

	proc, err := os.FindProcess(pid)
	if err != nil || !processAlive(pid) {
		os.Remove(path)
		return false, nil
	}
	if err := proc.Signal(os.Interrupt); err != nil {
		os.Remove(path)
		return false, nil
	}

	// Give the pool a moment to finish in-flight cycles.
	for i := 0; i < 20; i++ {
		time.Sleep(250 * time.Millisecond)
		if !processAlive(pid) {
			os.Remove(path)
			return true, nil
		}
	}
	return true, nil
}

func processAlive(pid int) bool {
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	return proc.Signal(syscall.Signal(0)) == nil
}
