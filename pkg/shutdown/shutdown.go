// Package shutdown handles fatal startup failures: it writes a crash
// dump next to the data directory so an operator can see why the
// process refused to come up, then exits. A corrupt history store is
// the main customer.
package shutdown

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"havenstore/pkg/logger"
)

// Fatal logs the failure, writes a crash dump under dataDir/crash and
// exits with status 2. dataDir may be empty; the dump then lands in
// ./crash.
func Fatal(reason string, err error, dataDir string) {
	logger.Error("startup_fatal", "reason", reason, "err", err)
	path, derr := writeDump(dataDir, reason, err)
	if derr != nil {
		fmt.Fprintf(os.Stderr, "failed to write crash dump: %v\n", derr)
	} else {
		logger.Error("crash_dump_written", "path", path)
		fmt.Fprintf(os.Stderr, "crash dump written: %s\n", path)
	}
	os.Exit(2)
}

func writeDump(dataDir, reason string, cause error) (string, error) {
	dir := "./crash"
	if dataDir != "" {
		dir = filepath.Join(dataDir, "crash")
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", err
	}

	f, err := os.CreateTemp(dir, ".crash-*.tmp")
	if err != nil {
		return "", err
	}
	tmp := f.Name()
	defer func() { _ = os.Remove(tmp) }()

	fmt.Fprintf(f, "time: %s\n", time.Now().UTC().Format(time.RFC3339))
	fmt.Fprintf(f, "reason: %s\n", reason)
	fmt.Fprintf(f, "error: %v\n", cause)
	fmt.Fprintf(f, "pid: %d\n", os.Getpid())
	fmt.Fprintf(f, "\n--- goroutine stacks ---\n")
	buf := make([]byte, 1<<20)
	n := runtime.Stack(buf, true)
	_, _ = f.Write(buf[:n])
	_ = f.Sync()
	_ = f.Close()

	path := filepath.Join(dir, fmt.Sprintf("crash-%d.log", time.Now().UnixNano()))
	if err := os.Rename(tmp, path); err != nil {
		return "", err
	}
	_ = os.Chmod(path, 0o600)
	return path, nil
}
