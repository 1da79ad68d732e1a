package debug

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

var (
	mu      sync.Mutex
	logFile *os.File
)

// Init initializes debug logging to the working directory's .weft-debug.log
// file. Enabled by --verbose.
func Init(dir string) error {
	mu.Lock()
	defer mu.Unlock()

	if logFile != nil {
		return nil // Already initialized
	}

	path := filepath.Clean(filepath.Join(dir, ".weft-debug.log"))
	f, err := os.Create(path) //nolint:gosec // path is the user's own working directory
	if err != nil {
		return err
	}
	logFile = f
	return nil
}

// Log writes a timestamped debug message. A no-op until Init is called.
func Log(format string, args ...any) {
	mu.Lock()
	defer mu.Unlock()

	if logFile == nil {
		return
	}
	_, _ = fmt.Fprintf(logFile, time.Now().Format("15:04:05.000 ")+format+"\n", args...)
}

// Close closes the debug log file.
func Close() {
	mu.Lock()
	defer mu.Unlock()

	if logFile != nil {
		_ = logFile.Close()
		logFile = nil
	}
}
