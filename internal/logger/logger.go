// Package logger provides verbose logging for the stackup CLI.
// When verbose mode is enabled via the --verbose flag, debug messages
// are printed to stderr to help users follow each workflow step.
//
// Values registered with RegisterSecret are masked in every line.
package logger

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
)

// mask replaces registered secret values in output.
const mask = "****"

var (
	mu      sync.RWMutex
	verbose bool
	output  io.Writer = os.Stderr
	secrets []string
)

// SetVerbose enables or disables verbose logging.
func SetVerbose(v bool) {
	mu.Lock()
	defer mu.Unlock()
	verbose = v
}

// IsVerbose returns true if verbose mode is enabled.
func IsVerbose() bool {
	mu.RLock()
	defer mu.RUnlock()
	return verbose
}

// SetOutput sets the output writer for verbose logs.
// Defaults to os.Stderr. Useful for testing.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	output = w
}

// RegisterSecret masks value in all subsequent log lines.
// Empty values are ignored.
func RegisterSecret(value string) {
	if value == "" {
		return
	}
	mu.Lock()
	defer mu.Unlock()
	for _, s := range secrets {
		if s == value {
			return
		}
	}
	secrets = append(secrets, value)
}

// ResetSecrets forgets all registered secrets.
func ResetSecrets() {
	mu.Lock()
	defer mu.Unlock()
	secrets = nil
}

// Redact masks every registered secret in s.
func Redact(s string) string {
	mu.RLock()
	defer mu.RUnlock()
	return redact(s)
}

// redact masks secrets (caller must hold lock).
func redact(s string) string {
	for _, secret := range secrets {
		s = strings.ReplaceAll(s, secret, mask)
	}
	return s
}

// emit writes one prefixed line (caller must hold lock).
func emit(prefix, format string, args ...any) {
	fmt.Fprintln(output, redact(prefix+fmt.Sprintf(format, args...)))
}

// Debug prints a message if verbose mode is enabled.
func Debug(format string, args ...any) {
	mu.RLock()
	defer mu.RUnlock()
	if verbose {
		emit("[DEBUG] ", format, args...)
	}
}

// Section prints a section header if verbose mode is enabled.
func Section(name string) {
	mu.RLock()
	defer mu.RUnlock()
	if verbose {
		fmt.Fprintf(output, "\n=== %s ===\n", redact(name))
	}
}

// Info prints an informational message if verbose mode is enabled.
func Info(format string, args ...any) {
	mu.RLock()
	defer mu.RUnlock()
	if verbose {
		emit("[INFO] ", format, args...)
	}
}

// Warn prints a warning message if verbose mode is enabled.
func Warn(format string, args ...any) {
	mu.RLock()
	defer mu.RUnlock()
	if verbose {
		emit("[WARN] ", format, args...)
	}
}

// Error prints an error message regardless of verbose mode.
func Error(format string, args ...any) {
	mu.RLock()
	defer mu.RUnlock()
	emit("[ERROR] ", format, args...)
}

// Writer returns an io.Writer that turns each written line into a debug
// message tagged with prefix. Used to surface subprocess stderr.
func Writer(prefix string) io.Writer {
	return &lineWriter{prefix: prefix}
}

type lineWriter struct {
	mu     sync.Mutex
	prefix string
	buf    bytes.Buffer
}

func (w *lineWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.buf.Write(p)
	for {
		line, err := w.buf.ReadString('\n')
		if err != nil {
			// Keep the partial line for the next write.
			w.buf.Reset()
			w.buf.WriteString(line)
			break
		}
		line = strings.TrimRight(line, "\r\n")
		if line != "" {
			Debug("[%s] %s", w.prefix, line)
		}
	}
	return len(p), nil
}
