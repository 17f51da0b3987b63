// Copyright (c) 2017-2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package build

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/jrick/logrotate/rotator"
)

const (
	// DefaultMaxLogFileSize is the size in KB at which the log file is
	// rolled.
	DefaultMaxLogFileSize = 10 * 1024

	// DefaultMaxLogFiles is the number of rolled log files kept.
	DefaultMaxLogFiles = 3
)

// RotatingLogWriter writes log output to stdout and, once InitLogRotator was
// called, to a size rotated log file.
type RotatingLogWriter struct {
	// stdout receives every write. It is os.Stdout unless replaced by a
	// test.
	stdout io.Writer

	rotator *rotator.Rotator
}

// A compile-time check to ensure RotatingLogWriter implements io.WriteCloser.
var _ io.WriteCloser = (*RotatingLogWriter)(nil)

// NewRotatingLogWriter creates a writer that only writes to stdout until
// InitLogRotator is called.
func NewRotatingLogWriter() *RotatingLogWriter {
	return &RotatingLogWriter{stdout: os.Stdout}
}

// InitLogRotator initializes the log file rotator to write logs to logFile and
// create roll files in the same directory. maxSizeKB is the size at which the
// file is rolled and maxFiles the number of rolled files kept. It must be
// closed on shutdown by calling Close.
func (r *RotatingLogWriter) InitLogRotator(logFile string, maxSizeKB int64,
	maxFiles int) error {

	logDir, _ := filepath.Split(logFile)
	if logDir != "" {
		if err := os.MkdirAll(logDir, 0700); err != nil {
			return fmt.Errorf("failed to create log directory: %w",
				err)
		}
	}

	rot, err := rotator.New(logFile, maxSizeKB, false, maxFiles)
	if err != nil {
		return fmt.Errorf("failed to create file rotator: %w", err)
	}
	r.rotator = rot

	return nil
}

// Write writes b to stdout and to the log rotator, if present.
func (r *RotatingLogWriter) Write(b []byte) (int, error) {
	if r.stdout != nil {
		_, _ = r.stdout.Write(b)
	}
	if r.rotator != nil {
		return r.rotator.Write(b)
	}

	return len(b), nil
}

// Close closes the underlying log rotator if it has already been created.
func (r *RotatingLogWriter) Close() error {
	if r.rotator != nil {
		return r.rotator.Close()
	}

	return nil
}
