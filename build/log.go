// Copyright (c) 2015-2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package build

import (
	"os"

	"github.com/btcsuite/btclog"
)

// LogType is an indicating the type of logging specified by the build flag.
type LogType byte

const (
	// LogTypeNone indicates no logging.
	LogTypeNone LogType = iota

	// LogTypeStdOut all logging is written directly to stdout.
	LogTypeStdOut

	// LogTypeDefault logs through the sub logger constructor of the
	// caller, normally a backend writing to a RotatingLogWriter.
	LogTypeDefault
)

// String returns a human readable identifier for the logging type.
func (t LogType) String() string {
	switch t {
	case LogTypeNone:
		return "none"
	case LogTypeStdOut:
		return "stdout"
	case LogTypeDefault:
		return "default"
	default:
		return "unknown"
	}
}

// SubLoggerGen creates the logger of a subsystem, e.g. btclog.Backend.Logger.
type SubLoggerGen func(subsystem string) btclog.Logger

// NewSubLogger constructs a new subsystem log for the current build.
//
// Production builds, and development builds using the default log type, use
// genSubLogger and fall back to a disabled logger when it is nil. Development
// builds tagged stdlog write every subsystem straight to stdout at the level
// selected by the loglevel build tags, which is what unit tests use.
func NewSubLogger(subsystem string, genSubLogger SubLoggerGen) btclog.Logger {
	if Deployment == Development && LoggingType == LogTypeStdOut {
		return newStdoutLogger(subsystem)
	}

	if LoggingType == LogTypeNone || genSubLogger == nil {
		return btclog.Disabled
	}

	return genSubLogger(subsystem)
}

// newStdoutLogger returns a logger for subsystem writing to stdout at the
// build's log level.
func newStdoutLogger(subsystem string) btclog.Logger {
	logger := btclog.NewBackend(os.Stdout).Logger(subsystem)

	level, _ := btclog.LevelFromString(LogLevel)
	logger.SetLevel(level)

	return logger
}
