// Copyright (c) 2013-2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package config

import (
	"fmt"
	"sort"
	"strings"

	"github.com/btcsuite/btclog"
	"github.com/btcsuite/coinview/build"
	"github.com/btcsuite/coinview/chain"
	"github.com/btcsuite/coinview/wallet"
	"github.com/btcsuite/coinview/wallet/coins"
	"github.com/btcsuite/coinview/wtxmgr"
)

// Subsystem tags of the packages that log. When adding new subsystems, add
// a reference here and to the subsystemPackages map.
const (
	walletSubsystem = wallet.Subsystem
	txmgrSubsystem  = "TMGR"
	coinsSubsystem  = "COIN"
	chainSubsystem  = chain.Subsystem
)

// subsystemPackages maps each subsystem identifier to the function that
// installs its logger.
var subsystemPackages = map[string]func(btclog.Logger){
	walletSubsystem: wallet.UseLogger,
	txmgrSubsystem:  wtxmgr.UseLogger,
	coinsSubsystem:  coins.UseLogger,
	chainSubsystem:  chain.UseLogger,
}

// Loggers owns the subsystem loggers of the engine and the writer they share.
type Loggers struct {
	writer  *build.RotatingLogWriter
	loggers map[string]btclog.Logger
}

// NewLoggers creates a logger for every subsystem writing to w and installs
// them in their packages.
func NewLoggers(w *build.RotatingLogWriter) *Loggers {
	backendLog := btclog.NewBackend(w)

	l := &Loggers{
		writer:  w,
		loggers: make(map[string]btclog.Logger, len(subsystemPackages)),
	}
	for subsystemID, useLogger := range subsystemPackages {
		logger := build.NewSubLogger(subsystemID, backendLog.Logger)
		l.loggers[subsystemID] = logger
		useLogger(logger)
	}

	return l
}

// InitLogging creates the rotating log file in the configured directory,
// wires every subsystem to it and applies the configured debug level.
func (c *Config) InitLogging() (*Loggers, error) {
	w := build.NewRotatingLogWriter()
	err := w.InitLogRotator(c.LogFile(), c.MaxLogSize, c.MaxLogs)
	if err != nil {
		return nil, err
	}

	l := NewLoggers(w)
	if err := l.ParseAndSetDebugLevels(c.DebugLevel); err != nil {
		_ = l.Close()
		return nil, err
	}

	return l, nil
}

// Close closes the log rotator.
func (l *Loggers) Close() error {
	return l.writer.Close()
}

// SetLogLevel sets the logging level for provided subsystem. Invalid
// subsystems are ignored.
func (l *Loggers) SetLogLevel(subsystemID string, logLevel string) {
	// Ignore invalid subsystems.
	logger, ok := l.loggers[subsystemID]
	if !ok {
		return
	}

	// Defaults to info if the log level is invalid.
	level, _ := btclog.LevelFromString(logLevel)
	logger.SetLevel(level)
}

// SetLogLevels sets the log level for all subsystem loggers to the passed
// level.
func (l *Loggers) SetLogLevels(logLevel string) {
	for subsystemID := range l.loggers {
		l.SetLogLevel(subsystemID, logLevel)
	}
}

// SupportedSubsystems returns a sorted slice of the supported subsystems for
// logging purposes.
func (l *Loggers) SupportedSubsystems() []string {
	subsystems := make([]string, 0, len(l.loggers))
	for subsysID := range l.loggers {
		subsystems = append(subsystems, subsysID)
	}

	// Sort the subsystems for stable display.
	sort.Strings(subsystems)
	return subsystems
}

// Level returns the current level of a subsystem logger.
func (l *Loggers) Level(subsystemID string) (btclog.Level, bool) {
	logger, ok := l.loggers[subsystemID]
	if !ok {
		return btclog.LevelOff, false
	}

	return logger.Level(), true
}

// validLogLevel returns whether or not logLevel is a valid debug log level.
func validLogLevel(logLevel string) bool {
	_, ok := btclog.LevelFromString(logLevel)
	return ok
}

// validateDebugLevel checks the syntax of a debug level string without
// applying it.
func validateDebugLevel(debugLevel string) error {
	_, err := parseDebugLevels(debugLevel)
	return err
}

// parseDebugLevels splits a debug level string into either a single global
// level, keyed by the empty string, or subsystem/level pairs.
func parseDebugLevels(debugLevel string) (map[string]string, error) {
	// When the specified string doesn't have any delimiters, treat it as
	// the log level for all subsystems.
	if !strings.Contains(debugLevel, ",") &&
		!strings.Contains(debugLevel, "=") {

		if !validLogLevel(debugLevel) {
			str := "the specified debug level [%v] is invalid"
			return nil, fmt.Errorf(str, debugLevel)
		}

		return map[string]string{"": debugLevel}, nil
	}

	// Split the specified string into subsystem/level pairs while detecting
	// issues.
	levels := make(map[string]string)
	for _, logLevelPair := range strings.Split(debugLevel, ",") {
		if !strings.Contains(logLevelPair, "=") {
			str := "the specified debug level contains an invalid " +
				"subsystem/level pair [%v]"
			return nil, fmt.Errorf(str, logLevelPair)
		}

		// Extract the specified subsystem and log level.
		fields := strings.Split(logLevelPair, "=")
		subsysID, logLevel := fields[0], fields[1]

		// Validate subsystem.
		if _, exists := subsystemPackages[subsysID]; !exists {
			str := "the specified subsystem [%v] is invalid"
			return nil, fmt.Errorf(str, subsysID)
		}

		// Validate log level.
		if !validLogLevel(logLevel) {
			str := "the specified debug level [%v] is invalid"
			return nil, fmt.Errorf(str, logLevel)
		}

		levels[subsysID] = logLevel
	}

	return levels, nil
}

// ParseAndSetDebugLevels attempts to parse the specified debug level and set
// the levels accordingly. An appropriate error is returned if anything is
// invalid.
func (l *Loggers) ParseAndSetDebugLevels(debugLevel string) error {
	levels, err := parseDebugLevels(debugLevel)
	if err != nil {
		return err
	}

	if level, ok := levels[""]; ok {
		l.SetLogLevels(level)
		return nil
	}

	for subsysID, level := range levels {
		l.SetLogLevel(subsysID, level)
	}

	return nil
}
