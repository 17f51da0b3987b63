//go:build !debug && !trace && !nolog
// +build !debug,!trace,!nolog

package build

// LogLevel specifies the default log level.
var LogLevel = "info"
