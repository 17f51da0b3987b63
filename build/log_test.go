// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package build

import (
	"testing"

	"github.com/btcsuite/btclog"
	"github.com/stretchr/testify/require"
)

func TestNewSubLogger(t *testing.T) {
	t.Parallel()

	// Without a constructor nothing is logged unless the build writes to
	// stdout.
	logger := NewSubLogger("TEST", nil)
	if LoggingType != LogTypeStdOut || Deployment != Development {
		require.Equal(t, btclog.Disabled, logger)
	}

	var generated []string
	gen := func(subsystem string) btclog.Logger {
		generated = append(generated, subsystem)
		return btclog.Disabled
	}
	NewSubLogger("TEST", gen)

	if LoggingType == LogTypeDefault {
		require.Equal(t, []string{"TEST"}, generated)
	}
}

func TestTypeStrings(t *testing.T) {
	t.Parallel()

	require.Equal(t, "stdout", LogTypeStdOut.String())
	require.Equal(t, "unknown", LogType(9).String())
	require.Equal(t, "production", Production.String())
	require.Equal(t, "unknown", DeploymentType(9).String())
}
