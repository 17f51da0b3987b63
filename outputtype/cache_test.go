// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package outputtype

import (
	"testing"

	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

// countingClassifier records how often it was consulted.
type countingClassifier struct {
	calls int
}

func (c *countingClassifier) ClassifyOutput(pkScript,
	redeemScript []byte) OutputType {

	c.calls++

	return ClassifyRedeem(pkScript, redeemScript)
}

// TestCachedClassifier checks that repeated lookups are served from the
// cache and that the script pair, not just the pk script, is the key.
func TestCachedClassifier(t *testing.T) {
	t.Parallel()

	inner := &countingClassifier{}
	c := NewCachedClassifier(inner, 16)

	p2wkh := append([]byte{0x00, 0x14}, make([]byte, 20)...)

	require.Equal(t, Bech32, c.ClassifyOutput(p2wkh, nil))
	require.Equal(t, Bech32, c.ClassifyOutput(p2wkh, nil))
	require.Equal(t, 1, inner.calls)
	require.Equal(t, 1, c.Len())

	require.Equal(t, Bech32, c.ClassifyOutput(p2wkh, []byte{0x51}))
	require.Equal(t, 2, inner.calls)
	require.Equal(t, 2, c.Len())
}

// TestCachedClassifierLongScripts checks that a pk script too long for a
// two byte length prefix does not share a key with a different split of the
// same bytes.
func TestCachedClassifierLongScripts(t *testing.T) {
	t.Parallel()

	inner := &countingClassifier{}
	c := NewCachedClassifier(inner, 16)

	long := make([]byte, 1<<16)
	long[0] = 0x51

	c.ClassifyOutput(long, nil)
	c.ClassifyOutput(nil, long)
	require.Equal(t, 2, inner.calls)
	require.Equal(t, 2, c.Len())
	require.NotEqual(t, cacheKey(long, nil), cacheKey(nil, long))

	// Splits of equal total length differ too.
	require.NotEqual(
		t, cacheKey([]byte{1, 2}, []byte{3}),
		cacheKey([]byte{1}, []byte{2, 3}),
	)
}

// TestCachedClassifierAgrees checks that caching never changes a result.
func TestCachedClassifierAgrees(t *testing.T) {
	t.Parallel()

	c := NewCachedClassifier(Standard, 8)

	rapid.Check(t, func(t *rapid.T) {
		pkScript := rapid.SliceOfN(rapid.Byte(), 0, 40).Draw(t, "pk")
		redeem := rapid.SliceOfN(rapid.Byte(), 0, 40).Draw(t, "redeem")

		want := ClassifyRedeem(pkScript, redeem)
		if got := c.ClassifyOutput(pkScript, redeem); got != want {
			t.Fatalf("cached %v, direct %v", got, want)
		}
	})
}
