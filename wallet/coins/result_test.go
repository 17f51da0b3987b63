// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package coins

import (
	"testing"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/wire"
	"github.com/btcsuite/coinview/outputtype"
	"github.com/stretchr/testify/require"
)

func descriptor(index uint32, t outputtype.OutputType,
	value btcutil.Amount) Descriptor {

	return Descriptor{
		OutPoint:       wire.OutPoint{Index: index},
		Value:          value,
		Type:           t,
		EffectiveValue: value - 10,
	}
}

func TestResultAccessors(t *testing.T) {
	t.Parallel()

	res := NewResult()
	require.Zero(t, res.Size())
	require.Empty(t, res.Types())
	require.Empty(t, res.All())

	res.Add(descriptor(0, outputtype.Bech32m, 100))
	res.Add(descriptor(1, outputtype.Legacy, 200))
	res.Add(descriptor(2, outputtype.Bech32m, 300))

	require.Equal(t, 3, res.Size())
	require.Equal(
		t, []outputtype.OutputType{outputtype.Legacy, outputtype.Bech32m},
		res.Types(),
	)
	require.Equal(t, btcutil.Amount(600), res.TotalAmount())
	require.Equal(t, btcutil.Amount(570), res.TotalEffectiveAmount())
	require.Equal(t, btcutil.Amount(400), res.TypeAmount(outputtype.Bech32m))
	require.Zero(t, res.TypeAmount(outputtype.Unknown))

	// All walks the buckets in type order, keeping insertion order
	// within a bucket.
	var indexes []uint32
	for _, d := range res.All() {
		indexes = append(indexes, d.OutPoint.Index)
	}
	require.Equal(t, []uint32{1, 0, 2}, indexes)

	// Coins hands out a copy.
	bucket := res.Coins(outputtype.Bech32m)
	bucket[0].Value = 1
	require.Equal(t, btcutil.Amount(100), res.Coins(outputtype.Bech32m)[0].Value)
}

func TestResultErase(t *testing.T) {
	t.Parallel()

	res := NewResult()
	res.Add(descriptor(0, outputtype.Bech32, 100))
	res.Add(descriptor(1, outputtype.Bech32, 200))
	res.Add(descriptor(2, outputtype.Legacy, 300))

	removed := res.Erase(map[wire.OutPoint]struct{}{
		{Index: 0}: {},
		{Index: 2}: {},
		{Index: 9}: {},
	})
	require.Equal(t, 2, removed)
	require.Equal(t, 1, res.Size())
	require.Equal(t, []outputtype.OutputType{outputtype.Bech32}, res.Types())
	require.Equal(t, uint32(1), res.Coins(outputtype.Bech32)[0].OutPoint.Index)

	require.Zero(t, res.Erase(nil))
}

func TestResultEqual(t *testing.T) {
	t.Parallel()

	build := func() *Result {
		res := NewResult()
		res.Add(descriptor(0, outputtype.Bech32, 100))
		res.Add(descriptor(1, outputtype.Bech32, 200))
		return res
	}

	a, b := build(), build()
	require.True(t, a.Equal(b))

	// Order within a bucket matters.
	c := NewResult()
	c.Add(descriptor(1, outputtype.Bech32, 200))
	c.Add(descriptor(0, outputtype.Bech32, 100))
	require.False(t, a.Equal(c))

	b.Add(descriptor(2, outputtype.Unknown, 1))
	require.False(t, a.Equal(b))

	// Empty buckets left behind by Erase compare equal to missing ones.
	b.Erase(map[wire.OutPoint]struct{}{{Index: 2}: {}})
	require.True(t, a.Equal(b))

	// Nil results compare without panicking.
	var none *Result
	require.False(t, a.Equal(nil))
	require.False(t, none.Equal(a))
	require.True(t, none.Equal(nil))
	require.False(t, NewResult().Equal(nil))
}
