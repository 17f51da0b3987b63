// Copyright (c) 2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wtxmgr_test

import (
	"bytes"
	"math/rand"
	"testing"
	"time"

	"github.com/btcsuite/btcd/wire"
	"github.com/btcsuite/coinview/wtxmgr"
	"github.com/stretchr/testify/require"
)

// createTx is a helper method to create random transactions that spend
// particular inputs.
func createTx(t *testing.T, numOutputs int,
	inputs ...wire.OutPoint) *wire.MsgTx {

	t.Helper()

	tx := wire.NewMsgTx(1)
	if len(inputs) == 0 {
		// A random previous outpoint keeps the transaction from being
		// mistaken for a coinbase.
		var prev wire.OutPoint
		_, err := rand.Read(prev.Hash[:])
		require.NoError(t, err)
		tx.AddTxIn(&wire.TxIn{PreviousOutPoint: prev})
	} else {
		for _, input := range inputs {
			tx.AddTxIn(&wire.TxIn{PreviousOutPoint: input})
		}
	}
	for i := 0; i < numOutputs; i++ {
		var pkScript [32]byte
		_, err := rand.Read(pkScript[:])
		require.NoError(t, err)

		tx.AddTxOut(&wire.TxOut{
			Value:    rand.Int63n(1e8) + 1,
			PkScript: pkScript[:],
		})
	}

	return tx
}

// getOutPoint returns the outpoint for the output with the given index in the
// transaction.
func getOutPoint(tx *wire.MsgTx, index uint32) wire.OutPoint {
	return wire.OutPoint{Hash: tx.TxHash(), Index: index}
}

// newRecord wraps tx in a record owning the given outputs.
func newRecord(t *testing.T, tx *wire.MsgTx,
	credits ...wtxmgr.Credit) *wtxmgr.TxRecord {

	t.Helper()

	rec, err := wtxmgr.NewTxRecordFromMsgTx(
		tx, time.Unix(1700000000, 0), credits...,
	)
	require.NoError(t, err)

	return rec
}

// TestDependencySort ensures that transactions are topologically sorted by
// their dependency order under multiple scenarios. A transaction (a) can depend
// on another (b) as long as (a) spends an output created in (b).
func TestDependencySort(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string

		// setup is in charge of setting the dependency graph and
		// returning the transactions in their expected sorted order.
		setup func(t *testing.T) []*wire.MsgTx
	}{
		{
			name: "single dependency chain",
			setup: func(t *testing.T) []*wire.MsgTx {
				// a -> b -> c
				a := createTx(t, 1)
				b := createTx(t, 1, getOutPoint(a, 0))
				c := createTx(t, 1, getOutPoint(b, 0))
				return []*wire.MsgTx{a, b, c}
			},
		},
		{
			name: "double dependency chain",
			setup: func(t *testing.T) []*wire.MsgTx {
				// a -> b
				// a -> c
				// c -> d
				// d -> b
				a := createTx(t, 2)
				c := createTx(t, 1, getOutPoint(a, 1))
				d := createTx(t, 1, getOutPoint(c, 0))
				b := createTx(t, 1, getOutPoint(a, 0), getOutPoint(d, 0))
				return []*wire.MsgTx{a, c, d, b}
			},
		},
		{
			name: "multi dependency chain",
			setup: func(t *testing.T) []*wire.MsgTx {
				// a -> e
				// a -> c
				// e -> c
				// c -> g
				// a -> b
				// g -> b
				// e -> f
				// c -> f
				// g -> f
				// b -> f
				// b -> d
				// f -> d
				a := createTx(t, 3)

				a0 := getOutPoint(a, 0)
				e := createTx(t, 2, a0)

				a1 := getOutPoint(a, 1)
				e0 := getOutPoint(e, 0)
				c := createTx(t, 2, a1, e0)

				c0 := getOutPoint(c, 0)
				g := createTx(t, 2, c0)

				a2 := getOutPoint(a, 2)
				g0 := getOutPoint(g, 0)
				b := createTx(t, 1, a2, g0)

				e1 := getOutPoint(e, 1)
				c1 := getOutPoint(c, 1)
				g1 := getOutPoint(g, 1)
				b0 := getOutPoint(b, 0)
				f := createTx(t, 1, e1, c1, g1, b0)

				f0 := getOutPoint(f, 0)
				d := createTx(t, 1, b0, f0)

				return []*wire.MsgTx{a, e, c, g, b, f, d}
			},
		},
	}

	for _, test := range tests {
		test := test
		t.Run(test.name, func(t *testing.T) {
			t.Parallel()

			exp := test.setup(t)

			recs := make([]*wtxmgr.TxRecord, 0, len(exp))
			for _, tx := range exp {
				recs = append(recs, newRecord(t, tx))
			}

			// The input order must not matter.
			rand.Shuffle(len(recs), func(i, j int) {
				recs[i], recs[j] = recs[j], recs[i]
			})

			sorted := wtxmgr.DependencySort(recs)
			require.Len(t, sorted, len(exp))
			for i, tx := range exp {
				require.Equal(t, tx.TxHash(), sorted[i].Hash)
			}
		})
	}
}

// TestDependencySortTieBreak checks that independent transactions come out in
// hash byte order.
func TestDependencySortTieBreak(t *testing.T) {
	t.Parallel()

	var recs []*wtxmgr.TxRecord
	for i := 0; i < 10; i++ {
		recs = append(recs, newRecord(t, createTx(t, 1)))
	}

	sorted := wtxmgr.DependencySort(recs)
	require.Len(t, sorted, len(recs))
	for i := 1; i < len(sorted); i++ {
		require.Negative(t, bytes.Compare(
			sorted[i-1].Hash[:], sorted[i].Hash[:],
		))
	}
}
