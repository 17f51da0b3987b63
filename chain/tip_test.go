// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package chain

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcwallet/walletdb"
	_ "github.com/btcsuite/btcwallet/walletdb/bdb"
	"github.com/btcsuite/coinview/internal/lockguard"
	"github.com/btcsuite/coinview/wtxmgr"
	"github.com/stretchr/testify/require"
)

func block(height int32) wtxmgr.Block {
	var hash chainhash.Hash
	hash[0] = byte(height)
	hash[1] = byte(height >> 8)
	hash[31] = 0xcc

	return wtxmgr.Block{Hash: hash, Height: height}
}

func newTestView(t *testing.T, base wtxmgr.Block) (*View, *lockguard.Token) {
	t.Helper()

	var mu lockguard.Mutex
	v := NewView(&mu, base)

	tok := mu.Acquire()
	t.Cleanup(tok.Release)

	return v, tok
}

// TestConnectDisconnect checks the tip stack transitions.
func TestConnectDisconnect(t *testing.T) {
	t.Parallel()

	v, tok := newTestView(t, block(10))
	require.Equal(t, block(10), v.Current(tok))

	_, err := v.Disconnect(tok)
	require.ErrorIs(t, err, ErrNoPriorTip)

	require.ErrorIs(t, v.Connect(tok, block(12)), ErrNonSequentialBlock)
	require.ErrorIs(t, v.Connect(tok, block(10)), ErrNonSequentialBlock)
	require.Equal(t, block(10), v.Current(tok))

	require.NoError(t, v.Connect(tok, block(11)))
	require.NoError(t, v.Connect(tok, block(12)))
	require.Equal(t, block(12), v.Current(tok))
	require.True(t, v.Contains(tok, block(11).Hash))
	require.False(t, v.Contains(tok, block(13).Hash))

	removed, err := v.Disconnect(tok)
	require.NoError(t, err)
	require.Equal(t, block(12), removed)
	require.Equal(t, block(11), v.Current(tok))

	removed, err = v.Disconnect(tok)
	require.NoError(t, err)
	require.Equal(t, block(11), removed)
	require.Equal(t, block(10), v.Current(tok))
	require.Equal(t, block(10), v.Base(tok))

	_, err = v.Disconnect(tok)
	require.ErrorIs(t, err, ErrNoPriorTip)
}

// TestClone checks that a cloned view moves independently of the original.
func TestClone(t *testing.T) {
	t.Parallel()

	v, tok := newTestView(t, block(10))
	require.NoError(t, v.Connect(tok, block(11)))

	c := v.Clone(tok)
	require.NoError(t, v.Connect(tok, block(12)))
	require.Equal(t, block(11), c.Current(tok))

	_, err := c.Disconnect(tok)
	require.NoError(t, err)
	require.Equal(t, block(10), c.Current(tok))
	require.Equal(t, block(12), v.Current(tok))
}

// TestConfirmations checks the depth calculation.
func TestConfirmations(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		txHeight int32
		tip      int32
		want     int32
	}{
		{name: "unmined", txHeight: -1, tip: 100, want: 0},
		{name: "above tip", txHeight: 101, tip: 100, want: 0},
		{name: "at tip", txHeight: 100, tip: 100, want: 1},
		{name: "deep", txHeight: 1, tip: 100, want: 100},
		{name: "genesis", txHeight: 0, tip: 0, want: 1},
	}

	for _, test := range tests {
		test := test
		t.Run(test.name, func(t *testing.T) {
			t.Parallel()

			require.Equal(
				t, test.want,
				Confirmations(test.txHeight, test.tip),
			)
		})
	}

	v, tok := newTestView(t, block(50))
	require.Equal(t, int32(1), v.Confirmations(tok, 50))
	require.Equal(t, int32(0), v.Confirmations(tok, -1))
}

// TestSaveLoad checks that the tip stack survives a round trip through the
// database.
func TestSaveLoad(t *testing.T) {
	t.Parallel()

	dbPath := filepath.Join(t.TempDir(), "wallet.db")
	db, err := walletdb.Create("bdb", dbPath, true, 10*time.Second, false)
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, db.Close())
	})

	ns := []byte("chain")
	err = walletdb.Update(db, func(tx walletdb.ReadWriteTx) error {
		_, err := tx.CreateTopLevelBucket(ns)
		return err
	})
	require.NoError(t, err)

	v, tok := newTestView(t, block(0))

	// Nothing saved yet.
	err = walletdb.View(db, func(tx walletdb.ReadTx) error {
		ok, err := v.Load(tok, tx.ReadBucket(ns))
		require.False(t, ok)
		return err
	})
	require.NoError(t, err)

	for h := int32(1); h <= 300; h++ {
		require.NoError(t, v.Connect(tok, block(h)))
	}

	err = walletdb.Update(db, func(tx walletdb.ReadWriteTx) error {
		return v.Save(tok, tx.ReadWriteBucket(ns))
	})
	require.NoError(t, err)

	loaded, loadedTok := newTestView(t, block(0))
	err = walletdb.View(db, func(tx walletdb.ReadTx) error {
		ok, err := loaded.Load(loadedTok, tx.ReadBucket(ns))
		require.True(t, ok)
		return err
	})
	require.NoError(t, err)

	require.Equal(t, v.Current(tok), loaded.Current(loadedTok))
	require.Equal(t, v.Base(tok), loaded.Base(loadedTok))

	// The restored stack can be unwound all the way to the base.
	for h := int32(300); h >= 1; h-- {
		removed, err := loaded.Disconnect(loadedTok)
		require.NoError(t, err)
		require.Equal(t, block(h), removed)
	}
}
