// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wallet

import (
	"fmt"
	"testing"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/wire"
	"github.com/btcsuite/coinview/outputtype"
	"github.com/btcsuite/coinview/wallet/coins"
	"github.com/davecgh/go-spew/spew"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

// checkConsistent verifies, under a single lock acquisition, that the
// enumeration agrees with the ledger it was computed from.
func checkConsistent(tx *ReadTx) error {
	res, err := tx.AvailableCoins(coins.DefaultEligibility())
	if err != nil {
		return err
	}

	all := res.All()
	if len(all) != res.Size() {
		return fmt.Errorf("size %d with %d outputs", res.Size(),
			len(all))
	}

	seen := make(map[wire.OutPoint]struct{}, len(all))
	for _, d := range all {
		if _, ok := seen[d.OutPoint]; ok {
			return fmt.Errorf("duplicate output %v", d.OutPoint)
		}
		seen[d.OutPoint] = struct{}{}

		if tx.IsSpent(d.OutPoint) {
			return fmt.Errorf("spent output returned: %v",
				spew.Sdump(d))
		}
	}

	again, err := tx.AvailableCoins(coins.DefaultEligibility())
	if err != nil {
		return err
	}
	if !res.Equal(again) {
		return fmt.Errorf("enumeration not repeatable: %v vs %v",
			spew.Sdump(res.All()), spew.Sdump(again.All()))
	}

	return nil
}

// TestConcurrentReadersWriters runs enumerations while another goroutine
// commits and mines transfers.
func TestConcurrentReadersWriters(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	h.mineBlocks(110)

	const (
		numReaders = 4
		numRounds  = 20
		numWrites  = 5
	)

	var g errgroup.Group
	for i := 0; i < numReaders; i++ {
		g.Go(func() error {
			for j := 0; j < numRounds; j++ {
				if err := h.w.View(checkConsistent); err != nil {
					return err
				}
			}
			return nil
		})
	}

	// The harness is not safe for concurrent use, so a single writer
	// drives it.
	types := []outputtype.OutputType{
		outputtype.Bech32m, outputtype.Bech32, outputtype.P2SHSegwit,
		outputtype.Legacy, outputtype.Bech32,
	}
	for i := 0; i < numWrites; i++ {
		tx := h.selfTransfer(btcutil.SatoshiPerBitcoin, types[i])
		h.mineBlock(tx)
	}

	require.NoError(t, g.Wait())
	require.NoError(t, h.w.View(checkConsistent))

	res := h.availableCoins()
	require.Equal(t, 2, res.Count(outputtype.Bech32m))
	require.Equal(t, 4, res.Count(outputtype.Bech32))
}
