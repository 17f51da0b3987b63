// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wtxmgr

import (
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
)

// conflictDoubleSpends marks every record other than rec that spends one of
// rec's previous outpoints as conflicted. rec must be confirmed; a
// transaction double spending a mined one can never confirm itself.
func (s *Store) conflictDoubleSpends(rec *TxRecord) {
	if rec.IsCoinBase {
		return
	}

	for _, txIn := range rec.MsgTx.TxIn {
		for _, spender := range s.spends[txIn.PreviousOutPoint] {
			if spender == rec.Hash {
				continue
			}

			other := s.records[spender]
			if other == nil {
				continue
			}
			if _, ok := other.State.(Conflicted); ok {
				continue
			}

			log.Infof("Transaction %v double spends %v with mined "+
				"transaction %v, marking it conflicted",
				spender, txIn.PreviousOutPoint, rec.Hash)

			s.markConflicted(spender)
		}
	}
}

// markConflicted marks txid and, transitively, every known transaction
// spending one of its outputs as conflicted.
func (s *Store) markConflicted(txid chainhash.Hash) {
	queue := []chainhash.Hash{txid}
	seen := map[chainhash.Hash]struct{}{txid: {}}

	for len(queue) > 0 {
		hash := queue[0]
		queue = queue[1:]

		rec := s.records[hash]
		if rec == nil {
			continue
		}
		if _, ok := rec.State.(Conflicted); !ok {
			log.Debugf("Marking transaction %v conflicted (was %v)",
				hash, rec.State)
			rec.State = Conflicted{}
		}

		for i := range rec.MsgTx.TxOut {
			op := wire.OutPoint{Hash: hash, Index: uint32(i)}
			for _, child := range s.spends[op] {
				if _, ok := seen[child]; ok {
					continue
				}
				seen[child] = struct{}{}
				queue = append(queue, child)
			}
		}
	}
}

// isTrusted reports whether rec can be relied upon to confirm. Mined records
// are trusted, conflicted ones never are. An unconfirmed record is trusted
// only when every input spends a wallet credit of a trusted parent, i.e. the
// wallet itself funded it. cache memoizes results for one evaluation pass and
// also breaks cycles.
func (s *Store) isTrusted(rec *TxRecord, cache map[chainhash.Hash]bool) bool {
	switch rec.State.(type) {
	case Confirmed:
		return true

	case Conflicted:
		return false
	}

	if trusted, ok := cache[rec.Hash]; ok {
		return trusted
	}
	cache[rec.Hash] = false

	if rec.IsCoinBase || len(rec.MsgTx.TxIn) == 0 {
		return false
	}

	for _, txIn := range rec.MsgTx.TxIn {
		prevOut := txIn.PreviousOutPoint

		parent, ok := s.records[prevOut.Hash]
		if !ok {
			return false
		}
		if _, owned := parent.Credit(prevOut.Index); !owned {
			return false
		}
		if !s.isTrusted(parent, cache) {
			return false
		}
	}

	cache[rec.Hash] = true

	return true
}
