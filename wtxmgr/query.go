// Copyright (c) 2015-2017 The btcsuite developers
// Copyright (c) 2015-2016 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wtxmgr

import (
	"bytes"
	"iter"
	"slices"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
	"github.com/btcsuite/coinview/internal/lockguard"
	"github.com/lightningnetwork/lnd/fn/v2"
)

// Get returns the record for txid.
//
// NOTE: The returned record is owned by the store and must not be modified.
func (s *Store) Get(tok *lockguard.Token,
	txid chainhash.Hash) fn.Option[*TxRecord] {

	tok.Check(s.mu)

	rec, ok := s.records[txid]
	if !ok {
		return fn.None[*TxRecord]()
	}

	return fn.Some(rec)
}

// Len returns the number of records in the store.
func (s *Store) Len(tok *lockguard.Token) int {
	tok.Check(s.mu)

	return len(s.records)
}

// AllRecords returns a sequence over every record in canonical order, which is
// the byte order of the transaction hashes. The sequence may be iterated any
// number of times and yields the same order as long as the store is not
// modified. The lock must remain held while iterating.
//
// NOTE: The yielded records are owned by the store and must not be modified.
func (s *Store) AllRecords(tok *lockguard.Token) iter.Seq[*TxRecord] {
	tok.Check(s.mu)

	return func(yield func(*TxRecord) bool) {
		tok.Check(s.mu)

		for _, hash := range s.order {
			if !yield(s.records[hash]) {
				return
			}
		}
	}
}

// Spenders returns the hashes of every known transaction spending op, in the
// order they were recorded.
func (s *Store) Spenders(tok *lockguard.Token,
	op wire.OutPoint) []chainhash.Hash {

	tok.Check(s.mu)

	return slices.Clone(s.spends[op])
}

// IsSpent reports whether op is consumed by a transaction that is confirmed or
// still pending. Spends by conflicted transactions do not count.
func (s *Store) IsSpent(tok *lockguard.Token, op wire.OutPoint) bool {
	tok.Check(s.mu)

	return s.isSpent(op)
}

func (s *Store) isSpent(op wire.OutPoint) bool {
	for _, spender := range s.spends[op] {
		rec, ok := s.records[spender]
		if !ok {
			continue
		}

		switch rec.State.(type) {
		case Confirmed, Unconfirmed:
			return true
		}
	}

	return false
}

// IsTrusted reports whether rec is confirmed, or is an unconfirmed
// transaction funded entirely by trusted wallet outputs.
func (s *Store) IsTrusted(tok *lockguard.Token, rec *TxRecord) bool {
	tok.Check(s.mu)

	return s.isTrusted(rec, make(map[chainhash.Hash]bool))
}

// TrustCache returns a function that evaluates IsTrusted while sharing
// intermediate results across calls. It is only valid while the store is not
// modified.
func (s *Store) TrustCache(tok *lockguard.Token) func(*TxRecord) bool {
	tok.Check(s.mu)

	cache := make(map[chainhash.Hash]bool)

	return func(rec *TxRecord) bool {
		tok.Check(s.mu)

		return s.isTrusted(rec, cache)
	}
}

// IsLeased reports whether op is currently leased.
func (s *Store) IsLeased(tok *lockguard.Token, op wire.OutPoint) bool {
	tok.Check(s.mu)

	l, ok := s.leases[op]

	return ok && s.clock.Now().Before(l.expiration)
}

// ListLeasedOutputs returns every unexpired lease sorted by outpoint.
func (s *Store) ListLeasedOutputs(tok *lockguard.Token) []LeasedOutput {
	tok.Check(s.mu)

	now := s.clock.Now()
	leased := make([]LeasedOutput, 0, len(s.leases))
	for op, l := range s.leases {
		if !now.Before(l.expiration) {
			continue
		}

		leased = append(leased, LeasedOutput{
			OutPoint:   op,
			LockID:     l.id,
			Expiration: l.expiration,
		})
	}

	slices.SortFunc(leased, func(a, b LeasedOutput) int {
		return compareOutPoints(a.OutPoint, b.OutPoint)
	})

	return leased
}

// compareOutPoints orders outpoints by hash bytes, then index.
func compareOutPoints(a, b wire.OutPoint) int {
	if c := bytes.Compare(a.Hash[:], b.Hash[:]); c != 0 {
		return c
	}

	switch {
	case a.Index < b.Index:
		return -1

	case a.Index > b.Index:
		return 1
	}

	return 0
}
