// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wallet

import (
	"iter"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
	"github.com/btcsuite/coinview/internal/lockguard"
	"github.com/btcsuite/coinview/wallet/coins"
	"github.com/btcsuite/coinview/wtxmgr"
	"github.com/lightningnetwork/lnd/fn/v2"
)

// ReadTx is a read-only view of the wallet handed to View closures. It is
// only valid until the closure returns.
type ReadTx struct {
	w   *Wallet
	tok *lockguard.Token
}

// Tip returns the wallet's best block.
func (tx *ReadTx) Tip() wtxmgr.Block {
	return tx.w.view.Current(tx.tok)
}

// Get returns the record for txid.
//
// NOTE: The record is owned by the wallet and must not be modified or used
// after the closure returns. Use TxRecord.Clone to keep it.
func (tx *ReadTx) Get(txid chainhash.Hash) fn.Option[*wtxmgr.TxRecord] {
	return tx.w.store.Get(tx.tok, txid)
}

// Records yields every record in canonical order. The same ownership rules as
// for Get apply.
func (tx *ReadTx) Records() iter.Seq[*wtxmgr.TxRecord] {
	return tx.w.store.AllRecords(tx.tok)
}

// UnminedTxs returns the unconfirmed records, parents before children.
func (tx *ReadTx) UnminedTxs() []*wtxmgr.TxRecord {
	return tx.w.store.UnminedTxs(tx.tok)
}

// IsSpent reports whether op is consumed by a confirmed or pending
// transaction.
func (tx *ReadTx) IsSpent(op wire.OutPoint) bool {
	return tx.w.store.IsSpent(tx.tok, op)
}

// ListLeasedOutputs returns every output under an unexpired lease.
func (tx *ReadTx) ListLeasedOutputs() []wtxmgr.LeasedOutput {
	return tx.w.store.ListLeasedOutputs(tx.tok)
}

// AvailableCoins returns the wallet outputs that may be spent under elig,
// bucketed by output type.
func (tx *ReadTx) AvailableCoins(elig coins.Eligibility) (*coins.Result,
	error) {

	result, err := coins.Compute(
		tx.tok, tx.w.store, tx.w.view, tx.w.classifier, tx.w.params,
		elig,
	)
	if err != nil {
		return nil, err
	}

	tx.w.metrics.ObserveAvailable(result)

	return result, nil
}

// Balance returns the total value of the outputs AvailableCoins returns for
// elig.
func (tx *ReadTx) Balance(elig coins.Eligibility) (btcutil.Amount, error) {
	result, err := tx.AvailableCoins(elig)
	if err != nil {
		return 0, err
	}

	return result.TotalAmount(), nil
}
