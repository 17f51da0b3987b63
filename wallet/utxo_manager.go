// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wallet

import (
	"time"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
	"github.com/btcsuite/coinview/wallet/coins"
	"github.com/btcsuite/coinview/wtxmgr"
	"github.com/lightningnetwork/lnd/fn/v2"
)

// The methods below each wrap a single operation in its own View or Update.
// Callers that need several operations to observe the same state use View or
// Update directly.

// AvailableCoins returns the outputs that may be spent under elig, bucketed
// by output type.
func (w *Wallet) AvailableCoins(elig coins.Eligibility) (*coins.Result,
	error) {

	var result *coins.Result
	err := w.View(func(tx *ReadTx) error {
		var err error
		result, err = tx.AvailableCoins(elig)
		return err
	})

	return result, err
}

// Balance returns the total value of the outputs available under elig.
func (w *Wallet) Balance(elig coins.Eligibility) (btcutil.Amount, error) {
	var balance btcutil.Amount
	err := w.View(func(tx *ReadTx) error {
		var err error
		balance, err = tx.Balance(elig)
		return err
	})

	return balance, err
}

// CurrentTip returns the wallet's best block.
func (w *Wallet) CurrentTip() wtxmgr.Block {
	var tip wtxmgr.Block
	_ = w.View(func(tx *ReadTx) error {
		tip = tx.Tip()
		return nil
	})

	return tip
}

// GetTx returns a copy of the record for txid.
func (w *Wallet) GetTx(txid chainhash.Hash) fn.Option[*wtxmgr.TxRecord] {
	var rec fn.Option[*wtxmgr.TxRecord]
	_ = w.View(func(tx *ReadTx) error {
		tx.Get(txid).WhenSome(func(r *wtxmgr.TxRecord) {
			rec = fn.Some(r.Clone())
		})
		return nil
	})

	return rec
}

// UnminedTxs returns copies of the unconfirmed records, parents before
// children.
func (w *Wallet) UnminedTxs() []*wtxmgr.TxRecord {
	var recs []*wtxmgr.TxRecord
	_ = w.View(func(tx *ReadTx) error {
		for _, rec := range tx.UnminedTxs() {
			recs = append(recs, rec.Clone())
		}
		return nil
	})

	return recs
}

// AddTransaction inserts or updates a record in the ledger.
func (w *Wallet) AddTransaction(rec *wtxmgr.TxRecord) error {
	return w.Update(func(tx *ReadWriteTx) error {
		return tx.AddTransaction(rec)
	})
}

// CommitTransaction records a transaction the wallet created or received
// outside of a block and returns a copy of the stored record.
func (w *Wallet) CommitTransaction(msgTx *wire.MsgTx,
	credits ...wtxmgr.Credit) fn.Result[*wtxmgr.TxRecord] {

	var rec *wtxmgr.TxRecord
	err := w.Update(func(tx *ReadWriteTx) error {
		stored, err := tx.CommitTransaction(msgTx, credits...).Unpack()
		if err != nil {
			return err
		}
		rec = stored.Clone()

		return nil
	})
	if err != nil {
		return fn.Err[*wtxmgr.TxRecord](err)
	}

	return fn.Ok(rec)
}

// MarkSpent records that op is consumed by spender.
func (w *Wallet) MarkSpent(op wire.OutPoint, spender chainhash.Hash) error {
	return w.Update(func(tx *ReadWriteTx) error {
		return tx.MarkSpent(op, spender)
	})
}

// LeaseOutput hides op from enumeration for duration under id and returns
// the expiration.
func (w *Wallet) LeaseOutput(id wtxmgr.LockID, op wire.OutPoint,
	duration time.Duration) (time.Time, error) {

	var expiry time.Time
	err := w.Update(func(tx *ReadWriteTx) error {
		var err error
		expiry, err = tx.LeaseOutput(id, op, duration)
		return err
	})

	return expiry, err
}

// ReleaseOutput drops the lease id holds on op.
func (w *Wallet) ReleaseOutput(id wtxmgr.LockID, op wire.OutPoint) error {
	return w.Update(func(tx *ReadWriteTx) error {
		return tx.ReleaseOutput(id, op)
	})
}

// ListLeasedOutputs returns every output under an unexpired lease.
func (w *Wallet) ListLeasedOutputs() []wtxmgr.LeasedOutput {
	var leased []wtxmgr.LeasedOutput
	_ = w.View(func(tx *ReadTx) error {
		leased = tx.ListLeasedOutputs()
		return nil
	})

	return leased
}
