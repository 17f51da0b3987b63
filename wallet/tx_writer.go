// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wallet

import (
	"time"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
	"github.com/btcsuite/coinview/internal/metrics"
	"github.com/btcsuite/coinview/wtxmgr"
	"github.com/lightningnetwork/lnd/fn/v2"
)

// ReadWriteTx is the handle handed to Update closures. It is only valid until
// the closure returns.
type ReadWriteTx struct {
	ReadTx
}

// AddTransaction inserts or updates a record in the ledger.
func (tx *ReadWriteTx) AddTransaction(rec *wtxmgr.TxRecord) error {
	if err := tx.w.store.AddTransaction(tx.tok, rec); err != nil {
		return err
	}
	tx.w.metrics.Mutation(metrics.OpAddTransaction)

	return nil
}

// CommitTransaction records a transaction the wallet created or received
// outside of a block. credits name the outputs that pay to the wallet. The
// stored record is returned under the ownership rules of ReadTx.Get.
func (tx *ReadWriteTx) CommitTransaction(msgTx *wire.MsgTx,
	credits ...wtxmgr.Credit) fn.Result[*wtxmgr.TxRecord] {

	rec, err := wtxmgr.NewTxRecordFromMsgTx(
		msgTx, tx.w.clock.Now(), credits...,
	)
	if err != nil {
		return fn.Err[*wtxmgr.TxRecord](err)
	}

	if err := tx.AddTransaction(rec); err != nil {
		return fn.Err[*wtxmgr.TxRecord](err)
	}

	log.Infof("Committed transaction %v with %d wallet %s", rec.Hash,
		len(rec.Credits), pickNoun(len(rec.Credits), "output", "outputs"))

	return fn.Ok(tx.w.store.Get(tx.tok, rec.Hash).UnsafeFromSome())
}

// MarkSpent records that op is consumed by spender.
func (tx *ReadWriteTx) MarkSpent(op wire.OutPoint,
	spender chainhash.Hash) error {

	if err := tx.w.store.MarkSpent(tx.tok, op, spender); err != nil {
		return err
	}
	tx.w.metrics.Mutation(metrics.OpMarkSpent)

	return nil
}

// SetConfirmed moves txid into block at position index.
func (tx *ReadWriteTx) SetConfirmed(txid chainhash.Hash, block wtxmgr.Block,
	index uint32) error {

	err := tx.w.store.SetConfirmed(tx.tok, txid, block, index)
	if err != nil {
		return err
	}
	tx.w.metrics.Mutation(metrics.OpSetConfirmed)

	return nil
}

// SetConflicted marks txid and its descendants as conflicted.
func (tx *ReadWriteTx) SetConflicted(txid chainhash.Hash) error {
	if err := tx.w.store.SetConflicted(tx.tok, txid); err != nil {
		return err
	}
	tx.w.metrics.Mutation(metrics.OpSetConflicted)

	return nil
}

// LeaseOutput hides op from enumeration for duration under id and returns
// the expiration.
func (tx *ReadWriteTx) LeaseOutput(id wtxmgr.LockID, op wire.OutPoint,
	duration time.Duration) (time.Time, error) {

	expiry, err := tx.w.store.LeaseOutput(tx.tok, id, op, duration)
	if err != nil {
		return time.Time{}, err
	}
	tx.w.metrics.Mutation(metrics.OpLeaseOutput)

	return expiry, nil
}

// ReleaseOutput drops the lease id holds on op.
func (tx *ReadWriteTx) ReleaseOutput(id wtxmgr.LockID,
	op wire.OutPoint) error {

	if err := tx.w.store.ReleaseOutput(tx.tok, id, op); err != nil {
		return err
	}
	tx.w.metrics.Mutation(metrics.OpReleaseOutput)

	return nil
}

// DeleteExpiredLeases drops every expired lease and returns how many there
// were.
func (tx *ReadWriteTx) DeleteExpiredLeases() int {
	n := tx.w.store.DeleteExpiredLeases(tx.tok)
	if n > 0 {
		tx.w.metrics.Mutation(metrics.OpExpireLeases)
	}

	return n
}
