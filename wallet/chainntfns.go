// Copyright (c) 2013-2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wallet

import (
	"fmt"

	"github.com/btcsuite/coinview/chain"
	"github.com/btcsuite/coinview/internal/metrics"
	"github.com/btcsuite/coinview/wtxmgr"
)

// handleChainNotifications applies the notifications of src until the wallet
// is stopped or src closes its channel.
func (w *Wallet) handleChainNotifications(src chain.Source) {
	defer w.wg.Done()

	quit := w.quitChan()
	notifications := src.Notifications()
	for {
		select {
		case <-quit:
			return

		case n, ok := <-notifications:
			if !ok {
				// If the notification channel is closed, turn
				// off the wallet.
				log.Infof("Chain notification source closed")
				w.Stop()
				return
			}

			if err := w.HandleNotification(n); err != nil {
				log.Errorf("Cannot handle chain notification: "+
					"%v", err)
			}
		}
	}
}

// HandleNotification applies a single chain notification in its own Update.
// Notification types the wallet does not act on are ignored.
func (w *Wallet) HandleNotification(n interface{}) error {
	return w.Update(func(tx *ReadWriteTx) error {
		switch n := n.(type) {
		case chain.BlockConnected:
			return tx.ConnectBlock(n.Block, n.Txs)

		case chain.BlockDisconnected:
			tip := tx.Tip()
			if wtxmgr.Block(n) != tip {
				return fmt.Errorf("%w: disconnect of %v (height "+
					"%d) with tip %v (height %d)", ErrNotTip,
					n.Hash, n.Height, tip.Hash, tip.Height)
			}

			_, err := tx.DisconnectBlock()
			return err

		case chain.RelevantTx:
			return tx.AddRelevantTx(n.TxRecord, n.Block, n.Index)

		default:
			log.Tracef("Ignoring chain notification %T", n)
			return nil
		}
	})
}

// ConnectBlock confirms the listed wallet transactions in block and makes
// block the new tip. Every transaction must be known and block must extend
// the tip; both are checked before anything changes.
func (tx *ReadWriteTx) ConnectBlock(block wtxmgr.Block,
	txs []chain.ConfirmedTx) error {

	tip := tx.Tip()
	if block.Height != tip.Height+1 {
		return fmt.Errorf("%w: height %d on top of %d",
			chain.ErrNonSequentialBlock, block.Height, tip.Height)
	}
	for _, confirmed := range txs {
		if tx.Get(confirmed.Hash).IsNone() {
			return fmt.Errorf("%w: %v confirmed in block %v",
				wtxmgr.ErrUnknownTransaction, confirmed.Hash,
				block.Hash)
		}
	}

	for _, confirmed := range txs {
		err := tx.w.store.SetConfirmed(
			tx.tok, confirmed.Hash, block, confirmed.Index,
		)
		if err != nil {
			return err
		}
	}
	if err := tx.w.view.Connect(tx.tok, block); err != nil {
		return err
	}

	tx.w.metrics.Mutation(metrics.OpConnectBlock)
	tx.w.metrics.SetTipHeight(block.Height)

	log.Infof("Connected block %v (height %d) confirming %d wallet %s",
		block.Hash, block.Height, len(txs),
		pickNoun(len(txs), "transaction", "transactions"))

	return nil
}

// DisconnectBlock reverts the current tip. Transactions it confirmed return
// to the unconfirmed pool, its coinbase transactions become conflicted. The
// removed block is returned.
func (tx *ReadWriteTx) DisconnectBlock() (wtxmgr.Block, error) {
	tip := tx.Tip()
	if tip == tx.w.view.Base(tx.tok) {
		return wtxmgr.Block{}, chain.ErrNoPriorTip
	}

	reverted := tx.w.store.DisconnectBlock(tx.tok, tip)
	if _, err := tx.w.view.Disconnect(tx.tok); err != nil {
		return wtxmgr.Block{}, err
	}

	tx.w.metrics.Mutation(metrics.OpDisconnectBlock)
	tx.w.metrics.SetTipHeight(tx.Tip().Height)

	log.Infof("Disconnected block %v (height %d), %d wallet %s reverted",
		tip.Hash, tip.Height, len(reverted),
		pickNoun(len(reverted), "transaction", "transactions"))

	return tip, nil
}

// AddRelevantTx records a transaction observed in the mempool, or mined in
// block at position index when block is not nil.
func (tx *ReadWriteTx) AddRelevantTx(rec *wtxmgr.TxRecord,
	block *wtxmgr.Block, index uint32) error {

	if rec == nil {
		return fmt.Errorf("%w: nil record", wtxmgr.ErrInvalidRecord)
	}

	rec = rec.Clone()
	rec.State = wtxmgr.Unconfirmed{}
	if block != nil {
		rec.State = wtxmgr.Confirmed{Block: *block, Index: index}
	}

	return tx.AddTransaction(rec)
}
