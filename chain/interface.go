// Package chain holds the wallet's view of the best chain and the
// notifications a chain backend delivers to it.
package chain

import (
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/coinview/wtxmgr"
)

// Source is anything that delivers chain notifications to the wallet, such as
// an RPC chain server or an SPV client. The channel is closed when the
// source shuts down.
type Source interface {
	Notifications() <-chan interface{}
}

// Notification types.  These are defined here and processed from reading a
// notification channel to avoid handling these notifications directly in
// backend callbacks, which isn't very Go-like and doesn't allow blocking
// client calls.
type (
	// ConfirmedTx identifies a wallet transaction mined in a block along
	// with its position in the block.
	ConfirmedTx struct {
		Hash  chainhash.Hash
		Index uint32
	}

	// BlockConnected is a notification for a newly-attached block to the
	// best chain. Txs lists the already known wallet transactions the
	// block confirms.
	BlockConnected struct {
		Block wtxmgr.Block
		Txs   []ConfirmedTx
	}

	// BlockDisconnected is a notifcation that the block was reorganized
	// out of the best chain.
	BlockDisconnected wtxmgr.Block

	// RelevantTx is a notification for a transaction which spends wallet
	// inputs or pays to a watched address.
	RelevantTx struct {
		TxRecord *wtxmgr.TxRecord

		// Block is nil if the transaction is unmined.
		Block *wtxmgr.Block

		// Index is the position of the transaction in Block.
		Index uint32
	}
)
