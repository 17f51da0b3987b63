// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wallet

import (
	"fmt"

	"github.com/btcsuite/btcwallet/walletdb"
	"github.com/btcsuite/coinview/internal/lockguard"
)

// Namespace bucket keys.
var (
	namespaceKey = []byte("coinview")
	wtxmgrKey    = []byte("wtxmgr")
	chainKey     = []byte("chain")
)

// Persist writes the wallet state to the database. Update already does so
// after every successful closure; Persist is for state changed by other
// means, such as the initial birthday tip of a new wallet.
func (w *Wallet) Persist() error {
	tok := w.mu.Acquire()
	defer tok.Release()

	return w.persist(tok)
}

// persist writes a full snapshot of the ledger and the tip stack. It is a
// no-op without a database.
func (w *Wallet) persist(tok *lockguard.Token) error {
	if w.db == nil {
		return nil
	}

	return walletdb.Update(w.db, func(dbtx walletdb.ReadWriteTx) error {
		ns, err := dbtx.CreateTopLevelBucket(namespaceKey)
		if err != nil {
			return fmt.Errorf("create namespace: %w", err)
		}

		ledgerNs, err := ns.CreateBucketIfNotExists(wtxmgrKey)
		if err != nil {
			return fmt.Errorf("create ledger bucket: %w", err)
		}
		if err := w.store.Save(tok, ledgerNs); err != nil {
			return err
		}

		chainNs, err := ns.CreateBucketIfNotExists(chainKey)
		if err != nil {
			return fmt.Errorf("create chain bucket: %w", err)
		}

		return w.view.Save(tok, chainNs)
	})
}

// load restores the state persist wrote. A database without wallet state
// leaves the wallet empty.
func (w *Wallet) load(tok *lockguard.Token) error {
	return walletdb.View(w.db, func(dbtx walletdb.ReadTx) error {
		ns := dbtx.ReadBucket(namespaceKey)
		if ns == nil {
			log.Infof("No saved wallet state, starting from birthday")
			return nil
		}

		if ledgerNs := ns.NestedReadBucket(wtxmgrKey); ledgerNs != nil {
			if err := w.store.Load(tok, ledgerNs); err != nil {
				return err
			}
		}

		chainNs := ns.NestedReadBucket(chainKey)
		if chainNs == nil {
			return nil
		}
		_, err := w.view.Load(tok, chainNs)

		return err
	})
}
