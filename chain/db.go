// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package chain

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcwallet/walletdb"
	"github.com/btcsuite/coinview/internal/lockguard"
	"github.com/btcsuite/coinview/wtxmgr"
)

// ErrCorruptTips is returned when the persisted tip stack can not be decoded.
var ErrCorruptTips = errors.New("corrupt persisted chain tips")

// bucketTips holds the tip stack keyed by big endian height so that bucket
// iteration yields it base first.
var bucketTips = []byte("tips")

// Save writes the tip stack into ns, replacing any previous snapshot.
func (v *View) Save(tok *lockguard.Token, ns walletdb.ReadWriteBucket) error {
	tok.Check(v.mu)

	if ns.NestedReadWriteBucket(bucketTips) != nil {
		if err := ns.DeleteNestedBucket(bucketTips); err != nil {
			return fmt.Errorf("delete bucket %s: %w", bucketTips, err)
		}
	}

	b, err := ns.CreateBucket(bucketTips)
	if err != nil {
		return fmt.Errorf("create bucket %s: %w", bucketTips, err)
	}

	for _, tip := range v.tips {
		var k [4]byte
		binary.BigEndian.PutUint32(k[:], uint32(tip.Height))

		if err := b.Put(k[:], tip.Hash[:]); err != nil {
			return fmt.Errorf("put tip %d: %w", tip.Height, err)
		}
	}

	return nil
}

// Load replaces the tip stack with the one saved in ns. A namespace without
// a saved stack leaves the view untouched and reports false.
func (v *View) Load(tok *lockguard.Token,
	ns walletdb.ReadBucket) (bool, error) {

	tok.Check(v.mu)

	b := ns.NestedReadBucket(bucketTips)
	if b == nil {
		return false, nil
	}

	var tips []wtxmgr.Block
	err := b.ForEach(func(k, val []byte) error {
		if len(k) != 4 || len(val) != chainhash.HashSize {
			return fmt.Errorf("%w: entry %x", ErrCorruptTips, k)
		}

		tip := wtxmgr.Block{Height: int32(binary.BigEndian.Uint32(k))}
		copy(tip.Hash[:], val)

		if len(tips) > 0 && tips[len(tips)-1].Height+1 != tip.Height {
			return fmt.Errorf("%w: gap before height %d",
				ErrCorruptTips, tip.Height)
		}
		tips = append(tips, tip)

		return nil
	})
	if err != nil {
		return false, err
	}
	if len(tips) == 0 {
		return false, fmt.Errorf("%w: empty tip stack", ErrCorruptTips)
	}

	v.tips = tips
	log.Infof("Restored chain tip %v (height %d)", tips[len(tips)-1].Hash,
		tips[len(tips)-1].Height)

	return true, nil
}
