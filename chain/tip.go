// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package chain

import (
	"errors"
	"fmt"
	"slices"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/coinview/internal/lockguard"
	"github.com/btcsuite/coinview/wtxmgr"
)

var (
	// ErrNonSequentialBlock is returned when connecting a block whose
	// height is not exactly one above the current tip.
	ErrNonSequentialBlock = errors.New("block does not extend the tip")

	// ErrNoPriorTip is returned when disconnecting would remove the base
	// block the view was created with.
	ErrNoPriorTip = errors.New("no prior tip to disconnect to")
)

// View tracks the wallet's best chain tip. It keeps every block connected
// since the base it was created with so that disconnects can step back one
// block at a time.
//
// Like the ledger, a View does no locking of its own and every method takes
// a token of the mutex it was created with.
type View struct {
	mu *lockguard.Mutex

	// tips holds the base block at index zero followed by every block
	// connected on top of it.
	tips []wtxmgr.Block
}

// NewView returns a view whose tip is base. The base is usually the block the
// wallet was created at.
func NewView(mu *lockguard.Mutex, base wtxmgr.Block) *View {
	return &View{
		mu:   mu,
		tips: []wtxmgr.Block{base},
	}
}

// Clone returns a copy of the view guarded by the same mutex.
func (v *View) Clone(tok *lockguard.Token) *View {
	tok.Check(v.mu)

	return &View{
		mu:   v.mu,
		tips: slices.Clone(v.tips),
	}
}

// Current returns the best block.
func (v *View) Current(tok *lockguard.Token) wtxmgr.Block {
	tok.Check(v.mu)

	return v.tips[len(v.tips)-1]
}

// Base returns the block the view can not disconnect past.
func (v *View) Base(tok *lockguard.Token) wtxmgr.Block {
	tok.Check(v.mu)

	return v.tips[0]
}

// Connect makes block the new tip. The block must sit directly on top of the
// current tip.
func (v *View) Connect(tok *lockguard.Token, block wtxmgr.Block) error {
	tok.Check(v.mu)

	cur := v.tips[len(v.tips)-1]
	if block.Height != cur.Height+1 {
		return fmt.Errorf("%w: height %d on top of %d",
			ErrNonSequentialBlock, block.Height, cur.Height)
	}

	v.tips = append(v.tips, block)
	log.Debugf("Tip advanced to %v (height %d)", block.Hash, block.Height)

	return nil
}

// Disconnect removes the current tip and returns it. The previous block
// becomes the tip.
func (v *View) Disconnect(tok *lockguard.Token) (wtxmgr.Block, error) {
	tok.Check(v.mu)

	if len(v.tips) == 1 {
		return wtxmgr.Block{}, ErrNoPriorTip
	}

	removed := v.tips[len(v.tips)-1]
	v.tips = v.tips[:len(v.tips)-1]

	cur := v.tips[len(v.tips)-1]
	log.Debugf("Tip rewound from %v to %v (height %d)", removed.Hash,
		cur.Hash, cur.Height)

	return removed, nil
}

// Contains reports whether hash is the base or a connected block.
func (v *View) Contains(tok *lockguard.Token, hash chainhash.Hash) bool {
	tok.Check(v.mu)

	return slices.ContainsFunc(v.tips, func(b wtxmgr.Block) bool {
		return b.Hash == hash
	})
}

// Confirmations returns the depth of a block at height relative to the
// current tip.
func (v *View) Confirmations(tok *lockguard.Token, height int32) int32 {
	tok.Check(v.mu)

	return Confirmations(height, v.tips[len(v.tips)-1].Height)
}

// Confirmations returns the number of confirmations for a transaction in a
// block at height txHeight (or -1 for an unconfirmed tx) given the chain
// height curHeight. A txHeight above curHeight also yields zero, so callers
// that must not mistake such a transaction for an unconfirmed one check the
// height themselves.
func Confirmations(txHeight, curHeight int32) int32 {
	switch {
	case txHeight == -1, txHeight > curHeight:
		return 0
	default:
		return curHeight - txHeight + 1
	}
}
