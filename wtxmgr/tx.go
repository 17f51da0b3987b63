// Copyright (c) 2013-2017 The btcsuite developers
// Copyright (c) 2015-2016 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package wtxmgr holds the wallet's transaction ledger: every transaction the
// wallet has observed, which of its outputs the wallet owns, what spends
// them, and whether each transaction is confirmed, pending or conflicted.
//
// The Store does no locking of its own. Every method takes a
// *lockguard.Token minted by the mutex the Store was created with, so the
// wallet lock must be held for each call.
package wtxmgr

import (
	"bytes"
	"fmt"
	"maps"
	"slices"
	"sort"
	"time"

	"github.com/btcsuite/btcd/blockchain"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
	"github.com/btcsuite/coinview/internal/lockguard"
	"github.com/lightningnetwork/lnd/clock"
	"github.com/lightningnetwork/lnd/fn/v2"
)

// Block contains the minimum amount of data to uniquely identify any block on
// either the best or side chain.
type Block struct {
	Hash   chainhash.Hash
	Height int32
}

// TxState is the confirmation state of a transaction record. It is one of
// Unconfirmed, Confirmed or Conflicted.
type TxState interface {
	isTxState()

	fmt.Stringer
}

// Unconfirmed is the state of a transaction that is not part of the best
// chain but is not known to conflict with it either.
type Unconfirmed struct{}

// Confirmed is the state of a transaction mined in a block of the best chain.
type Confirmed struct {
	// Block is the block containing the transaction.
	Block Block

	// Index is the position of the transaction within the block.
	Index uint32
}

// Conflicted is the state of a transaction that can no longer confirm, either
// because it double spends a confirmed transaction or because the block that
// held it was reorganized out.
type Conflicted struct{}

func (Unconfirmed) isTxState() {}
func (Confirmed) isTxState()   {}
func (Conflicted) isTxState()  {}

// String returns a short description of the state.
func (Unconfirmed) String() string { return "unconfirmed" }

// String returns a short description of the state.
func (c Confirmed) String() string {
	return fmt.Sprintf("confirmed(%v@%d#%d)", c.Block.Hash, c.Block.Height,
		c.Index)
}

// String returns a short description of the state.
func (Conflicted) String() string { return "conflicted" }

// Credit marks a transaction output as belonging to the wallet.
type Credit struct {
	// Index is the output index within the transaction.
	Index uint32

	// Solvable is set when the wallet knows enough to produce a witness
	// or signature script for the output.
	Solvable bool

	// Change is set when the output pays back to the wallet as part of a
	// transaction the wallet created.
	Change bool

	// RedeemScript is the redeem script the wallet holds for a P2SH
	// output. Nil for every other output.
	RedeemScript []byte
}

// TxRecord represents a transaction the wallet finds relevant.
type TxRecord struct {
	MsgTx      wire.MsgTx
	Hash       chainhash.Hash
	Received   time.Time
	IsCoinBase bool

	// Credits are the wallet owned outputs sorted by index.
	Credits []Credit

	// State is the confirmation state. A nil State is treated as
	// Unconfirmed when the record is added to the store.
	State TxState
}

// NewTxRecordFromMsgTx creates a new unconfirmed transaction record that may
// be inserted into the store.
func NewTxRecordFromMsgTx(msgTx *wire.MsgTx, received time.Time,
	credits ...Credit) (*TxRecord, error) {

	if msgTx == nil {
		return nil, fmt.Errorf("%w: nil transaction", ErrInvalidRecord)
	}

	rec := &TxRecord{
		MsgTx:      *msgTx.Copy(),
		Hash:       msgTx.TxHash(),
		Received:   received,
		IsCoinBase: blockchain.IsCoinBaseTx(msgTx),
		Credits:    slices.Clone(credits),
		State:      Unconfirmed{},
	}
	sort.Slice(rec.Credits, func(i, j int) bool {
		return rec.Credits[i].Index < rec.Credits[j].Index
	})

	return rec, rec.validate()
}

// Height returns the height of the block containing the transaction, or -1
// if the record is not confirmed.
func (r *TxRecord) Height() int32 {
	if c, ok := r.State.(Confirmed); ok {
		return c.Block.Height
	}

	return -1
}

// Credit returns the credit for output index, if the wallet owns it.
func (r *TxRecord) Credit(index uint32) (Credit, bool) {
	i := sort.Search(len(r.Credits), func(i int) bool {
		return r.Credits[i].Index >= index
	})
	if i < len(r.Credits) && r.Credits[i].Index == index {
		return r.Credits[i], true
	}

	return Credit{}, false
}

// OutPoint returns the outpoint of output index of this transaction.
func (r *TxRecord) OutPoint(index uint32) wire.OutPoint {
	return wire.OutPoint{Hash: r.Hash, Index: index}
}

// validate checks the internal consistency of the record.
func (r *TxRecord) validate() error {
	if r.MsgTx.TxHash() != r.Hash {
		return fmt.Errorf("%w: hash %v does not match transaction",
			ErrInvalidRecord, r.Hash)
	}

	numOutputs := uint32(len(r.MsgTx.TxOut))
	for i, credit := range r.Credits {
		if credit.Index >= numOutputs {
			return fmt.Errorf("%w: credit index %d out of range for "+
				"%v with %d outputs", ErrInvalidRecord,
				credit.Index, r.Hash, numOutputs)
		}
		if i > 0 && r.Credits[i-1].Index >= credit.Index {
			return fmt.Errorf("%w: credits of %v are not strictly "+
				"ascending", ErrInvalidRecord, r.Hash)
		}
	}

	return nil
}

// Clone returns a deep copy of the record. The store clones every record it
// accepts so it never shares mutable state with its callers.
func (r *TxRecord) Clone() *TxRecord {
	c := *r
	c.MsgTx = *r.MsgTx.Copy()
	c.Credits = make([]Credit, len(r.Credits))
	for i, credit := range r.Credits {
		credit.RedeemScript = bytes.Clone(credit.RedeemScript)
		c.Credits[i] = credit
	}
	if c.State == nil {
		c.State = Unconfirmed{}
	}

	return &c
}

// LockID represents a unique context-specific ID assigned to an output lease.
type LockID [32]byte

// lease is an active reservation of an output.
type lease struct {
	id         LockID
	expiration time.Time
}

// LeasedOutput describes an output that is currently leased.
type LeasedOutput struct {
	OutPoint   wire.OutPoint
	LockID     LockID
	Expiration time.Time
}

// Store is the in-memory transaction ledger.
type Store struct {
	mu    *lockguard.Mutex
	clock clock.Clock

	records map[chainhash.Hash]*TxRecord

	// order holds every record hash sorted by its byte representation,
	// which is the canonical iteration order.
	order []chainhash.Hash

	// spends maps an outpoint to every known transaction spending it.
	spends map[wire.OutPoint][]chainhash.Hash

	leases map[wire.OutPoint]lease
}

// New creates an empty store guarded by mu. The clock is used to evaluate
// output lease expirations.
func New(mu *lockguard.Mutex, clk clock.Clock) *Store {
	return &Store{
		mu:      mu,
		clock:   clk,
		records: make(map[chainhash.Hash]*TxRecord),
		spends:  make(map[wire.OutPoint][]chainhash.Hash),
		leases:  make(map[wire.OutPoint]lease),
	}
}

// Clone returns a deep copy of the store guarded by the same mutex. Mutating
// either copy leaves the other untouched.
func (s *Store) Clone(tok *lockguard.Token) *Store {
	tok.Check(s.mu)

	c := &Store{
		mu:      s.mu,
		clock:   s.clock,
		records: make(map[chainhash.Hash]*TxRecord, len(s.records)),
		order:   slices.Clone(s.order),
		spends:  make(map[wire.OutPoint][]chainhash.Hash, len(s.spends)),
		leases:  maps.Clone(s.leases),
	}
	for hash, rec := range s.records {
		c.records[hash] = rec.Clone()
	}
	for op, spenders := range s.spends {
		c.spends[op] = slices.Clone(spenders)
	}

	return c
}

// AddTransaction inserts rec or updates the record with the same hash.
//
// Updating replaces the transaction payload and credits, but never moves the
// record backwards: only a Confirmed incoming state replaces the stored one.
// The inputs of rec are recorded as spends of the outpoints they reference.
// When the resulting record is confirmed, every other record spending one of
// the same outpoints is marked conflicted.
func (s *Store) AddTransaction(tok *lockguard.Token, rec *TxRecord) error {
	tok.Check(s.mu)

	if rec == nil {
		return fmt.Errorf("%w: nil record", ErrInvalidRecord)
	}
	if err := rec.validate(); err != nil {
		return err
	}

	stored := rec.Clone()
	stored.IsCoinBase = blockchain.IsCoinBaseTx(&stored.MsgTx)

	existing, ok := s.records[rec.Hash]
	if ok {
		if _, confirmed := stored.State.(Confirmed); !confirmed {
			stored.State = existing.State
		}
		log.Debugf("Updating transaction %v (state %v)", stored.Hash,
			stored.State)
	} else {
		s.insertOrder(stored.Hash)
		log.Debugf("Inserting transaction %v (state %v, %d credits)",
			stored.Hash, stored.State, len(stored.Credits))
	}
	s.records[stored.Hash] = stored

	if !stored.IsCoinBase {
		for _, txIn := range stored.MsgTx.TxIn {
			s.addSpend(txIn.PreviousOutPoint, stored.Hash)
		}
	}

	if _, confirmed := stored.State.(Confirmed); confirmed {
		s.conflictDoubleSpends(stored)
	}

	return nil
}

// MarkSpent records that the output op is consumed by the transaction spender.
// Both the output and the spending transaction must be known.
func (s *Store) MarkSpent(tok *lockguard.Token, op wire.OutPoint,
	spender chainhash.Hash) error {

	tok.Check(s.mu)

	parent, ok := s.records[op.Hash]
	if !ok || op.Index >= uint32(len(parent.MsgTx.TxOut)) {
		return fmt.Errorf("%w: %v", ErrUnknownOutpoint, op)
	}
	if _, ok := s.records[spender]; !ok {
		return fmt.Errorf("%w: spender %v", ErrUnknownTransaction,
			spender)
	}

	s.addSpend(op, spender)
	log.Debugf("Marked %v spent by %v", op, spender)

	return nil
}

// SetConfirmed moves the transaction into the block, at position index.
func (s *Store) SetConfirmed(tok *lockguard.Token, txid chainhash.Hash,
	block Block, index uint32) error {

	tok.Check(s.mu)

	rec, err := s.getRecord(txid).Unpack()
	if err != nil {
		return err
	}

	rec.State = Confirmed{Block: block, Index: index}
	log.Debugf("Confirmed transaction %v in block %v (height %d)", txid,
		block.Hash, block.Height)

	s.conflictDoubleSpends(rec)

	return nil
}

// SetUnconfirmed returns a confirmed transaction to the unconfirmed pool. It
// is the reorg path and leaves unconfirmed and conflicted records untouched.
func (s *Store) SetUnconfirmed(tok *lockguard.Token,
	txid chainhash.Hash) error {

	tok.Check(s.mu)

	rec, err := s.getRecord(txid).Unpack()
	if err != nil {
		return err
	}

	if _, confirmed := rec.State.(Confirmed); confirmed {
		rec.State = Unconfirmed{}
		log.Debugf("Moved transaction %v back to the unconfirmed pool",
			txid)
	}

	return nil
}

// SetConflicted marks the transaction and every known descendant spending its
// outputs as conflicted.
func (s *Store) SetConflicted(tok *lockguard.Token,
	txid chainhash.Hash) error {

	tok.Check(s.mu)

	if _, ok := s.records[txid]; !ok {
		return fmt.Errorf("%w: %v", ErrUnknownTransaction, txid)
	}

	s.markConflicted(txid)

	return nil
}

// DisconnectBlock reverts every record confirmed in block. Regular
// transactions go back to the unconfirmed pool, coinbase transactions can
// never be mined again and become conflicted along with their descendants.
// The hashes of the affected records are returned in canonical order.
func (s *Store) DisconnectBlock(tok *lockguard.Token,
	block Block) []chainhash.Hash {

	tok.Check(s.mu)

	var affected []chainhash.Hash
	for _, hash := range s.order {
		rec := s.records[hash]
		confirmed, ok := rec.State.(Confirmed)
		if !ok || confirmed.Block != block {
			continue
		}

		affected = append(affected, hash)
		if rec.IsCoinBase {
			s.markConflicted(hash)
			continue
		}

		rec.State = Unconfirmed{}
	}

	log.Debugf("Disconnected block %v (height %d): %d transactions "+
		"reverted", block.Hash, block.Height, len(affected))

	return affected
}

// LeaseOutput locks a wallet owned output to id for duration, hiding it from
// coin enumeration. Leasing an output again with the same id extends the
// lease. The absolute expiration time is returned.
func (s *Store) LeaseOutput(tok *lockguard.Token, id LockID, op wire.OutPoint,
	duration time.Duration) (time.Time, error) {

	tok.Check(s.mu)

	rec, ok := s.records[op.Hash]
	if !ok {
		return time.Time{}, fmt.Errorf("%w: %v", ErrUnknownOutpoint, op)
	}
	if _, owned := rec.Credit(op.Index); !owned {
		return time.Time{}, fmt.Errorf("%w: %v", ErrUnknownOutpoint, op)
	}

	now := s.clock.Now()
	if l, ok := s.leases[op]; ok && l.id != id && now.Before(l.expiration) {
		return time.Time{}, fmt.Errorf("%w: %v", ErrOutputAlreadyLeased,
			op)
	}

	expiration := now.Add(duration)
	s.leases[op] = lease{id: id, expiration: expiration}

	return expiration, nil
}

// ReleaseOutput removes the lease on op. Releasing an output that is not
// leased is not an error.
func (s *Store) ReleaseOutput(tok *lockguard.Token, id LockID,
	op wire.OutPoint) error {

	tok.Check(s.mu)

	l, ok := s.leases[op]
	if !ok {
		return nil
	}
	if l.id != id && s.clock.Now().Before(l.expiration) {
		return fmt.Errorf("%w: %v", ErrOutputUnlockNotAllowed, op)
	}

	delete(s.leases, op)

	return nil
}

// DeleteExpiredLeases drops every lease whose expiration has passed and
// returns how many were removed.
func (s *Store) DeleteExpiredLeases(tok *lockguard.Token) int {
	tok.Check(s.mu)

	now := s.clock.Now()
	var n int
	for op, l := range s.leases {
		if !now.Before(l.expiration) {
			delete(s.leases, op)
			n++
		}
	}

	return n
}

// insertOrder adds hash to the canonical order.
func (s *Store) insertOrder(hash chainhash.Hash) {
	i := sort.Search(len(s.order), func(i int) bool {
		return bytes.Compare(s.order[i][:], hash[:]) >= 0
	})
	s.order = slices.Insert(s.order, i, hash)
}

// addSpend records spender as a spender of op, ignoring duplicates.
func (s *Store) addSpend(op wire.OutPoint, spender chainhash.Hash) {
	if slices.Contains(s.spends[op], spender) {
		return
	}
	s.spends[op] = append(s.spends[op], spender)
}

// getRecord looks up txid, failing with ErrUnknownTransaction.
func (s *Store) getRecord(txid chainhash.Hash) fn.Result[*TxRecord] {
	rec, ok := s.records[txid]
	if !ok {
		return fn.Err[*TxRecord](
			fmt.Errorf("%w: %v", ErrUnknownTransaction, txid),
		)
	}

	return fn.Ok(rec)
}
