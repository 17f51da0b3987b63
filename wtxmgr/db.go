// Copyright (c) 2015 The btcsuite developers
// Copyright (c) 2015-2016 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wtxmgr

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"time"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
	"github.com/btcsuite/btcwallet/walletdb"
	"github.com/btcsuite/coinview/internal/lockguard"
	"github.com/lightningnetwork/lnd/tlv"
)

// Naming
//
// The following bucket keys are nested in the namespace handed to Save and
// Load:
//
//   records   txid -> TLV encoded record
//   spends    outpoint -> concatenated spender txids
//   leases    outpoint -> lock id | expiration (unix nanos, LE)
//
// Outpoints are keyed as the 32 byte hash followed by the little endian
// output index.

var (
	bucketRecords = []byte("records")
	bucketSpends  = []byte("spends")
	bucketLeases  = []byte("leases")
)

const (
	recordTypeTx        tlv.Type = 0
	recordTypeReceived  tlv.Type = 1
	recordTypeState     tlv.Type = 2
	recordTypeBlockHash tlv.Type = 3
	recordTypeHeight    tlv.Type = 4
	recordTypeIndex     tlv.Type = 5
	recordTypeCredits   tlv.Type = 6
)

const (
	stateTagUnconfirmed uint8 = 0
	stateTagConfirmed   uint8 = 1
	stateTagConflicted  uint8 = 2
)

const (
	creditFlagSolvable uint8 = 1 << iota
	creditFlagChange
)

// Save writes a complete snapshot of the store into ns, replacing whatever a
// previous Save left there.
func (s *Store) Save(tok *lockguard.Token, ns walletdb.ReadWriteBucket) error {
	tok.Check(s.mu)

	buckets := make(map[string]walletdb.ReadWriteBucket, 3)
	for _, key := range [][]byte{bucketRecords, bucketSpends, bucketLeases} {
		if ns.NestedReadWriteBucket(key) != nil {
			if err := ns.DeleteNestedBucket(key); err != nil {
				return fmt.Errorf("delete bucket %s: %w", key, err)
			}
		}

		b, err := ns.CreateBucket(key)
		if err != nil {
			return fmt.Errorf("create bucket %s: %w", key, err)
		}
		buckets[string(key)] = b
	}

	for _, hash := range s.order {
		v, err := serializeRecord(s.records[hash])
		if err != nil {
			return err
		}

		err = buckets[string(bucketRecords)].Put(hash[:], v)
		if err != nil {
			return fmt.Errorf("put record %v: %w", hash, err)
		}
	}

	for op, spenders := range s.spends {
		v := make([]byte, 0, len(spenders)*chainhash.HashSize)
		for _, spender := range spenders {
			v = append(v, spender[:]...)
		}

		err := buckets[string(bucketSpends)].Put(canonicalOutPoint(op), v)
		if err != nil {
			return fmt.Errorf("put spends of %v: %w", op, err)
		}
	}

	for op, l := range s.leases {
		var v [40]byte
		copy(v[:32], l.id[:])
		binary.LittleEndian.PutUint64(v[32:], uint64(l.expiration.UnixNano()))

		err := buckets[string(bucketLeases)].Put(canonicalOutPoint(op), v[:])
		if err != nil {
			return fmt.Errorf("put lease of %v: %w", op, err)
		}
	}

	log.Debugf("Saved %d records, %d spent outpoints and %d leases",
		len(s.records), len(s.spends), len(s.leases))

	return nil
}

// Load replaces the contents of the store with the snapshot found in ns. An
// empty namespace yields an empty store. The store is left untouched when
// the snapshot can not be decoded.
func (s *Store) Load(tok *lockguard.Token, ns walletdb.ReadBucket) error {
	tok.Check(s.mu)

	records := make(map[chainhash.Hash]*TxRecord)
	var order []chainhash.Hash
	spends := make(map[wire.OutPoint][]chainhash.Hash)
	leases := make(map[wire.OutPoint]lease)

	err := forEachIn(ns, bucketRecords, func(k, v []byte) error {
		rec, err := deserializeRecord(k, v)
		if err != nil {
			return err
		}

		records[rec.Hash] = rec

		// Bucket iteration is in key byte order, which is the
		// canonical order.
		order = append(order, rec.Hash)

		return nil
	})
	if err != nil {
		return err
	}

	err = forEachIn(ns, bucketSpends, func(k, v []byte) error {
		op, err := readCanonicalOutPoint(k)
		if err != nil {
			return err
		}
		if len(v)%chainhash.HashSize != 0 {
			return fmt.Errorf("%w: spends of %v", ErrCorruptRecord, op)
		}

		for i := 0; i < len(v); i += chainhash.HashSize {
			var spender chainhash.Hash
			copy(spender[:], v[i:i+chainhash.HashSize])
			spends[op] = append(spends[op], spender)
		}

		return nil
	})
	if err != nil {
		return err
	}

	err = forEachIn(ns, bucketLeases, func(k, v []byte) error {
		op, err := readCanonicalOutPoint(k)
		if err != nil {
			return err
		}
		if len(v) != 40 {
			return fmt.Errorf("%w: lease of %v", ErrCorruptRecord, op)
		}

		var l lease
		copy(l.id[:], v[:32])
		nanos := int64(binary.LittleEndian.Uint64(v[32:]))
		l.expiration = time.Unix(0, nanos)
		leases[op] = l

		return nil
	})
	if err != nil {
		return err
	}

	s.records = records
	s.order = order
	s.spends = spends
	s.leases = leases

	log.Infof("Loaded %d transaction records", len(records))

	return nil
}

// forEachIn iterates the nested bucket key of ns, if it exists.
func forEachIn(ns walletdb.ReadBucket, key []byte,
	f func(k, v []byte) error) error {

	b := ns.NestedReadBucket(key)
	if b == nil {
		return nil
	}

	return b.ForEach(f)
}

// canonicalOutPoint returns the 36 byte key of op.
func canonicalOutPoint(op wire.OutPoint) []byte {
	k := make([]byte, 36)
	copy(k, op.Hash[:])
	binary.LittleEndian.PutUint32(k[32:36], op.Index)

	return k
}

func readCanonicalOutPoint(k []byte) (wire.OutPoint, error) {
	var op wire.OutPoint
	if len(k) != 36 {
		return op, fmt.Errorf("%w: outpoint key of %d bytes",
			ErrCorruptRecord, len(k))
	}

	copy(op.Hash[:], k[:32])
	op.Index = binary.LittleEndian.Uint32(k[32:36])

	return op, nil
}

// serializeRecord encodes rec as a TLV stream.
func serializeRecord(rec *TxRecord) ([]byte, error) {
	var txBuf bytes.Buffer
	if err := rec.MsgTx.Serialize(&txBuf); err != nil {
		return nil, fmt.Errorf("serialize tx %v: %w", rec.Hash, err)
	}
	txBytes := txBuf.Bytes()

	var received uint64
	if !rec.Received.IsZero() {
		received = uint64(rec.Received.UnixNano())
	}

	var (
		stateTag  = stateTagUnconfirmed
		blockHash [32]byte
		height    uint32
		index     uint32
	)
	switch state := rec.State.(type) {
	case Confirmed:
		stateTag = stateTagConfirmed
		blockHash = state.Block.Hash
		height = uint32(state.Block.Height)
		index = state.Index

	case Conflicted:
		stateTag = stateTagConflicted
	}

	credits, err := serializeCredits(rec.Credits)
	if err != nil {
		return nil, err
	}

	stream, err := tlv.NewStream(
		tlv.MakePrimitiveRecord(recordTypeTx, &txBytes),
		tlv.MakePrimitiveRecord(recordTypeReceived, &received),
		tlv.MakePrimitiveRecord(recordTypeState, &stateTag),
		tlv.MakePrimitiveRecord(recordTypeBlockHash, &blockHash),
		tlv.MakePrimitiveRecord(recordTypeHeight, &height),
		tlv.MakePrimitiveRecord(recordTypeIndex, &index),
		tlv.MakePrimitiveRecord(recordTypeCredits, &credits),
	)
	if err != nil {
		return nil, err
	}

	var b bytes.Buffer
	if err := stream.Encode(&b); err != nil {
		return nil, fmt.Errorf("encode record %v: %w", rec.Hash, err)
	}

	return b.Bytes(), nil
}

// deserializeRecord decodes the record stored under key k.
func deserializeRecord(k, v []byte) (*TxRecord, error) {
	var (
		txBytes   []byte
		received  uint64
		stateTag  uint8
		blockHash [32]byte
		height    uint32
		index     uint32
		credits   []byte
	)

	stream, err := tlv.NewStream(
		tlv.MakePrimitiveRecord(recordTypeTx, &txBytes),
		tlv.MakePrimitiveRecord(recordTypeReceived, &received),
		tlv.MakePrimitiveRecord(recordTypeState, &stateTag),
		tlv.MakePrimitiveRecord(recordTypeBlockHash, &blockHash),
		tlv.MakePrimitiveRecord(recordTypeHeight, &height),
		tlv.MakePrimitiveRecord(recordTypeIndex, &index),
		tlv.MakePrimitiveRecord(recordTypeCredits, &credits),
	)
	if err != nil {
		return nil, err
	}
	if err := stream.Decode(bytes.NewReader(v)); err != nil {
		return nil, fmt.Errorf("%w: %x: %v", ErrCorruptRecord, k, err)
	}

	var msgTx wire.MsgTx
	if err := msgTx.Deserialize(bytes.NewReader(txBytes)); err != nil {
		return nil, fmt.Errorf("%w: %x: %v", ErrCorruptRecord, k, err)
	}

	var receivedAt time.Time
	if received != 0 {
		receivedAt = time.Unix(0, int64(received))
	}

	creditList, err := deserializeCredits(credits)
	if err != nil {
		return nil, fmt.Errorf("%w: %x: %v", ErrCorruptRecord, k, err)
	}

	rec, err := NewTxRecordFromMsgTx(&msgTx, receivedAt, creditList...)
	if err != nil {
		return nil, fmt.Errorf("%w: %x: %v", ErrCorruptRecord, k, err)
	}
	if !bytes.Equal(rec.Hash[:], k) {
		return nil, fmt.Errorf("%w: key %x holds transaction %v",
			ErrCorruptRecord, k, rec.Hash)
	}

	switch stateTag {
	case stateTagUnconfirmed:
		rec.State = Unconfirmed{}

	case stateTagConfirmed:
		rec.State = Confirmed{
			Block: Block{
				Hash:   chainhash.Hash(blockHash),
				Height: int32(height),
			},
			Index: index,
		}

	case stateTagConflicted:
		rec.State = Conflicted{}

	default:
		return nil, fmt.Errorf("%w: %x: state tag %d", ErrCorruptRecord,
			k, stateTag)
	}

	return rec, nil
}

func serializeCredits(credits []Credit) ([]byte, error) {
	var b bytes.Buffer
	err := wire.WriteVarInt(&b, 0, uint64(len(credits)))
	if err != nil {
		return nil, err
	}

	for _, credit := range credits {
		var hdr [5]byte
		binary.LittleEndian.PutUint32(hdr[:4], credit.Index)
		if credit.Solvable {
			hdr[4] |= creditFlagSolvable
		}
		if credit.Change {
			hdr[4] |= creditFlagChange
		}
		b.Write(hdr[:])

		err := wire.WriteVarBytes(&b, 0, credit.RedeemScript)
		if err != nil {
			return nil, err
		}
	}

	return b.Bytes(), nil
}

func deserializeCredits(v []byte) ([]Credit, error) {
	r := bytes.NewReader(v)

	n, err := wire.ReadVarInt(r, 0)
	if err != nil {
		return nil, err
	}

	// Each credit takes at least six bytes.
	if n > uint64(len(v)/6) {
		return nil, fmt.Errorf("credit count %d exceeds payload", n)
	}

	credits := make([]Credit, 0, n)
	for i := uint64(0); i < n; i++ {
		var hdr [5]byte
		if _, err := io.ReadFull(r, hdr[:]); err != nil {
			return nil, err
		}

		redeem, err := wire.ReadVarBytes(
			r, 0, txscript.MaxScriptSize, "redeemScript",
		)
		if err != nil {
			return nil, err
		}
		if len(redeem) == 0 {
			redeem = nil
		}

		credits = append(credits, Credit{
			Index:        binary.LittleEndian.Uint32(hdr[:4]),
			Solvable:     hdr[4]&creditFlagSolvable != 0,
			Change:       hdr[4]&creditFlagChange != 0,
			RedeemScript: redeem,
		})
	}

	return credits, nil
}

// UnminedTxs returns every unconfirmed record in dependency order, parents
// before children, so they can be handed to a broadcaster as is.
func (s *Store) UnminedTxs(tok *lockguard.Token) []*TxRecord {
	tok.Check(s.mu)

	var unmined []*TxRecord
	for _, hash := range s.order {
		rec := s.records[hash]
		if _, ok := rec.State.(Unconfirmed); ok {
			unmined = append(unmined, rec)
		}
	}

	return DependencySort(unmined)
}
