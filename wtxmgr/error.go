// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wtxmgr

import "errors"

var (
	// ErrUnknownTransaction is returned when an operation references a
	// transaction id that the store has never seen.
	ErrUnknownTransaction = errors.New("unknown transaction")

	// ErrUnknownOutpoint is returned when an operation references an
	// output that does not exist in any known transaction.
	ErrUnknownOutpoint = errors.New("unknown outpoint")

	// ErrInvalidRecord is returned when a transaction record is
	// malformed, e.g. its hash does not match the transaction or a credit
	// points past the last output.
	ErrInvalidRecord = errors.New("invalid transaction record")

	// ErrOutputAlreadyLeased is returned when leasing an output that is
	// currently leased under a different lock id.
	ErrOutputAlreadyLeased = errors.New("output already leased")

	// ErrOutputUnlockNotAllowed is returned when releasing an output lease
	// with a lock id other than the one that holds it.
	ErrOutputUnlockNotAllowed = errors.New("output unlock not allowed")

	// ErrCorruptRecord is returned when a persisted record can not be
	// decoded.
	ErrCorruptRecord = errors.New("corrupt persisted record")
)
