// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package coins

import (
	"bytes"
	"slices"
	"time"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/wire"
	"github.com/btcsuite/coinview/outputtype"
)

// Descriptor carries everything a coin selector needs to know about an
// available output without going back to the ledger.
type Descriptor struct {
	// OutPoint identifies the output.
	OutPoint wire.OutPoint

	// Value is the amount locked by the output.
	Value btcutil.Amount

	// PkScript is the output script.
	PkScript []byte

	// RedeemScript is the redeem script the wallet holds for a P2SH
	// output, nil otherwise.
	RedeemScript []byte

	// Type is the bucket the output was classified into.
	Type outputtype.OutputType

	// Solvable is set when the wallet can produce the spending script.
	Solvable bool

	// Change is set for change outputs of wallet created transactions.
	Change bool

	// FromCoinBase is set for outputs of coinbase transactions.
	FromCoinBase bool

	// Trusted is set for confirmed outputs and for unconfirmed outputs of
	// transactions funded by the wallet alone.
	Trusted bool

	// Confirmations is the depth of the transaction, zero if unmined.
	Confirmations int32

	// Received is when the wallet first saw the transaction.
	Received time.Time

	// InputVSize is the estimated virtual size an input spending the
	// output adds to a transaction.
	InputVSize int

	// EffectiveValue is Value minus the fee to spend the output at the
	// requested fee rate.
	EffectiveValue btcutil.Amount
}

// Result is the set of available outputs bucketed by output type. Within a
// bucket outputs keep the order they were found in.
type Result struct {
	coins map[outputtype.OutputType][]Descriptor
}

// NewResult returns an empty result.
func NewResult() *Result {
	return &Result{
		coins: make(map[outputtype.OutputType][]Descriptor),
	}
}

// Add appends d to the bucket of its type.
func (r *Result) Add(d Descriptor) {
	r.coins[d.Type] = append(r.coins[d.Type], d)
}

// Size returns the number of outputs across all buckets.
func (r *Result) Size() int {
	var n int
	for _, bucket := range r.coins {
		n += len(bucket)
	}

	return n
}

// Count returns the number of outputs in the bucket for t.
func (r *Result) Count(t outputtype.OutputType) int {
	return len(r.coins[t])
}

// Coins returns a copy of the bucket for t.
func (r *Result) Coins(t outputtype.OutputType) []Descriptor {
	return slices.Clone(r.coins[t])
}

// All returns every output, bucket by bucket in outputtype.All order.
func (r *Result) All() []Descriptor {
	all := make([]Descriptor, 0, r.Size())
	for _, t := range outputtype.All {
		all = append(all, r.coins[t]...)
	}

	return all
}

// Types returns the output types with at least one output, in
// outputtype.All order.
func (r *Result) Types() []outputtype.OutputType {
	var types []outputtype.OutputType
	for _, t := range outputtype.All {
		if len(r.coins[t]) > 0 {
			types = append(types, t)
		}
	}

	return types
}

// TotalAmount returns the sum of all output values.
func (r *Result) TotalAmount() btcutil.Amount {
	var total btcutil.Amount
	for _, bucket := range r.coins {
		for _, d := range bucket {
			total += d.Value
		}
	}

	return total
}

// TypeAmount returns the sum of the output values in the bucket for t.
func (r *Result) TypeAmount(t outputtype.OutputType) btcutil.Amount {
	var total btcutil.Amount
	for _, d := range r.coins[t] {
		total += d.Value
	}

	return total
}

// TotalEffectiveAmount returns the sum of all effective values.
func (r *Result) TotalEffectiveAmount() btcutil.Amount {
	var total btcutil.Amount
	for _, bucket := range r.coins {
		for _, d := range bucket {
			total += d.EffectiveValue
		}
	}

	return total
}

// Erase removes the listed outputs from every bucket and returns how many
// were removed. Coin selection uses it to drop preselected inputs.
func (r *Result) Erase(ops map[wire.OutPoint]struct{}) int {
	var removed int
	for t, bucket := range r.coins {
		kept := slices.DeleteFunc(bucket, func(d Descriptor) bool {
			_, ok := ops[d.OutPoint]
			return ok
		})
		removed += len(bucket) - len(kept)

		if len(kept) == 0 {
			delete(r.coins, t)
			continue
		}
		r.coins[t] = kept
	}

	return removed
}

// Equal reports whether both results hold the same outputs in the same
// order in every bucket. A nil result only equals another nil result.
func (r *Result) Equal(other *Result) bool {
	if r == nil || other == nil {
		return r == other
	}

	for _, t := range outputtype.All {
		a, b := r.coins[t], other.coins[t]
		if !slices.EqualFunc(a, b, descriptorEqual) {
			return false
		}
	}

	return true
}

func descriptorEqual(a, b Descriptor) bool {
	return a.OutPoint == b.OutPoint &&
		a.Value == b.Value &&
		bytes.Equal(a.PkScript, b.PkScript) &&
		bytes.Equal(a.RedeemScript, b.RedeemScript) &&
		a.Type == b.Type &&
		a.Solvable == b.Solvable &&
		a.Change == b.Change &&
		a.FromCoinBase == b.FromCoinBase &&
		a.Trusted == b.Trusted &&
		a.Confirmations == b.Confirmations &&
		a.Received.Equal(b.Received) &&
		a.InputVSize == b.InputVSize &&
		a.EffectiveValue == b.EffectiveValue
}
