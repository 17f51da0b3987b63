// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package coins

import (
	"errors"
	"fmt"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/wire"
	"github.com/lightningnetwork/lnd/fn/v2"
)

// ErrInvalidEligibility is returned by Eligibility.Validate.
var ErrInvalidEligibility = errors.New("invalid eligibility")

// Params are the chain parameters the enumeration depends on.
type Params struct {
	// CoinbaseMaturity is the number of confirmations a coinbase output
	// needs before it may be spent.
	CoinbaseMaturity uint16
}

// ParamsFromChain extracts the enumeration parameters of a network.
func ParamsFromChain(p *chaincfg.Params) Params {
	return Params{CoinbaseMaturity: p.CoinbaseMaturity}
}

// Eligibility describes which wallet outputs a caller is willing to spend.
// The zero value admits every confirmed output and the unconfirmed outputs
// the wallet trusts.
type Eligibility struct {
	// MinConfs is the minimum number of confirmations an output needs.
	MinConfs int32

	// MaxConfs is the maximum number of confirmations an output may have.
	// Zero means unbounded.
	MaxConfs int32

	// SpendUnconfirmedChange lets trusted unconfirmed outputs through
	// regardless of MinConfs. Trusted outputs are those of transactions
	// the wallet funded entirely from its own trusted outputs.
	SpendUnconfirmedChange bool

	// IncludeUnsafe admits unconfirmed outputs the wallet does not trust,
	// e.g. incoming payments still in the mempool, provided MinConfs is
	// zero. They are otherwise never returned.
	IncludeUnsafe bool

	// RequireSolvable skips outputs the wallet can not produce a witness
	// or signature script for.
	RequireSolvable bool

	// Excluded outputs are never returned.
	Excluded map[wire.OutPoint]struct{}

	// Only, when set, restricts the result to the listed outputs.
	Only fn.Option[map[wire.OutPoint]struct{}]

	// MinAmount and MaxAmount bound the value of returned outputs. Zero
	// means unbounded.
	MinAmount btcutil.Amount
	MaxAmount btcutil.Amount

	// MaxCount stops the enumeration after that many outputs. Zero means
	// unbounded.
	MaxCount int

	// IncludeLeased returns outputs that are currently leased.
	IncludeLeased bool

	// FeeRate, in satoshis per kvB, is used to compute the effective
	// value of each output. Zero leaves the effective value equal to the
	// output value.
	FeeRate btcutil.Amount

	// DustRelayFee, in satoshis per kvB, skips outputs that would be dust
	// at that relay fee. Zero disables the check.
	DustRelayFee btcutil.Amount
}

// DefaultEligibility returns the policy wallets normally spend with: one
// confirmation, or none for the wallet's own trusted change.
func DefaultEligibility() Eligibility {
	return Eligibility{
		MinConfs:               1,
		SpendUnconfirmedChange: true,
	}
}

// Validate checks the eligibility for contradictory bounds.
func (e *Eligibility) Validate() error {
	switch {
	case e.MinConfs < 0:
		return fmt.Errorf("%w: negative minconf %d",
			ErrInvalidEligibility, e.MinConfs)

	case e.MaxConfs < 0:
		return fmt.Errorf("%w: negative maxconf %d",
			ErrInvalidEligibility, e.MaxConfs)

	case e.MaxConfs != 0 && e.MaxConfs < e.MinConfs:
		return fmt.Errorf("%w: maxconf %d below minconf %d",
			ErrInvalidEligibility, e.MaxConfs, e.MinConfs)

	case e.MinAmount < 0 || e.MaxAmount < 0:
		return fmt.Errorf("%w: negative amount bound",
			ErrInvalidEligibility)

	case e.MaxAmount != 0 && e.MaxAmount < e.MinAmount:
		return fmt.Errorf("%w: max amount %v below min amount %v",
			ErrInvalidEligibility, e.MaxAmount, e.MinAmount)

	case e.MaxCount < 0:
		return fmt.Errorf("%w: negative max count %d",
			ErrInvalidEligibility, e.MaxCount)

	case e.FeeRate < 0 || e.DustRelayFee < 0:
		return fmt.Errorf("%w: negative fee rate", ErrInvalidEligibility)
	}

	return nil
}

// admitsDepth applies the confirmation policy to an output with confs
// confirmations whose transaction is trusted or not. IncludeUnsafe only lifts
// the trust requirement on unconfirmed outputs, MinConfs still applies to
// them. SpendUnconfirmedChange is the one way around MinConfs and only for
// trusted outputs.
func (e *Eligibility) admitsDepth(confs int32, trusted bool) bool {
	if e.MaxConfs != 0 && confs > e.MaxConfs {
		return false
	}

	if confs == 0 && !trusted && !e.IncludeUnsafe {
		return false
	}

	if confs < e.MinConfs {
		return confs == 0 && trusted && e.SpendUnconfirmedChange
	}

	return true
}

// admitsOutPoint applies the caller's exclude and allow lists.
func (e *Eligibility) admitsOutPoint(op wire.OutPoint) bool {
	if _, ok := e.Excluded[op]; ok {
		return false
	}

	admitted := true
	e.Only.WhenSome(func(only map[wire.OutPoint]struct{}) {
		_, admitted = only[op]
	})

	return admitted
}

// admitsAmount applies the value window.
func (e *Eligibility) admitsAmount(v btcutil.Amount) bool {
	if v < e.MinAmount {
		return false
	}

	return e.MaxAmount == 0 || v <= e.MaxAmount
}
