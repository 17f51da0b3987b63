// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package coins enumerates the wallet outputs that are available for
// spending and buckets them by output type for coin selection.
package coins

import (
	"bytes"
	"iter"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/wire"
	"github.com/btcsuite/btcwallet/wallet/txrules"
	"github.com/btcsuite/btcwallet/wallet/txsizes"
	"github.com/btcsuite/coinview/chain"
	"github.com/btcsuite/coinview/internal/lockguard"
	"github.com/btcsuite/coinview/outputtype"
	"github.com/btcsuite/coinview/wtxmgr"
)

// Ledger is the read side of the transaction ledger Compute works on.
// *wtxmgr.Store implements it.
type Ledger interface {
	// AllRecords yields every record in a stable order.
	AllRecords(tok *lockguard.Token) iter.Seq[*wtxmgr.TxRecord]

	// IsSpent reports whether a confirmed or pending transaction
	// consumes the output.
	IsSpent(tok *lockguard.Token, op wire.OutPoint) bool

	// IsLeased reports whether the output is currently leased.
	IsLeased(tok *lockguard.Token, op wire.OutPoint) bool

	// TrustCache returns a memoizing trust predicate valid for the
	// duration of one pass.
	TrustCache(tok *lockguard.Token) func(*wtxmgr.TxRecord) bool
}

// TipView supplies the best block. *chain.View implements it.
type TipView interface {
	Current(tok *lockguard.Token) wtxmgr.Block
}

// Compute returns the wallet outputs available for spending under elig,
// bucketed by output type.
//
// How it works:
// The records of the ledger are scanned once, in the ledger's stable order,
// while the caller holds the wallet lock. Every wallet owned output of every
// record that is not conflicted is run through the filters below; outputs
// that pass are classified and appended to the bucket of their type.
//
// Logical Steps:
//  1. Snapshot the chain tip.
//  2. Skip conflicted records and records confirmed above the tip.
//  3. For every credit of the record, in output index order:
//     a. apply the caller's exclude and allow lists,
//     b. skip outputs spent by a confirmed or pending transaction,
//     c. compute the confirmations from the tip, zero if unmined,
//     d. skip coinbase outputs below maturity,
//     e. apply the depth policy, see Eligibility,
//     f. skip unsolvable outputs if solvability is required,
//     g. skip leased outputs, dust and outputs outside the value window,
//     h. classify with the credit's redeem script and append.
//  4. Stop once MaxCount outputs were collected.
//
// The result is a pure function of the ledger, the tip and elig: two calls
// against an unmodified ledger return identical buckets.
func Compute(tok *lockguard.Token, ledger Ledger, tip TipView,
	classifier outputtype.Classifier, params Params,
	elig Eligibility) (*Result, error) {

	if err := elig.Validate(); err != nil {
		return nil, err
	}

	cur := tip.Current(tok)
	trusted := ledger.TrustCache(tok)
	maturity := int32(params.CoinbaseMaturity)

	result := NewResult()
	for rec := range ledger.AllRecords(tok) {
		if _, ok := rec.State.(wtxmgr.Conflicted); ok {
			continue
		}

		// A record mined above the tip means the ledger and the tip
		// disagree. Its outputs are neither confirmed nor pending.
		if rec.Height() > cur.Height {
			log.Warnf("Skipping %v confirmed at height %d above "+
				"tip %v (height %d)", rec.Hash, rec.Height(),
				cur.Hash, cur.Height)
			continue
		}

		confs := chain.Confirmations(rec.Height(), cur.Height)
		if rec.IsCoinBase && confs < maturity {
			log.Tracef("Skipping immature coinbase %v (%d of %d "+
				"confirmations)", rec.Hash, confs, maturity)
			continue
		}

		// Trust is only evaluated when a credit needs it.
		var (
			isTrusted bool
			evaluated bool
		)

		for _, credit := range rec.Credits {
			op := rec.OutPoint(credit.Index)
			txOut := rec.MsgTx.TxOut[credit.Index]
			value := btcutil.Amount(txOut.Value)

			if !elig.admitsOutPoint(op) {
				continue
			}
			if ledger.IsSpent(tok, op) {
				log.Tracef("Skipping spent output %v", op)
				continue
			}

			if !evaluated {
				isTrusted = trusted(rec)
				evaluated = true
			}
			if !elig.admitsDepth(confs, isTrusted) {
				log.Tracef("Skipping output %v with %d "+
					"confirmations (trusted=%v)", op, confs,
					isTrusted)
				continue
			}

			if elig.RequireSolvable && !credit.Solvable {
				continue
			}
			if !elig.IncludeLeased && ledger.IsLeased(tok, op) {
				log.Tracef("Skipping leased output %v", op)
				continue
			}
			if elig.DustRelayFee != 0 &&
				txrules.IsDustOutput(txOut, elig.DustRelayFee) {

				continue
			}
			if !elig.admitsAmount(value) {
				continue
			}

			vsize := txsizes.GetMinInputVirtualSize(txOut.PkScript)
			effective := value
			if elig.FeeRate != 0 {
				effective -= txrules.FeeForSerializeSize(
					elig.FeeRate, vsize,
				)
			}

			result.Add(Descriptor{
				OutPoint:     op,
				Value:        value,
				PkScript:     bytes.Clone(txOut.PkScript),
				RedeemScript: bytes.Clone(credit.RedeemScript),
				Type: classifier.ClassifyOutput(
					txOut.PkScript, credit.RedeemScript,
				),
				Solvable:       credit.Solvable,
				Change:         credit.Change,
				FromCoinBase:   rec.IsCoinBase,
				Trusted:        isTrusted,
				Confirmations:  confs,
				Received:       rec.Received,
				InputVSize:     vsize,
				EffectiveValue: effective,
			})

			if elig.MaxCount != 0 && result.Size() >= elig.MaxCount {
				log.Debugf("Stopping enumeration at %d outputs",
					elig.MaxCount)
				return result, nil
			}
		}
	}

	log.Debugf("Found %d available outputs worth %v at height %d",
		result.Size(), result.TotalAmount(), cur.Height)

	return result, nil
}
