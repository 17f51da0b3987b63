// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package outputtype maps output scripts to the address family that locks
// them. Classification is a pure function of its inputs and never fails:
// anything that is not a recognized pattern is reported as Unknown.
package outputtype

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/txscript"
)

// ErrUnknownOutputType is returned by Parse for names that do not match any
// output type.
var ErrUnknownOutputType = errors.New("unknown output type")

// OutputType identifies the script pattern used to lock an output.
type OutputType uint8

const (
	// Legacy is a pay-to-pubkey-hash output, or a pay-to-script-hash
	// output whose redeem script is not a witness program.
	Legacy OutputType = iota

	// P2SHSegwit is a witness v0 program nested in a pay-to-script-hash
	// output.
	P2SHSegwit

	// Bech32 is a native witness v0 program.
	Bech32

	// Bech32m is a native witness v1 (taproot) program.
	Bech32m

	// Unknown covers bare public keys, bare multisig, null data and
	// non-standard scripts.
	Unknown
)

// All lists every output type in bucket order.
var All = []OutputType{Legacy, P2SHSegwit, Bech32, Bech32m, Unknown}

var typeNames = map[OutputType]string{
	Legacy:     "legacy",
	P2SHSegwit: "p2sh-segwit",
	Bech32:     "bech32",
	Bech32m:    "bech32m",
	Unknown:    "unknown",
}

// String returns the conventional wallet name of the output type.
func (t OutputType) String() string {
	if s, ok := typeNames[t]; ok {
		return s
	}

	return fmt.Sprintf("OutputType(%d)", uint8(t))
}

// Parse returns the output type with the given conventional name.
func Parse(name string) (OutputType, error) {
	for t, s := range typeNames {
		if s == name {
			return t, nil
		}
	}

	return Unknown, fmt.Errorf("%w: %q", ErrUnknownOutputType, name)
}

// Classifier assigns an output type to an output script. The redeem script is
// the one the wallet knows for a pay-to-script-hash output and may be nil.
type Classifier interface {
	ClassifyOutput(pkScript, redeemScript []byte) OutputType
}

// Standard is the Classifier used by the wallet.
var Standard Classifier = standardClassifier{}

type standardClassifier struct{}

// ClassifyOutput implements Classifier.
func (standardClassifier) ClassifyOutput(pkScript,
	redeemScript []byte) OutputType {

	return ClassifyRedeem(pkScript, redeemScript)
}

// Classify returns the output type of pkScript without any knowledge of
// redeem scripts. Pay-to-script-hash outputs therefore classify as Legacy.
func Classify(pkScript []byte) OutputType {
	return fromClass(txscript.GetScriptClass(pkScript), false)
}

// ClassifyRedeem classifies pkScript using the redeem script the wallet holds
// for it. The redeem script only matters for pay-to-script-hash outputs and
// is ignored when it does not hash to the script hash committed to by
// pkScript.
func ClassifyRedeem(pkScript, redeemScript []byte) OutputType {
	class := txscript.GetScriptClass(pkScript)
	if class != txscript.ScriptHashTy || len(redeemScript) == 0 {
		return fromClass(class, false)
	}

	// A P2SH script is OP_HASH160 <20 bytes> OP_EQUAL.
	if !bytes.Equal(pkScript[2:22], btcutil.Hash160(redeemScript)) {
		return fromClass(class, false)
	}

	return fromClass(txscript.GetScriptClass(redeemScript), true)
}

// fromClass maps a script class to an output type. nested is set when the
// class belongs to a redeem script revealed through P2SH.
func fromClass(class txscript.ScriptClass, nested bool) OutputType {
	switch class {
	case txscript.WitnessV1TaprootTy:
		return Bech32m

	case txscript.WitnessV0PubKeyHashTy, txscript.WitnessV0ScriptHashTy:
		if nested {
			return P2SHSegwit
		}

		return Bech32

	case txscript.PubKeyHashTy, txscript.ScriptHashTy:
		return Legacy

	default:
		return Unknown
	}
}
