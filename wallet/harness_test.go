// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wallet

import (
	"fmt"
	"testing"
	"time"

	"github.com/btcsuite/btcd/blockchain"
	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
	"github.com/btcsuite/coinview/chain"
	"github.com/btcsuite/coinview/outputtype"
	"github.com/btcsuite/coinview/wallet/coins"
	"github.com/btcsuite/coinview/wtxmgr"
	"github.com/lightningnetwork/lnd/clock"
	"github.com/lightningnetwork/lnd/fn/v2"
	"github.com/stretchr/testify/require"
)

var (
	netParams = &chaincfg.RegressionNetParams

	testTime = time.Unix(1700000000, 0)

	// testFee is paid by every self transfer.
	testFee = btcutil.Amount(1000)
)

// destination is a wallet owned output script.
type destination struct {
	pkScript []byte

	// redeemScript is set for P2SH destinations.
	redeemScript []byte
}

// credit returns the wallet credit for output index paying to d.
func (d destination) credit(index uint32, change bool) wtxmgr.Credit {
	return wtxmgr.Credit{
		Index:        index,
		Solvable:     true,
		Change:       change,
		RedeemScript: d.redeemScript,
	}
}

func destinationResult(d destination, err error) fn.Result[destination] {
	if err != nil {
		return fn.Err[destination](err)
	}

	return fn.Ok(d)
}

// newDestination derives a fresh key and returns a script of type t paying
// to it. Unknown yields a bare pay-to-pubkey script.
func newDestination(t outputtype.OutputType) fn.Result[destination] {
	priv, err := btcec.NewPrivateKey()
	if err != nil {
		return fn.Err[destination](err)
	}
	pub := priv.PubKey()
	pubKeyHash := btcutil.Hash160(pub.SerializeCompressed())

	switch t {
	case outputtype.Legacy:
		addr, err := btcutil.NewAddressPubKeyHash(pubKeyHash, netParams)
		if err != nil {
			return fn.Err[destination](err)
		}
		pkScript, err := txscript.PayToAddrScript(addr)

		return destinationResult(destination{pkScript: pkScript}, err)

	case outputtype.P2SHSegwit:
		witAddr, err := btcutil.NewAddressWitnessPubKeyHash(
			pubKeyHash, netParams,
		)
		if err != nil {
			return fn.Err[destination](err)
		}
		redeemScript, err := txscript.PayToAddrScript(witAddr)
		if err != nil {
			return fn.Err[destination](err)
		}
		addr, err := btcutil.NewAddressScriptHash(redeemScript, netParams)
		if err != nil {
			return fn.Err[destination](err)
		}
		pkScript, err := txscript.PayToAddrScript(addr)

		return destinationResult(destination{
			pkScript:     pkScript,
			redeemScript: redeemScript,
		}, err)

	case outputtype.Bech32:
		addr, err := btcutil.NewAddressWitnessPubKeyHash(
			pubKeyHash, netParams,
		)
		if err != nil {
			return fn.Err[destination](err)
		}
		pkScript, err := txscript.PayToAddrScript(addr)

		return destinationResult(destination{pkScript: pkScript}, err)

	case outputtype.Bech32m:
		outputKey := txscript.ComputeTaprootKeyNoScript(pub)
		pkScript, err := txscript.PayToTaprootScript(outputKey)

		return destinationResult(destination{pkScript: pkScript}, err)

	case outputtype.Unknown:
		pkScript, err := txscript.NewScriptBuilder().
			AddData(pub.SerializeCompressed()).
			AddOp(txscript.OP_CHECKSIG).
			Script()

		return destinationResult(destination{pkScript: pkScript}, err)
	}

	return fn.Err[destination](fmt.Errorf("no destination of type %v", t))
}

// harness drives a wallet along a simulated regtest chain. Every block pays
// its coinbase to a fresh wallet pay-to-pubkey script.
type harness struct {
	t     *testing.T
	w     *Wallet
	clock *clock.TestClock

	height   int32
	prevHash chainhash.Hash
}

func newHarness(t *testing.T, opts ...Option) *harness {
	t.Helper()

	clk := clock.NewTestClock(testTime)
	genesis := wtxmgr.Block{Hash: *netParams.GenesisHash, Height: 0}

	opts = append([]Option{WithClock(clk)}, opts...)
	w, err := New(netParams, genesis, opts...)
	require.NoError(t, err)

	return &harness{
		t:        t,
		w:        w,
		clock:    clk,
		prevHash: genesis.Hash,
	}
}

// coinBase returns the coinbase of the next block paying the subsidy to d.
func (h *harness) coinBase(height int32, d destination) *wire.MsgTx {
	sigScript, err := txscript.NewScriptBuilder().
		AddInt64(int64(height)).
		AddInt64(0).
		Script()
	require.NoError(h.t, err)

	tx := wire.NewMsgTx(wire.TxVersion)
	tx.AddTxIn(&wire.TxIn{
		PreviousOutPoint: wire.OutPoint{Index: wire.MaxPrevOutIndex},
		SignatureScript:  sigScript,
		Sequence:         wire.MaxTxInSequenceNum,
	})
	tx.AddTxOut(&wire.TxOut{
		Value:    blockchain.CalcBlockSubsidy(height, netParams),
		PkScript: d.pkScript,
	})

	return tx
}

// nextBlock returns the block that extends the simulated chain with the given
// transactions, coinbase first.
func (h *harness) nextBlock(txs []*wire.MsgTx) wtxmgr.Block {
	height := h.height + 1

	header := wire.BlockHeader{
		Version:    4,
		PrevBlock:  h.prevHash,
		MerkleRoot: txs[0].TxHash(),
		Timestamp:  testTime.Add(time.Duration(height) * time.Minute),
		Bits:       netParams.PowLimitBits,
		Nonce:      uint32(len(txs)),
	}

	return wtxmgr.Block{Hash: header.BlockHash(), Height: height}
}

// mineBlock mines txs, which must already be known to the wallet, in a new
// block whose coinbase pays the wallet.
func (h *harness) mineBlock(txs ...*wire.MsgTx) wtxmgr.Block {
	h.t.Helper()

	d := newDestination(outputtype.Unknown).UnwrapOrFail(h.t)
	coinBase := h.coinBase(h.height+1, d)
	block := h.nextBlock(append([]*wire.MsgTx{coinBase}, txs...))

	rec, err := wtxmgr.NewTxRecordFromMsgTx(
		coinBase, h.clock.Now(), d.credit(0, false),
	)
	require.NoError(h.t, err)

	confirmed := make([]chain.ConfirmedTx, 0, len(txs))
	for i, tx := range txs {
		confirmed = append(confirmed, chain.ConfirmedTx{
			Hash:  tx.TxHash(),
			Index: uint32(i + 1),
		})
	}

	err = h.w.Update(func(tx *ReadWriteTx) error {
		if err := tx.AddRelevantTx(rec, &block, 0); err != nil {
			return err
		}

		return tx.ConnectBlock(block, confirmed)
	})
	require.NoError(h.t, err)

	h.height = block.Height
	h.prevHash = block.Hash
	h.clock.SetTime(h.clock.Now().Add(10 * time.Minute))

	return block
}

// mineBlocks mines n empty blocks.
func (h *harness) mineBlocks(n int) {
	h.t.Helper()

	for i := 0; i < n; i++ {
		h.mineBlock()
	}
}

// availableCoins enumerates with the default policy.
func (h *harness) availableCoins() *coins.Result {
	h.t.Helper()

	res, err := h.w.AvailableCoins(coins.DefaultEligibility())
	require.NoError(h.t, err)

	return res
}

// selfTransfer spends the first available pay-to-pubkey coin, paying amount
// to a fresh destination of type t and the rest, minus the fee, to change of
// the same type. The transaction is committed but not mined.
func (h *harness) selfTransfer(amount btcutil.Amount,
	t outputtype.OutputType) *wire.MsgTx {

	h.t.Helper()

	funding := h.availableCoins().Coins(outputtype.Unknown)
	require.NotEmpty(h.t, funding)
	coin := funding[0]
	require.Greater(h.t, coin.Value, amount+testFee)

	recipient := newDestination(t).UnwrapOrFail(h.t)
	change := newDestination(t).UnwrapOrFail(h.t)

	tx := wire.NewMsgTx(wire.TxVersion)
	tx.AddTxIn(wire.NewTxIn(&coin.OutPoint, nil, nil))
	tx.AddTxOut(wire.NewTxOut(int64(amount), recipient.pkScript))
	tx.AddTxOut(wire.NewTxOut(
		int64(coin.Value-amount-testFee), change.pkScript,
	))

	rec := h.w.CommitTransaction(
		tx, recipient.credit(0, false), change.credit(1, true),
	).UnwrapOrFail(h.t)
	require.Equal(h.t, tx.TxHash(), rec.Hash)

	return tx
}
