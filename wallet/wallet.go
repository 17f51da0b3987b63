// Copyright (c) 2013-2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package wallet ties the transaction ledger, the chain tip and the output
// enumeration together behind a single wallet lock.
//
// Every read and write happens inside a View or Update closure. The closure
// receives a transaction handle carrying the proof that the wallet lock is
// held, and that proof is checked by every ledger, tip and enumeration call.
// Handles must not escape the closure; using one afterwards panics.
package wallet

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcwallet/walletdb"
	"github.com/btcsuite/coinview/chain"
	"github.com/btcsuite/coinview/internal/lockguard"
	"github.com/btcsuite/coinview/internal/metrics"
	"github.com/btcsuite/coinview/outputtype"
	"github.com/btcsuite/coinview/wallet/coins"
	"github.com/btcsuite/coinview/wtxmgr"
	"github.com/lightningnetwork/lnd/clock"
	"github.com/lightningnetwork/lnd/fn/v2"
	"github.com/lightningnetwork/lnd/ticker"
)

const (
	// DefaultLeaseSweepInterval is how often expired output leases are
	// removed while the wallet is started.
	DefaultLeaseSweepInterval = time.Minute
)

var (
	// ErrNilChainParams is returned by New without chain parameters.
	ErrNilChainParams = errors.New("chain parameters required")

	// ErrNotTip is returned when a disconnect notification names a block
	// other than the wallet's current tip.
	ErrNotTip = errors.New("block is not the wallet tip")
)

// Wallet is the shared context of the output enumeration engine. It owns the
// wallet lock and everything the lock guards.
type Wallet struct {
	mu lockguard.Mutex

	store      *wtxmgr.Store
	view       *chain.View
	classifier outputtype.Classifier
	params     coins.Params
	clock      clock.Clock

	// db is nil for a wallet that only lives in memory.
	db      walletdb.DB
	metrics *metrics.Collector

	leaseTicker ticker.Ticker

	started bool
	quit    chan struct{}
	quitMu  sync.Mutex
	wg      sync.WaitGroup
}

// walletOptions holds the optional collaborators of a Wallet.
type walletOptions struct {
	clock       clock.Clock
	db          walletdb.DB
	metrics     *metrics.Collector
	classifier  outputtype.Classifier
	leaseTicker ticker.Ticker
	params      fn.Option[coins.Params]
}

// Option configures a Wallet created with New.
type Option func(*walletOptions)

// WithClock sets the clock used for received times and lease expiry.
func WithClock(clk clock.Clock) Option {
	return func(o *walletOptions) {
		o.clock = clk
	}
}

// WithDB persists the wallet state in db. Existing state is restored by New
// and every successful Update is written back.
func WithDB(db walletdb.DB) Option {
	return func(o *walletOptions) {
		o.db = db
	}
}

// WithMetrics reports enumeration results and ledger mutations to c.
func WithMetrics(c *metrics.Collector) Option {
	return func(o *walletOptions) {
		o.metrics = c
	}
}

// WithClassifier replaces the default caching classifier.
func WithClassifier(c outputtype.Classifier) Option {
	return func(o *walletOptions) {
		o.classifier = c
	}
}

// WithLeaseTicker replaces the ticker driving the expired lease sweep.
func WithLeaseTicker(t ticker.Ticker) Option {
	return func(o *walletOptions) {
		o.leaseTicker = t
	}
}

// WithParams overrides the enumeration parameters derived from the chain
// parameters, e.g. to use a different coinbase maturity.
func WithParams(p coins.Params) Option {
	return func(o *walletOptions) {
		o.params = fn.Some(p)
	}
}

// New creates a wallet for the network described by chainParams whose chain
// view starts at birthday. When a database is configured and holds saved
// state, that state replaces the empty ledger and the birthday tip.
func New(chainParams *chaincfg.Params, birthday wtxmgr.Block,
	opts ...Option) (*Wallet, error) {

	if chainParams == nil {
		return nil, ErrNilChainParams
	}

	o := &walletOptions{
		clock: clock.NewDefaultClock(),
		classifier: outputtype.NewCachedClassifier(
			outputtype.Standard, outputtype.DefaultCacheSize,
		),
		leaseTicker: ticker.New(DefaultLeaseSweepInterval),
	}
	for _, opt := range opts {
		opt(o)
	}

	w := &Wallet{
		classifier:  o.classifier,
		params:      o.params.UnwrapOr(coins.ParamsFromChain(chainParams)),
		clock:       o.clock,
		db:          o.db,
		metrics:     o.metrics,
		leaseTicker: o.leaseTicker,
		quit:        make(chan struct{}),
	}
	w.store = wtxmgr.New(&w.mu, w.clock)
	w.view = chain.NewView(&w.mu, birthday)

	tok := w.mu.Acquire()
	defer tok.Release()

	if w.db != nil {
		if err := w.load(tok); err != nil {
			return nil, fmt.Errorf("unable to load wallet state: %w",
				err)
		}
	}

	tip := w.view.Current(tok)
	w.metrics.SetTipHeight(tip.Height)

	log.Infof("Opened %s wallet at height %d with %d transactions",
		chainParams.Name, tip.Height, w.store.Len(tok))

	return w, nil
}

// Params returns the chain parameters the enumeration uses.
func (w *Wallet) Params() coins.Params {
	return w.params
}

// View runs f with the wallet lock held. The transaction handle is only valid
// for the duration of f. View is not re-entrant: calling View or Update from
// within f deadlocks.
func (w *Wallet) View(f func(tx *ReadTx) error) error {
	tok := w.mu.Acquire()
	defer tok.Release()

	return f(&ReadTx{w: w, tok: tok})
}

// Update runs f with the wallet lock held and, if f succeeds and the wallet
// has a database, writes the resulting state to it before the lock is
// released. If f or the write fails, the ledger and tip are restored to what
// they were before f ran.
func (w *Wallet) Update(f func(tx *ReadWriteTx) error) error {
	tok := w.mu.Acquire()
	defer tok.Release()

	store, view := w.store.Clone(tok), w.view.Clone(tok)
	rollback := func() {
		w.store, w.view = store, view
	}

	if err := f(&ReadWriteTx{ReadTx{w: w, tok: tok}}); err != nil {
		rollback()
		return err
	}

	if err := w.persist(tok); err != nil {
		log.Errorf("Unable to persist wallet state, rolling back: %v",
			err)
		rollback()

		return err
	}

	return nil
}

// Start begins processing notifications from src and sweeping expired output
// leases. A stopped wallet may be started again once WaitForShutdown returns.
func (w *Wallet) Start(src chain.Source) {
	w.quitMu.Lock()
	select {
	case <-w.quit:
		// Restart the wallet goroutines after shutdown finishes.
		w.WaitForShutdown()
		w.quit = make(chan struct{})
	default:
		// Ignore when the wallet is still running.
		if w.started {
			w.quitMu.Unlock()
			return
		}
		w.started = true
	}
	w.quitMu.Unlock()

	w.wg.Add(2)
	go w.handleChainNotifications(src)
	go w.leaseSweeper()
}

// quitChan atomically reads the quit channel.
func (w *Wallet) quitChan() <-chan struct{} {
	w.quitMu.Lock()
	c := w.quit
	w.quitMu.Unlock()
	return c
}

// Stop signals all wallet goroutines to shutdown.
func (w *Wallet) Stop() {
	w.quitMu.Lock()
	quit := w.quit
	w.quitMu.Unlock()

	select {
	case <-quit:
	default:
		close(quit)
	}
}

// ShuttingDown returns whether the wallet is currently in the process of
// shutting down or not.
func (w *Wallet) ShuttingDown() bool {
	select {
	case <-w.quitChan():
		return true
	default:
		return false
	}
}

// WaitForShutdown blocks until all wallet goroutines have finished executing.
func (w *Wallet) WaitForShutdown() {
	w.wg.Wait()
}

// leaseSweeper periodically drops expired output leases so that they neither
// linger in ListLeasedOutputs nor in the persisted state.
func (w *Wallet) leaseSweeper() {
	defer w.wg.Done()

	w.leaseTicker.Resume()
	defer w.leaseTicker.Pause()

	quit := w.quitChan()
	ticks := w.leaseTicker.Ticks()
	for {
		select {
		case <-ticks:
			var n int
			err := w.Update(func(tx *ReadWriteTx) error {
				n = tx.DeleteExpiredLeases()
				return nil
			})
			if err != nil {
				log.Errorf("Unable to sweep expired leases: %v",
					err)
				continue
			}
			if n > 0 {
				log.Debugf("Swept %d expired %s", n,
					pickNoun(n, "lease", "leases"))
			}

		case <-quit:
			return
		}
	}
}
