// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package metrics exports prometheus metrics about the wallet's available
// outputs and ledger activity.
package metrics

import (
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/coinview/outputtype"
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "coinview"

// Mutation labels.
const (
	OpAddTransaction  = "add_transaction"
	OpMarkSpent       = "mark_spent"
	OpSetConfirmed    = "set_confirmed"
	OpSetConflicted   = "set_conflicted"
	OpConnectBlock    = "connect_block"
	OpDisconnectBlock = "disconnect_block"
	OpLeaseOutput     = "lease_output"
	OpReleaseOutput   = "release_output"
	OpExpireLeases    = "expire_leases"
)

// Collector holds the wallet metrics. It implements prometheus.Collector so
// it can be registered with any registry. A nil *Collector is valid and
// records nothing.
type Collector struct {
	availableCoins  *prometheus.GaugeVec
	availableAmount *prometheus.GaugeVec
	mutations       *prometheus.CounterVec
	tipHeight       prometheus.Gauge
}

// A compile-time check to ensure Collector implements prometheus.Collector.
var _ prometheus.Collector = (*Collector)(nil)

// NewCollector creates the wallet metrics.
func NewCollector() *Collector {
	return &Collector{
		availableCoins: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "available_coins",
				Help: "Number of spendable outputs found by the " +
					"last enumeration, by output type.",
			},
			[]string{"type"},
		),
		availableAmount: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "available_amount_sats",
				Help: "Value in satoshis of the spendable outputs " +
					"found by the last enumeration, by output type.",
			},
			[]string{"type"},
		),
		mutations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "ledger_mutations_total",
				Help:      "Number of ledger mutations, by operation.",
			},
			[]string{"op"},
		),
		tipHeight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "tip_height",
				Help:      "Height of the wallet's best block.",
			},
		),
	}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	c.availableCoins.Describe(ch)
	c.availableAmount.Describe(ch)
	c.mutations.Describe(ch)
	c.tipHeight.Describe(ch)
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	c.availableCoins.Collect(ch)
	c.availableAmount.Collect(ch)
	c.mutations.Collect(ch)
	c.tipHeight.Collect(ch)
}

// TypeTotals is the per type summary of an enumeration.
// *coins.Result implements it.
type TypeTotals interface {
	Count(t outputtype.OutputType) int
	TypeAmount(t outputtype.OutputType) btcutil.Amount
}

// ObserveAvailable records the outcome of an enumeration. Every output type
// is set, so types that disappeared drop to zero.
func (c *Collector) ObserveAvailable(totals TypeTotals) {
	if c == nil {
		return
	}

	for _, t := range outputtype.All {
		label := t.String()
		c.availableCoins.WithLabelValues(label).Set(
			float64(totals.Count(t)),
		)
		c.availableAmount.WithLabelValues(label).Set(
			float64(totals.TypeAmount(t)),
		)
	}
}

// Mutation counts one ledger mutation of kind op.
func (c *Collector) Mutation(op string) {
	if c == nil {
		return
	}

	c.mutations.WithLabelValues(op).Inc()
}

// SetTipHeight records the wallet's best block height.
func (c *Collector) SetTipHeight(height int32) {
	if c == nil {
		return
	}

	c.tipHeight.Set(float64(height))
}
