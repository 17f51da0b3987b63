// Copyright (c) 2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wtxmgr

import (
	"bytes"
	"slices"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
)

type graphNode struct {
	value    *TxRecord
	outEdges []chainhash.Hash
	inDegree int
}

type hashGraph map[chainhash.Hash]*graphNode

// makeGraph builds the spend graph of the records. An edge runs from a
// transaction to every record in the set that spends one of its outputs.
func makeGraph(recs []*TxRecord) hashGraph {
	graph := make(hashGraph, len(recs))
	for _, rec := range recs {
		graph[rec.Hash] = &graphNode{value: rec}
	}

	for _, rec := range recs {
		// Each parent contributes at most one edge per child, no
		// matter how many of its outputs the child spends.
		var parents []chainhash.Hash
		for _, input := range rec.MsgTx.TxIn {
			parentHash := input.PreviousOutPoint.Hash
			if _, ok := graph[parentHash]; !ok {
				continue
			}
			if parentHash == rec.Hash ||
				slices.Contains(parents, parentHash) {

				continue
			}
			parents = append(parents, parentHash)

			parent := graph[parentHash]
			parent.outEdges = append(parent.outEdges, rec.Hash)
			graph[rec.Hash].inDegree++
		}
	}

	return graph
}

// graphRoots returns the records with no in-set parents, in canonical order.
func graphRoots(graph hashGraph) []*TxRecord {
	roots := make([]*TxRecord, 0, len(graph))
	for _, node := range graph {
		if node.inDegree == 0 {
			roots = append(roots, node.value)
		}
	}
	sortCanonical(roots)

	return roots
}

// DependencySort topologically sorts records so that every transaction comes
// after the in-set transactions it spends. Ties are broken by canonical hash
// order, making the result deterministic.
func DependencySort(recs []*TxRecord) []*TxRecord {
	graph := makeGraph(recs)
	queue := graphRoots(graph)

	sorted := make([]*TxRecord, 0, len(recs))
	for len(queue) > 0 {
		rec := queue[0]
		queue = queue[1:]
		sorted = append(sorted, rec)

		var ready []*TxRecord
		for _, childHash := range graph[rec.Hash].outEdges {
			child := graph[childHash]
			child.inDegree--
			if child.inDegree == 0 {
				ready = append(ready, child.value)
			}
		}
		sortCanonical(ready)
		queue = append(queue, ready...)
	}

	return sorted
}

func sortCanonical(recs []*TxRecord) {
	slices.SortFunc(recs, func(a, b *TxRecord) int {
		return bytes.Compare(a.Hash[:], b.Hash[:])
	})
}
