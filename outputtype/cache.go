// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package outputtype

import (
	"encoding/binary"

	"github.com/lightninglabs/neutrino/cache/lru"
)

// DefaultCacheSize is the number of script pairs a CachedClassifier
// remembers by default.
const DefaultCacheSize = 10000

// cachedType wraps an OutputType so it can live in the LRU cache.
type cachedType struct {
	t OutputType
}

// Size returns the cost of the entry, every entry counts as one.
func (c *cachedType) Size() (uint64, error) {
	return 1, nil
}

// CachedClassifier memoizes another Classifier. It is safe for concurrent
// use.
type CachedClassifier struct {
	inner Classifier
	cache *lru.Cache[string, *cachedType]
}

// NewCachedClassifier returns a classifier that remembers the results of
// inner for up to size script pairs.
func NewCachedClassifier(inner Classifier, size uint64) *CachedClassifier {
	if size == 0 {
		size = DefaultCacheSize
	}

	return &CachedClassifier{
		inner: inner,
		cache: lru.NewCache[string, *cachedType](size),
	}
}

// cacheKey joins the two scripts behind a varint length prefix of pkScript so
// that no two script pairs share a key.
func cacheKey(pkScript, redeemScript []byte) string {
	key := binary.AppendUvarint(
		make([]byte, 0, binary.MaxVarintLen64+len(pkScript)+
			len(redeemScript)),
		uint64(len(pkScript)),
	)
	key = append(key, pkScript...)

	return string(append(key, redeemScript...))
}

// ClassifyOutput implements Classifier.
func (c *CachedClassifier) ClassifyOutput(pkScript,
	redeemScript []byte) OutputType {

	key := cacheKey(pkScript, redeemScript)

	if entry, err := c.cache.Get(key); err == nil {
		return entry.t
	}

	t := c.inner.ClassifyOutput(pkScript, redeemScript)
	_, _ = c.cache.Put(key, &cachedType{t: t})

	return t
}

// Len returns the number of cached entries.
func (c *CachedClassifier) Len() int {
	return c.cache.Len()
}
