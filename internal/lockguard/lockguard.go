// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package lockguard provides a mutex whose acquisition hands out a token. Code
// that must only run while the mutex is held takes the token as a parameter
// and checks it, so forgetting to lock shows up as a missing argument rather
// than as a data race.
//
// A token that is nil, already released, or minted by a different mutex is a
// programming error in the caller and Check panics on it.
package lockguard

import (
	"sync"
	"sync/atomic"
)

// Mutex is an exclusive, non re-entrant lock that produces tokens.
type Mutex struct {
	mu sync.Mutex
}

// Token proves that the Mutex which minted it is currently held.
type Token struct {
	owner    *Mutex
	released atomic.Bool
}

// Acquire blocks until the mutex is held and returns the token for this
// critical section. The caller must call Release exactly once.
func (m *Mutex) Acquire() *Token {
	m.mu.Lock()

	return &Token{owner: m}
}

// Release unlocks the mutex that minted the token. Any later use of the token
// panics.
func (t *Token) Release() {
	if t == nil {
		panic("lockguard: release of nil token")
	}
	if t.released.Swap(true) {
		panic("lockguard: token released twice")
	}

	t.owner.mu.Unlock()
}

// Check panics unless the token is live and was minted by m.
func (t *Token) Check(m *Mutex) {
	switch {
	case t == nil:
		panic("lockguard: operation requires the wallet lock")

	case t.released.Load():
		panic("lockguard: token used after the lock was released")

	case t.owner != m:
		panic("lockguard: token belongs to a different lock")
	}
}

// Held reports whether the token is live. It never panics and is meant for
// assertions in tests.
func (t *Token) Held() bool {
	return t != nil && !t.released.Load()
}
