/*
 * MIT License
 *
 * Copyright (c) 2025 Nicolas JUHEL
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in all
 * copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 *
 */

// Package ring implements a fixed-capacity, wait-free single-producer
// single-consumer ring buffer. It hands messages between an application
// thread and the network worker thread without locks or allocation on
// the hot path.
//
// Exactly one goroutine may call Insert, and exactly one (possibly
// different) goroutine may call Pop. Using either method from more than
// one goroutine concurrently is undefined behavior.
package ring

import (
	"sync/atomic"
)

const cacheLinePad = 64

// Ring is a wait-free SPSC ring buffer over elements of type T.
//
// Capacity is fixed at construction and is always a power of two; the
// usable capacity is Capacity()-1, since one slot is kept empty to
// distinguish the full state from the empty one without a separate
// counter. head and tail are padded to their own cache line so the
// producer and consumer never false-share.
type Ring[T any] struct {
	buf  []T
	mask uint64

	head atomic.Uint64
	_    [cacheLinePad - 8]byte

	tail atomic.Uint64
	_    [cacheLinePad - 8]byte
}

// New returns a Ring with the given capacity, which must be a power of
// two. Panics otherwise.
func New[T any](capacity uint64) *Ring[T] {
	if capacity < 2 || capacity&(capacity-1) != 0 {
		panic("ring: capacity must be a power of two >= 2")
	}

	return &Ring[T]{
		buf:  make([]T, capacity),
		mask: capacity - 1,
	}
}

// Capacity returns the usable slot count (the construction capacity
// minus the one slot reserved to disambiguate full from empty).
func (r *Ring[T]) Capacity() uint64 {
	return uint64(len(r.buf)) - 1
}

// Len returns a snapshot of the number of pending elements. Safe to
// call from either side; the value may be stale by the time it is
// read by the opposite side.
func (r *Ring[T]) Len() uint64 {
	return r.tail.Load() - r.head.Load()
}

// Insert writes val into the ring. Returns false, leaving the ring
// unchanged, if the ring is full. Producer-side only.
func (r *Ring[T]) Insert(val T) bool {
	tail := r.tail.Load()
	head := r.head.Load()

	if r.full(head, tail) {
		return false
	}

	r.buf[tail&r.mask] = val
	r.tail.Store(tail + 1)

	return true
}

// Pop reads and removes the oldest element. Returns false, with a
// zero value, if the ring is empty. Consumer-side only.
func (r *Ring[T]) Pop() (val T, ok bool) {
	head := r.head.Load()
	tail := r.tail.Load()

	if head == tail {
		return val, false
	}

	val = r.buf[head&r.mask]

	var zero T
	r.buf[head&r.mask] = zero

	r.head.Store(head + 1)

	return val, true
}

func (r *Ring[T]) full(head, tail uint64) bool {
	return (tail+1)&r.mask == head&r.mask
}

// ResizeDouble replaces the ring's storage with a new buffer of twice
// the capacity, preserving every currently queued element in order.
// It is not safe to call concurrently with Pop: callers must
// externally serialize a resize against the consumer.
func (r *Ring[T]) ResizeDouble() {
	oldCap := uint64(len(r.buf))
	n := New[T](oldCap * 2)

	head := r.head.Load()
	tail := r.tail.Load()

	for i := head; i != tail; i++ {
		n.buf[(i-head)&n.mask] = r.buf[i&r.mask]
	}

	n.tail.Store(tail - head)

	r.buf = n.buf
	r.mask = n.mask
	r.head.Store(0)
	r.tail.Store(tail - head)
}
