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

// Package sem wraps golang.org/x/sync/semaphore behind a worker-pool
// oriented surface: a bounded (weighted) or unlimited (waitgroup)
// semaphore carrying its own cancellable context. The engine uses it
// to bound worker fan-out when a host runs more than one network
// worker.
package sem

import (
	"context"
	"runtime"
)

// Semaphore is a worker gate carrying its own cancellable context.
// A Semaphore with a positive weight bounds the number of concurrent
// workers; a Semaphore built with a negative count is unlimited and
// only tracks workers for WaitAll.
type Semaphore interface {
	context.Context

	// New returns an independent Semaphore with the same limit,
	// child of this one's context.
	New() Semaphore

	// Weighted returns the concurrency limit, or -1 for an unlimited
	// semaphore.
	Weighted() int64

	// NewWorker acquires one worker slot, blocking until a slot is
	// free or the context is done (in which case the context error is
	// returned).
	NewWorker() error

	// NewWorkerTry acquires one worker slot without blocking,
	// reporting whether it succeeded.
	NewWorkerTry() bool

	// DeferWorker releases one worker slot.
	DeferWorker()

	// DeferMain cancels the semaphore's context and releases any
	// internal resources. Call it exactly once, usually deferred at
	// the point of construction.
	DeferMain()

	// WaitAll blocks until every acquired worker slot has been
	// released, or the context is done (in which case the context
	// error is returned).
	WaitAll() error
}

// MaxSimultaneous returns the default concurrency limit, the current
// GOMAXPROCS value.
func MaxSimultaneous() int {
	return runtime.GOMAXPROCS(0)
}

// SetSimultaneous clamps n to [1, MaxSimultaneous]: non-positive or
// too-large values collapse to MaxSimultaneous.
func SetSimultaneous(n int) int64 {
	if m := MaxSimultaneous(); n < 1 || n > m {
		return int64(m)
	}

	return int64(n)
}

// New returns a Semaphore bound to ctx. nbrSimultaneous > 0 bounds
// concurrency to that value; 0 bounds it to MaxSimultaneous; any
// negative value yields an unlimited, waitgroup-backed Semaphore.
func New(ctx context.Context, nbrSimultaneous int) Semaphore {
	if nbrSimultaneous < 0 {
		return newWaitGroup(ctx)
	}

	n := int64(nbrSimultaneous)
	if n == 0 {
		n = int64(MaxSimultaneous())
	}

	return newWeighted(ctx, n)
}
