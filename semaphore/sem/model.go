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

package sem

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"
)

type swt struct {
	x context.Context
	c context.CancelFunc
	n int64
	s *semaphore.Weighted
}

func newWeighted(ctx context.Context, n int64) Semaphore {
	x, c := context.WithCancel(ctx)

	return &swt{
		x: x,
		c: c,
		n: n,
		s: semaphore.NewWeighted(n),
	}
}

func (o *swt) Deadline() (time.Time, bool)       { return o.x.Deadline() }
func (o *swt) Done() <-chan struct{}             { return o.x.Done() }
func (o *swt) Err() error                        { return o.x.Err() }
func (o *swt) Value(key interface{}) interface{} { return o.x.Value(key) }

func (o *swt) New() Semaphore {
	return newWeighted(o.x, o.n)
}

func (o *swt) Weighted() int64 {
	return o.n
}

func (o *swt) NewWorker() error {
	return o.s.Acquire(o.x, 1)
}

func (o *swt) NewWorkerTry() bool {
	return o.s.TryAcquire(1)
}

func (o *swt) DeferWorker() {
	o.s.Release(1)
}

func (o *swt) DeferMain() {
	o.c()
}

func (o *swt) WaitAll() error {
	if e := o.s.Acquire(o.x, o.n); e != nil {
		return e
	}

	o.s.Release(o.n)
	return nil
}

type swg struct {
	x context.Context
	c context.CancelFunc
	w sync.WaitGroup
}

func newWaitGroup(ctx context.Context) Semaphore {
	x, c := context.WithCancel(ctx)

	return &swg{
		x: x,
		c: c,
	}
}

func (o *swg) Deadline() (time.Time, bool)       { return o.x.Deadline() }
func (o *swg) Done() <-chan struct{}             { return o.x.Done() }
func (o *swg) Err() error                        { return o.x.Err() }
func (o *swg) Value(key interface{}) interface{} { return o.x.Value(key) }

func (o *swg) New() Semaphore {
	return newWaitGroup(o.x)
}

func (o *swg) Weighted() int64 {
	return -1
}

func (o *swg) NewWorker() error {
	if e := o.x.Err(); e != nil {
		return e
	}

	o.w.Add(1)
	return nil
}

func (o *swg) NewWorkerTry() bool {
	o.w.Add(1)
	return true
}

func (o *swg) DeferWorker() {
	o.w.Done()
}

func (o *swg) DeferMain() {
	o.c()
}

func (o *swg) WaitAll() error {
	done := make(chan struct{})

	go func() {
		o.w.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-o.x.Done():
		return o.x.Err()
	}
}
