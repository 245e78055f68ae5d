/*
 * MIT License
 *
 * Copyright (c) 2022 Nicolas JUHEL
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

package cache

import (
	"context"
	"time"

	libatm "github.com/sabouaram/msgnet/atomic"
	cchitm "github.com/sabouaram/msgnet/cache/item"
)

// cc is the internal implementation of Cache[K, V]. It embeds a context.Context
// for lifecycle management and stores items in a typed atomic map keyed by K.
type cc[K comparable, V any] struct {
	context.Context

	n context.CancelFunc
	v libatm.MapTyped[K, cchitm.CacheItem[V]]
	e time.Duration
}

func New[K comparable, V any](ctx context.Context, exp time.Duration) Cache[K, V] {
	if ctx == nil {
		ctx = context.Background()
	}

	var cnl context.CancelFunc
	ctx, cnl = context.WithCancel(ctx)

	n := &cc[K, V]{
		Context: ctx,

		n: cnl,
		v: libatm.NewMapTyped[K, cchitm.CacheItem[V]](),
		e: exp,
	}

	go n.ticker(exp)

	return n
}

func (o *cc[K, V]) Clone(ctx context.Context) (Cache[K, V], error) {
	if err := o.Err(); err != nil {
		return nil, err
	}

	if ctx == nil {
		ctx = o.Context
	}

	n := New[K, V](ctx, o.e)

	o.Walk(func(key K, val V, rem time.Duration) bool {
		n.Store(key, val)
		return true
	})

	return n, nil
}

func (o *cc[K, V]) Merge(c Cache[K, V]) {
	if c == nil {
		return
	}

	c.Walk(func(key K, val V, rem time.Duration) bool {
		o.Store(key, val)
		return true
	})
}

func (o *cc[K, V]) Walk(fct func(K, V, time.Duration) bool) {
	if fct == nil || o.Err() != nil {
		return
	}

	o.v.Range(func(key K, val cchitm.CacheItem[V]) bool {
		v, rem, ok := val.LoadRemain()
		if !ok {
			return true
		}

		return fct(key, v, rem)
	})
}

func (o *cc[K, V]) Load(key K) (val V, rem time.Duration, ok bool) {
	if o.Err() != nil {
		return val, 0, false
	}

	i, found := o.v.Load(key)
	if !found {
		return val, 0, false
	}

	if val, rem, ok = i.LoadRemain(); !ok {
		o.v.CompareAndDelete(key, i)
	}

	return val, rem, ok
}

// Value returns the valid cached value when key is of type K and stored in
// the cache; any other key is looked up in the underlying context.
func (o *cc[K, V]) Value(key any) any {
	if k, ok := key.(K); ok {
		if v, _, found := o.Load(k); found {
			return v
		}
	}

	return o.Context.Value(key)
}

func (o *cc[K, V]) Store(key K, val V) {
	o.v.Store(key, cchitm.New[V](o.e, val))
}

func (o *cc[K, V]) Delete(key K) {
	if i, ok := o.v.LoadAndDelete(key); ok {
		i.Clean()
	}
}

func (o *cc[K, V]) LoadOrStore(key K, val V) (res V, rem time.Duration, ok bool) {
	if o.Err() != nil {
		return res, 0, false
	}

	i, loaded := o.v.LoadOrStore(key, cchitm.New[V](o.e, val))

	if !loaded {
		return res, 0, false
	}

	if res, rem, ok = i.LoadRemain(); !ok {
		o.Store(key, val)
	}

	return res, rem, ok
}

func (o *cc[K, V]) LoadAndDelete(key K) (val V, ok bool) {
	if o.Err() != nil {
		return val, false
	}

	i, found := o.v.LoadAndDelete(key)
	if !found {
		return val, false
	}

	v, _, valid := i.LoadRemain()
	i.Clean()
	return v, valid
}

func (o *cc[K, V]) Swap(key K, val V) (old V, rem time.Duration, ok bool) {
	old, rem, ok = o.Load(key)
	o.Store(key, val)
	return old, rem, ok
}

// Close cancels the cache context and removes all items from the cache.
func (o *cc[K, V]) Close() error {
	if o.n != nil {
		o.n()
	}

	o.Clean()
	return nil
}

// Clean removes all items from the cache, regardless of their expiration status.
func (o *cc[K, V]) Clean() {
	o.v.Range(func(key K, v cchitm.CacheItem[V]) bool {
		if val, ok := o.v.LoadAndDelete(key); ok {
			val.Clean()
		}

		return true
	})
}

// Expire removes all expired items from the cache.
func (o *cc[K, V]) Expire() {
	o.v.Range(func(key K, val cchitm.CacheItem[V]) bool {
		if !val.Check() {
			o.v.Delete(key)
		}
		return true
	})
}

func (o *cc[K, V]) ticker(exp time.Duration) {
	if exp <= 0 {
		return
	}

	ticker := time.NewTicker(exp)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			o.Expire()
		case <-o.Done():
			o.Clean()
			return
		}
	}
}
