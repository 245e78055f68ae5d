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

package reliable

import (
	"container/heap"
	"math/rand"
	"time"
)

// SimulatorConfig drives the local send-side fault injector used by
// the test harness: each outgoing datagram is delayed by
// constant + Uniform(0, jitter) and dropped entirely with probability
// LossRate. Only the local side is affected; the peer sees the effect
// as network jitter.
type SimulatorConfig struct {
	Enabled            bool
	ConstantDelay      time.Duration
	UniformRandomDelay time.Duration
	LossRate           float64
}

type delayedDatagram struct {
	release time.Time
	data    []byte
	index   int
}

type delayHeap []*delayedDatagram

func (h delayHeap) Len() int            { return len(h) }
func (h delayHeap) Less(i, j int) bool  { return h[i].release.Before(h[j].release) }
func (h delayHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i]; h[i].index = i; h[j].index = j }
func (h *delayHeap) Push(x interface{}) { d := x.(*delayedDatagram); d.index = len(*h); *h = append(*h, d) }
func (h *delayHeap) Pop() interface{} {
	old := *h
	n := len(old)
	d := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return d
}

// simulator buffers outgoing datagrams into a time-sorted delay queue
// per the configured fault model.
type simulator struct {
	cfg SimulatorConfig
	rng *rand.Rand
	q   delayHeap
}

func newSimulator(cfg SimulatorConfig, rng *rand.Rand) *simulator {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &simulator{cfg: cfg, rng: rng}
}

// Offer accepts one outgoing datagram. It returns the datagram itself
// when the simulator is a no-op for it (send immediately), or nil when
// the datagram was scheduled for a later release or dropped.
func (s *simulator) Offer(data []byte, now time.Time) []byte {
	if !s.cfg.Enabled {
		return data
	}

	if s.cfg.LossRate > 0 && s.rng.Float64() < s.cfg.LossRate {
		return nil
	}

	delay := s.cfg.ConstantDelay
	if s.cfg.UniformRandomDelay > 0 {
		delay += time.Duration(s.rng.Int63n(int64(s.cfg.UniformRandomDelay)))
	}

	if delay <= 0 {
		return data
	}

	heap.Push(&s.q, &delayedDatagram{release: now.Add(delay), data: data})
	return nil
}

// Due pops every datagram whose release time has passed, oldest
// first.
func (s *simulator) Due(now time.Time) [][]byte {
	var out [][]byte

	for s.q.Len() > 0 && !s.q[0].release.After(now) {
		out = append(out, heap.Pop(&s.q).(*delayedDatagram).data)
	}

	return out
}

// Pending returns the number of datagrams still held in the delay
// queue.
func (s *simulator) Pending() int {
	return s.q.Len()
}
