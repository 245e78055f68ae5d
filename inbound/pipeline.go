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

// Package inbound implements the receive-side message pipeline:
// duplicate suppression over the last 1024 delivered
// reliable message numbers, an in-order waiting room per chain, and
// the production of dispatchable deliveries for the application ring.
package inbound

import (
	"time"

	"github.com/bits-and-blooms/bitset"

	libmsg "github.com/sabouaram/msgnet/message"
	librlb "github.com/sabouaram/msgnet/reliable"
)

// dupWindowSize is the width of the reliable-number duplicate window.
const dupWindowSize = 1024

// DefaultChainGrace is how long an idle in-order chain's state is
// retained before it is reclaimed.
const DefaultChainGrace = 5 * time.Minute

// Delivery is one message ready for the application handler.
type Delivery struct {
	// PacketSeq is the sequence of the datagram that carried the
	// message (the handler's packet_id argument; 0 in TCP mode).
	PacketSeq uint16

	MessageID libmsg.ID
	Payload   []byte
}

// chain is the per-in-order-chain waiting room.
type chain struct {
	next     uint64
	waiting  map[uint64]Delivery
	lastSeen time.Time
}

// Pipeline is the per-connection inbound pipeline. It is owned by the
// network worker; its output deliveries are pushed into the
// application-facing ring by the caller.
type Pipeline struct {
	// dup tracks the last dupWindowSize delivered reliable numbers
	// relative to the highest seen.
	dupHigh uint32
	dupHave bool
	dupBits *bitset.BitSet

	chains map[uint64]*chain
	grace  time.Duration
}

// New returns an empty Pipeline. grace <= 0 selects
// DefaultChainGrace.
func New(grace time.Duration) *Pipeline {
	if grace <= 0 {
		grace = DefaultChainGrace
	}

	return &Pipeline{
		dupBits: bitset.New(dupWindowSize),
		chains:  make(map[uint64]*chain),
		grace:   grace,
	}
}

// Offer feeds one received application frame into the pipeline and
// returns the deliveries it unlocked, in dispatch order: nothing for
// a duplicate or a parked out-of-order frame, possibly several when a
// frame fills the gap a chain was waiting on.
func (p *Pipeline) Offer(seq uint16, f librlb.Frame, now time.Time) []Delivery {
	if f.ReliableNumber != 0 && p.duplicate(f.ReliableNumber) {
		return nil
	}

	d := Delivery{PacketSeq: seq, MessageID: f.MessageID, Payload: f.Payload}

	if f.ChainID == 0 || f.ChainSeq == 0 {
		return []Delivery{d}
	}

	ch, ok := p.chains[f.ChainID]
	if !ok {
		ch = &chain{next: 1, waiting: make(map[uint64]Delivery)}
		p.chains[f.ChainID] = ch
	}
	ch.lastSeen = now

	if f.ChainSeq < ch.next {
		// Already delivered on this chain.
		return nil
	}

	if f.ChainSeq > ch.next {
		ch.waiting[f.ChainSeq] = d
		return nil
	}

	out := []Delivery{d}
	ch.next++

	for {
		nxt, ok := ch.waiting[ch.next]
		if !ok {
			break
		}
		delete(ch.waiting, ch.next)
		out = append(out, nxt)
		ch.next++
	}

	return out
}

// duplicate records n as delivered, reporting true if it was already
// seen within the window. Numbers older than the window are treated
// as duplicates.
func (p *Pipeline) duplicate(n uint32) bool {
	if !p.dupHave {
		p.dupHave = true
		p.dupHigh = n
		p.dupBits.ClearAll()
		p.dupBits.Set(0)
		return false
	}

	if n > p.dupHigh {
		shift := uint(n - p.dupHigh)
		if shift >= dupWindowSize {
			p.dupBits.ClearAll()
		} else {
			shifted := bitset.New(dupWindowSize)
			for i := uint(0); i < dupWindowSize-shift; i++ {
				if p.dupBits.Test(i) {
					shifted.Set(i + shift)
				}
			}
			p.dupBits = shifted
		}
		p.dupHigh = n
		p.dupBits.Set(0)
		return false
	}

	off := uint(p.dupHigh - n)
	if off >= dupWindowSize {
		return true
	}

	if p.dupBits.Test(off) {
		return true
	}

	p.dupBits.Set(off)
	return false
}

// Reclaim drops the state of every chain idle longer than the grace
// period, returning how many were reclaimed.
func (p *Pipeline) Reclaim(now time.Time) int {
	n := 0

	for id, ch := range p.chains {
		if now.Sub(ch.lastSeen) > p.grace {
			delete(p.chains, id)
			n++
		}
	}

	return n
}

// Waiting returns the number of frames parked across all chains,
// for inspection and tests.
func (p *Pipeline) Waiting() int {
	n := 0
	for _, ch := range p.chains {
		n += len(ch.waiting)
	}
	return n
}
