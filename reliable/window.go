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
	"github.com/bits-and-blooms/bitset"
)

// recvWindowSize is the width of the received datagram window: a
// bitset recording the last 128 received sequence numbers relative to
// the highest received, used for duplicate detection and ack-bitfield
// generation.
const recvWindowSize = 128

// recvWindow tracks which of the last recvWindowSize datagram
// sequence numbers (relative to the highest seen) have been received,
// for duplicate suppression and for producing the forward ack
// bitfield.
type recvWindow struct {
	have    bool
	highest uint16
	bits    *bitset.BitSet // bit i set => seq (highest - i) received
}

func newRecvWindow() *recvWindow {
	return &recvWindow{bits: bitset.New(recvWindowSize)}
}

// offset returns the distance behind highest for seq, and whether that
// distance falls inside the tracked window.
func (w *recvWindow) offset(seq uint16) (uint, bool) {
	d := seqDistance(seq, w.highest) // highest - seq, forward distance from seq to highest
	if d < 0 || d >= recvWindowSize {
		return 0, false
	}
	return uint(d), true
}

// Observe records seq as received. Returns true if seq is a duplicate
// (already within the tracked window and marked), false if it is new.
// Sequences ahead of the highest seen are always new (the window
// slides); sequences older than the tracked window count as
// duplicates.
func (w *recvWindow) Observe(seq uint16) (duplicate bool) {
	if !w.have {
		// Everything before the first received sequence is presumed
		// received, so the ack cumulative starts at the first real
		// sequence instead of 128 slots behind it.
		w.have = true
		w.highest = seq
		w.bits.SetAll()
		return false
	}

	if seqGreater(seq, w.highest) {
		shift := uint(seqDistance(w.highest, seq))
		if shift >= recvWindowSize {
			w.bits.ClearAll()
		} else {
			shifted := bitset.New(recvWindowSize)
			for i := uint(0); i < recvWindowSize-shift; i++ {
				if w.bits.Test(i) {
					shifted.Set(i + shift)
				}
			}
			w.bits = shifted
		}
		w.highest = seq
		w.bits.Set(0)
		return false
	}

	off, ok := w.offset(seq)
	if !ok {
		// Older than the tracked window: treat as a duplicate so it
		// is silently dropped rather than reprocessed.
		return true
	}

	if w.bits.Test(off) {
		return true
	}
	w.bits.Set(off)
	return false
}

// AckSection returns the ack section to piggy-back on an outgoing
// datagram: the highest contiguous received sequence, plus a 32-bit
// forward bitfield (bit i set => cumulative+i+1 was received).
// Sequences that have already slid out of the tracked window count as
// received: they were either processed or are unrecoverable anyway.
func (w *recvWindow) AckSection() AckSection {
	if !w.have {
		return AckSection{}
	}

	// The smallest missing sequence is the one at the largest clear
	// offset; everything older than it is contiguous.
	gap := -1
	for i := int(recvWindowSize) - 1; i >= 0; i-- {
		if !w.bits.Test(uint(i)) {
			gap = i
			break
		}
	}

	cum := w.highest
	if gap >= 0 {
		cum = seqAdd(w.highest, -int32(gap)-1)
	}

	var bf uint32
	for i := uint32(0); i < 32; i++ {
		seq := seqAdd(cum, int32(i)+1)
		off, ok := w.offset(seq)
		if ok && w.bits.Test(off) {
			bf |= 1 << i
		}
	}

	return AckSection{CumulativeSeq: cum, Bitfield: bf}
}
