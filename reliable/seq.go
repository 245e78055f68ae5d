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

// Package reliable implements the per-connection reliable UDP protocol
// engine: packet sequencing with serial-number
// arithmetic, piggy-backed acknowledgement, RTO-driven retransmission,
// Jacobson/Karels RTT estimation, a slow-start/congestion-avoidance
// window, message fragmentation/reassembly, the connect handshake, and
// the local send simulator used by the test harness.
package reliable

// SeqBits is the width of the datagram sequence number carried by the
// 2-byte wire header. The ack-bitfield window plus the duplicate
// window must not exceed half the sequence space.
const SeqBits = 14

// SeqSpace is 2^SeqBits, the modulus sequence numbers wrap around.
const SeqSpace = 1 << SeqBits

// SeqMask masks a raw counter down to the 14-bit sequence space.
const SeqMask = SeqSpace - 1

// seqGreater reports whether a is "later" than b in serial-number
// arithmetic modulo SeqSpace, using the standard half-window rule:
// a is greater than b if the forward distance from b to a is less
// than half the sequence space.
func seqGreater(a, b uint16) bool {
	return seqDistance(b, a) > 0 && seqDistance(b, a) < SeqSpace/2
}

// seqDistance returns the forward distance from a to b, i.e. the
// number of increments of a (mod SeqSpace) needed to reach b, as a
// signed value in (-SeqSpace/2, SeqSpace/2].
func seqDistance(a, b uint16) int32 {
	d := (int32(b) - int32(a)) & (SeqSpace - 1)
	if d > SeqSpace/2 {
		d -= SeqSpace
	}
	return d
}

// seqAdd returns (s + n) mod SeqSpace.
func seqAdd(s uint16, n int32) uint16 {
	v := (int32(s) + n) % SeqSpace
	if v < 0 {
		v += SeqSpace
	}
	return uint16(v)
}
