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
	libwir "github.com/sabouaram/msgnet/wire"
)

// MaxDatagramPayload is the default maximum UDP payload, chosen to
// avoid IP fragmentation.
const MaxDatagramPayload = 1400

// headerFlagAck and headerFlagReliable are the two flag bits packed
// alongside the 14-bit sequence number in the 2-byte datagram header.
const (
	headerFlagAck      uint16 = 1 << 14
	headerFlagReliable uint16 = 1 << 15
)

// AckSection is the piggy-backed acknowledgement carried by a
// datagram: the highest contiguous received sequence, plus a 32-bit
// forward bitfield where bit i set means sequence+i+1 was received.
type AckSection struct {
	CumulativeSeq uint16
	Bitfield      uint32
}

// Packet is one parsed incoming (or about-to-be-sent) datagram.
type Packet struct {
	Seq       uint16
	HasAck    bool
	Ack       AckSection
	HasFrames bool
	Frames    []Frame
}

// EncodeHeader writes the 2-byte sequence+flags header and, if ack is
// non-nil, the 6-byte ack section (2-byte cumulative sequence, 4-byte
// bitfield).
func EncodeHeader(w *libwir.Writer, seq uint16, ack *AckSection, hasFrames bool) {
	h := seq & SeqMask
	if ack != nil {
		h |= headerFlagAck
	}
	if hasFrames {
		h |= headerFlagReliable
	}
	w.WriteUint16(h)

	if ack != nil {
		w.WriteUint16(ack.CumulativeSeq & SeqMask)
		w.WriteUint32(ack.Bitfield)
	}
}

// DecodeHeader parses the fixed 2-byte header and optional 6-byte ack
// section from r.
func DecodeHeader(r *libwir.Reader) (seq uint16, ack *AckSection, hasFrames bool, err error) {
	h, err := r.ReadUint16()
	if err != nil {
		return 0, nil, false, err
	}

	seq = h & SeqMask
	hasFrames = h&headerFlagReliable != 0

	if h&headerFlagAck != 0 {
		cum, err := r.ReadUint16()
		if err != nil {
			return 0, nil, false, err
		}
		bf, err := r.ReadUint32()
		if err != nil {
			return 0, nil, false, err
		}
		ack = &AckSection{CumulativeSeq: cum & SeqMask, Bitfield: bf}
	}

	return seq, ack, hasFrames, nil
}
