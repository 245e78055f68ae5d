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
	"time"

	libmsg "github.com/sabouaram/msgnet/message"
)

// sentDatagram is one entry of the sent-not-acked table:
// the reliable frames a datagram carried, the messages behind them,
// the send time and the retry count. Frames are kept already stamped
// so a retransmission reuses the exact numbers the first send put on
// the wire.
type sentDatagram struct {
	seq      uint16
	frames   []Frame
	messages []*libmsg.Message
	sentAt   time.Time
	retries  int
	resent   bool // true once retransmitted; disqualifies RTT sampling (Karn's rule)
}

// sentTable is the per-connection sent-not-acked table. maxRetries is
// the retry count past which a datagram's messages cause connection
// teardown with PeerUnreachable.
type sentTable struct {
	bySeq      map[uint16]*sentDatagram
	maxRetries int
}

func newSentTable(maxRetries int) *sentTable {
	return &sentTable{
		bySeq:      make(map[uint16]*sentDatagram),
		maxRetries: maxRetries,
	}
}

// Add records a newly sent reliable datagram: the frames it carried
// (resent verbatim on timeout) and the application messages behind
// them (for retry accounting and loss reporting).
func (t *sentTable) Add(seq uint16, frames []Frame, messages []*libmsg.Message, now time.Time) {
	t.bySeq[seq] = &sentDatagram{seq: seq, frames: frames, messages: messages, sentAt: now}
}

// Len returns the number of in-flight (unacknowledged) datagrams.
func (t *sentTable) Len() int {
	return len(t.bySeq)
}

// Ack removes seq from the table if present, reporting it and whether
// an RTT sample may be taken for it (i.e. it was never retransmitted).
func (t *sentTable) Ack(seq uint16, now time.Time) (d *sentDatagram, ok bool) {
	d, ok = t.bySeq[seq]
	if !ok {
		return nil, false
	}
	delete(t.bySeq, seq)
	return d, true
}

// Expired scans the table for datagrams whose RTO has elapsed and
// removes them, returning their entries for retransmission. Entries
// whose retry count would exceed maxRetries are returned separately
// as unreachable so the caller can tear the connection down.
func (t *sentTable) Expired(now time.Time, rto time.Duration) (retransmit []*sentDatagram, unreachable []*sentDatagram) {
	for seq, d := range t.bySeq {
		if now.Sub(d.sentAt) < rto {
			continue
		}

		delete(t.bySeq, seq)
		d.retries++
		d.resent = true

		if d.retries > t.maxRetries {
			unreachable = append(unreachable, d)
			continue
		}

		retransmit = append(retransmit, d)
	}
	return retransmit, unreachable
}

// Covered removes and returns every in-flight datagram the ack
// section acknowledges: everything at or before the cumulative
// sequence, plus every sequence the forward bitfield marks. Acks are
// idempotent; sequences no longer in the table are simply skipped.
func (t *sentTable) Covered(ack AckSection) []*sentDatagram {
	var out []*sentDatagram

	for seq, d := range t.bySeq {
		if seqDistance(seq, ack.CumulativeSeq) >= 0 {
			delete(t.bySeq, seq)
			out = append(out, d)
			continue
		}

		fwd := seqDistance(ack.CumulativeSeq, seq)
		if fwd >= 1 && fwd <= 32 && ack.Bitfield&(1<<uint(fwd-1)) != 0 {
			delete(t.bySeq, seq)
			out = append(out, d)
		}
	}

	return out
}

// All returns every currently in-flight datagram, used when draining
// the table during a graceful Disconnecting shutdown.
func (t *sentTable) All() []*sentDatagram {
	out := make([]*sentDatagram, 0, len(t.bySeq))
	for _, d := range t.bySeq {
		out = append(out, d)
	}
	return out
}
