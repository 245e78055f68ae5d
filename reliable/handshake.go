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
	"math/rand"
	"time"

	"github.com/cenkalti/backoff/v5"

	libwir "github.com/sabouaram/msgnet/wire"
)

// connectPayload is the body of a Connect control frame: a 32-bit
// random challenge.
type connectPayload struct {
	Challenge uint32
}

func (p connectPayload) encode() []byte {
	w := libwir.NewWriter(4)
	w.WriteUint32(p.Challenge)
	return w.Bytes()
}

func decodeConnect(b []byte) (connectPayload, error) {
	r := libwir.NewReader(b)
	c, err := r.ReadUint32()
	return connectPayload{Challenge: c}, err
}

// connectAckPayload is the body of a ConnectAck control frame: the
// echoed client challenge, the responder's own challenge, and the
// chosen protocol version. The client's confirm frame reuses this
// shape with the server challenge echoed and its own challenge
// repeated.
type connectAckPayload struct {
	Echo      uint32
	Challenge uint32
	Version   uint8
}

func (p connectAckPayload) encode() []byte {
	w := libwir.NewWriter(9)
	w.WriteUint32(p.Echo)
	w.WriteUint32(p.Challenge)
	w.WriteUint8(p.Version)
	return w.Bytes()
}

func decodeConnectAck(b []byte) (connectAckPayload, error) {
	var p connectAckPayload

	r := libwir.NewReader(b)

	v, err := r.ReadUint32()
	if err != nil {
		return p, err
	}
	p.Echo = v

	v, err = r.ReadUint32()
	if err != nil {
		return p, err
	}
	p.Challenge = v

	ver, err := r.ReadUint8()
	if err != nil {
		return p, err
	}
	p.Version = ver

	return p, nil
}

// pingPayload carries the sender's monotonic send time so the echoing
// Pong yields an RTT sample without any state at the receiver.
type pingPayload struct {
	SentNanos uint64
}

func (p pingPayload) encode() []byte {
	w := libwir.NewWriter(8)
	w.WriteUint64(p.SentNanos)
	return w.Bytes()
}

func decodePing(b []byte) (pingPayload, error) {
	r := libwir.NewReader(b)
	v, err := r.ReadUint64()
	return pingPayload{SentNanos: v}, err
}

// flowControlPayload advertises the number of datagrams the sender is
// willing to have in flight toward it; the peer caps its effective
// congestion window by this value.
type flowControlPayload struct {
	Window uint32
}

func (p flowControlPayload) encode() []byte {
	w := libwir.NewWriter(4)
	w.WriteUint32(p.Window)
	return w.Bytes()
}

func decodeFlowControl(b []byte) (flowControlPayload, error) {
	r := libwir.NewReader(b)
	v, err := r.ReadUint32()
	return flowControlPayload{Window: v}, err
}

// handshake is the client-side connect state: the local challenge, the
// backoff schedule for Connect retransmissions and the overall
// deadline after which HandshakeTimeout is reported.
type handshake struct {
	challenge     uint32
	peerChallenge uint32

	started   time.Time
	deadline  time.Time
	nextSend  time.Time
	bo        *backoff.ExponentialBackOff
	confirmed bool
}

func newHandshake(rng *rand.Rand, now time.Time, timeout time.Duration) *handshake {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 100 * time.Millisecond
	bo.MaxInterval = time.Second
	bo.RandomizationFactor = 0.2
	bo.Reset()

	return &handshake{
		challenge: rng.Uint32(),
		started:   now,
		deadline:  now.Add(timeout),
		nextSend:  now,
		bo:        bo,
	}
}

// shouldSend reports whether a (re)send of the Connect frame is due,
// advancing the backoff schedule when it is.
func (h *handshake) shouldSend(now time.Time) bool {
	if now.Before(h.nextSend) {
		return false
	}

	h.nextSend = now.Add(h.bo.NextBackOff())
	return true
}

// expired reports whether the handshake deadline has passed.
func (h *handshake) expired(now time.Time) bool {
	return now.After(h.deadline)
}
