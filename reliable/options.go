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
)

// Defaults for every protocol knob.
const (
	DefaultAckDelay           = 10 * time.Millisecond
	DefaultMaxRetries         = 60
	DefaultFragmentTimeout    = 15 * time.Second
	DefaultHandshakeTimeout   = 5 * time.Second
	DefaultDisconnectGrace    = 5 * time.Second
	DefaultPingInterval       = time.Second
	DefaultMaxMessageSize     = 4 << 20
	DefaultMalformedRate      = 1.0
	DefaultMalformedRateOver  = 10 * time.Second
	DefaultMaxDatagramPayload = MaxDatagramPayload
)

// ProtocolVersion is the version the ConnectAck control frame carries.
const ProtocolVersion = 1

// Options carries every tunable of the protocol engine, zero values
// meaning the default above.
type Options struct {
	// AckDelay is how long received-but-unacknowledged sequences may
	// age before a dedicated ack-only datagram is emitted.
	AckDelay time.Duration

	// RTOMin/RTOMax bound the per-datagram retransmission timeout.
	RTOMin time.Duration
	RTOMax time.Duration

	// MaxRetries is the per-message retry budget before the connection
	// is torn down with PeerUnreachable.
	MaxRetries int

	// FragmentTimeout bounds how long a partial fragment set is kept.
	FragmentTimeout time.Duration

	// MaxDatagramPayload caps the UDP payload to avoid IP
	// fragmentation.
	MaxDatagramPayload int

	// MaxMessageSize caps a single message's payload; beyond it the
	// engine reports MessageTooLargeAfterFragment.
	MaxMessageSize int

	// HandshakeTimeout bounds the wait for a ConnectAck.
	HandshakeTimeout time.Duration

	// DisconnectGrace bounds the Disconnecting state.
	DisconnectGrace time.Duration

	// PingInterval is the idle interval after which a Ping control
	// frame is emitted to keep RTT estimates warm.
	PingInterval time.Duration

	// MalformedRate / MalformedRateOver define the sustained parse
	// failure rate (failures per second, measured over the window)
	// that tears the connection down with MalformedPacket.
	MalformedRate     float64
	MalformedRateOver time.Duration
}

func (o Options) withDefaults() Options {
	if o.AckDelay <= 0 {
		o.AckDelay = DefaultAckDelay
	}
	if o.RTOMin <= 0 {
		o.RTOMin = DefaultRTOMin
	}
	if o.RTOMax <= 0 {
		o.RTOMax = DefaultRTOMax
	}
	if o.MaxRetries <= 0 {
		o.MaxRetries = DefaultMaxRetries
	}
	if o.FragmentTimeout <= 0 {
		o.FragmentTimeout = DefaultFragmentTimeout
	}
	if o.MaxDatagramPayload <= 0 || o.MaxDatagramPayload > MaxDatagramPayload {
		o.MaxDatagramPayload = DefaultMaxDatagramPayload
	}
	if o.MaxMessageSize <= 0 {
		o.MaxMessageSize = DefaultMaxMessageSize
	}
	if o.HandshakeTimeout <= 0 {
		o.HandshakeTimeout = DefaultHandshakeTimeout
	}
	if o.DisconnectGrace <= 0 {
		o.DisconnectGrace = DefaultDisconnectGrace
	}
	if o.PingInterval <= 0 {
		o.PingInterval = DefaultPingInterval
	}
	if o.MalformedRate <= 0 {
		o.MalformedRate = DefaultMalformedRate
	}
	if o.MalformedRateOver <= 0 {
		o.MalformedRateOver = DefaultMalformedRateOver
	}
	return o
}
