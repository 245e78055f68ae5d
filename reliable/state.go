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

import "time"

// State tags a connection's lifecycle phase.
type State uint8

const (
	// StatePending: handshake in flight, no application traffic yet.
	StatePending State = iota

	// StateOK: handshake complete, traffic flowing.
	StateOK

	// StateDisconnecting: shutdown initiated, in-flight reliable
	// messages draining, no new messages accepted.
	StateDisconnecting

	// StateClosed: all in-flight data acknowledged or the shutdown
	// timeout elapsed; the connection is dead.
	StateClosed
)

// String returns a human-readable label for the state.
func (s State) String() string {
	switch s {
	case StatePending:
		return "Pending"
	case StateOK:
		return "OK"
	case StateDisconnecting:
		return "Disconnecting"
	case StateClosed:
		return "Closed"
	default:
		return "unknown state"
	}
}

// Stats is a snapshot of a connection's counters and estimator state,
// published atomically for the application thread and the metrics
// collector.
type Stats struct {
	PacketsSent          uint64
	PacketsReceived      uint64
	PacketsRetransmitted uint64
	BytesSent            uint64
	BytesReceived        uint64

	MessagesDroppedStale        uint64
	MessagesDroppedOutboundFull uint64

	SRTT   time.Duration
	RTTVar time.Duration
	CWND   int
}
