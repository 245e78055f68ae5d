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

// Package message defines Message, the atomic unit exchanged with the
// application, and the reserved control message ids the engine uses
// for its own handshake and keep-alive traffic.
package message

import (
	"time"
)

// ID is the application-level message type tag. Values below
// FirstUserID are reserved for the engine's own control traffic.
type ID uint16

// Reserved control message ids.
const (
	IDConnect ID = iota + 1
	IDConnectAck
	IDDisconnect
	IDDisconnectAck
	IDPing
	IDPong
	IDFlowControl

	// FirstUserID is the lowest id an application may assign to its
	// own messages.
	FirstUserID ID = 8
)

// Message is the atomic unit exchanged with the application.
type Message struct {
	// MessageID is the application-level type tag.
	MessageID ID

	// Payload is the opaque byte sequence carried by this message.
	Payload []byte

	// Priority: higher values are sent first.
	Priority uint32

	// Reliable: if true, the engine retransmits until acknowledged.
	Reliable bool

	// InOrder: if true, the receiver delays delivery until every
	// prior in-order message on the same ContentID chain has been
	// delivered.
	InOrder bool

	// ContentID is the optional non-zero identifier used for
	// coalescing and ordering. 0 means "no coalescing".
	ContentID uint32

	// SendDeadline, if non-zero, is the monotonic time after which an
	// unsent reliable message is dropped (stale-message policy).
	SendDeadline time.Time

	// CreationTime is the monotonic enqueue time, used for priority
	// aging tie-breaks.
	CreationTime time.Time

	// ReliableNumber is the per-connection monotonic counter stamped
	// on reliable messages by the scheduler; 0 until stamped.
	ReliableNumber uint32

	// ChainSequence is the per-chain ordering index stamped on
	// in-order messages by the scheduler; 0 until stamped.
	ChainSequence uint64

	// RetryCount is incremented each time this message's carrying
	// datagram times out and is retransmitted.
	RetryCount int
}

// IsStale reports whether the message's SendDeadline has passed as of
// now.
func (m *Message) IsStale(now time.Time) bool {
	return !m.SendDeadline.IsZero() && now.After(m.SendDeadline)
}

// New returns a Message ready to be handed to a connection's
// EndAndQueue, stamping CreationTime to now.
func New(id ID, payload []byte) *Message {
	return &Message{
		MessageID:    id,
		Payload:      payload,
		CreationTime: time.Now(),
	}
}
