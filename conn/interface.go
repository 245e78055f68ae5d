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

// Package conn is the message-connection facade: the application-facing
// surface over the reliable engine (UDP) or the
// length-prefixed stream transport (TCP). All traffic between the
// application thread and the network worker crosses the two wait-free
// rings owned here; the application never touches engine state.
package conn

import (
	liberr "github.com/sabouaram/msgnet/errors"
	libinb "github.com/sabouaram/msgnet/inbound"
	libmsg "github.com/sabouaram/msgnet/message"
	librlb "github.com/sabouaram/msgnet/reliable"
)

// Handler is the application message callback, invoked on the
// application thread from Process.
type Handler interface {
	HandleMessage(c *Connection, packetID uint16, id libmsg.ID, payload []byte)
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc func(c *Connection, packetID uint16, id libmsg.ID, payload []byte)

// HandleMessage calls f.
func (f HandlerFunc) HandleMessage(c *Connection, packetID uint16, id libmsg.ID, payload []byte) {
	f(c, packetID, id, payload)
}

// ContentIDComputer optionally derives a content id from an inbound
// message so Process can coalesce stacked-up state updates ahead of
// dispatch, keeping only the newest payload per id.
type ContentIDComputer interface {
	ComputeContentID(id libmsg.ID, payload []byte) uint32
}

// OverflowPolicy selects what EndAndQueue does when the outbound ring
// is full.
type OverflowPolicy uint8

const (
	// OverflowReport fails with OutboundQueueFull.
	OverflowReport OverflowPolicy = iota

	// OverflowDrop silently drops the message.
	OverflowDrop

	// OverflowGrow doubles the ring. Growing serializes against the
	// worker's drain through a lock, trading the wait-free hot path
	// for an unbounded queue.
	OverflowGrow
)

// Notification is one connection-level event delivered to the
// application on its next Process call.
type Notification struct {
	// State is the new connection state for a lifecycle transition.
	State librlb.State

	// Reason carries the failure behind the transition, nil for a
	// clean one.
	Reason liberr.Error

	// Dropped, when non-nil, reports a reliable message the engine
	// gave up on; State is then the state at the time of the drop.
	Dropped *libmsg.Message
}

// StateListener observes connection lifecycle transitions on the
// application thread.
type StateListener interface {
	ConnectionStateChanged(c *Connection, s librlb.State, reason liberr.Error)
}

// delivery re-exported for the host worker: the worker produces
// these into the inbound ring.
type delivery = libinb.Delivery
