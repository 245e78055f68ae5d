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

package conn

import (
	liberr "github.com/sabouaram/msgnet/errors"
	libinb "github.com/sabouaram/msgnet/inbound"
	libmsg "github.com/sabouaram/msgnet/message"
	librlb "github.com/sabouaram/msgnet/reliable"
)

// Worker-side surface. Every method in this file is reserved for the
// single network worker goroutine that owns the connection's engine;
// calling them from the application side breaks the rings'
// single-producer/single-consumer contract.

// PopOutbound takes the next application message bound for the
// engine.
func (c *Connection) PopOutbound() (*libmsg.Message, bool) {
	if c.opt.Overflow == OverflowGrow {
		c.growMu.Lock()
		defer c.growMu.Unlock()
	}

	m, ok := c.outbound.Pop()
	if ok {
		c.pendingOut.Add(-1)
	}
	return m, ok
}

// PushInbound publishes one delivery for the application's next
// Process call. Returns false when the inbound ring is full, in which
// case the worker should back off and advertise flow control.
func (c *Connection) PushInbound(d libinb.Delivery) bool {
	return c.inbound.Insert(d)
}

// InboundBacklog returns how full the inbound ring is, in [0, 1].
func (c *Connection) InboundBacklog() float64 {
	return float64(c.inbound.Len()) / float64(c.inbound.Capacity())
}

// NotifyState publishes a lifecycle transition toward the
// application.
func (c *Connection) NotifyState(s librlb.State, reason liberr.Error) {
	// Keep the atomic state fresh even if the application never
	// pumps; the notification adds the reason and the callback.
	c.state.Store(s)
	c.notify.Insert(Notification{State: s, Reason: reason})
}

// NotifyDropped reports one reliable message the engine gave up on;
// its slot is recycled by the application's next Process call.
func (c *Connection) NotifyDropped(m *libmsg.Message, reason liberr.Error) {
	if !c.notify.Insert(Notification{State: c.state.Load(), Reason: reason, Dropped: m}) {
		c.recycle(m)
	}
}

// RecycleMessage returns a message slot to the pool once the engine is
// finished with it.
func (c *Connection) RecycleMessage(m *libmsg.Message) {
	c.recycle(m)
}

// TakeSimulatorUpdate returns a pending simulator reconfiguration, or
// nil.
func (c *Connection) TakeSimulatorUpdate() *librlb.SimulatorConfig {
	return c.simReq.Swap(nil)
}

// TakeDisconnectRequest reports (once) that the application asked for
// a graceful shutdown.
func (c *Connection) TakeDisconnectRequest() bool {
	return c.disconnectReq.Swap(false)
}

// PublishStats refreshes the statistics snapshot the application
// reads through Stats.
func (c *Connection) PublishStats(s librlb.Stats) {
	c.stats.Store(s)
}
