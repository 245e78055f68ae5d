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
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	libatc "github.com/sabouaram/msgnet/atomic"
	liberr "github.com/sabouaram/msgnet/errors"
	libmsg "github.com/sabouaram/msgnet/message"
	librlb "github.com/sabouaram/msgnet/reliable"
	librng "github.com/sabouaram/msgnet/ring"
)

// Default ring capacities; powers of two per the ring contract.
const (
	DefaultOutboundRing = 1 << 10
	DefaultInboundRing  = 1 << 12
	DefaultNotifyRing   = 1 << 8
)

// Options configures one Connection facade.
type Options struct {
	// Remote is the peer's address, for inspection only.
	Remote string

	// Overflow selects the outbound-ring full policy.
	Overflow OverflowPolicy

	// OutboundCapacity / InboundCapacity size the two rings; zero
	// selects the defaults. Must be powers of two.
	OutboundCapacity uint64
	InboundCapacity  uint64

	Handler       Handler
	StateListener StateListener
	ContentIDs    ContentIDComputer
}

// Connection is the application-facing message connection. The
// application side calls NewMessage, EndAndQueue, Process and
// Disconnect; the network worker side drains the outbound ring and
// produces into the inbound and notification rings.
type Connection struct {
	opt Options

	// state mirrors the engine's published state; updated by the
	// worker through notifications, readable anywhere.
	state libatc.Value[librlb.State]

	// outbound: application produces, worker consumes.
	outbound *librng.Ring[*libmsg.Message]

	// inbound: worker produces, application consumes in Process.
	inbound *librng.Ring[delivery]

	// notify: worker produces lifecycle/drop events, application
	// consumes in Process.
	notify *librng.Ring[Notification]

	// growMu serializes an OverflowGrow resize against the worker's
	// drain. Only touched when the policy is OverflowGrow.
	growMu sync.Mutex

	// simReq hands a simulator reconfiguration to the worker.
	simReq atomic.Pointer[librlb.SimulatorConfig]

	// disconnectReq tells the worker to initiate a graceful shutdown.
	disconnectReq atomic.Bool

	// stats is refreshed by the worker after each engine tick.
	stats libatc.Value[librlb.Stats]

	pool sync.Pool

	pendingOut  atomic.Int64
	droppedFull atomic.Uint64
}

// New returns a Connection facade with empty rings, in Pending state.
func New(opt Options) *Connection {
	if opt.OutboundCapacity == 0 {
		opt.OutboundCapacity = DefaultOutboundRing
	}
	if opt.InboundCapacity == 0 {
		opt.InboundCapacity = DefaultInboundRing
	}

	c := &Connection{
		opt:      opt,
		state:    libatc.NewValue[librlb.State](),
		outbound: librng.New[*libmsg.Message](opt.OutboundCapacity),
		inbound:  librng.New[delivery](opt.InboundCapacity),
		notify:   librng.New[Notification](DefaultNotifyRing),
		stats:    libatc.NewValue[librlb.Stats](),
	}

	c.pool.New = func() interface{} { return new(libmsg.Message) }
	c.state.Store(librlb.StatePending)

	return c
}

// NewMessage returns a writable message slot drawn from the
// connection's pool, stamped with the creation time. sizeHint
// pre-sizes the payload buffer.
func (c *Connection) NewMessage(id libmsg.ID, sizeHint int) (*libmsg.Message, liberr.Error) {
	if c.State() == librlb.StateClosed {
		return nil, liberr.ErrorConnectionClosed.Error(nil)
	}

	m := c.pool.Get().(*libmsg.Message)
	*m = libmsg.Message{
		MessageID:    id,
		CreationTime: time.Now(),
	}

	if sizeHint > 0 && cap(m.Payload) < sizeHint {
		m.Payload = make([]byte, 0, sizeHint)
	} else {
		m.Payload = m.Payload[:0]
	}

	return m, nil
}

// EndAndQueue hands a finished message to the network worker through
// the outbound ring, applying the configured overflow policy.
func (c *Connection) EndAndQueue(m *libmsg.Message) liberr.Error {
	if s := c.State(); s >= librlb.StateDisconnecting {
		return liberr.ErrorConnectionClosed.Error(nil)
	}

	switch c.opt.Overflow {
	case OverflowGrow:
		c.growMu.Lock()
		if !c.outbound.Insert(m) {
			c.outbound.ResizeDouble()
			c.outbound.Insert(m)
		}
		c.growMu.Unlock()
	default:
		if !c.outbound.Insert(m) {
			c.droppedFull.Add(1)
			if c.opt.Overflow == OverflowDrop {
				c.recycle(m)
				return nil
			}
			return liberr.ErrorOutboundQueueFull.Error(nil)
		}
	}

	c.pendingOut.Add(1)
	return nil
}

// Process is the application-thread pump: it drains the inbound ring
// through the handler, flushes connection notifications and recycles
// finished message slots. Returns the number of messages dispatched.
func (c *Connection) Process() int {
	n := c.dispatchInbound()

	for {
		note, ok := c.notify.Pop()
		if !ok {
			break
		}

		if note.Dropped != nil {
			c.recycle(note.Dropped)
			continue
		}

		c.state.Store(note.State)
		if c.opt.StateListener != nil {
			c.opt.StateListener.ConnectionStateChanged(c, note.State, note.Reason)
		}
	}

	return n
}

func (c *Connection) dispatchInbound() int {
	if c.opt.Handler == nil {
		// Nothing to dispatch to; drop to keep the ring moving.
		n := 0
		for {
			if _, ok := c.inbound.Pop(); !ok {
				return n
			}
			n++
		}
	}

	if c.opt.ContentIDs == nil {
		n := 0
		for {
			d, ok := c.inbound.Pop()
			if !ok {
				return n
			}
			c.opt.Handler.HandleMessage(c, d.PacketSeq, d.MessageID, d.Payload)
			n++
		}
	}

	// Inbound coalescing: drain what is available, keep only the
	// newest delivery per non-zero content id, dispatch in arrival
	// order.
	var (
		batch      []delivery
		superseded []bool
		last       = map[uint32]int{}
	)

	for {
		d, ok := c.inbound.Pop()
		if !ok {
			break
		}

		if cid := c.opt.ContentIDs.ComputeContentID(d.MessageID, d.Payload); cid != 0 {
			if prev, seen := last[cid]; seen {
				superseded[prev] = true
			}
			last[cid] = len(batch)
		}

		batch = append(batch, d)
		superseded = append(superseded, false)
	}

	n := 0
	for i, d := range batch {
		if superseded[i] {
			continue
		}
		c.opt.Handler.HandleMessage(c, d.PacketSeq, d.MessageID, d.Payload)
		n++
	}

	return n
}

// Disconnect initiates a graceful shutdown. Idempotent; the state
// reaches Closed within the disconnect grace period.
func (c *Connection) Disconnect() {
	c.disconnectReq.Store(true)
}

// SetSimulator asks the worker to apply a new send-simulator
// configuration on its next tick.
func (c *Connection) SetSimulator(cfg librlb.SimulatorConfig) {
	c.simReq.Store(&cfg)
}

// NumOutboundPending returns the number of messages handed to the
// engine and not yet serialized onto the wire.
func (c *Connection) NumOutboundPending() int {
	return int(c.pendingOut.Load())
}

// State returns the connection state as last observed by the
// application thread.
func (c *Connection) State() librlb.State {
	return c.state.Load()
}

// Stats returns the engine statistics snapshot last published by the
// worker.
func (c *Connection) Stats() librlb.Stats {
	return c.stats.Load()
}

// DroppedOutboundFull returns how many messages the outbound ring has
// rejected for lack of room.
func (c *Connection) DroppedOutboundFull() uint64 {
	return c.droppedFull.Load()
}

// Remote returns the peer address the connection was built for.
func (c *Connection) Remote() string {
	return c.opt.Remote
}

// String implements fmt.Stringer for inspection.
func (c *Connection) String() string {
	return fmt.Sprintf("msgnet connection to %s [%s, %d outbound pending]",
		c.opt.Remote, c.State().String(), c.NumOutboundPending())
}

func (c *Connection) recycle(m *libmsg.Message) {
	if m == nil {
		return
	}
	m.Payload = m.Payload[:0]
	c.pool.Put(m)
}
