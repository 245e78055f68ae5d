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

package host

import (
	"io"
	"net"
	"time"

	libcon "github.com/sabouaram/msgnet/conn"
	liberr "github.com/sabouaram/msgnet/errors"
	libinb "github.com/sabouaram/msgnet/inbound"
	logfld "github.com/sabouaram/msgnet/logger/fields"
	libmsg "github.com/sabouaram/msgnet/message"
	librlb "github.com/sabouaram/msgnet/reliable"
	librng "github.com/sabouaram/msgnet/ring"
	libsck "github.com/sabouaram/msgnet/socket"
	libtcp "github.com/sabouaram/msgnet/tcp"
	libwir "github.com/sabouaram/msgnet/wire"
)

// tcpEncode and tcpReadFrame bridge the stream transport's framing.
func tcpEncode(m *libmsg.Message) ([]byte, liberr.Error) {
	return libtcp.EncodeMessage(m)
}

func tcpReadFrame(r io.Reader) (librlb.Frame, error) {
	return libtcp.ReadFrame(r)
}

type transportKind uint8

const (
	kindUDP transportKind = iota
	kindTCP
)

// flowControlHighWater is the inbound-ring occupancy beyond which the
// worker advertises a reduced window to the peer.
const flowControlHighWater = 0.75

// chainReclaimInterval spaces the inbound pipeline's idle-chain
// sweeps.
const chainReclaimInterval = 30 * time.Second

// entry is the worker-side record of one connection.
type entry struct {
	key   string
	kind  transportKind
	c     *libcon.Connection
	shard int

	// UDP reliable path.
	eng     *librlb.Conn
	pipe    *libinb.Pipeline
	ingress *librng.Ring[[]byte]
	write   func(p []byte) error
	closeFn func()

	// TCP stream path.
	raw libsck.Client

	// now is the worker's clock reading for the current service pass,
	// read by the engine callbacks.
	now time.Time

	lastReclaim time.Time
	throttled   bool
}

// newUDPEntry assembles a connection facade, an inbound pipeline and a
// protocol engine wired to each other.
func (h *Host) newUDPEntry(remote string, client bool, write func([]byte) error, closeFn func()) *entry {
	e := &entry{
		key:     remote,
		kind:    kindUDP,
		shard:   -1,
		ingress: librng.New[[]byte](ingressRingCapacity),
		write:   write,
		closeFn: closeFn,
	}

	e.c = libcon.New(libcon.Options{
		Remote:           remote,
		Handler:          h.cfg.Handler,
		StateListener:    h.cfg.StateListener,
		OutboundCapacity: h.tun.Rings.Outbound,
		InboundCapacity:  h.tun.Rings.Inbound,
	})

	e.pipe = libinb.New(h.tun.Worker.ChainGrace.Time())

	lg := h.log.Clone()
	lg.SetFields(logfld.New().Add("remote", remote))

	e.eng = librlb.NewConn(librlb.Config{
		Client: client,
		Logger: lg,
		Send: func(data []byte) {
			if err := libsck.ErrorFilter(e.write(data)); err != nil {
				h.log.Error("datagram send failed toward %s", err, remote)
			}
		},
		OnFrame: func(seq uint16, f librlb.Frame) {
			for _, d := range e.pipe.Offer(seq, f, e.now) {
				if !e.c.PushInbound(d) {
					// Inbound ring full: drop and rely on
					// retransmission plus flow control to recover.
					h.log.Debug("inbound ring full on %s", remote)
				}
			}
		},
		OnState: func(s librlb.State, reason liberr.Error) {
			e.c.NotifyState(s, reason)
		},
		OnDrop: func(m *libmsg.Message, reason liberr.Error) {
			e.c.NotifyDropped(m, reason)
		},
		OnDone: func(m *libmsg.Message) {
			e.c.RecycleMessage(m)
		},
		Options: h.tun.Options(),
	})

	return e
}

// newTCPEntry assembles a stream-mode connection.
func (h *Host) newTCPEntry(remote string, raw libsck.Client) *entry {
	e := &entry{
		key:   remote,
		kind:  kindTCP,
		shard: -1,
		raw:   raw,
	}

	e.c = libcon.New(libcon.Options{
		Remote:           remote,
		Handler:          h.cfg.Handler,
		StateListener:    h.cfg.StateListener,
		OutboundCapacity: h.tun.Rings.Outbound,
		InboundCapacity:  h.tun.Rings.Inbound,
	})

	// A stream connection is usable the moment the dial or accept
	// completes.
	e.c.NotifyState(librlb.StateOK, nil)

	return e
}

// worker is one network worker goroutine: a bounded-timeout tick loop
// servicing every connection of its shard.
func (h *Host) worker(shard int) {
	defer h.wg.Done()

	if err := h.sem.NewWorker(); err != nil {
		return
	}
	defer h.sem.DeferWorker()

	tick := h.tun.Worker.TickInterval.Time()
	if tick <= 0 {
		tick = 5 * time.Millisecond
	}

	t := time.NewTicker(tick)
	defer t.Stop()

	for {
		select {
		case <-h.stop:
			return
		case now := <-t.C:
			if shard == 0 {
				h.drainAccepts(now)
			}

			var dead []*entry

			h.conns.Range(func(_ string, e *entry) bool {
				if e.shard != shard {
					return true
				}

				h.service(e, now)

				if e.done() {
					dead = append(dead, e)
				}
				return true
			})

			for _, e := range dead {
				e.closeTransport()
				h.unregister(e)
			}
		}
	}
}

// drainAccepts turns well-formed Connect datagrams from unknown
// endpoints into new server-side connections.
func (h *Host) drainAccepts(now time.Time) {
	h.mu.RLock()
	rings := h.accepts
	h.mu.RUnlock()

	for _, ring := range rings {
		for {
			a, ok := ring.Pop()
			if !ok {
				break
			}

			if _, exists := h.conns.Load(a.remote.String()); exists {
				h.feed(a, now)
				continue
			}

			if !looksLikeConnect(a.data) {
				continue
			}

			e := h.acceptUDP(a)
			h.feed(a, now)
			h.service(e, now)
		}
	}
}

// feed routes one accept-queue datagram into its (now registered)
// connection.
func (h *Host) feed(a acceptMsg, now time.Time) {
	if e, ok := h.conns.Load(a.remote.String()); ok && e.kind == kindUDP {
		e.now = now
		e.eng.HandleDatagram(a.data, now)
	}
}

// acceptUDP registers a server-side connection for remote and queues
// its announcement.
func (h *Host) acceptUDP(a acceptMsg) *entry {
	remote := a.remote
	srv := a.srv

	e := h.newUDPEntry(remote.String(), false, func(p []byte) error {
		_, err := srv.WriteTo(remote, p)
		return err
	}, nil)

	// Accepted connections stay on the accepting shard so the engine
	// is only ever touched by this worker.
	e.shard = 0
	h.register(e)
	h.announce(e.c)
	h.log.Info("accepted connection from %s", remote.String())

	return e
}

// looksLikeConnect reports whether a raw datagram from an unknown
// endpoint parses as a packet whose first frame is a Connect control
// frame.
func looksLikeConnect(data []byte) bool {
	r := libwir.NewReader(data)

	_, _, _, err := librlb.DecodeHeader(r)
	if err != nil || r.Remaining() == 0 {
		return false
	}

	f, err := librlb.DecodeFrame(r)
	if err != nil {
		return false
	}

	return f.MessageID == libmsg.IDConnect
}

// service runs one worker pass over one connection.
func (h *Host) service(e *entry, now time.Time) {
	e.now = now

	switch e.kind {
	case kindUDP:
		h.serviceUDP(e, now)
	case kindTCP:
		h.serviceTCP(e, now)
	}

	if h.cfg.Metrics != nil {
		h.cfg.Metrics.Observe(e.key, e.c.Stats())
	}
}

func (h *Host) serviceUDP(e *entry, now time.Time) {
	// Raw datagrams first: acks free congestion window for the pump
	// below.
	for {
		data, ok := e.ingress.Pop()
		if !ok {
			break
		}
		e.eng.HandleDatagram(data, now)
	}

	if cfg := e.c.TakeSimulatorUpdate(); cfg != nil {
		e.eng.SetSimulator(*cfg)
	}

	if e.c.TakeDisconnectRequest() {
		e.eng.Disconnect(now)
	}

	// Application messages into the scheduler.
	for {
		m, ok := e.c.PopOutbound()
		if !ok {
			break
		}
		if err := e.eng.Queue(m); err != nil {
			e.c.NotifyDropped(m, err)
		}
	}

	// Inbound pressure: advertise a reduced window while the
	// application lags, lift it once the ring drains.
	if backlog := e.c.InboundBacklog(); backlog > flowControlHighWater && !e.throttled {
		e.throttled = true
		e.eng.SendFlowControl(1, now)
	} else if e.throttled && backlog < flowControlHighWater/2 {
		e.throttled = false
		e.eng.SendFlowControl(0, now)
	}

	e.eng.Tick(now)

	if e.lastReclaim.IsZero() || now.Sub(e.lastReclaim) > chainReclaimInterval {
		e.lastReclaim = now
		e.pipe.Reclaim(now)
	}

	st := e.eng.Stats()
	st.MessagesDroppedOutboundFull = e.c.DroppedOutboundFull()
	e.c.PublishStats(st)
}

func (h *Host) serviceTCP(e *entry, now time.Time) {
	if e.c.TakeDisconnectRequest() {
		e.c.NotifyState(librlb.StateClosed, nil)
		_ = e.raw.Close()
		return
	}

	for {
		m, ok := e.c.PopOutbound()
		if !ok {
			break
		}

		data, err := tcpEncode(m)
		if err != nil {
			e.c.NotifyDropped(m, err)
			continue
		}

		if _, werr := e.raw.Write(data); libsck.ErrorFilter(werr) != nil {
			e.c.NotifyState(librlb.StateClosed, liberr.ErrorPeerDisconnected.Error(werr))
			return
		}

		e.c.RecycleMessage(m)
	}
}

// serveTCP runs an accepted stream connection: registration,
// announcement, then the read loop on this goroutine.
func (h *Host) serveTCP(raw net.Conn, accepted bool) {
	e := &entry{
		key:   raw.RemoteAddr().String(),
		kind:  kindTCP,
		shard: -1,
		raw:   rawClient{raw},
	}

	e.c = libcon.New(libcon.Options{
		Remote:           e.key,
		Handler:          h.cfg.Handler,
		StateListener:    h.cfg.StateListener,
		OutboundCapacity: h.tun.Rings.Outbound,
		InboundCapacity:  h.tun.Rings.Inbound,
	})
	e.c.NotifyState(librlb.StateOK, nil)

	h.register(e)
	if accepted {
		h.announce(e.c)
	}

	h.tcpReadLoop(e)
}

// tcpReadLoop parses length-prefixed frames off the stream and
// produces them straight into the connection's inbound ring (this
// goroutine is the ring's single producer).
func (h *Host) tcpReadLoop(e *entry) {
	for {
		f, err := tcpReadFrame(e.raw)
		if err != nil {
			if e.c.State() < librlb.StateClosed {
				e.c.NotifyState(librlb.StateClosed, liberr.ErrorPeerDisconnected.Error(nil))
			}
			return
		}

		if f.MessageID < libmsg.FirstUserID {
			continue
		}

		e.c.PushInbound(libinb.Delivery{MessageID: f.MessageID, Payload: f.Payload})
	}
}

// done reports whether the entry's connection reached Closed and can
// be unregistered.
func (e *entry) done() bool {
	return e.c.State() == librlb.StateClosed
}

// closeTransport releases the entry's socket resources.
func (e *entry) closeTransport() {
	switch e.kind {
	case kindUDP:
		if e.closeFn != nil {
			e.closeFn()
		}
	case kindTCP:
		if e.raw != nil {
			_ = e.raw.Close()
		}
	}
}

// rawClient adapts an accepted net.Conn to the socket.Client surface
// the entry stores.
type rawClient struct {
	net.Conn
}

func (rawClient) Connect() error                       { return nil }
func (rawClient) RegisterFuncInfo(_ libsck.FuncInfo)   {}
func (rawClient) RegisterFuncError(_ libsck.FuncError) {}

// waitConnectionsClosed blocks until every connection reports Closed
// or the deadline passes.
func waitConnectionsClosed(h *Host, grace time.Duration) {
	deadline := time.Now().Add(grace)

	for time.Now().Before(deadline) {
		open := false
		h.conns.Range(func(_ string, e *entry) bool {
			if e.c.State() != librlb.StateClosed {
				open = true
				return false
			}
			return true
		})

		if !open {
			return
		}

		time.Sleep(10 * time.Millisecond)
	}
}
