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
	"context"
	"net"
	"sync"
	"sync/atomic"

	"github.com/cenkalti/backoff/v5"

	libatc "github.com/sabouaram/msgnet/atomic"
	libcon "github.com/sabouaram/msgnet/conn"
	liberrpool "github.com/sabouaram/msgnet/errors/pool"
	liblog "github.com/sabouaram/msgnet/logger"
	libptc "github.com/sabouaram/msgnet/network/protocol"
	librng "github.com/sabouaram/msgnet/ring"
	libsem "github.com/sabouaram/msgnet/semaphore/sem"
	libsck "github.com/sabouaram/msgnet/socket"
	clitcp "github.com/sabouaram/msgnet/socket/client/tcp"
	cliudp "github.com/sabouaram/msgnet/socket/client/udp"
	libcfg "github.com/sabouaram/msgnet/socket/config"
	srvtcp "github.com/sabouaram/msgnet/socket/server/tcp"
	srvudp "github.com/sabouaram/msgnet/socket/server/udp"
	libtun "github.com/sabouaram/msgnet/tunables"
)

// ingressRingCapacity sizes each connection's raw-datagram ring and
// each UDP listener's accept ring.
const ingressRingCapacity = 1 << 10

// acceptMsg is one datagram from an endpoint the host does not know
// yet, queued for the worker to judge (a well-formed Connect frame
// establishes a connection; anything else is dropped).
type acceptMsg struct {
	srv    libsck.PacketWriter
	local  net.Addr
	remote net.Addr
	data   []byte
}

// Host owns the worker goroutines, the socket registry, the server
// listeners and the remote-endpoint to connection association.
type Host struct {
	cfg Config
	log liblog.Logger
	tun libtun.Config

	// conns associates remote endpoint to connection entry. Reads on
	// the data plane are lock-free; mu serializes lifecycle mutations
	// (connect/accept/close) only.
	conns libatc.MapTyped[string, *entry]
	mu    sync.RWMutex

	servers []libsck.Server

	// accepts carries unknown-endpoint datagrams from every UDP
	// listener's read goroutine to the accepting worker (shard 0).
	accepts []*librng.Ring[acceptMsg]

	// pendingNew holds accepted connections awaiting announcement on
	// the application thread.
	pendingNew   []*libcon.Connection
	pendingNewMu sync.Mutex

	sem     libsem.Semaphore
	cancel  context.CancelFunc
	stop    chan struct{}
	wg      sync.WaitGroup
	started atomic.Bool
	closed  atomic.Bool

	nConn  atomic.Int64
	shards int
	next   atomic.Int64
}

// New returns a Host ready to listen and dial. Shutdown must be
// called to release its worker and sockets.
func New(cfg Config) *Host {
	log := cfg.Logger
	if log == nil {
		log = liblog.New(nil)
	}

	tun := libtun.Default()
	if cfg.Tunables != nil {
		tun = *cfg.Tunables
	}

	shards := cfg.Workers
	if shards < 1 {
		shards = 1
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Host{
		cfg:    cfg,
		log:    log,
		tun:    tun,
		conns:  libatc.NewMapTyped[string, *entry](),
		sem:    libsem.New(ctx, shards),
		cancel: cancel,
		stop:   make(chan struct{}),
		shards: shards,
	}
}

// start launches the worker goroutines on first use.
func (h *Host) start() {
	if !h.started.CompareAndSwap(false, true) {
		return
	}

	for i := 0; i < h.shards; i++ {
		h.wg.Add(1)
		go h.worker(i)
	}
}

// ListenUDP binds a reliable-UDP listener on addr
// (e.g. "0.0.0.0:7420").
func (h *Host) ListenUDP(addr string) error {
	ring := librng.New[acceptMsg](ingressRingCapacity)

	srv, err := srvudp.New(libcfg.Server{
		Network:    libptc.NetworkUDP,
		Address:    addr,
		BufferSize: 2048,
	}, h.packetHandler(ring))
	if err != nil {
		return err
	}

	if err := srv.Listen(); err != nil {
		return err
	}

	h.mu.Lock()
	h.servers = append(h.servers, srv)
	h.accepts = append(h.accepts, ring)
	h.mu.Unlock()

	h.start()
	h.log.Info("udp listener bound on %s", srv.LocalAddr().String())
	return nil
}

// packetHandler routes one received datagram: known endpoints feed
// their connection's ingress ring, unknown ones the accept ring.
// Runs on the listener's read goroutine; the payload is copied since
// it is only valid for the duration of the call.
func (h *Host) packetHandler(accept *librng.Ring[acceptMsg]) libsck.PacketHandler {
	return func(local net.Addr, remote net.Addr, payload []byte) {
		data := make([]byte, len(payload))
		copy(data, payload)

		if e, ok := h.conns.Load(remote.String()); ok && e.kind == kindUDP {
			if !e.ingress.Insert(data) {
				// Ingress overflow: drop; reliable traffic is repaired
				// by retransmission.
				h.log.Debug("ingress ring full, datagram from %s dropped", remote.String())
			}
			return
		}

		srv := h.serverFor(local)
		if srv == nil {
			return
		}

		accept.Insert(acceptMsg{srv: srv, local: local, remote: remote, data: data})
	}
}

func (h *Host) serverFor(local net.Addr) libsck.PacketWriter {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, s := range h.servers {
		if w, ok := s.(libsck.PacketWriter); ok && s.LocalAddr() != nil && s.LocalAddr().String() == local.String() {
			return w
		}
	}
	return nil
}

// ListenTCP binds a stream listener on addr. Each accepted connection
// gets its own read goroutine; ordering and reliability come from the
// kernel.
func (h *Host) ListenTCP(addr string) error {
	srv, err := srvtcp.New(libcfg.Server{
		Network: libptc.NetworkTCP,
		Address: addr,
	}, func(raw net.Conn) {
		h.serveTCP(raw, true)
	})
	if err != nil {
		return err
	}

	if err := srv.Listen(); err != nil {
		return err
	}

	h.mu.Lock()
	h.servers = append(h.servers, srv)
	h.mu.Unlock()

	h.start()
	h.log.Info("tcp listener bound on %s", srv.LocalAddr().String())
	return nil
}

// DialUDP establishes a reliable-UDP connection to addr. The returned
// connection is Pending until the handshake completes; the
// application may queue messages immediately.
func (h *Host) DialUDP(addr string) (*libcon.Connection, error) {
	cli, err := cliudp.New(libcfg.Client{
		Network: libptc.NetworkUDP,
		Address: addr,
	})
	if err != nil {
		return nil, err
	}

	if err := cli.Connect(); err != nil {
		return nil, err
	}

	e := h.newUDPEntry(addr, true, func(p []byte) error {
		_, err := cli.Write(p)
		return err
	}, func() { _ = cli.Close() })

	h.register(e)
	h.start()

	// Dedicated read goroutine: the single producer of this
	// connection's ingress ring.
	h.wg.Add(1)
	go func() {
		defer h.wg.Done()

		buf := make([]byte, 2048)
		for {
			n, err := cli.Read(buf)
			if err != nil {
				return
			}
			data := make([]byte, n)
			copy(data, buf[:n])
			e.ingress.Insert(data)
		}
	}()

	return e.c, nil
}

// DialUDPRetry dials addr with exponential backoff until it succeeds,
// ctx is done, or maxTries attempts (0 = unbounded) are exhausted.
func (h *Host) DialUDPRetry(ctx context.Context, addr string, maxTries uint) (*libcon.Connection, error) {
	opts := []backoff.RetryOption{
		backoff.WithBackOff(backoff.NewExponentialBackOff()),
	}
	if maxTries > 0 {
		opts = append(opts, backoff.WithMaxTries(maxTries))
	}

	return backoff.Retry(ctx, func() (*libcon.Connection, error) {
		return h.DialUDP(addr)
	}, opts...)
}

// DialTCP establishes a stream connection to addr. The connection is
// usable as soon as the dial returns.
func (h *Host) DialTCP(addr string) (*libcon.Connection, error) {
	cli, err := clitcp.New(libcfg.Client{
		Network: libptc.NetworkTCP,
		Address: addr,
	})
	if err != nil {
		return nil, err
	}

	if err := cli.Connect(); err != nil {
		return nil, err
	}

	e := h.newTCPEntry(addr, cli)

	h.register(e)
	h.start()

	h.wg.Add(1)
	go func() {
		defer h.wg.Done()
		h.tcpReadLoop(e)
	}()

	return e.c, nil
}

// register installs an entry in the registry under the lifecycle
// lock.
func (h *Host) register(e *entry) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if e.shard < 0 {
		e.shard = int(h.next.Add(1)) % h.shards
	}
	h.conns.Store(e.key, e)
	h.nConn.Add(1)

	if h.cfg.Metrics != nil {
		h.cfg.Metrics.SetConnections(int(h.nConn.Load()))
	}
}

// unregister removes a closed entry.
func (h *Host) unregister(e *entry) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, loaded := h.conns.LoadAndDelete(e.key); !loaded {
		return
	}
	h.nConn.Add(-1)

	if h.cfg.Metrics != nil {
		h.cfg.Metrics.SetConnections(int(h.nConn.Load()))
		h.cfg.Metrics.Forget(e.key)
	}
}

// announce queues a freshly accepted connection for the application's
// next Pump.
func (h *Host) announce(c *libcon.Connection) {
	h.pendingNewMu.Lock()
	h.pendingNew = append(h.pendingNew, c)
	h.pendingNewMu.Unlock()
}

// Pump is the application-thread drive: it announces new connections
// through the server listener and runs Process on every registered
// connection. Returns the number of messages dispatched.
func (h *Host) Pump() int {
	h.pendingNewMu.Lock()
	fresh := h.pendingNew
	h.pendingNew = nil
	h.pendingNewMu.Unlock()

	for _, c := range fresh {
		if h.cfg.Listener != nil {
			h.cfg.Listener.NewConnectionEstablished(c)
		}
	}

	n := 0
	h.conns.Range(func(_ string, e *entry) bool {
		n += e.c.Process()
		return true
	})

	return n
}

// Connections returns the number of registered connections.
func (h *Host) Connections() int {
	return int(h.nConn.Load())
}

// Shutdown drains every connection, stops the listeners and the
// workers, and waits for them. Idempotent.
func (h *Host) Shutdown() {
	if !h.closed.CompareAndSwap(false, true) {
		return
	}

	h.conns.Range(func(_ string, e *entry) bool {
		e.c.Disconnect()
		return true
	})

	// Workers keep running long enough to complete the graceful
	// disconnects, bounded by the grace period.
	deadline := h.tun.Protocol.DisconnectGrace.Time()
	waitConnectionsClosed(h, deadline)

	close(h.stop)
	h.cancel()

	h.mu.Lock()
	servers := h.servers
	h.servers = nil
	h.mu.Unlock()

	pool := liberrpool.New()
	for _, s := range servers {
		pool.Add(s.Shutdown())
	}
	if err := pool.Error(); err != nil {
		h.log.Error("listener shutdown", err)
	}

	h.conns.Range(func(_ string, e *entry) bool {
		e.closeTransport()
		return true
	})

	h.wg.Wait()
}
