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

// Package host is the process-wide network host: it owns the network
// worker goroutine, the socket registry, the server
// listeners and the association from remote endpoint to message
// connection. The worker multiplexes every registered connection
// cooperatively; the application interacts only through each
// connection's facade and the host's Pump.
package host

import (
	libcon "github.com/sabouaram/msgnet/conn"
	liblog "github.com/sabouaram/msgnet/logger"
	libmet "github.com/sabouaram/msgnet/metrics"
	libtun "github.com/sabouaram/msgnet/tunables"
)

// ServerListener is notified of each accepted connection, on the
// application thread, the next time the application pumps.
type ServerListener interface {
	NewConnectionEstablished(c *libcon.Connection)
}

// ServerListenerFunc adapts a function to the ServerListener
// interface.
type ServerListenerFunc func(c *libcon.Connection)

// NewConnectionEstablished calls f.
func (f ServerListenerFunc) NewConnectionEstablished(c *libcon.Connection) {
	f(c)
}

// Config assembles a Host.
type Config struct {
	// Logger defaults to a stderr logger at info level.
	Logger liblog.Logger

	// Tunables defaults to tunables.Default().
	Tunables *libtun.Config

	// Handler receives every application message of every connection
	// the host accepts or dials, unless overridden per dial.
	Handler libcon.Handler

	// Listener observes accepted connections.
	Listener ServerListener

	// StateListener observes lifecycle transitions of every
	// connection.
	StateListener libcon.StateListener

	// Metrics, when set, is refreshed by the worker from each
	// connection's stats snapshot.
	Metrics *libmet.Set

	// Workers is the number of network worker goroutines; the default
	// is one. Values above one shard the connection set; the
	// per-connection single-worker discipline is preserved because a
	// connection is always owned by exactly one shard.
	Workers int
}
