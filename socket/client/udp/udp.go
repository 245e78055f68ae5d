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

// Package udp is the UDP variant of socket.Client: a connected
// *net.UDPConn. The reliable package layers packet sequencing, acks,
// retransmission and fragmentation on top of the raw datagrams this
// exchanges.
package udp

import (
	"net"
	"sync"

	libsck "github.com/sabouaram/msgnet/socket"
	libcfg "github.com/sabouaram/msgnet/socket/config"
)

type client struct {
	cfg libcfg.Client

	mu   sync.Mutex
	conn *net.UDPConn

	onInfo  libsck.FuncInfo
	onError libsck.FuncError
}

// New returns an unconnected UDP client for cfg. Connect dials.
func New(cfg libcfg.Client) (libsck.Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &client{cfg: cfg}, nil
}

func (c *client) notifyInfo(state libsck.ConnState) {
	if c.onInfo == nil {
		return
	}
	var local, remote net.Addr
	if c.conn != nil {
		local, remote = c.conn.LocalAddr(), c.conn.RemoteAddr()
	}
	c.onInfo(local, remote, state)
}

func (c *client) notifyError(err error) {
	err = libsck.ErrorFilter(err)
	if err == nil || c.onError == nil {
		return
	}
	var local, remote net.Addr
	if c.conn != nil {
		local, remote = c.conn.LocalAddr(), c.conn.RemoteAddr()
	}
	c.onError(local, remote, err)
}

func (c *client) Connect() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.notifyInfo(libsck.ConnectionDial)

	raddr, err := net.ResolveUDPAddr(c.cfg.Network.String(), c.cfg.Address)
	if err != nil {
		c.notifyError(err)
		return err
	}

	conn, err := net.DialUDP(c.cfg.Network.String(), nil, raddr)
	if err != nil {
		c.notifyError(err)
		return err
	}

	c.conn = conn
	c.notifyInfo(libsck.ConnectionNew)
	return nil
}

func (c *client) Write(p []byte) (int, error) {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()

	if conn == nil {
		return 0, net.ErrClosed
	}

	c.notifyInfo(libsck.ConnectionWrite)
	n, err := conn.Write(p)
	if err != nil {
		c.notifyError(err)
	}
	return n, err
}

func (c *client) Read(p []byte) (int, error) {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()

	if conn == nil {
		return 0, net.ErrClosed
	}

	c.notifyInfo(libsck.ConnectionRead)
	n, err := conn.Read(p)
	if err != nil {
		c.notifyError(err)
	}
	return n, err
}

func (c *client) LocalAddr() net.Addr {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return nil
	}
	return c.conn.LocalAddr()
}

func (c *client) RemoteAddr() net.Addr {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return nil
	}
	return c.conn.RemoteAddr()
}

func (c *client) RegisterFuncInfo(f libsck.FuncInfo) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onInfo = f
}

func (c *client) RegisterFuncError(f libsck.FuncError) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onError = f
}

func (c *client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == nil {
		return nil
	}

	c.notifyInfo(libsck.ConnectionClose)
	err := c.conn.Close()
	c.conn = nil
	return err
}
