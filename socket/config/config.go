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

// Package config holds the dial/listen configuration shared by every
// socket client and server variant.
package config

import (
	"time"

	libptc "github.com/sabouaram/msgnet/network/protocol"
)

// Client configures a dialed connection.
type Client struct {
	Network libptc.NetworkProtocol
	Address string

	// DialTimeout bounds Connect(); zero means no timeout.
	DialTimeout time.Duration
}

// Server configures a listening socket.
type Server struct {
	Network libptc.NetworkProtocol
	Address string

	// BufferSize sizes the UDP server's per-datagram read buffer
	// (DefaultBufferSize when zero or less). The TCP server does not
	// read it: its handler owns the connection's reads.
	BufferSize int
}

// Validate reports a descriptive error if the configuration cannot be
// used to dial/listen (empty address or an unsupported protocol for
// this engine's IPv4/IPv6-only scope).
func (c Client) Validate() error {
	return validateCommon(c.Network, c.Address)
}

// Validate reports a descriptive error if the configuration cannot be
// used to dial/listen.
func (c Server) Validate() error {
	return validateCommon(c.Network, c.Address)
}

func validateCommon(proto libptc.NetworkProtocol, address string) error {
	switch proto {
	case libptc.NetworkTCP, libptc.NetworkTCP4, libptc.NetworkTCP6,
		libptc.NetworkUDP, libptc.NetworkUDP4, libptc.NetworkUDP6:
	default:
		return errUnsupportedProtocol(proto)
	}
	if address == "" {
		return errEmptyAddress
	}
	return nil
}
