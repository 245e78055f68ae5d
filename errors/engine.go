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

package errors

import "fmt"

// Engine error codes surfaced by the message-connection engine to the
// application, per the wire/protocol error handling design.
const (
	ErrorConnectionRefused CodeError = iota + MinPkgReliable
	ErrorHandshakeTimeout
	ErrorPeerUnreachable
	ErrorPeerDisconnected
	ErrorMalformedPacket
	ErrorMalformedPayload
	ErrorOutboundQueueFull
	ErrorMessageTooLargeAfterFragment
	ErrorConnectionClosed
)

func init() {
	if ExistInMapMessage(ErrorConnectionRefused) {
		panic(fmt.Errorf("error code collision with package msgnet/errors engine codes"))
	}
	RegisterIdFctMessage(ErrorConnectionRefused, getEngineMessage)
}

func getEngineMessage(code CodeError) string {
	switch code {
	case ErrorConnectionRefused:
		return "connection refused"
	case ErrorHandshakeTimeout:
		return "no ConnectAck received within the handshake timeout"
	case ErrorPeerUnreachable:
		return "retransmission retries exhausted, peer unreachable"
	case ErrorPeerDisconnected:
		return "peer performed a clean shutdown"
	case ErrorMalformedPacket:
		return "sustained malformed packet rate, connection torn down"
	case ErrorMalformedPayload:
		return "declared payload length exceeds the remaining buffer"
	case ErrorOutboundQueueFull:
		return "outbound ring buffer has no room for this message"
	case ErrorMessageTooLargeAfterFragment:
		return "message exceeds the configured maximum size even after fragmentation"
	case ErrorConnectionClosed:
		return "operation attempted on a closed connection"
	}

	return NullMessage
}
