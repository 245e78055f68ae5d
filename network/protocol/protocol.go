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

// Package protocol names the transport address families the network
// host and socket layer can be configured for: raw IP, TCP, UDP (each
// with an address-family-agnostic and an IPv4/IPv6-pinned variant),
// and the unix-domain pair kept for config-decoding completeness even
// though the engine itself only dials and listens on IPv4/IPv6.
package protocol

import (
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// NetworkProtocol identifies a transport address family.
type NetworkProtocol uint8

const (
	// NetworkEmpty is the zero value: no protocol configured.
	NetworkEmpty NetworkProtocol = iota
	NetworkUnix
	NetworkTCP
	NetworkTCP4
	NetworkTCP6
	NetworkUDP
	NetworkUDP4
	NetworkUDP6
	NetworkIP
	NetworkIP4
	NetworkIP6
	NetworkUnixGram
)

var codeByProtocol = map[NetworkProtocol]string{
	NetworkUnix:     "unix",
	NetworkTCP:      "tcp",
	NetworkTCP4:     "tcp4",
	NetworkTCP6:     "tcp6",
	NetworkUDP:      "udp",
	NetworkUDP4:     "udp4",
	NetworkUDP6:     "udp6",
	NetworkIP:       "ip",
	NetworkIP4:      "ip4",
	NetworkIP6:      "ip6",
	NetworkUnixGram: "unixgram",
}

var protocolByCode = func() map[string]NetworkProtocol {
	m := make(map[string]NetworkProtocol, len(codeByProtocol))
	for p, c := range codeByProtocol {
		m[c] = p
	}
	return m
}()

// String returns the lowercase wire/config name of the protocol, or
// the empty string for NetworkEmpty or any unrecognized value.
func (p NetworkProtocol) String() string {
	return codeByProtocol[p]
}

// Code is an alias for String, the short naming used for enum
// accessors that also expose a numeric Int/Int64.
func (p NetworkProtocol) Code() string {
	return p.String()
}

// Int returns the protocol's numeric value, or 0 if it is not a
// recognized protocol.
func (p NetworkProtocol) Int() int {
	if _, ok := codeByProtocol[p]; !ok {
		return 0
	}
	return int(p)
}

// Int64 is Int widened to int64.
func (p NetworkProtocol) Int64() int64 {
	return int64(p.Int())
}

// Uint returns the protocol's numeric value as a uint, or 0 if it is
// not a recognized protocol.
func (p NetworkProtocol) Uint() uint {
	return uint(p.Int())
}

// Uint64 is Uint widened to uint64.
func (p NetworkProtocol) Uint64() uint64 {
	return uint64(p.Int())
}

// normalize strips surrounding whitespace, then surrounding quote
// characters in the order single, double, backtick (every leading and
// trailing occurrence of each) before lowercasing. The order matters for a
// doubly-quoted value like `"'tcp'"`: stripping double quotes first
// would unwrap it down to a parseable "tcp"; stripping single quotes
// first leaves the inner pair in place and the value is rejected.
func normalize(s string) string {
	s = strings.TrimSpace(s)
	s = strings.Trim(s, "'")
	s = strings.Trim(s, "\"")
	s = strings.Trim(s, "`")
	return strings.ToLower(s)
}

// Parse converts a case-insensitive, whitespace/quote-tolerant protocol
// name into a NetworkProtocol. Unknown input yields NetworkEmpty.
func Parse(s string) NetworkProtocol {
	if p, ok := protocolByCode[normalize(s)]; ok {
		return p
	}
	return NetworkEmpty
}

// ParseBytes is Parse over a raw byte slice.
func ParseBytes(b []byte) NetworkProtocol {
	return Parse(string(b))
}

// ParseInt64 converts a numeric protocol value back into a
// NetworkProtocol. Values above 255 are capped at 255 (math.MaxUint8).
// Unrecognized values yield NetworkEmpty.
func ParseInt64(v int64) NetworkProtocol {
	if v <= 0 {
		return NetworkEmpty
	}
	if v > math.MaxUint8 {
		v = math.MaxUint8
	}
	p := NetworkProtocol(v)
	if _, ok := codeByProtocol[p]; !ok {
		return NetworkEmpty
	}
	return p
}

// MarshalText implements encoding.TextMarshaler.
func (p NetworkProtocol) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler. Unknown input
// silently resolves to NetworkEmpty rather than erroring, matching the
// tolerant-config-decoding convention used across the module.
func (p *NetworkProtocol) UnmarshalText(b []byte) error {
	*p = ParseBytes(b)
	return nil
}

// MarshalJSON implements json.Marshaler.
func (p NetworkProtocol) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Quote(p.String())), nil
}

// UnmarshalJSON implements json.Unmarshaler. Unlike a conventional JSON
// string unmarshaler it does not run the escaped-string decoder: it
// strips surrounding quote characters the same way Parse does, which is intentionally naive about nested quoting (see
// normalize).
func (p *NetworkProtocol) UnmarshalJSON(b []byte) error {
	*p = Parse(string(b))
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (p NetworkProtocol) MarshalYAML() (interface{}, error) {
	return p.String(), nil
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (p *NetworkProtocol) UnmarshalYAML(node *yaml.Node) error {
	*p = Parse(node.Value)
	return nil
}

// MarshalTOML returns the protocol name as raw bytes.
func (p NetworkProtocol) MarshalTOML() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalTOML parses a string or byte-slice value the same way Parse
// does; any other type is an error.
func (p *NetworkProtocol) UnmarshalTOML(i interface{}) error {
	switch v := i.(type) {
	case []byte:
		*p = ParseBytes(v)
	case string:
		*p = Parse(v)
	default:
		return fmt.Errorf("network protocol: value %v is not in valid format", i)
	}
	return nil
}

// MarshalCBOR returns the protocol name as raw bytes; no CBOR encoding
// is applied.
func (p NetworkProtocol) MarshalCBOR() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalCBOR is ParseBytes over the raw bytes; no CBOR decoding is
// applied.
func (p *NetworkProtocol) UnmarshalCBOR(b []byte) error {
	*p = ParseBytes(b)
	return nil
}

// ViperDecoderHook returns a mapstructure-compatible decode hook that
// converts strings or any integer kind into a NetworkProtocol when the
// destination field has that type; every other source/target
// combination passes the raw data through unchanged.
func ViperDecoderHook() func(reflect.Type, reflect.Type, interface{}) (interface{}, error) {
	protocolType := reflect.TypeOf(NetworkEmpty)

	return func(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		if to != protocolType {
			return data, nil
		}

		switch from.Kind() {
		case reflect.String:
			return Parse(fmt.Sprintf("%v", data)), nil

		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			v := reflect.ValueOf(data).Int()
			parsed := ParseInt64(v)
			if parsed == NetworkEmpty {
				return nil, fmt.Errorf("protocol: invalid value %d for NetworkProtocol", v)
			}
			return parsed, nil

		case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
			v := int64(reflect.ValueOf(data).Uint())
			parsed := ParseInt64(v)
			if parsed == NetworkEmpty {
				return nil, fmt.Errorf("protocol: invalid value %d for NetworkProtocol", v)
			}
			return parsed, nil

		default:
			return data, nil
		}
	}
}
