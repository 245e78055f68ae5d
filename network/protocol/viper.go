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

package protocol

import (
	"fmt"
	"math"
	"reflect"
)

// ViperDecoderHook returns a mapstructure decode hook converting
// string, numeric or byte-slice configuration values into a
// NetworkProtocol when a viper instance unmarshals into a config
// struct. Strings decode leniently (unknown names yield NetworkEmpty,
// matching Parse); numeric values must name a known protocol or the
// hook errors.
func ViperDecoderHook() func(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
	return func(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		var (
			z NetworkProtocol
			t = reflect.TypeOf(z)
		)

		if to != t {
			return data, nil
		}

		switch from.Kind() {
		case reflect.String:
			s, k := data.(string)
			if !k {
				return data, nil
			}
			return Parse(s), nil

		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
			reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
			v, k := toInt64(data)
			if !k {
				return data, nil
			}

			if v < 1 || v > math.MaxUint16 {
				return nil, fmt.Errorf("invalid value for network protocol: %v", data)
			}

			p := ParseInt64(v)
			if p == NetworkEmpty {
				return nil, fmt.Errorf("invalid value for network protocol: %v", data)
			}
			return p, nil

		case reflect.Slice:
			b, k := data.([]byte)
			if !k {
				return data, nil
			}
			return ParseBytes(b), nil

		default:
			return data, nil
		}
	}
}

func toInt64(data interface{}) (int64, bool) {
	switch d := data.(type) {
	case int:
		return int64(d), true
	case int8:
		return int64(d), true
	case int16:
		return int64(d), true
	case int32:
		return int64(d), true
	case int64:
		return d, true
	case uint:
		if uint64(d) > math.MaxInt64 {
			return math.MaxInt64, true
		}
		return int64(d), true
	case uint8:
		return int64(d), true
	case uint16:
		return int64(d), true
	case uint32:
		return int64(d), true
	case uint64:
		if d > math.MaxInt64 {
			return math.MaxInt64, true
		}
		return int64(d), true
	default:
		return 0, false
	}
}
