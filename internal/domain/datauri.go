/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package domain

import (
	"encoding/base64"
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// ErrNotDataURI is returned when a string is not a data: URI.
var ErrNotDataURI = errors.New("not a data URI")

// DataURI encodes data as a base64 data URI.
func DataURI(mime string, data []byte) string {
	if mime == "" {
		mime = "application/octet-stream"
	}
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(data)
}

// IsDataURI reports whether s looks like a data URI.
func IsDataURI(s string) bool { return strings.HasPrefix(strings.TrimSpace(s), "data:") }

// DecodeDataURI returns the media type and payload of a data URI.
func DecodeDataURI(s string) (mime string, data []byte, err error) {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "data:") {
		return "", nil, ErrNotDataURI
	}
	meta, payload, ok := strings.Cut(s[len("data:"):], ",")
	if !ok {
		return "", nil, fmt.Errorf("data URI without payload: %w", ErrNotDataURI)
	}
	b64 := strings.HasSuffix(meta, ";base64")
	mime = strings.TrimSuffix(meta, ";base64")
	if i := strings.Index(mime, ";"); i >= 0 {
		mime = mime[:i]
	}
	if b64 {
		data, err = base64.StdEncoding.DecodeString(payload)
		if err != nil {
			// Some encoders drop padding.
			data, err = base64.RawStdEncoding.DecodeString(strings.TrimRight(payload, "="))
		}
		if err != nil {
			return "", nil, fmt.Errorf("decode base64 payload: %w", err)
		}
		return mime, data, nil
	}
	unescaped, err := url.PathUnescape(payload)
	if err != nil {
		return "", nil, fmt.Errorf("decode payload: %w", err)
	}
	return mime, []byte(unescaped), nil
}
