/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package assets resolves image sources used by image and sticker objects:
// data URIs, local files and http(s) URLs.
package assets

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"

	"gocarousel/internal/domain"
)

// MaxRemoteBytes caps downloads of remote images.
const MaxRemoteBytes = 32 << 20

// Loader fetches and decodes image sources. Decoded images are cached by source.
type Loader struct {
	Client *http.Client

	mu    sync.Mutex
	cache map[string]image.Image
}

// NewLoader returns a loader with a 15s HTTP timeout.
func NewLoader() *Loader {
	return &Loader{Client: &http.Client{Timeout: 15 * time.Second}, cache: map[string]image.Image{}}
}

// Bytes returns the raw bytes behind src.
func (l *Loader) Bytes(ctx context.Context, src string) ([]byte, error) {
	src = strings.TrimSpace(src)
	switch {
	case src == "":
		return nil, fmt.Errorf("empty image source")
	case domain.IsDataURI(src):
		_, data, err := domain.DecodeDataURI(src)
		return data, err
	case strings.HasPrefix(src, "http://") || strings.HasPrefix(src, "https://"):
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, src, nil)
		if err != nil {
			return nil, err
		}
		resp, err := l.Client.Do(req)
		if err != nil {
			return nil, fmt.Errorf("fetch %s: %w", src, err)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("fetch %s: status %d", src, resp.StatusCode)
		}
		return io.ReadAll(io.LimitReader(resp.Body, MaxRemoteBytes))
	default:
		return os.ReadFile(strings.TrimPrefix(src, "file://"))
	}
}

// Image decodes src.
func (l *Loader) Image(ctx context.Context, src string) (image.Image, error) {
	l.mu.Lock()
	if img, ok := l.cache[src]; ok {
		l.mu.Unlock()
		return img, nil
	}
	l.mu.Unlock()
	b, err := l.Bytes(ctx, src)
	if err != nil {
		return nil, err
	}
	img, _, err := image.Decode(bytes.NewReader(b))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	l.mu.Lock()
	l.cache[src] = img
	l.mu.Unlock()
	return img, nil
}

// Size returns the natural pixel size of src without decoding pixels when possible.
func (l *Loader) Size(ctx context.Context, src string) (w, h int, err error) {
	l.mu.Lock()
	if img, ok := l.cache[src]; ok {
		l.mu.Unlock()
		b := img.Bounds()
		return b.Dx(), b.Dy(), nil
	}
	l.mu.Unlock()
	data, err := l.Bytes(ctx, src)
	if err != nil {
		return 0, 0, err
	}
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return 0, 0, fmt.Errorf("decode image config: %w", err)
	}
	return cfg.Width, cfg.Height, nil
}
