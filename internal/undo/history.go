/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package undo

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/klauspost/compress/zstd"

	"gocarousel/internal/domain"
)

// Encoder and decoder are safe for concurrent use with EncodeAll/DecodeAll.
var (
	zstdEncoder *zstd.Encoder
	zstdDecoder *zstd.Decoder
)

func init() {
	var err error
	zstdEncoder, err = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		panic("undo: zstd encoder initialization failed: " + err.Error())
	}
	zstdDecoder, err = zstd.NewReader(nil)
	if err != nil {
		panic("undo: zstd decoder initialization failed: " + err.Error())
	}
}

// History stores canvas element lists per page as compressed JSON blobs.
type History struct {
	m *Manager
	// Now is the clock used to stamp snapshots.
	Now func() time.Time
}

// NewHistory returns a history backed by a Manager with cfg.
func NewHistory(cfg Config) *History {
	return &History{m: NewManager(cfg), Now: time.Now}
}

func encode(objs []domain.GraphicObject) ([]byte, error) {
	if objs == nil {
		objs = []domain.GraphicObject{}
	}
	raw, err := json.Marshal(objs)
	if err != nil {
		return nil, fmt.Errorf("encode snapshot: %w", err)
	}
	return zstdEncoder.EncodeAll(raw, nil), nil
}

func decode(blob []byte) ([]domain.GraphicObject, error) {
	raw, err := zstdDecoder.DecodeAll(blob, nil)
	if err != nil {
		return nil, fmt.Errorf("zstd decompress: %w", err)
	}
	var objs []domain.GraphicObject
	if err := json.Unmarshal(raw, &objs); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	return objs, nil
}

// Record stores the state of page before an edit. Rapid edits sharing a
// non-empty key collapse into one step; "" always starts a new step.
func (h *History) Record(pageID, key string, before []domain.GraphicObject) error {
	blob, err := encode(before)
	if err != nil {
		return err
	}
	h.m.PushSnapshot(Snapshot{PageID: pageID, Key: key, Blob: blob, TS: h.Now()})
	return nil
}

// Undo returns the state to restore. ok is false when there is no history.
func (h *History) Undo(pageID string, current []domain.GraphicObject) (objs []domain.GraphicObject, ok bool, err error) {
	cur, err := encode(current)
	if err != nil {
		return nil, false, err
	}
	s, ok := h.m.Undo(pageID, cur)
	if !ok {
		return nil, false, nil
	}
	objs, err = decode(s.Blob)
	return objs, err == nil, err
}

// Redo re-applies the last undone state.
func (h *History) Redo(pageID string, current []domain.GraphicObject) (objs []domain.GraphicObject, ok bool, err error) {
	cur, err := encode(current)
	if err != nil {
		return nil, false, err
	}
	s, ok := h.m.Redo(pageID, cur)
	if !ok {
		return nil, false, nil
	}
	objs, err = decode(s.Blob)
	return objs, err == nil, err
}

func (h *History) CanUndo(pageID string) bool { return h.m.CanUndo(pageID) }
func (h *History) CanRedo(pageID string) bool { return h.m.CanRedo(pageID) }

// Forget drops a page's history, e.g. after the page is deleted.
func (h *History) Forget(pageID string) { h.m.ClearPage(pageID) }

// Reset drops everything, e.g. when another project is opened.
func (h *History) Reset() { h.m.Reset() }

// Stats exposes the underlying manager accounting.
func (h *History) Stats() (totalBytes, pages, snapshots int) { return h.m.Stats() }
