/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package undo keeps per-page canvas history for the editor.
package undo

import (
	"sync"
	"time"
)

// Snapshot is the state of a page before an edit. Blob is opaque here and
// its length is what counts against Config.MaxBytes. Key names the edit
// (e.g. "fill:<object id>"); only snapshots with the same non-empty key merge.
type Snapshot struct {
	PageID string
	Key    string
	Blob   []byte
	TS     time.Time
}

// Config bounds history per page and overall.
type Config struct {
	// MaxBytes caps the undo and redo blobs of all pages together. The
	// oldest undo snapshot across pages is dropped first, then the farthest
	// redo snapshot. Default 16 MiB.
	MaxBytes int
	// MaxPerPage caps undo depth per page; 0 is unlimited.
	MaxPerPage int
	// MinInterval merges snapshots of the same page and key taken closer
	// together than this, keeping the earliest so one undo reverts a whole
	// drag. Default 250ms.
	MinInterval time.Duration
}

type pageStacks struct {
	undo []Snapshot
	redo []Snapshot
}

func (p *pageStacks) empty() bool { return len(p.undo) == 0 && len(p.redo) == 0 }

// Manager holds undo and redo stacks keyed by page id. It is safe for
// concurrent use.
type Manager struct {
	cfg   Config
	mu    sync.Mutex
	pages map[string]*pageStacks
	bytes int
}

func NewManager(cfg Config) *Manager {
	if cfg.MaxBytes <= 0 {
		cfg.MaxBytes = 16 << 20
	}
	if cfg.MinInterval <= 0 {
		cfg.MinInterval = 250 * time.Millisecond
	}
	return &Manager{cfg: cfg, pages: make(map[string]*pageStacks)}
}

func (m *Manager) page(id string) *pageStacks {
	p := m.pages[id]
	if p == nil {
		p = &pageStacks{}
		m.pages[id] = p
	}
	return p
}

func (m *Manager) drop(id string, p *pageStacks) {
	if p.empty() {
		delete(m.pages, id)
	}
}

func blobBytes(ss []Snapshot) int {
	n := 0
	for _, s := range ss {
		n += len(s.Blob)
	}
	return n
}

// PushSnapshot records the pre-edit state of a page and clears its redo
// stack. A snapshot with the same key as the previous one and within
// MinInterval of it only advances that entry's timestamp.
func (m *Manager) PushSnapshot(s Snapshot) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p := m.page(s.PageID)
	m.bytes -= blobBytes(p.redo)
	p.redo = nil
	if n := len(p.undo); n > 0 && s.Key != "" && p.undo[n-1].Key == s.Key && s.TS.Sub(p.undo[n-1].TS) < m.cfg.MinInterval {
		p.undo[n-1].TS = s.TS
		return
	}
	p.undo = append(p.undo, s)
	m.bytes += len(s.Blob)
	m.trim(s.PageID)
}

// Undo pops the last pre-edit state of a page. current, the state being
// left, moves onto the redo stack.
func (m *Manager) Undo(pageID string, current []byte) (Snapshot, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p := m.pages[pageID]
	if p == nil || len(p.undo) == 0 {
		return Snapshot{}, false
	}
	s := p.undo[len(p.undo)-1]
	p.undo = p.undo[:len(p.undo)-1]
	m.bytes -= len(s.Blob)
	p.redo = append(p.redo, Snapshot{PageID: pageID, Blob: current, TS: s.TS})
	m.bytes += len(current)
	m.trim(pageID)
	return s, true
}

// Redo pops the last undone state. current moves back onto the undo stack.
func (m *Manager) Redo(pageID string, current []byte) (Snapshot, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p := m.pages[pageID]
	if p == nil || len(p.redo) == 0 {
		return Snapshot{}, false
	}
	s := p.redo[len(p.redo)-1]
	p.redo = p.redo[:len(p.redo)-1]
	m.bytes -= len(s.Blob)
	// no key: the restored entry never merges with the next edit
	p.undo = append(p.undo, Snapshot{PageID: pageID, Blob: current, TS: s.TS})
	m.bytes += len(current)
	m.trim(pageID)
	return s, true
}

func (m *Manager) CanUndo(pageID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	p := m.pages[pageID]
	return p != nil && len(p.undo) > 0
}

func (m *Manager) CanRedo(pageID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	p := m.pages[pageID]
	return p != nil && len(p.redo) > 0
}

// ClearPage forgets both stacks of a page.
func (m *Manager) ClearPage(pageID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p := m.pages[pageID]; p != nil {
		m.bytes -= blobBytes(p.undo) + blobBytes(p.redo)
		delete(m.pages, pageID)
	}
	m.bytes = max(m.bytes, 0)
}

func (m *Manager) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pages = make(map[string]*pageStacks)
	m.bytes = 0
}

// Stats reports undo and redo bytes, pages with undo history and undo entries.
func (m *Manager) Stats() (totalBytes int, pages int, totalSnapshots int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.pages {
		if len(p.undo) > 0 {
			pages++
			totalSnapshots += len(p.undo)
		}
	}
	return m.bytes, pages, totalSnapshots
}

// trim applies the depth cap to pageID, then the byte cap across all pages.
func (m *Manager) trim(pageID string) {
	if p := m.pages[pageID]; m.cfg.MaxPerPage > 0 && len(p.undo) > m.cfg.MaxPerPage {
		extra := len(p.undo) - m.cfg.MaxPerPage
		m.bytes -= blobBytes(p.undo[:extra])
		p.undo = append([]Snapshot(nil), p.undo[extra:]...)
	}
	for m.bytes > m.cfg.MaxBytes {
		var (
			oldestID string
			oldest   *pageStacks
			redoID   string
			redo     *pageStacks
		)
		for id, p := range m.pages {
			if len(p.undo) > 0 && (oldest == nil || p.undo[0].TS.Before(oldest.undo[0].TS)) {
				oldestID, oldest = id, p
			}
			if len(p.redo) > 0 && (redo == nil || p.redo[0].TS.Before(redo.redo[0].TS)) {
				redoID, redo = id, p
			}
		}
		switch {
		case oldest != nil:
			m.bytes -= len(oldest.undo[0].Blob)
			oldest.undo = oldest.undo[1:]
			m.drop(oldestID, oldest)
		case redo != nil:
			m.bytes -= len(redo.redo[0].Blob)
			redo.redo = redo.redo[1:]
			m.drop(redoID, redo)
		default:
			return
		}
	}
}
