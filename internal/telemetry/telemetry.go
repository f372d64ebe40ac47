/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package telemetry sends opt-in usage events and crash reports.
//
// Nothing is sent unless GCS_TELEMETRY_OPT_IN is set. Events carry only the
// property keys in allowedProps; document names, text and image sources never
// leave the machine. Failures are dropped silently.
package telemetry

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"os"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/klauspost/compress/gzip"

	applog "gocarousel/internal/log"
	"gocarousel/internal/version"
)

// Environment variables read by FromEnv.
const (
	EnvOptIn     = "GCS_TELEMETRY_OPT_IN"
	EnvEventsURL = "GCS_TELEMETRY_URL"
	EnvCrashURL  = "GCS_CRASH_UPLOAD_URL"
	EnvTimeoutMS = "GCS_TELEMETRY_TIMEOUT_MS"
	EnvDebug     = "GCS_TELEMETRY_DEBUG"
)

const (
	queueSize = 64
	maxBatch  = 16
)

type Config struct {
	OptIn     bool
	EventsURL string
	CrashURL  string
	Timeout   time.Duration // per request
	Debug     bool          // log send results at debug level
}

func FromEnv() Config {
	cfg := Config{
		OptIn:     truthy(os.Getenv(EnvOptIn)),
		EventsURL: strings.TrimSpace(os.Getenv(EnvEventsURL)),
		CrashURL:  strings.TrimSpace(os.Getenv(EnvCrashURL)),
		Timeout:   1500 * time.Millisecond,
		Debug:     os.Getenv(EnvDebug) != "",
	}
	if ms, err := strconv.Atoi(strings.TrimSpace(os.Getenv(EnvTimeoutMS))); err == nil && ms > 0 {
		cfg.Timeout = time.Duration(ms) * time.Millisecond
	}
	return cfg
}

func truthy(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}

var allowedProps = map[string]bool{
	"format": true,
	"pages":  true,
	"scale":  true,
	"driver": true,
	"preset": true,
}

// event is the wire form of one usage event.
type event struct {
	Name    string         `json:"name"`
	TS      time.Time      `json:"ts"`
	Version string         `json:"version"`
	OS      string         `json:"os"`
	Arch    string         `json:"arch"`
	Props   map[string]any `json:"props,omitempty"`
}

// batch is the body posted to the events URL.
type batch struct {
	Events []event `json:"events"`
}

// Client queues events and posts them in batches from one goroutine.
// Events are dropped when the queue is full.
type Client struct {
	cfg     Config
	http    *http.Client
	l       *slog.Logger
	q       chan event
	pending sync.WaitGroup
	stop    chan struct{}
	done    chan struct{}
	once    sync.Once
}

func New(cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 1500 * time.Millisecond
	}
	c := &Client{
		cfg:  cfg,
		http: &http.Client{Timeout: cfg.Timeout},
		l:    applog.WithComponent("telemetry"),
		q:    make(chan event, queueSize),
		stop: make(chan struct{}),
		done: make(chan struct{}),
	}
	go c.run()
	return c
}

// Enabled reports whether events are sent.
func (c *Client) Enabled() bool { return c != nil && c.cfg.OptIn && c.cfg.EventsURL != "" }

// Event queues a named event. Props outside the allowlist are dropped.
func (c *Client) Event(name string, props map[string]any) {
	if !c.Enabled() || name == "" {
		return
	}
	e := event{Name: name, TS: time.Now().UTC(), Version: version.String(), OS: runtime.GOOS, Arch: runtime.GOARCH}
	for k, v := range props {
		if allowedProps[k] {
			if e.Props == nil {
				e.Props = make(map[string]any, len(props))
			}
			e.Props[k] = v
		}
	}
	c.pending.Add(1)
	select {
	case c.q <- e:
	default:
		c.pending.Done()
	}
}

// Flush waits until queued events and crash uploads are sent, ctx ends or
// 2s pass.
func (c *Client) Flush(ctx context.Context) {
	if c == nil {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}
	drained := make(chan struct{})
	go func() {
		c.pending.Wait()
		close(drained)
	}()
	select {
	case <-drained:
	case <-ctx.Done():
	case <-time.After(2 * time.Second):
	}
}

// Close stops the sender. Queued events are discarded.
func (c *Client) Close() {
	if c == nil {
		return
	}
	c.once.Do(func() {
		close(c.stop)
		<-c.done
	})
}

func (c *Client) run() {
	defer close(c.done)
	for {
		select {
		case <-c.stop:
			for {
				select {
				case <-c.q:
					c.pending.Done()
				default:
					return
				}
			}
		case e := <-c.q:
			b := batch{Events: []event{e}}
		fill:
			for len(b.Events) < maxBatch {
				select {
				case more := <-c.q:
					b.Events = append(b.Events, more)
				default:
					break fill
				}
			}
			c.sendBatch(b)
			for range b.Events {
				c.pending.Done()
			}
		}
	}
}

func (c *Client) sendBatch(b batch) {
	body, err := json.Marshal(b)
	if err != nil {
		return
	}
	c.post(c.cfg.EventsURL, body, "application/json", false, "events")
}

func (c *Client) post(url string, body []byte, contentType string, compress bool, kind string) {
	if compress {
		var buf bytes.Buffer
		zw := gzip.NewWriter(&buf)
		if _, err := zw.Write(body); err != nil {
			return
		}
		if err := zw.Close(); err != nil {
			return
		}
		body = buf.Bytes()
	}
	ctx, cancel := context.WithTimeout(context.Background(), c.cfg.Timeout)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return
	}
	req.Header.Set("Content-Type", contentType)
	if compress {
		req.Header.Set("Content-Encoding", "gzip")
	}
	resp, err := c.http.Do(req)
	if err != nil {
		if c.cfg.Debug {
			c.l.Debug("send failed", slog.String("kind", kind), slog.Any("err", err))
		}
		return
	}
	_ = resp.Body.Close()
	if c.cfg.Debug {
		c.l.Debug("sent", slog.String("kind", kind), slog.Int("status", resp.StatusCode))
	}
}

// UploadCrash posts a gzip-compressed crash report in the background.
// Flush waits for it.
func (c *Client) UploadCrash(report []byte) {
	if c == nil || !c.cfg.OptIn || c.cfg.CrashURL == "" {
		return
	}
	body := append([]byte(nil), report...)
	c.pending.Add(1)
	go func() {
		defer c.pending.Done()
		c.post(c.cfg.CrashURL, body, "text/plain; charset=utf-8", true, "crash")
	}()
}

var (
	defaultMu     sync.Mutex
	defaultClient *Client
)

func std() *Client {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	if defaultClient == nil {
		defaultClient = New(FromEnv())
	}
	return defaultClient
}

// SetDefault replaces the process-wide client with one built from cfg.
func SetDefault(cfg Config) {
	next := New(cfg)
	defaultMu.Lock()
	prev := defaultClient
	defaultClient = next
	defaultMu.Unlock()
	prev.Close()
}

func Enabled() bool                          { return std().Enabled() }
func Event(name string, props map[string]any) { std().Event(name, props) }
func UploadCrash(report []byte)              { std().UploadCrash(report) }
func Flush(ctx context.Context)              { std().Flush(ctx) }
