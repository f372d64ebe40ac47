/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

type memTokens map[string]string

func (m memTokens) Get(service, key string) (string, error) { return m[service+"/"+key], nil }
func (m memTokens) Set(service, key, value string) error {
	m[service+"/"+key] = value
	return nil
}
func (m memTokens) Delete(service, key string) error {
	delete(m, service+"/"+key)
	return nil
}

// isolate points config and keyring at test-local state.
func isolate(t *testing.T) memTokens {
	t.Helper()
	t.Setenv(EnvConfigPath, filepath.Join(t.TempDir(), "config.yaml"))
	toks := memTokens{}
	t.Cleanup(SetTokenStore(toks))
	return toks
}

func TestEnvOverridesStore(t *testing.T) {
	isolate(t)
	t.Setenv(EnvStoreDriver, "Postgres")
	t.Setenv(EnvStorePath, "/tmp/x.db")
	cfg, _, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Store.Driver != "postgres" || cfg.Store.Path != "/tmp/x.db" {
		t.Fatalf("store overrides not applied: %#v", cfg.Store)
	}
	if env, ok := EnvOverrideFor("store.driver"); !ok || env != EnvStoreDriver {
		t.Fatalf("EnvOverrideFor(store.driver) = %q,%v", env, ok)
	}
	if _, ok := EnvOverrideFor("cache.redis_addr"); ok {
		t.Fatalf("redis addr should not be reported as overridden")
	}
}

func TestSaveLoadRoundTripWithKeyring(t *testing.T) {
	toks := isolate(t)
	cfg := Defaults()
	cfg.General.OwnerID = "alice"
	cfg.Export.Scale = 2
	if err := Save(cfg, "postgres://u:p@localhost/db"); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if toks[keyringService+"/"+keyringDSN] == "" {
		t.Fatalf("dsn not written to keyring")
	}
	got, dsn, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.General.OwnerID != "alice" || got.Export.Scale != 2 {
		t.Fatalf("file config not merged: %#v", got)
	}
	if dsn != "postgres://u:p@localhost/db" {
		t.Fatalf("dsn = %q", dsn)
	}
	t.Setenv(EnvStoreDSN, "postgres://env/db")
	if _, dsn, _ = Load(); dsn != "postgres://env/db" {
		t.Fatalf("env dsn should win, got %q", dsn)
	}
	if err := ForgetDSN(); err != nil {
		t.Fatalf("ForgetDSN: %v", err)
	}
}

func TestMergeIncludesLogging(t *testing.T) {
	dst := Defaults()
	src := Defaults()
	src.Logging.Level = "debug"
	src.Logging.Format = "json"
	src.Logging.Source = true
	src.Logging.File = "C:/tmp/gcs.log"
	mergeInto(&dst, &src)
	if dst.Logging.Level != "debug" || dst.Logging.Format != "json" || !dst.Logging.Source || dst.Logging.File != "C:/tmp/gcs.log" {
		t.Fatalf("logging fields not merged correctly: %#v", dst.Logging)
	}
}

func TestEnvOverridesLogging(t *testing.T) {
	isolate(t)
	t.Setenv(EnvLogLevel, "error")
	t.Setenv(EnvLogFormat, "json")
	t.Setenv(EnvLogSource, "1")
	t.Setenv(EnvLogFile, "X:/gcs.log")
	cfg, _, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Logging.Level != "error" || cfg.Logging.Format != "json" || !cfg.Logging.Source || cfg.Logging.File != "X:/gcs.log" {
		t.Fatalf("env overrides not applied to logging: %#v", cfg.Logging)
	}
}

func TestMalformedFileFallsBackToDefaults(t *testing.T) {
	isolate(t)
	if err := os.WriteFile(os.Getenv(EnvConfigPath), []byte("store: [not a map"), 0o600); err != nil {
		t.Fatal(err)
	}
	cfg, _, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Store.Driver != "sqlite" || cfg.General.OwnerID != "local" {
		t.Fatalf("defaults not kept: %#v", cfg)
	}
}

func TestCacheTTL(t *testing.T) {
	if d := (CacheConfig{TTLSec: 5}).TTL(); d != 5*time.Second {
		t.Fatalf("ttl = %v", d)
	}
	if d := (CacheConfig{}).TTL(); d != 60*time.Second {
		t.Fatalf("default ttl = %v", d)
	}
}
