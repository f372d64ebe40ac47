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
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/zalando/go-keyring"
	"gopkg.in/yaml.v3"
)

// AppConfig is the user-editable configuration persisted to a YAML file in the user scope.
// Environment variables are treated as read-only overrides at runtime.
//
// config_version: bump when the structure changes in a backward-incompatible way.
// Unknown fields are ignored on unmarshal.

type GeneralConfig struct {
	// OwnerID scopes every stored preset, project and font.
	OwnerID string `yaml:"owner_id"`
}

// StoreConfig selects the row store backend.
type StoreConfig struct {
	Driver string `yaml:"driver"` // "sqlite" | "postgres" | "memory"
	Path   string `yaml:"path"`   // sqlite database file
	// DSN for postgres is not stored on disk; it lives in the OS keychain.
}

// CacheConfig enables the Redis select cache in front of the store.
type CacheConfig struct {
	RedisAddr string `yaml:"redis_addr"`
	TTLSec    int    `yaml:"ttl_sec"`
}

type ExportConfig struct {
	Format string  `yaml:"format"` // "png" | "jpeg"
	Scale  float64 `yaml:"scale"`
	OutDir string  `yaml:"out_dir"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Source bool   `yaml:"source"`
	File   string `yaml:"file"`
}

type AppConfig struct {
	ConfigVersion int           `yaml:"config_version"`
	General       GeneralConfig `yaml:"general"`
	Store         StoreConfig   `yaml:"store"`
	Cache         CacheConfig   `yaml:"cache"`
	Export        ExportConfig  `yaml:"export"`
	Logging       LoggingConfig `yaml:"logging"`
}

// Defaults returns the application defaults.
func Defaults() AppConfig {
	return AppConfig{
		ConfigVersion: 1,
		General:       GeneralConfig{OwnerID: "local"},
		Store:         StoreConfig{Driver: "sqlite", Path: ""},
		Cache:         CacheConfig{RedisAddr: "", TTLSec: 60},
		Export:        ExportConfig{Format: "png", Scale: 1, OutDir: "."},
		Logging:       LoggingConfig{Level: "info", Format: "console", Source: false, File: ""},
	}
}

// Env var names used as overrides.
const (
	EnvConfigPath  = "GCS_CONFIG"
	EnvOwnerID     = "GCS_OWNER_ID"
	EnvStoreDriver = "GCS_STORE_DRIVER"
	EnvStorePath   = "GCS_STORE_PATH"
	EnvStoreDSN    = "GCS_STORE_DSN"
	EnvRedisAddr   = "GCS_REDIS_ADDR"
	EnvCacheTTL    = "GCS_CACHE_TTL_SEC"
	EnvExportFmt   = "GCS_EXPORT_FORMAT"
	EnvExportScale = "GCS_EXPORT_SCALE"
	// EnvLogLevel Logging envs
	EnvLogLevel  = "GCS_LOG_LEVEL"
	EnvLogFormat = "GCS_LOG_FORMAT"
	EnvLogSource = "GCS_LOG_SOURCE"
	EnvLogFile   = "GCS_LOG_FILE"
)

// Service/keys for OS keyring.
const (
	keyringService = "GoCarousel"
	keyringDSN     = "store_dsn"
)

// tokenStore abstracts keyring, so we can stub in tests.
var tokenStore TokenStore = osKeyring{}

type TokenStore interface {
	Get(service, key string) (string, error)
	Set(service, key, value string) error
	Delete(service, key string) error
}

// osKeyring implements TokenStore using the OS keyring via github.com/zalando/go-keyring.
type osKeyring struct{}

func (osKeyring) Get(service, key string) (string, error) { return keyring.Get(service, key) }
func (osKeyring) Set(service, key, value string) error    { return keyring.Set(service, key, value) }
func (osKeyring) Delete(service, key string) error        { return keyring.Delete(service, key) }

// SetTokenStore swaps the secret backend and returns a restore func.
func SetTokenStore(ts TokenStore) func() {
	prev := tokenStore
	tokenStore = ts
	return func() { tokenStore = prev }
}

// ConfigDir returns the per-user configuration directory.
func ConfigDir() (string, error) {
	var base string
	switch runtime.GOOS {
	case "windows":
		base = os.Getenv("AppData")
		if base == "" { // fallback
			base = filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Roaming")
		}
		base = filepath.Join(base, "GoCarousel")
	case "darwin":
		base = filepath.Join(os.Getenv("HOME"), "Library", "Application Support", "GoCarousel")
	default: // linux and others
		if x := os.Getenv("XDG_CONFIG_HOME"); x != "" {
			base = filepath.Join(x, "gocarousel")
		} else {
			base = filepath.Join(os.Getenv("HOME"), ".config", "gocarousel")
		}
	}
	if base == "" {
		return "", errors.New("cannot resolve config directory")
	}
	return base, nil
}

// ConfigPath returns the per-user config file path. GCS_CONFIG wins when set.
func ConfigPath() (string, error) {
	if p := strings.TrimSpace(os.Getenv(EnvConfigPath)); p != "" {
		return p, nil
	}
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

// Load reads user config file (if present), applies defaults, and merges environment overrides.
// It also loads the postgres DSN from the keyring (not kept inside the struct; returned separately).
// GCS_STORE_DSN overrides the keyring value.
func Load() (AppConfig, string, error) {
	cfg := Defaults()
	path, err := ConfigPath()
	if err != nil {
		return cfg, "", err
	}
	if data, err := os.ReadFile(path); err == nil {
		var fileCfg AppConfig
		if err := yaml.Unmarshal(data, &fileCfg); err == nil {
			mergeInto(&cfg, &fileCfg)
		}
	}
	applyEnvOverrides(&cfg)
	if cfg.Store.Path == "" {
		if dir, err := ConfigDir(); err == nil {
			cfg.Store.Path = filepath.Join(dir, "carousel.db")
		}
	}
	if v := strings.TrimSpace(os.Getenv(EnvStoreDSN)); v != "" {
		return cfg, v, nil
	}
	dsn, _ := tokenStore.Get(keyringService, keyringDSN)
	return cfg, dsn, nil
}

// Save writes the user config YAML and persists the DSN into OS keyring (if non-empty).
func Save(cfg AppConfig, dsn string) error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return err
	}
	if dsn != "" {
		if err := tokenStore.Set(keyringService, keyringDSN, dsn); err != nil {
			return err
		}
	}
	return nil
}

// ForgetDSN removes the stored DSN from the keyring.
func ForgetDSN() error {
	err := tokenStore.Delete(keyringService, keyringDSN)
	if errors.Is(err, keyring.ErrNotFound) {
		return nil
	}
	return err
}

func mergeInto(dst *AppConfig, src *AppConfig) {
	if src.ConfigVersion != 0 {
		dst.ConfigVersion = src.ConfigVersion
	}
	if v := strings.TrimSpace(src.General.OwnerID); v != "" {
		dst.General.OwnerID = v
	}
	if v := strings.TrimSpace(src.Store.Driver); v != "" {
		dst.Store.Driver = strings.ToLower(v)
	}
	if v := strings.TrimSpace(src.Store.Path); v != "" {
		dst.Store.Path = v
	}
	if v := strings.TrimSpace(src.Cache.RedisAddr); v != "" {
		dst.Cache.RedisAddr = v
	}
	if src.Cache.TTLSec != 0 {
		dst.Cache.TTLSec = src.Cache.TTLSec
	}
	if v := strings.TrimSpace(src.Export.Format); v != "" {
		dst.Export.Format = strings.ToLower(v)
	}
	if src.Export.Scale != 0 {
		dst.Export.Scale = src.Export.Scale
	}
	if v := strings.TrimSpace(src.Export.OutDir); v != "" {
		dst.Export.OutDir = v
	}
	// logging
	if strings.TrimSpace(src.Logging.Level) != "" {
		dst.Logging.Level = strings.ToLower(strings.TrimSpace(src.Logging.Level))
	}
	if strings.TrimSpace(src.Logging.Format) != "" {
		dst.Logging.Format = strings.ToLower(strings.TrimSpace(src.Logging.Format))
	}
	dst.Logging.Source = src.Logging.Source
	if strings.TrimSpace(src.Logging.File) != "" {
		dst.Logging.File = strings.TrimSpace(src.Logging.File)
	}
}

func truthy(v string) bool {
	lv := strings.ToLower(v)
	return lv == "1" || lv == "true" || lv == "on" || lv == "yes"
}

func applyEnvOverrides(cfg *AppConfig) {
	if v := strings.TrimSpace(os.Getenv(EnvOwnerID)); v != "" {
		cfg.General.OwnerID = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvStoreDriver)); v != "" {
		cfg.Store.Driver = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvStorePath)); v != "" {
		cfg.Store.Path = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvRedisAddr)); v != "" {
		cfg.Cache.RedisAddr = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvCacheTTL)); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Cache.TTLSec = n
		}
	}
	if v := strings.TrimSpace(os.Getenv(EnvExportFmt)); v != "" {
		cfg.Export.Format = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvExportScale)); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Export.Scale = f
		}
	}
	// logging overrides
	if v := strings.TrimSpace(os.Getenv(EnvLogLevel)); v != "" {
		cfg.Logging.Level = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogFormat)); v != "" {
		cfg.Logging.Format = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogSource)); v != "" {
		cfg.Logging.Source = truthy(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogFile)); v != "" {
		cfg.Logging.File = v
	}
}

// EnvOverrideFor returns the env var name if the field is overridden by environment variables.
func EnvOverrideFor(key string) (string, bool) {
	names := map[string]string{
		"general.owner_id": EnvOwnerID,
		"store.driver":     EnvStoreDriver,
		"store.path":       EnvStorePath,
		"store.dsn":        EnvStoreDSN,
		"cache.redis_addr": EnvRedisAddr,
		"cache.ttl_sec":    EnvCacheTTL,
		"export.format":    EnvExportFmt,
		"export.scale":     EnvExportScale,
		"logging.level":    EnvLogLevel,
		"logging.format":   EnvLogFormat,
		"logging.source":   EnvLogSource,
		"logging.file":     EnvLogFile,
	}
	if env, ok := names[key]; ok && os.Getenv(env) != "" {
		return env, true
	}
	return "", false
}

// TTL returns the cache TTL, falling back to the default on non-positive values.
func (c CacheConfig) TTL() time.Duration {
	if c.TTLSec <= 0 {
		return time.Duration(Defaults().Cache.TTLSec) * time.Second
	}
	return time.Duration(c.TTLSec) * time.Second
}
