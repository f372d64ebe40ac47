/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package store

import (
	"errors"
	"fmt"
	"io"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// BackupsDirName holds timestamped copies of files replaced by WriteFile.
const BackupsDirName = "backups"

// WriteFile replaces path with data transactionally: the data is written to
// a temp file in the same directory, synced, then renamed over the target.
// With backup set, an existing target is first copied to
// <dir>/backups/<name>.<stamp>.bak.
func WriteFile(path string, data []byte, backup bool) error {
	if strings.TrimSpace(path) == "" {
		return errors.New("path is empty")
	}
	dir := filepath.Dir(path)
	name := filepath.Base(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("ensure dir: %w", err)
	}
	if backup {
		if _, statErr := os.Stat(path); statErr == nil {
			stamp := time.Now().Format("20060102-150405")
			bpath := filepath.Join(dir, BackupsDirName, fmt.Sprintf("%s.%s.bak", name, stamp))
			if err := copyFile(path, bpath); err != nil {
				return fmt.Errorf("backup current file: %w", err)
			}
		}
	}
	temp := filepath.Join(dir, fmt.Sprintf(".%s.tmp-%d-%d", name, os.Getpid(), rand.Int()))
	if err := writeFileSync(temp, data); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	// Windows will not rename over an existing file.
	if _, err := os.Stat(path); err == nil {
		_ = os.Remove(path)
	}
	if err := os.Rename(temp, path); err != nil {
		_ = os.Remove(temp)
		return fmt.Errorf("replace file: %w", err)
	}
	return nil
}

// LatestBackup returns the newest backup of the file at path.
func LatestBackup(path string) (string, error) {
	bdir := filepath.Join(filepath.Dir(path), BackupsDirName)
	ents, err := os.ReadDir(bdir)
	if err != nil {
		return "", fmt.Errorf("read backups dir: %w", err)
	}
	prefix := filepath.Base(path) + "."
	var candidates []string
	for _, e := range ents {
		n := e.Name()
		if strings.HasPrefix(n, prefix) && strings.HasSuffix(n, ".bak") {
			candidates = append(candidates, filepath.Join(bdir, n))
		}
	}
	if len(candidates) == 0 {
		return "", errors.New("no backups found")
	}
	sort.Strings(candidates)
	return candidates[len(candidates)-1], nil
}

// ReadFile reads path, falling back to the newest backup when the file is
// missing or unreadable. fromBackup reports which copy was used.
func ReadFile(path string) (data []byte, fromBackup bool, err error) {
	data, err = os.ReadFile(path)
	if err == nil {
		return data, false, nil
	}
	b, berr := LatestBackup(path)
	if berr != nil {
		return nil, false, err
	}
	data, berr = os.ReadFile(b)
	if berr != nil {
		return nil, false, fmt.Errorf("read latest backup: %w", berr)
	}
	return data, true, nil
}

func writeFileSync(path string, data []byte) (err error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	if _, err := f.Write(data); err != nil {
		return err
	}
	return f.Sync()
}

func copyFile(src, dst string) (err error) {
	sf, err := os.Open(src)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := sf.Close(); err == nil {
			err = cerr
		}
	}()
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	df, err := os.OpenFile(dst, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := df.Close(); err == nil {
			err = cerr
		}
	}()
	if _, err := io.Copy(df, sf); err != nil {
		return err
	}
	return df.Sync()
}
