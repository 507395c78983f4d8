// Copyright 2025 Tom Barlow
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
)

// LoadDotEnv loads environment variables from .env files. Explicit paths
// are tried first, then .env in the working directory, then .env next to
// the config file. Missing files are skipped and variables that are already
// set are never overwritten.
func LoadDotEnv(configPath string, paths ...string) error {
	candidates := append([]string{}, paths...)
	candidates = append(candidates, ".env")
	if configPath != "" {
		if abs, err := filepath.Abs(configPath); err == nil {
			candidates = append(candidates, filepath.Join(filepath.Dir(abs), ".env"))
		}
	}

	seen := make(map[string]bool, len(candidates))
	for _, path := range candidates {
		if path == "" || seen[path] {
			continue
		}
		seen[path] = true
		if err := loadIfExists(path); err != nil {
			return err
		}
	}
	return nil
}

func loadIfExists(path string) error {
	if _, err := os.Stat(path); err != nil {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("loading %s: %w", path, err)
	}
	slog.Debug("loaded environment file", "path", path)
	return nil
}
