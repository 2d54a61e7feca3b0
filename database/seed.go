/*
 * Copyright 2025 relicdb.
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package database

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/uptrace/bun"
)

// SeedRunner discovers and executes SQL files to seed data. Files live
// under <root>/<environment>/ plus a shared <root>/common/ directory and
// run in ascending numeric-prefix order ("01_users.sql" before
// "02_roles.sql").
type SeedRunner struct {
	db          *bun.DB
	environment string
	rootPath    string
	logger      Logger
}

// SeedFile describes one SQL file queued for execution.
type SeedFile struct {
	Path        string
	Name        string
	Order       int
	Environment string
}

// SeedResult contains the outcome of executing a single SQL file.
type SeedResult struct {
	File         string
	Success      bool
	Err          error
	Duration     time.Duration
	RowsAffected int64
}

// NewSeedRunner creates a seed runner for the given environment.
func NewSeedRunner(db *bun.DB, environment string) *SeedRunner {
	return &SeedRunner{
		db:          db,
		environment: environment,
		rootPath:    "configs/sql",
		logger:      GetLogger(),
	}
}

// SetRootPath sets the root directory from which SQL files are loaded.
func (s *SeedRunner) SetRootPath(path string) {
	s.rootPath = path
}

// Run executes all discovered SQL files in order. The first failure stops
// the run.
func (s *SeedRunner) Run(ctx context.Context) error {
	files, err := s.Files()
	if err != nil {
		return fmt.Errorf("failed to list seed files: %w", err)
	}
	if len(files) == 0 {
		s.logger.Info("No seed files found", "path", s.rootPath, "environment", s.environment)
		return nil
	}

	for _, file := range files {
		result := s.executeFile(ctx, file)
		if !result.Success {
			s.logger.Error("Seed file execution failed",
				"file", result.File, "error", result.Err, "duration", result.Duration)
			return fmt.Errorf("seed file %s: %w", result.File, result.Err)
		}
		s.logger.Info("Seed file executed",
			"file", result.File, "rows", result.RowsAffected, "duration", result.Duration)
	}
	return nil
}

// Files returns the SQL files applicable to the configured environment,
// sorted by directory (common first) and numeric prefix.
func (s *SeedRunner) Files() ([]SeedFile, error) {
	if _, err := os.Stat(s.rootPath); os.IsNotExist(err) {
		return nil, nil
	}

	var files []SeedFile
	for _, env := range []string{"common", s.environment} {
		dir := filepath.Join(s.rootPath, env)
		entries, err := os.ReadDir(dir)
		if os.IsNotExist(err) {
			continue
		}
		if err != nil {
			return nil, err
		}
		for _, e := range entries {
			if e.IsDir() || !strings.HasSuffix(e.Name(), ".sql") {
				continue
			}
			files = append(files, SeedFile{
				Path:        filepath.Join(dir, e.Name()),
				Name:        e.Name(),
				Order:       orderPrefix(e.Name()),
				Environment: env,
			})
		}
	}

	sort.SliceStable(files, func(i, j int) bool {
		if files[i].Environment != files[j].Environment {
			return files[i].Environment == "common"
		}
		if files[i].Order != files[j].Order {
			return files[i].Order < files[j].Order
		}
		return files[i].Name < files[j].Name
	})
	return files, nil
}

func (s *SeedRunner) executeFile(ctx context.Context, file SeedFile) SeedResult {
	start := time.Now()
	result := SeedResult{File: file.Path}

	data, err := os.ReadFile(file.Path)
	if err != nil {
		result.Err = err
		result.Duration = time.Since(start)
		return result
	}

	for _, stmt := range splitStatements(string(data)) {
		res, err := s.db.ExecContext(ctx, stmt)
		if err != nil {
			result.Err = err
			result.Duration = time.Since(start)
			return result
		}
		if n, err := res.RowsAffected(); err == nil {
			result.RowsAffected += n
		}
	}

	result.Success = true
	result.Duration = time.Since(start)
	return result
}

// splitStatements breaks a SQL file into executable statements on
// semicolons, stripping line comments and blank fragments. Semicolons
// inside string literals are not handled; seed files keep to simple DML.
func splitStatements(content string) []string {
	var clean []string
	for _, line := range strings.Split(content, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "--") {
			continue
		}
		clean = append(clean, line)
	}

	var stmts []string
	for _, part := range strings.Split(strings.Join(clean, "\n"), ";") {
		if stmt := strings.TrimSpace(part); stmt != "" {
			stmts = append(stmts, stmt)
		}
	}
	return stmts
}

func orderPrefix(name string) int {
	i := 0
	for i < len(name) && name[i] >= '0' && name[i] <= '9' {
		i++
	}
	if i == 0 {
		return 1 << 30
	}
	n, err := strconv.Atoi(name[:i])
	if err != nil {
		return 1 << 30
	}
	return n
}
