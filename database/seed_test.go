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
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeSeedFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func TestSeedRunnerFileOrdering(t *testing.T) {
	root := t.TempDir()
	writeSeedFile(t, filepath.Join(root, "dev"), "02_extra.sql", "SELECT 1;")
	writeSeedFile(t, filepath.Join(root, "dev"), "01_base.sql", "SELECT 1;")
	writeSeedFile(t, filepath.Join(root, "common"), "10_shared.sql", "SELECT 1;")
	writeSeedFile(t, filepath.Join(root, "common"), "readme.txt", "not sql")
	writeSeedFile(t, filepath.Join(root, "prod"), "01_prod.sql", "SELECT 1;")

	r := NewSeedRunner(nil, "dev")
	r.SetRootPath(root)

	files, err := r.Files()
	require.NoError(t, err)
	require.Len(t, files, 3)
	assert.Equal(t, "10_shared.sql", files[0].Name) // common before env
	assert.Equal(t, "01_base.sql", files[1].Name)
	assert.Equal(t, "02_extra.sql", files[2].Name)
}

func TestSeedRunnerMissingRootIsNoop(t *testing.T) {
	r := NewSeedRunner(nil, "dev")
	r.SetRootPath(filepath.Join(t.TempDir(), "absent"))
	require.NoError(t, r.Run(context.Background()))
}

func TestSeedRunnerExecutesStatements(t *testing.T) {
	mgr := NewDatabaseManager(&ConnectionConfig{
		Type:           "sqlite",
		DBName:         filepath.Join(t.TempDir(), "seed_test"),
		MaxIdleConns:   2,
		MaxOpenConns:   4,
		ConnectTimeout: 5 * time.Second,
	})
	require.NoError(t, mgr.Connect(context.Background()))
	t.Cleanup(func() { _ = mgr.Disconnect() })

	root := t.TempDir()
	writeSeedFile(t, filepath.Join(root, "common"), "01_schema.sql", `
-- schema bootstrap
CREATE TABLE seeds (id INTEGER PRIMARY KEY, name TEXT);
`)
	writeSeedFile(t, filepath.Join(root, "dev"), "01_data.sql", `
INSERT INTO seeds (name) VALUES ('a');
INSERT INTO seeds (name) VALUES ('b');
`)

	r := NewSeedRunner(mgr.GetDB(), "dev")
	r.SetRootPath(root)
	require.NoError(t, r.Run(context.Background()))

	res, err := mgr.Executor().Query(context.Background(), "SELECT name FROM seeds ORDER BY id", nil, nil)
	require.NoError(t, err)
	require.Equal(t, int64(2), res.RowCount)
	assert.Equal(t, "a", res.Rows[0]["name"])
}

func TestSplitStatements(t *testing.T) {
	stmts := splitStatements(`
-- comment only line
INSERT INTO t (a) VALUES (1);

INSERT INTO t (a)
VALUES (2);
`)
	require.Len(t, stmts, 2)
	assert.Equal(t, "INSERT INTO t (a) VALUES (1)", stmts[0])
}
