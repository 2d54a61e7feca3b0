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
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun/dialect"
)

func TestDefaultSchema(t *testing.T) {
	tests := []struct {
		name    string
		dialect dialect.Name
		cfg     ConnectionConfig
		want    string
	}{
		{"explicit schema wins", dialect.PG, ConnectionConfig{Schema: "tenants", DBName: "app"}, "tenants"},
		{"postgres falls back to public", dialect.PG, ConnectionConfig{DBName: "app"}, "public"},
		{"mysql falls back to the database", dialect.MySQL, ConnectionConfig{DBName: "app"}, "app"},
		{"mysql explicit schema wins", dialect.MySQL, ConnectionConfig{Schema: "other", DBName: "app"}, "other"},
		{"sqlite has no schemas", dialect.SQLite, ConnectionConfig{DBName: "app"}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, defaultSchema(tt.dialect, &tt.cfg))
		})
	}
}

func TestConnectResolvesExecutorSchema(t *testing.T) {
	mgr := NewDatabaseManager(&ConnectionConfig{
		Type:           "sqlite",
		DBName:         filepath.Join(t.TempDir(), "schema_test"),
		ConnectTimeout: 5 * time.Second,
	})
	require.NoError(t, mgr.Connect(context.Background()))
	t.Cleanup(func() { _ = mgr.Disconnect() })

	assert.Equal(t, "", mgr.Executor().Schema())
}
