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

package relic

import (
	"context"
	"errors"
	"fmt"

	"github.com/hashicorp/go-multierror"
	"github.com/uptrace/bun/dialect"

	"github.com/relicdb/relic/database"
	"github.com/relicdb/relic/query"
)

// ErrMissingTableHook marks a fatal misconfiguration: the managed table
// does not exist and no hook was supplied to create it.
var ErrMissingTableHook = errors.New("relic: table is missing and no OnTableMissing hook is configured")

// LifecycleHooks drive Init. For schema and table each, exactly one hook
// fires per call: the missing hook when the object is absent, the
// present hook when it exists. Nil present hooks are no-ops. A nil
// OnSchemaMissing falls back to CREATE SCHEMA IF NOT EXISTS; a nil
// OnTableMissing is a fatal misconfiguration when the table is absent.
type LifecycleHooks struct {
	OnSchemaMissing func(ctx context.Context, s *database.Session) error
	OnSchemaPresent func(ctx context.Context, s *database.Session) error
	OnTableMissing  func(ctx context.Context, s *database.Session) error
	OnTablePresent  func(ctx context.Context, s *database.Session) error
}

// Init checks schema and table existence inside one transaction on a
// dedicated session and fires the matching hooks. It is idempotent and
// all-or-nothing: any failure rolls the transaction back and propagates.
func (r *Resource) Init(ctx context.Context) error {
	sess, err := r.svc.AcquireSession(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = sess.Release() }()

	if err := sess.Begin(ctx); err != nil {
		return err
	}

	fail := func(cause error) error {
		if rbErr := sess.Rollback(); rbErr != nil {
			cause = multierror.Append(cause, rbErr)
		}
		r.logger.Error("Resource initialization failed", "table", r.asm.Table, "error", cause)
		return cause
	}

	schemaOK, err := r.schemaExists(ctx, sess)
	if err != nil {
		return fail(fmt.Errorf("check schema: %w", err))
	}
	if schemaOK {
		if r.hooks.OnSchemaPresent != nil {
			if err := r.hooks.OnSchemaPresent(ctx, sess); err != nil {
				return fail(fmt.Errorf("schema present hook: %w", err))
			}
		}
	} else {
		create := r.hooks.OnSchemaMissing
		if create == nil {
			create = r.createSchema
		}
		if err := create(ctx, sess); err != nil {
			return fail(fmt.Errorf("schema missing hook: %w", err))
		}
	}

	tableOK, err := r.tableExists(ctx, sess)
	if err != nil {
		return fail(fmt.Errorf("check table: %w", err))
	}
	if tableOK {
		if r.hooks.OnTablePresent != nil {
			if err := r.hooks.OnTablePresent(ctx, sess); err != nil {
				return fail(fmt.Errorf("table present hook: %w", err))
			}
		}
	} else {
		if r.hooks.OnTableMissing == nil {
			return fail(ErrMissingTableHook)
		}
		if err := r.hooks.OnTableMissing(ctx, sess); err != nil {
			return fail(fmt.Errorf("table missing hook: %w", err))
		}
	}

	if err := sess.Commit(); err != nil {
		return fail(fmt.Errorf("commit initialization: %w", err))
	}
	return nil
}

// schemaExists consults the catalog. Sqlite has no schemas and always
// reports present.
func (r *Resource) schemaExists(ctx context.Context, sess *database.Session) (bool, error) {
	if r.asm.Dialect == dialect.SQLite {
		return true, nil
	}
	b := query.NewBuilder(r.asm.Dialect)
	stmt := fmt.Sprintf(
		"SELECT schema_name FROM information_schema.schemata WHERE schema_name = %s",
		b.Bind(r.asm.Schema))
	res, err := r.svc.Query(ctx, stmt, b.Args(), &database.ExecOptions{Session: sess})
	if err != nil {
		return false, err
	}
	return res.RowCount > 0, nil
}

func (r *Resource) tableExists(ctx context.Context, sess *database.Session) (bool, error) {
	b := query.NewBuilder(r.asm.Dialect)
	var stmt string
	if r.asm.Dialect == dialect.SQLite {
		stmt = fmt.Sprintf(
			"SELECT name FROM sqlite_master WHERE type = 'table' AND name = %s",
			b.Bind(r.asm.Table))
	} else {
		stmt = fmt.Sprintf(
			"SELECT table_name FROM information_schema.tables WHERE table_schema = %s AND table_name = %s",
			b.Bind(r.asm.Schema), b.Bind(r.asm.Table))
	}
	res, err := r.svc.Query(ctx, stmt, b.Args(), &database.ExecOptions{Session: sess})
	if err != nil {
		return false, err
	}
	return res.RowCount > 0, nil
}

func (r *Resource) createSchema(ctx context.Context, sess *database.Session) error {
	stmt := "CREATE SCHEMA IF NOT EXISTS " + r.asm.QuoteIdent(r.asm.Schema)
	_, err := r.svc.Exec(ctx, stmt, nil, &database.ExecOptions{Session: sess})
	return err
}
