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
	"database/sql"
	"fmt"
	"regexp"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect"
)

// Row is an untyped row keyed by column name. Values are whatever the
// driver produced: string, integer, float, bool, time, nil, or []byte.
type Row map[string]any

// Result is the outcome of a row-returning statement.
type Result struct {
	Rows     []Row
	RowCount int64
}

// ExecOptions tune one statement execution. A nil *ExecOptions means
// pool execution with full diagnostics.
type ExecOptions struct {
	// Session routes the statement through an acquired session (and its
	// open transaction, if any) instead of the shared pool.
	Session *Session
	// Suppress is a regular expression; when it matches the error text
	// the failure still propagates but skips diagnostic reporting.
	Suppress string
}

type runner interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// Executor runs parameterized statements against the pooled connection
// and reports driver failures to the configured logger. It is the single
// collaborator the CRUD layer talks to.
type Executor struct {
	db     *bun.DB
	sqlDB  *sql.DB
	schema string
	logger Logger
}

// NewExecutor wraps the connected database. The bun handle supplies the
// dialect; statements run on the raw pool.
func NewExecutor(db *bun.DB, sqlDB *sql.DB, logger Logger) *Executor {
	if logger == nil {
		logger = GetLogger()
	}
	return &Executor{db: db, sqlDB: sqlDB, logger: logger}
}

// Dialect reports the connected dialect.
func (e *Executor) Dialect() dialect.Name {
	return e.db.Dialect().Name()
}

// Schema reports the schema the connection resolved from its config:
// the configured schema, "public" on postgres, the database itself on
// mysql. Empty on sqlite and on executors built without a manager.
func (e *Executor) Schema() string {
	return e.schema
}

// pick resolves the runner for one statement. Both paths go through
// database/sql directly so placeholders reach the driver untouched;
// bun's query formatter never rewrites them.
func (e *Executor) pick(opts *ExecOptions) runner {
	if opts != nil && opts.Session != nil {
		return opts.Session.runner()
	}
	return e.sqlDB
}

// Query runs a row-returning statement and materializes every row.
func (e *Executor) Query(ctx context.Context, stmt string, args []any, opts *ExecOptions) (*Result, error) {
	rows, err := e.pick(opts).QueryContext(ctx, stmt, args...)
	if err != nil {
		e.report(stmt, err, opts)
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	out, err := scanRows(rows)
	if err != nil {
		e.report(stmt, err, opts)
		return nil, err
	}
	return &Result{Rows: out, RowCount: int64(len(out))}, nil
}

// Exec runs a mutation and returns the affected row count.
func (e *Executor) Exec(ctx context.Context, stmt string, args []any, opts *ExecOptions) (int64, error) {
	res, err := e.Do(ctx, stmt, args, opts)
	if err != nil {
		return 0, err
	}
	n, err := rowsAffected(res)
	if err != nil {
		e.report(stmt, err, opts)
		return 0, err
	}
	return n, nil
}

// rowsAffected unwraps the affected count. All three supported drivers
// implement it, so a failure here is a real error, not a missing feature.
func rowsAffected(res sql.Result) (int64, error) {
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return n, nil
}

// Do runs a mutation and exposes the raw driver result, for callers that
// need LastInsertId.
func (e *Executor) Do(ctx context.Context, stmt string, args []any, opts *ExecOptions) (sql.Result, error) {
	res, err := e.pick(opts).ExecContext(ctx, stmt, args...)
	if err != nil {
		e.report(stmt, err, opts)
		return nil, err
	}
	return res, nil
}

// AcquireSession checks a dedicated connection out of the pool. The
// caller owns the Release obligation on every exit path.
func (e *Executor) AcquireSession(ctx context.Context) (*Session, error) {
	conn, err := e.sqlDB.Conn(ctx)
	if err != nil {
		e.report("acquire session", err, nil)
		return nil, fmt.Errorf("acquire session: %w", err)
	}
	return &Session{conn: conn}, nil
}

func (e *Executor) report(stmt string, err error, opts *ExecOptions) {
	if opts != nil && opts.Suppress != "" {
		if ok, reErr := regexp.MatchString(opts.Suppress, err.Error()); reErr == nil && ok {
			return
		}
	}
	if is, kind := IsSQLError(err); is {
		e.logger.Error("Statement failed", "kind", kind, "error", err, "statement", stmt)
		return
	}
	e.logger.Error("Statement failed", "error", err, "statement", stmt)
}

// Session is one checked-out connection, optionally carrying an open
// transaction. Statements routed through the session run on the
// transaction when one is open.
type Session struct {
	conn *sql.Conn
	tx   *sql.Tx
}

func (s *Session) runner() runner {
	if s.tx != nil {
		return s.tx
	}
	return s.conn
}

// Begin opens a transaction on the session.
func (s *Session) Begin(ctx context.Context) error {
	if s.tx != nil {
		return fmt.Errorf("session: transaction already open")
	}
	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	s.tx = tx
	return nil
}

// Commit commits the open transaction.
func (s *Session) Commit() error {
	if s.tx == nil {
		return fmt.Errorf("session: no open transaction")
	}
	err := s.tx.Commit()
	s.tx = nil
	return err
}

// Rollback aborts the open transaction. Safe to call after Commit.
func (s *Session) Rollback() error {
	if s.tx == nil {
		return nil
	}
	err := s.tx.Rollback()
	s.tx = nil
	return err
}

// Release rolls back any open transaction and returns the connection to
// the pool.
func (s *Session) Release() error {
	if s.conn == nil {
		return nil
	}
	_ = s.Rollback()
	err := s.conn.Close()
	s.conn = nil
	return err
}

func scanRows(rows *sql.Rows) ([]Row, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	out := make([]Row, 0, 8)
	for rows.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		row := make(Row, len(cols))
		for i, c := range cols {
			row[c] = vals[i]
		}
		out = append(out, row)
	}
	return out, rows.Err()
}
