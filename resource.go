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

// Package relic exposes Mongo-style filtered CRUD over one table,
// compiled to parameterized SQL, with soft-deleted rows concealed from
// reads and bulk mutations unless a call asks for them.
package relic

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun/dialect"

	"github.com/relicdb/relic/criteria"
	"github.com/relicdb/relic/database"
	"github.com/relicdb/relic/query"
)

// Row is an untyped row keyed by column name.
type Row = database.Row

// ErrMissingID rejects single-row mutations whose row does not carry the
// configured id column.
var ErrMissingID = errors.New("relic: row is missing the id field")

// Config describes one managed table. Service and Table are required;
// the rest defaults per DefaultsApplied.
type Config struct {
	// Service executes statements against the pooled connection.
	Service *database.Executor
	// Schema qualifies the table. Defaults to the schema the connection
	// resolved from its config, then "public" on postgres. Required on
	// mysql when neither supplies one; unused on sqlite.
	Schema string
	// Table is the managed table name.
	Table string
	// IDField uniquely identifies at most one row. Default "id".
	IDField string
	// StatusField carries the liveness marker. Default "status".
	StatusField string
	// UpdatedField is stamped with the current UTC time on update paths.
	// Default "updated"; DisableUpdateStamp turns stamping off.
	UpdatedField       string
	DisableUpdateStamp bool
	// ModifiableKeys is the allow-list of columns a patch may overwrite.
	ModifiableKeys []string
	// DeletedStatus is the tombstone value. Default "dead".
	DeletedStatus string
	// RevealDeleted disables concealment for the whole resource.
	RevealDeleted bool
	// GenerateIDs stamps a UUID on create when the row has no id.
	GenerateIDs bool
	// Hooks drive the schema lifecycle during Init.
	Hooks LifecycleHooks
	// Logger defaults to the shared database logger.
	Logger database.Logger
}

// Resource is the CRUD surface over one table.
type Resource struct {
	svc            *database.Executor
	asm            query.Assembler
	idField        string
	statusField    string
	updatedField   string
	stampUpdated   bool
	modifiableKeys []string
	deletedStatus  string
	conceal        bool
	generateIDs    bool
	hooks          LifecycleHooks
	logger         database.Logger
}

// New validates the configuration and returns a ready Resource.
func New(cfg Config) (*Resource, error) {
	if cfg.Service == nil {
		return nil, fmt.Errorf("relic: config requires a Service")
	}
	if cfg.Table == "" {
		return nil, fmt.Errorf("relic: config requires a Table")
	}
	name := cfg.Service.Dialect()
	if cfg.Schema == "" {
		cfg.Schema = cfg.Service.Schema()
	}
	if cfg.Schema == "" {
		switch name {
		case dialect.PG:
			cfg.Schema = "public"
		case dialect.MySQL:
			// The catalog probes and CREATE SCHEMA need a real name;
			// an empty one can never initialize.
			return nil, fmt.Errorf("relic: config requires a Schema on mysql")
		}
	}
	if cfg.IDField == "" {
		cfg.IDField = "id"
	}
	if cfg.StatusField == "" {
		cfg.StatusField = "status"
	}
	if cfg.UpdatedField == "" {
		cfg.UpdatedField = "updated"
	}
	if cfg.DeletedStatus == "" {
		cfg.DeletedStatus = "dead"
	}
	if cfg.Logger == nil {
		cfg.Logger = database.GetLogger()
	}
	return &Resource{
		svc: cfg.Service,
		asm: query.Assembler{
			Dialect:       name,
			Schema:        cfg.Schema,
			Table:         cfg.Table,
			IDField:       cfg.IDField,
			StatusField:   cfg.StatusField,
			DeletedStatus: cfg.DeletedStatus,
		},
		idField:        cfg.IDField,
		statusField:    cfg.StatusField,
		updatedField:   cfg.UpdatedField,
		stampUpdated:   !cfg.DisableUpdateStamp,
		modifiableKeys: cfg.ModifiableKeys,
		deletedStatus:  cfg.DeletedStatus,
		conceal:        !cfg.RevealDeleted,
		generateIDs:    cfg.GenerateIDs,
		hooks:          cfg.Hooks,
		logger:         cfg.Logger,
	}, nil
}

// Table returns the managed table name.
func (r *Resource) Table() string { return r.asm.Table }

// concealed reports whether tombstones are hidden for this call.
func (r *Resource) concealed(opts *Options) bool {
	return r.conceal && !opts.RevealDeleted
}

// Create inserts every supplied column and returns the stored row. When
// the row carries no id and GenerateIDs is on, a UUID is stamped first.
func (r *Resource) Create(ctx context.Context, row Row, opts *Options) (Row, error) {
	if len(row) == 0 {
		return nil, fmt.Errorf("relic: create requires a non-empty row")
	}
	opts = opts.orDefault()
	ins := copyRow(row)
	if _, ok := ins[r.idField]; !ok && r.generateIDs {
		ins[r.idField] = uuid.NewString()
	}

	stmt, args, err := r.asm.Insert(assigns(ins, ""))
	if err != nil {
		return nil, err
	}
	res, err := r.svc.Do(ctx, stmt, args, opts.execOptions())
	if err != nil {
		return nil, err
	}

	if id, ok := ins[r.idField]; ok {
		return r.fetch(ctx, id, opts)
	}
	if lid, err := res.LastInsertId(); err == nil && lid > 0 {
		return r.fetch(ctx, lid, opts)
	}
	return ins, nil
}

// Retrieve returns the row with the given id, or nil when the id is nil
// or no visible row matches. Absence is not an error.
func (r *Resource) Retrieve(ctx context.Context, id any, opts *Options) (Row, error) {
	if id == nil {
		return nil, nil
	}
	opts = opts.orDefault()
	c := criteria.New().Eq(r.idField, id)
	stmt, args, err := r.asm.Select(c, query.Options{
		Fields:  opts.Fields,
		Take:    Int(1),
		Conceal: r.concealed(opts),
	})
	if err != nil {
		return nil, err
	}
	res, err := r.svc.Query(ctx, stmt, args, opts.execOptions())
	if err != nil {
		return nil, err
	}
	if len(res.Rows) == 0 {
		return nil, nil
	}
	return res.Rows[0], nil
}

// Find returns every visible row matching the criteria, honoring
// projection, sorting, and pagination.
func (r *Resource) Find(ctx context.Context, c *criteria.Criteria, opts *Options) ([]Row, error) {
	opts = opts.orDefault()
	stmt, args, err := r.asm.Select(c, query.Options{
		Skip:    opts.Skip,
		Take:    opts.Take,
		Fields:  opts.Fields,
		Sort:    opts.Sort,
		Conceal: r.concealed(opts),
	})
	if err != nil {
		return nil, err
	}
	res, err := r.svc.Query(ctx, stmt, args, opts.execOptions())
	if err != nil {
		return nil, err
	}
	return res.Rows, nil
}

// Count returns the number of visible rows matching the criteria.
func (r *Resource) Count(ctx context.Context, c *criteria.Criteria, opts *Options) (int64, error) {
	opts = opts.orDefault()
	stmt, args, err := r.asm.Select(c, query.Options{
		Mode:    query.ModeCount,
		Conceal: r.concealed(opts),
	})
	if err != nil {
		return 0, err
	}
	res, err := r.svc.Query(ctx, stmt, args, opts.execOptions())
	if err != nil {
		return 0, err
	}
	if len(res.Rows) == 0 {
		return 0, nil
	}
	return coerceCount(res.Rows[0][query.CountColumn]), nil
}

// Update persists the row identified by its id column. When a patch is
// given, only allow-listed columns are copied onto the row first; the
// updated column is stamped unless stamping is disabled. Concealment is
// never applied: the caller already identified the row.
func (r *Resource) Update(ctx context.Context, row Row, patch Row, opts *Options) (Row, error) {
	id, ok := row[r.idField]
	if !ok {
		return nil, fmt.Errorf("update %s: %w", r.asm.Table, ErrMissingID)
	}
	opts = opts.orDefault()

	merged := copyRow(row)
	for _, k := range r.modifiableKeys {
		if v, ok := patch[k]; ok {
			merged[k] = v
		}
	}
	if r.stampUpdated {
		merged[r.updatedField] = time.Now().UTC()
	}

	c := criteria.New().Eq(r.idField, id)
	stmt, args, err := r.asm.Update(assigns(merged, r.idField), c, query.Options{})
	if err != nil {
		return nil, err
	}
	if _, err := r.svc.Exec(ctx, stmt, args, opts.execOptions()); err != nil {
		return nil, err
	}
	return r.fetch(ctx, id, opts)
}

// BulkUpdate applies the patch to every visible row matching the
// criteria and returns the affected row count.
func (r *Resource) BulkUpdate(ctx context.Context, c *criteria.Criteria, patch Row, opts *Options) (int64, error) {
	if len(patch) == 0 {
		return 0, fmt.Errorf("relic: bulk update requires a non-empty patch")
	}
	opts = opts.orDefault()

	set := copyRow(patch)
	if r.stampUpdated {
		set[r.updatedField] = time.Now().UTC()
	}
	stmt, args, err := r.asm.Update(assigns(set, ""), c, query.Options{Conceal: r.concealed(opts)})
	if err != nil {
		return 0, err
	}
	return r.svc.Exec(ctx, stmt, args, opts.execOptions())
}

// Delete tombstones the row: its status column is set to the deleted
// value and the row stays in the table.
func (r *Resource) Delete(ctx context.Context, row Row, opts *Options) (Row, error) {
	dead := copyRow(row)
	dead[r.statusField] = r.deletedStatus
	return r.Update(ctx, dead, nil, opts)
}

// BulkDelete tombstones every visible row matching the criteria.
func (r *Resource) BulkDelete(ctx context.Context, c *criteria.Criteria, opts *Options) (int64, error) {
	return r.BulkUpdate(ctx, c, Row{r.statusField: r.deletedStatus}, opts)
}

// DeletePermanently removes the identified row from the table and
// returns its last stored state, or nil when no such row exists.
func (r *Resource) DeletePermanently(ctx context.Context, row Row, opts *Options) (Row, error) {
	id, ok := row[r.idField]
	if !ok {
		return nil, fmt.Errorf("delete %s: %w", r.asm.Table, ErrMissingID)
	}
	opts = opts.orDefault()

	pre, err := r.fetch(ctx, id, opts)
	if err != nil {
		return nil, err
	}
	if pre == nil {
		return nil, nil
	}

	c := criteria.New().Eq(r.idField, id)
	stmt, args, err := r.asm.Delete(c, query.Options{})
	if err != nil {
		return nil, err
	}
	if _, err := r.svc.Exec(ctx, stmt, args, opts.execOptions()); err != nil {
		return nil, err
	}
	return pre, nil
}

// BulkDeletePermanently removes every visible row matching the criteria
// and returns the removed row count.
func (r *Resource) BulkDeletePermanently(ctx context.Context, c *criteria.Criteria, opts *Options) (int64, error) {
	opts = opts.orDefault()
	stmt, args, err := r.asm.Delete(c, query.Options{Conceal: r.concealed(opts)})
	if err != nil {
		return 0, err
	}
	return r.svc.Exec(ctx, stmt, args, opts.execOptions())
}

// fetch reads one row by id with concealment off, keeping the caller's
// session routing.
func (r *Resource) fetch(ctx context.Context, id any, opts *Options) (Row, error) {
	return r.Retrieve(ctx, id, &Options{
		RevealDeleted: true,
		Session:       opts.Session,
		Suppress:      opts.Suppress,
	})
}

func copyRow(row Row) Row {
	dup := make(Row, len(row)+1)
	for k, v := range row {
		dup[k] = v
	}
	return dup
}

// assigns converts a row into column assignments in sorted column order,
// skipping the named column.
func assigns(row Row, skip string) []query.Assign {
	keys := make([]string, 0, len(row))
	for k := range row {
		if k == skip {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]query.Assign, len(keys))
	for i, k := range keys {
		out[i] = query.Assign{Column: k, Value: row[k]}
	}
	return out
}

// coerceCount folds the aggregate column through the integer shapes
// drivers produce.
func coerceCount(v any) int64 {
	switch n := v.(type) {
	case int64:
		return n
	case int:
		return int64(n)
	case int32:
		return int64(n)
	case uint64:
		return int64(n)
	case float64:
		return int64(n)
	case []byte:
		return parseCount(string(n))
	case string:
		return parseCount(n)
	default:
		return 0
	}
}

func parseCount(s string) int64 {
	var n int64
	_, err := fmt.Sscanf(s, "%d", &n)
	if err != nil {
		return 0
	}
	return n
}
