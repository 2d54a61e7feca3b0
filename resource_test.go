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

package relic_test

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/mysqldialect"
	"github.com/uptrace/bun/driver/sqliteshim"

	"github.com/relicdb/relic"
	"github.com/relicdb/relic/criteria"
	"github.com/relicdb/relic/database"
	"github.com/relicdb/relic/types"
)

func newTestService(t *testing.T) *database.Executor {
	t.Helper()
	mgr := database.NewDatabaseManager(&database.ConnectionConfig{
		Type:           "sqlite",
		DBName:         filepath.Join(t.TempDir(), "relic_test"),
		MaxIdleConns:   2,
		MaxOpenConns:   4,
		ConnectTimeout: 5 * time.Second,
	})
	require.NoError(t, mgr.Connect(context.Background()))
	t.Cleanup(func() { _ = mgr.Disconnect() })
	return mgr.Executor()
}

func newThings(t *testing.T) *relic.Resource {
	t.Helper()
	svc := newTestService(t)
	res, err := relic.New(relic.Config{
		Service:        svc,
		Table:          "things",
		ModifiableKeys: []string{"name", "score", "status"},
		GenerateIDs:    true,
		Hooks: relic.LifecycleHooks{
			OnTableMissing: func(ctx context.Context, s *database.Session) error {
				_, err := svc.Exec(ctx, `CREATE TABLE things (
					id TEXT PRIMARY KEY,
					name TEXT,
					score INTEGER,
					status TEXT,
					meta TEXT,
					updated TIMESTAMP
				)`, nil, &database.ExecOptions{Session: s})
				return err
			},
		},
	})
	require.NoError(t, err)
	require.NoError(t, res.Init(context.Background()))
	return res
}

func seedThings(t *testing.T, res *relic.Resource, n int) []relic.Row {
	t.Helper()
	ctx := context.Background()
	out := make([]relic.Row, 0, n)
	for i := 0; i < n; i++ {
		row, err := res.Create(ctx, relic.Row{
			"name":   fmt.Sprintf("thing-%02d", i),
			"score":  i * 10,
			"status": "alive",
		}, nil)
		require.NoError(t, err)
		out = append(out, row)
	}
	return out
}

func TestCreateRetrieveRoundTrip(t *testing.T) {
	res := newThings(t)
	ctx := context.Background()

	created, err := res.Create(ctx, relic.Row{"name": "widget", "score": 7, "status": "alive"}, nil)
	require.NoError(t, err)
	require.NotNil(t, created)
	id := created["id"]
	require.NotEmpty(t, id)

	got, err := res.Retrieve(ctx, id, nil)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "widget", got["name"])
	assert.EqualValues(t, 7, got["score"])
}

func TestCreateKeepsSuppliedID(t *testing.T) {
	res := newThings(t)
	ctx := context.Background()

	created, err := res.Create(ctx, relic.Row{"id": "fixed", "name": "x", "status": "alive"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "fixed", created["id"])
}

func TestCreateEmptyRowFails(t *testing.T) {
	res := newThings(t)
	_, err := res.Create(context.Background(), relic.Row{}, nil)
	assert.Error(t, err)
}

func TestRetrieveNilIDReturnsNothing(t *testing.T) {
	res := newThings(t)
	got, err := res.Retrieve(context.Background(), nil, nil)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestRetrieveAbsentRowIsNotAnError(t *testing.T) {
	res := newThings(t)
	got, err := res.Retrieve(context.Background(), "no-such-id", nil)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestFindScalarConjunction(t *testing.T) {
	res := newThings(t)
	ctx := context.Background()
	seedThings(t, res, 5)

	rows, err := res.Find(ctx, criteria.New().Eq("name", "thing-03").Eq("score", 30), nil)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "thing-03", rows[0]["name"])

	// Both conjuncts must hold.
	rows, err = res.Find(ctx, criteria.New().Eq("name", "thing-03").Eq("score", 40), nil)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestFindMembershipMatchesRetrieveUnion(t *testing.T) {
	res := newThings(t)
	ctx := context.Background()
	seeded := seedThings(t, res, 4)

	ids := []any{seeded[0]["id"], seeded[2]["id"]}
	rows, err := res.Find(ctx, criteria.New().In("id", ids...), &relic.Options{
		Sort: []relic.Order{{Column: "name"}},
	})
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, seeded[0]["id"], rows[0]["id"])
	assert.Equal(t, seeded[2]["id"], rows[1]["id"])
}

func TestFindNotEqualIsComplement(t *testing.T) {
	res := newThings(t)
	ctx := context.Background()
	seedThings(t, res, 4)

	eq, err := res.Find(ctx, criteria.New().Eq("name", "thing-01"), nil)
	require.NoError(t, err)
	ne, err := res.Find(ctx, criteria.New().Where("name", criteria.Ne("thing-01")), nil)
	require.NoError(t, err)

	assert.Len(t, eq, 1)
	assert.Len(t, ne, 3)
	for _, row := range ne {
		assert.NotEqual(t, "thing-01", row["name"])
	}
}

func TestFindRangeOperators(t *testing.T) {
	res := newThings(t)
	ctx := context.Background()
	seedThings(t, res, 5) // scores 0,10,20,30,40

	rows, err := res.Find(ctx, criteria.New().Where("score", criteria.Gte(10).Lt(40)), &relic.Options{
		Sort: []relic.Order{{Column: "score"}},
	})
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.EqualValues(t, 10, rows[0]["score"])
	assert.EqualValues(t, 30, rows[2]["score"])
}

func TestFindCaseInsensitiveEquality(t *testing.T) {
	res := newThings(t)
	ctx := context.Background()
	_, err := res.Create(ctx, relic.Row{"name": "Widget", "status": "alive"}, nil)
	require.NoError(t, err)

	rows, err := res.Find(ctx, criteria.New().Where("name", criteria.EqFold("wIDGET")), nil)
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestFindPaginationWithExplicitSort(t *testing.T) {
	res := newThings(t)
	ctx := context.Background()
	seedThings(t, res, 10)

	opts := &relic.Options{
		Sort: []relic.Order{{Column: "score", Desc: true}},
		Skip: relic.Int(2),
		Take: relic.Int(3),
	}
	rows, err := res.Find(ctx, nil, opts)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.EqualValues(t, 70, rows[0]["score"])
	assert.EqualValues(t, 50, rows[2]["score"])
}

func TestFindProjection(t *testing.T) {
	res := newThings(t)
	ctx := context.Background()
	seedThings(t, res, 1)

	rows, err := res.Find(ctx, nil, &relic.Options{
		Fields: []relic.Projection{{Column: "name", Include: true}},
	})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Contains(t, rows[0], "name")
	assert.Contains(t, rows[0], "id") // id rides along
	assert.NotContains(t, rows[0], "score")
}

func TestCount(t *testing.T) {
	res := newThings(t)
	ctx := context.Background()
	seedThings(t, res, 6)

	n, err := res.Count(ctx, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(6), n)

	n, err = res.Count(ctx, criteria.New().Where("score", criteria.Gte(30)), nil)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
}

func TestUpdateAppliesOnlyModifiableKeys(t *testing.T) {
	res := newThings(t)
	ctx := context.Background()
	seeded := seedThings(t, res, 1)

	got, err := res.Update(ctx, seeded[0], relic.Row{
		"name":    "renamed",
		"updated": "bogus", // not allow-listed, must be ignored
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, "renamed", got["name"])
	assert.NotEqual(t, "bogus", got["updated"])
}

func TestUpdateStampsUpdatedColumn(t *testing.T) {
	res := newThings(t)
	ctx := context.Background()
	seeded := seedThings(t, res, 1)

	got, err := res.Update(ctx, seeded[0], relic.Row{"score": 99}, nil)
	require.NoError(t, err)
	assert.EqualValues(t, 99, got["score"])
	assert.NotNil(t, got["updated"])
}

func TestUpdateWithoutIDFails(t *testing.T) {
	res := newThings(t)
	_, err := res.Update(context.Background(), relic.Row{"name": "x"}, nil, nil)
	assert.ErrorIs(t, err, relic.ErrMissingID)
}

func TestBulkUpdate(t *testing.T) {
	res := newThings(t)
	ctx := context.Background()
	seedThings(t, res, 5)

	n, err := res.BulkUpdate(ctx, criteria.New().Where("score", criteria.Gte(30)), relic.Row{"name": "big"}, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	count, err := res.Count(ctx, criteria.New().Eq("name", "big"), nil)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
}

func TestBulkUpdateEmptyPatchFails(t *testing.T) {
	res := newThings(t)
	_, err := res.BulkUpdate(context.Background(), nil, relic.Row{}, nil)
	assert.Error(t, err)
}

func TestSoftDeleteConcealsRow(t *testing.T) {
	res := newThings(t)
	ctx := context.Background()
	seeded := seedThings(t, res, 3)
	id := seeded[1]["id"]

	_, err := res.Delete(ctx, seeded[1], nil)
	require.NoError(t, err)

	// Gone from default reads.
	got, err := res.Retrieve(ctx, id, nil)
	require.NoError(t, err)
	assert.Nil(t, got)

	n, err := res.Count(ctx, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	// Still in the table when revealed.
	got, err = res.Retrieve(ctx, id, &relic.Options{RevealDeleted: true})
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "dead", got["status"])
}

func TestBulkDeleteThenReveal(t *testing.T) {
	res := newThings(t)
	ctx := context.Background()
	seedThings(t, res, 5)

	n, err := res.BulkDelete(ctx, criteria.New().Where("score", criteria.Lt(30)), nil)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	visible, err := res.Find(ctx, nil, nil)
	require.NoError(t, err)
	assert.Len(t, visible, 2)

	all, err := res.Find(ctx, nil, &relic.Options{RevealDeleted: true})
	require.NoError(t, err)
	assert.Len(t, all, 5)
}

func TestBulkDeleteSkipsAlreadyDeadRows(t *testing.T) {
	res := newThings(t)
	ctx := context.Background()
	seedThings(t, res, 4)

	n, err := res.BulkDelete(ctx, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(4), n)

	// Tombstoned rows are no longer visible to the bulk mutation.
	n, err = res.BulkDelete(ctx, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)
}

func TestDeletePermanently(t *testing.T) {
	res := newThings(t)
	ctx := context.Background()
	seeded := seedThings(t, res, 2)
	id := seeded[0]["id"]

	last, err := res.DeletePermanently(ctx, seeded[0], nil)
	require.NoError(t, err)
	require.NotNil(t, last)
	assert.Equal(t, id, last["id"])

	// Gone even to revealed reads.
	got, err := res.Retrieve(ctx, id, &relic.Options{RevealDeleted: true})
	require.NoError(t, err)
	assert.Nil(t, got)

	// A second pass finds nothing and is not an error.
	last, err = res.DeletePermanently(ctx, seeded[0], nil)
	require.NoError(t, err)
	assert.Nil(t, last)
}

func TestDeletePermanentlyWithoutIDFails(t *testing.T) {
	res := newThings(t)
	_, err := res.DeletePermanently(context.Background(), relic.Row{"name": "x"}, nil)
	assert.ErrorIs(t, err, relic.ErrMissingID)
}

func TestBulkDeletePermanently(t *testing.T) {
	res := newThings(t)
	ctx := context.Background()
	seedThings(t, res, 5)

	n, err := res.BulkDeletePermanently(ctx, criteria.New().Where("score", criteria.Gte(30)), nil)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	all, err := res.Find(ctx, nil, &relic.Options{RevealDeleted: true})
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestOperationsInsideSession(t *testing.T) {
	svc := newTestService(t)
	res, err := relic.New(relic.Config{
		Service:        svc,
		Table:          "things",
		ModifiableKeys: []string{"name"},
		GenerateIDs:    true,
		Hooks: relic.LifecycleHooks{
			OnTableMissing: func(ctx context.Context, s *database.Session) error {
				_, err := svc.Exec(ctx,
					"CREATE TABLE things (id TEXT PRIMARY KEY, name TEXT, score INTEGER, status TEXT, updated TIMESTAMP)",
					nil, &database.ExecOptions{Session: s})
				return err
			},
		},
	})
	require.NoError(t, err)
	ctx := context.Background()
	require.NoError(t, res.Init(ctx))
	seeded := seedThings(t, res, 1)

	// Mutate inside a transaction and roll back.
	sess, err := svc.AcquireSession(ctx)
	require.NoError(t, err)
	require.NoError(t, sess.Begin(ctx))

	opts := &relic.Options{Session: sess}
	_, err = res.Update(ctx, seeded[0], relic.Row{"name": "temp"}, opts)
	require.NoError(t, err)
	require.NoError(t, sess.Rollback())
	require.NoError(t, sess.Release())

	got, err := res.Retrieve(ctx, seeded[0]["id"], nil)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.NotEqual(t, "temp", got["name"])
}

func TestJSONColumnRoundTrip(t *testing.T) {
	res := newThings(t)
	ctx := context.Background()

	created, err := res.Create(ctx, relic.Row{
		"name":   "holder",
		"status": "alive",
		"meta":   types.JSONObject{"color": "red", "size": float64(3)},
	}, nil)
	require.NoError(t, err)

	var meta types.JSONObject
	require.NoError(t, meta.Scan(created["meta"]))
	assert.Equal(t, "red", meta["color"])
	assert.Equal(t, float64(3), meta["size"])
}

func TestNewValidatesConfig(t *testing.T) {
	_, err := relic.New(relic.Config{Table: "things"})
	assert.Error(t, err)

	_, err = relic.New(relic.Config{Service: newTestService(t)})
	assert.Error(t, err)
}

func TestNewRequiresSchemaOnMySQL(t *testing.T) {
	// A mysql-dialect handle over a local file: no server needed to
	// exercise the construction-time schema contract.
	sqlDB, err := sql.Open(sqliteshim.ShimName, filepath.Join(t.TempDir(), "dialect_test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })
	svc := database.NewExecutor(bun.NewDB(sqlDB, mysqldialect.New()), sqlDB, nil)

	_, err = relic.New(relic.Config{Service: svc, Table: "things"})
	assert.Error(t, err)

	res, err := relic.New(relic.Config{Service: svc, Table: "things", Schema: "app"})
	require.NoError(t, err)
	assert.Equal(t, "things", res.Table())
}
