package testutil

import (
	"context"
	"database/sql/driver"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func exec(t *testing.T, conn *StubConn, query string, args ...any) driver.Result {
	t.Helper()
	named := make([]driver.NamedValue, len(args))
	for i, a := range args {
		named[i] = driver.NamedValue{Ordinal: i + 1, Value: a}
	}
	res, err := conn.ExecContext(context.Background(), query, named)
	require.NoError(t, err)
	return res
}

func queryAll(t *testing.T, conn *StubConn, query string, args ...any) [][]driver.Value {
	t.Helper()
	named := make([]driver.NamedValue, len(args))
	for i, a := range args {
		named[i] = driver.NamedValue{Ordinal: i + 1, Value: a}
	}
	rows, err := conn.QueryContext(context.Background(), query, named)
	require.NoError(t, err)
	defer func() { _ = rows.Close() }()
	var out [][]driver.Value
	for {
		dest := make([]driver.Value, len(rows.Columns()))
		err := rows.Next(dest)
		if err == io.EOF {
			return out
		}
		require.NoError(t, err)
		out = append(out, dest)
	}
}

func newCollections(t *testing.T) *StubConn {
	t.Helper()
	_, conn := NewStubDB()
	exec(t, conn, "CREATE TABLE IF NOT EXISTS collections (\n\tname TEXT PRIMARY KEY,\n\tpayload JSONB NOT NULL\n)")
	return conn
}

func TestStubInsertConflictModes(t *testing.T) {
	conn := newCollections(t)

	exec(t, conn, "INSERT INTO collections(name,payload) VALUES($1,$2) ON CONFLICT(name) DO NOTHING", "tenants", []byte("[]"))
	exec(t, conn, "INSERT INTO collections(name,payload) VALUES($1,$2) ON CONFLICT(name) DO NOTHING", "tenants", []byte(`[{"id":"x"}]`))
	got, _ := conn.Tables["collections"].Get("tenants")
	assert.Equal(t, []byte("[]"), got, "do nothing keeps the first row")

	exec(t, conn, "INSERT INTO collections(name,payload) VALUES($1,$2) ON CONFLICT(name) DO UPDATE SET payload=EXCLUDED.payload", "tenants", []byte(`[{"id":"t1"}]`))
	got, _ = conn.Tables["collections"].Get("tenants")
	assert.Equal(t, []byte(`[{"id":"t1"}]`), got)
	assert.Equal(t, 1, conn.Tables["collections"].Len())

	_, err := conn.ExecContext(context.Background(), "INSERT INTO collections(name,payload) VALUES($1,$2)",
		[]driver.NamedValue{{Value: "tenants"}, {Value: []byte("[]")}})
	assert.ErrorContains(t, err, "duplicate key")
}

func TestStubConditionalUpdateOnlyRaises(t *testing.T) {
	_, conn := NewStubDB()
	exec(t, conn, "CREATE TABLE IF NOT EXISTS meta (key TEXT PRIMARY KEY, value TEXT NOT NULL)")
	upsert := "INSERT INTO meta(key,value) VALUES($1,$2) ON CONFLICT(key) DO UPDATE SET value=EXCLUDED.value WHERE CAST(meta.value AS INTEGER) < CAST(EXCLUDED.value AS INTEGER)"

	exec(t, conn, upsert, "schema_version", "2")
	exec(t, conn, upsert, "schema_version", "1")
	got, _ := conn.Tables["meta"].Get("schema_version")
	assert.Equal(t, "2", got)

	exec(t, conn, upsert, "schema_version", "3")
	got, _ = conn.Tables["meta"].Get("schema_version")
	assert.Equal(t, "3", got)
}

func TestStubSelectHonoursKeyFilter(t *testing.T) {
	conn := newCollections(t)
	exec(t, conn, "INSERT INTO collections(name,payload) VALUES($1,$2)", "users", []byte("[]"))
	exec(t, conn, "INSERT INTO collections(name,payload) VALUES($1,$2)", "todos", []byte(`[{"id":"a"}]`))

	rows := queryAll(t, conn, "SELECT name FROM collections")
	assert.Equal(t, [][]driver.Value{{"users"}, {"todos"}}, rows, "insertion order")

	rows = queryAll(t, conn, "SELECT payload FROM collections WHERE name = $1", "todos")
	assert.Equal(t, [][]driver.Value{{[]byte(`[{"id":"a"}]`)}}, rows)
	assert.Empty(t, queryAll(t, conn, "SELECT payload FROM collections WHERE name = $1", "payments"))

	exec(t, conn, "DELETE FROM collections WHERE name = $1", "todos")
	assert.Empty(t, queryAll(t, conn, "SELECT payload FROM collections WHERE name = $1", "todos"))
	assert.Equal(t, 1, conn.Tables["collections"].Len())
}

func TestStubRejectsUnknownStatements(t *testing.T) {
	conn := newCollections(t)
	ctx := context.Background()

	_, err := conn.ExecContext(ctx, "TRUNCATE TABLE collections", nil)
	assert.ErrorContains(t, err, "unsupported statement")
	_, err = conn.QueryContext(ctx, "SELECT payload FROM missing", nil)
	assert.ErrorContains(t, err, "does not exist")
	_, err = conn.QueryContext(ctx, "SELECT name FROM collections WHERE payload = $1", []driver.NamedValue{{Value: "x"}})
	assert.ErrorContains(t, err, "non-key column")
}

func TestStubFailureToggles(t *testing.T) {
	ctx := context.Background()
	conn := newCollections(t)
	conn.FailBegin = true
	_, err := conn.BeginTx(ctx, driver.TxOptions{})
	assert.Error(t, err)

	conn.FailTables = map[string]bool{"collections": true}
	_, err = conn.QueryContext(ctx, "SELECT name FROM collections", nil)
	assert.Error(t, err)

	conn.FailExec = true
	assert.Error(t, conn.Ping(ctx))
}
