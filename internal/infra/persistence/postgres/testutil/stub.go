// Package testutil provides an in-memory database/sql driver that understands
// the key/value statements issued by the postgres collection store.
package testutil

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Table is a two-column key/value table. Keys keep insertion order.
type Table struct {
	KeyColumn   string
	ValueColumn string
	keys        []string
	values      map[string]driver.Value
}

func newTable(keyCol, valueCol string) *Table {
	return &Table{KeyColumn: keyCol, ValueColumn: valueCol, values: make(map[string]driver.Value)}
}

// Get returns the value stored under key.
func (t *Table) Get(key string) (driver.Value, bool) {
	v, ok := t.values[key]
	return v, ok
}

// Len reports the number of rows.
func (t *Table) Len() int { return len(t.keys) }

func (t *Table) put(key string, value driver.Value) {
	if _, ok := t.values[key]; !ok {
		t.keys = append(t.keys, key)
	}
	t.values[key] = value
}

func (t *Table) remove(key string) {
	if _, ok := t.values[key]; !ok {
		return
	}
	delete(t.values, key)
	for i, k := range t.keys {
		if k == key {
			t.keys = append(t.keys[:i], t.keys[i+1:]...)
			break
		}
	}
}

// StubConn records statements and keeps table contents in memory.
type StubConn struct {
	Execs      []string
	Tables     map[string]*Table
	FailExec   bool
	FailBegin  bool
	FailCommit bool
	RowsErr    error
	FailTables map[string]bool
}

// NewStubDB registers a sql.DB backed by an in-memory stub connection.
func NewStubDB() (*sql.DB, *StubConn) {
	conn := &StubConn{Tables: make(map[string]*Table)}
	name := fmt.Sprintf("stubpg%d", time.Now().UnixNano())
	sql.Register(name, &stubDriver{conn: conn})
	db, err := sql.Open(name, "stub")
	if err != nil {
		panic(err)
	}
	return db, conn
}

type stubDriver struct {
	conn *StubConn
}

func (d *stubDriver) Open(string) (driver.Conn, error) { return d.conn, nil }

// Prepare implements driver.Conn.
func (c *StubConn) Prepare(string) (driver.Stmt, error) { return nil, fmt.Errorf("not implemented") }

// Close implements driver.Conn.
func (c *StubConn) Close() error { return nil }

// Begin implements driver.Conn.
func (c *StubConn) Begin() (driver.Tx, error) {
	return c.BeginTx(context.Background(), driver.TxOptions{})
}

// Ping implements driver.Pinger.
func (c *StubConn) Ping(context.Context) error {
	if c.FailExec {
		return fmt.Errorf("ping fail")
	}
	return nil
}

// BeginTx implements driver.ConnBeginTx.
func (c *StubConn) BeginTx(context.Context, driver.TxOptions) (driver.Tx, error) {
	if c.FailBegin {
		return nil, fmt.Errorf("begin fail")
	}
	return &stubTx{conn: c}, nil
}

var (
	createRe = regexp.MustCompile(`(?is)^CREATE TABLE IF NOT EXISTS (\w+)\s*\(\s*(\w+)[^,]*,\s*(\w+)`)
	insertRe = regexp.MustCompile(`(?is)^INSERT INTO (\w+)\s*\(\s*(\w+)\s*,\s*(\w+)\s*\)\s*VALUES\s*\(\s*\$1\s*,\s*\$2\s*\)(.*)$`)
	deleteRe = regexp.MustCompile(`(?is)^DELETE FROM (\w+) WHERE (\w+)\s*=\s*\$1$`)
	selectRe = regexp.MustCompile(`(?is)^SELECT (.+?) FROM (\w+)(?: WHERE (\w+)\s*=\s*\$1)?$`)
)

// ExecContext implements driver.ExecerContext for CREATE TABLE, INSERT with
// an optional ON CONFLICT clause, and DELETE by key.
func (c *StubConn) ExecContext(_ context.Context, query string, args []driver.NamedValue) (driver.Result, error) {
	query = strings.TrimSpace(query)
	c.Execs = append(c.Execs, query)
	if c.FailExec {
		return nil, fmt.Errorf("exec fail")
	}
	if m := createRe.FindStringSubmatch(query); m != nil {
		name := strings.ToLower(m[1])
		if _, ok := c.Tables[name]; !ok {
			c.Tables[name] = newTable(strings.ToLower(m[2]), strings.ToLower(m[3]))
		}
		return driver.RowsAffected(0), nil
	}
	if m := insertRe.FindStringSubmatch(query); m != nil {
		table, err := c.table(m[1])
		if err != nil {
			return nil, err
		}
		key, err := keyArg(args)
		if err != nil {
			return nil, err
		}
		if len(args) != 2 {
			return nil, fmt.Errorf("insert %s: want 2 args, got %d", m[1], len(args))
		}
		value := args[1].Value
		existing, exists := table.Get(key)
		conflict := strings.ToUpper(m[4])
		switch {
		case !exists:
			table.put(key, value)
		case strings.Contains(conflict, "DO NOTHING"):
			return driver.RowsAffected(0), nil
		case strings.Contains(conflict, "DO UPDATE"):
			// A WHERE on the update only lets the numeric value grow.
			if strings.Contains(conflict, " WHERE ") && !numericLess(existing, value) {
				return driver.RowsAffected(0), nil
			}
			table.put(key, value)
		default:
			return nil, fmt.Errorf("duplicate key %q in %s", key, m[1])
		}
		return driver.RowsAffected(1), nil
	}
	if m := deleteRe.FindStringSubmatch(query); m != nil {
		table, err := c.table(m[1])
		if err != nil {
			return nil, err
		}
		key, err := keyArg(args)
		if err != nil {
			return nil, err
		}
		if _, ok := table.Get(key); !ok {
			return driver.RowsAffected(0), nil
		}
		table.remove(key)
		return driver.RowsAffected(1), nil
	}
	return nil, fmt.Errorf("unsupported statement: %s", query)
}

// QueryContext implements driver.QueryerContext for SELECT of the key and
// value columns, optionally filtered by key.
func (c *StubConn) QueryContext(_ context.Context, query string, args []driver.NamedValue) (driver.Rows, error) {
	m := selectRe.FindStringSubmatch(strings.TrimSpace(query))
	if m == nil {
		return nil, fmt.Errorf("unsupported query: %s", query)
	}
	table, err := c.table(m[2])
	if err != nil {
		return nil, err
	}
	cols := splitColumns(m[1])
	keys := table.keys
	if m[3] != "" {
		if !strings.EqualFold(m[3], table.KeyColumn) {
			return nil, fmt.Errorf("filter on non-key column %s", m[3])
		}
		key, err := keyArg(args)
		if err != nil {
			return nil, err
		}
		keys = nil
		if _, ok := table.Get(key); ok {
			keys = []string{key}
		}
	}
	rows := make([][]driver.Value, 0, len(keys))
	for _, key := range keys {
		vals := make([]driver.Value, len(cols))
		for i, col := range cols {
			switch col {
			case table.KeyColumn:
				vals[i] = key
			case table.ValueColumn:
				vals[i] = table.values[key]
			default:
				return nil, fmt.Errorf("unknown column %s in %s", col, m[2])
			}
		}
		rows = append(rows, vals)
	}
	return &stubRows{cols: cols, rows: rows, err: c.RowsErr}, nil
}

func (c *StubConn) table(name string) (*Table, error) {
	name = strings.ToLower(name)
	if c.FailTables[name] {
		return nil, fmt.Errorf("table %s failed", name)
	}
	t, ok := c.Tables[name]
	if !ok {
		return nil, fmt.Errorf("relation %q does not exist", name)
	}
	return t, nil
}

func keyArg(args []driver.NamedValue) (string, error) {
	if len(args) == 0 {
		return "", fmt.Errorf("missing key argument")
	}
	key, ok := args[0].Value.(string)
	if !ok {
		return "", fmt.Errorf("key argument is %T, want string", args[0].Value)
	}
	return key, nil
}

func numericLess(existing, next driver.Value) bool {
	a, errA := strconv.Atoi(fmt.Sprint(existing))
	b, errB := strconv.Atoi(fmt.Sprint(next))
	return errA == nil && errB == nil && a < b
}

type stubTx struct {
	conn *StubConn
}

func (t *stubTx) Commit() error {
	if t.conn.FailCommit {
		return fmt.Errorf("commit fail")
	}
	return nil
}

func (t *stubTx) Rollback() error { return nil }

type stubRows struct {
	cols []string
	rows [][]driver.Value
	idx  int
	err  error
}

func (r *stubRows) Columns() []string { return r.cols }
func (r *stubRows) Close() error      { return nil }

func (r *stubRows) Next(dest []driver.Value) error {
	if r.idx >= len(r.rows) {
		if r.err != nil {
			return r.err
		}
		return io.EOF
	}
	copy(dest, r.rows[r.idx])
	r.idx++
	return nil
}

func splitColumns(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		out = append(out, strings.ToLower(strings.TrimSpace(part)))
	}
	return out
}
