// Package sqlstore is a record store kept in a single SQL table, for local
// and self-hosted use. It speaks the same contract as the hosted store.
package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib" // register pgx as a database/sql driver
	_ "modernc.org/sqlite"             // pure go sqlite driver

	"github.com/harrisonrobin/crmsync/pkg/store"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

type Config struct {
	Driver string
	DSN    string
	// Actor is written to CreatedBy/ModifiedBy.
	Actor string
}

type dialect struct {
	driverName string
	ddl        string
	numbered   bool // $1 placeholders instead of ?
}

var dialects = map[string]dialect{
	DriverSQLite: {
		driverName: "sqlite",
		ddl: `CREATE TABLE IF NOT EXISTS records (
			seq INTEGER PRIMARY KEY AUTOINCREMENT,
			tbl TEXT NOT NULL,
			id TEXT NOT NULL,
			payload TEXT NOT NULL,
			UNIQUE (tbl, id)
		)`,
	},
	DriverPostgres: {
		driverName: "pgx",
		ddl: `CREATE TABLE IF NOT EXISTS records (
			seq BIGSERIAL PRIMARY KEY,
			tbl TEXT NOT NULL,
			id TEXT NOT NULL,
			payload TEXT NOT NULL,
			UNIQUE (tbl, id)
		)`,
		numbered: true,
	},
}

// Store implements store.RecordStore on database/sql.
type Store struct {
	db      *sql.DB
	dialect dialect
	actor   string
	now     func() time.Time
	newID   func() string
}

var _ store.RecordStore = (*Store)(nil)

// Open connects, creating the SQLite file's directory when needed, and
// ensures the records table exists.
func Open(ctx context.Context, cfg Config) (*Store, error) {
	d, ok := dialects[cfg.Driver]
	if !ok {
		return nil, fmt.Errorf("sqlstore: unsupported driver %q", cfg.Driver)
	}
	if cfg.DSN == "" {
		return nil, errors.New("sqlstore: dsn is required")
	}
	if cfg.Driver == DriverSQLite && !strings.HasPrefix(cfg.DSN, "file:") && cfg.DSN != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(cfg.DSN), 0o700); err != nil {
			return nil, fmt.Errorf("sqlstore: create dirs: %w", err)
		}
	}
	db, err := sql.Open(d.driverName, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: open %s: %w", cfg.Driver, err)
	}
	if cfg.Driver == DriverSQLite {
		// one writer; avoids SQLITE_BUSY between pooled connections
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlstore: ping %s: %w", cfg.Driver, err)
	}
	if _, err := db.ExecContext(ctx, d.ddl); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlstore: create records table: %w", err)
	}
	return &Store{
		db:      db,
		dialect: d,
		actor:   cfg.Actor,
		now:     time.Now,
		newID:   func() string { return uuid.New().String() },
	}, nil
}

func (s *Store) Close() error { return s.db.Close() }

// rebind rewrites ? placeholders for dialects that number them.
func (s *Store) rebind(q string) string {
	if !s.dialect.numbered {
		return q
	}
	var b strings.Builder
	n := 0
	for _, r := range q {
		if r == '?' {
			n++
			fmt.Fprintf(&b, "$%d", n)
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

type row struct {
	seq    int64
	record store.Record
}

func (s *Store) List(ctx context.Context, table string, q store.Query) (*store.ListResponse, error) {
	rows, err := s.db.QueryContext(ctx, s.rebind(`SELECT seq, payload FROM records WHERE tbl = ? ORDER BY seq`), table)
	if err != nil {
		return nil, fmt.Errorf("select %s: %w", table, err)
	}
	defer func() { _ = rows.Close() }()

	var matched []row
	for rows.Next() {
		var r row
		var payload string
		if err := rows.Scan(&r.seq, &payload); err != nil {
			return nil, fmt.Errorf("scan %s: %w", table, err)
		}
		if err := json.Unmarshal([]byte(payload), &r.record); err != nil {
			return nil, fmt.Errorf("decode %s record: %w", table, err)
		}
		if matches(r.record, q.Where) {
			matched = append(matched, r)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s: %w", table, err)
	}

	sortRows(matched, q.OrderBy)
	data := make([]store.Record, 0, len(matched))
	for _, r := range matched {
		data = append(data, project(r.record, q.Fields))
	}
	return &store.ListResponse{Success: true, Data: data}, nil
}

func (s *Store) GetByID(ctx context.Context, table, id string, fields []string) (*store.GetResponse, error) {
	rec, err := s.load(ctx, s.db, table, id)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return &store.GetResponse{Success: true}, nil
	}
	return &store.GetResponse{Success: true, Data: project(rec, fields)}, nil
}

func (s *Store) BulkCreate(ctx context.Context, table string, records []store.Record) (*store.BulkResponse, error) {
	resp := &store.BulkResponse{Success: true, Results: make([]store.ItemResult, 0, len(records))}
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		stamp := s.stamp()
		for _, in := range records {
			rec := writable(in)
			rec[store.FieldID] = s.newID()
			rec[store.FieldCreatedOn] = stamp
			rec[store.FieldModifiedOn] = stamp
			if s.actor != "" {
				rec[store.FieldCreatedBy] = s.actor
				rec[store.FieldModifiedBy] = s.actor
			}
			payload, err := json.Marshal(rec)
			if err != nil {
				resp.Results = append(resp.Results, store.ItemResult{Message: err.Error()})
				continue
			}
			if _, err := tx.ExecContext(ctx, s.rebind(`INSERT INTO records (tbl, id, payload) VALUES (?, ?, ?)`),
				table, rec.ID(), string(payload)); err != nil {
				return fmt.Errorf("insert into %s: %w", table, err)
			}
			resp.Results = append(resp.Results, store.ItemResult{Success: true, Data: rec})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// BulkUpdate merges the submitted fields into the stored records. Fields not
// submitted keep their stored value.
func (s *Store) BulkUpdate(ctx context.Context, table string, records []store.Record) (*store.BulkResponse, error) {
	resp := &store.BulkResponse{Success: true, Results: make([]store.ItemResult, 0, len(records))}
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		stamp := s.stamp()
		for _, in := range records {
			id := in.ID()
			if id == "" {
				resp.Results = append(resp.Results, store.ItemResult{Message: "missing Id"})
				continue
			}
			current, err := s.load(ctx, tx, table, id)
			if err != nil {
				return err
			}
			if current == nil {
				resp.Results = append(resp.Results, store.ItemResult{Message: fmt.Sprintf("record %s not found", id)})
				continue
			}
			for k, v := range writable(in) {
				current[k] = v
			}
			current[store.FieldID] = id
			current[store.FieldModifiedOn] = stamp
			if s.actor != "" {
				current[store.FieldModifiedBy] = s.actor
			}
			payload, err := json.Marshal(current)
			if err != nil {
				resp.Results = append(resp.Results, store.ItemResult{Message: err.Error()})
				continue
			}
			if _, err := tx.ExecContext(ctx, s.rebind(`UPDATE records SET payload = ? WHERE tbl = ? AND id = ?`),
				string(payload), table, id); err != nil {
				return fmt.Errorf("update %s: %w", table, err)
			}
			resp.Results = append(resp.Results, store.ItemResult{Success: true, Data: current})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

func (s *Store) BulkDelete(ctx context.Context, table string, ids []string) (*store.DeleteResponse, error) {
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		for _, id := range ids {
			if _, err := tx.ExecContext(ctx, s.rebind(`DELETE FROM records WHERE tbl = ? AND id = ?`), table, id); err != nil {
				return fmt.Errorf("delete from %s: %w", table, err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &store.DeleteResponse{Success: true}, nil
}

type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *Store) load(ctx context.Context, q querier, table, id string) (store.Record, error) {
	var payload string
	err := q.QueryRowContext(ctx, s.rebind(`SELECT payload FROM records WHERE tbl = ? AND id = ?`), table, id).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("select %s %s: %w", table, id, err)
	}
	var rec store.Record
	if err := json.Unmarshal([]byte(payload), &rec); err != nil {
		return nil, fmt.Errorf("decode %s %s: %w", table, id, err)
	}
	return rec, nil
}

func (s *Store) inTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// stampLayout is fixed width so stamps sort as strings.
const stampLayout = "2006-01-02T15:04:05.000000000Z"

func (s *Store) stamp() string {
	return s.now().UTC().Format(stampLayout)
}

// writable drops store-owned fields from a submitted record.
func writable(in store.Record) store.Record {
	out := make(store.Record, len(in))
	for k, v := range in {
		out[k] = v
	}
	delete(out, store.FieldID)
	for _, f := range store.AuditFields {
		delete(out, f)
	}
	return out
}

func matches(rec store.Record, where []store.Condition) bool {
	for _, c := range where {
		if c.Operator != store.ExactMatch {
			continue
		}
		got := rec.String(c.FieldName)
		ok := false
		for _, v := range c.Values {
			if got == v {
				ok = true
				break
			}
		}
		if !ok {
			return false
		}
	}
	return true
}

// sortRows orders by the requested fields; equal keys fall back to insertion
// order in the direction of the first sort field.
func sortRows(rows []row, order []store.OrderBy) {
	if len(order) == 0 {
		return
	}
	sort.SliceStable(rows, func(i, j int) bool {
		for _, o := range order {
			a, b := rows[i].record.String(o.FieldName), rows[j].record.String(o.FieldName)
			if a == b {
				continue
			}
			if o.SortType == store.SortDesc {
				return a > b
			}
			return a < b
		}
		if order[0].SortType == store.SortDesc {
			return rows[i].seq > rows[j].seq
		}
		return rows[i].seq < rows[j].seq
	})
}

// project keeps the requested fields plus the identity. No fields means all.
func project(rec store.Record, fields []string) store.Record {
	if len(fields) == 0 {
		return rec
	}
	out := store.Record{store.FieldID: rec[store.FieldID]}
	for _, f := range fields {
		if v, ok := rec[f]; ok {
			out[f] = v
		}
	}
	return out
}
