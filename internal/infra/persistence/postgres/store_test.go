package postgres

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"storagecore/internal/catalog"
)

// stubConn is a minimal database/sql driver backed by a bucket map,
// understanding just the statements the store issues.
type stubConn struct {
	mu      sync.Mutex
	buckets map[string][]byte
	execs   []string
}

type stubDriver struct{ conn *stubConn }

func (d *stubDriver) Open(string) (driver.Conn, error) { return &stubSession{conn: d.conn}, nil }

type stubSession struct{ conn *stubConn }

func (s *stubSession) Prepare(query string) (driver.Stmt, error) {
	return &stubStmt{conn: s.conn, query: query}, nil
}
func (s *stubSession) Close() error              { return nil }
func (s *stubSession) Begin() (driver.Tx, error) { return stubTx{}, nil }

// Ping satisfies driver.Pinger so db.PingContext succeeds.
func (s *stubSession) Ping(context.Context) error { return nil }

type stubTx struct{}

func (stubTx) Commit() error   { return nil }
func (stubTx) Rollback() error { return nil }

type stubStmt struct {
	conn  *stubConn
	query string
}

func (s *stubStmt) Close() error  { return nil }
func (s *stubStmt) NumInput() int { return -1 }

func (s *stubStmt) Exec(args []driver.Value) (driver.Result, error) {
	s.conn.mu.Lock()
	defer s.conn.mu.Unlock()
	s.conn.execs = append(s.conn.execs, s.query)

	if strings.Contains(s.query, "INSERT INTO state") {
		if len(args) != 2 {
			return nil, fmt.Errorf("upsert expects 2 args, got %d", len(args))
		}
		bucket, _ := args[0].(string)
		payload, _ := args[1].([]byte)
		s.conn.buckets[bucket] = append([]byte(nil), payload...)
	}
	return driver.RowsAffected(1), nil
}

func (s *stubStmt) Query(_ []driver.Value) (driver.Rows, error) {
	if !strings.Contains(s.query, "SELECT bucket, payload FROM state") {
		return nil, fmt.Errorf("unexpected query %q", s.query)
	}
	s.conn.mu.Lock()
	defer s.conn.mu.Unlock()
	rows := &stubRows{}
	for bucket, payload := range s.conn.buckets {
		rows.data = append(rows.data, [2]driver.Value{bucket, append([]byte(nil), payload...)})
	}
	return rows, nil
}

type stubRows struct {
	data [][2]driver.Value
	pos  int
}

func (r *stubRows) Columns() []string { return []string{"bucket", "payload"} }
func (r *stubRows) Close() error      { return nil }

func (r *stubRows) Next(dest []driver.Value) error {
	if r.pos >= len(r.data) {
		return io.EOF
	}
	dest[0] = r.data[r.pos][0]
	dest[1] = r.data[r.pos][1]
	r.pos++
	return nil
}

func newStubDB(t *testing.T) (*sql.DB, *stubConn) {
	t.Helper()
	conn := &stubConn{buckets: make(map[string][]byte)}
	name := fmt.Sprintf("stubpg%d", time.Now().UnixNano())
	sql.Register(name, &stubDriver{conn: conn})
	db, err := sql.Open(name, "stub")
	if err != nil {
		t.Fatalf("open stub db: %v", err)
	}
	return db, conn
}

func withStubDB(t *testing.T, db *sql.DB) {
	t.Helper()
	prev := sqlOpen
	sqlOpen = func(_, _ string) (*sql.DB, error) { return db, nil }
	t.Cleanup(func() { sqlOpen = prev })
}

func TestNewStoreAppliesDDL(t *testing.T) {
	db, conn := newStubDB(t)
	withStubDB(t, db)

	if _, err := NewStore("", nil); err != nil {
		t.Fatalf("NewStore: %v", err)
	}

	sawDDL := false
	for _, stmt := range conn.execs {
		if strings.Contains(strings.ToUpper(stmt), "CREATE TABLE") {
			sawDDL = true
		}
	}
	if !sawDDL {
		t.Fatalf("state table DDL not applied, execs: %v", conn.execs)
	}
}

func TestRunInTransactionPersistsSnapshot(t *testing.T) {
	db, conn := newStubDB(t)
	withStubDB(t, db)

	s, err := NewStore("", nil)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	_, err = s.RunInTransaction(context.Background(), func(tx catalog.Transaction) error {
		_, err := tx.CreateRecord(catalog.ObjectRecord{ID: "1", Key: "a", Size: 7})
		return err
	})
	if err != nil {
		t.Fatalf("RunInTransaction: %v", err)
	}

	conn.mu.Lock()
	payload := conn.buckets["records"]
	conn.mu.Unlock()
	var records []catalog.ObjectRecord
	if err := json.Unmarshal(payload, &records); err != nil {
		t.Fatalf("decode persisted records: %v", err)
	}
	if len(records) != 1 || records[0].Key != "a" || records[0].Size != 7 {
		t.Fatalf("unexpected persisted records %+v", records)
	}
}

func TestNewStoreHydratesSnapshot(t *testing.T) {
	db, conn := newStubDB(t)
	withStubDB(t, db)

	records, _ := json.Marshal([]catalog.ObjectRecord{{ID: "1", Key: "seeded"}})
	events, _ := json.Marshal([]catalog.EventRecord{{ID: "e1", Operation: "put", Key: "seeded"}})
	conn.buckets["records"] = records
	conn.buckets["events"] = events

	s, err := NewStore("", nil)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	err = s.View(context.Background(), func(view catalog.TransactionView) error {
		if _, ok := view.FindRecord("seeded"); !ok {
			t.Fatal("seeded record not hydrated")
		}
		if len(view.ListEvents()) != 1 {
			t.Fatal("seeded events not hydrated")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("View: %v", err)
	}
}
