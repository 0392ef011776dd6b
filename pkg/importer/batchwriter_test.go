package importer

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

func batchTestDB(t *testing.T) *sql.DB {
	t.Helper()
	conn, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	conn.SetMaxOpenConns(1)
	if _, err := conn.Exec("CREATE TABLE test (id INTEGER PRIMARY KEY, val TEXT)"); err != nil {
		t.Fatalf("create table: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func countRows(t *testing.T, conn *sql.DB) int {
	t.Helper()
	var n int
	if err := conn.QueryRow("SELECT COUNT(*) FROM test").Scan(&n); err != nil {
		t.Fatalf("count: %v", err)
	}
	return n
}

func insertVal(val string) WriteFunc {
	return func(ctx context.Context, tx *sql.Tx) error {
		_, err := tx.Exec("INSERT INTO test (val) VALUES (?)", val)
		return err
	}
}

func TestBatchWriterCommitsOnThreshold(t *testing.T) {
	conn := batchTestDB(t)
	bw := NewBatchWriter(conn, 2, 0)

	if err := bw.Submit(insertVal("A")); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if err := bw.Submit(insertVal("B")); err != nil {
		t.Fatalf("submit: %v", err)
	}

	if err := bw.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if n := countRows(t, conn); n != 2 {
		t.Fatalf("expected 2 rows, got %d", n)
	}
}

func TestBatchWriterFlushesPartialBufferOnClose(t *testing.T) {
	conn := batchTestDB(t)
	bw := NewBatchWriter(conn, 100, 0)

	for i := 0; i < 7; i++ {
		if err := bw.Submit(insertVal(fmt.Sprintf("v%d", i))); err != nil {
			t.Fatalf("submit: %v", err)
		}
	}
	if err := bw.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if n := countRows(t, conn); n != 7 {
		t.Fatalf("expected 7 rows, got %d", n)
	}
}

func TestBatchWriterRollsBackFailedBatch(t *testing.T) {
	conn := batchTestDB(t)
	bw := NewBatchWriter(conn, 2, 0)

	fail := errors.New("write exploded")
	if err := bw.Submit(insertVal("A")); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if err := bw.Submit(func(ctx context.Context, tx *sql.Tx) error { return fail }); err != nil {
		t.Fatalf("submit: %v", err)
	}

	err := bw.Close()
	if !errors.Is(err, fail) {
		t.Fatalf("expected the write error from Close, got %v", err)
	}
	// The whole batch rolls back, including the good write.
	if n := countRows(t, conn); n != 0 {
		t.Fatalf("expected 0 rows after rollback, got %d", n)
	}
}

func TestBatchWriterTickerFlush(t *testing.T) {
	conn := batchTestDB(t)
	bw := NewBatchWriter(conn, 100, 10*time.Millisecond)

	if err := bw.Submit(insertVal("A")); err != nil {
		t.Fatalf("submit: %v", err)
	}

	deadline := time.Now().Add(time.Second)
	for countRows(t, conn) == 0 {
		if time.Now().After(deadline) {
			t.Fatal("ticker flush never committed")
		}
		time.Sleep(5 * time.Millisecond)
	}

	if err := bw.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
}

// Close must terminate the interval goroutine even though its ticker has
// been stopped and will never fire again.
func TestBatchWriterCloseWithIntervalReturns(t *testing.T) {
	conn := batchTestDB(t)
	bw := NewBatchWriter(conn, 100, time.Hour)

	if err := bw.Submit(insertVal("A")); err != nil {
		t.Fatalf("submit: %v", err)
	}

	done := make(chan error, 1)
	go func() { done <- bw.Close() }()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("close: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Close did not return with an active flush interval")
	}
	if n := countRows(t, conn); n != 1 {
		t.Fatalf("expected 1 row flushed on close, got %d", n)
	}
}

func TestBatchWriterSubmitAfterClose(t *testing.T) {
	conn := batchTestDB(t)
	bw := NewBatchWriter(conn, 2, 0)
	if err := bw.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := bw.Submit(insertVal("A")); !errors.Is(err, ErrBatchWriterClosed) {
		t.Fatalf("expected ErrBatchWriterClosed, got %v", err)
	}
	if err := bw.Close(); !errors.Is(err, ErrBatchWriterClosed) {
		t.Fatalf("expected ErrBatchWriterClosed on double close, got %v", err)
	}
}
