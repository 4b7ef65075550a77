package testutil

import (
	"context"
	"testing"
)

func TestStubDBStagesUntilCommit(t *testing.T) {
	ctx := context.Background()
	db, conn := NewStubDB()

	if err := db.PingContext(ctx); err != nil {
		t.Fatalf("ping: %v", err)
	}
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	if _, err := tx.ExecContext(ctx, `INSERT INTO state(bucket,payload) VALUES($1,$2)`, "animals", []byte(`{}`)); err != nil {
		t.Fatalf("exec: %v", err)
	}
	if _, ok := conn.State["animals"]; ok {
		t.Fatalf("row visible before commit")
	}
	if err := tx.Commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}
	if string(conn.State["animals"]) != `{}` {
		t.Fatalf("row not committed: %v", conn.State)
	}

	rows, err := db.QueryContext(ctx, `SELECT bucket, payload FROM state`)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	defer func() { _ = rows.Close() }()
	var count int
	for rows.Next() {
		var bucket string
		var payload []byte
		if err := rows.Scan(&bucket, &payload); err != nil {
			t.Fatalf("scan: %v", err)
		}
		count++
	}
	if count != 1 {
		t.Fatalf("expected one row, got %d", count)
	}
}

func TestStubDBRollbackDiscards(t *testing.T) {
	ctx := context.Background()
	db, conn := NewStubDB()
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	if _, err := tx.ExecContext(ctx, `INSERT INTO state(bucket,payload) VALUES($1,$2)`, "enclosures", []byte(`{}`)); err != nil {
		t.Fatalf("exec: %v", err)
	}
	if err := tx.Rollback(); err != nil {
		t.Fatalf("rollback: %v", err)
	}
	if len(conn.State) != 0 {
		t.Fatalf("rollback kept rows: %v", conn.State)
	}
}
