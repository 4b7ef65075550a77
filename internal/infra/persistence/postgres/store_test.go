package postgres

import (
	"context"
	"database/sql"
	"strings"
	"testing"

	"zoocore/internal/infra/persistence/postgres/testutil"
	"zoocore/pkg/domain"
)

func openStub(t *testing.T) (*testutil.StubConn, func()) {
	t.Helper()
	db, conn := testutil.NewStubDB()
	restore := OverrideSQLOpen(func(driverName, _ string) (*sql.DB, error) {
		if driverName != defaultDriver {
			t.Fatalf("unexpected driver %q", driverName)
		}
		return db, nil
	})
	return conn, restore
}

func createHousedLion(ctx context.Context, store *Store) error {
	_, err := store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		enc, err := domain.NewEnclosure("enc-1", domain.EnclosureCarnivore, 100, 2)
		if err != nil {
			return err
		}
		lion := domain.Animal{Base: domain.Base{ID: "lion"}, Species: "Lion", Name: "Simba"}
		if err := enc.AddAnimal(lion); err != nil {
			return err
		}
		if _, err := tx.CreateEnclosure(enc); err != nil {
			return err
		}
		id := enc.ID()
		lion.EnclosureID = &id
		_, err = tx.CreateAnimal(lion)
		return err
	})
	return err
}

func TestNewStoreCreatesTableAndPersists(t *testing.T) {
	ctx := context.Background()
	conn, restore := openStub(t)
	defer restore()

	store, err := NewStore(ctx, "", domain.NewRulesEngine())
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	var sawDDL bool
	for _, stmt := range conn.Execs {
		if strings.Contains(strings.ToUpper(stmt), "CREATE TABLE IF NOT EXISTS STATE") {
			sawDDL = true
		}
	}
	if !sawDDL {
		t.Fatalf("expected state table DDL, got %v", conn.Execs)
	}

	if err := createHousedLion(ctx, store); err != nil {
		t.Fatalf("transaction: %v", err)
	}
	for _, bucket := range postgresBuckets {
		if len(conn.State[bucket]) == 0 {
			t.Fatalf("bucket %s not persisted", bucket)
		}
	}
	if store.DB() == nil {
		t.Fatalf("expected db handle")
	}
}

func TestNewStoreHydratesFromSnapshot(t *testing.T) {
	ctx := context.Background()
	conn, restore := openStub(t)
	defer restore()

	first, err := NewStore(ctx, "postgres://stub", nil)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	if err := createHousedLion(ctx, first); err != nil {
		t.Fatalf("seed: %v", err)
	}

	db, conn2 := testutil.NewStubDB()
	for k, v := range conn.State {
		conn2.State[k] = v
	}
	restoreSecond := OverrideSQLOpen(func(string, string) (*sql.DB, error) { return db, nil })
	defer restoreSecond()

	second, err := NewStore(ctx, "postgres://stub", nil)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	enc, ok := second.GetEnclosure("enc-1")
	if !ok || !enc.Contains("lion") {
		t.Fatalf("enclosure not hydrated")
	}
	if _, ok := second.GetAnimal("lion"); !ok {
		t.Fatalf("animal not hydrated")
	}
}

func TestNewStoreFailures(t *testing.T) {
	ctx := context.Background()
	cases := []struct {
		name  string
		setup func(*testutil.StubConn)
	}{
		{"ping", func(c *testutil.StubConn) { c.FailPing = true }},
		{"ddl", func(c *testutil.StubConn) { c.FailExec = true }},
		{"select", func(c *testutil.StubConn) { c.FailQuery = true }},
		{"decode", func(c *testutil.StubConn) { c.State["animals"] = []byte("{broken") }},
		{"over capacity", func(c *testutil.StubConn) {
			c.State["enclosures"] = []byte(`{"e":{"id":"e","type":"aviary","area_m2":3,"capacity":1,"animals":["a","b"]}}`)
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			conn, restore := openStub(t)
			defer restore()
			tc.setup(conn)
			if _, err := NewStore(ctx, "", nil); err == nil {
				t.Fatalf("expected error")
			}
		})
	}
}

func TestPersistFailureSurfaces(t *testing.T) {
	ctx := context.Background()
	conn, restore := openStub(t)
	defer restore()
	store, err := NewStore(ctx, "", nil)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	conn.FailCommit = true
	if err := createHousedLion(ctx, store); err == nil || !strings.Contains(err.Error(), "commit") {
		t.Fatalf("expected commit failure, got %v", err)
	}
	if len(conn.State) != 0 {
		t.Fatalf("failed commit persisted rows: %v", conn.State)
	}
	if _, ok := store.GetEnclosure("enc-1"); ok {
		t.Fatalf("enclosure visible after failed commit")
	}
	if _, ok := store.GetAnimal("lion"); ok {
		t.Fatalf("animal visible after failed commit")
	}
	conn.FailCommit = false
	if err := createHousedLion(ctx, store); err != nil {
		t.Fatalf("retry after failed commit: %v", err)
	}
	if enc, ok := store.GetEnclosure("enc-1"); !ok || !enc.Contains("lion") {
		t.Fatalf("retry did not commit")
	}
	conn.FailBegin = true
	if _, err := store.RunInTransaction(ctx, func(domain.Transaction) error { return nil }); err == nil {
		t.Fatalf("expected begin failure")
	}
}
