package postgres

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"testing"

	"linkbox/internal/infra/persistence/postgres/testutil"
)

func newStubStore(t *testing.T) (*Store, *testutil.StubConn) {
	t.Helper()
	db, conn := testutil.NewStubDB()
	restore := OverrideSQLOpen(func(_, _ string) (*sql.DB, error) { return db, nil })
	t.Cleanup(restore)
	store, err := NewStore(context.Background(), "")
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	return store, conn
}

func TestNewStoreEnsuresStateTable(t *testing.T) {
	_, conn := newStubStore(t)
	var sawDDL bool
	for _, stmt := range conn.Execs {
		if strings.Contains(stmt, "CREATE TABLE IF NOT EXISTS state") && strings.Contains(stmt, "JSONB") {
			sawDDL = true
		}
	}
	if !sawDDL {
		t.Fatalf("expected state DDL, got execs: %v", conn.Execs)
	}
}

func TestStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	store, conn := newStubStore(t)
	if _, ok, err := store.Get(ctx, "linkbox-store"); err != nil || ok {
		t.Fatalf("expected absent payload, ok=%v err=%v", ok, err)
	}
	if err := store.Put(ctx, "linkbox-store", []byte(`{"v":1}`)); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := store.Put(ctx, "linkbox-store", []byte(`{"v":2}`)); err != nil {
		t.Fatalf("put again: %v", err)
	}
	if rows := len(conn.Tables["state"]); rows != 1 {
		t.Fatalf("expected one row after upsert, got %d", rows)
	}
	got, ok, err := store.Get(ctx, "linkbox-store")
	if err != nil || !ok || string(got) != `{"v":2}` {
		t.Fatalf("unexpected payload %q ok=%v err=%v", got, ok, err)
	}
	if err := store.Delete(ctx, "linkbox-store"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, ok, _ := store.Get(ctx, "linkbox-store"); ok {
		t.Fatalf("expected payload removed")
	}
}

func TestNewStoreSurfacesConnectionErrors(t *testing.T) {
	db, conn := testutil.NewStubDB()
	conn.FailPing = true
	restore := OverrideSQLOpen(func(_, _ string) (*sql.DB, error) { return db, nil })
	defer restore()
	if _, err := NewStore(context.Background(), "postgres://unused"); err == nil || !strings.Contains(err.Error(), "ping postgres") {
		t.Fatalf("expected ping error, got %v", err)
	}

	openErr := errors.New("boom")
	restoreOpen := OverrideSQLOpen(func(_, _ string) (*sql.DB, error) { return nil, openErr })
	defer restoreOpen()
	if _, err := NewStore(context.Background(), ""); !errors.Is(err, openErr) {
		t.Fatalf("expected open error, got %v", err)
	}
}

func TestStoreWrapsExecErrors(t *testing.T) {
	store, conn := newStubStore(t)
	conn.FailExec = true
	if err := store.Put(context.Background(), "k", []byte("{}")); err == nil || !strings.Contains(err.Error(), "upsert k") {
		t.Fatalf("expected wrapped upsert error, got %v", err)
	}
}
