package core

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"

	"linkbox/internal/blob"
	"linkbox/internal/infra/persistence/blobstate"
	"linkbox/internal/infra/persistence/memory"
	"linkbox/internal/infra/persistence/postgres"
	"linkbox/internal/infra/persistence/redis"
	"linkbox/internal/infra/persistence/sqlite"
	"linkbox/internal/persistence"
)

func TestOpenBackendDefaultsToSQLite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "custom.db")
	backend, err := OpenBackend(context.Background(), StorageConfig{SQLitePath: path})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = backend.Close() })
	s, ok := backend.(*sqlite.Store)
	if !ok {
		t.Fatalf("expected *sqlite.Store, got %T", backend)
	}
	if s.Path() != path {
		t.Fatalf("expected path %s, got %s", path, s.Path())
	}
}

func TestOpenBackendDrivers(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)

	cases := []struct {
		name  string
		cfg   StorageConfig
		check func(any) bool
	}{
		{"memory", StorageConfig{Driver: StorageMemory}, func(b any) bool { _, ok := b.(*memory.Store); return ok }},
		{"redis", StorageConfig{Driver: StorageRedis, RedisURL: "redis://" + mr.Addr()}, func(b any) bool { _, ok := b.(*redis.Store); return ok }},
		{"blob fs", StorageConfig{Driver: StorageBlob, Blob: blob.Config{Root: t.TempDir()}}, func(b any) bool { _, ok := b.(*blobstate.Store); return ok }},
		{"blob memory", StorageConfig{Driver: StorageBlob, Blob: blob.Config{Driver: blob.DriverMemory}, BlobPrefix: "snapshots"}, func(b any) bool { _, ok := b.(*blobstate.Store); return ok }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			backend, err := OpenBackend(ctx, tc.cfg)
			if err != nil {
				t.Fatalf("open: %v", err)
			}
			t.Cleanup(func() { _ = backend.Close() })
			if !tc.check(backend) {
				t.Fatalf("unexpected backend %T", backend)
			}

			// every backend must carry a full service round trip
			engine := newTestEngine()
			svc := NewService(engine, persistence.NewAdapter(backend, "", engine.Seed))
			if err := svc.Open(ctx); err != nil {
				t.Fatalf("service open: %v", err)
			}
			if _, _, err := svc.ReplyAsFirm(ctx, "cv_1_m1", "Done."); err != nil {
				t.Fatalf("reply: %v", err)
			}
			reopened := NewService(engine, persistence.NewAdapter(backend, "", engine.Seed))
			if err := reopened.Open(ctx); err != nil {
				t.Fatalf("reopen: %v", err)
			}
			if got := reopened.Snapshot().Convos["cv_1_m1"].MessageCount; got != 3 {
				t.Fatalf("expected reply persisted, got %d messages", got)
			}
		})
	}
}

func TestOpenBackendErrors(t *testing.T) {
	ctx := context.Background()
	restore := postgres.OverrideSQLOpen(func(string, string) (*sql.DB, error) {
		return nil, errors.New("dial refused")
	})
	t.Cleanup(restore)

	for name, cfg := range map[string]StorageConfig{
		"postgres":     {Driver: StoragePostgres, PostgresDSN: "postgres://ignored"},
		"redis url":    {Driver: StorageRedis, RedisURL: "://bad"},
		"blob driver":  {Driver: StorageBlob, Blob: blob.Config{Driver: "tape"}},
		"storage name": {Driver: "gibberish"},
	} {
		backend, err := OpenBackend(ctx, cfg)
		if err == nil || backend != nil {
			t.Fatalf("%s: expected error, got backend=%v err=%v", name, backend, err)
		}
	}
}
