package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"linkbox/internal/blob"
	"linkbox/internal/core"
)

func withoutDefaultPaths(t *testing.T) {
	t.Helper()
	prev := DefaultPaths
	DefaultPaths = nil
	t.Cleanup(func() { DefaultPaths = prev })
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "linkbox.toml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	withoutDefaultPaths(t)
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Storage.Driver != "sqlite" || cfg.Storage.Key != "linkbox-store" {
		t.Fatalf("unexpected storage defaults: %+v", cfg.Storage)
	}
	if cfg.Log.Level != "info" || cfg.Log.Format != "json" {
		t.Fatalf("unexpected log defaults: %+v", cfg.Log)
	}
	if cfg.Policy.StrictAffinity || cfg.Metrics.Enabled {
		t.Fatalf("policies should default off: %+v %+v", cfg.Policy, cfg.Metrics)
	}
	sc := cfg.StorageConfig()
	if sc.Driver != core.StorageSQLite || sc.SQLitePath != "linkbox.db" {
		t.Fatalf("unexpected storage config: %+v", sc)
	}
	if sc.Blob.Driver != blob.DriverFilesystem || sc.Blob.S3.Region != "us-east-1" {
		t.Fatalf("unexpected blob config: %+v", sc.Blob)
	}
}

func TestLoadFileThenEnvironment(t *testing.T) {
	withoutDefaultPaths(t)
	path := writeConfig(t, `
[storage]
driver = "blob"
key = "team-store"

[blob]
driver = "s3"
prefix = "snapshots/"

[s3]
bucket = "linkbox"
endpoint = "http://localhost:9000"
pathstyle = true

[log]
level = "debug"
`)
	t.Setenv("LINKBOX_LOG_FORMAT", "console")
	t.Setenv("LINKBOX_S3_BUCKET", "linkbox-prod")
	t.Setenv("LINKBOX_POLICY_STRICTAFFINITY", "true")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Storage.Driver != "blob" || cfg.Storage.Key != "team-store" {
		t.Fatalf("file values not applied: %+v", cfg.Storage)
	}
	if cfg.Log.Level != "debug" || cfg.Log.Format != "console" {
		t.Fatalf("unexpected log section: %+v", cfg.Log)
	}
	if !cfg.Policy.StrictAffinity {
		t.Fatal("expected env to enable strict affinity")
	}
	sc := cfg.StorageConfig()
	if sc.Driver != core.StorageBlob || sc.BlobPrefix != "snapshots/" {
		t.Fatalf("unexpected storage config: %+v", sc)
	}
	want := blob.S3Config{Region: "us-east-1", Bucket: "linkbox-prod", Endpoint: "http://localhost:9000", PathStyle: true}
	if sc.Blob.Driver != blob.DriverS3 || sc.Blob.S3 != want {
		t.Fatalf("s3 config = %+v, want %+v", sc.Blob.S3, want)
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	withoutDefaultPaths(t)
	cases := []struct {
		name string
		env  map[string]string
		want string
	}{
		{"storage driver", map[string]string{"LINKBOX_STORAGE_DRIVER": "tape"}, "storage.driver must be one of"},
		{"blob driver", map[string]string{"LINKBOX_BLOB_DRIVER": "ftp"}, "blob.driver must be one of"},
		{"log level", map[string]string{"LINKBOX_LOG_LEVEL": "loud"}, "log.level must be one of"},
		{"log format", map[string]string{"LINKBOX_LOG_FORMAT": "xml"}, "log.format must be one of"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			for k, v := range tc.env {
				t.Setenv(k, v)
			}
			_, err := Load("")
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected %q error, got %v", tc.want, err)
			}
		})
	}
}

func TestLoadFileErrors(t *testing.T) {
	withoutDefaultPaths(t)
	if _, err := Load(filepath.Join(t.TempDir(), "missing.toml")); err == nil {
		t.Fatal("expected error for missing explicit config")
	}
	bad := writeConfig(t, "[storage\ndriver = ")
	if _, err := Load(bad); err == nil || !strings.Contains(err.Error(), "load config") {
		t.Fatalf("expected parse error, got %v", err)
	}
}

func TestLoadPicksUpDefaultPath(t *testing.T) {
	path := writeConfig(t, "[storage]\ndriver = \"memory\"\n")
	prev := DefaultPaths
	DefaultPaths = []string{filepath.Join(t.TempDir(), "absent.toml"), path}
	t.Cleanup(func() { DefaultPaths = prev })

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Storage.Driver != "memory" {
		t.Fatalf("expected default path to be read, got %q", cfg.Storage.Driver)
	}
}

func TestValidateMissingKey(t *testing.T) {
	withoutDefaultPaths(t)
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	cfg.Storage.Key = ""
	if err := cfg.Validate(); err == nil || !strings.Contains(err.Error(), "storage.key is required") {
		t.Fatalf("expected required error, got %v", err)
	}
}
