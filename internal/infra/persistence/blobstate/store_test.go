package blobstate

import (
	"context"
	"testing"

	"linkbox/internal/blob"
)

func TestStoreOverBlobDrivers(t *testing.T) {
	fsStore, err := blob.NewFilesystem(t.TempDir())
	if err != nil {
		t.Fatalf("filesystem: %v", err)
	}
	drivers := map[string]blob.Store{
		"memory": blob.NewMemory(),
		"fs":     fsStore,
		"s3":     blob.NewMockS3ForTests(),
	}
	for name, blobs := range drivers {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			s := New(blobs, "")
			if _, ok, err := s.Get(ctx, "linkbox-store"); err != nil || ok {
				t.Fatalf("expected absent payload, ok=%v err=%v", ok, err)
			}
			for _, payload := range []string{`{"v":1}`, `{"v":2}`} {
				if err := s.Put(ctx, "linkbox-store", []byte(payload)); err != nil {
					t.Fatalf("put: %v", err)
				}
			}
			got, ok, err := s.Get(ctx, "linkbox-store")
			if err != nil || !ok || string(got) != `{"v":2}` {
				t.Fatalf("unexpected payload %q ok=%v err=%v", got, ok, err)
			}
			info, err := blobs.Head(ctx, "state/linkbox-store")
			if err != nil || info.ContentType != contentType {
				t.Fatalf("expected json object under prefix, got %+v err=%v", info, err)
			}
			if err := s.Delete(ctx, "linkbox-store"); err != nil {
				t.Fatalf("delete: %v", err)
			}
			if err := s.Delete(ctx, "linkbox-store"); err != nil {
				t.Fatalf("delete absent: %v", err)
			}
			if _, ok, _ := s.Get(ctx, "linkbox-store"); ok {
				t.Fatalf("expected payload removed")
			}
		})
	}
}
