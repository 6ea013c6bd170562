package archive_test

import (
	"context"
	"testing"
	"time"

	"github.com/nabbar/quicio/archive"
)

func TestObjectKeyIncludesRemoteAndTimestamp(t *testing.T) {
	evictedAt := time.Unix(0, 1700000000000000000)
	summary := archive.EvictionSummary{Remote: "203.0.113.9:4242", EvictedAt: evictedAt}

	key := archive.ObjectKey("evictions", summary)
	want := "evictions/203.0.113.9:4242-1700000000000000000.json"
	if key != want {
		t.Fatalf("ObjectKey() = %q, want %q", key, want)
	}
}

func TestNewWithStaticCredentialsAndCustomEndpoint(t *testing.T) {
	u, err := archive.New(context.Background(), archive.Options{
		Bucket:          "diagnostics",
		Prefix:          "evictions",
		Region:          "us-east-1",
		Endpoint:        "http://127.0.0.1:9000",
		AccessKeyID:     "test",
		SecretAccessKey: "test",
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if u == nil {
		t.Fatalf("expected non-nil uploader")
	}
}
