package s3

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"zoocore/internal/blob/core"
)

func TestMockStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := NewMockForTests()
	if store.Driver() != core.DriverS3 || store.Bucket() != "mock-bucket" {
		t.Fatalf("unexpected store %s %s", store.Driver(), store.Bucket())
	}
	info, err := store.Put(ctx, "census/a.csv", bytes.NewReader([]byte("id,type\n")), core.PutOptions{ContentType: "text/csv", Metadata: map[string]string{"source": "zoocore"}})
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	if info.Size != 8 || info.ContentType != "text/csv" || info.ETag == "" {
		t.Fatalf("unexpected info %+v", info)
	}
	if info.Metadata["source"] != "zoocore" {
		t.Fatalf("metadata not round-tripped: %+v", info.Metadata)
	}
	if _, err := store.Put(ctx, "census/a.csv", bytes.NewReader([]byte("x")), core.PutOptions{}); !errors.Is(err, core.ErrExists) {
		t.Fatalf("expected ErrExists, got %v", err)
	}
	_, rc, err := store.Get(ctx, "census/a.csv")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	body, _ := io.ReadAll(rc)
	_ = rc.Close()
	if string(body) != "id,type\n" {
		t.Fatalf("unexpected body %q", body)
	}
	if _, err := store.Put(ctx, "census/b.json", bytes.NewReader([]byte("{}")), core.PutOptions{}); err != nil {
		t.Fatalf("put second: %v", err)
	}
	if _, err := store.Put(ctx, "other/c", bytes.NewReader([]byte("c")), core.PutOptions{}); err != nil {
		t.Fatalf("put third: %v", err)
	}
	list, err := store.List(ctx, "census/")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 2 || list[0].Key != "census/a.csv" || list[1].Key != "census/b.json" || list[1].Size != 2 {
		t.Fatalf("unexpected list %+v", list)
	}
	if ok, err := store.Delete(ctx, "census/a.csv"); err != nil || !ok {
		t.Fatalf("delete: %v %v", ok, err)
	}
	if ok, err := store.Delete(ctx, "census/a.csv"); err != nil || ok {
		t.Fatalf("expected missing delete, got %v %v", ok, err)
	}
}

func TestMockStoreNotFound(t *testing.T) {
	ctx := context.Background()
	store := NewMockForTests()
	if _, err := store.Head(ctx, "missing"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected head ErrNotFound, got %v", err)
	}
	if _, _, err := store.Get(ctx, "missing"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected get ErrNotFound, got %v", err)
	}
	if _, err := store.Put(ctx, "", bytes.NewReader(nil), core.PutOptions{}); !errors.Is(err, core.ErrInvalidKey) {
		t.Fatalf("expected ErrInvalidKey, got %v", err)
	}
}

func TestPresignURL(t *testing.T) {
	ctx := context.Background()
	store := NewMockForTests()
	url, err := store.PresignURL(ctx, "census/a.csv", core.SignedURLOptions{Expiry: time.Minute})
	if err != nil {
		t.Fatalf("presign: %v", err)
	}
	if !strings.Contains(url, "mock-bucket/census/a.csv") || !strings.Contains(url, "X-Amz-Expires=60") {
		t.Fatalf("unexpected url %s", url)
	}
	if _, err := store.PresignURL(ctx, "census/a.csv", core.SignedURLOptions{Method: http.MethodPut}); !errors.Is(err, core.ErrUnsupported) {
		t.Fatalf("expected ErrUnsupported, got %v", err)
	}
}

func TestNewRequiresBucket(t *testing.T) {
	if _, err := New(context.Background(), Config{}); err == nil {
		t.Fatalf("expected missing bucket error")
	}
}

func TestDecodeAWSChunked(t *testing.T) {
	framed := []byte("5;chunk-signature=abc\r\nhello\r\n3\r\n!!!\r\n0\r\nx-amz-checksum-crc32:AAAA\r\n\r\n")
	if got := decodeAWSChunked(framed); string(got) != "hello!!!" {
		t.Fatalf("unexpected decode %q", got)
	}
}
