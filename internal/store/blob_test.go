package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/warepix/warepix/internal/domain"
)

func newTestBlobStore(t *testing.T) (*BlobStore, *Conn) {
	t.Helper()
	conn := NewConn(filepath.Join(t.TempDir(), "images.db"))
	if err := conn.Open(); err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return NewBlobStore(conn), conn
}

func TestPutGetRoundTrip(t *testing.T) {
	blobs, _ := newTestBlobStore(t)
	ctx := context.Background()

	if err := blobs.Put(ctx, "A1", "S1", "data:image/jpeg;base64,payload"); err != nil {
		t.Fatalf("put: %v", err)
	}

	rec, err := blobs.Get(ctx, "A1", "S1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if rec == nil {
		t.Fatal("expected record, got absent")
	}
	if rec.File != "data:image/jpeg;base64,payload" {
		t.Fatalf("payload mismatch: %q", rec.File)
	}
	if rec.ID != "A1_S1" || rec.Code != "A1" || rec.Supplier != "S1" {
		t.Fatalf("identity mismatch: %+v", rec)
	}
}

func TestGetAbsentIsNotAnError(t *testing.T) {
	blobs, _ := newTestBlobStore(t)

	rec, err := blobs.Get(context.Background(), "missing", "")
	if err != nil {
		t.Fatalf("get absent: %v", err)
	}
	if rec != nil {
		t.Fatalf("expected absent, got %+v", rec)
	}
}

func TestCompositeKeyDiscriminatesSupplier(t *testing.T) {
	blobs, _ := newTestBlobStore(t)
	ctx := context.Background()

	if err := blobs.Put(ctx, "A1", "S1", "img1"); err != nil {
		t.Fatal(err)
	}
	if err := blobs.Put(ctx, "A1", "S2", "img2"); err != nil {
		t.Fatal(err)
	}

	r1, _ := blobs.Get(ctx, "A1", "S1")
	r2, _ := blobs.Get(ctx, "A1", "S2")
	if r1 == nil || r2 == nil {
		t.Fatal("both suppliers must be retrievable independently")
	}
	if r1.File != "img1" || r2.File != "img2" {
		t.Fatalf("payloads crossed: %q %q", r1.File, r2.File)
	}
}

func TestPutUpsertsByKey(t *testing.T) {
	blobs, _ := newTestBlobStore(t)
	ctx := context.Background()

	if err := blobs.Put(ctx, "A1", "S1", "old"); err != nil {
		t.Fatal(err)
	}
	if err := blobs.Put(ctx, "A1", "S1", "new"); err != nil {
		t.Fatal(err)
	}

	n, err := blobs.Count(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Fatalf("upsert duplicated the record: count=%d", n)
	}
	rec, _ := blobs.Get(ctx, "A1", "S1")
	if rec.File != "new" {
		t.Fatalf("upsert did not overwrite: %q", rec.File)
	}
}

func TestDeleteIsIdempotent(t *testing.T) {
	blobs, _ := newTestBlobStore(t)
	ctx := context.Background()

	if err := blobs.Put(ctx, "A1", "S1", "img"); err != nil {
		t.Fatal(err)
	}
	if err := blobs.Delete(ctx, "nope_"); err != nil {
		t.Fatalf("deleting a missing key must not fail: %v", err)
	}
	n, _ := blobs.Count(ctx)
	if n != 1 {
		t.Fatalf("store changed by no-op delete: count=%d", n)
	}

	if err := blobs.Delete(ctx, "A1_S1"); err != nil {
		t.Fatal(err)
	}
	if err := blobs.Delete(ctx, "A1_S1"); err != nil {
		t.Fatalf("second delete must stay silent: %v", err)
	}
	rec, _ := blobs.Get(ctx, "A1", "S1")
	if rec != nil {
		t.Fatal("record survived delete")
	}
}

func TestRekey(t *testing.T) {
	blobs, _ := newTestBlobStore(t)
	ctx := context.Background()

	// absent source is a no-op
	if err := blobs.Rekey(ctx, "ghost", "", "A9", "S9"); err != nil {
		t.Fatalf("rekey of absent source must be a no-op: %v", err)
	}

	if err := blobs.Put(ctx, "A1", "S1", "payload"); err != nil {
		t.Fatal(err)
	}
	if err := blobs.Rekey(ctx, "A1", "S1", "B2", "S2"); err != nil {
		t.Fatalf("rekey: %v", err)
	}

	old, _ := blobs.Get(ctx, "A1", "S1")
	if old != nil {
		t.Fatal("old key still resolves after rekey")
	}
	moved, _ := blobs.Get(ctx, "B2", "S2")
	if moved == nil {
		t.Fatal("new key absent after rekey")
	}
	if moved.File != "payload" {
		t.Fatalf("payload changed by rekey: %q", moved.File)
	}
	if moved.Code != "B2" || moved.Supplier != "S2" {
		t.Fatalf("identity fields not rewritten: %+v", moved)
	}
}

func TestListByCodeFollowsIndex(t *testing.T) {
	blobs, _ := newTestBlobStore(t)
	ctx := context.Background()

	for _, supplier := range []string{"", "S1", "S2"} {
		if err := blobs.Put(ctx, "A1", supplier, "img-"+supplier); err != nil {
			t.Fatal(err)
		}
	}
	if err := blobs.Put(ctx, "Z9", "S1", "other"); err != nil {
		t.Fatal(err)
	}

	records, err := blobs.ListByCode(ctx, "A1")
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 3 {
		t.Fatalf("expected 3 records for code A1, got %d", len(records))
	}

	// index entries must follow a rekey
	if err := blobs.Rekey(ctx, "A1", "S1", "B2", "S1"); err != nil {
		t.Fatal(err)
	}
	records, _ = blobs.ListByCode(ctx, "A1")
	if len(records) != 2 {
		t.Fatalf("stale index after rekey: got %d records", len(records))
	}
	records, _ = blobs.ListByCode(ctx, "B2")
	if len(records) != 1 {
		t.Fatalf("missing index entry after rekey: got %d records", len(records))
	}
}

func TestClearRemovesEverything(t *testing.T) {
	blobs, _ := newTestBlobStore(t)
	ctx := context.Background()

	for _, code := range []string{"A", "B", "C"} {
		if err := blobs.Put(ctx, code, "S", "img"); err != nil {
			t.Fatal(err)
		}
	}
	if err := blobs.Clear(ctx); err != nil {
		t.Fatalf("clear: %v", err)
	}
	n, _ := blobs.Count(ctx)
	if n != 0 {
		t.Fatalf("store not empty after clear: %d", n)
	}
	records, _ := blobs.ListByCode(ctx, "A")
	if len(records) != 0 {
		t.Fatal("index survived clear")
	}
}

func TestReopenOnBrokenConnection(t *testing.T) {
	blobs, conn := newTestBlobStore(t)
	ctx := context.Background()

	if err := blobs.Put(ctx, "A1", "S1", "img"); err != nil {
		t.Fatal(err)
	}

	// Simulate the host closing the handle. The next operation must
	// transparently reopen instead of surfacing a connection error.
	if err := conn.Close(); err != nil {
		t.Fatal(err)
	}

	rec, err := blobs.Get(ctx, "A1", "S1")
	if err != nil {
		t.Fatalf("operation after close must reconnect: %v", err)
	}
	if rec == nil || rec.File != "img" {
		t.Fatalf("data lost across reconnect: %+v", rec)
	}
}

func TestOpenNeverDestroysData(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "images.db")
	ctx := context.Background()

	conn := NewConn(path)
	if err := conn.Open(); err != nil {
		t.Fatal(err)
	}
	blobs := NewBlobStore(conn)
	if err := blobs.Put(ctx, "A1", "S1", "img"); err != nil {
		t.Fatal(err)
	}
	if err := conn.Close(); err != nil {
		t.Fatal(err)
	}

	conn2 := NewConn(path)
	if err := conn2.Open(); err != nil {
		t.Fatal(err)
	}
	defer conn2.Close()
	rec, err := NewBlobStore(conn2).Get(ctx, "A1", "S1")
	if err != nil {
		t.Fatal(err)
	}
	if rec == nil || rec.File != "img" {
		t.Fatal("schema initialization destroyed existing data")
	}
}

func TestConnectionErrorKind(t *testing.T) {
	// an unopenable path must surface a ConnectionError
	conn := NewConn(filepath.Join(t.TempDir(), "missing", "deep", "images.db"))
	err := conn.Open()
	if err == nil {
		t.Fatal("expected open failure")
	}
	if !domain.IsConnectionError(err) {
		t.Fatalf("expected ConnectionError, got %v", err)
	}
}
