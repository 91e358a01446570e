package store

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"ktassist/pkg/domain"
)

func backends(t *testing.T) map[string]ActivityStore {
	t.Helper()
	gormStore, err := NewGormStore("sqlite://" + filepath.Join(t.TempDir(), "kt.db"))
	if err != nil {
		t.Fatalf("open sqlite store: %v", err)
	}
	t.Cleanup(func() { _ = gormStore.Close() })
	return map[string]ActivityStore{
		"memory": NewMemoryStore(),
		"sqlite": gormStore,
	}
}

func TestRecordLoginUpsertsByEmail(t *testing.T) {
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			first := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
			second := first.Add(2 * time.Hour)
			if err := s.RecordLogin(ctx, "alice@example.com", first); err != nil {
				t.Fatalf("first login: %v", err)
			}
			if err := s.RecordLogin(ctx, "alice@example.com", second); err != nil {
				t.Fatalf("second login: %v", err)
			}
			if err := s.RecordLogin(ctx, "bob@example.com", first.Add(time.Hour)); err != nil {
				t.Fatalf("bob login: %v", err)
			}
			logins, err := s.ListLogins(ctx)
			if err != nil {
				t.Fatalf("ListLogins: %v", err)
			}
			if len(logins) != 2 {
				t.Fatalf("expected 2 login rows, got %d", len(logins))
			}
			if logins[0].Email != "alice@example.com" || !logins[0].LoginTime.Equal(second) {
				t.Fatalf("unexpected newest login: %+v", logins[0])
			}
			if logins[0].ID == "" {
				t.Fatalf("expected login id")
			}
		})
	}
}

func TestRecordUploadAppendsNewestFirst(t *testing.T) {
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			base := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
			for i, filename := range []string{"a.txt", "b.pdf", "a.txt"} {
				err := s.RecordUpload(ctx, domain.UploadRecord{
					Email:      "alice@example.com",
					Filename:   filename,
					FilePath:   "uploads/" + filename,
					UploadTime: base.Add(time.Duration(i) * time.Minute),
					Metadata:   domain.UploadMetadata{SizeBytes: int64(10 * (i + 1)), ContentType: "text/plain"},
				})
				if err != nil {
					t.Fatalf("RecordUpload %d: %v", i, err)
				}
			}
			uploads, err := s.ListUploads(ctx)
			if err != nil {
				t.Fatalf("ListUploads: %v", err)
			}
			if len(uploads) != 3 {
				t.Fatalf("expected 3 upload rows, got %d", len(uploads))
			}
			if !uploads[0].UploadTime.Equal(base.Add(2*time.Minute)) || uploads[2].Filename != "a.txt" {
				t.Fatalf("unexpected order: %+v", uploads)
			}
			if uploads[0].Metadata.SizeBytes != 30 || uploads[0].Metadata.ContentType != "text/plain" {
				t.Fatalf("metadata not round-tripped: %+v", uploads[0].Metadata)
			}
		})
	}
}

func TestOpenSelectsBackend(t *testing.T) {
	s, err := Open("memory://")
	if err != nil {
		t.Fatalf("Open memory: %v", err)
	}
	if _, ok := s.(*MemoryStore); !ok {
		t.Fatalf("expected MemoryStore, got %T", s)
	}
	if _, err := Open(""); err == nil {
		t.Fatalf("expected error for empty dsn")
	}
	if _, err := Open("mongodb://localhost"); err == nil {
		t.Fatalf("expected error for unsupported scheme")
	}
}

func TestDialectorForMySQLAddsParseTime(t *testing.T) {
	d, pg, err := dialectorFor("mysql://kt:pw@tcp(localhost:3306)/kt")
	if err != nil || pg {
		t.Fatalf("dialectorFor mysql: %v pg=%v", err, pg)
	}
	if d.Name() != "mysql" {
		t.Fatalf("unexpected dialect %q", d.Name())
	}
	if _, pg, _ := dialectorFor("postgres://kt@localhost/kt"); !pg {
		t.Fatalf("expected postgres flag")
	}
}

func TestGormStoreLogsToConfiguredWriter(t *testing.T) {
	var logs bytes.Buffer
	s, err := NewGormStore("sqlite://"+filepath.Join(t.TempDir(), "kt.db"), WithLogWriter(&logs))
	if err != nil {
		t.Fatalf("open sqlite store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })

	if err := s.db.Migrator().DropTable(&FileUploadModel{}); err != nil {
		t.Fatalf("drop uploads table: %v", err)
	}
	if _, err := s.ListUploads(context.Background()); err == nil {
		t.Fatalf("expected error listing a dropped table")
	}
	if !strings.Contains(logs.String(), "no such table") {
		t.Fatalf("gorm log not routed to writer: %q", logs.String())
	}
}
