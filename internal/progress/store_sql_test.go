package progress_test

import (
	"context"
	"testing"
	"time"

	"github.com/lessonforge/playback/internal/db"
	"github.com/lessonforge/playback/internal/progress"
	"github.com/lessonforge/playback/internal/video"
)

func openTestDB(t *testing.T) *progress.SQLStore {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	dbh, err := db.Open(ctx, db.DriverSQLite, "file:"+t.TempDir()+"/progress.db?cache=shared&mode=rwc")
	if err != nil {
		t.Fatalf("db open: %v", err)
	}
	t.Cleanup(func() { _ = dbh.Close() })
	return progress.NewSQLStore(dbh)
}

func TestSQLStoreRoundTrip(t *testing.T) {
	store := openTestDB(t)

	if _, err := store.Get("v1"); err != progress.ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	rec := video.NewProgressRecord("v1")
	rec.CurrentTime = 123.5
	rec.Duration = 600
	rec.LastGoodOffset = 120
	rec.RecordAnswer("q1", true, 1700000000)
	if err := store.Put(rec); err != nil {
		t.Fatalf("put: %v", err)
	}

	got, err := store.Get("v1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.CurrentTime != 123.5 || got.LastGoodOffset != 120 {
		t.Fatalf("unexpected record: %+v", got)
	}
	if a, ok := got.Answers["q1"]; !ok || !a.Correct {
		t.Fatalf("expected answer q1 persisted, got %+v", got.Answers)
	}
}

func TestSQLStoreUpsert(t *testing.T) {
	store := openTestDB(t)

	rec := video.NewProgressRecord("v1")
	rec.CurrentTime = 10
	if err := store.Put(rec); err != nil {
		t.Fatalf("put: %v", err)
	}
	rec.CurrentTime = 20
	rec.Completed = true
	if err := store.Put(rec); err != nil {
		t.Fatalf("put (update): %v", err)
	}

	got, err := store.Get("v1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.CurrentTime != 20 || !got.Completed {
		t.Fatalf("expected updated record, got %+v", got)
	}
}
