package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/bfjia/VeryUsefulDownloadingTool/internal/domain"
)

func newRepo(t *testing.T) *Repository {
	t.Helper()
	repo, err := NewRepository(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func TestRecordAndRecent(t *testing.T) {
	repo := newRepo(t)
	ctx := context.Background()

	first := domain.NewRecord("a1", "https://www.youtube.com/watch?v=dQw4w9WgXcQ", domain.KindVideo)
	first.MarkDone("clip.mp4")
	first.CreatedAt = time.Now().UTC().Add(-time.Minute)
	if err := repo.Record(ctx, first); err != nil {
		t.Fatalf("Record: %v", err)
	}

	second := domain.NewRecord("a2", "https://youtu.be/abc_DEF-123", domain.KindAudio)
	second.MarkError("timeout")
	if err := repo.Record(ctx, second); err != nil {
		t.Fatalf("Record: %v", err)
	}

	recs, err := repo.Recent(ctx, 10)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(recs) != 2 {
		t.Fatalf("got %d records, want 2", len(recs))
	}
	if recs[0].ID != "a2" {
		t.Errorf("newest first: got %q", recs[0].ID)
	}
	if recs[0].Status != domain.RecordStatusError || recs[0].Error != "timeout" {
		t.Errorf("error record = %+v", recs[0])
	}
	if recs[1].Filename != "clip.mp4" || recs[1].Kind != domain.KindVideo {
		t.Errorf("done record = %+v", recs[1])
	}
}

func TestRecentLimit(t *testing.T) {
	repo := newRepo(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		rec := domain.NewRecord(string(rune('a'+i)), "u", domain.KindVideo)
		rec.MarkDone("f.mp4")
		if err := repo.Record(ctx, rec); err != nil {
			t.Fatal(err)
		}
	}

	recs, err := repo.Recent(ctx, 3)
	if err != nil {
		t.Fatal(err)
	}
	if len(recs) != 3 {
		t.Errorf("got %d records, want 3", len(recs))
	}
}

func TestCountByStatus(t *testing.T) {
	repo := newRepo(t)
	ctx := context.Background()

	done := domain.NewRecord("d1", "u", domain.KindVideo)
	done.MarkDone("f.mp4")
	failed := domain.NewRecord("e1", "u", domain.KindAudio)
	failed.MarkError("error")
	for _, rec := range []*domain.DownloadRecord{done, failed} {
		if err := repo.Record(ctx, rec); err != nil {
			t.Fatal(err)
		}
	}

	n, err := repo.CountByStatus(ctx, domain.RecordStatusDone)
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("done count = %d, want 1", n)
	}
}

func TestDeleteOlderThan(t *testing.T) {
	repo := newRepo(t)
	ctx := context.Background()

	old := domain.NewRecord("old", "u", domain.KindVideo)
	old.MarkDone("f.mp4")
	old.CreatedAt = time.Now().UTC().Add(-48 * time.Hour)
	fresh := domain.NewRecord("fresh", "u", domain.KindVideo)
	fresh.MarkDone("f.mp4")
	for _, rec := range []*domain.DownloadRecord{old, fresh} {
		if err := repo.Record(ctx, rec); err != nil {
			t.Fatal(err)
		}
	}

	deleted, err := repo.DeleteOlderThan(ctx, 24*time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	if deleted != 1 {
		t.Errorf("deleted = %d, want 1", deleted)
	}
}
