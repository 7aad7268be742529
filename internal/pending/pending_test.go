package pending

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func tempDownload(t *testing.T) string {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "ytdl_test")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(dir, "out.mp4")
	if err := os.WriteFile(path, []byte("video bytes"), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestCreateConsumeRoundTrip(t *testing.T) {
	s := New(time.Hour, time.Hour)
	path := tempDownload(t)

	token, err := s.Create(path, "clip.mp4")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if token == "" {
		t.Fatal("empty token")
	}

	entry, ok := s.Consume(token)
	if !ok {
		t.Fatal("Consume missed a live token")
	}
	if entry.Path != path || entry.Filename != "clip.mp4" {
		t.Errorf("Consume returned %+v", entry)
	}

	// Consuming must not delete the file; the caller streams it.
	if _, err := os.Stat(path); err != nil {
		t.Errorf("file removed on consume: %v", err)
	}
}

func TestConsumeIsSingleUse(t *testing.T) {
	s := New(time.Hour, time.Hour)
	token, err := s.Create(tempDownload(t), "clip.mp4")
	if err != nil {
		t.Fatal(err)
	}

	if _, ok := s.Consume(token); !ok {
		t.Fatal("first consume missed")
	}
	if _, ok := s.Consume(token); ok {
		t.Fatal("second consume of the same token succeeded")
	}
}

func TestConsumeUnknownToken(t *testing.T) {
	s := New(time.Hour, time.Hour)
	if _, ok := s.Consume("no-such-token"); ok {
		t.Fatal("unknown token consumed")
	}
}

func TestTokensAreUnique(t *testing.T) {
	s := New(time.Hour, time.Hour)
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		token, err := s.Create("/tmp/x", "x.mp4")
		if err != nil {
			t.Fatal(err)
		}
		if seen[token] {
			t.Fatalf("token %q repeated", token)
		}
		seen[token] = true
	}
}

func TestExpiredEntryDeletesBackingFile(t *testing.T) {
	s := New(20*time.Millisecond, 10*time.Millisecond)
	path := tempDownload(t)
	dir := filepath.Dir(path)

	token, err := s.Create(path, "clip.mp4")
	if err != nil {
		t.Fatal(err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if _, err := os.Stat(path); os.IsNotExist(err) {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}

	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatal("expired entry did not delete its file")
	}
	if _, err := os.Stat(dir); !os.IsNotExist(err) {
		t.Error("expired entry did not remove its temp dir")
	}
	if _, ok := s.Consume(token); ok {
		t.Error("expired token still consumable")
	}
}
