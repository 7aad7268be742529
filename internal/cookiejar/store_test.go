package cookiejar

import (
	"bytes"
	"mime/multipart"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
)

func TestSaveUploadRoundTrip(t *testing.T) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("cookies", "cookies.txt")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := part.Write([]byte("# Netscape HTTP Cookie File\n")); err != nil {
		t.Fatal(err)
	}
	mw.Close()

	r := httptest.NewRequest("POST", "/ddddd/vvvvv", &body)
	r.Header.Set("Content-Type", mw.FormDataContentType())

	s := New(t.TempDir())
	path, err := s.SaveUpload(r)
	if err != nil {
		t.Fatalf("SaveUpload: %v", err)
	}
	if path == "" {
		t.Fatal("upload present but SaveUpload returned no path")
	}
	t.Cleanup(func() { os.Remove(path) })

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "# Netscape HTTP Cookie File\n" {
		t.Errorf("saved content = %q", data)
	}
}

func TestSaveUploadMissingFieldIsNotAnError(t *testing.T) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	mw.WriteField("url", "https://youtu.be/dQw4w9WgXcQ")
	mw.Close()

	r := httptest.NewRequest("POST", "/ddddd/vvvvv", &body)
	r.Header.Set("Content-Type", mw.FormDataContentType())

	s := New(t.TempDir())
	path, err := s.SaveUpload(r)
	if err != nil {
		t.Fatalf("SaveUpload: %v", err)
	}
	if path != "" {
		t.Errorf("SaveUpload returned path %q for request without upload", path)
	}
}

func TestPromoteReplacesPersistedFile(t *testing.T) {
	dataDir := t.TempDir()
	s := New(dataDir)

	if _, ok := s.Persisted(); ok {
		t.Fatal("Persisted reported a file before any promote")
	}

	upload := filepath.Join(t.TempDir(), "upload.txt")
	if err := os.WriteFile(upload, []byte("first"), 0o600); err != nil {
		t.Fatal(err)
	}
	s.Promote(upload)

	path, ok := s.Persisted()
	if !ok {
		t.Fatal("Persisted missing after promote")
	}
	if data, _ := os.ReadFile(path); string(data) != "first" {
		t.Errorf("persisted content = %q", data)
	}

	if err := os.WriteFile(upload, []byte("second"), 0o600); err != nil {
		t.Fatal(err)
	}
	s.Promote(upload)
	if data, _ := os.ReadFile(path); string(data) != "second" {
		t.Errorf("persisted content after second promote = %q", data)
	}
}

func TestPromoteMissingUploadIsSwallowed(t *testing.T) {
	s := New(t.TempDir())
	s.Promote(filepath.Join(t.TempDir(), "gone.txt"))
	s.Promote("")
	if _, ok := s.Persisted(); ok {
		t.Error("failed promote created a persisted file")
	}
}

func TestDiscard(t *testing.T) {
	upload := filepath.Join(t.TempDir(), "upload.txt")
	if err := os.WriteFile(upload, []byte("x"), 0o600); err != nil {
		t.Fatal(err)
	}
	s := New(t.TempDir())
	s.Discard(upload)
	if _, err := os.Stat(upload); !os.IsNotExist(err) {
		t.Error("Discard left the upload in place")
	}
	s.Discard(upload) // second discard is a no-op
	s.Discard("")
}
