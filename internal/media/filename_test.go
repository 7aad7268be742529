package media

import (
	"strings"
	"testing"

	"github.com/bfjia/VeryUsefulDownloadingTool/internal/domain"
)

func TestFilenameWellFormedTitleUnchanged(t *testing.T) {
	meta := &domain.Metadata{Fulltitle: "Never Gonna Give You Up"}
	got := Filename(meta, "mp4", "dQw4w9WgXcQ")
	if got != "Never Gonna Give You Up.mp4" {
		t.Errorf("Filename = %q, want title preserved", got)
	}
}

func TestFilenamePlaceholderFallsBackToURLID(t *testing.T) {
	tests := []struct {
		name string
		meta *domain.Metadata
	}{
		{"plain bang", &domain.Metadata{Fulltitle: "!"}},
		{"fullwidth bang", &domain.Metadata{Fulltitle: "！"}},
		{"double bang", &domain.Metadata{Fulltitle: "‼"}},
		{"NA", &domain.Metadata{Fulltitle: "NA"}},
		{"empty", &domain.Metadata{}},
		{"single char after stripping", &domain.Metadata{Fulltitle: "!a!"}},
		{"whitespace", &domain.Metadata{Fulltitle: "   "}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Filename(tt.meta, "mp4", "dQw4w9WgXcQ")
			if got != "dQw4w9WgXcQ.mp4" {
				t.Errorf("Filename = %q, want URL-id fallback", got)
			}
		})
	}
}

func TestFilenameNeverTrustsMetadataID(t *testing.T) {
	// The extractor sometimes reports id="!" alongside a missing title.
	meta := &domain.Metadata{Fulltitle: "!", ID: "!"}
	got := Filename(meta, "mp3", "")
	if got != "video.mp3" {
		t.Errorf("Filename = %q, want ultimate fallback", got)
	}
}

func TestFilenameNeverDegeneratesToPlaceholder(t *testing.T) {
	metas := []*domain.Metadata{
		{Fulltitle: "!"},
		{Fulltitle: "！"},
		{Fulltitle: "NA"},
		{Title: "!!"},
		nil,
	}
	for _, ext := range []string{"mp4", "mp3"} {
		for _, meta := range metas {
			got := Filename(meta, ext, "")
			for _, bad := range []string{"!." + ext, "！." + ext, "NA." + ext} {
				if got == bad {
					t.Errorf("Filename produced placeholder %q", got)
				}
			}
		}
	}
}

func TestFilenameStripsIllegalCharacters(t *testing.T) {
	meta := &domain.Metadata{Fulltitle: `a<b>c:d"e/f\g|h?i*j`}
	got := Filename(meta, "mp4", "dQw4w9WgXcQ")
	if got != "abcdefghij.mp4" {
		t.Errorf("Filename = %q, want illegal characters stripped", got)
	}
}

func TestFilenameCollapsesWhitespace(t *testing.T) {
	meta := &domain.Metadata{Fulltitle: "  deep   dive\t\tinto  go  "}
	got := Filename(meta, "mp4", "dQw4w9WgXcQ")
	if got != "deep dive into go.mp4" {
		t.Errorf("Filename = %q, want collapsed whitespace", got)
	}
}

func TestFilenameTruncatesLongTitles(t *testing.T) {
	meta := &domain.Metadata{Fulltitle: strings.Repeat("x", 500)}
	got := Filename(meta, "mp4", "dQw4w9WgXcQ")
	if got != strings.Repeat("x", 200)+".mp4" {
		t.Errorf("Filename length = %d, want 200-char stem", len(got)-4)
	}
}

func TestFilenamePrefersFulltitle(t *testing.T) {
	meta := &domain.Metadata{Fulltitle: "full title", Title: "short title"}
	if got := Filename(meta, "mp4", "dQw4w9WgXcQ"); got != "full title.mp4" {
		t.Errorf("Filename = %q, want fulltitle preferred", got)
	}
	meta = &domain.Metadata{Title: "short title"}
	if got := Filename(meta, "mp4", "dQw4w9WgXcQ"); got != "short title.mp4" {
		t.Errorf("Filename = %q, want title fallback", got)
	}
}

func TestEscapeQuoted(t *testing.T) {
	if got := EscapeQuoted(`a"b\c`); got != `a\"b\\c` {
		t.Errorf("EscapeQuoted = %q", got)
	}
}
