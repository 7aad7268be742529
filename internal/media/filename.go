// Package media derives safe download filenames from extraction metadata.
package media

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/bfjia/VeryUsefulDownloadingTool/internal/domain"
)

const maxNameLen = 200

// Characters illegal on common filesystems, plus control characters.
var illegalRe = regexp.MustCompile("[<>:\"/\\\\|?*\\x00-\\x1f]")

var spaceRe = regexp.MustCompile(`\s+`)

// Unicode exclamation-mark homoglyphs the extractor substitutes for missing
// titles: plain !, full-width ！, latin click ǃ, double ‼.
var bangVariants = []string{"!", "！", "ǃ", "‼"}

// Filename builds a download filename from extraction metadata, preferring
// the full title, then the title, then the id parsed from the original URL.
// The metadata id field is deliberately ignored as a fallback: it is known to
// contain a literal "!" when title resolution fails. The result is never a
// bare placeholder; with no usable title or id it degrades to "video.<ext>".
func Filename(meta *domain.Metadata, ext, urlID string) string {
	id := strings.TrimSpace(urlID)
	if len(id) < 5 && meta != nil {
		id = strings.TrimSpace(meta.ID)
	}
	if id == "" || id == "!" || len(id) < 5 {
		id = "video"
	}

	if meta == nil {
		return id + "." + ext
	}

	raw := strings.TrimSpace(meta.Fulltitle)
	if raw == "" {
		raw = strings.TrimSpace(meta.Title)
	}
	for _, bang := range bangVariants {
		raw = strings.ReplaceAll(raw, bang, "")
	}
	raw = collapse(raw)
	if raw == "" || raw == "NA" || utf8.RuneCountInString(raw) <= 1 {
		return id + "." + ext
	}

	safe := collapse(illegalRe.ReplaceAllString(raw, ""))
	safe = truncateRunes(safe, maxNameLen)
	if safe == "" || safe == "!" || safe == "！" || safe == "NA" {
		return id + "." + ext
	}
	if strings.HasPrefix(safe, "!") || strings.HasPrefix(safe, "！") {
		return id + "." + ext
	}
	return safe + "." + ext
}

// EscapeQuoted makes a name safe inside a quoted Content-Disposition value.
func EscapeQuoted(name string) string {
	name = strings.ReplaceAll(name, `\`, `\\`)
	return strings.ReplaceAll(name, `"`, `\"`)
}

func collapse(s string) string {
	return strings.TrimSpace(spaceRe.ReplaceAllString(s, " "))
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return strings.TrimSpace(string(runes[:n]))
}
