// Package urlcheck classifies and canonicalizes YouTube URLs.
package urlcheck

import (
	"errors"
	"regexp"
	"strings"
)

// Validation errors carry the exact user-facing messages.
var (
	ErrEmptyURL   = errors.New("Please enter a URL.")
	ErrNotYouTube = errors.New("Please enter a valid YouTube URL.")
)

var (
	// Single-video forms: watch?v=, youtu.be/ and shorts/ with an 11-char id.
	watchRe = regexp.MustCompile(`(?i)(?:youtube\.com/watch\?.*\bv=([a-zA-Z0-9_-]{11})|youtu\.be/([a-zA-Z0-9_-]{11})|youtube\.com/shorts/([a-zA-Z0-9_-]{11}))`)

	playlistRe = regexp.MustCompile(`(?i)youtube\.com/playlist\?.*\blist=`)

	// Any recognized YouTube URL shape (watch, short, playlist).
	validRe = regexp.MustCompile(`(?i)youtube\.com/(?:watch\?|shorts/)|youtu\.be/|youtube\.com/playlist\?`)
)

// Prepare validates a raw URL and returns the URL the extractor should be
// given. Single-video and short URLs are canonicalized to the watch form
// carrying only the video id; decorated URLs (tracking params, timestamps,
// playlist context) confuse the extractor. Playlist URLs pass through
// unchanged and the caller must restrict extraction to the first entry.
func Prepare(raw string) (url string, isPlaylist bool, err error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", false, ErrEmptyURL
	}
	if !validRe.MatchString(raw) {
		return "", false, ErrNotYouTube
	}
	if playlistRe.MatchString(raw) {
		return raw, true, nil
	}
	if id := matchVideoID(raw); id != "" {
		return "https://www.youtube.com/watch?v=" + id, false, nil
	}
	return raw, false, nil
}

// VideoID extracts the 11-char video id from a URL, or "" if none matches.
func VideoID(raw string) string {
	return matchVideoID(strings.TrimSpace(raw))
}

func matchVideoID(s string) string {
	m := watchRe.FindStringSubmatch(s)
	if m == nil {
		return ""
	}
	for _, g := range m[1:] {
		if g != "" {
			return g
		}
	}
	return ""
}
