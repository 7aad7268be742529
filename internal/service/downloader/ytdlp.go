// Package downloader wraps the yt-dlp extraction tool.
package downloader

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/bfjia/VeryUsefulDownloadingTool/internal/domain"
)

// ErrDownloadFailed is the single failure the caller sees. Every underlying
// cause - network, geo-block, age-gate, missing credential, unsupported
// format - collapses to it; the category is kept for logs only so nothing
// about the upstream host leaks to clients.
var ErrDownloadFailed = errors.New("download failed")

// Internal failure categories, logged but never surfaced.
const (
	categoryTimeout     = "timeout"
	categoryCanceled    = "canceled"
	categoryUnavailable = "unavailable"
	categoryNoOutput    = "no_output"
	categoryOther       = "error"
)

// Config holds the extraction tool configuration.
type Config struct {
	TempDir    string        // Root for per-request output directories
	Timeout    time.Duration // Maximum time for one extraction
	YtDlpPath  string        // Path to yt-dlp binary
	FFmpegPath string        // Path to ffmpeg binary (optional)
}

// DefaultConfig returns the default extraction configuration.
func DefaultConfig() *Config {
	return &Config{
		TempDir:   "./tmp",
		Timeout:   10 * time.Minute,
		YtDlpPath: "yt-dlp",
	}
}

// Request describes one extraction.
type Request struct {
	URL           string
	AudioOnly     bool   // MP3 via transcode instead of MP4
	CookieFile    string // Optional credential file path
	PlaylistFirst bool   // Restrict a playlist URL to its first entry
}

// Result is a materialized file plus the extractor's metadata.
type Result struct {
	Path string
	Meta *domain.Metadata
}

// Downloader invokes yt-dlp with the gateway's constraints.
type Downloader struct {
	config *Config
}

// New creates a Downloader with the given configuration.
func New(config *Config) *Downloader {
	if config == nil {
		config = DefaultConfig()
	}
	return &Downloader{config: config}
}

// Fetch runs one extraction into a fresh per-request temp directory and
// returns the downloaded file. The file and its directory belong to the
// caller; on failure the directory is removed here.
func (d *Downloader) Fetch(ctx context.Context, req Request) (*Result, error) {
	ctx, cancel := context.WithTimeout(ctx, d.config.Timeout)
	defer cancel()

	if err := os.MkdirAll(d.config.TempDir, 0o755); err != nil {
		slog.Error("Failed to create temp root", "dir", d.config.TempDir, "error", err)
		return nil, ErrDownloadFailed
	}

	outDir := filepath.Join(d.config.TempDir, "ytdl_"+uuid.NewString())
	if err := os.Mkdir(outDir, 0o755); err != nil {
		slog.Error("Failed to create output dir", "dir", outDir, "error", err)
		return nil, ErrDownloadFailed
	}

	outputTemplate := filepath.Join(outDir, "out.%(ext)s")
	args := d.buildArgs(req, outputTemplate)

	cmd := exec.CommandContext(ctx, d.config.YtDlpPath, args...)
	var stderr strings.Builder
	cmd.Stderr = &stderr

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		os.RemoveAll(outDir)
		slog.Error("Failed to create stdout pipe", "error", err)
		return nil, ErrDownloadFailed
	}

	if err := cmd.Start(); err != nil {
		os.RemoveAll(outDir)
		slog.Error("Failed to start yt-dlp", "error", err)
		return nil, ErrDownloadFailed
	}

	meta := scanMetadata(stdout)

	if err := cmd.Wait(); err != nil {
		os.RemoveAll(outDir)
		category := categorize(ctx, stderr.String())
		slog.Error("Extraction failed",
			"url", req.URL,
			"category", category,
			"error", err,
			"stderr", truncate(stderr.String(), 500),
		)
		return nil, ErrDownloadFailed
	}

	path, err := findOutput(outDir)
	if err != nil {
		os.RemoveAll(outDir)
		slog.Error("Extraction produced no file", "url", req.URL, "category", categoryNoOutput)
		return nil, ErrDownloadFailed
	}

	return &Result{Path: path, Meta: meta}, nil
}

// Check verifies that yt-dlp is installed and accessible.
func (d *Downloader) Check() error {
	cmd := exec.Command(d.config.YtDlpPath, "--version")
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("yt-dlp not found or not executable: %w", err)
	}
	return nil
}

// buildArgs constructs the yt-dlp command arguments for a request.
func (d *Downloader) buildArgs(req Request, outputTemplate string) []string {
	args := []string{
		"--no-warnings",
		"--print-json",
		"--no-cache-dir",
		"--socket-timeout", "30",
		"--retries", "3",
		"-o", outputTemplate,
	}

	if req.PlaylistFirst {
		args = append(args, "--playlist-items", "1")
	} else {
		args = append(args, "--no-playlist")
	}

	if req.CookieFile != "" {
		args = append(args, "--cookies", req.CookieFile)
	}

	if req.AudioOnly {
		args = append(args,
			"-f", "bestaudio/best",
			"-x",
			"--audio-format", "mp3",
			"--audio-quality", "192K",
		)
	} else {
		args = append(args,
			"-f", "bestvideo[ext=mp4]+bestaudio[ext=m4a]/best[ext=mp4]/best",
			"--merge-output-format", "mp4",
		)
	}

	if d.config.FFmpegPath != "" {
		args = append([]string{"--ffmpeg-location", d.config.FFmpegPath}, args...)
	}

	return append(args, req.URL)
}

// scanMetadata reads stdout line by line and keeps the first JSON object,
// which --print-json emits once per downloaded entry.
func scanMetadata(r io.Reader) *domain.Metadata {
	var meta *domain.Metadata
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if meta != nil || !strings.HasPrefix(line, "{") {
			continue
		}
		var m domain.Metadata
		if err := json.Unmarshal([]byte(line), &m); err == nil {
			meta = &m
		}
	}
	return meta
}

// findOutput returns the single file yt-dlp left in the output directory.
func findOutput(dir string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", err
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		// Skip partial artifacts left by an interrupted merge.
		if strings.HasSuffix(entry.Name(), ".part") || strings.HasSuffix(entry.Name(), ".ytdl") {
			continue
		}
		return filepath.Join(dir, entry.Name()), nil
	}
	return "", errors.New("no output file")
}

func categorize(ctx context.Context, stderr string) string {
	switch {
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		return categoryTimeout
	case errors.Is(ctx.Err(), context.Canceled):
		return categoryCanceled
	case strings.Contains(stderr, "Video unavailable"),
		strings.Contains(stderr, "Private video"),
		strings.Contains(stderr, "Sign in to confirm"):
		return categoryUnavailable
	default:
		return categoryOther
	}
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
