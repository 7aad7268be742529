package http

import (
	"log/slog"
	"net/http"
	"os"
	"strconv"

	"github.com/bfjia/VeryUsefulDownloadingTool/internal/infra/fs"
	"github.com/bfjia/VeryUsefulDownloadingTool/internal/media"
)

const chunkSize = 64 * 1024

// streamFile serves the file as an attachment in fixed-size chunks and
// deletes it (and its temp dir, if then empty) on every exit path: normal
// exhaustion, write failure, and client disconnect alike.
func streamFile(w http.ResponseWriter, r *http.Request, path, name string) {
	defer fs.RemoveWithDir(path)

	f, err := os.Open(path)
	if err != nil {
		writeError(w, http.StatusNotFound, "File no longer available.")
		return
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		writeError(w, http.StatusNotFound, "File no longer available.")
		return
	}

	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Disposition", `attachment; filename="`+media.EscapeQuoted(name)+`"`)
	w.Header().Set("Content-Length", strconv.FormatInt(info.Size(), 10))

	flusher, _ := w.(http.Flusher)
	buf := make([]byte, chunkSize)
	sent := int64(0)

	for {
		if r.Context().Err() != nil {
			slog.Info("Client disconnected mid-stream", "filename", name, "sent", sent)
			return
		}

		n, readErr := f.Read(buf)
		if n > 0 {
			if _, writeErr := w.Write(buf[:n]); writeErr != nil {
				slog.Info("Stream aborted", "filename", name, "sent", sent, "error", writeErr)
				return
			}
			sent += int64(n)
			if flusher != nil {
				flusher.Flush()
			}
		}
		if readErr != nil {
			return
		}
	}
}
