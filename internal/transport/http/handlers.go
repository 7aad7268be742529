// Package http provides HTTP handlers and router configuration.
package http

import (
	"context"
	"embed"
	"encoding/json"
	"html/template"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/bfjia/VeryUsefulDownloadingTool/internal/auth"
	"github.com/bfjia/VeryUsefulDownloadingTool/internal/config"
	"github.com/bfjia/VeryUsefulDownloadingTool/internal/cookiejar"
	"github.com/bfjia/VeryUsefulDownloadingTool/internal/domain"
	"github.com/bfjia/VeryUsefulDownloadingTool/internal/infra/fs"
	"github.com/bfjia/VeryUsefulDownloadingTool/internal/media"
	"github.com/bfjia/VeryUsefulDownloadingTool/internal/pending"
	"github.com/bfjia/VeryUsefulDownloadingTool/internal/service/downloader"
	"github.com/bfjia/VeryUsefulDownloadingTool/internal/transport/http/middleware"
	"github.com/bfjia/VeryUsefulDownloadingTool/internal/urlcheck"
)

//go:embed templates/*.html
var templateFS embed.FS

var templates = template.Must(template.ParseFS(templateFS, "templates/*.html"))

// downloadFailedMsg is the single message covering every extraction failure.
const downloadFailedMsg = "Download failed. Check the URL and try again."

// Extractor is the extraction collaborator the handlers depend on.
type Extractor interface {
	Fetch(ctx context.Context, req downloader.Request) (*downloader.Result, error)
}

// History records download attempts; failures here never affect a request.
type History interface {
	Record(ctx context.Context, rec *domain.DownloadRecord) error
}

// Handlers contains all HTTP handlers and their dependencies.
type Handlers struct {
	cfg     *config.Config
	gate    *auth.Gate
	cookies *cookiejar.Store
	pending *pending.Store
	dl      Extractor
	history History
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(cfg *config.Config, gate *auth.Gate, cookies *cookiejar.Store, pend *pending.Store, dl Extractor, history History) *Handlers {
	return &Handlers{
		cfg:     cfg,
		gate:    gate,
		cookies: cookies,
		pending: pend,
		dl:      dl,
		history: history,
	}
}

// Index handles GET /.
func (h *Handlers) Index(w http.ResponseWriter, r *http.Request) {
	h.render(w, "index.html", nil)
}

// LoginPage handles GET /login.
func (h *Handlers) LoginPage(w http.ResponseWriter, r *http.Request) {
	if h.gate.Sessions().Authenticated(r) {
		http.Redirect(w, r, "/", http.StatusFound)
		return
	}
	h.render(w, "login.html", map[string]string{"Next": r.URL.Query().Get("next")})
}

// Login handles POST /login.
func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	password := r.FormValue("password")
	if !h.gate.Verify(password) {
		slog.Warn("Failed login attempt", "ip", middleware.ClientIP(r))
		w.WriteHeader(http.StatusUnauthorized)
		h.render(w, "login.html", map[string]string{
			"Error": "Invalid password.",
			"Next":  r.URL.Query().Get("next"),
		})
		return
	}

	if err := h.gate.Sessions().Issue(w); err != nil {
		slog.Error("Failed to issue session", "error", err)
		writeError(w, http.StatusInternalServerError, "Login failed.")
		return
	}

	slog.Info("Login succeeded", "ip", middleware.ClientIP(r))
	http.Redirect(w, r, safeNext(r.URL.Query().Get("next")), http.StatusFound)
}

// Logout handles POST /logout.
func (h *Handlers) Logout(w http.ResponseWriter, r *http.Request) {
	h.gate.Sessions().Clear(w)
	http.Redirect(w, r, auth.LoginPath, http.StatusFound)
}

// DownloadVideo handles POST /ddddd/vvvvv.
func (h *Handlers) DownloadVideo(w http.ResponseWriter, r *http.Request) {
	h.handleDownload(w, r, domain.KindVideo)
}

// DownloadAudio handles POST /ddddd/aaaaa.
func (h *Handlers) DownloadAudio(w http.ResponseWriter, r *http.Request) {
	h.handleDownload(w, r, domain.KindAudio)
}

func (h *Handlers) handleDownload(w http.ResponseWriter, r *http.Request, kind domain.MediaKind) {
	// The body carries at most a short URL form plus the cookie upload.
	r.Body = http.MaxBytesReader(w, r.Body, h.cfg.MaxUploadBytes+(64<<10))

	rawURL := r.FormValue("url")
	prepared, isPlaylist, err := urlcheck.Prepare(rawURL)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	// An uploaded credential takes precedence over the persisted one for
	// this request; it is promoted to the shared file only on success and
	// its temp copy is always discarded.
	upload, err := h.cookies.SaveUpload(r)
	if err != nil {
		slog.Warn("Cookie upload rejected", "error", err)
		writeError(w, http.StatusBadRequest, "Cookie file upload failed.")
		return
	}
	defer h.cookies.Discard(upload)

	cookieFile := upload
	if cookieFile == "" {
		if persisted, ok := h.cookies.Persisted(); ok {
			cookieFile = persisted
		}
	}

	rec := domain.NewRecord(uuid.NewString(), prepared, kind)

	res, err := h.dl.Fetch(r.Context(), downloader.Request{
		URL:           prepared,
		AudioOnly:     kind == domain.KindAudio,
		CookieFile:    cookieFile,
		PlaylistFirst: isPlaylist,
	})
	if err != nil {
		rec.MarkError("extraction")
		h.record(rec)
		writeError(w, http.StatusBadRequest, downloadFailedMsg)
		return
	}

	if upload != "" {
		h.cookies.Promote(upload)
	}

	filename := media.Filename(res.Meta, kind.Ext(), urlcheck.VideoID(rawURL))
	rec.MarkDone(filename)
	h.record(rec)

	if wantsDeferredURL(r) {
		token, err := h.pending.Create(res.Path, filename)
		if err != nil {
			slog.Error("Failed to create download token", "error", err)
			fs.RemoveWithDir(res.Path)
			writeError(w, http.StatusInternalServerError, downloadFailedMsg)
			return
		}
		writeJSON(w, http.StatusOK, domain.TokenResponse{
			DownloadURL: baseURL(r) + "/download/" + token,
			Filename:    filename,
		})
		return
	}

	streamFile(w, r, res.Path, filename)
}

// DownloadByToken handles GET /download/{token}: single-use retrieval of a
// file prepared with return_url.
func (h *Handlers) DownloadByToken(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")

	entry, ok := h.pending.Consume(token)
	if !ok {
		writeError(w, http.StatusNotFound, "Download link invalid or already used.")
		return
	}

	streamFile(w, r, entry.Path, entry.Filename)
}

func (h *Handlers) record(rec *domain.DownloadRecord) {
	if h.history == nil {
		return
	}
	// History is an audit trail; keep it off the request's critical path.
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := h.history.Record(ctx, rec); err != nil {
		slog.Warn("Failed to record download history", "error", err)
	}
}

func (h *Handlers) render(w http.ResponseWriter, name string, data any) {
	if err := templates.ExecuteTemplate(w, name, data); err != nil {
		slog.Error("Template render failed", "template", name, "error", err)
	}
}

// wantsDeferredURL checks the return_url field (form or query) for the
// accepted truthy values.
func wantsDeferredURL(r *http.Request) bool {
	switch strings.TrimSpace(r.FormValue("return_url")) {
	case "1", "true", "yes":
		return true
	}
	return false
}

// baseURL reconstructs the externally visible origin for absolute links.
func baseURL(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil || r.Header.Get("X-Forwarded-Proto") == "https" {
		scheme = "https"
	}
	return scheme + "://" + r.Host
}

// safeNext keeps post-login redirects on this site.
func safeNext(next string) string {
	if next == "" || next[0] != '/' || (len(next) > 1 && next[1] == '/') {
		return "/"
	}
	return next
}

// Helper functions

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("Failed to encode JSON response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, domain.ErrorResponse{Error: message})
}
