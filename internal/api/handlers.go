package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"io"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	qrcode "github.com/skip2/go-qrcode"

	"github.com/Karannkx/Kxshare/config"
	"github.com/Karannkx/Kxshare/internal/analytics"
	"github.com/Karannkx/Kxshare/internal/docgen"
	"github.com/Karannkx/Kxshare/internal/github"
	"github.com/Karannkx/Kxshare/internal/models"
	"github.com/Karannkx/Kxshare/internal/share"
	"github.com/Karannkx/Kxshare/web"
)

var errInvalidRepoURL = errors.New("invalid repository URL")

type Handler struct {
	manager   *share.Manager
	generator *docgen.Generator // nil when no API key is configured
	config    *config.Config
	templates *template.Template
}

func NewHandler(m *share.Manager, gen *docgen.Generator, cfg *config.Config) *Handler {
	return &Handler{
		manager:   m,
		generator: gen,
		config:    cfg,
		templates: web.Templates(),
	}
}

type homeData struct {
	Error string
}

type successData struct {
	ShareID   string
	ShareLink string
	Protected bool
}

type viewData struct {
	ShareID    string
	Owner      string
	Repo       string
	Readme     template.HTML
	HasReadme  bool
	Files      []*github.Entry
	DocEnabled bool
	Password   string
}

type passwordData struct {
	ShareID string
	Error   bool
}

type docData struct {
	ShareID  string
	Repo     string
	Document string
}

type statsResponse struct {
	ID     string              `json:"id"`
	Exists bool                `json:"exists"`
	Stats  analytics.LinkStats `json:"stats"`
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	h.json(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) ShareStats(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "shareID")

	rec, err := h.manager.Resolve(r.Context(), id)
	if err != nil {
		h.json(w, http.StatusNotFound, statsResponse{ID: id, Exists: false})
		return
	}

	h.json(w, http.StatusOK, statsResponse{
		ID:     rec.ID,
		Exists: true,
		Stats:  analytics.Stats(rec.ID),
	})
}

func (h *Handler) Home(w http.ResponseWriter, r *http.Request) {
	h.render(w, http.StatusOK, "home.html", homeData{})
}

func (h *Handler) CreateShare(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.render(w, http.StatusBadRequest, "home.html", homeData{Error: "invalid form submission"})
		return
	}

	token := r.PostFormValue("token")
	repoURL := r.PostFormValue("repo_url")
	password := r.PostFormValue("password")

	if token == "" || repoURL == "" {
		h.render(w, http.StatusBadRequest, "home.html", homeData{Error: "token and repository URL are required"})
		return
	}

	expiryDays, err := strconv.Atoi(r.PostFormValue("expiry_days"))
	if err != nil {
		h.render(w, http.StatusBadRequest, "home.html", homeData{Error: "expiry_days must be a number"})
		return
	}

	owner, repo, err := parseRepoURL(repoURL)
	if err != nil {
		h.render(w, http.StatusBadRequest, "home.html", homeData{Error: "invalid repository URL, expected .../<owner>/<repo>"})
		return
	}

	rec, err := h.manager.Create(r.Context(), token, owner, repo, expiryDays, password)
	if err != nil {
		if errors.Is(err, share.ErrInvalidExpiry) {
			h.render(w, http.StatusBadRequest, "home.html", homeData{Error: "expiry must be between 1 and 3650 days"})
			return
		}
		log.Printf("create share failed: %v", err)
		h.errorPage(w, http.StatusInternalServerError, "failed to create share")
		return
	}

	h.render(w, http.StatusCreated, "success.html", successData{
		ShareID:   rec.ID,
		ShareLink: h.viewURL(rec.ID),
		Protected: rec.Protected,
	})
}

func (h *Handler) ViewShare(w http.ResponseWriter, r *http.Request) {
	rec, ok := h.resolve(w, r)
	if !ok {
		return
	}

	submitted := ""
	if r.Method == http.MethodPost {
		submitted = r.PostFormValue("password")
	}

	switch h.manager.Authorize(rec, submitted) {
	case share.PasswordRequired:
		h.render(w, http.StatusOK, "password.html", passwordData{ShareID: rec.ID})
		return
	case share.Denied:
		h.render(w, http.StatusUnauthorized, "password.html", passwordData{ShareID: rec.ID, Error: true})
		return
	}

	h.renderContent(w, r, rec, submitted)
}

func (h *Handler) renderContent(w http.ResponseWriter, r *http.Request, rec *models.Share, submitted string) {
	client, repo, err := h.fetcherFor(rec)
	if err != nil {
		log.Printf("share %s: %v", rec.ID, err)
		h.errorPage(w, http.StatusInternalServerError, "share record could not be read")
		return
	}

	analytics.TrackAccess(rec.ID)

	// README and tree fail independently; a missing README still shows
	// the tree and the download link.
	readme, hasReadme := client.FetchReadme(r.Context())
	files := client.FetchTree(r.Context())

	var rendered template.HTML
	if hasReadme {
		rendered = github.RenderMarkdown(readme)
	}

	// The submitted password travels only in POST bodies (the download
	// and generate forms re-carry it); it must never end up in a URL,
	// where request logs and Referer headers would capture it.
	h.render(w, http.StatusOK, "view.html", viewData{
		ShareID:    rec.ID,
		Owner:      client.Owner(),
		Repo:       repo,
		Readme:     rendered,
		HasReadme:  hasReadme,
		Files:      files,
		DocEnabled: h.generator != nil,
		Password:   submitted,
	})
}

func (h *Handler) DownloadShare(w http.ResponseWriter, r *http.Request) {
	rec, ok := h.resolve(w, r)
	if !ok {
		return
	}

	// Password is read from the POST body only; a password in the query
	// string would leak into the request log.
	switch h.manager.Authorize(rec, r.PostFormValue("password")) {
	case share.PasswordRequired:
		http.Redirect(w, r, "/view/"+rec.ID, http.StatusSeeOther)
		return
	case share.Denied:
		h.errorPage(w, http.StatusForbidden, "incorrect password")
		return
	}

	client, repo, err := h.fetcherFor(rec)
	if err != nil {
		log.Printf("share %s: %v", rec.ID, err)
		h.errorPage(w, http.StatusInternalServerError, "share record could not be read")
		return
	}

	body, err := client.FetchArchive(r.Context())
	if err != nil {
		h.render(w, http.StatusNotFound, "notfound.html", nil)
		return
	}
	defer body.Close()

	analytics.TrackAccess(rec.ID)

	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", repo+".zip"))
	if _, err := io.Copy(w, body); err != nil {
		log.Printf("share %s: archive stream interrupted: %v", rec.ID, err)
	}
}

func (h *Handler) ShareQR(w http.ResponseWriter, r *http.Request) {
	rec, ok := h.resolve(w, r)
	if !ok {
		return
	}

	png, err := qrcode.Encode(h.viewURL(rec.ID), qrcode.Medium, 256)
	if err != nil {
		h.errorPage(w, http.StatusInternalServerError, "QR generation failed")
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Write(png)
}

func (h *Handler) GenerateDoc(w http.ResponseWriter, r *http.Request) {
	if h.generator == nil {
		h.errorPage(w, http.StatusInternalServerError, "document generation is not configured")
		return
	}

	rec, ok := h.resolve(w, r)
	if !ok {
		return
	}

	switch h.manager.Authorize(rec, r.PostFormValue("password")) {
	case share.PasswordRequired:
		http.Redirect(w, r, "/view/"+rec.ID, http.StatusSeeOther)
		return
	case share.Denied:
		h.errorPage(w, http.StatusForbidden, "incorrect password")
		return
	}

	client, repo, err := h.fetcherFor(rec)
	if err != nil {
		log.Printf("share %s: %v", rec.ID, err)
		h.errorPage(w, http.StatusInternalServerError, "share record could not be read")
		return
	}

	files := sampleFiles(r, client)
	doc, err := h.generator.Describe(r.Context(), repo, files)
	if err != nil {
		log.Printf("share %s: doc generation failed: %v", rec.ID, err)
		h.errorPage(w, http.StatusBadGateway, "document generation failed")
		return
	}

	h.render(w, http.StatusOK, "doc.html", docData{
		ShareID:  rec.ID,
		Repo:     repo,
		Document: doc,
	})
}

// resolve maps a path share id to a live record, rendering the
// not-found or expired page otherwise. Expiry detection here is what
// purges stale records, for every endpoint that goes through it.
func (h *Handler) resolve(w http.ResponseWriter, r *http.Request) (*models.Share, bool) {
	id := chi.URLParam(r, "shareID")

	rec, err := h.manager.Resolve(r.Context(), id)
	switch {
	case err == nil:
		return rec, true
	case errors.Is(err, share.ErrExpired):
		h.render(w, http.StatusNotFound, "expired.html", nil)
	case errors.Is(err, share.ErrNotFound):
		h.render(w, http.StatusNotFound, "notfound.html", nil)
	default:
		log.Printf("resolve %s failed: %v", id, err)
		h.errorPage(w, http.StatusInternalServerError, "internal error")
	}
	return nil, false
}

func (h *Handler) fetcherFor(rec *models.Share) (*github.Client, string, error) {
	token, owner, repo, err := h.manager.Credentials(rec)
	if err != nil {
		return nil, "", err
	}

	client := github.NewClient(token, owner, repo, github.Config{
		BaseURL:  h.config.GitHub.APIBaseURL,
		Timeout:  h.config.GitHub.FetchTimeout,
		MaxDepth: h.config.GitHub.MaxTreeDepth,
		MaxNodes: h.config.GitHub.MaxTreeNodes,
	})
	return client, repo, nil
}

func sampleFiles(r *http.Request, client *github.Client) []docgen.SourceFile {
	var files []docgen.SourceFile
	for _, path := range collectPaths(client.FetchTree(r.Context()), 5) {
		content, err := client.FetchFile(r.Context(), path)
		if err != nil {
			continue
		}
		files = append(files, docgen.SourceFile{Path: path, Content: content})
	}
	return files
}

func collectPaths(entries []*github.Entry, limit int) []string {
	var paths []string
	var walk func([]*github.Entry)
	walk = func(es []*github.Entry) {
		for _, e := range es {
			if len(paths) >= limit {
				return
			}
			if e.Type == "file" {
				paths = append(paths, e.Path)
			}
			walk(e.Children)
		}
	}
	walk(entries)
	return paths
}

func (h *Handler) viewURL(id string) string {
	return strings.TrimRight(h.config.Server.BaseURL, "/") + "/view/" + id
}

// parseRepoURL pulls owner and repo out of a URL of the shape
// .../<owner>/<repo>, tolerating a trailing slash.
func parseRepoURL(raw string) (owner, repo string, err error) {
	trimmed := strings.TrimRight(strings.TrimSpace(raw), "/")

	u, perr := url.Parse(trimmed)
	if perr != nil {
		return "", "", errInvalidRepoURL
	}

	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	if len(parts) < 2 {
		return "", "", errInvalidRepoURL
	}

	owner, repo = parts[len(parts)-2], parts[len(parts)-1]
	if owner == "" || repo == "" {
		return "", "", errInvalidRepoURL
	}
	return owner, repo, nil
}

func (h *Handler) render(w http.ResponseWriter, status int, name string, data any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := h.templates.ExecuteTemplate(w, name, data); err != nil {
		log.Printf("rendering %s: %v", name, err)
	}
}

func (h *Handler) json(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func (h *Handler) errorPage(w http.ResponseWriter, status int, message string) {
	h.render(w, status, "error.html", map[string]string{"Message": message})
}
