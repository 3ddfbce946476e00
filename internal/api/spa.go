package api

import (
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// assetsPrefix holds the bundler's content-hashed files.
const assetsPrefix = "/assets/"

type frontEnd struct {
	api       http.Handler
	webDir    string
	indexPath string
	files     http.Handler
}

// WithSPA serves the ledger web front end from webDir in front of the API.
// /api/ and /metrics go to apiHandler. Client-side routes such as
// /stocks/<id> fall back to index.html, while a missing file with an
// extension is a plain 404 so a broken build does not render the app shell.
func WithSPA(apiHandler http.Handler, webDir string) http.Handler {
	return &frontEnd{
		api:       apiHandler,
		webDir:    webDir,
		indexPath: filepath.Join(webDir, "index.html"),
		files:     http.FileServer(http.Dir(webDir)),
	}
}

func (f *frontEnd) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if isAPIPath(r.URL.Path) {
		f.api.ServeHTTP(w, r)
		return
	}

	clean := path.Clean("/" + r.URL.Path)
	if clean == "/" {
		f.serveIndex(w, r)
		return
	}

	full := filepath.Join(f.webDir, filepath.FromSlash(strings.TrimPrefix(clean, "/")))
	if info, err := os.Stat(full); err == nil && !info.IsDir() {
		if strings.HasPrefix(clean, assetsPrefix) {
			w.Header().Set("Cache-Control", "public, max-age=31536000, immutable")
		} else {
			w.Header().Set("Cache-Control", "no-store")
		}
		f.files.ServeHTTP(w, r)
		return
	}

	if path.Ext(clean) != "" {
		http.NotFound(w, r)
		return
	}
	f.serveIndex(w, r)
}

// serveIndex is never cached so a new build reaches open ledgers on reload.
func (f *frontEnd) serveIndex(w http.ResponseWriter, r *http.Request) {
	if _, err := os.Stat(f.indexPath); err != nil {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte("index.html not found"))
		return
	}
	w.Header().Set("Cache-Control", "no-store")
	http.ServeFile(w, r, f.indexPath)
}

func isAPIPath(p string) bool {
	return strings.HasPrefix(p, "/api/") || p == "/metrics"
}
