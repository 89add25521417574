package api

import (
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// notFound serves the landing page build for non-API paths when a static
// directory is configured, falling back to index.html for client-side routes.
func (s *Server) notFound(w http.ResponseWriter, r *http.Request) {
	if s.opts.StaticDir == "" || strings.HasPrefix(r.URL.Path, "/api/") || r.Method != http.MethodGet {
		writeError(w, http.StatusNotFound, "Not found", nil)
		return
	}

	clean := path.Clean("/" + r.URL.Path)
	file := filepath.Join(s.opts.StaticDir, filepath.FromSlash(clean))
	if info, err := os.Stat(file); err == nil && !info.IsDir() {
		http.ServeFile(w, r, file)
		return
	}

	index := filepath.Join(s.opts.StaticDir, "index.html")
	if _, err := os.Stat(index); err != nil {
		writeError(w, http.StatusNotFound, "Not found", nil)
		return
	}
	http.ServeFile(w, r, index)
}
