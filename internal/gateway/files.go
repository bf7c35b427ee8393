package gateway

import (
	"net/http"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/nextlevelbuilder/opencompany/internal/config"
	webassets "github.com/nextlevelbuilder/opencompany/web"
)

// Directories the file endpoints may reach, as first path segments under
// the state dir. Everything else is invisible to HTTP.
var servablePrefixes = map[string]bool{
	"company":   true,
	"workspace": true,
}

// Root-level files the dashboard loads besides the views. Kept tight so
// the state dir's databases and logs stay unreachable.
func servableRootFile(name string) bool {
	if name == "reset-ts.js" || name == "company-state.json" {
		return true
	}
	return strings.HasSuffix(name, "-data.js") && path.Base(name) == name
}

// resolveStatePath validates rel against the whitelist and maps it to an
// absolute path inside the state dir. Traversal in any form (dot-dot,
// null bytes, absolute paths, symlinks escaping the root) yields ok=false.
func resolveStatePath(rel string) (abs string, ok bool) {
	if rel == "" || strings.ContainsRune(rel, 0) || strings.Contains(rel, "\\") {
		return "", false
	}
	for _, seg := range strings.Split(rel, "/") {
		if seg == ".." {
			return "", false
		}
	}

	cleaned := path.Clean("/" + rel)[1:] // normalize as a URL path, then re-relativize
	if cleaned == "" || cleaned == "." {
		return "", false
	}
	first := cleaned
	if i := strings.IndexByte(cleaned, '/'); i >= 0 {
		first = cleaned[:i]
	}
	if !servablePrefixes[first] {
		return "", false
	}

	root := config.StateDir()
	abs = filepath.Join(root, filepath.FromSlash(cleaned))

	// A symlink inside the tree must not lead outside it.
	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		if os.IsNotExist(err) {
			return abs, true // existence is checked by the caller
		}
		return "", false
	}
	rootResolved, err := filepath.EvalSymlinks(root)
	if err != nil {
		return "", false
	}
	if resolved != rootResolved && !strings.HasPrefix(resolved, rootResolved+string(filepath.Separator)) {
		return "", false
	}
	return resolved, true
}

// handleListDir serves /_ls/<dir>: a JSON array of entry names, with a
// trailing slash on directories so the tree view can descend.
func (s *Server) handleListDir(w http.ResponseWriter, r *http.Request) {
	abs, ok := resolveStatePath(r.PathValue("dir"))
	if !ok {
		writeJSONError(w, http.StatusForbidden, "path not allowed")
		return
	}

	entries, err := os.ReadDir(abs)
	if err != nil {
		if os.IsNotExist(err) {
			writeJSONError(w, http.StatusNotFound, "no such directory")
			return
		}
		writeJSONError(w, http.StatusServiceUnavailable, err.Error())
		return
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		name := e.Name()
		if strings.HasPrefix(name, ".") {
			continue
		}
		if e.IsDir() {
			name += "/"
		}
		names = append(names, name)
	}
	sort.Strings(names)
	writeJSON(w, http.StatusOK, names)
}

// serveStatePrefix returns a read-only file handler rooted at one
// whitelisted state-dir prefix.
func (s *Server) serveStatePrefix(prefix string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rel := r.PathValue("path")
		abs, ok := resolveStatePath(prefix + "/" + rel)
		if !ok {
			http.Error(w, "path not allowed", http.StatusForbidden)
			return
		}
		serveRegularFile(w, r, abs)
	}
}

// handleRootFile serves the handful of dashboard support files that live
// directly in the state dir.
func (s *Server) handleRootFile(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("file")
	if !servableRootFile(name) {
		http.NotFound(w, r)
		return
	}
	serveRegularFile(w, r, filepath.Join(config.StateDir(), name))
}

// serveRegularFile serves exactly one regular file; directories and
// special files 404 rather than listing.
func serveRegularFile(w http.ResponseWriter, r *http.Request, abs string) {
	info, err := os.Stat(abs)
	if err != nil || !info.Mode().IsRegular() {
		http.NotFound(w, r)
		return
	}
	http.ServeFile(w, r, abs)
}

// handleWorkstream serves the embedded dashboard page.
func (s *Server) handleWorkstream(w http.ResponseWriter, r *http.Request) {
	data, err := webassets.Files.ReadFile("workstream.html")
	if err != nil {
		http.Error(w, "dashboard asset missing", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(data)
}
