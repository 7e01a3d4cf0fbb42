// Package demoserver is a small upstream that produces interesting traffic
// for the capture pipeline: versioned bodies, repeated headers, echoes and a
// response whose body cannot be read to completion.
package demoserver

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/go-chi/chi/v5"
)

// DemoServer serves versioned resources whose current version can be switched
// at runtime.
type DemoServer struct {
	cfg       Config
	resources map[string]resource
	versions  map[string]int // path -> current version
	mu        sync.RWMutex
}

// NewDemoServer creates a new demo server instance.
func NewDemoServer(cfg Config) *DemoServer {
	if cfg.InitialVersion < 1 {
		cfg.InitialVersion = 1
	}
	byPath := make(map[string]resource)
	versions := make(map[string]int)
	for _, r := range allResources() {
		byPath[r.Path] = r
		versions[r.Path] = cfg.InitialVersion
	}
	return &DemoServer{
		cfg:       cfg,
		resources: byPath,
		versions:  versions,
	}
}

// Handler returns the demo routes.
func (s *DemoServer) Handler() http.Handler {
	r := chi.NewRouter()

	for path := range s.resources {
		r.Get(path, s.resourceHandler(path))
	}
	r.HandleFunc("/api/echo", s.echoHandler)
	r.Get("/api/cookies", s.cookiesHandler)
	r.Get("/api/broken", s.brokenHandler)
	r.Get("/api/status/{code}", s.statusHandler)

	r.Get("/demo/versions", s.getVersionsHandler)
	r.Post("/demo/set-version", s.setVersionHandler)
	r.Post("/demo/bump-all", s.bumpAllVersionsHandler)
	r.Post("/demo/reset", s.resetVersionsHandler)
	return r
}

// Start listens on cfg.Port and blocks.
func (s *DemoServer) Start() error {
	addr := fmt.Sprintf(":%d", s.cfg.Port)
	fmt.Printf("Demo upstream starting on http://localhost%s\n", addr)
	return http.ListenAndServe(addr, s.Handler())
}

// version returns the body for path at its current version, falling back to
// the closest lower version.
func (s *DemoServer) version(path string) (resource, string, bool) {
	s.mu.RLock()
	res, ok := s.resources[path]
	v := s.versions[path]
	s.mu.RUnlock()
	if !ok {
		return resource{}, "", false
	}
	for ; v >= 1; v-- {
		if body, exists := res.Versions[v]; exists {
			return res, body, true
		}
	}
	return res, "", false
}

func (s *DemoServer) resourceHandler(path string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		res, body, ok := s.version(path)
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", res.ContentType)
		w.WriteHeader(http.StatusOK)
		_, _ = io.WriteString(w, body)
	}
}

type echoResponse struct {
	Method  string              `json:"method"`
	Path    string              `json:"path"`
	Query   string              `json:"query,omitempty"`
	Headers map[string][]string `json:"headers"`
	Body    string              `json:"body,omitempty"`
}

// echoHandler reflects the request back as JSON.
func (s *DemoServer) echoHandler(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "reading body", http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, echoResponse{
		Method:  r.Method,
		Path:    r.URL.Path,
		Query:   r.URL.RawQuery,
		Headers: r.Header,
		Body:    string(body),
	})
}

// cookiesHandler sets two cookies so the response carries Set-Cookie twice.
func (s *DemoServer) cookiesHandler(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{Name: "session", Value: "abc123", Path: "/", HttpOnly: true, SameSite: http.SameSiteLaxMode})
	http.SetCookie(w, &http.Cookie{Name: "theme", Value: "dark", Path: "/"})
	w.WriteHeader(http.StatusNoContent)
}

// brokenHandler promises more bytes than it writes, so clients fail while
// reading the body.
func (s *DemoServer) brokenHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	w.Header().Set("Content-Length", "1024")
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, "partial")
}

func (s *DemoServer) statusHandler(w http.ResponseWriter, r *http.Request) {
	code, err := strconv.Atoi(chi.URLParam(r, "code"))
	if err != nil || code < 200 || code > 599 {
		http.Error(w, "Invalid status code", http.StatusBadRequest)
		return
	}
	w.WriteHeader(code)
	_, _ = io.WriteString(w, http.StatusText(code))
}

type resourceInfo struct {
	Path              string `json:"path"`
	Description       string `json:"description"`
	CurrentVersion    int    `json:"current_version"`
	AvailableVersions []int  `json:"available_versions"`
}

// getVersionsHandler returns the current versions of all resources.
func (s *DemoServer) getVersionsHandler(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	infos := make([]resourceInfo, 0, len(s.resources))
	for path, res := range s.resources {
		infos = append(infos, resourceInfo{
			Path:              path,
			Description:       res.Description,
			CurrentVersion:    s.versions[path],
			AvailableVersions: res.availableVersions(),
		})
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Path < infos[j].Path })
	writeJSON(w, http.StatusOK, infos)
}

// setVersionHandler sets the version for one resource.
func (s *DemoServer) setVersionHandler(w http.ResponseWriter, r *http.Request) {
	path := r.FormValue("path")
	version, err := strconv.Atoi(r.FormValue("version"))
	if err != nil || version < 1 {
		http.Error(w, "Invalid version number", http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	_, ok := s.resources[path]
	if ok {
		s.versions[path] = version
	}
	s.mu.Unlock()

	if !ok {
		http.Error(w, "Unknown path "+strings.TrimSpace(path), http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"path":    path,
		"version": version,
	})
}

// bumpAllVersionsHandler increments every resource, capped at its newest version.
func (s *DemoServer) bumpAllVersionsHandler(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	for path := range s.versions {
		avail := s.resources[path].availableVersions()
		maxV := avail[len(avail)-1]
		if s.versions[path] < maxV {
			s.versions[path]++
		}
	}
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "All versions bumped",
	})
}

// resetVersionsHandler resets all resources to version 1.
func (s *DemoServer) resetVersionsHandler(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	for path := range s.versions {
		s.versions[path] = 1
	}
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "All versions reset to 1",
	})
}

func (r resource) availableVersions() []int {
	vs := make([]int, 0, len(r.Versions))
	for v := range r.Versions {
		vs = append(vs, v)
	}
	sort.Ints(vs)
	return vs
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
