// Package devserver is an in-memory stand-in for the lab provisioning backend.
// Labs report pending for a configurable number of status polls, then ready.
package devserver

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/hay-kot/labstack/internal/core/lab"
	"github.com/hay-kot/labstack/internal/labapi"
	"github.com/hay-kot/labstack/pkg/randid"
)

const (
	statusPending    = "pending"
	statusReady      = "ready"
	statusTerminated = "terminated"
)

// ports mirrors the host port each lab image is published on.
var ports = map[lab.Kind]int{
	lab.KindPython:          8080,
	lab.KindLinuxNetworking: 7681,
	lab.KindPythonCLI:       7682,
	lab.KindSQL:             7683,
}

// Options configures a Server.
type Options struct {
	// ReadyAfter is how many status polls answer pending before ready.
	ReadyAfter int
	// Host is used to build access URLs. Defaults to 127.0.0.1.
	Host string
}

type record struct {
	ID         string
	InstanceID string
	Kind       lab.Kind
	TTL        int
	Status     string
	AccessURL  string
	Polls      int
}

// Server tracks labs in memory. It is safe for concurrent use.
type Server struct {
	opts Options
	log  zerolog.Logger

	mu   sync.Mutex
	labs map[string]*record
}

// New creates a Server.
func New(opts Options, log zerolog.Logger) *Server {
	if opts.Host == "" {
		opts.Host = "127.0.0.1"
	}
	return &Server{
		opts: opts,
		log:  log.With().Str("component", "devserver").Logger(),
		labs: make(map[string]*record),
	}
}

// Handler returns the HTTP routes.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Post("/labs", s.createLab)
	r.Route("/labs/{id}", func(r chi.Router) {
		r.Get("/status", s.labStatus)
		r.Post("/terminate", s.terminateLab)
		r.Post("/extend", s.extendLab)
	})
	return r
}

func (s *Server) createLab(w http.ResponseWriter, r *http.Request) {
	var req labapi.CreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	kind, err := lab.ParseKind(req.LabType)
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("Unknown lab_type '%s'", req.LabType))
		return
	}
	if req.TTL <= 0 {
		req.TTL = 30
	}

	rec := &record{
		ID:         uuid.NewString(),
		InstanceID: randid.Prefixed("i", 17),
		Kind:       kind,
		TTL:        req.TTL,
		Status:     statusPending,
	}

	s.mu.Lock()
	s.labs[rec.ID] = rec
	s.mu.Unlock()

	s.log.Info().Str("lab_id", rec.ID).Str("instance_id", rec.InstanceID).Str("kind", string(kind)).Int("ttl", rec.TTL).Msg("lab created")
	writeJSON(w, http.StatusOK, labapi.CreateResponse{LabID: rec.ID})
}

func (s *Server) labStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	s.mu.Lock()
	rec, ok := s.labs[id]
	if !ok {
		s.mu.Unlock()
		writeError(w, http.StatusNotFound, "Not found")
		return
	}

	if rec.Status == statusPending {
		rec.Polls++
		if rec.Polls > s.opts.ReadyAfter {
			rec.Status = statusReady
			rec.AccessURL = fmt.Sprintf("http://%s:%d", s.opts.Host, ports[rec.Kind])
			s.log.Info().Str("lab_id", id).Str("access_url", rec.AccessURL).Msg("lab ready")
		}
	}

	resp := labapi.StatusResponse{Status: rec.Status}
	if rec.AccessURL != "" && rec.Status == statusReady {
		url := rec.AccessURL
		resp.AccessURL = &url
	}
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) terminateLab(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	s.mu.Lock()
	rec, ok := s.labs[id]
	if ok {
		rec.Status = statusTerminated
	}
	s.mu.Unlock()

	if !ok {
		writeError(w, http.StatusNotFound, "Lab not found")
		return
	}

	s.log.Info().Str("lab_id", id).Msg("lab terminated")
	writeJSON(w, http.StatusOK, map[string]string{"message": "Lab terminated"})
}

func (s *Server) extendLab(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req labapi.ExtendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Minutes <= 0 {
		writeError(w, http.StatusBadRequest, "minutes must be positive")
		return
	}

	s.mu.Lock()
	rec, ok := s.labs[id]
	live := ok && rec.Status == statusReady
	if live {
		rec.TTL += req.Minutes
	}
	s.mu.Unlock()

	switch {
	case !ok:
		writeError(w, http.StatusNotFound, "Lab not found")
	case !live:
		writeError(w, http.StatusConflict, "Lab is not running")
	default:
		s.log.Info().Str("lab_id", id).Int("minutes", req.Minutes).Msg("lab extended")
		w.WriteHeader(http.StatusNoContent)
	}
}

// Status returns the stored status of a lab, for tests and diagnostics.
func (s *Server) Status(id string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.labs[id]
	if !ok {
		return "", false
	}
	return rec.Status, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, labapi.ErrorResponse{Detail: detail})
}
