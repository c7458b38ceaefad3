// Package httpctl exposes the controls of a running arpeggiator over HTTP.
//
//	GET  /controls           current controls
//	PUT  /controls           merge the given fields into the controls
//	PUT  /pattern/{name}     select a pattern by name
//	PUT  /octave-mode/{name} select an octave mode by name
//	GET  /status             snapshot of the last processed block
package httpctl

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/gorilla/mux"
	"github.com/rs/cors"

	"gitlab.com/gomidi/arpeggiator"
)

// Store is what the handler reads and changes, usually an *arpeggiator.Arp.
type Store interface {
	Controls() arpeggiator.Controls
	SetControls(arpeggiator.Controls)
	Status() arpeggiator.Status
}

type ErrorResponse struct {
	Error string `json:"detail"`
}

type server struct {
	store Store
	mu    sync.Mutex // serializes read-modify-write of the controls
}

// NewHandler returns the router for the store. Cross origin requests are
// allowed from the given origins, from everywhere if none are given.
func NewHandler(store Store, origins ...string) http.Handler {
	s := &server{store: store}

	router := mux.NewRouter().StrictSlash(true)
	router.HandleFunc("/controls", s.getControls).Methods("GET")
	router.HandleFunc("/controls", s.putControls).Methods("PUT")
	router.HandleFunc("/pattern/{name}", s.putPattern).Methods("PUT")
	router.HandleFunc("/octave-mode/{name}", s.putOctaveMode).Methods("PUT")
	router.HandleFunc("/status", s.getStatus).Methods("GET")

	if len(origins) == 0 {
		origins = []string{"*"}
	}
	c := cors.New(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPut},
		AllowedHeaders: []string{"Content-Type"},
	})
	return c.Handler(router)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, ErrorResponse{Error: err.Error()})
}

func (s *server) getControls(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.store.Controls())
}

func (s *server) putControls(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := s.store.Controls()
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&c); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	s.store.SetControls(c)
	writeJSON(w, http.StatusOK, c)
}

func (s *server) putPattern(w http.ResponseWriter, r *http.Request) {
	p, err := arpeggiator.ParsePattern(mux.Vars(r)["name"])
	if err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}
	s.update(w, func(c *arpeggiator.Controls) { c.Pattern = float32(p) })
}

func (s *server) putOctaveMode(w http.ResponseWriter, r *http.Request) {
	m, err := arpeggiator.ParseOctaveMode(mux.Vars(r)["name"])
	if err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}
	s.update(w, func(c *arpeggiator.Controls) { c.OctaveMode = float32(m) })
}

func (s *server) update(w http.ResponseWriter, fn func(c *arpeggiator.Controls)) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := s.store.Controls()
	fn(&c)
	s.store.SetControls(c)
	writeJSON(w, http.StatusOK, c)
}

func (s *server) getStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.store.Status())
}
