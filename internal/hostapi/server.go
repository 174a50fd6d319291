package hostapi

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/cors"

	"github.com/NeoFlock/neonucleus-sub000/internal/nucleus"
)

// Server is the introspection HTTP surface for a Registry of Computers.
type Server struct {
	registry *Registry
	router   *mux.Router
	handler  http.Handler
}

// NewServer builds a Server routing against registry. When allowCORS is
// true every route answers cross-origin requests, the same opt-in flag
// shape the teacher corpus's web frontend uses.
func NewServer(registry *Registry, allowCORS bool) *Server {
	s := &Server{
		registry: registry,
		router:   mux.NewRouter().StrictSlash(true),
	}

	api := s.router.PathPrefix("/computers").Subrouter()
	api.HandleFunc("", s.listComputers).Methods("GET", "OPTIONS")
	api.HandleFunc("/{addr}", s.getComputer).Methods("GET", "OPTIONS")
	api.HandleFunc("/{addr}/screens/{screen}/stream", s.streamScreen).Methods("GET")

	s.handler = s.router

	if allowCORS {
		s.handler = cors.AllowAll().Handler(s.router)
	}

	return s
}

// ServeHTTP makes Server an http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) listComputers(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.registry.Names())
}

// computerSnapshot is the JSON shape GET /computers/{addr} answers with.
type computerSnapshot struct {
	Address      string             `json:"address"`
	Uptime       float64            `json:"uptime"`
	Energy       float64            `json:"energy"`
	EnergyMax    float64            `json:"energyCapacity"`
	MemoryUsed   int                `json:"memoryUsed"`
	MemoryTotal  int                `json:"memoryTotal"`
	Temperature  float64            `json:"temperature"`
	Overheating  bool               `json:"overheating"`
	Components   []componentSummary `json:"components"`
}

type componentSummary struct {
	Address string            `json:"address"`
	Slot    int               `json:"slot"`
	Type    string            `json:"type"`
	Device  map[string]string `json:"device,omitempty"`
}

func (s *Server) getComputer(w http.ResponseWriter, r *http.Request) {
	addr := mux.Vars(r)["addr"]

	c, ok := s.registry.Get(addr)
	if !ok {
		http.Error(w, "no such computer", http.StatusNotFound)
		return
	}

	snapshot := snapshotOf(c)
	writeJSON(w, http.StatusOK, snapshot)
}

func snapshotOf(c *nucleus.Computer) computerSnapshot {
	comps := c.Components()
	out := computerSnapshot{
		Address:     c.Address(),
		Uptime:      c.Uptime(),
		Energy:      c.Energy(),
		EnergyMax:   c.EnergyCapacity(),
		MemoryUsed:  c.MemoryUsed(),
		MemoryTotal: c.MemoryTotal(),
		Temperature: c.Temperature(),
		Overheating: c.Overheating(),
		Components:  make([]componentSummary, 0, len(comps)),
	}

	for _, comp := range comps {
		summary := componentSummary{
			Address: comp.Address,
			Slot:    comp.Slot,
			Type:    comp.Table.Name,
		}

		if info, ok := c.DeviceInfo().Get(comp.Address); ok {
			summary.Device = info.Pairs
		}

		out.Components = append(out.Components, summary)
	}

	return out
}

// pollInterval is how often streamScreen pushes a fresh frame to a
// connected client.
const pollInterval = 200 * time.Millisecond
