// Package web exposes the read surface over the aggregator and the stores:
// availability snapshot, reservation flag state, booking intake, and a
// manual refresh hook.
package web

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"

	"chaletd/internal/avail"
	"chaletd/internal/config"
	"chaletd/internal/date"
	appLog "chaletd/internal/log"
	"chaletd/internal/model"
	"chaletd/internal/stage"
	"chaletd/internal/store"
)

// Server wires the HTTP API.
type Server struct {
	cfg          *config.Config
	agg          *avail.Aggregator
	reservations *store.Reservations
	bookings     *store.Bookings
	mux          *http.ServeMux
}

func NewServer(cfg *config.Config, agg *avail.Aggregator, reservations *store.Reservations, bookings *store.Bookings) *Server {
	s := &Server{
		cfg:          cfg,
		agg:          agg,
		reservations: reservations,
		bookings:     bookings,
		mux:          http.NewServeMux(),
	}
	s.registerRoutes()
	return s
}

// Handler returns the http.Handler, wrapped with basic auth if configured.
func (s *Server) Handler() http.Handler {
	h := http.Handler(s.mux)
	if s.basicAuthEnabled() {
		appLog.Info("HTTP basic auth enabled", "listen", "http://"+s.cfg.Listen)
		return s.basicAuthMiddleware(h)
	}
	return h
}

func (s *Server) basicAuthEnabled() bool {
	if s.cfg == nil || s.cfg.BasicAuth == nil {
		return false
	}
	// Empty username or password counts as disabled.
	return s.cfg.BasicAuth.Username != "" && s.cfg.BasicAuth.Password != ""
}

// basicAuthMiddleware protects all handlers except /health.
func (s *Server) basicAuthMiddleware(next http.Handler) http.Handler {
	username := s.cfg.BasicAuth.Username
	password := s.cfg.BasicAuth.Password

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			next.ServeHTTP(w, r)
			return
		}

		u, p, ok := r.BasicAuth()
		if !ok || !secureCompare(u, username) || !secureCompare(p, password) {
			w.Header().Set("WWW-Authenticate", `Basic realm="chaletd", charset="UTF-8"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// secureCompare compares two strings in constant time.
func secureCompare(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("/health", s.handleHealth)
	s.mux.HandleFunc("/api/availability", s.handleAvailability)
	s.mux.HandleFunc("/api/reservations", s.handleReservations)
	s.mux.HandleFunc("/api/bookings", s.handleBookings)
	s.mux.HandleFunc("/api/refresh", s.handleRefresh)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// availabilityResponse is the JSON shape for /api/availability.
type availabilityResponse struct {
	Blocks      []model.AvailabilityBlock `json:"blocks"`
	RefreshedAt *time.Time                `json:"refreshed_at,omitempty"`
}

func (s *Server) handleAvailability(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	resp := availabilityResponse{Blocks: s.agg.Snapshot()}
	if t := s.agg.RefreshedAt(); !t.IsZero() {
		resp.RefreshedAt = &t
	}
	writeJSON(w, http.StatusOK, resp)
}

// reservationFlagsDTO exposes flag state without guest contact details
// beyond the email needed to correlate with the mailbox.
type reservationFlagsDTO struct {
	ID        string      `json:"id"`
	Email     string      `json:"email"`
	Arrival   date.Date   `json:"arrival"`
	Departure date.Date   `json:"departure"`
	Sent      stage.Flags `json:"sent"`
}

func (s *Server) handleReservations(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	list, err := s.reservations.LoadAll()
	if err != nil {
		appLog.Error("api reservations: load failed", err)
		writeError(w, http.StatusInternalServerError, "failed to load reservations")
		return
	}

	dtos := make([]reservationFlagsDTO, 0, len(list))
	for _, res := range list {
		dtos = append(dtos, reservationFlagsDTO{
			ID:        res.ID,
			Email:     res.Email,
			Arrival:   res.Arrival,
			Departure: res.Departure,
			Sent:      res.Sent,
		})
	}
	writeJSON(w, http.StatusOK, dtos)
}

// bookingRequest is the intake payload for POST /api/bookings.
type bookingRequest struct {
	Name    string    `json:"name"`
	Email   string    `json:"email"`
	Start   date.Date `json:"startDate"`
	End     date.Date `json:"endDate"`
	Options []string  `json:"options"`
}

func (s *Server) handleBookings(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		// The calendar UI consumes the merged remote+local view.
		writeJSON(w, http.StatusOK, s.agg.Snapshot())

	case http.MethodPost:
		var req bookingRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		if req.Name == "" || req.Email == "" || req.Start.IsZero() || req.End.IsZero() {
			writeError(w, http.StatusBadRequest, "missing required fields")
			return
		}
		if !req.Start.Before(req.End) {
			writeError(w, http.StatusBadRequest, "startDate must be before endDate")
			return
		}

		b := model.Booking{
			ID:        uuid.NewString(),
			Name:      req.Name,
			Email:     req.Email,
			Start:     req.Start,
			End:       req.End,
			Options:   req.Options,
			CreatedAt: time.Now().UTC(),
		}
		if err := s.bookings.Add(b); err != nil {
			appLog.Error("api bookings: save failed", err)
			writeError(w, http.StatusInternalServerError, "failed to save booking")
			return
		}
		appLog.Info("booking created", "id", b.ID, "start", b.Start.String(), "end", b.End.String())
		writeJSON(w, http.StatusCreated, b)

	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

// handleRefresh triggers an immediate aggregator refresh (POST only).
func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 60*time.Second)
	defer cancel()
	s.agg.Refresh(ctx)

	writeJSON(w, http.StatusOK, map[string]int{"blocks": len(s.agg.Snapshot())})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		appLog.Error("failed to write JSON response", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	type errResp struct {
		Error string `json:"error"`
	}
	writeJSON(w, status, errResp{Error: msg})
}
