package handler

import (
	"fmt"
	"net/http"

	"subway/internal/service"
)

// StationHandler handles station API requests
type StationHandler struct {
	svc *service.StationService
}

// NewStationHandler creates a new station handler
func NewStationHandler(svc *service.StationService) *StationHandler {
	return &StationHandler{svc: svc}
}

// Register adds the station routes to mux
func (h *StationHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/stations", h.ListStations)
	mux.HandleFunc("POST /api/stations", h.CreateStation)
	mux.HandleFunc("GET /api/stations/{id}", h.GetStation)
	mux.HandleFunc("DELETE /api/stations/{id}", h.DeleteStation)
}

// CreateStationRequest is the body of POST /api/stations
type CreateStationRequest struct {
	Name string `json:"name"`
}

// ListStations returns all stations
func (h *StationHandler) ListStations(w http.ResponseWriter, r *http.Request) {
	stations, err := h.svc.ListStations(r.Context())
	if err != nil {
		writeServiceError(w, "Failed to list stations", err)
		return
	}

	writeJSON(w, stations, http.StatusOK)
}

// CreateStation creates a new station
func (h *StationHandler) CreateStation(w http.ResponseWriter, r *http.Request) {
	var req CreateStationRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, "Invalid request body", err.Error(), http.StatusBadRequest)
		return
	}

	station, err := h.svc.CreateStation(r.Context(), req.Name)
	if err != nil {
		writeServiceError(w, "Failed to create station", err)
		return
	}

	w.Header().Set("Location", fmt.Sprintf("/api/stations/%d", station.ID))
	writeJSON(w, station, http.StatusCreated)
}

// GetStation returns a single station
func (h *StationHandler) GetStation(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, "Invalid station ID", err.Error(), http.StatusBadRequest)
		return
	}

	station, err := h.svc.GetStation(r.Context(), id)
	if err != nil {
		writeServiceError(w, "Failed to get station", err)
		return
	}

	writeJSON(w, station, http.StatusOK)
}

// DeleteStation removes a station no line uses
func (h *StationHandler) DeleteStation(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, "Invalid station ID", err.Error(), http.StatusBadRequest)
		return
	}

	if err := h.svc.DeleteStation(r.Context(), id); err != nil {
		writeServiceError(w, "Failed to delete station", err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
