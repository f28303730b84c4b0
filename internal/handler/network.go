package handler

import (
	"bytes"
	"fmt"
	"net/http"

	"subway/internal/service"
)

// NetworkHandler handles whole-network import and export
type NetworkHandler struct {
	svc *service.NetworkService
}

// NewNetworkHandler creates a new network handler
func NewNetworkHandler(svc *service.NetworkService) *NetworkHandler {
	return &NetworkHandler{svc: svc}
}

// Register adds the import/export routes to mux
func (h *NetworkHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/import/{format}", h.Import)
	mux.HandleFunc("GET /api/export/{format}", h.Export)
}

// Import applies a network document; ?strategy=merge|replace
func (h *NetworkHandler) Import(w http.ResponseWriter, r *http.Request) {
	format := r.PathValue("format")
	strategy := r.URL.Query().Get("strategy")
	if strategy == "" {
		strategy = service.StrategyMerge
	}

	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	result, err := h.svc.Import(r.Context(), format, body, strategy)
	if err != nil {
		writeServiceError(w, fmt.Sprintf("Failed to import %s", format), err)
		return
	}

	writeJSON(w, result, http.StatusOK)
}

// Export writes the whole network as a downloadable document
func (h *NetworkHandler) Export(w http.ResponseWriter, r *http.Request) {
	format := r.PathValue("format")

	// Render fully before writing so failures still get an error status
	var buf bytes.Buffer
	if err := h.svc.Export(r.Context(), format, &buf); err != nil {
		writeServiceError(w, fmt.Sprintf("Failed to export %s", format), err)
		return
	}

	w.Header().Set("Content-Type", h.svc.ContentType(format))
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=network.%s", format))
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}
