package handler

import (
	"fmt"
	"net/http"
	"strings"

	"subway/internal/service"
)

// LineHandler handles line and section API requests
type LineHandler struct {
	svc *service.LineService
}

// NewLineHandler creates a new line handler
func NewLineHandler(svc *service.LineService) *LineHandler {
	return &LineHandler{svc: svc}
}

// Register adds the line routes to mux
func (h *LineHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/lines", h.ListLines)
	mux.HandleFunc("POST /api/lines", h.CreateLine)
	mux.HandleFunc("GET /api/lines/{id}", h.GetLine)
	mux.HandleFunc("PUT /api/lines/{id}", h.UpdateLine)
	mux.HandleFunc("DELETE /api/lines/{id}", h.DeleteLine)
	mux.HandleFunc("POST /api/lines/{id}/sections", h.AddSection)
	mux.HandleFunc("DELETE /api/lines/{id}/sections", h.RemoveStation)
}

// ListLines returns all lines with their ordered stations
func (h *LineHandler) ListLines(w http.ResponseWriter, r *http.Request) {
	lines, err := h.svc.ListLines(r.Context())
	if err != nil {
		writeServiceError(w, "Failed to list lines", err)
		return
	}

	writeJSON(w, lines, http.StatusOK)
}

// CreateLine creates a line with its first section
func (h *LineHandler) CreateLine(w http.ResponseWriter, r *http.Request) {
	var req service.CreateLineRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, "Invalid request body", err.Error(), http.StatusBadRequest)
		return
	}

	line, err := h.svc.CreateLine(r.Context(), req)
	if err != nil {
		writeServiceError(w, "Failed to create line", err)
		return
	}

	w.Header().Set("Location", fmt.Sprintf("/api/lines/%d", line.ID))
	w.Header().Set("ETag", etag(line))
	writeJSON(w, line, http.StatusCreated)
}

// GetLine returns one line. The ETag changes whenever the section set,
// name or color does; a matching If-None-Match yields 304.
func (h *LineHandler) GetLine(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, "Invalid line ID", err.Error(), http.StatusBadRequest)
		return
	}

	line, err := h.svc.GetLine(r.Context(), id)
	if err != nil {
		writeServiceError(w, "Failed to get line", err)
		return
	}

	tag := etag(line)
	w.Header().Set("ETag", tag)
	if matchesETag(r.Header.Get("If-None-Match"), tag) {
		w.WriteHeader(http.StatusNotModified)
		return
	}

	writeJSON(w, line, http.StatusOK)
}

// UpdateLine renames and recolors a line
func (h *LineHandler) UpdateLine(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, "Invalid line ID", err.Error(), http.StatusBadRequest)
		return
	}

	var req service.UpdateLineRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, "Invalid request body", err.Error(), http.StatusBadRequest)
		return
	}

	line, err := h.svc.UpdateLine(r.Context(), id, req)
	if err != nil {
		writeServiceError(w, "Failed to update line", err)
		return
	}

	w.Header().Set("ETag", etag(line))
	writeJSON(w, line, http.StatusOK)
}

// DeleteLine removes a line and its sections
func (h *LineHandler) DeleteLine(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, "Invalid line ID", err.Error(), http.StatusBadRequest)
		return
	}

	if err := h.svc.DeleteLine(r.Context(), id); err != nil {
		writeServiceError(w, "Failed to delete line", err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// AddSection adds a section to a line
func (h *LineHandler) AddSection(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, "Invalid line ID", err.Error(), http.StatusBadRequest)
		return
	}

	var req service.SectionRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, "Invalid request body", err.Error(), http.StatusBadRequest)
		return
	}

	line, err := h.svc.AddSection(r.Context(), id, req)
	if err != nil {
		writeServiceError(w, "Failed to add section", err)
		return
	}

	w.Header().Set("Location", fmt.Sprintf("/api/lines/%d", line.ID))
	w.Header().Set("ETag", etag(line))
	writeJSON(w, line, http.StatusCreated)
}

// RemoveStation removes ?stationId=N from a line. When that leaves the
// line empty the line is deleted and 204 is returned.
func (h *LineHandler) RemoveStation(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, "Invalid line ID", err.Error(), http.StatusBadRequest)
		return
	}
	stationID, err := parseID(r.URL.Query().Get("stationId"), "stationId")
	if err != nil {
		writeError(w, "Invalid station ID", err.Error(), http.StatusBadRequest)
		return
	}

	line, err := h.svc.RemoveStation(r.Context(), id, stationID)
	if err != nil {
		writeServiceError(w, "Failed to remove station", err)
		return
	}
	if line == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	w.Header().Set("ETag", etag(line))
	writeJSON(w, line, http.StatusOK)
}

// etag combines the topology fingerprint with the update time so renames
// also invalidate cached copies
func etag(line *service.LineView) string {
	return fmt.Sprintf(`"%s-%x"`, line.Fingerprint, line.UpdatedAt.UnixNano())
}

func matchesETag(header, tag string) bool {
	if header == "" {
		return false
	}
	for _, candidate := range strings.Split(header, ",") {
		candidate = strings.TrimSpace(candidate)
		if candidate == "*" || strings.TrimPrefix(candidate, "W/") == tag {
			return true
		}
	}
	return false
}
