package handler

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"subway/internal/domain"
	"subway/internal/repository/memory"
	"subway/internal/service"
)

// ============================================================================
// Test Helpers
// ============================================================================

func newTestServer(t *testing.T) http.Handler {
	t.Helper()
	repo := memory.New()
	bus := service.NewEventBus()
	registry := service.NewStationRegistry(repo, 16, time.Minute)
	stations := service.NewStationService(repo, registry, bus, nil)
	lines := service.NewLineService(repo, registry, bus, nil, service.DefaultMaxRetries)
	network := service.NewNetworkService(repo, lines, registry, bus, nil)

	mux := http.NewServeMux()
	NewStationHandler(stations).Register(mux)
	NewLineHandler(lines).Register(mux)
	NewNetworkHandler(network).Register(mux)
	mux.HandleFunc("GET /healthz", Health)
	return Chain(mux, Recover, CORS, Logger)
}

func do(t *testing.T, h http.Handler, method, path string, body interface{}, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		data, err := json.Marshal(b)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return v
}

func assertStatus(t *testing.T, rec *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rec.Code != want {
		t.Fatalf("status = %d, want %d (body %s)", rec.Code, want, rec.Body.String())
	}
}

func createStation(t *testing.T, h http.Handler, name string) int64 {
	t.Helper()
	rec := do(t, h, "POST", "/api/stations", map[string]string{"name": name})
	assertStatus(t, rec, http.StatusCreated)
	return decode[domain.Station](t, rec).ID
}

func stationIDs(view service.LineView) []int64 {
	ids := make([]int64, 0, len(view.Stations))
	for _, s := range view.Stations {
		ids = append(ids, s.ID)
	}
	return ids
}

// ============================================================================
// Tests
// ============================================================================

func TestStatusFor(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"validation", domain.NewValidationError("op", "bad"), http.StatusBadRequest},
		{"not found", domain.NewNotFoundError("op", "missing"), http.StatusNotFound},
		{"conflict", domain.NewConflictError("op", "stale"), http.StatusConflict},
		{"wrapped", fmt.Errorf("outer: %w", domain.NewNotFoundError("op", "missing")), http.StatusNotFound},
		{"plain", fmt.Errorf("disk full"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := statusFor(tt.err); got != tt.want {
				t.Errorf("statusFor() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestStationEndpoints(t *testing.T) {
	h := newTestServer(t)

	rec := do(t, h, "POST", "/api/stations", map[string]string{"name": "Gangnam"})
	assertStatus(t, rec, http.StatusCreated)
	station := decode[domain.Station](t, rec)
	if loc := rec.Header().Get("Location"); loc != fmt.Sprintf("/api/stations/%d", station.ID) {
		t.Errorf("Location = %q", loc)
	}

	assertStatus(t, do(t, h, "POST", "/api/stations", map[string]string{"name": "Gangnam"}), http.StatusBadRequest)
	assertStatus(t, do(t, h, "POST", "/api/stations", "{not json"), http.StatusBadRequest)
	assertStatus(t, do(t, h, "GET", fmt.Sprintf("/api/stations/%d", station.ID), nil), http.StatusOK)
	assertStatus(t, do(t, h, "GET", "/api/stations/999", nil), http.StatusNotFound)
	assertStatus(t, do(t, h, "GET", "/api/stations/abc", nil), http.StatusBadRequest)

	list := decode[[]domain.Station](t, do(t, h, "GET", "/api/stations", nil))
	if len(list) != 1 {
		t.Errorf("expected 1 station, got %d", len(list))
	}

	assertStatus(t, do(t, h, "DELETE", fmt.Sprintf("/api/stations/%d", station.ID), nil), http.StatusNoContent)
	assertStatus(t, do(t, h, "DELETE", fmt.Sprintf("/api/stations/%d", station.ID), nil), http.StatusNotFound)
}

func TestLineLifecycle(t *testing.T) {
	h := newTestServer(t)
	a := createStation(t, h, "A")
	b := createStation(t, h, "B")
	c := createStation(t, h, "C")
	m := createStation(t, h, "M")

	rec := do(t, h, "POST", "/api/lines", service.CreateLineRequest{Name: "Line 2", Color: "green", UpStationID: a, DownStationID: b, Distance: 10})
	assertStatus(t, rec, http.StatusCreated)
	line := decode[service.LineView](t, rec)
	linePath := fmt.Sprintf("/api/lines/%d", line.ID)
	if rec.Header().Get("Location") != linePath {
		t.Errorf("Location = %q", rec.Header().Get("Location"))
	}

	rec = do(t, h, "POST", linePath+"/sections", map[string]interface{}{"upStationId": b, "downStationId": c, "distance": 5})
	assertStatus(t, rec, http.StatusCreated)

	rec = do(t, h, "POST", linePath+"/sections", map[string]interface{}{"upStationId": a, "downStationId": m, "distance": 4})
	assertStatus(t, rec, http.StatusCreated)
	line = decode[service.LineView](t, rec)
	if got := stationIDs(line); fmt.Sprint(got) != fmt.Sprint([]int64{a, m, b, c}) {
		t.Errorf("stations = %v", got)
	}

	t.Run("section errors map to status", func(t *testing.T) {
		tests := []struct {
			name string
			body map[string]interface{}
			want int
		}{
			{"both on line", map[string]interface{}{"upStationId": a, "downStationId": c, "distance": 1}, http.StatusBadRequest},
			{"split too long", map[string]interface{}{"upStationId": a, "downStationId": createStation(t, h, "X"), "distance": 4}, http.StatusBadRequest},
			{"unknown station", map[string]interface{}{"upStationId": a, "downStationId": 999, "distance": 1}, http.StatusNotFound},
			{"zero distance", map[string]interface{}{"upStationId": c, "downStationId": createStation(t, h, "Y"), "distance": 0}, http.StatusBadRequest},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				assertStatus(t, do(t, h, "POST", linePath+"/sections", tt.body), tt.want)
			})
		}
	})

	t.Run("etag", func(t *testing.T) {
		rec := do(t, h, "GET", linePath, nil)
		assertStatus(t, rec, http.StatusOK)
		tag := rec.Header().Get("ETag")
		if tag == "" {
			t.Fatal("missing ETag")
		}
		assertStatus(t, do(t, h, "GET", linePath, nil, "If-None-Match", tag), http.StatusNotModified)

		assertStatus(t, do(t, h, "DELETE", fmt.Sprintf("%s/sections?stationId=%d", linePath, m), nil), http.StatusOK)
		rec = do(t, h, "GET", linePath, nil, "If-None-Match", tag)
		assertStatus(t, rec, http.StatusOK)
		if rec.Header().Get("ETag") == tag {
			t.Error("ETag did not change after removing a station")
		}
	})

	t.Run("remove errors", func(t *testing.T) {
		assertStatus(t, do(t, h, "DELETE", linePath+"/sections", nil), http.StatusBadRequest)
		assertStatus(t, do(t, h, "DELETE", linePath+"/sections?stationId=999", nil), http.StatusNotFound)
		assertStatus(t, do(t, h, "DELETE", "/api/lines/999/sections?stationId=1", nil), http.StatusNotFound)
	})

	t.Run("update", func(t *testing.T) {
		rec := do(t, h, "PUT", linePath, service.UpdateLineRequest{Name: "Line 2", Color: "lime"})
		assertStatus(t, rec, http.StatusOK)
		if decode[service.LineView](t, rec).Color != "lime" {
			t.Error("color not updated")
		}
		assertStatus(t, do(t, h, "PUT", linePath, service.UpdateLineRequest{Name: "", Color: "lime"}), http.StatusBadRequest)
	})

	t.Run("station on a line cannot be deleted", func(t *testing.T) {
		assertStatus(t, do(t, h, "DELETE", fmt.Sprintf("/api/stations/%d", a), nil), http.StatusBadRequest)
	})

	t.Run("removing the last section deletes the line", func(t *testing.T) {
		assertStatus(t, do(t, h, "DELETE", fmt.Sprintf("%s/sections?stationId=%d", linePath, c), nil), http.StatusOK)
		assertStatus(t, do(t, h, "DELETE", fmt.Sprintf("%s/sections?stationId=%d", linePath, b), nil), http.StatusNoContent)
		assertStatus(t, do(t, h, "GET", linePath, nil), http.StatusNotFound)
	})
}

func TestDeleteLine(t *testing.T) {
	h := newTestServer(t)
	a := createStation(t, h, "A")
	b := createStation(t, h, "B")
	rec := do(t, h, "POST", "/api/lines", service.CreateLineRequest{Name: "L", Color: "c", UpStationID: a, DownStationID: b, Distance: 1})
	assertStatus(t, rec, http.StatusCreated)
	path := rec.Header().Get("Location")

	assertStatus(t, do(t, h, "DELETE", path, nil), http.StatusNoContent)
	assertStatus(t, do(t, h, "DELETE", path, nil), http.StatusNotFound)

	lines := decode[[]service.LineView](t, do(t, h, "GET", "/api/lines", nil))
	if len(lines) != 0 {
		t.Errorf("expected no lines, got %d", len(lines))
	}
}

func TestImportExport(t *testing.T) {
	h := newTestServer(t)
	doc := `
lines:
  - name: Line 2
    color: green
    sections:
      - {up: Gangnam, down: Yeoksam, distance: 4}
`
	rec := do(t, h, "POST", "/api/import/yaml", doc)
	assertStatus(t, rec, http.StatusOK)
	result := decode[service.ImportResult](t, rec)
	if result.LinesCreated != 1 || result.StationsCreated != 2 || result.Strategy != "merge" {
		t.Errorf("import result = %+v", result)
	}

	assertStatus(t, do(t, h, "POST", "/api/import/yaml?strategy=bogus", doc), http.StatusBadRequest)
	assertStatus(t, do(t, h, "POST", "/api/import/toml", doc), http.StatusBadRequest)

	rec = do(t, h, "GET", "/api/export/yaml", nil)
	assertStatus(t, rec, http.StatusOK)
	if !strings.Contains(rec.Body.String(), "Yeoksam") {
		t.Errorf("export missing station: %s", rec.Body.String())
	}
	if cd := rec.Header().Get("Content-Disposition"); cd != "attachment; filename=network.yaml" {
		t.Errorf("Content-Disposition = %q", cd)
	}

	rec = do(t, h, "GET", "/api/export/xlsx", nil)
	assertStatus(t, rec, http.StatusOK)
	if !bytes.HasPrefix(rec.Body.Bytes(), []byte("PK")) {
		t.Error("xlsx export is not a zip archive")
	}

	assertStatus(t, do(t, h, "GET", "/api/export/pdf", nil), http.StatusBadRequest)
}

func TestMiddleware(t *testing.T) {
	h := newTestServer(t)

	t.Run("health", func(t *testing.T) {
		rec := do(t, h, "GET", "/healthz", nil)
		assertStatus(t, rec, http.StatusOK)
		if rec.Header().Get("Access-Control-Allow-Origin") != "*" {
			t.Error("missing CORS header")
		}
	})

	t.Run("preflight", func(t *testing.T) {
		assertStatus(t, do(t, h, "OPTIONS", "/api/lines", nil), http.StatusNoContent)
	})

	t.Run("recover", func(t *testing.T) {
		panicky := Chain(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			panic("boom")
		}), Recover, Logger)
		rec := do(t, panicky, "GET", "/", nil)
		assertStatus(t, rec, http.StatusInternalServerError)
	})

	t.Run("chain order", func(t *testing.T) {
		var order []string
		mw := func(name string) Middleware {
			return func(next http.Handler) http.Handler {
				return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
					order = append(order, name)
					next.ServeHTTP(w, r)
				})
			}
		}
		final := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})
		Chain(final, mw("outer"), mw("inner")).ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/", nil))
		if strings.Join(order, ",") != "outer,inner" {
			t.Errorf("order = %v", order)
		}
	})
}

func TestMatchesETag(t *testing.T) {
	tests := []struct {
		header string
		want   bool
	}{
		{"", false},
		{`"abc"`, true},
		{`W/"abc"`, true},
		{`"x", "abc"`, true},
		{"*", true},
		{`"abd"`, false},
	}
	for _, tt := range tests {
		t.Run(tt.header, func(t *testing.T) {
			if got := matchesETag(tt.header, `"abc"`); got != tt.want {
				t.Errorf("matchesETag(%q) = %v, want %v", tt.header, got, tt.want)
			}
		})
	}
}
