package domain

import (
	"encoding/json"
	"testing"
)

func TestNewSection(t *testing.T) {
	tests := []struct {
		name     string
		up, down int64
		distance int
		wantErr  bool
	}{
		{"valid section", 1, 2, 10, false},
		{"minimum distance", 1, 2, 1, false},
		{"same endpoints", 1, 1, 10, true},
		{"zero distance", 1, 2, 0, true},
		{"negative distance", 1, 2, -5, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := NewSection(tt.up, tt.down, tt.distance)
			if tt.wantErr {
				if !IsKind(err, KindValidation) {
					t.Fatalf("expected validation error, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if s.UpStationID() != tt.up || s.DownStationID() != tt.down || s.Distance() != tt.distance {
				t.Errorf("accessors returned %s", s)
			}
		})
	}
}

func TestSectionEquality(t *testing.T) {
	if MustSection(1, 2, 3) != MustSection(1, 2, 3) {
		t.Error("sections with the same fields should be equal")
	}
	if MustSection(1, 2, 3) == MustSection(2, 1, 3) {
		t.Error("direction should matter for equality")
	}
	if MustSection(1, 2, 3) == MustSection(1, 2, 4) {
		t.Error("distance should matter for equality")
	}
	if !MustSection(1, 2, 3).Connects(1, 2) || MustSection(1, 2, 3).Connects(2, 1) {
		t.Error("Connects() should respect direction")
	}
}

func TestSectionJSON(t *testing.T) {
	t.Run("encodes camel case fields", func(t *testing.T) {
		data, err := json.Marshal(MustSection(1, 2, 7))
		if err != nil {
			t.Fatalf("Marshal() error: %v", err)
		}
		want := `{"upStationId":1,"downStationId":2,"distance":7}`
		if string(data) != want {
			t.Errorf("Marshal() = %s, want %s", data, want)
		}
	})

	t.Run("decoding validates", func(t *testing.T) {
		var s Section
		err := json.Unmarshal([]byte(`{"upStationId":1,"downStationId":1,"distance":7}`), &s)
		if !IsKind(err, KindValidation) {
			t.Fatalf("expected validation error, got %v", err)
		}
	})

	t.Run("decodes valid section", func(t *testing.T) {
		var s Section
		if err := json.Unmarshal([]byte(`{"upStationId":3,"downStationId":4,"distance":2}`), &s); err != nil {
			t.Fatalf("Unmarshal() error: %v", err)
		}
		if s != MustSection(3, 4, 2) {
			t.Errorf("Unmarshal() = %s", s)
		}
	})
}

func TestMustSectionPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected MustSection to panic on invalid input")
		}
	}()
	MustSection(1, 1, 1)
}
