package sqlstore

import "testing"

func TestDollarPlaceholders(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"SELECT 1", "SELECT 1"},
		{"SELECT * FROM lines WHERE id = ?", "SELECT * FROM lines WHERE id = $1"},
		{"UPDATE lines SET version = version + 1, updated_at = ? WHERE id = ? AND version = ?",
			"UPDATE lines SET version = version + 1, updated_at = $1 WHERE id = $2 AND version = $3"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := DollarPlaceholders(tt.in); got != tt.want {
				t.Errorf("DollarPlaceholders() = %q, want %q", got, tt.want)
			}
		})
	}
}
