package middleware

import "testing"

// TestNormalizePath проверяет замену числовых сегментов на {id}.
func TestNormalizePath(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"/health/live", "/health/live"},
		{"/metrics", "/metrics"},
		{"/api/v1/shifts", "/api/v1/shifts"},
		{"/api/v1/shifts/42", "/api/v1/shifts/{id}"},
		{"/api/v1/shifts/42/statistics", "/api/v1/shifts/{id}/statistics"},
		{"/api/v1/shifts/42/records", "/api/v1/shifts/{id}/records"},
		{"/api/v1/controllers/7", "/api/v1/controllers/{id}"},
		{"/api/v1/defect-types/15", "/api/v1/defect-types/{id}"},
		{"/api/v1/cards/search", "/api/v1/cards/search"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := normalizePath(tt.input); got != tt.expected {
				t.Errorf("normalizePath(%q) = %q, ожидалось %q", tt.input, got, tt.expected)
			}
		})
	}
}
