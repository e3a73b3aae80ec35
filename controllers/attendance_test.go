package controllers

import (
	"testing"

	"github.com/Mala4505/tanbeeh-dashboard-backend/models"
	"github.com/Mala4505/tanbeeh-dashboard-backend/services/upstream"
)

func TestEndpointForType(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{models.AttendanceMaghribIsha, upstream.EndpointMaghribIsha},
		{models.AttendanceDua, upstream.EndpointDua},
		{models.AttendanceFajr, upstream.EndpointFajr},
		{"", upstream.EndpointFajr},
		{"nonsense", upstream.EndpointFajr},
	}

	for _, tt := range tests {
		if got := endpointForType(tt.in); got != tt.want {
			t.Errorf("endpointForType(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
