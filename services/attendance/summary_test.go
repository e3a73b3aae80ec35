package attendance

import (
	"testing"

	"github.com/Mala4505/tanbeeh-dashboard-backend/models"
)

func TestCountStatuses(t *testing.T) {
	tests := []struct {
		name     string
		statuses []string
		want     StatusCounts
	}{
		{
			name:     "empty slice",
			statuses: nil,
			want:     StatusCounts{},
		},
		{
			name: "mixed statuses",
			statuses: []string{
				models.StatusPresent, models.StatusPresent,
				models.StatusAbsent,
				models.StatusLate,
				models.StatusExcused,
			},
			want: StatusCounts{
				TotalRecords: 5,
				PresentCount: 2,
				AbsentCount:  1,
				LateCount:    1,
				ExcusedCount: 1,
			},
		},
		{
			name:     "unrecognized status counts as absent",
			statuses: []string{"mystery", models.StatusPresent},
			want: StatusCounts{
				TotalRecords: 2,
				PresentCount: 1,
				AbsentCount:  1,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			records := make([]NormalizedRecord, len(tt.statuses))
			for i, s := range tt.statuses {
				records[i] = NormalizedRecord{Status: s}
			}
			got := CountStatuses(records)
			if got != tt.want {
				t.Errorf("CountStatuses() = %+v, want %+v", got, tt.want)
			}
		})
	}
}
