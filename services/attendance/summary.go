package attendance

import (
	"github.com/Mala4505/tanbeeh-dashboard-backend/models"

	"github.com/sirupsen/logrus"
)

// StatusCounts is the counts-by-status summary of one attendance slice
type StatusCounts struct {
	TotalRecords int64 `json:"total_records"`
	PresentCount int64 `json:"present_count"`
	AbsentCount  int64 `json:"absent_count"`
	LateCount    int64 `json:"late_count"`
	ExcusedCount int64 `json:"excused_count"`
}

// CountStatuses folds normalized rows into per-status counts
func CountStatuses(records []NormalizedRecord) StatusCounts {
	counts := StatusCounts{TotalRecords: int64(len(records))}
	for _, rec := range records {
		switch rec.Status {
		case models.StatusPresent:
			counts.PresentCount++
		case models.StatusLate:
			counts.LateCount++
		case models.StatusExcused:
			counts.ExcusedCount++
		default:
			counts.AbsentCount++
		}
	}
	return counts
}

// StatusCounts returns the scoped counts-by-status over persisted records
// for the window
func (a *Aggregator) StatusCounts(start, end string, scope Scope) StatusCounts {
	var counts StatusCounts
	err := a.db.Model(&models.AttendanceRecord{}).
		Scopes(scope.Records()).
		Select("COUNT(*) AS total_records, "+
			"SUM(CASE WHEN attendance_records.status = 'present' THEN 1 ELSE 0 END) AS present_count, "+
			"SUM(CASE WHEN attendance_records.status = 'absent' THEN 1 ELSE 0 END) AS absent_count, "+
			"SUM(CASE WHEN attendance_records.status = 'late' THEN 1 ELSE 0 END) AS late_count, "+
			"SUM(CASE WHEN attendance_records.status = 'excused' THEN 1 ELSE 0 END) AS excused_count").
		Where("attendance_records.date BETWEEN ? AND ?", start, end).
		Scan(&counts).Error
	if err != nil {
		logrus.WithError(err).Error("Status count query failed")
		return StatusCounts{}
	}
	return counts
}
