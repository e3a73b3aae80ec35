package attendance

import (
	"errors"
	"time"

	"github.com/Mala4505/tanbeeh-dashboard-backend/config"
	"github.com/Mala4505/tanbeeh-dashboard-backend/database"
	"github.com/Mala4505/tanbeeh-dashboard-backend/models"
	"github.com/Mala4505/tanbeeh-dashboard-backend/services/upstream"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// SyncService reconciles upstream attendance rows into the store and keeps
// the rolling retention window tidy.
type SyncService struct {
	db     *gorm.DB
	client *upstream.Client
}

// SyncStats summarizes one reconcile run
type SyncStats struct {
	RunID           string `json:"run_id"`
	Endpoint        string `json:"endpoint"`
	Fetched         int    `json:"fetched"`
	StudentsCreated int    `json:"students_created"`
	StudentsUpdated int    `json:"students_updated"`
	RecordsCreated  int    `json:"records_created"`
	RecordsUpdated  int    `json:"records_updated"`
	Skipped         int    `json:"skipped"`
	Purged          int64  `json:"purged"`
}

// NewSyncService creates a sync service bound to the shared store
func NewSyncService() *SyncService {
	return &SyncService{
		db:     database.GetDB(),
		client: upstream.NewClient(),
	}
}

// NewSyncServiceWith wires explicit dependencies (used by tests)
func NewSyncServiceWith(db *gorm.DB, client *upstream.Client) *SyncService {
	return &SyncService{db: db, client: client}
}

// SyncEndpoint pulls the rolling retention window for one prayer endpoint,
// normalizes every row and reconciles it against the store, then purges
// records that fell out of the window. A dead upstream degrades to zero
// fetched rows; retry is the external scheduler's concern.
func (s *SyncService) SyncEndpoint(endpoint string) SyncStats {
	today := time.Now()
	frm := today.AddDate(0, 0, -config.AppConfig.RetentionDays).Format("2006-01-02")
	to := today.Format("2006-01-02")

	stats := SyncStats{RunID: uuid.NewString(), Endpoint: endpoint}

	rows := s.client.FetchAttendance(endpoint, frm, to)
	stats.Fetched = len(rows)
	if len(rows) == 0 {
		logrus.WithFields(logrus.Fields{
			"run_id":   stats.RunID,
			"endpoint": endpoint,
		}).Warn("Sync fetched no rows; upstream may be unreachable")
	}

	for _, rec := range NormalizeBatch(rows, endpoint) {
		s.reconcileRow(rec, &stats)
	}

	stats.Purged = s.purgeOldRecords(today)

	logrus.WithFields(logrus.Fields{
		"run_id":           stats.RunID,
		"endpoint":         endpoint,
		"fetched":          stats.Fetched,
		"students_created": stats.StudentsCreated,
		"students_updated": stats.StudentsUpdated,
		"records_created":  stats.RecordsCreated,
		"records_updated":  stats.RecordsUpdated,
		"skipped":          stats.Skipped,
		"purged":           stats.Purged,
	}).Info("Attendance sync complete")

	return stats
}

// reconcileRow upserts the student then the attendance record for one
// normalized row. Student descriptive fields are last-write-wins.
func (s *SyncService) reconcileRow(rec NormalizedRecord, stats *SyncStats) {
	if rec.Trno == "" {
		stats.Skipped++
		return
	}

	darajahID := s.lookupDarajah(rec.Darajah)
	hizbID := s.lookupHizb(rec.Hizb)

	var student models.Student
	err := s.db.Where("trno = ?", rec.Trno).First(&student).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		student = models.Student{
			Trno:      rec.Trno,
			BedName:   rec.BedName,
			Room:      rec.Room,
			Pantry:    rec.Pantry,
			Location:  rec.Location,
			DarajahID: darajahID,
			HizbID:    hizbID,
		}
		if err := s.db.Create(&student).Error; err != nil {
			logrus.WithError(err).WithField("trno", rec.Trno).Error("Failed to create student")
			stats.Skipped++
			return
		}
		stats.StudentsCreated++
	} else if err != nil {
		logrus.WithError(err).WithField("trno", rec.Trno).Error("Failed to look up student")
		stats.Skipped++
		return
	} else {
		student.BedName = rec.BedName
		student.Room = rec.Room
		student.Pantry = rec.Pantry
		student.Location = rec.Location
		student.DarajahID = darajahID
		student.HizbID = hizbID
		if err := s.db.Save(&student).Error; err != nil {
			logrus.WithError(err).WithField("trno", rec.Trno).Error("Failed to update student")
			stats.Skipped++
			return
		}
		stats.StudentsUpdated++
	}

	created, err := s.upsertRecord(student.ID, rec, false, nil)
	if err != nil {
		logrus.WithError(err).WithField("trno", rec.Trno).Error("Failed to upsert attendance record")
		stats.Skipped++
		return
	}
	if created {
		stats.RecordsCreated++
	} else {
		stats.RecordsUpdated++
	}
}

// upsertRecord creates or updates an attendance record keyed by
// (student, date, attendance_type, tp). Returns whether a row was created.
func (s *SyncService) upsertRecord(studentID uint, rec NormalizedRecord, isTemp bool, createdBy *uint) (bool, error) {
	query := s.db.Where("student_id = ? AND attendance_type = ? AND tp = ?",
		studentID, rec.AttendanceType, rec.TP)
	if rec.Date != nil {
		query = query.Where("date = ?", *rec.Date)
	} else {
		query = query.Where("date IS NULL")
	}

	var record models.AttendanceRecord
	err := query.First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		record = models.AttendanceRecord{
			StudentID:      studentID,
			Date:           rec.Date,
			TP:             rec.TP,
			AttendanceType: rec.AttendanceType,
			Status:         rec.Status,
			Remarks:        rec.Remarks,
			IsTemp:         isTemp,
			CreatedByID:    createdBy,
		}
		return true, s.db.Create(&record).Error
	}
	if err != nil {
		return false, err
	}

	record.Status = rec.Status
	record.Remarks = rec.Remarks
	if isTemp {
		record.IsTemp = true
	}
	return false, s.db.Save(&record).Error
}

func (s *SyncService) lookupDarajah(name string) *uint {
	if name == "" {
		return nil
	}
	var darajah models.Darajah
	if err := s.db.Where("name = ?", name).First(&darajah).Error; err != nil {
		return nil
	}
	return &darajah.ID
}

func (s *SyncService) lookupHizb(name string) *uint {
	if name == "" {
		return nil
	}
	var hizb models.Hizb
	if err := s.db.Where("name = ?", name).First(&hizb).Error; err != nil {
		return nil
	}
	return &hizb.ID
}

// purgeOldRecords deletes every record dated before the retention cutoff,
// keeping the table a rolling window.
func (s *SyncService) purgeOldRecords(today time.Time) int64 {
	cutoff := today.AddDate(0, 0, -config.AppConfig.RetentionDays).Format("2006-01-02")
	res := s.db.Where("date < ?", cutoff).Delete(&models.AttendanceRecord{})
	if res.Error != nil {
		logrus.WithError(res.Error).Error("Retention purge failed")
		return 0
	}
	return res.RowsAffected
}

// PurgeExpiredTempRecords deletes temp rows (materialized by the dashboard
// fallback path) older than the short temp window so the cache does not
// grow unbounded.
func (s *SyncService) PurgeExpiredTempRecords() int64 {
	cutoff := time.Now().AddDate(0, 0, -config.AppConfig.TempRetentionDays).Format("2006-01-02")
	res := s.db.Where("is_temp = ? AND date < ?", true, cutoff).Delete(&models.AttendanceRecord{})
	if res.Error != nil {
		logrus.WithError(res.Error).Error("Temp record purge failed")
		return 0
	}
	if res.RowsAffected > 0 {
		logrus.WithField("purged", res.RowsAffected).Info("Purged expired temporary attendance records")
	}
	return res.RowsAffected
}

// DedupSweep removes duplicate (student, date, attendance_type) groups left
// over from the period before dates were synced, keeping the lowest id per
// group. Idempotent.
func (s *SyncService) DedupSweep() int64 {
	type dupGroup struct {
		StudentID      uint
		Date           *time.Time
		AttendanceType string
	}

	var groups []dupGroup
	err := s.db.Model(&models.AttendanceRecord{}).
		Select("student_id, date, attendance_type").
		Group("student_id, date, attendance_type").
		Having("COUNT(*) > 1").
		Scan(&groups).Error
	if err != nil {
		logrus.WithError(err).Error("Dedup scan failed")
		return 0
	}

	var totalDeleted int64
	for _, g := range groups {
		query := s.db.Where("student_id = ? AND attendance_type = ?", g.StudentID, g.AttendanceType)
		if g.Date != nil {
			query = query.Where("date = ?", *g.Date)
		} else {
			query = query.Where("date IS NULL")
		}

		var ids []uint
		if err := query.Model(&models.AttendanceRecord{}).Order("id ASC").Pluck("id", &ids).Error; err != nil || len(ids) < 2 {
			continue
		}

		res := s.db.Where("id IN ?", ids[1:]).Delete(&models.AttendanceRecord{})
		if res.Error != nil {
			logrus.WithError(res.Error).Error("Dedup delete failed")
			continue
		}
		totalDeleted += res.RowsAffected
	}

	if totalDeleted > 0 {
		logrus.WithField("deleted", totalDeleted).Info("Dedup sweep removed duplicate attendance records")
	}
	return totalDeleted
}

// BackfillDates derives the date column for legacy rows that carry only a
// TP timestamp. A derived date that collides with an existing record's
// natural key is skipped rather than propagated as a conflict.
func (s *SyncService) BackfillDates() (updated, skipped int) {
	var records []models.AttendanceRecord
	if err := s.db.Where("date IS NULL AND tp <> ''").Find(&records).Error; err != nil {
		logrus.WithError(err).Error("Backfill scan failed")
		return 0, 0
	}

	for _, record := range records {
		derived := parseTPDate(record.TP)
		if derived == nil {
			skipped++
			continue
		}

		var existing int64
		s.db.Model(&models.AttendanceRecord{}).
			Where("student_id = ? AND date = ? AND attendance_type = ? AND tp = ? AND id <> ?",
				record.StudentID, *derived, record.AttendanceType, record.TP, record.ID).
			Count(&existing)
		if existing > 0 {
			skipped++
			continue
		}

		record.Date = derived
		if err := s.db.Save(&record).Error; err != nil {
			skipped++
			continue
		}
		updated++
	}

	logrus.WithFields(logrus.Fields{"updated": updated, "skipped": skipped}).Info("Date backfill complete")
	return updated, skipped
}

// tpLayouts covers the timestamp shapes the upstream TP column has shipped
var tpLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	time.RFC3339,
	"2006-01-02",
}

func parseTPDate(tp string) *time.Time {
	for _, layout := range tpLayouts {
		if t, err := time.Parse(layout, tp); err == nil {
			d := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
			return &d
		}
	}
	return nil
}
