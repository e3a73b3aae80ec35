package attendance

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/Mala4505/tanbeeh-dashboard-backend/database"
	"github.com/Mala4505/tanbeeh-dashboard-backend/models"
	"github.com/Mala4505/tanbeeh-dashboard-backend/services/audit"
	"github.com/Mala4505/tanbeeh-dashboard-backend/services/notifications"

	"gorm.io/gorm"
)

// Sentinel errors the controllers translate to HTTP statuses
var (
	ErrRecordNotFound = errors.New("attendance record not found")
	ErrFlagNotFound   = errors.New("flag not found")
	ErrNotAuthorized  = errors.New("not authorized to remove this flag")
)

// FlagService routes flag actions to the responsible reviewer, the
// notification sink and the audit ledger.
type FlagService struct {
	db     *gorm.DB
	notify *notifications.Service
}

// NewFlagService creates a flag service bound to the shared store
func NewFlagService() *FlagService {
	return &FlagService{
		db:     database.GetDB(),
		notify: notifications.NewService(),
	}
}

// NewFlagServiceWith wires explicit dependencies (used by tests)
func NewFlagServiceWith(db *gorm.DB, notify *notifications.Service) *FlagService {
	return &FlagService{db: db, notify: notify}
}

// Flag creates a flag on an attendance record and resolves the reviewer
// from the Lajnat assignment covering the record's student. A student with
// no Lajnat assignment yields an unassigned flag and no notification; that
// is a valid terminal state, not an error.
func (f *FlagService) Flag(recordID uint, reason string, actor *models.User) (*models.AttendanceFlag, error) {
	var record models.AttendanceRecord
	if err := f.db.Preload("Student").First(&record, recordID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRecordNotFound
		}
		return nil, err
	}

	flag := models.AttendanceFlag{
		AttendanceRecordID: record.ID,
		FlaggedByID:        &actor.ID,
		Reason:             reason,
	}
	if err := f.db.Create(&flag).Error; err != nil {
		return nil, err
	}

	if reviewer := f.resolveReviewer(record.StudentID); reviewer != nil {
		flag.AssignedToID = reviewer
		if err := f.db.Save(&flag).Error; err != nil {
			return nil, err
		}

		message := fmt.Sprintf("Student %s flagged for %s", record.Student.Trno, record.AttendanceType)
		f.notify.NotifyFlag(*reviewer, message, flag.ID)
	}

	audit.RecordForUser(actor.ID, models.AuditActionFlag, strconv.FormatUint(uint64(record.ID), 10),
		map[string]interface{}{"reason": reason})

	return &flag, nil
}

// resolveReviewer finds the lajnat member whose assignment includes the
// student. Nil when no assignment covers them yet.
func (f *FlagService) resolveReviewer(studentID uint) *uint {
	var assignment models.LajnatAssignment
	err := f.db.
		Joins("JOIN lajnat_assignment_students las ON las.lajnat_assignment_id = lajnat_assignments.id").
		Where("las.student_id = ?", studentID).
		First(&assignment).Error
	if err != nil {
		return nil
	}
	return &assignment.LajnatMemberID
}

// Unflag removes a flag. Only the original flagger or an admin may do so;
// the flag's existence is the state, there is no intermediate status.
func (f *FlagService) Unflag(flagID uint, actor *models.User) error {
	var flag models.AttendanceFlag
	if err := f.db.First(&flag, flagID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrFlagNotFound
		}
		return err
	}

	isAuthor := flag.FlaggedByID != nil && *flag.FlaggedByID == actor.ID
	if !isAuthor && actor.Role != models.RoleAdmin {
		return ErrNotAuthorized
	}

	if err := f.db.Delete(&flag).Error; err != nil {
		return err
	}

	audit.RecordForUser(actor.ID, models.AuditActionUnflag, strconv.FormatUint(uint64(flagID), 10),
		map[string]interface{}{"removed_by": actor.Username})

	return nil
}

// FlaggedStudent is one student on a reviewer's worklist with their open
// flag count
type FlaggedStudent struct {
	StudentID uint   `json:"student_id"`
	Trno      string `json:"trno"`
	Room      string `json:"room"`
	FlagCount int64  `json:"flag_count"`
}

// FlaggedStudents lists the students whose flags are assigned to one
// reviewer, with per-student flag counts
func (f *FlagService) FlaggedStudents(assigneeID uint) ([]FlaggedStudent, error) {
	var rows []FlaggedStudent
	err := f.db.Model(&models.AttendanceFlag{}).
		Select("students.id AS student_id, students.trno AS trno, students.room AS room, COUNT(*) AS flag_count").
		Joins("JOIN attendance_records ON attendance_records.id = attendance_flags.attendance_record_id").
		Joins("JOIN students ON students.id = attendance_records.student_id").
		Where("attendance_flags.assigned_to_id = ?", assigneeID).
		Group("students.id, students.trno, students.room").
		Order("flag_count DESC").
		Scan(&rows).Error
	return rows, err
}

// ListFlags returns flags with their record, student and flagger preloaded
func (f *FlagService) ListFlags() ([]models.AttendanceFlag, error) {
	var flags []models.AttendanceFlag
	err := f.db.
		Preload("AttendanceRecord").
		Preload("AttendanceRecord.Student").
		Preload("FlaggedBy").
		Preload("AssignedTo").
		Order("created_at DESC").
		Find(&flags).Error
	return flags, err
}
