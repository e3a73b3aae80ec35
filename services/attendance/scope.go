package attendance

import (
	"github.com/Mala4505/tanbeeh-dashboard-backend/models"

	"gorm.io/gorm"
)

// ScopeKind enumerates the shapes a role's visibility can take
type ScopeKind int

const (
	// ScopeDenied is the deny-by-default shape for unrecognized roles
	ScopeDenied ScopeKind = iota
	ScopeUnrestricted
	ScopeByHizb
	ScopeByDarajah
	ScopeByGroup
	ScopeByAssignedFlags
)

// Scope is the resolved visibility of one caller. It is produced once per
// request by ResolveScope and passed explicitly to every query that reads
// attendance data; no query runs unscoped.
type Scope struct {
	Kind      ScopeKind
	HizbID    uint
	DarajahID uint
	GroupID   uint
	UserID    uint
}

// ResolveScope derives the caller's scope from their role and the
// assignment tables. A prefect without a HizbAssignment (and likewise for
// masool/muaddib) resolves to Denied rather than Unrestricted.
func ResolveScope(db *gorm.DB, user *models.User) Scope {
	switch user.Role {
	case models.RoleAdmin:
		return Scope{Kind: ScopeUnrestricted}

	case models.RoleLajnatMember:
		return Scope{Kind: ScopeByAssignedFlags, UserID: user.ID}

	case models.RolePrefect, models.RoleDeputyPrefect:
		var assignment models.HizbAssignment
		err := db.Where("prefect_id = ? OR deputy_prefect_id = ?", user.ID, user.ID).
			First(&assignment).Error
		if err != nil {
			return Scope{Kind: ScopeDenied}
		}
		return Scope{Kind: ScopeByHizb, HizbID: assignment.HizbID}

	case models.RoleMasool:
		var assignment models.MasoolAssignment
		if err := db.Where("masool_id = ?", user.ID).First(&assignment).Error; err != nil {
			return Scope{Kind: ScopeDenied}
		}
		return Scope{Kind: ScopeByDarajah, DarajahID: assignment.DarajahID}

	case models.RoleMuaddib:
		var assignment models.MuaddibGroupAssignment
		if err := db.Where("muaddib_id = ?", user.ID).First(&assignment).Error; err != nil {
			return Scope{Kind: ScopeDenied}
		}
		return Scope{Kind: ScopeByGroup, GroupID: assignment.HizbGroupID}
	}

	return Scope{Kind: ScopeDenied}
}

// Describe returns a short label for the scope shape, used in dashboard
// metadata
func (s Scope) Describe() string {
	switch s.Kind {
	case ScopeUnrestricted:
		return "unrestricted"
	case ScopeByHizb:
		return "hizb"
	case ScopeByDarajah:
		return "darajah"
	case ScopeByGroup:
		return "hizb_group"
	case ScopeByAssignedFlags:
		return "assigned_flags"
	}
	return "denied"
}

// Records returns a GORM scope restricting an attendance_records query to
// the caller's visibility. Queries apply it before any other clause so a
// short-circuited filter can never leak unscoped rows.
func (s Scope) Records() func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		switch s.Kind {
		case ScopeUnrestricted:
			return db
		case ScopeByHizb:
			return db.Joins("JOIN students ON students.id = attendance_records.student_id").
				Where("students.hizb_id = ?", s.HizbID)
		case ScopeByDarajah:
			return db.Joins("JOIN students ON students.id = attendance_records.student_id").
				Where("students.darajah_id = ?", s.DarajahID)
		case ScopeByGroup:
			return db.Joins("JOIN students ON students.id = attendance_records.student_id").
				Where("students.hizb_group_id = ?", s.GroupID)
		case ScopeByAssignedFlags:
			// EXISTS rather than a join: a record with several flags for
			// the same reviewer must count once
			return db.Where("EXISTS (SELECT 1 FROM attendance_flags"+
				" WHERE attendance_flags.attendance_record_id = attendance_records.id"+
				" AND attendance_flags.assigned_to_id = ?)", s.UserID)
		}
		return db.Where("1 = 0")
	}
}

// RecordsWithRoom is Records plus access to the student room column for
// room-level aggregates. The assigned-flags shape still needs the student
// join for the room.
func (s Scope) RecordsWithRoom() func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if s.Kind == ScopeUnrestricted || s.Kind == ScopeByAssignedFlags {
			db = db.Joins("JOIN students ON students.id = attendance_records.student_id")
		}
		return s.Records()(db)
	}
}

// FilterNormalized applies the scope to live, un-persisted rows from the
// upstream API. Hizb/darajah shapes match by name (the only identity the
// raw rows carry); the group and assigned-flags shapes resolve to trno
// membership sets.
func (s Scope) FilterNormalized(db *gorm.DB, records []NormalizedRecord) []NormalizedRecord {
	switch s.Kind {
	case ScopeUnrestricted:
		return records

	case ScopeByHizb:
		var hizb models.Hizb
		if err := db.First(&hizb, s.HizbID).Error; err != nil {
			return []NormalizedRecord{}
		}
		return filterRows(records, func(r NormalizedRecord) bool { return r.Hizb == hizb.Name })

	case ScopeByDarajah:
		var darajah models.Darajah
		if err := db.First(&darajah, s.DarajahID).Error; err != nil {
			return []NormalizedRecord{}
		}
		return filterRows(records, func(r NormalizedRecord) bool { return r.Darajah == darajah.Name })

	case ScopeByGroup:
		trnos := trnoSet(db.Model(&models.Student{}).
			Where("hizb_group_id = ?", s.GroupID))
		return filterRows(records, func(r NormalizedRecord) bool { return trnos[r.Trno] })

	case ScopeByAssignedFlags:
		trnos := trnoSet(db.Model(&models.Student{}).
			Joins("JOIN attendance_records ON attendance_records.student_id = students.id").
			Joins("JOIN attendance_flags ON attendance_flags.attendance_record_id = attendance_records.id").
			Where("attendance_flags.assigned_to_id = ?", s.UserID))
		return filterRows(records, func(r NormalizedRecord) bool { return trnos[r.Trno] })
	}

	return []NormalizedRecord{}
}

// SetGroupStudents makes studentIDs the exact membership of a hizb group
// by stamping students.hizb_group_id, which the ByGroup scope filters on.
// Students dropped from the list are unassigned.
func SetGroupStudents(db *gorm.DB, groupID uint, studentIDs []uint) error {
	unassign := db.Model(&models.Student{}).Where("hizb_group_id = ?", groupID)
	if len(studentIDs) > 0 {
		unassign = unassign.Where("id NOT IN ?", studentIDs)
	}
	if err := unassign.Update("hizb_group_id", nil).Error; err != nil {
		return err
	}
	if len(studentIDs) == 0 {
		return nil
	}
	return db.Model(&models.Student{}).Where("id IN ?", studentIDs).
		Update("hizb_group_id", groupID).Error
}

func filterRows(records []NormalizedRecord, keep func(NormalizedRecord) bool) []NormalizedRecord {
	out := make([]NormalizedRecord, 0, len(records))
	for _, r := range records {
		if keep(r) {
			out = append(out, r)
		}
	}
	return out
}

func trnoSet(query *gorm.DB) map[string]bool {
	var trnos []string
	if err := query.Distinct().Pluck("students.trno", &trnos).Error; err != nil {
		return map[string]bool{}
	}
	set := make(map[string]bool, len(trnos))
	for _, t := range trnos {
		set[t] = true
	}
	return set
}
