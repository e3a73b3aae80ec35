package models

import (
	"database/sql/driver"
	"time"
)

// Base model with common fields
type BaseModel struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// JSON field type for GORM
type JSON []byte

func (j JSON) Value() (driver.Value, error) {
	if j.IsNull() {
		return nil, nil
	}
	return string(j), nil
}

func (j *JSON) Scan(value interface{}) error {
	if value == nil {
		*j = nil
		return nil
	}
	s, ok := value.([]byte)
	if !ok {
		return nil
	}
	*j = append((*j)[0:0], s...)
	return nil
}

func (j JSON) MarshalJSON() ([]byte, error) {
	if j == nil {
		return []byte("null"), nil
	}
	return j, nil
}

func (j *JSON) UnmarshalJSON(data []byte) error {
	if j == nil {
		return nil
	}
	*j = append((*j)[0:0], data...)
	return nil
}

func (j JSON) IsNull() bool {
	return len(j) == 0 || string(j) == "null"
}

// Attendance types
const (
	AttendanceFajr        = "fajr"
	AttendanceMaghribIsha = "maghrib_isha"
	AttendanceDua         = "dua"
)

// Attendance statuses
const (
	StatusPresent = "present"
	StatusAbsent  = "absent"
	StatusLate    = "late"
	StatusExcused = "excused"
)

// Roles
const (
	RoleAdmin         = "admin"
	RolePrefect       = "prefect"
	RoleDeputyPrefect = "deputy_prefect"
	RoleMasool        = "masool"
	RoleMuaddib       = "muaddib"
	RoleLajnatMember  = "lajnat_member"
)

// User model
type User struct {
	BaseModel
	Username             string     `json:"username" gorm:"size:100;not null;uniqueIndex"`
	Password             string     `json:"-" gorm:"size:255;not null"`
	Role                 string     `json:"role" gorm:"size:50;not null;default:'prefect';type:enum('admin','prefect','deputy_prefect','masool','muaddib','lajnat_member')"`
	Active               bool       `json:"active" gorm:"default:true"`
	PasswordResetToken   string     `json:"-" gorm:"size:255"`
	PasswordResetExpires *time.Time `json:"-"`
}

// Darajah is an academic class grouping
type Darajah struct {
	BaseModel
	Name string `json:"name" gorm:"size:100;not null;uniqueIndex"`

	// Relationships
	Students []Student `json:"students,omitempty" gorm:"foreignKey:DarajahID"`
}

// Hizb is a residential cohort grouping
type Hizb struct {
	BaseModel
	Name string `json:"name" gorm:"size:100;not null;uniqueIndex"`

	// Relationships
	Groups   []HizbGroup `json:"groups,omitempty" gorm:"foreignKey:HizbID"`
	Students []Student   `json:"students,omitempty" gorm:"foreignKey:HizbID"`
}

// HizbGroup is one of four subdivisions of a Hizb
type HizbGroup struct {
	BaseModel
	HizbID      uint `json:"hizb_id" gorm:"not null;uniqueIndex:idx_hizb_group"`
	GroupNumber int  `json:"group_number" gorm:"not null;default:1;uniqueIndex:idx_hizb_group"`

	// Relationships
	Hizb Hizb `json:"hizb,omitempty" gorm:"foreignKey:HizbID"`
}

// Student is the master roster table, keyed by the external TRNO
type Student struct {
	BaseModel
	Trno     string `json:"trno" gorm:"size:50;not null;uniqueIndex"`
	BedName  string `json:"bed_name" gorm:"size:100"`
	Room     string `json:"room" gorm:"size:50;index"`
	Pantry   string `json:"pantry" gorm:"size:50"`
	Location string `json:"location" gorm:"size:100"`

	DarajahID   *uint `json:"darajah_id"`
	HizbID      *uint `json:"hizb_id"`
	HizbGroupID *uint `json:"hizb_group_id"`

	// Relationships
	Darajah   *Darajah   `json:"darajah,omitempty" gorm:"foreignKey:DarajahID"`
	Hizb      *Hizb      `json:"hizb,omitempty" gorm:"foreignKey:HizbID"`
	HizbGroup *HizbGroup `json:"hizb_group,omitempty" gorm:"foreignKey:HizbGroupID"`
}

// AttendanceRecord holds one prayer attendance entry for a student.
// The natural key includes TP because multiple prayer-time entries may
// exist for the same student/date/type.
type AttendanceRecord struct {
	BaseModel
	StudentID      uint       `json:"student_id" gorm:"not null;uniqueIndex:idx_attendance_natural"`
	Date           *time.Time `json:"date" gorm:"type:date;uniqueIndex:idx_attendance_natural;index:idx_date_type"`
	TP             string     `json:"tp" gorm:"size:50;uniqueIndex:idx_attendance_natural"`
	AttendanceType string     `json:"attendance_type" gorm:"size:20;not null;default:'fajr';uniqueIndex:idx_attendance_natural;index:idx_date_type;type:enum('fajr','maghrib_isha','dua')"`
	Status         string     `json:"status" gorm:"size:20;not null;default:'absent';index;type:enum('present','absent','late','excused')"`
	Remarks        string     `json:"remarks" gorm:"type:text"`
	CreatedByID    *uint      `json:"created_by_id"`
	IsTemp         bool       `json:"is_temp" gorm:"default:false;index"`

	// Relationships
	Student   Student `json:"student,omitempty" gorm:"foreignKey:StudentID"`
	CreatedBy *User   `json:"created_by,omitempty" gorm:"foreignKey:CreatedByID"`
}

// AttendanceFlag marks a record for review. AssignedTo is derived from
// the Lajnat assignment table at creation time, never user-supplied.
type AttendanceFlag struct {
	BaseModel
	AttendanceRecordID uint   `json:"attendance_record_id" gorm:"not null;index"`
	FlaggedByID        *uint  `json:"flagged_by_id"`
	Reason             string `json:"reason" gorm:"type:text"`
	AssignedToID       *uint  `json:"assigned_to_id" gorm:"index"`

	// Relationships
	AttendanceRecord AttendanceRecord `json:"attendance_record,omitempty" gorm:"foreignKey:AttendanceRecordID"`
	FlaggedBy        *User            `json:"flagged_by,omitempty" gorm:"foreignKey:FlaggedByID"`
	AssignedTo       *User            `json:"assigned_to,omitempty" gorm:"foreignKey:AssignedToID"`
}

// Notification model
type Notification struct {
	BaseModel
	RecipientID   uint   `json:"recipient_id" gorm:"not null;index"`
	Message       string `json:"message" gorm:"type:text;not null"`
	RelatedFlagID *uint  `json:"related_flag_id"`
	IsRead        bool   `json:"is_read" gorm:"default:false"`

	// Relationships
	Recipient   User            `json:"recipient,omitempty" gorm:"foreignKey:RecipientID"`
	RelatedFlag *AttendanceFlag `json:"related_flag,omitempty" gorm:"foreignKey:RelatedFlagID"`
}

// Audit actions
const (
	AuditActionFlag           = "flag"
	AuditActionUnflag         = "unflag"
	AuditActionLogin          = "login"
	AuditActionLogout         = "logout"
	AuditActionPasswordChange = "password_change"
	AuditActionDataView       = "data_view"
	AuditActionUserCreate     = "user_create"
	AuditActionUserResetPass  = "user_reset_password"
)

// AuditLog is an append-only event ledger. UserID is nullable so entries
// survive user deletion.
type AuditLog struct {
	BaseModel
	UserID   *uint  `json:"user_id" gorm:"index"`
	Action   string `json:"action" gorm:"size:50;not null;default:'login';type:enum('flag','unflag','login','logout','password_change','data_view','user_create','user_reset_password')"`
	Target   string `json:"target" gorm:"size:255"`
	Metadata JSON   `json:"metadata" gorm:"type:json"`

	// Relationships
	User *User `json:"user,omitempty" gorm:"foreignKey:UserID"`
}

// HizbAssignment maps one prefect and one deputy to a Hizb
type HizbAssignment struct {
	BaseModel
	HizbID          uint `json:"hizb_id" gorm:"not null;uniqueIndex"`
	PrefectID       uint `json:"prefect_id" gorm:"not null;index"`
	DeputyPrefectID uint `json:"deputy_prefect_id" gorm:"not null;index"`

	// Relationships
	Hizb          Hizb `json:"hizb,omitempty" gorm:"foreignKey:HizbID"`
	Prefect       User `json:"prefect,omitempty" gorm:"foreignKey:PrefectID"`
	DeputyPrefect User `json:"deputy_prefect,omitempty" gorm:"foreignKey:DeputyPrefectID"`
}

// MasoolAssignment scopes a masool to a Darajah and its students
type MasoolAssignment struct {
	BaseModel
	MasoolID  uint `json:"masool_id" gorm:"not null;uniqueIndex"`
	DarajahID uint `json:"darajah_id" gorm:"not null"`

	// Relationships
	Masool   User      `json:"masool,omitempty" gorm:"foreignKey:MasoolID"`
	Darajah  Darajah   `json:"darajah,omitempty" gorm:"foreignKey:DarajahID"`
	Students []Student `json:"students,omitempty" gorm:"many2many:masool_assignment_students"`
}

// MuaddibGroupAssignment scopes a muaddib to one HizbGroup
type MuaddibGroupAssignment struct {
	BaseModel
	MuaddibID   uint `json:"muaddib_id" gorm:"not null;uniqueIndex:idx_muaddib_group"`
	HizbGroupID uint `json:"hizb_group_id" gorm:"not null;uniqueIndex:idx_muaddib_group"`

	// Relationships
	Muaddib   User      `json:"muaddib,omitempty" gorm:"foreignKey:MuaddibID"`
	HizbGroup HizbGroup `json:"hizb_group,omitempty" gorm:"foreignKey:HizbGroupID"`
	Students  []Student `json:"students,omitempty" gorm:"many2many:muaddib_assignment_students"`
}

// LajnatAssignment maps a lajnat member to the students whose flags are
// routed to them
type LajnatAssignment struct {
	BaseModel
	LajnatMemberID uint `json:"lajnat_member_id" gorm:"not null;uniqueIndex"`

	// Relationships
	LajnatMember User      `json:"lajnat_member,omitempty" gorm:"foreignKey:LajnatMemberID"`
	Students     []Student `json:"students,omitempty" gorm:"many2many:lajnat_assignment_students"`
}

// AuditArchive tracks audit-log batches exported to S3
type AuditArchive struct {
	BaseModel
	FileName    string    `json:"file_name" gorm:"size:255;not null"`
	S3Key       string    `json:"s3_key" gorm:"size:500;not null"`
	StartDate   time.Time `json:"start_date" gorm:"not null"`
	EndDate     time.Time `json:"end_date" gorm:"not null"`
	RecordCount int       `json:"record_count" gorm:"not null"`
	FileSize    int64     `json:"file_size" gorm:"not null"`
	Status      string    `json:"status" gorm:"size:50;not null;default:'pending';type:enum('pending','completed','failed')"`
	Error       string    `json:"error" gorm:"type:text"`
}
