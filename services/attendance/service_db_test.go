package attendance

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Mala4505/tanbeeh-dashboard-backend/config"
	"github.com/Mala4505/tanbeeh-dashboard-backend/database"
	"github.com/Mala4505/tanbeeh-dashboard-backend/models"
	"github.com/Mala4505/tanbeeh-dashboard-backend/services/notifications"
	"github.com/Mala4505/tanbeeh-dashboard-backend/services/upstream"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// newTestDB opens an in-memory store and points the package globals at it
// so the audit writer and services share the same connection.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("unwrap test db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(
		&models.User{},
		&models.Darajah{},
		&models.Hizb{},
		&models.HizbGroup{},
		&models.Student{},
		&models.AttendanceRecord{},
		&models.AttendanceFlag{},
		&models.Notification{},
		&models.AuditLog{},
		&models.HizbAssignment{},
		&models.MasoolAssignment{},
		&models.MuaddibGroupAssignment{},
		&models.LajnatAssignment{},
	); err != nil {
		t.Fatalf("migrate test db: %v", err)
	}

	database.DB = db
	config.AppConfig = &config.Config{RetentionDays: 30, TempRetentionDays: 7}
	return db
}

func mustCreate(t *testing.T, db *gorm.DB, value interface{}) {
	t.Helper()
	if err := db.Create(value).Error; err != nil {
		t.Fatalf("create %T: %v", value, err)
	}
}

func dayAgo(days int) *time.Time {
	d := time.Now().AddDate(0, 0, -days)
	d = time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC)
	return &d
}

func TestReconcileRowUpsertIdempotent(t *testing.T) {
	db := newTestDB(t)
	sync := NewSyncServiceWith(db, nil)

	rec := NormalizedRecord{
		Trno:           "T100",
		Room:           "12A",
		Date:           dayAgo(1),
		TP:             "2026-08-29T05:00:00",
		AttendanceType: models.AttendanceFajr,
		Status:         models.StatusAbsent,
	}

	var stats SyncStats
	sync.reconcileRow(rec, &stats)
	rec.Status = models.StatusPresent
	sync.reconcileRow(rec, &stats)

	var students, records int64
	db.Model(&models.Student{}).Count(&students)
	db.Model(&models.AttendanceRecord{}).Count(&records)
	if students != 1 || records != 1 {
		t.Fatalf("students=%d records=%d, want 1 and 1 after reconciling the same row twice", students, records)
	}

	var record models.AttendanceRecord
	db.First(&record)
	if record.Status != models.StatusPresent {
		t.Errorf("Status = %q, want the second write to win", record.Status)
	}
	if stats.RecordsCreated != 1 || stats.RecordsUpdated != 1 {
		t.Errorf("stats created=%d updated=%d, want 1 and 1", stats.RecordsCreated, stats.RecordsUpdated)
	}
}

func TestRetentionPurgeRollingWindow(t *testing.T) {
	db := newTestDB(t)
	sync := NewSyncServiceWith(db, nil)

	student := models.Student{Trno: "T200"}
	mustCreate(t, db, &student)
	mustCreate(t, db, &models.AttendanceRecord{
		StudentID: student.ID, Date: dayAgo(40), TP: "a",
		AttendanceType: models.AttendanceFajr, Status: models.StatusPresent,
	})
	mustCreate(t, db, &models.AttendanceRecord{
		StudentID: student.ID, Date: dayAgo(5), TP: "b",
		AttendanceType: models.AttendanceFajr, Status: models.StatusPresent,
	})

	purged := sync.purgeOldRecords(time.Now())
	if purged != 1 {
		t.Fatalf("purged = %d, want 1", purged)
	}

	var remaining []models.AttendanceRecord
	db.Find(&remaining)
	if len(remaining) != 1 || remaining[0].TP != "b" {
		t.Errorf("remaining = %+v, want only the in-window record", remaining)
	}
}

func TestPurgeExpiredTempRecords(t *testing.T) {
	db := newTestDB(t)
	sync := NewSyncServiceWith(db, nil)

	student := models.Student{Trno: "T300"}
	mustCreate(t, db, &student)
	mustCreate(t, db, &models.AttendanceRecord{
		StudentID: student.ID, Date: dayAgo(10), TP: "old-temp",
		AttendanceType: models.AttendanceFajr, Status: models.StatusAbsent, IsTemp: true,
	})
	mustCreate(t, db, &models.AttendanceRecord{
		StudentID: student.ID, Date: dayAgo(2), TP: "fresh-temp",
		AttendanceType: models.AttendanceFajr, Status: models.StatusAbsent, IsTemp: true,
	})
	mustCreate(t, db, &models.AttendanceRecord{
		StudentID: student.ID, Date: dayAgo(10), TP: "old-permanent",
		AttendanceType: models.AttendanceFajr, Status: models.StatusAbsent,
	})

	purged := sync.PurgeExpiredTempRecords()
	if purged != 1 {
		t.Fatalf("purged = %d, want only the aged temp record", purged)
	}

	var tps []string
	db.Model(&models.AttendanceRecord{}).Order("tp").Pluck("tp", &tps)
	if len(tps) != 2 || tps[0] != "fresh-temp" || tps[1] != "old-permanent" {
		t.Errorf("remaining tps = %v", tps)
	}
}

func TestDedupSweepKeepsLowestID(t *testing.T) {
	db := newTestDB(t)
	sync := NewSyncServiceWith(db, nil)

	student := models.Student{Trno: "T400"}
	mustCreate(t, db, &student)
	date := dayAgo(3)
	for _, tp := range []string{"t1", "t2", "t3"} {
		mustCreate(t, db, &models.AttendanceRecord{
			StudentID: student.ID, Date: date, TP: tp,
			AttendanceType: models.AttendanceFajr, Status: models.StatusPresent,
		})
	}

	deleted := sync.DedupSweep()
	if deleted != 2 {
		t.Fatalf("deleted = %d, want 2", deleted)
	}

	var remaining []models.AttendanceRecord
	db.Order("id ASC").Find(&remaining)
	if len(remaining) != 1 || remaining[0].TP != "t1" {
		t.Errorf("remaining = %+v, want only the lowest-id row", remaining)
	}

	if again := sync.DedupSweep(); again != 0 {
		t.Errorf("second sweep deleted %d rows, want 0", again)
	}
}

func TestFallbackFetchCachesKnownStudentsOnly(t *testing.T) {
	db := newTestDB(t)

	student := models.Student{Trno: "T500"}
	mustCreate(t, db, &student)

	date := time.Now().Format("2006-01-02")
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"Trno":"T500","Fajar_Namaz":"p","Date":"` + date + `"},` +
			`{"Trno":"UNKNOWN","Fajar_Namaz":"p","Date":"` + date + `"}]`))
	}))
	defer server.Close()

	client := upstream.NewClientWith(server.URL, "tok", 2*time.Second)
	agg := NewAggregatorWith(db, client, NewSyncServiceWith(db, client))

	persisted := agg.fallbackFetch(date, date)
	if persisted != len(upstream.Endpoints) {
		t.Fatalf("persisted = %d, want one row per endpoint for the known student", persisted)
	}

	var records []models.AttendanceRecord
	db.Find(&records)
	if len(records) != len(upstream.Endpoints) {
		t.Fatalf("records = %d, want %d", len(records), len(upstream.Endpoints))
	}
	for _, r := range records {
		if !r.IsTemp {
			t.Errorf("record %d not marked temporary", r.ID)
		}
		if r.StudentID != student.ID {
			t.Errorf("record %d belongs to student %d, want the known student", r.ID, r.StudentID)
		}
	}

	var students int64
	db.Model(&models.Student{}).Count(&students)
	if students != 1 {
		t.Errorf("students = %d, fallback must not invent roster entries", students)
	}

	// A second pass upserts onto the same natural keys
	agg.fallbackFetch(date, date)
	var after int64
	db.Model(&models.AttendanceRecord{}).Count(&after)
	if int(after) != len(upstream.Endpoints) {
		t.Errorf("records after second fetch = %d, want %d", after, len(upstream.Endpoints))
	}
}

func TestFlagWithoutAssignmentStaysUnassigned(t *testing.T) {
	db := newTestDB(t)

	actor := models.User{Username: "prefect1", Password: "x", Role: models.RolePrefect, Active: true}
	mustCreate(t, db, &actor)
	student := models.Student{Trno: "T600"}
	mustCreate(t, db, &student)
	record := models.AttendanceRecord{
		StudentID: student.ID, Date: dayAgo(1), TP: "t",
		AttendanceType: models.AttendanceFajr, Status: models.StatusAbsent,
	}
	mustCreate(t, db, &record)

	flags := NewFlagServiceWith(db, notifications.NewServiceWith(db))
	flag, err := flags.Flag(record.ID, "missed without excuse", &actor)
	if err != nil {
		t.Fatalf("Flag: %v", err)
	}
	if flag.AssignedToID != nil {
		t.Errorf("AssignedToID = %v, want nil without a lajnat assignment", *flag.AssignedToID)
	}

	var notifCount int64
	db.Model(&models.Notification{}).Count(&notifCount)
	if notifCount != 0 {
		t.Errorf("notifications = %d, want 0 when no reviewer is resolved", notifCount)
	}

	var auditCount int64
	db.Model(&models.AuditLog{}).Where("action = ?", models.AuditActionFlag).Count(&auditCount)
	if auditCount != 1 {
		t.Errorf("audit entries = %d, want the flag action recorded", auditCount)
	}
}

func TestFlagRoutesToLajnatReviewer(t *testing.T) {
	db := newTestDB(t)

	actor := models.User{Username: "masool1", Password: "x", Role: models.RoleMasool, Active: true}
	mustCreate(t, db, &actor)
	reviewer := models.User{Username: "lajnat1", Password: "x", Role: models.RoleLajnatMember, Active: true}
	mustCreate(t, db, &reviewer)
	student := models.Student{Trno: "T700"}
	mustCreate(t, db, &student)

	assignment := models.LajnatAssignment{LajnatMemberID: reviewer.ID}
	mustCreate(t, db, &assignment)
	if err := db.Model(&assignment).Association("Students").Append(&student); err != nil {
		t.Fatalf("append assignment student: %v", err)
	}

	record := models.AttendanceRecord{
		StudentID: student.ID, Date: dayAgo(1), TP: "t",
		AttendanceType: models.AttendanceDua, Status: models.StatusAbsent,
	}
	mustCreate(t, db, &record)

	flags := NewFlagServiceWith(db, notifications.NewServiceWith(db))
	flag, err := flags.Flag(record.ID, "repeated absence", &actor)
	if err != nil {
		t.Fatalf("Flag: %v", err)
	}
	if flag.AssignedToID == nil || *flag.AssignedToID != reviewer.ID {
		t.Fatalf("AssignedToID = %v, want the covering lajnat member", flag.AssignedToID)
	}

	var notif models.Notification
	if err := db.First(&notif).Error; err != nil {
		t.Fatalf("expected one notification: %v", err)
	}
	if notif.RecipientID != reviewer.ID {
		t.Errorf("RecipientID = %d, want the reviewer", notif.RecipientID)
	}
	if notif.RelatedFlagID == nil || *notif.RelatedFlagID != flag.ID {
		t.Errorf("RelatedFlagID = %v, want the created flag", notif.RelatedFlagID)
	}
}

func TestUnflagForbiddenLeavesFlagIntact(t *testing.T) {
	db := newTestDB(t)

	author := models.User{Username: "prefect2", Password: "x", Role: models.RolePrefect, Active: true}
	mustCreate(t, db, &author)
	other := models.User{Username: "muaddib2", Password: "x", Role: models.RoleMuaddib, Active: true}
	mustCreate(t, db, &other)
	admin := models.User{Username: "admin2", Password: "x", Role: models.RoleAdmin, Active: true}
	mustCreate(t, db, &admin)
	student := models.Student{Trno: "T800"}
	mustCreate(t, db, &student)
	record := models.AttendanceRecord{
		StudentID: student.ID, Date: dayAgo(1), TP: "t",
		AttendanceType: models.AttendanceFajr, Status: models.StatusAbsent,
	}
	mustCreate(t, db, &record)

	flags := NewFlagServiceWith(db, notifications.NewServiceWith(db))
	flag, err := flags.Flag(record.ID, "check", &author)
	if err != nil {
		t.Fatalf("Flag: %v", err)
	}

	if err := flags.Unflag(flag.ID, &other); err != ErrNotAuthorized {
		t.Fatalf("Unflag by non-author = %v, want ErrNotAuthorized", err)
	}
	var count int64
	db.Model(&models.AttendanceFlag{}).Count(&count)
	if count != 1 {
		t.Fatalf("flag count = %d, want the flag untouched after a forbidden attempt", count)
	}

	if err := flags.Unflag(flag.ID, &admin); err != nil {
		t.Fatalf("Unflag by admin: %v", err)
	}
	db.Model(&models.AttendanceFlag{}).Count(&count)
	if count != 0 {
		t.Errorf("flag count = %d, want 0 after admin removal", count)
	}
}

func TestGroupScopeFollowsAssignedStudents(t *testing.T) {
	db := newTestDB(t)

	hizb := models.Hizb{Name: "Hizb A"}
	mustCreate(t, db, &hizb)
	group := models.HizbGroup{HizbID: hizb.ID, GroupNumber: 1}
	mustCreate(t, db, &group)

	s1 := models.Student{Trno: "G1"}
	s2 := models.Student{Trno: "G2"}
	mustCreate(t, db, &s1)
	mustCreate(t, db, &s2)

	for _, s := range []models.Student{s1, s2} {
		mustCreate(t, db, &models.AttendanceRecord{
			StudentID: s.ID, Date: dayAgo(1), TP: "t",
			AttendanceType: models.AttendanceFajr, Status: models.StatusPresent,
		})
	}

	if err := SetGroupStudents(db, group.ID, []uint{s1.ID}); err != nil {
		t.Fatalf("SetGroupStudents: %v", err)
	}

	muaddib := models.User{Username: "muaddib3", Password: "x", Role: models.RoleMuaddib, Active: true}
	mustCreate(t, db, &muaddib)
	mustCreate(t, db, &models.MuaddibGroupAssignment{MuaddibID: muaddib.ID, HizbGroupID: group.ID})

	scope := ResolveScope(db, &muaddib)
	if scope.Kind != ScopeByGroup || scope.GroupID != group.ID {
		t.Fatalf("scope = %+v, want ByGroup over the assigned group", scope)
	}

	var visible int64
	db.Model(&models.AttendanceRecord{}).Scopes(scope.Records()).Count(&visible)
	if visible != 1 {
		t.Fatalf("visible = %d, want only the assigned student's record", visible)
	}

	// Reassignment moves membership, not accumulates it
	if err := SetGroupStudents(db, group.ID, []uint{s2.ID}); err != nil {
		t.Fatalf("SetGroupStudents: %v", err)
	}
	var first models.Student
	db.First(&first, s1.ID)
	if first.HizbGroupID != nil {
		t.Errorf("dropped student still carries group %v", *first.HizbGroupID)
	}
	db.Model(&models.AttendanceRecord{}).Scopes(scope.Records()).Count(&visible)
	if visible != 1 {
		t.Errorf("visible = %d after reassignment, want 1", visible)
	}
}

func TestAssignedFlagsScopeCountsRecordOnce(t *testing.T) {
	db := newTestDB(t)

	reviewer := models.User{Username: "lajnat4", Password: "x", Role: models.RoleLajnatMember, Active: true}
	mustCreate(t, db, &reviewer)
	student := models.Student{Trno: "T900", Room: "9"}
	mustCreate(t, db, &student)
	record := models.AttendanceRecord{
		StudentID: student.ID, Date: dayAgo(1), TP: "t",
		AttendanceType: models.AttendanceFajr, Status: models.StatusAbsent,
	}
	mustCreate(t, db, &record)

	for i := 0; i < 2; i++ {
		mustCreate(t, db, &models.AttendanceFlag{
			AttendanceRecordID: record.ID,
			AssignedToID:       &reviewer.ID,
			Reason:             "repeat",
		})
	}

	scope := ResolveScope(db, &reviewer)
	var visible int64
	db.Model(&models.AttendanceRecord{}).Scopes(scope.Records()).Count(&visible)
	if visible != 1 {
		t.Errorf("visible = %d, want a doubly-flagged record counted once", visible)
	}

	flags := NewFlagServiceWith(db, notifications.NewServiceWith(db))
	worklist, err := flags.FlaggedStudents(reviewer.ID)
	if err != nil {
		t.Fatalf("FlaggedStudents: %v", err)
	}
	if len(worklist) != 1 {
		t.Fatalf("worklist = %d students, want 1", len(worklist))
	}
	if worklist[0].Trno != "T900" || worklist[0].FlagCount != 2 {
		t.Errorf("worklist[0] = %+v, want T900 with two flags", worklist[0])
	}
}

func TestStatusCountsScoped(t *testing.T) {
	db := newTestDB(t)

	hizb := models.Hizb{Name: "Hizb B"}
	mustCreate(t, db, &hizb)
	inScope := models.Student{Trno: "S1", HizbID: &hizb.ID}
	outScope := models.Student{Trno: "S2"}
	mustCreate(t, db, &inScope)
	mustCreate(t, db, &outScope)

	date := dayAgo(1)
	for i, status := range []string{models.StatusPresent, models.StatusAbsent, models.StatusAbsent} {
		mustCreate(t, db, &models.AttendanceRecord{
			StudentID: inScope.ID, Date: date, TP: string(rune('a' + i)),
			AttendanceType: models.AttendanceFajr, Status: status,
		})
	}
	mustCreate(t, db, &models.AttendanceRecord{
		StudentID: outScope.ID, Date: date, TP: "z",
		AttendanceType: models.AttendanceFajr, Status: models.StatusPresent,
	})

	agg := NewAggregatorWith(db, nil, nil)
	start := date.Format("2006-01-02")
	end := time.Now().Format("2006-01-02")
	counts := agg.StatusCounts(start, end, Scope{Kind: ScopeByHizb, HizbID: hizb.ID})

	if counts.TotalRecords != 3 {
		t.Fatalf("TotalRecords = %d, want 3 in-scope records", counts.TotalRecords)
	}
	if counts.PresentCount != 1 || counts.AbsentCount != 2 {
		t.Errorf("present=%d absent=%d, want 1 and 2", counts.PresentCount, counts.AbsentCount)
	}
}
