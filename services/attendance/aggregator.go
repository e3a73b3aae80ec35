package attendance

import (
	"math"
	"sort"
	"strings"
	"time"

	"github.com/Mala4505/tanbeeh-dashboard-backend/database"
	"github.com/Mala4505/tanbeeh-dashboard-backend/models"
	"github.com/Mala4505/tanbeeh-dashboard-backend/services/upstream"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

const (
	// DefaultFlagThreshold is the present-rate under which a room lands on
	// the intervention worklist
	DefaultFlagThreshold = 75.0
	// DefaultRoomLimit bounds the room ranking
	DefaultRoomLimit = 20
	// flaggedRoomCap hard-caps the worklist; it is not a paginated report
	flaggedRoomCap = 50
)

// DailyData mirrors the chart-friendly shape the dashboard consumes
type DailyData struct {
	Dates   []string  `json:"dates"`
	Present []int     `json:"present"`
	Absent  []int     `json:"absent"`
	Late    []int     `json:"late"`
	Rate    []float64 `json:"rate"`
}

// WeeklyData groups the same counters by ISO week start
type WeeklyData struct {
	Weeks   []string `json:"weeks"`
	Present []int    `json:"present"`
	Absent  []int    `json:"absent"`
	Late    []int    `json:"late"`
}

// RoomRanking lists rooms by present rate
type RoomRanking struct {
	Labels []string  `json:"labels"`
	Rates  []float64 `json:"rates"`
}

// FlaggedRoom is one room under the threshold
type FlaggedRoom struct {
	RoomID string  `json:"room_id"`
	Rate   float64 `json:"rate"`
}

// Summary condenses the latest daily bucket plus the flagged-room count
type Summary struct {
	TotalStudents int     `json:"totalStudents"`
	PresentRate   float64 `json:"presentRate"`
	AbsentRate    float64 `json:"absentRate"`
	LateRate      float64 `json:"lateRate"`
	FlaggedCount  int     `json:"flaggedCount"`
}

// statBucket is one grouped row out of the store
type statBucket struct {
	Label   string
	Total   int64
	Present int64
	Absent  int64
	Late    int64
}

// Aggregator computes role-scoped attendance statistics over the store,
// falling back to a live upstream fetch when the requested window has no
// persisted data.
type Aggregator struct {
	db     *gorm.DB
	client *upstream.Client
	sync   *SyncService
}

// NewAggregator creates an aggregator bound to the shared store
func NewAggregator() *Aggregator {
	return &Aggregator{
		db:     database.GetDB(),
		client: upstream.NewClient(),
		sync:   NewSyncService(),
	}
}

// NewAggregatorWith wires explicit dependencies (used by tests)
func NewAggregatorWith(db *gorm.DB, client *upstream.Client, sync *SyncService) *Aggregator {
	return &Aggregator{db: db, client: client, sync: sync}
}

// Daily returns per-calendar-day counters for the window, ascending by date
func (a *Aggregator) Daily(start, end string, scope Scope) DailyData {
	var rows []statBucket
	err := a.db.Model(&models.AttendanceRecord{}).
		Scopes(scope.Records()).
		Select("DATE_FORMAT(attendance_records.date, '%Y-%m-%d') AS label, "+
			"COUNT(*) AS total, "+
			"SUM(CASE WHEN attendance_records.status = 'present' THEN 1 ELSE 0 END) AS present, "+
			"SUM(CASE WHEN attendance_records.status = 'absent' THEN 1 ELSE 0 END) AS absent, "+
			"SUM(CASE WHEN attendance_records.status = 'late' THEN 1 ELSE 0 END) AS late").
		Where("attendance_records.date BETWEEN ? AND ?", start, end).
		Group("attendance_records.date").
		Order("attendance_records.date ASC").
		Scan(&rows).Error
	if err != nil {
		logrus.WithError(err).Error("Daily aggregation query failed")
		return DailyData{}
	}
	return buildDaily(rows)
}

// DailyWithFallback runs Daily and, when the window is empty, fetches the
// window live from the upstream API, persists the rows as temporary
// records, and re-queries. The store acts as a self-healing cache: the
// first miss pays the network round trip, later calls read the store.
func (a *Aggregator) DailyWithFallback(start, end string, scope Scope) DailyData {
	data := a.Daily(start, end, scope)
	if len(data.Dates) > 0 {
		return data
	}

	if a.fallbackFetch(start, end) == 0 {
		return data
	}
	return a.Daily(start, end, scope)
}

// fallbackFetch pulls every prayer endpoint for the window and persists the
// rows as is_temp records. Rows for unknown students are skipped: fallback
// never invents roster entries. Returns the number of rows persisted.
func (a *Aggregator) fallbackFetch(start, end string) int {
	persisted := 0
	for _, endpoint := range upstream.Endpoints {
		rows := a.client.FetchAttendance(endpoint, start, end)
		for _, rec := range NormalizeBatch(rows, endpoint) {
			if rec.Trno == "" {
				continue
			}
			var student models.Student
			if err := a.db.Where("trno = ?", rec.Trno).First(&student).Error; err != nil {
				continue
			}
			if _, err := a.sync.upsertRecord(student.ID, rec, true, nil); err != nil {
				logrus.WithError(err).WithField("trno", rec.Trno).Warn("Fallback upsert failed")
				continue
			}
			persisted++
		}
	}
	if persisted > 0 {
		logrus.WithFields(logrus.Fields{
			"from": start, "to": end, "persisted": persisted,
		}).Info("Fallback fetch cached upstream rows as temporary records")
	}
	return persisted
}

// Weekly groups the daily buckets by ISO week start (Monday)
func (a *Aggregator) Weekly(start, end string, scope Scope) WeeklyData {
	daily := a.Daily(start, end, scope)
	return buildWeekly(daily)
}

// roomBucket is one per-room grouped row
type roomBucket struct {
	Room    string
	Total   int64
	Present int64
}

func (a *Aggregator) roomTotals(start, end string, scope Scope) []roomBucket {
	var rows []roomBucket
	err := a.db.Model(&models.AttendanceRecord{}).
		Scopes(scope.RecordsWithRoom()).
		Select("students.room AS room, COUNT(*) AS total, "+
			"SUM(CASE WHEN attendance_records.status = 'present' THEN 1 ELSE 0 END) AS present").
		Where("attendance_records.date BETWEEN ? AND ?", start, end).
		Group("students.room").
		Order("students.room ASC").
		Scan(&rows).Error
	if err != nil {
		logrus.WithError(err).Error("Room aggregation query failed")
		return nil
	}
	return rows
}

// RoomRanking returns per-room present rates ordered by rate. Ties keep
// the room order the grouped query produced.
func (a *Aggregator) RoomRanking(start, end string, scope Scope, order string, limit int) RoomRanking {
	if limit <= 0 {
		limit = DefaultRoomLimit
	}
	return rankRooms(a.roomTotals(start, end, scope), order, limit)
}

// FlaggedRooms returns rooms whose present rate falls under threshold,
// ascending by rate, capped at 50 rows.
func (a *Aggregator) FlaggedRooms(start, end string, scope Scope, threshold float64) []FlaggedRoom {
	return filterFlaggedRooms(a.roomTotals(start, end, scope), threshold)
}

// --- pure helpers ---

// round2 rounds to 2 decimal places
func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// rate is the zero-guarded percentage
func rate(present, total int64) float64 {
	if total == 0 {
		return 0
	}
	return round2(float64(present) / float64(total) * 100)
}

func buildDaily(rows []statBucket) DailyData {
	data := DailyData{
		Dates:   make([]string, 0, len(rows)),
		Present: make([]int, 0, len(rows)),
		Absent:  make([]int, 0, len(rows)),
		Late:    make([]int, 0, len(rows)),
		Rate:    make([]float64, 0, len(rows)),
	}
	for _, r := range rows {
		data.Dates = append(data.Dates, r.Label)
		data.Present = append(data.Present, int(r.Present))
		data.Absent = append(data.Absent, int(r.Absent))
		data.Late = append(data.Late, int(r.Late))
		data.Rate = append(data.Rate, rate(r.Present, r.Total))
	}
	return data
}

// isoWeekStart returns the Monday of the ISO week containing d
func isoWeekStart(d time.Time) time.Time {
	offset := (int(d.Weekday()) + 6) % 7
	return d.AddDate(0, 0, -offset)
}

// buildWeekly folds daily buckets into ISO weeks, preserving ascending
// order. Weekly rates are intentionally absent from the payload shape.
func buildWeekly(daily DailyData) WeeklyData {
	data := WeeklyData{
		Weeks:   []string{},
		Present: []int{},
		Absent:  []int{},
		Late:    []int{},
	}
	index := map[string]int{}

	for i, ds := range daily.Dates {
		d, err := time.Parse("2006-01-02", ds)
		if err != nil {
			continue
		}
		week := isoWeekStart(d).Format("2006-01-02")
		pos, ok := index[week]
		if !ok {
			pos = len(data.Weeks)
			index[week] = pos
			data.Weeks = append(data.Weeks, week)
			data.Present = append(data.Present, 0)
			data.Absent = append(data.Absent, 0)
			data.Late = append(data.Late, 0)
		}
		data.Present[pos] += daily.Present[i]
		data.Absent[pos] += daily.Absent[i]
		data.Late[pos] += daily.Late[i]
	}
	return data
}

func rankRooms(rows []roomBucket, order string, limit int) RoomRanking {
	ranked := make([]roomBucket, len(rows))
	copy(ranked, rows)

	desc := !strings.EqualFold(order, "asc")
	sort.SliceStable(ranked, func(i, j int) bool {
		ri, rj := rate(ranked[i].Present, ranked[i].Total), rate(ranked[j].Present, ranked[j].Total)
		if desc {
			return ri > rj
		}
		return ri < rj
	})

	if len(ranked) > limit {
		ranked = ranked[:limit]
	}

	out := RoomRanking{Labels: make([]string, 0, len(ranked)), Rates: make([]float64, 0, len(ranked))}
	for _, r := range ranked {
		out.Labels = append(out.Labels, r.Room)
		out.Rates = append(out.Rates, rate(r.Present, r.Total))
	}
	return out
}

func filterFlaggedRooms(rows []roomBucket, threshold float64) []FlaggedRoom {
	flagged := make([]FlaggedRoom, 0)
	for _, r := range rows {
		if pct := rate(r.Present, r.Total); pct < threshold {
			flagged = append(flagged, FlaggedRoom{RoomID: r.Room, Rate: pct})
		}
	}
	sort.SliceStable(flagged, func(i, j int) bool { return flagged[i].Rate < flagged[j].Rate })
	if len(flagged) > flaggedRoomCap {
		flagged = flagged[:flaggedRoomCap]
	}
	return flagged
}

// BuildSummary derives the dashboard summary from the last daily bucket
// plus the flagged-room count. An empty window yields all zeroes.
func BuildSummary(daily DailyData, flagged []FlaggedRoom) Summary {
	if len(daily.Present) == 0 {
		return Summary{}
	}

	last := len(daily.Present) - 1
	present := daily.Present[last]
	absent := daily.Absent[last]
	late := daily.Late[last]
	total := present + absent + late

	summary := Summary{
		TotalStudents: total,
		FlaggedCount:  len(flagged),
	}
	if total > 0 {
		summary.PresentRate = daily.Rate[last]
		summary.AbsentRate = round2(float64(absent) / float64(total) * 100)
		summary.LateRate = round2(float64(late) / float64(total) * 100)
	}
	return summary
}
