package attendance

import (
	"strings"
	"time"

	"github.com/Mala4505/tanbeeh-dashboard-backend/models"
	"github.com/Mala4505/tanbeeh-dashboard-backend/services/upstream"

	"github.com/sirupsen/logrus"
)

// NormalizedRecord is the canonical shape every upstream row is reduced to
// before it touches the store.
type NormalizedRecord struct {
	Trno           string
	BedName        string
	Room           string
	Pantry         string
	Location       string
	Darajah        string
	Hizb           string
	Date           *time.Time
	RawDate        string
	TP             string
	AttendanceType string
	Status         string
	Remarks        string
}

// statusMap is deliberately lossy: anything unrecognized becomes "absent"
// so unknown attendance is never treated as present. The upstream contract
// has shipped both single-letter codes and full words, so both are accepted.
var statusMap = map[string]string{
	"p":       models.StatusPresent,
	"a":       models.StatusAbsent,
	"l":       models.StatusLate,
	"e":       models.StatusExcused,
	"present": models.StatusPresent,
	"absent":  models.StatusAbsent,
	"late":    models.StatusLate,
	"excused": models.StatusExcused,
}

var typeMap = map[string]string{
	upstream.EndpointFajr:        models.AttendanceFajr,
	upstream.EndpointMaghribIsha: models.AttendanceMaghribIsha,
	upstream.EndpointDua:         models.AttendanceDua,
}

// safeStrip trims a raw value, returning "" for anything that is not a string.
// Text fields never carry null through normalization.
func safeStrip(value interface{}) string {
	if s, ok := value.(string); ok {
		return strings.TrimSpace(s)
	}
	return ""
}

// NormalizeStatus maps a raw status code to the canonical status enum
func NormalizeStatus(raw string) string {
	if status, ok := statusMap[strings.ToLower(strings.TrimSpace(raw))]; ok {
		return status
	}
	return models.StatusAbsent
}

// NormalizeType maps an endpoint key to the canonical attendance type
func NormalizeType(endpoint string) string {
	if t, ok := typeMap[endpoint]; ok {
		return t
	}
	return strings.ToLower(endpoint)
}

// NormalizeRow reduces one raw upstream row to the canonical record.
// Each endpoint carries differently named status/remarks/TP columns, so
// the source field set is selected by endpoint key. The trno identifier is
// passed through exactly as received and never defaulted.
func NormalizeRow(raw upstream.Row, endpoint string) NormalizedRecord {
	var rawStatus, remarks, tp string

	switch endpoint {
	case upstream.EndpointFajr:
		rawStatus = safeStrip(raw["Fajar_Namaz"])
		remarks = safeStrip(raw["Fajar_Namaz_Remarks"])
		tp = safeStrip(raw["Fajar_Namaz_TP"])
	case upstream.EndpointMaghribIsha:
		rawStatus = safeStrip(raw["Maghrib_Isha"])
		remarks = safeStrip(raw["Maghrib_Isha_Remarks"])
		tp = safeStrip(raw["Maghrib_Isha_TP"])
	case upstream.EndpointDua:
		rawStatus = safeStrip(raw["Dua"])
		remarks = safeStrip(raw["Dua_Remarks"])
		tp = safeStrip(raw["Dua_TP"])
	}

	rec := NormalizedRecord{
		Trno:           trnoOf(raw),
		BedName:        safeStrip(raw["BedName"]),
		Room:           safeStrip(raw["RoomNo"]),
		Pantry:         safeStrip(raw["Pantry"]),
		Location:       safeStrip(raw["Location"]),
		Darajah:        safeStrip(raw["Darajah"]),
		Hizb:           safeStrip(raw["Hizb"]),
		TP:             tp,
		AttendanceType: NormalizeType(endpoint),
		Status:         NormalizeStatus(rawStatus),
		Remarks:        remarks,
	}

	rec.Date, rec.RawDate = parseDate(safeStrip(raw["Date"]))
	return rec
}

// trnoOf reads the student identifier. Two spellings have appeared in the
// upstream payloads over time.
func trnoOf(raw upstream.Row) string {
	if s, ok := raw["Trno"].(string); ok {
		return s
	}
	if s, ok := raw["TRNO"].(string); ok {
		return s
	}
	return ""
}

// parseDate parses the exact YYYY-MM-DD pattern. A value that fails to
// parse is preserved raw with a warning; normalization never aborts a row
// over a bad date.
func parseDate(raw string) (*time.Time, string) {
	if raw == "" {
		return nil, ""
	}
	d, err := time.Parse("2006-01-02", raw)
	if err != nil {
		logrus.WithField("date", raw).Warn("Unexpected date format in upstream row")
		return nil, raw
	}
	return &d, ""
}

// NormalizeBatch normalizes every row for one endpoint
func NormalizeBatch(rows []upstream.Row, endpoint string) []NormalizedRecord {
	out := make([]NormalizedRecord, 0, len(rows))
	for _, row := range rows {
		out = append(out, NormalizeRow(row, endpoint))
	}
	return out
}
