package attendance

import (
	"testing"

	"github.com/Mala4505/tanbeeh-dashboard-backend/models"
	"github.com/Mala4505/tanbeeh-dashboard-backend/services/upstream"
)

func TestNormalizeStatus(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"letter present", "p", models.StatusPresent},
		{"letter absent", "a", models.StatusAbsent},
		{"letter late", "l", models.StatusLate},
		{"letter excused", "e", models.StatusExcused},
		{"word present", "present", models.StatusPresent},
		{"word excused", "Excused", models.StatusExcused},
		{"uppercase letter", "P", models.StatusPresent},
		{"padded", "  p  ", models.StatusPresent},
		{"empty defaults to absent", "", models.StatusAbsent},
		{"garbage defaults to absent", "xyz", models.StatusAbsent},
		{"numeric defaults to absent", "1", models.StatusAbsent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizeStatus(tt.input); got != tt.expected {
				t.Errorf("NormalizeStatus(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestNormalizeType(t *testing.T) {
	tests := []struct {
		endpoint string
		expected string
	}{
		{upstream.EndpointFajr, models.AttendanceFajr},
		{upstream.EndpointMaghribIsha, models.AttendanceMaghribIsha},
		{upstream.EndpointDua, models.AttendanceDua},
		{"Unknown_Endpoint", "unknown_endpoint"},
	}

	for _, tt := range tests {
		if got := NormalizeType(tt.endpoint); got != tt.expected {
			t.Errorf("NormalizeType(%q) = %q, want %q", tt.endpoint, got, tt.expected)
		}
	}
}

func TestSafeStrip(t *testing.T) {
	tests := []struct {
		name     string
		input    interface{}
		expected string
	}{
		{"plain string", "room 12", "room 12"},
		{"padded string", "  bed 4 ", "bed 4"},
		{"nil", nil, ""},
		{"number", 42.0, ""},
		{"bool", true, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := safeStrip(tt.input); got != tt.expected {
				t.Errorf("safeStrip(%v) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestNormalizeRowFajr(t *testing.T) {
	row := upstream.Row{
		"Trno":                "T1001",
		"BedName":             " Bed 7 ",
		"RoomNo":              "12A",
		"Darajah":             "Darajah 3",
		"Hizb":                "Hizb B",
		"Date":                "2026-08-14",
		"Fajar_Namaz":         "p",
		"Fajar_Namaz_Remarks": "on time",
		"Fajar_Namaz_TP":      "2026-08-14T05:10:00",
	}

	rec := NormalizeRow(row, upstream.EndpointFajr)

	if rec.Trno != "T1001" {
		t.Errorf("Trno = %q, want T1001", rec.Trno)
	}
	if rec.BedName != "Bed 7" {
		t.Errorf("BedName = %q, want trimmed value", rec.BedName)
	}
	if rec.AttendanceType != models.AttendanceFajr {
		t.Errorf("AttendanceType = %q, want %q", rec.AttendanceType, models.AttendanceFajr)
	}
	if rec.Status != models.StatusPresent {
		t.Errorf("Status = %q, want present", rec.Status)
	}
	if rec.Remarks != "on time" {
		t.Errorf("Remarks = %q, want 'on time'", rec.Remarks)
	}
	if rec.TP != "2026-08-14T05:10:00" {
		t.Errorf("TP = %q, unexpected", rec.TP)
	}
	if rec.Date == nil || rec.Date.Format("2006-01-02") != "2026-08-14" {
		t.Errorf("Date = %v, want 2026-08-14", rec.Date)
	}
	if rec.RawDate != "" {
		t.Errorf("RawDate = %q, want empty for a parseable date", rec.RawDate)
	}
}

func TestNormalizeRowSelectsEndpointFields(t *testing.T) {
	row := upstream.Row{
		"TRNO":                "T2002",
		"Date":                "2026-08-14",
		"Fajar_Namaz":         "p",
		"Maghrib_Isha":        "l",
		"Dua":                 "e",
		"Maghrib_Isha_Remarks": "arrived late",
	}

	rec := NormalizeRow(row, upstream.EndpointMaghribIsha)
	if rec.Status != models.StatusLate {
		t.Errorf("Status = %q, want late from the Maghrib_Isha column", rec.Status)
	}
	if rec.Remarks != "arrived late" {
		t.Errorf("Remarks = %q, want the Maghrib_Isha remarks column", rec.Remarks)
	}
	if rec.Trno != "T2002" {
		t.Errorf("Trno = %q, want the TRNO spelling accepted", rec.Trno)
	}

	rec = NormalizeRow(row, upstream.EndpointDua)
	if rec.Status != models.StatusExcused {
		t.Errorf("Status = %q, want excused from the Dua column", rec.Status)
	}
}

func TestNormalizeRowMissingStatusDefaultsAbsent(t *testing.T) {
	row := upstream.Row{
		"Trno": "T3003",
		"Date": "2026-08-14",
	}

	rec := NormalizeRow(row, upstream.EndpointFajr)
	if rec.Status != models.StatusAbsent {
		t.Errorf("Status = %q, want absent when the status column is missing", rec.Status)
	}
}

func TestNormalizeRowNonStringTextFields(t *testing.T) {
	row := upstream.Row{
		"Trno":        "T4004",
		"RoomNo":      nil,
		"BedName":     7.0,
		"Fajar_Namaz": "a",
		"Date":        "2026-08-14",
	}

	rec := NormalizeRow(row, upstream.EndpointFajr)
	if rec.Room != "" || rec.BedName != "" {
		t.Errorf("non-string text fields should normalize to empty, got Room=%q BedName=%q", rec.Room, rec.BedName)
	}
}

func TestNormalizeRowTrnoNeverDefaulted(t *testing.T) {
	rec := NormalizeRow(upstream.Row{"Date": "2026-08-14"}, upstream.EndpointFajr)
	if rec.Trno != "" {
		t.Errorf("Trno = %q, want empty when the row has no identifier", rec.Trno)
	}
}

func TestParseDate(t *testing.T) {
	tests := []struct {
		name        string
		input       string
		wantParsed  bool
		wantRawKept string
	}{
		{"valid", "2026-08-14", true, ""},
		{"empty", "", false, ""},
		{"wrong format kept raw", "14/08/2026", false, "14/08/2026"},
		{"datetime kept raw", "2026-08-14 05:10:00", false, "2026-08-14 05:10:00"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			parsed, raw := parseDate(tt.input)
			if (parsed != nil) != tt.wantParsed {
				t.Errorf("parseDate(%q) parsed=%v, want %v", tt.input, parsed != nil, tt.wantParsed)
			}
			if raw != tt.wantRawKept {
				t.Errorf("parseDate(%q) raw=%q, want %q", tt.input, raw, tt.wantRawKept)
			}
		})
	}
}

func TestNormalizeBatch(t *testing.T) {
	rows := []upstream.Row{
		{"Trno": "T1", "Fajar_Namaz": "p", "Date": "2026-08-14"},
		{"Trno": "T2", "Fajar_Namaz": "bad", "Date": "2026-08-14"},
	}

	records := NormalizeBatch(rows, upstream.EndpointFajr)
	if len(records) != 2 {
		t.Fatalf("len = %d, want 2", len(records))
	}
	if records[0].Status != models.StatusPresent {
		t.Errorf("first record status = %q, want present", records[0].Status)
	}
	if records[1].Status != models.StatusAbsent {
		t.Errorf("second record status = %q, want absent", records[1].Status)
	}
}
