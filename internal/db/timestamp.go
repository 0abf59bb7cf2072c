package db

import (
	"database/sql/driver"
	"fmt"
	"time"
)

// timeLayout is fixed width so stored SQLite text sorts chronologically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

var parseLayouts = []string{
	timeLayout,
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// formatTime renders t in UTC using timeLayout. All times are bound through
// this so that string comparison in SQLite matches time order.
func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

// timestamp scans either a driver time.Time (PostgreSQL) or text (SQLite).
type timestamp struct {
	time.Time
}

func (t *timestamp) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		t.Time = time.Time{}
		return nil
	case time.Time:
		t.Time = v.UTC()
		return nil
	case string:
		return t.parse(v)
	case []byte:
		return t.parse(string(v))
	}
	return fmt.Errorf("timestamp: unsupported source type %T", src)
}

func (t *timestamp) parse(s string) error {
	for _, layout := range parseLayouts {
		if parsed, err := time.Parse(layout, s); err == nil {
			t.Time = parsed.UTC()
			return nil
		}
	}
	return fmt.Errorf("timestamp: cannot parse %q", s)
}

func (t timestamp) Value() (driver.Value, error) {
	return formatTime(t.Time), nil
}
