package stats

import (
	"database/sql/driver"
	"fmt"
	"strings"
	"time"
)

// sqlTime scans aggregate time expressions (MAX(ts), DATE(ts)). Postgres hands
// back time.Time; sqlite hands back the stored text since the expression has
// no declared column type.
type sqlTime struct {
	Time  time.Time
	Valid bool
}

var sqlTimeLayouts = []string{
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02T15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	"2006-01-02T15:04",
	"2006-01-02",
	time.RFC3339Nano,
}

func (t *sqlTime) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		*t = sqlTime{}
		return nil
	case time.Time:
		*t = sqlTime{Time: v.UTC(), Valid: true}
		return nil
	case []byte:
		return t.parse(string(v))
	case string:
		return t.parse(v)
	default:
		return fmt.Errorf("sqlTime: unsupported type %T", src)
	}
}

// Value completes the Scanner/Valuer pair gorm requires before it accepts the
// type as a plain column in a scan target.
func (t sqlTime) Value() (driver.Value, error) {
	if !t.Valid {
		return nil, nil
	}
	return t.Time, nil
}

func (t *sqlTime) parse(s string) error {
	s = strings.TrimSuffix(strings.TrimSpace(s), "Z")
	if s == "" {
		*t = sqlTime{}
		return nil
	}
	for _, layout := range sqlTimeLayouts {
		if ts, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			*t = sqlTime{Time: ts.UTC(), Valid: true}
			return nil
		}
	}
	return fmt.Errorf("sqlTime: cannot parse %q", s)
}

func (t sqlTime) Ptr() *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}
